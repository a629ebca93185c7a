package refdata

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/uptrace/bun"
)

// UniverseRepository tracks universes and their current membership.
type UniverseRepository struct {
	db *bun.DB
}

// NewUniverseRepository creates a new UniverseRepository instance.
func NewUniverseRepository(db *bun.DB) *UniverseRepository {
	return &UniverseRepository{db: db}
}

// NormalizeCode lower-cases and trims a universe code.
func NormalizeCode(code string) string {
	return strings.ToLower(strings.TrimSpace(code))
}

// Ensure gets or creates a universe by code. The description is only
// written on first creation; existing universes keep theirs.
func (r *UniverseRepository) Ensure(ctx context.Context, code, description string) (int64, error) {
	code = NormalizeCode(code)

	var id int64
	err := r.db.NewSelect().
		Model((*Universe)(nil)).
		Column("universe_id").
		Where("universe_code = ?", code).
		Limit(1).
		Scan(ctx, &id)
	if err == nil {
		return id, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("find universe %q: %w", code, err)
	}

	u := &Universe{Code: code, Description: norm(description)}
	if _, err := r.db.NewInsert().Model(u).Exec(ctx); err != nil {
		return 0, fmt.Errorf("insert universe %q: %w", code, err)
	}
	if u.ID == 0 {
		return 0, fmt.Errorf("insert universe %q: no row id returned", code)
	}
	return u.ID, nil
}

// GetByCode fetches a universe by normalized code.
func (r *UniverseRepository) GetByCode(ctx context.Context, code string) (*Universe, error) {
	u := new(Universe)
	err := r.db.NewSelect().
		Model(u).
		Where("universe_code = ?", NormalizeCode(code)).
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return u, nil
}

// List returns all universes ordered by code.
func (r *UniverseRepository) List(ctx context.Context) ([]Universe, error) {
	var universes []Universe
	err := r.db.NewSelect().
		Model(&universes).
		Order("universe_code ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("list universes: %w", err)
	}
	return universes, nil
}

// UpsertMembership sets the membership flag and timestamp for a
// (universe, stock) pair. Idempotent on the composite key. There is no
// removal path: a stock that disappears from a feed keeps its last state.
func (r *UniverseRepository) UpsertMembership(ctx context.Context, universeID, stockID int64, included bool) error {
	m := &UniverseMembership{
		UniverseID: universeID,
		StockID:    stockID,
		Included:   included,
		UpdatedUTC: time.Now().UTC(),
	}

	_, err := r.db.NewInsert().
		Model(m).
		On("CONFLICT (universe_id, stock_id) DO UPDATE").
		Set("included = EXCLUDED.included").
		Set("updated_utc = EXCLUDED.updated_utc").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("upsert membership (%d, %d): %w", universeID, stockID, err)
	}
	return nil
}

// MemberStocks returns the included members of a universe joined to their
// stock attributes, ordered by the first non-empty of NSE symbol, BSE
// symbol, ISIN, company name. The ordering is deterministic so snapshot
// exports are byte-stable for a given store state.
func (r *UniverseRepository) MemberStocks(ctx context.Context, universeID int64) ([]Stock, error) {
	var stocks []Stock
	err := r.db.NewSelect().
		Model(&stocks).
		Join("JOIN universe_membership AS um ON um.stock_id = s.stock_id").
		Where("um.universe_id = ?", universeID).
		Where("um.included = 1").
		OrderExpr("COALESCE(s.symbol_nse, s.symbol_bse, s.isin, s.company_name)").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("member stocks for universe %d: %w", universeID, err)
	}
	return stocks, nil
}

// MemberCount returns the number of included members.
func (r *UniverseRepository) MemberCount(ctx context.Context, universeID int64) (int, error) {
	n, err := r.db.NewSelect().
		Model((*UniverseMembership)(nil)).
		Where("universe_id = ?", universeID).
		Where("included = 1").
		Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("count members for universe %d: %w", universeID, err)
	}
	return n, nil
}
