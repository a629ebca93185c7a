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

// StockUpsert is a candidate record from a feed row. Any subset of fields
// may be populated; blank strings are treated as absent.
type StockUpsert struct {
	SymbolNSE    string
	SymbolBSE    string
	CompanyName  string
	ISIN         string
	NSESeries    string
	BSEScripCode string
	Status       string
}

// StockRepository handles canonical stock persistence.
type StockRepository struct {
	db *bun.DB
}

// NewStockRepository creates a new StockRepository instance.
func NewStockRepository(db *bun.DB) *StockRepository {
	return &StockRepository{db: db}
}

// norm trims whitespace and maps the empty string to absent.
func norm(v string) *string {
	s := strings.TrimSpace(v)
	if s == "" {
		return nil
	}
	return &s
}

// Resolve finds the canonical stock for a set of candidate identity keys.
// Lookup order is fixed: ISIN, then NSE symbol, then BSE symbol; the first
// match wins. ISIN is the most stable identifier across exchanges, so it
// takes precedence when feeds disagree about symbols. Returns (0, false)
// when no key matches.
func (r *StockRepository) Resolve(ctx context.Context, isin, symbolNSE, symbolBSE *string) (int64, bool, error) {
	lookups := []struct {
		column string
		value  *string
	}{
		{"isin", isin},
		{"symbol_nse", symbolNSE},
		{"symbol_bse", symbolBSE},
	}

	for _, lk := range lookups {
		if lk.value == nil {
			continue
		}

		var id int64
		err := r.db.NewSelect().
			Model((*Stock)(nil)).
			Column("stock_id").
			Where(lk.column+" = ?", *lk.value).
			Limit(1).
			Scan(ctx, &id)
		if errors.Is(err, sql.ErrNoRows) {
			continue
		}
		if err != nil {
			return 0, false, fmt.Errorf("resolve by %s: %w", lk.column, err)
		}
		return id, true, nil
	}

	return 0, false, nil
}

// ownedByOther reports whether value is already assigned to a stock other
// than stockID in the given identity column.
func (r *StockRepository) ownedByOther(ctx context.Context, column string, value *string, stockID int64) (bool, error) {
	if value == nil {
		return false, nil
	}

	exists, err := r.db.NewSelect().
		Model((*Stock)(nil)).
		Where(column+" = ?", *value).
		Where("stock_id <> ?", stockID).
		Exists(ctx)
	if err != nil {
		return false, fmt.Errorf("check %s ownership: %w", column, err)
	}
	return exists, nil
}

// Upsert creates or merges a canonical stock from a candidate record and
// returns its id plus whether a new row was created.
//
// On update, an identity value (NSE symbol, BSE symbol, ISIN) that already
// belongs to a different stock is dropped from the write instead of raising
// a uniqueness violation; non-identity fields are written whenever supplied.
// Supplied values win, absent values keep the existing column ("merge,
// never blank out").
func (r *StockRepository) Upsert(ctx context.Context, in StockUpsert) (int64, bool, error) {
	isin := norm(in.ISIN)
	symbolNSE := norm(in.SymbolNSE)
	symbolBSE := norm(in.SymbolBSE)
	companyName := norm(in.CompanyName)
	nseSeries := norm(in.NSESeries)
	bseScripCode := norm(in.BSEScripCode)
	status := norm(in.Status)

	now := time.Now().UTC()

	stockID, found, err := r.Resolve(ctx, isin, symbolNSE, symbolBSE)
	if err != nil {
		return 0, false, err
	}

	if !found {
		stock := &Stock{
			SymbolNSE:    symbolNSE,
			SymbolBSE:    symbolBSE,
			CompanyName:  companyName,
			ISIN:         isin,
			NSESeries:    nseSeries,
			BSEScripCode: bseScripCode,
			Status:       status,
			UpdatedUTC:   now,
		}
		if _, err := r.db.NewInsert().Model(stock).Exec(ctx); err != nil {
			return 0, false, fmt.Errorf("insert stock: %w", err)
		}
		if stock.ID == 0 {
			return 0, false, fmt.Errorf("insert stock: no row id returned")
		}
		return stock.ID, true, nil
	}

	// Drop identity values already owned by another stock so two feeds that
	// disagree about a symbol cannot produce a uniqueness violation.
	for _, idf := range []struct {
		column string
		value  **string
	}{
		{"symbol_nse", &symbolNSE},
		{"symbol_bse", &symbolBSE},
		{"isin", &isin},
	} {
		owned, err := r.ownedByOther(ctx, idf.column, *idf.value, stockID)
		if err != nil {
			return 0, false, err
		}
		if owned {
			*idf.value = nil
		}
	}

	_, err = r.db.NewUpdate().
		Model((*Stock)(nil)).
		Set("symbol_nse = COALESCE(?, symbol_nse)", symbolNSE).
		Set("symbol_bse = COALESCE(?, symbol_bse)", symbolBSE).
		Set("company_name = COALESCE(?, company_name)", companyName).
		Set("isin = COALESCE(?, isin)", isin).
		Set("nse_series = COALESCE(?, nse_series)", nseSeries).
		Set("bse_scrip_code = COALESCE(?, bse_scrip_code)", bseScripCode).
		Set("status = COALESCE(?, status)", status).
		Set("updated_utc = ?", now).
		Where("stock_id = ?", stockID).
		Exec(ctx)
	if err != nil {
		return 0, false, fmt.Errorf("update stock: %w", err)
	}

	return stockID, false, nil
}

// Get fetches a stock by id.
func (r *StockRepository) Get(ctx context.Context, id int64) (*Stock, error) {
	stock := new(Stock)
	err := r.db.NewSelect().
		Model(stock).
		Where("stock_id = ?", id).
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("get stock %d: %w", id, err)
	}
	return stock, nil
}

// FindBySymbol looks a stock up by NSE symbol first, then BSE symbol.
func (r *StockRepository) FindBySymbol(ctx context.Context, symbol string) (*Stock, error) {
	s := strings.TrimSpace(symbol)
	if s == "" {
		return nil, sql.ErrNoRows
	}

	stock := new(Stock)
	err := r.db.NewSelect().
		Model(stock).
		Where("symbol_nse = ? OR symbol_bse = ?", s, s).
		Order("stock_id ASC").
		Limit(1).
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return stock, nil
}

// List returns stocks ordered by id for API paging.
func (r *StockRepository) List(ctx context.Context, limit, offset int) ([]Stock, error) {
	var stocks []Stock
	err := r.db.NewSelect().
		Model(&stocks).
		Order("stock_id ASC").
		Limit(limit).
		Offset(offset).
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("list stocks: %w", err)
	}
	return stocks, nil
}

// Count returns the number of stock rows.
func (r *StockRepository) Count(ctx context.Context) (int, error) {
	n, err := r.db.NewSelect().Model((*Stock)(nil)).Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("count stocks: %w", err)
	}
	return n, nil
}
