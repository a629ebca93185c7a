package refdata

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/csv"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/uptrace/bun"
)

// snapshotHeader is the fixed 7-column layout of a universe snapshot file.
// The files are intended to be committed to version control and re-ingested
// to rebuild the store without network access.
const snapshotHeader = "symbol_nse,symbol_bse,company_name,isin,nse_series,bse_scrip_code,status"

// SnapshotManager exports universes to flat CSV files and rebuilds the
// store from them.
type SnapshotManager struct {
	db        *bun.DB
	stocks    *StockRepository
	universes *UniverseRepository
}

// NewSnapshotManager creates a new SnapshotManager instance.
func NewSnapshotManager(db *bun.DB, stocks *StockRepository, universes *UniverseRepository) *SnapshotManager {
	return &SnapshotManager{db: db, stocks: stocks, universes: universes}
}

// SnapshotPath returns the canonical file path for a universe snapshot.
func SnapshotPath(dir, universeCode string) string {
	return filepath.Join(dir, NormalizeCode(universeCode)+".csv")
}

// Export writes the included members of a universe to outPath and appends
// a ticker_snapshots provenance row with the row count and a sha256 of
// the exact bytes written. Returns the row count; an unknown universe code
// yields 0 with nothing written.
func (m *SnapshotManager) Export(ctx context.Context, universeCode, outPath string) (int, error) {
	universe, err := m.universes.GetByCode(ctx, universeCode)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("find universe %q: %w", universeCode, err)
	}

	stocks, err := m.universes.MemberStocks(ctx, universe.ID)
	if err != nil {
		return 0, err
	}

	var b strings.Builder
	b.WriteString(snapshotHeader)
	b.WriteByte('\n')
	for _, s := range stocks {
		fields := []string{
			deref(s.SymbolNSE),
			deref(s.SymbolBSE),
			flattenNewlines(deref(s.CompanyName)),
			deref(s.ISIN),
			deref(s.NSESeries),
			deref(s.BSEScripCode),
			deref(s.Status),
		}
		for i, f := range fields {
			if i > 0 {
				b.WriteByte(',')
			}
			b.WriteString(csvEscape(f))
		}
		b.WriteByte('\n')
	}
	content := b.String()

	if dir := filepath.Dir(outPath); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return 0, fmt.Errorf("create snapshot directory: %w", err)
		}
	}
	if err := os.WriteFile(outPath, []byte(content), 0o644); err != nil {
		return 0, fmt.Errorf("write snapshot %s: %w", outPath, err)
	}

	rowCount := len(stocks)
	snap := &TickerSnapshot{
		UniverseID:    universe.ID,
		CreatedUTC:    time.Now().UTC(),
		SnapshotPath:  filepath.ToSlash(outPath),
		RowCount:      &rowCount,
		ContentSHA256: norm(HashText(content)),
	}
	if _, err := m.db.NewInsert().Model(snap).Exec(ctx); err != nil {
		return 0, fmt.Errorf("record snapshot: %w", err)
	}

	return rowCount, nil
}

// Import rebuilds universe membership from the snapshot file for
// universeCode under dir, feeding every row through the upsert engine and
// membership tracker exactly as a live feed row would be. Rows with no
// usable identity key are skipped. A missing snapshot file yields 0.
func (m *SnapshotManager) Import(ctx context.Context, dir, universeCode, description string) (int, error) {
	path := SnapshotPath(dir, universeCode)

	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("open snapshot %s: %w", path, err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	records, err := reader.ReadAll()
	if err != nil {
		return 0, fmt.Errorf("parse snapshot %s: %w", path, err)
	}
	if len(records) < 2 {
		return 0, nil
	}

	universeID, err := m.universes.Ensure(ctx, universeCode, description)
	if err != nil {
		return 0, err
	}

	col := headerIndex(records[0])
	n := 0
	for _, rec := range records[1:] {
		up := StockUpsert{
			SymbolNSE:    fieldNamed(rec, col, "symbol_nse"),
			SymbolBSE:    fieldNamed(rec, col, "symbol_bse"),
			CompanyName:  fieldNamed(rec, col, "company_name"),
			ISIN:         fieldNamed(rec, col, "isin"),
			NSESeries:    fieldNamed(rec, col, "nse_series"),
			BSEScripCode: fieldNamed(rec, col, "bse_scrip_code"),
			Status:       fieldNamed(rec, col, "status"),
		}

		// No identity key means nothing to anchor the row to.
		if up.SymbolNSE == "" && up.SymbolBSE == "" && up.ISIN == "" {
			continue
		}

		stockID, _, err := m.stocks.Upsert(ctx, up)
		if err != nil {
			return n, err
		}
		if err := m.universes.UpsertMembership(ctx, universeID, stockID, true); err != nil {
			return n, err
		}
		n++
	}

	return n, nil
}

// ListSnapshots returns the export provenance log, newest first.
func (m *SnapshotManager) ListSnapshots(ctx context.Context, limit int) ([]TickerSnapshot, error) {
	var snaps []TickerSnapshot
	err := m.db.NewSelect().
		Model(&snaps).
		Order("snapshot_id DESC").
		Limit(limit).
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("list snapshots: %w", err)
	}
	return snaps, nil
}

// HashText returns the hex sha256 digest of a string.
func HashText(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}

// csvEscape quotes a field only when it contains a comma or a quote,
// doubling internal quotes. Matches the snapshot file convention rather
// than encoding/csv, which also quotes on leading whitespace.
func csvEscape(s string) string {
	if strings.ContainsAny(s, `,"`) {
		return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
	}
	return s
}

// flattenNewlines replaces embedded newlines with spaces so company names
// never break the one-row-per-line layout.
func flattenNewlines(s string) string {
	s = strings.ReplaceAll(s, "\n", " ")
	return strings.ReplaceAll(s, "\r", " ")
}

func deref(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}
