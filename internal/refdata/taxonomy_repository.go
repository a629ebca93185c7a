package refdata

import (
	"context"
	"database/sql"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/uptrace/bun"
)

// TaxonomyDocument is the static sector taxonomy seed file:
// {"sectors": {"Technology": ["Software", ...], ...}}
type TaxonomyDocument struct {
	Sectors map[string][]string `json:"sectors"`
}

// TaxonomyRepository seeds and queries the sector taxonomy and the
// source-industry mapping table.
type TaxonomyRepository struct {
	db *bun.DB
}

// NewTaxonomyRepository creates a new TaxonomyRepository instance.
func NewTaxonomyRepository(db *bun.DB) *TaxonomyRepository {
	return &TaxonomyRepository{db: db}
}

// EnsureSector gets or creates a sector by exact trimmed name.
func (r *TaxonomyRepository) EnsureSector(ctx context.Context, name string) (int64, error) {
	name = strings.TrimSpace(name)

	var id int64
	err := r.db.NewSelect().
		Model((*Sector)(nil)).
		Column("sector_id").
		Where("sector_name = ?", name).
		Limit(1).
		Scan(ctx, &id)
	if err == nil {
		return id, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("find sector %q: %w", name, err)
	}

	sec := &Sector{Name: name}
	if _, err := r.db.NewInsert().Model(sec).Exec(ctx); err != nil {
		return 0, fmt.Errorf("insert sector %q: %w", name, err)
	}
	if sec.ID == 0 {
		return 0, fmt.Errorf("insert sector %q: no row id returned", name)
	}
	return sec.ID, nil
}

// EnsureSubsector gets or creates a subsector scoped to its sector.
func (r *TaxonomyRepository) EnsureSubsector(ctx context.Context, sectorID int64, name string) (int64, error) {
	name = strings.TrimSpace(name)

	var id int64
	err := r.db.NewSelect().
		Model((*Subsector)(nil)).
		Column("subsector_id").
		Where("sector_id = ?", sectorID).
		Where("subsector_name = ?", name).
		Limit(1).
		Scan(ctx, &id)
	if err == nil {
		return id, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("find subsector %q: %w", name, err)
	}

	sub := &Subsector{SectorID: sectorID, Name: name}
	if _, err := r.db.NewInsert().Model(sub).Exec(ctx); err != nil {
		return 0, fmt.Errorf("insert subsector %q: %w", name, err)
	}
	if sub.ID == 0 {
		return 0, fmt.Errorf("insert subsector %q: no row id returned", name)
	}
	return sub.ID, nil
}

// SeedFromDocument loads the taxonomy JSON and upserts every sector and
// subsector. Pure get-or-create, safe to re-run.
func (r *TaxonomyRepository) SeedFromDocument(ctx context.Context, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read taxonomy %s: %w", path, err)
	}

	var doc TaxonomyDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("parse taxonomy %s: %w", path, err)
	}

	for sectorName, subsectors := range doc.Sectors {
		sectorID, err := r.EnsureSector(ctx, sectorName)
		if err != nil {
			return err
		}
		for _, sub := range subsectors {
			if _, err := r.EnsureSubsector(ctx, sectorID, sub); err != nil {
				return err
			}
		}
	}

	return nil
}

// UpsertIndustryMapping upserts one (source, source_industry) mapping row.
func (r *TaxonomyRepository) UpsertIndustryMapping(ctx context.Context, source, sourceIndustry, sectorName, subsectorName string) error {
	m := &IndustryMapping{
		Source:         strings.ToLower(strings.TrimSpace(source)),
		SourceIndustry: strings.TrimSpace(sourceIndustry),
		SectorName:     strings.TrimSpace(sectorName),
		SubsectorName:  norm(subsectorName),
	}

	_, err := r.db.NewInsert().
		Model(m).
		On("CONFLICT (source, source_industry) DO UPDATE").
		Set("sector_name = EXCLUDED.sector_name").
		Set("subsector_name = EXCLUDED.subsector_name").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("upsert industry mapping (%s, %s): %w", m.Source, m.SourceIndustry, err)
	}
	return nil
}

// IngestMappingCSV loads a curated mapping file with columns
// {source, source_industry, sector, subsector}. Blank lines and lines
// starting with # are ignored; rows missing source, source_industry or
// sector are skipped. Returns the number of rows upserted. A missing file
// is not an error: the mapping is optional.
func (r *TaxonomyRepository) IngestMappingCSV(ctx context.Context, path string) (int, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("read mapping %s: %w", path, err)
	}

	var lines []string
	for _, ln := range strings.Split(string(data), "\n") {
		trimmed := strings.TrimSpace(ln)
		if trimmed == "" || strings.HasPrefix(trimmed, "#") {
			continue
		}
		lines = append(lines, ln)
	}
	if len(lines) == 0 {
		return 0, nil
	}

	reader := csv.NewReader(strings.NewReader(strings.Join(lines, "\n")))
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	records, err := reader.ReadAll()
	if err != nil {
		return 0, fmt.Errorf("parse mapping %s: %w", path, err)
	}
	if len(records) < 2 {
		return 0, nil
	}

	col := headerIndex(records[0])
	n := 0
	for _, rec := range records[1:] {
		source := fieldNamed(rec, col, "source")
		sourceIndustry := fieldNamed(rec, col, "source_industry")
		sector := fieldNamed(rec, col, "sector")
		subsector := fieldNamed(rec, col, "subsector")

		if source == "" || sourceIndustry == "" || sector == "" {
			continue
		}

		if err := r.UpsertIndustryMapping(ctx, source, sourceIndustry, sector, subsector); err != nil {
			return n, err
		}
		n++
	}

	return n, nil
}

// CountSectors returns the number of sector rows.
func (r *TaxonomyRepository) CountSectors(ctx context.Context) (int, error) {
	n, err := r.db.NewSelect().Model((*Sector)(nil)).Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("count sectors: %w", err)
	}
	return n, nil
}

// CountSubsectors returns the number of subsector rows.
func (r *TaxonomyRepository) CountSubsectors(ctx context.Context) (int, error) {
	n, err := r.db.NewSelect().Model((*Subsector)(nil)).Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("count subsectors: %w", err)
	}
	return n, nil
}

// CountMappings returns the number of industry mapping rows.
func (r *TaxonomyRepository) CountMappings(ctx context.Context) (int, error) {
	n, err := r.db.NewSelect().Model((*IndustryMapping)(nil)).Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("count mappings: %w", err)
	}
	return n, nil
}

// headerIndex maps trimmed lower-cased header names to column positions.
func headerIndex(header []string) map[string]int {
	idx := make(map[string]int, len(header))
	for i, h := range header {
		idx[strings.ToLower(strings.TrimSpace(h))] = i
	}
	return idx
}

// fieldNamed returns the trimmed field for a named column, or "" when the
// column is missing from the header or from this row.
func fieldNamed(rec []string, col map[string]int, name string) string {
	i, ok := col[name]
	if !ok || i >= len(rec) {
		return ""
	}
	return strings.TrimSpace(rec[i])
}
