package refdata

import (
	"time"

	"github.com/uptrace/bun"
)

// Stock is the canonical listed-equity entity. ISIN, NSE symbol and BSE
// symbol are each globally unique when non-empty; absent values are stored
// as NULL so they do not participate in uniqueness.
type Stock struct {
	bun.BaseModel `bun:"table:stocks,alias:s"`

	ID           int64     `bun:"stock_id,pk,autoincrement" json:"stock_id"`
	SymbolNSE    *string   `bun:"symbol_nse" json:"symbol_nse,omitempty"`
	SymbolBSE    *string   `bun:"symbol_bse" json:"symbol_bse,omitempty"`
	CompanyName  *string   `bun:"company_name" json:"company_name,omitempty"`
	ISIN         *string   `bun:"isin" json:"isin,omitempty"`
	NSESeries    *string   `bun:"nse_series" json:"nse_series,omitempty"`
	BSEScripCode *string   `bun:"bse_scrip_code" json:"bse_scrip_code,omitempty"`
	Status       *string   `bun:"status" json:"status,omitempty"`
	UpdatedUTC   time.Time `bun:"updated_utc,nullzero" json:"updated_utc"`
}

// Sector is a top-level taxonomy entry, seeded from a static document.
type Sector struct {
	bun.BaseModel `bun:"table:sectors,alias:sec"`

	ID   int64  `bun:"sector_id,pk,autoincrement" json:"sector_id"`
	Name string `bun:"sector_name,notnull,unique" json:"sector_name"`
}

// Subsector is unique by (sector, name).
type Subsector struct {
	bun.BaseModel `bun:"table:subsectors,alias:sub"`

	ID       int64  `bun:"subsector_id,pk,autoincrement" json:"subsector_id"`
	SectorID int64  `bun:"sector_id,notnull" json:"sector_id"`
	Name     string `bun:"subsector_name,notnull" json:"subsector_name"`
}

// IndustryMapping maps a source-specific industry label to the internal
// taxonomy. Populated from a curated CSV; not yet joined to stocks.
type IndustryMapping struct {
	bun.BaseModel `bun:"table:industry_mapping,alias:im"`

	ID             int64   `bun:"mapping_id,pk,autoincrement" json:"mapping_id"`
	Source         string  `bun:"source,notnull" json:"source"`
	SourceIndustry string  `bun:"source_industry,notnull" json:"source_industry"`
	SectorName     string  `bun:"sector_name,notnull" json:"sector_name"`
	SubsectorName  *string `bun:"subsector_name" json:"subsector_name,omitempty"`
}

// Universe is a named collection of tradable instruments.
type Universe struct {
	bun.BaseModel `bun:"table:universes,alias:u"`

	ID          int64   `bun:"universe_id,pk,autoincrement" json:"universe_id"`
	Code        string  `bun:"universe_code,notnull,unique" json:"universe_code"`
	Description *string `bun:"description" json:"description,omitempty"`
}

// UniverseMembership records current (not historical) membership of a stock
// in a universe. Composite key (universe_id, stock_id).
type UniverseMembership struct {
	bun.BaseModel `bun:"table:universe_membership,alias:um"`

	UniverseID int64     `bun:"universe_id,pk" json:"universe_id"`
	StockID    int64     `bun:"stock_id,pk" json:"stock_id"`
	Included   bool      `bun:"included,notnull" json:"included"`
	UpdatedUTC time.Time `bun:"updated_utc,notnull,nullzero" json:"updated_utc"`
}

// RunStatus is the lifecycle state of an ingestion run.
type RunStatus string

const (
	RunRunning RunStatus = "running"
	RunSuccess RunStatus = "success"
	RunFailed  RunStatus = "failed"
)

// IngestRun is one invocation of the reference-data refresh procedure.
type IngestRun struct {
	bun.BaseModel `bun:"table:ingest_runs,alias:ir"`

	ID          int64      `bun:"run_id,pk,autoincrement" json:"run_id"`
	StartedUTC  time.Time  `bun:"started_utc,notnull,nullzero" json:"started_utc"`
	FinishedUTC *time.Time `bun:"finished_utc" json:"finished_utc,omitempty"`
	Command     *string    `bun:"command" json:"command,omitempty"`
	GitSHA      *string    `bun:"git_sha" json:"git_sha,omitempty"`
	Status      RunStatus  `bun:"status,notnull" json:"status"`
	Notes       *string    `bun:"notes" json:"notes,omitempty"`
}

// IngestRunSource is per-source provenance within a run. A source may be
// recorded twice in one run (pre-fetch, then post-parse); the second write
// overwrites the first via upsert on (run_id, source_code).
type IngestRunSource struct {
	bun.BaseModel `bun:"table:ingest_run_sources,alias:irs"`

	RunID         int64      `bun:"run_id,pk" json:"run_id"`
	SourceCode    string     `bun:"source_code,pk" json:"source_code"`
	URL           *string    `bun:"url" json:"url,omitempty"`
	FetchedUTC    *time.Time `bun:"fetched_utc" json:"fetched_utc,omitempty"`
	HTTPStatus    *int       `bun:"http_status" json:"http_status,omitempty"`
	ContentSHA256 *string    `bun:"content_sha256" json:"content_sha256,omitempty"`
	RowCount      *int       `bun:"row_count" json:"row_count,omitempty"`
	Error         *string    `bun:"error" json:"error,omitempty"`
}

// TickerSnapshot is an append-only provenance log of universe exports.
type TickerSnapshot struct {
	bun.BaseModel `bun:"table:ticker_snapshots,alias:ts"`

	ID            int64     `bun:"snapshot_id,pk,autoincrement" json:"snapshot_id"`
	UniverseID    int64     `bun:"universe_id,notnull" json:"universe_id"`
	CreatedUTC    time.Time `bun:"created_utc,notnull,nullzero" json:"created_utc"`
	SnapshotPath  string    `bun:"snapshot_path,notnull" json:"snapshot_path"`
	RowCount      *int      `bun:"row_count" json:"row_count,omitempty"`
	ContentSHA256 *string   `bun:"content_sha256" json:"content_sha256,omitempty"`
}
