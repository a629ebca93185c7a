package refdata

import (
	"context"
	"fmt"

	"github.com/uptrace/bun"
)

// schemaDDL creates the reference-data schema. Every statement is
// idempotent so ingestion can run against a fresh or existing store.
// Uniqueness of the three identity keys is enforced with partial indexes:
// NULL and empty values do not participate.
var schemaDDL = []string{
	`CREATE TABLE IF NOT EXISTS stocks (
		stock_id       INTEGER PRIMARY KEY AUTOINCREMENT,
		symbol_nse     TEXT,
		symbol_bse     TEXT,
		company_name   TEXT,
		isin           TEXT,
		nse_series     TEXT,
		bse_scrip_code TEXT,
		status         TEXT,
		updated_utc    TEXT
	)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS ux_stocks_isin ON stocks(isin) WHERE isin IS NOT NULL AND isin <> ''`,
	`CREATE UNIQUE INDEX IF NOT EXISTS ux_stocks_symbol_nse ON stocks(symbol_nse) WHERE symbol_nse IS NOT NULL AND symbol_nse <> ''`,
	`CREATE UNIQUE INDEX IF NOT EXISTS ux_stocks_symbol_bse ON stocks(symbol_bse) WHERE symbol_bse IS NOT NULL AND symbol_bse <> ''`,

	`CREATE TABLE IF NOT EXISTS sectors (
		sector_id   INTEGER PRIMARY KEY AUTOINCREMENT,
		sector_name TEXT NOT NULL UNIQUE
	)`,
	`CREATE TABLE IF NOT EXISTS subsectors (
		subsector_id   INTEGER PRIMARY KEY AUTOINCREMENT,
		sector_id      INTEGER NOT NULL,
		subsector_name TEXT NOT NULL,
		UNIQUE(sector_id, subsector_name),
		FOREIGN KEY(sector_id) REFERENCES sectors(sector_id) ON DELETE CASCADE
	)`,
	`CREATE TABLE IF NOT EXISTS industry_mapping (
		mapping_id      INTEGER PRIMARY KEY AUTOINCREMENT,
		source          TEXT NOT NULL,
		source_industry TEXT NOT NULL,
		sector_name     TEXT NOT NULL,
		subsector_name  TEXT,
		UNIQUE(source, source_industry)
	)`,

	`CREATE TABLE IF NOT EXISTS universes (
		universe_id   INTEGER PRIMARY KEY AUTOINCREMENT,
		universe_code TEXT NOT NULL UNIQUE,
		description   TEXT
	)`,
	`CREATE TABLE IF NOT EXISTS universe_membership (
		universe_id INTEGER NOT NULL,
		stock_id    INTEGER NOT NULL,
		included    INTEGER NOT NULL DEFAULT 1,
		updated_utc TEXT NOT NULL,
		PRIMARY KEY(universe_id, stock_id),
		FOREIGN KEY(universe_id) REFERENCES universes(universe_id) ON DELETE CASCADE,
		FOREIGN KEY(stock_id) REFERENCES stocks(stock_id) ON DELETE CASCADE
	)`,

	`CREATE TABLE IF NOT EXISTS ingest_runs (
		run_id       INTEGER PRIMARY KEY AUTOINCREMENT,
		started_utc  TEXT NOT NULL,
		finished_utc TEXT,
		command      TEXT,
		git_sha      TEXT,
		status       TEXT NOT NULL,
		notes        TEXT
	)`,
	`CREATE TABLE IF NOT EXISTS ingest_run_sources (
		run_id         INTEGER NOT NULL,
		source_code    TEXT NOT NULL,
		url            TEXT,
		fetched_utc    TEXT,
		http_status    INTEGER,
		content_sha256 TEXT,
		row_count      INTEGER,
		error          TEXT,
		PRIMARY KEY(run_id, source_code),
		FOREIGN KEY(run_id) REFERENCES ingest_runs(run_id) ON DELETE CASCADE
	)`,

	`CREATE TABLE IF NOT EXISTS ticker_snapshots (
		snapshot_id    INTEGER PRIMARY KEY AUTOINCREMENT,
		universe_id    INTEGER NOT NULL,
		created_utc    TEXT NOT NULL,
		snapshot_path  TEXT NOT NULL,
		row_count      INTEGER,
		content_sha256 TEXT,
		FOREIGN KEY(universe_id) REFERENCES universes(universe_id) ON DELETE CASCADE
	)`,
}

// CreateSchema applies the reference-data DDL. Safe to call on every start.
func CreateSchema(ctx context.Context, db *bun.DB) error {
	for _, stmt := range schemaDDL {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("create schema: %w", err)
		}
	}
	return nil
}
