package database

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
	"github.com/uptrace/bun/extra/bundebug"

	"github.com/smassist/backend/pkg/config"
)

// DB wraps the bun.DB handle for the reference-data store.
// The store is a single SQLite file with exactly one writer process.
type DB struct {
	Bun *bun.DB
}

// New opens the SQLite database at the configured path, creating parent
// directories as needed, and applies the standard pragmas.
func New(cfg *config.Config) (*DB, error) {
	if dir := filepath.Dir(cfg.Database.Path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
	}

	return Open(cfg.Database.Path, cfg.Database.Debug)
}

// Open opens a SQLite database by DSN. Used directly by tests with
// an in-memory DSN.
func Open(dsn string, debug bool) (*DB, error) {
	sqldb, err := sql.Open(sqliteshim.ShimName, dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// Single-writer store: one connection avoids lock contention and keeps
	// in-memory databases on a single shared handle.
	sqldb.SetMaxOpenConns(1)

	db := bun.NewDB(sqldb, sqlitedialect.New())

	if debug {
		db.AddQueryHook(bundebug.NewQueryHook(bundebug.WithVerbose(true)))
	}

	if _, err := db.Exec(`
		PRAGMA journal_mode = WAL;
		PRAGMA synchronous = NORMAL;
		PRAGMA foreign_keys = ON;
	`); err != nil {
		return nil, fmt.Errorf("apply pragmas: %w", err)
	}

	return &DB{Bun: db}, nil
}

// Close closes the database handle.
func (db *DB) Close() error {
	if db.Bun != nil {
		return db.Bun.Close()
	}
	return nil
}

// Ping checks if the database is accessible.
func (db *DB) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return db.Bun.PingContext(ctx)
}
