package commands

import (
	"context"
	"fmt"

	"github.com/smassist/backend/internal/refdata"
	"github.com/smassist/backend/pkg/config"
	"github.com/smassist/backend/pkg/database"
	"github.com/smassist/backend/pkg/logger"
)

// runtime bundles the pieces every command needs: config, logger and an
// open database with the schema applied. Callers own Close().
type runtime struct {
	cfg *config.Config
	log *logger.Logger
	db  *database.DB
}

func (r *runtime) Close() {
	if r.db != nil {
		_ = r.db.Close()
	}
}

// initRuntime loads config, builds the logger and opens the store.
func initRuntime(ctx context.Context) (*runtime, error) {
	// 1. Load config
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	if verbose {
		cfg.LogLevel = "debug"
	}

	// 2. Initialize logger
	log := logger.New(cfg)

	// 3. Connect to database
	db, err := database.New(cfg)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}

	// 4. Apply schema
	if err := refdata.CreateSchema(ctx, db.Bun); err != nil {
		db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}

	return &runtime{cfg: cfg, log: log, db: db}, nil
}
