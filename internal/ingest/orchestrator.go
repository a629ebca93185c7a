// Package ingest drives the reference-data refresh: fetch the exchange
// masters, feed every row through the upsert engine, maintain universe
// membership, and record provenance in the run ledger.
package ingest

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/uptrace/bun"

	"github.com/smassist/backend/internal/external"
	"github.com/smassist/backend/internal/external/bse"
	"github.com/smassist/backend/internal/external/nse"
	"github.com/smassist/backend/internal/refdata"
	"github.com/smassist/backend/pkg/config"
	"github.com/smassist/backend/pkg/httputil"
	"github.com/smassist/backend/pkg/logger"
)

// Universe codes maintained by the refresh.
const (
	UniverseNSE = "nse-eq"
	UniverseBSE = "bse-eq"
)

// SourceResult is the outcome of one feed within a run. A failed feed is a
// value here, not an abort: the remaining feeds still run and the ledger
// records the failure.
type SourceResult struct {
	SourceCode string
	Universe   string
	Meta       external.FetchMeta
	Created    int
	Updated    int
	Err        error
}

// Ok reports whether the feed fetched and applied cleanly.
func (r SourceResult) Ok() bool { return r.Err == nil }

// Summary is what one refresh run did, for logging and the status command.
type Summary struct {
	RunID    int64
	Sources  []SourceResult
	Sectors  int
	Mappings int
}

// Failed reports whether any feed in the run failed.
func (s *Summary) Failed() bool {
	for _, r := range s.Sources {
		if !r.Ok() {
			return true
		}
	}
	return false
}

// fetchFunc lets tests substitute feeds without standing up HTTP servers.
type fetchFunc func(ctx context.Context) ([]refdata.StockUpsert, external.FetchMeta, error)

type feed struct {
	sourceCode string
	universe   string
	url        string
	fetch      fetchFunc
}

// Orchestrator owns one refresh run end to end.
type Orchestrator struct {
	cfg       *config.Config
	logger    *logger.Logger
	stocks    *refdata.StockRepository
	universes *refdata.UniverseRepository
	ledger    *refdata.LedgerRepository
	taxonomy  *refdata.TaxonomyRepository
	snapshots *refdata.SnapshotManager
	feeds     []feed
}

// New wires an orchestrator over the live NSE and BSE clients.
func New(cfg *config.Config, log *logger.Logger, db *bun.DB) *Orchestrator {
	httpClient := httputil.New(cfg, log)
	nseClient := nse.NewClient(cfg, httpClient, log)
	bseClient := bse.NewClient(cfg, httpClient, log)

	o := newOrchestrator(cfg, log, db)
	o.feeds = []feed{
		{sourceCode: nse.SourceCode, universe: UniverseNSE, url: cfg.NSE.EquityListURL, fetch: nseClient.FetchEquityList},
		{sourceCode: bse.SourceCode, universe: UniverseBSE, url: cfg.BSE.ScripMasterURL, fetch: bseClient.FetchScripMaster},
	}
	return o
}

func newOrchestrator(cfg *config.Config, log *logger.Logger, db *bun.DB) *Orchestrator {
	stocks := refdata.NewStockRepository(db)
	universes := refdata.NewUniverseRepository(db)
	return &Orchestrator{
		cfg:       cfg,
		logger:    log,
		stocks:    stocks,
		universes: universes,
		ledger:    refdata.NewLedgerRepository(db),
		taxonomy:  refdata.NewTaxonomyRepository(db),
		snapshots: refdata.NewSnapshotManager(db, stocks, universes),
	}
}

// Run executes one full refresh. It opens a ledger run, seeds the taxonomy,
// processes every feed, exports fresh snapshots, and closes the run. The
// returned Summary is valid even when the run finished with status failed.
func (o *Orchestrator) Run(ctx context.Context, gitSHA string) (*Summary, error) {
	runID, err := o.ledger.StartRun(ctx, "ingest", gitSHA)
	if err != nil {
		return nil, err
	}
	summary := &Summary{RunID: runID}

	if err := o.seedTaxonomy(ctx, summary); err != nil {
		// Taxonomy is static seed data; a broken file should not block the
		// exchange feeds.
		o.logger.WithError(err).Warn("Taxonomy seeding failed")
	}

	for _, f := range o.feeds {
		summary.Sources = append(summary.Sources, o.runFeed(ctx, runID, f))
	}

	o.exportSnapshots(ctx, summary)

	status := refdata.RunSuccess
	if summary.Failed() {
		status = refdata.RunFailed
	}
	if err := o.ledger.FinishRun(ctx, runID, status, summary.notes()); err != nil {
		return summary, err
	}

	o.logger.WithFields(map[string]interface{}{
		"run_id": runID,
		"status": string(status),
		"notes":  summary.notes(),
	}).Info("Ingestion run finished")

	return summary, nil
}

// seedTaxonomy loads the static sector document and the curated industry
// mapping. Both are optional: an unset or missing path is a no-op.
func (o *Orchestrator) seedTaxonomy(ctx context.Context, summary *Summary) error {
	if path := o.cfg.TaxonomyPath; path != "" {
		if _, err := os.Stat(path); err == nil {
			if err := o.taxonomy.SeedFromDocument(ctx, path); err != nil {
				return err
			}
		}
	}

	n, err := o.taxonomy.IngestMappingCSV(ctx, o.cfg.MappingPath)
	if err != nil {
		return err
	}
	summary.Mappings = n

	summary.Sectors, err = o.taxonomy.CountSectors(ctx)
	return err
}

// runFeed fetches one source and applies its rows. Provenance is recorded
// twice: once before the fetch with the URL alone, and once after with
// whatever the fetch learned, so an interrupted run still shows which
// source it was touching.
func (o *Orchestrator) runFeed(ctx context.Context, runID int64, f feed) SourceResult {
	result := SourceResult{SourceCode: f.sourceCode, Universe: f.universe}

	// Pre-fetch marker with the URL alone. If the process dies mid-fetch
	// the ledger still shows which source it was touching.
	if err := o.ledger.RecordSource(ctx, runID, refdata.SourceRecord{
		SourceCode: f.sourceCode,
		URL:        f.url,
	}); err != nil {
		o.logger.WithError(err).WithField("source", f.sourceCode).Error("Failed to record source provenance")
		result.Err = err
		return result
	}

	rows, meta, err := f.fetch(ctx)
	result.Meta = meta

	recURL := meta.URL
	if recURL == "" {
		recURL = f.url
	}
	rec := refdata.SourceRecord{
		SourceCode:    f.sourceCode,
		URL:           recURL,
		HTTPStatus:    statusPtr(meta.HTTPStatus),
		ContentSHA256: meta.ContentSHA256,
	}
	if !meta.FetchedUTC.IsZero() {
		fetched := meta.FetchedUTC
		rec.FetchedUTC = &fetched
	}

	if err != nil {
		result.Err = err
		rec.Error = err.Error()
		o.logger.WithError(err).WithField("source", f.sourceCode).Error("Feed failed")

		// A dead feed must not empty the universe: fall back to the last
		// exported snapshot so downstream consumers keep a member list.
		if n, impErr := o.snapshots.Import(ctx, o.cfg.SnapshotDir, f.universe, ""); impErr != nil {
			o.logger.WithError(impErr).WithField("universe", f.universe).Warn("Snapshot fallback failed")
		} else if n > 0 {
			o.logger.WithFields(map[string]interface{}{
				"universe": f.universe,
				"rows":     n,
			}).Info("Restored universe from snapshot")
		}
	} else {
		created, updated, applyErr := o.applyRows(ctx, f.universe, rows)
		result.Created = created
		result.Updated = updated
		if applyErr != nil {
			result.Err = applyErr
			rec.Error = applyErr.Error()
		} else {
			rowCount := len(rows)
			rec.RowCount = &rowCount
		}
	}

	if recErr := o.ledger.RecordSource(ctx, runID, rec); recErr != nil {
		o.logger.WithError(recErr).WithField("source", f.sourceCode).Error("Failed to record source provenance")
		if result.Err == nil {
			result.Err = recErr
		}
	}

	o.logger.WithFields(map[string]interface{}{
		"source":  f.sourceCode,
		"rows":    len(rows),
		"created": result.Created,
		"updated": result.Updated,
	}).Info("Feed processed")

	return result
}

// applyRows pushes feed rows through the upsert engine and marks each
// resulting entity as an included member of the feed's universe.
func (o *Orchestrator) applyRows(ctx context.Context, universeCode string, rows []refdata.StockUpsert) (created, updated int, err error) {
	universeID, err := o.universes.Ensure(ctx, universeCode, universeDescription(universeCode))
	if err != nil {
		return 0, 0, err
	}

	for _, row := range rows {
		stockID, wasCreated, err := o.stocks.Upsert(ctx, row)
		if err != nil {
			return created, updated, fmt.Errorf("apply row: %w", err)
		}
		if wasCreated {
			created++
		} else {
			updated++
		}
		if err := o.universes.UpsertMembership(ctx, universeID, stockID, true); err != nil {
			return created, updated, err
		}
	}
	return created, updated, nil
}

// exportSnapshots writes a fresh snapshot for every universe a feed
// refreshed in this run. Failed feeds are skipped so a bad run cannot
// overwrite the last good snapshot.
func (o *Orchestrator) exportSnapshots(ctx context.Context, summary *Summary) {
	for _, r := range summary.Sources {
		if !r.Ok() {
			continue
		}
		path := refdata.SnapshotPath(o.cfg.SnapshotDir, r.Universe)
		n, err := o.snapshots.Export(ctx, r.Universe, path)
		if err != nil {
			o.logger.WithError(err).WithField("universe", r.Universe).Error("Snapshot export failed")
			continue
		}
		o.logger.WithFields(map[string]interface{}{
			"universe": r.Universe,
			"path":     path,
			"rows":     n,
		}).Info("Exported snapshot")
	}
}

func (s *Summary) notes() string {
	parts := make([]string, 0, len(s.Sources))
	for _, r := range s.Sources {
		if r.Ok() {
			parts = append(parts, fmt.Sprintf("%s: %d created, %d updated", r.SourceCode, r.Created, r.Updated))
		} else {
			parts = append(parts, fmt.Sprintf("%s: failed: %v", r.SourceCode, r.Err))
		}
	}
	return strings.Join(parts, "; ")
}

func universeDescription(code string) string {
	switch code {
	case UniverseNSE:
		return "NSE listed equities (EQ series)"
	case UniverseBSE:
		return "BSE listed equities"
	default:
		return ""
	}
}

func statusPtr(status int) *int {
	if status == 0 {
		return nil
	}
	return &status
}
