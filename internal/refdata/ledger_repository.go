package refdata

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/uptrace/bun"
)

// SourceRecord is the provenance payload for one source fetch within a run.
// Callers record a source twice per run: once pre-fetch (row count unknown)
// and once post-parse; the second write overwrites the first.
type SourceRecord struct {
	SourceCode    string
	URL           string
	FetchedUTC    *time.Time
	HTTPStatus    *int
	ContentSHA256 string
	RowCount      *int
	Error         string
}

// LedgerRepository records ingestion runs and per-source provenance.
type LedgerRepository struct {
	db *bun.DB
}

// NewLedgerRepository creates a new LedgerRepository instance.
func NewLedgerRepository(db *bun.DB) *LedgerRepository {
	return &LedgerRepository{db: db}
}

// StartRun opens a run row with status "running" and returns its id.
func (r *LedgerRepository) StartRun(ctx context.Context, command, gitSHA string) (int64, error) {
	run := &IngestRun{
		StartedUTC: time.Now().UTC(),
		Command:    norm(command),
		GitSHA:     norm(gitSHA),
		Status:     RunRunning,
	}

	if _, err := r.db.NewInsert().Model(run).Exec(ctx); err != nil {
		return 0, fmt.Errorf("start run: %w", err)
	}
	if run.ID == 0 {
		return 0, fmt.Errorf("start run: no row id returned")
	}
	return run.ID, nil
}

// RecordSource upserts a provenance row keyed on (run_id, source_code).
// Repeat calls for the same pair update the existing row in place.
func (r *LedgerRepository) RecordSource(ctx context.Context, runID int64, rec SourceRecord) error {
	row := &IngestRunSource{
		RunID:         runID,
		SourceCode:    strings.ToLower(strings.TrimSpace(rec.SourceCode)),
		URL:           norm(rec.URL),
		FetchedUTC:    rec.FetchedUTC,
		HTTPStatus:    rec.HTTPStatus,
		ContentSHA256: norm(rec.ContentSHA256),
		RowCount:      rec.RowCount,
		Error:         norm(rec.Error),
	}

	_, err := r.db.NewInsert().
		Model(row).
		On("CONFLICT (run_id, source_code) DO UPDATE").
		Set("url = EXCLUDED.url").
		Set("fetched_utc = EXCLUDED.fetched_utc").
		Set("http_status = EXCLUDED.http_status").
		Set("content_sha256 = EXCLUDED.content_sha256").
		Set("row_count = EXCLUDED.row_count").
		Set("error = EXCLUDED.error").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("record source %q: %w", row.SourceCode, err)
	}
	return nil
}

// FinishRun closes a run with a final status and optional notes. Called
// exactly once per run, on success and on failure alike.
func (r *LedgerRepository) FinishRun(ctx context.Context, runID int64, status RunStatus, notes string) error {
	if status != RunSuccess && status != RunFailed {
		return fmt.Errorf("finish run %d: invalid final status %q", runID, status)
	}

	now := time.Now().UTC()
	_, err := r.db.NewUpdate().
		Model((*IngestRun)(nil)).
		Set("finished_utc = ?", now).
		Set("status = ?", status).
		Set("notes = ?", norm(notes)).
		Where("run_id = ?", runID).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("finish run %d: %w", runID, err)
	}
	return nil
}

// GetRun fetches a run by id.
func (r *LedgerRepository) GetRun(ctx context.Context, runID int64) (*IngestRun, error) {
	run := new(IngestRun)
	err := r.db.NewSelect().
		Model(run).
		Where("run_id = ?", runID).
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return run, nil
}

// LatestRun returns the most recently started run, or nil when the ledger
// is empty.
func (r *LedgerRepository) LatestRun(ctx context.Context) (*IngestRun, error) {
	var runs []IngestRun
	err := r.db.NewSelect().
		Model(&runs).
		Order("run_id DESC").
		Limit(1).
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("latest run: %w", err)
	}
	if len(runs) == 0 {
		return nil, nil
	}
	return &runs[0], nil
}

// ListRuns returns runs newest first.
func (r *LedgerRepository) ListRuns(ctx context.Context, limit int) ([]IngestRun, error) {
	var runs []IngestRun
	err := r.db.NewSelect().
		Model(&runs).
		Order("run_id DESC").
		Limit(limit).
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	return runs, nil
}

// ListRunSources returns the provenance rows of one run.
func (r *LedgerRepository) ListRunSources(ctx context.Context, runID int64) ([]IngestRunSource, error) {
	var sources []IngestRunSource
	err := r.db.NewSelect().
		Model(&sources).
		Where("run_id = ?", runID).
		Order("source_code ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("list run sources: %w", err)
	}
	return sources, nil
}
