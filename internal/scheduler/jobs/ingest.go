package jobs

import (
	"context"
	"fmt"

	"github.com/smassist/backend/internal/ingest"
	"github.com/smassist/backend/pkg/logger"
)

// IngestJob refreshes the stock reference data from the exchange feeds.
type IngestJob struct {
	orchestrator *ingest.Orchestrator
	gitSHA       string
	logger       *logger.Logger
}

// NewIngestJob creates a new IngestJob
func NewIngestJob(orch *ingest.Orchestrator, gitSHA string, log *logger.Logger) *IngestJob {
	return &IngestJob{
		orchestrator: orch,
		gitSHA:       gitSHA,
		logger:       log,
	}
}

// Name returns the job name
func (j *IngestJob) Name() string {
	return "reference_data_ingest"
}

// Schedule runs every day at 01:30, after both exchanges have published
// their end-of-day master files.
func (j *IngestJob) Schedule() string {
	return "0 30 1 * * *"
}

// Run executes the ingestion cycle
func (j *IngestJob) Run(ctx context.Context) error {
	summary, err := j.orchestrator.Run(ctx, j.gitSHA)
	if err != nil {
		return fmt.Errorf("run ingestion: %w", err)
	}

	j.logger.WithFields(map[string]interface{}{
		"run_id":  summary.RunID,
		"sources": len(summary.Sources),
		"failed":  summary.Failed(),
	}).Info("Ingestion job completed")

	if summary.Failed() {
		return fmt.Errorf("ingestion run %d finished with source failures", summary.RunID)
	}

	return nil
}
