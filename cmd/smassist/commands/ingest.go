package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/smassist/backend/internal/ingest"
)

// ingestCmd represents the ingest command
var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Run one reference-data ingestion cycle",
	Long: `Runs a full reference-data refresh once and exits.

This command:
- Seeds the sector/subsector taxonomy from the configured files
- Downloads the NSE equity list and BSE scrip master
- Upserts every row into the stock table and universe memberships
- Exports a CSV snapshot per universe
- Records the run and per-source provenance in the ingestion ledger

A failed feed does not abort the run: the other feed still applies, the
failure is recorded, and membership for the failed universe is restored
from the last good snapshot.

Example:
  go run ./cmd/smassist ingest`,
	RunE: runIngest,
}

func init() {
	rootCmd.AddCommand(ingestCmd)
}

func runIngest(cmd *cobra.Command, args []string) error {
	fmt.Println("=== smassist Reference Data Ingest ===")

	ctx := cmd.Context()

	rt, err := initRuntime(ctx)
	if err != nil {
		return err
	}
	defer rt.Close()

	orch := ingest.New(rt.cfg, rt.log, rt.db.Bun)

	summary, err := orch.Run(ctx, buildGitSHA())
	if err != nil {
		return fmt.Errorf("run ingestion: %w", err)
	}

	fmt.Printf("\nRun #%d\n", summary.RunID)
	PrintSeparator()
	for _, src := range summary.Sources {
		if src.Ok() {
			fmt.Printf("  %-18s %6d created  %6d updated  (%d rows)\n",
				src.SourceCode, src.Created, src.Updated, src.Meta.RowCount)
		} else {
			fmt.Printf("  %-18s FAILED: %v\n", src.SourceCode, src.Err)
		}
	}
	PrintSeparator()
	fmt.Printf("  Sectors: %d  Mappings: %d\n", summary.Sectors, summary.Mappings)

	if summary.Failed() {
		PrintError("Ingestion finished with source failures")
		return fmt.Errorf("ingestion run %d had source failures", summary.RunID)
	}

	PrintSuccess("Ingestion completed")
	return nil
}
