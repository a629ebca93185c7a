package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/smassist/backend/internal/refdata"
)

// statusCmd represents the status command
var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show store counts and the latest ingestion run",
	Long: `Prints what is currently in the reference-data store: stock and
taxonomy counts, universe membership, and the most recent ingestion run
with its per-source outcomes.

Example:
  go run ./cmd/smassist status`,
	RunE: runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	rt, err := initRuntime(ctx)
	if err != nil {
		return err
	}
	defer rt.Close()

	stocks := refdata.NewStockRepository(rt.db.Bun)
	universes := refdata.NewUniverseRepository(rt.db.Bun)
	taxonomy := refdata.NewTaxonomyRepository(rt.db.Bun)
	ledger := refdata.NewLedgerRepository(rt.db.Bun)

	fmt.Println("=== smassist Store Status ===")
	fmt.Printf("Database: %s\n\n", rt.cfg.Database.Path)

	stockCount, err := stocks.Count(ctx)
	if err != nil {
		return fmt.Errorf("count stocks: %w", err)
	}
	sectors, err := taxonomy.CountSectors(ctx)
	if err != nil {
		return fmt.Errorf("count sectors: %w", err)
	}
	subsectors, err := taxonomy.CountSubsectors(ctx)
	if err != nil {
		return fmt.Errorf("count subsectors: %w", err)
	}
	mappings, err := taxonomy.CountMappings(ctx)
	if err != nil {
		return fmt.Errorf("count mappings: %w", err)
	}

	fmt.Println("Reference data")
	PrintSeparator()
	PrintKeyValue("Stocks", fmt.Sprintf("%d", stockCount), 12)
	PrintKeyValue("Sectors", fmt.Sprintf("%d", sectors), 12)
	PrintKeyValue("Subsectors", fmt.Sprintf("%d", subsectors), 12)
	PrintKeyValue("Mappings", fmt.Sprintf("%d", mappings), 12)
	fmt.Println()

	universeList, err := universes.List(ctx)
	if err != nil {
		return fmt.Errorf("list universes: %w", err)
	}

	fmt.Println("Universes")
	PrintSeparator()
	if len(universeList) == 0 {
		fmt.Println("   (none - run ingest first)")
	}
	for _, universe := range universeList {
		members, err := universes.MemberCount(ctx, universe.ID)
		if err != nil {
			return fmt.Errorf("count members of %s: %w", universe.Code, err)
		}
		PrintKeyValue(universe.Code, fmt.Sprintf("%d members", members), 12)
	}
	fmt.Println()

	run, err := ledger.LatestRun(ctx)
	if err != nil {
		return fmt.Errorf("load latest run: %w", err)
	}

	fmt.Println("Latest ingestion run")
	PrintSeparator()
	if run == nil {
		fmt.Println("   (no runs recorded)")
		return nil
	}

	PrintKeyValue("Run", fmt.Sprintf("#%d (%s)", run.ID, run.Status), 12)
	PrintKeyValue("Started", run.StartedUTC.Format("2006-01-02 15:04:05"), 12)
	if run.FinishedUTC != nil {
		PrintKeyValue("Finished", run.FinishedUTC.Format("2006-01-02 15:04:05"), 12)
	}
	if run.GitSHA != nil && *run.GitSHA != "" {
		PrintKeyValue("Git SHA", *run.GitSHA, 12)
	}
	if run.Notes != nil && *run.Notes != "" {
		PrintKeyValue("Notes", *run.Notes, 12)
	}

	sources, err := ledger.ListRunSources(ctx, run.ID)
	if err != nil {
		return fmt.Errorf("load run sources: %w", err)
	}
	for _, src := range sources {
		line := "ok"
		if src.Error != nil && *src.Error != "" {
			line = "failed: " + *src.Error
		} else if src.RowCount != nil {
			line = fmt.Sprintf("%d rows", *src.RowCount)
		}
		PrintKeyValue(src.SourceCode, line, 20)
	}

	return nil
}
