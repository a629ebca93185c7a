package commands

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/smassist/backend/internal/refdata"
	"github.com/smassist/backend/internal/scan"
	"github.com/smassist/backend/internal/scanconfig"
)

// scanCmd represents the scan command
var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Rank universe members by strategy signals",
	Long: `Runs the strategy scan over every member of the configured universe
and prints the ranked results.

Strategies are configured in the scan settings YAML (golden_cross,
rsi_momentum, breakout_52w, volume_surge). Daily candles are read from
per-symbol CSV files under --data-dir, one file per symbol named
<SYMBOL>.csv with a date,open,high,low,close,volume header.

Example:
  go run ./cmd/smassist scan --data-dir data/history
  go run ./cmd/smassist scan --data-dir data/history --config config/scan.yaml`,
	RunE: runScan,
}

var (
	scanDataDir    string
	scanConfigFile string
)

func init() {
	rootCmd.AddCommand(scanCmd)

	scanCmd.Flags().StringVar(&scanDataDir, "data-dir", "data/history", "directory of per-symbol candle CSV files")
	scanCmd.Flags().StringVar(&scanConfigFile, "config", "", "scan settings YAML (default from env)")
}

func runScan(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	rt, err := initRuntime(ctx)
	if err != nil {
		return err
	}
	defer rt.Close()

	// Load scan settings
	configPath := scanConfigFile
	if configPath == "" {
		configPath = rt.cfg.ScanConfigPath
	}
	settings, _, err := scanconfig.Load(configPath)
	if errors.Is(err, os.ErrNotExist) {
		settings = scanconfig.Default()
	} else if err != nil {
		return fmt.Errorf("load scan settings: %w", err)
	}
	settingsHash, err := scanconfig.Hash(settings)
	if err != nil {
		return fmt.Errorf("hash scan settings: %w", err)
	}

	// Resolve universe members
	universes := refdata.NewUniverseRepository(rt.db.Bun)
	universe, err := universes.GetByCode(ctx, settings.Universe.Code)
	if err != nil {
		return fmt.Errorf("universe %q not found (run ingest first): %w", settings.Universe.Code, err)
	}
	members, err := universes.MemberStocks(ctx, universe.ID)
	if err != nil {
		return fmt.Errorf("load universe members: %w", err)
	}

	symbols := make([]string, 0, len(members))
	for _, stock := range members {
		if stock.SymbolNSE != nil && *stock.SymbolNSE != "" {
			symbols = append(symbols, *stock.SymbolNSE)
		}
	}

	fmt.Printf("=== smassist Scan: %s ===\n", settings.Meta.ScanID)
	fmt.Printf("Universe: %s (%d symbols)  Settings: %s\n\n",
		settings.Universe.Code, len(symbols), settingsHash[:12])

	// Run scanner
	provider := scan.NewFileProvider(scanDataDir)
	scanner := scan.New(settings, provider, rt.log)

	results, err := scanner.Run(ctx, symbols)
	if err != nil {
		return fmt.Errorf("run scan: %w", err)
	}
	if len(results) == 0 {
		fmt.Println("No signals fired")
		return nil
	}

	fmt.Printf("%-4s %-12s %-30s %8s\n", "#", "SYMBOL", "STRATEGY", "SCORE")
	PrintSeparator()
	for i, result := range results {
		fmt.Printf("%-4d %-12s %-30s %8.2f\n", i+1, result.Symbol, result.Strategy, result.Score)
		if verbose && len(result.Metrics) > 0 {
			parts := make([]string, 0, len(result.Metrics))
			for name, value := range result.Metrics {
				parts = append(parts, fmt.Sprintf("%s=%.2f", name, value))
			}
			fmt.Printf("     %s\n", strings.Join(parts, "  "))
		}
	}

	return nil
}
