package commands

import (
	"runtime/debug"

	"github.com/spf13/cobra"
)

var (
	// Global flags
	verbose bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "smassist",
	Short: "NSE/BSE equity reference data and scanning backend",
	Long: `smassist backend CLI

Reference data ingestion and momentum scanning for Indian equities.
Pulls the NSE equity list and BSE scrip master, reconciles them into a
single stock table, and ranks universe members by strategy signals.

Usage:
  go run ./cmd/smassist [command]

Examples:
  go run ./cmd/smassist ingest
  go run ./cmd/smassist status
  go run ./cmd/smassist scan --data-dir data/history
  go run ./cmd/smassist serve`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}

// buildGitSHA reads the vcs revision stamped into the binary, for run
// provenance. Empty when built outside a git checkout.
func buildGitSHA() string {
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return ""
	}
	for _, setting := range info.Settings {
		if setting.Key == "vcs.revision" {
			if len(setting.Value) > 12 {
				return setting.Value[:12]
			}
			return setting.Value
		}
	}
	return ""
}
