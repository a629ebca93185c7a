package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/smassist/backend/internal/api"
	"github.com/smassist/backend/internal/api/handlers"
)

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the REST API server",
	Long: `Starts the read-only REST API over the reference-data store.

Endpoints:
  GET  /health                          - Health check
  GET  /api/stocks                      - List stocks (paged)
  GET  /api/stocks/{symbol}             - Look up one stock
  GET  /api/universes                   - List universes with member counts
  GET  /api/universes/{code}/members    - List universe members
  GET  /api/runs                        - List ingestion runs
  GET  /api/runs/{id}/sources           - Per-source provenance of a run

Example:
  go run ./cmd/smassist serve
  go run ./cmd/smassist serve --port 8089`,
	RunE: runServe,
}

var servePort string

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVar(&servePort, "port", "", "API server port (default from env)")
}

func runServe(cmd *cobra.Command, args []string) error {
	fmt.Println("=== smassist API Server ===")

	ctx := cmd.Context()

	rt, err := initRuntime(ctx)
	if err != nil {
		return err
	}
	defer rt.Close()

	if servePort != "" {
		rt.cfg.Port = servePort
	}

	rt.log.WithFields(map[string]interface{}{
		"port": rt.cfg.Port,
		"env":  rt.cfg.Env,
	}).Info("Initializing API server")

	// Wire handler and router
	refdataHandler := handlers.NewRefDataHandler(rt.db.Bun, rt.log)
	router := api.NewRouter(refdataHandler, rt.log)
	server := api.New(rt.cfg, rt.log, router)

	// Start server with graceful shutdown
	go func() {
		if err := server.Start(); err != nil {
			rt.log.WithError(err).Fatal("Failed to start server")
		}
	}()

	fmt.Printf("\nServer running on http://localhost:%s\n", rt.cfg.Port)
	fmt.Println("Press Ctrl+C to stop")

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	rt.log.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	rt.log.Info("Server stopped")
	return nil
}
