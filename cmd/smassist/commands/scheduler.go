package commands

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/smassist/backend/internal/ingest"
	"github.com/smassist/backend/internal/scheduler"
	"github.com/smassist/backend/internal/scheduler/jobs"
)

// schedulerCmd represents the scheduler command
var schedulerCmd = &cobra.Command{
	Use:   "scheduler",
	Short: "Run scheduled jobs",
	Long: `Starts the job scheduler or manages registered jobs.

Registered jobs:
- reference_data_ingest: every day at 01:30 (full reference-data refresh)

Subcommands:
  start    - start the scheduler daemon
  list     - list registered jobs
  run      - run a job immediately
  history  - show execution history of a job

Example:
  go run ./cmd/smassist scheduler start
  go run ./cmd/smassist scheduler run reference_data_ingest`,
}

var (
	schedulerStartCmd = &cobra.Command{
		Use:   "start",
		Short: "Start the scheduler daemon",
		RunE:  runSchedulerStart,
	}

	schedulerListCmd = &cobra.Command{
		Use:   "list",
		Short: "List registered jobs",
		RunE:  runSchedulerList,
	}

	schedulerRunCmd = &cobra.Command{
		Use:   "run [job_name]",
		Short: "Run a job immediately",
		Args:  cobra.ExactArgs(1),
		RunE:  runSchedulerRun,
	}

	schedulerHistoryCmd = &cobra.Command{
		Use:   "history [job_name]",
		Short: "Show execution history of a job",
		Args:  cobra.ExactArgs(1),
		RunE:  runSchedulerHistory,
	}
)

func init() {
	rootCmd.AddCommand(schedulerCmd)
	schedulerCmd.AddCommand(schedulerStartCmd)
	schedulerCmd.AddCommand(schedulerListCmd)
	schedulerCmd.AddCommand(schedulerRunCmd)
	schedulerCmd.AddCommand(schedulerHistoryCmd)
}

func runSchedulerStart(cmd *cobra.Command, args []string) error {
	fmt.Println("=== smassist Scheduler ===")

	rt, sched, err := initScheduler(cmd)
	if err != nil {
		return err
	}
	defer rt.Close()

	sched.Start()

	fmt.Println("\nRegistered jobs:")
	for _, name := range sched.JobNames() {
		fmt.Printf("  - %s\n", name)
	}
	fmt.Println("\nPress Ctrl+C to stop")

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	fmt.Println("\nShutting down scheduler...")
	sched.Stop()
	fmt.Println("Scheduler stopped")

	return nil
}

func runSchedulerList(cmd *cobra.Command, args []string) error {
	rt, sched, err := initScheduler(cmd)
	if err != nil {
		return err
	}
	defer rt.Close()

	fmt.Println("Registered jobs:")
	for _, name := range sched.JobNames() {
		fmt.Printf("  - %s\n", name)
	}

	return nil
}

func runSchedulerRun(cmd *cobra.Command, args []string) error {
	jobName := args[0]

	rt, sched, err := initScheduler(cmd)
	if err != nil {
		return err
	}
	defer rt.Close()

	fmt.Printf("Running job: %s\n", jobName)

	if err := sched.RunJob(cmd.Context(), jobName); err != nil {
		return fmt.Errorf("run job: %w", err)
	}

	PrintSuccess("Job completed")
	return nil
}

func runSchedulerHistory(cmd *cobra.Command, args []string) error {
	jobName := args[0]

	rt, sched, err := initScheduler(cmd)
	if err != nil {
		return err
	}
	defer rt.Close()

	history := sched.History(jobName)
	if len(history) == 0 {
		fmt.Printf("No recorded runs for %s\n", jobName)
		return nil
	}

	fmt.Printf("History for %s:\n", jobName)
	PrintSeparator()
	for _, result := range history {
		status := "ok"
		if !result.Success {
			status = "failed: " + result.Error
		}
		fmt.Printf("  %s  %-10s %s\n",
			result.StartTime.Format("2006-01-02 15:04:05"), result.Duration.Round(time.Millisecond), status)
	}

	return nil
}

// initScheduler builds the scheduler with every job registered.
func initScheduler(cmd *cobra.Command) (*runtime, *scheduler.Scheduler, error) {
	rt, err := initRuntime(cmd.Context())
	if err != nil {
		return nil, nil, err
	}

	orch := ingest.New(rt.cfg, rt.log, rt.db.Bun)

	sched := scheduler.New(rt.log)
	if err := sched.AddJob(jobs.NewIngestJob(orch, buildGitSHA(), rt.log)); err != nil {
		rt.Close()
		return nil, nil, fmt.Errorf("register ingest job: %w", err)
	}

	return rt, sched, nil
}
