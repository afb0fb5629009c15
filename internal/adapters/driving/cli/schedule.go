package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/fedreg/internal/core/domain"
	"github.com/custodia-labs/fedreg/internal/core/services"
	"github.com/custodia-labs/fedreg/internal/logger"
)

var (
	scheduleCron   string
	scheduleWindow int
	scheduleNow    bool
)

var scheduleCmd = &cobra.Command{
	Use:   "schedule",
	Short: "Run the pipeline on a cron schedule",
	Long: `Stay in the foreground and invoke "run" on a cron schedule (UTC).
A run still in progress when the next one is due is skipped. Stop with
Ctrl+C or SIGTERM; an in-flight run finishes first.

Examples:
  fedreg schedule                        # pipeline.schedule from config
  fedreg schedule --cron "0 6 * * *"
  fedreg schedule --cron @hourly --window 1 --now`,
	Args: cobra.NoArgs,
	RunE: runSchedule,
}

func init() {
	scheduleCmd.Flags().StringVar(&scheduleCron, "cron", "", "cron expression (default from config)")
	scheduleCmd.Flags().IntVarP(&scheduleWindow, "window", "w", 0, "days per run, counting the run day (default from config)")
	scheduleCmd.Flags().BoolVar(&scheduleNow, "now", false, "run once immediately before waiting")
	rootCmd.AddCommand(scheduleCmd)
}

func runSchedule(cmd *cobra.Command, _ []string) error {
	expr := scheduleCron
	metricsFile := ""
	if cfg, err := loadConfig(); err == nil {
		if expr == "" {
			expr = cfg.Pipeline.Schedule
		}
		metricsFile = cfg.Metrics.Textfile
	} else if pipelineService == nil {
		return err
	}

	pipeline, err := requirePipeline()
	if err != nil {
		return err
	}

	onRun := func(summary *domain.RunSummary, runErr error) {
		writeTextfile(metricsFile)
		if summary == nil {
			return
		}
		logger.WithFields(map[string]any{
			"run_id":      summary.RunID,
			"days_ok":     summary.DaysOK,
			"days_failed": summary.DaysFailed,
			"inserted":    summary.Inserted,
			"updated":     summary.Updated,
			"unchanged":   summary.Unchanged,
		}).Info("scheduled run finished")
		if runErr != nil {
			logger.Error("scheduled run %s: %v", summary.RunID, runErr)
		}
	}

	scheduler, err := services.NewScheduler(pipeline, expr, domain.RunRequest{WindowDays: scheduleWindow}, onRun)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if scheduleNow {
		_, _ = scheduler.RunOnce(ctx) //nolint:errcheck // reported through onRun
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Scheduled %q (UTC), next run at %s\n",
		expr, scheduler.Next(time.Now()).Format(time.RFC3339))

	err = scheduler.Start(ctx)
	if errors.Is(err, context.Canceled) {
		logger.Info("Scheduler stopped")
		return nil
	}
	return err
}
