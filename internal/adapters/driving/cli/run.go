package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/fedreg/internal/core/domain"
)

var (
	runWindow      int
	runDate        string
	runSkipFetch   bool
	runJSON        bool
	runMetricsFile string
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Fetch recent days and ingest them",
	Long: `Fetch every day in the window from the Federal Register API, save each
day as a raw snapshot, then upsert the records into the store.

The window is N calendar days ending at and including the reference day,
so --window 7 --date 2024-03-15 fetches 2024-03-09 through 2024-03-15.
--window 1 fetches the reference day only.

Days are fetched concurrently; one failing day never stops the others.
When every fetch fails, the snapshots already on disk are ingested
instead. The command fails only when store writes failed.

Examples:
  fedreg run                       # last 7 days ending today (UTC)
  fedreg run --window 3 --date 2024-03-15
  fedreg run --skip-fetch          # re-ingest every stored snapshot
  fedreg run --json --metrics-file /var/lib/node_exporter/fedreg.prom`,
	Args: cobra.NoArgs,
	RunE: runRun,
}

var ingestCmd = &cobra.Command{
	Use:   "ingest [DATE...]",
	Short: "Ingest stored snapshots without fetching",
	Long: `Normalise stored raw snapshots and upsert them into the store.
Dates are YYYY-MM-DD. With no dates every stored snapshot is ingested.`,
	RunE: runIngest,
}

func init() {
	runCmd.Flags().IntVarP(&runWindow, "window", "w", 0, "days to fetch, counting the reference day (default from config)")
	runCmd.Flags().StringVar(&runDate, "date", "", "newest day of the window, YYYY-MM-DD (default today)")
	runCmd.Flags().BoolVar(&runSkipFetch, "skip-fetch", false, "ingest existing snapshots only")
	runCmd.Flags().BoolVar(&runJSON, "json", false, "print the run summary as JSON")
	runCmd.Flags().StringVar(&runMetricsFile, "metrics-file", "", "write a node-exporter textfile after the run")
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(ingestCmd)
}

func runRun(cmd *cobra.Command, _ []string) error {
	if runWindow < 0 {
		return fmt.Errorf("%w: --window must be positive", domain.ErrInvalidInput)
	}

	req := domain.RunRequest{WindowDays: runWindow, SkipFetch: runSkipFetch}
	if runDate != "" {
		ref, err := domain.ParseDay(runDate)
		if err != nil {
			return fmt.Errorf("--date: %w", err)
		}
		req.Reference = ref
	}

	pipeline, err := requirePipeline()
	if err != nil {
		return err
	}

	summary, runErr := pipeline.Run(cmd.Context(), req)

	metricsFile := runMetricsFile
	if metricsFile == "" && appConfig != nil {
		metricsFile = appConfig.Metrics.Textfile
	}
	writeTextfile(metricsFile)

	if summary != nil {
		if runJSON {
			if err := printJSON(cmd.OutOrStdout(), summary); err != nil {
				return err
			}
		} else {
			printRunSummary(cmd.OutOrStdout(), summary)
		}
	}

	if runErr != nil {
		return fmt.Errorf("pipeline run: %w", runErr)
	}
	return nil
}

func printRunSummary(w io.Writer, s *domain.RunSummary) {
	fmt.Fprintf(w, "Run %s (%s)\n", s.RunID, s.FinishedAt.Sub(s.StartedAt).Round(time.Millisecond))
	fmt.Fprintf(w, "  Days:      %d attempted, %d ok, %d failed\n", s.DaysAttempted, s.DaysOK, s.DaysFailed)
	if len(s.FailedDays) > 0 {
		fmt.Fprintf(w, "  Failed:    %s\n", strings.Join(s.FailedDays, ", "))
	}
	fmt.Fprintf(w, "  Snapshots: %d ingested\n", s.SnapshotsIngested)
	fmt.Fprintf(w, "  Records:   %d inserted, %d updated, %d unchanged, %d skipped\n",
		s.Inserted, s.Updated, s.Unchanged, s.Skipped)
	for _, e := range s.Errors {
		fmt.Fprintf(w, "  Error:     %s\n", e)
	}
}

func runIngest(cmd *cobra.Command, args []string) error {
	days := make([]time.Time, 0, len(args))
	for _, arg := range args {
		day, err := domain.ParseDay(arg)
		if err != nil {
			return err
		}
		days = append(days, day)
	}

	pipeline, err := requirePipeline()
	if err != nil {
		return err
	}

	report, ingestErr := pipeline.Ingest(cmd.Context(), days)
	if report != nil {
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Ingested %d snapshot(s): %d inserted, %d updated, %d unchanged, %d skipped\n",
			report.Snapshots, report.Inserted, report.Updated, report.Unchanged, report.Skipped)
	}
	if ingestErr != nil {
		return fmt.Errorf("ingest: %w", ingestErr)
	}
	return nil
}

func printJSON(w io.Writer, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal output: %w", err)
	}
	fmt.Fprintln(w, string(data))
	return nil
}
