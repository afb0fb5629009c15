package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/custodia-labs/fedreg/internal/core/domain"
	"github.com/custodia-labs/fedreg/internal/core/ports/driven"
	"github.com/custodia-labs/fedreg/internal/core/ports/driving"
	"github.com/custodia-labs/fedreg/internal/logger"
)

// Ensure PipelineService implements the interface.
var _ driving.Pipeline = (*PipelineService)(nil)

// DefaultWindowDays is the window size used when none is configured.
const DefaultWindowDays = 7

// PipelineService runs the fetcher and then the upserter.
type PipelineService struct {
	fetcher    *Fetcher
	upserter   *Upserter
	snapshots  driven.SnapshotStore
	windowDays int
	now        func() time.Time
}

// NewPipelineService creates a pipeline. windowDays <= 0 uses DefaultWindowDays.
func NewPipelineService(
	fetcher *Fetcher,
	upserter *Upserter,
	snapshots driven.SnapshotStore,
	windowDays int,
) *PipelineService {
	if windowDays <= 0 {
		windowDays = DefaultWindowDays
	}
	return &PipelineService{
		fetcher:    fetcher,
		upserter:   upserter,
		snapshots:  snapshots,
		windowDays: windowDays,
		now:        time.Now,
	}
}

// Run executes one invocation.
//
// Days whose fetch succeeded are ingested from their fresh snapshots. When
// every fetch fails, all snapshots already on disk are ingested instead so
// an outage degrades to reprocessing rather than doing nothing.
func (p *PipelineService) Run(ctx context.Context, req domain.RunRequest) (*domain.RunSummary, error) {
	window := req.WindowDays
	if window == 0 {
		window = p.windowDays
	}
	if window < 0 {
		return nil, fmt.Errorf("%w: window must be positive, got %d", domain.ErrInvalidInput, window)
	}

	ref := req.Reference
	if ref.IsZero() {
		ref = p.now()
	}
	days := domain.WindowDays(ref, window)

	summary := &domain.RunSummary{
		RunID:      uuid.NewString(),
		StartedAt:  p.now().UTC(),
		WindowDays: window,
	}
	log := logger.WithFields(map[string]any{"run_id": summary.RunID})
	log.Infof("pipeline run started: %d day(s) ending %s", window, domain.DayKey(ref))

	var ingestDays []time.Time
	if req.SkipFetch {
		var err error
		if ingestDays, err = p.storedWithin(ctx, days); err != nil {
			summary.Errors = append(summary.Errors, err.Error())
			return p.finish(summary, err)
		}
	} else {
		results := p.fetcher.FetchWindow(ctx, days)
		for _, r := range results {
			summary.DaysAttempted++
			if r.OK() {
				summary.DaysOK++
				ingestDays = append(ingestDays, r.Day)
				continue
			}
			summary.DaysFailed++
			summary.FailedDays = append(summary.FailedDays, domain.DayKey(r.Day))
			summary.Errors = append(summary.Errors, r.Err.Error())
		}

		if summary.DaysOK == 0 && summary.DaysAttempted > 0 {
			log.Warn("every fetch failed; ingesting existing snapshots")
			stored, err := p.snapshots.List(ctx)
			if err != nil {
				err = fmt.Errorf("list snapshots: %w", err)
				summary.Errors = append(summary.Errors, err.Error())
				return p.finish(summary, err)
			}
			ingestDays = stored
		}
	}

	if len(ingestDays) == 0 {
		log.Info("no snapshots to ingest")
		return p.finish(summary, nil)
	}

	report, err := p.upserter.Ingest(ctx, ingestDays)
	summary.SnapshotsIngested = report.Snapshots
	summary.Inserted = report.Inserted
	summary.Updated = report.Updated
	summary.Unchanged = report.Unchanged
	summary.Skipped = report.Skipped
	for _, e := range report.Errors {
		summary.Errors = append(summary.Errors, e.Error())
	}

	return p.finish(summary, err)
}

// Ingest runs only the upserter. No days means every stored snapshot.
func (p *PipelineService) Ingest(ctx context.Context, days []time.Time) (*domain.IngestReport, error) {
	return p.upserter.Ingest(ctx, days)
}

// storedWithin returns the days in window that have a snapshot.
func (p *PipelineService) storedWithin(ctx context.Context, window []time.Time) ([]time.Time, error) {
	stored, err := p.snapshots.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list snapshots: %w", err)
	}

	want := make(map[string]bool, len(window))
	for _, d := range window {
		want[domain.DayKey(d)] = true
	}

	var days []time.Time
	for _, d := range stored {
		if want[domain.DayKey(d)] {
			days = append(days, d)
		}
	}
	return days, nil
}

func (p *PipelineService) finish(summary *domain.RunSummary, err error) (*domain.RunSummary, error) {
	summary.FinishedAt = p.now().UTC()

	logger.WithFields(map[string]any{
		"run_id":      summary.RunID,
		"days_ok":     summary.DaysOK,
		"days_failed": summary.DaysFailed,
		"inserted":    summary.Inserted,
		"updated":     summary.Updated,
		"unchanged":   summary.Unchanged,
		"skipped":     summary.Skipped,
		"errors":      len(summary.Errors),
	}).Info("pipeline run finished")

	if err != nil {
		return summary, fmt.Errorf("pipeline run %s: %w", summary.RunID, err)
	}
	return summary, nil
}
