package services

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/fedreg/internal/core/domain"
)

type pipelineFixture struct {
	source    *mockSource
	snapshots *mockSnapshotStore
	store     *mockDocumentStore
	pipeline  *PipelineService
}

func newPipelineFixture(windowDays int) *pipelineFixture {
	fx := &pipelineFixture{
		source:    newMockSource(),
		snapshots: newMockSnapshotStore(),
		store:     newMockDocumentStore(),
	}
	fetcher := NewFetcher(fx.source, fx.snapshots, FetcherConfig{Concurrency: 2, Retry: fastRetry(2)}, nil)
	upserter := NewUpserter(fx.snapshots, mockNormaliser{}, fx.store, nil)
	fx.pipeline = NewPipelineService(fetcher, upserter, fx.snapshots, windowDays)
	return fx
}

func TestPipeline_Run_Summary(t *testing.T) {
	fx := newPipelineFixture(3)
	fx.source.pages["2024-01-01"] = pageIDs("2024-01-01", 1, 2)
	fx.source.pages["2024-01-03"] = pageIDs("2024-01-03", 2, 3)
	fx.source.failures["2024-01-02"] = fmt.Errorf("%w: 504", domain.ErrNetwork)

	summary, err := fx.pipeline.Run(context.Background(), domain.RunRequest{Reference: mustDay("2024-01-03")})
	require.NoError(t, err)

	_, parseErr := uuid.Parse(summary.RunID)
	assert.NoError(t, parseErr)
	assert.Equal(t, 3, summary.WindowDays)
	assert.Equal(t, 3, summary.DaysAttempted)
	assert.Equal(t, 2, summary.DaysOK)
	assert.Equal(t, 1, summary.DaysFailed)
	assert.Equal(t, []string{"2024-01-02"}, summary.FailedDays)
	assert.Equal(t, 2, summary.SnapshotsIngested)
	assert.Equal(t, 8, summary.Inserted)
	assert.Len(t, summary.Errors, 1)
	assert.False(t, summary.FinishedAt.Before(summary.StartedAt))
}

func TestPipeline_Run_IngestsOnlyFreshSnapshotsWhenSomeSucceed(t *testing.T) {
	fx := newPipelineFixture(1)
	fx.source.pages["2024-01-05"] = pageIDs("2024-01-05", 1, 1)
	fx.snapshots.put("2023-12-01", rawItem("OLD", "Old", "2023-12-01"))

	summary, err := fx.pipeline.Run(context.Background(), domain.RunRequest{Reference: mustDay("2024-01-05")})
	require.NoError(t, err)
	assert.Equal(t, 1, summary.SnapshotsIngested)

	_, err = fx.store.Get(context.Background(), "OLD")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestPipeline_Run_FallsBackToExistingSnapshots(t *testing.T) {
	fx := newPipelineFixture(2)
	fx.source.failures["2024-01-05"] = fmt.Errorf("%w: unreachable", domain.ErrNetwork)
	fx.source.failures["2024-01-04"] = fmt.Errorf("%w: unreachable", domain.ErrNetwork)
	fx.snapshots.put("2023-12-01", rawItem("OLD", "Old", "2023-12-01"))
	fx.snapshots.put("2023-12-02", rawItem("OLDER", "Older", "2023-12-02"))

	summary, err := fx.pipeline.Run(context.Background(), domain.RunRequest{Reference: mustDay("2024-01-05")})
	require.NoError(t, err)

	assert.Equal(t, 0, summary.DaysOK)
	assert.Equal(t, 2, summary.DaysFailed)
	assert.Equal(t, 2, summary.SnapshotsIngested)
	assert.Equal(t, 2, summary.Inserted)
}

func TestPipeline_Run_StoreFailureSurfaces(t *testing.T) {
	fx := newPipelineFixture(1)
	fx.source.pages["2024-01-05"] = [][]string{{"BAD"}}
	fx.store.failOn = "BAD"

	summary, err := fx.pipeline.Run(context.Background(), domain.RunRequest{Reference: mustDay("2024-01-05")})
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrStore)
	require.NotNil(t, summary)
	assert.Equal(t, 1, summary.DaysOK)
	assert.Equal(t, 0, summary.SnapshotsIngested)
	assert.NotEmpty(t, summary.Errors)
}

func TestPipeline_Run_SkipFetch(t *testing.T) {
	fx := newPipelineFixture(2)
	fx.snapshots.put("2024-01-05", rawItem("A", "Alpha", "2024-01-05"))
	fx.snapshots.put("2024-01-01", rawItem("B", "Beta", "2024-01-01"))

	summary, err := fx.pipeline.Run(context.Background(), domain.RunRequest{
		Reference: mustDay("2024-01-05"),
		SkipFetch: true,
	})
	require.NoError(t, err)
	assert.Equal(t, 0, summary.DaysAttempted)
	assert.Equal(t, 1, summary.SnapshotsIngested)
	assert.Zero(t, fx.source.callCount("2024-01-05"))
}

func TestPipeline_Run_DefaultWindowAndReference(t *testing.T) {
	fx := newPipelineFixture(0)
	now := time.Date(2024, 3, 10, 15, 0, 0, 0, time.UTC)
	fx.pipeline.now = func() time.Time { return now }

	summary, err := fx.pipeline.Run(context.Background(), domain.RunRequest{})
	require.NoError(t, err)
	assert.Equal(t, DefaultWindowDays, summary.WindowDays)
	assert.Equal(t, DefaultWindowDays, summary.DaysAttempted)
	assert.Equal(t, 1, fx.source.callCount("2024-03-10"))
	assert.Equal(t, 1, fx.source.callCount("2024-03-04"))
	assert.Zero(t, fx.source.callCount("2024-03-03"))
}

func TestPipeline_Run_RejectsNegativeWindow(t *testing.T) {
	fx := newPipelineFixture(3)
	_, err := fx.pipeline.Run(context.Background(), domain.RunRequest{WindowDays: -1})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestPipeline_Run_ListFailureDuringFallback(t *testing.T) {
	fx := newPipelineFixture(1)
	fx.source.failures["2024-01-05"] = fmt.Errorf("%w: down", domain.ErrNetwork)
	fx.snapshots.listErr = errors.New("io error")

	summary, err := fx.pipeline.Run(context.Background(), domain.RunRequest{Reference: mustDay("2024-01-05")})
	require.Error(t, err)
	require.NotNil(t, summary)
	assert.Len(t, summary.Errors, 2)
}

func TestPipeline_Ingest_Delegates(t *testing.T) {
	fx := newPipelineFixture(1)
	fx.snapshots.put("2024-01-01", rawItem("A", "Alpha", "2024-01-01"))

	report, err := fx.pipeline.Ingest(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Inserted)
}
