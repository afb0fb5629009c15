package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	frconnector "github.com/custodia-labs/fedreg/internal/connectors/federalregister"
	"github.com/custodia-labs/fedreg/internal/core/domain"
	"github.com/custodia-labs/fedreg/internal/retry"
)

func fastRetry(attempts int) retry.Policy {
	return retry.Policy{MaxAttempts: attempts, InitialDelay: time.Millisecond, Multiplier: 2}
}

func itemIDs(t *testing.T, items []json.RawMessage) []string {
	t.Helper()
	ids := make([]string, len(items))
	for i, raw := range items {
		var item struct {
			ID string `json:"id"`
		}
		require.NoError(t, json.Unmarshal(raw, &item))
		ids[i] = item.ID
	}
	return ids
}

func TestFetcher_FetchDay_PaginationCompleteness(t *testing.T) {
	source := newMockSource()
	source.pages["2024-01-02"] = pageIDs("2024-01-02", 3, 10)

	f := NewFetcher(source, newMockSnapshotStore(), FetcherConfig{Retry: fastRetry(1)}, nil)

	items, pages, err := f.FetchDay(context.Background(), mustDay("2024-01-02"))
	require.NoError(t, err)
	assert.Equal(t, 3, pages)
	require.Len(t, items, 30)

	var want []string
	for _, page := range source.pages["2024-01-02"] {
		want = append(want, page...)
	}
	assert.Equal(t, want, itemIDs(t, items))
}

func TestFetcher_FetchDay_EmptyDay(t *testing.T) {
	source := newMockSource()
	f := NewFetcher(source, newMockSnapshotStore(), FetcherConfig{}, nil)

	items, pages, err := f.FetchDay(context.Background(), mustDay("2024-01-06"))
	require.NoError(t, err)
	assert.Equal(t, 1, pages)
	assert.NotNil(t, items)
	assert.Empty(t, items)
}

func TestFetcher_FetchDay_RetriesTransientFailures(t *testing.T) {
	source := newMockSource()
	source.pages["2024-01-02"] = pageIDs("2024-01-02", 2, 5)
	source.flaky["2024-01-02"] = 2

	f := NewFetcher(source, newMockSnapshotStore(), FetcherConfig{Retry: fastRetry(3)}, nil)

	items, _, err := f.FetchDay(context.Background(), mustDay("2024-01-02"))
	require.NoError(t, err)
	assert.Len(t, items, 10)
	assert.Equal(t, 4, source.callCount("2024-01-02"))
}

func TestFetcher_FetchDay_ExhaustsRetries(t *testing.T) {
	source := newMockSource()
	source.failures["2024-01-02"] = fmt.Errorf("%w: 502", domain.ErrNetwork)

	f := NewFetcher(source, newMockSnapshotStore(), FetcherConfig{Retry: fastRetry(3)}, nil)

	_, _, err := f.FetchDay(context.Background(), mustDay("2024-01-02"))
	require.Error(t, err)
	assert.ErrorIs(t, err, retry.ErrExhausted)
	assert.ErrorIs(t, err, domain.ErrNetwork)
	assert.Equal(t, 3, source.callCount("2024-01-02"))
}

func TestFetcher_FetchDay_DoesNotRetryRejections(t *testing.T) {
	source := newMockSource()
	source.failures["2024-01-02"] = fmt.Errorf("%w: 400", domain.ErrSourceRejected)

	f := NewFetcher(source, newMockSnapshotStore(), FetcherConfig{Retry: fastRetry(5)}, nil)

	_, _, err := f.FetchDay(context.Background(), mustDay("2024-01-02"))
	assert.ErrorIs(t, err, domain.ErrSourceRejected)
	assert.Equal(t, 1, source.callCount("2024-01-02"))
}

func TestFetcher_FetchDay_PageTimeout(t *testing.T) {
	source := newMockSource()
	source.block = time.Second

	f := NewFetcher(source, newMockSnapshotStore(), FetcherConfig{
		PageTimeout: 10 * time.Millisecond,
		Retry:       fastRetry(2),
	}, nil)

	start := time.Now()
	_, _, err := f.FetchDay(context.Background(), mustDay("2024-01-02"))
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrNetwork)
	assert.Less(t, time.Since(start), 500*time.Millisecond)
	assert.Equal(t, 2, source.callCount("2024-01-02"))
}

func TestFetcher_FetchDay_PageLimit(t *testing.T) {
	source := newMockSource()
	source.pages["2024-01-02"] = pageIDs("2024-01-02", 5, 1)

	f := NewFetcher(source, newMockSnapshotStore(), FetcherConfig{MaxPagesPerDay: 3}, nil)

	_, pages, err := f.FetchDay(context.Background(), mustDay("2024-01-02"))
	assert.ErrorIs(t, err, ErrPageLimit)
	assert.Equal(t, 3, pages)
}

func TestFetcher_FetchWindow_PartialFailureIsolation(t *testing.T) {
	source := newMockSource()
	source.pages["2024-01-01"] = pageIDs("2024-01-01", 1, 3)
	source.pages["2024-01-03"] = pageIDs("2024-01-03", 2, 2)
	source.failures["2024-01-02"] = fmt.Errorf("%w: 500", domain.ErrNetwork)

	snapshots := newMockSnapshotStore()
	metrics := newMockMetrics()
	f := NewFetcher(source, snapshots, FetcherConfig{Concurrency: 3, Retry: fastRetry(2)}, metrics)

	days := []time.Time{mustDay("2024-01-03"), mustDay("2024-01-02"), mustDay("2024-01-01")}
	results := f.FetchWindow(context.Background(), days)
	require.Len(t, results, 3)

	assert.True(t, results[0].OK())
	assert.Equal(t, 4, results[0].Items)
	assert.False(t, results[1].OK())
	assert.ErrorIs(t, results[1].Err, domain.ErrNetwork)
	assert.True(t, results[2].OK())
	assert.Equal(t, 3, results[2].Items)

	assert.Equal(t, 4, snapshots.itemCount("2024-01-03"))
	assert.Equal(t, -1, snapshots.itemCount("2024-01-02"))
	assert.Equal(t, 3, snapshots.itemCount("2024-01-01"))

	assert.Equal(t, 2, metrics.daysOK)
	assert.Equal(t, 1, metrics.daysFail)
}

func TestFetcher_FetchWindow_SaveFailureFailsDay(t *testing.T) {
	source := newMockSource()
	snapshots := newMockSnapshotStore()
	snapshots.saveErr = errors.New("disk full")

	f := NewFetcher(source, snapshots, FetcherConfig{}, nil)

	results := f.FetchWindow(context.Background(), []time.Time{mustDay("2024-01-02")})
	require.Len(t, results, 1)
	assert.False(t, results[0].OK())
	assert.Contains(t, results[0].Err.Error(), "disk full")
}

func TestFetcher_FetchWindow_Cancelled(t *testing.T) {
	source := newMockSource()
	f := NewFetcher(source, newMockSnapshotStore(), FetcherConfig{Concurrency: 1}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	results := f.FetchWindow(ctx, domain.WindowDays(mustDay("2024-01-07"), 7))
	require.Len(t, results, 7)
	for _, r := range results {
		assert.ErrorIs(t, r.Err, context.Canceled)
	}
}

func TestIsTransientFetchError(t *testing.T) {
	assert.True(t, IsTransientFetchError(fmt.Errorf("x: %w", domain.ErrNetwork)))
	assert.True(t, IsTransientFetchError(domain.ErrRateLimited))
	assert.True(t, IsTransientFetchError(context.DeadlineExceeded))
	assert.False(t, IsTransientFetchError(domain.ErrSourceRejected))
	assert.False(t, IsTransientFetchError(domain.ErrParse))
}

func TestFetcher_FetchDay_RetryAfterLongerThanPageTimeout(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if calls.Add(1) == 1 {
			w.Header().Set("Retry-After", "1")
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"count":1,"total_pages":1,"results":[{"document_number":"2024-00001"}]}`)
	}))
	t.Cleanup(srv.Close)

	cfg := frconnector.DefaultConfig()
	cfg.BaseURL = srv.URL
	cfg.PageDelay = 0
	cfg.RateLimit = frconnector.RateLimitConfig{RequestsPerSecond: 100, BurstSize: 10}
	client, err := frconnector.NewClient(cfg)
	require.NoError(t, err)

	f := NewFetcher(client, newMockSnapshotStore(), FetcherConfig{
		PageTimeout: 300 * time.Millisecond,
		Retry:       fastRetry(2),
	}, nil)

	start := time.Now()
	items, pages, err := f.FetchDay(context.Background(), mustDay("2024-03-01"))

	require.NoError(t, err)
	assert.Equal(t, int32(2), calls.Load())
	assert.Equal(t, 1, pages)
	assert.Len(t, items, 1)
	assert.GreaterOrEqual(t, time.Since(start), time.Second)
}

// coolingSource reports a cooldown until a fixed instant and records when
// each request was made.
type coolingSource struct {
	until    time.Time
	requests []time.Time
}

func (c *coolingSource) CooldownRemaining() time.Duration {
	return time.Until(c.until)
}

func (c *coolingSource) FetchPage(ctx context.Context, _ time.Time, _ string) (*domain.SourcePage, error) {
	c.requests = append(c.requests, time.Now())
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return &domain.SourcePage{Items: []json.RawMessage{json.RawMessage(`{"id":"a"}`)}}, nil
}

func TestFetcher_FetchDay_WaitsOutSourceCooldownBeforeTimeout(t *testing.T) {
	source := &coolingSource{until: time.Now().Add(80 * time.Millisecond)}
	f := NewFetcher(source, newMockSnapshotStore(), FetcherConfig{
		PageTimeout: 20 * time.Millisecond,
		Retry:       fastRetry(1),
	}, nil)

	items, _, err := f.FetchDay(context.Background(), mustDay("2024-03-01"))

	require.NoError(t, err)
	assert.Len(t, items, 1)
	require.Len(t, source.requests, 1)
	assert.False(t, source.requests[0].Before(source.until))
}

func TestFetcher_FetchDay_CooldownHonoursCancellation(t *testing.T) {
	source := &coolingSource{until: time.Now().Add(time.Minute)}
	f := NewFetcher(source, newMockSnapshotStore(), FetcherConfig{Retry: fastRetry(3)}, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, _, err := f.FetchDay(ctx, mustDay("2024-03-01"))

	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Empty(t, source.requests)
}
