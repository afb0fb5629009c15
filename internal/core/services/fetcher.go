package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/custodia-labs/fedreg/internal/core/domain"
	"github.com/custodia-labs/fedreg/internal/core/ports/driven"
	"github.com/custodia-labs/fedreg/internal/logger"
	"github.com/custodia-labs/fedreg/internal/retry"
)

// Fetcher defaults.
const (
	DefaultConcurrency    = 4
	DefaultPageTimeout    = 60 * time.Second
	DefaultMaxPagesPerDay = 100
)

// ErrPageLimit indicates a day kept paginating past the configured cap.
var ErrPageLimit = errors.New("page limit exceeded")

// FetcherConfig bounds the fetch stage.
type FetcherConfig struct {
	// Concurrency is the number of days fetched at once.
	Concurrency int

	// PageTimeout bounds each page request attempt.
	PageTimeout time.Duration

	// MaxPagesPerDay stops a runaway listing.
	MaxPagesPerDay int

	// Retry is applied to every page request.
	Retry retry.Policy
}

func (c FetcherConfig) withDefaults() FetcherConfig {
	if c.Concurrency <= 0 {
		c.Concurrency = DefaultConcurrency
	}
	if c.PageTimeout <= 0 {
		c.PageTimeout = DefaultPageTimeout
	}
	if c.MaxPagesPerDay <= 0 {
		c.MaxPagesPerDay = DefaultMaxPagesPerDay
	}
	if c.Retry.Retryable == nil {
		c.Retry.Retryable = IsTransientFetchError
	}
	return c
}

// IsTransientFetchError reports whether a page request is worth retrying:
// transport failures, timeouts and rate limiting.
func IsTransientFetchError(err error) bool {
	return errors.Is(err, domain.ErrNetwork) ||
		errors.Is(err, domain.ErrRateLimited) ||
		errors.Is(err, context.DeadlineExceeded)
}

// Fetcher captures one raw snapshot per day from a DocumentSource.
// Days run concurrently; pages within a day run in cursor order.
type Fetcher struct {
	source    driven.DocumentSource
	snapshots driven.SnapshotStore
	cfg       FetcherConfig
	metrics   driven.MetricsRecorder
	now       func() time.Time
}

// NewFetcher creates a fetcher. metrics may be nil.
func NewFetcher(
	source driven.DocumentSource,
	snapshots driven.SnapshotStore,
	cfg FetcherConfig,
	metrics driven.MetricsRecorder,
) *Fetcher {
	return &Fetcher{
		source:    source,
		snapshots: snapshots,
		cfg:       cfg.withDefaults(),
		metrics:   metricsOrNop(metrics),
		now:       time.Now,
	}
}

// FetchWindow fetches every day and writes a snapshot for each day that
// succeeds. Results are in the order of days. A failed day never stops
// the others; only ctx cancellation does.
func (f *Fetcher) FetchWindow(ctx context.Context, days []time.Time) []domain.DayFetch {
	results := make([]domain.DayFetch, len(days))

	var g errgroup.Group
	g.SetLimit(f.cfg.Concurrency)

	for i, day := range days {
		g.Go(func() error {
			results[i] = f.fetchAndSave(ctx, domain.Day(day))
			return nil
		})
	}
	_ = g.Wait() //nolint:errcheck // workers report through results

	return results
}

func (f *Fetcher) fetchAndSave(ctx context.Context, day time.Time) domain.DayFetch {
	key := domain.DayKey(day)
	result := domain.DayFetch{Day: day}

	if err := ctx.Err(); err != nil {
		result.Err = err
		return result
	}

	items, pages, err := f.FetchDay(ctx, day)
	result.Pages = pages
	if err != nil {
		result.Err = fmt.Errorf("fetch %s: %w", key, err)
		logger.Warn("Fetching %s failed after %d page(s): %v", key, pages, err)
		f.metrics.DayFetched(false, 0)
		return result
	}

	snapshot := &domain.RawSnapshot{Day: day, Items: items, FetchedAt: f.now().UTC()}
	if err := f.snapshots.Save(ctx, snapshot); err != nil {
		result.Err = fmt.Errorf("save snapshot %s: %w", key, err)
		logger.Warn("Saving snapshot %s failed: %v", key, err)
		f.metrics.DayFetched(false, 0)
		return result
	}

	result.Items = len(items)
	logger.Debug("Fetched %s: %d items in %d page(s)", key, len(items), pages)
	f.metrics.DayFetched(true, len(items))
	return result
}

// FetchDay requests every page for day in order and concatenates the items.
// It returns the number of pages requested alongside any error.
func (f *Fetcher) FetchDay(ctx context.Context, day time.Time) ([]json.RawMessage, int, error) {
	items := []json.RawMessage{}
	cursor := ""
	pages := 0

	for {
		if pages >= f.cfg.MaxPagesPerDay {
			return nil, pages, fmt.Errorf("%w: more than %d pages", ErrPageLimit, f.cfg.MaxPagesPerDay)
		}

		page, err := f.fetchPage(ctx, day, cursor)
		pages++
		if err != nil {
			return nil, pages, err
		}

		items = append(items, page.Items...)

		if page.NextCursor == "" {
			return items, pages, nil
		}
		if page.NextCursor == cursor {
			return nil, pages, fmt.Errorf("%w: cursor %q did not advance", domain.ErrSourceRejected, cursor)
		}
		cursor = page.NextCursor
	}
}

// fetchPage runs one page request under the retry policy, each attempt
// bounded by the page timeout. A source cooldown is waited out before the
// attempt's timeout starts.
func (f *Fetcher) fetchPage(ctx context.Context, day time.Time, cursor string) (*domain.SourcePage, error) {
	var page *domain.SourcePage

	err := f.cfg.Retry.Do(ctx, func(ctx context.Context, attempt int) error {
		if attempt > 1 {
			logger.Debug("Retrying %s cursor=%q (attempt %d)", domain.DayKey(day), cursor, attempt)
		}

		if err := f.awaitCooldown(ctx); err != nil {
			return err
		}

		pageCtx, cancel := context.WithTimeout(ctx, f.cfg.PageTimeout)
		defer cancel()

		p, err := f.source.FetchPage(pageCtx, day, cursor)
		if err != nil {
			if errors.Is(pageCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
				return fmt.Errorf("%w: page timed out after %s: %w", domain.ErrNetwork, f.cfg.PageTimeout, err)
			}
			return err
		}
		page = p
		return nil
	})
	if err != nil {
		return nil, err
	}
	return page, nil
}

// awaitCooldown blocks while the source is rate limited.
func (f *Fetcher) awaitCooldown(ctx context.Context) error {
	cs, ok := f.source.(driven.CooldownSource)
	if !ok {
		return nil
	}
	wait := cs.CooldownRemaining()
	if wait <= 0 {
		return nil
	}

	logger.Debug("Source cooling down for %s", wait.Round(time.Millisecond))
	timer := time.NewTimer(wait)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
