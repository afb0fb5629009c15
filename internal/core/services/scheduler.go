package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/custodia-labs/fedreg/internal/core/domain"
	"github.com/custodia-labs/fedreg/internal/core/ports/driving"
	"github.com/custodia-labs/fedreg/internal/logger"
)

// DefaultSchedule runs the pipeline daily at 06:00 UTC.
const DefaultSchedule = "0 6 * * *"

// cronParser accepts standard five-field expressions and descriptors
// such as @daily.
var cronParser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)

// ParseSchedule validates a cron expression.
func ParseSchedule(expr string) (cron.Schedule, error) {
	sched, err := cronParser.Parse(expr)
	if err != nil {
		return nil, fmt.Errorf("%w: schedule %q: %w", domain.ErrInvalidInput, expr, err)
	}
	return sched, nil
}

// Scheduler invokes a Pipeline on a cron schedule. The pipeline itself
// stays unaware of timing. Overlapping runs are skipped.
type Scheduler struct {
	pipeline driving.Pipeline
	expr     string
	request  domain.RunRequest
	onRun    func(*domain.RunSummary, error)

	mu      sync.Mutex
	running bool
	cron    *cron.Cron
}

// NewScheduler creates a scheduler for expr. onRun, if non-nil, receives
// every run outcome.
func NewScheduler(
	pipeline driving.Pipeline,
	expr string,
	request domain.RunRequest,
	onRun func(*domain.RunSummary, error),
) (*Scheduler, error) {
	if expr == "" {
		expr = DefaultSchedule
	}
	if _, err := ParseSchedule(expr); err != nil {
		return nil, err
	}
	return &Scheduler{
		pipeline: pipeline,
		expr:     expr,
		request:  request,
		onRun:    onRun,
	}, nil
}

// Next returns the next activation after t.
func (s *Scheduler) Next(t time.Time) time.Time {
	sched, _ := cronParser.Parse(s.expr) //nolint:errcheck // validated in NewScheduler
	return sched.Next(t.UTC())
}

// RunOnce runs the pipeline immediately.
func (s *Scheduler) RunOnce(ctx context.Context) (*domain.RunSummary, error) {
	summary, err := s.pipeline.Run(ctx, s.request)
	if err != nil {
		logger.Error("Scheduled run failed: %v", err)
	}
	if s.onRun != nil {
		s.onRun(summary, err)
	}
	return summary, err
}

// Start runs the schedule until ctx is done or Stop is called, then waits
// for an in-flight run to finish.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return nil
	}

	c := cron.New(
		cron.WithLocation(time.UTC),
		cron.WithParser(cronParser),
		cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)),
	)
	if _, err := c.AddFunc(s.expr, func() { _, _ = s.RunOnce(ctx) }); err != nil {
		s.mu.Unlock()
		return fmt.Errorf("%w: %w", domain.ErrInvalidInput, err)
	}
	s.cron = c
	s.running = true
	s.mu.Unlock()

	logger.Info("Scheduler started (%s UTC), next run at %s",
		s.expr, s.Next(time.Now()).Format(time.RFC3339))
	c.Start()

	<-ctx.Done()
	s.Stop()
	return ctx.Err()
}

// Stop halts the schedule and waits for a running job.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	c := s.cron
	wasRunning := s.running
	s.running = false
	s.mu.Unlock()

	if !wasRunning || c == nil {
		return
	}
	<-c.Stop().Done()
}
