package retry

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errTransient = errors.New("transient")

func TestPolicy_Delay(t *testing.T) {
	p := Policy{InitialDelay: 100 * time.Millisecond, MaxDelay: time.Second, Multiplier: 2}

	tests := []struct {
		attempt int
		want    time.Duration
	}{
		{0, 0},
		{1, 0},
		{2, 100 * time.Millisecond},
		{3, 200 * time.Millisecond},
		{4, 400 * time.Millisecond},
		{5, 800 * time.Millisecond},
		{6, time.Second},
		{20, time.Second},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, p.Delay(tt.attempt), "attempt %d", tt.attempt)
	}
}

func TestPolicy_Delay_MultiplierBelowOne(t *testing.T) {
	p := Policy{InitialDelay: 50 * time.Millisecond, Multiplier: 0.5}
	assert.Equal(t, 50*time.Millisecond, p.Delay(2))
	assert.Equal(t, 50*time.Millisecond, p.Delay(5))
}

func TestPolicy_Attempts(t *testing.T) {
	assert.Equal(t, 1, Policy{}.Attempts())
	assert.Equal(t, 1, Policy{MaxAttempts: -3}.Attempts())
	assert.Equal(t, 4, Policy{MaxAttempts: 4}.Attempts())
}

func TestPolicy_Do_SucceedsAfterRetries(t *testing.T) {
	p := Policy{MaxAttempts: 3, InitialDelay: time.Millisecond}

	calls := 0
	err := p.Do(context.Background(), func(_ context.Context, attempt int) error {
		calls++
		assert.Equal(t, calls, attempt)
		if attempt < 3 {
			return errTransient
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestPolicy_Do_Exhausted(t *testing.T) {
	p := Policy{MaxAttempts: 3, InitialDelay: time.Millisecond}

	calls := 0
	err := p.Do(context.Background(), func(context.Context, int) error {
		calls++
		return errTransient
	})

	require.Error(t, err)
	assert.Equal(t, 3, calls)
	assert.ErrorIs(t, err, ErrExhausted)
	assert.ErrorIs(t, err, errTransient)
}

func TestPolicy_Do_NonRetryableStopsImmediately(t *testing.T) {
	permanent := errors.New("permanent")
	p := Policy{
		MaxAttempts:  5,
		InitialDelay: time.Millisecond,
		Retryable:    func(err error) bool { return errors.Is(err, errTransient) },
	}

	calls := 0
	err := p.Do(context.Background(), func(context.Context, int) error {
		calls++
		return permanent
	})

	assert.Equal(t, 1, calls)
	assert.Equal(t, permanent, err)
}

func TestPolicy_Do_SingleAttemptReturnsRawError(t *testing.T) {
	err := Policy{}.Do(context.Background(), func(context.Context, int) error {
		return errTransient
	})
	assert.Equal(t, errTransient, err)
}

func TestPolicy_Do_ContextCancelledDuringWait(t *testing.T) {
	p := Policy{MaxAttempts: 3, InitialDelay: time.Hour}
	ctx, cancel := context.WithCancel(context.Background())

	calls := 0
	done := make(chan error, 1)
	go func() {
		done <- p.Do(ctx, func(context.Context, int) error {
			calls++
			return errTransient
		})
	}()

	time.Sleep(10 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
		assert.ErrorIs(t, err, errTransient)
		assert.Equal(t, 1, calls)
	case <-time.After(2 * time.Second):
		t.Fatal("Do did not return after cancellation")
	}
}

func TestPolicy_Do_CancellationNotRetried(t *testing.T) {
	p := Policy{MaxAttempts: 3, InitialDelay: time.Millisecond}

	calls := 0
	err := p.Do(context.Background(), func(context.Context, int) error {
		calls++
		return context.Canceled
	})

	assert.Equal(t, 1, calls)
	assert.ErrorIs(t, err, context.Canceled)
}

type hintedError struct {
	after time.Duration
}

func (e *hintedError) Error() string                 { return "slow down" }
func (e *hintedError) RetryAfterHint() time.Duration { return e.after }

func TestHintFrom(t *testing.T) {
	assert.Equal(t, time.Duration(0), HintFrom(errTransient))
	assert.Equal(t, time.Duration(0), HintFrom(nil))

	wrapped := fmt.Errorf("page 2: %w", &hintedError{after: 3 * time.Second})
	assert.Equal(t, 3*time.Second, HintFrom(wrapped))
}

func TestPolicy_Do_WaitsForRetryAfterHint(t *testing.T) {
	p := Policy{MaxAttempts: 2, InitialDelay: time.Millisecond, MaxDelay: 5 * time.Millisecond}

	var gap time.Duration
	var last time.Time
	err := p.Do(context.Background(), func(_ context.Context, attempt int) error {
		now := time.Now()
		if attempt == 1 {
			last = now
			return &hintedError{after: 60 * time.Millisecond}
		}
		gap = now.Sub(last)
		return nil
	})

	require.NoError(t, err)
	assert.GreaterOrEqual(t, gap, 60*time.Millisecond)
}

func TestPolicy_Do_CustomRetryAfter(t *testing.T) {
	p := Policy{
		MaxAttempts:  2,
		InitialDelay: time.Millisecond,
		RetryAfter: func(err error) time.Duration {
			if errors.Is(err, errTransient) {
				return 40 * time.Millisecond
			}
			return 0
		},
	}

	start := time.Now()
	calls := 0
	err := p.Do(context.Background(), func(context.Context, int) error {
		calls++
		if calls == 1 {
			return errTransient
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 2, calls)
	assert.GreaterOrEqual(t, time.Since(start), 40*time.Millisecond)
}

func TestPolicy_Do_HintWaitHonoursCancellation(t *testing.T) {
	p := Policy{MaxAttempts: 2, InitialDelay: time.Millisecond}
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	calls := 0
	err := p.Do(ctx, func(context.Context, int) error {
		calls++
		return &hintedError{after: time.Minute}
	})

	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, 1, calls)
}
