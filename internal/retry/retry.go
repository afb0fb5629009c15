// Package retry provides a small explicit retry policy shared by the
// fetcher and the LLM call sites.
package retry

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Policy retries an operation with capped exponential backoff.
// The zero value runs the operation once.
type Policy struct {
	// MaxAttempts is the total number of attempts, including the first.
	MaxAttempts int

	// InitialDelay is the wait before the second attempt.
	InitialDelay time.Duration

	// MaxDelay caps any single wait. Zero means uncapped.
	MaxDelay time.Duration

	// Multiplier grows the delay between consecutive attempts.
	// Values below 1 are treated as 1.
	Multiplier float64

	// Retryable reports whether err is worth another attempt.
	// Nil retries every error except context cancellation.
	Retryable func(err error) bool

	// RetryAfter returns a minimum wait requested by err, such as a
	// server Retry-After. It may exceed MaxDelay. Nil uses HintFrom.
	RetryAfter func(err error) time.Duration
}

// ErrExhausted wraps the last error once every attempt has failed.
var ErrExhausted = errors.New("retry attempts exhausted")

// Hinter is implemented by errors that carry a requested wait.
type Hinter interface {
	RetryAfterHint() time.Duration
}

// HintFrom returns the wait requested by the first Hinter in err's chain,
// or zero.
func HintFrom(err error) time.Duration {
	var h Hinter
	if errors.As(err, &h) {
		return h.RetryAfterHint()
	}
	return 0
}

// wait returns the pause before attempt, at least the hint of lastErr.
func (p Policy) wait(attempt int, lastErr error) time.Duration {
	wait := p.Delay(attempt)
	if attempt <= 1 || lastErr == nil {
		return wait
	}
	hint := p.RetryAfter
	if hint == nil {
		hint = HintFrom
	}
	if h := hint(lastErr); h > wait {
		return h
	}
	return wait
}

// Delay returns the wait before the given 1-based attempt.
// The first attempt never waits.
func (p Policy) Delay(attempt int) time.Duration {
	if attempt <= 1 {
		return 0
	}

	mult := p.Multiplier
	if mult < 1 {
		mult = 1
	}

	delay := float64(p.InitialDelay)
	for i := 2; i < attempt; i++ {
		delay *= mult
		if p.MaxDelay > 0 && delay >= float64(p.MaxDelay) {
			return p.MaxDelay
		}
	}

	if p.MaxDelay > 0 && time.Duration(delay) > p.MaxDelay {
		return p.MaxDelay
	}
	return time.Duration(delay)
}

// Attempts returns the effective attempt cap (at least 1).
func (p Policy) Attempts() int {
	if p.MaxAttempts < 1 {
		return 1
	}
	return p.MaxAttempts
}

func (p Policy) retryable(err error) bool {
	if errors.Is(err, context.Canceled) {
		return false
	}
	if p.Retryable == nil {
		return true
	}
	return p.Retryable(err)
}

// Do runs fn until it succeeds, returns a non-retryable error, the attempts
// run out, or ctx is done. fn receives the 1-based attempt number.
// The pause before a retry is the backoff delay or the failed attempt's
// RetryAfter hint, whichever is longer.
//
// A non-retryable error is returned as is. After the last attempt the error
// wraps both ErrExhausted and the final failure.
func (p Policy) Do(ctx context.Context, fn func(ctx context.Context, attempt int) error) error {
	attempts := p.Attempts()

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if wait := p.wait(attempt, lastErr); wait > 0 {
			timer := time.NewTimer(wait)
			select {
			case <-ctx.Done():
				timer.Stop()
				return errors.Join(ctx.Err(), lastErr)
			case <-timer.C:
			}
		}

		err := fn(ctx, attempt)
		if err == nil {
			return nil
		}
		lastErr = err

		if !p.retryable(err) {
			return err
		}
		if ctx.Err() != nil {
			return errors.Join(ctx.Err(), err)
		}
	}

	if attempts == 1 {
		return lastErr
	}
	return fmt.Errorf("%w after %d attempts: %w", ErrExhausted, attempts, lastErr)
}
