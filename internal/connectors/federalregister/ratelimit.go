package federalregister

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// RateLimitConfig holds rate limiting configuration.
type RateLimitConfig struct {
	// RequestsPerSecond is the sustained rate limit.
	RequestsPerSecond float64
	// BurstSize is the maximum burst size.
	BurstSize int
}

// DefaultRateLimit is a conservative default. The API publishes no hard
// quota but throttles aggressive clients with 429s.
var DefaultRateLimit = RateLimitConfig{RequestsPerSecond: 5.0, BurstSize: 5}

const (
	// DefaultCooldown applies when a 429 carries no usable Retry-After.
	DefaultCooldown = 60 * time.Second

	// MaxCooldown caps the cooldown a server can impose.
	MaxCooldown = 5 * time.Minute
)

// RateLimiter paces API requests with a token bucket and honours
// cooldowns signalled by 429 responses.
type RateLimiter struct {
	mu      sync.Mutex
	limiter *rate.Limiter
	retryAt time.Time
	now     func() time.Time
}

// NewRateLimiter creates a rate limiter with the given configuration.
func NewRateLimiter(cfg RateLimitConfig) *RateLimiter {
	return &RateLimiter{
		limiter: rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), cfg.BurstSize),
		now:     time.Now,
	}
}

// Wait blocks until a request can be made without exceeding the rate limit.
// Any cooldown set by RecordRateLimitError is honoured first.
func (r *RateLimiter) Wait(ctx context.Context) error {
	if wait := r.CooldownRemaining(); wait > 0 {
		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}

	return r.limiter.Wait(ctx)
}

// RecordRateLimitError sets a cooldown after a 429 response.
// Non-positive durations use DefaultCooldown; long ones are capped at MaxCooldown.
// A shorter cooldown never shortens one already in force.
func (r *RateLimiter) RecordRateLimitError(retryAfter time.Duration) {
	retryAfter = cooldownFor(retryAfter)

	r.mu.Lock()
	defer r.mu.Unlock()

	until := r.now().Add(retryAfter)
	if until.After(r.retryAt) {
		r.retryAt = until
	}
}

// cooldownFor bounds a server-requested cooldown.
func cooldownFor(retryAfter time.Duration) time.Duration {
	if retryAfter <= 0 {
		return DefaultCooldown
	}
	if retryAfter > MaxCooldown {
		return MaxCooldown
	}
	return retryAfter
}

// CooldownRemaining returns how long requests are still held back.
func (r *RateLimiter) CooldownRemaining() time.Duration {
	r.mu.Lock()
	defer r.mu.Unlock()

	if d := r.retryAt.Sub(r.now()); d > 0 {
		return d
	}
	return 0
}

// Allow checks if a request can be made immediately without blocking.
func (r *RateLimiter) Allow() bool {
	if r.CooldownRemaining() > 0 {
		return false
	}
	return r.limiter.Allow()
}
