package federalregister

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/custodia-labs/fedreg/internal/core/domain"
)

// ErrInvalidCursor indicates the cursor is not a page number.
var ErrInvalidCursor = fmt.Errorf("federalregister: invalid cursor: %w", domain.ErrInvalidInput)

// RateLimitError represents a 429 response.
type RateLimitError struct {
	// RetryAfter is the cooldown requested by the server, zero if absent.
	RetryAfter time.Duration
	URL        string
}

func (e *RateLimitError) Error() string {
	if e.RetryAfter > 0 {
		return fmt.Sprintf("federalregister: rate limit exceeded, retry after %s", e.RetryAfter)
	}
	return "federalregister: rate limit exceeded"
}

// RetryAfterHint returns the cooldown the client applies for this response.
func (e *RateLimitError) RetryAfterHint() time.Duration {
	return cooldownFor(e.RetryAfter)
}

// Unwrap classifies the error as domain.ErrRateLimited.
func (e *RateLimitError) Unwrap() error {
	return domain.ErrRateLimited
}

// APIError represents a non-success API response other than 429.
type APIError struct {
	StatusCode int
	Message    string
	URL        string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("federalregister: API error %d: %s (URL: %s)", e.StatusCode, e.Message, e.URL)
}

// Unwrap classifies server errors and request timeouts as transient
// network errors and everything else as a rejected request.
func (e *APIError) Unwrap() error {
	if e.StatusCode >= 500 || e.StatusCode == http.StatusRequestTimeout {
		return domain.ErrNetwork
	}
	return domain.ErrSourceRejected
}

// IsRateLimited checks if the error indicates rate limiting.
func IsRateLimited(err error) bool {
	var rateLimitErr *RateLimitError
	return errors.As(err, &rateLimitErr)
}

// IsNotFound checks if the error indicates a resource was not found.
func IsNotFound(err error) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == http.StatusNotFound
	}
	return false
}

// IsTransient checks if the error is worth retrying.
func IsTransient(err error) bool {
	return errors.Is(err, domain.ErrNetwork) || errors.Is(err, domain.ErrRateLimited)
}

// parseRetryAfter reads a Retry-After header given as seconds or an HTTP date.
func parseRetryAfter(value string, now time.Time) time.Duration {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0
	}
	if secs, err := strconv.Atoi(value); err == nil {
		if secs <= 0 {
			return 0
		}
		return time.Duration(secs) * time.Second
	}
	if at, err := http.ParseTime(value); err == nil {
		if d := at.Sub(now); d > 0 {
			return d
		}
	}
	return 0
}
