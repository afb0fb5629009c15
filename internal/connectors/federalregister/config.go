package federalregister

import (
	"fmt"
	"net/url"
	"time"

	"github.com/custodia-labs/fedreg/internal/core/domain"
)

const (
	// DefaultBaseURL is the public API root.
	DefaultBaseURL = "https://www.federalregister.gov/api/v1"

	// DefaultPerPage is the largest page size the API accepts.
	DefaultPerPage = 1000

	// DefaultUserAgent identifies the pipeline to the API operators.
	DefaultUserAgent = "fedreg/1.0 (DailyUpdater)"

	// DefaultTimeout bounds a single HTTP request.
	DefaultTimeout = 120 * time.Second

	// DefaultPageDelay is the pause between consecutive pages of one day.
	DefaultPageDelay = 200 * time.Millisecond
)

// Config configures the API client.
type Config struct {
	// BaseURL is the API root, without a trailing slash.
	BaseURL string

	// PerPage is the number of documents requested per page (1-1000).
	PerPage int

	// UserAgent is sent with every request.
	UserAgent string

	// Timeout bounds a single HTTP request.
	Timeout time.Duration

	// PageDelay is the pause before every page after the first.
	PageDelay time.Duration

	// RateLimit paces requests across all days.
	RateLimit RateLimitConfig
}

// DefaultConfig returns the client defaults.
func DefaultConfig() Config {
	return Config{
		BaseURL:   DefaultBaseURL,
		PerPage:   DefaultPerPage,
		UserAgent: DefaultUserAgent,
		Timeout:   DefaultTimeout,
		PageDelay: DefaultPageDelay,
		RateLimit: DefaultRateLimit,
	}
}

// Validate checks the configuration.
func (c Config) Validate() error {
	u, err := url.Parse(c.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("%w: federalregister: base URL %q is not absolute", domain.ErrConfigInvalid, c.BaseURL)
	}
	if c.PerPage < 1 || c.PerPage > DefaultPerPage {
		return fmt.Errorf("%w: federalregister: per_page must be 1-%d, got %d",
			domain.ErrConfigInvalid, DefaultPerPage, c.PerPage)
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("%w: federalregister: timeout must be positive", domain.ErrConfigInvalid)
	}
	if c.PageDelay < 0 {
		return fmt.Errorf("%w: federalregister: page delay must not be negative", domain.ErrConfigInvalid)
	}
	if c.RateLimit.RequestsPerSecond <= 0 || c.RateLimit.BurstSize < 1 {
		return fmt.Errorf("%w: federalregister: rate limit must be positive", domain.ErrConfigInvalid)
	}
	return nil
}
