package federalregister

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/custodia-labs/fedreg/internal/core/domain"
	"github.com/custodia-labs/fedreg/internal/core/ports/driven"
	"github.com/custodia-labs/fedreg/internal/logger"
)

// maxBodyBytes bounds a single listing response.
const maxBodyBytes = 64 << 20

// Client fetches document listings from the Federal Register API.
type Client struct {
	cfg         Config
	http        *http.Client
	rateLimiter *RateLimiter
}

var (
	_ driven.DocumentSource = (*Client)(nil)
	_ driven.CooldownSource = (*Client)(nil)
)

// NewClient creates an API client.
func NewClient(cfg Config) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")

	return &Client{
		cfg:         cfg,
		http:        &http.Client{Timeout: cfg.Timeout},
		rateLimiter: NewRateLimiter(cfg.RateLimit),
	}, nil
}

// RateLimiter returns the client's rate limiter.
func (c *Client) RateLimiter() *RateLimiter {
	return c.rateLimiter
}

// CooldownRemaining returns how long requests are held back after a 429.
func (c *Client) CooldownRemaining() time.Duration {
	return c.rateLimiter.CooldownRemaining()
}

// listResponse is the documents.json envelope.
type listResponse struct {
	Count       int               `json:"count"`
	TotalPages  int               `json:"total_pages"`
	NextPageURL string            `json:"next_page_url"`
	Results     []json.RawMessage `json:"results"`
}

// FetchPage requests one page of documents published on day.
// The cursor is the 1-based page number; empty means page 1.
func (c *Client) FetchPage(ctx context.Context, day time.Time, cursor string) (*domain.SourcePage, error) {
	page, err := parseCursor(cursor)
	if err != nil {
		return nil, err
	}

	if page > 1 && c.cfg.PageDelay > 0 {
		timer := time.NewTimer(c.cfg.PageDelay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
	}

	if err := c.rateLimiter.Wait(ctx); err != nil {
		return nil, err
	}

	reqURL := c.listURL(day, page)
	logger.Debug("federalregister: GET %s", reqURL)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("federalregister: build request: %w", err)
	}
	req.Header.Set("User-Agent", c.cfg.UserAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return nil, err
		}
		return nil, fmt.Errorf("federalregister: request %s: %w: %w", reqURL, domain.ErrNetwork, err)
	}
	defer resp.Body.Close()

	if err := c.checkResponse(resp, reqURL); err != nil {
		return nil, err
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("federalregister: read body: %w: %w", domain.ErrNetwork, err)
	}

	var list listResponse
	if err := json.Unmarshal(body, &list); err != nil {
		return nil, fmt.Errorf("federalregister: decode page %d: %w: %w", page, domain.ErrParse, err)
	}

	return &domain.SourcePage{
		Items:      list.Results,
		NextCursor: nextCursor(page, &list),
	}, nil
}

// checkResponse maps non-success responses to typed errors and records
// rate-limit cooldowns.
func (c *Client) checkResponse(resp *http.Response, reqURL string) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}

	if resp.StatusCode == http.StatusTooManyRequests {
		retryAfter := parseRetryAfter(resp.Header.Get("Retry-After"), time.Now())
		c.rateLimiter.RecordRateLimitError(retryAfter)
		logger.Warn("federalregister: rate limited, cooling down for %s", c.rateLimiter.CooldownRemaining().Round(time.Second))
		return &RateLimitError{RetryAfter: retryAfter, URL: reqURL}
	}

	msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096)) //nolint:errcheck // best effort
	text := strings.TrimSpace(string(msg))
	if text == "" {
		text = http.StatusText(resp.StatusCode)
	}
	return &APIError{StatusCode: resp.StatusCode, Message: text, URL: reqURL}
}

func (c *Client) listURL(day time.Time, page int) string {
	q := url.Values{}
	q.Set("conditions[publication_date][is]", domain.DayKey(day))
	q.Set("per_page", strconv.Itoa(c.cfg.PerPage))
	q.Set("page", strconv.Itoa(page))
	return c.cfg.BaseURL + "/documents.json?" + q.Encode()
}

func parseCursor(cursor string) (int, error) {
	if cursor == "" {
		return 1, nil
	}
	page, err := strconv.Atoi(cursor)
	if err != nil || page < 1 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidCursor, cursor)
	}
	return page, nil
}

// nextCursor decides whether another page exists. An empty page ends the
// listing. When total_pages is reported it is authoritative; otherwise the
// presence of next_page_url decides.
func nextCursor(page int, list *listResponse) string {
	if len(list.Results) == 0 {
		return ""
	}
	if list.TotalPages > 0 {
		if page >= list.TotalPages {
			return ""
		}
		return strconv.Itoa(page + 1)
	}
	if list.NextPageURL != "" {
		return strconv.Itoa(page + 1)
	}
	return ""
}
