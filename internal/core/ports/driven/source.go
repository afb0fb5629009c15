package driven

import (
	"context"
	"time"

	"github.com/custodia-labs/fedreg/internal/core/domain"
)

// DocumentSource lists documents published on a given day, one page at a time.
// Pages depend on the cursor of the previous page and must be fetched in order.
type DocumentSource interface {
	// FetchPage returns the page identified by cursor for day.
	// An empty cursor requests the first page.
	// Errors wrap domain.ErrNetwork, domain.ErrRateLimited,
	// domain.ErrSourceRejected or domain.ErrParse.
	FetchPage(ctx context.Context, day time.Time, cursor string) (*domain.SourcePage, error)
}

// CooldownSource is implemented by sources that hold requests back after
// being rate limited. Callers wait out the cooldown before starting a
// request deadline.
type CooldownSource interface {
	CooldownRemaining() time.Duration
}
