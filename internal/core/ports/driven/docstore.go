package driven

import (
	"context"
	"time"

	"github.com/custodia-labs/fedreg/internal/core/domain"
)

// DocumentStore persists Document records keyed by their natural ID.
// Uniqueness of the ID is enforced by the store itself.
type DocumentStore interface {
	// UpsertBatch inserts or updates docs inside one transaction, stamping
	// seenAt as last_seen_at. Either every document is written or none is.
	// Errors wrap domain.ErrStore.
	UpsertBatch(ctx context.Context, docs []domain.Document, seenAt time.Time) (domain.UpsertCounts, error)

	// Search runs a parameterised query for args, newest first, at most args.Limit rows.
	// Errors wrap domain.ErrStore.
	Search(ctx context.Context, args domain.SearchArgs) ([]domain.Document, error)

	// Get retrieves a document by ID, or domain.ErrNotFound.
	Get(ctx context.Context, id string) (*domain.Document, error)

	// Count returns the number of stored documents.
	Count(ctx context.Context) (int, error)

	// Close releases the underlying connection pool.
	Close() error
}
