package driven

import (
	"context"
	"time"

	"github.com/custodia-labs/fedreg/internal/core/domain"
)

// SnapshotStore persists raw per-day snapshots as an audit trail.
type SnapshotStore interface {
	// Save writes the snapshot for its day, replacing any earlier one.
	// The write is atomic: readers see either the old or the new snapshot.
	Save(ctx context.Context, snapshot *domain.RawSnapshot) error

	// Load returns the snapshot for day, or domain.ErrNotFound.
	Load(ctx context.Context, day time.Time) (*domain.RawSnapshot, error)

	// List returns the days with a stored snapshot, oldest first.
	List(ctx context.Context) ([]time.Time, error)
}
