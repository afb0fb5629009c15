package driving

import (
	"context"
	"time"

	"github.com/custodia-labs/fedreg/internal/core/domain"
)

// Pipeline runs the fetch and ingest stages. It is invoked by an external
// schedule and holds no scheduling logic of its own.
type Pipeline interface {
	// Run fetches the window and ingests snapshots. The summary is always
	// returned; the error is non-nil when store writes failed.
	Run(ctx context.Context, req domain.RunRequest) (*domain.RunSummary, error)

	// Ingest runs only the Normalizer/Upserter over the given days.
	// No days means every stored snapshot.
	Ingest(ctx context.Context, days []time.Time) (*domain.IngestReport, error)
}
