package driving

import (
	"context"
	"encoding/json"

	"github.com/custodia-labs/fedreg/internal/core/domain"
)

// SearchTool is the constrained document lookup offered to LLMs and users.
type SearchTool interface {
	// Schema returns the tool declaration advertised to LLMs.
	Schema() domain.ToolSchema

	// Parse decodes and validates an untrusted JSON argument object.
	// Malformed JSON wraps domain.ErrMalformedToolCall;
	// out-of-contract values wrap domain.ErrValidation.
	Parse(raw json.RawMessage) (domain.SearchArgs, error)

	// Normalise validates and clamps an argument set built directly.
	Normalise(args domain.SearchArgs) (domain.SearchArgs, error)

	// Search runs a validated query. Store failures wrap
	// domain.ErrSearchUnavailable. No match is not an error.
	Search(ctx context.Context, args domain.SearchArgs) (*domain.SearchResult, error)
}

// DocumentLookup retrieves stored records for display.
type DocumentLookup interface {
	// Get returns one record. Unknown IDs wrap domain.ErrNotFound.
	Get(ctx context.Context, documentID string) (*domain.Document, error)

	// Count returns the number of stored records.
	Count(ctx context.Context) (int, error)
}
