package driving

import (
	"context"

	"github.com/custodia-labs/fedreg/internal/core/domain"
)

// Agent answers one user message at a time, optionally consulting the
// search tool once per turn.
type Agent interface {
	// HandleTurn appends userMessage to history and drives the turn to a final
	// answer. The input history is never modified. Errors wrap
	// domain.ErrLLMUnavailable, domain.ErrLLMRejected, domain.ErrLLMTimeout or
	// domain.ErrMalformedToolCall.
	HandleTurn(ctx context.Context, history []domain.Turn, userMessage string) (*domain.TurnResult, error)
}
