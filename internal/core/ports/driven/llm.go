// Package driven provides interfaces for infrastructure adapters (secondary/outbound ports).
package driven

import (
	"context"

	"github.com/custodia-labs/fedreg/internal/core/domain"
)

// ToolCallingLLM generates either a text answer or a structured tool call
// for a conversation.
//
// Implementations include:
//   - OpenAI and OpenAI-compatible servers (go-openai)
//   - Google Gemini (generative-ai-go)
type ToolCallingLLM interface {
	// Generate sends the system instruction, history and declared tools.
	// Errors wrap domain.ErrLLMUnavailable (transient), domain.ErrLLMRejected
	// or domain.ErrLLMTimeout.
	Generate(ctx context.Context, req GenerateRequest) (*GenerateResponse, error)

	// ModelName returns the name of the model being used.
	ModelName() string

	// Close releases resources.
	Close() error
}

// GenerateRequest is one LLM call.
type GenerateRequest struct {
	// System is the system instruction. Not part of the history.
	System string

	// History is the ordered conversation, oldest first.
	History []domain.Turn

	// Tools are the tools the model may call.
	Tools []domain.ToolSchema
}

// GenerateResponse is the model's reply.
// When the model requests several tool calls only the first is kept.
type GenerateResponse struct {
	// Text is the answer text. May be empty when ToolCall is set.
	Text string

	// ToolCall is the requested tool call, or nil for a plain answer.
	ToolCall *domain.ToolCall
}
