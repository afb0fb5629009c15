// Package messages defines Bubbletea message types for the chat TUI.
// Messages represent events and commands that flow through the Elm architecture.
package messages

import (
	"github.com/custodia-labs/fedreg/internal/core/domain"
)

// QuestionSubmitted is sent when the user submits a question.
type QuestionSubmitted struct {
	Question string
}

// AnswerReceived carries the outcome of one agent turn back to the model.
// On success Result holds the extended history; on failure Err is set and
// the conversation is left as it was before the question.
type AnswerReceived struct {
	Question string
	Result   *domain.TurnResult
	Err      error
}
