// Package input provides the question input for the chat TUI.
package input

import (
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/custodia-labs/fedreg/internal/adapters/driving/tui/styles"
)

// MaxQuestionLength bounds a single question.
const MaxQuestionLength = 1000

// QuestionInput wraps a bubbles textinput for typing questions.
type QuestionInput struct {
	textinput textinput.Model
	styles    *styles.Styles
	width     int
}

// NewQuestionInput creates a focused question input.
func NewQuestionInput(s *styles.Styles) *QuestionInput {
	if s == nil {
		s = styles.DefaultStyles()
	}

	ti := textinput.New()
	ti.Placeholder = "Ask about recent Federal Register documents..."
	ti.Prompt = "> "
	ti.Focus()
	ti.CharLimit = MaxQuestionLength
	ti.Width = 60

	return &QuestionInput{
		textinput: ti,
		styles:    s,
		width:     60,
	}
}

// Init starts the cursor blink.
func (q *QuestionInput) Init() tea.Cmd {
	return textinput.Blink
}

// Update handles key messages.
func (q *QuestionInput) Update(msg tea.Msg) (*QuestionInput, tea.Cmd) {
	var cmd tea.Cmd
	q.textinput, cmd = q.textinput.Update(msg)
	return q, cmd
}

// View renders the input inside its border.
func (q *QuestionInput) View() string {
	return q.styles.InputField.Width(q.width - 2).Render(q.textinput.View())
}

// Value returns the typed text.
func (q *QuestionInput) Value() string {
	return q.textinput.Value()
}

// SetValue replaces the typed text.
func (q *QuestionInput) SetValue(value string) {
	q.textinput.SetValue(value)
}

// Take returns the trimmed question and clears the input.
func (q *QuestionInput) Take() string {
	v := strings.TrimSpace(q.textinput.Value())
	q.textinput.Reset()
	return v
}

// Focus sets focus on the input.
func (q *QuestionInput) Focus() tea.Cmd {
	return q.textinput.Focus()
}

// Blur removes focus, ignoring keys while a turn is in flight.
func (q *QuestionInput) Blur() {
	q.textinput.Blur()
}

// Focused returns whether the input accepts keys.
func (q *QuestionInput) Focused() bool {
	return q.textinput.Focused()
}

// SetWidth sets the outer width of the input.
func (q *QuestionInput) SetWidth(width int) {
	if width < 24 {
		width = 24
	}
	q.width = width
	// Border, padding, prompt and cursor.
	q.textinput.Width = width - 8
}

// Width returns the outer width.
func (q *QuestionInput) Width() int {
	return q.width
}

// Height returns the rendered height.
func (q *QuestionInput) Height() int {
	return lipgloss.Height(q.View())
}
