// Package transcript renders the scrollable conversation for the chat TUI.
package transcript

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/custodia-labs/fedreg/internal/adapters/driving/tui/styles"
)

// Kind identifies who produced an entry.
type Kind int

const (
	// KindQuestion is a user question.
	KindQuestion Kind = iota
	// KindAnswer is an assistant answer.
	KindAnswer
	// KindError is a failed turn.
	KindError
)

// Entry is one rendered block of the conversation.
type Entry struct {
	Kind Kind
	Text string

	// Searches is the number of tool calls behind an answer.
	Searches int
}

// Transcript holds the conversation entries inside a viewport.
type Transcript struct {
	viewport viewport.Model
	styles   *styles.Styles
	entries  []Entry
	width    int
}

// New creates an empty transcript.
func New(s *styles.Styles) *Transcript {
	if s == nil {
		s = styles.DefaultStyles()
	}
	t := &Transcript{
		viewport: viewport.New(80, 20),
		styles:   s,
		width:    80,
	}
	t.refresh()
	return t
}

// Update forwards scroll keys and mouse events to the viewport.
func (t *Transcript) Update(msg tea.Msg) (*Transcript, tea.Cmd) {
	var cmd tea.Cmd
	t.viewport, cmd = t.viewport.Update(msg)
	return t, cmd
}

// View renders the visible part of the conversation.
func (t *Transcript) View() string {
	return t.viewport.View()
}

// Append adds an entry and scrolls to it.
func (t *Transcript) Append(e Entry) {
	t.entries = append(t.entries, e)
	t.refresh()
}

// Entries returns the entries in order.
func (t *Transcript) Entries() []Entry {
	return t.entries
}

// Clear removes every entry.
func (t *Transcript) Clear() {
	t.entries = nil
	t.refresh()
}

// SetSize resizes the viewport and re-wraps the content.
func (t *Transcript) SetSize(width, height int) {
	if width < 20 {
		width = 20
	}
	if height < 1 {
		height = 1
	}
	t.width = width
	t.viewport.Width = width
	t.viewport.Height = height
	t.refresh()
}

// Content returns the full rendered conversation.
func (t *Transcript) Content() string {
	if len(t.entries) == 0 {
		return t.styles.Muted.Render("Ask a question, for example: What rules did the EPA publish this week?")
	}

	body := lipgloss.NewStyle().Width(t.width - 2).PaddingLeft(2)
	blocks := make([]string, 0, len(t.entries))
	for _, e := range t.entries {
		var label string
		text := e.Text
		switch e.Kind {
		case KindQuestion:
			label = t.styles.UserLabel.Render("You")
		case KindAnswer:
			label = t.styles.AssistantLabel.Render("Assistant")
			if e.Searches > 0 {
				label += " " + t.styles.ToolNote.Render(fmt.Sprintf("(searched %d)", e.Searches))
			}
		case KindError:
			label = t.styles.Error.Render("Error")
			text = t.styles.Error.Render(text)
		}
		blocks = append(blocks, label+"\n"+body.Render(strings.TrimSpace(text)))
	}
	return strings.Join(blocks, "\n\n")
}

func (t *Transcript) refresh() {
	t.viewport.SetContent(t.Content())
	t.viewport.GotoBottom()
}
