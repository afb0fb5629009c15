// Package status provides the status bar for the chat TUI.
package status

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/lipgloss"

	"github.com/custodia-labs/fedreg/internal/adapters/driving/tui/keymap"
	"github.com/custodia-labs/fedreg/internal/adapters/driving/tui/styles"
)

// State represents the conversation state shown in the bar.
type State string

const (
	StateReady    State = "ready"
	StateThinking State = "thinking"
	StateError    State = "error"
)

// Bar displays the conversation state and keybinding hints.
type Bar struct {
	styles   *styles.Styles
	keymap   *keymap.KeyMap
	state    State
	message  string
	model    string
	searches int
	width    int
}

// NewBar creates a new status bar component.
func NewBar(s *styles.Styles, km *keymap.KeyMap) *Bar {
	if s == nil {
		s = styles.DefaultStyles()
	}
	if km == nil {
		km = keymap.DefaultKeyMap()
	}

	return &Bar{
		styles: s,
		keymap: km,
		state:  StateReady,
		width:  80,
	}
}

// View renders the status bar.
func (s *Bar) View() string {
	left := s.renderLeft()
	right := s.renderRight()

	padding := s.width - lipgloss.Width(left) - lipgloss.Width(right) - 2
	if padding < 1 {
		padding = 1
	}

	return s.styles.StatusBar.Width(s.width).Render(
		left + strings.Repeat(" ", padding) + right,
	)
}

func (s *Bar) renderLeft() string {
	switch s.state {
	case StateThinking:
		return s.styles.Muted.Render("Thinking...")
	case StateError:
		if s.message != "" {
			return s.styles.Error.Render("Error: " + s.message)
		}
		return s.styles.Error.Render("Error")
	case StateReady:
	}

	parts := []string{"Ready"}
	if s.model != "" {
		parts = append(parts, s.model)
	}
	if s.searches > 0 {
		parts = append(parts, fmt.Sprintf("%d searches", s.searches))
	}
	return s.styles.Muted.Render(strings.Join(parts, " · "))
}

func (s *Bar) renderRight() string {
	bindings := s.keymap.ShortHelp()
	hints := make([]string, 0, len(bindings))
	for _, b := range bindings {
		hints = append(hints, hint(b))
	}
	return s.styles.Muted.Render(strings.Join(hints, " | "))
}

func hint(b key.Binding) string {
	h := b.Help()
	return fmt.Sprintf("%s: %s", h.Key, h.Desc)
}

// SetState sets the current state. Leaving StateError clears the message.
func (s *Bar) SetState(state State) {
	if state != StateError {
		s.message = ""
	}
	s.state = state
}

// State returns the current state.
func (s *Bar) State() State {
	return s.state
}

// SetError switches to StateError with the given message.
func (s *Bar) SetError(message string) {
	s.state = StateError
	s.message = message
}

// Message returns the current error message.
func (s *Bar) Message() string {
	return s.message
}

// SetModel sets the model name shown when ready.
func (s *Bar) SetModel(model string) {
	s.model = model
}

// AddSearches adds to the session's tool invocation count.
func (s *Bar) AddSearches(n int) {
	s.searches += n
}

// Searches returns the session's tool invocation count.
func (s *Bar) Searches() int {
	return s.searches
}

// SetWidth sets the status bar width.
func (s *Bar) SetWidth(width int) {
	s.width = width
}

// Clear resets the bar for a new conversation.
func (s *Bar) Clear() {
	s.state = StateReady
	s.message = ""
	s.searches = 0
}
