package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/custodia-labs/fedreg/internal/adapters/driving/tui/components/input"
	"github.com/custodia-labs/fedreg/internal/adapters/driving/tui/components/status"
	"github.com/custodia-labs/fedreg/internal/adapters/driving/tui/components/transcript"
	"github.com/custodia-labs/fedreg/internal/adapters/driving/tui/keymap"
	"github.com/custodia-labs/fedreg/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/fedreg/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/fedreg/internal/core/domain"
)

// App is the chat application following the Elm architecture.
// It implements tea.Model for use with Bubbletea.
type App struct {
	ports *Ports
	ctx   context.Context

	styles     *styles.Styles
	keymap     *keymap.KeyMap
	input      *input.QuestionInput
	transcript *transcript.Transcript
	statusbar  *status.Bar

	// history is the conversation so far. It is replaced, never mutated,
	// when a turn succeeds.
	history []domain.Turn

	// busy is set while a turn is in flight.
	busy bool

	showHelp bool

	// err holds the last failed turn's error.
	err error

	width  int
	height int
	ready  bool
}

// Ensure App implements tea.Model.
var _ tea.Model = (*App)(nil)

// NewApp creates a new chat application with the given ports.
func NewApp(ports *Ports) (*App, error) {
	if err := ports.Validate(); err != nil {
		return nil, fmt.Errorf("creating app: %w", err)
	}

	s := styles.DefaultStyles()
	km := keymap.DefaultKeyMap()
	bar := status.NewBar(s, km)
	bar.SetModel(ports.ModelName)

	return &App{
		ports:      ports,
		ctx:        context.Background(),
		styles:     s,
		keymap:     km,
		input:      input.NewQuestionInput(s),
		transcript: transcript.New(s),
		statusbar:  bar,
	}, nil
}

// WithContext sets the context passed to the agent.
func (a *App) WithContext(ctx context.Context) *App {
	a.ctx = ctx
	return a
}

// Init implements tea.Model.
func (a *App) Init() tea.Cmd {
	return tea.Batch(
		a.input.Init(),
		tea.SetWindowTitle("fedreg - Federal Register chat"),
	)
}

// Update implements tea.Model.
func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.SetDimensions(msg.Width, msg.Height)
		return a, nil

	case tea.KeyMsg:
		return a.handleKey(msg)

	case tea.MouseMsg:
		a.transcript, cmd = a.transcript.Update(msg)
		return a, cmd

	case messages.QuestionSubmitted:
		return a, a.submit(msg.Question)

	case messages.AnswerReceived:
		return a, a.receive(msg)
	}

	a.input, cmd = a.input.Update(msg)
	return a, cmd
}

func (a *App) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch {
	case key.Matches(msg, a.keymap.Quit):
		return a, tea.Quit

	case key.Matches(msg, a.keymap.ScrollUp), key.Matches(msg, a.keymap.ScrollDown):
		a.transcript, cmd = a.transcript.Update(msg)
		return a, cmd

	case key.Matches(msg, a.keymap.Help):
		a.showHelp = !a.showHelp
		a.layout()
		return a, nil

	case key.Matches(msg, a.keymap.Clear):
		if !a.busy {
			a.history = nil
			a.err = nil
			a.transcript.Clear()
			a.statusbar.Clear()
		}
		return a, nil

	case key.Matches(msg, a.keymap.Send):
		if a.busy {
			return a, nil
		}
		return a, a.submit(a.input.Take())
	}

	a.input, cmd = a.input.Update(msg)
	return a, cmd
}

// submit starts a turn. Empty questions and questions sent while busy are dropped.
func (a *App) submit(question string) tea.Cmd {
	question = strings.TrimSpace(question)
	if question == "" || a.busy {
		return nil
	}

	a.busy = true
	a.err = nil
	a.input.Blur()
	a.transcript.Append(transcript.Entry{Kind: transcript.KindQuestion, Text: question})
	a.statusbar.SetState(status.StateThinking)

	return a.ask(question, a.history)
}

// ask runs one agent turn off the update loop.
func (a *App) ask(question string, history []domain.Turn) tea.Cmd {
	agent := a.ports.Agent
	ctx := a.ctx
	return func() tea.Msg {
		result, err := agent.HandleTurn(ctx, history, question)
		return messages.AnswerReceived{Question: question, Result: result, Err: err}
	}
}

func (a *App) receive(msg messages.AnswerReceived) tea.Cmd {
	a.busy = false
	focus := a.input.Focus()

	if msg.Err != nil || msg.Result == nil {
		err := msg.Err
		if err == nil {
			err = domain.ErrLLMUnavailable
		}
		a.err = err
		a.transcript.Append(transcript.Entry{Kind: transcript.KindError, Text: describe(err)})
		a.statusbar.SetError(shortError(err))
		return focus
	}

	a.history = msg.Result.History
	a.transcript.Append(transcript.Entry{
		Kind:     transcript.KindAnswer,
		Text:     msg.Result.Answer,
		Searches: msg.Result.ToolInvocations,
	})
	a.statusbar.AddSearches(msg.Result.ToolInvocations)
	a.statusbar.SetState(status.StateReady)
	return focus
}

// describe turns a failed turn into a message for the transcript.
func describe(err error) string {
	switch {
	case errors.Is(err, domain.ErrLLMTimeout):
		return "The language model took too long to answer. Please try again."
	case errors.Is(err, domain.ErrLLMRejected):
		return "The language model rejected the request. Check the API key and model settings."
	case errors.Is(err, domain.ErrLLMUnavailable):
		return "The language model is unavailable right now. Please try again later."
	case errors.Is(err, domain.ErrMalformedToolCall):
		return "The assistant could not form a valid search for that question. Try rephrasing it."
	case errors.Is(err, context.Canceled):
		return "The request was cancelled."
	default:
		return err.Error()
	}
}

func shortError(err error) string {
	switch {
	case errors.Is(err, domain.ErrLLMTimeout):
		return domain.ErrLLMTimeout.Error()
	case errors.Is(err, domain.ErrLLMRejected):
		return domain.ErrLLMRejected.Error()
	case errors.Is(err, domain.ErrLLMUnavailable):
		return domain.ErrLLMUnavailable.Error()
	case errors.Is(err, domain.ErrMalformedToolCall):
		return domain.ErrMalformedToolCall.Error()
	default:
		return "turn failed"
	}
}

// View implements tea.Model.
func (a *App) View() string {
	if !a.ready {
		return "Initialising..."
	}

	parts := []string{
		a.styles.Title.Render("Federal Register assistant"),
		a.transcript.View(),
		a.input.View(),
	}
	if a.showHelp {
		parts = append(parts, a.helpView())
	}
	parts = append(parts, a.statusbar.View())
	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}

func (a *App) helpView() string {
	groups := a.keymap.FullHelp()
	lines := make([]string, 0, len(groups))
	for _, group := range groups {
		hints := make([]string, 0, len(group))
		for _, b := range group {
			h := b.Help()
			hints = append(hints, fmt.Sprintf("%-7s %s", h.Key, h.Desc))
		}
		lines = append(lines, strings.Join(hints, "    "))
	}
	return a.styles.Muted.Render(strings.Join(lines, "\n"))
}

// layout sizes the transcript to the space left by the fixed rows.
func (a *App) layout() {
	a.input.SetWidth(a.width)
	a.statusbar.SetWidth(a.width)

	fixed := 1 + a.input.Height() + 1
	if a.showHelp {
		fixed += lipgloss.Height(a.helpView())
	}
	a.transcript.SetSize(a.width, a.height-fixed)
}

// Run starts the TUI application.
func (a *App) Run() error {
	p := tea.NewProgram(a, tea.WithAltScreen(), tea.WithMouseCellMotion(), tea.WithContext(a.ctx))
	_, err := p.Run()
	return err
}

// History returns the conversation so far.
func (a *App) History() []domain.Turn {
	return a.history
}

// Busy reports whether a turn is in flight.
func (a *App) Busy() bool {
	return a.busy
}

// Err returns the last turn error, cleared by the next question.
func (a *App) Err() error {
	return a.err
}

// Ready returns whether the app has received its dimensions.
func (a *App) Ready() bool {
	return a.ready
}

// SetDimensions sets the terminal dimensions.
func (a *App) SetDimensions(width, height int) {
	a.width = width
	a.height = height
	a.ready = true
	a.layout()
}
