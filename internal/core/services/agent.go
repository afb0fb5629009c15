package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/custodia-labs/fedreg/internal/core/domain"
	"github.com/custodia-labs/fedreg/internal/core/ports/driven"
	"github.com/custodia-labs/fedreg/internal/core/ports/driving"
	"github.com/custodia-labs/fedreg/internal/logger"
	"github.com/custodia-labs/fedreg/internal/retry"
)

// Ensure AgentService implements the interface.
var _ driving.Agent = (*AgentService)(nil)

// Agent defaults.
const (
	DefaultLLMTimeout        = 60 * time.Second
	DefaultMaxReformulations = 2
)

// reformulatePrompt is sent back when a tool call cannot be decoded.
const reformulatePrompt = "The tool arguments could not be decoded. " +
	"Call search_documents again with a single valid JSON object."

// AgentConfig bounds one turn.
type AgentConfig struct {
	// LLMTimeout bounds each LLM call attempt.
	LLMTimeout time.Duration

	// MaxReformulations is how many malformed tool calls are answered with
	// a request to try again before the turn fails.
	MaxReformulations int

	// Retry is applied to every LLM call.
	Retry retry.Policy

	// SystemPrompt overrides the built-in instruction. It may contain
	// {{today}}, which is replaced with the current date.
	SystemPrompt string
}

// IsTransientLLMError reports whether an LLM call is worth retrying.
func IsTransientLLMError(err error) bool {
	return errors.Is(err, domain.ErrLLMUnavailable) || errors.Is(err, domain.ErrLLMTimeout)
}

// AgentService drives a user turn through at most one search tool call.
type AgentService struct {
	llm     driven.ToolCallingLLM
	tool    driving.SearchTool
	cfg     AgentConfig
	metrics driven.MetricsRecorder
	now     func() time.Time
}

// NewAgentService creates the agent. metrics may be nil.
func NewAgentService(
	llm driven.ToolCallingLLM,
	tool driving.SearchTool,
	cfg AgentConfig,
	metrics driven.MetricsRecorder,
) *AgentService {
	if cfg.LLMTimeout <= 0 {
		cfg.LLMTimeout = DefaultLLMTimeout
	}
	if cfg.MaxReformulations < 0 {
		cfg.MaxReformulations = 0
	}
	if cfg.Retry.Retryable == nil {
		cfg.Retry.Retryable = IsTransientLLMError
	}
	return &AgentService{
		llm:     llm,
		tool:    tool,
		cfg:     cfg,
		metrics: metricsOrNop(metrics),
		now:     time.Now,
	}
}

// turn is the working state of one HandleTurn call.
type turn struct {
	system  string
	tools   []domain.ToolSchema
	history []domain.Turn
	result  domain.TurnResult
}

func (t *turn) enter(s domain.AgentState) {
	t.result.States = append(t.result.States, s)
}

func (t *turn) fail(err error) error {
	t.enter(domain.StateFailed)
	return &domain.TurnError{States: t.result.States, Err: err}
}

// HandleTurn answers userMessage given history.
//
// The LLM first either answers directly or requests search_documents. A
// requested search runs once; its result (or error) is fed back and the
// next reply is the final answer. A further tool request in that reply is
// ignored and the answer is built from the result already obtained.
func (a *AgentService) HandleTurn(
	ctx context.Context,
	history []domain.Turn,
	userMessage string,
) (*domain.TurnResult, error) {
	userMessage = strings.TrimSpace(userMessage)
	if userMessage == "" {
		return nil, fmt.Errorf("%w: empty message", domain.ErrInvalidInput)
	}

	t := &turn{
		system: a.systemPrompt(),
		tools:  []domain.ToolSchema{a.tool.Schema()},
	}
	t.history = make([]domain.Turn, 0, len(history)+4)
	t.history = append(t.history, history...)
	t.history = append(t.history, domain.Turn{Role: domain.RoleUser, Content: userMessage})

	logger.Section("Agent Turn")
	logger.Debug("History: %d turn(s)", len(history))

	var envelope domain.ToolEnvelope

	for reformulations := 0; ; reformulations++ {
		t.enter(domain.StateAwaitingLLMDecision)

		resp, err := a.generate(ctx, t)
		if err != nil {
			return nil, t.fail(err)
		}

		if resp.ToolCall == nil {
			return a.done(t, resp.Text, nil)
		}

		call := resp.ToolCall
		t.enter(domain.StateToolInvoked)

		var searched bool
		var malformed error
		envelope, searched, malformed = a.invoke(ctx, call)
		if malformed == nil {
			if searched {
				t.result.ToolInvocations = 1
			}
			t.appendToolExchange(resp.Text, call, envelope)
			break
		}

		if reformulations >= a.cfg.MaxReformulations {
			logger.Warn("Tool call still malformed after %d reformulation(s)", reformulations)
			return nil, t.fail(fmt.Errorf("after %d reformulation(s): %w", reformulations, malformed))
		}
		logger.Debug("Malformed tool call, asking for reformulation (%d/%d)",
			reformulations+1, a.cfg.MaxReformulations)
		t.appendToolExchange(resp.Text, call,
			domain.ToolEnvelope{Error: envelope.Error + ". " + reformulatePrompt})
	}

	t.enter(domain.StateAwaitingFinalAnswer)

	resp, err := a.generate(ctx, t)
	if err != nil {
		return nil, t.fail(err)
	}
	if resp.ToolCall != nil {
		t.result.IgnoredToolCalls++
		logger.Info("Ignoring second tool call %q: one tool call per turn", resp.ToolCall.Name)
	}

	return a.done(t, resp.Text, &envelope)
}

// invoke runs the tool for call and returns the envelope for the tool turn.
// searched reports whether the store query was executed. The error is
// non-nil only when the arguments could not be decoded at all; every other
// failure is reported to the model through the envelope.
func (a *AgentService) invoke(
	ctx context.Context,
	call *domain.ToolCall,
) (envelope domain.ToolEnvelope, searched bool, err error) {
	if call.Name != domain.SearchToolName {
		logger.Warn("LLM requested unknown tool %q", call.Name)
		a.metrics.ToolInvoked(OutcomeInvalid)
		return domain.ToolEnvelope{Error: fmt.Sprintf("tool %q not found; the only tool is %s",
			call.Name, domain.SearchToolName)}, false, nil
	}

	args, err := a.tool.Parse(call.Arguments)
	if err != nil {
		a.metrics.ToolInvoked(OutcomeInvalid)
		if errors.Is(err, domain.ErrMalformedToolCall) {
			return domain.ErrorEnvelope(err), false, err
		}
		logger.Debug("Tool arguments rejected: %v", err)
		return domain.ErrorEnvelope(err), false, nil
	}

	res, err := a.tool.Search(ctx, args)
	if err != nil {
		if errors.Is(err, domain.ErrValidation) {
			return domain.ErrorEnvelope(err), false, nil
		}
		return domain.ErrorEnvelope(err), true, nil
	}

	logger.Debug("Tool returned %d document(s)", len(res.Documents))
	return domain.ResultEnvelope(res), true, nil
}

func (t *turn) appendToolExchange(text string, call *domain.ToolCall, envelope domain.ToolEnvelope) {
	t.history = append(t.history,
		domain.Turn{Role: domain.RoleAssistant, Content: text, ToolCall: call},
		domain.Turn{
			Role:       domain.RoleTool,
			Content:    envelope.JSON(),
			ToolCallID: call.ID,
			ToolName:   call.Name,
		},
	)
}

// done records the final answer. An empty reply after a tool exchange is
// replaced with a summary of the envelope.
func (a *AgentService) done(t *turn, text string, envelope *domain.ToolEnvelope) (*domain.TurnResult, error) {
	answer := strings.TrimSpace(text)
	if answer == "" {
		if envelope == nil {
			return nil, t.fail(fmt.Errorf("%w: empty response", domain.ErrLLMUnavailable))
		}
		answer = fallbackAnswer(*envelope)
	}

	t.history = append(t.history, domain.Turn{Role: domain.RoleAssistant, Content: answer})
	t.enter(domain.StateDone)

	t.result.Answer = answer
	t.result.History = t.history
	return &t.result, nil
}

// generate calls the LLM under the retry policy with a per-attempt timeout.
func (a *AgentService) generate(ctx context.Context, t *turn) (*driven.GenerateResponse, error) {
	req := driven.GenerateRequest{System: t.system, History: t.history, Tools: t.tools}
	model := a.llm.ModelName()

	var resp *driven.GenerateResponse
	err := a.cfg.Retry.Do(ctx, func(ctx context.Context, attempt int) error {
		callCtx, cancel := context.WithTimeout(ctx, a.cfg.LLMTimeout)
		defer cancel()

		start := time.Now()
		r, err := a.llm.Generate(callCtx, req)
		if err != nil && errors.Is(callCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
			err = fmt.Errorf("%w after %s: %w", domain.ErrLLMTimeout, a.cfg.LLMTimeout, err)
		}
		a.metrics.LLMCalled(model, time.Since(start), err)

		if err != nil {
			logger.Debug("LLM call attempt %d failed: %v", attempt, err)
			return err
		}
		resp = r
		return nil
	})
	if err != nil {
		if errors.Is(err, domain.ErrLLMTimeout) ||
			errors.Is(err, domain.ErrLLMUnavailable) ||
			errors.Is(err, domain.ErrLLMRejected) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %w", domain.ErrLLMUnavailable, err)
	}
	return resp, nil
}

func (a *AgentService) systemPrompt() string {
	today := domain.DayKey(a.now())
	if a.cfg.SystemPrompt != "" {
		return strings.ReplaceAll(a.cfg.SystemPrompt, "{{today}}", today)
	}
	return strings.ReplaceAll(defaultSystemPrompt, "{{today}}", today)
}

const defaultSystemPrompt = `You are an assistant that searches and explains U.S. Federal Register documents using the search_documents tool. Today's date is {{today}}.

- Combine details from the whole conversation into a single tool call. Not every parameter needs a value.
- Convert relative dates such as "this month" or "April 2025" into date_from and date_to (YYYY-MM-DD).
- Use document_type "Presidential Document" for executive orders and presidential documents. Use the user's type when they name one. Otherwise omit document_type so the search stays broad.
- After a search, give a short overview, then list the key documents with title, publication date, agency, why it is relevant, and its URL.
- If nothing is found, say which parameters you searched with and suggest how to broaden the search.
- If the search is unavailable, say so. Never invent documents.`

// fallbackAnswer renders an envelope as the final answer when the model
// returns no text.
func fallbackAnswer(env domain.ToolEnvelope) string {
	if env.IsError() {
		return "I couldn't complete the search: " + env.Error
	}
	if len(env.Result) == 0 {
		return domain.NoMatchMessage
	}

	var b strings.Builder
	fmt.Fprintf(&b, "I found %d matching document(s):\n", len(env.Result))
	for _, d := range env.Result {
		fmt.Fprintf(&b, "- %s (%s", d.Title, d.PublicationDate)
		if d.Agency != "" {
			fmt.Fprintf(&b, ", %s", d.Agency)
		}
		b.WriteString(")")
		if d.HTMLURL != "" {
			fmt.Fprintf(&b, " %s", d.HTMLURL)
		}
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}
