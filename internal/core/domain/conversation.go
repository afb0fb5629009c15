package domain

import "encoding/json"

// Role identifies the author of a conversation turn.
type Role string

const (
	// RoleUser is a message typed by the user.
	RoleUser Role = "user"
	// RoleAssistant is a message produced by the LLM.
	RoleAssistant Role = "assistant"
	// RoleTool is a tool result fed back to the LLM.
	RoleTool Role = "tool"
)

// ToolCall is a structured request by the LLM to invoke a named tool.
type ToolCall struct {
	// ID correlates the call with its tool result turn.
	ID string

	// Name is the requested tool name.
	Name string

	// Arguments is the raw JSON argument object as produced by the LLM.
	// It is untrusted until parsed by the tool.
	Arguments json.RawMessage
}

// Turn is one message in a conversation history.
// Histories are append-only and owned by the caller.
type Turn struct {
	// Role is who produced the turn.
	Role Role

	// Content is the message text. For tool turns it is the JSON envelope.
	Content string

	// ToolCall is set on assistant turns that requested a tool.
	ToolCall *ToolCall

	// ToolCallID links a tool turn to the assistant turn that requested it.
	ToolCallID string

	// ToolName is the tool that produced a tool turn.
	ToolName string
}

// AgentState is a state of the per-turn agent state machine.
type AgentState int

const (
	// StateAwaitingLLMDecision waits for the LLM to answer or request a tool.
	StateAwaitingLLMDecision AgentState = iota
	// StateToolInvoked validates arguments and runs the tool.
	StateToolInvoked
	// StateAwaitingFinalAnswer waits for the answer given the tool result.
	StateAwaitingFinalAnswer
	// StateDone means the turn produced a final answer.
	StateDone
	// StateFailed means the turn ended with an unrecoverable error.
	StateFailed
)

// String returns the state name.
func (s AgentState) String() string {
	switch s {
	case StateAwaitingLLMDecision:
		return "AWAITING_LLM_DECISION"
	case StateToolInvoked:
		return "TOOL_INVOKED"
	case StateAwaitingFinalAnswer:
		return "AWAITING_FINAL_ANSWER"
	case StateDone:
		return "DONE"
	case StateFailed:
		return "FAILED"
	default:
		return "UNKNOWN"
	}
}

// TurnResult is the outcome of one handled user turn.
type TurnResult struct {
	// Answer is the final natural-language answer.
	Answer string

	// History is the input history plus the user turn, any tool exchange,
	// and the final assistant turn.
	History []Turn

	// ToolInvocations counts tool executions in this turn (0 or 1).
	ToolInvocations int

	// IgnoredToolCalls counts tool requests dropped by the one-call policy.
	IgnoredToolCalls int

	// States records the state machine path, for diagnostics.
	States []AgentState
}
