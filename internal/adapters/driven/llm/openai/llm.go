// Package openai provides a tool-calling LLM adapter for the OpenAI chat
// completions API and compatible servers.
package openai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	goopenai "github.com/sashabaranov/go-openai"
	"github.com/sashabaranov/go-openai/jsonschema"

	"github.com/custodia-labs/fedreg/internal/core/domain"
	"github.com/custodia-labs/fedreg/internal/core/ports/driven"
)

// Ensure LLMService implements the interface.
var _ driven.ToolCallingLLM = (*LLMService)(nil)

// Default configuration values.
const (
	DefaultBaseURL    = "https://api.openai.com/v1"
	DefaultLLMModel   = "gpt-4o-mini"
	DefaultLLMTimeout = 60 * time.Second
)

// LLMConfig holds configuration for the OpenAI LLM service.
type LLMConfig struct {
	// APIKey is the OpenAI API key (required).
	APIKey string

	// BaseURL is the API base URL (default: https://api.openai.com/v1).
	// Can be changed for Azure OpenAI or compatible APIs.
	BaseURL string

	// Model is the LLM model to use (default: gpt-4o-mini).
	Model string

	// Timeout is the HTTP client timeout (default: 60s).
	Timeout time.Duration
}

// LLMService generates answers and tool calls using the OpenAI API.
type LLMService struct {
	client *goopenai.Client
	model  string
}

// NewLLMService creates a new OpenAI LLM service.
func NewLLMService(cfg LLMConfig) (*LLMService, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("openai: API key is required")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultLLMModel
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultLLMTimeout
	}

	config := goopenai.DefaultConfig(cfg.APIKey)
	config.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	config.HTTPClient = &http.Client{Timeout: cfg.Timeout}

	return &LLMService{
		client: goopenai.NewClientWithConfig(config),
		model:  cfg.Model,
	}, nil
}

// Generate sends the conversation and tool declarations to the chat
// completions endpoint.
func (s *LLMService) Generate(ctx context.Context, req driven.GenerateRequest) (*driven.GenerateResponse, error) {
	chatReq := goopenai.ChatCompletionRequest{
		Model:    s.model,
		Messages: toMessages(req.System, req.History),
	}
	if len(req.Tools) > 0 {
		chatReq.Tools = toTools(req.Tools)
	}

	resp, err := s.client.CreateChatCompletion(ctx, chatReq)
	if err != nil {
		return nil, classify(err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("%w: openai: no response choices returned", domain.ErrLLMUnavailable)
	}

	msg := resp.Choices[0].Message
	out := &driven.GenerateResponse{Text: msg.Content}
	for _, call := range msg.ToolCalls {
		if call.Type != "" && call.Type != goopenai.ToolTypeFunction {
			continue
		}
		id := call.ID
		if id == "" {
			id = uuid.NewString()
		}
		out.ToolCall = &domain.ToolCall{
			ID:        id,
			Name:      call.Function.Name,
			Arguments: []byte(call.Function.Arguments),
		}
		break
	}
	return out, nil
}

// ModelName returns the name of the LLM model being used.
func (s *LLMService) ModelName() string {
	return s.model
}

// Close releases resources.
func (s *LLMService) Close() error {
	// HTTP client doesn't need explicit cleanup
	return nil
}

// toMessages converts the system instruction and history into chat messages.
func toMessages(system string, history []domain.Turn) []goopenai.ChatCompletionMessage {
	messages := make([]goopenai.ChatCompletionMessage, 0, len(history)+1)
	if system != "" {
		messages = append(messages, goopenai.ChatCompletionMessage{
			Role:    goopenai.ChatMessageRoleSystem,
			Content: system,
		})
	}

	for _, turn := range history {
		switch turn.Role {
		case domain.RoleUser:
			messages = append(messages, goopenai.ChatCompletionMessage{
				Role:    goopenai.ChatMessageRoleUser,
				Content: turn.Content,
			})
		case domain.RoleAssistant:
			msg := goopenai.ChatCompletionMessage{
				Role:    goopenai.ChatMessageRoleAssistant,
				Content: turn.Content,
			}
			if turn.ToolCall != nil {
				msg.ToolCalls = []goopenai.ToolCall{{
					ID:   turn.ToolCall.ID,
					Type: goopenai.ToolTypeFunction,
					Function: goopenai.FunctionCall{
						Name:      turn.ToolCall.Name,
						Arguments: string(turn.ToolCall.Arguments),
					},
				}}
			}
			messages = append(messages, msg)
		case domain.RoleTool:
			messages = append(messages, goopenai.ChatCompletionMessage{
				Role:       goopenai.ChatMessageRoleTool,
				Content:    turn.Content,
				ToolCallID: turn.ToolCallID,
			})
		}
	}
	return messages
}

// toTools converts provider-neutral tool schemas to OpenAI function tools.
func toTools(schemas []domain.ToolSchema) []goopenai.Tool {
	tools := make([]goopenai.Tool, 0, len(schemas))
	for _, schema := range schemas {
		tools = append(tools, goopenai.Tool{
			Type: goopenai.ToolTypeFunction,
			Function: &goopenai.FunctionDefinition{
				Name:        schema.Name,
				Description: schema.Description,
				Parameters:  toDefinition(schema),
			},
		})
	}
	return tools
}

// toDefinition builds the JSON schema object for a tool's parameters.
func toDefinition(schema domain.ToolSchema) jsonschema.Definition {
	props := make(map[string]jsonschema.Definition, len(schema.Params))
	for _, p := range schema.Params {
		props[p.Name] = paramDefinition(p)
	}
	required := schema.Required
	if required == nil {
		required = []string{}
	}
	return jsonschema.Definition{
		Type:       jsonschema.Object,
		Properties: props,
		Required:   required,
	}
}

func paramDefinition(p domain.ToolParam) jsonschema.Definition {
	desc := p.Description
	if p.Format != "" {
		desc = fmt.Sprintf("%s Format: %s.", desc, p.Format)
	}

	switch p.Type {
	case domain.ParamArray:
		return jsonschema.Definition{
			Type:        jsonschema.Array,
			Description: desc,
			Items:       &jsonschema.Definition{Type: jsonschema.String},
		}
	case domain.ParamInteger:
		if p.Maximum > 0 {
			desc = fmt.Sprintf("%s Range %d-%d.", desc, p.Minimum, p.Maximum)
		}
		return jsonschema.Definition{Type: jsonschema.Integer, Description: desc}
	default:
		return jsonschema.Definition{
			Type:        jsonschema.String,
			Description: desc,
			Enum:        p.Enum,
		}
	}
}

// classify wraps SDK errors with the domain taxonomy.
func classify(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: openai: %w", domain.ErrLLMTimeout, err)
	}
	if errors.Is(err, context.Canceled) {
		return err
	}

	var apiErr *goopenai.APIError
	if errors.As(err, &apiErr) {
		return fmt.Errorf("%w: openai error (status %d): %s",
			statusKind(apiErr.HTTPStatusCode), apiErr.HTTPStatusCode, apiErr.Message)
	}

	var reqErr *goopenai.RequestError
	if errors.As(err, &reqErr) {
		return fmt.Errorf("%w: openai request failed (status %d): %w",
			statusKind(reqErr.HTTPStatusCode), reqErr.HTTPStatusCode, reqErr.Err)
	}

	return fmt.Errorf("%w: openai: %w", domain.ErrLLMUnavailable, err)
}

// statusKind maps an HTTP status to the error kind. Only request
// timeouts, rate limiting and server errors are worth retrying.
func statusKind(code int) error {
	switch {
	case code == 0,
		code == http.StatusRequestTimeout,
		code == http.StatusTooManyRequests,
		code >= http.StatusInternalServerError:
		return domain.ErrLLMUnavailable
	default:
		return domain.ErrLLMRejected
	}
}
