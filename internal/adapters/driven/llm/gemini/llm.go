// Package gemini provides a tool-calling LLM adapter for Google Gemini.
package gemini

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"github.com/google/uuid"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"github.com/custodia-labs/fedreg/internal/core/domain"
	"github.com/custodia-labs/fedreg/internal/core/ports/driven"
)

// Ensure LLMService implements the interface.
var _ driven.ToolCallingLLM = (*LLMService)(nil)

// DefaultLLMModel is the default Gemini model.
const DefaultLLMModel = "gemini-1.5-flash"

// Gemini content roles.
const (
	roleUser  = "user"
	roleModel = "model"
)

// LLMConfig holds configuration for the Gemini LLM service.
type LLMConfig struct {
	// APIKey is the Google AI Studio API key (required).
	APIKey string

	// Model is the model to use (default: gemini-1.5-flash).
	Model string

	// Endpoint overrides the API endpoint. Empty uses the SDK default.
	Endpoint string
}

// LLMService generates answers and tool calls using the Gemini API.
type LLMService struct {
	client *genai.Client
	model  string
}

// NewLLMService creates a new Gemini LLM service.
func NewLLMService(ctx context.Context, cfg LLMConfig) (*LLMService, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("gemini: API key is required")
	}
	if cfg.Model == "" {
		cfg.Model = DefaultLLMModel
	}

	opts := []option.ClientOption{option.WithAPIKey(cfg.APIKey)}
	if cfg.Endpoint != "" {
		opts = append(opts, option.WithEndpoint(cfg.Endpoint))
	}

	client, err := genai.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("gemini: create client: %w", err)
	}

	return &LLMService{client: client, model: cfg.Model}, nil
}

// Generate replays the history into a chat session and sends the latest turn.
// A fresh model handle is used per call so concurrent turns do not share tool state.
func (s *LLMService) Generate(ctx context.Context, req driven.GenerateRequest) (*driven.GenerateResponse, error) {
	contents := toContents(req.History)
	if len(contents) == 0 {
		return nil, fmt.Errorf("%w: gemini: empty conversation", domain.ErrInvalidInput)
	}

	model := s.client.GenerativeModel(s.model)
	if req.System != "" {
		model.SystemInstruction = &genai.Content{Parts: []genai.Part{genai.Text(req.System)}}
	}
	if len(req.Tools) > 0 {
		model.Tools = toTools(req.Tools)
	}

	chat := model.StartChat()
	last := contents[len(contents)-1]
	chat.History = contents[:len(contents)-1]

	resp, err := chat.SendMessage(ctx, last.Parts...)
	if err != nil {
		return nil, classify(err)
	}
	return fromResponse(resp)
}

// ModelName returns the name of the LLM model being used.
func (s *LLMService) ModelName() string {
	return s.model
}

// Close releases the underlying client.
func (s *LLMService) Close() error {
	return s.client.Close()
}

// toContents converts history turns into Gemini contents.
func toContents(history []domain.Turn) []*genai.Content {
	contents := make([]*genai.Content, 0, len(history))
	for _, turn := range history {
		switch turn.Role {
		case domain.RoleUser:
			contents = append(contents, &genai.Content{
				Role:  roleUser,
				Parts: []genai.Part{genai.Text(turn.Content)},
			})
		case domain.RoleAssistant:
			var parts []genai.Part
			if turn.Content != "" {
				parts = append(parts, genai.Text(turn.Content))
			}
			if turn.ToolCall != nil {
				parts = append(parts, genai.FunctionCall{
					Name: turn.ToolCall.Name,
					Args: decodeObject(turn.ToolCall.Arguments),
				})
			}
			if len(parts) == 0 {
				continue
			}
			contents = append(contents, &genai.Content{Role: roleModel, Parts: parts})
		case domain.RoleTool:
			name := turn.ToolName
			if name == "" {
				name = domain.SearchToolName
			}
			response := decodeObject([]byte(turn.Content))
			if len(response) == 0 {
				response = map[string]any{"result": turn.Content}
			}
			contents = append(contents, &genai.Content{
				Role: roleUser,
				Parts: []genai.Part{genai.FunctionResponse{
					Name:     name,
					Response: response,
				}},
			})
		}
	}
	return contents
}

// decodeObject decodes a JSON object, returning an empty map when it is not one.
func decodeObject(data []byte) map[string]any {
	out := map[string]any{}
	if len(data) == 0 {
		return out
	}
	if err := json.Unmarshal(data, &out); err != nil {
		return map[string]any{}
	}
	return out
}

// toTools converts provider-neutral tool schemas to Gemini function declarations.
func toTools(schemas []domain.ToolSchema) []*genai.Tool {
	decls := make([]*genai.FunctionDeclaration, 0, len(schemas))
	for _, schema := range schemas {
		props := make(map[string]*genai.Schema, len(schema.Params))
		for _, p := range schema.Params {
			props[p.Name] = paramSchema(p)
		}
		decls = append(decls, &genai.FunctionDeclaration{
			Name:        schema.Name,
			Description: schema.Description,
			Parameters: &genai.Schema{
				Type:       genai.TypeObject,
				Properties: props,
				Required:   schema.Required,
			},
		})
	}
	return []*genai.Tool{{FunctionDeclarations: decls}}
}

func paramSchema(p domain.ToolParam) *genai.Schema {
	switch p.Type {
	case domain.ParamArray:
		return &genai.Schema{
			Type:        genai.TypeArray,
			Description: p.Description,
			Items:       &genai.Schema{Type: genai.TypeString},
		}
	case domain.ParamInteger:
		desc := p.Description
		if p.Maximum > 0 {
			desc = fmt.Sprintf("%s Range %d-%d.", desc, p.Minimum, p.Maximum)
		}
		return &genai.Schema{Type: genai.TypeInteger, Description: desc}
	default:
		s := &genai.Schema{Type: genai.TypeString, Description: p.Description}
		if len(p.Enum) > 0 {
			s.Format = "enum"
			s.Enum = p.Enum
		} else if p.Format != "" {
			s.Description = fmt.Sprintf("%s Format: %s.", p.Description, p.Format)
		}
		return s
	}
}

// fromResponse extracts the answer text and the first function call.
func fromResponse(resp *genai.GenerateContentResponse) (*driven.GenerateResponse, error) {
	if resp == nil || len(resp.Candidates) == 0 {
		return nil, fmt.Errorf("%w: gemini: no response generated", domain.ErrLLMUnavailable)
	}

	candidate := resp.Candidates[0]
	out := &driven.GenerateResponse{}

	if calls := candidate.FunctionCalls(); len(calls) > 0 {
		args, err := json.Marshal(calls[0].Args)
		if err != nil {
			args = []byte("{}")
		}
		out.ToolCall = &domain.ToolCall{
			ID:        uuid.NewString(),
			Name:      calls[0].Name,
			Arguments: args,
		}
	}

	if candidate.Content != nil {
		var b strings.Builder
		for _, part := range candidate.Content.Parts {
			if text, ok := part.(genai.Text); ok {
				b.WriteString(string(text))
			}
		}
		out.Text = b.String()
	}
	return out, nil
}

// classify wraps SDK errors with the domain taxonomy.
func classify(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: gemini: %w", domain.ErrLLMTimeout, err)
	}
	if errors.Is(err, context.Canceled) {
		return err
	}

	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		return fmt.Errorf("%w: gemini error (status %d): %w", statusKind(apiErr.Code), apiErr.Code, err)
	}
	return fmt.Errorf("%w: gemini: %w", domain.ErrLLMUnavailable, err)
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
