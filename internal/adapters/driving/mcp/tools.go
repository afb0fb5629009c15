package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/custodia-labs/fedreg/internal/core/domain"
)

// SearchInput is the input schema for the search tool.
type SearchInput struct {
	Keywords     []string `json:"keywords,omitempty" jsonschema:"terms matched against title and abstract; any term may match"`
	DateFrom     string   `json:"date_from,omitempty" jsonschema:"earliest publication date, inclusive (YYYY-MM-DD)"`
	DateTo       string   `json:"date_to,omitempty" jsonschema:"latest publication date, inclusive (YYYY-MM-DD)"`
	DocumentType string   `json:"document_type,omitempty" jsonschema:"Rule, Proposed Rule, Notice or Presidential Document"`
	Agency       string   `json:"agency,omitempty" jsonschema:"part of the issuing agency name"`
	Limit        int      `json:"limit,omitempty" jsonschema:"maximum number of results (default 5, capped server-side)"`
}

// SearchOutput is the output schema for the search tool.
type SearchOutput struct {
	Results []domain.DocumentSummary `json:"results"`
	Count   int                      `json:"count"`
	Message string                   `json:"message,omitempty"`
}

// AskInput is the input schema for the ask tool.
type AskInput struct {
	Question string `json:"question" jsonschema:"a natural-language question about recent Federal Register documents"`
}

// AskOutput is the output schema for the ask tool.
type AskOutput struct {
	Answer          string `json:"answer"`
	ToolInvocations int    `json:"tool_invocations"`
}

// registerTools registers all tool handlers with the MCP server.
func (s *Server) registerTools() {
	schema := s.ports.Search.Schema()
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        schema.Name,
		Description: schema.Description,
	}, s.handleSearch)

	if s.ports.Agent != nil {
		mcp.AddTool(s.server, &mcp.Tool{
			Name:        "ask_federal_register",
			Description: "Answer a question about Federal Register documents using the stored records",
		}, s.handleAsk)
	}
}

// handleSearch handles the search tool invocation. Input goes through the
// same parse-and-validate step as LLM tool calls.
func (s *Server) handleSearch(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input SearchInput,
) (*mcp.CallToolResult, SearchOutput, error) {
	raw, err := json.Marshal(input)
	if err != nil {
		return nil, SearchOutput{}, fmt.Errorf("encoding arguments: %w", err)
	}

	args, err := s.ports.Search.Parse(raw)
	if err != nil {
		return nil, SearchOutput{}, err
	}

	res, err := s.ports.Search.Search(ctx, args)
	if err != nil {
		return nil, SearchOutput{}, err
	}

	env := domain.ResultEnvelope(res)
	output := SearchOutput{
		Results: env.Result,
		Count:   len(env.Result),
		Message: env.Message,
	}
	return nil, output, nil
}

// handleAsk runs one agent turn with an empty history.
func (s *Server) handleAsk(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input AskInput,
) (*mcp.CallToolResult, AskOutput, error) {
	question := strings.TrimSpace(input.Question)
	if question == "" {
		return nil, AskOutput{}, errors.New("question is required")
	}

	result, err := s.ports.Agent.HandleTurn(ctx, nil, question)
	if err != nil {
		return nil, AskOutput{}, err
	}

	return nil, AskOutput{
		Answer:          result.Answer,
		ToolInvocations: result.ToolInvocations,
	}, nil
}
