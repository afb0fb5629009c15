package mcp

import (
	"context"
	"encoding/json"

	"github.com/custodia-labs/fedreg/internal/core/domain"
)

// mockSearchTool is a mock implementation of driving.SearchTool.
type mockSearchTool struct {
	parsed   []json.RawMessage
	args     domain.SearchArgs
	parseErr error
	result   *domain.SearchResult
	err      error
}

func (m *mockSearchTool) Schema() domain.ToolSchema {
	return domain.ToolSchema{Name: domain.SearchToolName, Description: "search documents"}
}

func (m *mockSearchTool) Parse(raw json.RawMessage) (domain.SearchArgs, error) {
	m.parsed = append(m.parsed, raw)
	return m.args, m.parseErr
}

func (m *mockSearchTool) Normalise(args domain.SearchArgs) (domain.SearchArgs, error) {
	return args, m.parseErr
}

func (m *mockSearchTool) Search(_ context.Context, _ domain.SearchArgs) (*domain.SearchResult, error) {
	if m.err != nil {
		return nil, m.err
	}
	if m.result == nil {
		return &domain.SearchResult{Documents: []domain.Document{}, NoMatch: true}, nil
	}
	return m.result, nil
}

// mockLookup is a mock implementation of driving.DocumentLookup.
type mockLookup struct {
	docs  map[string]*domain.Document
	count int
	err   error
}

func (m *mockLookup) Get(_ context.Context, id string) (*domain.Document, error) {
	if m.err != nil {
		return nil, m.err
	}
	d, ok := m.docs[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return d, nil
}

func (m *mockLookup) Count(_ context.Context) (int, error) {
	return m.count, m.err
}

// mockAgent is a mock implementation of driving.Agent.
type mockAgent struct {
	questions []string
	answer    string
	err       error
}

func (m *mockAgent) HandleTurn(_ context.Context, _ []domain.Turn, msg string) (*domain.TurnResult, error) {
	m.questions = append(m.questions, msg)
	if m.err != nil {
		return nil, m.err
	}
	return &domain.TurnResult{Answer: m.answer, ToolInvocations: 1}, nil
}
