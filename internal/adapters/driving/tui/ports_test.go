package tui

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/custodia-labs/fedreg/internal/core/domain"
)

// MockAgent implements driving.Agent for testing.
type MockAgent struct {
	mu        sync.Mutex
	Answer    string
	Searches  int
	Err       error
	Questions []string
	Histories [][]domain.Turn
}

func (m *MockAgent) HandleTurn(_ context.Context, history []domain.Turn, userMessage string) (*domain.TurnResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Questions = append(m.Questions, userMessage)
	m.Histories = append(m.Histories, history)
	if m.Err != nil {
		return nil, m.Err
	}

	out := make([]domain.Turn, 0, len(history)+2)
	out = append(out, history...)
	out = append(out,
		domain.Turn{Role: domain.RoleUser, Content: userMessage},
		domain.Turn{Role: domain.RoleAssistant, Content: m.Answer},
	)
	return &domain.TurnResult{Answer: m.Answer, History: out, ToolInvocations: m.Searches}, nil
}

func TestPorts_Validate(t *testing.T) {
	assert.NoError(t, (&Ports{Agent: &MockAgent{}}).Validate())
	assert.ErrorIs(t, (&Ports{}).Validate(), ErrMissingAgent)

	var nilPorts *Ports
	assert.ErrorIs(t, nilPorts.Validate(), ErrMissingAgent)
}

func TestErrMissingAgent_Message(t *testing.T) {
	assert.Contains(t, ErrMissingAgent.Error(), "agent")
}
