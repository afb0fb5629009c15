// Package tui provides an interactive chat interface over the agent.
// It implements a driving adapter following hexagonal architecture principles.
package tui

import (
	"github.com/custodia-labs/fedreg/internal/core/ports/driving"
)

// Ports aggregates the driving ports the TUI needs.
type Ports struct {
	// Agent answers each question (required).
	Agent driving.Agent

	// ModelName is shown in the status bar. Optional.
	ModelName string
}

// Validate ensures all required ports are set.
func (p *Ports) Validate() error {
	if p == nil || p.Agent == nil {
		return ErrMissingAgent
	}
	return nil
}
