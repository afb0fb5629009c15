package mcp

import (
	"github.com/custodia-labs/fedreg/internal/core/ports/driving"
)

// Ports aggregates all driving port interfaces required by the MCP server.
// This provides a single injection point for dependency injection.
type Ports struct {
	// Search runs validated document searches.
	Search driving.SearchTool

	// Documents reads single records for resources. Optional.
	Documents driving.DocumentLookup

	// Agent answers questions end to end. Optional; the ask tool is
	// registered only when set.
	Agent driving.Agent
}

// Validate ensures all required ports are set.
// Returns an error if any required port is nil.
func (p *Ports) Validate() error {
	if p.Search == nil {
		return ErrMissingSearchTool
	}
	return nil
}
