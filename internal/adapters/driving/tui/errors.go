package tui

import "errors"

// ErrMissingAgent is returned when the agent is not provided.
var ErrMissingAgent = errors.New("tui: agent is required")
