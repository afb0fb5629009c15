// Package mcp provides an MCP (Model Context Protocol) server adapter for fedreg.
// It lets AI assistants search the stored Federal Register documents.
package mcp

import "errors"

// ErrMissingSearchTool is returned when the search tool is not provided.
var ErrMissingSearchTool = errors.New("mcp: search tool is required")
