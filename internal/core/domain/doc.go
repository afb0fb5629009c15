// Package domain defines the core business entities for fedreg.
//
// This package is part of the hexagonal architecture's innermost layer.
// It has NO external dependencies and defines the fundamental types:
//
//   - Document: A persisted Federal Register document record
//   - RawSnapshot: The unprocessed capture of one day's listing
//   - SearchArgs: The validated argument set of the search tool
//   - Turn: One message in a conversation history
//   - RunSummary: The outcome of one pipeline invocation
//
// # Architectural Position
//
// Domain is at the centre of the hexagon. It may only import
// the Go standard library. All other packages depend on domain,
// never the reverse.
//
// # Import Rules
//
//   - Can Import: Standard library only
//   - Cannot Import: Any internal/ package, any external dependency
package domain
