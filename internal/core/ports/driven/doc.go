// Package driven defines the interfaces that core calls OUT to infrastructure.
//
// These are the "driven" or "secondary" ports in hexagonal architecture.
// Core services depend on these interfaces, and infrastructure adapters
// implement them.
//
// # Required Interfaces
//
//   - DocumentSource: Paginated listing of one day's documents
//   - SnapshotStore: Raw per-day snapshot persistence
//   - DocumentStore: Relational persistence with atomic upsert
//   - DocumentNormaliser: Maps raw items to Document records
//   - ToolCallingLLM: Text or tool-call generation for the agent
//
// # Optional Interfaces
//
// These can be nil - services substitute a no-op:
//
//   - MetricsRecorder: Counters for runs, tool calls and LLM calls
//
// # Import Rules
//
//   - Can Import: domain package only
//   - Cannot Import: Any adapter, connector, or normaliser package
package driven
