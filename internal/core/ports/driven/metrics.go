package driven

import "time"

// MetricsRecorder receives pipeline and agent events.
type MetricsRecorder interface {
	// DayFetched records one day's fetch outcome.
	DayFetched(ok bool, items int)

	// RecordsUpserted records the outcome of one committed batch.
	RecordsUpserted(inserted, updated, unchanged, skipped int)

	// ToolInvoked records a tool invocation outcome ("ok", "empty", "invalid", "error").
	ToolInvoked(outcome string)

	// LLMCalled records one LLM call.
	LLMCalled(model string, duration time.Duration, err error)
}
