package domain

import "time"

// RunRequest parameterises one pipeline invocation.
type RunRequest struct {
	// WindowDays is the number of days ending at Reference to fetch.
	// Zero uses the configured default.
	WindowDays int

	// Reference is the newest day of the window. Zero means today (UTC).
	Reference time.Time

	// SkipFetch runs only the Normalizer/Upserter over existing snapshots.
	SkipFetch bool
}

// DayFetch is the fetch outcome for one calendar day.
type DayFetch struct {
	// Day is the publication day.
	Day time.Time

	// Items is the number of raw items captured.
	Items int

	// Pages is the number of pages requested.
	Pages int

	// Err is non-nil when the day failed after retries.
	Err error
}

// OK reports whether the day was fetched and its snapshot written.
func (d DayFetch) OK() bool {
	return d.Err == nil
}

// UpsertCounts tallies the outcome of writing records to the store.
type UpsertCounts struct {
	// Inserted counts records not previously stored.
	Inserted int

	// Updated counts stored records whose content changed.
	Updated int

	// Unchanged counts stored records seen again with identical content.
	// Only their last_seen_at is refreshed.
	Unchanged int
}

// Add accumulates other into c.
func (c *UpsertCounts) Add(other UpsertCounts) {
	c.Inserted += other.Inserted
	c.Updated += other.Updated
	c.Unchanged += other.Unchanged
}

// IngestReport is the outcome of running snapshots through the upserter.
type IngestReport struct {
	UpsertCounts

	// Snapshots is the number of snapshots committed.
	Snapshots int

	// Skipped counts malformed items dropped during normalisation.
	Skipped int

	// Errors are batch-level failures. Each failed batch was rolled back.
	Errors []error
}

// RunSummary is the structured report of one pipeline invocation.
type RunSummary struct {
	// RunID identifies the invocation in logs and metrics.
	RunID string `json:"run_id"`

	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`

	// WindowDays is the effective window size.
	WindowDays int `json:"window_days"`

	// DaysAttempted is the number of days the fetcher tried.
	DaysAttempted int `json:"days_attempted"`

	// DaysOK is the number of days fetched and snapshotted.
	DaysOK int `json:"days_ok"`

	// DaysFailed is the number of days that failed after retries.
	DaysFailed int `json:"days_failed"`

	// FailedDays lists the failed days as YYYY-MM-DD.
	FailedDays []string `json:"failed_days,omitempty"`

	// SnapshotsIngested is the number of snapshots committed to the store.
	SnapshotsIngested int `json:"snapshots_ingested"`

	Inserted  int `json:"inserted"`
	Updated   int `json:"updated"`
	Unchanged int `json:"unchanged"`
	Skipped   int `json:"skipped"`

	// Errors lists every error encountered, fetch and store alike.
	Errors []string `json:"errors,omitempty"`
}
