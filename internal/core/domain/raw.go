package domain

import (
	"encoding/json"
	"time"
)

// RawSnapshot is the unprocessed capture of one day's source listing.
// A snapshot is immutable once written; a re-fetch supersedes it.
type RawSnapshot struct {
	// Day is the publication day the snapshot covers.
	Day time.Time

	// Items are the raw document records in source page order.
	Items []json.RawMessage

	// FetchedAt is when the fetch completed.
	FetchedAt time.Time
}

// SourcePage is one page returned by a document source.
type SourcePage struct {
	// Items are the raw records on this page.
	Items []json.RawMessage

	// NextCursor identifies the following page. Empty when there is none.
	NextCursor string
}
