// Package federalregister implements the document source for the
// Federal Register public API (https://www.federalregister.gov/developers).
//
// The listing endpoint is paginated by page number; the page number is
// carried as an opaque cursor so the core fetcher stays source-agnostic.
// No authentication is required. Requests are paced by a token bucket and
// a 429 response imposes a cooldown on every subsequent request.
package federalregister
