package domain

import (
	"strconv"
	"strings"
	"time"
)

// SearchToolName is the name under which the search tool is declared to LLMs.
const SearchToolName = "search_documents"

// NoMatchMessage is reported to the LLM when a search finds nothing.
const NoMatchMessage = "No documents found matching your criteria."

// SearchArgs is the validated argument set of the search tool.
// Values are constructed only through the tool's parse-and-validate step.
type SearchArgs struct {
	// Keywords are matched against title and abstract. Any keyword may match.
	Keywords []string

	// DateFrom is the inclusive lower publication-date bound.
	DateFrom *time.Time

	// DateTo is the inclusive upper publication-date bound.
	DateTo *time.Time

	// DocumentType restricts results to one type. Empty means any.
	DocumentType DocumentType

	// Agency is a case-insensitive substring of the agency name.
	Agency string

	// Limit is the maximum number of rows, already clamped.
	Limit int
}

// HasFilter reports whether at least one narrowing filter is present.
func (a SearchArgs) HasFilter() bool {
	return len(a.Keywords) > 0 || a.DateFrom != nil || a.DateTo != nil ||
		a.DocumentType != "" || a.Agency != ""
}

// CacheKey returns a canonical string identifying the argument set.
func (a SearchArgs) CacheKey() string {
	var b strings.Builder
	b.WriteString(strings.ToLower(strings.Join(a.Keywords, "\x1f")))
	b.WriteByte('|')
	if a.DateFrom != nil {
		b.WriteString(DayKey(*a.DateFrom))
	}
	b.WriteByte('|')
	if a.DateTo != nil {
		b.WriteString(DayKey(*a.DateTo))
	}
	b.WriteByte('|')
	b.WriteString(string(a.DocumentType))
	b.WriteByte('|')
	b.WriteString(strings.ToLower(a.Agency))
	b.WriteByte('|')
	b.WriteString(strconv.Itoa(a.Limit))
	return b.String()
}

// SearchResult is the bounded outcome of one search.
type SearchResult struct {
	// Documents are the matched records, newest publication first.
	Documents []Document

	// Limit is the effective limit the query ran with.
	Limit int

	// NoMatch is true when the query succeeded but matched nothing.
	// It is distinct from an error.
	NoMatch bool
}

// ParamType is the JSON type of a tool parameter.
type ParamType string

const (
	// ParamString is a JSON string.
	ParamString ParamType = "string"
	// ParamInteger is a JSON integer.
	ParamInteger ParamType = "integer"
	// ParamArray is a JSON array of strings.
	ParamArray ParamType = "array"
)

// ToolParam describes one tool argument.
type ToolParam struct {
	Name        string
	Type        ParamType
	Description string

	// Enum restricts string values. Empty means unrestricted.
	Enum []string

	// Format is an optional string format hint (e.g. "date").
	Format string

	// Minimum and Maximum bound integer values when non-zero.
	Minimum int
	Maximum int
}

// ToolSchema is the provider-neutral declaration of a tool.
// LLM adapters translate it into their native schema types.
type ToolSchema struct {
	Name        string
	Description string
	Params      []ToolParam

	// Required lists parameter names that must be present.
	Required []string
}
