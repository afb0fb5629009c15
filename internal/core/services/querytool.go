package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/custodia-labs/fedreg/internal/core/domain"
	"github.com/custodia-labs/fedreg/internal/core/ports/driven"
	"github.com/custodia-labs/fedreg/internal/core/ports/driving"
	"github.com/custodia-labs/fedreg/internal/logger"
)

// Ensure QueryTool implements the interface.
var (
	_ driving.SearchTool     = (*QueryTool)(nil)
	_ driving.DocumentLookup = (*QueryTool)(nil)
)

// Query tool limits.
const (
	DefaultSearchLimit = 5
	MaxSearchLimit     = 50
	maxKeywords        = 10
	maxTermLength      = 200
)

// Tool outcomes reported to metrics.
const (
	OutcomeOK      = "ok"
	OutcomeEmpty   = "empty"
	OutcomeInvalid = "invalid"
	OutcomeError   = "error"
)

// QueryToolConfig bounds the result size.
type QueryToolConfig struct {
	// DefaultLimit applies when no limit is requested.
	DefaultLimit int

	// MaxLimit is the hard cap regardless of the requested limit.
	MaxLimit int
}

// QueryTool validates untrusted search arguments and runs them against the
// document store.
type QueryTool struct {
	store   driven.DocumentStore
	cfg     QueryToolConfig
	metrics driven.MetricsRecorder
}

// NewQueryTool creates the search tool. metrics may be nil.
func NewQueryTool(store driven.DocumentStore, cfg QueryToolConfig, metrics driven.MetricsRecorder) *QueryTool {
	if cfg.MaxLimit <= 0 {
		cfg.MaxLimit = MaxSearchLimit
	}
	if cfg.DefaultLimit <= 0 {
		cfg.DefaultLimit = DefaultSearchLimit
	}
	if cfg.DefaultLimit > cfg.MaxLimit {
		cfg.DefaultLimit = cfg.MaxLimit
	}
	return &QueryTool{store: store, cfg: cfg, metrics: metricsOrNop(metrics)}
}

// Schema returns the search_documents declaration.
func (q *QueryTool) Schema() domain.ToolSchema {
	types := make([]string, len(domain.DocumentTypes))
	for i, t := range domain.DocumentTypes {
		types[i] = string(t)
	}

	return domain.ToolSchema{
		Name: domain.SearchToolName,
		Description: "Searches a database of U.S. Federal Register documents (rules, proposed rules, " +
			"notices and presidential documents such as executive orders). Combine details the user " +
			"gave across the conversation into one call. Provide at least one of keywords, a date " +
			"bound, document_type or agency.",
		Params: []domain.ToolParam{
			{
				Name:        "keywords",
				Type:        domain.ParamArray,
				Description: "Terms matched against title and abstract. A document matching any term is returned.",
			},
			{
				Name:        "date_from",
				Type:        domain.ParamString,
				Format:      "date",
				Description: "Earliest publication date, inclusive (YYYY-MM-DD).",
			},
			{
				Name:        "date_to",
				Type:        domain.ParamString,
				Format:      "date",
				Description: "Latest publication date, inclusive (YYYY-MM-DD).",
			},
			{
				Name:        "document_type",
				Type:        domain.ParamString,
				Enum:        types,
				Description: "Restrict to one document type. Omit for a broad search.",
			},
			{
				Name:        "agency",
				Type:        domain.ParamString,
				Description: "Part of the issuing agency name, e.g. 'Environmental Protection Agency'.",
			},
			{
				Name: "limit",
				Type: domain.ParamInteger,
				Description: fmt.Sprintf("Maximum documents to return. Default %d, at most %d.",
					q.cfg.DefaultLimit, q.cfg.MaxLimit),
				Minimum: 1,
				Maximum: q.cfg.MaxLimit,
			},
		},
	}
}

// knownArgs are the accepted argument names.
var knownArgs = map[string]bool{
	"keywords":      true,
	"date_from":     true,
	"date_to":       true,
	"document_type": true,
	"agency":        true,
	"limit":         true,
}

// Parse decodes an LLM-supplied argument object.
//
// A payload that is not a JSON object wraps domain.ErrMalformedToolCall.
// Unknown names, wrong types and out-of-contract values wrap
// domain.ErrValidation. A requested limit is clamped, never rejected.
func (q *QueryTool) Parse(raw json.RawMessage) (domain.SearchArgs, error) {
	var fields map[string]json.RawMessage
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		trimmed = []byte("{}")
	}
	if err := json.Unmarshal(trimmed, &fields); err != nil {
		return domain.SearchArgs{}, fmt.Errorf("%w: arguments are not a JSON object: %w", domain.ErrMalformedToolCall, err)
	}

	var unknown []string
	for name := range fields {
		if !knownArgs[name] {
			unknown = append(unknown, name)
		}
	}
	if len(unknown) > 0 {
		sort.Strings(unknown)
		return domain.SearchArgs{}, fmt.Errorf("%w: unknown argument(s) %s", domain.ErrValidation, strings.Join(unknown, ", "))
	}

	var args domain.SearchArgs
	var err error

	if v, ok := fields["keywords"]; ok {
		if args.Keywords, err = parseKeywords(v); err != nil {
			return domain.SearchArgs{}, err
		}
	}
	if args.DateFrom, err = parseDateArg(fields, "date_from"); err != nil {
		return domain.SearchArgs{}, err
	}
	if args.DateTo, err = parseDateArg(fields, "date_to"); err != nil {
		return domain.SearchArgs{}, err
	}

	docType, err := parseStringArg(fields, "document_type")
	if err != nil {
		return domain.SearchArgs{}, err
	}
	if docType != "" {
		t, ok := domain.ParseDocumentType(docType)
		if !ok {
			return domain.SearchArgs{}, fmt.Errorf("%w: unknown document_type %q (accepted: %s)",
				domain.ErrValidation, docType, acceptedTypes())
		}
		args.DocumentType = t
	}

	if args.Agency, err = parseStringArg(fields, "agency"); err != nil {
		return domain.SearchArgs{}, err
	}

	if v, ok := fields["limit"]; ok && !isNull(v) {
		limit, err := parseLimit(v)
		if err != nil {
			return domain.SearchArgs{}, err
		}
		// An explicit non-positive limit clamps to 1 rather than the default.
		if limit < 1 {
			limit = 1
		}
		args.Limit = limit
	}

	return q.Normalise(args)
}

// Normalise validates and clamps args. A zero limit selects the default.
func (q *QueryTool) Normalise(args domain.SearchArgs) (domain.SearchArgs, error) {
	args.Keywords = cleanKeywords(args.Keywords)
	args.Agency = strings.TrimSpace(args.Agency)

	if len(args.Keywords) > maxKeywords {
		return domain.SearchArgs{}, fmt.Errorf("%w: at most %d keywords", domain.ErrValidation, maxKeywords)
	}
	for _, kw := range args.Keywords {
		if len(kw) > maxTermLength {
			return domain.SearchArgs{}, fmt.Errorf("%w: keyword longer than %d characters", domain.ErrValidation, maxTermLength)
		}
	}
	if len(args.Agency) > maxTermLength {
		return domain.SearchArgs{}, fmt.Errorf("%w: agency longer than %d characters", domain.ErrValidation, maxTermLength)
	}

	if args.DocumentType != "" {
		t, ok := domain.ParseDocumentType(string(args.DocumentType))
		if !ok {
			return domain.SearchArgs{}, fmt.Errorf("%w: unknown document_type %q (accepted: %s)",
				domain.ErrValidation, args.DocumentType, acceptedTypes())
		}
		args.DocumentType = t
	}

	if args.DateFrom != nil {
		d := domain.Day(*args.DateFrom)
		args.DateFrom = &d
	}
	if args.DateTo != nil {
		d := domain.Day(*args.DateTo)
		args.DateTo = &d
	}
	if args.DateFrom != nil && args.DateTo != nil && args.DateFrom.After(*args.DateTo) {
		return domain.SearchArgs{}, fmt.Errorf("%w: date_from %s is after date_to %s",
			domain.ErrValidation, domain.DayKey(*args.DateFrom), domain.DayKey(*args.DateTo))
	}

	if !args.HasFilter() {
		return domain.SearchArgs{}, fmt.Errorf("%w: provide at least one of keywords, date_from, date_to, document_type or agency",
			domain.ErrValidation)
	}

	switch {
	case args.Limit <= 0:
		args.Limit = q.cfg.DefaultLimit
	case args.Limit > q.cfg.MaxLimit:
		args.Limit = q.cfg.MaxLimit
	}

	return args, nil
}

// Search validates args and queries the store.
func (q *QueryTool) Search(ctx context.Context, args domain.SearchArgs) (*domain.SearchResult, error) {
	args, err := q.Normalise(args)
	if err != nil {
		q.metrics.ToolInvoked(OutcomeInvalid)
		return nil, err
	}

	logger.Debug("search: %s", args.CacheKey())

	docs, err := q.store.Search(ctx, args)
	if err != nil {
		q.metrics.ToolInvoked(OutcomeError)
		logger.Warn("Search failed: %v", err)
		return nil, fmt.Errorf("%w: %w", domain.ErrSearchUnavailable, err)
	}
	if len(docs) > args.Limit {
		docs = docs[:args.Limit]
	}

	result := &domain.SearchResult{Documents: docs, Limit: args.Limit, NoMatch: len(docs) == 0}
	if result.NoMatch {
		result.Documents = []domain.Document{}
		q.metrics.ToolInvoked(OutcomeEmpty)
	} else {
		q.metrics.ToolInvoked(OutcomeOK)
	}

	return result, nil
}

// ==================== Argument Decoding ====================

func isNull(v json.RawMessage) bool {
	return bytes.Equal(bytes.TrimSpace(v), []byte("null"))
}

// parseKeywords accepts an array of strings or a single string.
func parseKeywords(v json.RawMessage) ([]string, error) {
	if isNull(v) {
		return nil, nil
	}

	var list []string
	if err := json.Unmarshal(v, &list); err == nil {
		return list, nil
	}

	var single string
	if err := json.Unmarshal(v, &single); err == nil {
		return []string{single}, nil
	}

	return nil, fmt.Errorf("%w: keywords must be an array of strings", domain.ErrValidation)
}

func parseStringArg(fields map[string]json.RawMessage, name string) (string, error) {
	v, ok := fields[name]
	if !ok || isNull(v) {
		return "", nil
	}
	var s string
	if err := json.Unmarshal(v, &s); err != nil {
		return "", fmt.Errorf("%w: %s must be a string", domain.ErrValidation, name)
	}
	return strings.TrimSpace(s), nil
}

func parseDateArg(fields map[string]json.RawMessage, name string) (*time.Time, error) {
	s, err := parseStringArg(fields, name)
	if err != nil || s == "" {
		return nil, err
	}
	d, err := domain.ParseDay(s)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", domain.ErrValidation, name, err)
	}
	return &d, nil
}

// parseLimit accepts integers, integral floats and numeric strings, which
// is how different providers encode JSON numbers.
func parseLimit(v json.RawMessage) (int, error) {
	var n json.Number
	if err := json.Unmarshal(v, &n); err != nil {
		return 0, fmt.Errorf("%w: limit must be an integer", domain.ErrValidation)
	}
	if i, err := n.Int64(); err == nil {
		return clampInt64(i), nil
	}
	f, err := n.Float64()
	if err != nil || f != float64(int64(f)) {
		return 0, fmt.Errorf("%w: limit must be an integer, got %s", domain.ErrValidation, n)
	}
	return clampInt64(int64(f)), nil
}

func clampInt64(i int64) int {
	const ceiling = 1 << 30
	switch {
	case i > ceiling:
		return ceiling
	case i < -ceiling:
		return -ceiling
	default:
		return int(i)
	}
}

// cleanKeywords trims terms and drops empty and repeated ones.
func cleanKeywords(in []string) []string {
	if len(in) == 0 {
		return nil
	}
	seen := make(map[string]bool, len(in))
	out := make([]string, 0, len(in))
	for _, kw := range in {
		kw = strings.TrimSpace(kw)
		key := strings.ToLower(kw)
		if kw == "" || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, kw)
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func acceptedTypes() string {
	names := make([]string, len(domain.DocumentTypes))
	for i, t := range domain.DocumentTypes {
		names[i] = string(t)
	}
	return strings.Join(names, ", ")
}

// Get returns one stored record. A missing record wraps domain.ErrNotFound;
// any other store failure wraps domain.ErrSearchUnavailable.
func (q *QueryTool) Get(ctx context.Context, documentID string) (*domain.Document, error) {
	id := strings.TrimSpace(documentID)
	if id == "" {
		return nil, fmt.Errorf("%w: document id is required", domain.ErrInvalidInput)
	}

	doc, err := q.store.Get(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, err
		}
		logger.Warn("Document lookup failed: %v", err)
		return nil, fmt.Errorf("%w: %w", domain.ErrSearchUnavailable, err)
	}
	return doc, nil
}

// Count returns the number of stored records.
func (q *QueryTool) Count(ctx context.Context) (int, error) {
	n, err := q.store.Count(ctx)
	if err != nil {
		logger.Warn("Document count failed: %v", err)
		return 0, fmt.Errorf("%w: %w", domain.ErrSearchUnavailable, err)
	}
	return n, nil
}
