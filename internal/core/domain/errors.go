package domain

import "errors"

// Domain errors represent business logic failures.
// Adapters wrap them with %w so callers can classify with errors.Is.
var (
	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrConfigInvalid indicates the configuration failed validation.
	ErrConfigInvalid = errors.New("invalid configuration")

	// Pipeline Errors.

	// ErrNetwork indicates a transient transport failure (timeout, 5xx).
	// Fetches failing with it are retried before the day is marked failed.
	ErrNetwork = errors.New("network error")

	// ErrRateLimited indicates the API rate limit was exceeded.
	// A cooldown applies before the next request.
	ErrRateLimited = errors.New("rate limited")

	// ErrSourceRejected indicates the source refused the request (4xx other than 429).
	// Retrying the same request will not help.
	ErrSourceRejected = errors.New("source rejected request")

	// ErrParse indicates a raw item or response could not be decoded or
	// is missing required fields. Items failing with it are skipped and counted.
	ErrParse = errors.New("parse error")

	// ErrStore indicates the relational store failed (connection or query).
	// The current batch is rolled back and the failure is surfaced.
	ErrStore = errors.New("store error")

	// Tool and Agent Errors.

	// ErrValidation indicates tool arguments fall outside the tool contract.
	ErrValidation = errors.New("validation failed")

	// ErrSearchUnavailable indicates the search tool could not query the store.
	ErrSearchUnavailable = errors.New("search unavailable")

	// ErrLLMUnavailable indicates the LLM service is unreachable or failed.
	ErrLLMUnavailable = errors.New("LLM service unavailable")

	// ErrLLMRejected indicates the LLM service refused the request, for
	// example a bad API key or an unknown model. Retrying cannot help.
	ErrLLMRejected = errors.New("LLM service rejected request")

	// ErrLLMTimeout indicates an LLM call exceeded its deadline.
	ErrLLMTimeout = errors.New("LLM call timed out")

	// ErrMalformedToolCall indicates the LLM produced a tool-call payload
	// that could not be parsed, even after reformulation attempts.
	ErrMalformedToolCall = errors.New("malformed tool call")
)
