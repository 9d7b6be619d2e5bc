package domain

import "errors"

// Validation errors: caller-input problems, never retried.
var (
	// ErrEmptyInput indicates the raw phrase was empty after normalization.
	ErrEmptyInput = errors.New("topic is empty after normalization")

	// ErrAmbiguousSingleWord indicates a single-word phrase with no exact
	// match; single-word entries are never auto-registered as canonical.
	ErrAmbiguousSingleWord = errors.New("single-word topic cannot be registered as canonical")
)

// Storage errors.
var (
	// ErrDuplicateName indicates the unique constraint on display_name
	// rejected an insert. Expected under concurrent registration and
	// recovered by re-reading the winning row.
	ErrDuplicateName = errors.New("canonical topic name already exists")

	// ErrTopicNotFound indicates a lookup matched no row.
	ErrTopicNotFound = errors.New("canonical topic not found")
)

// Embedding service errors.
var (
	// ErrServiceUnavailable indicates a transient failure (5xx, timeout,
	// connection error). Retried with backoff inside the client.
	ErrServiceUnavailable = errors.New("embedding service unavailable")

	// ErrRateLimited indicates the embedding service returned 429.
	// Retried on the same path as ErrServiceUnavailable.
	ErrRateLimited = errors.New("embedding service rate limited")

	// ErrInvalidResponse indicates the embedding service returned a
	// malformed or wrong-dimension vector. Fatal for the current phrase;
	// never treated as a miss.
	ErrInvalidResponse = errors.New("embedding service returned invalid response")
)

// IsValidation reports whether err is a caller-input validation error.
func IsValidation(err error) bool {
	return errors.Is(err, ErrEmptyInput) || errors.Is(err, ErrAmbiguousSingleWord)
}
