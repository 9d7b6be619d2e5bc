package seedsource

import "context"

// Source defines the interface for raw topic phrase lists consumed by the
// seeder. A source yields one candidate phrase per line of its backing
// document; normalization and deduplication happen in the seeder.
type Source interface {
	// GetSourceID returns the unique identifier for this source.
	// Parameters: none.
	// Returns:
	//   - string: stable source identifier.
	GetSourceID() string

	// FetchPhrases reads the complete raw phrase list.
	// Parameters:
	//   - ctx: context for cancellation and deadlines.
	// Returns:
	//   - []string: raw phrases in document order, blank lines removed.
	//   - error: non-nil if reading fails.
	FetchPhrases(ctx context.Context) ([]string, error)
}
