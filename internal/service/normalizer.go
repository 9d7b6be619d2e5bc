package service

import (
	"strings"

	"github.com/minkyo/topiko/internal/domain"
)

// maxTopicWords is the word-count ceiling for canonical topics. Longer
// phrases are truncated, never rejected.
const maxTopicWords = 2

// Normalizer applies the deterministic text cleanup and word-count policy
// that runs before any matching. It makes no external calls.
type Normalizer struct{}

// NewNormalizer creates a new Normalizer.
func NewNormalizer() *Normalizer {
	return &Normalizer{}
}

// Normalize cleans up a raw topic phrase: trims and collapses whitespace,
// folds case, and truncates to the first two words. The truncation flag is
// preserved so callers can report it.
//
// Returns domain.ErrEmptyInput when nothing remains after cleanup. Single-word
// results are returned as-is; whether they are acceptable depends on the
// caller (exact-match lookup yes, new registration no).
func (n *Normalizer) Normalize(raw string) (domain.NormalizedTopic, error) {
	words := strings.Fields(raw)
	if len(words) == 0 {
		return domain.NormalizedTopic{}, domain.ErrEmptyInput
	}

	truncated := false
	if len(words) > maxTopicWords {
		words = words[:maxTopicWords]
		truncated = true
	}

	name := strings.ToLower(strings.Join(words, " "))

	return domain.NormalizedTopic{
		Name:      name,
		WordCount: len(words),
		Truncated: truncated,
	}, nil
}
