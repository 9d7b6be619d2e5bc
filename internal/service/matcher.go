package service

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/minkyo/topiko/internal/domain"
)

// MatchResult is the outcome of matching a phrase against the dictionary.
type MatchResult struct {
	Matched    bool
	TopicID    uint
	TopicName  string
	Similarity float64
	Exact      bool
}

// Matcher decides whether an incoming phrase resolves to an existing
// canonical topic. The exact-name shortcut is always tried first because it
// is cheap and stays correct regardless of embedding drift; vector
// comparison catches paraphrases.
type Matcher struct {
	store     TopicStore
	index     VectorIndex
	threshold float64
}

// NewMatcher creates a new Matcher.
// index may be nil, in which case vector matching scans the store linearly.
func NewMatcher(store TopicStore, index VectorIndex, threshold float64) *Matcher {
	return &Matcher{
		store:     store,
		index:     index,
		threshold: threshold,
	}
}

// MatchExact checks for a textually identical canonical topic. A nil result
// with nil error means no exact match exists.
func (m *Matcher) MatchExact(ctx context.Context, name string) (*MatchResult, error) {
	topic, err := m.store.FindByName(ctx, name)
	if err != nil {
		if errors.Is(err, domain.ErrTopicNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("exact-match lookup failed: %w", err)
	}
	return &MatchResult{
		Matched:    true,
		TopicID:    topic.ID,
		TopicName:  topic.DisplayName,
		Similarity: 1.0,
		Exact:      true,
	}, nil
}

// MatchVector compares a vector against every stored embedding and returns
// the best match above the similarity threshold, or Matched=false when the
// phrase should be registered as new.
//
// Ties are broken toward the lowest topic ID (the oldest entry) so repeated
// calls are deterministic.
func (m *Matcher) MatchVector(ctx context.Context, vector domain.Vector) (*MatchResult, error) {
	if m.index != nil {
		return m.matchViaIndex(ctx, vector)
	}
	return m.matchViaScan(ctx, vector)
}

func (m *Matcher) matchViaScan(ctx context.Context, vector domain.Vector) (*MatchResult, error) {
	topics, err := m.store.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list topics for matching: %w", err)
	}

	best := &MatchResult{}
	// ListAll returns rows in ascending ID order, so keeping a strictly
	// greater best similarity leaves the lowest ID as the tie winner.
	for _, topic := range topics {
		if len(topic.Embedding) == 0 {
			continue
		}
		sim := CosineSimilarity(vector, topic.Embedding)
		if sim >= m.threshold && sim > best.Similarity {
			best = &MatchResult{
				Matched:    true,
				TopicID:    topic.ID,
				TopicName:  topic.DisplayName,
				Similarity: sim,
			}
		}
	}

	return best, nil
}

func (m *Matcher) matchViaIndex(ctx context.Context, vector domain.Vector) (*MatchResult, error) {
	hits, err := m.index.SearchNearest(ctx, vector, 1)
	if err != nil {
		return nil, fmt.Errorf("index search failed: %w", err)
	}
	if len(hits) == 0 || float64(hits[0].Score) < m.threshold {
		return &MatchResult{}, nil
	}
	return &MatchResult{
		Matched:    true,
		TopicID:    hits[0].TopicID,
		TopicName:  hits[0].DisplayName,
		Similarity: float64(hits[0].Score),
	}, nil
}

// CosineSimilarity computes the cosine similarity between two vectors.
// Vectors of mismatched or zero length score 0.
func CosineSimilarity(a, b []float32) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}

	var dot, normA, normB float64
	for i, av := range a {
		bv := b[i]
		dot += float64(av) * float64(bv)
		normA += float64(av) * float64(av)
		normB += float64(bv) * float64(bv)
	}

	if normA == 0 || normB == 0 {
		return 0
	}

	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
