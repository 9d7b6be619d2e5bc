package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/minkyo/topiko/internal/domain"
	"github.com/minkyo/topiko/internal/logger"
)

// CanonicalizeService orchestrates normalization, matching, and registration
// for a single phrase. It is safe for concurrent use: the insert-if-absent
// critical section is serialized by the store's unique constraint, not by a
// lock, and a losing insert converges onto the winner's row.
type CanonicalizeService struct {
	store      TopicStore
	embedder   Embedder
	matcher    *Matcher
	index      VectorIndex
	normalizer *Normalizer
	logger     *logger.Logger
}

// NewCanonicalizeService creates a new canonicalization service.
// index may be nil when no vector index is configured.
func NewCanonicalizeService(
	store TopicStore,
	embedder Embedder,
	matcher *Matcher,
	index VectorIndex,
	log *logger.Logger,
) *CanonicalizeService {
	return &CanonicalizeService{
		store:      store,
		embedder:   embedder,
		matcher:    matcher,
		index:      index,
		normalizer: NewNormalizer(),
		logger:     log,
	}
}

// log returns a logger from context if available, otherwise returns the default logger
func (s *CanonicalizeService) log(ctx context.Context) *logger.Logger {
	if l := logger.FromContext(ctx); l != nil {
		return l
	}
	return s.logger
}

// Standardize resolves a raw topic phrase to its canonical entry, creating
// one if no existing entry matches textually or semantically.
//
// Validation failures (domain.ErrEmptyInput, domain.ErrAmbiguousSingleWord)
// are returned without retry. Embedding failures surface after the client's
// retries exhaust; a canonical ID is never fabricated on failure.
func (s *CanonicalizeService) Standardize(ctx context.Context, rawTopic string) (*domain.StandardizeResult, error) {
	start := time.Now()

	normalized, err := s.normalizer.Normalize(rawTopic)
	if err != nil {
		return nil, err
	}

	ctx = logger.WithField(ctx, logger.FieldTopic, normalized.Name)

	// Exact-name shortcut: resolves the common repeated-phrase case without
	// an embedding call.
	if exact, err := s.matcher.MatchExact(ctx, normalized.Name); err != nil {
		return nil, err
	} else if exact != nil {
		return &domain.StandardizeResult{
			CanonicalID:   exact.TopicID,
			CanonicalName: exact.TopicName,
			WasNew:        false,
			WasTruncated:  normalized.Truncated,
		}, nil
	}

	// Single-word phrases may resolve by exact match but are never
	// auto-registered; escalate to the caller instead.
	if normalized.WordCount < 2 {
		return nil, fmt.Errorf("%w: %q", domain.ErrAmbiguousSingleWord, normalized.Name)
	}

	vector, err := s.embedder.Embed(ctx, normalized.Name, "")
	if err != nil {
		return nil, fmt.Errorf("failed to embed topic %q: %w", normalized.Name, err)
	}

	match, err := s.matcher.MatchVector(ctx, vector)
	if err != nil {
		return nil, err
	}
	if match.Matched {
		logger.With(logger.Fields{
			logger.FieldDurationMs: time.Since(start).Milliseconds(),
			"similarity":           match.Similarity,
		}).Debug(ctx, "Matched existing topic %q", match.TopicName)
		return &domain.StandardizeResult{
			CanonicalID:   match.TopicID,
			CanonicalName: match.TopicName,
			WasNew:        false,
			WasTruncated:  normalized.Truncated,
		}, nil
	}

	return s.register(ctx, normalized, vector, start)
}

// register attempts to insert a new canonical topic, converging onto an
// existing row when a concurrent request won the insert race.
func (s *CanonicalizeService) register(
	ctx context.Context,
	normalized domain.NormalizedTopic,
	vector domain.Vector,
	start time.Time,
) (*domain.StandardizeResult, error) {
	topic := &domain.CanonicalTopic{
		DisplayName: normalized.Name,
		Embedding:   vector,
	}

	if err := s.store.Insert(ctx, topic); err != nil {
		if errors.Is(err, domain.ErrDuplicateName) {
			// Another request registered the same name between our lookup
			// and the insert. Re-read and return that row as a match.
			winner, findErr := s.store.FindByName(ctx, normalized.Name)
			if findErr != nil {
				return nil, fmt.Errorf("failed to re-read topic after duplicate insert: %w", findErr)
			}
			return &domain.StandardizeResult{
				CanonicalID:   winner.ID,
				CanonicalName: winner.DisplayName,
				WasNew:        false,
				WasTruncated:  normalized.Truncated,
			}, nil
		}
		return nil, err
	}

	if s.index != nil {
		// The index is a rebuildable mirror; a failed upsert degrades match
		// quality but must not fail the registration.
		if err := s.index.Upsert(ctx, topic.ID, topic.DisplayName, vector); err != nil {
			s.log(ctx).WithError(err).Warn("Failed to index new topic vector")
		}
	}

	logger.With(logger.Fields{
		logger.FieldDurationMs: time.Since(start).Milliseconds(),
	}).Info(ctx, "Registered new canonical topic %q (id=%d)", topic.DisplayName, topic.ID)

	return &domain.StandardizeResult{
		CanonicalID:   topic.ID,
		CanonicalName: topic.DisplayName,
		WasNew:        true,
		WasTruncated:  normalized.Truncated,
	}, nil
}
