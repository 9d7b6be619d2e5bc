package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/minkyo/topiko/internal/domain"
	"github.com/minkyo/topiko/internal/logger"
	"github.com/minkyo/topiko/internal/repository"
	"github.com/minkyo/topiko/internal/seedsource"
)

// Seeder bulk-loads a raw phrase list into the canonical dictionary. It
// skips the per-request exact-match and vector-match lookups (the input is
// deduplicated up front) but still goes through the store's uniqueness
// constraint, so re-running a seed is safe.
type Seeder struct {
	store      TopicStore
	embedder   Embedder
	index      VectorIndex
	batchRuns  *repository.BatchRunRepository
	normalizer *Normalizer
	logger     *logger.Logger
	batchSize  int
	pauseDelay time.Duration
}

// SeederConfig holds configuration for the seeder
type SeederConfig struct {
	BatchSize  int
	PauseDelay time.Duration
}

// NewSeeder creates a new Seeder.
// index and batchRuns may be nil.
func NewSeeder(
	store TopicStore,
	embedder Embedder,
	index VectorIndex,
	batchRuns *repository.BatchRunRepository,
	log *logger.Logger,
	cfg *SeederConfig,
) *Seeder {
	return &Seeder{
		store:      store,
		embedder:   embedder,
		index:      index,
		batchRuns:  batchRuns,
		normalizer: NewNormalizer(),
		logger:     log,
		batchSize:  cfg.BatchSize,
		pauseDelay: cfg.PauseDelay,
	}
}

// log returns a logger from context if available, otherwise returns the default logger
func (s *Seeder) log(ctx context.Context) *logger.Logger {
	if l := logger.FromContext(ctx); l != nil {
		return l
	}
	return s.logger
}

// SeedStats holds statistics for one seeding run
type SeedStats struct {
	Total     int       `json:"total"`
	Created   int       `json:"created"`
	Skipped   int       `json:"skipped"`
	Failed    int       `json:"failed"`
	StartTime time.Time `json:"start_time"`
	EndTime   time.Time `json:"end_time"`
}

// SeedFromSource fetches the raw phrase list from a source and seeds it.
func (s *Seeder) SeedFromSource(ctx context.Context, src seedsource.Source) (*SeedStats, error) {
	ctx = logger.SetSource(ctx, src.GetSourceID())

	phrases, err := src.FetchPhrases(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch seed phrases: %w", err)
	}

	return s.SeedPhrases(ctx, phrases)
}

// SeedPhrases normalizes, deduplicates, and registers a list of raw phrases
// in fixed-size batches with a pause between batches.
//
// Partial-failure semantics: a phrase that fails after the embedding
// client's retries is counted and skipped, and the run continues. Only
// domain.ErrInvalidResponse halts the whole run, because it means the
// service itself cannot be trusted and burning through the rest of the list
// would be pointless.
func (s *Seeder) SeedPhrases(ctx context.Context, phrases []string) (*SeedStats, error) {
	stats := &SeedStats{StartTime: time.Now()}

	run := s.startRun(ctx, "seed")
	ctx = logger.SetBatchID(ctx, run.ID)

	candidates, preSkipped := s.prepare(phrases)
	stats.Total = len(phrases)
	stats.Skipped += preSkipped

	s.log(ctx).WithFields(logger.Fields{
		"total":      stats.Total,
		"candidates": len(candidates),
		"batch_size": s.batchSize,
	}).Info("Starting seed run")

	var runErr error

loop:
	for start := 0; start < len(candidates); start += s.batchSize {
		end := start + s.batchSize
		if end > len(candidates) {
			end = len(candidates)
		}

		for _, name := range candidates[start:end] {
			if err := s.seedOne(ctx, name); err != nil {
				if errors.Is(err, domain.ErrDuplicateName) {
					stats.Skipped++
					continue
				}
				if errors.Is(err, domain.ErrInvalidResponse) {
					runErr = fmt.Errorf("halting seed run: %w", err)
					break loop
				}
				stats.Failed++
				s.log(ctx).WithField(logger.FieldTopic, name).WithError(err).Error("Failed to seed phrase")
				continue
			}
			stats.Created++
		}

		if end < len(candidates) {
			// Pause between batches to respect the embedding service's
			// rate limits.
			select {
			case <-time.After(s.pauseDelay):
			case <-ctx.Done():
				runErr = ctx.Err()
				break loop
			}
		}
	}

	stats.EndTime = time.Now()
	s.finishRun(ctx, run, stats, runErr)

	logger.With(logger.Fields{
		"created":              stats.Created,
		"skipped":              stats.Skipped,
		"failed":               stats.Failed,
		logger.FieldDurationMs: stats.EndTime.Sub(stats.StartTime).Milliseconds(),
	}).Info(ctx, "Seed run completed")

	return stats, runErr
}

// prepare normalizes and deduplicates the raw list. Single-word and empty
// phrases are dropped here; they can never become canonical entries.
func (s *Seeder) prepare(phrases []string) (candidates []string, skipped int) {
	seen := make(map[string]struct{}, len(phrases))
	for _, raw := range phrases {
		normalized, err := s.normalizer.Normalize(raw)
		if err != nil || normalized.WordCount < 2 {
			skipped++
			continue
		}
		if _, ok := seen[normalized.Name]; ok {
			skipped++
			continue
		}
		seen[normalized.Name] = struct{}{}
		candidates = append(candidates, normalized.Name)
	}
	sort.Strings(candidates)
	return candidates, skipped
}

func (s *Seeder) seedOne(ctx context.Context, name string) error {
	vector, err := s.embedder.Embed(ctx, name, "")
	if err != nil {
		return err
	}

	topic := &domain.CanonicalTopic{
		DisplayName: name,
		Embedding:   vector,
	}
	if err := s.store.Insert(ctx, topic); err != nil {
		return err
	}

	if s.index != nil {
		if err := s.index.Upsert(ctx, topic.ID, topic.DisplayName, vector); err != nil {
			s.log(ctx).WithError(err).Warn("Failed to index seeded topic vector")
		}
	}

	return nil
}

// startRun records a new batch run if a recorder is configured.
func (s *Seeder) startRun(ctx context.Context, job string) *domain.BatchRun {
	now := time.Now()
	run := &domain.BatchRun{
		ID:        uuid.New().String(),
		Job:       job,
		Status:    domain.BatchStatusRunning,
		StartedAt: &now,
	}
	if s.batchRuns != nil {
		if err := s.batchRuns.Create(ctx, run); err != nil {
			s.log(ctx).WithError(err).Warn("Failed to record batch run start")
		}
	}
	return run
}

func (s *Seeder) finishRun(ctx context.Context, run *domain.BatchRun, stats *SeedStats, runErr error) {
	now := time.Now()
	run.CompletedAt = &now
	run.Processed = stats.Created + stats.Skipped + stats.Failed
	run.Succeeded = stats.Created
	run.Failed = stats.Failed
	run.Status = domain.BatchStatusCompleted
	if runErr != nil {
		run.Status = domain.BatchStatusFailed
		run.ErrorLog = runErr.Error()
	}
	if s.batchRuns != nil {
		if err := s.batchRuns.Update(ctx, run); err != nil {
			s.log(ctx).WithError(err).Warn("Failed to record batch run completion")
		}
	}
}
