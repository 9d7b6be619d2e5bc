package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/minkyo/topiko/internal/domain"
	"github.com/minkyo/topiko/internal/logger"
)

// Reembedder recomputes stored vectors through the embedding client, one
// page at a time. Vector overwrites are idempotent, so a crashed run can be
// restarted from offset zero or resumed from the reported next offset.
type Reembedder struct {
	store      TopicStore
	embedder   Embedder
	index      VectorIndex
	logger     *logger.Logger
	pageLimit  int
	pauseDelay time.Duration
}

// ReembedderConfig holds configuration for the re-embedder
type ReembedderConfig struct {
	PageLimit  int
	PauseDelay time.Duration
}

// NewReembedder creates a new Reembedder.
// index may be nil.
func NewReembedder(
	store TopicStore,
	embedder Embedder,
	index VectorIndex,
	log *logger.Logger,
	cfg *ReembedderConfig,
) *Reembedder {
	return &Reembedder{
		store:      store,
		embedder:   embedder,
		index:      index,
		logger:     log,
		pageLimit:  cfg.PageLimit,
		pauseDelay: cfg.PauseDelay,
	}
}

// log returns a logger from context if available, otherwise returns the default logger
func (r *Reembedder) log(ctx context.Context) *logger.Logger {
	if l := logger.FromContext(ctx); l != nil {
		return l
	}
	return r.logger
}

// ReembedStats holds progress counters for one page or one full run.
// NextOffset is set when another page remains, letting an external driver
// loop resume where this call stopped.
type ReembedStats struct {
	Processed  int  `json:"processed"`
	Updated    int  `json:"updated"`
	Failed     int  `json:"failed"`
	NextOffset *int `json:"next_offset,omitempty"`
}

// ReembedPage recomputes vectors for one offset/limit page of the dictionary.
//
// Transient embedding failures that survive the client's retries are counted
// and skipped; domain.ErrInvalidResponse halts the page because the service
// itself is broken.
func (r *Reembedder) ReembedPage(ctx context.Context, offset, limit int) (*ReembedStats, error) {
	if limit <= 0 {
		limit = r.pageLimit
	}

	topics, err := r.store.ListPage(ctx, offset, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list topics page: %w", err)
	}

	stats := &ReembedStats{}
	for i := range topics {
		topic := &topics[i]
		stats.Processed++

		vector, err := r.embedder.Embed(ctx, topic.DisplayName, "")
		if err != nil {
			if errors.Is(err, domain.ErrInvalidResponse) {
				return stats, fmt.Errorf("halting re-embed at topic %d: %w", topic.ID, err)
			}
			stats.Failed++
			r.log(ctx).WithField(logger.FieldTopic, topic.DisplayName).
				WithError(err).Error("Failed to re-embed topic")
			continue
		}

		if err := r.store.UpdateVector(ctx, topic.ID, vector); err != nil {
			stats.Failed++
			r.log(ctx).WithField(logger.FieldTopic, topic.DisplayName).
				WithError(err).Error("Failed to store recomputed vector")
			continue
		}

		if r.index != nil {
			if err := r.index.Upsert(ctx, topic.ID, topic.DisplayName, vector); err != nil {
				r.log(ctx).WithError(err).Warn("Failed to refresh indexed vector")
			}
		}

		stats.Updated++
	}

	if len(topics) == limit {
		next := offset + len(topics)
		stats.NextOffset = &next
	}

	return stats, nil
}

// ReembedAll pages through the whole dictionary in-process, pausing between
// pages to respect the embedding service's rate limits.
func (r *Reembedder) ReembedAll(ctx context.Context) (*ReembedStats, error) {
	total := &ReembedStats{}
	offset := 0

	for {
		page, err := r.ReembedPage(ctx, offset, r.pageLimit)
		if page != nil {
			total.Processed += page.Processed
			total.Updated += page.Updated
			total.Failed += page.Failed
		}
		if err != nil {
			return total, err
		}
		if page.NextOffset == nil {
			break
		}
		offset = *page.NextOffset

		logger.With(logger.Fields{
			"processed": total.Processed,
			"updated":   total.Updated,
			"failed":    total.Failed,
		}).Info(ctx, "Re-embed progress, next offset %d", offset)

		select {
		case <-time.After(r.pauseDelay):
		case <-ctx.Done():
			return total, ctx.Err()
		}
	}

	return total, nil
}
