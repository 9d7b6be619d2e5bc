package service

import (
	"context"

	"github.com/minkyo/topiko/internal/domain"
	"github.com/minkyo/topiko/internal/repository"
)

// TopicStore defines the persistence surface the canonicalization services
// depend on. *repository.TopicRepository is the production implementation;
// tests substitute in-memory fakes.
type TopicStore interface {
	// Insert persists a new canonical topic; returns domain.ErrDuplicateName
	// when the display name is already taken.
	Insert(ctx context.Context, topic *domain.CanonicalTopic) error

	// FindByName looks up a topic by its normalized display name; returns
	// domain.ErrTopicNotFound on a miss.
	FindByName(ctx context.Context, name string) (*domain.CanonicalTopic, error)

	// GetByID looks up a topic by ID; returns domain.ErrTopicNotFound on a miss.
	GetByID(ctx context.Context, id uint) (*domain.CanonicalTopic, error)

	// ListAll returns every topic ordered by ascending ID.
	ListAll(ctx context.Context) ([]domain.CanonicalTopic, error)

	// ListPage returns topics with offset/limit pagination, ordered by ID.
	ListPage(ctx context.Context, offset, limit int) ([]domain.CanonicalTopic, error)

	// SearchByName returns topics whose display name contains the substring.
	SearchByName(ctx context.Context, substring string, limit int) ([]domain.CanonicalTopic, error)

	// UpdateVector overwrites a topic's embedding.
	UpdateVector(ctx context.Context, id uint, vector domain.Vector) error

	// Delete removes a topic.
	Delete(ctx context.Context, id uint) error

	// Count returns the dictionary size.
	Count(ctx context.Context) (int64, error)
}

// Embedder produces a fixed-length vector for a text with an optional title.
type Embedder interface {
	Embed(ctx context.Context, text, title string) (domain.Vector, error)
	Dimensions() int
}

// VectorIndex is an optional approximate index mirroring the stored vectors.
// When nil, the matcher falls back to a linear scan over the store.
type VectorIndex interface {
	Upsert(ctx context.Context, topicID uint, displayName string, vector []float32) error
	SearchNearest(ctx context.Context, vector []float32, topK int) ([]repository.IndexHit, error)
	Delete(ctx context.Context, topicID uint) error
}
