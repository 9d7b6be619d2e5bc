package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/minkyo/topiko/internal/domain"
	"gorm.io/gorm"
)

// TopicRepository owns persistence for the canonical topic dictionary. The
// unique index on display_name is the single point of serialization for
// concurrent registrations: two inserts of the same name cannot both succeed.
type TopicRepository struct {
	db *gorm.DB
}

// NewTopicRepository creates a new TopicRepository.
// Parameters:
//   - db: GORM database handle used for queries.
// Returns:
//   - *TopicRepository: repository instance bound to db.
func NewTopicRepository(db *gorm.DB) *TopicRepository {
	return &TopicRepository{db: db}
}

// Insert persists a new canonical topic.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - topic: topic record to persist; ID is assigned by the database.
// Returns:
//   - error: domain.ErrDuplicateName if another row already holds the
//     display name; non-nil for any other failure.
func (r *TopicRepository) Insert(ctx context.Context, topic *domain.CanonicalTopic) error {
	if err := r.db.WithContext(ctx).Create(topic).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return domain.ErrDuplicateName
		}
		return fmt.Errorf("failed to insert canonical topic: %w", err)
	}
	return nil
}

// FindByName retrieves a canonical topic by its normalized display name.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - name: normalized display name to look up.
// Returns:
//   - *domain.CanonicalTopic: topic record if found.
//   - error: domain.ErrTopicNotFound if no row matches; non-nil for
//     any other failure.
func (r *TopicRepository) FindByName(ctx context.Context, name string) (*domain.CanonicalTopic, error) {
	var topic domain.CanonicalTopic
	if err := r.db.WithContext(ctx).First(&topic, "display_name = ?", name).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrTopicNotFound
		}
		return nil, err
	}
	return &topic, nil
}

// GetByID retrieves a canonical topic by its ID.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - id: topic ID.
// Returns:
//   - *domain.CanonicalTopic: topic record if found.
//   - error: domain.ErrTopicNotFound if no row matches; non-nil for
//     any other failure.
func (r *TopicRepository) GetByID(ctx context.Context, id uint) (*domain.CanonicalTopic, error) {
	var topic domain.CanonicalTopic
	if err := r.db.WithContext(ctx).First(&topic, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrTopicNotFound
		}
		return nil, err
	}
	return &topic, nil
}

// ListAll retrieves every canonical topic ordered by ID. The dictionary is
// assumed small enough for a full scan; batch jobs and the linear matcher
// both depend on this ordering for deterministic results.
// Parameters:
//   - ctx: context for cancellation and deadlines.
// Returns:
//   - []domain.CanonicalTopic: all topic records, oldest first.
//   - error: non-nil if the query fails.
func (r *TopicRepository) ListAll(ctx context.Context) ([]domain.CanonicalTopic, error) {
	var topics []domain.CanonicalTopic
	if err := r.db.WithContext(ctx).Order("id ASC").Find(&topics).Error; err != nil {
		return nil, err
	}
	return topics, nil
}

// ListPage retrieves canonical topics with offset/limit pagination.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - offset: number of records to skip.
//   - limit: maximum number of records to return.
// Returns:
//   - []domain.CanonicalTopic: matching topic records ordered by ID.
//   - error: non-nil if the query fails.
func (r *TopicRepository) ListPage(ctx context.Context, offset, limit int) ([]domain.CanonicalTopic, error) {
	var topics []domain.CanonicalTopic
	query := r.db.WithContext(ctx).Order("id ASC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if offset > 0 {
		query = query.Offset(offset)
	}
	if err := query.Find(&topics).Error; err != nil {
		return nil, err
	}
	return topics, nil
}

// SearchByName retrieves canonical topics whose display name contains the
// given substring.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - substring: fragment to match against display names.
//   - limit: maximum number of records to return.
// Returns:
//   - []domain.CanonicalTopic: matching topic records ordered by ID.
//   - error: non-nil if the query fails.
func (r *TopicRepository) SearchByName(ctx context.Context, substring string, limit int) ([]domain.CanonicalTopic, error) {
	var topics []domain.CanonicalTopic
	query := r.db.WithContext(ctx).
		Where("display_name LIKE ?", "%"+substring+"%").
		Order("id ASC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := query.Find(&topics).Error; err != nil {
		return nil, err
	}
	return topics, nil
}

// UpdateVector overwrites the stored embedding for a topic. The overwrite is
// idempotent, which lets the re-embedder restart from offset zero safely.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - id: topic ID.
//   - vector: replacement embedding.
// Returns:
//   - error: domain.ErrTopicNotFound if no row matches; non-nil for
//     any other failure.
func (r *TopicRepository) UpdateVector(ctx context.Context, id uint, vector domain.Vector) error {
	result := r.db.WithContext(ctx).
		Model(&domain.CanonicalTopic{}).
		Where("id = ?", id).
		Update("embedding", vector)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domain.ErrTopicNotFound
	}
	return nil
}

// Delete removes a canonical topic by ID.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - id: topic ID to delete.
// Returns:
//   - error: non-nil if the delete fails.
func (r *TopicRepository) Delete(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Delete(&domain.CanonicalTopic{}, "id = ?", id).Error
}

// Count returns the total number of canonical topics.
// Parameters:
//   - ctx: context for cancellation and deadlines.
// Returns:
//   - int64: number of rows in the dictionary.
//   - error: non-nil if the query fails.
func (r *TopicRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&domain.CanonicalTopic{}).Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}
