package repository

import (
	"context"

	"github.com/minkyo/topiko/internal/domain"
	"gorm.io/gorm"
)

// BatchRunRepository handles maintenance batch run records.
type BatchRunRepository struct {
	db *gorm.DB
}

// NewBatchRunRepository creates a new BatchRunRepository.
// Parameters:
//   - db: GORM database handle used for queries.
// Returns:
//   - *BatchRunRepository: repository instance bound to db.
func NewBatchRunRepository(db *gorm.DB) *BatchRunRepository {
	return &BatchRunRepository{db: db}
}

// Create inserts a new batch run record.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - run: batch run record to persist.
// Returns:
//   - error: non-nil if the insert fails.
func (r *BatchRunRepository) Create(ctx context.Context, run *domain.BatchRun) error {
	return r.db.WithContext(ctx).Create(run).Error
}

// Update updates an existing batch run record.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - run: batch run record with updated fields.
// Returns:
//   - error: non-nil if the update fails.
func (r *BatchRunRepository) Update(ctx context.Context, run *domain.BatchRun) error {
	return r.db.WithContext(ctx).Save(run).Error
}

// ListRecent retrieves the most recent batch runs for a job.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - job: job name to filter by; empty means all jobs.
//   - limit: maximum number of records to return.
// Returns:
//   - []domain.BatchRun: matching batch run records, newest first.
//   - error: non-nil if the query fails.
func (r *BatchRunRepository) ListRecent(ctx context.Context, job string, limit int) ([]domain.BatchRun, error) {
	var runs []domain.BatchRun
	query := r.db.WithContext(ctx)
	if job != "" {
		query = query.Where("job = ?", job)
	}
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := query.Order("created_at DESC").Find(&runs).Error; err != nil {
		return nil, err
	}
	return runs, nil
}
