package domain

import "time"

// BatchStatus represents the status of a maintenance batch run.
// Values include BatchStatusPending, BatchStatusRunning, BatchStatusCompleted, and BatchStatusFailed.
type BatchStatus string

const (
	BatchStatusPending   BatchStatus = "pending"
	BatchStatusRunning   BatchStatus = "running"
	BatchStatusCompleted BatchStatus = "completed"
	BatchStatusFailed    BatchStatus = "failed"
)

// BatchRun records one maintenance job execution and its progress metadata.
type BatchRun struct {
	ID          string      `gorm:"type:text;primaryKey" json:"id"`
	Job         string      `gorm:"type:text;not null;index" json:"job"`
	Status      BatchStatus `gorm:"default:pending" json:"status"`
	Processed   int         `gorm:"default:0" json:"processed"`
	Succeeded   int         `gorm:"default:0" json:"succeeded"`
	Failed      int         `gorm:"default:0" json:"failed"`
	StartedAt   *time.Time  `json:"started_at,omitempty"`
	CompletedAt *time.Time  `json:"completed_at,omitempty"`
	ErrorLog    string      `json:"error_log,omitempty"`
	CreatedAt   time.Time   `json:"created_at"`
	UpdatedAt   time.Time   `json:"updated_at"`
}

// TableName returns the database table name for BatchRun.
// Parameters: none.
// Returns:
//   - string: table name for GORM mapping.
func (BatchRun) TableName() string {
	return "batch_runs"
}
