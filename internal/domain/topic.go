package domain

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"
)

// Vector is a custom type for storing embedding vectors as JSON in the database.
type Vector []float32

// Value implements the driver.Valuer interface for database serialization.
// Parameters: none.
// Returns:
//   - driver.Value: JSON-encoded string representation of the vector.
//   - error: non-nil if marshaling fails.
func (v Vector) Value() (driver.Value, error) {
	if v == nil {
		return "[]", nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan implements the sql.Scanner interface for database deserialization.
// Parameters:
//   - value: raw database value to decode.
// Returns:
//   - error: non-nil if decoding fails or the type is unexpected.
func (v *Vector) Scan(value interface{}) error {
	if value == nil {
		*v = Vector{}
		return nil
	}
	bytes, ok := value.([]byte)
	if !ok {
		str, ok := value.(string)
		if !ok {
			return errors.New("failed to scan Vector")
		}
		bytes = []byte(str)
	}
	return json.Unmarshal(bytes, v)
}

// Equal reports whether two vectors are bit-identical element by element.
func (v Vector) Equal(other Vector) bool {
	if len(v) != len(other) {
		return false
	}
	for i := range v {
		if v[i] != other[i] {
			return false
		}
	}
	return true
}

// CanonicalTopic represents one deduplicated topic entry in the dictionary.
// DisplayName is the normalized phrase and is unique across all rows; the
// ID is assigned at creation and never changes, so the lowest ID is always
// the oldest entry.
type CanonicalTopic struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	DisplayName string    `gorm:"type:text;not null;uniqueIndex:idx_canonical_topics_name" json:"display_name"`
	Embedding   Vector    `gorm:"type:text" json:"embedding,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// TableName returns the database table name for CanonicalTopic.
// Parameters: none.
// Returns:
//   - string: table name for GORM mapping.
func (CanonicalTopic) TableName() string {
	return "canonical_topics"
}

// NormalizedTopic is the output of phrase normalization: the cleaned phrase,
// its word count after truncation, and whether truncation occurred.
type NormalizedTopic struct {
	Name      string
	WordCount int
	Truncated bool
}

// StandardizeResult is the caller-facing outcome of a standardize call.
type StandardizeResult struct {
	CanonicalID   uint   `json:"canonical_id"`
	CanonicalName string `json:"canonical_name"`
	WasNew        bool   `json:"was_new"`
	WasTruncated  bool   `json:"was_truncated"`
}
