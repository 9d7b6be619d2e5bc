package logger

// Fields is an alias for map[string]interface{} for convenience.
type Fields map[string]interface{}

// ============================================
// Standard Tracing Fields (Context level)
// These fields are propagated through the call chain
// ============================================

const (
	// FieldRequestID is the HTTP request ID (UUID)
	FieldRequestID = "request_id"

	// FieldBatchID is the maintenance batch run ID
	FieldBatchID = "batch_id"

	// FieldJob is the maintenance job name (seed, reembed, audit)
	FieldJob = "job"

	// FieldComponent is the component/module name
	FieldComponent = "component"

	// FieldSource is the seed phrase source identifier
	FieldSource = "source"

	// FieldTopic is the normalized topic phrase being processed
	FieldTopic = "topic"
)

// ============================================
// Standard Metric Fields (Entry level)
// These fields are used for aggregation and alerting
// ============================================

const (
	// FieldDurationMs is the execution duration in milliseconds
	FieldDurationMs = "duration_ms"

	// FieldCount is a generic count field
	FieldCount = "count"

	// FieldSize is the data size in bytes
	FieldSize = "size"

	// FieldStatus is the operation status
	FieldStatus = "status"
)
