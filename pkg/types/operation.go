package types

import "time"

// OperationStatus is the lifecycle status of a logged operation phase.
type OperationStatus string

const (
	StatusStarted OperationStatus = "STARTED"
	StatusSuccess OperationStatus = "SUCCESS"
	StatusFailed  OperationStatus = "FAILED"
	StatusWarning OperationStatus = "WARNING"
)

// OperationRecord is one entry in the autonomous operation log. A record is
// appended with StatusStarted when a phase begins and appended again with the
// terminal status when it ends; the sink upserts on (operation, phase).
// Records are never deleted by the core; retention and archival live outside
// the orchestrator.
type OperationRecord struct {
	// ID is assigned by the sink, monotonically increasing.
	ID int64 `json:"id,omitempty"`

	// OperationID correlates all phase records of one orchestrator run.
	OperationID string `json:"operation_id"`

	// Operation is the verb being performed (convert, split, analyze, ...).
	Operation string `json:"operation"`

	// Phase is the state-machine phase the record describes.
	Phase string `json:"phase"`

	// Table, Partition and Subpartition name the object being reshaped.
	Table        string `json:"table"`
	Partition    string `json:"partition,omitempty"`
	Subpartition string `json:"subpartition,omitempty"`

	// Status is the phase status.
	Status OperationStatus `json:"status"`

	// Message is a human-readable summary.
	Message string `json:"message,omitempty"`

	// ErrorCode and ErrorMessage describe a failure, empty on success.
	ErrorCode    string `json:"error_code,omitempty"`
	ErrorMessage string `json:"error_message,omitempty"`

	// Duration is the phase duration, zero for start records.
	Duration time.Duration `json:"duration,omitempty"`

	// RowCount and ObjectCount are optional work counters.
	RowCount    int64 `json:"row_count,omitempty"`
	ObjectCount int64 `json:"object_count,omitempty"`

	// Attributes carries free-form operation detail (statement fingerprints,
	// requested degrees, ...).
	Attributes map[string]string `json:"attributes,omitempty"`

	// CreatedAt is set by the sink when the record is first written.
	CreatedAt time.Time `json:"created_at,omitempty"`
}
