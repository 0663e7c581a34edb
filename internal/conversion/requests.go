package conversion

import (
	"github.com/reshapedb/reshape/pkg/types"
)

// ConvertRequest asks for a non-partitioned table to be reshaped into a
// partitioned one. Conversion is one-shot: repartitioning an already
// partitioned table is a distinct operation this path rejects.
type ConvertRequest struct {
	// Table is the table to convert.
	Table string

	// Type is the target strategy. RANGE, LIST, HASH, INTERVAL and REFERENCE
	// are supported for conversion.
	Type types.PartitionType

	// Columns are the partition key columns. Required unless Type is
	// REFERENCE, where the key comes from the parent constraint.
	Columns []string

	// IntervalExpr is the interval step (INTERVAL only).
	IntervalExpr string

	// FirstBoundary is the seed partition boundary (INTERVAL only); RANGE and
	// LIST seed catch-all partitions instead.
	FirstBoundary string

	// ParentTable restricts REFERENCE constraint resolution to foreign keys
	// referencing this table. Empty accepts the first foreign key found.
	ParentTable string

	// Subpartitioning adds a second level in the same conversion.
	Subpartitioning *types.SubpartitionSpec

	// ParallelDegree is forwarded to the executor as a hint. Zero lets the
	// statistics recommendation drive it.
	ParallelDegree int

	// SamplePercent overrides the adaptive statistics sampling default.
	SamplePercent *float64
}

// Result reports the terminal state of one orchestrated operation.
type Result struct {
	// OperationID correlates the operation's log records.
	OperationID string

	// Statement is the schema-change statement that was built (and, unless
	// the run failed earlier, executed).
	Statement string

	// Phase is the terminal phase: PhaseComplete or PhaseFailed.
	Phase Phase

	// Warnings lists advisory failures (statistics refresh) that did not
	// fail the operation.
	Warnings []string
}
