// Package oplog implements the autonomous operation log: an append-only
// record of every attempted operation and phase transition, written in a
// commit scope isolated from the operation it describes. Sink failures are
// swallowed at this package's boundary and never reach the orchestrator.
package oplog

import (
	"context"

	"github.com/reshapedb/reshape/pkg/types"
)

// Sink persists operation records. Append is an upsert on
// (operation_id, phase): the first write for a phase creates the record with
// StatusStarted, the second finalizes it with the terminal status.
type Sink interface {
	Append(ctx context.Context, record *types.OperationRecord) error
	Close() error
}
