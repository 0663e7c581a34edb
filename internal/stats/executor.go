package stats

import "context"

// Executor performs the actual statistics collection. Implementations wrap
// the host engine's statistics subsystem; the recorder in this package keeps
// a local ledger for audit and tests.
type Executor interface {
	// Collect gathers statistics for the table, limited to one partition when
	// partition is non-empty, using the parameters in plan.
	Collect(ctx context.Context, table, partition string, plan Plan) error
}
