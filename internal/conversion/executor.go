package conversion

import "context"

// DDLExecutor hands a schema-change statement to the host engine. The engine
// provides whatever atomicity and online guarantees it has; the orchestrator
// assumes the table stays readable and writable during execution but does not
// implement that itself. Execution is never retried.
type DDLExecutor interface {
	Execute(ctx context.Context, statement string) error
}
