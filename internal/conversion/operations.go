package conversion

import (
	"context"
	"fmt"

	"github.com/reshapedb/reshape/internal/ddl"
	"github.com/reshapedb/reshape/internal/errors"
	"github.com/reshapedb/reshape/internal/stats"
	"github.com/reshapedb/reshape/pkg/types"
)

// MaintenanceRequest describes one partition maintenance statement. Every
// maintenance verb runs the same pipeline: validate that the table exists and
// is partitioned, build the statement, execute it once, then refresh
// statistics for the touched scope.
type MaintenanceRequest interface {
	verb() string
	table() string
	partition() string
	statement() (string, error)
	statsScope() stats.Scope
	samplePercent() *float64
}

// SubpartitionRequest adds second-level partitioning to a partitioned table.
type SubpartitionRequest struct {
	Table         string
	Spec          types.SubpartitionSpec
	SamplePercent *float64
}

func (r SubpartitionRequest) verb() string      { return "add-subpartitioning" }
func (r SubpartitionRequest) table() string     { return r.Table }
func (r SubpartitionRequest) partition() string { return "" }
func (r SubpartitionRequest) statement() (string, error) {
	return ddl.BuildSubpartitioningClause(r.Table, r.Spec)
}
func (r SubpartitionRequest) statsScope() stats.Scope { return stats.TableScope() }
func (r SubpartitionRequest) samplePercent() *float64 { return r.SamplePercent }

// SplitRequest splits one partition in two at a boundary expression.
type SplitRequest struct {
	Table         string
	Partition     string
	At            string
	Into          [2]string
	SamplePercent *float64
}

func (r SplitRequest) verb() string      { return "split" }
func (r SplitRequest) table() string     { return r.Table }
func (r SplitRequest) partition() string { return r.Partition }
func (r SplitRequest) statement() (string, error) {
	return ddl.SplitPartition(r.Table, r.Partition, r.At, r.Into)
}

// Both halves need fresh statistics; a whole-table incremental refresh
// reprocesses exactly the two new partitions.
func (r SplitRequest) statsScope() stats.Scope { return stats.TableScope() }
func (r SplitRequest) samplePercent() *float64 { return r.SamplePercent }

// MergeRequest merges adjacent partitions into one.
type MergeRequest struct {
	Table         string
	Partitions    []string
	Into          string
	SamplePercent *float64
}

func (r MergeRequest) verb() string      { return "merge" }
func (r MergeRequest) table() string     { return r.Table }
func (r MergeRequest) partition() string { return r.Into }
func (r MergeRequest) statement() (string, error) {
	return ddl.MergePartitions(r.Table, r.Partitions, r.Into)
}
func (r MergeRequest) statsScope() stats.Scope { return stats.PartitionScope(r.Into) }
func (r MergeRequest) samplePercent() *float64 { return r.SamplePercent }

// MoveRequest relocates one partition to another tablespace.
type MoveRequest struct {
	Table         string
	Partition     string
	Tablespace    string
	SamplePercent *float64
}

func (r MoveRequest) verb() string      { return "move" }
func (r MoveRequest) table() string     { return r.Table }
func (r MoveRequest) partition() string { return r.Partition }
func (r MoveRequest) statement() (string, error) {
	return ddl.MovePartition(r.Table, r.Partition, r.Tablespace)
}
func (r MoveRequest) statsScope() stats.Scope { return stats.PartitionScope(r.Partition) }
func (r MoveRequest) samplePercent() *float64 { return r.SamplePercent }

// DropRequest drops one partition.
type DropRequest struct {
	Table         string
	Partition     string
	SamplePercent *float64
}

func (r DropRequest) verb() string      { return "drop" }
func (r DropRequest) table() string     { return r.Table }
func (r DropRequest) partition() string { return r.Partition }
func (r DropRequest) statement() (string, error) {
	return ddl.DropPartition(r.Table, r.Partition)
}

// The partition is gone; only the table-level aggregates need refreshing.
func (r DropRequest) statsScope() stats.Scope { return stats.TableScope() }
func (r DropRequest) samplePercent() *float64 { return r.SamplePercent }

// TruncateRequest truncates one partition.
type TruncateRequest struct {
	Table         string
	Partition     string
	SamplePercent *float64
}

func (r TruncateRequest) verb() string      { return "truncate" }
func (r TruncateRequest) table() string     { return r.Table }
func (r TruncateRequest) partition() string { return r.Partition }
func (r TruncateRequest) statement() (string, error) {
	return ddl.TruncatePartition(r.Table, r.Partition)
}
func (r TruncateRequest) statsScope() stats.Scope { return stats.PartitionScope(r.Partition) }
func (r TruncateRequest) samplePercent() *float64 { return r.SamplePercent }

// ExchangeRequest swaps one partition's segment with a standalone table.
type ExchangeRequest struct {
	Table         string
	Partition     string
	WithTable     string
	SamplePercent *float64
}

func (r ExchangeRequest) verb() string      { return "exchange" }
func (r ExchangeRequest) table() string     { return r.Table }
func (r ExchangeRequest) partition() string { return r.Partition }
func (r ExchangeRequest) statement() (string, error) {
	return ddl.ExchangePartition(r.Table, r.Partition, r.WithTable)
}
func (r ExchangeRequest) statsScope() stats.Scope { return stats.PartitionScope(r.Partition) }
func (r ExchangeRequest) samplePercent() *float64 { return r.SamplePercent }

// Maintain runs one maintenance request through the phase pipeline. Like
// conversion, Execute runs at most once and is never retried; the statistics
// phase is best-effort.
func (o *Orchestrator) Maintain(ctx context.Context, req MaintenanceRequest) (*Result, error) {
	op := o.begin(req.verb(), req.table())
	op.record.Partition = req.partition()

	if err := op.run(ctx, PhaseValidate, func(ctx context.Context) error {
		return o.validateMaintenance(ctx, req.table())
	}); err != nil {
		return op.fail(err)
	}

	var statement string
	if err := op.run(ctx, PhaseBuildClause, func(ctx context.Context) error {
		var err error
		statement, err = req.statement()
		return err
	}); err != nil {
		return op.fail(err)
	}
	op.statement = statement

	if err := op.run(ctx, PhaseExecute, func(ctx context.Context) error {
		if err := o.executor.Execute(ctx, statement); err != nil {
			return errors.NewExecutionError("executing maintenance statement", err)
		}
		return nil
	}); err != nil {
		return op.fail(err)
	}

	scope := req.statsScope()
	o.configureStatistics(ctx, op, req.table(), scope.Partition, scope, req.samplePercent())

	return op.complete()
}

// PreviewMaintenance returns the statement Maintain would execute, running
// the same validation but touching neither the executor nor the operation
// log.
func (o *Orchestrator) PreviewMaintenance(ctx context.Context, req MaintenanceRequest) (string, error) {
	if err := o.validateMaintenance(ctx, req.table()); err != nil {
		return "", err
	}
	return req.statement()
}

// validateMaintenance enforces the maintenance preconditions: the table must
// exist and already be partitioned.
func (o *Orchestrator) validateMaintenance(ctx context.Context, table string) error {
	if table == "" {
		return errors.NewValidationError(errors.CodeMissingParameter, "table name is required")
	}

	exists, err := o.catalog.TableExists(ctx, table)
	if err != nil {
		return err
	}
	if !exists {
		return errors.NewValidationError(errors.CodeTableNotFound,
			fmt.Sprintf("table %s does not exist", table))
	}

	partitioned, err := o.catalog.IsPartitioned(ctx, table)
	if err != nil {
		return err
	}
	if !partitioned {
		return errors.NewValidationError(errors.CodeNotPartitioned,
			fmt.Sprintf("table %s is not partitioned", table))
	}
	return nil
}

// AnalyzeRequest asks for an explicit statistics collection run.
type AnalyzeRequest struct {
	// Table is the table to analyze.
	Table string

	// Partition limits collection to one partition. Empty analyzes the whole
	// table.
	Partition string

	// SamplePercent overrides the adaptive sampling default.
	SamplePercent *float64
}

// Analyze collects statistics on demand. Unlike the post-change statistics
// phase, a collection failure here fails the operation: statistics are the
// whole point of the request, not a follow-up.
func (o *Orchestrator) Analyze(ctx context.Context, req AnalyzeRequest) (*Result, error) {
	op := o.begin("analyze", req.Table)
	op.record.Partition = req.Partition

	if err := op.run(ctx, PhaseValidate, func(ctx context.Context) error {
		if req.Table == "" {
			return errors.NewValidationError(errors.CodeMissingParameter, "table name is required")
		}
		exists, err := o.catalog.TableExists(ctx, req.Table)
		if err != nil {
			return err
		}
		if !exists {
			return errors.NewValidationError(errors.CodeTableNotFound,
				fmt.Sprintf("table %s does not exist", req.Table))
		}
		if req.Partition != "" {
			partitioned, err := o.catalog.IsPartitioned(ctx, req.Table)
			if err != nil {
				return err
			}
			if !partitioned {
				return errors.NewValidationError(errors.CodeNotPartitioned,
					fmt.Sprintf("table %s has no partition %s to analyze", req.Table, req.Partition))
			}
		}
		return nil
	}); err != nil {
		return op.fail(err)
	}

	if err := op.run(ctx, PhaseConfigureStatistics, func(ctx context.Context) error {
		cardinality, err := o.catalog.EstimatedRows(ctx, req.Table)
		if err != nil {
			cardinality = 0
		}
		scope := stats.TableScope()
		if req.Partition != "" {
			scope = stats.PartitionScope(req.Partition)
		}
		plan := stats.Recommend(req.Table, cardinality, scope)
		if req.SamplePercent != nil {
			plan = plan.WithSamplePercent(*req.SamplePercent)
		}
		op.record.Attributes["stats_degree"] = fmt.Sprintf("%d", plan.Degree)
		op.record.Attributes["stats_granularity"] = string(plan.Granularity)

		if err := o.statsExec.Collect(ctx, req.Table, req.Partition, plan); err != nil {
			return errors.NewStatisticsWarning("statistics collection failed", err)
		}
		if plan.GlobalRefresh {
			global := stats.Recommend(req.Table, cardinality, stats.TableScope())
			if err := o.statsExec.Collect(ctx, req.Table, "", global); err != nil {
				return errors.NewStatisticsWarning("global statistics refresh failed", err)
			}
		}
		return nil
	}); err != nil {
		return op.fail(err)
	}

	return op.complete()
}
