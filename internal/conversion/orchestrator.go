// Package conversion orchestrates online partitioning reshapes: it validates
// preconditions, scans dependent objects, builds the schema-change statement,
// hands it to the external executor and triggers the post-change statistics
// refresh, logging every phase through the autonomous operation log.
package conversion

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/spaolacci/murmur3"
	"go.uber.org/zap"

	"github.com/reshapedb/reshape/internal/catalog"
	"github.com/reshapedb/reshape/internal/ddl"
	"github.com/reshapedb/reshape/internal/errors"
	"github.com/reshapedb/reshape/internal/oplog"
	"github.com/reshapedb/reshape/internal/scanner"
	"github.com/reshapedb/reshape/internal/stats"
	"github.com/reshapedb/reshape/pkg/types"
)

// Phase names the orchestrator's state-machine states.
type Phase string

const (
	PhaseValidate            Phase = "Validate"
	PhaseScanDependents      Phase = "ScanDependents"
	PhaseBuildClause         Phase = "BuildClause"
	PhaseExecute             Phase = "Execute"
	PhaseConfigureStatistics Phase = "ConfigureStatistics"
	PhaseComplete            Phase = "Complete"
	PhaseFailed              Phase = "Failed"
)

// conversionTypes are the strategies supported by convert-to-partitioned.
// AUTO_LIST and SYSTEM tables are created partitioned, never converted to.
var conversionTypes = map[types.PartitionType]bool{
	types.PartitionRange:     true,
	types.PartitionList:      true,
	types.PartitionHash:      true,
	types.PartitionInterval:  true,
	types.PartitionReference: true,
}

// Orchestrator composes the scanner, the DDL builder, the statistics
// strategy engine and the external collaborators into guarded multi-phase
// reshape operations. Each operation runs its phases strictly in order; no
// phase proceeds speculatively.
type Orchestrator struct {
	catalog   catalog.Query
	scanner   *scanner.Scanner
	executor  DDLExecutor
	statsExec stats.Executor
	log       *oplog.Log
	logger    *zap.Logger
}

// New creates an orchestrator over the given collaborators.
func New(cat catalog.Query, exec DDLExecutor, statsExec stats.Executor, log *oplog.Log, logger *zap.Logger) *Orchestrator {
	return &Orchestrator{
		catalog:   cat,
		scanner:   scanner.New(cat),
		executor:  exec,
		statsExec: statsExec,
		log:       log,
		logger:    logger,
	}
}

// ConvertToPartitioned reshapes a non-partitioned table into the requested
// scheme while it stays online. Between Execute success and Complete the
// table's scheme is exactly what BuildClause produced; nothing after Execute
// can alter or roll back the schema change.
func (o *Orchestrator) ConvertToPartitioned(ctx context.Context, req ConvertRequest) (*Result, error) {
	op := o.begin("convert", req.Table)

	if err := op.run(ctx, PhaseValidate, func(ctx context.Context) error {
		return o.validateConvert(ctx, req)
	}); err != nil {
		return op.fail(err)
	}

	var indexes []types.IndexRef
	if err := op.run(ctx, PhaseScanDependents, func(ctx context.Context) error {
		var err error
		indexes, _, err = o.scanner.Scan(ctx, req.Table)
		op.record.ObjectCount = int64(len(indexes))
		return err
	}); err != nil {
		return op.fail(err)
	}

	var statement string
	if err := op.run(ctx, PhaseBuildClause, func(ctx context.Context) error {
		var err error
		statement, err = o.buildConversion(ctx, req, indexes)
		return err
	}); err != nil {
		return op.fail(err)
	}
	op.statement = statement

	if err := op.run(ctx, PhaseExecute, func(ctx context.Context) error {
		// Not retried: online schema changes are not safely idempotent.
		if err := o.executor.Execute(ctx, statement); err != nil {
			return errors.NewExecutionError("executing conversion statement", err)
		}
		return nil
	}); err != nil {
		return op.fail(err)
	}

	o.configureStatistics(ctx, op, req.Table, "", stats.TableScope(), req.SamplePercent)

	return op.complete()
}

// Preview returns the statement ConvertToPartitioned would execute, without
// touching the executor, the statistics subsystem or the operation log.
// Validation and the dependent-object scan still run, so a preview fails for
// exactly the inputs the real operation would reject before Execute.
func (o *Orchestrator) Preview(ctx context.Context, req ConvertRequest) (string, error) {
	if err := o.validateConvert(ctx, req); err != nil {
		return "", err
	}
	indexes, _, err := o.scanner.Scan(ctx, req.Table)
	if err != nil {
		return "", err
	}
	return o.buildConversion(ctx, req, indexes)
}

// validateConvert enforces the conversion preconditions. All failures here
// are ValidationErrors, surfaced before any DDL is built.
func (o *Orchestrator) validateConvert(ctx context.Context, req ConvertRequest) error {
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

	partitioned, err := o.catalog.IsPartitioned(ctx, req.Table)
	if err != nil {
		return err
	}
	if partitioned {
		return errors.NewValidationError(errors.CodeAlreadyPartitioned,
			fmt.Sprintf("table %s is already partitioned; conversion is one-shot", req.Table))
	}

	if !conversionTypes[req.Type] {
		return errors.NewValidationError(errors.CodeUnsupportedType,
			fmt.Sprintf("partition type %q is not supported for conversion", req.Type))
	}

	if req.Type != types.PartitionReference && len(req.Columns) == 0 {
		return errors.NewValidationError(errors.CodeMissingParameter,
			fmt.Sprintf("%s conversion requires a partition column", req.Type))
	}

	if req.Type == types.PartitionInterval {
		if req.IntervalExpr == "" {
			return errors.NewValidationError(errors.CodeMissingParameter,
				"interval conversion requires an interval expression")
		}
		if req.FirstBoundary == "" {
			return errors.NewValidationError(errors.CodeMissingParameter,
				"interval conversion requires a first boundary expression")
		}
	}

	if req.Type == types.PartitionReference {
		// The parent foreign key must resolve now, before any DDL is built.
		if _, err := o.scanner.ResolveReferenceConstraint(ctx, req.Table, req.ParentTable); err != nil {
			return err
		}
	}

	return nil
}

// buildConversion composes the conversion statement for the request.
func (o *Orchestrator) buildConversion(ctx context.Context, req ConvertRequest, indexes []types.IndexRef) (string, error) {
	refConstraint := ""
	if req.Type == types.PartitionReference {
		fk, err := o.scanner.ResolveReferenceConstraint(ctx, req.Table, req.ParentTable)
		if err != nil {
			return "", err
		}
		refConstraint = fk.Name
	}

	parts, err := ddl.SeedPartitions(req.Type, req.Columns, req.IntervalExpr, req.FirstBoundary, refConstraint)
	if err != nil {
		return "", err
	}
	return ddl.BuildConversionStatement(req.Table, parts, req.Subpartitioning, indexes, req.ParallelDegree)
}

// configureStatistics runs the best-effort statistics phase. Failures are
// recorded as warnings and never fail the operation: the reshape already
// succeeded.
func (o *Orchestrator) configureStatistics(ctx context.Context, op *operation, table, partition string, scope stats.Scope, samplePercent *float64) {
	start := time.Now()
	op.logPhase(PhaseConfigureStatistics, types.StatusStarted, 0, nil)

	cardinality, err := o.catalog.EstimatedRows(ctx, table)
	if err != nil {
		// An unreadable estimate degrades to the default band.
		cardinality = 0
	}
	plan := stats.Recommend(table, cardinality, scope)
	if samplePercent != nil {
		plan = plan.WithSamplePercent(*samplePercent)
	}
	op.record.Attributes["stats_degree"] = fmt.Sprintf("%d", plan.Degree)
	op.record.Attributes["stats_granularity"] = string(plan.Granularity)

	if err := o.statsExec.Collect(ctx, table, partition, plan); err != nil {
		warn := errors.NewStatisticsWarning("post-change statistics refresh failed", err)
		op.warnings = append(op.warnings, warn.Error())
		op.logPhase(PhaseConfigureStatistics, types.StatusWarning, time.Since(start), warn)
		o.logger.Warn("statistics refresh failed after successful reshape",
			zap.String("table", table), zap.Error(err))
		return
	}

	// A partition-scoped collection is followed by a best-effort global
	// refresh so aggregate statistics stay usable.
	if plan.GlobalRefresh {
		global := stats.Recommend(table, cardinality, stats.TableScope())
		if err := o.statsExec.Collect(ctx, table, "", global); err != nil {
			warn := errors.NewStatisticsWarning("global statistics refresh failed", err)
			op.warnings = append(op.warnings, warn.Error())
			op.logPhase(PhaseConfigureStatistics, types.StatusWarning, time.Since(start), warn)
			return
		}
	}

	op.logPhase(PhaseConfigureStatistics, types.StatusSuccess, time.Since(start), nil)
}

// operation tracks one orchestrator run: its correlation id, its shared log
// record template and its terminal bookkeeping.
type operation struct {
	o         *Orchestrator
	record    types.OperationRecord
	started   time.Time
	statement string
	warnings  []string
}

// begin opens a new operation run.
func (o *Orchestrator) begin(verb, table string) *operation {
	return &operation{
		o:       o,
		started: time.Now(),
		record: types.OperationRecord{
			OperationID: uuid.NewString(),
			Operation:   verb,
			Table:       table,
			Attributes:  map[string]string{},
		},
	}
}

// run executes one phase, logging its start and end. The returned error is
// the phase's own; logging can never produce one.
func (op *operation) run(ctx context.Context, phase Phase, fn func(context.Context) error) error {
	start := time.Now()
	op.logPhase(phase, types.StatusStarted, 0, nil)

	if err := fn(ctx); err != nil {
		op.logPhase(phase, types.StatusFailed, time.Since(start), err)
		return err
	}
	op.logPhase(phase, types.StatusSuccess, time.Since(start), nil)
	return nil
}

// logPhase writes one phase record through the autonomous log. Fire and
// forget: errors are swallowed inside the log by contract.
func (op *operation) logPhase(phase Phase, status types.OperationStatus, duration time.Duration, err error) {
	rec := op.record
	rec.Phase = string(phase)
	rec.Status = status
	rec.Duration = duration
	if err != nil {
		rec.ErrorCode = errors.GetCode(err)
		rec.ErrorMessage = err.Error()
	}
	// The log consumes records asynchronously; never share the live map.
	rec.Attributes = copyAttrs(op.record.Attributes)
	if op.statement != "" {
		rec.Attributes["statement_fingerprint"] = fingerprint(op.statement)
	}
	op.o.log.Record(&rec)
}

// fail finalizes a failed run.
func (op *operation) fail(err error) (*Result, error) {
	op.logPhase(PhaseFailed, types.StatusFailed, time.Since(op.started), err)
	op.o.logger.Error("operation failed",
		zap.String("operation", op.record.Operation),
		zap.String("table", op.record.Table),
		zap.String("operation_id", op.record.OperationID),
		zap.Error(err))
	return &Result{
		OperationID: op.record.OperationID,
		Statement:   op.statement,
		Phase:       PhaseFailed,
		Warnings:    op.warnings,
	}, err
}

// complete finalizes a successful run.
func (op *operation) complete() (*Result, error) {
	op.logPhase(PhaseComplete, types.StatusSuccess, time.Since(op.started), nil)
	op.o.logger.Info("operation complete",
		zap.String("operation", op.record.Operation),
		zap.String("table", op.record.Table),
		zap.String("operation_id", op.record.OperationID),
		zap.Duration("duration", time.Since(op.started)))
	return &Result{
		OperationID: op.record.OperationID,
		Statement:   op.statement,
		Phase:       PhaseComplete,
		Warnings:    op.warnings,
	}, nil
}

// fingerprint returns the 128-bit murmur3 hash of a statement, used to
// correlate log records with the exact DDL text they describe.
func fingerprint(statement string) string {
	h1, h2 := murmur3.Sum128([]byte(statement))
	return fmt.Sprintf("%016x%016x", h1, h2)
}

func copyAttrs(attrs map[string]string) map[string]string {
	cp := make(map[string]string, len(attrs)+1)
	for k, v := range attrs {
		cp[k] = v
	}
	return cp
}
