// Package stats derives statistics-collection parameters from table
// cardinality and change scope, and defines the executor collaborator that
// performs the actual collection.
package stats

// Granularity selects which statistics a collection run recomputes.
type Granularity string

const (
	// GranularityAll recomputes table-level statistics.
	GranularityAll Granularity = "ALL"

	// GranularityPartition recomputes one partition's statistics.
	GranularityPartition Granularity = "PARTITION"

	// GranularitySubpartition recomputes one subpartition's statistics.
	GranularitySubpartition Granularity = "SUBPARTITION"
)

// ScopeKind identifies how much of a table a change touched.
type ScopeKind int

const (
	ScopeTable ScopeKind = iota
	ScopePartition
	ScopeSubpartition
)

// Scope names the object a change was limited to.
type Scope struct {
	Kind         ScopeKind
	Partition    string
	Subpartition string
}

// TableScope covers the whole table.
func TableScope() Scope { return Scope{Kind: ScopeTable} }

// PartitionScope covers one partition.
func PartitionScope(partition string) Scope {
	return Scope{Kind: ScopePartition, Partition: partition}
}

// SubpartitionScope covers one subpartition.
func SubpartitionScope(partition, subpartition string) Scope {
	return Scope{Kind: ScopeSubpartition, Partition: partition, Subpartition: subpartition}
}

// Plan holds the derived statistics-collection parameters.
type Plan struct {
	// SamplePercent is the sampling percentage. Nil leaves the choice to the
	// downstream statistics subsystem's adaptive mode; the engine never
	// hard-codes a fixed percentage.
	SamplePercent *float64

	// Degree is the requested parallelism. A hint for the executor; the core
	// itself never fans out work.
	Degree int

	// Granularity selects the recomputation scope.
	Granularity Granularity

	// Incremental reuses per-partition summaries so whole-table refreshes
	// after a scoped change only reprocess changed partitions.
	Incremental bool

	// GlobalRefresh requests a best-effort table-level refresh immediately
	// after a partition-scoped collection, keeping aggregate statistics
	// usable without a full rescan.
	GlobalRefresh bool
}

// Cardinality bands for the parallel-degree step function.
const (
	bandSmall  = 1_000_000
	bandMedium = 10_000_000
	bandLarge  = 100_000_000
)

// DegreeFor returns the parallel degree for an estimated row count. Unknown
// cardinality (zero or negative) uses the smallest band.
func DegreeFor(cardinality int64) int {
	switch {
	case cardinality < bandSmall:
		return 2
	case cardinality < bandMedium:
		return 4
	case cardinality < bandLarge:
		return 8
	default:
		return 16
	}
}

// Recommend derives the statistics plan for a table after a change of the
// given scope. cardinality <= 0 means unknown.
func Recommend(table string, cardinality int64, scope Scope) Plan {
	plan := Plan{
		Degree:      DegreeFor(cardinality),
		Incremental: true,
	}

	switch scope.Kind {
	case ScopePartition:
		plan.Granularity = GranularityPartition
		plan.GlobalRefresh = true
	case ScopeSubpartition:
		plan.Granularity = GranularitySubpartition
		plan.GlobalRefresh = true
	default:
		plan.Granularity = GranularityAll
	}

	return plan
}

// WithSamplePercent overrides the adaptive sampling default.
func (p Plan) WithSamplePercent(percent float64) Plan {
	p.SamplePercent = &percent
	return p
}
