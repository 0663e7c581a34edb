package catalog

import (
	"context"
	"fmt"

	"github.com/reshapedb/reshape/internal/stats"
)

// StatsLedger implements stats.Executor by recording each collection run in
// the catalog database, making analyze activity auditable. It stands in for
// the host engine's statistics subsystem in local mode and in tests.
type StatsLedger struct {
	catalog *SQLiteCatalog
}

// NewStatsLedger creates a stats ledger over the given catalog.
func NewStatsLedger(c *SQLiteCatalog) *StatsLedger {
	return &StatsLedger{catalog: c}
}

// Collect implements stats.Executor.
func (l *StatsLedger) Collect(ctx context.Context, table, partition string, plan stats.Plan) error {
	l.catalog.mu.Lock()
	defer l.catalog.mu.Unlock()
	_, err := l.catalog.db.ExecContext(ctx, `
		INSERT INTO stats_runs (table_name, partition_name, granularity, degree, incremental, sample_percent, global_refresh)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		table, partition, string(plan.Granularity), plan.Degree,
		boolToInt(plan.Incremental), plan.SamplePercent, boolToInt(plan.GlobalRefresh))
	if err != nil {
		return fmt.Errorf("catalog: failed to record stats run: %w", err)
	}
	return nil
}

// Runs returns the recorded collection runs for a table, oldest first.
func (l *StatsLedger) Runs(ctx context.Context, table string) ([]StatsRun, error) {
	rows, err := l.catalog.readDB.QueryContext(ctx, `
		SELECT table_name, partition_name, granularity, degree, incremental, global_refresh
		FROM stats_runs WHERE table_name = ? ORDER BY id`, table)
	if err != nil {
		return nil, fmt.Errorf("catalog: stats run scan failed: %w", err)
	}
	defer rows.Close()

	var runs []StatsRun
	for rows.Next() {
		var r StatsRun
		var incremental, global int
		if err := rows.Scan(&r.Table, &r.Partition, &r.Granularity, &r.Degree, &incremental, &global); err != nil {
			return nil, fmt.Errorf("catalog: stats run scan failed: %w", err)
		}
		r.Incremental = incremental != 0
		r.GlobalRefresh = global != 0
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// StatsRun is one recorded statistics collection.
type StatsRun struct {
	Table         string
	Partition     string
	Granularity   string
	Degree        int
	Incremental   bool
	GlobalRefresh bool
}
