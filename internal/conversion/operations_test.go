package conversion

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	rerrors "github.com/reshapedb/reshape/internal/errors"
	"github.com/reshapedb/reshape/internal/stats"
	"github.com/reshapedb/reshape/pkg/types"
)

func TestMaintain_Statements(t *testing.T) {
	tests := []struct {
		name     string
		req      MaintenanceRequest
		want     string
		wantPart string
	}{
		{
			name: "add subpartitioning",
			req: SubpartitionRequest{
				Table: "sales",
				Spec: types.SubpartitionSpec{
					Type:        types.SubpartitionHash,
					KeyColumns:  []string{"customer_id"},
					Count:       4,
					Tablespaces: []string{"ts_a", "ts_b"},
				},
			},
			want: "ALTER TABLE sales MODIFY SUBPARTITION BY HASH (customer_id) " +
				"SUBPARTITION TEMPLATE (SUBPARTITION sp1 TABLESPACE ts_a, SUBPARTITION sp2 TABLESPACE ts_b, " +
				"SUBPARTITION sp3 TABLESPACE ts_a, SUBPARTITION sp4 TABLESPACE ts_b)",
		},
		{
			name: "split",
			req: SplitRequest{
				Table:     "sales",
				Partition: "p_2025",
				At:        "DATE('2025-07-01')",
				Into:      [2]string{"p_2025_h1", "p_2025_h2"},
			},
			want: "ALTER TABLE sales SPLIT PARTITION p_2025 AT (DATE('2025-07-01')) " +
				"INTO (PARTITION p_2025_h1, PARTITION p_2025_h2) UPDATE INDEXES",
			wantPart: "p_2025",
		},
		{
			name: "merge",
			req: MergeRequest{
				Table:      "sales",
				Partitions: []string{"p_jan", "p_feb"},
				Into:       "p_q1",
			},
			want:     "ALTER TABLE sales MERGE PARTITIONS p_jan, p_feb INTO PARTITION p_q1 UPDATE INDEXES",
			wantPart: "p_q1",
		},
		{
			name: "move",
			req: MoveRequest{
				Table:      "sales",
				Partition:  "p_2024",
				Tablespace: "ts_cold",
			},
			want:     "ALTER TABLE sales MOVE PARTITION p_2024 TABLESPACE ts_cold ONLINE UPDATE INDEXES",
			wantPart: "p_2024",
		},
		{
			name:     "drop",
			req:      DropRequest{Table: "sales", Partition: "p_2019"},
			want:     "ALTER TABLE sales DROP PARTITION p_2019 UPDATE INDEXES",
			wantPart: "p_2019",
		},
		{
			name:     "truncate",
			req:      TruncateRequest{Table: "sales", Partition: "p_staging"},
			want:     "ALTER TABLE sales TRUNCATE PARTITION p_staging UPDATE INDEXES",
			wantPart: "p_staging",
		},
		{
			name: "exchange",
			req: ExchangeRequest{
				Table:     "sales",
				Partition: "p_2025",
				WithTable: "sales_load",
			},
			want: "ALTER TABLE sales EXCHANGE PARTITION p_2025 WITH TABLE sales_load " +
				"INCLUDING INDEXES WITHOUT VALIDATION",
			wantPart: "p_2025",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)
			h.catalog.exists["sales"] = true
			h.catalog.setPartitioned("sales", types.PartitionRange)

			res, err := h.orch.Maintain(context.Background(), tt.req)
			require.NoError(t, err)
			require.Equal(t, PhaseComplete, res.Phase)
			require.Equal(t, []string{tt.want}, h.executor.statements)

			h.log.Flush()
			h.sink.mu.Lock()
			defer h.sink.mu.Unlock()
			require.NotEmpty(t, h.sink.records)
			require.Equal(t, tt.wantPart, h.sink.records[0].Partition)
		})
	}
}

func TestMaintain_RequiresPartitionedTable(t *testing.T) {
	h := newHarness(t)
	h.catalog.exists["sales"] = true

	res, err := h.orch.Maintain(context.Background(), DropRequest{Table: "sales", Partition: "p_2019"})
	require.Error(t, err)
	require.Equal(t, rerrors.CodeNotPartitioned, rerrors.GetCode(err))
	require.Equal(t, PhaseFailed, res.Phase)
	require.Empty(t, h.executor.statements)
}

func TestMaintain_TableNotFound(t *testing.T) {
	h := newHarness(t)

	_, err := h.orch.Maintain(context.Background(), TruncateRequest{Table: "ghost", Partition: "p1"})
	require.Equal(t, rerrors.CodeTableNotFound, rerrors.GetCode(err))
	require.Empty(t, h.executor.statements)
}

func TestMaintain_BuildFailureSkipsExecute(t *testing.T) {
	h := newHarness(t)
	h.catalog.exists["sales"] = true
	h.catalog.setPartitioned("sales", types.PartitionRange)

	// Merging a single partition is malformed; the builder rejects it before
	// the executor is touched.
	_, err := h.orch.Maintain(context.Background(), MergeRequest{
		Table:      "sales",
		Partitions: []string{"p_jan"},
		Into:       "p_q1",
	})
	require.Equal(t, rerrors.CategoryBuild, rerrors.GetCategory(err))
	require.Empty(t, h.executor.statements)
}

func TestMaintain_StatsScopes(t *testing.T) {
	tests := []struct {
		name          string
		req           MaintenanceRequest
		wantPartition string
		wantGran      stats.Granularity
	}{
		{
			name:          "move refreshes the moved partition",
			req:           MoveRequest{Table: "sales", Partition: "p_2024", Tablespace: "ts_cold"},
			wantPartition: "p_2024",
			wantGran:      stats.GranularityPartition,
		},
		{
			name:          "drop refreshes the table",
			req:           DropRequest{Table: "sales", Partition: "p_2019"},
			wantPartition: "",
			wantGran:      stats.GranularityAll,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)
			h.catalog.exists["sales"] = true
			h.catalog.setPartitioned("sales", types.PartitionRange)

			_, err := h.orch.Maintain(context.Background(), tt.req)
			require.NoError(t, err)
			require.NotEmpty(t, h.stats.calls)
			require.Equal(t, tt.wantPartition, h.stats.calls[0].partition)
			require.Equal(t, tt.wantGran, h.stats.calls[0].plan.Granularity)
		})
	}
}

func TestMaintain_PartitionScopedStatsTriggerGlobalRefresh(t *testing.T) {
	h := newHarness(t)
	h.catalog.exists["sales"] = true
	h.catalog.setPartitioned("sales", types.PartitionRange)

	_, err := h.orch.Maintain(context.Background(), TruncateRequest{Table: "sales", Partition: "p_staging"})
	require.NoError(t, err)

	// One partition-scoped pass, then the table-level follow-up.
	require.Len(t, h.stats.calls, 2)
	require.Equal(t, "p_staging", h.stats.calls[0].partition)
	require.Equal(t, stats.GranularityPartition, h.stats.calls[0].plan.Granularity)
	require.Equal(t, "", h.stats.calls[1].partition)
	require.Equal(t, stats.GranularityAll, h.stats.calls[1].plan.Granularity)
}

func TestMaintain_ExecuteFailureNotRetried(t *testing.T) {
	h := newHarness(t)
	h.catalog.exists["sales"] = true
	h.catalog.setPartitioned("sales", types.PartitionRange)
	h.executor.err = fmt.Errorf("ORA-14074: partition bound must collate higher")

	res, err := h.orch.Maintain(context.Background(), SplitRequest{
		Table:     "sales",
		Partition: "p_2025",
		At:        "DATE('2025-07-01')",
		Into:      [2]string{"a", "b"},
	})
	require.Error(t, err)
	require.Equal(t, rerrors.CategoryExecution, rerrors.GetCategory(err))
	require.Equal(t, PhaseFailed, res.Phase)
	require.Len(t, h.executor.statements, 1)
	require.Empty(t, h.stats.calls)
}

func TestPreviewMaintenance(t *testing.T) {
	h := newHarness(t)
	h.catalog.exists["sales"] = true
	h.catalog.setPartitioned("sales", types.PartitionRange)

	stmt, err := h.orch.PreviewMaintenance(context.Background(), DropRequest{
		Table:     "sales",
		Partition: "p_2019",
	})
	require.NoError(t, err)
	require.Equal(t, "ALTER TABLE sales DROP PARTITION p_2019 UPDATE INDEXES", stmt)
	require.Empty(t, h.executor.statements)

	h.log.Flush()
	require.Empty(t, h.sink.phases())
}

func TestAnalyze(t *testing.T) {
	h := newHarness(t)
	h.catalog.exists["sales"] = true
	h.catalog.setPartitioned("sales", types.PartitionRange)
	h.catalog.rows["sales"] = 200_000_000

	res, err := h.orch.Analyze(context.Background(), AnalyzeRequest{
		Table:     "sales",
		Partition: "p_2025",
	})
	require.NoError(t, err)
	require.Equal(t, PhaseComplete, res.Phase)

	require.Len(t, h.stats.calls, 2)
	first := h.stats.calls[0]
	require.Equal(t, "p_2025", first.partition)
	require.Equal(t, 16, first.plan.Degree)
	require.Equal(t, stats.GranularityPartition, first.plan.Granularity)
	require.True(t, first.plan.Incremental)
	require.Nil(t, first.plan.SamplePercent)
	require.Equal(t, "", h.stats.calls[1].partition)
}

func TestAnalyze_SampleOverride(t *testing.T) {
	h := newHarness(t)
	h.catalog.exists["sales"] = true
	pct := 10.0

	_, err := h.orch.Analyze(context.Background(), AnalyzeRequest{
		Table:         "sales",
		SamplePercent: &pct,
	})
	require.NoError(t, err)
	require.Len(t, h.stats.calls, 1)
	require.NotNil(t, h.stats.calls[0].plan.SamplePercent)
	require.Equal(t, 10.0, *h.stats.calls[0].plan.SamplePercent)
}

// Unlike the post-change phase, an explicit analyze run fails when collection
// fails.
func TestAnalyze_CollectionFailureFailsOperation(t *testing.T) {
	h := newHarness(t)
	h.catalog.exists["sales"] = true
	h.stats.err = fmt.Errorf("stats job queue full")

	res, err := h.orch.Analyze(context.Background(), AnalyzeRequest{Table: "sales"})
	require.Error(t, err)
	require.Equal(t, rerrors.CategoryStatistics, rerrors.GetCategory(err))
	require.Equal(t, PhaseFailed, res.Phase)
}

func TestAnalyze_PartitionOnUnpartitionedTable(t *testing.T) {
	h := newHarness(t)
	h.catalog.exists["sales"] = true

	_, err := h.orch.Analyze(context.Background(), AnalyzeRequest{Table: "sales", Partition: "p1"})
	require.Equal(t, rerrors.CodeNotPartitioned, rerrors.GetCode(err))
	require.Empty(t, h.stats.calls)
}
