package ddl

import (
	"strings"
	"testing"

	rerrors "github.com/reshapedb/reshape/internal/errors"
	"github.com/reshapedb/reshape/pkg/types"
)

func TestSeedPartitions(t *testing.T) {
	tests := []struct {
		name       string
		ptype      types.PartitionType
		boundary   string
		wantValues string
		wantErr    bool
	}{
		{name: "range seeds maxvalue catch-all", ptype: types.PartitionRange, wantValues: "MAXVALUE"},
		{name: "list seeds default partition", ptype: types.PartitionList, wantValues: "DEFAULT"},
		{name: "interval needs a first boundary", ptype: types.PartitionInterval, wantErr: true},
		{name: "interval with boundary", ptype: types.PartitionInterval, boundary: "DATE('2025-01-01')", wantValues: "DATE('2025-01-01')"},
		{name: "hash seeds one bare partition", ptype: types.PartitionHash},
		{name: "reference seeds no boundary", ptype: types.PartitionReference},
		{name: "auto list is not a conversion type", ptype: types.PartitionAutoList, wantErr: true},
		{name: "system is not a conversion type", ptype: types.PartitionSystem, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			parts, err := SeedPartitions(tt.ptype, []string{"c"}, "NUMTODSINTERVAL(1, 'DAY')", tt.boundary, "fk_parent")
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if len(parts) != 1 {
				t.Fatalf("expected one seed partition, got %d", len(parts))
			}
			if parts[0].Values != tt.wantValues {
				t.Errorf("values = %q, want %q", parts[0].Values, tt.wantValues)
			}
		})
	}
}

func TestIndexConversionClause(t *testing.T) {
	indexes := []types.IndexRef{
		{Name: "ix_orders_customer", Columns: []string{"customer_id"}},
		{Name: "ix_orders_blob", LOB: true},
		{Name: "ux_orders_ref", Columns: []string{"ref"}, Unique: true, Tablespace: "TS_IX"},
	}

	got := IndexConversionClause(indexes)
	if !strings.Contains(got, "ix_orders_customer LOCAL") {
		t.Errorf("clause %q missing secondary index", got)
	}
	if !strings.Contains(got, "ux_orders_ref LOCAL TABLESPACE TS_IX") {
		t.Errorf("clause %q missing unique index with tablespace", got)
	}
	if strings.Contains(got, "ix_orders_blob") {
		t.Errorf("clause %q must exclude LOB indexes", got)
	}

	if got := IndexConversionClause(nil); got != "" {
		t.Errorf("expected empty clause for no indexes, got %q", got)
	}
	if got := IndexConversionClause([]types.IndexRef{{Name: "lob", LOB: true}}); got != "" {
		t.Errorf("expected empty clause when only LOB indexes exist, got %q", got)
	}
}

func TestBuildConversionStatement(t *testing.T) {
	parts, err := SeedPartitions(types.PartitionRange, []string{"created_at"}, "", "", "")
	if err != nil {
		t.Fatalf("seed: %v", err)
	}
	indexes := []types.IndexRef{{Name: "ix_c", Columns: []string{"c"}}}

	got, err := BuildConversionStatement("orders", parts, nil, indexes, 4)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	for _, want := range []string{
		"ALTER TABLE orders MODIFY PARTITION BY RANGE (created_at)",
		"PARTITION p_initial VALUES LESS THAN (MAXVALUE)",
		"UPDATE INDEXES (ix_c LOCAL)",
		"ONLINE",
		"PARALLEL 4",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("statement %q missing %q", got, want)
		}
	}

	// ONLINE must precede the parallel hint, after the index clause.
	if strings.Index(got, "UPDATE INDEXES") > strings.Index(got, "ONLINE") {
		t.Errorf("index clause should precede ONLINE in %q", got)
	}
}

func TestBuildConversionStatement_Errors(t *testing.T) {
	parts := []types.PartitionDef{{Name: "p", Type: types.PartitionRange, KeyColumns: []string{"c"}, Values: "1"}}

	if _, err := BuildConversionStatement("", parts, nil, nil, 0); rerrors.GetCode(err) != rerrors.CodeMissingValues {
		t.Errorf("expected MISSING_VALUES for empty table, got %v", err)
	}
	if _, err := BuildConversionStatement("t", nil, nil, nil, 0); rerrors.GetCode(err) != rerrors.CodeEmptyPartitionList {
		t.Errorf("expected EMPTY_PARTITION_LIST, got %v", err)
	}
}

func TestMaintenanceStatements(t *testing.T) {
	tests := []struct {
		name    string
		build   func() (string, error)
		want    []string
		wantErr bool
	}{
		{
			name:  "split",
			build: func() (string, error) { return SplitPartition("t", "p1", "100", [2]string{"p1a", "p1b"}) },
			want:  []string{"SPLIT PARTITION p1 AT (100)", "INTO (PARTITION p1a, PARTITION p1b)", "UPDATE INDEXES"},
		},
		{
			name:  "merge",
			build: func() (string, error) { return MergePartitions("t", []string{"p1", "p2"}, "p12") },
			want:  []string{"MERGE PARTITIONS p1, p2 INTO PARTITION p12"},
		},
		{
			name:    "merge with one source",
			build:   func() (string, error) { return MergePartitions("t", []string{"p1"}, "p12") },
			wantErr: true,
		},
		{
			name:  "move",
			build: func() (string, error) { return MovePartition("t", "p1", "TS_NEW") },
			want:  []string{"MOVE PARTITION p1 TABLESPACE TS_NEW ONLINE"},
		},
		{
			name:  "drop",
			build: func() (string, error) { return DropPartition("t", "p1") },
			want:  []string{"DROP PARTITION p1"},
		},
		{
			name:  "truncate",
			build: func() (string, error) { return TruncatePartition("t", "p1") },
			want:  []string{"TRUNCATE PARTITION p1"},
		},
		{
			name:  "exchange",
			build: func() (string, error) { return ExchangePartition("t", "p1", "staging") },
			want:  []string{"EXCHANGE PARTITION p1 WITH TABLE staging", "INCLUDING INDEXES"},
		},
		{
			name:    "empty partition name",
			build:   func() (string, error) { return DropPartition("t", "") },
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.build()
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			for _, want := range tt.want {
				if !strings.Contains(got, want) {
					t.Errorf("statement %q missing %q", got, want)
				}
			}
		})
	}
}
