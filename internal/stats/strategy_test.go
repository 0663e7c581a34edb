package stats

import "testing"

func TestDegreeFor_Bands(t *testing.T) {
	tests := []struct {
		name        string
		cardinality int64
		want        int
	}{
		{"unknown cardinality uses the smallest band", 0, 2},
		{"negative cardinality uses the smallest band", -1, 2},
		{"just under one million", 999_999, 2},
		{"one million", 1_000_000, 4},
		{"just under ten million", 9_999_999, 4},
		{"ten million", 10_000_000, 8},
		{"fifty million", 50_000_000, 8},
		{"just under one hundred million", 99_999_999, 8},
		{"one hundred million", 100_000_000, 16},
		{"billions", 3_000_000_000, 16},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DegreeFor(tt.cardinality); got != tt.want {
				t.Errorf("DegreeFor(%d) = %d, want %d", tt.cardinality, got, tt.want)
			}
		})
	}
}

func TestRecommend_WholeTable(t *testing.T) {
	plan := Recommend("orders", 50_000_000, TableScope())

	if plan.Granularity != GranularityAll {
		t.Errorf("granularity = %q, want ALL", plan.Granularity)
	}
	if plan.Degree != 8 {
		t.Errorf("degree = %d, want 8", plan.Degree)
	}
	if !plan.Incremental {
		t.Error("incremental should default to true for partitioned tables")
	}
	if plan.GlobalRefresh {
		t.Error("whole-table scope needs no follow-up global refresh")
	}
	if plan.SamplePercent != nil {
		t.Errorf("sample percent should default to adaptive (nil), got %v", *plan.SamplePercent)
	}
}

func TestRecommend_PartitionScope(t *testing.T) {
	plan := Recommend("orders", 5_000_000, PartitionScope("p2024"))

	if plan.Granularity != GranularityPartition {
		t.Errorf("granularity = %q, want PARTITION", plan.Granularity)
	}
	if !plan.GlobalRefresh {
		t.Error("partition scope must request a best-effort global refresh")
	}
	if plan.Degree != 4 {
		t.Errorf("degree = %d, want 4", plan.Degree)
	}
}

func TestRecommend_SubpartitionScope(t *testing.T) {
	plan := Recommend("orders", 0, SubpartitionScope("p2024", "p2024_s1"))

	if plan.Granularity != GranularitySubpartition {
		t.Errorf("granularity = %q, want SUBPARTITION", plan.Granularity)
	}
	if !plan.GlobalRefresh {
		t.Error("subpartition scope must request a best-effort global refresh")
	}
}

func TestPlan_WithSamplePercent(t *testing.T) {
	plan := Recommend("orders", 0, TableScope()).WithSamplePercent(10)
	if plan.SamplePercent == nil || *plan.SamplePercent != 10 {
		t.Errorf("sample percent override not applied: %v", plan.SamplePercent)
	}
}
