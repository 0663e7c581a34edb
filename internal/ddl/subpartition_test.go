package ddl

import (
	"fmt"
	"strings"
	"testing"

	rerrors "github.com/reshapedb/reshape/internal/errors"
	"github.com/reshapedb/reshape/pkg/types"
)

func TestSubpartitionClause_HashTemplateRoundRobin(t *testing.T) {
	spec := types.SubpartitionSpec{
		Type:        types.SubpartitionHash,
		KeyColumns:  []string{"customer_id"},
		Count:       4,
		Tablespaces: []string{"A", "B"},
	}

	got, err := SubpartitionClause(spec)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Subpartitions 1..4 land on A, B, A, B.
	for i, ts := range []string{"A", "B", "A", "B"} {
		want := fmt.Sprintf("SUBPARTITION sp%d TABLESPACE %s", i+1, ts)
		if !strings.Contains(got, want) {
			t.Errorf("clause %q missing %q", got, want)
		}
	}
}

func TestSubpartitionClause_HashCountOnly(t *testing.T) {
	spec := types.SubpartitionSpec{
		Type:       types.SubpartitionHash,
		KeyColumns: []string{"id"},
		Count:      4,
	}
	got, err := SubpartitionClause(spec)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := "SUBPARTITION BY HASH (id) SUBPARTITIONS 4"
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestSubpartitionClause_CountDefaultsToTablespaceLength(t *testing.T) {
	spec := types.SubpartitionSpec{
		Type:        types.SubpartitionHash,
		KeyColumns:  []string{"id"},
		Tablespaces: []string{"T1", "T2", "T3"},
	}
	got, err := SubpartitionClause(spec)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for i := 1; i <= 3; i++ {
		if !strings.Contains(got, fmt.Sprintf("SUBPARTITION sp%d TABLESPACE T%d", i, i)) {
			t.Errorf("clause %q missing template entry %d", got, i)
		}
	}
	if strings.Contains(got, "sp4") {
		t.Errorf("clause %q has more entries than tablespaces", got)
	}
}

func TestSubpartitionClause_RangeTemplate(t *testing.T) {
	spec := types.SubpartitionSpec{
		Type:       types.SubpartitionRange,
		KeyColumns: []string{"amount"},
		Template: []types.SubpartitionDef{
			{Name: "s_low", Values: "1000"},
			{Name: "s_high", Values: "MAXVALUE"},
		},
	}
	got, err := SubpartitionClause(spec)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(got, "SUBPARTITION s_low VALUES LESS THAN (1000)") {
		t.Errorf("clause %q missing range template entry", got)
	}
	if !strings.Contains(got, "SUBPARTITION s_high VALUES LESS THAN (MAXVALUE)") {
		t.Errorf("clause %q missing maxvalue entry", got)
	}
}

func TestSubpartitionClause_Errors(t *testing.T) {
	tests := []struct {
		name     string
		spec     types.SubpartitionSpec
		wantCode string
	}{
		{
			name:     "unknown subpartition type",
			spec:     types.SubpartitionSpec{Type: "INTERVAL", KeyColumns: []string{"c"}},
			wantCode: rerrors.CodeUnknownType,
		},
		{
			name:     "missing key columns",
			spec:     types.SubpartitionSpec{Type: types.SubpartitionHash, Count: 2},
			wantCode: rerrors.CodeMissingValues,
		},
		{
			name:     "hash without count or tablespaces",
			spec:     types.SubpartitionSpec{Type: types.SubpartitionHash, KeyColumns: []string{"c"}},
			wantCode: rerrors.CodeMissingValues,
		},
		{
			name:     "list without template",
			spec:     types.SubpartitionSpec{Type: types.SubpartitionList, KeyColumns: []string{"c"}},
			wantCode: rerrors.CodeMissingValues,
		},
		{
			name: "duplicate template names",
			spec: types.SubpartitionSpec{
				Type:       types.SubpartitionList,
				KeyColumns: []string{"c"},
				Template: []types.SubpartitionDef{
					{Name: "s1", Values: "'a'"},
					{Name: "s1", Values: "'b'"},
				},
			},
			wantCode: rerrors.CodeDuplicateName,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := SubpartitionClause(tt.spec)
			if rerrors.GetCode(err) != tt.wantCode {
				t.Errorf("got %v, want code %q", err, tt.wantCode)
			}
		})
	}
}

func TestBuildSubpartitioningClause(t *testing.T) {
	spec := types.SubpartitionSpec{
		Type:        types.SubpartitionHash,
		KeyColumns:  []string{"customer_id"},
		Count:       2,
		Tablespaces: []string{"A", "B"},
	}
	got, err := BuildSubpartitioningClause("orders", spec)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.HasPrefix(got, "ALTER TABLE orders MODIFY SUBPARTITION BY HASH (customer_id)") {
		t.Errorf("unexpected statement %q", got)
	}

	if _, err := BuildSubpartitioningClause("", spec); err == nil {
		t.Error("expected error for empty table name")
	}
}
