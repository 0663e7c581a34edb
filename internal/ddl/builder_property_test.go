package ddl

import (
	"fmt"
	"strings"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"github.com/reshapedb/reshape/pkg/types"
)

// Round-robin assignment: for any tablespace list of length N and count K,
// template subpartition i (1-indexed) is bound to tablespaces[(i-1) mod N].
func TestProperty_HashTemplateRoundRobin(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	properties.Property("every template entry lands on its round-robin tablespace", prop.ForAll(
		func(n, k int) bool {
			tablespaces := make([]string, n)
			for i := range tablespaces {
				tablespaces[i] = fmt.Sprintf("TS_%d", i)
			}
			spec := types.SubpartitionSpec{
				Type:        types.SubpartitionHash,
				KeyColumns:  []string{"id"},
				Count:       k,
				Tablespaces: tablespaces,
			}

			clause, err := SubpartitionClause(spec)
			if err != nil {
				return false
			}
			for i := 1; i <= k; i++ {
				want := fmt.Sprintf("SUBPARTITION sp%d TABLESPACE %s", i, tablespaces[(i-1)%n])
				if !strings.Contains(clause, want) {
					return false
				}
			}
			return true
		},
		gen.IntRange(1, 8),
		gen.IntRange(1, 32),
	))

	properties.TestingRun(t)
}

// REFERENCE and SYSTEM partition clauses never contain an explicit partition
// list, regardless of how many definitions the caller passes.
func TestProperty_DerivedSchemesNeverEmitPartitionList(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	genParts := func(ptype types.PartitionType) gopter.Gen {
		return gen.IntRange(1, 10).Map(func(n int) []types.PartitionDef {
			parts := make([]types.PartitionDef, n)
			for i := range parts {
				parts[i] = types.PartitionDef{
					Name:          fmt.Sprintf("p%d", i),
					Type:          ptype,
					RefConstraint: "fk_parent",
				}
			}
			return parts
		})
	}

	properties.Property("reference clauses have no partition list", prop.ForAll(
		func(parts []types.PartitionDef) bool {
			clause, err := PartitionClause(parts)
			if err != nil {
				return false
			}
			return !strings.Contains(clause, "(PARTITION") && !strings.Contains(clause, "VALUES")
		},
		genParts(types.PartitionReference),
	))

	properties.Property("system clauses have no partition list", prop.ForAll(
		func(parts []types.PartitionDef) bool {
			clause, err := PartitionClause(parts)
			if err != nil {
				return false
			}
			return !strings.Contains(clause, "(PARTITION") && !strings.Contains(clause, "VALUES")
		},
		genParts(types.PartitionSystem),
	))

	properties.TestingRun(t)
}
