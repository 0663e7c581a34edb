package ddl

import (
	"fmt"
	"strings"

	"github.com/reshapedb/reshape/internal/errors"
	"github.com/reshapedb/reshape/pkg/types"
)

// SeedPartitions returns the "single default partition" list used when
// converting a non-partitioned table. Callers refine boundaries afterwards
// with split operations.
//
// RANGE seeds one catch-all partition, LIST one default partition. INTERVAL
// needs a real first boundary, so the caller supplies it. HASH and REFERENCE
// need no boundary at all.
func SeedPartitions(ptype types.PartitionType, keyColumns []string, intervalExpr, firstBoundary, refConstraint string) ([]types.PartitionDef, error) {
	switch ptype {
	case types.PartitionRange:
		return []types.PartitionDef{{
			Name:       "p_initial",
			Type:       types.PartitionRange,
			KeyColumns: keyColumns,
			Values:     "MAXVALUE",
		}}, nil
	case types.PartitionList:
		return []types.PartitionDef{{
			Name:       "p_default",
			Type:       types.PartitionList,
			KeyColumns: keyColumns,
			Values:     "DEFAULT",
		}}, nil
	case types.PartitionInterval:
		if firstBoundary == "" {
			return nil, errors.NewBuildError(errors.CodeMissingValues, "interval conversion requires a first boundary expression")
		}
		return []types.PartitionDef{{
			Name:         "p_initial",
			Type:         types.PartitionInterval,
			KeyColumns:   keyColumns,
			Values:       firstBoundary,
			IntervalExpr: intervalExpr,
		}}, nil
	case types.PartitionHash:
		return []types.PartitionDef{{
			Name:       "p_initial",
			Type:       types.PartitionHash,
			KeyColumns: keyColumns,
		}}, nil
	case types.PartitionReference:
		return []types.PartitionDef{{
			Name:          "p_ref",
			Type:          types.PartitionReference,
			RefConstraint: refConstraint,
		}}, nil
	default:
		return nil, errors.NewBuildError(errors.CodeUnknownType, fmt.Sprintf("unsupported conversion type %q", ptype))
	}
}

// IndexConversionClause renders the UPDATE INDEXES clause covering every
// non-LOB secondary index so dependent indexes are carried through the
// reshape as local indexes. Returns "" when no eligible index exists.
func IndexConversionClause(indexes []types.IndexRef) string {
	var entries []string
	for _, ix := range indexes {
		if ix.LOB {
			continue
		}
		entry := ix.Name + " LOCAL"
		if ix.Tablespace != "" {
			entry += " TABLESPACE " + ix.Tablespace
		}
		entries = append(entries, entry)
	}
	if len(entries) == 0 {
		return ""
	}
	return fmt.Sprintf("UPDATE INDEXES (%s)", strings.Join(entries, ", "))
}

// BuildConversionStatement composes the full online conversion statement:
// partition clause, optional subpartition clause, index-conversion clause,
// ONLINE keyword and parallelism hint.
func BuildConversionStatement(table string, parts []types.PartitionDef, spec *types.SubpartitionSpec, indexes []types.IndexRef, parallel int) (string, error) {
	if table == "" {
		return "", errors.NewBuildError(errors.CodeMissingValues, "table name is required")
	}

	var clause string
	var err error
	if spec != nil {
		clause, err = CompositeClause(parts, *spec)
	} else {
		clause, err = PartitionClause(parts)
	}
	if err != nil {
		return "", err
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "ALTER TABLE %s MODIFY %s", table, clause)

	if ix := IndexConversionClause(indexes); ix != "" {
		sb.WriteString(" ")
		sb.WriteString(ix)
	}

	sb.WriteString(" ONLINE")

	if parallel > 1 {
		fmt.Fprintf(&sb, " PARALLEL %d", parallel)
	}

	return sb.String(), nil
}
