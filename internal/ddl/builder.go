// Package ddl synthesizes partition schema-change statements from the
// declarative model in pkg/types. The package is pure text synthesis: it
// never touches a database.
package ddl

import (
	"fmt"
	"strings"

	"github.com/reshapedb/reshape/internal/errors"
	"github.com/reshapedb/reshape/pkg/types"
)

// PartitionClause renders the full "PARTITION BY ..." clause for a base
// (single-level) partitioning scheme. Dispatch is on the type of the first
// definition; all definitions in one list must share it.
func PartitionClause(parts []types.PartitionDef) (string, error) {
	return compositeClause(parts, nil)
}

// CompositeClause renders a two-level "PARTITION BY ... SUBPARTITION BY ..."
// clause. The subpartition clause is appended before the partition list, and
// RANGE/LIST composite partitions may carry nested subpartition lists that
// override the template for that one partition.
func CompositeClause(parts []types.PartitionDef, spec types.SubpartitionSpec) (string, error) {
	return compositeClause(parts, &spec)
}

// SimpleHashClause renders count-based hash partitioning, which emits a
// partition count instead of an explicit list.
func SimpleHashClause(keyColumns []string, count int) (string, error) {
	if len(keyColumns) == 0 {
		return "", errors.NewBuildError(errors.CodeMissingValues, "hash partitioning requires at least one key column")
	}
	if count < 1 {
		return "", errors.NewBuildError(errors.CodeMissingValues, fmt.Sprintf("hash partition count must be >= 1, got %d", count))
	}
	return fmt.Sprintf("PARTITION BY HASH (%s) PARTITIONS %d", strings.Join(keyColumns, ", "), count), nil
}

func compositeClause(parts []types.PartitionDef, spec *types.SubpartitionSpec) (string, error) {
	if len(parts) == 0 {
		return "", errors.NewBuildError(errors.CodeEmptyPartitionList, "partition list is empty")
	}

	ptype := parts[0].Type
	if !ptype.Valid() {
		return "", errors.NewBuildError(errors.CodeUnknownType, fmt.Sprintf("unsupported partition type %q", ptype))
	}
	if err := validatePartitions(parts, ptype, spec); err != nil {
		return "", err
	}

	var sb strings.Builder
	header, err := clauseHeader(parts[0])
	if err != nil {
		return "", err
	}
	sb.WriteString(header)

	if spec != nil {
		sub, err := SubpartitionClause(*spec)
		if err != nil {
			return "", err
		}
		sb.WriteString(" ")
		sb.WriteString(sub)
	}

	// REFERENCE and SYSTEM derive their partition sets externally and are the
	// one exception to the "then emit partition list" step.
	if !ptype.HasPartitionList() {
		return sb.String(), nil
	}

	sb.WriteString(" (")
	for i, p := range parts {
		if i > 0 {
			sb.WriteString(", ")
		}
		body, err := partitionBody(p, spec)
		if err != nil {
			return "", err
		}
		sb.WriteString(body)
	}
	sb.WriteString(")")

	return sb.String(), nil
}

// clauseHeader renders the "PARTITION BY ..." prefix for the scheme the first
// definition declares.
func clauseHeader(first types.PartitionDef) (string, error) {
	keys := strings.Join(first.KeyColumns, ", ")

	switch first.Type {
	case types.PartitionRange:
		return fmt.Sprintf("PARTITION BY RANGE (%s)", keys), nil
	case types.PartitionInterval:
		if first.IntervalExpr == "" {
			return "", errors.NewBuildError(errors.CodeMissingValues, fmt.Sprintf("partition %q: interval partitioning requires an interval expression", first.Name))
		}
		return fmt.Sprintf("PARTITION BY RANGE (%s) INTERVAL (%s)", keys, first.IntervalExpr), nil
	case types.PartitionList:
		return fmt.Sprintf("PARTITION BY LIST (%s)", keys), nil
	case types.PartitionAutoList:
		return fmt.Sprintf("PARTITION BY LIST (%s) AUTOMATIC", keys), nil
	case types.PartitionHash:
		return fmt.Sprintf("PARTITION BY HASH (%s)", keys), nil
	case types.PartitionReference:
		if first.RefConstraint == "" {
			return "", errors.NewBuildError(errors.CodeMissingValues, fmt.Sprintf("partition %q: reference partitioning requires a constraint name", first.Name))
		}
		return fmt.Sprintf("PARTITION BY REFERENCE (%s)", first.RefConstraint), nil
	case types.PartitionSystem:
		return "PARTITION BY SYSTEM", nil
	default:
		return "", errors.NewBuildError(errors.CodeUnknownType, fmt.Sprintf("unsupported partition type %q", first.Type))
	}
}

// partitionBody renders one entry of the explicit partition list.
func partitionBody(p types.PartitionDef, spec *types.SubpartitionSpec) (string, error) {
	var sb strings.Builder
	sb.WriteString("PARTITION ")
	sb.WriteString(p.Name)

	values, err := valuesClause(p)
	if err != nil {
		return "", err
	}
	if values != "" {
		sb.WriteString(" ")
		sb.WriteString(values)
	}

	if p.Tablespace != "" {
		sb.WriteString(" TABLESPACE ")
		sb.WriteString(p.Tablespace)
	}

	if len(p.Subpartitions) > 0 {
		nested, err := nestedSubpartitionList(p, spec)
		if err != nil {
			return "", err
		}
		sb.WriteString(" ")
		sb.WriteString(nested)
	}

	return sb.String(), nil
}

// valuesClause renders the per-type boundary expression of one partition.
func valuesClause(p types.PartitionDef) (string, error) {
	switch p.Type {
	case types.PartitionRange, types.PartitionInterval:
		if p.Values == "" {
			return "", errors.NewBuildError(errors.CodeMissingValues, fmt.Sprintf("partition %q: range partitions require a boundary expression", p.Name))
		}
		return fmt.Sprintf("VALUES LESS THAN (%s)", p.Values), nil
	case types.PartitionList:
		if p.Values == "" {
			return "", errors.NewBuildError(errors.CodeMissingValues, fmt.Sprintf("partition %q: list partitions require a values expression", p.Name))
		}
		return fmt.Sprintf("VALUES (%s)", p.Values), nil
	case types.PartitionAutoList:
		// Automatic list partitioning needs no boundary beyond a catch-all;
		// seed partitions without explicit values accept the default bucket.
		if p.Values == "" {
			return "VALUES (DEFAULT)", nil
		}
		return fmt.Sprintf("VALUES (%s)", p.Values), nil
	case types.PartitionHash, types.PartitionReference, types.PartitionSystem:
		return "", nil
	default:
		return "", errors.NewBuildError(errors.CodeUnknownType, fmt.Sprintf("unsupported partition type %q", p.Type))
	}
}

// nestedSubpartitionList renders a per-partition subpartition list that
// overrides the table template for this one partition.
func nestedSubpartitionList(p types.PartitionDef, spec *types.SubpartitionSpec) (string, error) {
	if spec == nil {
		return "", errors.NewBuildError(errors.CodeBadComposite, fmt.Sprintf("partition %q declares subpartitions without a subpartition spec", p.Name))
	}
	if p.Type != types.PartitionRange && p.Type != types.PartitionInterval && p.Type != types.PartitionList {
		return "", errors.NewBuildError(errors.CodeBadComposite, fmt.Sprintf("partition %q: only range and list composite partitions may override the template", p.Name))
	}

	seen := make(map[string]bool, len(p.Subpartitions))
	var sb strings.Builder
	sb.WriteString("(")
	for i, sp := range p.Subpartitions {
		if seen[sp.Name] {
			return "", errors.NewBuildError(errors.CodeDuplicateName, fmt.Sprintf("partition %q: duplicate subpartition name %q", p.Name, sp.Name))
		}
		seen[sp.Name] = true

		if i > 0 {
			sb.WriteString(", ")
		}
		entry, err := subpartitionEntry(sp, spec.Type)
		if err != nil {
			return "", err
		}
		sb.WriteString(entry)
	}
	sb.WriteString(")")
	return sb.String(), nil
}

// subpartitionEntry renders one SUBPARTITION entry for the given second-level
// strategy.
func subpartitionEntry(sp types.SubpartitionDef, stype types.SubpartitionType) (string, error) {
	var sb strings.Builder
	sb.WriteString("SUBPARTITION ")
	sb.WriteString(sp.Name)

	switch stype {
	case types.SubpartitionRange:
		if sp.Values == "" {
			return "", errors.NewBuildError(errors.CodeMissingValues, fmt.Sprintf("subpartition %q: range subpartitions require a boundary expression", sp.Name))
		}
		sb.WriteString(fmt.Sprintf(" VALUES LESS THAN (%s)", sp.Values))
	case types.SubpartitionList:
		if sp.Values == "" {
			return "", errors.NewBuildError(errors.CodeMissingValues, fmt.Sprintf("subpartition %q: list subpartitions require a values expression", sp.Name))
		}
		sb.WriteString(fmt.Sprintf(" VALUES (%s)", sp.Values))
	case types.SubpartitionHash:
		// Hash subpartitions carry no values.
	default:
		return "", errors.NewBuildError(errors.CodeUnknownType, fmt.Sprintf("unsupported subpartition type %q", stype))
	}

	if sp.Tablespace != "" {
		sb.WriteString(" TABLESPACE ")
		sb.WriteString(sp.Tablespace)
	}
	return sb.String(), nil
}

// validatePartitions checks the structural invariants of one partition list.
func validatePartitions(parts []types.PartitionDef, ptype types.PartitionType, spec *types.SubpartitionSpec) error {
	seen := make(map[string]bool, len(parts))
	for _, p := range parts {
		if p.Type != ptype {
			return errors.NewBuildError(errors.CodeBadComposite, fmt.Sprintf("partition %q has type %q, expected %q (all partitions of one table share a type)", p.Name, p.Type, ptype))
		}
		if ptype.HasPartitionList() {
			if p.Name == "" {
				return errors.NewBuildError(errors.CodeMissingValues, "partition name is required")
			}
			if seen[p.Name] {
				return errors.NewBuildError(errors.CodeDuplicateName, fmt.Sprintf("duplicate partition name %q", p.Name))
			}
			seen[p.Name] = true
		}
		if len(p.Subpartitions) > 0 && spec == nil {
			return errors.NewBuildError(errors.CodeBadComposite, fmt.Sprintf("partition %q declares subpartitions without a subpartition spec", p.Name))
		}
	}
	if spec != nil && !ptype.HasPartitionList() {
		return errors.NewBuildError(errors.CodeBadComposite, fmt.Sprintf("%s partitioning cannot be composite", ptype))
	}
	return nil
}
