package ddl

import (
	"fmt"
	"strings"

	"github.com/reshapedb/reshape/internal/errors"
	"github.com/reshapedb/reshape/pkg/types"
)

// SubpartitionClause renders the "SUBPARTITION BY ..." clause for a spec.
// For HASH it emits either a count or a template with one entry per
// subpartition index 1..count, each bound to its round-robin tablespace. For
// RANGE and LIST it emits the explicit template entries.
func SubpartitionClause(spec types.SubpartitionSpec) (string, error) {
	if !spec.Type.Valid() {
		return "", errors.NewBuildError(errors.CodeUnknownType, fmt.Sprintf("unsupported subpartition type %q", spec.Type))
	}
	if len(spec.KeyColumns) == 0 {
		return "", errors.NewBuildError(errors.CodeMissingValues, "subpartitioning requires at least one key column")
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "SUBPARTITION BY %s (%s)", spec.Type, strings.Join(spec.KeyColumns, ", "))

	switch spec.Type {
	case types.SubpartitionHash:
		count := spec.EffectiveCount()
		if count < 1 {
			return "", errors.NewBuildError(errors.CodeMissingValues, "hash subpartitioning requires a count or a tablespace list")
		}
		if len(spec.Tablespaces) == 0 {
			fmt.Fprintf(&sb, " SUBPARTITIONS %d", count)
			return sb.String(), nil
		}
		template, err := hashTemplate(spec, count)
		if err != nil {
			return "", err
		}
		sb.WriteString(" ")
		sb.WriteString(template)
	case types.SubpartitionRange, types.SubpartitionList:
		if len(spec.Template) == 0 {
			return "", errors.NewBuildError(errors.CodeMissingValues, fmt.Sprintf("%s subpartitioning requires template entries", spec.Type))
		}
		template, err := explicitTemplate(spec)
		if err != nil {
			return "", err
		}
		sb.WriteString(" ")
		sb.WriteString(template)
	}

	return sb.String(), nil
}

// BuildSubpartitioningClause renders the statement that adds second-level
// partitioning to an existing partitioned table.
func BuildSubpartitioningClause(tableName string, spec types.SubpartitionSpec) (string, error) {
	if tableName == "" {
		return "", errors.NewBuildError(errors.CodeMissingValues, "table name is required")
	}
	clause, err := SubpartitionClause(spec)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("ALTER TABLE %s MODIFY %s", tableName, clause), nil
}

// hashTemplate renders a hash subpartition template of count entries, each
// assigned tablespaces[(i-1) mod len(tablespaces)] for 1-indexed i.
func hashTemplate(spec types.SubpartitionSpec, count int) (string, error) {
	var sb strings.Builder
	sb.WriteString("SUBPARTITION TEMPLATE (")
	for i := 1; i <= count; i++ {
		if i > 1 {
			sb.WriteString(", ")
		}
		fmt.Fprintf(&sb, "SUBPARTITION sp%d TABLESPACE %s", i, spec.RoundRobinTablespace(i))
	}
	sb.WriteString(")")
	return sb.String(), nil
}

// explicitTemplate renders the declared template entries for range and list
// subpartitioning. Entries without a tablespace fall back to the round-robin
// assignment when tablespaces are configured.
func explicitTemplate(spec types.SubpartitionSpec) (string, error) {
	seen := make(map[string]bool, len(spec.Template))
	var sb strings.Builder
	sb.WriteString("SUBPARTITION TEMPLATE (")
	for i, sp := range spec.Template {
		if sp.Name == "" {
			return "", errors.NewBuildError(errors.CodeMissingValues, "template subpartition name is required")
		}
		if seen[sp.Name] {
			return "", errors.NewBuildError(errors.CodeDuplicateName, fmt.Sprintf("duplicate template subpartition name %q", sp.Name))
		}
		seen[sp.Name] = true

		if sp.Tablespace == "" {
			sp.Tablespace = spec.RoundRobinTablespace(i + 1)
		}

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
