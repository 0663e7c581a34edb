package types

// PartitionType identifies the top-level partitioning strategy of a table.
type PartitionType string

const (
	// PartitionRange bounds each partition by an upper limit (VALUES LESS THAN).
	PartitionRange PartitionType = "RANGE"

	// PartitionList enumerates the key values each partition accepts.
	PartitionList PartitionType = "LIST"

	// PartitionHash distributes rows by hash of the key; partitions carry no values.
	PartitionHash PartitionType = "HASH"

	// PartitionInterval is range partitioning with engine-created partitions
	// beyond the last explicit boundary, stepped by an interval expression.
	PartitionInterval PartitionType = "INTERVAL"

	// PartitionReference derives the partition set from a parent table through
	// a foreign-key constraint; no explicit partition list exists.
	PartitionReference PartitionType = "REFERENCE"

	// PartitionAutoList is list partitioning where the engine creates a new
	// partition for every new key value; the model stores only seed partitions.
	PartitionAutoList PartitionType = "AUTO_LIST"

	// PartitionSystem leaves row placement to the inserting session; the
	// declaration is bare and carries no partition list.
	PartitionSystem PartitionType = "SYSTEM"
)

// SubpartitionType identifies the second-level strategy of a composite scheme.
type SubpartitionType string

const (
	SubpartitionRange SubpartitionType = "RANGE"
	SubpartitionList  SubpartitionType = "LIST"
	SubpartitionHash  SubpartitionType = "HASH"
)

// PartitionDef describes one top-level partition of a table.
type PartitionDef struct {
	// Name is the partition name, unique within the table.
	Name string `json:"name"`

	// Type is the partitioning strategy. All partitions of one table share it.
	Type PartitionType `json:"type"`

	// KeyColumns are the partition key columns.
	KeyColumns []string `json:"key_columns,omitempty"`

	// Values is the boundary expression. Its meaning depends on Type:
	// RANGE/INTERVAL render it as VALUES LESS THAN (...), LIST/AUTO_LIST as
	// VALUES (...). HASH, REFERENCE and SYSTEM partitions carry none.
	Values string `json:"values,omitempty"`

	// Tablespace is the target tablespace, empty for the default.
	Tablespace string `json:"tablespace,omitempty"`

	// IntervalExpr is the interval step expression (INTERVAL only).
	IntervalExpr string `json:"interval_expr,omitempty"`

	// RefConstraint names the foreign-key constraint that derives the
	// partition set (REFERENCE only).
	RefConstraint string `json:"ref_constraint,omitempty"`

	// Subpartitions overrides the table's subpartition template for this one
	// partition (composite RANGE/LIST bodies only).
	Subpartitions []SubpartitionDef `json:"subpartitions,omitempty"`
}

// SubpartitionDef describes one second-level partition. A subpartition never
// nests further; composite partitioning is exactly two levels.
type SubpartitionDef struct {
	// Name is the subpartition name, unique within its partition.
	Name string `json:"name"`

	// Values is the boundary expression for RANGE/LIST subpartitions.
	Values string `json:"values,omitempty"`

	// Tablespace is the target tablespace.
	Tablespace string `json:"tablespace,omitempty"`
}

// SubpartitionSpec declares second-level partitioning for a table, applied as
// a template to every top-level partition, including future ones.
type SubpartitionSpec struct {
	// Type is the second-level strategy.
	Type SubpartitionType `json:"type"`

	// KeyColumns are the subpartition key columns.
	KeyColumns []string `json:"key_columns"`

	// Count is the number of hash subpartitions (HASH only). When zero and
	// Tablespaces is non-empty, the count defaults to len(Tablespaces).
	Count int `json:"count,omitempty"`

	// Tablespaces are assigned to template subpartitions round-robin: the
	// i-th subpartition (1-indexed) gets Tablespaces[(i-1) mod len].
	Tablespaces []string `json:"tablespaces,omitempty"`

	// Template lists explicit template entries for RANGE/LIST subpartitioning.
	Template []SubpartitionDef `json:"template,omitempty"`
}

// TableProperties holds table-level physical attributes carried through a
// reshape.
type TableProperties struct {
	Tablespace  string `json:"tablespace,omitempty"`
	Compression string `json:"compression,omitempty"`
	Parallel    int    `json:"parallel,omitempty"`
	Logging     bool   `json:"logging"`
}

// HasValuesClause reports whether partitions of this type carry a values
// expression. HASH distributes by hash, REFERENCE and SYSTEM derive their
// partition sets elsewhere.
func (t PartitionType) HasValuesClause() bool {
	switch t {
	case PartitionRange, PartitionList, PartitionInterval, PartitionAutoList:
		return true
	default:
		return false
	}
}

// HasPartitionList reports whether the DDL for this type includes an explicit
// partition list. REFERENCE and SYSTEM are the exceptions: their partition
// sets come from the parent table and from runtime inserts respectively.
func (t PartitionType) HasPartitionList() bool {
	return t != PartitionReference && t != PartitionSystem
}

// Valid reports whether t is a known partition type.
func (t PartitionType) Valid() bool {
	switch t {
	case PartitionRange, PartitionList, PartitionHash, PartitionInterval,
		PartitionReference, PartitionAutoList, PartitionSystem:
		return true
	}
	return false
}

// Valid reports whether t is a known subpartition type.
func (t SubpartitionType) Valid() bool {
	switch t {
	case SubpartitionRange, SubpartitionList, SubpartitionHash:
		return true
	}
	return false
}

// RoundRobinTablespace returns the tablespace for the i-th subpartition
// (1-indexed) under the deterministic round-robin assignment, or "" when no
// tablespaces are configured.
func (s SubpartitionSpec) RoundRobinTablespace(i int) string {
	if len(s.Tablespaces) == 0 || i < 1 {
		return ""
	}
	return s.Tablespaces[(i-1)%len(s.Tablespaces)]
}

// EffectiveCount returns the hash subpartition count, defaulting to the
// tablespace-list length when unset.
func (s SubpartitionSpec) EffectiveCount() int {
	if s.Count > 0 {
		return s.Count
	}
	return len(s.Tablespaces)
}
