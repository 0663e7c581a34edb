package types

// ColumnDef describes one column of a table. Immutable once part of a model.
type ColumnDef struct {
	// Name is the column name.
	Name string `json:"name"`

	// Type is the logical column type (e.g. NUMBER, VARCHAR2, DATE).
	Type string `json:"type"`

	// Length is the declared length for character types, zero when unset.
	Length int `json:"length,omitempty"`

	// Precision and Scale apply to numeric types, zero when unset.
	Precision int `json:"precision,omitempty"`
	Scale     int `json:"scale,omitempty"`

	// Nullable indicates whether the column accepts NULL.
	Nullable bool `json:"nullable"`

	// Default is the default value expression, empty when unset.
	Default string `json:"default,omitempty"`

	// Identity marks a generated-identity column.
	Identity bool `json:"identity,omitempty"`

	// Hidden marks an invisible column.
	Hidden bool `json:"hidden,omitempty"`
}

// ConstraintKind classifies table constraints.
type ConstraintKind string

const (
	ConstraintPrimary ConstraintKind = "PRIMARY"
	ConstraintUnique  ConstraintKind = "UNIQUE"
	ConstraintForeign ConstraintKind = "FOREIGN"
	ConstraintCheck   ConstraintKind = "CHECK"
)

// ConstraintDef describes one table constraint. A FOREIGN constraint whose
// parent is a partitioned table is the precondition for reference
// partitioning.
type ConstraintDef struct {
	// Name is the constraint name.
	Name string `json:"name"`

	// Kind is the constraint kind.
	Kind ConstraintKind `json:"kind"`

	// Columns are the constrained columns, in declared order.
	Columns []string `json:"columns"`

	// RefTable and RefColumns identify the parent (FOREIGN only).
	RefTable   string   `json:"ref_table,omitempty"`
	RefColumns []string `json:"ref_columns,omitempty"`

	// CheckExpr is the check expression (CHECK only).
	CheckExpr string `json:"check_expr,omitempty"`
}

// TableModel is the declarative description of a table's desired shape.
type TableModel struct {
	Name        string           `json:"name"`
	Columns     []ColumnDef      `json:"columns"`
	Constraints []ConstraintDef  `json:"constraints,omitempty"`
	Partitions  []PartitionDef   `json:"partitions,omitempty"`
	Subpart     *SubpartitionSpec `json:"subpartitioning,omitempty"`
	Properties  TableProperties  `json:"properties,omitempty"`
}

// IndexRef identifies a secondary index that must be carried through a
// reshape.
type IndexRef struct {
	// Name is the index name.
	Name string `json:"name"`

	// Columns are the indexed columns.
	Columns []string `json:"columns"`

	// Unique indicates a uniqueness-enforcing index.
	Unique bool `json:"unique"`

	// Tablespace is the index tablespace.
	Tablespace string `json:"tablespace,omitempty"`

	// LOB marks indexes backing LOB segments; these are excluded from
	// index-conversion clauses.
	LOB bool `json:"lob,omitempty"`
}

// ConstraintRef identifies a foreign-key constraint found in the catalog.
type ConstraintRef struct {
	// Name is the constraint name.
	Name string `json:"name"`

	// Columns are the constrained child columns.
	Columns []string `json:"columns"`

	// RefTable is the parent table the constraint references.
	RefTable string `json:"ref_table"`
}
