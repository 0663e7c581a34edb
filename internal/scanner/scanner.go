// Package scanner finds the secondary indexes and foreign-key constraints
// that must be carried through a reshape.
package scanner

import (
	"context"
	"fmt"

	"github.com/reshapedb/reshape/internal/catalog"
	"github.com/reshapedb/reshape/internal/errors"
	"github.com/reshapedb/reshape/pkg/types"
)

// Scanner answers dependent-object questions through the injected catalog.
type Scanner struct {
	catalog catalog.Query
}

// New creates a scanner over the given catalog.
func New(c catalog.Query) *Scanner {
	return &Scanner{catalog: c}
}

// Scan returns the table's secondary indexes and foreign keys, in catalog
// order. The scan is read-only.
func (s *Scanner) Scan(ctx context.Context, table string) ([]types.IndexRef, []types.ConstraintRef, error) {
	indexes, err := s.catalog.ListIndexes(ctx, table)
	if err != nil {
		return nil, nil, fmt.Errorf("scanning indexes of %s: %w", table, err)
	}
	fks, err := s.catalog.ListForeignKeys(ctx, table)
	if err != nil {
		return nil, nil, fmt.Errorf("scanning foreign keys of %s: %w", table, err)
	}
	return indexes, fks, nil
}

// ResolveReferenceConstraint locates the foreign key needed for reference
// partitioning: the first constraint referencing the declared parent, in
// catalog order. When multiple candidates reference the same parent the
// first wins; the catalog order is arbitrary but stable within one scan.
// An empty parent matches the first foreign key of any parent.
func (s *Scanner) ResolveReferenceConstraint(ctx context.Context, table, parent string) (types.ConstraintRef, error) {
	fks, err := s.catalog.ListForeignKeys(ctx, table)
	if err != nil {
		return types.ConstraintRef{}, fmt.Errorf("resolving reference constraint of %s: %w", table, err)
	}
	for _, fk := range fks {
		if parent == "" || fk.RefTable == parent {
			return fk, nil
		}
	}
	if parent == "" {
		return types.ConstraintRef{}, errors.NewValidationError(errors.CodeNoParentConstraint,
			fmt.Sprintf("table %s has no foreign key to derive reference partitions from", table))
	}
	return types.ConstraintRef{}, errors.NewValidationError(errors.CodeNoParentConstraint,
		fmt.Sprintf("table %s has no foreign key referencing %s", table, parent))
}
