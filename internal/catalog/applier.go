package catalog

import (
	"context"
	"fmt"
	"strings"

	"github.com/reshapedb/reshape/pkg/types"
)

// MetadataApplier is the local-mode DDL executor: it records the statement in
// the catalog's DDL ledger and applies its partitioning effect to the
// metadata, so the toolkit is exercisable end to end without a host engine.
// Real deployments inject an executor that hands the statement to the engine.
type MetadataApplier struct {
	catalog *SQLiteCatalog
}

// NewMetadataApplier creates a metadata applier over the given catalog.
func NewMetadataApplier(c *SQLiteCatalog) *MetadataApplier {
	return &MetadataApplier{catalog: c}
}

// Execute records the statement and updates the catalog's partitioning flags
// for conversion statements. Maintenance statements only hit the ledger.
func (a *MetadataApplier) Execute(ctx context.Context, statement string) error {
	if err := a.catalog.RecordStatement(ctx, statement); err != nil {
		return err
	}

	table, ptype, ok := parseConversion(statement)
	if !ok {
		return nil
	}
	if err := a.catalog.SetPartitioned(ctx, table, ptype); err != nil {
		return fmt.Errorf("applying conversion metadata: %w", err)
	}
	return nil
}

// parseConversion recognizes the conversion statements this toolkit builds:
// "ALTER TABLE <t> MODIFY PARTITION BY <strategy> ...". It only needs to
// understand its own output, not arbitrary SQL.
func parseConversion(statement string) (table string, ptype types.PartitionType, ok bool) {
	fields := strings.Fields(statement)
	if len(fields) < 7 {
		return "", "", false
	}
	if !strings.EqualFold(fields[0], "ALTER") || !strings.EqualFold(fields[1], "TABLE") ||
		!strings.EqualFold(fields[3], "MODIFY") || !strings.EqualFold(fields[4], "PARTITION") ||
		!strings.EqualFold(fields[5], "BY") {
		return "", "", false
	}
	table = fields[2]

	switch strings.ToUpper(strings.TrimRight(fields[6], "(")) {
	case "RANGE":
		ptype = types.PartitionRange
		if strings.Contains(statement, " INTERVAL (") {
			ptype = types.PartitionInterval
		}
	case "LIST":
		ptype = types.PartitionList
		if strings.Contains(statement, ") AUTOMATIC") {
			ptype = types.PartitionAutoList
		}
	case "HASH":
		ptype = types.PartitionHash
	case "REFERENCE":
		ptype = types.PartitionReference
	case "SYSTEM":
		ptype = types.PartitionSystem
	default:
		return "", "", false
	}
	return table, ptype, true
}
