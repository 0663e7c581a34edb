package ddl

import (
	"fmt"
	"strings"

	"github.com/reshapedb/reshape/internal/errors"
)

// Maintenance statement synthesis: one function per partition maintenance
// verb. Each keeps dependent indexes usable via UPDATE INDEXES.

// SplitPartition renders the statement splitting one partition in two at the
// given boundary expression.
func SplitPartition(table, partition, at string, into [2]string) (string, error) {
	if err := requireFields(map[string]string{
		"table": table, "partition": partition, "at": at,
		"first target": into[0], "second target": into[1],
	}); err != nil {
		return "", err
	}
	return fmt.Sprintf("ALTER TABLE %s SPLIT PARTITION %s AT (%s) INTO (PARTITION %s, PARTITION %s) UPDATE INDEXES",
		table, partition, at, into[0], into[1]), nil
}

// MergePartitions renders the statement merging adjacent partitions into one.
func MergePartitions(table string, partitions []string, into string) (string, error) {
	if err := requireFields(map[string]string{"table": table, "target": into}); err != nil {
		return "", err
	}
	if len(partitions) < 2 {
		return "", errors.NewBuildError(errors.CodeMissingValues, fmt.Sprintf("merge requires at least two source partitions, got %d", len(partitions)))
	}
	return fmt.Sprintf("ALTER TABLE %s MERGE PARTITIONS %s INTO PARTITION %s UPDATE INDEXES",
		table, strings.Join(partitions, ", "), into), nil
}

// MovePartition renders the statement relocating one partition to a new
// tablespace while it stays online.
func MovePartition(table, partition, tablespace string) (string, error) {
	if err := requireFields(map[string]string{"table": table, "partition": partition, "tablespace": tablespace}); err != nil {
		return "", err
	}
	return fmt.Sprintf("ALTER TABLE %s MOVE PARTITION %s TABLESPACE %s ONLINE UPDATE INDEXES",
		table, partition, tablespace), nil
}

// DropPartition renders the statement dropping one partition.
func DropPartition(table, partition string) (string, error) {
	if err := requireFields(map[string]string{"table": table, "partition": partition}); err != nil {
		return "", err
	}
	return fmt.Sprintf("ALTER TABLE %s DROP PARTITION %s UPDATE INDEXES", table, partition), nil
}

// TruncatePartition renders the statement truncating one partition.
func TruncatePartition(table, partition string) (string, error) {
	if err := requireFields(map[string]string{"table": table, "partition": partition}); err != nil {
		return "", err
	}
	return fmt.Sprintf("ALTER TABLE %s TRUNCATE PARTITION %s UPDATE INDEXES", table, partition), nil
}

// ExchangePartition renders the statement swapping one partition's segment
// with a standalone table.
func ExchangePartition(table, partition, withTable string) (string, error) {
	if err := requireFields(map[string]string{"table": table, "partition": partition, "exchange table": withTable}); err != nil {
		return "", err
	}
	return fmt.Sprintf("ALTER TABLE %s EXCHANGE PARTITION %s WITH TABLE %s INCLUDING INDEXES WITHOUT VALIDATION",
		table, partition, withTable), nil
}

func requireFields(fields map[string]string) error {
	for name, v := range fields {
		if v == "" {
			return errors.NewBuildError(errors.CodeMissingValues, name+" is required")
		}
	}
	return nil
}
