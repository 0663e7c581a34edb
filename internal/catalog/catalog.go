// Package catalog provides the catalog-query collaborator used by the
// dependent-object scanner and the orchestrator's validation phase, plus a
// SQLite-backed implementation that doubles as the toolkit's local metadata
// store.
package catalog

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/reshapedb/reshape/pkg/types"
)

// Query is the read-only catalog interface consumed by the scanner and the
// orchestrator. Implementations answer from the host engine's dictionary or,
// for the local store, from metadata registered through a Store.
type Query interface {
	// TableExists reports whether the table is known to the catalog.
	TableExists(ctx context.Context, table string) (bool, error)

	// IsPartitioned reports whether the table already has a partitioning
	// scheme.
	IsPartitioned(ctx context.Context, table string) (bool, error)

	// PartitionType returns the table's partitioning strategy, or "" when the
	// table is not partitioned.
	PartitionType(ctx context.Context, table string) (types.PartitionType, error)

	// ListIndexes returns the table's secondary indexes in catalog order.
	ListIndexes(ctx context.Context, table string) ([]types.IndexRef, error)

	// ListForeignKeys returns the table's foreign keys in catalog order. The
	// order is arbitrary but stable within one scan.
	ListForeignKeys(ctx context.Context, table string) ([]types.ConstraintRef, error)

	// EstimatedRows returns the table's estimated cardinality, or zero when
	// unknown.
	EstimatedRows(ctx context.Context, table string) (int64, error)
}

// SQLiteCatalog implements Query over a local SQLite metadata database. It
// follows a single-writer / pooled-reader connection split so registration
// never blocks scans.
type SQLiteCatalog struct {
	db     *sql.DB // write connection (single writer)
	readDB *sql.DB // read connection pool
	dbPath string
	mu     sync.Mutex // guards writes
}

// Open opens (creating if necessary) a SQLite catalog at dbPath.
func Open(dbPath string) (*SQLiteCatalog, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("catalog: failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	readDB, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("catalog: failed to open read database: %w", err)
	}
	readDB.SetMaxOpenConns(4)
	readDB.SetConnMaxLifetime(5 * time.Minute)

	c := &SQLiteCatalog{db: db, readDB: readDB, dbPath: dbPath}
	if err := c.initSchema(); err != nil {
		readDB.Close()
		db.Close()
		return nil, fmt.Errorf("catalog: failed to initialize schema: %w", err)
	}
	return c, nil
}

func (c *SQLiteCatalog) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS tables (
		name            TEXT PRIMARY KEY,
		partitioned     INTEGER NOT NULL DEFAULT 0,
		partition_type  TEXT NOT NULL DEFAULT '',
		estimated_rows  INTEGER NOT NULL DEFAULT 0
	);
	CREATE TABLE IF NOT EXISTS table_indexes (
		table_name  TEXT NOT NULL,
		name        TEXT NOT NULL,
		columns     TEXT NOT NULL,
		is_unique   INTEGER NOT NULL DEFAULT 0,
		tablespace  TEXT NOT NULL DEFAULT '',
		is_lob      INTEGER NOT NULL DEFAULT 0,
		position    INTEGER NOT NULL,
		PRIMARY KEY (table_name, name)
	);
	CREATE TABLE IF NOT EXISTS foreign_keys (
		table_name  TEXT NOT NULL,
		name        TEXT NOT NULL,
		columns     TEXT NOT NULL,
		ref_table   TEXT NOT NULL,
		position    INTEGER NOT NULL,
		PRIMARY KEY (table_name, name)
	);
	CREATE TABLE IF NOT EXISTS executed_ddl (
		id          INTEGER PRIMARY KEY AUTOINCREMENT,
		statement   TEXT NOT NULL,
		executed_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
	);
	CREATE TABLE IF NOT EXISTS stats_runs (
		id             INTEGER PRIMARY KEY AUTOINCREMENT,
		table_name     TEXT NOT NULL,
		partition_name TEXT NOT NULL DEFAULT '',
		granularity    TEXT NOT NULL,
		degree         INTEGER NOT NULL,
		incremental    INTEGER NOT NULL,
		sample_percent REAL,
		global_refresh INTEGER NOT NULL,
		collected_at   TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
	);`
	_, err := c.db.Exec(schema)
	return err
}

// RegisterTable registers a table, optionally with its current partitioning.
func (c *SQLiteCatalog) RegisterTable(ctx context.Context, name string, partitioned bool, ptype types.PartitionType, estimatedRows int64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, err := c.db.ExecContext(ctx, `
		INSERT INTO tables (name, partitioned, partition_type, estimated_rows)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET
			partitioned = excluded.partitioned,
			partition_type = excluded.partition_type,
			estimated_rows = excluded.estimated_rows`,
		name, boolToInt(partitioned), string(ptype), estimatedRows)
	if err != nil {
		return fmt.Errorf("catalog: failed to register table %s: %w", name, err)
	}
	return nil
}

// RegisterIndex records one secondary index of a table. Position fixes the
// catalog order returned by ListIndexes.
func (c *SQLiteCatalog) RegisterIndex(ctx context.Context, table string, ix types.IndexRef, position int) error {
	cols, err := json.Marshal(ix.Columns)
	if err != nil {
		return fmt.Errorf("catalog: failed to encode index columns: %w", err)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	_, err = c.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO table_indexes (table_name, name, columns, is_unique, tablespace, is_lob, position)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		table, ix.Name, string(cols), boolToInt(ix.Unique), ix.Tablespace, boolToInt(ix.LOB), position)
	if err != nil {
		return fmt.Errorf("catalog: failed to register index %s.%s: %w", table, ix.Name, err)
	}
	return nil
}

// RegisterForeignKey records one foreign key of a table.
func (c *SQLiteCatalog) RegisterForeignKey(ctx context.Context, table string, fk types.ConstraintRef, position int) error {
	cols, err := json.Marshal(fk.Columns)
	if err != nil {
		return fmt.Errorf("catalog: failed to encode constraint columns: %w", err)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	_, err = c.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO foreign_keys (table_name, name, columns, ref_table, position)
		VALUES (?, ?, ?, ?, ?)`,
		table, fk.Name, string(cols), fk.RefTable, position)
	if err != nil {
		return fmt.Errorf("catalog: failed to register foreign key %s.%s: %w", table, fk.Name, err)
	}
	return nil
}

// SetPartitioned flips a table's partitioning state.
func (c *SQLiteCatalog) SetPartitioned(ctx context.Context, table string, ptype types.PartitionType) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	res, err := c.db.ExecContext(ctx,
		`UPDATE tables SET partitioned = 1, partition_type = ? WHERE name = ?`,
		string(ptype), table)
	if err != nil {
		return fmt.Errorf("catalog: failed to mark %s partitioned: %w", table, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("catalog: table %s not registered", table)
	}
	return nil
}

// RecordStatement appends an executed DDL statement to the local ledger.
func (c *SQLiteCatalog) RecordStatement(ctx context.Context, statement string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, err := c.db.ExecContext(ctx, `INSERT INTO executed_ddl (statement) VALUES (?)`, statement)
	if err != nil {
		return fmt.Errorf("catalog: failed to record statement: %w", err)
	}
	return nil
}

// TableExists implements Query.
func (c *SQLiteCatalog) TableExists(ctx context.Context, table string) (bool, error) {
	var one int
	err := c.readDB.QueryRowContext(ctx, `SELECT 1 FROM tables WHERE name = ?`, table).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("catalog: table lookup failed: %w", err)
	}
	return true, nil
}

// IsPartitioned implements Query.
func (c *SQLiteCatalog) IsPartitioned(ctx context.Context, table string) (bool, error) {
	var partitioned int
	err := c.readDB.QueryRowContext(ctx, `SELECT partitioned FROM tables WHERE name = ?`, table).Scan(&partitioned)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("catalog: partitioned lookup failed: %w", err)
	}
	return partitioned != 0, nil
}

// PartitionType implements Query.
func (c *SQLiteCatalog) PartitionType(ctx context.Context, table string) (types.PartitionType, error) {
	var ptype string
	err := c.readDB.QueryRowContext(ctx, `SELECT partition_type FROM tables WHERE name = ?`, table).Scan(&ptype)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("catalog: partition type lookup failed: %w", err)
	}
	return types.PartitionType(ptype), nil
}

// ListIndexes implements Query.
func (c *SQLiteCatalog) ListIndexes(ctx context.Context, table string) ([]types.IndexRef, error) {
	rows, err := c.readDB.QueryContext(ctx, `
		SELECT name, columns, is_unique, tablespace, is_lob
		FROM table_indexes WHERE table_name = ? ORDER BY position`, table)
	if err != nil {
		return nil, fmt.Errorf("catalog: index scan failed: %w", err)
	}
	defer rows.Close()

	var indexes []types.IndexRef
	for rows.Next() {
		var ix types.IndexRef
		var cols string
		var unique, lob int
		if err := rows.Scan(&ix.Name, &cols, &unique, &ix.Tablespace, &lob); err != nil {
			return nil, fmt.Errorf("catalog: index scan failed: %w", err)
		}
		if err := json.Unmarshal([]byte(cols), &ix.Columns); err != nil {
			return nil, fmt.Errorf("catalog: failed to decode index columns: %w", err)
		}
		ix.Unique = unique != 0
		ix.LOB = lob != 0
		indexes = append(indexes, ix)
	}
	return indexes, rows.Err()
}

// ListForeignKeys implements Query.
func (c *SQLiteCatalog) ListForeignKeys(ctx context.Context, table string) ([]types.ConstraintRef, error) {
	rows, err := c.readDB.QueryContext(ctx, `
		SELECT name, columns, ref_table
		FROM foreign_keys WHERE table_name = ? ORDER BY position`, table)
	if err != nil {
		return nil, fmt.Errorf("catalog: foreign key scan failed: %w", err)
	}
	defer rows.Close()

	var fks []types.ConstraintRef
	for rows.Next() {
		var fk types.ConstraintRef
		var cols string
		if err := rows.Scan(&fk.Name, &cols, &fk.RefTable); err != nil {
			return nil, fmt.Errorf("catalog: foreign key scan failed: %w", err)
		}
		if err := json.Unmarshal([]byte(cols), &fk.Columns); err != nil {
			return nil, fmt.Errorf("catalog: failed to decode constraint columns: %w", err)
		}
		fks = append(fks, fk)
	}
	return fks, rows.Err()
}

// EstimatedRows implements Query.
func (c *SQLiteCatalog) EstimatedRows(ctx context.Context, table string) (int64, error) {
	var rows int64
	err := c.readDB.QueryRowContext(ctx, `SELECT estimated_rows FROM tables WHERE name = ?`, table).Scan(&rows)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("catalog: row estimate lookup failed: %w", err)
	}
	return rows, nil
}

// Close closes both catalog connections.
func (c *SQLiteCatalog) Close() error {
	var firstErr error
	if err := c.readDB.Close(); err != nil {
		firstErr = err
	}
	if err := c.db.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	return firstErr
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
