package oplog

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/reshapedb/reshape/pkg/types"
)

// SQLiteSink persists operation records in a SQLite database on a dedicated
// connection. The connection is never shared with the operation being
// described, so each append commits independently: a failed reshape cannot
// roll its log entries back, and a sink failure cannot touch the reshape.
type SQLiteSink struct {
	db *sql.DB
}

// NewSQLiteSink opens (creating if necessary) an operation-log database.
func NewSQLiteSink(dbPath string) (*SQLiteSink, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("oplog: failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	s := &SQLiteSink{db: db}
	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("oplog: failed to initialize schema: %w", err)
	}
	return s, nil
}

func (s *SQLiteSink) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS operation_log (
		id             INTEGER PRIMARY KEY AUTOINCREMENT,
		operation_id   TEXT NOT NULL,
		operation      TEXT NOT NULL,
		phase          TEXT NOT NULL,
		table_name     TEXT NOT NULL,
		partition_name TEXT NOT NULL DEFAULT '',
		subpartition   TEXT NOT NULL DEFAULT '',
		status         TEXT NOT NULL,
		message        TEXT NOT NULL DEFAULT '',
		error_code     TEXT NOT NULL DEFAULT '',
		error_message  TEXT NOT NULL DEFAULT '',
		duration_us    INTEGER NOT NULL DEFAULT 0,
		row_count      INTEGER NOT NULL DEFAULT 0,
		object_count   INTEGER NOT NULL DEFAULT 0,
		attributes     TEXT NOT NULL DEFAULT '{}',
		created_at     TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
		UNIQUE (operation_id, phase)
	);
	CREATE INDEX IF NOT EXISTS idx_oplog_created ON operation_log (created_at);`
	_, err := s.db.Exec(schema)
	return err
}

// Append implements Sink. Each call commits on its own; there is no enclosing
// transaction to join.
func (s *SQLiteSink) Append(ctx context.Context, rec *types.OperationRecord) error {
	attrs, err := json.Marshal(rec.Attributes)
	if err != nil {
		return fmt.Errorf("oplog: failed to encode attributes: %w", err)
	}
	if rec.Attributes == nil {
		attrs = []byte("{}")
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO operation_log (
			operation_id, operation, phase, table_name, partition_name,
			subpartition, status, message, error_code, error_message,
			duration_us, row_count, object_count, attributes
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (operation_id, phase) DO UPDATE SET
			status = excluded.status,
			message = excluded.message,
			error_code = excluded.error_code,
			error_message = excluded.error_message,
			duration_us = excluded.duration_us,
			row_count = excluded.row_count,
			object_count = excluded.object_count,
			attributes = excluded.attributes`,
		rec.OperationID, rec.Operation, rec.Phase, rec.Table, rec.Partition,
		rec.Subpartition, string(rec.Status), rec.Message, rec.ErrorCode,
		rec.ErrorMessage, rec.Duration.Microseconds(), rec.RowCount,
		rec.ObjectCount, string(attrs))
	if err != nil {
		return fmt.Errorf("oplog: append failed: %w", err)
	}
	return nil
}

// List returns the records of one operation run, in id order.
func (s *SQLiteSink) List(ctx context.Context, operationID string) ([]types.OperationRecord, error) {
	return s.query(ctx, `WHERE operation_id = ? ORDER BY id`, operationID)
}

// ListBefore returns all records created before the cutoff, in id order.
func (s *SQLiteSink) ListBefore(ctx context.Context, cutoff time.Time) ([]types.OperationRecord, error) {
	return s.query(ctx, `WHERE created_at < ? ORDER BY id`, cutoff.UTC())
}

// DeleteBefore removes all records created before the cutoff and returns the
// number removed. Used by the archiver, never by the orchestrator.
func (s *SQLiteSink) DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM operation_log WHERE created_at < ?`, cutoff.UTC())
	if err != nil {
		return 0, fmt.Errorf("oplog: delete failed: %w", err)
	}
	return res.RowsAffected()
}

func (s *SQLiteSink) query(ctx context.Context, where string, args ...interface{}) ([]types.OperationRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, operation_id, operation, phase, table_name, partition_name,
			subpartition, status, message, error_code, error_message,
			duration_us, row_count, object_count, attributes, created_at
		FROM operation_log `+where, args...)
	if err != nil {
		return nil, fmt.Errorf("oplog: query failed: %w", err)
	}
	defer rows.Close()

	var records []types.OperationRecord
	for rows.Next() {
		var rec types.OperationRecord
		var status, attrs string
		var durationUS int64
		if err := rows.Scan(&rec.ID, &rec.OperationID, &rec.Operation, &rec.Phase,
			&rec.Table, &rec.Partition, &rec.Subpartition, &status, &rec.Message,
			&rec.ErrorCode, &rec.ErrorMessage, &durationUS, &rec.RowCount,
			&rec.ObjectCount, &attrs, &rec.CreatedAt); err != nil {
			return nil, fmt.Errorf("oplog: scan failed: %w", err)
		}
		rec.Status = types.OperationStatus(status)
		rec.Duration = time.Duration(durationUS) * time.Microsecond
		if err := json.Unmarshal([]byte(attrs), &rec.Attributes); err != nil {
			return nil, fmt.Errorf("oplog: failed to decode attributes: %w", err)
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// Close closes the sink's connection.
func (s *SQLiteSink) Close() error {
	return s.db.Close()
}
