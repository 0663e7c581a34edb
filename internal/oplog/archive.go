package oplog

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/golang/snappy"
	"go.uber.org/zap"

	"github.com/reshapedb/reshape/internal/storage"
	"github.com/reshapedb/reshape/pkg/types"
)

// Archiver exports old operation records to object storage and purges them
// from the sink. Retention lives here, outside the orchestrator: the core
// never deletes records.
type Archiver struct {
	sink   *SQLiteSink
	store  storage.ObjectStorage
	logger *zap.Logger
}

// NewArchiver creates an archiver over the given sink and storage.
func NewArchiver(sink *SQLiteSink, store storage.ObjectStorage, logger *zap.Logger) *Archiver {
	return &Archiver{sink: sink, store: store, logger: logger}
}

// ArchiveBefore exports every record created before the cutoff as one
// snappy-compressed JSON-lines object, then deletes the exported rows.
// Returns the number of records archived.
func (a *Archiver) ArchiveBefore(ctx context.Context, cutoff time.Time) (int, error) {
	records, err := a.sink.ListBefore(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("oplog: archive scan failed: %w", err)
	}
	if len(records) == 0 {
		return 0, nil
	}

	data, err := encodeArchive(records)
	if err != nil {
		return 0, err
	}

	objectPath := fmt.Sprintf("oplog/archive-%s.jsonl.snappy", time.Now().UTC().Format("20060102T150405Z"))
	if err := a.store.Put(ctx, objectPath, data); err != nil {
		return 0, fmt.Errorf("oplog: archive upload failed: %w", err)
	}

	// Purge only after the object is durably stored.
	deleted, err := a.sink.DeleteBefore(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("oplog: archive purge failed: %w", err)
	}

	a.logger.Info("archived operation records",
		zap.Int("records", len(records)),
		zap.Int64("purged", deleted),
		zap.String("object", objectPath))
	return len(records), nil
}

// ReadArchive decompresses and decodes one archived object.
func ReadArchive(data []byte) ([]types.OperationRecord, error) {
	raw, err := snappy.Decode(nil, data)
	if err != nil {
		return nil, fmt.Errorf("oplog: archive decompression failed: %w", err)
	}

	var records []types.OperationRecord
	dec := json.NewDecoder(bytes.NewReader(raw))
	for dec.More() {
		var rec types.OperationRecord
		if err := dec.Decode(&rec); err != nil {
			return nil, fmt.Errorf("oplog: archive decode failed: %w", err)
		}
		records = append(records, rec)
	}
	return records, nil
}

func encodeArchive(records []types.OperationRecord) ([]byte, error) {
	var raw []byte
	for _, rec := range records {
		line, err := json.Marshal(rec)
		if err != nil {
			return nil, fmt.Errorf("oplog: archive encode failed: %w", err)
		}
		raw = append(raw, line...)
		raw = append(raw, '\n')
	}
	return snappy.Encode(nil, raw), nil
}
