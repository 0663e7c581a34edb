package oplog

import (
	"context"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/reshapedb/reshape/internal/storage"
	"github.com/reshapedb/reshape/pkg/types"
)

func TestArchiver_RoundTrip(t *testing.T) {
	ctx := context.Background()
	sink := openTestSink(t)
	store, err := storage.NewLocalStorage(t.TempDir())
	if err != nil {
		t.Fatalf("NewLocalStorage: %v", err)
	}
	archiver := NewArchiver(sink, store, zap.NewNop())

	for i, phase := range []string{"Validate", "Execute", "Complete"} {
		rec := &types.OperationRecord{
			OperationID: "op-old", Operation: "convert", Phase: phase,
			Table: "orders", Status: types.StatusSuccess,
			Attributes: map[string]string{"n": string(rune('a' + i))},
		}
		if err := sink.Append(ctx, rec); err != nil {
			t.Fatalf("Append: %v", err)
		}
	}

	// Everything is older than a future cutoff.
	n, err := archiver.ArchiveBefore(ctx, time.Now().Add(time.Hour))
	if err != nil {
		t.Fatalf("ArchiveBefore: %v", err)
	}
	if n != 3 {
		t.Fatalf("archived %d records, want 3", n)
	}

	// Source rows are purged.
	remaining, err := sink.ListBefore(ctx, time.Now().Add(time.Hour))
	if err != nil {
		t.Fatalf("ListBefore: %v", err)
	}
	if len(remaining) != 0 {
		t.Fatalf("expected purge, %d rows remain", len(remaining))
	}

	// The archived object decompresses back to the same records.
	paths, err := store.List(ctx, "oplog/")
	if err != nil || len(paths) != 1 {
		t.Fatalf("List = %v, %v", paths, err)
	}
	data, err := store.Get(ctx, paths[0])
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	records, err := ReadArchive(data)
	if err != nil {
		t.Fatalf("ReadArchive: %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("decoded %d records, want 3", len(records))
	}
	if records[1].Phase != "Execute" || records[1].Table != "orders" {
		t.Errorf("record content lost: %+v", records[1])
	}
}

func TestArchiver_NothingToArchive(t *testing.T) {
	ctx := context.Background()
	sink := openTestSink(t)
	store, err := storage.NewLocalStorage(t.TempDir())
	if err != nil {
		t.Fatalf("NewLocalStorage: %v", err)
	}
	archiver := NewArchiver(sink, store, zap.NewNop())

	n, err := archiver.ArchiveBefore(ctx, time.Now().Add(-time.Hour))
	if err != nil {
		t.Fatalf("ArchiveBefore: %v", err)
	}
	if n != 0 {
		t.Errorf("archived %d records, want 0", n)
	}
	paths, _ := store.List(ctx, "oplog/")
	if len(paths) != 0 {
		t.Errorf("no object should be written, got %v", paths)
	}
}
