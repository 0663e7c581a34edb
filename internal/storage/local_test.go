package storage

import (
	"context"
	"testing"
)

func TestLocalStorage_PutGetDelete(t *testing.T) {
	ctx := context.Background()
	store, err := NewLocalStorage(t.TempDir())
	if err != nil {
		t.Fatalf("NewLocalStorage: %v", err)
	}

	data := []byte(`{"operation":"convert"}`)
	if err := store.Put(ctx, "oplog/archive-1.jsonl.snappy", data); err != nil {
		t.Fatalf("Put: %v", err)
	}

	exists, err := store.Exists(ctx, "oplog/archive-1.jsonl.snappy")
	if err != nil || !exists {
		t.Fatalf("Exists = %v, %v", exists, err)
	}

	got, err := store.Get(ctx, "oplog/archive-1.jsonl.snappy")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if string(got) != string(data) {
		t.Errorf("round-trip mismatch: %q", got)
	}

	paths, err := store.List(ctx, "oplog/")
	if err != nil || len(paths) != 1 {
		t.Fatalf("List = %v, %v", paths, err)
	}

	if err := store.Delete(ctx, "oplog/archive-1.jsonl.snappy"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := store.Get(ctx, "oplog/archive-1.jsonl.snappy"); err != ErrObjectNotFound {
		t.Errorf("expected ErrObjectNotFound, got %v", err)
	}
}

func TestLocalStorage_ListFiltersPrefix(t *testing.T) {
	ctx := context.Background()
	store, err := NewLocalStorage(t.TempDir())
	if err != nil {
		t.Fatalf("NewLocalStorage: %v", err)
	}

	for _, p := range []string{"oplog/a", "oplog/b", "other/c"} {
		if err := store.Put(ctx, p, []byte("x")); err != nil {
			t.Fatalf("Put %s: %v", p, err)
		}
	}

	paths, err := store.List(ctx, "oplog/")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(paths) != 2 {
		t.Errorf("expected 2 paths under oplog/, got %v", paths)
	}
}
