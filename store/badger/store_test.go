package badger

import (
	"context"
	"errors"
	"testing"

	"github.com/poiesic/indexit/core"
	"github.com/poiesic/indexit/store"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := NewMemoryStore()
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func makeRecord(key, docKey, content string, vector []float32) *core.SegmentRecord {
	return &core.SegmentRecord{
		Id:         core.IDFromContent(key),
		SegmentKey: key,
		DocKey:     docKey,
		Content:    content,
		Metadata:   map[string]string{"doc_id": docKey},
		Vector:     vector,
	}
}

func TestStoreUpsertGet(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	record := makeRecord("doc1#0", "doc1", "hello badger", []float32{0.1, 0.2, 0.3})
	if err := s.Upsert(ctx, record); err != nil {
		t.Fatalf("Failed to upsert: %v", err)
	}

	got, err := s.Get(ctx, record.Id)
	if err != nil {
		t.Fatalf("Failed to get: %v", err)
	}
	if got.Content != "hello badger" {
		t.Fatalf("Expected 'hello badger', got '%s'", got.Content)
	}
	if got.InsertedAt.IsZero() || got.UpdatedAt.IsZero() {
		t.Fatal("Expected timestamps to be set")
	}
	if got.Metadata["doc_id"] != "doc1" {
		t.Fatalf("Expected metadata to round-trip, got %v", got.Metadata)
	}
}

func TestStoreUpsertPreservesInsertedAt(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	record := makeRecord("doc1#0", "doc1", "v1", []float32{0.1})
	if err := s.Upsert(ctx, record); err != nil {
		t.Fatalf("Failed to upsert: %v", err)
	}
	first, err := s.Get(ctx, record.Id)
	if err != nil {
		t.Fatalf("Failed to get: %v", err)
	}

	record.Content = "v2"
	if err := s.Upsert(ctx, record); err != nil {
		t.Fatalf("Failed to upsert again: %v", err)
	}
	second, err := s.Get(ctx, record.Id)
	if err != nil {
		t.Fatalf("Failed to get: %v", err)
	}

	if !second.InsertedAt.Equal(first.InsertedAt) {
		t.Fatalf("Expected InsertedAt preserved, got %v then %v", first.InsertedAt, second.InsertedAt)
	}
	if second.Content != "v2" {
		t.Fatalf("Expected content replaced, got '%s'", second.Content)
	}
}

func TestStoreGetMissing(t *testing.T) {
	s := newTestStore(t)

	_, err := s.Get(context.Background(), core.ID(12345))
	if !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("Expected ErrNotFound, got %v", err)
	}
}

func TestStoreRemoveAll(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	a := makeRecord("doc1#0", "doc1", "a", []float32{0.1})
	b := makeRecord("doc1#1", "doc1", "b", []float32{0.2})
	if err := s.Upsert(ctx, a, b); err != nil {
		t.Fatalf("Failed to upsert: %v", err)
	}

	if err := s.RemoveAll(ctx, a.Id, b.Id); err != nil {
		t.Fatalf("Failed to remove: %v", err)
	}

	count, err := s.Count(ctx)
	if err != nil {
		t.Fatalf("Failed to count: %v", err)
	}
	if count != 0 {
		t.Fatalf("Expected 0 records after removal, got %d", count)
	}

	// Removing missing IDs is a no-op
	if err := s.RemoveAll(ctx, a.Id); err != nil {
		t.Fatalf("Expected no error removing missing ID, got %v", err)
	}
}

func TestStoreIDsForDoc(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	a := makeRecord("doc1#0", "doc1", "a", []float32{0.1})
	b := makeRecord("doc1#1", "doc1", "b", []float32{0.2})
	c := makeRecord("doc2#0", "doc2", "c", []float32{0.3})
	if err := s.Upsert(ctx, a, b, c); err != nil {
		t.Fatalf("Failed to upsert: %v", err)
	}

	ids, err := s.IDsForDoc(ctx, "doc1")
	if err != nil {
		t.Fatalf("Failed to list doc IDs: %v", err)
	}
	if len(ids) != 2 {
		t.Fatalf("Expected 2 IDs for doc1, got %d", len(ids))
	}
	for _, id := range ids {
		if id != a.Id && id != b.Id {
			t.Fatalf("Unexpected ID %d in doc index", id)
		}
	}

	if err := s.RemoveAll(ctx, a.Id); err != nil {
		t.Fatalf("Failed to remove: %v", err)
	}
	ids, err = s.IDsForDoc(ctx, "doc1")
	if err != nil {
		t.Fatalf("Failed to list doc IDs: %v", err)
	}
	if len(ids) != 1 || ids[0] != b.Id {
		t.Fatalf("Expected only remaining segment in doc index, got %v", ids)
	}
}

func TestStoreSearch(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	a := makeRecord("doc1#0", "doc1", "close", []float32{1, 0, 0})
	b := makeRecord("doc1#1", "doc1", "closer", []float32{0.9, 0.1, 0})
	c := makeRecord("doc2#0", "doc2", "far", []float32{0, 1, 0})
	if err := s.Upsert(ctx, a, b, c); err != nil {
		t.Fatalf("Failed to upsert: %v", err)
	}

	results, err := s.Search(ctx, []float32{1, 0, 0}, 2, nil)
	if err != nil {
		t.Fatalf("Failed to search: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("Expected 2 results, got %d", len(results))
	}
	if results[0].Record.Content != "close" {
		t.Fatalf("Expected 'close' ranked first, got '%s'", results[0].Record.Content)
	}
	if results[0].Score < results[1].Score {
		t.Fatal("Expected results sorted by descending score")
	}

	// Metadata filter restricts results
	filtered, err := s.Search(ctx, []float32{1, 0, 0}, 10, map[string]string{"doc_id": "doc2"})
	if err != nil {
		t.Fatalf("Failed to search with filter: %v", err)
	}
	if len(filtered) != 1 || filtered[0].Record.Content != "far" {
		t.Fatalf("Expected only doc2 result, got %v", filtered)
	}
}

func TestStoreForEach(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	for _, key := range []string{"doc1#0", "doc1#1", "doc2#0"} {
		if err := s.Upsert(ctx, makeRecord(key, "doc", key, []float32{0.5})); err != nil {
			t.Fatalf("Failed to upsert: %v", err)
		}
	}

	seen := map[string]bool{}
	err := s.ForEach(ctx, func(record *core.SegmentRecord) error {
		seen[record.SegmentKey] = true
		return nil
	})
	if err != nil {
		t.Fatalf("Failed to iterate: %v", err)
	}
	if len(seen) != 3 {
		t.Fatalf("Expected 3 records visited, got %d", len(seen))
	}
}
