package memory

import (
	"context"
	"math"
	"slices"
	"sync"
	"time"

	"github.com/poiesic/indexit/core"
	"github.com/poiesic/indexit/store"
)

// Store is the reference in-memory vector store. It keeps every segment
// record in a map and ranks search results by cosine similarity.
type Store struct {
	mu      sync.RWMutex
	records map[core.ID]*core.SegmentRecord
	closed  bool
}

var _ store.VectorStore = (*Store)(nil)

// NewStore creates an empty in-memory vector store.
func NewStore() store.VectorStore {
	return &Store{records: make(map[core.ID]*core.SegmentRecord)}
}

// Upsert inserts or replaces segment records by ID.
func (s *Store) Upsert(ctx context.Context, records ...*core.SegmentRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return store.ErrStoreClosed
	}

	now := time.Now().UTC()
	for _, record := range records {
		stored := *record
		if prev, ok := s.records[record.Id]; ok {
			stored.InsertedAt = prev.InsertedAt
		} else {
			stored.InsertedAt = now
		}
		stored.UpdatedAt = now
		s.records[record.Id] = &stored
	}
	return nil
}

// RemoveAll removes the records with the given IDs. Missing IDs are ignored.
func (s *Store) RemoveAll(ctx context.Context, ids ...core.ID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return store.ErrStoreClosed
	}

	for _, id := range ids {
		delete(s.records, id)
	}
	return nil
}

// Get retrieves a single record by ID.
func (s *Store) Get(ctx context.Context, id core.ID) (*core.SegmentRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, store.ErrStoreClosed
	}

	record, ok := s.records[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	copied := *record
	return &copied, nil
}

// Search returns up to limit records ranked by cosine similarity,
// restricted to records whose metadata matches every filter entry.
func (s *Store) Search(ctx context.Context, vector []float32, limit int, filter map[string]string) ([]*core.SearchResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, store.ErrStoreClosed
	}

	var results []*core.SearchResult
	for _, record := range s.records {
		if len(record.Vector) == 0 {
			continue
		}
		if !matchesFilter(record.Metadata, filter) {
			continue
		}
		copied := *record
		results = append(results, &core.SearchResult{
			Record: &copied,
			Score:  cosineSimilarity(vector, record.Vector),
		})
	}

	slices.SortFunc(results, func(a, b *core.SearchResult) int {
		if a.Score > b.Score {
			return -1
		}
		if a.Score < b.Score {
			return 1
		}
		return 0
	})

	if limit > 0 && len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}

// ForEach iterates over every stored record.
func (s *Store) ForEach(ctx context.Context, fn func(*core.SegmentRecord) error) error {
	s.mu.RLock()
	snapshot := make([]*core.SegmentRecord, 0, len(s.records))
	for _, record := range s.records {
		copied := *record
		snapshot = append(snapshot, &copied)
	}
	closed := s.closed
	s.mu.RUnlock()

	if closed {
		return store.ErrStoreClosed
	}
	for _, record := range snapshot {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		if err := fn(record); err != nil {
			return err
		}
	}
	return nil
}

// Count returns the number of stored records.
func (s *Store) Count(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return 0, store.ErrStoreClosed
	}
	return len(s.records), nil
}

// Close marks the store closed. Further operations return ErrStoreClosed.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	s.records = nil
	return nil
}

// matchesFilter reports whether metadata contains every filter key with an
// equal value. An empty filter matches everything.
func matchesFilter(metadata, filter map[string]string) bool {
	for key, want := range filter {
		if metadata[key] != want {
			return false
		}
	}
	return true
}

// cosineSimilarity computes the cosine of the angle between two vectors.
// Mismatched lengths are compared over the shorter prefix.
func cosineSimilarity(a, b []float32) float32 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}

	var dot, normA, normB float32
	for i := 0; i < n; i++ {
		dot += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (float32(math.Sqrt(float64(normA))) * float32(math.Sqrt(float64(normB))))
}
