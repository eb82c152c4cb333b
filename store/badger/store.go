package badger

import (
	"context"
	"math"
	"slices"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/poiesic/indexit/core"
	"github.com/poiesic/indexit/store"
)

// Store implements store.VectorStore on BadgerDB. Records are serialized
// with mus-go; a secondary doc index allows scanning all segments of one
// document without a full iteration.
type Store struct {
	backend *Backend
}

var _ store.VectorStore = (*Store)(nil)

// NewStore creates a vector store on an open backend.
func NewStore(backend *Backend) *Store {
	return &Store{backend: backend}
}

// OpenStore opens a BadgerDB-backed vector store at path.
func OpenStore(path string) (store.VectorStore, error) {
	backend, err := OpenBackend(path, false)
	if err != nil {
		return nil, err
	}
	return NewStore(backend), nil
}

// Upsert inserts or replaces segment records by ID.
func (s *Store) Upsert(ctx context.Context, records ...*core.SegmentRecord) error {
	return s.backend.WithTx(func(tx *badger.Txn) error {
		now := time.Now().UTC()
		for _, record := range records {
			key := makeSegmentRecordKey(record.Id)

			stored := *record
			stored.UpdatedAt = now
			stored.InsertedAt = now
			if prev, err := s.readRecord(tx, key); err != nil {
				return err
			} else if prev != nil {
				stored.InsertedAt = prev.InsertedAt
			}

			if err := tx.Set(key, store.MarshalSegmentRecord(&stored)); err != nil {
				return err
			}
			if err := tx.Set(makeSegmentDocKey(stored.DocKey, stored.Id), store.MarshalID(stored.Id)); err != nil {
				return err
			}
		}
		return tx.Commit()
	}, true)
}

// RemoveAll removes the records with the given IDs. Missing IDs are ignored.
func (s *Store) RemoveAll(ctx context.Context, ids ...core.ID) error {
	return s.backend.WithTx(func(tx *badger.Txn) error {
		for _, id := range ids {
			key := makeSegmentRecordKey(id)
			record, err := s.readRecord(tx, key)
			if err != nil {
				return err
			}
			if record == nil {
				continue
			}
			if err := tx.Delete(key); err != nil {
				return err
			}
			if err := tx.Delete(makeSegmentDocKey(record.DocKey, id)); err != nil {
				return err
			}
		}
		return tx.Commit()
	}, true)
}

// Get retrieves a single record by ID.
func (s *Store) Get(ctx context.Context, id core.ID) (*core.SegmentRecord, error) {
	var record *core.SegmentRecord
	err := s.backend.WithTx(func(tx *badger.Txn) error {
		var err error
		record, err = s.readRecord(tx, makeSegmentRecordKey(id))
		return err
	}, false)
	if err != nil {
		return nil, err
	}
	if record == nil {
		return nil, store.ErrNotFound
	}
	return record, nil
}

// Search returns up to limit records ranked by cosine similarity,
// restricted to records whose metadata matches every filter entry.
func (s *Store) Search(ctx context.Context, vector []float32, limit int, filter map[string]string) ([]*core.SearchResult, error) {
	var results []*core.SearchResult

	err := s.ForEach(ctx, func(record *core.SegmentRecord) error {
		if len(record.Vector) == 0 {
			return nil
		}
		for key, want := range filter {
			if record.Metadata[key] != want {
				return nil
			}
		}
		results = append(results, &core.SearchResult{
			Record: record,
			Score:  cosineSimilarity(vector, record.Vector),
		})
		return nil
	})
	if err != nil {
		return nil, err
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
	return s.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(segmentRecordPrefix)
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}

			item := iter.Item()
			var record *core.SegmentRecord
			err := item.Value(func(val []byte) error {
				var err error
				record, err = store.UnmarshalSegmentRecord(val)
				return err
			})
			if err != nil {
				return err
			}
			if err := fn(record); err != nil {
				return err
			}
		}
		return nil
	}, false)
}

// Count returns the number of stored records.
func (s *Store) Count(ctx context.Context) (int, error) {
	count := 0
	err := s.ForEach(ctx, func(*core.SegmentRecord) error {
		count++
		return nil
	})
	return count, err
}

// IDsForDoc returns the IDs of every segment sharing one doc key, using
// the secondary doc index.
func (s *Store) IDsForDoc(ctx context.Context, docKey string) ([]core.ID, error) {
	var ids []core.ID
	err := s.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = makePartialSegmentDocKey(docKey)
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			err := iter.Item().Value(func(val []byte) error {
				id, err := store.UnmarshalID(val)
				if err != nil {
					return err
				}
				ids = append(ids, id)
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	}, false)
	return ids, err
}

// Close closes the underlying backend.
func (s *Store) Close() error {
	return s.backend.Close()
}

// readRecord reads and unmarshals a record, returning nil when absent.
func (s *Store) readRecord(tx *badger.Txn, key []byte) (*core.SegmentRecord, error) {
	item, err := tx.Get(key)
	if err != nil {
		if err == badger.ErrKeyNotFound {
			return nil, nil
		}
		return nil, err
	}
	var record *core.SegmentRecord
	err = item.Value(func(val []byte) error {
		var err error
		record, err = store.UnmarshalSegmentRecord(val)
		return err
	})
	return record, err
}

// cosineSimilarity computes the cosine of the angle between two vectors.
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
