package store

import (
	"context"

	"github.com/poiesic/indexit/core"
)

// VectorStore persists embedded segment records and searches them by
// vector similarity with optional equality filters on metadata.
// Implementations must be thread-safe and support concurrent access.
type VectorStore interface {
	// Upsert inserts or replaces segment records by ID.
	// Sets InsertedAt on first write and UpdatedAt on every write.
	Upsert(ctx context.Context, records ...*core.SegmentRecord) error

	// RemoveAll removes the records with the given IDs.
	// Missing IDs are ignored; removal is idempotent.
	RemoveAll(ctx context.Context, ids ...core.ID) error

	// Get retrieves a single record by ID.
	// Returns ErrNotFound if the record doesn't exist.
	Get(ctx context.Context, id core.ID) (*core.SegmentRecord, error)

	// Search returns up to limit records ranked by similarity to the query
	// vector. When filter is non-empty, only records whose metadata
	// contains every filter key with an equal value are considered.
	Search(ctx context.Context, vector []float32, limit int, filter map[string]string) ([]*core.SearchResult, error)

	// ForEach iterates over every stored record in unspecified order,
	// calling fn for each. Iteration stops on the first error from fn.
	ForEach(ctx context.Context, fn func(*core.SegmentRecord) error) error

	// Count returns the number of stored records.
	Count(ctx context.Context) (int, error)

	// Close closes the store and releases resources.
	Close() error
}
