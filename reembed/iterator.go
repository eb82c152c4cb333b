// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package reembed

import (
	"context"

	"github.com/poiesic/indexit/core"
	"github.com/poiesic/indexit/store"
)

const (
	// DefaultBatchSize is the default number of records in each batch
	DefaultBatchSize = 100
)

// SegmentIterator iterates over all stored segment records in batches.
type SegmentIterator struct {
	store     store.VectorStore
	batchSize int
}

// NewSegmentIterator creates a new segment iterator.
// batchSize: number of records in each batch (must be > 0)
func NewSegmentIterator(vectorStore store.VectorStore, batchSize int) *SegmentIterator {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	return &SegmentIterator{
		store:     vectorStore,
		batchSize: batchSize,
	}
}

// ForEach iterates over all segment records, calling fn for each batch.
// Iteration stops on first error from fn or when all records are
// processed. Context cancellation is checked between batches.
func (it *SegmentIterator) ForEach(ctx context.Context, fn func([]*core.SegmentRecord) error) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	batch := make([]*core.SegmentRecord, 0, it.batchSize)
	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		if err := fn(batch); err != nil {
			return err
		}
		batch = make([]*core.SegmentRecord, 0, it.batchSize)

		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
			return nil
		}
	}

	err := it.store.ForEach(ctx, func(record *core.SegmentRecord) error {
		batch = append(batch, record)
		if len(batch) >= it.batchSize {
			return flush()
		}
		return nil
	})
	if err != nil {
		return err
	}
	return flush()
}
