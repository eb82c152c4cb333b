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


package search

import (
	"context"
	"log/slog"
	"strings"

	"github.com/poiesic/indexit/ai"
	"github.com/poiesic/indexit/core"
	"github.com/poiesic/indexit/ingest"
	"github.com/poiesic/indexit/store"
)

// DefaultMaxHits is the result limit used when callers pass a
// non-positive one.
const DefaultMaxHits = 10

// Searcher answers semantic queries over the indexed segments. Ranking is
// owned by the vector store; the searcher only embeds the query and
// forwards the optional metadata filter.
type Searcher struct {
	store    store.VectorStore
	embedder ai.Embedder
	tracker  *ingest.Tracker
	logger   *slog.Logger
}

// Option configures a Searcher.
type Option func(*Searcher) error

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *Searcher) error {
		if logger == nil {
			logger = slog.Default()
		}
		s.logger = logger
		return nil
	}
}

// NewSearcher creates a new searcher. The tracker is optional; without it
// the filter schema and stats snapshot are empty.
func NewSearcher(vectorStore store.VectorStore, embedder ai.Embedder, tracker *ingest.Tracker, opts ...Option) (*Searcher, error) {
	if vectorStore == nil {
		return nil, ErrStoreRequired
	}
	if embedder == nil {
		return nil, ErrEmbedderRequired
	}

	s := &Searcher{
		store:    vectorStore,
		embedder: embedder,
		tracker:  tracker,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// Search embeds the query and returns up to maxHits segments ranked by
// the store, optionally restricted to segments whose metadata matches
// every filter entry.
func (s *Searcher) Search(ctx context.Context, query string, maxHits int, filter map[string]string) ([]*core.SearchResult, error) {
	if strings.TrimSpace(query) == "" {
		return nil, ErrEmptyQuery
	}
	if maxHits <= 0 {
		maxHits = DefaultMaxHits
	}

	vector, err := s.embedder.EmbedText(ctx, query)
	if err != nil {
		s.logger.Error("error generating embedding for query", "query", query, "err", err)
		return nil, err
	}

	results, err := s.store.Search(ctx, vector, maxHits, filter)
	if err != nil {
		s.logger.Error("error querying for similar segments", "err", err)
		return nil, err
	}
	return results, nil
}

// FilterSchema returns the discovered metadata fields with their distinct
// values, for building enumerated search filters.
func (s *Searcher) FilterSchema() map[string][]string {
	if s.tracker == nil {
		return nil
	}
	return s.tracker.MetadataValues()
}

// StatsSnapshot is the exposed read surface over ingestion state.
type StatsSnapshot struct {
	Sources  map[string]core.SourceStats
	Global   core.GlobalStats
	Failures []core.FailureRecord
	Fields   map[string][]string
}

// Stats returns a consistent snapshot of per-source counters, global
// totals, recent failures and the metadata field index.
func (s *Searcher) Stats() StatsSnapshot {
	if s.tracker == nil {
		return StatsSnapshot{}
	}
	return StatsSnapshot{
		Sources:  s.tracker.SourceStats(),
		Global:   s.tracker.GlobalStats(),
		Failures: s.tracker.Failures(),
		Fields:   s.tracker.MetadataValues(),
	}
}
