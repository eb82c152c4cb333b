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


package ingest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"runtime"
	"sync"

	"github.com/panjf2000/ants/v2"
	"github.com/poiesic/indexit/ai"
	"github.com/poiesic/indexit/core"
	"github.com/poiesic/indexit/pathspec"
	"github.com/poiesic/indexit/store"
	"github.com/poiesic/indexit/strategy"
)

// Ingestor drives compiled path specs through matching, strategy
// processing, embedding and storage. Independent specs run concurrently on
// a worker pool; within one file, descriptors are fully persisted before
// the file's stats update is visible.
type Ingestor struct {
	registry *strategy.Registry
	store    store.VectorStore
	embedder ai.Embedder
	tracker  *Tracker
	pool     *ants.Pool
	logger   *slog.Logger
}

// Option configures an Ingestor.
type Option func(*Ingestor) error

// WithPoolSize sets the worker pool size for concurrent spec processing.
// Default is runtime.NumCPU() / 2, with a minimum of 1.
func WithPoolSize(size int) Option {
	return func(i *Ingestor) error {
		if size < 1 {
			size = 1
		}
		if i.pool != nil {
			i.pool.Release()
		}
		pool, err := ants.NewPool(size)
		if err != nil {
			return err
		}
		i.pool = pool
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(i *Ingestor) error {
		if logger == nil {
			logger = slog.Default()
		}
		i.logger = logger
		return nil
	}
}

// NewIngestor creates an ingestion orchestrator.
func NewIngestor(registry *strategy.Registry, vectorStore store.VectorStore, embedder ai.Embedder, opts ...Option) (*Ingestor, error) {
	if registry == nil {
		return nil, ErrRegistryRequired
	}
	if vectorStore == nil {
		return nil, ErrStoreRequired
	}
	if embedder == nil {
		return nil, ErrEmbedderRequired
	}

	poolSize := runtime.NumCPU() / 2
	if poolSize < 1 {
		poolSize = 1
	}
	pool, err := ants.NewPool(poolSize)
	if err != nil {
		return nil, err
	}

	i := &Ingestor{
		registry: registry,
		store:    vectorStore,
		embedder: embedder,
		pool:     pool,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		if optErr := opt(i); optErr != nil {
			i.Release()
			return nil, optErr
		}
	}
	i.tracker = NewTracker(i.logger)
	return i, nil
}

// Tracker exposes the ingestion aggregate state for stats readers.
func (i *Ingestor) Tracker() *Tracker {
	return i.tracker
}

// Summary reports the outcome of one ingestion pass. It is returned even
// when failures are present. Failures holds only the records from this
// pass; the tracker keeps the process-wide recent-failure queue.
type Summary struct {
	Ingested int
	Failed   int
	Failures []core.FailureRecord
}

// Ingest runs every compiled spec: match files, process each one through
// the spec's strategy, embed and persist. A single file's failure is
// recorded and never aborts the batch; an unresolvable spec (unknown tag
// or bad options) fails that source's setup and surfaces in the returned
// error while the other specs still run.
func (i *Ingestor) Ingest(ctx context.Context, specs []*pathspec.CompiledSpec) (*Summary, error) {
	summary := &Summary{}
	var (
		mu       sync.Mutex
		wg       sync.WaitGroup
		specErrs []error
	)

	for _, spec := range specs {
		spec := spec
		wg.Add(1)
		submitErr := i.pool.Submit(func() {
			defer wg.Done()
			ingested, failed, failures, err := i.ingestSpec(ctx, spec)
			mu.Lock()
			summary.Ingested += ingested
			summary.Failed += failed
			summary.Failures = append(summary.Failures, failures...)
			if err != nil {
				specErrs = append(specErrs, fmt.Errorf("source %s: %w", spec.Path, err))
			}
			mu.Unlock()
		})
		if submitErr != nil {
			wg.Done()
			mu.Lock()
			specErrs = append(specErrs, submitErr)
			mu.Unlock()
		}
	}
	wg.Wait()
	return summary, errors.Join(specErrs...)
}

// ingestSpec runs one spec end to end, returning ingested/failed counts,
// the failures recorded during this run and any setup error.
func (i *Ingestor) ingestSpec(ctx context.Context, spec *pathspec.CompiledSpec) (int, int, []core.FailureRecord, error) {
	// Resolve before any file I/O so unknown tags and bad options fail
	// the source fast.
	resolved, err := i.registry.Resolve(spec.Strategy, spec.Options)
	if err != nil {
		return 0, 0, nil, err
	}

	matches, err := spec.Match()
	if err != nil {
		return 0, 0, nil, err
	}
	i.tracker.FileMatched(spec.Path, len(matches))

	ingested, failed := 0, 0
	var failures []core.FailureRecord
	for _, file := range matches {
		if err := i.ingestMatched(ctx, spec, resolved, file); err != nil {
			failures = append(failures, i.tracker.FileFailed(spec.Path, file.Path, err))
			i.logger.Warn("file ingestion failed",
				"source", spec.Path, "file", file.Path, "kind", core.FailureKind(err), "err", err)
			failed++
			continue
		}
		ingested++
	}
	return ingested, failed, failures, nil
}

// IngestFile re-indexes a single already-matched file through a spec's
// strategy, replacing any previously stored segments of the same document.
// Failures are recorded in the tracker before being returned.
func (i *Ingestor) IngestFile(ctx context.Context, spec *pathspec.CompiledSpec, file core.MatchedFile) error {
	resolved, err := i.registry.Resolve(spec.Strategy, spec.Options)
	if err != nil {
		return err
	}
	if err := i.ingestMatched(ctx, spec, resolved, file); err != nil {
		i.tracker.FileFailed(spec.Path, file.Path, err)
		i.logger.Warn("file re-index failed",
			"source", spec.Path, "file", file.Path, "kind", core.FailureKind(err), "err", err)
		return err
	}
	return nil
}

// RemoveFile removes every stored segment sharing a file's doc key.
func (i *Ingestor) RemoveFile(ctx context.Context, path string) error {
	ids := i.tracker.RemoveDoc(path)
	if len(ids) == 0 {
		return nil
	}
	return i.store.RemoveAll(ctx, ids...)
}

// ingestMatched reads, processes, embeds and persists one matched file.
func (i *Ingestor) ingestMatched(ctx context.Context, spec *pathspec.CompiledSpec, resolved strategy.Strategy, file core.MatchedFile) error {
	content, err := os.ReadFile(file.Path)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", core.ErrRead, file.Path, err)
	}

	descriptors, err := resolved.Process(ctx, file.Path, string(content), file.Metadata)
	if err != nil {
		return err
	}
	if len(descriptors) == 0 {
		i.tracker.FileProcessed(spec.Path, nil)
		return nil
	}

	texts := make([]string, len(descriptors))
	for n, d := range descriptors {
		texts[n] = d.EmbedText
	}
	vectors, err := i.embedder.EmbedTexts(ctx, texts)
	if err != nil {
		return fmt.Errorf("embedding %s: %w", file.Path, err)
	}
	if len(vectors) != len(descriptors) {
		return fmt.Errorf("embedding %s: got %d vectors for %d segments", file.Path, len(vectors), len(descriptors))
	}

	records := make([]*core.SegmentRecord, len(descriptors))
	ids := make([]core.ID, len(descriptors))
	for n, d := range descriptors {
		records[n] = &core.SegmentRecord{
			Id:         core.IDFromContent(d.SegmentID),
			SegmentKey: d.SegmentID,
			DocKey:     d.FileID,
			Content:    d.Content,
			Metadata:   d.Metadata,
			Vector:     vectors[n],
		}
		ids[n] = records[n].Id
	}

	if err := i.store.Upsert(ctx, records...); err != nil {
		return fmt.Errorf("storing %s: %w", file.Path, err)
	}

	// A shrinking document leaves stale segments behind; drop them after
	// the new ones are persisted.
	stale := i.tracker.ReplaceDoc(file.Path, ids)
	if len(stale) > 0 {
		if err := i.store.RemoveAll(ctx, stale...); err != nil {
			return fmt.Errorf("pruning %s: %w", file.Path, err)
		}
	}

	i.tracker.FileProcessed(spec.Path, descriptors)
	return nil
}

// Release releases the worker pool. The ingestor should not be used after
// calling Release.
func (i *Ingestor) Release() {
	if i.pool != nil {
		i.pool.Release()
	}
}
