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


package indexit

import (
	"context"
	"io"
	"log/slog"
	"time"

	"github.com/poiesic/indexit/ai"
	"github.com/poiesic/indexit/ai/openai"
	"github.com/poiesic/indexit/analysis"
	"github.com/poiesic/indexit/core"
	"github.com/poiesic/indexit/ingest"
	"github.com/poiesic/indexit/pathspec"
	"github.com/poiesic/indexit/reembed"
	"github.com/poiesic/indexit/search"
	"github.com/poiesic/indexit/store"
	"github.com/poiesic/indexit/store/badger"
	"github.com/poiesic/indexit/store/memory"
	"github.com/poiesic/indexit/strategy"
)

// Source declares one family of files to index: a path spec, the strategy
// that processes its files and the metadata stamped on every segment.
type Source struct {
	Path     string
	Strategy string
	Options  map[string]string
	Metadata map[string]string
}

// Indexer owns the full indexing stack: compiled sources, strategy
// registry, vector store, embedder, ingestion orchestrator and the
// optional filesystem watcher. It is constructed at service start and
// torn down with Close.
type Indexer struct {
	specs     []*pathspec.CompiledSpec
	registry  *strategy.Registry
	store     store.VectorStore
	provider  ai.Provider
	ingestor  *ingest.Ingestor
	searcher  *search.Searcher
	debouncer *ingest.Debouncer
	watcher   *ingest.Watcher
	logger    *slog.Logger
}

// IndexerOption configures an Indexer.
type IndexerOption func(*indexerOptions)

type indexerOptions struct {
	aiConfig *ai.Config
	provider ai.Provider
	store    store.VectorStore
	analyzer analysis.Analyzer
	poolSize int
	window   time.Duration
	logger   *slog.Logger
}

// WithAIConfig sets the embedding service configuration.
func WithAIConfig(cfg *ai.Config) IndexerOption {
	return func(o *indexerOptions) { o.aiConfig = cfg }
}

// WithProvider supplies a pre-built AI provider instead of the default
// OpenAI-compatible one. The indexer takes ownership and closes it.
func WithProvider(provider ai.Provider) IndexerOption {
	return func(o *indexerOptions) { o.provider = provider }
}

// WithStore supplies a pre-built vector store instead of the default
// badger-backed one. The indexer takes ownership and closes it.
func WithStore(vectorStore store.VectorStore) IndexerOption {
	return func(o *indexerOptions) { o.store = vectorStore }
}

// WithAnalyzer enables the code-analysis strategy with the given analyzer.
func WithAnalyzer(analyzer analysis.Analyzer) IndexerOption {
	return func(o *indexerOptions) { o.analyzer = analyzer }
}

// WithPoolSize sets the ingestion worker pool size.
func WithPoolSize(size int) IndexerOption {
	return func(o *indexerOptions) { o.poolSize = size }
}

// WithDebounceWindow sets the re-index debounce window.
func WithDebounceWindow(window time.Duration) IndexerOption {
	return func(o *indexerOptions) { o.window = window }
}

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) IndexerOption {
	return func(o *indexerOptions) { o.logger = logger }
}

// NewIndexer compiles every source and wires the indexing stack. A
// malformed path spec, unknown strategy tag or invalid strategy options
// fail construction; per-file problems surface later, during ingestion.
// filePath is the store location; an empty path selects an in-memory
// store.
func NewIndexer(filePath string, sources []Source, opts ...IndexerOption) (*Indexer, error) {
	options := &indexerOptions{
		aiConfig: ai.DefaultConfig(),
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(options)
	}

	registry := strategy.NewDefaultRegistry(options.analyzer)

	// Compile and validate every source before anything is opened
	specs := make([]*pathspec.CompiledSpec, 0, len(sources))
	for _, source := range sources {
		spec, err := pathspec.CompileSpec(source.Path, source.Strategy, source.Options, source.Metadata)
		if err != nil {
			return nil, err
		}
		if _, err := registry.Resolve(spec.Strategy, spec.Options); err != nil {
			return nil, err
		}
		specs = append(specs, spec)
	}

	vectorStore := options.store
	if vectorStore == nil {
		if filePath == "" {
			vectorStore = memory.NewStore()
		} else {
			var err error
			vectorStore, err = badger.OpenStore(filePath)
			if err != nil {
				return nil, err
			}
		}
	}

	provider := options.provider
	if provider == nil {
		var err error
		provider, err = openai.NewProvider(options.aiConfig)
		if err != nil {
			vectorStore.Close()
			return nil, err
		}
	}

	ingestOpts := []ingest.Option{ingest.WithLogger(options.logger)}
	if options.poolSize > 0 {
		ingestOpts = append(ingestOpts, ingest.WithPoolSize(options.poolSize))
	}
	ingestor, err := ingest.NewIngestor(registry, vectorStore, provider.Embedder(), ingestOpts...)
	if err != nil {
		provider.Close()
		vectorStore.Close()
		return nil, err
	}

	searcher, err := search.NewSearcher(vectorStore, provider.Embedder(), ingestor.Tracker(),
		search.WithLogger(options.logger))
	if err != nil {
		ingestor.Release()
		provider.Close()
		vectorStore.Close()
		return nil, err
	}

	debounceOpts := []ingest.DebounceOption{ingest.WithDebounceLogger(options.logger)}
	if options.window > 0 {
		debounceOpts = append(debounceOpts, ingest.WithWindow(options.window))
	}
	debouncer, err := ingest.NewDebouncer(ingestor, debounceOpts...)
	if err != nil {
		ingestor.Release()
		provider.Close()
		vectorStore.Close()
		return nil, err
	}

	return &Indexer{
		specs:     specs,
		registry:  registry,
		store:     vectorStore,
		provider:  provider,
		ingestor:  ingestor,
		searcher:  searcher,
		debouncer: debouncer,
		logger:    options.logger,
	}, nil
}

// Ingest runs a bulk ingestion pass over every configured source.
func (ix *Indexer) Ingest(ctx context.Context) (*ingest.Summary, error) {
	return ix.ingestor.Ingest(ctx, ix.specs)
}

// Watch starts the filesystem watcher feeding the debounced re-indexer.
func (ix *Indexer) Watch() error {
	if ix.watcher != nil {
		return nil
	}
	watcher, err := ingest.NewWatcher(ix.debouncer, ix.specs, ix.logger)
	if err != nil {
		return err
	}
	if err := watcher.Start(); err != nil {
		watcher.Close()
		return err
	}
	ix.watcher = watcher
	return nil
}

// Search answers a semantic query over the indexed segments.
func (ix *Indexer) Search(ctx context.Context, query string, maxHits int, filter map[string]string) ([]*core.SearchResult, error) {
	return ix.searcher.Search(ctx, query, maxHits, filter)
}

// Stats returns the current ingestion statistics snapshot.
func (ix *Indexer) Stats() search.StatsSnapshot {
	return ix.searcher.Stats()
}

// FilterSchema returns the discovered metadata filter schema.
func (ix *Indexer) FilterSchema() map[string][]string {
	return ix.searcher.FilterSchema()
}

// Reembed regenerates the embedding of every stored segment, reporting
// progress to w.
func (ix *Indexer) Reembed(ctx context.Context, w io.Writer) error {
	return reembed.NewReembedder(ix.store, ix.provider.Embedder(), nil, w).Run(ctx)
}

// Sources returns the compiled source specs.
func (ix *Indexer) Sources() []*pathspec.CompiledSpec {
	return ix.specs
}

// Registry returns the strategy registry, for registering custom
// strategies before ingestion.
func (ix *Indexer) Registry() *strategy.Registry {
	return ix.registry
}

// Store returns the underlying vector store.
func (ix *Indexer) Store() store.VectorStore {
	return ix.store
}

// Close tears down the watcher, debouncer, ingestion pool, provider and
// store, in that order.
func (ix *Indexer) Close() error {
	if ix.watcher != nil {
		if err := ix.watcher.Close(); err != nil {
			ix.logger.Error("error closing watcher", "err", err)
		}
		ix.watcher = nil
	}
	ix.debouncer.Close()
	ix.ingestor.Release()

	if err := ix.provider.Close(); err != nil {
		ix.logger.Error("error closing AI provider", "err", err)
	}
	if err := ix.store.Close(); err != nil {
		ix.logger.Error("error closing vector store", "err", err)
		return err
	}
	return nil
}
