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

package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/poiesic/indexit"
	"github.com/poiesic/indexit/ai"
	"github.com/poiesic/indexit/ai/openai"
	"github.com/poiesic/indexit/core"
	"github.com/poiesic/indexit/reembed"
	"github.com/poiesic/indexit/store/badger"
	"github.com/urfave/cli/v2"
)

func main() {
	embeddingFlags := []cli.Flag{
		&cli.StringFlag{
			Name:  "embedding-host",
			Usage: "Embedding service host URL",
			Value: "http://localhost:11434/v1",
		},
		&cli.StringFlag{
			Name:  "embedding-model",
			Usage: "Embedding model name",
			Value: "embeddinggemma",
		},
	}
	sourceFlags := []cli.Flag{
		&cli.StringSliceFlag{
			Name:     "source",
			Aliases:  []string{"s"},
			Usage:    "Source to index as <strategy>:<path spec> (repeatable)",
			Required: true,
		},
		&cli.StringSliceFlag{
			Name:  "opt",
			Usage: "Strategy option as key=value, applied to every source (repeatable)",
		},
		&cli.StringSliceFlag{
			Name:  "meta",
			Usage: "Base metadata as key=value, applied to every source (repeatable)",
		},
	}
	dbFlag := &cli.StringFlag{
		Name:     "db",
		Aliases:  []string{"d"},
		Usage:    "Path to BadgerDB index directory",
		Required: true,
	}

	app := &cli.App{
		Name:  "indexit",
		Usage: "Semantic file indexing and search",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Aliases: []string{"l"},
				Usage:   "Set logging level (debug, info, warn, error)",
				Value:   "info",
			},
		},
		Before: setupLogger,
		Commands: []*cli.Command{
			{
				Name:   "ingest",
				Usage:  "Index every configured source once",
				Action: ingestCommand,
				Flags:  append([]cli.Flag{dbFlag}, append(sourceFlags, embeddingFlags...)...),
			},
			{
				Name:   "watch",
				Usage:  "Index every configured source, then re-index on filesystem changes",
				Action: watchCommand,
				Flags: append([]cli.Flag{dbFlag,
					&cli.DurationFlag{
						Name:  "debounce",
						Usage: "Debounce window for filesystem events",
						Value: 500 * time.Millisecond,
					},
				}, append(sourceFlags, embeddingFlags...)...),
			},
			{
				Name:      "search",
				Usage:     "Search the index",
				ArgsUsage: "<query>",
				Action:    searchCommand,
				Flags: append([]cli.Flag{dbFlag,
					&cli.IntFlag{
						Name:    "limit",
						Aliases: []string{"n"},
						Usage:   "Maximum number of results",
						Value:   10,
					},
					&cli.StringSliceFlag{
						Name:    "filter",
						Aliases: []string{"f"},
						Usage:   "Equality metadata filter as key=value (repeatable)",
					},
				}, embeddingFlags...),
			},
			{
				Name:   "stats",
				Usage:  "Show index contents",
				Action: statsCommand,
				Flags:  []cli.Flag{dbFlag},
			},
			{
				Name:   "reembed",
				Usage:  "Reembed all stored segments with new embeddings",
				Action: reembedCommand,
				Flags: append([]cli.Flag{dbFlag,
					&cli.IntFlag{
						Name:  "batch-size",
						Usage: "Number of segments to process in each batch",
						Value: 100,
					},
					&cli.IntFlag{
						Name:  "report-interval",
						Usage: "Report progress every N segments",
						Value: 100,
					},
					&cli.IntFlag{
						Name:  "max-retries",
						Usage: "Maximum retry attempts for failed operations",
						Value: 3,
					},
					&cli.DurationFlag{
						Name:  "retry-delay",
						Usage: "Base delay for exponential backoff",
						Value: 1 * time.Second,
					},
				}, embeddingFlags...),
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

// parseSources turns repeated --source/--opt/--meta flags into indexer
// sources. The source format is <strategy>:<path spec>.
func parseSources(c *cli.Context) ([]indexit.Source, error) {
	options, err := parsePairs(c.StringSlice("opt"))
	if err != nil {
		return nil, fmt.Errorf("invalid --opt: %w", err)
	}
	metadata, err := parsePairs(c.StringSlice("meta"))
	if err != nil {
		return nil, fmt.Errorf("invalid --meta: %w", err)
	}

	var sources []indexit.Source
	for _, raw := range c.StringSlice("source") {
		tag, specPath, ok := strings.Cut(raw, ":")
		if !ok || tag == "" || specPath == "" {
			return nil, fmt.Errorf("invalid source %q: expected <strategy>:<path spec>", raw)
		}
		sources = append(sources, indexit.Source{
			Path:     specPath,
			Strategy: tag,
			Options:  options,
			Metadata: metadata,
		})
	}
	return sources, nil
}

func parsePairs(raw []string) (map[string]string, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	pairs := make(map[string]string, len(raw))
	for _, entry := range raw {
		key, value, ok := strings.Cut(entry, "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("expected key=value, got %q", entry)
		}
		pairs[key] = value
	}
	return pairs, nil
}

func aiConfig(c *cli.Context) *ai.Config {
	return ai.NewConfig(
		ai.WithEmbeddingHost(c.String("embedding-host")),
		ai.WithEmbeddingModel(c.String("embedding-model")),
	)
}

func openIndexer(c *cli.Context, sources []indexit.Source, opts ...indexit.IndexerOption) (*indexit.Indexer, error) {
	opts = append(opts, indexit.WithAIConfig(aiConfig(c)))
	return indexit.NewIndexer(c.String("db"), sources, opts...)
}

func ingestCommand(c *cli.Context) error {
	sources, err := parseSources(c)
	if err != nil {
		return err
	}

	ix, err := openIndexer(c, sources)
	if err != nil {
		return err
	}
	defer ix.Close()

	summary, err := ix.Ingest(context.Background())
	if summary != nil {
		fmt.Printf("Ingested %d files, %d failed\n", summary.Ingested, summary.Failed)
		for _, failure := range summary.Failures {
			fmt.Printf("  %s: %s (%s)\n", failure.FilePath, failure.Message, failure.Kind)
		}
	}
	return err
}

func watchCommand(c *cli.Context) error {
	sources, err := parseSources(c)
	if err != nil {
		return err
	}

	ix, err := openIndexer(c, sources, indexit.WithDebounceWindow(c.Duration("debounce")))
	if err != nil {
		return err
	}
	defer ix.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	summary, err := ix.Ingest(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("Ingested %d files, %d failed. Watching for changes...\n", summary.Ingested, summary.Failed)

	if err := ix.Watch(); err != nil {
		return err
	}
	<-ctx.Done()
	return nil
}

func searchCommand(c *cli.Context) error {
	query := strings.TrimSpace(strings.Join(c.Args().Slice(), " "))
	if query == "" {
		return fmt.Errorf("query is required")
	}
	filter, err := parsePairs(c.StringSlice("filter"))
	if err != nil {
		return fmt.Errorf("invalid --filter: %w", err)
	}

	ix, err := indexit.NewIndexer(c.String("db"), nil, indexit.WithAIConfig(aiConfig(c)))
	if err != nil {
		return err
	}
	defer ix.Close()

	results, err := ix.Search(context.Background(), query, c.Int("limit"), filter)
	if err != nil {
		return err
	}
	if len(results) == 0 {
		fmt.Println("No results.")
		return nil
	}
	for i, result := range results {
		fmt.Printf("%2d. [%.3f] %s\n", i+1, result.Score, result.Record.SegmentKey)
		content := result.Record.Content
		if len(content) > 200 {
			content = content[:200] + "..."
		}
		fmt.Printf("    %s\n", strings.ReplaceAll(content, "\n", " "))
	}
	return nil
}

func statsCommand(c *cli.Context) error {
	ctx := context.Background()

	vectorStore, err := badger.OpenStore(c.String("db"))
	if err != nil {
		return fmt.Errorf("failed to open index: %w", err)
	}
	defer vectorStore.Close()

	count, err := vectorStore.Count(ctx)
	if err != nil {
		return err
	}

	documents := make(map[string]struct{})
	fields := make(map[string]map[string]struct{})
	err = vectorStore.ForEach(ctx, func(record *core.SegmentRecord) error {
		documents[record.DocKey] = struct{}{}
		for field, value := range record.Metadata {
			if fields[field] == nil {
				fields[field] = make(map[string]struct{})
			}
			fields[field][value] = struct{}{}
		}
		return nil
	})
	if err != nil {
		return err
	}

	fmt.Printf("Segments:  %d\n", count)
	fmt.Printf("Documents: %d\n", len(documents))
	fmt.Println("Metadata fields:")
	for field, values := range fields {
		fmt.Printf("  %s (%d distinct values)\n", field, len(values))
	}
	return nil
}

func reembedCommand(c *cli.Context) error {
	ctx := context.Background()

	vectorStore, err := badger.OpenStore(c.String("db"))
	if err != nil {
		return fmt.Errorf("failed to open index: %w", err)
	}
	defer vectorStore.Close()

	cfg := aiConfig(c)
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid AI configuration: %w", err)
	}
	embedder, err := openai.NewEmbedder(cfg)
	if err != nil {
		return fmt.Errorf("failed to create embedder: %w", err)
	}

	reembedConfig := &reembed.Config{
		BatchSize:      c.Int("batch-size"),
		ReportInterval: c.Int("report-interval"),
		MaxRetries:     c.Int("max-retries"),
		RetryDelay:     c.Duration("retry-delay"),
	}
	if reembedConfig.BatchSize <= 0 {
		return fmt.Errorf("batch-size must be greater than 0")
	}
	if reembedConfig.MaxRetries <= 0 {
		return fmt.Errorf("max-retries must be greater than 0")
	}

	fmt.Fprintf(os.Stderr, "Index: %s\n", c.String("db"))
	fmt.Fprintf(os.Stderr, "Embedding host: %s\n", cfg.EmbeddingHost)
	fmt.Fprintf(os.Stderr, "Embedding model: %s\n", cfg.EmbeddingModel)

	reembedder := reembed.NewReembedder(vectorStore, embedder, reembedConfig, os.Stderr)
	return reembedder.Run(ctx)
}

func setupLogger(c *cli.Context) error {
	levelStr := strings.ToLower(c.String("log-level"))

	var level slog.Level
	switch levelStr {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		return fmt.Errorf("invalid log level %q: must be one of debug, info, warn, error", levelStr)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	return nil
}
