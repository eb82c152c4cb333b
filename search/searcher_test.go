package search

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	aimock "github.com/poiesic/indexit/ai/mock"
	"github.com/poiesic/indexit/core"
	"github.com/poiesic/indexit/ingest"
	"github.com/poiesic/indexit/pathspec"
	"github.com/poiesic/indexit/store/memory"
	"github.com/poiesic/indexit/strategy"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// indexFixture ingests a versioned doc tree and returns a searcher over
// it, sharing the embedder so queries land near their documents.
func indexFixture(t *testing.T) *Searcher {
	t.Helper()
	dir := filepath.ToSlash(t.TempDir())
	for version, body := range map[string]string{
		"v1": "installation guide for the first release",
		"v2": "installation guide for the second release",
	} {
		path := filepath.Join(dir, version, "guide.md")
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	}

	vectorStore := memory.NewStore()
	t.Cleanup(func() { vectorStore.Close() })
	embedder := aimock.NewMockEmbedder()

	ingestor, err := ingest.NewIngestor(strategy.NewDefaultRegistry(nil), vectorStore, embedder)
	require.NoError(t, err)
	t.Cleanup(ingestor.Release)

	spec, err := pathspec.CompileSpec(dir+"/(?<version>v[0-9]+)/guide.md", strategy.TagWholeDocument, nil, map[string]string{"team": "docs"})
	require.NoError(t, err)
	summary, err := ingestor.Ingest(context.Background(), []*pathspec.CompiledSpec{spec})
	require.NoError(t, err)
	require.Equal(t, 2, summary.Ingested)

	searcher, err := NewSearcher(vectorStore, embedder, ingestor.Tracker())
	require.NoError(t, err)
	return searcher
}

func TestSearchReturnsRankedResults(t *testing.T) {
	searcher := indexFixture(t)

	// The mock embedder is deterministic, so a query equal to a stored
	// document embeds to the identical vector and ranks first.
	results, err := searcher.Search(context.Background(), "installation guide for the first release", 10, nil)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "installation guide for the first release", results[0].Record.Content)
	assert.GreaterOrEqual(t, results[0].Score, results[1].Score)
}

func TestSearchWithMetadataFilter(t *testing.T) {
	searcher := indexFixture(t)

	results, err := searcher.Search(context.Background(), "installation guide", 10, map[string]string{"version": "v2"})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "v2", results[0].Record.Metadata["version"])
}

func TestSearchRejectsEmptyQuery(t *testing.T) {
	searcher := indexFixture(t)

	_, err := searcher.Search(context.Background(), "   ", 10, nil)
	assert.ErrorIs(t, err, ErrEmptyQuery)
}

func TestSearchDefaultsMaxHits(t *testing.T) {
	vectorStore := memory.NewStore()
	t.Cleanup(func() { vectorStore.Close() })

	ctx := context.Background()
	for i := 0; i < DefaultMaxHits+5; i++ {
		key := fmt.Sprintf("doc%d", i)
		require.NoError(t, vectorStore.Upsert(ctx, &core.SegmentRecord{
			Id:         core.IDFromContent(key),
			SegmentKey: key,
			DocKey:     key,
			Content:    key,
			Metadata:   map[string]string{"doc_id": key},
			Vector:     []float32{1, float32(i)},
		}))
	}

	searcher, err := NewSearcher(vectorStore, aimock.NewMockEmbedder(), nil)
	require.NoError(t, err)

	results, err := searcher.Search(ctx, "anything", 0, nil)
	require.NoError(t, err)
	assert.Len(t, results, DefaultMaxHits)
}

func TestFilterSchema(t *testing.T) {
	searcher := indexFixture(t)

	schema := searcher.FilterSchema()
	assert.Equal(t, []string{"v1", "v2"}, schema["version"])
	assert.Equal(t, []string{"docs"}, schema["team"])
	assert.Contains(t, schema, core.MetaFileID)
}

func TestStatsSnapshot(t *testing.T) {
	searcher := indexFixture(t)

	stats := searcher.Stats()
	assert.Equal(t, 2, stats.Global.TotalDocuments)
	assert.Equal(t, 2, stats.Global.TotalSegments)
	assert.Empty(t, stats.Failures)
	require.Len(t, stats.Sources, 1)
	for _, source := range stats.Sources {
		assert.Equal(t, 2, source.FilesProcessed)
	}
}

func TestSearcherRequiresDependencies(t *testing.T) {
	vectorStore := memory.NewStore()
	t.Cleanup(func() { vectorStore.Close() })

	_, err := NewSearcher(nil, aimock.NewMockEmbedder(), nil)
	assert.ErrorIs(t, err, ErrStoreRequired)

	_, err = NewSearcher(vectorStore, nil, nil)
	assert.ErrorIs(t, err, ErrEmbedderRequired)
}
