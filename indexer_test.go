package indexit

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/poiesic/indexit/ai/mock"
	"github.com/poiesic/indexit/core"
	"github.com/poiesic/indexit/strategy"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeDoc(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func newTestIndexer(t *testing.T, sources []Source, opts ...IndexerOption) *Indexer {
	t.Helper()
	opts = append(opts, WithProvider(mock.NewMockProvider()))
	ix, err := NewIndexer("", sources, opts...)
	require.NoError(t, err)
	t.Cleanup(func() { ix.Close() })
	return ix
}

func TestNewIndexerFailsFastOnBadSources(t *testing.T) {
	t.Run("malformed spec", func(t *testing.T) {
		_, err := NewIndexer("", []Source{
			{Path: "/docs/(?<>x)", Strategy: strategy.TagWholeDocument},
		}, WithProvider(mock.NewMockProvider()))
		assert.ErrorIs(t, err, core.ErrSpecSyntax)
	})

	t.Run("unknown strategy", func(t *testing.T) {
		_, err := NewIndexer("", []Source{
			{Path: "/docs/*.md", Strategy: "bogus"},
		}, WithProvider(mock.NewMockProvider()))
		assert.ErrorIs(t, err, core.ErrUnknownStrategy)
	})

	t.Run("invalid strategy options", func(t *testing.T) {
		_, err := NewIndexer("", []Source{
			{Path: "/docs/*.md", Strategy: strategy.TagChunked, Options: map[string]string{"chunk_size": "-1"}},
		}, WithProvider(mock.NewMockProvider()))
		assert.ErrorIs(t, err, core.ErrConfig)
	})
}

func TestIndexerIngestAndSearch(t *testing.T) {
	dir := filepath.ToSlash(t.TempDir())
	writeDoc(t, dir+"/v1/guide.md", "how to install the tool")
	writeDoc(t, dir+"/v2/guide.md", "how to upgrade the tool")

	ix := newTestIndexer(t, []Source{
		{Path: dir + "/(?<version>v[0-9]+)/guide.md", Strategy: strategy.TagWholeDocument},
	})

	summary, err := ix.Ingest(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, summary.Ingested)

	results, err := ix.Search(context.Background(), "how to install the tool", 5, nil)
	require.NoError(t, err)
	require.NotEmpty(t, results)
	assert.Equal(t, "how to install the tool", results[0].Record.Content)

	filtered, err := ix.Search(context.Background(), "the tool", 5, map[string]string{"version": "v2"})
	require.NoError(t, err)
	require.Len(t, filtered, 1)
	assert.Equal(t, "v2", filtered[0].Record.Metadata["version"])

	assert.Equal(t, []string{"v1", "v2"}, ix.FilterSchema()["version"])
	assert.Equal(t, 2, ix.Stats().Global.TotalDocuments)
}

func TestIndexerPersistentStore(t *testing.T) {
	storePath := filepath.Join(t.TempDir(), "index_db")
	dir := filepath.ToSlash(t.TempDir())
	writeDoc(t, dir+"/a.md", "persisted doc")

	ix, err := NewIndexer(storePath, []Source{
		{Path: dir + "/*.md", Strategy: strategy.TagWholeDocument},
	}, WithProvider(mock.NewMockProvider()))
	require.NoError(t, err)

	_, err = ix.Ingest(context.Background())
	require.NoError(t, err)
	require.NoError(t, ix.Close())

	// Reopen: the segment is still there
	ix, err = NewIndexer(storePath, nil, WithProvider(mock.NewMockProvider()))
	require.NoError(t, err)
	defer ix.Close()

	count, err := ix.Store().Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestIndexerWatch(t *testing.T) {
	dir := filepath.ToSlash(t.TempDir())
	ix := newTestIndexer(t, []Source{
		{Path: dir + "/*.md", Strategy: strategy.TagWholeDocument},
	}, WithDebounceWindow(50*time.Millisecond))

	require.NoError(t, ix.Watch())
	writeDoc(t, dir+"/live.md", "appeared while watching")

	assert.Eventually(t, func() bool {
		count, err := ix.Store().Count(context.Background())
		return err == nil && count == 1
	}, 3*time.Second, 25*time.Millisecond)
}

func TestIndexerReembed(t *testing.T) {
	dir := filepath.ToSlash(t.TempDir())
	writeDoc(t, dir+"/a.md", "alpha")

	ix := newTestIndexer(t, []Source{
		{Path: dir + "/*.md", Strategy: strategy.TagWholeDocument},
	})
	_, err := ix.Ingest(context.Background())
	require.NoError(t, err)

	var progress nopWriter
	require.NoError(t, ix.Reembed(context.Background(), &progress))
}

type nopWriter struct{}

func (nopWriter) Write(p []byte) (int, error) { return len(p), nil }
