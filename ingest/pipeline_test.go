package ingest

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	aimock "github.com/poiesic/indexit/ai/mock"
	"github.com/poiesic/indexit/core"
	"github.com/poiesic/indexit/pathspec"
	"github.com/poiesic/indexit/store"
	"github.com/poiesic/indexit/store/memory"
	"github.com/poiesic/indexit/strategy"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestIngestor(t *testing.T) (*Ingestor, store.VectorStore) {
	t.Helper()
	vectorStore := memory.NewStore()
	t.Cleanup(func() { vectorStore.Close() })

	ingestor, err := NewIngestor(strategy.NewDefaultRegistry(nil), vectorStore, aimock.NewMockEmbedder())
	require.NoError(t, err)
	t.Cleanup(ingestor.Release)
	return ingestor, vectorStore
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func compileSpec(t *testing.T, path, tag string, options, metadata map[string]string) *pathspec.CompiledSpec {
	t.Helper()
	spec, err := pathspec.CompileSpec(path, tag, options, metadata)
	require.NoError(t, err)
	return spec
}

func TestIngestWholeDocuments(t *testing.T) {
	dir := filepath.ToSlash(t.TempDir())
	writeFile(t, dir+"/a.md", "alpha document")
	writeFile(t, dir+"/b.md", "beta document")
	writeFile(t, dir+"/c.txt", "ignored")

	ingestor, vectorStore := newTestIngestor(t)
	spec := compileSpec(t, dir+"/*.md", strategy.TagWholeDocument, nil, map[string]string{"team": "docs"})

	summary, err := ingestor.Ingest(context.Background(), []*pathspec.CompiledSpec{spec})
	require.NoError(t, err)
	assert.Equal(t, 2, summary.Ingested)
	assert.Equal(t, 0, summary.Failed)

	count, err := vectorStore.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	// Stored records carry stamped metadata plus the spec's base metadata
	record, err := vectorStore.Get(context.Background(), core.IDFromContent(dir+"/a.md"))
	require.NoError(t, err)
	assert.Equal(t, "alpha document", record.Content)
	assert.Equal(t, "docs", record.Metadata["team"])
	assert.Equal(t, dir+"/a.md", record.Metadata[core.MetaFileID])
	assert.Equal(t, dir+"/a.md", record.DocKey)
	assert.NotEmpty(t, record.Vector)
}

func TestIngestCaptureMetadata(t *testing.T) {
	dir := filepath.ToSlash(t.TempDir())
	writeFile(t, dir+"/v1/guide.md", "version one guide")
	writeFile(t, dir+"/v2/guide.md", "version two guide")

	ingestor, _ := newTestIngestor(t)
	spec := compileSpec(t, dir+"/(?<version>v[0-9]+)/guide.md", strategy.TagWholeDocument, nil, nil)

	summary, err := ingestor.Ingest(context.Background(), []*pathspec.CompiledSpec{spec})
	require.NoError(t, err)
	assert.Equal(t, 2, summary.Ingested)

	values := ingestor.Tracker().MetadataValues()
	assert.Equal(t, []string{"v1", "v2"}, values["version"])
}

func TestIngestPartialFailureTolerance(t *testing.T) {
	dir := filepath.ToSlash(t.TempDir())
	writeFile(t, dir+"/good.go", "// Good package docs\npackage good")
	writeFile(t, dir+"/bad.go", "no header here at all")

	ingestor, vectorStore := newTestIngestor(t)
	spec := compileSpec(t, dir+"/*.go", strategy.TagNamespaceDoc, nil, nil)

	summary, err := ingestor.Ingest(context.Background(), []*pathspec.CompiledSpec{spec})
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Ingested)
	assert.Equal(t, 1, summary.Failed)
	require.Len(t, summary.Failures, 1)
	assert.Equal(t, core.FailureKindParse, summary.Failures[0].Kind)
	assert.Equal(t, dir+"/bad.go", summary.Failures[0].FilePath)

	// The good file still made it in
	count, err := vectorStore.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestIngestSummaryFailuresScopedToPass(t *testing.T) {
	dir := filepath.ToSlash(t.TempDir())
	writeFile(t, dir+"/bad.go", "no header here at all")

	ingestor, _ := newTestIngestor(t)
	spec := compileSpec(t, dir+"/*.go", strategy.TagNamespaceDoc, nil, nil)

	summary, err := ingestor.Ingest(context.Background(), []*pathspec.CompiledSpec{spec})
	require.NoError(t, err)
	require.Len(t, summary.Failures, 1)

	// A clean second pass reports no failures of its own even though the
	// tracker still remembers the first pass
	writeFile(t, dir+"/bad.go", "// Fixed docs\npackage fixed")
	summary, err = ingestor.Ingest(context.Background(), []*pathspec.CompiledSpec{spec})
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Ingested)
	assert.Empty(t, summary.Failures)
	assert.Len(t, ingestor.Tracker().Failures(), 1)
}

func TestIngestUnknownStrategyFailsSource(t *testing.T) {
	dir := filepath.ToSlash(t.TempDir())
	writeFile(t, dir+"/a.md", "alpha")
	writeFile(t, dir+"/b.md", "beta")

	ingestor, vectorStore := newTestIngestor(t)
	bogus := compileSpec(t, dir+"/*.md", "bogus", nil, nil)
	good := compileSpec(t, dir+"/a.md", strategy.TagWholeDocument, nil, nil)

	summary, err := ingestor.Ingest(context.Background(), []*pathspec.CompiledSpec{bogus, good})
	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrUnknownStrategy)

	// The other source still ran
	assert.Equal(t, 1, summary.Ingested)
	count, err := vectorStore.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestReingestReplacesShrunkDocument(t *testing.T) {
	dir := filepath.ToSlash(t.TempDir())
	path := dir + "/big.txt"
	writeFile(t, path, strings.Repeat("x", 250))

	ingestor, vectorStore := newTestIngestor(t)
	spec := compileSpec(t, path, strategy.TagChunked,
		map[string]string{"chunk_size": "100", "chunk_overlap": "20"}, nil)

	_, err := ingestor.Ingest(context.Background(), []*pathspec.CompiledSpec{spec})
	require.NoError(t, err)

	count, err := vectorStore.Count(context.Background())
	require.NoError(t, err)
	require.Equal(t, 4, count) // offsets 0, 80, 160, 240

	// Shrink the file and re-ingest: stale chunks must disappear
	writeFile(t, path, strings.Repeat("y", 50))
	_, err = ingestor.Ingest(context.Background(), []*pathspec.CompiledSpec{spec})
	require.NoError(t, err)

	count, err = vectorStore.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, count)
	assert.Equal(t, 1, ingestor.Tracker().GlobalStats().TotalSegments)
}

func TestIngestStatsVisibleAfterPersist(t *testing.T) {
	dir := filepath.ToSlash(t.TempDir())
	writeFile(t, dir+"/a.md", "alpha")

	ingestor, vectorStore := newTestIngestor(t)
	spec := compileSpec(t, dir+"/*.md", strategy.TagWholeDocument, nil, nil)

	_, err := ingestor.Ingest(context.Background(), []*pathspec.CompiledSpec{spec})
	require.NoError(t, err)

	stats := ingestor.Tracker().SourceStats()[spec.Path]
	assert.Equal(t, 1, stats.FilesMatched)
	assert.Equal(t, 1, stats.FilesProcessed)
	assert.Equal(t, 1, stats.SegmentsCreated)

	count, err := vectorStore.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, stats.SegmentsCreated, count)
}

func TestRemoveFile(t *testing.T) {
	dir := filepath.ToSlash(t.TempDir())
	path := dir + "/a.md"
	writeFile(t, path, "alpha")

	ingestor, vectorStore := newTestIngestor(t)
	spec := compileSpec(t, dir+"/*.md", strategy.TagWholeDocument, nil, nil)
	_, err := ingestor.Ingest(context.Background(), []*pathspec.CompiledSpec{spec})
	require.NoError(t, err)

	require.NoError(t, ingestor.RemoveFile(context.Background(), path))

	count, err := vectorStore.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, count)
	assert.Equal(t, 0, ingestor.Tracker().GlobalStats().TotalDocuments)
}
