package ingest

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	aimock "github.com/poiesic/indexit/ai/mock"
	"github.com/poiesic/indexit/core"
	"github.com/poiesic/indexit/pathspec"
	"github.com/poiesic/indexit/store"
	"github.com/poiesic/indexit/store/memory"
	"github.com/poiesic/indexit/strategy"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// countingStrategy wraps whole-document processing and counts Process
// calls per path.
type countingStrategy struct {
	inner strategy.Strategy

	mu     sync.Mutex
	calls  map[string]int
	gate   chan struct{} // When set, Process blocks until the gate closes
	events chan string   // When set, receives each processed path
}

func (c *countingStrategy) Process(ctx context.Context, path, content string, metadata map[string]string) ([]*core.SegmentDescriptor, error) {
	c.mu.Lock()
	if c.calls == nil {
		c.calls = make(map[string]int)
	}
	c.calls[path]++
	gate := c.gate
	c.gate = nil
	c.mu.Unlock()

	if c.events != nil {
		c.events <- path
	}
	if gate != nil {
		<-gate
	}
	return c.inner.Process(ctx, path, content, metadata)
}

func (c *countingStrategy) callsFor(path string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls[path]
}

func newDebounceFixture(t *testing.T, counting *countingStrategy, window time.Duration) (*Debouncer, *Ingestor, store.VectorStore) {
	t.Helper()
	vectorStore := memory.NewStore()
	t.Cleanup(func() { vectorStore.Close() })

	registry := strategy.NewDefaultRegistry(nil)
	registry.Register("counting", func(map[string]string) (strategy.Strategy, error) {
		return counting, nil
	})

	ingestor, err := NewIngestor(registry, vectorStore, aimock.NewMockEmbedder())
	require.NoError(t, err)
	t.Cleanup(ingestor.Release)

	debouncer, err := NewDebouncer(ingestor, WithWindow(window))
	require.NoError(t, err)
	t.Cleanup(debouncer.Close)
	return debouncer, ingestor, vectorStore
}

func TestDebounceCoalescesRapidModifies(t *testing.T) {
	dir := filepath.ToSlash(t.TempDir())
	path := dir + "/a.md"
	writeFile(t, path, "alpha")

	counting := &countingStrategy{inner: strategy.NewWholeDocument()}
	debouncer, _, vectorStore := newDebounceFixture(t, counting, 30*time.Millisecond)
	spec := compileSpec(t, dir+"/*.md", "counting", nil, nil)

	for range 10 {
		debouncer.Offer(Event{Kind: EventModify, Path: path, Spec: spec})
	}
	debouncer.Settle()

	assert.Equal(t, 1, counting.callsFor(path))
	count, err := vectorStore.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestDebounceLastWriteWins(t *testing.T) {
	dir := filepath.ToSlash(t.TempDir())
	path := dir + "/a.md"
	writeFile(t, path, "alpha")

	counting := &countingStrategy{inner: strategy.NewWholeDocument()}
	debouncer, ingestor, vectorStore := newDebounceFixture(t, counting, 30*time.Millisecond)
	spec := compileSpec(t, dir+"/*.md", "counting", nil, nil)

	// Seed the store so the delete has something to remove
	_, err := ingestor.Ingest(context.Background(), []*pathspec.CompiledSpec{spec})
	require.NoError(t, err)

	// A burst ending in delete coalesces to the delete alone
	debouncer.Offer(Event{Kind: EventModify, Path: path, Spec: spec})
	debouncer.Offer(Event{Kind: EventModify, Path: path, Spec: spec})
	debouncer.Offer(Event{Kind: EventDelete, Path: path, Spec: spec})
	debouncer.Settle()

	count, err := vectorStore.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, count)
	// Only the bulk ingest touched the strategy
	assert.Equal(t, 1, counting.callsFor(path))
}

func TestDebounceMidFlushEventsStartNewCycle(t *testing.T) {
	dir := filepath.ToSlash(t.TempDir())
	pathA := dir + "/a.md"
	pathB := dir + "/b.md"
	writeFile(t, pathA, "alpha")
	writeFile(t, pathB, "beta")

	gate := make(chan struct{})
	started := make(chan string, 4)
	counting := &countingStrategy{inner: strategy.NewWholeDocument(), gate: gate, events: started}
	debouncer, _, _ := newDebounceFixture(t, counting, 20*time.Millisecond)
	spec := compileSpec(t, dir+"/*.md", "counting", nil, nil)

	debouncer.Offer(Event{Kind: EventModify, Path: pathA, Spec: spec})

	// Wait for the flush to reach the strategy, then deliver an event
	// mid-flush and release the gate
	<-started
	debouncer.Offer(Event{Kind: EventModify, Path: pathB, Spec: spec})
	close(gate)

	debouncer.Settle()
	assert.Equal(t, 1, counting.callsFor(pathA))
	assert.Equal(t, 1, counting.callsFor(pathB))
}

func TestDebounceDeleteRemovesAllSegments(t *testing.T) {
	dir := filepath.ToSlash(t.TempDir())
	path := dir + "/big.txt"
	writeFile(t, path, "0123456789012345678901234567890123456789") // 40 chars

	counting := &countingStrategy{inner: strategy.NewWholeDocument()}
	debouncer, ingestor, vectorStore := newDebounceFixture(t, counting, 20*time.Millisecond)
	spec := compileSpec(t, path, strategy.TagChunked,
		map[string]string{"chunk_size": "20", "chunk_overlap": "5"}, nil)

	_, err := ingestor.Ingest(context.Background(), []*pathspec.CompiledSpec{spec})
	require.NoError(t, err)
	count, err := vectorStore.Count(context.Background())
	require.NoError(t, err)
	require.Greater(t, count, 1)

	debouncer.Offer(Event{Kind: EventDelete, Path: path, Spec: spec})
	debouncer.Settle()

	count, err = vectorStore.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, count)
}

func TestDebounceOfferRacingTimerExpiry(t *testing.T) {
	dir := filepath.ToSlash(t.TempDir())
	path := dir + "/a.md"
	writeFile(t, path, "alpha")

	counting := &countingStrategy{inner: strategy.NewWholeDocument()}
	debouncer, _, _ := newDebounceFixture(t, counting, time.Microsecond)
	spec := compileSpec(t, dir+"/*.md", "counting", nil, nil)

	// With a near-zero window most offers land right as the shared timer
	// expires, so resets keep racing flush invocations. The debouncer must
	// stay balanced through the churn and still process events afterwards.
	for range 5000 {
		debouncer.Offer(Event{Kind: EventDelete, Path: dir + "/ghost.md", Spec: spec})
	}
	debouncer.Settle()

	debouncer.Offer(Event{Kind: EventModify, Path: path, Spec: spec})
	debouncer.Settle()
	assert.Equal(t, 1, counting.callsFor(path))
}

func TestDebounceCreateIgnoresNonMatchingPath(t *testing.T) {
	dir := filepath.ToSlash(t.TempDir())
	writeFile(t, dir+"/notes.txt", "not markdown")

	counting := &countingStrategy{inner: strategy.NewWholeDocument()}
	debouncer, _, vectorStore := newDebounceFixture(t, counting, 20*time.Millisecond)
	spec := compileSpec(t, dir+"/*.md", "counting", nil, nil)

	debouncer.Offer(Event{Kind: EventCreate, Path: dir + "/notes.txt", Spec: spec})
	debouncer.Settle()

	count, err := vectorStore.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, count)
	assert.Equal(t, 0, counting.callsFor(dir+"/notes.txt"))
}
