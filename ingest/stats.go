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
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/poiesic/indexit/core"
)

const (
	// MaxTrackedSources caps how many distinct sources get per-source
	// counters. Sources beyond the cap are still ingested.
	MaxTrackedSources = 100

	// MaxFailureRecords caps how many failure details are retained.
	// Counters stay exact; only the oldest detail is evicted.
	MaxFailureRecords = 20
)

// Tracker is the process-lifetime aggregate state of ingestion: per-source
// and global counters, the bounded failure queue, the metadata value index
// and the doc-key to segment-ID index. All methods are safe for concurrent
// use from ingestion passes, event delivery and stats readers.
type Tracker struct {
	mu             sync.Mutex
	sources        map[string]*core.SourceStats
	global         core.GlobalStats
	failures       []core.FailureRecord
	metadataValues map[string]map[string]struct{}
	docSegments    map[string][]core.ID
	overflowWarned bool
	logger         *slog.Logger
}

// NewTracker creates an empty tracker. A nil logger falls back to
// slog.Default().
func NewTracker(logger *slog.Logger) *Tracker {
	if logger == nil {
		logger = slog.Default()
	}
	return &Tracker{
		sources:        make(map[string]*core.SourceStats),
		metadataValues: make(map[string]map[string]struct{}),
		docSegments:    make(map[string][]core.ID),
		logger:         logger.With("component", "tracker"),
	}
}

// sourceStats returns the per-source counters for a source, creating them
// if the tracking cap allows. Beyond the cap it returns nil and warns once
// per overflow event.
func (t *Tracker) sourceStats(source string) *core.SourceStats {
	if stats, ok := t.sources[source]; ok {
		return stats
	}
	if len(t.sources) >= MaxTrackedSources {
		if !t.overflowWarned {
			t.overflowWarned = true
			t.logger.Warn("source tracking cap reached, further sources are ingested without per-source counters",
				"cap", MaxTrackedSources, "source", source)
		}
		return nil
	}
	stats := &core.SourceStats{}
	t.sources[source] = stats
	return stats
}

// FileMatched records how many files a source's match pass found.
func (t *Tracker) FileMatched(source string, count int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if stats := t.sourceStats(source); stats != nil {
		stats.FilesMatched += count
		stats.LastRunAt = time.Now().UTC()
	}
}

// FileProcessed records a successfully ingested file and feeds every
// metadata field of its descriptors into the value index.
func (t *Tracker) FileProcessed(source string, descriptors []*core.SegmentDescriptor) {
	now := time.Now().UTC()

	t.mu.Lock()
	defer t.mu.Unlock()

	if stats := t.sourceStats(source); stats != nil {
		stats.FilesProcessed++
		stats.SegmentsCreated += len(descriptors)
		stats.LastRunAt = now
	}
	t.global.LastIngestionAt = now

	for _, d := range descriptors {
		for field, value := range d.Metadata {
			values, ok := t.metadataValues[field]
			if !ok {
				values = make(map[string]struct{})
				t.metadataValues[field] = values
			}
			values[value] = struct{}{}
		}
	}
}

// FileFailed classifies a per-file error, bumps error counters and pushes
// a failure record onto the bounded queue. Returns the recorded failure.
func (t *Tracker) FileFailed(source, path string, err error) core.FailureRecord {
	t.mu.Lock()
	defer t.mu.Unlock()

	if stats := t.sourceStats(source); stats != nil {
		stats.Errors++
	}
	t.global.TotalErrors++

	record := core.FailureRecord{
		FilePath:   path,
		Kind:       core.FailureKind(err),
		Message:    err.Error(),
		SourcePath: source,
		Timestamp:  time.Now().UTC(),
	}
	t.failures = append(t.failures, record)
	if len(t.failures) > MaxFailureRecords {
		t.failures = t.failures[len(t.failures)-MaxFailureRecords:]
	}
	return record
}

// ReplaceDoc records the new segment IDs for a doc key and returns the
// previously stored IDs that are no longer present, so the caller can
// remove them from the store.
func (t *Tracker) ReplaceDoc(docKey string, ids []core.ID) []core.ID {
	t.mu.Lock()
	defer t.mu.Unlock()

	prev, existed := t.docSegments[docKey]
	t.docSegments[docKey] = slices.Clone(ids)

	t.global.TotalSegments += len(ids) - len(prev)
	if !existed {
		t.global.TotalDocuments++
	}

	var stale []core.ID
	for _, id := range prev {
		if !slices.Contains(ids, id) {
			stale = append(stale, id)
		}
	}
	return stale
}

// RemoveDoc drops a doc key from the index and returns every segment ID it
// held, for removal from the store.
func (t *Tracker) RemoveDoc(docKey string) []core.ID {
	t.mu.Lock()
	defer t.mu.Unlock()

	ids, existed := t.docSegments[docKey]
	if !existed {
		return nil
	}
	delete(t.docSegments, docKey)
	t.global.TotalSegments -= len(ids)
	t.global.TotalDocuments--
	return ids
}

// DocSegments returns the segment IDs currently recorded for a doc key.
func (t *Tracker) DocSegments(docKey string) []core.ID {
	t.mu.Lock()
	defer t.mu.Unlock()
	return slices.Clone(t.docSegments[docKey])
}

// SourceStats returns a snapshot of per-source counters.
func (t *Tracker) SourceStats() map[string]core.SourceStats {
	t.mu.Lock()
	defer t.mu.Unlock()

	snapshot := make(map[string]core.SourceStats, len(t.sources))
	for source, stats := range t.sources {
		snapshot[source] = *stats
	}
	return snapshot
}

// GlobalStats returns a snapshot of the global counters.
func (t *Tracker) GlobalStats() core.GlobalStats {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.global
}

// Failures returns the retained failure records, oldest first.
func (t *Tracker) Failures() []core.FailureRecord {
	t.mu.Lock()
	defer t.mu.Unlock()
	return slices.Clone(t.failures)
}

// MetadataValues returns every discovered metadata field with its sorted
// distinct values, for building an enumerated search filter schema.
func (t *Tracker) MetadataValues() map[string][]string {
	t.mu.Lock()
	defer t.mu.Unlock()

	snapshot := make(map[string][]string, len(t.metadataValues))
	for field, values := range t.metadataValues {
		list := make([]string, 0, len(values))
		for value := range values {
			list = append(list, value)
		}
		slices.Sort(list)
		snapshot[field] = list
	}
	return snapshot
}
