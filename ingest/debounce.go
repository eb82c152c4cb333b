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
	"log/slog"
	"sync"
	"time"

	"github.com/poiesic/indexit/pathspec"
)

// DefaultDebounceWindow is how long the debouncer waits after the last
// event before flushing.
const DefaultDebounceWindow = 500 * time.Millisecond

// EventKind classifies a filesystem event.
type EventKind string

const (
	EventCreate EventKind = "create"
	EventModify EventKind = "modify"
	EventDelete EventKind = "delete"
)

// Event is one raw filesystem event tagged with the spec it belongs to.
type Event struct {
	Kind EventKind
	Path string
	Spec *pathspec.CompiledSpec
}

// Debouncer coalesces bursts of filesystem events into single re-index
// passes. One shared timer is reset (never stacked) on each event; the
// pending map holds at most one entry per path, last event wins. The event
// source is assumed at-least-once and possibly duplicated or reordered;
// this layer is the sole defense against that.
type Debouncer struct {
	ingestor *Ingestor
	window   time.Duration
	logger   *slog.Logger

	mu       sync.Mutex
	pending  map[string]Event
	timer    *time.Timer
	armed    bool
	flushing bool

	ctx    context.Context
	cancel context.CancelFunc
	idle   sync.WaitGroup
}

// DebounceOption configures a Debouncer.
type DebounceOption func(*Debouncer)

// WithWindow sets the debounce window. Non-positive values keep the
// default.
func WithWindow(window time.Duration) DebounceOption {
	return func(d *Debouncer) {
		if window > 0 {
			d.window = window
		}
	}
}

// WithDebounceLogger sets a custom logger.
func WithDebounceLogger(logger *slog.Logger) DebounceOption {
	return func(d *Debouncer) {
		if logger != nil {
			d.logger = logger
		}
	}
}

// NewDebouncer creates a debouncer flushing into the given ingestor.
func NewDebouncer(ingestor *Ingestor, opts ...DebounceOption) (*Debouncer, error) {
	if ingestor == nil {
		return nil, ErrIngestorRequired
	}

	ctx, cancel := context.WithCancel(context.Background())
	d := &Debouncer{
		ingestor: ingestor,
		window:   DefaultDebounceWindow,
		logger:   slog.Default().With("component", "debouncer"),
		pending:  make(map[string]Event),
		ctx:      ctx,
		cancel:   cancel,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d, nil
}

// Offer records an event and (re)starts the shared debounce timer. A
// later event for the same path overwrites the pending entry. Events
// offered while a flush is running join the next cycle, which starts
// immediately after the current one.
func (d *Debouncer) Offer(event Event) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.ctx.Err() != nil {
		return
	}
	d.pending[event.Path] = event

	if d.flushing {
		// flush schedules the next cycle when it drains the map again
		return
	}
	if !d.armed {
		d.armed = true
		d.idle.Add(1)
	}
	if d.timer == nil {
		d.timer = time.AfterFunc(d.window, d.flush)
	} else {
		// Resetting a timer whose AfterFunc already fired re-runs flush;
		// the armed flag makes that second invocation a no-op.
		d.timer.Reset(d.window)
	}
}

// flush drains the pending map atomically and applies each entry. Entries
// arriving mid-flush trigger a new cycle immediately afterwards. Only the
// invocation that claims the armed flag does any work, so a timer reset
// racing with expiry cannot flush the same burst twice.
func (d *Debouncer) flush() {
	d.mu.Lock()
	if !d.armed {
		d.mu.Unlock()
		return
	}
	d.armed = false
	d.flushing = true
	for len(d.pending) > 0 && d.ctx.Err() == nil {
		batch := d.pending
		d.pending = make(map[string]Event)
		d.mu.Unlock()

		for _, event := range batch {
			if d.ctx.Err() != nil {
				break
			}
			d.apply(event)
		}

		// events landed mid-flush loop around for another cycle right away
		d.mu.Lock()
	}
	d.flushing = false
	d.timer = nil
	d.mu.Unlock()
	d.idle.Done()
}

// apply re-indexes or removes one path. Create and modify re-match the
// single path against its spec and re-run the pipeline; stale segments of
// the same document are removed as part of re-ingestion. Delete removes
// every segment sharing the file's doc key without re-ingesting.
func (d *Debouncer) apply(event Event) {
	switch event.Kind {
	case EventDelete:
		if err := d.ingestor.RemoveFile(d.ctx, event.Path); err != nil {
			d.logger.Error("failed to remove deleted file", "file", event.Path, "err", err)
		}
	case EventCreate, EventModify:
		file, ok := event.Spec.MatchFile(event.Path)
		if !ok {
			return
		}
		// IngestFile records failures in the tracker; nothing further to do
		_ = d.ingestor.IngestFile(d.ctx, event.Spec, file)
	}
}

// Settle blocks until the debouncer has flushed everything pending and
// gone idle. Intended for tests and shutdown.
func (d *Debouncer) Settle() {
	d.idle.Wait()
}

// Close stops the debouncer. Pending entries are dropped; a flush already
// running finishes its current entry first.
func (d *Debouncer) Close() {
	d.cancel()
	d.mu.Lock()
	if d.timer != nil && d.timer.Stop() && d.armed {
		d.armed = false
		d.timer = nil
		d.idle.Done()
	}
	d.pending = make(map[string]Event)
	d.mu.Unlock()
	d.idle.Wait()
}
