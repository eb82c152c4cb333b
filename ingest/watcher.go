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
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"
	"github.com/poiesic/indexit/pathspec"
)

// Watcher subscribes to filesystem events under each spec's base path and
// forwards them, tagged with their spec, to the debouncer. New directories
// are added to the watch set as they appear. Ordering and deduplication
// are entirely the debouncer's concern.
type Watcher struct {
	watcher   *fsnotify.Watcher
	debouncer *Debouncer
	specs     []*pathspec.CompiledSpec
	logger    *slog.Logger
	ctx       context.Context
	cancel    context.CancelFunc
	done      chan struct{}
}

// NewWatcher creates a watcher feeding the given debouncer for the given
// specs.
func NewWatcher(debouncer *Debouncer, specs []*pathspec.CompiledSpec, logger *slog.Logger) (*Watcher, error) {
	if debouncer == nil {
		return nil, ErrDebouncerRequired
	}
	if logger == nil {
		logger = slog.Default()
	}

	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Watcher{
		watcher:   fsWatcher,
		debouncer: debouncer,
		specs:     specs,
		logger:    logger.With("component", "watcher"),
		ctx:       ctx,
		cancel:    cancel,
		done:      make(chan struct{}),
	}, nil
}

// Start subscribes to every spec's base path and begins forwarding events.
func (w *Watcher) Start() error {
	for _, spec := range w.specs {
		if err := w.addRecursive(spec.BasePath); err != nil {
			w.logger.Warn("could not watch source root", "root", spec.BasePath, "err", err)
		}
	}
	go w.run()
	return nil
}

// addRecursive watches a directory and all its subdirectories. A base path
// naming a single file watches its parent directory.
func (w *Watcher) addRecursive(root string) error {
	info, err := os.Stat(root)
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return w.watcher.Add(filepath.Dir(root))
	}

	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil || !d.IsDir() {
			return nil
		}
		if addErr := w.watcher.Add(path); addErr != nil {
			w.logger.Warn("could not watch directory", "dir", path, "err", addErr)
		}
		return nil
	})
}

// run translates fsnotify events into debouncer events.
func (w *Watcher) run() {
	defer close(w.done)
	for {
		select {
		case <-w.ctx.Done():
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handle(event)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Error("watch error", "err", err)
		}
	}
}

// handle forwards one fsnotify event to the debouncer.
func (w *Watcher) handle(event fsnotify.Event) {
	path := filepath.ToSlash(event.Name)

	// Newly created directories join the watch set so files appearing
	// inside them are seen.
	if event.Op.Has(fsnotify.Create) {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			if err := w.addRecursive(event.Name); err != nil {
				w.logger.Warn("could not watch new directory", "dir", event.Name, "err", err)
			}
			return
		}
	}

	spec := w.specFor(path)
	if spec == nil {
		return
	}

	switch {
	case event.Op.Has(fsnotify.Create):
		w.debouncer.Offer(Event{Kind: EventCreate, Path: path, Spec: spec})
	case event.Op.Has(fsnotify.Write):
		w.debouncer.Offer(Event{Kind: EventModify, Path: path, Spec: spec})
	case event.Op.Has(fsnotify.Remove), event.Op.Has(fsnotify.Rename):
		w.debouncer.Offer(Event{Kind: EventDelete, Path: path, Spec: spec})
	}
}

// specFor finds the spec whose base path contains an event path.
func (w *Watcher) specFor(path string) *pathspec.CompiledSpec {
	for _, spec := range w.specs {
		root := filepath.ToSlash(spec.BasePath)
		if path == root || strings.HasPrefix(path, strings.TrimSuffix(root, "/")+"/") {
			return spec
		}
	}
	return nil
}

// Close stops the watcher.
func (w *Watcher) Close() error {
	w.cancel()
	err := w.watcher.Close()
	<-w.done
	return err
}
