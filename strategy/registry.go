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


package strategy

import (
	"context"
	"fmt"
	"sync"

	"github.com/poiesic/indexit/analysis"
	"github.com/poiesic/indexit/core"
)

// Built-in strategy tags.
const (
	TagWholeDocument = "whole-document"
	TagNamespaceDoc  = "namespace-doc"
	TagFilePath      = "file-path"
	TagChunked       = "chunked"
	TagCodeAnalysis  = "code-analysis"
)

// Strategy converts one file's content into segment descriptors.
type Strategy interface {
	Process(ctx context.Context, path, content string, metadata map[string]string) ([]*core.SegmentDescriptor, error)
}

// Factory builds a configured strategy instance from path-spec options.
// Invalid options return core.ErrConfig.
type Factory func(options map[string]string) (Strategy, error)

// Registry maps strategy tags to factories. Strategies register once at
// startup; dispatch is purely by tag lookup.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
}

// NewRegistry creates an empty strategy registry.
func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]Factory)}
}

// NewDefaultRegistry creates a registry with all built-in strategies.
// The code-analysis strategy is registered only when analyzer is non-nil.
func NewDefaultRegistry(analyzer analysis.Analyzer) *Registry {
	r := NewRegistry()
	r.Register(TagWholeDocument, func(map[string]string) (Strategy, error) {
		return NewWholeDocument(), nil
	})
	r.Register(TagNamespaceDoc, func(map[string]string) (Strategy, error) {
		return NewNamespaceDoc(), nil
	})
	r.Register(TagFilePath, func(map[string]string) (Strategy, error) {
		return NewFilePath(), nil
	})
	r.Register(TagChunked, func(options map[string]string) (Strategy, error) {
		return NewChunked(options)
	})
	if analyzer != nil {
		r.Register(TagCodeAnalysis, func(options map[string]string) (Strategy, error) {
			return NewCodeAnalysis(analyzer, options)
		})
	}
	return r
}

// Register adds a strategy factory under a tag, replacing any previous
// registration for the same tag.
func (r *Registry) Register(tag string, factory Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[tag] = factory
}

// Tags returns the registered strategy tags.
func (r *Registry) Tags() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	tags := make([]string, 0, len(r.factories))
	for tag := range r.factories {
		tags = append(tags, tag)
	}
	return tags
}

// Resolve looks up a tag and configures an instance with the given
// options. Unregistered tags return core.ErrUnknownStrategy; option
// failures return core.ErrConfig. The returned strategy stamps and
// validates every descriptor it produces.
func (r *Registry) Resolve(tag string, options map[string]string) (Strategy, error) {
	r.mu.RLock()
	factory, ok := r.factories[tag]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %q", core.ErrUnknownStrategy, tag)
	}

	s, err := factory(options)
	if err != nil {
		return nil, err
	}
	return &validating{inner: s}, nil
}

// Process resolves a tag and runs it on one file's content in a single
// call. Callers processing many files should Resolve once instead.
func (r *Registry) Process(ctx context.Context, tag string, options map[string]string, path, content string, metadata map[string]string) ([]*core.SegmentDescriptor, error) {
	s, err := r.Resolve(tag, options)
	if err != nil {
		return nil, err
	}
	return s.Process(ctx, path, content, metadata)
}

// validating wraps a strategy so descriptor stamping and validation happen
// centrally, regardless of which strategy produced the descriptor.
type validating struct {
	inner Strategy
}

func (v *validating) Process(ctx context.Context, path, content string, metadata map[string]string) ([]*core.SegmentDescriptor, error) {
	descriptors, err := v.inner.Process(ctx, path, content, metadata)
	if err != nil {
		return nil, err
	}
	for _, d := range descriptors {
		core.StampMetadata(d)
		if err := core.ValidateDescriptor(d); err != nil {
			return nil, err
		}
	}
	return descriptors, nil
}
