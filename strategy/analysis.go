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
	"encoding/json"
	"fmt"
	"maps"
	"strings"

	"github.com/poiesic/indexit/analysis"
	"github.com/poiesic/indexit/core"
)

// Metadata keys attached to code-analysis segments.
const (
	MetaElementName       = "element_name"
	MetaElementKind       = "element_kind"
	MetaElementVisibility = "element_visibility"
)

var knownKinds = map[analysis.Kind]bool{
	analysis.KindNamespace: true,
	analysis.KindFunction:  true,
	analysis.KindMacro:     true,
	analysis.KindClass:     true,
	analysis.KindMember:    true,
}

// CodeAnalysis runs the static analyzer on a file and produces one
// descriptor per declared element: documentation text (or the qualified
// name when documentation is blank) is embedded, the full element record
// is stored as JSON.
type CodeAnalysis struct {
	analyzer   analysis.Analyzer
	publicOnly bool
	kinds      map[analysis.Kind]bool // nil means all kinds
}

// NewCodeAnalysis creates a code-analysis strategy. Recognized options:
// visibility (all or public-only) and kinds (comma-separated allowlist).
func NewCodeAnalysis(analyzer analysis.Analyzer, options map[string]string) (*CodeAnalysis, error) {
	s := &CodeAnalysis{analyzer: analyzer}

	switch visibility := stringOption(options, "visibility", "all"); visibility {
	case "all":
	case "public-only":
		s.publicOnly = true
	default:
		return nil, fmt.Errorf("%w: visibility must be all or public-only, got %q", core.ErrConfig, visibility)
	}

	if kinds := listOption(options, "kinds"); kinds != nil {
		s.kinds = make(map[analysis.Kind]bool, len(kinds))
		for _, k := range kinds {
			kind := analysis.Kind(k)
			if !knownKinds[kind] {
				return nil, fmt.Errorf("%w: unknown element kind %q", core.ErrConfig, k)
			}
			s.kinds[kind] = true
		}
	}
	return s, nil
}

// elementRecord is the stored JSON shape of one analyzed element.
type elementRecord struct {
	Name       string `json:"name"`
	Namespace  string `json:"namespace,omitempty"`
	Kind       string `json:"kind"`
	Visibility string `json:"visibility"`
	Doc        string `json:"doc,omitempty"`
}

func (s *CodeAnalysis) Process(ctx context.Context, path, content string, metadata map[string]string) ([]*core.SegmentDescriptor, error) {
	elements, err := s.analyzer.Analyze(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", core.ErrAnalysis, path, err)
	}

	var descriptors []*core.SegmentDescriptor
	for _, element := range elements {
		if !s.wants(element) {
			continue
		}

		embedText := strings.TrimSpace(element.Doc)
		if embedText == "" {
			embedText = element.QualifiedName()
		}

		record, err := json.Marshal(elementRecord{
			Name:       element.Name,
			Namespace:  element.Namespace,
			Kind:       string(element.Kind),
			Visibility: string(element.Visibility),
			Doc:        element.Doc,
		})
		if err != nil {
			return nil, fmt.Errorf("%w: %s: encoding element %s: %v", core.ErrAnalysis, path, element.Name, err)
		}

		meta := maps.Clone(metadata)
		if meta == nil {
			meta = make(map[string]string, 3)
		}
		meta[MetaElementName] = element.QualifiedName()
		meta[MetaElementKind] = string(element.Kind)
		meta[MetaElementVisibility] = string(element.Visibility)

		descriptors = append(descriptors, &core.SegmentDescriptor{
			FileID:    path,
			SegmentID: core.SegmentKey(path, len(descriptors)),
			EmbedText: embedText,
			Content:   string(record),
			Metadata:  meta,
		})
	}
	return descriptors, nil
}

// wants reports whether an element passes the configured filters.
func (s *CodeAnalysis) wants(element analysis.Element) bool {
	if s.publicOnly && element.Visibility != analysis.VisibilityPublic {
		return false
	}
	if s.kinds != nil && !s.kinds[element.Kind] {
		return false
	}
	return true
}
