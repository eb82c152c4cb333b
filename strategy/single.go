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
	"maps"

	"github.com/poiesic/indexit/core"
)

// EmbedTextFunc selects the text a single-segment strategy embeds.
type EmbedTextFunc func(path, content string) (string, error)

// StoreContentFunc selects the payload a single-segment strategy stores.
type StoreContentFunc func(path, content string) string

// SingleSegment produces exactly one descriptor per file by combining an
// independent embed-text selector with a store-content selector. The
// segment ID equals the file ID.
type SingleSegment struct {
	embed EmbedTextFunc
	store StoreContentFunc
}

// NewSingleSegment creates a composable single-segment strategy.
func NewSingleSegment(embed EmbedTextFunc, store StoreContentFunc) *SingleSegment {
	return &SingleSegment{embed: embed, store: store}
}

func (s *SingleSegment) Process(ctx context.Context, path, content string, metadata map[string]string) ([]*core.SegmentDescriptor, error) {
	embedText, err := s.embed(path, content)
	if err != nil {
		return nil, err
	}
	return []*core.SegmentDescriptor{{
		FileID:    path,
		SegmentID: path,
		EmbedText: embedText,
		Content:   s.store(path, content),
		Metadata:  maps.Clone(metadata),
	}}, nil
}

// NewWholeDocument creates the whole-document strategy: the full content
// is both embedded and stored.
func NewWholeDocument() *SingleSegment {
	return NewSingleSegment(
		func(_, content string) (string, error) { return content, nil },
		func(_, content string) string { return content },
	)
}

// NewFilePath creates the file-path strategy: the full content is embedded
// for recall, but only the path string is stored.
func NewFilePath() *SingleSegment {
	return NewSingleSegment(
		func(_, content string) (string, error) { return content, nil },
		func(path, _ string) string { return path },
	)
}

// NewNamespaceDoc creates the namespace-doc strategy: a declaration header
// is parsed out of the content, its description is embedded, and the full
// content is stored.
func NewNamespaceDoc() *SingleSegment {
	return NewSingleSegment(
		func(path, content string) (string, error) {
			decl, err := parseNamespaceDoc(path, content)
			if err != nil {
				return "", err
			}
			return decl.Name + ": " + decl.Description, nil
		},
		func(_, content string) string { return content },
	)
}
