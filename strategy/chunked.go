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
	"maps"
	"strconv"

	"github.com/poiesic/indexit/core"
)

// Default chunking parameters, in runes.
const (
	DefaultChunkSize    = 512
	DefaultChunkOverlap = 100
)

// Metadata keys attached to every chunk.
const (
	MetaChunkIndex  = "chunk_index"
	MetaChunkCount  = "chunk_count"
	MetaChunkOffset = "chunk_offset"
)

// Chunked splits content into overlapping windows and produces one
// descriptor per window. Offsets and sizes are in runes so multi-byte
// content never splits inside a character.
type Chunked struct {
	size    int
	overlap int
}

// NewChunked creates a chunked strategy from options chunk_size and
// chunk_overlap. Both must be positive and overlap must be smaller than
// size.
func NewChunked(options map[string]string) (*Chunked, error) {
	size, err := intOption(options, "chunk_size", DefaultChunkSize)
	if err != nil {
		return nil, err
	}
	overlap, err := intOption(options, "chunk_overlap", DefaultChunkOverlap)
	if err != nil {
		return nil, err
	}

	if size <= 0 {
		return nil, fmt.Errorf("%w: chunk_size must be positive, got %d", core.ErrConfig, size)
	}
	if overlap <= 0 {
		return nil, fmt.Errorf("%w: chunk_overlap must be positive, got %d", core.ErrConfig, overlap)
	}
	if overlap >= size {
		return nil, fmt.Errorf("%w: chunk_overlap (%d) must be smaller than chunk_size (%d)", core.ErrConfig, overlap, size)
	}
	return &Chunked{size: size, overlap: overlap}, nil
}

func (c *Chunked) Process(ctx context.Context, path, content string, metadata map[string]string) ([]*core.SegmentDescriptor, error) {
	runes := []rune(content)
	stride := c.size - c.overlap

	// Each chunk starts exactly stride runes after the previous one, so
	// offset(n+1) = offset(n) + (len(chunk n) - overlap) for full chunks.
	var offsets []int
	for off := 0; off < len(runes); off += stride {
		offsets = append(offsets, off)
	}
	count := len(offsets)

	descriptors := make([]*core.SegmentDescriptor, 0, count)
	for i, off := range offsets {
		end := off + c.size
		if end > len(runes) {
			end = len(runes)
		}
		text := string(runes[off:end])

		meta := maps.Clone(metadata)
		if meta == nil {
			meta = make(map[string]string, 3)
		}
		meta[MetaChunkIndex] = strconv.Itoa(i)
		meta[MetaChunkCount] = strconv.Itoa(count)
		meta[MetaChunkOffset] = strconv.Itoa(off)

		descriptors = append(descriptors, &core.SegmentDescriptor{
			FileID:    path,
			SegmentID: core.SegmentKey(path, i),
			EmbedText: text,
			Content:   text,
			Metadata:  meta,
		})
	}
	return descriptors, nil
}
