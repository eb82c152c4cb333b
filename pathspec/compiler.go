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


package pathspec

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/poiesic/indexit/core"
)

// SegmentKind identifies the token class of one parsed spec segment.
type SegmentKind int

const (
	// SegmentLiteral is a run of characters matched verbatim.
	SegmentLiteral SegmentKind = iota + 1
	// SegmentGlob matches any characters within one path level.
	SegmentGlob
	// SegmentGlobRecursive matches any characters across path levels.
	SegmentGlobRecursive
	// SegmentCapture is a named, regex-constrained component whose matched
	// text becomes metadata.
	SegmentCapture
)

// Segment is one parsed token of a path spec.
type Segment struct {
	Kind  SegmentKind
	Value string // Literal text, or the capture's regex source
	Name  string // Capture name, empty for other kinds
}

const captureOpen = "(?<"

// Compile parses a path spec into an ordered token sequence.
//
// The scanner moves left to right, choosing the first matching token class
// in priority order: named capture, recursive glob, single-level glob,
// literal run. Capture regexes are compiled immediately so a malformed
// regex fails here rather than at match time. Capture names must be
// non-empty and unique within one spec.
func Compile(path string) ([]Segment, error) {
	if path == "" {
		return nil, fmt.Errorf("%w: empty spec", core.ErrSpecSyntax)
	}

	var segments []Segment
	names := make(map[string]bool)

	for i := 0; i < len(path); {
		switch {
		case strings.HasPrefix(path[i:], captureOpen):
			seg, next, err := scanCapture(path, i)
			if err != nil {
				return nil, err
			}
			if names[seg.Name] {
				return nil, fmt.Errorf("%w: duplicate capture name %q", core.ErrSpecSyntax, seg.Name)
			}
			names[seg.Name] = true
			segments = append(segments, seg)
			i = next

		case strings.HasPrefix(path[i:], "**"):
			segments = append(segments, Segment{Kind: SegmentGlobRecursive})
			i += 2

		case path[i] == '*':
			segments = append(segments, Segment{Kind: SegmentGlob})
			i++

		default:
			lit, next := scanLiteral(path, i)
			segments = append(segments, Segment{Kind: SegmentLiteral, Value: lit})
			i = next
		}
	}

	return segments, nil
}

// BasePath returns the concatenation of the leading run of literal
// segments. It is the filesystem walk root for matching and the
// subscription root for watching.
func BasePath(segments []Segment) string {
	var b strings.Builder
	for _, seg := range segments {
		if seg.Kind != SegmentLiteral {
			break
		}
		b.WriteString(seg.Value)
	}
	return b.String()
}

// scanCapture parses a "(?<name>regex)" token starting at position i.
// Returns the segment and the position just past the closing paren.
func scanCapture(path string, i int) (Segment, int, error) {
	rest := path[i+len(captureOpen):]

	gt := strings.IndexByte(rest, '>')
	if gt < 0 {
		return Segment{}, 0, fmt.Errorf("%w: unterminated capture name at offset %d", core.ErrSpecSyntax, i)
	}
	name := rest[:gt]
	if name == "" {
		return Segment{}, 0, fmt.Errorf("%w: empty capture name at offset %d", core.ErrSpecSyntax, i)
	}

	// Scan the inner regex up to the paren matching the capture's opener,
	// honoring backslash escapes, nested groups and character classes; a
	// paren inside [...] is an ordinary class member.
	body := rest[gt+1:]
	depth := 1
	inClass := false
	end := -1
	for j := 0; j < len(body); j++ {
		if body[j] == '\\' {
			j++ // skip escaped char
			continue
		}
		if inClass {
			if body[j] == ']' {
				inClass = false
			}
			continue
		}
		switch body[j] {
		case '[':
			inClass = true
		case '(':
			depth++
		case ')':
			depth--
			if depth == 0 {
				end = j
			}
		}
		if end >= 0 {
			break
		}
	}
	if end < 0 {
		return Segment{}, 0, fmt.Errorf("%w: unterminated capture %q at offset %d", core.ErrSpecSyntax, name, i)
	}

	expr := body[:end]
	if _, err := regexp.Compile(expr); err != nil {
		return Segment{}, 0, fmt.Errorf("%w: capture %q: %v", core.ErrSpecSyntax, name, err)
	}

	consumed := len(captureOpen) + gt + 1 + end + 1
	return Segment{Kind: SegmentCapture, Name: name, Value: expr}, i + consumed, nil
}

// scanLiteral consumes a literal run extending to the next special token
// or end of input.
func scanLiteral(path string, i int) (string, int) {
	for j := i; j < len(path); j++ {
		if path[j] == '*' || strings.HasPrefix(path[j:], captureOpen) {
			return path[i:j], j
		}
	}
	return path[i:], len(path)
}
