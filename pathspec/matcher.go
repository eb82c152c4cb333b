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
	"io/fs"
	"maps"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/poiesic/indexit/core"
)

// CompiledSpec binds a compiled path spec to its processing strategy,
// strategy options and base metadata. It is created once per configuration
// load and immutable thereafter.
type CompiledSpec struct {
	Path     string
	Segments []Segment
	BasePath string
	Strategy string
	Options  map[string]string
	Metadata map[string]string

	pattern      *regexp.Regexp
	captureNames []string
}

// CompileSpec compiles a path spec string and its strategy binding into an
// immutable CompiledSpec. Both the token sequence and the matching pattern
// are built here, so every malformed spec fails at configuration time.
func CompileSpec(specPath, strategy string, options, metadata map[string]string) (*CompiledSpec, error) {
	segments, err := Compile(specPath)
	if err != nil {
		return nil, err
	}

	pattern, err := Pattern(segments)
	if err != nil {
		return nil, err
	}

	names := make([]string, 0)
	for _, seg := range segments {
		if seg.Kind == SegmentCapture {
			names = append(names, seg.Name)
		}
	}

	return &CompiledSpec{
		Path:         specPath,
		Segments:     segments,
		BasePath:     BasePath(segments),
		Strategy:     strategy,
		Options:      options,
		Metadata:     metadata,
		pattern:      pattern,
		captureNames: names,
	}, nil
}

// Pattern builds one anchored matching pattern from compiled segments:
// literals are quoted verbatim, "*" matches any characters except the path
// separator, "**" matches any characters non-greedily, and captures become
// inline named groups reusing the original regex.
func Pattern(segments []Segment) (*regexp.Regexp, error) {
	var b strings.Builder
	b.WriteString("(?s)^")
	for _, seg := range segments {
		switch seg.Kind {
		case SegmentLiteral:
			b.WriteString(regexp.QuoteMeta(seg.Value))
		case SegmentGlob:
			b.WriteString(`[^/]*`)
		case SegmentGlobRecursive:
			b.WriteString(`.*?`)
		case SegmentCapture:
			b.WriteString("(?P<")
			b.WriteString(seg.Name)
			b.WriteString(">")
			b.WriteString(seg.Value)
			b.WriteString(")")
		}
	}
	b.WriteString("$")

	pattern, err := regexp.Compile(b.String())
	if err != nil {
		// Segment regexes compile individually; composition can still fail,
		// e.g. a capture name Go's engine rejects.
		return nil, fmt.Errorf("%w: %v", core.ErrSpecSyntax, err)
	}
	return pattern, nil
}

// Match walks the filesystem from the spec's base path and returns every
// file whose path fully matches the pattern, with capture values merged
// into the base metadata. A base path that resolves to an existing file is
// the sole candidate. Missing roots and empty match sets are not errors.
func (cs *CompiledSpec) Match() ([]core.MatchedFile, error) {
	root := cs.BasePath
	info, err := os.Stat(root)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("%w: stat %s: %v", core.ErrRead, root, err)
	}

	if !info.IsDir() {
		matched := make([]core.MatchedFile, 0, 1)
		if mf, ok := cs.MatchFile(root); ok {
			matched = append(matched, mf)
		}
		return matched, nil
	}

	// Canonicalize the walk root so logically identical paths reached
	// through different OS aliases collapse to one root. Candidate paths
	// are rebuilt against the spec's own base so the literal prefix of the
	// pattern still applies.
	walkRoot, err := filepath.EvalSymlinks(root)
	if err != nil {
		walkRoot = root
	}
	walkRoot, err = filepath.Abs(walkRoot)
	if err != nil {
		walkRoot = root
	}

	var matched []core.MatchedFile
	walkErr := filepath.WalkDir(walkRoot, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil // unreadable entries are skipped, not fatal
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(walkRoot, p)
		if err != nil {
			return nil
		}
		candidate := joinSpecPath(cs.BasePath, filepath.ToSlash(rel))
		if mf, ok := cs.MatchFile(candidate); ok {
			matched = append(matched, mf)
		}
		return nil
	})
	if walkErr != nil {
		return nil, fmt.Errorf("%w: walk %s: %v", core.ErrRead, root, walkErr)
	}

	return matched, nil
}

// MatchFile matches one candidate path against the full pattern. On a
// match it returns the MatchedFile with extracted captures merged into the
// spec's base metadata.
func (cs *CompiledSpec) MatchFile(candidate string) (core.MatchedFile, bool) {
	candidate = filepath.ToSlash(candidate)
	sub := cs.pattern.FindStringSubmatch(candidate)
	if sub == nil {
		return core.MatchedFile{}, false
	}

	captures := make(map[string]string, len(cs.captureNames))
	for _, name := range cs.captureNames {
		idx := cs.pattern.SubexpIndex(name)
		if idx >= 0 && idx < len(sub) {
			captures[name] = sub[idx]
		}
	}

	metadata := make(map[string]string, len(cs.Metadata)+len(captures))
	maps.Copy(metadata, cs.Metadata)
	maps.Copy(metadata, captures)

	return core.MatchedFile{
		Path:     candidate,
		Captures: captures,
		Metadata: metadata,
	}, true
}

// joinSpecPath appends a slash-relative walk path to the spec's base path
// without cleaning away the base as written in the spec.
func joinSpecPath(base, rel string) string {
	if rel == "." || rel == "" {
		return base
	}
	if base == "" {
		return rel
	}
	if strings.HasSuffix(base, "/") {
		return base + rel
	}
	return base + "/" + rel
}
