package pathspec

import (
	"testing"

	"github.com/poiesic/indexit/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompile(t *testing.T) {
	tests := []struct {
		name string
		spec string
		want []Segment
	}{
		{
			name: "plain literal",
			spec: "/docs/readme.md",
			want: []Segment{{Kind: SegmentLiteral, Value: "/docs/readme.md"}},
		},
		{
			name: "single glob",
			spec: "/docs/*.md",
			want: []Segment{
				{Kind: SegmentLiteral, Value: "/docs/"},
				{Kind: SegmentGlob},
				{Kind: SegmentLiteral, Value: ".md"},
			},
		},
		{
			name: "recursive glob",
			spec: "/src/**/main.go",
			want: []Segment{
				{Kind: SegmentLiteral, Value: "/src/"},
				{Kind: SegmentGlobRecursive},
				{Kind: SegmentLiteral, Value: "/main.go"},
			},
		},
		{
			name: "named capture",
			spec: "/docs/(?<version>v[0-9]+)/guide.md",
			want: []Segment{
				{Kind: SegmentLiteral, Value: "/docs/"},
				{Kind: SegmentCapture, Name: "version", Value: "v[0-9]+"},
				{Kind: SegmentLiteral, Value: "/guide.md"},
			},
		},
		{
			name: "capture with nested group",
			spec: "(?<lang>go|(?:py|rb))/src",
			want: []Segment{
				{Kind: SegmentCapture, Name: "lang", Value: "go|(?:py|rb)"},
				{Kind: SegmentLiteral, Value: "/src"},
			},
		},
		{
			name: "capture with escaped paren",
			spec: "/d/(?<x>a\\)b)",
			want: []Segment{
				{Kind: SegmentLiteral, Value: "/d/"},
				{Kind: SegmentCapture, Name: "x", Value: "a\\)b"},
			},
		},
		{
			name: "capture with parens in character class",
			spec: "/logs/(?<v>[()]+)/out.md",
			want: []Segment{
				{Kind: SegmentLiteral, Value: "/logs/"},
				{Kind: SegmentCapture, Name: "v", Value: "[()]+"},
				{Kind: SegmentLiteral, Value: "/out.md"},
			},
		},
		{
			name: "capture with escaped bracket outside class",
			spec: "/d/(?<x>\\[a)/f",
			want: []Segment{
				{Kind: SegmentLiteral, Value: "/d/"},
				{Kind: SegmentCapture, Name: "x", Value: "\\[a"},
				{Kind: SegmentLiteral, Value: "/f"},
			},
		},
		{
			name: "adjacent globs",
			spec: "**/*",
			want: []Segment{
				{Kind: SegmentGlobRecursive},
				{Kind: SegmentLiteral, Value: "/"},
				{Kind: SegmentGlob},
			},
		},
		{
			name: "open paren without capture marker stays literal",
			spec: "/d/(x)/f",
			want: []Segment{{Kind: SegmentLiteral, Value: "/d/(x)/f"}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Compile(tt.spec)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCompile_Errors(t *testing.T) {
	tests := []struct {
		name string
		spec string
	}{
		{name: "empty spec", spec: ""},
		{name: "empty capture name", spec: "/docs/(?<>v[0-9]+)/x"},
		{name: "unterminated capture name", spec: "/docs/(?<version"},
		{name: "unterminated capture body", spec: "/docs/(?<version>v[0-9]+"},
		{name: "malformed capture regex", spec: "/docs/(?<version>v[0-9+)/x"},
		{name: "duplicate capture name", spec: "/(?<v>a)/(?<v>b)"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Compile(tt.spec)
			assert.ErrorIs(t, err, core.ErrSpecSyntax)
		})
	}
}

func TestBasePath(t *testing.T) {
	tests := []struct {
		name string
		spec string
		want string
	}{
		{name: "all literal", spec: "/docs/readme.md", want: "/docs/readme.md"},
		{name: "stops at glob", spec: "/docs/*.md", want: "/docs/"},
		{name: "stops at recursive glob", spec: "/src/**/main.go", want: "/src/"},
		{name: "stops at capture", spec: "/docs/(?<version>v[0-9]+)/guide.md", want: "/docs/"},
		{name: "leading glob", spec: "*/readme.md", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			segments, err := Compile(tt.spec)
			require.NoError(t, err)
			assert.Equal(t, tt.want, BasePath(segments))
		})
	}
}

func TestCompileSpec_RejectsBadName(t *testing.T) {
	// Individually valid tokens, but Go's regexp engine rejects the
	// composed named group.
	_, err := CompileSpec("/d/(?<bad-name>x)", "whole-document", nil, nil)
	assert.ErrorIs(t, err, core.ErrSpecSyntax)
}
