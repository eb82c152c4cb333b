package analysis

import "context"

// Kind classifies a declared code element.
type Kind string

const (
	KindNamespace Kind = "namespace"
	KindFunction  Kind = "function"
	KindMacro     Kind = "macro"
	KindClass     Kind = "class"
	KindMember    Kind = "member"
)

// Visibility classifies whether an element is part of a public surface.
type Visibility string

const (
	VisibilityPublic  Visibility = "public"
	VisibilityPrivate Visibility = "private"
)

// Element is one declared code element extracted from a source file.
type Element struct {
	Name       string
	Namespace  string // Enclosing namespace or package, may be empty
	Kind       Kind
	Visibility Visibility
	Doc        string // Documentation text, may be empty
}

// QualifiedName returns the element name prefixed with its namespace.
// Used as embedding text when an element carries no documentation.
func (e Element) QualifiedName() string {
	if e.Namespace == "" {
		return e.Name
	}
	return e.Namespace + "/" + e.Name
}

// Analyzer extracts declared code elements from a source file.
// Implementations must be thread-safe for concurrent use.
type Analyzer interface {
	// Analyze runs static analysis on the file at path and enumerates the
	// elements it declares. Returns an error if the analysis run itself
	// fails; a file that declares nothing yields an empty slice.
	Analyze(ctx context.Context, path string) ([]Element, error)
}
