package strategy

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/poiesic/indexit/core"
)

// namespaceDecl is a parsed declaration header: the declared unit name and
// the description attached to it.
type namespaceDecl struct {
	Name        string
	Description string
}

var (
	declRe      = regexp.MustCompile(`^\s*\(?\s*(?:package|namespace|ns|module)\s+([\w./-]+)`)
	inlineDocRe = regexp.MustCompile(`"((?:[^"\\]|\\.)*)"`)
)

// parseNamespaceDoc extracts the declared unit name and its description
// from source-like content. The description is either a quoted string on
// the declaration line or the contiguous comment block immediately above
// it. Missing declaration, name or description is a parse failure.
func parseNamespaceDoc(path, content string) (*namespaceDecl, error) {
	lines := strings.Split(content, "\n")

	declLine := -1
	var name string
	for i, line := range lines {
		if m := declRe.FindStringSubmatch(line); m != nil {
			declLine = i
			name = m[1]
			break
		}
	}
	if declLine < 0 {
		return nil, fmt.Errorf("%w: %s: no namespace declaration found", core.ErrParse, path)
	}

	// Inline doc string after the declared name, e.g. (ns foo "docs")
	rest := lines[declLine][declRe.FindStringIndex(lines[declLine])[1]:]
	if m := inlineDocRe.FindStringSubmatch(rest); m != nil && strings.TrimSpace(m[1]) != "" {
		return &namespaceDecl{Name: name, Description: strings.TrimSpace(m[1])}, nil
	}

	// Otherwise take the comment block directly above the declaration
	var doc []string
	for i := declLine - 1; i >= 0; i-- {
		text, ok := commentText(lines[i])
		if !ok {
			break
		}
		doc = append([]string{text}, doc...)
	}
	description := strings.TrimSpace(strings.Join(doc, " "))
	if description == "" {
		return nil, fmt.Errorf("%w: %s: namespace %q has no description", core.ErrParse, path, name)
	}
	return &namespaceDecl{Name: name, Description: description}, nil
}

// commentText strips the comment marker from a line, reporting whether the
// line is part of a comment block.
func commentText(line string) (string, bool) {
	trimmed := strings.TrimSpace(line)
	for _, marker := range []string{"///", "//", ";;", ";", "#", "/*", "*/", "*", "--"} {
		if strings.HasPrefix(trimmed, marker) {
			return strings.TrimSpace(strings.TrimPrefix(trimmed, marker)), true
		}
	}
	return "", false
}
