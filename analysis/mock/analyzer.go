package mock

import (
	"context"
	"sync"

	"github.com/poiesic/indexit/analysis"
)

// MockAnalyzer is a test double for analysis.Analyzer.
// It allows custom behavior injection via a function field and serves
// canned elements per path otherwise.
type MockAnalyzer struct {
	// AnalyzeFunc is called by Analyze if set.
	AnalyzeFunc func(ctx context.Context, path string) ([]analysis.Element, error)

	// Elements maps a file path to the elements returned for it.
	Elements map[string][]analysis.Element

	mu        sync.Mutex
	callCount int
}

// NewMockAnalyzer creates a mock analyzer with no canned elements.
func NewMockAnalyzer() *MockAnalyzer {
	return &MockAnalyzer{Elements: make(map[string][]analysis.Element)}
}

// Analyze returns the canned elements for path, or delegates to AnalyzeFunc.
func (m *MockAnalyzer) Analyze(ctx context.Context, path string) ([]analysis.Element, error) {
	m.mu.Lock()
	m.callCount++
	m.mu.Unlock()

	if m.AnalyzeFunc != nil {
		return m.AnalyzeFunc(ctx, path)
	}
	return m.Elements[path], nil
}

// CallCount returns the number of Analyze invocations.
func (m *MockAnalyzer) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.callCount
}
