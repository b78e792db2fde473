package mock

import (
	"context"
	"fmt"
	"unicode/utf8"
)

// MockExtractor is a test double for ai.TextExtractor.
// It allows custom behavior injection via function fields.
type MockExtractor struct {
	// ExtractTextFunc is called by ExtractText if set.
	// If nil, returns the content as a string when it is valid UTF-8.
	ExtractTextFunc func(ctx context.Context, content []byte) (string, error)

	callCount int
}

// NewMockExtractor creates a mock extractor with default behavior.
func NewMockExtractor() *MockExtractor {
	return &MockExtractor{}
}

// ExtractText returns the content verbatim for valid UTF-8 input.
func (m *MockExtractor) ExtractText(ctx context.Context, content []byte) (string, error) {
	m.callCount++

	if m.ExtractTextFunc != nil {
		return m.ExtractTextFunc(ctx, content)
	}

	if !utf8.Valid(content) {
		return "", fmt.Errorf("content is not valid UTF-8")
	}
	return string(content), nil
}

// CallCount returns the number of times ExtractText was called.
func (m *MockExtractor) CallCount() int {
	return m.callCount
}

// Reset clears the call count and injected behavior.
func (m *MockExtractor) Reset() {
	m.callCount = 0
	m.ExtractTextFunc = nil
}
