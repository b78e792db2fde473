package mock

import (
	"context"
	"fmt"

	"github.com/poiesic/ragserve/core"
)

// MockGenerator is a test double for ai.Generator.
// It allows custom behavior injection via function fields.
type MockGenerator struct {
	// CompleteFunc is called by Complete if set.
	// If nil, returns a canned answer echoing the last user message.
	CompleteFunc func(ctx context.Context, messages []core.Message) (string, error)

	callCount int
}

// NewMockGenerator creates a mock generator with default behavior.
func NewMockGenerator() *MockGenerator {
	return &MockGenerator{}
}

// Complete returns a deterministic answer derived from the message sequence.
func (m *MockGenerator) Complete(ctx context.Context, messages []core.Message) (string, error) {
	m.callCount++

	if m.CompleteFunc != nil {
		return m.CompleteFunc(ctx, messages)
	}

	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role == core.RoleUser {
			return fmt.Sprintf("mock answer %d", m.callCount), nil
		}
	}
	return "mock answer", nil
}

// CallCount returns the number of times Complete was called.
func (m *MockGenerator) CallCount() int {
	return m.callCount
}

// Reset clears the call count and injected behavior.
func (m *MockGenerator) Reset() {
	m.callCount = 0
	m.CompleteFunc = nil
}
