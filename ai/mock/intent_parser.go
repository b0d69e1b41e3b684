package mock

import (
	"context"
	"sync/atomic"

	"github.com/poiesic/fabmatch/core"
)

// MockIntentParser is a test double for ai.IntentParser.
type MockIntentParser struct {
	// ParseIntentFunc is called by ParseIntent if set.
	ParseIntentFunc func(ctx context.Context, query string) (*core.Intent, error)

	callCount atomic.Int64
}

// NewMockIntentParser creates a mock intent parser with default behavior.
func NewMockIntentParser() *MockIntentParser {
	return &MockIntentParser{}
}

// ParseIntent returns a simple search intent for query.
func (m *MockIntentParser) ParseIntent(ctx context.Context, query string) (*core.Intent, error) {
	m.callCount.Add(1)

	if m.ParseIntentFunc != nil {
		return m.ParseIntentFunc(ctx, query)
	}
	return &core.Intent{
		Type:        core.QueryTypeSimple,
		Action:      core.ActionSearch,
		SearchQuery: query,
		Confidence:  0.9,
	}, nil
}

// CallCount returns the number of times ParseIntent was called.
func (m *MockIntentParser) CallCount() int {
	return int(m.callCount.Load())
}

// Reset clears the call count and custom function.
func (m *MockIntentParser) Reset() {
	m.callCount.Store(0)
	m.ParseIntentFunc = nil
}
