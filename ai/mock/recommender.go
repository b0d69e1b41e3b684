package mock

import (
	"context"
	"sync/atomic"

	"github.com/poiesic/fabmatch/ai"
	"github.com/poiesic/fabmatch/core"
)

// DefaultRecommendations is how many candidates the default mock recommends.
const DefaultRecommendations = 3

// MockRecommender is a test double for ai.Recommender.
type MockRecommender struct {
	// RecommendFunc is called by Recommend if set.
	RecommendFunc func(ctx context.Context, query string, candidates []*core.Equipment) (*ai.RecommendationResult, error)

	// RecommendStreamFunc is called by RecommendStream if set.
	RecommendStreamFunc func(ctx context.Context, query string, candidates []*core.Equipment) (<-chan ai.StreamChunk, error)

	callCount atomic.Int64
}

// NewMockRecommender creates a mock recommender with default behavior.
func NewMockRecommender() *MockRecommender {
	return &MockRecommender{}
}

// Recommend returns the first candidates in order with a fixed reason.
func (m *MockRecommender) Recommend(ctx context.Context, query string, candidates []*core.Equipment) (*ai.RecommendationResult, error) {
	m.callCount.Add(1)

	if m.RecommendFunc != nil {
		return m.RecommendFunc(ctx, query, candidates)
	}
	if len(candidates) == 0 {
		return &ai.RecommendationResult{Recommendations: []ai.Recommendation{}, Explanation: ai.NoCandidatesExplanation}, nil
	}

	n := min(len(candidates), DefaultRecommendations)
	recs := make([]ai.Recommendation, n)
	for i, e := range candidates[:n] {
		recs[i] = ai.Recommendation{EquipmentID: e.ID, Reason: e.Name + " 추천"}
	}
	return &ai.RecommendationResult{Recommendations: recs, Explanation: "mock: " + query}, nil
}

// RecommendStream emits one chunk per recommended candidate name.
func (m *MockRecommender) RecommendStream(ctx context.Context, query string, candidates []*core.Equipment) (<-chan ai.StreamChunk, error) {
	m.callCount.Add(1)

	if m.RecommendStreamFunc != nil {
		return m.RecommendStreamFunc(ctx, query, candidates)
	}

	n := min(len(candidates), DefaultRecommendations)
	out := make(chan ai.StreamChunk, n+1)
	if n == 0 {
		out <- ai.StreamChunk{Content: ai.NoCandidatesExplanation}
	}
	for _, e := range candidates[:n] {
		out <- ai.StreamChunk{Content: e.Name + "\n"}
	}
	close(out)
	return out, nil
}

// CallCount returns the number of times any method was called.
func (m *MockRecommender) CallCount() int {
	return int(m.callCount.Load())
}

// Reset clears the call count and custom functions.
func (m *MockRecommender) Reset() {
	m.callCount.Store(0)
	m.RecommendFunc = nil
	m.RecommendStreamFunc = nil
}
