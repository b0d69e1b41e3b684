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

package mock

import "github.com/poiesic/fabmatch/ai"

// MockProvider is a test double for ai.AIProvider.
type MockProvider struct {
	embedder     *MockEmbedder
	recommender  *MockRecommender
	intentParser *MockIntentParser
}

// NewMockProvider creates a new mock provider with default mock services.
//
// Returns ai.AIProvider interface for consistency with production constructors.
// Use the GetMock accessors to reach concrete types for test assertions.
func NewMockProvider() ai.AIProvider {
	return NewMockProviderWithServices(NewMockEmbedder(), NewMockRecommender(), NewMockIntentParser())
}

// NewMockProviderWithServices creates a mock provider with custom mock services.
func NewMockProviderWithServices(embedder *MockEmbedder, recommender *MockRecommender, parser *MockIntentParser) *MockProvider {
	return &MockProvider{
		embedder:     embedder,
		recommender:  recommender,
		intentParser: parser,
	}
}

// Embedder returns the mock embedder.
func (p *MockProvider) Embedder() ai.Embedder {
	return p.embedder
}

// Recommender returns the mock recommender.
func (p *MockProvider) Recommender() ai.Recommender {
	return p.recommender
}

// IntentParser returns the mock intent parser.
func (p *MockProvider) IntentParser() ai.IntentParser {
	return p.intentParser
}

// Close is a no-op for mock provider.
func (p *MockProvider) Close() error {
	return nil
}

// GetMockEmbedder returns the underlying mock embedder.
func (p *MockProvider) GetMockEmbedder() *MockEmbedder {
	return p.embedder
}

// GetMockRecommender returns the underlying mock recommender.
func (p *MockProvider) GetMockRecommender() *MockRecommender {
	return p.recommender
}

// GetMockIntentParser returns the underlying mock intent parser.
func (p *MockProvider) GetMockIntentParser() *MockIntentParser {
	return p.intentParser
}
