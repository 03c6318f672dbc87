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

import "github.com/poiesic/diseasekb/ai"

// MockProvider is a test double for ai.AIProvider.
// It aggregates independent search and ranking mock embedders.
type MockProvider struct {
	embedder *MockEmbedder
	ranking  *MockEmbedder
	closed   bool
}

// NewMockProvider creates a new mock provider with default mock services.
//
// Returns ai.AIProvider interface for consistency with production constructors.
// Use GetMockEmbedder()/GetMockRankingEmbedder() to access concrete types for test assertions.
func NewMockProvider() ai.AIProvider {
	ranking := NewMockEmbedder()
	ranking.Model = "mock-ranking"
	return &MockProvider{
		embedder: NewMockEmbedder(),
		ranking:  ranking,
	}
}

// NewMockProviderWithServices creates a mock provider with custom mock embedders.
// A nil ranking embedder reuses the search embedder.
func NewMockProviderWithServices(embedder, ranking *MockEmbedder) *MockProvider {
	if ranking == nil {
		ranking = embedder
	}
	return &MockProvider{
		embedder: embedder,
		ranking:  ranking,
	}
}

// Embedder returns the mock search embedder.
func (p *MockProvider) Embedder() ai.Embedder {
	return p.embedder
}

// RankingEmbedder returns the mock ranking embedder.
func (p *MockProvider) RankingEmbedder() ai.Embedder {
	return p.ranking
}

// Close marks the provider closed.
func (p *MockProvider) Close() error {
	p.closed = true
	return nil
}

// Closed reports whether Close was called.
func (p *MockProvider) Closed() bool {
	return p.closed
}

// GetMockEmbedder returns the underlying search embedder for test assertions.
func (p *MockProvider) GetMockEmbedder() *MockEmbedder {
	return p.embedder
}

// GetMockRankingEmbedder returns the underlying ranking embedder for test assertions.
func (p *MockProvider) GetMockRankingEmbedder() *MockEmbedder {
	return p.ranking
}
