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

package lexical

import (
	"github.com/poiesic/diseasekb/ai"
)

// Provider implements ai.AIProvider with a single lexical embedder serving
// both search and ranking.
type Provider struct {
	embedder *Embedder
}

// NewProvider creates a lexical provider sized by config.Dimension.
// Model names in the config are ignored.
func NewProvider(config *ai.Config) (ai.AIProvider, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	embedder, err := NewEmbedder(config.Dimension)
	if err != nil {
		return nil, err
	}
	return &Provider{embedder: embedder}, nil
}

// Embedder returns the search embedder.
func (p *Provider) Embedder() ai.Embedder {
	return p.embedder
}

// RankingEmbedder returns the same embedder as Embedder.
func (p *Provider) RankingEmbedder() ai.Embedder {
	return p.embedder
}

// Close is a no-op.
func (p *Provider) Close() error {
	return nil
}
