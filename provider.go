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

package diseasekb

import (
	"fmt"

	"github.com/poiesic/diseasekb/ai"
	"github.com/poiesic/diseasekb/ai/hugot"
	"github.com/poiesic/diseasekb/ai/lexical"
	"github.com/poiesic/diseasekb/ai/openai"
	"github.com/poiesic/diseasekb/core"
)

// NewProvider builds the embedding provider selected by config.Backend.
func NewProvider(config *ai.Config) (ai.AIProvider, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	switch config.Backend {
	case ai.BackendHugot:
		return hugot.NewProvider(config)
	case ai.BackendOpenAI:
		return openai.NewProvider(config)
	case ai.BackendLexical:
		return lexical.NewProvider(config)
	default:
		return nil, fmt.Errorf("%w: unknown backend %q", core.ErrConfiguration, config.Backend)
	}
}

// ModelNames returns the names the search and ranking embedders of config
// are stored under in the cache.
func ModelNames(config *ai.Config) (search, ranking string) {
	if config.Backend == ai.BackendLexical {
		name := lexical.ModelName(config.Dimension)
		return name, name
	}
	return config.EmbeddingModel, config.RankingModel
}

func modelName(embedder ai.Embedder, fallback string) string {
	if namer, ok := embedder.(ai.ModelNamer); ok {
		if name := namer.ModelName(); name != "" {
			return name
		}
	}
	return fallback
}
