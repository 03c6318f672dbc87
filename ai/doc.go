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

// Package ai provides abstractions for the embedding services used by diseasekb.
//
// The package defines the narrow interfaces the retrieval engine depends on so
// that the knowledge base and precaution ranker never see a concrete model:
//
//   - Embedder: maps text to a fixed-length vector
//   - AIProvider: owns a search embedder and a ranking embedder
//
// # Implementation Packages
//
//   - ai/hugot: local sentence-transformer inference (default)
//   - ai/openai: OpenAI-compatible embedding endpoints via langchaingo
//   - ai/lexical: deterministic hashed bag-of-words vectors, no model files
//   - ai/cached: write-through embedding cache around any Embedder
//   - ai/mock: test doubles with injectable behavior
//
// Public constructors return interface types. Mock constructors return concrete
// types so tests can inject behavior and assert on call counts.
//
// # Usage Example
//
//	cfg := ai.NewConfig(ai.WithModelDir("./models"))
//	if err := cfg.Validate(); err != nil {
//	    log.Fatal(err)
//	}
//	provider, err := hugot.NewProvider(cfg)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer provider.Close()
//
//	vectors, err := provider.Embedder().EmbedTexts(ctx, []string{"fever", "cough"})
package ai
