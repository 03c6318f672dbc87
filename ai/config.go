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

package ai

import (
	"fmt"
	"strings"

	"github.com/poiesic/diseasekb/core"
)

// Backend selects the embedding implementation.
type Backend string

const (
	// BackendHugot runs sentence-transformer models locally through hugot.
	BackendHugot Backend = "hugot"
	// BackendOpenAI calls an OpenAI-compatible embeddings endpoint.
	BackendOpenAI Backend = "openai"
	// BackendLexical uses the dependency-free hashed bag-of-words embedder.
	BackendLexical Backend = "lexical"
)

// Config holds configuration for embedding providers.
type Config struct {
	// Backend selects which provider implementation is built.
	// Default: hugot
	Backend Backend

	// EmbeddingHost is the base URL for the embedding service API.
	// Only used by the openai backend.
	// Example: "http://localhost:11434/v1" for local OpenAI-compatible server
	EmbeddingHost string

	// EmbeddingModel is the model used to embed disease descriptions and queries.
	EmbeddingModel string

	// RankingModel is the model used to re-rank precautions against a query.
	// It may differ from EmbeddingModel; scores from the two are never compared.
	RankingModel string

	// ModelDir is the directory holding downloaded ONNX models for the hugot backend.
	// Each model lives in a subdirectory named after the last path element of the model id.
	ModelDir string

	// Dimension is the vector length produced by the lexical backend.
	Dimension int
}

// ConfigOption is a functional option for configuring a Config.
type ConfigOption func(*Config)

// WithBackend sets the provider backend.
func WithBackend(backend Backend) ConfigOption {
	return func(c *Config) {
		c.Backend = backend
	}
}

// WithEmbeddingHost sets the embedding service host URL.
func WithEmbeddingHost(host string) ConfigOption {
	return func(c *Config) {
		c.EmbeddingHost = host
	}
}

// WithEmbeddingModel sets the search embedding model identifier.
func WithEmbeddingModel(model string) ConfigOption {
	return func(c *Config) {
		c.EmbeddingModel = model
	}
}

// WithRankingModel sets the precaution ranking model identifier.
func WithRankingModel(model string) ConfigOption {
	return func(c *Config) {
		c.RankingModel = model
	}
}

// WithModelDir sets the local model directory.
func WithModelDir(dir string) ConfigOption {
	return func(c *Config) {
		c.ModelDir = dir
	}
}

// WithDimension sets the lexical embedding dimension.
func WithDimension(dim int) ConfigOption {
	return func(c *Config) {
		c.Dimension = dim
	}
}

// DefaultConfig returns a Config that runs the MiniLM sentence-transformers locally.
func DefaultConfig() *Config {
	return &Config{
		Backend:        BackendHugot,
		EmbeddingHost:  "http://localhost:11434/v1",
		EmbeddingModel: "sentence-transformers/all-MiniLM-L12-v2",
		RankingModel:   "sentence-transformers/all-MiniLM-L6-v2",
		ModelDir:       "models",
		Dimension:      384,
	}
}

// NewConfig creates a Config with the default values and applies the provided options.
//
// Example:
//
//	cfg := NewConfig(
//	    WithBackend(BackendOpenAI),
//	    WithEmbeddingHost("http://localhost:11434"),
//	    WithEmbeddingModel("all-minilm"),
//	)
func NewConfig(opts ...ConfigOption) *Config {
	cfg := DefaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}

// Normalize ensures the configuration is in a canonical form.
// The backend name is lower-cased and, for the openai backend, the /v1 suffix
// required by OpenAI-compatible APIs (Ollama, LocalAI, vLLM) is added when missing.
func (c *Config) Normalize() {
	c.Backend = Backend(strings.ToLower(strings.TrimSpace(string(c.Backend))))
	c.EmbeddingModel = strings.TrimSpace(c.EmbeddingModel)
	c.RankingModel = strings.TrimSpace(c.RankingModel)
	if c.Backend == BackendOpenAI && c.EmbeddingHost != "" && !strings.HasSuffix(c.EmbeddingHost, "/v1") {
		c.EmbeddingHost = strings.TrimSuffix(c.EmbeddingHost, "/") + "/v1"
	}
}

// Validate checks that the configuration is complete for its backend.
// It normalizes the configuration first. Failures wrap core.ErrConfiguration.
func (c *Config) Validate() error {
	c.Normalize()

	if c.EmbeddingModel == "" {
		return fmt.Errorf("%w: ai config: EmbeddingModel is required", core.ErrConfiguration)
	}
	if c.RankingModel == "" {
		return fmt.Errorf("%w: ai config: RankingModel is required", core.ErrConfiguration)
	}
	switch c.Backend {
	case BackendHugot:
		if c.ModelDir == "" {
			return fmt.Errorf("%w: ai config: ModelDir is required for the hugot backend", core.ErrConfiguration)
		}
	case BackendOpenAI:
		if c.EmbeddingHost == "" {
			return fmt.Errorf("%w: ai config: EmbeddingHost is required for the openai backend", core.ErrConfiguration)
		}
	case BackendLexical:
		if c.Dimension <= 0 {
			return fmt.Errorf("%w: ai config: Dimension must be positive for the lexical backend", core.ErrConfiguration)
		}
	default:
		return fmt.Errorf("%w: ai config: unknown backend %q", core.ErrConfiguration, c.Backend)
	}
	return nil
}
