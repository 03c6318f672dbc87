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

// Package hugot runs sentence-transformer embedding models in-process.
//
// Models are ONNX exports (for example sentence-transformers/all-MiniLM-L12-v2)
// stored under ai.Config.ModelDir, one subdirectory per model named after the
// last element of the model id and containing tokenizer.json. Both the search
// and the ranking pipeline live in a single hugot session; inference is
// serialised because the runtime is not thread-safe.
package hugot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"sync"

	"github.com/knights-analytics/hugot"
	"github.com/knights-analytics/hugot/pipelines"
	"github.com/poiesic/diseasekb/ai"
	"github.com/poiesic/diseasekb/core"
)

// batchMax bounds the number of texts passed to one pipeline run.
const batchMax = 32

// ErrClosed is returned by embedders whose provider has been closed.
var ErrClosed = errors.New("hugot provider is closed")

// runtimeState guards the session shared by every pipeline. Inference and
// Close both hold mu, and no pipeline runs once closed is set.
type runtimeState struct {
	mu     sync.Mutex
	closed bool
}

// Provider implements ai.AIProvider with local feature-extraction pipelines.
type Provider struct {
	session  *hugot.Session
	state    *runtimeState
	embedder *Embedder
	ranking  *Embedder
	logger   *slog.Logger
}

// NewProvider resolves both models on disk, opens a session and builds the pipelines.
// Missing model files are reported as core.ErrConfiguration.
func NewProvider(config *ai.Config) (ai.AIProvider, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	searchPath, err := resolveModelPath(config.ModelDir, config.EmbeddingModel)
	if err != nil {
		return nil, err
	}
	rankingPath, err := resolveModelPath(config.ModelDir, config.RankingModel)
	if err != nil {
		return nil, err
	}

	session, err := newSession()
	if err != nil {
		return nil, fmt.Errorf("create hugot session: %w", err)
	}

	p := &Provider{
		session: session,
		state:   &runtimeState{},
		logger:  slog.Default().With("component", "hugot-provider"),
	}

	p.embedder, err = p.newEmbedder("search-embeddings", config.EmbeddingModel, searchPath)
	if err != nil {
		_ = session.Destroy()
		return nil, err
	}
	if rankingPath == searchPath {
		p.ranking = p.embedder
	} else {
		p.ranking, err = p.newEmbedder("ranking-embeddings", config.RankingModel, rankingPath)
		if err != nil {
			_ = session.Destroy()
			return nil, err
		}
	}

	p.logger.Info("loaded embedding models", "search", searchPath, "ranking", rankingPath)
	return p, nil
}

func (p *Provider) newEmbedder(name, model, modelPath string) (*Embedder, error) {
	config := hugot.FeatureExtractionConfig{
		ModelPath: modelPath,
		Name:      name,
		Options: []hugot.FeatureExtractionOption{
			pipelines.WithNormalization(),
		},
	}
	pipeline, err := hugot.NewPipeline(p.session, config)
	if err != nil {
		return nil, fmt.Errorf("create feature extraction pipeline %s: %w", name, err)
	}
	return &Embedder{pipeline: pipeline, model: model, state: p.state}, nil
}

// Embedder returns the search embedder.
func (p *Provider) Embedder() ai.Embedder {
	return p.embedder
}

// RankingEmbedder returns the precaution ranking embedder.
func (p *Provider) RankingEmbedder() ai.Embedder {
	return p.ranking
}

// Close destroys the session and all of its pipelines. Embedders handed out
// earlier return ErrClosed afterwards.
func (p *Provider) Close() error {
	p.state.mu.Lock()
	defer p.state.mu.Unlock()
	if p.state.closed {
		return nil
	}
	p.state.closed = true
	if p.session == nil {
		return nil
	}
	err := p.session.Destroy()
	p.session = nil
	return err
}

// Embedder implements ai.Embedder over one feature-extraction pipeline.
type Embedder struct {
	pipeline *pipelines.FeatureExtractionPipeline
	model    string
	state    *runtimeState
}

// ModelName returns the model id the pipeline was loaded from.
func (e *Embedder) ModelName() string {
	return e.model
}

// EmbedText embeds a single text.
func (e *Embedder) EmbedText(ctx context.Context, text string) ([]float32, error) {
	vectors, err := e.EmbedTexts(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

// EmbedTexts embeds texts in order, running the pipeline in chunks of batchMax.
func (e *Embedder) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += batchMax {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		end := min(start+batchMax, len(texts))

		vectors, err := e.run(texts[start:end])
		if err != nil {
			return nil, err
		}
		out = append(out, vectors...)
	}
	return out, nil
}

func (e *Embedder) run(texts []string) ([][]float32, error) {
	e.state.mu.Lock()
	defer e.state.mu.Unlock()
	if e.state.closed {
		return nil, ErrClosed
	}

	result, err := e.pipeline.RunPipeline(texts)
	if err != nil {
		return nil, fmt.Errorf("run embedding pipeline: %w", err)
	}
	if len(result.Embeddings) != len(texts) {
		return nil, fmt.Errorf("embedding pipeline returned %d vectors for %d texts", len(result.Embeddings), len(texts))
	}
	return result.Embeddings, nil
}

// resolveModelPath maps a model id such as "sentence-transformers/all-MiniLM-L6-v2"
// to modelDir/all-MiniLM-L6-v2 and checks that it holds a tokenizer.
func resolveModelPath(modelDir, model string) (string, error) {
	candidate := filepath.Join(modelDir, path.Base(model))
	if _, err := os.Stat(filepath.Join(candidate, "tokenizer.json")); err != nil {
		return "", fmt.Errorf("%w: model %s not found in %s (expected %s/tokenizer.json)",
			core.ErrConfiguration, model, modelDir, candidate)
	}
	return candidate, nil
}
