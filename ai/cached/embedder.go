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

// Package cached wraps an ai.Embedder with a persistent write-through cache.
//
// Vectors are stored under core.EmbeddingID(model, text), so the same text
// embedded by two models never shares an entry. A batch call looks up every
// text, sends only the misses to the inner embedder in one call and stores
// the new vectors before returning results in input order. WithAdmit limits
// which texts are written, so ad hoc query text can be embedded without
// being persisted.
package cached

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/poiesic/diseasekb/ai"
	"github.com/poiesic/diseasekb/core"
	"github.com/poiesic/diseasekb/storage"
)

var (
	// ErrEmbedderRequired is returned when no inner embedder is given.
	ErrEmbedderRequired = errors.New("inner embedder is required")
	// ErrRepositoryRequired is returned when no repository is given.
	ErrRepositoryRequired = errors.New("embedding repository is required")
	// ErrModelRequired is returned when the model name is empty.
	ErrModelRequired = errors.New("model name is required")
)

// Embedder is an ai.Embedder backed by an EmbeddingRepository.
type Embedder struct {
	inner  ai.Embedder
	repo   storage.EmbeddingRepository
	model  string
	admit  func(text string) bool
	logger *slog.Logger
}

// Option configures an Embedder.
type Option func(*Embedder)

// WithLogger sets the logger. A nil logger uses slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(e *Embedder) {
		if logger == nil {
			logger = slog.Default()
		}
		e.logger = logger.With("component", "embedding-cache", "model", e.model)
	}
}

// WithAdmit sets the policy deciding which missed texts are stored.
// Texts it rejects are still embedded and returned but never written.
// A nil policy stores every text.
func WithAdmit(admit func(text string) bool) Option {
	return func(e *Embedder) {
		e.admit = admit
	}
}

// NewEmbedder wraps inner. Cache keys are scoped by model.
func NewEmbedder(inner ai.Embedder, repo storage.EmbeddingRepository, model string, opts ...Option) (*Embedder, error) {
	if inner == nil {
		return nil, ErrEmbedderRequired
	}
	if repo == nil {
		return nil, ErrRepositoryRequired
	}
	if model == "" {
		return nil, ErrModelRequired
	}
	e := &Embedder{
		inner: inner,
		repo:  repo,
		model: model,
	}
	WithLogger(slog.Default())(e)
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// ModelName returns the model the cache is scoped to.
func (e *Embedder) ModelName() string {
	return e.model
}

// EmbedText embeds a single text through the cache.
func (e *Embedder) EmbedText(ctx context.Context, text string) ([]float32, error) {
	vectors, err := e.EmbedTexts(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

// EmbedTexts returns cached vectors where available and embeds the rest in one inner call.
// A failing cache read is logged and treated as a miss; a failing cache write is logged
// and does not fail the call.
func (e *Embedder) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}

	ids := make([]core.ID, len(texts))
	for i, text := range texts {
		ids[i] = core.EmbeddingID(e.model, text)
	}

	hits, err := e.repo.GetEmbeddings(ctx, ids...)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		e.logger.Warn("embedding cache read failed, embedding all texts", "err", err)
		hits = nil
	}

	out := make([][]float32, len(texts))
	var (
		missTexts []string
		missIdx   = make(map[core.ID][]int)
	)
	for i, id := range ids {
		if hit, ok := hits[id]; ok {
			out[i] = hit.Vector
			continue
		}
		if _, queued := missIdx[id]; !queued {
			missTexts = append(missTexts, texts[i])
		}
		missIdx[id] = append(missIdx[id], i)
	}

	e.logger.Debug("embedding cache lookup", "texts", len(texts), "hits", len(texts)-countPositions(missIdx), "misses", len(missTexts))
	if len(missTexts) == 0 {
		return out, nil
	}

	vectors, err := e.inner.EmbedTexts(ctx, missTexts)
	if err != nil {
		return nil, err
	}
	if len(vectors) != len(missTexts) {
		return nil, fmt.Errorf("inner embedder returned %d vectors for %d texts", len(vectors), len(missTexts))
	}

	records := make([]*core.CachedEmbedding, 0, len(missTexts))
	for i, text := range missTexts {
		id := core.EmbeddingID(e.model, text)
		for _, pos := range missIdx[id] {
			out[pos] = vectors[i]
		}
		if e.admit != nil && !e.admit(text) {
			continue
		}
		records = append(records, &core.CachedEmbedding{Id: id, Model: e.model, Text: text, Vector: vectors[i]})
	}
	if len(records) == 0 {
		return out, nil
	}
	if err := e.repo.PutEmbeddings(ctx, records...); err != nil {
		e.logger.Warn("embedding cache write failed", "count", len(records), "err", err)
	}

	return out, nil
}

func countPositions(m map[core.ID][]int) int {
	n := 0
	for _, positions := range m {
		n += len(positions)
	}
	return n
}

var _ ai.Embedder = (*Embedder)(nil)
