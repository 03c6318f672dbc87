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

package knowledge

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/poiesic/diseasekb/ai"
	"github.com/poiesic/diseasekb/catalog"
	"github.com/poiesic/diseasekb/core"
	"github.com/poiesic/diseasekb/index"
	"github.com/poiesic/diseasekb/storage"
)

// DefaultTopK is the result count used by SearchDefault.
const DefaultTopK = 3

// snapshot is one immutable build: descriptions[i] is stored at index position i.
type snapshot struct {
	descriptions []core.CanonicalDescription
	index        index.Index
	fingerprint  core.ID
}

// KnowledgeBase provides similarity search over canonical disease descriptions.
type KnowledgeBase struct {
	embedder    ai.Embedder
	newIndex    index.Factory
	manifests   storage.ManifestRepository
	model       string
	defaultTopK int
	logger      *slog.Logger

	buildMu sync.Mutex
	current atomic.Pointer[snapshot]
}

// Option configures a KnowledgeBase.
type Option func(*KnowledgeBase) error

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(kb *KnowledgeBase) error {
		if logger == nil {
			logger = slog.Default()
		}
		kb.logger = logger
		return nil
	}
}

// WithIndexFactory replaces the exact flat index.
func WithIndexFactory(factory index.Factory) Option {
	return func(kb *KnowledgeBase) error {
		if factory == nil {
			return fmt.Errorf("%w: nil index factory", core.ErrConfiguration)
		}
		kb.newIndex = factory
		return nil
	}
}

// WithDefaultTopK changes the result count used by SearchDefault.
func WithDefaultTopK(k int) Option {
	return func(kb *KnowledgeBase) error {
		if err := core.ValidateTopK(k); err != nil {
			return err
		}
		kb.defaultTopK = k
		return nil
	}
}

// WithManifestRepository records a manifest after every successful build.
func WithManifestRepository(repo storage.ManifestRepository) Option {
	return func(kb *KnowledgeBase) error {
		kb.manifests = repo
		return nil
	}
}

// WithModelName sets the model name recorded in manifests.
// Default is the embedder's ModelName when it has one.
func WithModelName(model string) Option {
	return func(kb *KnowledgeBase) error {
		kb.model = model
		return nil
	}
}

// NewKnowledgeBase creates an unbuilt knowledge base.
func NewKnowledgeBase(embedder ai.Embedder, opts ...Option) (*KnowledgeBase, error) {
	if embedder == nil {
		return nil, ErrEmbedderRequired
	}

	kb := &KnowledgeBase{
		embedder:    embedder,
		newIndex:    index.NewFlat,
		defaultTopK: DefaultTopK,
		logger:      slog.Default(),
	}
	if namer, ok := embedder.(ai.ModelNamer); ok {
		kb.model = namer.ModelName()
	}

	for _, opt := range opts {
		if err := opt(kb); err != nil {
			return nil, err
		}
	}
	kb.logger = kb.logger.With("component", "knowledge-base")

	return kb, nil
}

// Build replaces the catalog with one built from records.
// All descriptions are embedded in one batch call. On error the previous
// build, if any, stays in effect.
func (kb *KnowledgeBase) Build(ctx context.Context, records []core.DiseaseRecord) error {
	if err := core.ValidateDiseaseRecords(records); err != nil {
		return err
	}

	kb.buildMu.Lock()
	defer kb.buildMu.Unlock()

	descriptions := catalog.BuildDescriptions(records)
	texts := catalog.Texts(descriptions)
	kb.logger.Info("building knowledge base", "diseases", len(descriptions))

	vectors, err := kb.embedder.EmbedTexts(ctx, texts)
	if err != nil {
		kb.logger.Error("error embedding descriptions", "count", len(texts), "err", err)
		return fmt.Errorf("embed descriptions: %w", err)
	}
	if len(vectors) != len(texts) {
		return fmt.Errorf("%w: got %d vectors for %d descriptions", ErrEmbeddingMismatch, len(vectors), len(texts))
	}
	dimension := len(vectors[0])
	if dimension == 0 {
		return fmt.Errorf("%w: zero-length vector", ErrEmbeddingMismatch)
	}

	idx, err := kb.newIndex(dimension)
	if err != nil {
		return fmt.Errorf("create index: %w", err)
	}
	normalized := make([][]float32, len(vectors))
	for i, v := range vectors {
		normalized[i] = index.Normalize(v)
	}
	if err := idx.Add(normalized...); err != nil {
		return fmt.Errorf("%w: %w", ErrEmbeddingMismatch, err)
	}

	snap := &snapshot{
		descriptions: descriptions,
		index:        idx,
		fingerprint:  catalog.Fingerprint(descriptions),
	}
	kb.current.Store(snap)
	kb.logger.Info("knowledge base built", "diseases", len(descriptions), "dimension", dimension)

	kb.recordManifest(ctx, snap)
	return nil
}

func (kb *KnowledgeBase) recordManifest(ctx context.Context, snap *snapshot) {
	if kb.manifests == nil {
		return
	}
	manifest := &core.IndexManifest{
		Model:       kb.model,
		Entries:     snap.index.Len(),
		Dimension:   snap.index.Dimension(),
		Fingerprint: snap.fingerprint,
	}
	if err := kb.manifests.SaveManifest(ctx, manifest); err != nil {
		kb.logger.Warn("failed to record index manifest", "err", err)
	}
}

// Search returns the k diseases most similar to query, best first.
// Ties keep catalog order. k larger than the catalog returns every disease.
func (kb *KnowledgeBase) Search(ctx context.Context, query string, k int) ([]core.RetrievalHit, error) {
	return kb.SearchWithMonitor(ctx, query, k, nil)
}

// SearchDefault searches with the configured default result count.
func (kb *KnowledgeBase) SearchDefault(ctx context.Context, query string) ([]core.RetrievalHit, error) {
	return kb.Search(ctx, query, kb.defaultTopK)
}

// SearchWithMonitor is Search with callbacks at each stage.
func (kb *KnowledgeBase) SearchWithMonitor(ctx context.Context, query string, k int, monitor SearchMonitor) ([]core.RetrievalHit, error) {
	snap := kb.current.Load()
	if snap == nil {
		return nil, core.ErrNotBuilt
	}
	if err := core.ValidateTopK(k); err != nil {
		return nil, err
	}
	if monitor == nil {
		monitor = &noopMonitor{}
	}
	monitor.Start(query, k)

	vector, err := kb.embedder.EmbedText(ctx, query)
	if err != nil {
		kb.logger.Error("error generating embedding for query", "err", err)
		return nil, fmt.Errorf("embed query: %w", err)
	}
	vector = index.Normalize(vector)
	monitor.AfterQueryEmbedding(vector)

	matches, err := snap.index.Search(vector, k)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrEmbeddingMismatch, err)
	}

	hits := make([]core.RetrievalHit, len(matches))
	for i, m := range matches {
		d := snap.descriptions[m.Position]
		hits[i] = core.RetrievalHit{
			Disease:     d.Disease,
			Similarity:  m.Score,
			Description: d.Text,
		}
	}
	monitor.Finish(hits)

	return hits, nil
}

// Built reports whether a build has completed.
func (kb *KnowledgeBase) Built() bool {
	return kb.current.Load() != nil
}

// Len returns the number of diseases in the current build, or 0.
func (kb *KnowledgeBase) Len() int {
	if snap := kb.current.Load(); snap != nil {
		return snap.index.Len()
	}
	return 0
}

// Dimension returns the vector length of the current build, or 0.
func (kb *KnowledgeBase) Dimension() int {
	if snap := kb.current.Load(); snap != nil {
		return snap.index.Dimension()
	}
	return 0
}

// Descriptions returns a copy of the current descriptions in index order.
func (kb *KnowledgeBase) Descriptions() []core.CanonicalDescription {
	snap := kb.current.Load()
	if snap == nil {
		return nil
	}
	out := make([]core.CanonicalDescription, len(snap.descriptions))
	copy(out, snap.descriptions)
	return out
}

// Fingerprint identifies the current catalog content, or 0 when unbuilt.
func (kb *KnowledgeBase) Fingerprint() core.ID {
	if snap := kb.current.Load(); snap != nil {
		return snap.fingerprint
	}
	return 0
}

// ModelName returns the model recorded in manifests.
func (kb *KnowledgeBase) ModelName() string {
	return kb.model
}
