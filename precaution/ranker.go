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

package precaution

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"

	"github.com/poiesic/diseasekb/ai"
	"github.com/poiesic/diseasekb/core"
	"github.com/poiesic/diseasekb/index"
)

var (
	// ErrEmbedderRequired is returned when a ranker is created without an embedder.
	ErrEmbedderRequired = errors.New("ranking embedder required")
	// ErrStoreRequired is returned when RankFor is called without a store.
	ErrStoreRequired = errors.New("precaution store required")
)

// Ranker orders precautions by cosine similarity to a query.
// Its scores come from its own embedder and are not comparable with disease similarities.
type Ranker struct {
	embedder ai.Embedder
	logger   *slog.Logger
}

// RankerOption configures a Ranker.
type RankerOption func(*Ranker)

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) RankerOption {
	return func(r *Ranker) {
		if logger == nil {
			logger = slog.Default()
		}
		r.logger = logger
	}
}

// NewRanker creates a ranker over embedder.
func NewRanker(embedder ai.Embedder, opts ...RankerOption) (*Ranker, error) {
	if embedder == nil {
		return nil, ErrEmbedderRequired
	}
	r := &Ranker{embedder: embedder, logger: slog.Default()}
	for _, opt := range opts {
		opt(r)
	}
	r.logger = r.logger.With("component", "precaution-ranker")
	return r, nil
}

// Rank scores each precaution against query and sorts best first.
// The query and all precautions are embedded in one batch. Equal scores keep
// source order. An empty list returns an empty result without embedding.
func (r *Ranker) Rank(ctx context.Context, query string, precautions []string) ([]core.RankedPrecaution, error) {
	if len(precautions) == 0 {
		return []core.RankedPrecaution{}, nil
	}

	texts := make([]string, 0, len(precautions)+1)
	texts = append(texts, query)
	texts = append(texts, precautions...)

	vectors, err := r.embedder.EmbedTexts(ctx, texts)
	if err != nil {
		r.logger.Error("error embedding precautions", "count", len(precautions), "err", err)
		return nil, fmt.Errorf("embed precautions: %w", err)
	}
	if len(vectors) != len(texts) {
		return nil, fmt.Errorf("embedder returned %d vectors for %d texts", len(vectors), len(texts))
	}

	q := index.Normalize(vectors[0])
	ranked := make([]core.RankedPrecaution, len(precautions))
	for i, p := range precautions {
		ranked[i] = core.RankedPrecaution{
			Precaution:     p,
			RelevanceScore: index.Dot(q, index.Normalize(vectors[i+1])),
		}
	}
	slices.SortStableFunc(ranked, func(a, b core.RankedPrecaution) int {
		switch {
		case a.RelevanceScore > b.RelevanceScore:
			return -1
		case a.RelevanceScore < b.RelevanceScore:
			return 1
		}
		return 0
	})
	return ranked, nil
}

// RankFor looks disease up in store and ranks its precautions against query.
// An unknown disease yields an empty result.
func (r *Ranker) RankFor(ctx context.Context, store *Store, disease, query string) ([]core.RankedPrecaution, error) {
	if store == nil {
		return nil, ErrStoreRequired
	}
	return r.Rank(ctx, query, store.Lookup(disease))
}
