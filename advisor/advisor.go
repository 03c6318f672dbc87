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

// Package advisor combines disease retrieval with precaution lookup.
package advisor

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"sync"

	"github.com/panjf2000/ants/v2"
	"github.com/poiesic/diseasekb/core"
)

// DefaultTopK is the number of diseases returned by Advise.
// It is deliberately smaller than the knowledge base default.
const DefaultTopK = 2

// Retriever finds the diseases most similar to a query.
type Retriever interface {
	Search(ctx context.Context, query string, k int) ([]core.RetrievalHit, error)
}

// PrecautionSource returns the precautions recorded for a disease.
type PrecautionSource interface {
	Lookup(disease string) []string
}

// PrecautionRanker orders precautions against a query.
type PrecautionRanker interface {
	Rank(ctx context.Context, query string, precautions []string) ([]core.RankedPrecaution, error)
}

// Advisor answers symptom queries with ranked diseases and their precautions.
// It holds no mutable state besides its worker pool and is safe for concurrent use.
type Advisor struct {
	retriever   Retriever
	precautions PrecautionSource
	ranker      PrecautionRanker
	defaultTopK int
	pool        *ants.Pool
	logger      *slog.Logger
}

// Option configures an Advisor.
type Option func(*Advisor) error

// WithRanker enables RankedPrecautions.
func WithRanker(ranker PrecautionRanker) Option {
	return func(a *Advisor) error {
		a.ranker = ranker
		return nil
	}
}

// WithDefaultTopK changes the result count used by Advise.
func WithDefaultTopK(k int) Option {
	return func(a *Advisor) error {
		if err := core.ValidateTopK(k); err != nil {
			return err
		}
		a.defaultTopK = k
		return nil
	}
}

// WithPoolSize sets the worker pool size for AdviseBatch.
// Default is runtime.NumCPU(), with a minimum of 1.
func WithPoolSize(size int) Option {
	return func(a *Advisor) error {
		if size < 1 {
			size = 1
		}
		pool, err := ants.NewPool(size)
		if err != nil {
			return err
		}
		if a.pool != nil {
			a.pool.Release()
		}
		a.pool = pool
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(a *Advisor) error {
		if logger == nil {
			logger = slog.Default()
		}
		a.logger = logger
		return nil
	}
}

// NewAdvisor creates an advisor. Call Release when done.
func NewAdvisor(retriever Retriever, precautions PrecautionSource, opts ...Option) (*Advisor, error) {
	if retriever == nil {
		return nil, ErrRetrieverRequired
	}
	if precautions == nil {
		return nil, ErrPrecautionsRequired
	}

	pool, err := ants.NewPool(max(runtime.NumCPU(), 1))
	if err != nil {
		return nil, err
	}

	a := &Advisor{
		retriever:   retriever,
		precautions: precautions,
		defaultTopK: DefaultTopK,
		pool:        pool,
		logger:      slog.Default(),
	}

	for _, opt := range opts {
		if optErr := opt(a); optErr != nil {
			a.Release()
			return nil, optErr
		}
	}
	a.logger = a.logger.With("component", "advisor")

	return a, nil
}

// Advise returns the DefaultTopK best diseases for query with their precautions.
func (a *Advisor) Advise(ctx context.Context, query string) ([]core.RetrievalHit, error) {
	return a.AdviseTopK(ctx, query, a.defaultTopK)
}

// AdviseTopK returns the k best diseases for query, each with its precautions
// in source order. Diseases without recorded precautions get an empty list.
// Knowledge base errors are returned wrapped.
func (a *Advisor) AdviseTopK(ctx context.Context, query string, k int) ([]core.RetrievalHit, error) {
	hits, err := a.retriever.Search(ctx, query, k)
	if err != nil {
		return nil, fmt.Errorf("search diseases: %w", err)
	}

	for i := range hits {
		hits[i].Precautions = a.precautions.Lookup(hits[i].Disease)
	}
	a.logger.Debug("advice ready", "k", k, "hits", len(hits))
	return hits, nil
}

// DefaultTopK returns the result count used by Advise.
func (a *Advisor) DefaultTopK() int {
	return a.defaultTopK
}

// RankedPrecautions orders the precautions of disease by relevance to query.
func (a *Advisor) RankedPrecautions(ctx context.Context, disease, query string) ([]core.RankedPrecaution, error) {
	if a.ranker == nil {
		return nil, ErrRankerNotConfigured
	}
	return a.ranker.Rank(ctx, query, a.precautions.Lookup(disease))
}

// AdviseBatch answers many queries concurrently on the worker pool.
// Results are in input order. If any query fails, the error of the
// lowest-indexed failing query is returned.
func (a *Advisor) AdviseBatch(ctx context.Context, queries []string, k int) ([][]core.RetrievalHit, error) {
	if err := core.ValidateTopK(k); err != nil {
		return nil, err
	}

	results := make([][]core.RetrievalHit, len(queries))
	errs := make([]error, len(queries))

	var wg sync.WaitGroup
	for i, query := range queries {
		wg.Add(1)
		err := a.pool.Submit(func() {
			defer wg.Done()
			if err := ctx.Err(); err != nil {
				errs[i] = err
				return
			}
			results[i], errs[i] = a.AdviseTopK(ctx, query, k)
		})
		if err != nil {
			wg.Done()
			errs[i] = fmt.Errorf("submit query %d: %w", i, err)
		}
	}
	wg.Wait()

	for i, err := range errs {
		if err != nil {
			a.logger.Error("batch query failed", "index", i, "err", err)
			return nil, err
		}
	}
	return results, nil
}

// Release releases the worker pool.
// The advisor should not be used for AdviseBatch after calling Release.
func (a *Advisor) Release() {
	if a.pool != nil {
		a.pool.Release()
	}
}
