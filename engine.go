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

// Package diseasekb wires the datasets, embedding provider, cache, knowledge
// base and advisor into a ready-to-query Engine.
package diseasekb

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/poiesic/diseasekb/advisor"
	"github.com/poiesic/diseasekb/ai"
	"github.com/poiesic/diseasekb/ai/cached"
	"github.com/poiesic/diseasekb/catalog"
	"github.com/poiesic/diseasekb/config"
	"github.com/poiesic/diseasekb/core"
	"github.com/poiesic/diseasekb/dataset"
	"github.com/poiesic/diseasekb/knowledge"
	"github.com/poiesic/diseasekb/precaution"
	"github.com/poiesic/diseasekb/storage"
)

// Engine owns every component needed to answer queries.
type Engine struct {
	provider    ai.AIProvider
	cache       *Cache
	search      ai.Embedder
	ranking     ai.Embedder
	symptoms    []core.DiseaseRecord
	kb          *knowledge.KnowledgeBase
	precautions *precaution.Store
	ranker      *precaution.Ranker
	advisor     *advisor.Advisor
	logger      *slog.Logger
}

// Option configures Bootstrap.
type Option func(*options)

type options struct {
	symptomsPath      string
	precautionsPath   string
	maxSymptomColumns int
	aiConfig          *ai.Config
	provider          ai.AIProvider
	cachePath         string
	logger            *slog.Logger
	poolSize          int
	topK              int
	skipBuild         bool
}

// WithSymptomsPath sets the symptom CSV path.
func WithSymptomsPath(path string) Option {
	return func(o *options) {
		o.symptomsPath = path
	}
}

// WithPrecautionsPath sets the precaution CSV path.
func WithPrecautionsPath(path string) Option {
	return func(o *options) {
		o.precautionsPath = path
	}
}

// WithMaxSymptomColumns bounds the Symptom_<n> columns read.
func WithMaxSymptomColumns(n int) Option {
	return func(o *options) {
		o.maxSymptomColumns = n
	}
}

// WithAIConfig sets the provider configuration. Ignored when WithProvider is used.
func WithAIConfig(cfg *ai.Config) Option {
	return func(o *options) {
		o.aiConfig = cfg
	}
}

// WithProvider supplies a ready provider instead of building one.
// The engine takes ownership and closes it, also when Bootstrap fails.
func WithProvider(provider ai.AIProvider) Option {
	return func(o *options) {
		o.provider = provider
	}
}

// WithCachePath enables the persistent embedding cache at path.
func WithCachePath(path string) Option {
	return func(o *options) {
		o.cachePath = path
	}
}

// WithLogger sets the logger passed to every component.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithPoolSize sets the batch query worker count. Zero keeps the default.
func WithPoolSize(size int) Option {
	return func(o *options) {
		o.poolSize = size
	}
}

// WithDefaultTopK sets the number of diseases returned when a caller does not say.
func WithDefaultTopK(k int) Option {
	return func(o *options) {
		o.topK = k
	}
}

// WithSkipBuild leaves the knowledge base unbuilt; call Build before querying.
func WithSkipBuild() Option {
	return func(o *options) {
		o.skipBuild = true
	}
}

// Bootstrap loads both datasets, creates the provider and optional cache,
// builds the knowledge base and assembles the advisor.
func Bootstrap(ctx context.Context, opts ...Option) (*Engine, error) {
	o := &options{
		symptomsPath:      config.DefaultSymptomsPath,
		precautionsPath:   config.DefaultPrecautionsPath,
		maxSymptomColumns: dataset.DefaultMaxSymptomColumns,
		topK:              advisor.DefaultTopK,
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.logger == nil {
		o.logger = slog.Default()
	}
	if o.aiConfig == nil {
		o.aiConfig = ai.DefaultConfig()
	}

	fail := func(err error) (*Engine, error) {
		if o.provider != nil {
			_ = o.provider.Close()
		}
		return nil, err
	}

	symptoms, err := dataset.LoadSymptoms(o.symptomsPath, o.maxSymptomColumns)
	if err != nil {
		return fail(err)
	}
	precautionRecords, err := dataset.LoadPrecautions(o.precautionsPath)
	if err != nil {
		return fail(err)
	}
	store, err := precaution.NewStore(precautionRecords)
	if err != nil {
		return fail(err)
	}

	provider := o.provider
	if provider == nil {
		provider, err = NewProvider(o.aiConfig)
		if err != nil {
			return nil, err
		}
	}

	e := &Engine{
		provider:    provider,
		symptoms:    symptoms,
		precautions: store,
		logger:      o.logger.With("component", "engine"),
	}
	if err := e.assemble(ctx, o); err != nil {
		_ = e.Close()
		return nil, err
	}
	return e, nil
}

func (e *Engine) assemble(ctx context.Context, o *options) error {
	searchFallback, rankingFallback := ModelNames(o.aiConfig)
	e.search = e.provider.Embedder()
	e.ranking = e.provider.RankingEmbedder()
	searchModel := modelName(e.search, searchFallback)
	rankingModel := modelName(e.ranking, rankingFallback)

	var kbOpts []knowledge.Option
	kbOpts = append(kbOpts, knowledge.WithLogger(o.logger), knowledge.WithModelName(searchModel))

	if o.cachePath != "" {
		cache, err := OpenCache(o.cachePath, o.logger)
		if err != nil {
			return err
		}
		e.cache = cache

		admit := e.catalogTexts()
		cacheOpts := []cached.Option{cached.WithLogger(o.logger), cached.WithAdmit(admit)}
		search, err := cached.NewEmbedder(e.search, cache.Embeddings(), searchModel, cacheOpts...)
		if err != nil {
			return err
		}
		ranking := search
		if rankingModel != searchModel {
			ranking, err = cached.NewEmbedder(e.ranking, cache.Embeddings(), rankingModel, cacheOpts...)
			if err != nil {
				return err
			}
		}
		e.search, e.ranking = search, ranking
		kbOpts = append(kbOpts, knowledge.WithManifestRepository(cache.Manifests()))
	}

	kb, err := knowledge.NewKnowledgeBase(e.search, kbOpts...)
	if err != nil {
		return err
	}
	e.kb = kb

	e.ranker, err = precaution.NewRanker(e.ranking, precaution.WithLogger(o.logger))
	if err != nil {
		return err
	}

	advisorOpts := []advisor.Option{
		advisor.WithRanker(e.ranker),
		advisor.WithDefaultTopK(o.topK),
		advisor.WithLogger(o.logger),
	}
	if o.poolSize > 0 {
		advisorOpts = append(advisorOpts, advisor.WithPoolSize(o.poolSize))
	}
	e.advisor, err = advisor.NewAdvisor(e.kb, e.precautions, advisorOpts...)
	if err != nil {
		return err
	}

	if o.skipBuild {
		return nil
	}
	return e.Build(ctx)
}

// catalogTexts returns a membership test over every description and
// precaution text. Only these are written to the embedding cache; query
// text is embedded but never persisted.
func (e *Engine) catalogTexts() func(string) bool {
	texts := make(map[string]struct{})
	for _, text := range e.DescriptionTexts() {
		texts[text] = struct{}{}
	}
	for _, text := range e.precautions.Texts() {
		texts[text] = struct{}{}
	}
	return func(text string) bool {
		_, ok := texts[text]
		return ok
	}
}

// Build (re)builds the knowledge base from the loaded symptom dataset.
func (e *Engine) Build(ctx context.Context) error {
	if err := e.kb.Build(ctx, e.symptoms); err != nil {
		return fmt.Errorf("build knowledge base: %w", err)
	}
	e.logger.Info("knowledge base ready",
		"diseases", e.kb.Len(),
		"dimension", e.kb.Dimension(),
		"precautions", e.precautions.Len(),
		"model", e.kb.ModelName(),
	)
	return nil
}

// Close releases the worker pool, the provider and the cache.
func (e *Engine) Close() error {
	var errs []error
	if e.advisor != nil {
		e.advisor.Release()
	}
	if e.provider != nil {
		if err := e.provider.Close(); err != nil {
			e.logger.Error("error closing AI provider", "err", err)
			errs = append(errs, err)
		}
	}
	if e.cache != nil {
		if err := e.cache.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Advisor returns the query facade.
func (e *Engine) Advisor() *advisor.Advisor {
	return e.advisor
}

// KnowledgeBase returns the disease index.
func (e *Engine) KnowledgeBase() *knowledge.KnowledgeBase {
	return e.kb
}

// Precautions returns the precaution table.
func (e *Engine) Precautions() *precaution.Store {
	return e.precautions
}

// Ranker returns the precaution ranker.
func (e *Engine) Ranker() *precaution.Ranker {
	return e.ranker
}

// SearchEmbedder returns the embedder used for descriptions and queries,
// cached when a cache path was given.
func (e *Engine) SearchEmbedder() ai.Embedder {
	return e.search
}

// RankingEmbedder returns the embedder used for precaution ranking.
func (e *Engine) RankingEmbedder() ai.Embedder {
	return e.ranking
}

// ManifestRepository returns the manifest store, or nil without a cache.
func (e *Engine) ManifestRepository() storage.ManifestRepository {
	if e.cache == nil {
		return nil
	}
	return e.cache.Manifests()
}

// EmbeddingRepository returns the embedding store, or nil without a cache.
func (e *Engine) EmbeddingRepository() storage.EmbeddingRepository {
	if e.cache == nil {
		return nil
	}
	return e.cache.Embeddings()
}

// DescriptionTexts returns the canonical description of every disease in
// the symptom dataset, in index order.
func (e *Engine) DescriptionTexts() []string {
	return catalog.Texts(catalog.BuildDescriptions(e.symptoms))
}
