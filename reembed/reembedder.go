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

package reembed

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/poiesic/diseasekb/ai"
)

// Config holds configuration for a warm-up run.
type Config struct {
	// BatchSize is the number of texts sent in one embedding call
	BatchSize int

	// ReportInterval is how often to report progress (number of texts)
	ReportInterval int

	// MaxRetries is the maximum number of attempts per batch
	MaxRetries int

	// RetryDelay is the base delay for exponential backoff
	RetryDelay time.Duration
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		BatchSize:      32,
		ReportInterval: 32,
		MaxRetries:     3,
		RetryDelay:     1 * time.Second,
	}
}

// Job is a set of texts to embed with one embedder.
type Job struct {
	Name     string
	Embedder ai.Embedder
	Texts    []string
}

// Result summarises one finished job.
type Result struct {
	Name    string
	Texts   int
	Batches int
	Elapsed time.Duration
}

// Jobs returns the standard warm-up: descriptions with the search embedder,
// then precautions with the ranking embedder.
func Jobs(search, ranking ai.Embedder, descriptions, precautions []string) []Job {
	return []Job{
		{Name: "descriptions", Embedder: search, Texts: descriptions},
		{Name: "precautions", Embedder: ranking, Texts: precautions},
	}
}

// Reembedder runs warm-up jobs.
type Reembedder struct {
	config   *Config
	progress io.Writer
	logger   *slog.Logger
}

// NewReembedder creates a new reembedder.
// progress: where to write progress output (typically os.Stderr)
func NewReembedder(config *Config, progress io.Writer) *Reembedder {
	if config == nil {
		config = DefaultConfig()
	}
	if progress == nil {
		progress = io.Discard
	}
	return &Reembedder{
		config:   config,
		progress: progress,
		logger:   slog.Default().With("component", "reembedder"),
	}
}

// Run executes jobs in order and stops at the first failure.
func (r *Reembedder) Run(ctx context.Context, jobs ...Job) ([]Result, error) {
	if r.config.BatchSize <= 0 {
		return nil, ErrInvalidBatchSize
	}

	results := make([]Result, 0, len(jobs))
	for _, job := range jobs {
		result, err := r.runJob(ctx, job)
		if err != nil {
			return results, fmt.Errorf("job %s: %w", job.Name, err)
		}
		results = append(results, result)
	}
	return results, nil
}

func (r *Reembedder) runJob(ctx context.Context, job Job) (Result, error) {
	if job.Embedder == nil {
		return Result{}, ErrEmbedderRequired
	}

	texts := uniqueTexts(job.Texts)
	result := Result{Name: job.Name, Texts: len(texts)}
	if len(texts) == 0 {
		fmt.Fprintf(r.progress, "%s: nothing to embed\n", job.Name)
		return result, nil
	}

	fmt.Fprintf(r.progress, "Embedding %d %s (batch size: %d)\n", len(texts), job.Name, r.config.BatchSize)

	processor := NewBatchProcessor(job.Embedder, r.config.MaxRetries, r.config.RetryDelay)
	tracker := NewProgressTracker(r.progress, job.Name, len(texts), r.config.ReportInterval)
	tracker.Start()

	for batch := range slices.Chunk(texts, r.config.BatchSize) {
		if _, err := processor.Process(ctx, batch); err != nil {
			return result, fmt.Errorf("failed to process batch %d: %w", result.Batches, err)
		}
		result.Batches++
		tracker.Increment(len(batch))
	}

	tracker.Finish()
	result.Elapsed = tracker.Elapsed()
	r.logger.Info("warm-up job complete", "job", job.Name, "texts", result.Texts, "batches", result.Batches, "elapsed", result.Elapsed)
	return result, nil
}

// uniqueTexts drops blank and repeated texts, keeping first occurrences in order.
func uniqueTexts(texts []string) []string {
	seen := make(map[string]struct{}, len(texts))
	out := make([]string, 0, len(texts))
	for _, t := range texts {
		if strings.TrimSpace(t) == "" {
			continue
		}
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}
