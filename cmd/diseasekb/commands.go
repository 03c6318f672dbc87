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

package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/urfave/cli/v2"

	"github.com/poiesic/diseasekb"
	"github.com/poiesic/diseasekb/api"
	"github.com/poiesic/diseasekb/config"
	"github.com/poiesic/diseasekb/core"
	"github.com/poiesic/diseasekb/reembed"
	"github.com/poiesic/diseasekb/storage"
)

func engineOptions(cfg *config.AppConfig, extra ...diseasekb.Option) []diseasekb.Option {
	opts := []diseasekb.Option{
		diseasekb.WithSymptomsPath(cfg.SymptomsPath),
		diseasekb.WithPrecautionsPath(cfg.PrecautionsPath),
		diseasekb.WithMaxSymptomColumns(cfg.MaxSymptomColumns),
		diseasekb.WithAIConfig(cfg.AIConfig()),
		diseasekb.WithCachePath(cfg.CachePath),
		diseasekb.WithDefaultTopK(cfg.TopK),
		diseasekb.WithPoolSize(cfg.PoolSize),
		diseasekb.WithLogger(slog.Default()),
	}
	return append(opts, extra...)
}

func bootstrap(c *cli.Context, extra ...diseasekb.Option) (*config.AppConfig, *diseasekb.Engine, error) {
	cfg, err := loadConfig(c)
	if err != nil {
		return nil, nil, err
	}
	engine, err := startEngine(c, cfg, extra...)
	if err != nil {
		return nil, nil, err
	}
	return cfg, engine, nil
}

func startEngine(c *cli.Context, cfg *config.AppConfig, extra ...diseasekb.Option) (*diseasekb.Engine, error) {
	engine, err := diseasekb.Bootstrap(c.Context, engineOptions(cfg, extra...)...)
	if err != nil {
		return nil, fmt.Errorf("failed to start: %w", err)
	}
	return engine, nil
}

func serveCommand(c *cli.Context) error {
	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, engine, err := bootstrap(c)
	if err != nil {
		return err
	}
	defer engine.Close()

	handler, err := api.NewHandler(engine.Advisor(), engine.KnowledgeBase(), slog.Default())
	if err != nil {
		return err
	}
	server := api.NewServer(cfg.Addr, handler, slog.Default())

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return <-errCh
}

// diagnosis is one line of diagnose --json output.
type diagnosis struct {
	Query string `json:"query"`
	api.DiagnosisResponse
}

func diagnoseCommand(c *cli.Context) error {
	queries, err := readQueries(c)
	if err != nil {
		return err
	}

	_, engine, err := bootstrap(c)
	if err != nil {
		return err
	}
	defer engine.Close()

	adv := engine.Advisor()
	k := adv.DefaultTopK()
	if c.IsSet("top-k") {
		k = c.Int("top-k")
	}

	results, err := adv.AdviseBatch(c.Context, queries, k)
	if err != nil {
		return err
	}

	out := c.App.Writer
	if c.Bool("json") {
		enc := json.NewEncoder(out)
		for i, hits := range results {
			line := diagnosis{
				Query: queries[i],
				DiagnosisResponse: api.DiagnosisResponse{
					Disclaimer:  api.Disclaimer,
					Predictions: api.Predictions(hits),
				},
			}
			if err := enc.Encode(line); err != nil {
				return err
			}
		}
		return nil
	}

	for i, hits := range results {
		if len(queries) > 1 {
			fmt.Fprintf(out, "Query: %s\n", queries[i])
		}
		printHits(out, hits)
	}
	fmt.Fprintf(out, "\n%s\n", api.Disclaimer)
	return nil
}

func printHits(w io.Writer, hits []core.RetrievalHit) {
	for i, hit := range hits {
		fmt.Fprintf(w, "%d. %s (similarity %.3f)\n", i+1, hit.Disease, hit.Similarity)
		fmt.Fprintf(w, "   %s\n", hit.Description)
		if len(hit.Precautions) == 0 {
			fmt.Fprintln(w, "   Precautions: none recorded")
			continue
		}
		fmt.Fprintf(w, "   Precautions: %s\n", strings.Join(hit.Precautions, "; "))
	}
}

// readQueries returns the positional text as one query, or one query per
// non-blank line of --file.
func readQueries(c *cli.Context) ([]string, error) {
	path := c.String("file")
	if path == "" {
		query := strings.TrimSpace(strings.Join(c.Args().Slice(), " "))
		if query == "" {
			return nil, errors.New("symptom text is required (pass it as arguments or use --file)")
		}
		return []string{query}, nil
	}

	var r io.Reader = os.Stdin
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("open queries: %w", err)
		}
		defer f.Close()
		r = f
	}

	var queries []string
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		if line := strings.TrimSpace(scanner.Text()); line != "" {
			queries = append(queries, line)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read queries: %w", err)
	}
	if len(queries) == 0 {
		return nil, fmt.Errorf("no queries in %s", path)
	}
	return queries, nil
}

func precautionsCommand(c *cli.Context) error {
	_, engine, err := bootstrap(c, diseasekb.WithSkipBuild())
	if err != nil {
		return err
	}
	defer engine.Close()

	disease := c.String("disease")
	ranked, err := engine.Advisor().RankedPrecautions(c.Context, disease, strings.Join(c.Args().Slice(), " "))
	if err != nil {
		return err
	}

	out := c.App.Writer
	if len(ranked) == 0 {
		fmt.Fprintf(out, "No precautions recorded for %s\n", disease)
		return nil
	}
	for i, p := range ranked {
		fmt.Fprintf(out, "%d. %s (relevance %.3f)\n", i+1, p.Precaution, p.RelevanceScore)
	}
	return nil
}

func reembedCommand(c *cli.Context) error {
	warmup := &reembed.Config{
		BatchSize:      c.Int("batch-size"),
		ReportInterval: c.Int("report-interval"),
		MaxRetries:     c.Int("max-retries"),
		RetryDelay:     c.Duration("retry-delay"),
	}
	if warmup.BatchSize <= 0 {
		return fmt.Errorf("batch-size must be greater than 0")
	}
	if warmup.ReportInterval <= 0 {
		return fmt.Errorf("report-interval must be greater than 0")
	}
	if warmup.MaxRetries <= 0 {
		return fmt.Errorf("max-retries must be greater than 0")
	}

	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	if cfg.CachePath == "" {
		return fmt.Errorf("%w: reembed needs a cache (--cache or DISEASEKB_CACHE)", core.ErrConfiguration)
	}
	engine, err := startEngine(c, cfg, diseasekb.WithSkipBuild())
	if err != nil {
		return err
	}
	defer engine.Close()

	progress := c.App.ErrWriter
	fmt.Fprintf(progress, "Cache: %s\n", cfg.CachePath)
	fmt.Fprintf(progress, "Backend: %s\n", cfg.AI.Backend)
	fmt.Fprintln(progress)

	jobs := reembed.Jobs(engine.SearchEmbedder(), engine.RankingEmbedder(),
		engine.DescriptionTexts(), engine.Precautions().Texts())
	if _, err := reembed.NewReembedder(warmup, progress).Run(c.Context, jobs...); err != nil {
		return fmt.Errorf("reembedding failed: %w", err)
	}

	// served from the cache; records the manifest
	return engine.Build(c.Context)
}

func statusCommand(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	if cfg.CachePath == "" {
		return fmt.Errorf("%w: status needs a cache (--cache or DISEASEKB_CACHE)", core.ErrConfiguration)
	}

	cache, err := diseasekb.OpenCache(cfg.CachePath, slog.Default())
	if err != nil {
		return err
	}
	defer cache.Close()

	out := c.App.Writer
	searchModel, rankingModel := diseasekb.ModelNames(cfg.AIConfig())

	manifest, err := cache.Manifests().LoadManifest(c.Context, searchModel)
	switch {
	case errors.Is(err, storage.ErrNotFound):
		fmt.Fprintf(out, "No index built for %s\n", searchModel)
	case err != nil:
		return err
	default:
		fmt.Fprintf(out, "Model:       %s\n", manifest.Model)
		fmt.Fprintf(out, "Diseases:    %d\n", manifest.Entries)
		fmt.Fprintf(out, "Dimension:   %d\n", manifest.Dimension)
		fmt.Fprintf(out, "Fingerprint: %016x\n", uint64(manifest.Fingerprint))
		fmt.Fprintf(out, "Built at:    %s\n", manifest.BuiltAt.Format("2006-01-02 15:04:05 MST"))
	}

	models := []string{searchModel}
	if rankingModel != searchModel {
		models = append(models, rankingModel)
	}
	for _, model := range models {
		count, err := cache.Embeddings().CountEmbeddings(c.Context, model)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "Cached embeddings (%s): %d\n", model, count)
	}
	return nil
}
