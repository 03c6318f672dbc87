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
	"fmt"
	"log"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/poiesic/diseasekb/advisor"
	"github.com/poiesic/diseasekb/config"
	"github.com/poiesic/diseasekb/reembed"
)

func main() {
	if err := newApp().Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func newApp() *cli.App {
	warmup := reembed.DefaultConfig()

	return &cli.App{
		Name:  "diseasekb",
		Usage: "Symptom-to-disease retrieval with precaution advice (educational use only)",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Aliases: []string{"l"},
				Usage:   "Set logging level (debug, info, warn, error)",
				Value:   config.DefaultLogLevel,
			},
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to YAML config file (skipped if missing)",
				Value:   "diseasekb.yaml",
			},
			&cli.StringFlag{
				Name:  "env-file",
				Usage: "Path to .env file (skipped if missing)",
				Value: ".env",
			},
		},
		Before: setupLogger,
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "Serve the HTTP API",
				Action: serveCommand,
				Flags: append(dataFlags(),
					&cli.StringFlag{
						Name:  "addr",
						Usage: "Listen address (default " + config.DefaultAddr + ")",
					},
				),
			},
			{
				Name:      "diagnose",
				Usage:     "Rank likely diseases for a symptom description",
				ArgsUsage: "[symptom text...]",
				Action:    diagnoseCommand,
				Flags: append(dataFlags(),
					&cli.IntFlag{
						Name:    "top-k",
						Aliases: []string{"k"},
						Usage:   fmt.Sprintf("Number of diseases to return (default %d)", advisor.DefaultTopK),
					},
					&cli.StringFlag{
						Name:    "file",
						Aliases: []string{"f"},
						Usage:   "Read one query per line from file (- for stdin)",
					},
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Print JSON lines instead of text",
					},
				),
			},
			{
				Name:      "precautions",
				Usage:     "Rank a disease's precautions against a description",
				ArgsUsage: "[text...]",
				Action:    precautionsCommand,
				Flags: append(dataFlags(),
					&cli.StringFlag{
						Name:     "disease",
						Aliases:  []string{"d"},
						Usage:    "Disease name as it appears in the precaution dataset",
						Required: true,
					},
				),
			},
			{
				Name:   "reembed",
				Usage:  "Pre-compute every description and precaution embedding into the cache",
				Action: reembedCommand,
				Flags: append(dataFlags(),
					&cli.IntFlag{
						Name:  "batch-size",
						Usage: "Number of texts to embed in each batch",
						Value: warmup.BatchSize,
					},
					&cli.IntFlag{
						Name:  "report-interval",
						Usage: "Report progress every N texts",
						Value: warmup.ReportInterval,
					},
					&cli.IntFlag{
						Name:  "max-retries",
						Usage: "Maximum attempts per batch",
						Value: warmup.MaxRetries,
					},
					&cli.DurationFlag{
						Name:  "retry-delay",
						Usage: "Base delay for exponential backoff",
						Value: warmup.RetryDelay,
					},
				),
			},
			{
				Name:   "status",
				Usage:  "Show the cached index manifest and embedding counts",
				Action: statusCommand,
				Flags:  dataFlags(),
			},
		},
	}
}

// dataFlags are shared by every command. They carry no defaults so that
// unset flags fall through to the config file and environment.
func dataFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:  "symptoms",
			Usage: "Path to the symptom CSV",
		},
		&cli.StringFlag{
			Name:  "precautions",
			Usage: "Path to the precaution CSV",
		},
		&cli.StringFlag{
			Name:  "backend",
			Usage: "Embedding backend (hugot, openai, lexical)",
		},
		&cli.StringFlag{
			Name:  "embedding-host",
			Usage: "OpenAI-compatible embedding service URL",
		},
		&cli.StringFlag{
			Name:  "embedding-model",
			Usage: "Model used for disease descriptions and queries",
		},
		&cli.StringFlag{
			Name:  "ranking-model",
			Usage: "Model used to rank precautions",
		},
		&cli.StringFlag{
			Name:  "model-dir",
			Usage: "Directory holding local ONNX models",
		},
		&cli.StringFlag{
			Name:  "cache",
			Usage: "Embedding cache directory (disabled if empty)",
		},
	}
}

// loadConfig reads the config file and environment, then applies flags the user set.
func loadConfig(c *cli.Context) (*config.AppConfig, error) {
	cfg, err := config.Load(c.String("config"), c.String("env-file"))
	if err != nil {
		return nil, err
	}

	overrides := []struct {
		flag   string
		target *string
	}{
		{"symptoms", &cfg.SymptomsPath},
		{"precautions", &cfg.PrecautionsPath},
		{"backend", &cfg.AI.Backend},
		{"embedding-host", &cfg.AI.EmbeddingHost},
		{"embedding-model", &cfg.AI.EmbeddingModel},
		{"ranking-model", &cfg.AI.RankingModel},
		{"model-dir", &cfg.AI.ModelDir},
		{"cache", &cfg.CachePath},
		{"addr", &cfg.Addr},
	}
	for _, o := range overrides {
		if c.IsSet(o.flag) {
			*o.target = c.String(o.flag)
		}
	}

	if c.IsSet("log-level") {
		cfg.LogLevel = c.String("log-level")
	} else if err := configureLogger(cfg.LogLevel); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func setupLogger(c *cli.Context) error {
	return configureLogger(c.String("log-level"))
}

func configureLogger(levelStr string) error {
	levelStr = strings.ToLower(levelStr)

	var level slog.Level
	switch levelStr {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		return fmt.Errorf("invalid log level %q: must be one of debug, info, warn, error", levelStr)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	return nil
}

// shutdownTimeout bounds graceful HTTP shutdown.
const shutdownTimeout = 10 * time.Second
