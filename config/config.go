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

// Package config loads application settings from a YAML file, an optional
// .env file and DISEASEKB_ environment variables, in that order of precedence
// from lowest to highest.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"

	"github.com/poiesic/diseasekb/ai"
	"github.com/poiesic/diseasekb/core"
)

// EnvPrefix is prepended to every environment variable name.
const EnvPrefix = "DISEASEKB"

// Defaults.
const (
	DefaultAddr              = ":8000"
	DefaultSymptomsPath      = "DiseaseAndSymptoms.csv"
	DefaultPrecautionsPath   = "Disease precaution.csv"
	DefaultMaxSymptomColumns = 17
	DefaultTopK              = 2
	DefaultLogLevel          = "info"
)

// AIConfig mirrors ai.Config for file and environment loading.
type AIConfig struct {
	Backend        string `yaml:"backend" envconfig:"BACKEND"`
	EmbeddingHost  string `yaml:"embedding_host" envconfig:"EMBEDDING_HOST"`
	EmbeddingModel string `yaml:"embedding_model" envconfig:"EMBEDDING_MODEL"`
	RankingModel   string `yaml:"ranking_model" envconfig:"RANKING_MODEL"`
	ModelDir       string `yaml:"model_dir" envconfig:"MODEL_DIR"`
	Dimension      int    `yaml:"dimension" envconfig:"DIMENSION"`
}

// AppConfig holds every setting the CLI and server need.
// Fields carry no envconfig defaults so that values read from the YAML file
// survive when the matching variable is unset.
type AppConfig struct {
	// Addr is the HTTP listen address.
	// Env: DISEASEKB_ADDR
	Addr string `yaml:"addr" envconfig:"ADDR"`

	// SymptomsPath is the symptom CSV.
	// Env: DISEASEKB_SYMPTOMS
	SymptomsPath string `yaml:"symptoms" envconfig:"SYMPTOMS"`

	// PrecautionsPath is the precaution CSV.
	// Env: DISEASEKB_PRECAUTIONS
	PrecautionsPath string `yaml:"precautions" envconfig:"PRECAUTIONS"`

	// MaxSymptomColumns bounds the Symptom_<n> columns read.
	// Env: DISEASEKB_MAX_SYMPTOM_COLUMNS
	MaxSymptomColumns int `yaml:"max_symptom_columns" envconfig:"MAX_SYMPTOM_COLUMNS"`

	// CachePath enables the persistent embedding cache when set.
	// Env: DISEASEKB_CACHE
	CachePath string `yaml:"cache" envconfig:"CACHE"`

	// TopK is the number of diseases returned when a request does not say.
	// Env: DISEASEKB_TOP_K
	TopK int `yaml:"top_k" envconfig:"TOP_K"`

	// PoolSize is the number of concurrent batch queries. Zero means one per CPU.
	// Env: DISEASEKB_POOL_SIZE
	PoolSize int `yaml:"pool_size" envconfig:"POOL_SIZE"`

	// LogLevel is one of debug, info, warn or error.
	// Env: DISEASEKB_LOG_LEVEL
	LogLevel string `yaml:"log_level" envconfig:"LOG_LEVEL"`

	// AI configures the embedding backend.
	// Env: DISEASEKB_AI_*
	AI AIConfig `yaml:"ai" envconfig:"AI"`
}

// Default returns an AppConfig populated with default values.
func Default() *AppConfig {
	aiDefaults := ai.DefaultConfig()
	return &AppConfig{
		Addr:              DefaultAddr,
		SymptomsPath:      DefaultSymptomsPath,
		PrecautionsPath:   DefaultPrecautionsPath,
		MaxSymptomColumns: DefaultMaxSymptomColumns,
		TopK:              DefaultTopK,
		LogLevel:          DefaultLogLevel,
		AI: AIConfig{
			Backend:        string(aiDefaults.Backend),
			EmbeddingHost:  aiDefaults.EmbeddingHost,
			EmbeddingModel: aiDefaults.EmbeddingModel,
			RankingModel:   aiDefaults.RankingModel,
			ModelDir:       aiDefaults.ModelDir,
			Dimension:      aiDefaults.Dimension,
		},
	}
}

// Load builds the configuration from defaults, the YAML file at path, the
// .env file at envFile and the process environment.
// An empty or missing path or envFile is skipped.
func Load(path, envFile string) (*AppConfig, error) {
	cfg := Default()
	if err := cfg.LoadFile(path); err != nil {
		return nil, err
	}
	if err := LoadDotEnv(envFile); err != nil {
		return nil, err
	}
	if err := cfg.ApplyEnv(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFile overlays the YAML file at path onto c. Keys absent from the file
// keep their current values. A missing file is not an error.
func (c *AppConfig) LoadFile(path string) error {
	if path == "" {
		return nil
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("%w: read config file: %w", core.ErrConfiguration, err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("%w: parse config file %s: %w", core.ErrConfiguration, path, err)
	}
	return nil
}

// ApplyEnv overlays DISEASEKB_ environment variables onto c.
func (c *AppConfig) ApplyEnv() error {
	if err := envconfig.Process(EnvPrefix, c); err != nil {
		return fmt.Errorf("%w: environment: %w", core.ErrConfiguration, err)
	}
	return nil
}

// LoadDotEnv loads variables from a .env file without overriding variables
// already set. A missing file is silently skipped.
func LoadDotEnv(path string) error {
	if path == "" {
		return nil
	}
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("%w: load %s: %w", core.ErrConfiguration, path, err)
	}
	return nil
}

// AIOptions converts the AI section into ai.ConfigOptions.
func (c *AppConfig) AIOptions() []ai.ConfigOption {
	return []ai.ConfigOption{
		ai.WithBackend(ai.Backend(c.AI.Backend)),
		ai.WithEmbeddingHost(c.AI.EmbeddingHost),
		ai.WithEmbeddingModel(c.AI.EmbeddingModel),
		ai.WithRankingModel(c.AI.RankingModel),
		ai.WithModelDir(c.AI.ModelDir),
		ai.WithDimension(c.AI.Dimension),
	}
}

// AIConfig returns the normalized provider configuration.
func (c *AppConfig) AIConfig() *ai.Config {
	cfg := ai.NewConfig(c.AIOptions()...)
	cfg.Normalize()
	return cfg
}

// Validate reports the first unusable setting, wrapping core.ErrConfiguration.
func (c *AppConfig) Validate() error {
	if strings.TrimSpace(c.SymptomsPath) == "" {
		return fmt.Errorf("%w: symptoms path is required", core.ErrConfiguration)
	}
	if strings.TrimSpace(c.PrecautionsPath) == "" {
		return fmt.Errorf("%w: precautions path is required", core.ErrConfiguration)
	}
	if c.MaxSymptomColumns <= 0 {
		return fmt.Errorf("%w: max symptom columns must be positive, got %d", core.ErrConfiguration, c.MaxSymptomColumns)
	}
	if c.TopK <= 0 {
		return fmt.Errorf("%w: top_k must be positive, got %d", core.ErrConfiguration, c.TopK)
	}
	if c.PoolSize < 0 {
		return fmt.Errorf("%w: pool size must not be negative, got %d", core.ErrConfiguration, c.PoolSize)
	}
	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("%w: unknown log level %q", core.ErrConfiguration, c.LogLevel)
	}
	return c.AIConfig().Validate()
}
