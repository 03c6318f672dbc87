package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/poiesic/diseasekb/ai"
	"github.com/poiesic/diseasekb/core"
)

var envVars = []string{
	"DISEASEKB_ADDR",
	"DISEASEKB_SYMPTOMS",
	"DISEASEKB_PRECAUTIONS",
	"DISEASEKB_MAX_SYMPTOM_COLUMNS",
	"DISEASEKB_CACHE",
	"DISEASEKB_TOP_K",
	"DISEASEKB_POOL_SIZE",
	"DISEASEKB_LOG_LEVEL",
	"DISEASEKB_AI_BACKEND",
	"DISEASEKB_AI_EMBEDDING_HOST",
	"DISEASEKB_AI_EMBEDDING_MODEL",
	"DISEASEKB_AI_RANKING_MODEL",
	"DISEASEKB_AI_MODEL_DIR",
	"DISEASEKB_AI_DIMENSION",
}

// clearEnvVars unsets every variable for the duration of the test.
func clearEnvVars(t *testing.T) {
	t.Helper()
	for _, name := range envVars {
		if value, ok := os.LookupEnv(name); ok {
			require.NoError(t, os.Unsetenv(name))
			t.Cleanup(func() { os.Setenv(name, value) })
		}
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnvVars(t)

	cfg, err := Load("", "")
	require.NoError(t, err)

	assert.Equal(t, Default(), cfg)
	assert.Equal(t, DefaultAddr, cfg.Addr)
	assert.Equal(t, DefaultTopK, cfg.TopK)
	assert.Equal(t, "hugot", cfg.AI.Backend)
	assert.NoError(t, cfg.Validate())
}

func TestLoad_MissingFilesAreSkipped(t *testing.T) {
	clearEnvVars(t)
	dir := t.TempDir()

	cfg, err := Load(filepath.Join(dir, "absent.yaml"), filepath.Join(dir, ".env"))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoad_YAMLFile(t *testing.T) {
	clearEnvVars(t)
	path := filepath.Join(t.TempDir(), "diseasekb.yaml")
	content := `
addr: ":9000"
top_k: 4
ai:
  backend: lexical
  dimension: 512
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := Load(path, "")
	require.NoError(t, err)

	assert.Equal(t, ":9000", cfg.Addr)
	assert.Equal(t, 4, cfg.TopK)
	assert.Equal(t, "lexical", cfg.AI.Backend)
	assert.Equal(t, 512, cfg.AI.Dimension)
	// untouched keys keep defaults
	assert.Equal(t, DefaultSymptomsPath, cfg.SymptomsPath)
	assert.Equal(t, ai.DefaultConfig().EmbeddingModel, cfg.AI.EmbeddingModel)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	clearEnvVars(t)
	path := filepath.Join(t.TempDir(), "diseasekb.yaml")
	require.NoError(t, os.WriteFile(path, []byte("top_k: 4\nai:\n  backend: lexical\n"), 0o644))

	t.Setenv("DISEASEKB_TOP_K", "6")
	t.Setenv("DISEASEKB_AI_BACKEND", "openai")
	t.Setenv("DISEASEKB_AI_EMBEDDING_HOST", "http://embed:8080")

	cfg, err := Load(path, "")
	require.NoError(t, err)

	assert.Equal(t, 6, cfg.TopK)
	assert.Equal(t, "openai", cfg.AI.Backend)
	assert.Equal(t, "http://embed:8080/v1", cfg.AIConfig().EmbeddingHost)
}

func TestLoad_DotEnv(t *testing.T) {
	clearEnvVars(t)
	envFile := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(envFile, []byte("DISEASEKB_CACHE=/tmp/cache\n"), 0o644))
	t.Cleanup(func() { os.Unsetenv("DISEASEKB_CACHE") })

	cfg, err := Load("", envFile)
	require.NoError(t, err)
	assert.Equal(t, "/tmp/cache", cfg.CachePath)
}

func TestLoad_InvalidInputs(t *testing.T) {
	clearEnvVars(t)
	dir := t.TempDir()

	badYAML := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(badYAML, []byte("top_k: [1, 2\n"), 0o644))
	_, err := Load(badYAML, "")
	assert.ErrorIs(t, err, core.ErrConfiguration)

	t.Setenv("DISEASEKB_TOP_K", "many")
	_, err = Load("", "")
	assert.ErrorIs(t, err, core.ErrConfiguration)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*AppConfig)
	}{
		{name: "empty symptoms path", modify: func(c *AppConfig) { c.SymptomsPath = " " }},
		{name: "empty precautions path", modify: func(c *AppConfig) { c.PrecautionsPath = "" }},
		{name: "zero max columns", modify: func(c *AppConfig) { c.MaxSymptomColumns = 0 }},
		{name: "zero top k", modify: func(c *AppConfig) { c.TopK = 0 }},
		{name: "negative pool size", modify: func(c *AppConfig) { c.PoolSize = -1 }},
		{name: "unknown log level", modify: func(c *AppConfig) { c.LogLevel = "loud" }},
		{name: "unknown backend", modify: func(c *AppConfig) { c.AI.Backend = "magic" }},
		{name: "openai without host", modify: func(c *AppConfig) {
			c.AI.Backend = "openai"
			c.AI.EmbeddingHost = ""
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.modify(cfg)
			assert.ErrorIs(t, cfg.Validate(), core.ErrConfiguration)
		})
	}
}

func TestAIConfig(t *testing.T) {
	cfg := Default()
	cfg.AI.Backend = " Lexical "
	cfg.AI.Dimension = 256

	aiCfg := cfg.AIConfig()
	assert.Equal(t, ai.BackendLexical, aiCfg.Backend)
	assert.Equal(t, 256, aiCfg.Dimension)
	assert.NoError(t, aiCfg.Validate())
}
