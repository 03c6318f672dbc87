package diseasekb

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/poiesic/diseasekb/ai"
	"github.com/poiesic/diseasekb/ai/mock"
	"github.com/poiesic/diseasekb/core"
)

const (
	symptomsCSV = "Disease,Symptom_1,Symptom_2,Symptom_3\n" +
		"Flu,fever,cough,\n" +
		"Flu, cough,fever,\n" +
		"Cold,sneezing,runny nose,\n" +
		"Malaria,chills,fever,sweating\n"

	precautionsCSV = "Disease,Precaution_1,Precaution_2,Precaution_3,Precaution_4\n" +
		"Flu,rest,drink fluids,,\n" +
		"Malaria,use mosquito net,consult doctor,,\n"
)

func writeDatasets(t *testing.T) (string, string) {
	t.Helper()
	dir := t.TempDir()
	symptoms := filepath.Join(dir, "DiseaseAndSymptoms.csv")
	precautions := filepath.Join(dir, "Disease precaution.csv")
	require.NoError(t, os.WriteFile(symptoms, []byte(symptomsCSV), 0o644))
	require.NoError(t, os.WriteFile(precautions, []byte(precautionsCSV), 0o644))
	return symptoms, precautions
}

func lexicalConfig() *ai.Config {
	return ai.NewConfig(ai.WithBackend(ai.BackendLexical), ai.WithDimension(1024))
}

func TestBootstrap_Lexical(t *testing.T) {
	ctx := context.Background()
	symptoms, precautions := writeDatasets(t)

	engine, err := Bootstrap(ctx,
		WithSymptomsPath(symptoms),
		WithPrecautionsPath(precautions),
		WithAIConfig(lexicalConfig()),
		WithPoolSize(2),
	)
	require.NoError(t, err)
	defer engine.Close()

	assert.Equal(t, 3, engine.KnowledgeBase().Len())
	assert.Equal(t, 2, engine.Precautions().Len())
	assert.Nil(t, engine.ManifestRepository())
	assert.Nil(t, engine.EmbeddingRepository())

	hits, err := engine.Advisor().AdviseTopK(ctx, "I have a fever and cough", 1)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "Flu", hits[0].Disease)
	assert.Equal(t, "Flu is characterized by the following symptoms: cough, fever.", hits[0].Description)
	assert.Equal(t, []string{"rest", "drink fluids"}, hits[0].Precautions)

	hits, err = engine.Advisor().Advise(ctx, "I have a fever and cough")
	require.NoError(t, err)
	assert.Len(t, hits, 2)
}

func TestBootstrap_DefaultTopK(t *testing.T) {
	symptoms, precautions := writeDatasets(t)

	engine, err := Bootstrap(context.Background(),
		WithSymptomsPath(symptoms),
		WithPrecautionsPath(precautions),
		WithAIConfig(lexicalConfig()),
		WithDefaultTopK(3),
	)
	require.NoError(t, err)
	defer engine.Close()

	assert.Equal(t, 3, engine.Advisor().DefaultTopK())
}

func TestBootstrap_DatasetErrors(t *testing.T) {
	symptoms, precautions := writeDatasets(t)
	missing := filepath.Join(t.TempDir(), "missing.csv")

	tests := []struct {
		name        string
		symptoms    string
		precautions string
	}{
		{name: "missing symptoms", symptoms: missing, precautions: precautions},
		{name: "missing precautions", symptoms: symptoms, precautions: missing},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			provider := mock.NewMockProviderWithServices(mock.NewMockEmbedder(), nil)

			engine, err := Bootstrap(context.Background(),
				WithSymptomsPath(tt.symptoms),
				WithPrecautionsPath(tt.precautions),
				WithProvider(provider),
			)
			assert.ErrorIs(t, err, core.ErrConfiguration)
			assert.Nil(t, engine)
			assert.True(t, provider.Closed())
		})
	}
}

func TestBootstrap_InvalidAIConfig(t *testing.T) {
	symptoms, precautions := writeDatasets(t)

	_, err := Bootstrap(context.Background(),
		WithSymptomsPath(symptoms),
		WithPrecautionsPath(precautions),
		WithAIConfig(ai.NewConfig(ai.WithBackend("quantum"))),
	)
	assert.ErrorIs(t, err, core.ErrConfiguration)
}

func TestBootstrap_ProviderOwnership(t *testing.T) {
	symptoms, precautions := writeDatasets(t)
	provider := mock.NewMockProviderWithServices(mock.NewMockEmbedder(), nil)

	engine, err := Bootstrap(context.Background(),
		WithSymptomsPath(symptoms),
		WithPrecautionsPath(precautions),
		WithProvider(provider),
	)
	require.NoError(t, err)
	assert.False(t, provider.Closed())

	require.NoError(t, engine.Close())
	assert.True(t, provider.Closed())
}

func TestBootstrap_EmbedFailureClosesProvider(t *testing.T) {
	symptoms, precautions := writeDatasets(t)
	embedder := mock.NewMockEmbedder()
	embedder.EmbedTextsFunc = func(context.Context, []string) ([][]float32, error) {
		return nil, assert.AnError
	}
	provider := mock.NewMockProviderWithServices(embedder, nil)

	_, err := Bootstrap(context.Background(),
		WithSymptomsPath(symptoms),
		WithPrecautionsPath(precautions),
		WithProvider(provider),
	)
	assert.ErrorIs(t, err, assert.AnError)
	assert.True(t, provider.Closed())
}

func TestBootstrap_CacheAvoidsReembedding(t *testing.T) {
	ctx := context.Background()
	symptoms, precautions := writeDatasets(t)
	cachePath := filepath.Join(t.TempDir(), "cache")

	first := mock.NewMockEmbedder()
	engine, err := Bootstrap(ctx,
		WithSymptomsPath(symptoms),
		WithPrecautionsPath(precautions),
		WithProvider(mock.NewMockProviderWithServices(first, nil)),
		WithCachePath(cachePath),
	)
	require.NoError(t, err)

	require.Len(t, first.Batches(), 1)
	assert.Len(t, first.Batches()[0], 3)

	manifest, err := engine.ManifestRepository().LoadManifest(ctx, "mock")
	require.NoError(t, err)
	assert.Equal(t, 3, manifest.Entries)
	assert.Equal(t, engine.KnowledgeBase().Fingerprint(), manifest.Fingerprint)

	count, err := engine.EmbeddingRepository().CountEmbeddings(ctx, "mock")
	require.NoError(t, err)
	assert.Equal(t, 3, count)
	require.NoError(t, engine.Close())

	second := mock.NewMockEmbedder()
	engine, err = Bootstrap(ctx,
		WithSymptomsPath(symptoms),
		WithPrecautionsPath(precautions),
		WithProvider(mock.NewMockProviderWithServices(second, nil)),
		WithCachePath(cachePath),
	)
	require.NoError(t, err)
	defer engine.Close()

	assert.Equal(t, 0, second.CallCount())
	assert.Equal(t, 3, engine.KnowledgeBase().Len())
}

func TestBootstrap_SkipBuild(t *testing.T) {
	ctx := context.Background()
	symptoms, precautions := writeDatasets(t)

	engine, err := Bootstrap(ctx,
		WithSymptomsPath(symptoms),
		WithPrecautionsPath(precautions),
		WithAIConfig(lexicalConfig()),
		WithSkipBuild(),
	)
	require.NoError(t, err)
	defer engine.Close()

	assert.False(t, engine.KnowledgeBase().Built())
	_, err = engine.Advisor().Advise(ctx, "fever")
	assert.ErrorIs(t, err, core.ErrNotBuilt)

	require.NoError(t, engine.Build(ctx))
	hits, err := engine.Advisor().Advise(ctx, "fever")
	require.NoError(t, err)
	assert.NotEmpty(t, hits)
}

func TestEngine_DescriptionTexts(t *testing.T) {
	symptoms, precautions := writeDatasets(t)

	engine, err := Bootstrap(context.Background(),
		WithSymptomsPath(symptoms),
		WithPrecautionsPath(precautions),
		WithAIConfig(lexicalConfig()),
		WithSkipBuild(),
	)
	require.NoError(t, err)
	defer engine.Close()

	assert.Equal(t, []string{
		"Cold is characterized by the following symptoms: runny nose, sneezing.",
		"Flu is characterized by the following symptoms: cough, fever.",
		"Malaria is characterized by the following symptoms: chills, fever, sweating.",
	}, engine.DescriptionTexts())
}

func TestModelNames(t *testing.T) {
	search, ranking := ModelNames(lexicalConfig())
	assert.Equal(t, "lexical-1024", search)
	assert.Equal(t, "lexical-1024", ranking)

	search, ranking = ModelNames(ai.DefaultConfig())
	assert.Equal(t, "sentence-transformers/all-MiniLM-L12-v2", search)
	assert.Equal(t, "sentence-transformers/all-MiniLM-L6-v2", ranking)
}

func TestNewProvider(t *testing.T) {
	provider, err := NewProvider(lexicalConfig())
	require.NoError(t, err)
	defer provider.Close()
	assert.NotNil(t, provider.Embedder())

	openaiProvider, err := NewProvider(ai.NewConfig(
		ai.WithBackend(ai.BackendOpenAI),
		ai.WithEmbeddingHost("http://localhost:11434"),
	))
	require.NoError(t, err)
	defer openaiProvider.Close()

	_, err = NewProvider(ai.NewConfig(ai.WithModelDir(t.TempDir())))
	assert.ErrorIs(t, err, core.ErrConfiguration)
}

func TestEngine_QueriesAreNotCached(t *testing.T) {
	ctx := context.Background()
	symptoms, precautions := writeDatasets(t)

	engine, err := Bootstrap(ctx,
		WithSymptomsPath(symptoms),
		WithPrecautionsPath(precautions),
		WithProvider(mock.NewMockProviderWithServices(mock.NewMockEmbedder(), nil)),
		WithCachePath(filepath.Join(t.TempDir(), "cache")),
	)
	require.NoError(t, err)
	defer engine.Close()

	repo := engine.EmbeddingRepository()
	before, err := repo.CountEmbeddings(ctx, "mock")
	require.NoError(t, err)
	assert.Equal(t, 3, before)

	queries := []string{"high fever and cough", "sneezing all day", "chills at night"}
	for _, query := range queries {
		_, err := engine.Advisor().Advise(ctx, query)
		require.NoError(t, err)
	}
	_, err = engine.Advisor().AdviseBatch(ctx, queries, 1)
	require.NoError(t, err)

	after, err := repo.CountEmbeddings(ctx, "mock")
	require.NoError(t, err)
	assert.Equal(t, before, after)

	// ranking stores the precautions but not the query
	_, err = engine.Advisor().RankedPrecautions(ctx, "Flu", "feeling thirsty")
	require.NoError(t, err)
	after, err = repo.CountEmbeddings(ctx, "mock")
	require.NoError(t, err)
	assert.Equal(t, before+2, after)

	found, err := repo.GetEmbeddings(ctx, core.EmbeddingID("mock", "feeling thirsty"))
	require.NoError(t, err)
	assert.Empty(t, found)
}
