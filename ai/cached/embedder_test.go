package cached

import (
	"context"
	"testing"

	"github.com/poiesic/diseasekb/ai/mock"
	"github.com/poiesic/diseasekb/core"
	"github.com/poiesic/diseasekb/storage"
	badgerstore "github.com/poiesic/diseasekb/storage/badger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRepo(t *testing.T) storage.EmbeddingRepository {
	t.Helper()
	repo, _, backend, err := badgerstore.NewMemoryRepositories()
	require.NoError(t, err)
	t.Cleanup(func() { backend.Close() })
	return repo
}

func TestNewEmbedder_RequiredDependencies(t *testing.T) {
	repo := newRepo(t)

	_, err := NewEmbedder(nil, repo, "m")
	assert.ErrorIs(t, err, ErrEmbedderRequired)
	_, err = NewEmbedder(mock.NewMockEmbedder(), nil, "m")
	assert.ErrorIs(t, err, ErrRepositoryRequired)
	_, err = NewEmbedder(mock.NewMockEmbedder(), repo, "")
	assert.ErrorIs(t, err, ErrModelRequired)
}

func TestEmbedder_OnlyMissesReachInner(t *testing.T) {
	ctx := context.Background()
	inner := mock.NewMockEmbedder()
	e, err := NewEmbedder(inner, newRepo(t), "m")
	require.NoError(t, err)

	first, err := e.EmbedTexts(ctx, []string{"fever", "cough"})
	require.NoError(t, err)

	second, err := e.EmbedTexts(ctx, []string{"cough", "rash", "fever"})
	require.NoError(t, err)

	assert.Equal(t, [][]string{{"fever", "cough"}, {"rash"}}, inner.Batches())
	assert.Equal(t, first[1], second[0])
	assert.Equal(t, first[0], second[2])

	direct, err := mock.NewMockEmbedder().EmbedText(ctx, "rash")
	require.NoError(t, err)
	assert.Equal(t, direct, second[1])
}

func TestEmbedder_DuplicateTextsEmbeddedOnce(t *testing.T) {
	inner := mock.NewMockEmbedder()
	e, err := NewEmbedder(inner, newRepo(t), "m")
	require.NoError(t, err)

	vectors, err := e.EmbedTexts(context.Background(), []string{"fever", "fever", "cough"})
	require.NoError(t, err)

	require.Len(t, vectors, 3)
	assert.Equal(t, vectors[0], vectors[1])
	assert.Equal(t, [][]string{{"fever", "cough"}}, inner.Batches())
}

func TestEmbedder_AllHitsSkipInner(t *testing.T) {
	ctx := context.Background()
	inner := mock.NewMockEmbedder()
	e, err := NewEmbedder(inner, newRepo(t), "m")
	require.NoError(t, err)

	_, err = e.EmbedText(ctx, "fever")
	require.NoError(t, err)
	inner.Reset()

	_, err = e.EmbedText(ctx, "fever")
	require.NoError(t, err)
	assert.Equal(t, 0, inner.CallCount())
}

func TestEmbedder_ModelScopesEntries(t *testing.T) {
	ctx := context.Background()
	repo := newRepo(t)
	searchInner := mock.NewMockEmbedder()
	rankingInner := mock.NewMockEmbedder()

	search, err := NewEmbedder(searchInner, repo, "search")
	require.NoError(t, err)
	ranking, err := NewEmbedder(rankingInner, repo, "ranking")
	require.NoError(t, err)

	_, err = search.EmbedText(ctx, "fever")
	require.NoError(t, err)
	_, err = ranking.EmbedText(ctx, "fever")
	require.NoError(t, err)

	assert.Equal(t, 1, searchInner.CallCount())
	assert.Equal(t, 1, rankingInner.CallCount())

	count, err := repo.CountEmbeddings(ctx, "search")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestEmbedder_InnerErrorPropagates(t *testing.T) {
	inner := mock.NewMockEmbedder()
	inner.EmbedTextsFunc = func(ctx context.Context, texts []string) ([][]float32, error) {
		return nil, assert.AnError
	}
	repo := newRepo(t)
	e, err := NewEmbedder(inner, repo, "m")
	require.NoError(t, err)

	_, err = e.EmbedTexts(context.Background(), []string{"fever"})
	assert.ErrorIs(t, err, assert.AnError)

	found, err := repo.GetEmbeddings(context.Background(), core.EmbeddingID("m", "fever"))
	require.NoError(t, err)
	assert.Empty(t, found)
}

func TestEmbedder_EmptyInput(t *testing.T) {
	inner := mock.NewMockEmbedder()
	e, err := NewEmbedder(inner, newRepo(t), "m")
	require.NoError(t, err)

	vectors, err := e.EmbedTexts(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, vectors)
	assert.Equal(t, 0, inner.CallCount())
}

func TestEmbedder_AdmitLimitsWrites(t *testing.T) {
	ctx := context.Background()
	inner := mock.NewMockEmbedder()
	repo := newRepo(t)
	e, err := NewEmbedder(inner, repo, "m", WithAdmit(func(text string) bool {
		return text == "rest"
	}))
	require.NoError(t, err)

	vectors, err := e.EmbedTexts(ctx, []string{"i have a headache", "rest"})
	require.NoError(t, err)
	require.Len(t, vectors, 2)
	assert.NotEmpty(t, vectors[0])

	count, err := repo.CountEmbeddings(ctx, "m")
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	found, err := repo.GetEmbeddings(ctx, core.EmbeddingID("m", "i have a headache"))
	require.NoError(t, err)
	assert.Empty(t, found)

	// rejected texts are embedded again rather than served from the cache
	inner.Reset()
	_, err = e.EmbedText(ctx, "i have a headache")
	require.NoError(t, err)
	assert.Equal(t, 1, inner.CallCount())
}
