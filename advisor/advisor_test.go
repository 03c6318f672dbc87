package advisor

import (
	"context"
	"fmt"
	"testing"

	"github.com/poiesic/diseasekb/ai/lexical"
	"github.com/poiesic/diseasekb/ai/mock"
	"github.com/poiesic/diseasekb/core"
	"github.com/poiesic/diseasekb/knowledge"
	"github.com/poiesic/diseasekb/precaution"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var symptoms = []core.DiseaseRecord{
	{Disease: "Flu", Symptoms: []string{"fever", "cough"}},
	{Disease: "Cold", Symptoms: []string{"sneezing", "runny nose"}},
	{Disease: "Malaria", Symptoms: []string{"chills", "fever", "sweating"}},
}

var precautions = []core.PrecautionRecord{
	{Disease: "Flu", Precautions: []string{"rest", "drink fluids"}},
	{Disease: "Malaria", Precautions: []string{"use mosquito net", "", "consult doctor"}},
}

func newKB(t *testing.T) *knowledge.KnowledgeBase {
	t.Helper()
	embedder, err := lexical.NewEmbedder(1024)
	require.NoError(t, err)
	kb, err := knowledge.NewKnowledgeBase(embedder)
	require.NoError(t, err)
	require.NoError(t, kb.Build(context.Background(), symptoms))
	return kb
}

func newStore(t *testing.T) *precaution.Store {
	t.Helper()
	store, err := precaution.NewStore(precautions)
	require.NoError(t, err)
	return store
}

func newAdvisor(t *testing.T, opts ...Option) *Advisor {
	t.Helper()
	a, err := NewAdvisor(newKB(t), newStore(t), opts...)
	require.NoError(t, err)
	t.Cleanup(a.Release)
	return a
}

func TestNewAdvisor_RequiredDependencies(t *testing.T) {
	_, err := NewAdvisor(nil, newStore(t))
	assert.ErrorIs(t, err, ErrRetrieverRequired)

	_, err = NewAdvisor(newKB(t), nil)
	assert.ErrorIs(t, err, ErrPrecautionsRequired)

	_, err = NewAdvisor(newKB(t), newStore(t), WithDefaultTopK(0))
	assert.ErrorIs(t, err, core.ErrInvalidArgument)
}

func TestAdvise_DefaultTopK(t *testing.T) {
	a := newAdvisor(t)

	hits, err := a.Advise(context.Background(), "fever and chills with sweating")
	require.NoError(t, err)

	require.Len(t, hits, DefaultTopK)
	assert.Equal(t, 2, a.DefaultTopK())
	assert.Equal(t, "Malaria", hits[0].Disease)
	assert.Equal(t, []string{"use mosquito net", "consult doctor"}, hits[0].Precautions)
	assert.Equal(t, "Flu", hits[1].Disease)
	assert.Equal(t, []string{"rest", "drink fluids"}, hits[1].Precautions)
}

func TestAdviseTopK_MissingPrecautionsAreEmpty(t *testing.T) {
	a := newAdvisor(t)

	hits, err := a.AdviseTopK(context.Background(), "runny nose sneezing", 3)
	require.NoError(t, err)

	require.Len(t, hits, 3)
	assert.Equal(t, "Cold", hits[0].Disease)
	assert.NotNil(t, hits[0].Precautions)
	assert.Empty(t, hits[0].Precautions)
	assert.Equal(t, "Cold is characterized by the following symptoms: runny nose, sneezing.", hits[0].Description)
}

func TestAdviseTopK_MatchesKnowledgeBaseOrder(t *testing.T) {
	kb := newKB(t)
	a, err := NewAdvisor(kb, newStore(t))
	require.NoError(t, err)
	defer a.Release()
	ctx := context.Background()

	hits, err := a.AdviseTopK(ctx, "fever", 3)
	require.NoError(t, err)
	raw, err := kb.Search(ctx, "fever", 3)
	require.NoError(t, err)

	require.Len(t, hits, len(raw))
	for i := range raw {
		assert.Equal(t, raw[i].Disease, hits[i].Disease)
		assert.Equal(t, raw[i].Similarity, hits[i].Similarity)
	}
}

func TestAdviseTopK_ErrorsPropagate(t *testing.T) {
	unbuilt, err := knowledge.NewKnowledgeBase(mock.NewMockEmbedder())
	require.NoError(t, err)
	a, err := NewAdvisor(unbuilt, newStore(t))
	require.NoError(t, err)
	defer a.Release()

	_, err = a.Advise(context.Background(), "fever")
	assert.ErrorIs(t, err, core.ErrNotBuilt)

	built := newAdvisor(t)
	_, err = built.AdviseTopK(context.Background(), "fever", 0)
	assert.ErrorIs(t, err, core.ErrInvalidArgument)
}

func TestRankedPrecautions(t *testing.T) {
	ranking := mock.NewMockEmbedder()
	ranking.EmbedTextsFunc = func(ctx context.Context, texts []string) ([][]float32, error) {
		vectors := map[string][]float32{
			"I need to hydrate": {1, 0},
			"drink fluids":      {0.9, 0.1},
			"rest":              {0.1, 0.9},
		}
		out := make([][]float32, len(texts))
		for i, text := range texts {
			out[i] = vectors[text]
		}
		return out, nil
	}
	ranker, err := precaution.NewRanker(ranking)
	require.NoError(t, err)
	a := newAdvisor(t, WithRanker(ranker))
	ctx := context.Background()

	ranked, err := a.RankedPrecautions(ctx, "Flu", "I need to hydrate")
	require.NoError(t, err)
	require.Len(t, ranked, 2)
	assert.Equal(t, "drink fluids", ranked[0].Precaution)
	assert.Equal(t, "rest", ranked[1].Precaution)

	ranked, err = a.RankedPrecautions(ctx, "Cold", "I need to hydrate")
	require.NoError(t, err)
	assert.Empty(t, ranked)
}

func TestRankedPrecautions_NotConfigured(t *testing.T) {
	a := newAdvisor(t)

	_, err := a.RankedPrecautions(context.Background(), "Flu", "q")
	assert.ErrorIs(t, err, ErrRankerNotConfigured)
}

func TestAdviseBatch(t *testing.T) {
	a := newAdvisor(t, WithPoolSize(3))
	queries := []string{"cough", "sneezing", "chills", "runny nose", "fever cough", "sweating"}
	want := []string{"Flu", "Cold", "Malaria", "Cold", "Flu", "Malaria"}

	results, err := a.AdviseBatch(context.Background(), queries, 1)
	require.NoError(t, err)

	require.Len(t, results, len(queries))
	for i, hits := range results {
		require.Len(t, hits, 1, "query %d", i)
		assert.Equal(t, want[i], hits[0].Disease, "query %q", queries[i])
	}
}

type failingRetriever struct {
	failOn map[string]error
}

func (f *failingRetriever) Search(ctx context.Context, query string, k int) ([]core.RetrievalHit, error) {
	if err, ok := f.failOn[query]; ok {
		return nil, err
	}
	return []core.RetrievalHit{{Disease: query}}, nil
}

func TestAdviseBatch_FirstFailureReturned(t *testing.T) {
	first := fmt.Errorf("first: %w", core.ErrNotBuilt)
	second := fmt.Errorf("second: %w", assert.AnError)
	retriever := &failingRetriever{failOn: map[string]error{"b": first, "d": second}}
	a, err := NewAdvisor(retriever, newStore(t), WithPoolSize(4))
	require.NoError(t, err)
	defer a.Release()

	_, err = a.AdviseBatch(context.Background(), []string{"a", "b", "c", "d"}, 1)
	assert.ErrorIs(t, err, core.ErrNotBuilt)
	assert.NotErrorIs(t, err, assert.AnError)
}

func TestAdviseBatch_InvalidK(t *testing.T) {
	a := newAdvisor(t)

	_, err := a.AdviseBatch(context.Background(), []string{"fever"}, 0)
	assert.ErrorIs(t, err, core.ErrInvalidArgument)
}

func TestAdviseBatch_CancelledContext(t *testing.T) {
	a := newAdvisor(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := a.AdviseBatch(ctx, []string{"fever", "cough"}, 1)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestAdviseBatch_Empty(t *testing.T) {
	a := newAdvisor(t)

	results, err := a.AdviseBatch(context.Background(), nil, 1)
	require.NoError(t, err)
	assert.Empty(t, results)
}
