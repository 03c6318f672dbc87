package knowledge

import (
	"context"
	"sync"
	"testing"

	"github.com/poiesic/diseasekb/ai/lexical"
	"github.com/poiesic/diseasekb/ai/mock"
	"github.com/poiesic/diseasekb/core"
	"github.com/poiesic/diseasekb/index"
	badgerstore "github.com/poiesic/diseasekb/storage/badger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fluCold = []core.DiseaseRecord{
	{Disease: "Flu", Symptoms: []string{"fever", "cough"}},
	{Disease: "Cold", Symptoms: []string{"sneezing", "runny nose"}},
}

func newLexicalKB(t *testing.T, opts ...Option) *KnowledgeBase {
	t.Helper()
	embedder, err := lexical.NewEmbedder(1024)
	require.NoError(t, err)
	kb, err := NewKnowledgeBase(embedder, opts...)
	require.NoError(t, err)
	return kb
}

func TestNewKnowledgeBase_EmbedderRequired(t *testing.T) {
	_, err := NewKnowledgeBase(nil)
	assert.ErrorIs(t, err, ErrEmbedderRequired)
}

func TestNewKnowledgeBase_InvalidOptions(t *testing.T) {
	_, err := NewKnowledgeBase(mock.NewMockEmbedder(), WithDefaultTopK(0))
	assert.ErrorIs(t, err, core.ErrInvalidArgument)

	_, err = NewKnowledgeBase(mock.NewMockEmbedder(), WithIndexFactory(nil))
	assert.ErrorIs(t, err, core.ErrConfiguration)
}

func TestSearch_FluCold(t *testing.T) {
	kb := newLexicalKB(t)
	ctx := context.Background()
	require.NoError(t, kb.Build(ctx, fluCold))

	hits, err := kb.Search(ctx, "I have a fever and cough", 1)
	require.NoError(t, err)

	require.Len(t, hits, 1)
	assert.Equal(t, "Flu", hits[0].Disease)
	assert.Equal(t, "Flu is characterized by the following symptoms: cough, fever.", hits[0].Description)
	assert.Greater(t, hits[0].Similarity, float32(0))
	assert.Nil(t, hits[0].Precautions)
}

func TestSearch_BeforeBuild(t *testing.T) {
	kb := newLexicalKB(t)

	_, err := kb.Search(context.Background(), "fever", 1)
	assert.ErrorIs(t, err, core.ErrNotBuilt)

	// not-built takes precedence over an invalid k
	_, err = kb.Search(context.Background(), "fever", 0)
	assert.ErrorIs(t, err, core.ErrNotBuilt)

	assert.False(t, kb.Built())
	assert.Zero(t, kb.Len())
	assert.Zero(t, kb.Dimension())
	assert.Nil(t, kb.Descriptions())
}

func TestSearch_TopK(t *testing.T) {
	kb := newLexicalKB(t)
	ctx := context.Background()
	records := append([]core.DiseaseRecord{
		{Disease: "Malaria", Symptoms: []string{"chills", "fever", "sweating"}},
	}, fluCold...)
	require.NoError(t, kb.Build(ctx, records))

	tests := []struct {
		name    string
		k       int
		wantLen int
		wantErr error
	}{
		{name: "one", k: 1, wantLen: 1},
		{name: "all", k: 3, wantLen: 3},
		{name: "larger than catalog", k: 50, wantLen: 3},
		{name: "zero", k: 0, wantErr: core.ErrInvalidArgument},
		{name: "negative", k: -1, wantErr: core.ErrInvalidArgument},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hits, err := kb.Search(ctx, "fever and chills", tt.k)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			require.Len(t, hits, tt.wantLen)
			for i := 1; i < len(hits); i++ {
				assert.GreaterOrEqual(t, hits[i-1].Similarity, hits[i].Similarity)
			}
			assert.Equal(t, "Malaria", hits[0].Disease)
		})
	}
}

func TestSearchDefault(t *testing.T) {
	ctx := context.Background()
	records := []core.DiseaseRecord{
		{Disease: "A", Symptoms: []string{"a"}},
		{Disease: "B", Symptoms: []string{"b"}},
		{Disease: "C", Symptoms: []string{"c"}},
		{Disease: "D", Symptoms: []string{"d"}},
	}

	kb := newLexicalKB(t)
	require.NoError(t, kb.Build(ctx, records))
	hits, err := kb.SearchDefault(ctx, "a")
	require.NoError(t, err)
	assert.Len(t, hits, DefaultTopK)

	kb = newLexicalKB(t, WithDefaultTopK(2))
	require.NoError(t, kb.Build(ctx, records))
	hits, err = kb.SearchDefault(ctx, "a")
	require.NoError(t, err)
	assert.Len(t, hits, 2)
}

func TestSearch_TiesKeepCatalogOrder(t *testing.T) {
	embedder := mock.NewMockEmbedder()
	embedder.EmbedTextsFunc = func(ctx context.Context, texts []string) ([][]float32, error) {
		out := make([][]float32, len(texts))
		for i := range texts {
			out[i] = []float32{1, 0}
		}
		return out, nil
	}
	embedder.EmbedTextFunc = func(ctx context.Context, text string) ([]float32, error) {
		return []float32{1, 0}, nil
	}
	kb, err := NewKnowledgeBase(embedder)
	require.NoError(t, err)
	ctx := context.Background()
	require.NoError(t, kb.Build(ctx, []core.DiseaseRecord{{Disease: "Zika"}, {Disease: "Acne"}, {Disease: "Malaria"}}))

	hits, err := kb.Search(ctx, "anything", 3)
	require.NoError(t, err)
	assert.Equal(t, []string{"Acne", "Malaria", "Zika"}, diseases(hits))
}

func TestBuild_SingleBatchCall(t *testing.T) {
	embedder := mock.NewMockEmbedder()
	kb, err := NewKnowledgeBase(embedder)
	require.NoError(t, err)

	require.NoError(t, kb.Build(context.Background(), fluCold))

	assert.Equal(t, [][]string{{
		"Cold is characterized by the following symptoms: runny nose, sneezing.",
		"Flu is characterized by the following symptoms: cough, fever.",
	}}, embedder.Batches())
	assert.Equal(t, 2, kb.Len())
	assert.Equal(t, mock.DefaultDimension, kb.Dimension())
}

func TestBuild_NormalizesVectors(t *testing.T) {
	embedder := mock.NewMockEmbedder()
	embedder.EmbedTextsFunc = func(ctx context.Context, texts []string) ([][]float32, error) {
		return [][]float32{{3, 4}, {0, 10}}, nil
	}
	embedder.EmbedTextFunc = func(ctx context.Context, text string) ([]float32, error) {
		return []float32{0, 5}, nil
	}
	kb, err := NewKnowledgeBase(embedder)
	require.NoError(t, err)
	ctx := context.Background()
	require.NoError(t, kb.Build(ctx, fluCold))

	hits, err := kb.Search(ctx, "q", 2)
	require.NoError(t, err)
	assert.Equal(t, "Flu", hits[0].Disease)
	assert.InDelta(t, 1.0, hits[0].Similarity, 1e-6)
	assert.Equal(t, "Cold", hits[1].Disease)
	assert.InDelta(t, 0.8, hits[1].Similarity, 1e-6)
}

func TestBuild_Deterministic(t *testing.T) {
	ctx := context.Background()
	a := newLexicalKB(t)
	b := newLexicalKB(t)
	require.NoError(t, a.Build(ctx, fluCold))
	require.NoError(t, b.Build(ctx, fluCold))

	assert.Equal(t, a.Descriptions(), b.Descriptions())
	assert.Equal(t, a.Fingerprint(), b.Fingerprint())

	ha, err := a.Search(ctx, "runny nose", 2)
	require.NoError(t, err)
	hb, err := b.Search(ctx, "runny nose", 2)
	require.NoError(t, err)
	assert.Equal(t, ha, hb)
}

func TestBuild_InvalidInput(t *testing.T) {
	tests := []struct {
		name    string
		records []core.DiseaseRecord
	}{
		{name: "empty", records: nil},
		{name: "only blank diseases", records: []core.DiseaseRecord{{Disease: " ", Symptoms: []string{"fever"}}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			kb := newLexicalKB(t)
			err := kb.Build(context.Background(), tt.records)
			assert.ErrorIs(t, err, core.ErrConfiguration)
			assert.False(t, kb.Built())
		})
	}
}

func TestBuild_FailureKeepsPreviousIndex(t *testing.T) {
	embedder := mock.NewMockEmbedder()
	kb, err := NewKnowledgeBase(embedder)
	require.NoError(t, err)
	ctx := context.Background()
	require.NoError(t, kb.Build(ctx, fluCold))

	embedder.EmbedTextsFunc = func(ctx context.Context, texts []string) ([][]float32, error) {
		return nil, assert.AnError
	}
	err = kb.Build(ctx, []core.DiseaseRecord{{Disease: "Malaria", Symptoms: []string{"chills"}}})
	require.ErrorIs(t, err, assert.AnError)

	assert.True(t, kb.Built())
	assert.Equal(t, []string{"Cold", "Flu"}, diseaseNames(kb.Descriptions()))
	_, err = kb.Search(ctx, "fever", 1)
	assert.NoError(t, err)
}

func TestBuild_EmbeddingMismatch(t *testing.T) {
	tests := []struct {
		name    string
		vectors [][]float32
	}{
		{name: "too few vectors", vectors: [][]float32{{1, 0}}},
		{name: "ragged dimensions", vectors: [][]float32{{1, 0}, {1, 0, 0}}},
		{name: "empty vectors", vectors: [][]float32{{}, {}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			embedder := mock.NewMockEmbedder()
			embedder.EmbedTextsFunc = func(ctx context.Context, texts []string) ([][]float32, error) {
				return tt.vectors, nil
			}
			kb, err := NewKnowledgeBase(embedder)
			require.NoError(t, err)

			err = kb.Build(context.Background(), fluCold)
			assert.ErrorIs(t, err, ErrEmbeddingMismatch)
			assert.False(t, kb.Built())
		})
	}
}

func TestSearch_EmbedderErrorPropagates(t *testing.T) {
	embedder := mock.NewMockEmbedder()
	kb, err := NewKnowledgeBase(embedder)
	require.NoError(t, err)
	ctx := context.Background()
	require.NoError(t, kb.Build(ctx, fluCold))

	embedder.EmbedTextFunc = func(ctx context.Context, text string) ([]float32, error) {
		return nil, assert.AnError
	}
	_, err = kb.Search(ctx, "fever", 1)
	assert.ErrorIs(t, err, assert.AnError)
}

func TestBuild_RecordsManifest(t *testing.T) {
	_, manifests, backend, err := badgerstore.NewMemoryRepositories()
	require.NoError(t, err)
	defer backend.Close()
	ctx := context.Background()

	kb := newLexicalKB(t, WithManifestRepository(manifests))
	require.NoError(t, kb.Build(ctx, fluCold))

	manifest, err := manifests.LoadManifest(ctx, "lexical-1024")
	require.NoError(t, err)
	assert.Equal(t, 2, manifest.Entries)
	assert.Equal(t, 1024, manifest.Dimension)
	assert.Equal(t, kb.Fingerprint(), manifest.Fingerprint)
}

func TestWithIndexFactory(t *testing.T) {
	var dims []int
	factory := func(dimension int) (index.Index, error) {
		dims = append(dims, dimension)
		return index.NewFlat(dimension)
	}
	kb := newLexicalKB(t, WithIndexFactory(factory))

	require.NoError(t, kb.Build(context.Background(), fluCold))
	assert.Equal(t, []int{1024}, dims)
}

type recordingMonitor struct {
	noopMonitor
	query string
	k     int
	hits  []core.RetrievalHit
}

func (m *recordingMonitor) Start(query string, k int)       { m.query, m.k = query, k }
func (m *recordingMonitor) Finish(hits []core.RetrievalHit) { m.hits = hits }

func TestSearchWithMonitor(t *testing.T) {
	kb := newLexicalKB(t)
	ctx := context.Background()
	require.NoError(t, kb.Build(ctx, fluCold))

	monitor := &recordingMonitor{}
	hits, err := kb.SearchWithMonitor(ctx, "sneezing", 2, monitor)
	require.NoError(t, err)

	assert.Equal(t, "sneezing", monitor.query)
	assert.Equal(t, 2, monitor.k)
	assert.Equal(t, hits, monitor.hits)
}

func TestSearch_Concurrent(t *testing.T) {
	kb := newLexicalKB(t)
	ctx := context.Background()
	require.NoError(t, kb.Build(ctx, fluCold))

	var wg sync.WaitGroup
	errs := make(chan error, 32)
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			hits, err := kb.Search(ctx, "fever cough", 1)
			if err == nil && hits[0].Disease != "Flu" {
				err = assert.AnError
			}
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		assert.NoError(t, err)
	}
}

func diseases(hits []core.RetrievalHit) []string {
	out := make([]string, len(hits))
	for i, h := range hits {
		out[i] = h.Disease
	}
	return out
}

func diseaseNames(descriptions []core.CanonicalDescription) []string {
	out := make([]string, len(descriptions))
	for i, d := range descriptions {
		out[i] = d.Disease
	}
	return out
}
