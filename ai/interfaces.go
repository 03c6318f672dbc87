package ai

import "context"

// Embedder generates vector embeddings from text for semantic similarity search.
// Implementations must be thread-safe for concurrent use and deterministic for
// a fixed model: the same text always yields the same vector.
type Embedder interface {
	// EmbedText generates a vector embedding for a single text string.
	// Returns an error if the embedding generation fails.
	EmbedText(ctx context.Context, text string) ([]float32, error)

	// EmbedTexts generates vector embeddings for multiple text strings in a batch.
	// The returned slice contains embeddings in the same order as the input texts,
	// all of the same dimension.
	// Returns an error if any embedding generation fails.
	EmbedTexts(ctx context.Context, texts []string) ([][]float32, error)
}

// ModelNamer is implemented by embedders that can report the model they run.
// Cache keys and index manifests are scoped by this name.
type ModelNamer interface {
	ModelName() string
}

// AIProvider aggregates the embedding services used for retrieval.
// The search and ranking embedders may be backed by different models.
type AIProvider interface {
	// Embedder returns the embedder for disease descriptions and symptom queries.
	// The returned Embedder is safe for concurrent use.
	Embedder() Embedder

	// RankingEmbedder returns the embedder used to re-rank precautions.
	// The returned Embedder is safe for concurrent use.
	RankingEmbedder() Embedder

	// Close releases resources held by the provider and its services.
	// After Close is called, the provider and its services should not be used.
	Close() error
}
