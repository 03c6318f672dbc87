package storage

import (
	"context"

	"github.com/poiesic/diseasekb/core"
)

// Repository provides common storage operations shared across all repositories.
// Implementations must be thread-safe and support concurrent access.
type Repository interface {
	// Close closes the storage backend and releases resources.
	Close() error
}

// EmbeddingRepository persists embedding vectors keyed by core.EmbeddingID.
type EmbeddingRepository interface {
	Repository

	// GetEmbeddings retrieves cached embeddings by ID.
	// Returns only the records that exist (no error for missing records).
	GetEmbeddings(ctx context.Context, ids ...core.ID) (map[core.ID]*core.CachedEmbedding, error)

	// PutEmbeddings stores embeddings, replacing any existing record with the same ID.
	// Records with ID=0 get core.EmbeddingID(Model, Text).
	// Sets InsertedAt if not already set.
	PutEmbeddings(ctx context.Context, records ...*core.CachedEmbedding) error

	// CountEmbeddings returns the number of cached embeddings for a model.
	CountEmbeddings(ctx context.Context, model string) (int, error)
}

// ManifestRepository records the last successful knowledge base build per model.
type ManifestRepository interface {
	Repository

	// SaveManifest stores the manifest for manifest.Model, replacing any previous one.
	SaveManifest(ctx context.Context, manifest *core.IndexManifest) error

	// LoadManifest retrieves the manifest for a model.
	// Returns ErrNotFound if no build was recorded.
	LoadManifest(ctx context.Context, model string) (*core.IndexManifest, error)
}
