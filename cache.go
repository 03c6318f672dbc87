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

package diseasekb

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/poiesic/diseasekb/storage"
	"github.com/poiesic/diseasekb/storage/badger"
)

// Cache is the persistent store for embeddings and index manifests.
type Cache struct {
	backend    *badger.Backend
	embeddings *badger.EmbeddingRepository
	manifests  *badger.ManifestRepository
	logger     *slog.Logger
}

// OpenCache opens or creates the cache directory at path.
func OpenCache(path string, logger *slog.Logger) (*Cache, error) {
	if logger == nil {
		logger = slog.Default()
	}

	backend, err := badger.OpenBackend(path, false, logger)
	if err != nil {
		return nil, fmt.Errorf("open cache %s: %w", path, err)
	}

	embeddings, err := badger.NewEmbeddingRepository(backend)
	if err != nil {
		backend.Close()
		return nil, err
	}

	manifests, err := badger.NewManifestRepository(backend)
	if err != nil {
		embeddings.Close()
		backend.Close()
		return nil, err
	}

	return &Cache{
		backend:    backend,
		embeddings: embeddings,
		manifests:  manifests,
		logger:     logger.With("component", "cache"),
	}, nil
}

// Embeddings returns the embedding repository.
func (c *Cache) Embeddings() storage.EmbeddingRepository {
	return c.embeddings
}

// Manifests returns the manifest repository.
func (c *Cache) Manifests() storage.ManifestRepository {
	return c.manifests
}

// Close closes the repositories and then the backend.
func (c *Cache) Close() error {
	var errs []error
	if err := c.manifests.Close(); err != nil {
		c.logger.Error("error closing manifest repository", "err", err)
		errs = append(errs, err)
	}
	if err := c.embeddings.Close(); err != nil {
		c.logger.Error("error closing embedding repository", "err", err)
		errs = append(errs, err)
	}
	if err := c.backend.Close(); err != nil {
		c.logger.Error("error closing backend storage", "err", err)
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}
