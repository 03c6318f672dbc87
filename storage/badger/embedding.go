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

package badger

import (
	"context"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/poiesic/diseasekb/core"
	"github.com/poiesic/diseasekb/storage"
)

// EmbeddingRepository implements storage.EmbeddingRepository for BadgerDB.
type EmbeddingRepository struct {
	backend *Backend
}

var _ storage.EmbeddingRepository = (*EmbeddingRepository)(nil)

// NewEmbeddingRepository creates a new EmbeddingRepository.
func NewEmbeddingRepository(backend *Backend) (*EmbeddingRepository, error) {
	if backend == nil || backend.IsClosed() {
		return nil, storage.ErrStorageClosed
	}
	return &EmbeddingRepository{backend: backend}, nil
}

// Close is a no-op; the backend is owned by the caller.
func (r *EmbeddingRepository) Close() error {
	return nil
}

// GetEmbeddings retrieves cached embeddings by ID. Missing IDs are omitted.
func (r *EmbeddingRepository) GetEmbeddings(ctx context.Context, ids ...core.ID) (map[core.ID]*core.CachedEmbedding, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if r.backend.IsClosed() {
		return nil, storage.ErrStorageClosed
	}

	found := make(map[core.ID]*core.CachedEmbedding, len(ids))
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		for _, id := range ids {
			item, err := tx.Get(makeEmbeddingKey(id))
			if err != nil {
				if err == badger.ErrKeyNotFound {
					continue
				}
				return err
			}
			err = item.Value(func(val []byte) error {
				record, err := storage.UnmarshalCachedEmbedding(val)
				if err != nil {
					return err
				}
				found[id] = record
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	}, false)
	if err != nil {
		return nil, err
	}
	return found, nil
}

// PutEmbeddings stores embeddings, overwriting existing records with the same ID.
func (r *EmbeddingRepository) PutEmbeddings(ctx context.Context, records ...*core.CachedEmbedding) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if r.backend.IsClosed() {
		return storage.ErrStorageClosed
	}

	now := core.StorableTime(time.Now())
	return r.backend.WithWriteBatch(func(wb *badger.WriteBatch) error {
		for _, record := range records {
			if record.Id == 0 {
				record.Id = core.EmbeddingID(record.Model, record.Text)
			}
			if record.InsertedAt.IsZero() {
				record.InsertedAt = now
			} else {
				record.InsertedAt = core.StorableTime(record.InsertedAt)
			}
			if err := wb.Set(makeEmbeddingKey(record.Id), storage.MarshalCachedEmbedding(record)); err != nil {
				return err
			}
			if err := wb.Set(makeEmbeddingModelKey(record.Model, record.Id), nil); err != nil {
				return err
			}
		}
		return nil
	})
}

// CountEmbeddings counts cached embeddings for a model using the per-model index.
func (r *EmbeddingRepository) CountEmbeddings(ctx context.Context, model string) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if r.backend.IsClosed() {
		return 0, storage.ErrStorageClosed
	}

	count := 0
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = makePartialEmbeddingModelKey(model)
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			count++
		}
		return nil
	}, false)
	return count, err
}
