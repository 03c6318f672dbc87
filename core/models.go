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

package core

import (
	"encoding/binary"
	"time"

	"github.com/go-crypt/x/blake2b"
)

// ID is a unique identifier for persisted entities.
// It is generated using content-based hashing.
type ID uint64

// IDFromContent generates a deterministic ID from text content using BLAKE2b hashing.
// This ensures that identical content produces identical IDs.
func IDFromContent(text string) ID {
	h, _ := blake2b.New(8, nil) // 8 bytes = 64 bits
	h.Write([]byte(text))
	sum := h.Sum(nil)
	return ID(binary.LittleEndian.Uint64(sum))
}

// DiseaseRecord is one raw row of the symptom dataset.
// A disease normally spans many rows; Symptoms holds the row's symptom slots
// in column order and may contain blanks.
type DiseaseRecord struct {
	Disease  string
	Symptoms []string
}

// PrecautionRecord is one raw row of the precaution dataset.
// Precautions holds the row's precaution slots in column order and may contain blanks.
type PrecautionRecord struct {
	Disease     string
	Precautions []string
}

// CanonicalDescription is the synthetic natural-language description of a disease
// built from the union of all its symptoms.
type CanonicalDescription struct {
	Disease  string
	Symptoms []string // deduplicated, lexicographically sorted, no blanks
	Text     string
}

// RetrievalHit is a disease matched by similarity search.
// Precautions is filled in by the advisor; knowledge base hits leave it nil.
type RetrievalHit struct {
	Disease     string   `json:"disease"`
	Similarity  float32  `json:"similarity"`
	Description string   `json:"description"`
	Precautions []string `json:"precautions"`
}

// RankedPrecaution is a precaution scored against a user query.
type RankedPrecaution struct {
	Precaution     string  `json:"precaution"`
	RelevanceScore float32 `json:"relevance_score"`
}

// CachedEmbedding is a persisted embedding for a single text under a single model.
type CachedEmbedding struct {
	Id         ID
	Model      string
	Text       string
	Vector     []float32
	InsertedAt time.Time
}

// EmbeddingID returns the cache key for text embedded with model.
func EmbeddingID(model, text string) ID {
	return IDFromContent(model + "\x00" + text)
}

// IndexManifest describes the last successful knowledge base build for a model.
type IndexManifest struct {
	Model       string
	Entries     int
	Dimension   int
	Fingerprint ID // IDFromContent over all description texts, in index order
	BuiltAt     time.Time
}
