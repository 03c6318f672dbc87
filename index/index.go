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

// Package index provides exact nearest-neighbour search over unit vectors.
//
// Vectors are kept in insertion order and scored by inner product, which
// equals cosine similarity when both sides are L2-normalised. Search results
// are ordered by descending score; equal scores keep insertion order.
package index

import (
	"errors"
	"fmt"
	"math"
	"slices"
)

var (
	// ErrDimensionMismatch is returned when a vector's length differs from the index dimension.
	ErrDimensionMismatch = errors.New("vector dimension mismatch")
	// ErrInvalidDimension is returned for a non-positive index dimension.
	ErrInvalidDimension = errors.New("invalid dimension")
)

// Match is one search result: the insertion position of a vector and its score.
type Match struct {
	Position int
	Score    float32
}

// Index is a vector index addressed by insertion position.
// Implementations must allow concurrent Search calls once building is done.
type Index interface {
	// Add appends vectors. Positions continue from the current Len.
	Add(vectors ...[]float32) error
	// Search returns up to k matches for query, best first.
	Search(query []float32, k int) ([]Match, error)
	// Len returns the number of stored vectors.
	Len() int
	// Dimension returns the vector length accepted by the index.
	Dimension() int
}

// Factory creates an empty index for vectors of the given dimension.
type Factory func(dimension int) (Index, error)

// Flat is an exact brute-force inner-product index.
// Add is not safe for concurrent use; Search is safe once Add calls have finished.
type Flat struct {
	dimension int
	vectors   [][]float32
}

var _ Index = (*Flat)(nil)

// NewFlat creates an empty Flat index.
func NewFlat(dimension int) (Index, error) {
	if dimension <= 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidDimension, dimension)
	}
	return &Flat{dimension: dimension}, nil
}

// Add appends copies of vectors. Either all vectors are added or none.
func (f *Flat) Add(vectors ...[]float32) error {
	for i, v := range vectors {
		if len(v) != f.dimension {
			return fmt.Errorf("%w: vector %d has length %d, index expects %d", ErrDimensionMismatch, i, len(v), f.dimension)
		}
	}
	for _, v := range vectors {
		f.vectors = append(f.vectors, slices.Clone(v))
	}
	return nil
}

// Search scores every stored vector against query.
// k larger than Len returns every vector; k <= 0 returns nothing.
func (f *Flat) Search(query []float32, k int) ([]Match, error) {
	if len(query) != f.dimension {
		return nil, fmt.Errorf("%w: query has length %d, index expects %d", ErrDimensionMismatch, len(query), f.dimension)
	}
	if k <= 0 {
		return []Match{}, nil
	}

	matches := make([]Match, len(f.vectors))
	for i, v := range f.vectors {
		matches[i] = Match{Position: i, Score: Dot(query, v)}
	}
	slices.SortStableFunc(matches, func(a, b Match) int {
		switch {
		case a.Score > b.Score:
			return -1
		case a.Score < b.Score:
			return 1
		}
		return 0
	})

	if k < len(matches) {
		matches = matches[:k]
	}
	return matches, nil
}

// Len returns the number of stored vectors.
func (f *Flat) Len() int {
	return len(f.vectors)
}

// Dimension returns the vector length accepted by the index.
func (f *Flat) Dimension() int {
	return f.dimension
}

// Dot calculates the inner product of two vectors over their common length.
func Dot(a, b []float32) float32 {
	var sum float32
	n := min(len(a), len(b))
	for i := 0; i < n; i++ {
		sum += a[i] * b[i]
	}
	return sum
}

// Normalize returns a unit-length copy of v.
// A zero vector yields a zero vector of the same length.
func Normalize(v []float32) []float32 {
	result := make([]float32, len(v))
	if len(v) == 0 {
		return result
	}

	var sumSquares float64
	for _, val := range v {
		sumSquares += float64(val) * float64(val)
	}
	if sumSquares == 0 {
		return result
	}

	magnitude := float32(math.Sqrt(sumSquares))
	for i, val := range v {
		result[i] = val / magnitude
	}
	return result
}
