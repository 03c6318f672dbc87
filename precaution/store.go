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

// Package precaution maps diseases to their recommended precautions and
// optionally re-ranks a precaution list against a free-text query.
package precaution

import (
	"slices"
	"strings"

	"github.com/poiesic/diseasekb/core"
)

// Store is an immutable disease → precautions table. Safe for concurrent use.
type Store struct {
	entries map[string][]string
}

// NewStore builds the table from raw rows.
//
// Disease keys are trimmed; blank precautions are dropped and source order is
// kept. A row without any non-blank precaution adds nothing. When a disease
// appears on several rows the last qualifying row wins.
func NewStore(records []core.PrecautionRecord) (*Store, error) {
	if err := core.ValidatePrecautionRecords(records); err != nil {
		return nil, err
	}

	entries := make(map[string][]string, len(records))
	for _, r := range records {
		disease := strings.TrimSpace(r.Disease)
		if disease == "" {
			continue
		}
		var precautions []string
		for _, p := range r.Precautions {
			if p = strings.TrimSpace(p); p != "" {
				precautions = append(precautions, p)
			}
		}
		if len(precautions) == 0 {
			continue
		}
		entries[disease] = precautions
	}
	return &Store{entries: entries}, nil
}

// Lookup returns a copy of the precautions for disease.
// An unknown disease yields an empty, non-nil slice.
func (s *Store) Lookup(disease string) []string {
	precautions, ok := s.entries[strings.TrimSpace(disease)]
	if !ok {
		return []string{}
	}
	return slices.Clone(precautions)
}

// Has reports whether the table has an entry for disease.
func (s *Store) Has(disease string) bool {
	_, ok := s.entries[strings.TrimSpace(disease)]
	return ok
}

// Len returns the number of diseases with precautions.
func (s *Store) Len() int {
	return len(s.entries)
}

// Diseases returns the disease keys in sorted order.
func (s *Store) Diseases() []string {
	out := make([]string, 0, len(s.entries))
	for d := range s.entries {
		out = append(out, d)
	}
	slices.Sort(out)
	return out
}

// Texts returns every distinct precaution string, sorted.
func (s *Store) Texts() []string {
	seen := make(map[string]struct{})
	for _, precautions := range s.entries {
		for _, p := range precautions {
			seen[p] = struct{}{}
		}
	}
	out := make([]string, 0, len(seen))
	for p := range seen {
		out = append(out, p)
	}
	slices.Sort(out)
	return out
}
