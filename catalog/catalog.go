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

// Package catalog turns raw symptom rows into one canonical description per disease.
package catalog

import (
	"fmt"
	"slices"
	"strings"

	"github.com/poiesic/diseasekb/core"
)

// descriptionFormat renders a disease and its comma-joined symptom list.
const descriptionFormat = "%s is characterized by the following symptoms: %s."

// BuildDescriptions groups records by disease and renders a description for each.
//
// Disease names are grouped by their exact value; rows with a blank name are
// skipped. Symptoms are trimmed, blanks dropped, deduplicated case-sensitively
// and sorted in byte order. The result is sorted by disease name.
func BuildDescriptions(records []core.DiseaseRecord) []core.CanonicalDescription {
	groups := make(map[string]map[string]struct{})
	for _, r := range records {
		if strings.TrimSpace(r.Disease) == "" {
			continue
		}
		set, ok := groups[r.Disease]
		if !ok {
			set = make(map[string]struct{})
			groups[r.Disease] = set
		}
		for _, s := range r.Symptoms {
			if s = strings.TrimSpace(s); s != "" {
				set[s] = struct{}{}
			}
		}
	}

	diseases := make([]string, 0, len(groups))
	for d := range groups {
		diseases = append(diseases, d)
	}
	slices.Sort(diseases)

	out := make([]core.CanonicalDescription, 0, len(diseases))
	for _, d := range diseases {
		symptoms := make([]string, 0, len(groups[d]))
		for s := range groups[d] {
			symptoms = append(symptoms, s)
		}
		slices.Sort(symptoms)
		out = append(out, core.CanonicalDescription{
			Disease:  d,
			Symptoms: symptoms,
			Text:     Describe(d, symptoms),
		})
	}
	return out
}

// Describe renders the description text for a disease and its sorted symptoms.
func Describe(disease string, symptoms []string) string {
	return fmt.Sprintf(descriptionFormat, disease, strings.Join(symptoms, ", "))
}

// Texts returns the description texts in order.
func Texts(descriptions []core.CanonicalDescription) []string {
	texts := make([]string, len(descriptions))
	for i, d := range descriptions {
		texts[i] = d.Text
	}
	return texts
}

// Fingerprint identifies a catalog by the content of its description texts, in order.
func Fingerprint(descriptions []core.CanonicalDescription) core.ID {
	return core.IDFromContent(strings.Join(Texts(descriptions), "\n"))
}
