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
	"fmt"
	"strings"
)

// ValidateTopK validates a requested result count.
//
// Validation rules:
//   - k must be strictly positive
//
// NOT validated:
//   - k larger than the catalog (searches return every entry instead)
func ValidateTopK(k int) error {
	if k <= 0 {
		return fmt.Errorf("%w: top-k must be positive, got %d", ErrInvalidArgument, k)
	}
	return nil
}

// ValidateDiseaseRecords checks that a symptom dataset can produce at least one description.
//
// Validation rules:
//   - at least one record
//   - at least one record with a non-blank disease name
func ValidateDiseaseRecords(records []DiseaseRecord) error {
	if len(records) == 0 {
		return fmt.Errorf("%w: symptom dataset is empty", ErrConfiguration)
	}
	for _, r := range records {
		if strings.TrimSpace(r.Disease) != "" {
			return nil
		}
	}
	return fmt.Errorf("%w: symptom dataset has no disease names", ErrConfiguration)
}

// ValidatePrecautionRecords checks that a precaution dataset is not empty.
func ValidatePrecautionRecords(records []PrecautionRecord) error {
	if len(records) == 0 {
		return fmt.Errorf("%w: precaution dataset is empty", ErrConfiguration)
	}
	return nil
}
