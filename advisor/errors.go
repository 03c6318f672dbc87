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

package advisor

import "errors"

var (
	// ErrRetrieverRequired is returned when a knowledge base is not provided.
	ErrRetrieverRequired = errors.New("disease retriever required")

	// ErrPrecautionsRequired is returned when a precaution source is not provided.
	ErrPrecautionsRequired = errors.New("precaution source required")

	// ErrRankerNotConfigured is returned by RankedPrecautions when no ranker was given.
	ErrRankerNotConfigured = errors.New("precaution ranker not configured")
)
