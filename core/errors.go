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

import "errors"

// Retrieval error taxonomy. Callers distinguish kinds with errors.Is.
var (
	// ErrConfiguration indicates a missing or empty dataset, a missing required
	// column, or an unusable provider configuration. Fatal to startup.
	ErrConfiguration = errors.New("configuration error")

	// ErrNotBuilt indicates a query was attempted before the index was built.
	ErrNotBuilt = errors.New("index not built")

	// ErrInvalidArgument indicates a non-positive or otherwise malformed argument such as top-k.
	ErrInvalidArgument = errors.New("invalid argument")
)
