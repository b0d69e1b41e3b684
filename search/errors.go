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

package search

import "errors"

var (
	// ErrEquipmentRepositoryRequired is returned when an equipment repository is not provided.
	ErrEquipmentRepositoryRequired = errors.New("equipment repository required")

	// ErrEmbedderRequired is returned when an embedder is not provided.
	ErrEmbedderRequired = errors.New("embedder required")

	// ErrRetrieverRequired is returned when the semantic or lexical side is missing.
	ErrRetrieverRequired = errors.New("semantic and lexical retrievers required")

	// ErrEmbeddingFailed wraps an embedding failure that survived every retry.
	ErrEmbeddingFailed = errors.New("query embedding failed")

	// ErrInvalidWeights is returned when fusion weights are negative or both zero.
	ErrInvalidWeights = errors.New("fusion weights must be non-negative and not both zero")
)
