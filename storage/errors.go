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

package storage

import "errors"

// Sentinel errors returned by the equipment and checkpoint stores.
var (
	// ErrNotFound is returned when no equipment or checkpoint exists under the key.
	ErrNotFound = errors.New("not found")

	// ErrStorageClosed is returned by any call made after the backend was closed.
	ErrStorageClosed = errors.New("equipment store closed")

	// ErrInvalidQuery rejects a vector search with no vector or a non-positive limit.
	ErrInvalidQuery = errors.New("invalid equipment query")

	// ErrSerializationFailed wraps MUS decode failures of stored records.
	ErrSerializationFailed = errors.New("corrupt stored record")

	// ErrInvalidCheckpoint rejects a checkpoint without a job name or with a negative count.
	ErrInvalidCheckpoint = errors.New("invalid checkpoint")

	// ErrDimensionMismatch means a query vector and a stored vector differ in length.
	ErrDimensionMismatch = errors.New("vector dimension mismatch")
)
