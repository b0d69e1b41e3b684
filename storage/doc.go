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

// Package storage provides the storage abstraction layer for fabmatch.
//
// This package defines repository interfaces that decouple storage implementation
// from the retrieval pipeline. The equipment catalogue is small (hundreds to a few
// thousand records), so the vector search contract is a brute-force cosine scan
// with metadata predicates applied before scoring.
//
// # Constructor Return Type Pattern
//
// Public constructors return interfaces to enforce abstraction:
//
//	repo, err := badger.NewRepository(path)  // returns storage.EquipmentRepository
//
// Internal package constructors may return concrete types since they're only
// used within the implementation package.
//
// # Architecture
//
//   - Repository: lifecycle and transaction support shared by all repositories
//   - EquipmentRepository: equipment records and filtered vector search
//   - CheckpointRepository: batch job checkpoints (seeding)
//
// # Usage
//
//	repo, err := badger.NewRepository("/var/lib/fabmatch/db")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer repo.Close()
//
// Use in tests with in-memory storage:
//
//	repo, err := badger.NewMemoryRepository()
//
// # Thread Safety
//
// All repository implementations must be thread-safe and support
// concurrent access from multiple goroutines.
package storage
