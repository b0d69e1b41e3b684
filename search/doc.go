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

// Package search provides hybrid semantic and lexical retrieval over the
// equipment catalogue.
//
// A HybridSearcher runs two retrievals concurrently:
//   - Semantic search: the query is embedded and compared by cosine
//     similarity against stored equipment vectors, after metadata filtering
//   - Lexical search: BM25 over the tokenized equipment documents
//
// The two ranked lists are fused per equipment ID with configurable weights
// (Combine) into core.Candidate values that carry each score separately for
// the filter and rerank stages downstream.
package search
