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


// Package storage provides the index abstraction layer for bioindex.
//
// This package defines the Index interface that decouples the storage
// implementation from the ingestion and query layers. Two backends
// implement it:
//
//   - storage/badger: a durable on-disk variant backed by BadgerDB, with
//     an HNSW graph accelerating unfiltered searches over large collections
//   - storage/flat: an in-memory fallback with optional flat-file
//     persistence, used when the badger variant cannot be opened
//
// # Constructor Return Type Pattern
//
// Public constructors return the storage.Index interface to enforce
// abstraction and keep the two variants drop-in interchangeable:
//
//	idx, err := badger.OpenIndex(path)  // returns storage.Index
//	idx, err := flat.OpenIndex(path)    // returns storage.Index
//
// # Ranking Equivalence
//
// Both variants score with DotProduct over vectors normalized by
// NormalizeVector and order results with RankMatches. For identical
// records and query vectors they return the identical ordered chunk ID
// sequence; this equivalence is a correctness property, not an
// optimization detail.
//
// # Thread Safety
//
// All Index implementations are safe for concurrent use. Upsert is atomic
// per call: a concurrent Search observes either the whole batch or none
// of it.
package storage
