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


// Package chunker turns scraped documents into addressable passages.
//
// Each section item of a document is tokenized on whitespace and covered by
// a sliding window of at most Config.WindowSize tokens, advancing by
// WindowSize - Overlap tokens per step. Tails shorter than MinChunkTokens
// are folded into the previous window so near-empty fragments are never
// emitted. Chunk IDs are a pure function of (document id, section kind,
// item index, window index), which is what makes re-ingestion idempotent:
// re-chunking an unchanged document reproduces the exact same ID set.
package chunker
