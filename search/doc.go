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


// Package search answers natural-language questions over the ingested
// passages.
//
// The Engine type embeds the query text and delegates ranking to the
// index: cosine similarity over the stored vectors, optionally narrowed
// by subject, section kind, or document. Results come back as passages
// carrying text, provenance and score. An empty result set is a valid
// answer, not an error.
package search
