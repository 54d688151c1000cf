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


// Package ai defines the embedding abstraction used by the retrieval
// pipeline. The embedding model itself is an external collaborator: the
// pipeline only depends on the Embedder contract (fixed dimensionality,
// deterministic output for identical input, explicit failure for input it
// cannot process).
//
// The openai subpackage implements Embedder against OpenAI-compatible
// endpoints; the mock subpackage provides a deterministic in-process
// implementation for tests.
package ai
