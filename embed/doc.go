// Copyright 2025 Veldt Labs
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


// Package embed defines the embedding model contract used by the ingestion
// pipeline and the search layer.
//
// Embedding models are expensive to construct and internally parallel; a
// pipeline run constructs exactly one Embedder and shares it through the
// embedding coordinator. The openai subpackage implements the contract
// against OpenAI-compatible APIs; the mock subpackage provides test doubles.
package embed
