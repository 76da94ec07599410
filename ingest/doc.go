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


// Package ingest implements the parallel document-ingestion pipeline.
//
// A pipeline run walks a corpus laid out as root/<label>/<file>, extracts
// text from each document with a pool of recognition workers, embeds the
// text through a single shared embedding model, and commits (text, vector,
// metadata) records to the store in atomic batches. A durable ledger tracks
// per-document progress so an interrupted run resumes where it left off and
// a completed run is idempotent.
//
// Resource ownership is strict: each worker owns exactly one recognition
// engine for its lifetime, and the run owns exactly one embedding model.
// Task flow is bounded end to end, so memory use is proportional to the
// worker count, not the corpus size.
package ingest
