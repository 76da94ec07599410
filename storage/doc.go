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


// Package storage provides the storage abstraction layer for docdex.
//
// This package defines repository interfaces that decouple storage
// implementation from the ingestion pipeline. The DocumentRepository holds
// the durable vector store (one record per document, upsert-by-ID), and the
// LedgerRepository tracks per-document ingestion progress so interrupted
// builds can resume without repeating work.
//
// Serialization helpers convert between domain types and their MUS binary
// representation used by the BadgerDB backend.
package storage
