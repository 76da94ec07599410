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


// Package search provides semantic search over the ingested document store.
//
// Queries are embedded with the same model used at ingestion time and
// matched against stored vectors by cosine similarity. Results that
// contain every query word verbatim receive a small score boost, which
// keeps exact invoice numbers and names above loosely related text.
package search
