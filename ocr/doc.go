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


// Package ocr defines the recognition engine contract and the image-side
// plumbing around it: loading document files into page images, the
// preprocessing transforms applied before recognition, and the augmentation
// selector that picks one transform per document.
//
// Engines are expensive to construct and cheap to reuse. The ingestion
// pipeline constructs exactly one engine per worker through an EngineFactory
// and holds it for the worker's lifetime.
package ocr
