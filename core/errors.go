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


package core

import "errors"

// Domain validation errors
var (
	// ErrInvalidDocumentRecord indicates a DocumentRecord failed validation.
	ErrInvalidDocumentRecord = errors.New("invalid document record")

	// ErrInvalidLedgerEntry indicates a LedgerEntry failed validation.
	ErrInvalidLedgerEntry = errors.New("invalid ledger entry")

	// ErrEmptySourcePath indicates the SourcePath field is empty.
	ErrEmptySourcePath = errors.New("source path cannot be empty")

	// ErrEmptyLabel indicates the Label field is empty.
	ErrEmptyLabel = errors.New("label cannot be empty")

	// ErrEmptyText indicates the extracted text is empty.
	ErrEmptyText = errors.New("text cannot be empty")

	// ErrInvalidTransform indicates an unknown Transform value.
	ErrInvalidTransform = errors.New("invalid transform")

	// ErrInvalidState indicates an unknown State value.
	ErrInvalidState = errors.New("invalid state")
)
