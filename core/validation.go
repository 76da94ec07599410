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

import (
	"fmt"
	"slices"
)

// ValidateDocumentRecord validates a DocumentRecord according to domain rules.
//
// Validation rules:
//   - SourcePath must not be empty
//   - Label must not be empty
//   - Transform must be one of the known transforms
//   - Text must not be empty (blank OCR output is never persisted)
//
// NOT validated (populated by the pipeline):
//   - Vector (empty until the embedding coordinator runs)
//   - InsertedAt/UpdatedAt (set by the repository)
func ValidateDocumentRecord(record *DocumentRecord) error {
	if record == nil {
		return fmt.Errorf("%w: record is nil", ErrInvalidDocumentRecord)
	}
	if record.SourcePath == "" {
		return fmt.Errorf("%w: %w", ErrInvalidDocumentRecord, ErrEmptySourcePath)
	}
	if record.Label == "" {
		return fmt.Errorf("%w: %w", ErrInvalidDocumentRecord, ErrEmptyLabel)
	}
	if !slices.Contains(Transforms, record.Transform) {
		return fmt.Errorf("%w: %w: %d", ErrInvalidDocumentRecord, ErrInvalidTransform, record.Transform)
	}
	if record.Text == "" {
		return fmt.Errorf("%w: %w", ErrInvalidDocumentRecord, ErrEmptyText)
	}
	return nil
}

// ValidateLedgerEntry validates a LedgerEntry according to domain rules.
//
// Validation rules:
//   - State must be one of the known states
//   - Attempts must not be negative
func ValidateLedgerEntry(entry *LedgerEntry) error {
	if entry == nil {
		return fmt.Errorf("%w: entry is nil", ErrInvalidLedgerEntry)
	}
	if entry.State < StatePending || entry.State > StateFailed {
		return fmt.Errorf("%w: %w: %d", ErrInvalidLedgerEntry, ErrInvalidState, entry.State)
	}
	if entry.Attempts < 0 {
		return fmt.Errorf("%w: attempts cannot be negative", ErrInvalidLedgerEntry)
	}
	return nil
}
