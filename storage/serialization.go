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


package storage

import (
	"github.com/veldtlabs/docdex/core"
)

// MarshalID serializes an ID to bytes.
func MarshalID(id core.ID) []byte {
	buf := make([]byte, core.IDMUS.Size(id))
	core.IDMUS.Marshal(id, buf)
	return buf
}

// UnmarshalID deserializes an ID from bytes.
func UnmarshalID(data []byte) (core.ID, error) {
	id, _, err := core.IDMUS.Unmarshal(data)
	return id, err
}

// MarshalDocumentRecord serializes a DocumentRecord to bytes.
func MarshalDocumentRecord(record *core.DocumentRecord) []byte {
	buf := make([]byte, core.DocumentRecordMUS.Size(*record))
	core.DocumentRecordMUS.Marshal(*record, buf)
	return buf
}

// UnmarshalDocumentRecord deserializes a DocumentRecord from bytes.
func UnmarshalDocumentRecord(data []byte) (*core.DocumentRecord, error) {
	record, _, err := core.DocumentRecordMUS.Unmarshal(data)
	if err != nil {
		return nil, err
	}
	return &record, nil
}

// MarshalLedgerEntry serializes a LedgerEntry to bytes.
func MarshalLedgerEntry(entry *core.LedgerEntry) []byte {
	buf := make([]byte, core.LedgerEntryMUS.Size(*entry))
	core.LedgerEntryMUS.Marshal(*entry, buf)
	return buf
}

// UnmarshalLedgerEntry deserializes a LedgerEntry from bytes.
func UnmarshalLedgerEntry(data []byte) (*core.LedgerEntry, error) {
	entry, _, err := core.LedgerEntryMUS.Unmarshal(data)
	if err != nil {
		return nil, err
	}
	return &entry, nil
}
