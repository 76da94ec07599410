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


package badger

import (
	"context"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/veldtlabs/docdex/core"
	"github.com/veldtlabs/docdex/storage"
)

// LedgerRepository implements storage.LedgerRepository for BadgerDB.
type LedgerRepository struct {
	backend *Backend
}

var _ storage.LedgerRepository = (*LedgerRepository)(nil)

// NewLedgerRepository creates a new LedgerRepository.
func NewLedgerRepository(backend *Backend) (*LedgerRepository, error) {
	if backend == nil {
		return nil, storage.ErrStorageClosed
	}
	return &LedgerRepository{backend: backend}, nil
}

// Close releases repository resources.
func (r *LedgerRepository) Close() error {
	return nil
}

// WithTransaction delegates to the backend.
func (r *LedgerRepository) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return r.backend.WithTransaction(ctx, fn)
}

// Get retrieves the ledger entry for a document.
// Returns nil, nil if the document has never been seen.
func (r *LedgerRepository) Get(ctx context.Context, id core.ID) (*core.LedgerEntry, error) {
	var entry *core.LedgerEntry
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		var err error
		entry, err = readLedgerEntry(tx, makeLedgerKey(id))
		return err
	}, false)

	return entry, err
}

// Advance moves a document to a new state, creating the entry on first
// sight. Advancing to StateFailed records lastErr and increments the attempt
// counter. The read-modify-write runs in one transaction.
func (r *LedgerRepository) Advance(ctx context.Context, id core.ID, state core.State, lastErr string) (*core.LedgerEntry, error) {
	var entry *core.LedgerEntry
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		key := makeLedgerKey(id)

		var err error
		entry, err = readLedgerEntry(tx, key)
		if err != nil {
			return err
		}
		if entry == nil {
			entry = &core.LedgerEntry{Id: id}
		}

		entry.State = state
		entry.UpdatedAt = time.Now().UTC().Truncate(time.Microsecond)
		if state == core.StateFailed {
			entry.Attempts++
			entry.LastError = lastErr
		} else {
			entry.LastError = ""
		}

		if err := core.ValidateLedgerEntry(entry); err != nil {
			return err
		}

		if err := tx.Set(key, storage.MarshalLedgerEntry(entry)); err != nil {
			return err
		}
		return tx.Commit()
	}, true)

	if err != nil {
		return nil, err
	}
	return entry, nil
}

// List returns all ledger entries.
func (r *LedgerRepository) List(ctx context.Context) ([]*core.LedgerEntry, error) {
	var entries []*core.LedgerEntry
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(ledgerEntryPrefix + ":")
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			item := iter.Item()
			var entry *core.LedgerEntry
			err := item.Value(func(val []byte) error {
				var err error
				entry, err = storage.UnmarshalLedgerEntry(val)
				return err
			})
			if err != nil {
				return err
			}
			if entry != nil {
				entries = append(entries, entry)
			}
		}
		return nil
	}, false)

	if err != nil {
		return nil, err
	}
	return entries, nil
}

// readLedgerEntry reads a ledger entry inside a transaction.
// Returns nil, nil if the key does not exist.
func readLedgerEntry(tx *badger.Txn, key []byte) (*core.LedgerEntry, error) {
	item, err := tx.Get(key)
	if err != nil {
		if err == badger.ErrKeyNotFound {
			return nil, nil
		}
		return nil, err
	}

	var entry *core.LedgerEntry
	err = item.Value(func(val []byte) error {
		var err error
		entry, err = storage.UnmarshalLedgerEntry(val)
		return err
	})
	if err != nil {
		return nil, err
	}
	return entry, nil
}
