package badger

import (
	"context"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/veldtlabs/docdex/core"
	"github.com/veldtlabs/docdex/storage"
)

// DocumentRepository implements storage.DocumentRepository for BadgerDB.
type DocumentRepository struct {
	backend *Backend
}

var _ storage.DocumentRepository = (*DocumentRepository)(nil)

// NewDocumentRepository creates a new DocumentRepository.
func NewDocumentRepository(backend *Backend) (*DocumentRepository, error) {
	if backend == nil {
		return nil, storage.ErrStorageClosed
	}
	return &DocumentRepository{backend: backend}, nil
}

// Close releases repository resources. Document IDs are content-derived,
// so there is no sequence to release.
func (r *DocumentRepository) Close() error {
	return nil
}

// FindSimilar delegates to the backend.
func (r *DocumentRepository) FindSimilar(ctx context.Context, vector []float32, minSimilarity float32, limit int) ([]*core.SearchResult, error) {
	return r.backend.FindSimilar(ctx, vector, minSimilarity, limit)
}

// WithTransaction delegates to the backend.
func (r *DocumentRepository) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return r.backend.WithTransaction(ctx, fn)
}

// UpsertDocuments writes a batch of document records in a single
// transaction. The transaction commits only after every record in the batch
// has been written, so a crash mid-batch leaves the store unchanged.
// Existing records keep their InsertedAt timestamp.
func (r *DocumentRepository) UpsertDocuments(ctx context.Context, records ...*core.DocumentRecord) ([]*core.DocumentRecord, error) {
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		// Timestamps persist at microsecond precision, so truncate here
		// to keep the returned records equal to what a later read sees.
		now := time.Now().UTC().Truncate(time.Microsecond)
		for _, record := range records {
			if err := core.ValidateDocumentRecord(record); err != nil {
				return err
			}

			key := makeDocumentKey(record.Id)

			old, err := r.readDocument(tx, key)
			if err != nil {
				return err
			}
			if old != nil {
				record.InsertedAt = old.InsertedAt
			} else {
				record.InsertedAt = now
			}
			record.UpdatedAt = now

			value := storage.MarshalDocumentRecord(record)
			if err := tx.Set(key, value); err != nil {
				return err
			}
		}
		return tx.Commit()
	}, true)

	if err != nil {
		return nil, err
	}
	return records, nil
}

// GetDocument retrieves a single document record by ID.
func (r *DocumentRepository) GetDocument(ctx context.Context, id core.ID) (*core.DocumentRecord, error) {
	var record *core.DocumentRecord
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		var err error
		record, err = r.readDocument(tx, makeDocumentKey(id))
		if err != nil {
			return err
		}
		if record == nil {
			return storage.ErrNotFound
		}
		return nil
	}, false)

	if err != nil {
		return nil, err
	}
	return record, nil
}

// GetDocuments retrieves multiple document records by their IDs.
// Missing records are skipped without error.
func (r *DocumentRepository) GetDocuments(ctx context.Context, ids ...core.ID) ([]*core.DocumentRecord, error) {
	records := make([]*core.DocumentRecord, 0, len(ids))
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		for _, id := range ids {
			record, err := r.readDocument(tx, makeDocumentKey(id))
			if err != nil {
				return err
			}
			if record != nil {
				records = append(records, record)
			}
		}
		return nil
	}, false)

	if err != nil {
		return nil, err
	}
	return records, nil
}

// DeleteDocuments removes document records by their IDs.
func (r *DocumentRepository) DeleteDocuments(ctx context.Context, ids ...core.ID) error {
	return r.backend.WithTx(func(tx *badger.Txn) error {
		for _, id := range ids {
			key := makeDocumentKey(id)
			if _, err := tx.Get(key); err != nil {
				if err == badger.ErrKeyNotFound {
					return storage.ErrNotFound
				}
				return err
			}
			if err := tx.Delete(key); err != nil {
				return err
			}
		}
		return tx.Commit()
	}, true)
}

// CountDocuments returns the number of stored document records.
func (r *DocumentRepository) CountDocuments(ctx context.Context) (int, error) {
	count := 0
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(documentRecordPrefix + ":")
		opts.PrefetchValues = false
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			count++
		}
		return nil
	}, false)

	if err != nil {
		return 0, err
	}
	return count, nil
}

// readDocument reads a document record inside a transaction.
// Returns nil, nil if the key does not exist.
func (r *DocumentRepository) readDocument(tx *badger.Txn, key []byte) (*core.DocumentRecord, error) {
	item, err := tx.Get(key)
	if err != nil {
		if err == badger.ErrKeyNotFound {
			return nil, nil
		}
		return nil, err
	}

	var record *core.DocumentRecord
	err = item.Value(func(val []byte) error {
		var err error
		record, err = storage.UnmarshalDocumentRecord(val)
		return err
	})
	if err != nil {
		return nil, err
	}
	return record, nil
}
