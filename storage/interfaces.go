package storage

import (
	"context"

	"github.com/veldtlabs/docdex/core"
)

// Repository provides common storage operations shared across all repositories.
// Implementations must be thread-safe and support concurrent access.
type Repository interface {
	// WithTransaction executes a function within a transaction.
	// If fn returns an error, the transaction is rolled back.
	// If fn returns nil, the transaction is committed.
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error

	// Close closes the storage backend and releases resources.
	Close() error
}

// DocumentRepository provides operations for the durable vector store.
type DocumentRepository interface {
	Repository

	// UpsertDocuments writes a batch of document records in a single atomic
	// transaction, keyed by document ID. Re-upserting an existing ID replaces
	// the record but preserves its InsertedAt timestamp, so re-ingestion is
	// idempotent. Either the whole batch becomes visible or none of it does.
	// Returns the records with timestamps populated.
	UpsertDocuments(ctx context.Context, records ...*core.DocumentRecord) ([]*core.DocumentRecord, error)

	// GetDocument retrieves a single document record by ID.
	// Returns ErrNotFound if the record doesn't exist.
	GetDocument(ctx context.Context, id core.ID) (*core.DocumentRecord, error)

	// GetDocuments retrieves multiple document records by their IDs.
	// Returns only the records that exist (no error for missing records).
	GetDocuments(ctx context.Context, ids ...core.ID) ([]*core.DocumentRecord, error)

	// DeleteDocuments removes document records by their IDs.
	// Returns ErrNotFound if any record doesn't exist.
	DeleteDocuments(ctx context.Context, ids ...core.ID) error

	// CountDocuments returns the number of stored document records.
	CountDocuments(ctx context.Context) (int, error)

	// FindSimilar finds documents whose embedding is similar to the given
	// vector. Returns records with similarity >= minSimilarity, up to limit
	// results, ordered by similarity score (highest first). Records without
	// an embedding are never returned.
	FindSimilar(ctx context.Context, vector []float32, minSimilarity float32, limit int) ([]*core.SearchResult, error)
}

// LedgerRepository tracks per-document ingestion progress.
// The ledger is the single source of truth for resumability; only the
// pipeline orchestrator mutates it.
type LedgerRepository interface {
	Repository

	// Get retrieves the ledger entry for a document.
	// Returns nil, nil if the document has never been seen.
	Get(ctx context.Context, id core.ID) (*core.LedgerEntry, error)

	// Advance moves a document to a new state. Creates the entry on first
	// sight. Advancing to StateFailed records lastErr and increments the
	// attempt counter; advancing to any other state leaves the counter
	// untouched. Returns the updated entry.
	Advance(ctx context.Context, id core.ID, state core.State, lastErr string) (*core.LedgerEntry, error)

	// List returns all ledger entries, for status reporting.
	List(ctx context.Context) ([]*core.LedgerEntry, error)
}
