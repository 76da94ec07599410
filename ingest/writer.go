package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/veldtlabs/docdex/core"
	"github.com/veldtlabs/docdex/storage"
)

// StoreWriter commits embedded document records to the durable store.
// Each batch is written in one atomic transaction, so an interrupted
// run never leaves a partially visible batch behind.
type StoreWriter struct {
	repo       storage.DocumentRepository
	maxRetries int
	retryDelay time.Duration
	logger     *slog.Logger
}

// NewStoreWriter creates a writer over repo.
func NewStoreWriter(repo storage.DocumentRepository, maxRetries int, retryDelay time.Duration, logger *slog.Logger) (*StoreWriter, error) {
	if repo == nil {
		return nil, ErrDocumentRepositoryRequired
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &StoreWriter{
		repo:       repo,
		maxRetries: maxRetries,
		retryDelay: retryDelay,
		logger:     logger,
	}, nil
}

// WriteBatch upserts records in a single transaction, retrying
// transient store failures with backoff. On persistent failure the
// whole batch remains unwritten.
func (w *StoreWriter) WriteBatch(ctx context.Context, records []*core.DocumentRecord) error {
	if len(records) == 0 {
		return nil
	}

	err := RetryWithBackoff(ctx, func() error {
		_, err := w.repo.UpsertDocuments(ctx, records...)
		return err
	}, w.maxRetries, w.retryDelay)
	if err != nil {
		return fmt.Errorf("failed to commit batch of %d records after %d attempts: %w", len(records), w.maxRetries, err)
	}

	return nil
}
