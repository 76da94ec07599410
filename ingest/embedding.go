package ingest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/veldtlabs/docdex/core"
	"github.com/veldtlabs/docdex/embed"
)

// EmbeddingCoordinator serializes all embedding work through a single
// shared model. The pipeline calls it from exactly one goroutine, so
// the embedder never sees concurrent requests.
//
// Failure containment is tiered: a failing batch is retried with
// backoff, then split in half, and finally embedded item by item so one
// malformed text cannot sink its batchmates. Only when every item in a
// batch fails does the coordinator declare the embedder unusable.
type EmbeddingCoordinator struct {
	embedder   embed.Embedder
	maxRetries int
	retryDelay time.Duration
	logger     *slog.Logger
}

// NewEmbeddingCoordinator creates a coordinator around embedder.
func NewEmbeddingCoordinator(embedder embed.Embedder, maxRetries int, retryDelay time.Duration, logger *slog.Logger) (*EmbeddingCoordinator, error) {
	if embedder == nil {
		return nil, ErrEmbedderRequired
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &EmbeddingCoordinator{
		embedder:   embedder,
		maxRetries: maxRetries,
		retryDelay: retryDelay,
		logger:     logger,
	}, nil
}

// EmbedBatch embeds texts and returns one vector per input, normalized
// to unit length. itemErrs is parallel to texts: a non-nil entry marks
// an item that could not be embedded; its vector slot is nil. The final
// error is fatal for the run: the context was cancelled, or every item
// in the batch failed. Submitting an empty batch is a caller bug and
// returns embed.ErrEmptyBatch.
func (c *EmbeddingCoordinator) EmbedBatch(ctx context.Context, texts []string) (vectors [][]float32, itemErrs []error, err error) {
	if len(texts) == 0 {
		return nil, nil, embed.ErrEmptyBatch
	}

	vectors = make([][]float32, len(texts))
	itemErrs = make([]error, len(texts))

	// Fast path: the whole batch in one call, with backoff.
	whole, batchErr := c.embedWithRetry(ctx, texts)
	if batchErr == nil {
		for i := range whole {
			vectors[i] = core.NormalizeVector(whole[i])
		}
		return vectors, itemErrs, nil
	}
	if errors.Is(batchErr, context.Canceled) || errors.Is(batchErr, context.DeadlineExceeded) {
		return nil, nil, batchErr
	}

	c.logger.Warn("batch embedding failed, reducing batch size",
		"batchSize", len(texts), "err", batchErr)

	// Halve once, then isolate failures item by item.
	mid := len(texts) / 2
	halves := [][2]int{{0, mid}, {mid, len(texts)}}
	for _, h := range halves {
		lo, hi := h[0], h[1]
		if lo == hi {
			continue
		}

		half, err := c.embedder.EmbedTexts(ctx, texts[lo:hi])
		if err == nil && len(half) == hi-lo {
			for i := range half {
				vectors[lo+i] = core.NormalizeVector(half[i])
			}
			continue
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, nil, ctxErr
		}

		for i := lo; i < hi; i++ {
			vector, itemErr := c.embedItem(ctx, texts[i])
			if itemErr != nil {
				if ctxErr := ctx.Err(); ctxErr != nil {
					return nil, nil, ctxErr
				}
				itemErrs[i] = itemErr
				continue
			}
			vectors[i] = core.NormalizeVector(vector)
		}
	}

	failed := 0
	for _, itemErr := range itemErrs {
		if itemErr != nil {
			failed++
		}
	}
	if failed == len(texts) {
		return nil, nil, fmt.Errorf("%w: last error: %v", ErrEmbeddingAborted, itemErrs[len(itemErrs)-1])
	}

	return vectors, itemErrs, nil
}

// embedWithRetry embeds the full batch with exponential backoff and
// verifies the embedder returned one vector per input.
func (c *EmbeddingCoordinator) embedWithRetry(ctx context.Context, texts []string) ([][]float32, error) {
	var embeddings [][]float32
	err := RetryWithBackoff(ctx, func() error {
		var err error
		embeddings, err = c.embedder.EmbedTexts(ctx, texts)
		return err
	}, c.maxRetries, c.retryDelay)
	if err != nil {
		return nil, err
	}

	if len(embeddings) != len(texts) {
		return nil, fmt.Errorf("embedding count mismatch: expected %d, got %d", len(texts), len(embeddings))
	}

	return embeddings, nil
}

// embedItem embeds a single text with backoff.
func (c *EmbeddingCoordinator) embedItem(ctx context.Context, text string) ([]float32, error) {
	var vector []float32
	err := RetryWithBackoff(ctx, func() error {
		var err error
		vector, err = c.embedder.EmbedText(ctx, text)
		return err
	}, c.maxRetries, c.retryDelay)
	if err != nil {
		return nil, fmt.Errorf("failed to embed text after %d attempts: %w", c.maxRetries, err)
	}
	return vector, nil
}
