package embed

import "errors"

var (
	// ErrEmbedderRequired is returned when an embedder is not provided.
	ErrEmbedderRequired = errors.New("embedder required")

	// ErrEmptyBatch is returned when an empty batch is submitted.
	ErrEmptyBatch = errors.New("empty batch")
)
