package ocr

import (
	"context"
	"image"
)

// Engine converts a document page image into text.
// Implementations must be safe to call repeatedly on one instance, but are
// not required to be safe for concurrent use; each pipeline worker owns its
// own engine.
type Engine interface {
	// Recognize extracts text from a single page image.
	Recognize(ctx context.Context, img image.Image) (string, error)

	// Close releases engine resources. The engine must not be used after
	// Close.
	Close() error
}

// EngineFactory constructs a recognition engine. The worker pool calls the
// factory exactly once per worker, never per task.
type EngineFactory func(ctx context.Context) (Engine, error)
