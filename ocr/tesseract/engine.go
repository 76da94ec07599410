package tesseract

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/png"
	"log/slog"
	"os/exec"
	"strings"

	"github.com/veldtlabs/docdex/ocr"
)

// Engine runs the tesseract binary for text recognition. The binary is
// located once at construction; each Recognize call pipes a PNG-encoded
// page through a fresh process.
type Engine struct {
	binary string
	lang   string
	logger *slog.Logger
}

var _ ocr.Engine = (*Engine)(nil)

// New creates a tesseract-backed engine for the given language code
// (e.g. "eng"). Returns ocr.ErrEngineUnavailable if the binary is not on
// PATH.
func New(lang string) (*Engine, error) {
	binary, err := exec.LookPath("tesseract")
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ocr.ErrEngineUnavailable, err)
	}
	if lang == "" {
		lang = "eng"
	}
	return &Engine{
		binary: binary,
		lang:   lang,
		logger: slog.Default().With("component", "tesseract-engine"),
	}, nil
}

// Factory returns an ocr.EngineFactory constructing one engine per worker.
func Factory(lang string) ocr.EngineFactory {
	return func(ctx context.Context) (ocr.Engine, error) {
		return New(lang)
	}
}

// Recognize extracts text from a single page image.
func (e *Engine) Recognize(ctx context.Context, img image.Image) (string, error) {
	var in bytes.Buffer
	if err := png.Encode(&in, img); err != nil {
		return "", fmt.Errorf("encoding page for recognition: %w", err)
	}

	cmd := exec.CommandContext(ctx, e.binary, "stdin", "stdout", "-l", e.lang)
	cmd.Stdin = &in

	var out, stderr bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		e.logger.Debug("tesseract invocation failed", "err", err, "stderr", stderr.String())
		return "", fmt.Errorf("tesseract: %w: %s", err, strings.TrimSpace(stderr.String()))
	}

	return strings.TrimSpace(out.String()), nil
}

// Close releases engine resources. The command engine holds none.
func (e *Engine) Close() error {
	return nil
}
