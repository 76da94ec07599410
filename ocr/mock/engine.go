package mock

import (
	"context"
	"fmt"
	"image"
	"sync/atomic"

	"github.com/veldtlabs/docdex/ocr"
)

// MockEngine is a test double for ocr.Engine.
// It allows custom behavior injection via function fields.
type MockEngine struct {
	// RecognizeFunc is called by Recognize if set.
	// If nil, uses default deterministic behavior.
	RecognizeFunc func(ctx context.Context, img image.Image) (string, error)

	recognizeCalls atomic.Int64
	closed         atomic.Bool
}

var _ ocr.Engine = (*MockEngine)(nil)

// NewMockEngine creates a mock engine with default deterministic behavior.
func NewMockEngine() *MockEngine {
	return &MockEngine{}
}

// Recognize returns deterministic text derived from the image dimensions,
// or delegates to RecognizeFunc when set.
func (m *MockEngine) Recognize(ctx context.Context, img image.Image) (string, error) {
	m.recognizeCalls.Add(1)

	if m.RecognizeFunc != nil {
		return m.RecognizeFunc(ctx, img)
	}

	bounds := img.Bounds()
	return fmt.Sprintf("recognized %dx%d page", bounds.Dx(), bounds.Dy()), nil
}

// Close marks the engine closed.
func (m *MockEngine) Close() error {
	m.closed.Store(true)
	return nil
}

// RecognizeCalls returns the number of Recognize invocations.
func (m *MockEngine) RecognizeCalls() int {
	return int(m.recognizeCalls.Load())
}

// Closed reports whether Close has been called.
func (m *MockEngine) Closed() bool {
	return m.closed.Load()
}

// CountingFactory wraps an engine factory and counts constructions.
// Tests use it to assert that the pool constructs exactly one engine per
// worker regardless of corpus size.
type CountingFactory struct {
	constructions atomic.Int64
	engines       []*MockEngine
}

// NewCountingFactory creates a factory producing MockEngines.
func NewCountingFactory() *CountingFactory {
	return &CountingFactory{}
}

// Factory returns the ocr.EngineFactory to hand to the pool.
func (f *CountingFactory) Factory() ocr.EngineFactory {
	return func(ctx context.Context) (ocr.Engine, error) {
		f.constructions.Add(1)
		engine := NewMockEngine()
		f.engines = append(f.engines, engine)
		return engine, nil
	}
}

// Constructions returns how many engines have been built.
func (f *CountingFactory) Constructions() int {
	return int(f.constructions.Load())
}

// Engines returns every engine the factory has built.
func (f *CountingFactory) Engines() []*MockEngine {
	return f.engines
}

// RecognizeCalls sums Recognize invocations across all built engines.
func (f *CountingFactory) RecognizeCalls() int {
	total := 0
	for _, engine := range f.engines {
		total += engine.RecognizeCalls()
	}
	return total
}
