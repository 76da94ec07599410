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


package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/panjf2000/ants/v2"

	"github.com/veldtlabs/docdex/core"
	"github.com/veldtlabs/docdex/ocr"
)

// RecognitionPool runs text extraction across a fixed set of workers.
//
// Engine ownership is the pool's core invariant: the factory is invoked
// exactly once per worker at construction time, and a worker leases an
// engine for the duration of a single task. A crashed task poisons its
// engine; the pool drops the engine and shrinks concurrency by one
// rather than constructing a replacement. Once crashes exceed the
// restart budget, Submit refuses further work.
type RecognitionPool struct {
	pool          *ants.Pool
	engines       chan ocr.Engine
	size          int
	restartBudget int
	crashes       atomic.Int64
	released      atomic.Bool
	metrics       *Metrics
	logger        *slog.Logger
	mu            sync.Mutex // guards Tune and the engines channel close/return
}

// NewRecognitionPool creates a pool of size workers, constructing one
// engine per worker up front. If any construction fails, engines built
// so far are closed and the error is returned.
func NewRecognitionPool(ctx context.Context, size int, factory ocr.EngineFactory, restartBudget int, metrics *Metrics, logger *slog.Logger) (*RecognitionPool, error) {
	if factory == nil {
		return nil, ErrEngineFactoryRequired
	}
	if size < 1 {
		size = 1
	}
	if logger == nil {
		logger = slog.Default()
	}
	if metrics == nil {
		metrics = NewMetrics(nil)
	}

	engines := make(chan ocr.Engine, size)
	for i := 0; i < size; i++ {
		engine, err := factory(ctx)
		if err != nil {
			close(engines)
			for e := range engines {
				e.Close()
			}
			return nil, fmt.Errorf("failed to construct engine %d of %d: %w", i+1, size, err)
		}
		engines <- engine
	}

	pool, err := ants.NewPool(size)
	if err != nil {
		close(engines)
		for e := range engines {
			e.Close()
		}
		return nil, err
	}

	return &RecognitionPool{
		pool:          pool,
		engines:       engines,
		size:          size,
		restartBudget: restartBudget,
		metrics:       metrics,
		logger:        logger,
	}, nil
}

// Submit schedules recognition of task. The result (success or
// per-document failure) is delivered on results; done is called exactly
// once when the task finishes, crashes included. Submit blocks while
// all workers are busy, which is what bounds the number of decoded
// images in flight.
//
// Returns ErrWorkerCrashBudget once worker crashes have exceeded the
// restart budget; the caller should abort the run.
func (p *RecognitionPool) Submit(ctx context.Context, task core.IngestionTask, results chan<- core.RecognitionResult, done func()) error {
	if p.released.Load() {
		done()
		return ErrPoolClosed
	}
	// Refuse work once crashes exceed the budget, or once every engine
	// has been poisoned and no worker could ever pick the task up.
	if crashes := int(p.crashes.Load()); crashes > p.restartBudget || crashes >= p.size {
		done()
		return ErrWorkerCrashBudget
	}

	err := p.pool.Submit(func() {
		defer done()

		engine, ok := p.leaseEngine(ctx)
		if !ok {
			err := ctx.Err()
			if err == nil {
				err = ErrPoolClosed
			}
			p.deliver(ctx, results, core.RecognitionResult{Task: task, Err: err})
			return
		}

		defer func() {
			if r := recover(); r != nil {
				p.handleCrash(task, r)
				p.deliver(ctx, results, core.RecognitionResult{
					Task: task,
					Err:  fmt.Errorf("worker crashed: %v", r),
				})
			}
		}()

		result := p.processTask(ctx, engine, task)

		// The engine survives only a clean task. Returning it before
		// delivering the result keeps the worker slot and engine count
		// in step.
		p.returnEngine(engine)
		p.deliver(ctx, results, result)
	})
	if err != nil {
		done()
		return err
	}

	return nil
}

// CrashCount returns the number of worker crashes so far.
func (p *RecognitionPool) CrashCount() int {
	return int(p.crashes.Load())
}

// Release shuts the pool down and closes all engines. A worker still
// running past Release (an abandoned post-grace task) closes its leased
// engine itself when it finishes.
func (p *RecognitionPool) Release() {
	if !p.released.CompareAndSwap(false, true) {
		return
	}

	p.pool.Release()

	p.mu.Lock()
	close(p.engines)
	p.mu.Unlock()

	for engine := range p.engines {
		p.closeEngine(engine)
	}
}

// returnEngine hands a leased engine back after a clean task. A late
// return after Release closes the engine instead of touching the
// drained lease channel.
func (p *RecognitionPool) returnEngine(engine ocr.Engine) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.released.Load() {
		p.closeEngine(engine)
		return
	}
	p.engines <- engine
}

func (p *RecognitionPool) closeEngine(engine ocr.Engine) {
	if err := engine.Close(); err != nil {
		p.logger.Warn("error closing engine", "err", err)
	}
}

// leaseEngine takes an engine from the pool, giving up on cancellation.
func (p *RecognitionPool) leaseEngine(ctx context.Context) (ocr.Engine, bool) {
	select {
	case engine, ok := <-p.engines:
		return engine, ok
	case <-ctx.Done():
		return nil, false
	}
}

// handleCrash accounts for a crashed worker. The poisoned engine is not
// returned to the lease channel, and pool concurrency shrinks to match
// the remaining engines.
func (p *RecognitionPool) handleCrash(task core.IngestionTask, reason any) {
	crashes := p.crashes.Add(1)
	p.metrics.WorkerCrashes.Inc()

	p.mu.Lock()
	remaining := p.size - int(crashes)
	if remaining >= 1 {
		p.pool.Tune(remaining)
	}
	p.mu.Unlock()

	p.logger.Error("recognition worker crashed",
		"path", task.SourcePath,
		"reason", fmt.Sprint(reason),
		"crashes", crashes,
		"budget", p.restartBudget,
		"remainingWorkers", remaining)
}

// deliver sends a result without blocking past cancellation.
func (p *RecognitionPool) deliver(ctx context.Context, results chan<- core.RecognitionResult, result core.RecognitionResult) {
	select {
	case results <- result:
	case <-ctx.Done():
	}
}

// processTask loads the document's pages, applies the task's transform,
// and recognizes each page with the leased engine. Pages that fail to
// recognize are logged and skipped; the task fails only when no page
// yields text.
func (p *RecognitionPool) processTask(ctx context.Context, engine ocr.Engine, task core.IngestionTask) core.RecognitionResult {
	pages, err := ocr.LoadPages(task.SourcePath)
	if err != nil {
		return core.RecognitionResult{Task: task, Err: fmt.Errorf("failed to load %s: %w", task.SourcePath, err)}
	}

	var parts []string
	var lastErr error
	for i, page := range pages {
		if err := ctx.Err(); err != nil {
			return core.RecognitionResult{Task: task, Err: err}
		}

		transformed := ocr.ApplyTransform(task.Transform, page)

		text, err := engine.Recognize(ctx, transformed)
		if err != nil {
			lastErr = err
			p.logger.Warn("page recognition failed",
				"path", task.SourcePath, "page", i+1, "pages", len(pages), "err", err)
			continue
		}

		text = strings.TrimSpace(text)
		if text != "" {
			parts = append(parts, text)
		}
	}

	if len(parts) == 0 {
		if lastErr != nil {
			return core.RecognitionResult{Task: task, Err: fmt.Errorf("recognition failed on all %d pages: %w", len(pages), lastErr)}
		}
		return core.RecognitionResult{Task: task, Err: fmt.Errorf("%w: %s", ErrNoTextRecognized, task.SourcePath)}
	}

	return core.RecognitionResult{Task: task, Text: strings.Join(parts, "\n")}
}
