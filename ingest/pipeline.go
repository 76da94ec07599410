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
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/veldtlabs/docdex/core"
	"github.com/veldtlabs/docdex/embed"
	"github.com/veldtlabs/docdex/ocr"
	"github.com/veldtlabs/docdex/storage"
)

// Failure describes one document the run could not persist.
type Failure struct {
	Id         core.ID
	SourcePath string
	Stage      string
	Reason     string
}

// Summary reports the outcome of an ingestion run.
type Summary struct {
	// RunID uniquely identifies this run in logs.
	RunID string

	// Root is the corpus root that was scanned.
	Root string

	// Scanned is the number of supported documents discovered.
	Scanned int

	// Persisted is the number of documents durably committed this run.
	Persisted int

	// Skipped is the number of documents already persisted by an earlier run.
	Skipped int

	// Unsupported is the number of files skipped for an unrecognized extension.
	Unsupported int

	// Failed is the number of documents that failed a stage this run.
	Failed int

	// Exhausted is the number of documents skipped permanently because
	// their attempt budget ran out in earlier runs.
	Exhausted int

	// Interrupted reports whether the run was cancelled before completion.
	Interrupted bool

	// UnreadableDirs lists directories the scanner could not read.
	UnreadableDirs []string

	// Failures details every failed or permanently skipped document.
	Failures []Failure

	// Elapsed is the wall-clock duration of the run.
	Elapsed time.Duration
}

// Pipeline orchestrates a full ingestion run: scan, recognize, embed,
// persist. It owns the stage wiring and the ledger; see the package
// documentation for the concurrency model.
type Pipeline struct {
	docRepo  storage.DocumentRepository
	ledger   storage.LedgerRepository
	embedder embed.Embedder
	factory  ocr.EngineFactory
	selector ocr.Selector
	config   *Config
	progress io.Writer
	metrics  *Metrics
	logger   *slog.Logger
}

// Option configures a Pipeline.
type Option func(*Pipeline) error

// WithConfig sets the run configuration.
// Default is DefaultConfig().
func WithConfig(config *Config) Option {
	return func(p *Pipeline) error {
		if config == nil {
			config = DefaultConfig()
		}
		if err := config.Validate(); err != nil {
			return err
		}
		p.config = config
		return nil
	}
}

// WithSelector sets the augmentation selector.
// Default is ocr.UniformSelector.
func WithSelector(selector ocr.Selector) Option {
	return func(p *Pipeline) error {
		if selector == nil {
			selector = ocr.UniformSelector{}
		}
		p.selector = selector
		return nil
	}
}

// WithProgress sets where progress output is written (typically os.Stderr).
// Default is io.Discard.
func WithProgress(w io.Writer) Option {
	return func(p *Pipeline) error {
		if w == nil {
			w = io.Discard
		}
		p.progress = w
		return nil
	}
}

// WithMetrics sets the instrumentation counters.
// Default is unregistered counters.
func WithMetrics(metrics *Metrics) Option {
	return func(p *Pipeline) error {
		if metrics == nil {
			metrics = NewMetrics(nil)
		}
		p.metrics = metrics
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) error {
		if logger == nil {
			logger = slog.Default()
		}
		p.logger = logger
		return nil
	}
}

// NewPipeline creates an ingestion pipeline.
func NewPipeline(
	docRepo storage.DocumentRepository,
	ledger storage.LedgerRepository,
	embedder embed.Embedder,
	factory ocr.EngineFactory,
	opts ...Option,
) (*Pipeline, error) {
	if docRepo == nil {
		return nil, ErrDocumentRepositoryRequired
	}
	if ledger == nil {
		return nil, ErrLedgerRepositoryRequired
	}
	if embedder == nil {
		return nil, ErrEmbedderRequired
	}
	if factory == nil {
		return nil, ErrEngineFactoryRequired
	}

	p := &Pipeline{
		docRepo:  docRepo,
		ledger:   ledger,
		embedder: embedder,
		factory:  factory,
		selector: ocr.UniformSelector{},
		config:   DefaultConfig(),
		progress: io.Discard,
		metrics:  NewMetrics(nil),
		logger:   slog.Default(),
	}

	for _, opt := range opts {
		if err := opt(p); err != nil {
			return nil, err
		}
	}

	return p, nil
}

// accumulator collects run statistics from the pipeline's goroutines.
type accumulator struct {
	mu      sync.Mutex
	summary *Summary
}

func (a *accumulator) addScan(report *ScanReport) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.summary.Scanned = report.Scanned
	a.summary.Unsupported = report.Unsupported
	a.summary.UnreadableDirs = report.UnreadableDirs
}

func (a *accumulator) addSkipped() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.summary.Skipped++
}

func (a *accumulator) addPersisted(n int) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.summary.Persisted += n
}

func (a *accumulator) addFailure(f Failure) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.summary.Failed++
	a.summary.Failures = append(a.summary.Failures, f)
}

func (a *accumulator) addExhausted(f Failure) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.summary.Exhausted++
	a.summary.Failures = append(a.summary.Failures, f)
}

// Run executes a full ingestion of the corpus rooted at root.
//
// The run is resumable and idempotent: documents already persisted are
// skipped, documents whose text was extracted by an interrupted run
// resume at the embedding stage, and documents past their attempt
// budget are skipped permanently and reported. On cancellation the run
// stops dispatching, gives in-flight recognition the configured grace
// period, discards any batch not yet durably committed, and returns the
// context error with Summary.Interrupted set.
func (p *Pipeline) Run(ctx context.Context, root string) (*Summary, error) {
	start := time.Now()
	summary := &Summary{RunID: uuid.NewString(), Root: root}
	acc := &accumulator{summary: summary}

	logger := p.logger.With("runId", summary.RunID)
	logger.Info("starting ingestion run",
		"root", root,
		"workers", p.config.Workers,
		"batchSize", p.config.BatchSize)

	pool, err := NewRecognitionPool(ctx, p.config.Workers, p.factory, p.config.WorkerRestartBudget, p.metrics, logger)
	if err != nil {
		return nil, err
	}
	defer pool.Release()

	coordinator, err := NewEmbeddingCoordinator(p.embedder, p.config.MaxRetries, p.config.RetryDelay, logger)
	if err != nil {
		return nil, err
	}

	writer, err := NewStoreWriter(p.docRepo, p.config.MaxRetries, p.config.RetryDelay, logger)
	if err != nil {
		return nil, err
	}

	tracker := NewProgressTracker(p.progress, 0, p.config.ReportInterval)
	tracker.Start()

	tasks := make(chan core.IngestionTask, p.config.QueueDepth())
	results := make(chan core.RecognitionResult, p.config.Workers)
	abandon := make(chan struct{})

	g, gctx := errgroup.WithContext(ctx)

	// Stage 1: corpus scan. Lazy, bounded by the tasks channel.
	scanner := NewScanner(root, p.selector, logger)
	g.Go(func() error {
		defer close(tasks)

		report, err := scanner.Scan(gctx, func(task core.IngestionTask) error {
			p.metrics.DocumentsScanned.Inc()
			select {
			case tasks <- task:
				return nil
			case <-gctx.Done():
				return gctx.Err()
			}
		})

		// The scan is the only source of the corpus size; once it ends the
		// tracker can report percentages instead of bare counts.
		tracker.SetTotal(report.Scanned)
		acc.addScan(report)
		return err
	})

	// Stage 2: ledger consultation and dispatch to the recognition pool.
	g.Go(func() error {
		var inFlight sync.WaitGroup

		defer func() {
			drained := make(chan struct{})
			go func() {
				inFlight.Wait()
				close(drained)
			}()

			select {
			case <-drained:
				close(results)
			case <-gctx.Done():
				select {
				case <-drained:
					close(results)
				case <-time.After(p.config.ShutdownGrace):
					logger.Warn("shutdown grace expired, abandoning in-flight recognition")
					close(abandon)
				}
			}
		}()

		for task := range tasks {
			if err := gctx.Err(); err != nil {
				return err
			}

			submit, err := p.triage(gctx, task, acc, tracker, results)
			if err != nil {
				return err
			}
			if !submit {
				continue
			}

			inFlight.Add(1)
			if err := pool.Submit(gctx, task, results, inFlight.Done); err != nil {
				return err
			}
		}

		return nil
	})

	// Stage 3: collect recognition results, embed in batches, persist.
	// Runs in a single goroutine so the embedder is never shared.
	g.Go(func() error {
		return p.collect(gctx, coordinator, writer, results, abandon, acc, tracker, logger)
	})

	runErr := g.Wait()

	tracker.Finish()
	summary.Elapsed = time.Since(start)

	if runErr != nil {
		if errors.Is(runErr, context.Canceled) || errors.Is(runErr, context.DeadlineExceeded) {
			summary.Interrupted = true
		}
		logger.Warn("ingestion run stopped",
			"persisted", summary.Persisted,
			"failed", summary.Failed,
			"interrupted", summary.Interrupted,
			"err", runErr)
		return summary, runErr
	}

	logger.Info("ingestion run complete",
		"scanned", summary.Scanned,
		"persisted", summary.Persisted,
		"skipped", summary.Skipped,
		"unsupported", summary.Unsupported,
		"failed", summary.Failed,
		"elapsed", summary.Elapsed.Round(time.Millisecond))

	fmt.Fprintf(p.progress, "Ingestion complete. Persisted %d of %d documents in %v (%d skipped, %d failed)\n",
		summary.Persisted, summary.Scanned, summary.Elapsed.Round(time.Second), summary.Skipped, summary.Failed)

	return summary, nil
}

// triage decides what to do with a scanned task: skip it, resume it at
// the embedding stage, or submit it for recognition. Returns true when
// the task should go to the recognition pool.
func (p *Pipeline) triage(ctx context.Context, task core.IngestionTask, acc *accumulator, tracker *ProgressTracker, results chan<- core.RecognitionResult) (bool, error) {
	entry, err := p.ledger.Get(ctx, task.Id)
	if err != nil {
		return false, fmt.Errorf("ledger lookup failed for %s: %w", task.SourcePath, err)
	}

	if entry != nil {
		switch {
		case entry.State == core.StatePersisted:
			acc.addSkipped()
			p.metrics.DocumentsSkipped.Inc()
			tracker.Increment(1)
			return false, nil

		case entry.State == core.StateFailed && entry.Attempts >= p.config.MaxAttempts:
			acc.addExhausted(Failure{
				Id:         task.Id,
				SourcePath: task.SourcePath,
				Stage:      "retry budget",
				Reason:     entry.LastError,
			})
			tracker.Increment(1)
			return false, nil

		case entry.State == core.StateOCRDone || entry.State == core.StateEmbedded:
			// Text was extracted by an earlier run. Resume at the
			// embedding stage instead of re-running recognition.
			staged, err := p.docRepo.GetDocument(ctx, task.Id)
			if err == nil && staged.Text != "" {
				select {
				case results <- core.RecognitionResult{Task: task, Text: staged.Text}:
					return false, nil
				case <-ctx.Done():
					return false, ctx.Err()
				}
			}
			if err != nil && !errors.Is(err, storage.ErrNotFound) {
				return false, fmt.Errorf("failed to load staged text for %s: %w", task.SourcePath, err)
			}
			// Staged text is gone; fall through to recognition.
		}
	}

	if entry == nil {
		if _, err := p.ledger.Advance(ctx, task.Id, core.StatePending, ""); err != nil {
			return false, fmt.Errorf("ledger advance failed for %s: %w", task.SourcePath, err)
		}
	}

	return true, nil
}

// collect drains recognition results, batches successful extractions for
// embedding, and commits finished batches. A partial batch is flushed
// after the configured timeout so a slow trickle of results still makes
// progress.
func (p *Pipeline) collect(
	ctx context.Context,
	coordinator *EmbeddingCoordinator,
	writer *StoreWriter,
	results <-chan core.RecognitionResult,
	abandon <-chan struct{},
	acc *accumulator,
	tracker *ProgressTracker,
	logger *slog.Logger,
) error {
	var batch []core.RecognitionResult

	flushTimer := time.NewTimer(p.config.FlushTimeout)
	defer flushTimer.Stop()
	stopFlushTimer(flushTimer)

	for {
		select {
		case res, ok := <-results:
			if !ok {
				// Input exhausted; commit whatever is pending.
				return p.commitBatch(ctx, coordinator, writer, batch, acc, tracker)
			}

			if res.Err != nil {
				p.markFailed(ctx, res.Task, "recognition", res.Err, acc, tracker, logger)
				continue
			}

			p.stageText(ctx, res, logger)

			batch = append(batch, res)
			if len(batch) == 1 {
				flushTimer.Reset(p.config.FlushTimeout)
			}
			if len(batch) >= p.config.BatchSize {
				stopFlushTimer(flushTimer)
				if err := p.commitBatch(ctx, coordinator, writer, batch, acc, tracker); err != nil {
					return err
				}
				batch = nil
			}

		case <-flushTimer.C:
			if err := p.commitBatch(ctx, coordinator, writer, batch, acc, tracker); err != nil {
				return err
			}
			batch = nil

		case <-abandon:
			// Cancelled and past the grace period. The pending batch was
			// never embedded or committed; ledger entries stay at their
			// last durable state, so the next run picks these up again.
			return ctx.Err()
		}
	}
}

// commitBatch embeds a batch and writes the resulting records in one
// atomic store transaction. Items the coordinator could not embed are
// marked failed; the rest of the batch still commits.
func (p *Pipeline) commitBatch(
	ctx context.Context,
	coordinator *EmbeddingCoordinator,
	writer *StoreWriter,
	batch []core.RecognitionResult,
	acc *accumulator,
	tracker *ProgressTracker,
) error {
	if len(batch) == 0 {
		return nil
	}

	texts := make([]string, len(batch))
	for i, res := range batch {
		texts[i] = res.Text
	}

	vectors, itemErrs, err := coordinator.EmbedBatch(ctx, texts)
	if err != nil {
		return err
	}

	records := make([]*core.DocumentRecord, 0, len(batch))
	for i, res := range batch {
		if itemErrs[i] != nil {
			p.markFailed(ctx, res.Task, "embedding", itemErrs[i], acc, tracker, p.logger)
			continue
		}

		if _, err := p.ledger.Advance(ctx, res.Task.Id, core.StateEmbedded, ""); err != nil {
			p.logger.Warn("ledger advance to embedded failed", "id", res.Task.Id, "err", err)
		}

		records = append(records, &core.DocumentRecord{
			Id:         res.Task.Id,
			SourcePath: res.Task.SourcePath,
			Label:      res.Task.Label,
			Transform:  res.Task.Transform,
			Text:       res.Text,
			Vector:     vectors[i],
		})
	}

	if len(records) == 0 {
		return nil
	}

	if err := writer.WriteBatch(ctx, records); err != nil {
		// A store outage is not the documents' fault. The ledger stays at
		// ocr_done/embedded so the next run re-embeds from staged text
		// without burning an attempt.
		for _, record := range records {
			acc.addFailure(Failure{
				Id:         record.Id,
				SourcePath: record.SourcePath,
				Stage:      "persist",
				Reason:     err.Error(),
			})
			p.metrics.DocumentsFailed.Inc()
			tracker.Increment(1)
		}
		return err
	}

	for _, record := range records {
		if _, err := p.ledger.Advance(ctx, record.Id, core.StatePersisted, ""); err != nil {
			// The record is durable; a stale ledger entry only costs a
			// redundant re-embed on the next run.
			p.logger.Warn("ledger advance to persisted failed", "id", record.Id, "err", err)
		}
	}

	acc.addPersisted(len(records))
	p.metrics.DocumentsPersisted.Add(float64(len(records)))
	p.metrics.BatchesCommitted.Inc()
	tracker.Increment(len(records))

	return nil
}

// stageText durably stages extracted text so an interrupted run can
// resume at the embedding stage. Best effort: a staging failure costs a
// re-recognition on the next run, nothing more.
func (p *Pipeline) stageText(ctx context.Context, res core.RecognitionResult, logger *slog.Logger) {
	record := &core.DocumentRecord{
		Id:         res.Task.Id,
		SourcePath: res.Task.SourcePath,
		Label:      res.Task.Label,
		Transform:  res.Task.Transform,
		Text:       res.Text,
	}

	if _, err := p.docRepo.UpsertDocuments(ctx, record); err != nil {
		logger.Warn("failed to stage extracted text", "id", res.Task.Id, "err", err)
		return
	}

	if _, err := p.ledger.Advance(ctx, res.Task.Id, core.StateOCRDone, ""); err != nil {
		logger.Warn("ledger advance to ocr_done failed", "id", res.Task.Id, "err", err)
	}
}

// markFailed records a per-document failure in the ledger and summary.
func (p *Pipeline) markFailed(ctx context.Context, task core.IngestionTask, stage string, cause error, acc *accumulator, tracker *ProgressTracker, logger *slog.Logger) {
	if _, err := p.ledger.Advance(ctx, task.Id, core.StateFailed, cause.Error()); err != nil {
		logger.Warn("ledger advance to failed errored", "id", task.Id, "err", err)
	}

	acc.addFailure(Failure{
		Id:         task.Id,
		SourcePath: task.SourcePath,
		Stage:      stage,
		Reason:     cause.Error(),
	})
	p.metrics.DocumentsFailed.Inc()
	tracker.Increment(1)

	logger.Warn("document failed", "path", task.SourcePath, "stage", stage, "err", cause)
}

// stopFlushTimer stops a timer and drains its channel if it already fired.
func stopFlushTimer(t *time.Timer) {
	if !t.Stop() {
		select {
		case <-t.C:
		default:
		}
	}
}
