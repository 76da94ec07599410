package ingest

import "errors"

var (
	// ErrDocumentRepositoryRequired is returned when a document repository is not provided.
	ErrDocumentRepositoryRequired = errors.New("document repository required")

	// ErrLedgerRepositoryRequired is returned when a ledger repository is not provided.
	ErrLedgerRepositoryRequired = errors.New("ledger repository required")

	// ErrEmbedderRequired is returned when an embedder is not provided.
	ErrEmbedderRequired = errors.New("embedder required")

	// ErrEngineFactoryRequired is returned when an engine factory is not provided.
	ErrEngineFactoryRequired = errors.New("engine factory required")

	// ErrInvalidMaxAttempts is returned when a retry helper is invoked with
	// a non-positive attempt budget.
	ErrInvalidMaxAttempts = errors.New("max attempts must be greater than zero")

	// ErrWorkerCrashBudget is returned when recognition workers have crashed
	// more times than the restart budget allows.
	ErrWorkerCrashBudget = errors.New("worker crash budget exhausted")

	// ErrEmbeddingAborted is returned when the embedding coordinator cannot
	// make progress even after reducing the batch size.
	ErrEmbeddingAborted = errors.New("embedding aborted: batch failed at every size")

	// ErrPoolClosed is returned when work is submitted to a released pool.
	ErrPoolClosed = errors.New("recognition pool closed")

	// ErrNoTextRecognized marks a document whose pages all produced
	// empty or failed recognition output.
	ErrNoTextRecognized = errors.New("no text recognized")
)
