package core

import (
	"encoding/binary"
	"time"

	"github.com/go-crypt/x/blake2b"
)

// ID is a unique identifier for ingested documents.
// It is derived deterministically from the document's corpus-relative path.
type ID uint64

// IDFromPath generates a deterministic ID from a corpus-relative path using
// BLAKE2b hashing. Re-scanning an unchanged corpus produces identical IDs,
// which is what makes re-ingestion idempotent.
func IDFromPath(relPath string) ID {
	h, _ := blake2b.New(8, nil) // 8 bytes = 64 bits
	h.Write([]byte(relPath))
	sum := h.Sum(nil)
	return ID(binary.LittleEndian.Uint64(sum))
}

// Transform names a preprocessing filter applied to a document image
// before recognition.
type Transform int

const (
	// TransformIdentity passes the image through unchanged.
	TransformIdentity Transform = iota + 1
	// TransformDenoise applies a box-blur noise reduction.
	TransformDenoise
	// TransformAdaptiveThreshold binarizes the image against a local mean.
	TransformAdaptiveThreshold
	// TransformDeskew straightens slightly rotated scans.
	TransformDeskew
)

// Transforms lists every transform the augmentation selector may choose.
var Transforms = []Transform{
	TransformIdentity,
	TransformDenoise,
	TransformAdaptiveThreshold,
	TransformDeskew,
}

// String returns the transform's wire name.
func (t Transform) String() string {
	switch t {
	case TransformIdentity:
		return "identity"
	case TransformDenoise:
		return "denoise"
	case TransformAdaptiveThreshold:
		return "adaptive_threshold"
	case TransformDeskew:
		return "deskew"
	default:
		return "unknown"
	}
}

// State tracks a document's progress through the ingestion pipeline.
type State int

const (
	// StatePending means the document has been discovered but not processed.
	StatePending State = iota + 1
	// StateOCRDone means text extraction succeeded and the text is staged.
	StateOCRDone
	// StateEmbedded means an embedding has been computed but not committed.
	StateEmbedded
	// StatePersisted means the record is durably stored. Terminal.
	StatePersisted
	// StateFailed means the last attempt failed. Retried until the retry
	// budget is exhausted, then permanently skipped.
	StateFailed
)

// String returns the state's wire name.
func (s State) String() string {
	switch s {
	case StatePending:
		return "pending"
	case StateOCRDone:
		return "ocr_done"
	case StateEmbedded:
		return "embedded"
	case StatePersisted:
		return "persisted"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// IngestionTask describes one document to be ingested.
// Created by the scanner and immutable once created.
type IngestionTask struct {
	Id         ID
	SourcePath string
	Label      string
	Transform  Transform
}

// RecognitionResult is a worker's output for a single task.
// A non-nil Err marks a per-document failure; it never indicates a
// worker-level fault.
type RecognitionResult struct {
	Task IngestionTask
	Text string
	Err  error
}

// DocumentRecord is the persisted unit: extracted text, its embedding
// vector, and the source metadata needed by downstream classifiers.
type DocumentRecord struct {
	Id         ID
	SourcePath string
	Label      string
	Transform  Transform
	Text       string
	Vector     []float32
	InsertedAt time.Time
	UpdatedAt  time.Time
}

// LedgerEntry records a document's ingestion progress for resumability.
// Entries are mutated only by the pipeline orchestrator.
type LedgerEntry struct {
	Id        ID
	State     State
	Attempts  int
	LastError string
	UpdatedAt time.Time
}

// SearchResult pairs a stored document with a relevance score.
type SearchResult struct {
	Record *DocumentRecord
	Score  float32
}
