package ingest

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"path"
	"path/filepath"

	"github.com/veldtlabs/docdex/core"
	"github.com/veldtlabs/docdex/ocr"
)

// ScanReport summarizes a corpus walk.
type ScanReport struct {
	// Scanned is the number of supported documents emitted as tasks.
	Scanned int

	// Unsupported is the number of files skipped for an unrecognized extension.
	Unsupported int

	// UnreadableDirs lists directories the walk could not descend into.
	UnreadableDirs []string
}

// Scanner walks a corpus laid out as root/<label>/<file> and emits one
// ingestion task per supported document. Discovery is lazy: the walk
// blocks in emit whenever the pipeline's task queue is full, so no
// corpus-sized listing is ever held in memory.
type Scanner struct {
	root     string
	selector ocr.Selector
	logger   *slog.Logger
}

// NewScanner creates a scanner over the corpus rooted at root.
// The selector assigns each task its preprocessing transform.
func NewScanner(root string, selector ocr.Selector, logger *slog.Logger) *Scanner {
	if logger == nil {
		logger = slog.Default()
	}

	return &Scanner{
		root:     root,
		selector: selector,
		logger:   logger,
	}
}

// Scan walks the corpus and calls emit for each supported document.
// The label is the name of the document's immediate parent directory;
// files directly under the root have no label and are skipped. A
// directory that cannot be read is recorded in the report and the walk
// continues with its siblings. Scan stops early if emit returns an
// error or the context is cancelled.
func (s *Scanner) Scan(ctx context.Context, emit func(core.IngestionTask) error) (*ScanReport, error) {
	report := &ScanReport{}

	err := filepath.WalkDir(s.root, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			// Record the unreadable entry and keep walking siblings.
			report.UnreadableDirs = append(report.UnreadableDirs, path)
			s.logger.Warn("skipping unreadable directory", "path", path, "err", walkErr)
			if d != nil && d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}

		if err := ctx.Err(); err != nil {
			return err
		}

		if d.IsDir() {
			return nil
		}

		rel, err := filepath.Rel(s.root, path)
		if err != nil {
			return fmt.Errorf("failed to relativize %s: %w", path, err)
		}
		rel = filepath.ToSlash(rel)

		label := labelFor(rel)
		if label == "" {
			s.logger.Debug("skipping unlabeled file at corpus root", "path", rel)
			return nil
		}

		if !ocr.IsSupported(filepath.Ext(path)) {
			report.Unsupported++
			s.logger.Debug("skipping unsupported file", "path", rel)
			return nil
		}

		task := core.IngestionTask{
			Id:         core.IDFromPath(rel),
			SourcePath: path,
			Label:      label,
			Transform:  s.selector.Pick(),
		}

		report.Scanned++
		return emit(task)
	})

	if err != nil {
		return report, err
	}

	return report, nil
}

// labelFor derives a document's label from its corpus-relative path.
// The label is the name of the document's immediate parent directory.
// Returns "" for files directly under the root.
func labelFor(rel string) string {
	dir := path.Dir(rel)
	if dir == "." {
		return ""
	}
	return path.Base(dir)
}
