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


package docdex

import (
	"log/slog"

	"github.com/veldtlabs/docdex/embed"
	"github.com/veldtlabs/docdex/embed/openai"
	"github.com/veldtlabs/docdex/ingest"
	"github.com/veldtlabs/docdex/ocr"
	"github.com/veldtlabs/docdex/ocr/tesseract"
	"github.com/veldtlabs/docdex/search"
	"github.com/veldtlabs/docdex/storage"
	"github.com/veldtlabs/docdex/storage/badger"
)

// Store bundles the document store, ingestion ledger, and embedding
// model behind one handle. It is the entry point for both the CLI and
// library consumers.
type Store struct {
	backend    *badger.Backend
	docRepo    storage.DocumentRepository
	ledgerRepo storage.LedgerRepository
	embedder   embed.Embedder
	ocrLang    string
	logger     *slog.Logger
}

// StoreOption configures a Store.
type StoreOption func(*storeOptions)

type storeOptions struct {
	embedConfig *embed.Config
	ocrLang     string
}

// WithEmbeddingConfig sets the embedding endpoint configuration.
// Default is embed.DefaultConfig().
func WithEmbeddingConfig(config *embed.Config) StoreOption {
	return func(o *storeOptions) {
		if config != nil {
			o.embedConfig = config
		}
	}
}

// WithOCRLanguage sets the recognition language passed to tesseract.
// Default is "eng".
func WithOCRLanguage(lang string) StoreOption {
	return func(o *storeOptions) {
		if lang != "" {
			o.ocrLang = lang
		}
	}
}

// OpenStore opens (or creates) a document store at filePath.
func OpenStore(filePath string, opts ...StoreOption) (*Store, error) {
	options := &storeOptions{
		embedConfig: embed.DefaultConfig(),
		ocrLang:     "eng",
	}
	for _, opt := range opts {
		opt(options)
	}

	backend, err := badger.OpenBackend(filePath, false)
	if err != nil {
		return nil, err
	}

	docRepo, err := badger.NewDocumentRepository(backend)
	if err != nil {
		backend.Close()
		return nil, err
	}

	ledgerRepo, err := badger.NewLedgerRepository(backend)
	if err != nil {
		docRepo.Close()
		backend.Close()
		return nil, err
	}

	embedder, err := openai.NewEmbedder(options.embedConfig)
	if err != nil {
		ledgerRepo.Close()
		docRepo.Close()
		backend.Close()
		return nil, err
	}

	return &Store{
		backend:    backend,
		docRepo:    docRepo,
		ledgerRepo: ledgerRepo,
		embedder:   embedder,
		ocrLang:    options.ocrLang,
		logger:     slog.Default(),
	}, nil
}

// Close releases the store's resources.
func (s *Store) Close() error {
	if err := s.ledgerRepo.Close(); err != nil {
		s.logger.Error("error closing ledger repository", "err", err)
		return err
	}
	if err := s.docRepo.Close(); err != nil {
		s.logger.Error("error closing document repository", "err", err)
		return err
	}
	if err := s.backend.Close(); err != nil {
		s.logger.Error("error closing backend storage", "err", err)
		return err
	}
	return nil
}

// DocumentRepository exposes the underlying document store.
func (s *Store) DocumentRepository() storage.DocumentRepository {
	return s.docRepo
}

// LedgerRepository exposes the ingestion ledger.
func (s *Store) LedgerRepository() storage.LedgerRepository {
	return s.ledgerRepo
}

// EngineFactory returns the recognition engine factory used for ingestion.
func (s *Store) EngineFactory() ocr.EngineFactory {
	return tesseract.Factory(s.ocrLang)
}

// NewPipeline creates an ingestion pipeline bound to this store.
func (s *Store) NewPipeline(opts ...ingest.Option) (*ingest.Pipeline, error) {
	return ingest.NewPipeline(s.docRepo, s.ledgerRepo, s.embedder, s.EngineFactory(), opts...)
}

// NewSearcher creates a searcher bound to this store.
func (s *Store) NewSearcher(opts ...search.Option) (*search.Searcher, error) {
	return search.NewSearcher(s.docRepo, s.embedder, opts...)
}
