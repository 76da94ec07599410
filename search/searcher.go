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


package search

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/veldtlabs/docdex/core"
	"github.com/veldtlabs/docdex/embed"
	"github.com/veldtlabs/docdex/storage"
)

const (
	// defaultMinSimilarity filters out hits with near-zero cosine similarity.
	defaultMinSimilarity = 0.1

	// verbatimBoost is added when a document contains every query word.
	verbatimBoost = 0.3

	// overfetchFactor retrieves extra candidates so label filtering and
	// verbatim reranking still fill maxHits.
	overfetchFactor = 4
)

// Searcher provides semantic search over ingested document records.
type Searcher struct {
	docRepo       storage.DocumentRepository
	embedder      embed.Embedder
	minSimilarity float32
	logger        *slog.Logger
}

// Option configures a Searcher.
type Option func(*Searcher) error

// WithMinSimilarity sets the similarity floor below which hits are dropped.
// Default is 0.1.
func WithMinSimilarity(min float32) Option {
	return func(s *Searcher) error {
		s.minSimilarity = min
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *Searcher) error {
		if logger == nil {
			logger = slog.Default()
		}
		s.logger = logger
		return nil
	}
}

// NewSearcher creates a new searcher.
func NewSearcher(docRepo storage.DocumentRepository, embedder embed.Embedder, opts ...Option) (*Searcher, error) {
	if docRepo == nil {
		return nil, ErrDocumentRepositoryRequired
	}
	if embedder == nil {
		return nil, ErrEmbedderRequired
	}

	s := &Searcher{
		docRepo:       docRepo,
		embedder:      embedder,
		minSimilarity: defaultMinSimilarity,
		logger:        slog.Default(),
	}

	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}

	return s, nil
}

// Search finds the maxHits documents most similar to the query text,
// ordered by score descending.
func (s *Searcher) Search(ctx context.Context, query string, maxHits int) ([]*core.SearchResult, error) {
	return s.SearchLabel(ctx, query, "", maxHits)
}

// SearchLabel is Search restricted to documents carrying the given
// label. An empty label matches all documents.
func (s *Searcher) SearchLabel(ctx context.Context, query, label string, maxHits int) ([]*core.SearchResult, error) {
	if strings.TrimSpace(query) == "" {
		return nil, ErrEmptyQuery
	}
	if maxHits < 1 {
		maxHits = 10
	}

	queryVector, err := s.embedder.EmbedText(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}
	queryVector = core.NormalizeVector(queryVector)

	candidates, err := s.docRepo.FindSimilar(ctx, queryVector, s.minSimilarity, maxHits*overfetchFactor)
	if err != nil {
		return nil, fmt.Errorf("similarity search failed: %w", err)
	}

	s.logger.Debug("semantic search", "query", query, "label", label,
		"candidates", len(candidates))

	terms := queryTerms(query)

	results := make([]*core.SearchResult, 0, len(candidates))
	for _, candidate := range candidates {
		if label != "" && candidate.Record.Label != label {
			continue
		}

		score := candidate.Score
		if matchesAllTerms(candidate.Record.Text, terms) {
			score += verbatimBoost
		}

		results = append(results, &core.SearchResult{
			Record: candidate.Record,
			Score:  score,
		})
	}

	// Sort by score descending
	sort.Slice(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})
	if len(results) > maxHits {
		results = results[:maxHits]
	}

	return results, nil
}
