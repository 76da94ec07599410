package search

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/veldtlabs/docdex/core"
	embedmock "github.com/veldtlabs/docdex/embed/mock"
	"github.com/veldtlabs/docdex/storage"
	badgerstore "github.com/veldtlabs/docdex/storage/badger"
)

func newSearchFixture(t *testing.T) (storage.DocumentRepository, *embedmock.MockEmbedder) {
	t.Helper()

	docRepo, ledger, backend, err := badgerstore.NewMemoryRepositories()
	require.NoError(t, err)
	t.Cleanup(func() {
		docRepo.Close()
		ledger.Close()
		backend.Close()
	})

	return docRepo, embedmock.NewMockEmbedder()
}

func storeRecord(t *testing.T, repo storage.DocumentRepository, rel, label, text string, vector []float32) {
	t.Helper()

	_, err := repo.UpsertDocuments(context.Background(), &core.DocumentRecord{
		Id:         core.IDFromPath(rel),
		SourcePath: "/corpus/" + rel,
		Label:      label,
		Transform:  core.TransformIdentity,
		Text:       text,
		Vector:     core.NormalizeVector(vector),
	})
	require.NoError(t, err)
}

func TestNewSearcher_RequiredDependencies(t *testing.T) {
	docRepo, embedder := newSearchFixture(t)

	_, err := NewSearcher(nil, embedder)
	assert.ErrorIs(t, err, ErrDocumentRepositoryRequired)

	_, err = NewSearcher(docRepo, nil)
	assert.ErrorIs(t, err, ErrEmbedderRequired)
}

func TestSearcher_RanksBySimilarity(t *testing.T) {
	docRepo, embedder := newSearchFixture(t)
	storeRecord(t, docRepo, "invoices/a.png", "invoices", "monthly electricity invoice", []float32{1, 0, 0})
	storeRecord(t, docRepo, "invoices/b.png", "invoices", "office rent agreement", []float32{0.5, 0.5, 0})
	storeRecord(t, docRepo, "receipts/c.png", "receipts", "grocery receipt", []float32{0, 0, 1})

	embedder.EmbedTextFunc = func(ctx context.Context, text string) ([]float32, error) {
		return []float32{1, 0, 0}, nil
	}

	searcher, err := NewSearcher(docRepo, embedder)
	require.NoError(t, err)

	results, err := searcher.Search(context.Background(), "electricity bill", 10)
	require.NoError(t, err)
	require.Len(t, results, 2, "the orthogonal record falls below the similarity floor")

	assert.Equal(t, core.IDFromPath("invoices/a.png"), results[0].Record.Id)
	assert.Greater(t, results[0].Score, results[1].Score)
}

func TestSearcher_LabelFilter(t *testing.T) {
	docRepo, embedder := newSearchFixture(t)
	storeRecord(t, docRepo, "invoices/a.png", "invoices", "invoice text", []float32{1, 0, 0})
	storeRecord(t, docRepo, "receipts/b.png", "receipts", "receipt text", []float32{1, 0, 0})

	embedder.EmbedTextFunc = func(ctx context.Context, text string) ([]float32, error) {
		return []float32{1, 0, 0}, nil
	}

	searcher, err := NewSearcher(docRepo, embedder)
	require.NoError(t, err)

	results, err := searcher.SearchLabel(context.Background(), "anything", "receipts", 10)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "receipts", results[0].Record.Label)
}

func TestSearcher_VerbatimBoost(t *testing.T) {
	docRepo, embedder := newSearchFixture(t)

	// Both records are equally similar; only one contains the query verbatim.
	storeRecord(t, docRepo, "invoices/a.png", "invoices", "payment due for invoice 4711", []float32{1, 0, 0})
	storeRecord(t, docRepo, "invoices/b.png", "invoices", "unrelated correspondence", []float32{1, 0, 0})

	embedder.EmbedTextFunc = func(ctx context.Context, text string) ([]float32, error) {
		return []float32{1, 0, 0}, nil
	}

	searcher, err := NewSearcher(docRepo, embedder)
	require.NoError(t, err)

	results, err := searcher.Search(context.Background(), "invoice 4711", 10)
	require.NoError(t, err)
	require.Len(t, results, 2)

	assert.Equal(t, core.IDFromPath("invoices/a.png"), results[0].Record.Id)
	assert.InDelta(t, float64(results[1].Score)+verbatimBoost, float64(results[0].Score), 1e-5)
}

func TestSearcher_EmptyQuery(t *testing.T) {
	docRepo, embedder := newSearchFixture(t)

	searcher, err := NewSearcher(docRepo, embedder)
	require.NoError(t, err)

	_, err = searcher.Search(context.Background(), "   ", 5)
	assert.ErrorIs(t, err, ErrEmptyQuery)
}

func TestSearcher_MaxHitsTruncation(t *testing.T) {
	docRepo, embedder := newSearchFixture(t)
	for _, rel := range []string{"a", "b", "c", "d"} {
		storeRecord(t, docRepo, "invoices/"+rel+".png", "invoices", "text "+rel, []float32{1, 0, 0})
	}

	embedder.EmbedTextFunc = func(ctx context.Context, text string) ([]float32, error) {
		return []float32{1, 0, 0}, nil
	}

	searcher, err := NewSearcher(docRepo, embedder)
	require.NoError(t, err)

	results, err := searcher.Search(context.Background(), "text", 2)
	require.NoError(t, err)
	assert.Len(t, results, 2)
}

func TestSearcher_SkipsStagedRecords(t *testing.T) {
	docRepo, embedder := newSearchFixture(t)
	storeRecord(t, docRepo, "invoices/a.png", "invoices", "indexed text", []float32{1, 0, 0})

	// A staged record has text but no vector yet; it must never surface.
	_, err := docRepo.UpsertDocuments(context.Background(), &core.DocumentRecord{
		Id:         core.IDFromPath("invoices/staged.png"),
		SourcePath: "/corpus/invoices/staged.png",
		Label:      "invoices",
		Transform:  core.TransformIdentity,
		Text:       "staged only",
	})
	require.NoError(t, err)

	embedder.EmbedTextFunc = func(ctx context.Context, text string) ([]float32, error) {
		return []float32{1, 0, 0}, nil
	}

	searcher, err := NewSearcher(docRepo, embedder)
	require.NoError(t, err)

	results, err := searcher.Search(context.Background(), "indexed", 10)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, core.IDFromPath("invoices/a.png"), results[0].Record.Id)
}
