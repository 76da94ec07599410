package badger

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/veldtlabs/docdex/core"
	"github.com/veldtlabs/docdex/storage"
)

func setupDocumentRepository(t *testing.T) storage.DocumentRepository {
	docRepo, ledgerRepo, backend, err := NewMemoryRepositories()
	require.NoError(t, err)
	t.Cleanup(func() {
		ledgerRepo.Close()
		docRepo.Close()
		backend.Close()
	})
	return docRepo
}

func testRecord(path, label string) *core.DocumentRecord {
	return &core.DocumentRecord{
		Id:         core.IDFromPath(path),
		SourcePath: path,
		Label:      label,
		Transform:  core.TransformIdentity,
		Text:       "extracted text for " + path,
		Vector:     []float32{1, 0, 0},
	}
}

func TestUpsertDocuments_Idempotent(t *testing.T) {
	repo := setupDocumentRepository(t)
	ctx := context.Background()

	record := testRecord("invoices/a.pdf", "invoices")
	first, err := repo.UpsertDocuments(ctx, record)
	require.NoError(t, err)
	require.Len(t, first, 1)
	insertedAt := first[0].InsertedAt

	// Upserting the same document again must not create a second record
	again := testRecord("invoices/a.pdf", "invoices")
	_, err = repo.UpsertDocuments(ctx, again)
	require.NoError(t, err)

	count, err := repo.CountDocuments(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	got, err := repo.GetDocument(ctx, record.Id)
	require.NoError(t, err)
	assert.True(t, got.InsertedAt.Equal(insertedAt), "InsertedAt must survive re-upsert")
}

func TestUpsertDocuments_BatchIsAtomic(t *testing.T) {
	repo := setupDocumentRepository(t)
	ctx := context.Background()

	good := testRecord("invoices/a.pdf", "invoices")
	bad := testRecord("invoices/b.png", "invoices")
	bad.Text = "" // fails validation

	_, err := repo.UpsertDocuments(ctx, good, bad)
	require.Error(t, err)

	// The failed batch must not be partially visible
	count, err := repo.CountDocuments(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, count)
}

func TestGetDocument_NotFound(t *testing.T) {
	repo := setupDocumentRepository(t)

	_, err := repo.GetDocument(context.Background(), core.ID(12345))
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestGetDocuments_SkipsMissing(t *testing.T) {
	repo := setupDocumentRepository(t)
	ctx := context.Background()

	record := testRecord("receipts/c.jpg", "receipts")
	_, err := repo.UpsertDocuments(ctx, record)
	require.NoError(t, err)

	records, err := repo.GetDocuments(ctx, record.Id, core.ID(999))
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, record.Id, records[0].Id)
}

func TestDeleteDocuments(t *testing.T) {
	repo := setupDocumentRepository(t)
	ctx := context.Background()

	record := testRecord("invoices/a.pdf", "invoices")
	_, err := repo.UpsertDocuments(ctx, record)
	require.NoError(t, err)

	require.NoError(t, repo.DeleteDocuments(ctx, record.Id))

	_, err = repo.GetDocument(ctx, record.Id)
	assert.ErrorIs(t, err, storage.ErrNotFound)

	err = repo.DeleteDocuments(ctx, record.Id)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestFindSimilar(t *testing.T) {
	repo := setupDocumentRepository(t)
	ctx := context.Background()

	a := testRecord("invoices/a.pdf", "invoices")
	a.Vector = []float32{1, 0, 0}
	b := testRecord("invoices/b.png", "invoices")
	b.Vector = []float32{0.9, 0.4359, 0} // ~0.9 similarity to a
	c := testRecord("receipts/c.jpg", "receipts")
	c.Vector = []float32{0, 1, 0} // orthogonal to a

	// Staged record without an embedding must never match
	staged := testRecord("receipts/d.jpg", "receipts")
	staged.Vector = nil

	_, err := repo.UpsertDocuments(ctx, a, b, c, staged)
	require.NoError(t, err)

	results, err := repo.FindSimilar(ctx, []float32{1, 0, 0}, 0.5, 10)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, a.Id, results[0].Record.Id)
	assert.Equal(t, b.Id, results[1].Record.Id)
	assert.Greater(t, results[0].Score, results[1].Score)
}

func TestFindSimilar_Limit(t *testing.T) {
	repo := setupDocumentRepository(t)
	ctx := context.Background()

	a := testRecord("invoices/a.pdf", "invoices")
	b := testRecord("invoices/b.png", "invoices")
	_, err := repo.UpsertDocuments(ctx, a, b)
	require.NoError(t, err)

	results, err := repo.FindSimilar(ctx, []float32{1, 0, 0}, 0.5, 1)
	require.NoError(t, err)
	assert.Len(t, results, 1)
}
