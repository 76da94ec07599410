package badger

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/veldtlabs/docdex/core"
	"github.com/veldtlabs/docdex/storage"
)

func setupLedgerRepository(t *testing.T) storage.LedgerRepository {
	docRepo, ledgerRepo, backend, err := NewMemoryRepositories()
	require.NoError(t, err)
	t.Cleanup(func() {
		ledgerRepo.Close()
		docRepo.Close()
		backend.Close()
	})
	return ledgerRepo
}

func TestLedgerGet_NeverSeen(t *testing.T) {
	ledger := setupLedgerRepository(t)

	entry, err := ledger.Get(context.Background(), core.ID(42))
	require.NoError(t, err)
	assert.Nil(t, entry)
}

func TestLedgerAdvance_CreatesOnFirstSight(t *testing.T) {
	ledger := setupLedgerRepository(t)
	ctx := context.Background()
	id := core.IDFromPath("invoices/a.pdf")

	entry, err := ledger.Advance(ctx, id, core.StatePending, "")
	require.NoError(t, err)
	assert.Equal(t, core.StatePending, entry.State)
	assert.Equal(t, 0, entry.Attempts)
	assert.False(t, entry.UpdatedAt.IsZero())

	got, err := ledger.Get(ctx, id)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, core.StatePending, got.State)
}

func TestLedgerAdvance_FailureCountsAttempts(t *testing.T) {
	ledger := setupLedgerRepository(t)
	ctx := context.Background()
	id := core.IDFromPath("invoices/a.pdf")

	entry, err := ledger.Advance(ctx, id, core.StateFailed, "decode error")
	require.NoError(t, err)
	assert.Equal(t, 1, entry.Attempts)
	assert.Equal(t, "decode error", entry.LastError)

	entry, err = ledger.Advance(ctx, id, core.StateFailed, "decode error again")
	require.NoError(t, err)
	assert.Equal(t, 2, entry.Attempts)
	assert.Equal(t, "decode error again", entry.LastError)
}

func TestLedgerAdvance_SuccessClearsError(t *testing.T) {
	ledger := setupLedgerRepository(t)
	ctx := context.Background()
	id := core.IDFromPath("invoices/a.pdf")

	_, err := ledger.Advance(ctx, id, core.StateFailed, "transient")
	require.NoError(t, err)

	entry, err := ledger.Advance(ctx, id, core.StatePersisted, "")
	require.NoError(t, err)
	assert.Equal(t, core.StatePersisted, entry.State)
	assert.Empty(t, entry.LastError)
	// Attempts history survives the state change
	assert.Equal(t, 1, entry.Attempts)
}

func TestLedgerList(t *testing.T) {
	ledger := setupLedgerRepository(t)
	ctx := context.Background()

	ids := []core.ID{
		core.IDFromPath("invoices/a.pdf"),
		core.IDFromPath("invoices/b.png"),
		core.IDFromPath("receipts/c.jpg"),
	}
	for _, id := range ids {
		_, err := ledger.Advance(ctx, id, core.StatePersisted, "")
		require.NoError(t, err)
	}

	entries, err := ledger.List(ctx)
	require.NoError(t, err)
	assert.Len(t, entries, len(ids))
}
