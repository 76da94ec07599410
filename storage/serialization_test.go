package storage

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/veldtlabs/docdex/core"
)

func TestDocumentRecordRoundTrip(t *testing.T) {
	now := time.Now().UTC().Truncate(time.Microsecond)
	record := &core.DocumentRecord{
		Id:         core.IDFromPath("invoices/a.pdf"),
		SourcePath: "invoices/a.pdf",
		Label:      "invoices",
		Transform:  core.TransformDeskew,
		Text:       "INVOICE\nTotal amount due: 42.00",
		Vector:     []float32{0.1, -0.5, 0.25, 1.0},
		InsertedAt: now,
		UpdatedAt:  now,
	}

	data := MarshalDocumentRecord(record)
	got, err := UnmarshalDocumentRecord(data)
	require.NoError(t, err)

	assert.Equal(t, record.Id, got.Id)
	assert.Equal(t, record.SourcePath, got.SourcePath)
	assert.Equal(t, record.Label, got.Label)
	assert.Equal(t, record.Transform, got.Transform)
	assert.Equal(t, record.Text, got.Text)
	assert.Equal(t, record.Vector, got.Vector)
	assert.True(t, record.InsertedAt.Equal(got.InsertedAt))
	assert.True(t, record.UpdatedAt.Equal(got.UpdatedAt))
}

func TestDocumentRecordRoundTrip_EmptyVector(t *testing.T) {
	record := &core.DocumentRecord{
		Id:         1,
		SourcePath: "receipts/c.jpg",
		Label:      "receipts",
		Transform:  core.TransformIdentity,
		Text:       "staged text, no embedding yet",
	}

	data := MarshalDocumentRecord(record)
	got, err := UnmarshalDocumentRecord(data)
	require.NoError(t, err)

	assert.Equal(t, record.Text, got.Text)
	assert.Empty(t, got.Vector)
}

func TestLedgerEntryRoundTrip(t *testing.T) {
	now := time.Now().UTC().Truncate(time.Microsecond)
	entry := &core.LedgerEntry{
		Id:        core.IDFromPath("receipts/c.jpg"),
		State:     core.StateFailed,
		Attempts:  2,
		LastError: "decode error: unexpected EOF",
		UpdatedAt: now,
	}

	data := MarshalLedgerEntry(entry)
	got, err := UnmarshalLedgerEntry(data)
	require.NoError(t, err)

	assert.Equal(t, entry.Id, got.Id)
	assert.Equal(t, entry.State, got.State)
	assert.Equal(t, entry.Attempts, got.Attempts)
	assert.Equal(t, entry.LastError, got.LastError)
	assert.True(t, entry.UpdatedAt.Equal(got.UpdatedAt))
}

func TestUnmarshalDocumentRecord_Truncated(t *testing.T) {
	record := &core.DocumentRecord{
		Id:         7,
		SourcePath: "invoices/b.png",
		Label:      "invoices",
		Transform:  core.TransformDenoise,
		Text:       "text",
	}

	data := MarshalDocumentRecord(record)
	_, err := UnmarshalDocumentRecord(data[:len(data)/2])
	assert.Error(t, err)
}
