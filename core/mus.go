package core

import (
	"time"

	"github.com/mus-format/mus-go/ord"
	"github.com/mus-format/mus-go/varint"
)

// Hand-written MUS serializers for the persisted domain types.
// Timestamps are stored as Unix microseconds.

var float32SliceMUS = ord.NewSliceSer[float32](varint.Float32)

type documentRecordMUS struct{}

// DocumentRecordMUS serializes DocumentRecord values in MUS format.
var DocumentRecordMUS = documentRecordMUS{}

func (documentRecordMUS) Marshal(v DocumentRecord, bs []byte) (n int) {
	n = varint.Uint64.Marshal(uint64(v.Id), bs)
	n += ord.String.Marshal(v.SourcePath, bs[n:])
	n += ord.String.Marshal(v.Label, bs[n:])
	n += varint.Int.Marshal(int(v.Transform), bs[n:])
	n += ord.String.Marshal(v.Text, bs[n:])
	n += float32SliceMUS.Marshal(v.Vector, bs[n:])
	n += varint.Int64.Marshal(v.InsertedAt.UnixMicro(), bs[n:])
	n += varint.Int64.Marshal(v.UpdatedAt.UnixMicro(), bs[n:])
	return n
}

func (documentRecordMUS) Unmarshal(bs []byte) (v DocumentRecord, n int, err error) {
	var (
		n1       int
		id       uint64
		tr       int
		inserted int64
		updated  int64
	)
	id, n, err = varint.Uint64.Unmarshal(bs)
	if err != nil {
		return
	}
	v.Id = ID(id)
	v.SourcePath, n1, err = ord.String.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	v.Label, n1, err = ord.String.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	tr, n1, err = varint.Int.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	v.Transform = Transform(tr)
	v.Text, n1, err = ord.String.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	v.Vector, n1, err = float32SliceMUS.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	inserted, n1, err = varint.Int64.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	v.InsertedAt = time.UnixMicro(inserted).UTC()
	updated, n1, err = varint.Int64.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	v.UpdatedAt = time.UnixMicro(updated).UTC()
	return
}

func (documentRecordMUS) Size(v DocumentRecord) (size int) {
	size = varint.Uint64.Size(uint64(v.Id))
	size += ord.String.Size(v.SourcePath)
	size += ord.String.Size(v.Label)
	size += varint.Int.Size(int(v.Transform))
	size += ord.String.Size(v.Text)
	size += float32SliceMUS.Size(v.Vector)
	size += varint.Int64.Size(v.InsertedAt.UnixMicro())
	size += varint.Int64.Size(v.UpdatedAt.UnixMicro())
	return size
}

func (documentRecordMUS) Skip(bs []byte) (n int, err error) {
	var n1 int
	n, err = varint.Uint64.Skip(bs)
	if err != nil {
		return
	}
	n1, err = ord.String.Skip(bs[n:])
	n += n1
	if err != nil {
		return
	}
	n1, err = ord.String.Skip(bs[n:])
	n += n1
	if err != nil {
		return
	}
	n1, err = varint.Int.Skip(bs[n:])
	n += n1
	if err != nil {
		return
	}
	n1, err = ord.String.Skip(bs[n:])
	n += n1
	if err != nil {
		return
	}
	n1, err = float32SliceMUS.Skip(bs[n:])
	n += n1
	if err != nil {
		return
	}
	n1, err = varint.Int64.Skip(bs[n:])
	n += n1
	if err != nil {
		return
	}
	n1, err = varint.Int64.Skip(bs[n:])
	n += n1
	return
}

type ledgerEntryMUS struct{}

// LedgerEntryMUS serializes LedgerEntry values in MUS format.
var LedgerEntryMUS = ledgerEntryMUS{}

func (ledgerEntryMUS) Marshal(v LedgerEntry, bs []byte) (n int) {
	n = varint.Uint64.Marshal(uint64(v.Id), bs)
	n += varint.Int.Marshal(int(v.State), bs[n:])
	n += varint.Int.Marshal(v.Attempts, bs[n:])
	n += ord.String.Marshal(v.LastError, bs[n:])
	n += varint.Int64.Marshal(v.UpdatedAt.UnixMicro(), bs[n:])
	return n
}

func (ledgerEntryMUS) Unmarshal(bs []byte) (v LedgerEntry, n int, err error) {
	var (
		n1      int
		id      uint64
		state   int
		updated int64
	)
	id, n, err = varint.Uint64.Unmarshal(bs)
	if err != nil {
		return
	}
	v.Id = ID(id)
	state, n1, err = varint.Int.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	v.State = State(state)
	v.Attempts, n1, err = varint.Int.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	v.LastError, n1, err = ord.String.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	updated, n1, err = varint.Int64.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	v.UpdatedAt = time.UnixMicro(updated).UTC()
	return
}

func (ledgerEntryMUS) Size(v LedgerEntry) (size int) {
	size = varint.Uint64.Size(uint64(v.Id))
	size += varint.Int.Size(int(v.State))
	size += varint.Int.Size(v.Attempts)
	size += ord.String.Size(v.LastError)
	size += varint.Int64.Size(v.UpdatedAt.UnixMicro())
	return size
}

func (ledgerEntryMUS) Skip(bs []byte) (n int, err error) {
	var n1 int
	n, err = varint.Uint64.Skip(bs)
	if err != nil {
		return
	}
	n1, err = varint.Int.Skip(bs[n:])
	n += n1
	if err != nil {
		return
	}
	n1, err = varint.Int.Skip(bs[n:])
	n += n1
	if err != nil {
		return
	}
	n1, err = ord.String.Skip(bs[n:])
	n += n1
	if err != nil {
		return
	}
	n1, err = varint.Int64.Skip(bs[n:])
	n += n1
	return
}

type idMUS struct{}

// IDMUS serializes ID values in MUS format.
var IDMUS = idMUS{}

func (idMUS) Marshal(v ID, bs []byte) (n int) {
	return varint.Uint64.Marshal(uint64(v), bs)
}

func (idMUS) Unmarshal(bs []byte) (v ID, n int, err error) {
	var id uint64
	id, n, err = varint.Uint64.Unmarshal(bs)
	return ID(id), n, err
}

func (idMUS) Size(v ID) int {
	return varint.Uint64.Size(uint64(v))
}

func (idMUS) Skip(bs []byte) (n int, err error) {
	return varint.Uint64.Skip(bs)
}
