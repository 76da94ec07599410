package badger

import (
	"fmt"

	"github.com/veldtlabs/docdex/core"
)

// Key prefixes for different data types
const (
	documentRecordPrefix = "docrec"
	ledgerEntryPrefix    = "ledger"
)

// makeDocumentKey generates a key for a document record by ID.
func makeDocumentKey(id core.ID) []byte {
	return []byte(fmt.Sprintf("%s:%d", documentRecordPrefix, id))
}

// makeLedgerKey generates a key for a ledger entry by document ID.
func makeLedgerKey(id core.ID) []byte {
	return []byte(fmt.Sprintf("%s:%d", ledgerEntryPrefix, id))
}
