package search

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestQueryTerms(t *testing.T) {
	assert.Equal(t, []string{"invoice", "total"}, queryTerms("the invoice total"))
	assert.Equal(t, []string{"acme", "corp"}, queryTerms("ACME-Corp."))
	assert.Nil(t, queryTerms("the of and"), "noise-only queries have no terms")
	assert.Nil(t, queryTerms(""))
}

func TestMatchesAllTerms(t *testing.T) {
	// Recognized text often glues punctuation onto words.
	text := "INVOICE #2041\nTotal due : $1,250.00 (ACME corp.)"

	assert.True(t, matchesAllTerms(text, queryTerms("acme invoice")))
	assert.True(t, matchesAllTerms(text, queryTerms("total due")))
	assert.False(t, matchesAllTerms(text, queryTerms("acme refund")), "every term must occur")
	assert.False(t, matchesAllTerms(text, nil), "no terms, no verbatim match")
}
