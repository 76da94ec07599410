package search

import (
	"strings"
	"unicode"
)

// Words carrying no signal for verbatim matching. Kept small: recognized
// text is noisy enough that an aggressive list starts eating real terms.
var noiseWords = map[string]struct{}{
	"the": {}, "a": {}, "an": {}, "of": {}, "and": {}, "or": {}, "to": {},
	"in": {}, "on": {}, "for": {}, "with": {}, "is": {}, "are": {}, "was": {},
	"be": {}, "at": {}, "by": {}, "from": {}, "this": {}, "that": {},
	"it": {}, "as": {}, "not": {},
}

// tokenize lowercases s and splits it on anything that is not a letter
// or digit. Recognized text glues punctuation onto words unpredictably,
// so splitting on non-alphanumerics is more reliable than trimming a
// fixed punctuation set.
func tokenize(s string) []string {
	return strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

// queryTerms reduces a query to its significant terms. Returns nil when
// nothing but noise words remain.
func queryTerms(query string) []string {
	var terms []string
	for _, token := range tokenize(query) {
		if _, noise := noiseWords[token]; noise {
			continue
		}
		terms = append(terms, token)
	}
	return terms
}

// matchesAllTerms reports whether every term occurs as a word in the
// recognized text. The text is tokenized the same way queries are, so
// recognizer artifacts around a word do not break the match.
func matchesAllTerms(text string, terms []string) bool {
	if len(terms) == 0 {
		return false
	}

	words := make(map[string]struct{})
	for _, token := range tokenize(text) {
		words[token] = struct{}{}
	}

	for _, term := range terms {
		if _, ok := words[term]; !ok {
			return false
		}
	}
	return true
}
