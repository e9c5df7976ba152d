// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

package store

import (
	"strings"
	"unicode"
)

var ftsKeywords = map[string]bool{"AND": true, "OR": true, "NOT": true, "NEAR": true}

// EscapeFTSQuery rewrites free text into an FTS5 MATCH expression. Terms made
// only of letters, digits and underscores pass through; anything else is
// quoted as a phrase so punctuation such as "v1.2.0" or "my-company" matches
// literally instead of being parsed as query syntax. A trailing "*" on a
// plain term is kept as a prefix query.
func EscapeFTSQuery(text string) string {
	terms := strings.Fields(text)
	out := make([]string, 0, len(terms))
	for _, term := range terms {
		if stem, ok := strings.CutSuffix(term, "*"); ok && stem != "" && isBareword(stem) && !ftsKeywords[stem] {
			out = append(out, term)
			continue
		}
		if isBareword(term) && !ftsKeywords[term] {
			out = append(out, term)
			continue
		}
		out = append(out, `"`+strings.ReplaceAll(term, `"`, `""`)+`"`)
	}
	return strings.Join(out, " ")
}

func isBareword(s string) bool {
	for _, r := range s {
		if r != '_' && !unicode.IsLetter(r) && !unicode.IsDigit(r) {
			return false
		}
	}
	return s != ""
}
