package security

import (
	"strings"
	"unicode"
)

var explainWords = map[string]struct{}{
	"explain":     {},
	"explains":    {},
	"explained":   {},
	"explaining":  {},
	"explanation": {},
}

// WantsExplanation reports whether the query asks for an explanation. Only
// whole words count, so "unexplainable" does not.
func WantsExplanation(query string) bool {
	words := strings.FieldsFunc(strings.ToLower(query), func(r rune) bool {
		return !unicode.IsLetter(r)
	})
	for _, w := range words {
		if _, ok := explainWords[w]; ok {
			return true
		}
	}
	return false
}
