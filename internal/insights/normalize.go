package insights

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/unicode/norm"
)

const trailingPunctuation = ".!?"

// NormalizeReason canonicalizes a free-text reason so that surface variants
// ("Erro no Login!!", "erro  no login") share one grouping key.
// Callers skip absent reasons before calling.
func NormalizeReason(text string) string {
	// Casers keep state; one per call keeps this safe for concurrent use.
	s := norm.NFC.String(cases.Lower(language.Und).String(text))
	// Spaces are trimmed with the punctuation so "ok. ." and "ok." agree.
	s = strings.TrimRightFunc(s, func(r rune) bool {
		return unicode.IsSpace(r) || strings.ContainsRune(trailingPunctuation, r)
	})
	return strings.Join(strings.Fields(s), " ")
}
