// Package match provides the text normalization and fuzzy comparison
// primitives used for label field verification.
package match

import (
	"strings"
	"unicode"
)

// smartQuotes maps curly and low-9 quote variants to their ASCII forms.
var smartQuotes = strings.NewReplacer(
	"‘", "'", "’", "'", "‚", "'", "‛", "'",
	"“", `"`, "”", `"`, "„", `"`, "‟", `"`,
)

// Normalize canonicalizes a string for comparison: lowercase, straighten
// smart quotes, replace punctuation (except apostrophes) with spaces,
// collapse whitespace, trim. Normalize is idempotent.
func Normalize(text string) string {
	s := smartQuotes.Replace(strings.ToLower(text))

	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r) || r == '\'':
			b.WriteRune(r)
		default:
			b.WriteByte(' ')
		}
	}

	return strings.Join(strings.Fields(b.String()), " ")
}
