package textnorm

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// stripMarks decomposes text and removes combining marks, so that
// "Página" folds to "Pagina". The transformer is stateless and safe for
// concurrent use.
var stripMarks = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// Fold normalizes s for matching: diacritics removed, upper-cased,
// whitespace trimmed. Statement text is regulator-mandated Spanish, so
// headers and merchant names arrive with inconsistent accents depending on
// the upstream text-extraction stage.
func Fold(s string) string {
	folded, _, err := transform.String(stripMarks, s)
	if err != nil {
		// Invalid UTF-8 sequences pass through unfolded; matching still
		// works on the ASCII parts.
		folded = s
	}
	return strings.ToUpper(strings.TrimSpace(folded))
}

// FoldCompact is Fold with interior runs of whitespace collapsed to a
// single space, for phrase matching across ragged OCR output.
func FoldCompact(s string) string {
	return strings.Join(strings.Fields(Fold(s)), " ")
}
