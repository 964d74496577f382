package categorize

import (
	"regexp"
	"strings"
)

// Statement descriptions bury the merchant inside processor noise:
// operation prefixes, branch numbers, city/state suffixes, terminal ids.
// These patterns run against folded text, so they are plain uppercase.
var (
	merchantPrefixRe    = regexp.MustCompile(`^(COMPRA EN|PAGO EN|PAGO A|CARGO EN|RETIRO EN|DISPOSICION EN)\s+`)
	merchantProcessorRe = regexp.MustCompile(`^(STR|CLIP|CLIP MX|MERPAGO|PAYPAL|SQ)\s?\*\s*`)
	merchantNoiseRe     = regexp.MustCompile(`\s+(SUC(URSAL)?\s*\d+|TDA\s*\d+|TIENDA\s*\d+|NO?\.\s*\d+|#\s*\d+|\d{4,})\b`)
	merchantSuffixRe    = regexp.MustCompile(`\s+(SA DE CV|S DE RL|SAPI DE CV|SC|RFC\s+\S+|CDMX|CD MX|MEX|MX)$`)
)

// CleanMerchant reduces a folded description to its merchant core:
// "COMPRA EN OXXO SUC 4421 GDL MX" becomes "OXXO". The input must
// already be folded; the output may be empty when the description was
// nothing but noise.
func CleanMerchant(folded string) string {
	s := merchantPrefixRe.ReplaceAllString(folded, "")
	s = merchantProcessorRe.ReplaceAllString(s, "")
	s = merchantNoiseRe.ReplaceAllString(s, "")
	for {
		trimmed := merchantSuffixRe.ReplaceAllString(s, "")
		if trimmed == s {
			break
		}
		s = trimmed
	}
	return strings.TrimSpace(s)
}
