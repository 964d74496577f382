package extract

import (
	"regexp"

	"github.com/statementsense/statement-pipeline/internal/statement"
	"github.com/statementsense/statement-pipeline/internal/textnorm"
)

// issuerFingerprints are checked in order against the folded first page;
// the first match wins. Patterns are uppercase because matching happens
// after diacritic folding.
var issuerFingerprints = []struct {
	ID string
	re *regexp.Regexp
}{
	{"bbva", regexp.MustCompile(`BBVA|BANCOMER`)},
	{"santander", regexp.MustCompile(`SANTANDER`)},
	{"banamex", regexp.MustCompile(`CITIBANAMEX|BANAMEX`)},
	{"hsbc", regexp.MustCompile(`HSBC`)},
	{"banorte", regexp.MustCompile(`BANORTE`)},
	{"scotiabank", regexp.MustCompile(`SCOTIABANK`)},
	{"inbursa", regexp.MustCompile(`INBURSA`)},
	{"azteca", regexp.MustCompile(`BANCO AZTECA`)},
	{"afirme", regexp.MustCompile(`AFIRME`)},
}

// ClassifyBank identifies the issuing bank from first-page text. An
// unrecognized issuer is not an error: the table layout is mandated by
// regulation, so extraction continues issuer-agnostic under BankUnknown.
func ClassifyBank(firstPage string) string {
	folded := textnorm.Fold(firstPage)
	for _, fp := range issuerFingerprints {
		if fp.re.MatchString(folded) {
			return fp.ID
		}
	}
	return statement.BankUnknown
}
