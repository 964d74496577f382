package extract

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// amountRe matches the mandated amount grammar: optional sign, optional
// currency marker, thousands separators and a decimal point. Negative
// amounts may also arrive wrapped in parentheses.
var amountRe = regexp.MustCompile(`^([-+])?\s*\$?\s*([\d,]+(?:\.\d{1,2})?)$`)

// parseAmount converts "$1,234.56", "- $2,000.00" or "(500.00)" into a
// signed float64.
func parseAmount(s string) (float64, error) {
	s = strings.TrimSpace(s)

	negParen := false
	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		negParen = true
		s = strings.TrimSpace(s[1 : len(s)-1])
	}

	m := amountRe.FindStringSubmatch(s)
	if m == nil {
		return 0, fmt.Errorf("unrecognized amount %q", s)
	}

	v, err := strconv.ParseFloat(strings.ReplaceAll(m[2], ",", ""), 64)
	if err != nil {
		return 0, fmt.Errorf("invalid amount %q: %w", s, err)
	}

	if m[1] == "-" || negParen {
		v = -v
	}
	return v, nil
}
