package extract

import (
	"fmt"
	"regexp"
	"strconv"
	"time"

	"github.com/statementsense/statement-pipeline/internal/textnorm"
)

// spanishMonths maps the localized month abbreviations mandated by the
// statement layout to calendar months.
var spanishMonths = map[string]time.Month{
	"ENE": time.January,
	"FEB": time.February,
	"MAR": time.March,
	"ABR": time.April,
	"MAY": time.May,
	"JUN": time.June,
	"JUL": time.July,
	"AGO": time.August,
	"SEP": time.September,
	"OCT": time.October,
	"NOV": time.November,
	"DIC": time.December,
}

// dateRe matches DD-MMM, DD-MMM-YY and DD-MMM-YYYY with "-", "/" or space
// separators. The month group is matched after diacritic folding.
var dateRe = regexp.MustCompile(`^(\d{1,2})[-/ ]([A-Z]{3})(?:[-/ ](\d{2}|\d{4}))?$`)

// parseDate parses a localized date token such as "12-ABR-2025",
// "03 ENE 24" or "10 ABR". Two-digit years resolve into 20xx; a missing
// year resolves to yearContext (normally the statement-period year).
func parseDate(s string, yearContext int) (time.Time, error) {
	m := dateRe.FindStringSubmatch(textnorm.Fold(s))
	if m == nil {
		return time.Time{}, fmt.Errorf("unrecognized date %q", s)
	}

	day, err := strconv.Atoi(m[1])
	if err != nil || day == 0 {
		return time.Time{}, fmt.Errorf("invalid day in date %q", s)
	}

	month, ok := spanishMonths[m[2]]
	if !ok {
		return time.Time{}, fmt.Errorf("unknown month %q in date %q", m[2], s)
	}

	year := yearContext
	if m[3] != "" {
		y, err := strconv.Atoi(m[3])
		if err != nil {
			return time.Time{}, fmt.Errorf("invalid year in date %q", s)
		}
		if len(m[3]) == 2 {
			y += 2000
		}
		year = y
	}
	if year == 0 {
		return time.Time{}, fmt.Errorf("date %q has no year and no year context", s)
	}

	t := time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
	// time.Date normalizes overflowing days (e.g. 31-ABR rolls into May);
	// a changed day means the original was not a real calendar date.
	if t.Day() != day {
		return time.Time{}, fmt.Errorf("impossible date %q", s)
	}
	return t, nil
}
