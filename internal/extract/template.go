package extract

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/statementsense/statement-pipeline/internal/statement"
	"github.com/statementsense/statement-pipeline/internal/textnorm"
)

// Row and field grammars. All matching happens on diacritic-folded,
// whitespace-compacted uppercase text, so the patterns are plain ASCII.
const (
	datePat = `\d{1,2}[-/ ][A-Z]{3}(?:[-/ ](?:\d{2}|\d{4}))?`
	amtPat  = `\(?[-+]?\s?\$?\s?[\d,]+\.\d{2}\)?`
	instPat = `\d{1,3}\s?(?:DE|/)\s?\d{1,3}`
)

var (
	// regular rows: operation date, optional charge date, description, signed amount.
	regularRowRe = regexp.MustCompile(`^(` + datePat + `)\s+(?:(` + datePat + `)\s+)?(.+?)\s+(` + amtPat + `)$`)

	// no-interest installment rows: date, description, original amount,
	// pending balance, required payment, installment number.
	noInterestRowRe = regexp.MustCompile(`^(` + datePat + `)\s+(.+?)\s+(` + amtPat + `)\s+(` + amtPat + `)\s+(` + amtPat + `)\s+(` + instPat + `)$`)

	// interest installment rows add the rate column after the original amount.
	interestRowRe = regexp.MustCompile(`^(` + datePat + `)\s+(.+?)\s+(` + amtPat + `)\s+(\d{1,3}(?:\.\d+)?)\s?%\s+(` + amtPat + `)\s+(` + amtPat + `)\s+(` + instPat + `)$`)

	// dataLikeRe flags lines that look like transaction rows (date-token
	// prefix) so grammar misses are reported instead of silently skipped.
	dataLikeRe = regexp.MustCompile(`^\d{1,2}[-/ ][A-Z]{3}\b`)
)

// Header field patterns, matched against the folded head text (first page
// plus the payment and summary sections).
var (
	cardNumberRe  = regexp.MustCompile(`NUMERO DE TARJETA:?\s*(?:[\dX*]{4}[- ]?){3}(\d{4})`)
	cardTypeRe    = regexp.MustCompile(`TARJETA\s+(CLASICA|ORO|PLATINO|AZUL|INFINITE)`)
	periodRe      = regexp.MustCompile(`PERIODO:?\s*(?:DEL\s+)?(` + datePat + `)\s+AL\s+(` + datePat + `)`)
	cutDateRe     = regexp.MustCompile(`FECHA DE CORTE:?\s*(` + datePat + `)`)
	dueDateRe     = regexp.MustCompile(`FECHA LIMITE DE PAGO:?\s*(` + datePat + `)`)
	minPaymentRe  = regexp.MustCompile(`PAGO MINIMO:?\s*(` + amtPat + `)`)
	noInterestRe  = regexp.MustCompile(`PAGO PARA NO GENERAR INTERESES:?\s*(` + amtPat + `)`)
	prevBalanceRe = regexp.MustCompile(`(?:ADEUDO|SALDO) (?:DEL PERIODO |DEL CICLO )?ANTERIOR:?\s*[=+]?\s*(` + amtPat + `)`)
	totalBalRe    = regexp.MustCompile(`SALDO (?:DEUDOR )?TOTAL:?\s*(` + amtPat + `)`)
	creditLimitRe = regexp.MustCompile(`LIMITE DE CREDITO:?\s*(` + amtPat + `)`)
	availableRe   = regexp.MustCompile(`CREDITO DISPONIBLE:?\s*(` + amtPat + `)`)
	holderNameRe  = regexp.MustCompile(`(?m)^([A-Z]+(?: [A-Z]+){1,5})$`)
)

// nameStopWords are folded tokens that disqualify an uppercase line from
// being the cardholder name.
var nameStopWords = []string{
	"BANCO", "BBVA", "BANCOMER", "SANTANDER", "BANAMEX", "HSBC", "BANORTE",
	"SCOTIABANK", "INBURSA", "AZTECA", "AFIRME", "TARJETA", "CREDITO",
	"ESTADO", "CUENTA", "PERIODO", "PAGO", "RFC", "SUCURSAL",
}

// TemplateExtractor is the deterministic extraction path. For a fixed
// input it always produces the same Outcome; it records problems as
// issues and only aborts on structurally unusable input.
type TemplateExtractor struct{}

func NewTemplateExtractor() *TemplateExtractor {
	return &TemplateExtractor{}
}

// Extract runs the template grammars over the segmented statement.
// It returns *statement.StructuralError when the pages carry no usable
// text; every other problem is recorded as an issue on the outcome.
func (e *TemplateExtractor) Extract(pages []statement.RawPage, sections []statement.Section, bankID string) (*statement.Outcome, error) {
	if len(pages) == 0 {
		return nil, &statement.StructuralError{Reason: "no pages"}
	}
	empty := true
	for _, p := range pages {
		if strings.TrimSpace(p.Text) != "" {
			empty = false
			break
		}
	}
	if empty {
		return nil, &statement.StructuralError{Reason: "pages contain no text"}
	}

	out := &statement.Outcome{
		Metadata: statement.Metadata{BankID: bankID},
		Method:   statement.MethodTemplate,
	}

	head := e.headText(pages, sections)
	e.extractMetadata(head, out)
	e.extractPayment(head, out)

	yearCtx := e.yearContext(out)
	out.Transactions = e.extractTransactions(sections, yearCtx, out)

	return out, nil
}

// headText builds the folded text the header-field patterns run against:
// the first page plus every payment and summary section.
func (e *TemplateExtractor) headText(pages []statement.RawPage, sections []statement.Section) string {
	var b strings.Builder
	b.WriteString(pages[0].Text)
	for _, s := range sectionsByTag(sections, statement.SectionPayment, statement.SectionSummary) {
		b.WriteByte('\n')
		b.WriteString(s.Text)
	}
	return foldLines(b.String())
}

// foldLines folds and compacts each line while keeping line breaks, so
// anchored and per-line patterns still work.
func foldLines(text string) string {
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		lines[i] = textnorm.FoldCompact(line)
	}
	return strings.Join(lines, "\n")
}

func (e *TemplateExtractor) extractMetadata(head string, out *statement.Outcome) {
	if m := cardNumberRe.FindStringSubmatch(head); m != nil {
		out.Metadata.CardLastFour = m[1]
	} else {
		out.AddIssue("metadata", "card number not found")
	}

	if m := cardTypeRe.FindStringSubmatch(head); m != nil {
		out.Metadata.CardType = m[1]
	}

	if m := periodRe.FindStringSubmatch(head); m != nil {
		start, err1 := parseDate(m[1], 0)
		end, err2 := parseDate(m[2], 0)
		if err1 == nil && err2 == nil {
			out.Metadata.PeriodStart = &start
			out.Metadata.PeriodEnd = &end
		} else {
			out.AddIssue("metadata", fmt.Sprintf("unparseable period %q - %q", m[1], m[2]))
		}
	} else {
		out.AddIssue("metadata", "statement period not found")
	}

	if m := cutDateRe.FindStringSubmatch(head); m != nil {
		if d, err := parseDate(m[1], 0); err == nil {
			out.Metadata.StatementDate = &d
		} else {
			out.AddIssue("metadata", fmt.Sprintf("unparseable cut date %q", m[1]))
		}
	}

	if name := e.findHolderName(head); name != "" {
		out.Metadata.CustomerName = name
	}
}

// findHolderName scans the head text for the first standalone uppercase
// multi-word line that carries none of the known layout keywords.
func (e *TemplateExtractor) findHolderName(head string) string {
	for _, m := range holderNameRe.FindAllStringSubmatch(head, 20) {
		candidate := m[1]
		if len(candidate) < 8 || len(candidate) > 60 {
			continue
		}
		disqualified := false
		for _, stop := range nameStopWords {
			if strings.Contains(candidate, stop) {
				disqualified = true
				break
			}
		}
		if !disqualified {
			return candidate
		}
	}
	return ""
}

func (e *TemplateExtractor) extractPayment(head string, out *statement.Outcome) {
	if m := dueDateRe.FindStringSubmatch(head); m != nil {
		if d, err := parseDate(m[1], 0); err == nil {
			out.Payment.DueDate = &d
		} else {
			out.AddIssue("payment", fmt.Sprintf("unparseable due date %q", m[1]))
		}
	} else {
		out.AddIssue("payment", "due date not found")
	}

	fields := []struct {
		re    *regexp.Regexp
		dst   **float64
		label string
	}{
		{minPaymentRe, &out.Payment.MinimumPayment, "minimum payment"},
		{noInterestRe, &out.Payment.PayToAvoidInterest, "pay-to-avoid-interest"},
		{totalBalRe, &out.Payment.TotalBalance, "total balance"},
		{prevBalanceRe, &out.Payment.PreviousBalance, "previous balance"},
		{creditLimitRe, &out.Payment.CreditLimit, "credit limit"},
		{availableRe, &out.Payment.AvailableCredit, "available credit"},
	}
	for _, f := range fields {
		m := f.re.FindStringSubmatch(head)
		if m == nil {
			continue
		}
		v, err := parseAmount(m[1])
		if err != nil {
			out.AddIssue("payment", fmt.Sprintf("unparseable %s %q", f.label, m[1]))
			continue
		}
		*f.dst = &v
	}
}

// yearContext picks the year used to complete transaction dates that
// omit one: the period end when known, else the cut date, else the due
// date. Zero means no context; dates without a year are then dropped.
func (e *TemplateExtractor) yearContext(out *statement.Outcome) int {
	switch {
	case out.Metadata.PeriodEnd != nil:
		return out.Metadata.PeriodEnd.Year()
	case out.Metadata.StatementDate != nil:
		return out.Metadata.StatementDate.Year()
	case out.Payment.DueDate != nil:
		return out.Payment.DueDate.Year()
	}
	return 0
}

// extractTransactions parses every transaction section with its table
// grammar, merges repeated tables of the same type and sorts each type
// chronologically. Rows that look like data but fail their grammar are
// dropped with an issue; the document never aborts here.
func (e *TemplateExtractor) extractTransactions(sections []statement.Section, yearCtx int, out *statement.Outcome) []statement.Transaction {
	byType := map[statement.TableType][]statement.Transaction{}

	parseSection := func(sec statement.Section, table statement.TableType, parse func(string) (*statement.Transaction, error)) {
		for _, raw := range strings.Split(sec.Text, "\n") {
			line := textnorm.FoldCompact(raw)
			if line == "" {
				continue
			}
			tx, err := parse(line)
			if err != nil {
				if dataLikeRe.MatchString(line) {
					out.AddIssue("row_parse", fmt.Sprintf("%s: dropped row %q: %v", table, line, err))
				}
				continue
			}
			tx.Table = table
			byType[table] = append(byType[table], *tx)
		}
	}

	for _, sec := range sections {
		switch sec.Tag {
		case statement.SectionNoInterest:
			parseSection(sec, statement.TableNoInterest, func(l string) (*statement.Transaction, error) {
				return e.parseNoInterestRow(l, yearCtx)
			})
		case statement.SectionInterest:
			parseSection(sec, statement.TableInterest, func(l string) (*statement.Transaction, error) {
				return e.parseInterestRow(l, yearCtx)
			})
		case statement.SectionRegular, statement.SectionMovements:
			parseSection(sec, statement.TableRegular, func(l string) (*statement.Transaction, error) {
				return e.parseRegularRow(l, yearCtx)
			})
		}
	}

	var merged []statement.Transaction
	for _, table := range []statement.TableType{statement.TableNoInterest, statement.TableInterest, statement.TableRegular} {
		txs := byType[table]
		sort.SliceStable(txs, func(i, j int) bool {
			return txs[i].OperationDate.Before(txs[j].OperationDate)
		})
		merged = append(merged, txs...)
	}
	return merged
}

func (e *TemplateExtractor) parseRegularRow(line string, yearCtx int) (*statement.Transaction, error) {
	m := regularRowRe.FindStringSubmatch(line)
	if m == nil {
		return nil, fmt.Errorf("no regular-row match")
	}

	op, err := parseDate(m[1], yearCtx)
	if err != nil {
		return nil, err
	}
	amount, err := parseAmount(m[4])
	if err != nil {
		return nil, err
	}

	tx := &statement.Transaction{
		OperationDate: op,
		Description:   strings.TrimSpace(m[3]),
		Amount:        amount,
	}
	if m[2] != "" {
		if charge, err := parseDate(m[2], yearCtx); err == nil {
			tx.ChargeDate = &charge
		}
	}
	if tx.Description == "" {
		return nil, fmt.Errorf("empty description")
	}
	return tx, nil
}

// parseNoInterestRow parses an interest-free installment row. The signed
// amount carried forward is this period's required payment; the purchase
// total and remaining balance are kept as installment detail.
func (e *TemplateExtractor) parseNoInterestRow(line string, yearCtx int) (*statement.Transaction, error) {
	m := noInterestRowRe.FindStringSubmatch(line)
	if m == nil {
		return nil, fmt.Errorf("no installment-row match")
	}

	op, err := parseDate(m[1], yearCtx)
	if err != nil {
		return nil, err
	}
	original, err := parseAmount(m[3])
	if err != nil {
		return nil, err
	}
	pending, err := parseAmount(m[4])
	if err != nil {
		return nil, err
	}
	required, err := parseAmount(m[5])
	if err != nil {
		return nil, err
	}

	return &statement.Transaction{
		OperationDate:   op,
		Description:     strings.TrimSpace(m[2]),
		Amount:          required,
		PaymentNumber:   compactInstallment(m[6]),
		OriginalAmount:  &original,
		PendingBalance:  &pending,
		RequiredPayment: &required,
	}, nil
}

func (e *TemplateExtractor) parseInterestRow(line string, yearCtx int) (*statement.Transaction, error) {
	m := interestRowRe.FindStringSubmatch(line)
	if m == nil {
		return nil, fmt.Errorf("no installment-row match")
	}

	op, err := parseDate(m[1], yearCtx)
	if err != nil {
		return nil, err
	}
	original, err := parseAmount(m[3])
	if err != nil {
		return nil, err
	}
	rate, err := strconv.ParseFloat(m[4], 64)
	if err != nil {
		return nil, fmt.Errorf("invalid rate %q: %w", m[4], err)
	}
	pending, err := parseAmount(m[5])
	if err != nil {
		return nil, err
	}
	required, err := parseAmount(m[6])
	if err != nil {
		return nil, err
	}

	return &statement.Transaction{
		OperationDate:   op,
		Description:     strings.TrimSpace(m[2]),
		Amount:          required,
		PaymentNumber:   compactInstallment(m[7]),
		OriginalAmount:  &original,
		PendingBalance:  &pending,
		RequiredPayment: &required,
		InterestRate:    &rate,
	}, nil
}

// compactInstallment normalizes "3 DE 12" / "3/12" to "3 DE 12".
func compactInstallment(s string) string {
	s = strings.Join(strings.Fields(s), " ")
	if strings.Contains(s, "/") {
		parts := strings.SplitN(s, "/", 2)
		return strings.TrimSpace(parts[0]) + " DE " + strings.TrimSpace(parts[1])
	}
	return s
}

func float64Ptr(v float64) *float64  { return &v }
func timePtr(t time.Time) *time.Time { return &t }
