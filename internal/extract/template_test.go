package extract

import (
	"reflect"
	"testing"
	"time"

	"github.com/statementsense/statement-pipeline/internal/statement"
)

// fixturePages is a minimal but internally consistent statement: the
// signed transaction sum (-1529.50) equals the balance movement
// (8500.50 - 10030.00).
func fixturePages() []statement.RawPage {
	return []statement.RawPage{
		{Index: 0, Text: `BBVA BANCOMER, S.A.
ESTADO DE CUENTA TARJETA ORO
JUAN PEREZ LOPEZ
NUMERO DE TARJETA: 1234 5678 9012 3456
PERIODO: DEL 15-MAR-2025 AL 14-ABR-2025
FECHA DE CORTE: 14-ABR-2025
`},
		{Index: 1, Text: `TU PAGO REQUERIDO ESTE PERIODO
FECHA LIMITE DE PAGO: 04-MAY-2025
PAGO MINIMO: $450.00
PAGO PARA NO GENERAR INTERESES: $8,500.50
RESUMEN DE CARGOS Y ABONOS DEL PERIODO
ADEUDO DEL PERIODO ANTERIOR: $10,030.00
SALDO DEUDOR TOTAL: $8,500.50
LIMITE DE CREDITO: $50,000.00
CREDITO DISPONIBLE: $41,499.50
`},
		{Index: 2, Text: `COMPRAS Y CARGOS DIFERIDOS A MESES SIN INTERESES
FECHA DESCRIPCION MONTO ORIGINAL SALDO PENDIENTE PAGO REQUERIDO NO. PAGO
10-ENE-2025  LIVERPOOL MUEBLES  $3,600.00  $2,400.00  $300.00  4 DE 12
CARGOS, ABONOS Y COMPRAS REGULARES (NO A MESES)
FECHA DE OPERACION FECHA DE CARGO DESCRIPCION MONTO
12-ABR-2025  12-ABR-2025  UBER TRIP  $125.50
15-MAR-2025  PAGO RECIBIDO GRACIAS  -$2,000.00
20-MAR-2025  OXXO ROMA NORTE  $45.00
`},
	}
}

func extractFixture(t *testing.T) *statement.Outcome {
	t.Helper()
	pages := fixturePages()
	sections := Segment(pages)
	out, err := NewTemplateExtractor().Extract(pages, sections, ClassifyBank(pages[0].Text))
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	return out
}

func TestTemplateExtractMetadata(t *testing.T) {
	out := extractFixture(t)

	if out.Metadata.BankID != "bbva" {
		t.Errorf("BankID = %q, want bbva", out.Metadata.BankID)
	}
	if out.Metadata.CustomerName != "JUAN PEREZ LOPEZ" {
		t.Errorf("CustomerName = %q, want JUAN PEREZ LOPEZ", out.Metadata.CustomerName)
	}
	if out.Metadata.CardType != "ORO" {
		t.Errorf("CardType = %q, want ORO", out.Metadata.CardType)
	}
	if out.Metadata.CardLastFour != "3456" {
		t.Errorf("CardLastFour = %q, want 3456", out.Metadata.CardLastFour)
	}

	wantStart := time.Date(2025, time.March, 15, 0, 0, 0, 0, time.UTC)
	wantEnd := time.Date(2025, time.April, 14, 0, 0, 0, 0, time.UTC)
	if out.Metadata.PeriodStart == nil || !out.Metadata.PeriodStart.Equal(wantStart) {
		t.Errorf("PeriodStart = %v, want %v", out.Metadata.PeriodStart, wantStart)
	}
	if out.Metadata.PeriodEnd == nil || !out.Metadata.PeriodEnd.Equal(wantEnd) {
		t.Errorf("PeriodEnd = %v, want %v", out.Metadata.PeriodEnd, wantEnd)
	}
}

func TestTemplateExtractPayment(t *testing.T) {
	out := extractFixture(t)

	wantDue := time.Date(2025, time.May, 4, 0, 0, 0, 0, time.UTC)
	if out.Payment.DueDate == nil || !out.Payment.DueDate.Equal(wantDue) {
		t.Fatalf("DueDate = %v, want %v", out.Payment.DueDate, wantDue)
	}

	checks := []struct {
		name string
		got  *float64
		want float64
	}{
		{"MinimumPayment", out.Payment.MinimumPayment, 450.00},
		{"PayToAvoidInterest", out.Payment.PayToAvoidInterest, 8500.50},
		{"TotalBalance", out.Payment.TotalBalance, 8500.50},
		{"PreviousBalance", out.Payment.PreviousBalance, 10030.00},
		{"CreditLimit", out.Payment.CreditLimit, 50000.00},
		{"AvailableCredit", out.Payment.AvailableCredit, 41499.50},
	}
	for _, c := range checks {
		if c.got == nil {
			t.Errorf("%s = nil, want %v", c.name, c.want)
			continue
		}
		if *c.got != c.want {
			t.Errorf("%s = %v, want %v", c.name, *c.got, c.want)
		}
	}
}

func TestTemplateExtractTransactions(t *testing.T) {
	out := extractFixture(t)

	if len(out.Transactions) != 4 {
		t.Fatalf("got %d transactions, want 4: %+v", len(out.Transactions), out.Transactions)
	}

	// Installment tables come first, each table sorted chronologically.
	inst := out.Transactions[0]
	if inst.Table != statement.TableNoInterest {
		t.Errorf("transactions[0].Table = %q, want %q", inst.Table, statement.TableNoInterest)
	}
	if inst.Description != "LIVERPOOL MUEBLES" {
		t.Errorf("transactions[0].Description = %q", inst.Description)
	}
	if inst.Amount != 300.00 {
		t.Errorf("transactions[0].Amount = %v, want 300.00 (required payment)", inst.Amount)
	}
	if inst.OriginalAmount == nil || *inst.OriginalAmount != 3600.00 {
		t.Errorf("transactions[0].OriginalAmount = %v, want 3600.00", inst.OriginalAmount)
	}
	if inst.PendingBalance == nil || *inst.PendingBalance != 2400.00 {
		t.Errorf("transactions[0].PendingBalance = %v, want 2400.00", inst.PendingBalance)
	}
	if inst.PaymentNumber != "4 DE 12" {
		t.Errorf("transactions[0].PaymentNumber = %q, want \"4 DE 12\"", inst.PaymentNumber)
	}

	// Regular rows follow, chronologically: payment, OXXO, then UBER.
	regular := out.Transactions[1:]
	wantRegular := []struct {
		date   time.Time
		desc   string
		amount float64
	}{
		{time.Date(2025, time.March, 15, 0, 0, 0, 0, time.UTC), "PAGO RECIBIDO GRACIAS", -2000.00},
		{time.Date(2025, time.March, 20, 0, 0, 0, 0, time.UTC), "OXXO ROMA NORTE", 45.00},
		{time.Date(2025, time.April, 12, 0, 0, 0, 0, time.UTC), "UBER TRIP", 125.50},
	}
	for i, want := range wantRegular {
		tx := regular[i]
		if tx.Table != statement.TableRegular {
			t.Errorf("regular[%d].Table = %q", i, tx.Table)
		}
		if !tx.OperationDate.Equal(want.date) {
			t.Errorf("regular[%d].OperationDate = %v, want %v", i, tx.OperationDate, want.date)
		}
		if tx.Description != want.desc {
			t.Errorf("regular[%d].Description = %q, want %q", i, tx.Description, want.desc)
		}
		if tx.Amount != want.amount {
			t.Errorf("regular[%d].Amount = %v, want %v", i, tx.Amount, want.amount)
		}
	}

	// The UBER row has both dates.
	uber := regular[2]
	if uber.ChargeDate == nil || !uber.ChargeDate.Equal(uber.OperationDate) {
		t.Errorf("UBER ChargeDate = %v, want equal to operation date", uber.ChargeDate)
	}
}

func TestTemplateExtractDeterministic(t *testing.T) {
	first := extractFixture(t)
	second := extractFixture(t)

	if !reflect.DeepEqual(first, second) {
		t.Errorf("repeated extraction differs:\nfirst:  %+v\nsecond: %+v", first, second)
	}
}

func TestTemplateExtractDropsMalformedRows(t *testing.T) {
	pages := []statement.RawPage{
		{Index: 0, Text: `NUMERO DE TARJETA: 1234 5678 9012 3456
PERIODO: DEL 15-MAR-2025 AL 14-ABR-2025
CARGOS, ABONOS Y COMPRAS REGULARES (NO A MESES)
12-ABR-2025  UBER TRIP  $125.50
13-ABR-2025  ROW WITH NO AMOUNT
20-MAR-2025  OXXO  $45.00
`},
	}
	sections := Segment(pages)
	out, err := NewTemplateExtractor().Extract(pages, sections, statement.BankUnknown)
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}

	if len(out.Transactions) != 2 {
		t.Fatalf("got %d transactions, want 2 (malformed row dropped)", len(out.Transactions))
	}

	found := false
	for _, is := range out.Issues {
		if is.Check == "row_parse" {
			found = true
		}
	}
	if !found {
		t.Errorf("no row_parse issue recorded for dropped row; issues: %+v", out.Issues)
	}
}

func TestTemplateExtractStructuralErrors(t *testing.T) {
	ex := NewTemplateExtractor()

	if _, err := ex.Extract(nil, nil, statement.BankUnknown); err == nil {
		t.Error("Extract(no pages) error = nil, want StructuralError")
	}

	blank := []statement.RawPage{{Index: 0, Text: "   \n  "}}
	_, err := ex.Extract(blank, nil, statement.BankUnknown)
	if _, ok := err.(*statement.StructuralError); !ok {
		t.Errorf("Extract(blank pages) error = %v, want *StructuralError", err)
	}
}
