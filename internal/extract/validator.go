package extract

import (
	"fmt"
	"math"

	"github.com/statementsense/statement-pipeline/internal/statement"
)

// Check weights. Sections and reconciliation carry the most signal; a
// statement that reconciles to the centavo with its sections found is
// almost certainly extracted correctly.
const (
	weightSections    = 0.30
	weightReconcile   = 0.30
	weightDates       = 0.20
	weightDescription = 0.20
)

// Validator scores an extraction outcome in [0,1] from independent
// plausibility checks. It never mutates the outcome's fields other than
// appending the issues it finds; the orchestrator owns acceptance.
type Validator struct {
	// Tolerance is the maximum absolute difference, in currency units,
	// accepted when reconciling the transaction sum against the balance
	// delta.
	Tolerance float64
}

func NewValidator(tolerance float64) *Validator {
	return &Validator{Tolerance: tolerance}
}

// Score computes the weighted confidence for an outcome and returns the
// issues behind any non-perfect check.
func (v *Validator) Score(out *statement.Outcome) (float64, []statement.Issue) {
	var issues []statement.Issue
	report := func(check, detail string) {
		issues = append(issues, statement.Issue{Check: check, Detail: detail})
	}

	score := weightSections*v.sectionsScore(out, report) +
		weightReconcile*v.reconcileScore(out, report) +
		weightDates*v.datesScore(out, report) +
		weightDescription*v.descriptionScore(out, report)

	return score, issues
}

// sectionsScore checks that the three mandated content groups were
// actually found: header metadata, the payment block, and transaction
// content. A transaction-free statement still passes the third part when
// its balances reconcile to a zero delta, which is what distinguishes a
// legitimately quiet period from an extraction that lost the tables.
func (v *Validator) sectionsScore(out *statement.Outcome, report func(check, detail string)) float64 {
	found := 0

	if out.Metadata.CardLastFour != "" || out.Metadata.PeriodStart != nil {
		found++
	} else {
		report("sections", "no header metadata extracted")
	}

	if out.Payment.DueDate != nil && (out.Payment.MinimumPayment != nil || out.Payment.PayToAvoidInterest != nil) {
		found++
	} else {
		report("sections", "payment block incomplete")
	}

	switch {
	case len(out.Transactions) > 0:
		found++
	case v.zeroDeltaReconciled(out):
		found++
	default:
		report("sections", "no transactions extracted and balances do not show a quiet period")
	}

	return float64(found) / 3
}

func (v *Validator) zeroDeltaReconciled(out *statement.Outcome) bool {
	p := out.Payment
	if p.TotalBalance == nil || p.PreviousBalance == nil {
		return false
	}
	return math.Abs(*p.TotalBalance-*p.PreviousBalance) <= v.Tolerance
}

// reconcileScore verifies that the signed transaction sum explains the
// movement from the previous balance to the total balance. Missing
// balance inputs fail the check rather than passing it vacuously.
func (v *Validator) reconcileScore(out *statement.Outcome, report func(check, detail string)) float64 {
	p := out.Payment
	if p.TotalBalance == nil || p.PreviousBalance == nil {
		report("reconciliation", "total or previous balance missing")
		return 0
	}

	var sum float64
	for _, tx := range out.Transactions {
		sum += tx.Amount
	}
	delta := *p.TotalBalance - *p.PreviousBalance

	if diff := math.Abs(sum - delta); diff > v.Tolerance {
		report("reconciliation", fmt.Sprintf("transaction sum %.2f vs balance delta %.2f (diff %.2f)", sum, delta, diff))
		return 0
	}
	return 1
}

// datesScore is the fraction of transactions with a plausible operation
// date. Regular rows must fall inside the statement period when the
// period is known; installment rows carry the original purchase date,
// which legitimately predates the period, so they only need a date at
// all. With no transactions the check passes vacuously.
func (v *Validator) datesScore(out *statement.Outcome, report func(check, detail string)) float64 {
	if len(out.Transactions) == 0 {
		return 1
	}

	start, end := out.Metadata.PeriodStart, out.Metadata.PeriodEnd
	valid := 0
	for _, tx := range out.Transactions {
		if tx.OperationDate.IsZero() {
			continue
		}
		if tx.Table == statement.TableRegular && start != nil && end != nil {
			if tx.OperationDate.Before(*start) || tx.OperationDate.After(*end) {
				continue
			}
		}
		valid++
	}

	frac := float64(valid) / float64(len(out.Transactions))
	if frac < 1 {
		report("dates", fmt.Sprintf("%d of %d transaction dates invalid or outside the period", len(out.Transactions)-valid, len(out.Transactions)))
	}
	return frac
}

// descriptionScore is the fraction of transactions carrying a non-empty
// description. Vacuously perfect with no transactions.
func (v *Validator) descriptionScore(out *statement.Outcome, report func(check, detail string)) float64 {
	if len(out.Transactions) == 0 {
		return 1
	}

	valid := 0
	for _, tx := range out.Transactions {
		if tx.Description != "" {
			valid++
		}
	}

	frac := float64(valid) / float64(len(out.Transactions))
	if frac < 1 {
		report("descriptions", fmt.Sprintf("%d of %d transactions have empty descriptions", len(out.Transactions)-valid, len(out.Transactions)))
	}
	return frac
}
