package pipeline

import (
	"time"

	bigquerylib "cloud.google.com/go/bigquery"
	"cloud.google.com/go/civil"
	"github.com/google/uuid"

	infra "github.com/statementsense/statement-pipeline/internal/infra/bigquery"
)

// statementRow maps the accepted outcome onto the extraction columns of
// its BigQuery row. Status stays out: the lifecycle steps own it.
func statementRow(state *PipelineState, ruleVersion string) *infra.StatementRow {
	out := state.Outcome

	var credits, debits float64
	for _, tx := range out.Transactions {
		if tx.Amount < 0 {
			credits += -tx.Amount
		} else {
			debits += tx.Amount
		}
	}

	return &infra.StatementRow{
		StatementID:        state.StatementID,
		BankID:             out.Metadata.BankID,
		CustomerName:       nullString(out.Metadata.CustomerName),
		CardType:           nullString(out.Metadata.CardType),
		CardLastFour:       nullString(out.Metadata.CardLastFour),
		PeriodStart:        nullDate(out.Metadata.PeriodStart),
		PeriodEnd:          nullDate(out.Metadata.PeriodEnd),
		StatementDate:      nullDate(out.Metadata.StatementDate),
		DueDate:            nullDate(out.Payment.DueDate),
		MinimumPayment:     nullFloat(out.Payment.MinimumPayment),
		PayToAvoidInterest: nullFloat(out.Payment.PayToAvoidInterest),
		TotalBalance:       nullFloat(out.Payment.TotalBalance),
		PreviousBalance:    nullFloat(out.Payment.PreviousBalance),
		CreditLimit:        nullFloat(out.Payment.CreditLimit),
		AvailableCredit:    nullFloat(out.Payment.AvailableCredit),
		TotalTransactions:  int64(len(out.Transactions)),
		TotalCredits:       credits,
		TotalDebits:        debits,
		Method:             string(out.Method),
		Confidence:         out.Confidence,
		RuleVersion:        ruleVersion,
	}
}

// transactionRows maps the outcome's transactions, joined with their
// category assignments, onto BigQuery rows.
func transactionRows(state *PipelineState) []*infra.TransactionRow {
	out := state.Outcome
	rows := make([]*infra.TransactionRow, 0, len(out.Transactions))
	now := time.Now()

	for i, tx := range out.Transactions {
		row := &infra.TransactionRow{
			TransactionID:   uuid.NewString(),
			StatementID:     state.StatementID,
			RunID:           state.RunID,
			OperationDate:   civil.DateOf(tx.OperationDate),
			ChargeDate:      nullDate(tx.ChargeDate),
			Description:     tx.Description,
			Amount:          tx.Amount,
			TableType:       string(tx.Table),
			PaymentNumber:   nullString(tx.PaymentNumber),
			OriginalAmount:  nullFloat(tx.OriginalAmount),
			PendingBalance:  nullFloat(tx.PendingBalance),
			RequiredPayment: nullFloat(tx.RequiredPayment),
			InterestRate:    nullFloat(tx.InterestRate),
			CreatedTS:       now,
		}
		if i < len(state.Assignments) {
			a := state.Assignments[i]
			row.Category = string(a.Category)
			row.CategoryConfidence = a.Confidence
			row.CategoryTier = string(a.Tier)
		}
		rows = append(rows, row)
	}
	return rows
}

func nullString(s string) bigquerylib.NullString {
	return bigquerylib.NullString{StringVal: s, Valid: s != ""}
}

func nullFloat(p *float64) bigquerylib.NullFloat64 {
	if p == nil {
		return bigquerylib.NullFloat64{}
	}
	return bigquerylib.NullFloat64{Float64: *p, Valid: true}
}

func nullDate(t *time.Time) bigquerylib.NullDate {
	if t == nil {
		return bigquerylib.NullDate{}
	}
	return bigquerylib.NullDate{Date: civil.DateOf(*t), Valid: true}
}
