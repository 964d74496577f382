package bigquery

import (
	"time"

	"cloud.google.com/go/bigquery"
	"cloud.google.com/go/civil"
)

// StatementRow represents a statement record in BigQuery. The row is
// created by CreateStatement with only statement_id, status and
// created_ts; UpdateStatementExtraction fills the rest once extraction
// succeeds, so every column below the ID is NULLABLE in the table.
type StatementRow struct {
	StatementID string `bigquery:"statement_id"` // REQUIRED

	BankID       string              `bigquery:"bank_id"`        // NULLABLE
	CustomerName bigquery.NullString `bigquery:"customer_name"`  // NULLABLE
	CardType     bigquery.NullString `bigquery:"card_type"`      // NULLABLE
	CardLastFour bigquery.NullString `bigquery:"card_last_four"` // NULLABLE

	PeriodStart   bigquery.NullDate `bigquery:"period_start"`   // NULLABLE
	PeriodEnd     bigquery.NullDate `bigquery:"period_end"`     // NULLABLE
	StatementDate bigquery.NullDate `bigquery:"statement_date"` // NULLABLE
	DueDate       bigquery.NullDate `bigquery:"due_date"`       // NULLABLE

	MinimumPayment     bigquery.NullFloat64 `bigquery:"minimum_payment"`       // NULLABLE
	PayToAvoidInterest bigquery.NullFloat64 `bigquery:"pay_to_avoid_interest"` // NULLABLE
	TotalBalance       bigquery.NullFloat64 `bigquery:"total_balance"`         // NULLABLE
	PreviousBalance    bigquery.NullFloat64 `bigquery:"previous_balance"`      // NULLABLE
	CreditLimit        bigquery.NullFloat64 `bigquery:"credit_limit"`          // NULLABLE
	AvailableCredit    bigquery.NullFloat64 `bigquery:"available_credit"`      // NULLABLE

	TotalTransactions int64   `bigquery:"total_transactions"` // NULLABLE
	TotalCredits      float64 `bigquery:"total_credits"`      // NULLABLE, absolute value
	TotalDebits       float64 `bigquery:"total_debits"`       // NULLABLE

	Status       string              `bigquery:"status"`        // REQUIRED
	StatusDetail bigquery.NullString `bigquery:"status_detail"` // NULLABLE

	Method      string  `bigquery:"method"`       // NULLABLE ("template" | "fallback")
	Confidence  float64 `bigquery:"confidence"`   // NULLABLE
	RuleVersion string  `bigquery:"rule_version"` // NULLABLE

	CreatedTS time.Time `bigquery:"created_ts"` // REQUIRED
}

// TransactionRow represents one extracted transaction in BigQuery,
// including its categorization.
type TransactionRow struct {
	TransactionID string `bigquery:"transaction_id"` // REQUIRED
	StatementID   string `bigquery:"statement_id"`   // REQUIRED
	RunID         string `bigquery:"run_id"`         // REQUIRED

	OperationDate civil.Date        `bigquery:"operation_date"` // REQUIRED
	ChargeDate    bigquery.NullDate `bigquery:"charge_date"`    // NULLABLE

	Description string  `bigquery:"description"` // REQUIRED
	Amount      float64 `bigquery:"amount"`      // REQUIRED, signed
	TableType   string  `bigquery:"table_type"`  // REQUIRED

	PaymentNumber   bigquery.NullString  `bigquery:"payment_number"`   // NULLABLE
	OriginalAmount  bigquery.NullFloat64 `bigquery:"original_amount"`  // NULLABLE
	PendingBalance  bigquery.NullFloat64 `bigquery:"pending_balance"`  // NULLABLE
	RequiredPayment bigquery.NullFloat64 `bigquery:"required_payment"` // NULLABLE
	InterestRate    bigquery.NullFloat64 `bigquery:"interest_rate"`    // NULLABLE

	Category           string  `bigquery:"category"`            // REQUIRED
	CategoryConfidence float64 `bigquery:"category_confidence"` // REQUIRED
	CategoryTier       string  `bigquery:"category_tier"`       // REQUIRED

	CreatedTS time.Time `bigquery:"created_ts"` // REQUIRED
}

// Processing-run lifecycle states.
const (
	RunStatusRunning = "RUNNING"
	RunStatusSuccess = "SUCCESS"
	RunStatusFailed  = "FAILED"
)

// ProcessingRunRow represents one pipeline run over a statement.
type ProcessingRunRow struct {
	RunID       string `bigquery:"run_id"`       // REQUIRED
	StatementID string `bigquery:"statement_id"` // REQUIRED

	StartedTS  time.Time              `bigquery:"started_ts"`  // REQUIRED
	FinishedTS bigquery.NullTimestamp `bigquery:"finished_ts"` // NULLABLE

	Status       string              `bigquery:"status"`        // RunStatus* value
	ErrorMessage bigquery.NullString `bigquery:"error_message"` // NULLABLE
	Method       bigquery.NullString `bigquery:"method"`        // NULLABLE
}

// CategoryTotalRow is one per-category aggregate over a statement.
type CategoryTotalRow struct {
	Category string  `bigquery:"category"`
	Count    int64   `bigquery:"tx_count"`
	Total    float64 `bigquery:"total"`
}
