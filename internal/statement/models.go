package statement

import (
	"time"
)

// RawPage is one page of raw text produced by the external text-extraction
// stage. Pages are UTF-8 with diacritics preserved and immutable once
// handed to the pipeline.
type RawPage struct {
	Index int    `json:"index"`
	Text  string `json:"text"`
}

// SectionTag identifies one of the regulator-mandated logical sections of
// a statement.
type SectionTag string

const (
	SectionPayment      SectionTag = "payment_required"
	SectionSummary      SectionTag = "charges_summary"
	SectionMovements    SectionTag = "movements"
	SectionNoInterest   SectionTag = "no_interest_installments"
	SectionInterest     SectionTag = "interest_installments"
	SectionRegular      SectionTag = "regular_transactions"
	SectionUnrecognized SectionTag = "unrecognized_charges"
	SectionUsageLevel   SectionTag = "card_usage_level"
	SectionMessages     SectionTag = "important_messages"
	SectionCostIndex    SectionTag = "annual_cost_indicators"
)

// Section is a contiguous span of statement text attributed to one
// mandated section. The same tag may appear more than once (e.g. one
// regular-transactions table per additional card).
type Section struct {
	Tag  SectionTag
	Page int
	Text string
}

// TableType identifies which transaction-table grammar a row came from.
// The sign convention is fixed per table type: installment rows are always
// charges (positive); regular rows carry their own sign (payments and
// credits negative).
type TableType string

const (
	TableNoInterest TableType = "no_interest_installment"
	TableInterest   TableType = "interest_installment"
	TableRegular    TableType = "regular"
)

// Method tags how an Outcome was produced.
type Method string

const (
	MethodTemplate Method = "template"
	MethodFallback Method = "fallback"
)

// BankUnknown is the issuer id used when no fingerprint matches. The
// transaction-table layout is regulation-mandated, so extraction proceeds
// with issuer-agnostic rules.
const BankUnknown = "unknown"

// Metadata holds account-level fields extracted from the statement header.
type Metadata struct {
	BankID        string     `json:"bank_id"`
	CustomerName  string     `json:"customer_name,omitempty"`
	CardType      string     `json:"card_type,omitempty"`
	CardLastFour  string     `json:"card_last_four,omitempty"`
	PeriodStart   *time.Time `json:"period_start,omitempty"`
	PeriodEnd     *time.Time `json:"period_end,omitempty"`
	StatementDate *time.Time `json:"statement_date,omitempty"`
}

// PaymentInfo holds the payment-obligation fields of the statement.
// Pointer fields are nil when the statement (or the extractor) did not
// produce them; the validator treats absence as a failed check input, not
// as zero.
type PaymentInfo struct {
	DueDate            *time.Time `json:"due_date,omitempty"`
	MinimumPayment     *float64   `json:"minimum_payment,omitempty"`
	PayToAvoidInterest *float64   `json:"pay_to_avoid_interest,omitempty"`
	TotalBalance       *float64   `json:"total_balance,omitempty"`
	PreviousBalance    *float64   `json:"previous_balance,omitempty"`
	AvailableCredit    *float64   `json:"available_credit,omitempty"`
	CreditLimit        *float64   `json:"credit_limit,omitempty"`
}

// Transaction is one extracted transaction row. Amount is signed:
// positive for charges, negative for payments and credits.
type Transaction struct {
	OperationDate time.Time  `json:"operation_date"`
	ChargeDate    *time.Time `json:"charge_date,omitempty"`
	Description   string     `json:"description"`
	Amount        float64    `json:"amount"`
	Table         TableType  `json:"table_type"`

	// Installment-only fields.
	PaymentNumber   string   `json:"payment_number,omitempty"`
	OriginalAmount  *float64 `json:"original_amount,omitempty"`
	PendingBalance  *float64 `json:"pending_balance,omitempty"`
	RequiredPayment *float64 `json:"required_payment,omitempty"`
	InterestRate    *float64 `json:"interest_rate,omitempty"`
}

// Issue records one localized extraction or validation problem. Issues
// never abort the document; they feed the confidence score and the
// diagnostic detail of a failed run.
type Issue struct {
	Check  string `json:"check"`
	Detail string `json:"detail"`
}

// Outcome is the full result of one extraction attempt. It is built once
// per attempt; the template path is deterministic for a fixed rule-set
// version, the fallback path is tagged as such.
type Outcome struct {
	Metadata     Metadata      `json:"metadata"`
	Payment      PaymentInfo   `json:"payment"`
	Transactions []Transaction `json:"transactions"`
	Confidence   float64       `json:"confidence"`
	Method       Method        `json:"method"`
	Issues       []Issue       `json:"issues,omitempty"`
}

// AddIssue appends a localized issue to the outcome.
func (o *Outcome) AddIssue(check, detail string) {
	o.Issues = append(o.Issues, Issue{Check: check, Detail: detail})
}

// Status is the processing lifecycle of a statement as seen by the
// persistence layer.
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusProcessed  Status = "processed"
	StatusFailed     Status = "failed"
)
