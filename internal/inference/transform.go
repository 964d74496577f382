package inference

import (
	"fmt"
	"time"

	"github.com/statementsense/statement-pipeline/internal/categorize"
	"github.com/statementsense/statement-pipeline/internal/statement"
)

// SchemaError means the model's response decoded as JSON but violated
// the agreed shape in a way that cannot be scoped to a single unit.
type SchemaError struct {
	Field  string
	Detail string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("model output schema violation at %q: %s", e.Field, e.Detail)
}

var tableTypes = map[string]statement.TableType{
	string(statement.TableNoInterest): statement.TableNoInterest,
	string(statement.TableInterest):   statement.TableInterest,
	string(statement.TableRegular):    statement.TableRegular,
}

// transformOutcome converts the model's extraction object into an
// Outcome. Top-level shape violations fail the whole transform; a bad
// individual transaction is dropped with an issue instead.
func transformOutcome(raw map[string]interface{}) (*statement.Outcome, error) {
	out := &statement.Outcome{Method: statement.MethodFallback}

	meta, err := getObjectField(raw, "metadata")
	if err != nil {
		return nil, err
	}
	if err := transformMetadata(meta, out); err != nil {
		return nil, err
	}

	payment, err := getObjectField(raw, "payment")
	if err != nil {
		return nil, err
	}
	if err := transformPayment(payment, out); err != nil {
		return nil, err
	}

	txAny, ok := raw["transactions"]
	if !ok {
		return nil, &SchemaError{Field: "transactions", Detail: "missing"}
	}
	txSlice, ok := txAny.([]interface{})
	if !ok {
		return nil, &SchemaError{Field: "transactions", Detail: fmt.Sprintf("type %T, want array", txAny)}
	}

	out.Transactions = make([]statement.Transaction, 0, len(txSlice))
	for i, item := range txSlice {
		obj, ok := item.(map[string]interface{})
		if !ok {
			out.AddIssue("fallback_row", fmt.Sprintf("transaction %d: type %T, want object", i, item))
			continue
		}
		tx, err := transformTransaction(obj)
		if err != nil {
			out.AddIssue("fallback_row", fmt.Sprintf("transaction %d: %v", i, err))
			continue
		}
		out.Transactions = append(out.Transactions, *tx)
	}

	if conf, err := getFloat64Field(raw, "confidence", false); err == nil {
		out.Confidence = clamp01(conf)
	}

	return out, nil
}

func transformMetadata(m map[string]interface{}, out *statement.Outcome) error {
	name, err := getOptionalStringField(m, "customer_name")
	if err != nil {
		return &SchemaError{Field: "metadata.customer_name", Detail: err.Error()}
	}
	if name != nil {
		out.Metadata.CustomerName = *name
	}

	cardType, err := getOptionalStringField(m, "card_type")
	if err != nil {
		return &SchemaError{Field: "metadata.card_type", Detail: err.Error()}
	}
	if cardType != nil {
		out.Metadata.CardType = *cardType
	}

	lastFour, err := getOptionalStringField(m, "card_last_four")
	if err != nil {
		return &SchemaError{Field: "metadata.card_last_four", Detail: err.Error()}
	}
	if lastFour != nil {
		out.Metadata.CardLastFour = *lastFour
	}

	out.Metadata.PeriodStart = optionalDate(m, "period_start", out)
	out.Metadata.PeriodEnd = optionalDate(m, "period_end", out)
	out.Metadata.StatementDate = optionalDate(m, "statement_date", out)
	return nil
}

func transformPayment(m map[string]interface{}, out *statement.Outcome) error {
	out.Payment.DueDate = optionalDate(m, "due_date", out)

	fields := []struct {
		key string
		dst **float64
	}{
		{"minimum_payment", &out.Payment.MinimumPayment},
		{"pay_to_avoid_interest", &out.Payment.PayToAvoidInterest},
		{"total_balance", &out.Payment.TotalBalance},
		{"previous_balance", &out.Payment.PreviousBalance},
		{"available_credit", &out.Payment.AvailableCredit},
		{"credit_limit", &out.Payment.CreditLimit},
	}
	for _, f := range fields {
		v, err := getOptionalFloat64Field(m, f.key)
		if err != nil {
			return &SchemaError{Field: "payment." + f.key, Detail: err.Error()}
		}
		*f.dst = v
	}
	return nil
}

func transformTransaction(obj map[string]interface{}) (*statement.Transaction, error) {
	dateStr, err := getStringField(obj, "operation_date", true)
	if err != nil {
		return nil, err
	}
	opDate, err := time.Parse("2006-01-02", dateStr)
	if err != nil {
		return nil, fmt.Errorf("invalid operation_date %q: %w", dateStr, err)
	}

	desc, err := getStringField(obj, "description", true)
	if err != nil {
		return nil, err
	}
	if desc == "" {
		return nil, fmt.Errorf("empty description")
	}

	amount, err := getFloat64Field(obj, "amount", true)
	if err != nil {
		return nil, err
	}

	tableStr, err := getStringField(obj, "table_type", true)
	if err != nil {
		return nil, err
	}
	table, ok := tableTypes[tableStr]
	if !ok {
		return nil, fmt.Errorf("unknown table_type %q", tableStr)
	}

	tx := &statement.Transaction{
		OperationDate: opDate,
		Description:   desc,
		Amount:        amount,
		Table:         table,
	}

	if chargeStr, err := getOptionalStringField(obj, "charge_date"); err == nil && chargeStr != nil {
		if charge, err := time.Parse("2006-01-02", *chargeStr); err == nil {
			tx.ChargeDate = &charge
		}
	}
	if num, err := getOptionalStringField(obj, "payment_number"); err == nil && num != nil {
		tx.PaymentNumber = *num
	}

	return tx, nil
}

// transformCategoryResults converts the model's categorization array to
// per-request results aligned with reqs. Items that are malformed or
// reference an unknown index yield an empty result for that slot only.
func transformCategoryResults(parsed interface{}, reqs []categorize.InferenceRequest) ([]categorize.InferenceResult, error) {
	arr, ok := parsed.([]interface{})
	if !ok {
		return nil, &SchemaError{Field: "(root)", Detail: fmt.Sprintf("type %T, want array", parsed)}
	}

	slot := make(map[int]int, len(reqs)) // transaction index -> position in reqs
	for pos, r := range reqs {
		slot[r.Index] = pos
	}

	results := make([]categorize.InferenceResult, len(reqs))
	for _, item := range arr {
		obj, ok := item.(map[string]interface{})
		if !ok {
			continue
		}
		idx, err := getIntField(obj, "index")
		if err != nil {
			continue
		}
		pos, ok := slot[idx]
		if !ok {
			continue
		}
		cat, err := getStringField(obj, "category", true)
		if err != nil {
			continue
		}
		conf, _ := getFloat64Field(obj, "confidence", false)
		results[pos] = categorize.InferenceResult{Category: cat, Confidence: clamp01(conf)}
	}
	return results, nil
}

func getObjectField(m map[string]interface{}, key string) (map[string]interface{}, error) {
	v, ok := m[key]
	if !ok || v == nil {
		return nil, &SchemaError{Field: key, Detail: "missing"}
	}
	obj, ok := v.(map[string]interface{})
	if !ok {
		return nil, &SchemaError{Field: key, Detail: fmt.Sprintf("type %T, want object", v)}
	}
	return obj, nil
}

func optionalDate(m map[string]interface{}, key string, out *statement.Outcome) *time.Time {
	s, err := getOptionalStringField(m, key)
	if err != nil || s == nil {
		return nil
	}
	t, err := time.Parse("2006-01-02", *s)
	if err != nil {
		out.AddIssue("fallback_field", fmt.Sprintf("invalid %s %q", key, *s))
		return nil
	}
	return &t
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
