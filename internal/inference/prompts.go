package inference

import (
	"fmt"
	"strings"

	"github.com/statementsense/statement-pipeline/internal/categorize"
	"github.com/statementsense/statement-pipeline/internal/statement"
)

// buildExtractionPrompt assembles the fallback-extraction prompt: fixed
// instructions, the expected JSON shape and the segmented statement text.
func buildExtractionPrompt(sections []statement.Section, bankID string) string {
	var b strings.Builder

	b.WriteString("You are a parser for Mexican credit-card statements (CONDUSEF layout).\n\n")
	b.WriteString("Task:\n")
	b.WriteString("- Extract the statement metadata, payment obligations and ALL transactions from the text below.\n")
	b.WriteString("- Output STRICT JSON only (no comments, no trailing commas, no extra text).\n")
	b.WriteString("- Output a single JSON object with this exact shape:\n\n")
	b.WriteString(`{
  "metadata": {
    "customer_name": string or null,
    "card_type": string or null,
    "card_last_four": string or null,
    "period_start": "YYYY-MM-DD" or null,
    "period_end": "YYYY-MM-DD" or null,
    "statement_date": "YYYY-MM-DD" or null
  },
  "payment": {
    "due_date": "YYYY-MM-DD" or null,
    "minimum_payment": number or null,
    "pay_to_avoid_interest": number or null,
    "total_balance": number or null,
    "previous_balance": number or null,
    "available_credit": number or null,
    "credit_limit": number or null
  },
  "transactions": [
    {
      "operation_date": "YYYY-MM-DD",
      "charge_date": "YYYY-MM-DD" or null,
      "description": string,
      "amount": number,
      "table_type": "no_interest_installment" | "interest_installment" | "regular",
      "payment_number": string or null
    }
  ],
  "confidence": number between 0 and 1
}`)
	b.WriteString("\n\nRules:\n")
	b.WriteString("- Amounts are signed: positive for charges, negative for payments and credits.\n")
	b.WriteString("- For installment rows use this period's required payment as \"amount\".\n")
	b.WriteString("- Dates in the text use Spanish month abbreviations (ENE, FEB, MAR, ABR, MAY, JUN, JUL, AGO, SEP, OCT, NOV, DIC).\n")
	b.WriteString("- \"confidence\" is your own estimate of extraction completeness.\n")
	b.WriteString("Return ONLY valid raw JSON. Do NOT wrap the response in code fences.\n\n")

	fmt.Fprintf(&b, "Issuing bank: %s\n\n", bankID)
	b.WriteString("Statement text by section:\n")
	for _, sec := range sections {
		fmt.Fprintf(&b, "\n--- section %s (page %d) ---\n%s\n", sec.Tag, sec.Page, sec.Text)
	}

	return b.String()
}

// buildCategorizationPrompt assembles the batched categorization prompt
// for the transactions the deterministic rules could not place.
func buildCategorizationPrompt(reqs []categorize.InferenceRequest, categories []categorize.Category) string {
	var b strings.Builder

	b.WriteString("You are a spending categorizer for Mexican credit-card transactions.\n\n")
	b.WriteString("Use ONLY the following categories:\n")
	for _, c := range categories {
		b.WriteString("- " + string(c) + "\n")
	}
	b.WriteString("\nTask:\n")
	b.WriteString("- Assign exactly one category to each transaction below.\n")
	b.WriteString("- Output STRICT JSON only: a JSON array with one object per transaction.\n")
	b.WriteString("- Each object: {\"index\": number, \"category\": string, \"confidence\": number between 0 and 1}.\n")
	b.WriteString("- \"index\" must echo the transaction's index exactly.\n")
	b.WriteString("- Use \"otros\" when nothing fits; never invent a category.\n")
	b.WriteString("Return ONLY valid raw JSON. Do NOT wrap the response in code fences.\n\n")

	b.WriteString("Transactions:\n")
	for _, r := range reqs {
		fmt.Fprintf(&b, "- index %d: %q, amount %.2f, bank %s\n", r.Index, r.Description, r.Amount, r.BankID)
	}

	return b.String()
}
