package bigquery

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/bigquery"
	"github.com/google/uuid"
	"google.golang.org/api/iterator"

	"github.com/statementsense/statement-pipeline/internal/logger"
	"github.com/statementsense/statement-pipeline/internal/statement"
)

const (
	statementsTable     = "statements"
	transactionsTable   = "transactions"
	processingRunsTable = "processing_runs"
)

// Repository is the BigQuery-backed persistence layer. One Repository
// holds one client; callers Close it when done.
type Repository struct {
	client  *bigquery.Client
	dataset string
}

// NewRepository creates a Repository against the given project and
// dataset.
func NewRepository(ctx context.Context, projectID, dataset string) (*Repository, error) {
	client, err := bigquery.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("NewRepository: bigquery client: %w", err)
	}
	return &Repository{client: client, dataset: dataset}, nil
}

// Close releases the underlying client.
func (r *Repository) Close() error {
	return r.client.Close()
}

// CreateStatement ensures the statement row exists with
// status=processing. A retried statement reuses its row, clearing any
// previous failure detail. The row is written with DML, never the
// streaming inserter, so the later status updates are legal while the
// row is fresh.
func (r *Repository) CreateStatement(ctx context.Context, statementID string) error {
	q := r.client.Query(fmt.Sprintf(`
		MERGE %s.%s t
		USING (SELECT @statement_id AS statement_id) s
		ON t.statement_id = s.statement_id
		WHEN MATCHED THEN
			UPDATE SET status = @status, status_detail = NULL
		WHEN NOT MATCHED THEN
			INSERT (statement_id, status, created_ts)
			VALUES (@statement_id, @status, @created_ts)
	`, r.dataset, statementsTable))
	q.Parameters = []bigquery.QueryParameter{
		{Name: "statement_id", Value: statementID},
		{Name: "status", Value: string(statement.StatusProcessing)},
		{Name: "created_ts", Value: time.Now()},
	}

	return r.runDML(ctx, q, "CreateStatement")
}

// UpdateStatementExtraction fills the extraction columns of an existing
// statement row. Status is untouched; the pipeline owns the lifecycle.
func (r *Repository) UpdateStatementExtraction(ctx context.Context, row *StatementRow) error {
	q := r.client.Query(fmt.Sprintf(`
		UPDATE %s.%s
		SET bank_id = @bank_id,
		    customer_name = @customer_name,
		    card_type = @card_type,
		    card_last_four = @card_last_four,
		    period_start = @period_start,
		    period_end = @period_end,
		    statement_date = @statement_date,
		    due_date = @due_date,
		    minimum_payment = @minimum_payment,
		    pay_to_avoid_interest = @pay_to_avoid_interest,
		    total_balance = @total_balance,
		    previous_balance = @previous_balance,
		    credit_limit = @credit_limit,
		    available_credit = @available_credit,
		    total_transactions = @total_transactions,
		    total_credits = @total_credits,
		    total_debits = @total_debits,
		    method = @method,
		    confidence = @confidence,
		    rule_version = @rule_version
		WHERE statement_id = @statement_id
	`, r.dataset, statementsTable))
	q.Parameters = []bigquery.QueryParameter{
		{Name: "bank_id", Value: row.BankID},
		{Name: "customer_name", Value: row.CustomerName},
		{Name: "card_type", Value: row.CardType},
		{Name: "card_last_four", Value: row.CardLastFour},
		{Name: "period_start", Value: row.PeriodStart},
		{Name: "period_end", Value: row.PeriodEnd},
		{Name: "statement_date", Value: row.StatementDate},
		{Name: "due_date", Value: row.DueDate},
		{Name: "minimum_payment", Value: row.MinimumPayment},
		{Name: "pay_to_avoid_interest", Value: row.PayToAvoidInterest},
		{Name: "total_balance", Value: row.TotalBalance},
		{Name: "previous_balance", Value: row.PreviousBalance},
		{Name: "credit_limit", Value: row.CreditLimit},
		{Name: "available_credit", Value: row.AvailableCredit},
		{Name: "total_transactions", Value: row.TotalTransactions},
		{Name: "total_credits", Value: row.TotalCredits},
		{Name: "total_debits", Value: row.TotalDebits},
		{Name: "method", Value: row.Method},
		{Name: "confidence", Value: row.Confidence},
		{Name: "rule_version", Value: row.RuleVersion},
		{Name: "statement_id", Value: row.StatementID},
	}

	return r.runDML(ctx, q, "UpdateStatementExtraction")
}

// InsertTransactions inserts a batch of TransactionRow.
func (r *Repository) InsertTransactions(ctx context.Context, rows []*TransactionRow) error {
	if len(rows) == 0 {
		return nil
	}
	inserter := r.client.Dataset(r.dataset).Table(transactionsTable).Inserter()
	if err := inserter.Put(ctx, rows); err != nil {
		return fmt.Errorf("InsertTransactions: inserting rows: %w", err)
	}
	return nil
}

// UpdateStatementStatus moves a statement through its lifecycle
// (pending -> processing -> processed | failed). detail carries the
// failure diagnostics for failed statements.
func (r *Repository) UpdateStatementStatus(ctx context.Context, statementID string, status statement.Status, detail string) error {
	const maxDetailLen = 2000
	if len(detail) > maxDetailLen {
		detail = detail[:maxDetailLen]
	}

	q := r.client.Query(fmt.Sprintf(`
		UPDATE %s.%s
		SET status = @status,
		    status_detail = @status_detail
		WHERE statement_id = @statement_id
	`, r.dataset, statementsTable))
	q.Parameters = []bigquery.QueryParameter{
		{Name: "status", Value: string(status)},
		{Name: "status_detail", Value: detail},
		{Name: "statement_id", Value: statementID},
	}

	return r.runDML(ctx, q, "UpdateStatementStatus")
}

// StartProcessingRun inserts a new run with status=RUNNING and returns
// the generated run_id.
func (r *Repository) StartProcessingRun(ctx context.Context, statementID string) (string, error) {
	row := ProcessingRunRow{
		RunID:       uuid.NewString(),
		StatementID: statementID,
		StartedTS:   time.Now(),
		Status:      RunStatusRunning,
	}

	q := r.client.Query(fmt.Sprintf(`
		INSERT %s.%s (run_id, statement_id, started_ts, status)
		VALUES (@run_id, @statement_id, @started_ts, @status)
	`, r.dataset, processingRunsTable))
	q.Parameters = []bigquery.QueryParameter{
		{Name: "run_id", Value: row.RunID},
		{Name: "statement_id", Value: row.StatementID},
		{Name: "started_ts", Value: row.StartedTS},
		{Name: "status", Value: row.Status},
	}

	if err := r.runDML(ctx, q, "StartProcessingRun"); err != nil {
		return "", err
	}
	return row.RunID, nil
}

// MarkProcessingRunSucceeded sets status=SUCCESS, finished_ts and the
// extraction method on a run.
func (r *Repository) MarkProcessingRunSucceeded(ctx context.Context, runID string, method statement.Method) error {
	q := r.client.Query(fmt.Sprintf(`
		UPDATE %s.%s
		SET status = @status,
		    finished_ts = @finished_ts,
		    method = @method
		WHERE run_id = @run_id
	`, r.dataset, processingRunsTable))
	q.Parameters = []bigquery.QueryParameter{
		{Name: "status", Value: RunStatusSuccess},
		{Name: "finished_ts", Value: time.Now()},
		{Name: "method", Value: string(method)},
		{Name: "run_id", Value: runID},
	}

	return r.runDML(ctx, q, "MarkProcessingRunSucceeded")
}

// MarkProcessingRunFailed sets status=FAILED, finished_ts and the error
// message. Best effort: the pipeline is already failing when this runs,
// so problems are logged instead of returned.
func (r *Repository) MarkProcessingRunFailed(ctx context.Context, runID string, runErr error) {
	log := logger.FromContext(ctx)

	errMsg := ""
	if runErr != nil {
		errMsg = runErr.Error()
		const maxLen = 2000
		if len(errMsg) > maxLen {
			errMsg = errMsg[:maxLen]
		}
	}

	q := r.client.Query(fmt.Sprintf(`
		UPDATE %s.%s
		SET status = @status,
		    finished_ts = @finished_ts,
		    error_message = @error_message
		WHERE run_id = @run_id
	`, r.dataset, processingRunsTable))
	q.Parameters = []bigquery.QueryParameter{
		{Name: "status", Value: RunStatusFailed},
		{Name: "finished_ts", Value: time.Now()},
		{Name: "error_message", Value: errMsg},
		{Name: "run_id", Value: runID},
	}

	if err := r.runDML(ctx, q, "MarkProcessingRunFailed"); err != nil {
		log.Error().
			Err(err).
			Str("run_id", runID).
			Msg("MarkProcessingRunFailed: update error")
	}
}

// QueryCategoryTotals aggregates a processed statement's transactions
// per category.
func (r *Repository) QueryCategoryTotals(ctx context.Context, statementID string) ([]CategoryTotalRow, error) {
	q := r.client.Query(fmt.Sprintf(`
		SELECT
			category,
			COUNT(*) AS tx_count,
			SUM(amount) AS total
		FROM %s.%s
		WHERE statement_id = @statement_id
		GROUP BY category
		ORDER BY category
	`, r.dataset, transactionsTable))
	q.Parameters = []bigquery.QueryParameter{
		{Name: "statement_id", Value: statementID},
	}

	it, err := q.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("QueryCategoryTotals: query read: %w", err)
	}

	var rows []CategoryTotalRow
	for {
		var row CategoryTotalRow
		err := it.Next(&row)
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("QueryCategoryTotals: iter next: %w", err)
		}
		rows = append(rows, row)
	}

	return rows, nil
}

// runDML runs a parameterized DML query and waits for completion.
func (r *Repository) runDML(ctx context.Context, q *bigquery.Query, op string) error {
	job, err := q.Run(ctx)
	if err != nil {
		return fmt.Errorf("%s: running query: %w", op, err)
	}

	status, err := job.Wait(ctx)
	if err != nil {
		return fmt.Errorf("%s: waiting for job: %w", op, err)
	}
	if err := status.Err(); err != nil {
		return fmt.Errorf("%s: job error: %w", op, err)
	}
	return nil
}
