package bigquery

import (
	"context"

	"github.com/statementsense/statement-pipeline/internal/statement"
)

// StatementRepository provides an interface for statement-related
// database operations. The pipeline depends on this interface rather
// than the concrete Repository so tests can substitute mocks.
type StatementRepository interface {
	// CreateStatement ensures the statement row exists with
	// status=processing, clearing any previous failure detail.
	CreateStatement(ctx context.Context, statementID string) error

	// UpdateStatementExtraction fills the extraction columns of an
	// existing statement row.
	UpdateStatementExtraction(ctx context.Context, row *StatementRow) error

	// InsertTransactions inserts a batch of TransactionRow.
	InsertTransactions(ctx context.Context, rows []*TransactionRow) error

	// UpdateStatementStatus moves a statement through its lifecycle.
	UpdateStatementStatus(ctx context.Context, statementID string, status statement.Status, detail string) error

	// StartProcessingRun inserts a new run with status=RUNNING and
	// returns the run_id.
	StartProcessingRun(ctx context.Context, statementID string) (string, error)

	// MarkProcessingRunSucceeded sets status=SUCCESS and finished_ts.
	MarkProcessingRunSucceeded(ctx context.Context, runID string, method statement.Method) error

	// MarkProcessingRunFailed sets status=FAILED, finished_ts and the
	// error message. Best effort.
	MarkProcessingRunFailed(ctx context.Context, runID string, runErr error)

	// QueryCategoryTotals aggregates a statement's transactions per
	// category.
	QueryCategoryTotals(ctx context.Context, statementID string) ([]CategoryTotalRow, error)
}

// Ensure Repository implements StatementRepository.
var _ StatementRepository = (*Repository)(nil)
