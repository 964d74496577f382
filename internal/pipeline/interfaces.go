package pipeline

import (
	"context"

	"github.com/statementsense/statement-pipeline/internal/categorize"
	"github.com/statementsense/statement-pipeline/internal/extract"
	"github.com/statementsense/statement-pipeline/internal/statement"
)

// StatementExtractor turns raw pages into an accepted extraction
// outcome. Implemented by extract.Orchestrator.
type StatementExtractor interface {
	Extract(ctx context.Context, pages []statement.RawPage) (*statement.Outcome, extract.State, error)
}

// TransactionCategorizer assigns a category to every transaction of a
// statement. Implemented by categorize.Orchestrator.
type TransactionCategorizer interface {
	Run(ctx context.Context, bankID string, txs []statement.Transaction) ([]categorize.Assignment, categorize.Summary)
}
