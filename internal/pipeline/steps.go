package pipeline

import (
	"context"
	"errors"
	"fmt"

	"github.com/statementsense/statement-pipeline/internal/categorize"
	"github.com/statementsense/statement-pipeline/internal/extract"
	infra "github.com/statementsense/statement-pipeline/internal/infra/bigquery"
	"github.com/statementsense/statement-pipeline/internal/jobs"
	"github.com/statementsense/statement-pipeline/internal/pagestore"
	"github.com/statementsense/statement-pipeline/internal/statement"
)

// PipelineStep represents a single step in the processing pipeline.
type PipelineStep interface {
	Execute(ctx context.Context, state *PipelineState) error
}

// PipelineState holds the shared state across all pipeline steps.
type PipelineState struct {
	StatementID string
	PagesURI    string
	RunID       string
	Pages       []statement.RawPage
	Outcome     *statement.Outcome
	FinalState  extract.State
	Assignments []categorize.Assignment
	Summary     categorize.Summary
}

// Deps bundles the collaborators the steps run against.
type Deps struct {
	Repo        infra.StatementRepository
	Pages       pagestore.Loader
	Extractor   StatementExtractor
	Categorizer TransactionCategorizer
	Claims      jobs.Claimer
	RuleVersion string
}

// markFailure records a terminal failure on both the processing run and
// the statement. Updating is best effort: the run is already failing.
func (d Deps) markFailure(ctx context.Context, state *PipelineState, failErr error) {
	if state.RunID != "" {
		d.Repo.MarkProcessingRunFailed(ctx, state.RunID, failErr)
	}
	_ = d.Repo.UpdateStatementStatus(ctx, state.StatementID, statement.StatusFailed, failErr.Error())
}

// Step 1: CreateStatementStep ensures the statement row exists with
// status=processing before anything else runs, so every later status
// write lands on a real row.
type CreateStatementStep struct{ deps Deps }

func (s *CreateStatementStep) Execute(ctx context.Context, state *PipelineState) error {
	return s.deps.Repo.CreateStatement(ctx, state.StatementID)
}

// Step 2: StartRunStep starts a processing run (status=RUNNING).
type StartRunStep struct{ deps Deps }

func (s *StartRunStep) Execute(ctx context.Context, state *PipelineState) error {
	runID, err := s.deps.Repo.StartProcessingRun(ctx, state.StatementID)
	if err != nil {
		return err
	}
	state.RunID = runID
	return nil
}

// Step 3: LoadPagesStep resolves the pages URI into raw page text.
type LoadPagesStep struct{ deps Deps }

func (s *LoadPagesStep) Execute(ctx context.Context, state *PipelineState) error {
	pages, err := s.deps.Pages.LoadPages(ctx, state.PagesURI)
	if err != nil {
		s.deps.markFailure(ctx, state, err)
		return err
	}
	state.Pages = pages
	return nil
}

// Step 4: ExtractStep runs template-first extraction. A terminal
// extraction failure marks the statement failed with its diagnostics so
// it can never pass as an empty success.
type ExtractStep struct{ deps Deps }

func (s *ExtractStep) Execute(ctx context.Context, state *PipelineState) error {
	outcome, finalState, err := s.deps.Extractor.Extract(ctx, state.Pages)
	state.FinalState = finalState
	if err != nil {
		var failed *statement.FailedError
		if errors.As(err, &failed) {
			s.deps.markFailure(ctx, state, failed)
		} else {
			s.deps.markFailure(ctx, state, err)
		}
		return err
	}
	state.Outcome = outcome
	return nil
}

// Step 5: CategorizeStep assigns a category to every transaction. It
// cannot fail: inference problems degrade to the uncategorized sentinel.
type CategorizeStep struct{ deps Deps }

func (s *CategorizeStep) Execute(ctx context.Context, state *PipelineState) error {
	state.Assignments, state.Summary = s.deps.Categorizer.Run(ctx, state.Outcome.Metadata.BankID, state.Outcome.Transactions)
	return nil
}

// Step 6: PersistStep fills the statement row's extraction columns and
// inserts the transactions. It runs only after extraction and
// categorization both finished, so a cancelled run leaves no partial
// extraction behind.
type PersistStep struct{ deps Deps }

func (s *PersistStep) Execute(ctx context.Context, state *PipelineState) error {
	if err := s.deps.Repo.UpdateStatementExtraction(ctx, statementRow(state, s.deps.RuleVersion)); err != nil {
		s.deps.markFailure(ctx, state, err)
		return err
	}
	if err := s.deps.Repo.InsertTransactions(ctx, transactionRows(state)); err != nil {
		s.deps.markFailure(ctx, state, err)
		return err
	}
	return nil
}

// Step 7: MarkSuccessStep marks the run SUCCESS and the statement
// processed.
type MarkSuccessStep struct{ deps Deps }

func (s *MarkSuccessStep) Execute(ctx context.Context, state *PipelineState) error {
	if err := s.deps.Repo.MarkProcessingRunSucceeded(ctx, state.RunID, state.Outcome.Method); err != nil {
		return err
	}
	return s.deps.Repo.UpdateStatementStatus(ctx, state.StatementID, statement.StatusProcessed, "")
}

// Pipeline executes a sequence of steps in order.
type Pipeline struct {
	steps []PipelineStep
}

// NewPipeline creates a new pipeline with the given steps.
func NewPipeline(steps ...PipelineStep) *Pipeline {
	return &Pipeline{steps: steps}
}

// Execute runs all steps in the pipeline sequentially.
func (p *Pipeline) Execute(ctx context.Context, state *PipelineState) error {
	for i, step := range p.steps {
		if err := step.Execute(ctx, state); err != nil {
			return fmt.Errorf("pipeline step %d failed: %w", i+1, err)
		}
	}
	return nil
}

// NewStatementProcessingPipeline creates the standard 7-step pipeline
// for processing statements.
func NewStatementProcessingPipeline(deps Deps) *Pipeline {
	return NewPipeline(
		&CreateStatementStep{deps},
		&StartRunStep{deps},
		&LoadPagesStep{deps},
		&ExtractStep{deps},
		&CategorizeStep{deps},
		&PersistStep{deps},
		&MarkSuccessStep{deps},
	)
}
