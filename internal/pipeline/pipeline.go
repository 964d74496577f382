// Package pipeline wires extraction, categorization and persistence
// into the end-to-end processing of one statement.
package pipeline

import (
	"context"
	"fmt"
)

// Process runs one statement through the full pipeline. The processing
// claim is held for the whole run and released on every exit path, so
// at most one run per statement ID is ever in flight; a retry of the
// same statement re-claims after this run finishes.
func Process(ctx context.Context, deps Deps, statementID, pagesURI string) error {
	if !deps.Claims.ClaimStatement(statementID) {
		return fmt.Errorf("statement %s is already being processed", statementID)
	}
	defer deps.Claims.ReleaseStatement(statementID)

	state := &PipelineState{
		StatementID: statementID,
		PagesURI:    pagesURI,
	}
	return NewStatementProcessingPipeline(deps).Execute(ctx, state)
}
