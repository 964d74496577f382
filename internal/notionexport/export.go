// Package notionexport publishes per-statement category summaries to a
// Notion database for review.
package notionexport

import (
	"context"
	"fmt"

	"github.com/jomei/notionapi"

	infra "github.com/statementsense/statement-pipeline/internal/infra/bigquery"
	"github.com/statementsense/statement-pipeline/internal/logger"
)

// ExportCategorySummary publishes one statement's per-category totals.
// The export is idempotent per statement: existing summary pages for
// the statement are archived first, then recreated from the current
// aggregates.
func ExportCategorySummary(ctx context.Context, notionClient NotionService, notionDBID, statementID string, totals []infra.CategoryTotalRow) error {
	log := logger.FromContext(ctx)

	log.Info().
		Str("statement_id", statementID).
		Int("categories", len(totals)).
		Msg("Starting category summary export to Notion")

	existing, err := queryStatementPages(ctx, notionClient, notionDBID, statementID)
	if err != nil {
		return fmt.Errorf("failed to query existing summary pages: %w", err)
	}

	archived := 0
	for _, page := range existing {
		// Archive only pages that actually carry this statement's ID;
		// a page with a missing or foreign property is left alone.
		if extractStatementID(page) != statementID {
			log.Warn().
				Str("page_id", string(page.ID)).
				Msg("Query returned a page for another statement; skipping")
			continue
		}
		if err := notionClient.DeletePage(ctx, string(page.ID)); err != nil {
			log.Warn().
				Err(err).
				Str("page_id", string(page.ID)).
				Msg("Failed to archive stale summary page")
			continue
		}
		archived++
	}
	if archived > 0 {
		log.Info().Int("archived", archived).Msg("Archived stale summary pages")
	}

	for _, row := range totals {
		props := CategoryTotalToNotionProperties(statementID, row)
		if _, err := notionClient.CreatePage(ctx, notionDBID, props); err != nil {
			return fmt.Errorf("failed to create summary page for %s: %w", row.Category, err)
		}
		log.Info().
			Str("category", row.Category).
			Int64("count", row.Count).
			Float64("total", row.Total).
			Msg("Created summary page")
	}

	return nil
}

// queryStatementPages pages through the summary database collecting
// every page belonging to the statement.
func queryStatementPages(ctx context.Context, notionClient NotionService, notionDBID, statementID string) ([]notionapi.Page, error) {
	var pages []notionapi.Page

	req := &notionapi.DatabaseQueryRequest{
		Filter: notionapi.PropertyFilter{
			Property: "Statement ID",
			RichText: &notionapi.TextFilterCondition{
				Equals: statementID,
			},
		},
	}

	for {
		resp, err := notionClient.QueryDatabase(ctx, notionDBID, req)
		if err != nil {
			return nil, err
		}
		pages = append(pages, resp.Results...)

		if !resp.HasMore {
			return pages, nil
		}
		req.StartCursor = notionapi.Cursor(resp.NextCursor)
	}
}
