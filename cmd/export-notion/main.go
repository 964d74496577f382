// Command export-notion publishes one processed statement's per-category
// totals to a Notion summary database.
package main

import (
	"context"
	"flag"
	"time"

	"github.com/statementsense/statement-pipeline/internal/config"
	infra "github.com/statementsense/statement-pipeline/internal/infra/bigquery"
	"github.com/statementsense/statement-pipeline/internal/logger"
	"github.com/statementsense/statement-pipeline/internal/notionexport"
)

func main() {
	// Initialize structured logger
	log := logger.New()

	// Parse CLI flags
	statementID := flag.String("statement-id", "", "Statement ID to export (required)")
	notionToken := flag.String("notion-token", "", "Notion API token (default: NOTION_TOKEN)")
	notionDBID := flag.String("notion-db-id", "", "Notion summary database ID (default: NOTION_SUMMARY_DB)")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	if *notionToken == "" {
		*notionToken = cfg.NotionToken
	}
	if *notionDBID == "" {
		*notionDBID = cfg.NotionSummaryDB
	}

	// Validate required inputs
	if *statementID == "" {
		log.Fatal().Msg("Error: --statement-id is required")
	}
	if *notionToken == "" {
		log.Fatal().Msg("Error: --notion-token or NOTION_TOKEN is required")
	}
	if *notionDBID == "" {
		log.Fatal().Msg("Error: --notion-db-id or NOTION_SUMMARY_DB is required")
	}
	if cfg.ProjectID == "" {
		log.Fatal().Msg("Error: GCP_PROJECT_ID is required")
	}

	// Create context with timeout so CLI doesn't hang
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()
	ctx = logger.WithContext(ctx, log)

	log.Info().
		Str("statement_id", *statementID).
		Msg("Starting Notion export")

	repo, err := infra.NewRepository(ctx, cfg.ProjectID, cfg.Dataset)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize BigQuery repository")
	}
	defer repo.Close()

	totals, err := repo.QueryCategoryTotals(ctx, *statementID)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to query category totals")
	}
	if len(totals) == 0 {
		log.Warn().Str("statement_id", *statementID).Msg("No transactions found for statement; nothing to export")
		return
	}

	notionClient := notionexport.NewNotionClient(*notionToken)

	if err := notionexport.ExportCategorySummary(ctx, notionClient, *notionDBID, *statementID, totals); err != nil {
		log.Fatal().Err(err).Msg("Export failed")
	}

	log.Info().Int("categories", len(totals)).Msg("Notion export completed")
}
