// Command process runs the extraction and categorization pipeline over
// one local pages file and prints the result as JSON. It talks to no
// database, which makes it the quickest way to inspect what a
// statement extracts to.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"os"
	"time"

	"github.com/statementsense/statement-pipeline/internal/categorize"
	"github.com/statementsense/statement-pipeline/internal/config"
	"github.com/statementsense/statement-pipeline/internal/extract"
	"github.com/statementsense/statement-pipeline/internal/inference"
	"github.com/statementsense/statement-pipeline/internal/logger"
	"github.com/statementsense/statement-pipeline/internal/pagestore"
	"github.com/statementsense/statement-pipeline/internal/statement"
)

// result is the printed output shape.
type result struct {
	Outcome     *statement.Outcome      `json:"outcome"`
	Assignments []categorize.Assignment `json:"assignments"`
	Summary     categorize.Summary      `json:"summary"`
}

func main() {
	log := logger.New()

	pagesPath := flag.String("pages", "", "Path to a JSON pages file (required)")
	rulesPath := flag.String("rules", "", "Path to a YAML category rule file (default: built-in rules)")
	offline := flag.Bool("offline", false, "Disable model calls; rejected template extractions fail, deterministic misses stay uncategorized")
	flag.Parse()

	if *pagesPath == "" {
		log.Fatal().Msg("Error: --pages is required")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()
	ctx = logger.WithContext(ctx, log)

	pages, err := pagestore.NewLocalLoader().LoadPages(ctx, *pagesPath)
	if err != nil {
		log.Fatal().Err(err).Str("path", *pagesPath).Msg("Failed to load pages")
	}

	var model *inference.Client
	if !*offline {
		model = inference.NewClient(cfg.GeminiModel, cfg.InferenceTimeout, cfg.InferenceRetries)
	}

	var fallback extract.FallbackExtractor
	var tier3 categorize.InferenceCategorizer
	if model != nil {
		fallback = model
		tier3 = model
	}

	extractor := extract.NewOrchestrator(fallback, extract.Options{
		AcceptThreshold: cfg.AcceptThreshold,
		FallbackCap:     cfg.FallbackCap,
		Tolerance:       cfg.ReconcileTolerance,
	})

	outcome, _, err := extractor.Extract(ctx, pages)
	if err != nil {
		log.Fatal().Err(err).Msg("Extraction failed")
	}

	rules := categorize.DefaultRuleSet()
	if *rulesPath != "" {
		rules, err = categorize.LoadRuleSet(*rulesPath)
		if err != nil {
			log.Fatal().Err(err).Str("path", *rulesPath).Msg("Failed to load category rules")
		}
	}

	assignments, summary := categorize.NewOrchestrator(categorize.NewCategorizer(rules), tier3).
		Run(ctx, outcome.Metadata.BankID, outcome.Transactions)

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(result{Outcome: outcome, Assignments: assignments, Summary: summary}); err != nil {
		log.Fatal().Err(err).Msg("Failed to encode result")
	}
}
