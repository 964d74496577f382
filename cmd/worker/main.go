package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/statementsense/statement-pipeline/internal/categorize"
	"github.com/statementsense/statement-pipeline/internal/config"
	"github.com/statementsense/statement-pipeline/internal/extract"
	"github.com/statementsense/statement-pipeline/internal/inference"
	infra "github.com/statementsense/statement-pipeline/internal/infra/bigquery"
	"github.com/statementsense/statement-pipeline/internal/jobs"
	"github.com/statementsense/statement-pipeline/internal/jobs/inmemory"
	"github.com/statementsense/statement-pipeline/internal/logger"
	"github.com/statementsense/statement-pipeline/internal/pagestore"
	"github.com/statementsense/statement-pipeline/internal/pipeline"
)

// manifestEntry is one statement to process, as listed in the -jobs file.
type manifestEntry struct {
	StatementID string `json:"statement_id"`
	PagesURI    string `json:"pages_uri"`
}

func main() {
	// Initialize logger
	log := logger.New()

	jobsFile := flag.String("jobs", "", "Path to a JSON manifest of statements to enqueue on startup")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}
	if cfg.ProjectID == "" {
		log.Fatal().Msg("GCP_PROJECT_ID is required")
	}

	// Create context that cancels on interrupt
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	ctx = logger.WithContext(ctx, log)

	repo, err := infra.NewRepository(ctx, cfg.ProjectID, cfg.Dataset)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize BigQuery repository")
	}
	defer repo.Close()

	deps := buildDeps(cfg, repo)

	// Initialize job store and queue
	// In production, this would be replaced with Cloud Tasks or Pub/Sub
	jobStore := inmemory.NewStore()
	jobQueue := inmemory.NewQueue(100, cfg.WorkerCount, jobStore)
	deps.Claims = jobStore

	log.Info().Msg("Starting worker service")

	// Create job handler that runs the statement pipeline
	handler := func(ctx context.Context, job jobs.Job) error {
		processJob, ok := job.(*jobs.ProcessStatementJob)
		if !ok {
			return fmt.Errorf("unexpected job type: %T", job)
		}

		jobLog := logger.WithStatement(log, processJob.StatementID)
		jobLog.Info().
			Str("job_id", processJob.JobID).
			Str("pages_uri", processJob.PagesURI).
			Msg("Processing statement job")

		err := pipeline.Process(logger.WithContext(ctx, jobLog), deps, processJob.StatementID, processJob.PagesURI)
		if err != nil {
			jobLog.Error().
				Err(err).
				Str("job_id", processJob.JobID).
				Msg("Pipeline execution failed")
			return err
		}

		jobLog.Info().
			Str("job_id", processJob.JobID).
			Msg("Pipeline execution completed successfully")

		return nil
	}

	// Start consuming jobs
	if err := jobQueue.Start(ctx, handler); err != nil {
		log.Fatal().Err(err).Msg("Failed to start job consumer")
	}

	// Enqueue the startup manifest, if any
	if *jobsFile != "" {
		entries, err := loadManifest(*jobsFile)
		if err != nil {
			log.Fatal().Err(err).Str("path", *jobsFile).Msg("Failed to load jobs manifest")
		}
		for _, e := range entries {
			job := &jobs.ProcessStatementJob{
				StatementID: e.StatementID,
				PagesURI:    e.PagesURI,
				MaxRetries:  cfg.MaxRetries,
			}
			if err := jobQueue.PublishProcessStatement(ctx, job); err != nil {
				log.Error().Err(err).Str("statement_id", e.StatementID).Msg("Failed to enqueue statement")
			}
		}
		log.Info().Int("count", len(entries)).Msg("Enqueued manifest statements")
	}

	log.Info().Msg("Worker service started, waiting for jobs...")

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down worker service...")

	// Cancel context to stop workers
	cancel()

	// Create shutdown context with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	// Stop the queue and wait for in-flight jobs
	if err := jobQueue.Stop(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Error during graceful shutdown")
	}

	log.Info().Msg("Worker service exited")
}

// buildDeps wires the pipeline collaborators from configuration.
func buildDeps(cfg *config.Config, repo infra.StatementRepository) pipeline.Deps {
	model := inference.NewClient(cfg.GeminiModel, cfg.InferenceTimeout, cfg.InferenceRetries)

	extractor := extract.NewOrchestrator(model, extract.Options{
		AcceptThreshold: cfg.AcceptThreshold,
		FallbackCap:     cfg.FallbackCap,
		Tolerance:       cfg.ReconcileTolerance,
	})

	rules := categorize.DefaultRuleSet()
	if cfg.RulesPath != "" {
		loaded, err := categorize.LoadRuleSet(cfg.RulesPath)
		if err != nil {
			log := logger.New()
			log.Fatal().Err(err).Str("path", cfg.RulesPath).Msg("Failed to load category rules")
		}
		rules = loaded
	}
	categorizer := categorize.NewOrchestrator(categorize.NewCategorizer(rules), model)

	return pipeline.Deps{
		Repo:        repo,
		Pages:       pagestore.NewGCSLoader(),
		Extractor:   extractor,
		Categorizer: categorizer,
		RuleVersion: rules.Version,
	}
}

func loadManifest(path string) ([]manifestEntry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var entries []manifestEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("parse manifest: %w", err)
	}
	return entries, nil
}
