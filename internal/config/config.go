package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config carries every tunable of the pipeline. Values come from the
// environment, optionally seeded from a .env file in the working
// directory.
type Config struct {
	// GCP
	ProjectID string
	Dataset   string
	Bucket    string

	// Extraction
	AcceptThreshold    float64
	FallbackCap        float64
	ReconcileTolerance float64

	// Inference
	GeminiModel      string
	InferenceTimeout time.Duration
	InferenceRetries int

	// Categorization
	RulesPath string

	// Notion export
	NotionToken     string
	NotionSummaryDB string

	// Worker
	WorkerCount int
	MaxRetries  int
}

// Load reads configuration from the environment. A missing .env file is
// fine; a malformed numeric variable is not.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		ProjectID:       os.Getenv("GCP_PROJECT_ID"),
		Dataset:         getenv("BQ_DATASET", "statements"),
		Bucket:          os.Getenv("GCS_BUCKET"),
		GeminiModel:     getenv("GEMINI_MODEL", "gemini-2.5-flash"),
		RulesPath:       os.Getenv("CATEGORY_RULES_PATH"),
		NotionToken:     os.Getenv("NOTION_TOKEN"),
		NotionSummaryDB: os.Getenv("NOTION_SUMMARY_DB"),
	}

	var err error
	if cfg.AcceptThreshold, err = getfloat("ACCEPT_THRESHOLD", 0.85); err != nil {
		return nil, err
	}
	if cfg.FallbackCap, err = getfloat("FALLBACK_CONFIDENCE_CAP", 0.80); err != nil {
		return nil, err
	}
	if cfg.ReconcileTolerance, err = getfloat("RECONCILE_TOLERANCE", 0.01); err != nil {
		return nil, err
	}
	if cfg.InferenceTimeout, err = getduration("INFERENCE_TIMEOUT", 60*time.Second); err != nil {
		return nil, err
	}
	if cfg.InferenceRetries, err = getint("INFERENCE_RETRIES", 2); err != nil {
		return nil, err
	}
	if cfg.WorkerCount, err = getint("WORKER_COUNT", 2); err != nil {
		return nil, err
	}
	if cfg.MaxRetries, err = getint("JOB_MAX_RETRIES", 3); err != nil {
		return nil, err
	}

	return cfg, nil
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getfloat(key string, fallback float64) (float64, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("config: invalid %s=%q: %w", key, v, err)
	}
	return f, nil
}

func getint(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("config: invalid %s=%q: %w", key, v, err)
	}
	return n, nil
}

func getduration(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("config: invalid %s=%q: %w", key, v, err)
	}
	return d, nil
}
