package inference

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"google.golang.org/genai"

	"github.com/statementsense/statement-pipeline/internal/categorize"
	"github.com/statementsense/statement-pipeline/internal/logger"
	"github.com/statementsense/statement-pipeline/internal/statement"
)

const (
	// DefaultModelName is the Gemini model used for fallback extraction
	// and batch categorization.
	DefaultModelName = "gemini-2.5-flash"

	defaultTimeout = 60 * time.Second

	// maxTransportRetries bounds retries of transport-level failures.
	// Malformed model output is never retried: the same prompt tends to
	// produce the same malformation, and the caller's degradation path
	// is cheaper than a second model call.
	maxTransportRetries = 2
)

// Client is the Gemini-backed inference collaborator. It implements the
// extraction-fallback and categorization contracts of its consumers.
type Client struct {
	model   string
	timeout time.Duration
	retries int
}

// NewClient builds a Client. Zero arguments select the defaults.
func NewClient(model string, timeout time.Duration, retries int) *Client {
	if model == "" {
		model = DefaultModelName
	}
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	if retries < 0 {
		retries = 0
	} else if retries == 0 {
		retries = maxTransportRetries
	}
	return &Client{model: model, timeout: timeout, retries: retries}
}

// ExtractStatement asks the model to extract a whole statement from its
// segmented text. Returned errors are either transport failures (after
// retries) or *SchemaError for unusable output.
func (c *Client) ExtractStatement(ctx context.Context, sections []statement.Section, bankID string) (*statement.Outcome, error) {
	prompt := buildExtractionPrompt(sections, bankID)

	rawText, err := c.generate(ctx, prompt)
	if err != nil {
		return nil, fmt.Errorf("fallback extraction: %w", err)
	}

	var parsed map[string]interface{}
	if err := json.Unmarshal([]byte(cleanModelJSON(rawText)), &parsed); err != nil {
		return nil, &SchemaError{Field: "(root)", Detail: fmt.Sprintf("invalid JSON: %v", err)}
	}

	return transformOutcome(parsed)
}

// CategorizeBatch asks the model to categorize every request in one
// call. The result slice is aligned with reqs; per-item problems leave
// that slot empty rather than failing the batch.
func (c *Client) CategorizeBatch(ctx context.Context, reqs []categorize.InferenceRequest, categories []categorize.Category) ([]categorize.InferenceResult, error) {
	if len(reqs) == 0 {
		return nil, nil
	}
	prompt := buildCategorizationPrompt(reqs, categories)

	rawText, err := c.generate(ctx, prompt)
	if err != nil {
		return nil, fmt.Errorf("batch categorization: %w", err)
	}

	var parsed interface{}
	if err := json.Unmarshal([]byte(cleanModelJSON(rawText)), &parsed); err != nil {
		return nil, &SchemaError{Field: "(root)", Detail: fmt.Sprintf("invalid JSON: %v", err)}
	}

	return transformCategoryResults(parsed, reqs)
}

// generate sends one prompt to the model under the configured timeout,
// retrying transport failures with a short linear backoff.
func (c *Client) generate(ctx context.Context, prompt string) (string, error) {
	log := logger.FromContext(ctx)

	callCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	client, err := genai.NewClient(callCtx, &genai.ClientConfig{
		HTTPOptions: genai.HTTPOptions{APIVersion: "v1"},
	})
	if err != nil {
		return "", fmt.Errorf("create genai client: %w", err)
	}

	contents := []*genai.Content{
		{
			Role:  "user",
			Parts: []*genai.Part{{Text: prompt}},
		},
	}

	var lastErr error
	for attempt := 0; attempt <= c.retries; attempt++ {
		if attempt > 0 {
			select {
			case <-callCtx.Done():
				return "", callCtx.Err()
			case <-time.After(time.Duration(attempt) * 500 * time.Millisecond):
			}
			log.Warn().Int("attempt", attempt).Err(lastErr).Msg("retrying model call")
		}

		resp, err := client.Models.GenerateContent(callCtx, c.model, contents, nil)
		if err != nil {
			lastErr = err
			continue
		}

		rawText := resp.Text()
		if rawText == "" {
			// An empty response is a content problem, not a transport
			// one; retrying the identical prompt rarely helps.
			return "", fmt.Errorf("empty response from model")
		}
		return rawText, nil
	}

	return "", fmt.Errorf("model call failed after %d attempts: %w", c.retries+1, lastErr)
}
