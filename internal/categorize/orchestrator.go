package categorize

import (
	"context"

	"github.com/statementsense/statement-pipeline/internal/logger"
	"github.com/statementsense/statement-pipeline/internal/statement"
)

// InferenceRequest is one transaction the deterministic tiers could not
// place, keyed by its index in the statement's transaction sequence.
type InferenceRequest struct {
	Index       int
	Description string
	Amount      float64
	BankID      string
}

// InferenceResult is the model's answer for one request, in request
// order. An empty Category means the model produced nothing usable for
// that item.
type InferenceResult struct {
	Category   string
	Confidence float64
}

// InferenceCategorizer is the contract for the model-backed tier. One
// call covers a whole statement's residue; implementations must return
// one result per request (empty on per-item failure) so a single bad
// item never fails the batch.
type InferenceCategorizer interface {
	CategorizeBatch(ctx context.Context, reqs []InferenceRequest, categories []Category) ([]InferenceResult, error)
}

// CategoryStat aggregates one category over a statement.
type CategoryStat struct {
	Count int     `json:"count"`
	Total float64 `json:"total"`
}

// Summary maps each category present in a statement to its aggregate.
type Summary map[Category]CategoryStat

// Orchestrator assigns a category to every transaction of a statement:
// deterministic tiers first, then one batched inference call for the
// remainder. Every transaction ends with an assignment; failures
// degrade to the uncategorized sentinel, never to an error.
type Orchestrator struct {
	categorizer *Categorizer
	inference   InferenceCategorizer
}

// NewOrchestrator builds an orchestrator. inference may be nil, in which
// case deterministic misses go straight to uncategorized.
func NewOrchestrator(categorizer *Categorizer, inference InferenceCategorizer) *Orchestrator {
	return &Orchestrator{categorizer: categorizer, inference: inference}
}

// Run categorizes all transactions of one statement and returns the
// per-transaction assignments (indexed like txs) plus the per-category
// summary.
func (o *Orchestrator) Run(ctx context.Context, bankID string, txs []statement.Transaction) ([]Assignment, Summary) {
	log := logger.FromContext(ctx)

	assignments := make([]Assignment, len(txs))
	var pending []InferenceRequest

	for i, tx := range txs {
		a, ok := o.categorizer.Lookup(tx.Description)
		if ok {
			a.Index = i
			assignments[i] = a
			continue
		}
		assignments[i] = Assignment{Index: i, Category: CategoryUncategorized, Confidence: 0, Tier: TierInference}
		pending = append(pending, InferenceRequest{
			Index:       i,
			Description: tx.Description,
			Amount:      tx.Amount,
			BankID:      bankID,
		})
	}

	if len(pending) > 0 && o.inference != nil {
		o.runInference(ctx, pending, assignments)
	}

	log.Info().
		Int("transactions", len(txs)).
		Int("inference_candidates", len(pending)).
		Msg("categorization complete")

	return assignments, summarize(txs, assignments)
}

// runInference issues the single batched model call and folds valid
// answers back into the assignments. Batch-level failure leaves every
// pending item on the sentinel; an out-of-vocabulary answer does the
// same for its item only.
func (o *Orchestrator) runInference(ctx context.Context, pending []InferenceRequest, assignments []Assignment) {
	log := logger.FromContext(ctx)

	results, err := o.inference.CategorizeBatch(ctx, pending, Categories())
	if err != nil {
		log.Warn().Err(err).Int("pending", len(pending)).Msg("inference categorization failed, leaving batch uncategorized")
		return
	}

	for i, req := range pending {
		if i >= len(results) {
			break
		}
		res := results[i]
		cat, ok := ValidCategory(res.Category)
		if !ok {
			if res.Category != "" {
				log.Warn().Str("category", res.Category).Str("description", req.Description).Msg("model returned out-of-vocabulary category")
			}
			continue
		}
		conf := res.Confidence
		if conf < 0 {
			conf = 0
		}
		if conf > 1 {
			conf = 1
		}
		assignments[req.Index] = Assignment{Index: req.Index, Category: cat, Confidence: conf, Tier: TierInference}
	}
}

func summarize(txs []statement.Transaction, assignments []Assignment) Summary {
	summary := make(Summary)
	for i, a := range assignments {
		stat := summary[a.Category]
		stat.Count++
		stat.Total += txs[i].Amount
		summary[a.Category] = stat
	}
	return summary
}
