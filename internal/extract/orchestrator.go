package extract

import (
	"context"
	"errors"
	"fmt"

	"github.com/statementsense/statement-pipeline/internal/logger"
	"github.com/statementsense/statement-pipeline/internal/statement"
)

// State is the position of an extraction attempt in its lifecycle. The
// progression is strictly forward:
//
//	START -> TEMPLATE_ATTEMPTED -> ACCEPTED
//	                            -> FALLBACK_TRIGGERED -> FALLBACK_ATTEMPTED -> ACCEPTED
//	                                                                        -> FAILED
type State string

const (
	StateStart             State = "START"
	StateTemplateAttempted State = "TEMPLATE_ATTEMPTED"
	StateAccepted          State = "ACCEPTED"
	StateFallbackTriggered State = "FALLBACK_TRIGGERED"
	StateFallbackAttempted State = "FALLBACK_ATTEMPTED"
	StateFailed            State = "FAILED"
)

// FallbackExtractor is the narrow contract for the model-backed path
// used when template extraction cannot be trusted.
type FallbackExtractor interface {
	ExtractStatement(ctx context.Context, sections []statement.Section, bankID string) (*statement.Outcome, error)
}

// Options tunes acceptance. Zero values are replaced with the defaults.
type Options struct {
	// AcceptThreshold is the minimum validation confidence for an
	// outcome to be accepted. Default 0.85.
	AcceptThreshold float64
	// FallbackCap is the highest confidence a fallback outcome may
	// carry, keeping it distinguishable from a clean template pass.
	// Default 0.80.
	FallbackCap float64
	// Tolerance is the reconciliation tolerance in currency units.
	// Default 0.01.
	Tolerance float64
}

func (o Options) withDefaults() Options {
	if o.AcceptThreshold == 0 {
		o.AcceptThreshold = 0.85
	}
	if o.FallbackCap == 0 {
		o.FallbackCap = 0.80
	}
	if o.Tolerance == 0 {
		o.Tolerance = 0.01
	}
	return o
}

// Orchestrator runs the template-first, fallback-second extraction state
// machine over one statement.
type Orchestrator struct {
	template  *TemplateExtractor
	validator *Validator
	fallback  FallbackExtractor
	opts      Options
}

// NewOrchestrator builds an orchestrator. fallback may be nil, in which
// case a rejected template attempt fails the statement directly.
func NewOrchestrator(fallback FallbackExtractor, opts Options) *Orchestrator {
	opts = opts.withDefaults()
	return &Orchestrator{
		template:  NewTemplateExtractor(),
		validator: NewValidator(opts.Tolerance),
		fallback:  fallback,
		opts:      opts,
	}
}

// Extract processes one statement's pages to an accepted Outcome. On
// terminal failure it returns a *statement.FailedError carrying every
// diagnostic gathered along the way, so a failed statement can never be
// mistaken for an empty successful one. The returned State is the final
// machine state and is FAILED exactly when the error is non-nil.
func (o *Orchestrator) Extract(ctx context.Context, pages []statement.RawPage) (*statement.Outcome, State, error) {
	log := logger.FromContext(ctx)

	sections := Segment(pages)
	bankID := statement.BankUnknown
	if len(pages) > 0 {
		bankID = ClassifyBank(pages[0].Text)
	}
	log.Debug().
		Str("bank_id", bankID).
		Int("pages", len(pages)).
		Int("sections", len(sections)).
		Msg("statement segmented")

	var carried []statement.Issue

	candidate, err := o.template.Extract(pages, sections, bankID)
	if err != nil {
		var structural *statement.StructuralError
		if !errors.As(err, &structural) {
			return nil, StateFailed, fmt.Errorf("template extraction: %w", err)
		}
		carried = append(carried, statement.Issue{Check: "structural", Detail: structural.Reason})
		log.Warn().Str("reason", structural.Reason).Msg("template path aborted, trying fallback")
	} else {
		conf, issues := o.validator.Score(candidate)
		candidate.Confidence = conf
		candidate.Issues = append(candidate.Issues, issues...)

		if conf >= o.opts.AcceptThreshold {
			log.Info().
				Float64("confidence", conf).
				Int("transactions", len(candidate.Transactions)).
				Msg("template extraction accepted")
			return candidate, StateAccepted, nil
		}

		carried = append(carried, candidate.Issues...)
		log.Warn().
			Float64("confidence", conf).
			Float64("threshold", o.opts.AcceptThreshold).
			Msg("template extraction rejected, trying fallback")
	}

	if o.fallback == nil {
		carried = append(carried, statement.Issue{Check: "fallback", Detail: "no fallback extractor configured"})
		return nil, StateFailed, &statement.FailedError{Issues: carried}
	}

	fb, err := o.fallback.ExtractStatement(ctx, sections, bankID)
	if err != nil {
		carried = append(carried, statement.Issue{Check: "fallback", Detail: err.Error()})
		return nil, StateFailed, &statement.FailedError{Issues: carried}
	}

	fb.Method = statement.MethodFallback
	fb.Metadata.BankID = bankID

	// Fallback output goes through the same validator; the model's own
	// confidence is advisory and never raises the result above the cap.
	conf, issues := o.validator.Score(fb)
	fb.Issues = append(fb.Issues, issues...)

	if conf < o.opts.AcceptThreshold {
		carried = append(carried, fb.Issues...)
		carried = append(carried, statement.Issue{
			Check:  "fallback",
			Detail: fmt.Sprintf("fallback validation confidence %.2f below threshold %.2f", conf, o.opts.AcceptThreshold),
		})
		return nil, StateFailed, &statement.FailedError{Issues: carried}
	}

	fb.Confidence = o.opts.FallbackCap
	if fb.Confidence > conf {
		fb.Confidence = conf
	}

	log.Info().
		Float64("confidence", fb.Confidence).
		Int("transactions", len(fb.Transactions)).
		Msg("fallback extraction accepted")
	return fb, StateAccepted, nil
}
