package categorize

import (
	"strings"

	"github.com/statementsense/statement-pipeline/internal/textnorm"
)

// Assignment is one categorization decision for one transaction,
// identified by its index in the statement's transaction sequence.
type Assignment struct {
	Index      int      `json:"index"`
	Category   Category `json:"category"`
	Confidence float64  `json:"confidence"`
	Tier       Tier     `json:"tier"`
}

// Tier confidences are fixed by construction: an exact merchant hit is
// certain, a keyword pattern is strong but generic.
const (
	exactConfidence   = 1.0
	patternConfidence = 0.8
)

// Categorizer runs the deterministic tiers (exact lookup, then ordered
// patterns) against a rule set. It holds no mutable state and is safe
// for concurrent use.
type Categorizer struct {
	rules *RuleSet
}

func NewCategorizer(rules *RuleSet) *Categorizer {
	if rules == nil {
		rules = DefaultRuleSet()
	}
	return &Categorizer{rules: rules}
}

// RuleVersion returns the version of the rule set in use.
func (c *Categorizer) RuleVersion() string {
	return c.rules.Version
}

// Lookup tries the deterministic tiers for one description. The exact
// tier probes the full folded description, the cleaned merchant core and
// each individual token, so "OXXO ROMA NORTE 442" still hits the "OXXO"
// entry without any scanning. The pattern tier then tries the rules in
// declaration order. ok is false when neither tier decides.
func (c *Categorizer) Lookup(description string) (Assignment, bool) {
	folded := textnorm.FoldCompact(description)
	if folded == "" {
		return Assignment{}, false
	}

	if cat, ok := c.rules.Exact[folded]; ok {
		return Assignment{Category: cat, Confidence: exactConfidence, Tier: TierExact}, true
	}
	if merchant := CleanMerchant(folded); merchant != "" {
		if cat, ok := c.rules.Exact[merchant]; ok {
			return Assignment{Category: cat, Confidence: exactConfidence, Tier: TierExact}, true
		}
	}
	for _, token := range strings.Fields(folded) {
		if cat, ok := c.rules.Exact[token]; ok {
			return Assignment{Category: cat, Confidence: exactConfidence, Tier: TierExact}, true
		}
	}

	for _, rule := range c.rules.Patterns {
		if rule.re.MatchString(folded) {
			return Assignment{Category: rule.Category, Confidence: patternConfidence, Tier: TierPattern}, true
		}
	}

	return Assignment{}, false
}
