package categorize

import (
	"fmt"
	"os"
	"regexp"

	"gopkg.in/yaml.v3"

	"github.com/statementsense/statement-pipeline/internal/textnorm"
)

// Category is the closed spending-category vocabulary. Every persisted
// transaction carries exactly one of these values; free-form category
// strings never enter the system.
type Category string

const (
	CategoryFood          Category = "alimentacion"
	CategoryFuel          Category = "gasolineras"
	CategoryServices      Category = "servicios"
	CategoryHealth        Category = "salud"
	CategoryTransport     Category = "transporte"
	CategoryEntertainment Category = "entretenimiento"
	CategoryClothing      Category = "ropa"
	CategoryEducation     Category = "educacion"
	CategoryTransfers     Category = "transferencias"
	CategoryInsurance     Category = "seguros"
	CategoryInterestFees  Category = "intereses_comisiones"
	CategoryOther         Category = "otros"

	// CategoryUncategorized is the sentinel for transactions no tier
	// could place. It is not part of the assignable vocabulary.
	CategoryUncategorized Category = "uncategorized"
)

// Categories returns the assignable vocabulary, excluding the sentinel.
func Categories() []Category {
	return []Category{
		CategoryFood, CategoryFuel, CategoryServices, CategoryHealth,
		CategoryTransport, CategoryEntertainment, CategoryClothing,
		CategoryEducation, CategoryTransfers, CategoryInsurance,
		CategoryInterestFees, CategoryOther,
	}
}

// ValidCategory reports whether s names an assignable category.
func ValidCategory(s string) (Category, bool) {
	for _, c := range Categories() {
		if string(c) == s {
			return c, true
		}
	}
	return "", false
}

// Tier records which categorization tier produced an assignment.
type Tier string

const (
	TierExact     Tier = "exact"
	TierPattern   Tier = "pattern"
	TierInference Tier = "inference"
)

// PatternRule is one ordered keyword-pattern rule. Patterns match
// against folded (uppercase, diacritic-free) descriptions.
type PatternRule struct {
	Pattern  string
	Category Category
	re       *regexp.Regexp
}

// RuleSet is a versioned deterministic rule table: an exact merchant
// lookup plus an ordered pattern list. A fixed version always produces
// the same assignments for the same descriptions.
type RuleSet struct {
	Version  string
	Exact    map[string]Category
	Patterns []PatternRule
}

// ruleSetFile is the YAML layout for external rule files.
type ruleSetFile struct {
	Version  string            `yaml:"version"`
	Exact    map[string]string `yaml:"exact"`
	Patterns []struct {
		Pattern  string `yaml:"pattern"`
		Category string `yaml:"category"`
	} `yaml:"patterns"`
}

// LoadRuleSet reads a YAML rule file, validates every category against
// the closed vocabulary and compiles the patterns.
func LoadRuleSet(path string) (*RuleSet, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read rule file: %w", err)
	}

	var file ruleSetFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse rule file: %w", err)
	}
	if file.Version == "" {
		return nil, fmt.Errorf("rule file %s has no version", path)
	}

	rs := &RuleSet{
		Version: file.Version,
		Exact:   make(map[string]Category, len(file.Exact)),
	}
	for merchant, cat := range file.Exact {
		c, ok := ValidCategory(cat)
		if !ok {
			return nil, fmt.Errorf("exact rule %q: unknown category %q", merchant, cat)
		}
		rs.Exact[textnorm.FoldCompact(merchant)] = c
	}
	for _, p := range file.Patterns {
		c, ok := ValidCategory(p.Category)
		if !ok {
			return nil, fmt.Errorf("pattern rule %q: unknown category %q", p.Pattern, p.Category)
		}
		re, err := regexp.Compile(`(?i)` + p.Pattern)
		if err != nil {
			return nil, fmt.Errorf("pattern rule %q: %w", p.Pattern, err)
		}
		rs.Patterns = append(rs.Patterns, PatternRule{Pattern: p.Pattern, Category: c, re: re})
	}
	return rs, nil
}

// DefaultRuleSet is the built-in rule table for the Mexican card market.
func DefaultRuleSet() *RuleSet {
	exact := map[string]Category{
		"OXXO":                  CategoryFood,
		"SORIANA":               CategoryFood,
		"CHEDRAUI":              CategoryFood,
		"WALMART":               CategoryFood,
		"HEB":                   CategoryFood,
		"COSTCO":                CategoryFood,
		"STARBUCKS":             CategoryFood,
		"MCDONALDS":             CategoryFood,
		"PEMEX":                 CategoryFuel,
		"NETFLIX":               CategoryEntertainment,
		"SPOTIFY":               CategoryEntertainment,
		"CINEPOLIS":             CategoryEntertainment,
		"CINEMEX":               CategoryEntertainment,
		"UBER":                  CategoryTransport,
		"DIDI":                  CategoryTransport,
		"CFE":                   CategoryServices,
		"TELMEX":                CategoryServices,
		"TELCEL":                CategoryServices,
		"IZZI":                  CategoryServices,
		"TOTALPLAY":             CategoryServices,
		"LIVERPOOL":             CategoryClothing,
		"PALACIO DE HIERRO":     CategoryClothing,
		"SUBURBIA":              CategoryClothing,
		"ZARA":                  CategoryClothing,
		"FARMACIAS GUADALAJARA": CategoryHealth,
		"FARMACIA DEL AHORRO":   CategoryHealth,
		"FARMACIAS SIMILARES":   CategoryHealth,
		"COPPEL":                CategoryOther,
		"ELEKTRA":               CategoryOther,
	}

	patterns := []struct {
		pattern  string
		category Category
	}{
		{`\b(REST|RESTAURANT|RESTAURANTE|TAQUERIA|CAFETERIA|CAFE)\b`, CategoryFood},
		{`\b(SUPER|SUPERMERCADO|ABARROTES|MERCADO)\b`, CategoryFood},
		{`\b(GASOLINERA|GASOL|COMBUSTIBLE|ESTACION DE SERVICIO)\b`, CategoryFuel},
		{`\b(FARMACIA|FARM|HOSPITAL|CLINICA|LABORATORIO|DENTAL)\b`, CategoryHealth},
		{`\b(TAXI|AUTOBUS|METRO|PEAJE|CASETA|ESTACIONAMIENTO|PENSION)\b`, CategoryTransport},
		{`\b(CINE|TEATRO|CONCIERTO|MUSEO|BOLICHE)\b`, CategoryEntertainment},
		{`\b(COLEGIO|UNIVERSIDAD|ESCUELA|COLEGIATURA|CURSO)\b`, CategoryEducation},
		{`\b(SEGURO|SEGUROS|ASEGURADORA|POLIZA)\b`, CategoryInsurance},
		{`\b(TRANSFERENCIA|SPEI|TRASPASO|DEPOSITO)\b`, CategoryTransfers},
		{`\b(INTERES|INTERESES|COMISION|ANUALIDAD|IVA)\b`, CategoryInterestFees},
		{`\b(LUZ|AGUA|GAS|TELEFONO|INTERNET|CABLE)\b`, CategoryServices},
		{`\b(ROPA|CALZADO|BOUTIQUE|ZAPATERIA)\b`, CategoryClothing},
	}

	rs := &RuleSet{Version: "builtin-1", Exact: exact}
	for _, p := range patterns {
		rs.Patterns = append(rs.Patterns, PatternRule{
			Pattern:  p.pattern,
			Category: p.category,
			re:       regexp.MustCompile(`(?i)` + p.pattern),
		})
	}
	return rs
}
