package categorize

import (
	"os"
	"path/filepath"
	"testing"
)

func writeRuleFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "rules.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("writing rule file: %v", err)
	}
	return path
}

func TestLoadRuleSet(t *testing.T) {
	path := writeRuleFile(t, `version: "2025-08"
exact:
  "Café Punta del Cielo": alimentacion
  "AUTOZONE": transporte
patterns:
  - pattern: '\bVETERINARIA\b'
    category: salud
`)

	rs, err := LoadRuleSet(path)
	if err != nil {
		t.Fatalf("LoadRuleSet() error = %v", err)
	}
	if rs.Version != "2025-08" {
		t.Errorf("Version = %q, want 2025-08", rs.Version)
	}

	// Exact keys are folded on load.
	if cat, ok := rs.Exact["CAFE PUNTA DEL CIELO"]; !ok || cat != CategoryFood {
		t.Errorf("Exact[CAFE PUNTA DEL CIELO] = %q, ok=%v", cat, ok)
	}

	c := NewCategorizer(rs)
	a, ok := c.Lookup("VETERINARIA DEL VALLE")
	if !ok || a.Category != CategoryHealth || a.Tier != TierPattern {
		t.Errorf("Lookup(VETERINARIA DEL VALLE) = %+v, ok=%v", a, ok)
	}
}

func TestLoadRuleSetUnknownCategory(t *testing.T) {
	path := writeRuleFile(t, `version: "1"
exact:
  "OXXO": groceries
`)

	if _, err := LoadRuleSet(path); err == nil {
		t.Error("LoadRuleSet() error = nil, want unknown-category error")
	}
}

func TestLoadRuleSetBadPattern(t *testing.T) {
	path := writeRuleFile(t, `version: "1"
patterns:
  - pattern: '(['
    category: otros
`)

	if _, err := LoadRuleSet(path); err == nil {
		t.Error("LoadRuleSet() error = nil, want compile error")
	}
}

func TestLoadRuleSetMissingVersion(t *testing.T) {
	path := writeRuleFile(t, `exact:
  "OXXO": alimentacion
`)

	if _, err := LoadRuleSet(path); err == nil {
		t.Error("LoadRuleSet() error = nil, want missing-version error")
	}
}

func TestLoadRuleSetMissingFile(t *testing.T) {
	if _, err := LoadRuleSet(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Error("LoadRuleSet() error = nil, want read error")
	}
}

func TestDefaultRuleSetIsValid(t *testing.T) {
	rs := DefaultRuleSet()
	if rs.Version == "" {
		t.Error("default rule set has no version")
	}
	for merchant, cat := range rs.Exact {
		if _, ok := ValidCategory(string(cat)); !ok {
			t.Errorf("exact rule %q carries unknown category %q", merchant, cat)
		}
	}
	for _, p := range rs.Patterns {
		if p.re == nil {
			t.Errorf("pattern %q not compiled", p.Pattern)
		}
		if _, ok := ValidCategory(string(p.Category)); !ok {
			t.Errorf("pattern %q carries unknown category %q", p.Pattern, p.Category)
		}
	}
}
