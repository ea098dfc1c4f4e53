package rules

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"orderaudit/internal/domain"
)

// RuleSet is an ordered list of rules; the first failing rule decides the
// reason for a record.
type RuleSet struct {
	Version string
	rules   []Rule
}

// NewRuleSet creates a RuleSet from rules in priority order.
func NewRuleSet(version string, rules ...Rule) *RuleSet {
	return &RuleSet{Version: version, rules: rules}
}

// Rules returns the rules in priority order.
func (rs *RuleSet) Rules() []Rule {
	out := make([]Rule, len(rs.rules))
	copy(out, rs.rules)
	return out
}

// Evaluate returns the reason of the first failing rule.
func (rs *RuleSet) Evaluate(rec *domain.OrderRecord) (string, bool) {
	for _, r := range rs.rules {
		if reason, failed := r.Evaluate(rec); failed {
			return reason, true
		}
	}
	return "", false
}

// Definition is the YAML form of one rule.
type Definition struct {
	Name     string   `yaml:"name"`
	Kind     Kind     `yaml:"kind"`
	Reason   string   `yaml:"reason"`
	Keywords []string `yaml:"keywords"`
	Statuses []string `yaml:"statuses"`
}

// File is the YAML rule-set document. Agency entries are keyed by EHR or
// agency name and appended after the base rules.
type File struct {
	Version  string                  `yaml:"version"`
	Rules    []Definition            `yaml:"rules"`
	Agencies map[string][]Definition `yaml:"agencies"`
}

// Catalog holds the base rule set plus per-agency additions.
type Catalog struct {
	version  string
	base     []Rule
	agencies map[string][]Rule
}

// Version identifies the rule vocabulary recorded on every AuditRecord.
func (c *Catalog) Version() string { return c.version }

// For returns the rule set for an export: base rules, then EHR additions,
// then agency additions.
func (c *Catalog) For(ehr, agency string) *RuleSet {
	rules := append([]Rule{}, c.base...)
	seen := map[string]bool{}
	for _, key := range []string{ehr, agency} {
		k := strings.ToLower(strings.TrimSpace(key))
		if k == "" || seen[k] {
			continue
		}
		seen[k] = true
		rules = append(rules, c.agencies[k]...)
	}
	return NewRuleSet(c.version, rules...)
}

// Default returns the built-in catalog.
func Default() *Catalog {
	c, err := Parse([]byte(defaultRulesYAML))
	if err != nil {
		panic(fmt.Sprintf("rules: built-in catalog is invalid: %v", err))
	}
	return c
}

// Load reads a catalog from a YAML file; an empty path yields Default.
func Load(path string) (*Catalog, error) {
	if path == "" {
		return Default(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("rules.Load: %w", err)
	}
	c, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("rules.Load %s: %w", path, err)
	}
	return c, nil
}

// Parse builds a catalog from YAML.
func Parse(data []byte) (*Catalog, error) {
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parsing rule set: %w", err)
	}
	if f.Version == "" {
		return nil, fmt.Errorf("rule set version is required")
	}

	base, err := build(f.Rules)
	if err != nil {
		return nil, err
	}
	c := &Catalog{version: f.Version, base: base, agencies: make(map[string][]Rule, len(f.Agencies))}
	for name, defs := range f.Agencies {
		extra, err := build(defs)
		if err != nil {
			return nil, fmt.Errorf("agency %q: %w", name, err)
		}
		c.agencies[strings.ToLower(strings.TrimSpace(name))] = extra
	}
	return c, nil
}

func build(defs []Definition) ([]Rule, error) {
	out := make([]Rule, 0, len(defs))
	names := make(map[string]bool, len(defs))
	for i, d := range defs {
		if d.Name == "" {
			return nil, fmt.Errorf("rule %d: name is required", i)
		}
		if names[d.Name] {
			return nil, fmt.Errorf("rule %q: duplicate name", d.Name)
		}
		names[d.Name] = true

		r, err := buildOne(d)
		if err != nil {
			return nil, fmt.Errorf("rule %q: %w", d.Name, err)
		}
		out = append(out, r)
	}
	return out, nil
}

func buildOne(d Definition) (Rule, error) {
	statuses, err := parseStatuses(d.Statuses)
	if err != nil {
		return nil, err
	}
	switch d.Kind {
	case KindMissingOrderID:
		return &MissingOrderIDRule{RuleName: d.Name, Reason: orDefault(d.Reason, "Missing order id")}, nil
	case KindKeyword:
		if len(d.Keywords) == 0 {
			return nil, fmt.Errorf("keyword rule needs keywords")
		}
		return NewKeywordRule(d.Name, d.Reason, d.Keywords), nil
	case KindMissingSignatureDate:
		return &MissingSignatureDateRule{RuleName: d.Name, Reason: orDefault(d.Reason, "Missing signature date"), Statuses: statuses}, nil
	case KindMissingSentDate:
		return &MissingSentDateRule{RuleName: d.Name, Reason: orDefault(d.Reason, "Missing sent date"), Statuses: statuses}, nil
	case KindStatus:
		if len(statuses) == 0 {
			return nil, fmt.Errorf("status rule needs statuses")
		}
		if d.Reason == "" {
			return nil, fmt.Errorf("status rule needs a reason")
		}
		return &StatusRule{RuleName: d.Name, Reason: d.Reason, Statuses: statuses}, nil
	default:
		return nil, fmt.Errorf("unknown kind %q", d.Kind)
	}
}

func parseStatuses(raw []string) (statusFilter, error) {
	var out statusFilter
	for _, s := range raw {
		switch strings.ToLower(strings.TrimSpace(s)) {
		case "signed":
			out = append(out, domain.OrderStatusSigned)
		case "unsigned":
			out = append(out, domain.OrderStatusUnsigned)
		case "unknown":
			out = append(out, domain.OrderStatusUnknown)
		default:
			return nil, fmt.Errorf("unknown status %q", s)
		}
	}
	return out, nil
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
