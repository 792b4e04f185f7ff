package tagging

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Rule maps a tag code to the keywords that trigger it
type Rule struct {
	Tag      string   `yaml:"tag" json:"tag"`
	Keywords []string `yaml:"keywords" json:"keywords"`
}

// DefaultRules returns the built-in rule table.
// A fresh slice is returned on every call so callers cannot share mutations.
func DefaultRules() []Rule {
	return []Rule{
		{Tag: "P", Keywords: []string{"planet", "mars", "venus", "jupiter", "saturn"}},
		{Tag: "C", Keywords: []string{"color", "red", "blue", "green", "yellow"}},
		{Tag: "R", Keywords: []string{"distance", "mile", "km", "lightyear"}},
		{Tag: "N", Keywords: []string{"name", "title", "label"}},
		{Tag: "T", Keywords: []string{"temperature", "hot", "cold"}},
	}
}

type rulesFile struct {
	Rules []Rule `yaml:"rules"`
}

// LoadRules reads a YAML rule table of the form
//
//	rules:
//	  - tag: P
//	    keywords: [planet, mars]
func LoadRules(path string) ([]Rule, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading rules file: %w", err)
	}
	return ParseRules(data)
}

// ParseRules decodes and checks a YAML rule table
func ParseRules(data []byte) ([]Rule, error) {
	var f rulesFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parsing rules: %w", err)
	}
	if len(f.Rules) == 0 {
		return nil, fmt.Errorf("rules file defines no rules")
	}

	seen := make(map[string]bool, len(f.Rules))
	for i, r := range f.Rules {
		if strings.TrimSpace(r.Tag) == "" {
			return nil, fmt.Errorf("rule %d: tag is required", i)
		}
		if seen[r.Tag] {
			return nil, fmt.Errorf("rule %d: duplicate tag %q", i, r.Tag)
		}
		seen[r.Tag] = true
		if len(r.Keywords) == 0 {
			return nil, fmt.Errorf("rule %q: at least one keyword is required", r.Tag)
		}
		// an empty keyword would match every value
		for j, kw := range r.Keywords {
			if strings.TrimSpace(kw) == "" {
				return nil, fmt.Errorf("rule %q: keyword %d is blank", r.Tag, j)
			}
		}
	}
	return f.Rules, nil
}
