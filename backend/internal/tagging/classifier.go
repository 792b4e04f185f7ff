// Package tagging derives short tag codes from row values using keyword rules.
package tagging

import (
	"strings"

	"tablegraph/backend/internal/state"
)

// Classifier applies a fixed rule table. It is safe for concurrent use.
type Classifier struct {
	rules []Rule
}

// NewClassifier copies rules; later changes to the caller's slice have no effect.
// Keywords are matched case-insensitively.
func NewClassifier(rules []Rule) *Classifier {
	copied := make([]Rule, len(rules))
	for i, r := range rules {
		keywords := make([]string, len(r.Keywords))
		for j, k := range r.Keywords {
			keywords[j] = strings.ToLower(k)
		}
		copied[i] = Rule{Tag: r.Tag, Keywords: keywords}
	}
	return &Classifier{rules: copied}
}

// Classify returns the tags whose rules match the values, in rule order.
// A rule contributes at most once however many of its keywords occur.
func (c *Classifier) Classify(values state.Values) []string {
	text := strings.ToLower(strings.Join(values.Texts(), " "))

	tags := []string{}
	for _, rule := range c.rules {
		for _, keyword := range rule.Keywords {
			if strings.Contains(text, keyword) {
				tags = append(tags, rule.Tag)
				break
			}
		}
	}
	return tags
}

// Alphabet returns every tag code the classifier can emit
func (c *Classifier) Alphabet() []string {
	out := make([]string, len(c.rules))
	for i, r := range c.rules {
		out[i] = r.Tag
	}
	return out
}

// Known reports whether tag belongs to the alphabet
func (c *Classifier) Known(tag string) bool {
	for _, r := range c.rules {
		if r.Tag == tag {
			return true
		}
	}
	return false
}
