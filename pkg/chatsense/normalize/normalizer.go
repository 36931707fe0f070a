// Package normalize applies a rule registry to message text, stripping and
// capturing token classes (URLs, mentions, hashtags, whitespace) before
// feature extraction.
package normalize

import (
	"strings"

	"github.com/cognicore/chatsense/pkg/chatsense/rules"
)

// quoteChars are trimmed from both ends of the normalized text.
const quoteChars = `'"`

// Result is the outcome of normalizing one text. Captures holds one entry per
// capturing rule of the registry, empty when the rule never matched.
type Result struct {
	Text     string
	Captures map[string][]string
}

// Normalizer applies a registry to text. It holds no mutable state and is
// safe for concurrent use.
type Normalizer struct {
	registry *rules.Registry
	rules    []rules.Rule
}

// New creates a normalizer over the given registry.
// A nil registry selects rules.Default().
func New(reg *rules.Registry) *Normalizer {
	if reg == nil {
		reg = rules.Default()
	}
	return &Normalizer{registry: reg, rules: reg.Rules()}
}

// Registry returns the registry the normalizer applies.
func (n *Normalizer) Registry() *rules.Registry {
	return n.registry
}

// Normalize lower-cases text, then applies every rule in registry order.
// Capturing rules record their matches against the text as it was before
// that rule's substitution.
func (n *Normalizer) Normalize(text string) Result {
	res := Result{Captures: make(map[string][]string)}
	for _, r := range n.rules {
		if r.Capture {
			res.Captures[r.Name] = []string{}
		}
	}

	current := strings.ToLower(text)
	for _, r := range n.rules {
		if r.Capture {
			res.Captures[r.Name] = collect(r, current)
		}
		current = r.Pattern.ReplaceAllString(current, r.Replacement)
	}

	res.Text = strings.Trim(current, quoteChars)
	return res
}

// Apply runs a single named rule over text without lower-casing or quote
// trimming. Unknown names return the text unchanged.
func (n *Normalizer) Apply(name, text string) string {
	for _, r := range n.rules {
		if r.Name == name {
			return r.Pattern.ReplaceAllString(text, r.Replacement)
		}
	}
	return text
}

// collect returns all non-overlapping matches of r in text, left to right.
func collect(r rules.Rule, text string) []string {
	if r.Group == 0 {
		matches := r.Pattern.FindAllString(text, -1)
		if matches == nil {
			return []string{}
		}
		return matches
	}

	subs := r.Pattern.FindAllStringSubmatch(text, -1)
	out := make([]string, 0, len(subs))
	for _, m := range subs {
		out = append(out, m[r.Group])
	}
	return out
}
