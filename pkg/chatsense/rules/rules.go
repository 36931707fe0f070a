package rules

import (
	"fmt"
	"io"
	"os"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/cognicore/chatsense/pkg/chatsense/internalerr"
)

// Names of the default rules, in application order.
const (
	URL                  = "url"
	AtUser               = "at_user"
	AdditionalWhiteSpace = "additional_white_space"
	HashTag              = "hash_tag"
	Emoji                = "emoji"
)

// EmojiPattern matches maximal runs of emoticons, symbols & pictographs,
// transport & map symbols and regional indicators (flags).
const EmojiPattern = `[\x{1F600}-\x{1F64F}\x{1F300}-\x{1F5FF}\x{1F680}-\x{1F6FF}\x{1F1E0}-\x{1F1FF}]+`

// Spec is the uncompiled, serializable form of a rule.
type Spec struct {
	Name        string `yaml:"name"`
	Pattern     string `yaml:"pattern"`
	Replacement string `yaml:"replacement"`
	Capture     bool   `yaml:"capture"`
	// Group selects the sub-match recorded for capturing rules (0 = whole match).
	Group int `yaml:"group"`
}

// Rule is a compiled pattern rule. Rules are immutable once loaded.
type Rule struct {
	Name        string
	Pattern     *regexp.Regexp
	Replacement string
	Capture     bool
	Group       int
}

// Spec returns the serializable form of the rule.
func (r Rule) Spec() Spec {
	return Spec{
		Name:        r.Name,
		Pattern:     r.Pattern.String(),
		Replacement: r.Replacement,
		Capture:     r.Capture,
		Group:       r.Group,
	}
}

// Registry is an ordered, read-only list of rules. Each rule sees the
// output of the previous one, so order must be preserved.
type Registry struct {
	rules []Rule
}

// ConfigError reports a rule set that cannot be loaded.
type ConfigError struct {
	Rule   string
	Index  int
	Reason string
	Err    error
}

func (e *ConfigError) Error() string {
	msg := "rules: " + e.Reason
	if e.Index >= 0 {
		msg = fmt.Sprintf("rule %d (%q): %s", e.Index, e.Rule, e.Reason)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ConfigError) Unwrap() error { return e.Err }

// Is reports ConfigError as an invalid configuration.
func (e *ConfigError) Is(target error) bool {
	return target == internalerr.ErrInvalidConfig
}

// space and nonSpace cover Unicode whitespace: RE2's \s and \S are ASCII
// only, and exports carry U+00A0 and U+202F between words.
const (
	space    = `[\s\v\p{Z}]`
	nonSpace = `[^\s\v\p{Z}]`
)

// DefaultSpecs returns the default rule set in its required order.
func DefaultSpecs() []Spec {
	return []Spec{
		{Name: URL, Pattern: `((www\.` + nonSpace + `+)|(https?://` + nonSpace + `+))`, Replacement: "url", Capture: true},
		{Name: AtUser, Pattern: `@[A-Za-z0-9]+`, Replacement: "at_user", Capture: true},
		{Name: AdditionalWhiteSpace, Pattern: space + `+`, Replacement: " "},
		{Name: HashTag, Pattern: `#(` + nonSpace + `+)`, Replacement: "${1}", Capture: true, Group: 1},
	}
}

// EmojiSpec returns the optional emoji rule. It is not part of the default
// set; append it when emoji should be stripped during normalization.
func EmojiSpec() Spec {
	return Spec{Name: Emoji, Pattern: EmojiPattern, Replacement: " ", Capture: true}
}

// Default returns the compiled default registry.
func Default() *Registry {
	reg, err := Load(DefaultSpecs())
	if err != nil {
		panic(err)
	}
	return reg
}

// Load validates and compiles specs into a registry.
// Duplicate or empty names, uncompilable patterns and out-of-range groups
// fail with *ConfigError.
func Load(specs []Spec) (*Registry, error) {
	seen := make(map[string]bool, len(specs))
	compiled := make([]Rule, 0, len(specs))

	for i, s := range specs {
		name := strings.TrimSpace(s.Name)
		if name == "" {
			return nil, &ConfigError{Index: i, Reason: "empty name"}
		}
		if seen[name] {
			return nil, &ConfigError{Rule: name, Index: i, Reason: "duplicate name", Err: internalerr.ErrDuplicate}
		}
		seen[name] = true

		re, err := regexp.Compile(s.Pattern)
		if err != nil {
			return nil, &ConfigError{Rule: name, Index: i, Reason: "invalid pattern", Err: err}
		}
		if s.Group < 0 || s.Group > re.NumSubexp() {
			return nil, &ConfigError{Rule: name, Index: i, Reason: fmt.Sprintf("group %d out of range (pattern has %d)", s.Group, re.NumSubexp())}
		}

		compiled = append(compiled, Rule{
			Name:        name,
			Pattern:     re,
			Replacement: s.Replacement,
			Capture:     s.Capture,
			Group:       s.Group,
		})
	}

	return &Registry{rules: compiled}, nil
}

// ParseYAML loads a registry from YAML.
//
// Expected format:
//
//	rules:
//	  - name: url
//	    pattern: '((www\.\S+)|(https?://\S+))'
//	    replacement: url
//	    capture: true
func ParseYAML(data []byte) (*Registry, error) {
	specs, err := ParseSpecsYAML(data)
	if err != nil {
		return nil, err
	}
	return Load(specs)
}

// ParseSpecsYAML decodes rule specs without compiling them, so callers can
// extend the list before Load.
func ParseSpecsYAML(data []byte) ([]Spec, error) {
	var doc struct {
		Rules []Spec `yaml:"rules"`
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, &ConfigError{Index: -1, Reason: "malformed yaml", Err: err}
	}
	return doc.Rules, nil
}

// LoadYAML reads a rule file from disk.
func LoadYAML(path string) (*Registry, error) {
	specs, err := LoadSpecsYAML(path)
	if err != nil {
		return nil, err
	}
	return Load(specs)
}

// LoadSpecsYAML reads rule specs from disk without compiling them.
func LoadSpecsYAML(path string) ([]Spec, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParseSpecsYAML(data)
}

// WriteYAML encodes specs in the format ParseYAML reads.
func WriteYAML(w io.Writer, specs []Spec) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(struct {
		Rules []Spec `yaml:"rules"`
	}{specs}); err != nil {
		return err
	}
	return enc.Close()
}

// Rules returns a copy of the rules in application order.
func (r *Registry) Rules() []Rule {
	out := make([]Rule, len(r.rules))
	copy(out, r.rules)
	return out
}

// Specs returns the serializable form of every rule, in order.
func (r *Registry) Specs() []Spec {
	out := make([]Spec, len(r.rules))
	for i, rule := range r.rules {
		out[i] = rule.Spec()
	}
	return out
}

// Len returns the number of rules.
func (r *Registry) Len() int { return len(r.rules) }

// CaptureNames returns the names of capturing rules in order.
func (r *Registry) CaptureNames() []string {
	var names []string
	for _, rule := range r.rules {
		if rule.Capture {
			names = append(names, rule.Name)
		}
	}
	return names
}

// Lookup returns the rule with the given name.
func (r *Registry) Lookup(name string) (Rule, bool) {
	for _, rule := range r.rules {
		if rule.Name == name {
			return rule, true
		}
	}
	return Rule{}, false
}
