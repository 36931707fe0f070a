package config

import (
	"fmt"

	"github.com/cognicore/chatsense/pkg/chatsense/emojisent"
	"github.com/cognicore/chatsense/pkg/chatsense/features"
	"github.com/cognicore/chatsense/pkg/chatsense/lexicon"
	"github.com/cognicore/chatsense/pkg/chatsense/normalize"
	"github.com/cognicore/chatsense/pkg/chatsense/rules"
	"github.com/cognicore/chatsense/pkg/chatsense/stoplist"
)

// Loader loads all data files and constructs components
type Loader struct {
	RulesPath      string
	EmojiRule      bool
	StoplistPath   string
	PositivePath   string
	NegativePath   string
	EmojiTablePath string
}

// Components holds all loaded, read-only components
type Components struct {
	Registry   *rules.Registry
	Normalizer *normalize.Normalizer
	Stoplist   *stoplist.Manager
	Extractor  *features.Extractor
	Scorer     *lexicon.Scorer
	EmojiTable *emojisent.Table
}

// Load reads all data files and returns initialized components
func (l *Loader) Load() (*Components, error) {
	comp := &Components{}

	// Load rules
	specs := rules.DefaultSpecs()
	if l.RulesPath != "" {
		var err error
		specs, err = rules.LoadSpecsYAML(l.RulesPath)
		if err != nil {
			return nil, fmt.Errorf("load rules: %w", err)
		}
	}
	if l.EmojiRule {
		specs = append(specs, rules.EmojiSpec())
	}
	reg, err := rules.Load(specs)
	if err != nil {
		return nil, fmt.Errorf("load rules: %w", err)
	}
	comp.Registry = reg
	comp.Normalizer = normalize.New(reg)

	// Load stoplist
	if l.StoplistPath != "" {
		comp.Stoplist, err = stoplist.LoadFile(l.StoplistPath)
		if err != nil {
			return nil, fmt.Errorf("load stoplist: %w", err)
		}
	} else {
		comp.Stoplist = stoplist.NewManager(nil)
	}
	comp.Extractor = features.NewExtractor(comp.Stoplist)

	// Load lexicons
	var lexicons []*lexicon.Lexicon
	for _, src := range []struct{ name, path string }{
		{"positive", l.PositivePath},
		{"negative", l.NegativePath},
	} {
		if src.path == "" {
			continue
		}
		lex, err := lexicon.Load(src.name, src.path)
		if err != nil {
			return nil, fmt.Errorf("load %s lexicon: %w", src.name, err)
		}
		lexicons = append(lexicons, lex)
	}
	comp.Scorer = lexicon.NewScorer(lexicons...)

	// Load emoji sentiment table
	if l.EmojiTablePath != "" {
		comp.EmojiTable, err = emojisent.LoadFile(l.EmojiTablePath)
		if err != nil {
			return nil, fmt.Errorf("load emoji table: %w", err)
		}
	} else {
		comp.EmojiTable = emojisent.NewTable(nil)
	}

	return comp, nil
}
