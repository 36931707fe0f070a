package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/v2"

	"github.com/cognicore/chatsense/internal/logging"
	"github.com/cognicore/chatsense/pkg/chatsense/fanout"
	"github.com/cognicore/chatsense/pkg/chatsense/internalerr"
)

const (
	// EnvPrefix marks environment variables that override settings.
	EnvPrefix = "CHATSENSE_"

	maxSettingsFileSize = 1024 * 1024 // 1MB
)

// defaults are loaded before the settings file so every key has a value.
const defaults = `
log:
  level: info
  format: console
input:
  drop_tail: false
data:
  emoji_rule: false
workers:
  parallel: false
  count: 0
  mode: fail_fast
store:
  driver: memory
`

// Settings is the runtime configuration of chatsense.
type Settings struct {
	Log     logging.Config `koanf:"log"`
	Input   InputSettings  `koanf:"input"`
	Data    DataSettings   `koanf:"data"`
	Workers WorkerSettings `koanf:"workers"`
	Store   StoreSettings  `koanf:"store"`
}

// InputSettings controls transcript assembly.
type InputSettings struct {
	DropTail bool `koanf:"drop_tail"`
}

// DataSettings points at the data files. Empty paths select built-in
// defaults (default rules, synthetic stop words, no lexicons, no emoji table).
type DataSettings struct {
	Rules           string `koanf:"rules"`
	EmojiRule       bool   `koanf:"emoji_rule"`
	Stoplist        string `koanf:"stoplist"`
	PositiveLexicon string `koanf:"positive_lexicon"`
	NegativeLexicon string `koanf:"negative_lexicon"`
	EmojiTable      string `koanf:"emoji_table"`
}

// WorkerSettings controls batch fan-out.
type WorkerSettings struct {
	Parallel bool   `koanf:"parallel"`
	Count    int    `koanf:"count"`
	Mode     string `koanf:"mode"`
}

// StoreSettings selects where analysed messages are persisted.
type StoreSettings struct {
	Driver string `koanf:"driver"` // memory | sqlite
	Path   string `koanf:"path"`
}

// LoadSettings reads defaults, then the YAML file at path (if non-empty),
// then CHATSENSE_* environment variables, and validates the result.
//
// Environment variables map to keys by their first underscore:
//
//	CHATSENSE_WORKERS_COUNT     -> workers.count
//	CHATSENSE_DATA_EMOJI_TABLE  -> data.emoji_table
func LoadSettings(path string) (*Settings, error) {
	k := koanf.New(".")

	if err := k.Load(rawbytes.Provider([]byte(defaults)), yaml.Parser()); err != nil {
		return nil, fmt.Errorf("load defaults: %w", err)
	}

	if path != "" {
		info, err := os.Stat(path)
		if err != nil {
			return nil, fmt.Errorf("stat settings file: %w", err)
		}
		if info.Size() > maxSettingsFileSize {
			return nil, fmt.Errorf("settings file %s exceeds %d bytes: %w", path, maxSettingsFileSize, internalerr.ErrInvalidConfig)
		}
		content, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read settings file: %w", err)
		}
		if err := k.Load(rawbytes.Provider(content), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("load settings file %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("load environment: %w", err)
	}

	var s Settings
	if err := k.Unmarshal("", &s); err != nil {
		return nil, fmt.Errorf("unmarshal settings: %w", err)
	}

	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

// envKey maps CHATSENSE_SECTION_FIELD_NAME to section.field_name.
func envKey(s string) string {
	lower := strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	parts := strings.SplitN(lower, "_", 2)
	if len(parts) == 1 {
		return lower
	}
	return parts[0] + "." + parts[1]
}

// Validate checks settings for errors.
func (s *Settings) Validate() error {
	if err := s.Log.Validate(); err != nil {
		return fmt.Errorf("log: %v: %w", err, internalerr.ErrInvalidConfig)
	}
	if _, err := fanout.ParseMode(s.Workers.Mode); err != nil {
		return fmt.Errorf("workers: %w", err)
	}
	if s.Workers.Count < 0 {
		return fmt.Errorf("workers: count must be >= 0, got %d: %w", s.Workers.Count, internalerr.ErrInvalidConfig)
	}
	switch s.Store.Driver {
	case "memory":
	case "sqlite":
		if s.Store.Path == "" {
			return fmt.Errorf("store: sqlite driver requires a path: %w", internalerr.ErrInvalidConfig)
		}
	default:
		return fmt.Errorf("store: unknown driver %q: %w", s.Store.Driver, internalerr.ErrInvalidConfig)
	}
	return nil
}

// FanoutOptions converts worker settings. Validate must have passed.
func (s *Settings) FanoutOptions() fanout.Options {
	mode, _ := fanout.ParseMode(s.Workers.Mode)
	return fanout.Options{Workers: s.Workers.Count, Mode: mode}
}

// Loader returns a component loader for the configured data files.
func (s *Settings) Loader() *Loader {
	return &Loader{
		RulesPath:      s.Data.Rules,
		EmojiRule:      s.Data.EmojiRule,
		StoplistPath:   s.Data.Stoplist,
		PositivePath:   s.Data.PositiveLexicon,
		NegativePath:   s.Data.NegativeLexicon,
		EmojiTablePath: s.Data.EmojiTable,
	}
}
