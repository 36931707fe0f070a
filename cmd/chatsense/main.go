// Package main implements the chatsense CLI: parse chat transcripts, score
// their sentiment and inspect stored runs.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/cognicore/chatsense/internal/logging"
	"github.com/cognicore/chatsense/pkg/chatsense"
	"github.com/cognicore/chatsense/pkg/chatsense/config"
	"github.com/cognicore/chatsense/pkg/chatsense/fanout"
	"github.com/cognicore/chatsense/pkg/chatsense/pipeline"
	"github.com/cognicore/chatsense/pkg/chatsense/store"
	"github.com/cognicore/chatsense/pkg/chatsense/store/memstore"
	"github.com/cognicore/chatsense/pkg/chatsense/store/sqlite"
)

var (
	// settingsPath is the optional YAML settings file
	settingsPath string
	logLevel     string
	logFormat    string
	// dbPath switches the store to sqlite when set
	dbPath string

	version = "dev"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "chatsense",
	Short: "Chat transcript parsing and sentiment scoring",
	Long: `chatsense parses exported chat transcripts into messages, normalizes their
text, scores them against sentiment lexicons and stores the results.

Settings are read from --config (YAML) and CHATSENSE_* environment variables.`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: false,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&settingsPath, "config", "", "YAML settings file")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "", "log format (console, json)")
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "SQLite database path (overrides store settings)")
}

// app bundles everything a command needs.
type app struct {
	settings *config.Settings
	comp     *config.Components
	logger   *zap.Logger
	store    store.Store
}

// loadSettings reads settings and applies persistent flag overrides.
func loadSettings() (*config.Settings, error) {
	s, err := config.LoadSettings(settingsPath)
	if err != nil {
		return nil, err
	}
	if logLevel != "" {
		s.Log.Level = logLevel
	}
	if logFormat != "" {
		s.Log.Format = logFormat
	}
	if dbPath != "" {
		s.Store.Driver = "sqlite"
		s.Store.Path = dbPath
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

func newApp(ctx context.Context, s *config.Settings) (*app, error) {
	logger, err := logging.New(s.Log)
	if err != nil {
		return nil, fmt.Errorf("create logger: %w", err)
	}

	comp, err := s.Loader().Load()
	if err != nil {
		return nil, err
	}

	st, err := openStore(ctx, s.Store)
	if err != nil {
		return nil, err
	}

	return &app{settings: s, comp: comp, logger: logger, store: st}, nil
}

func openStore(ctx context.Context, s config.StoreSettings) (store.Store, error) {
	if s.Driver == "sqlite" {
		st, err := sqlite.OpenSQLite(ctx, s.Path)
		if err != nil {
			return nil, fmt.Errorf("open sqlite store %s: %w", s.Path, err)
		}
		return st, nil
	}
	return memstore.New(), nil
}

func (rt *app) engine() *chatsense.Engine {
	p := pipeline.New(rt.comp.Normalizer, rt.comp.Extractor, rt.comp.Scorer, rt.comp.EmojiTable).
		WithMetrics(pipeline.NewMetrics())

	fo := rt.settings.FanoutOptions()
	fo.Logger = rt.logger
	fo.Metrics = fanout.NewMetrics()

	return chatsense.New(chatsense.Options{
		Store:    rt.store,
		Pipeline: p,
		DropTail: rt.settings.Input.DropTail,
		Batch: pipeline.BatchOptions{
			Parallel: rt.settings.Workers.Parallel,
			Fanout:   fo,
			Logger:   rt.logger,
		},
		Logger: rt.logger,
	})
}

func (rt *app) close() {
	_ = rt.store.Close()
	_ = logging.Sync(rt.logger)
}
