package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/cognicore/chatsense/pkg/chatsense/lexicon"
)

func init() {
	rootCmd.AddCommand(lexiconCmd)
	lexiconCmd.AddCommand(lexiconConvertCmd)
}

var lexiconCmd = &cobra.Command{
	Use:   "lexicon",
	Short: "Sentiment lexicon utilities",
}

// lexiconConvertCmd converts a .tsv/.yaml/.json lexicon to JSON
var lexiconConvertCmd = &cobra.Command{
	Use:   "convert <input> [output.json]",
	Short: "Convert a lexicon file to JSON",
	Long: `Convert a TSV (header row, then token<TAB>score), YAML or JSON lexicon to
the JSON object form. Without an output path the JSON is written to stdout.

Examples:
  chatsense lexicon convert positive.tsv positive.json`,
	Args: cobra.RangeArgs(1, 2),
	RunE: runLexiconConvert,
}

func runLexiconConvert(cmd *cobra.Command, args []string) error {
	in := args[0]
	lex, err := lexicon.Load(lexiconName(in), in)
	if err != nil {
		return fmt.Errorf("load %s: %w", in, err)
	}

	if len(args) == 1 {
		return lex.WriteJSON(cmd.OutOrStdout())
	}

	out, err := os.Create(args[1])
	if err != nil {
		return err
	}
	if err := lex.WriteJSON(out); err != nil {
		out.Close()
		return err
	}
	if err := out.Close(); err != nil {
		return err
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "wrote %d entries to %s\n", lex.Len(), args[1])
	return nil
}

// lexiconName derives a lexicon name from its file name.
func lexiconName(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
