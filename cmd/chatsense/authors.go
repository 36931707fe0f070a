package main

import (
	"context"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var authorsRunID string

func init() {
	rootCmd.AddCommand(authorsCmd)
	authorsCmd.Flags().StringVar(&authorsRunID, "run", "", "run ID (required)")
	_ = authorsCmd.MarkFlagRequired("run")
}

// authorsCmd lists per-author summaries of a stored run
var authorsCmd = &cobra.Command{
	Use:   "authors",
	Short: "List per-author sentiment of a stored run",
	Long: `List per-author message counts and sentiment of a run stored in SQLite.

Examples:
  chatsense analyze --db runs.db chat.txt
  chatsense authors --db runs.db --run 01HV...`,
	Args: cobra.NoArgs,
	RunE: runAuthors,
}

func runAuthors(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	s, err := loadSettings()
	if err != nil {
		return err
	}
	if s.Store.Driver != "sqlite" {
		return fmt.Errorf("authors needs a persistent store: pass --db or set store.driver=sqlite")
	}

	st, err := openStore(ctx, s.Store)
	if err != nil {
		return err
	}
	defer st.Close()

	run, err := st.GetRun(ctx, authorsRunID)
	if err != nil {
		return err
	}
	sums, err := st.AuthorSummaries(ctx, run.ID)
	if err != nil {
		return err
	}

	w := cmd.OutOrStdout()
	fmt.Fprintf(w, "Run %s (%s, %d records)\n\n", run.ID, run.Source, run.Records)
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "AUTHOR\tMESSAGES\tSCORE\tPOS\tNEG\tNEU")
	for _, a := range sums {
		fmt.Fprintf(tw, "%s\t%d\t%.0f\t%d\t%d\t%d\n", a.Author, a.Messages, a.ScoreSum, a.Positive, a.Negative, a.Neutral)
	}
	return tw.Flush()
}
