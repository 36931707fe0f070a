package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/cognicore/chatsense/pkg/chatsense"
	"github.com/cognicore/chatsense/pkg/chatsense/fanout"
	"github.com/cognicore/chatsense/pkg/chatsense/store"
)

var (
	// analyze command flags
	anDropTail bool
	anParallel bool
	anWorkers  int
	anMode     string
	anHTML     bool
	anJSON     bool
	anShow     int
)

func init() {
	rootCmd.AddCommand(analyzeCmd)

	analyzeCmd.Flags().BoolVar(&anDropTail, "drop-tail", false, "discard the final message (compatibility mode)")
	analyzeCmd.Flags().BoolVar(&anParallel, "parallel", false, "process records on a worker pool")
	analyzeCmd.Flags().IntVar(&anWorkers, "workers", 0, "number of worker chunks (0 = number of CPUs)")
	analyzeCmd.Flags().StringVar(&anMode, "mode", "", "fan-out failure mode (fail_fast, best_effort)")
	analyzeCmd.Flags().BoolVar(&anHTML, "html", false, "treat input as an HTML export")
	analyzeCmd.Flags().BoolVar(&anJSON, "json", false, "output the report as JSON")
	analyzeCmd.Flags().IntVar(&anShow, "show", 0, "print the first N analysed messages")
}

var analyzeCmd = &cobra.Command{
	Use:   "analyze [file]",
	Short: "Parse a transcript and score every message",
	Long: `Parse a chat transcript, normalize and score every message, store the run
and print a per-author report.

Examples:
  # Analyze an export
  chatsense analyze chat.txt

  # Read from stdin, keep results in SQLite
  cat chat.txt | chatsense analyze --db runs.db -

  # Parallel, keep going when a chunk fails
  chatsense analyze --parallel --mode best_effort chat.txt`,
	Args: cobra.MaximumNArgs(1),
	RunE: runAnalyze,
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	s, err := loadSettings()
	if err != nil {
		return err
	}
	flags := cmd.Flags()
	if flags.Changed("drop-tail") {
		s.Input.DropTail = anDropTail
	}
	if flags.Changed("parallel") {
		s.Workers.Parallel = anParallel
	}
	if flags.Changed("workers") {
		s.Workers.Count = anWorkers
	}
	if flags.Changed("mode") {
		s.Workers.Mode = anMode
	}
	if err := s.Validate(); err != nil {
		return err
	}

	rt, err := newApp(ctx, s)
	if err != nil {
		return err
	}
	defer rt.close()

	in, source, err := openInput(args)
	if err != nil {
		return err
	}
	defer in.Close()

	eng := rt.engine()
	rep, err := eng.Analyze(ctx, in, chatsense.AnalyzeOptions{Source: source, HTML: anHTML})
	if err != nil {
		return err
	}

	var msgs []store.Message
	if anShow > 0 {
		msgs, err = eng.Messages(ctx, rep.RunID, store.Filter{Limit: anShow})
		if err != nil {
			return err
		}
	}

	out := cmd.OutOrStdout()
	if anJSON {
		return writeReportJSON(out, rep, msgs)
	}
	writeReport(out, rep, msgs)
	return nil
}

// openInput returns the transcript reader and its display name.
// No argument or "-" reads stdin.
func openInput(args []string) (io.ReadCloser, string, error) {
	if len(args) == 0 || args[0] == "-" {
		return io.NopCloser(os.Stdin), "stdin", nil
	}
	f, err := os.Open(args[0])
	if err != nil {
		return nil, "", fmt.Errorf("open transcript: %w", err)
	}
	return f, args[0], nil
}

type reportJSON struct {
	RunID       string          `json:"run_id"`
	Source      string          `json:"source"`
	Records     int             `json:"records"`
	Orphaned    int             `json:"orphaned"`
	DroppedTail int             `json:"dropped_tail"`
	ParseErrors int             `json:"parse_errors"`
	FailedRows  int             `json:"failed_rows"`
	Failures    []failureJSON   `json:"failures,omitempty"`
	Authors     []authorJSON    `json:"authors"`
	Messages    []store.Message `json:"messages,omitempty"`
}

type failureJSON struct {
	Chunk int    `json:"chunk"`
	Start int    `json:"start"`
	End   int    `json:"end"`
	Error string `json:"error"`
}

type authorJSON struct {
	Author    string           `json:"author"`
	Messages  int64            `json:"messages"`
	MeanScore float64          `json:"mean_score"`
	Positive  int64            `json:"positive"`
	Negative  int64            `json:"negative"`
	Neutral   int64            `json:"neutral"`
	Emojis    map[string]int64 `json:"emojis,omitempty"`
	Hashtags  map[string]int64 `json:"hashtags,omitempty"`
	Mentions  int64            `json:"mentions"`
	URLs      int64            `json:"urls"`
}

func writeReportJSON(w io.Writer, rep *chatsense.Report, msgs []store.Message) error {
	out := reportJSON{
		RunID:       rep.RunID,
		Source:      rep.Source,
		Records:     rep.Records,
		Orphaned:    rep.Orphaned,
		DroppedTail: rep.DroppedTail,
		ParseErrors: rep.ParseErrors,
		FailedRows:  rep.FailedRows,
		Failures:    failures(rep.Partial),
		Authors:     make([]authorJSON, 0, len(rep.Stats.Authors)),
		Messages:    msgs,
	}
	for _, a := range rep.Stats.Authors {
		out.Authors = append(out.Authors, authorJSON{
			Author:    a.Author,
			Messages:  a.Messages,
			MeanScore: a.MeanScore(),
			Positive:  a.Positive,
			Negative:  a.Negative,
			Neutral:   a.Neutral,
			Emojis:    a.Emojis,
			Hashtags:  a.Hashtags,
			Mentions:  a.Mentions,
			URLs:      a.URLs,
		})
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

func failures(p *fanout.PartialResultError) []failureJSON {
	if p == nil {
		return nil
	}
	out := make([]failureJSON, len(p.Failures))
	for i, f := range p.Failures {
		out[i] = failureJSON{Chunk: f.Index, Start: f.Start, End: f.End, Error: f.Err.Error()}
	}
	return out
}

func writeReport(w io.Writer, rep *chatsense.Report, msgs []store.Message) {
	fmt.Fprintf(w, "Run:          %s\n", rep.RunID)
	fmt.Fprintf(w, "Source:       %s\n", rep.Source)
	fmt.Fprintf(w, "Records:      %d\n", rep.Records)
	fmt.Fprintf(w, "Orphaned:     %d\n", rep.Orphaned)
	fmt.Fprintf(w, "Dropped tail: %d\n", rep.DroppedTail)
	fmt.Fprintf(w, "Parse errors: %d\n", rep.ParseErrors)
	for _, pe := range rep.Errors {
		fmt.Fprintf(w, "  %s\n", pe.Error())
	}
	if rep.FailedRows > 0 {
		fmt.Fprintf(w, "Failed rows:  %d\n", rep.FailedRows)
		for _, f := range failures(rep.Partial) {
			fmt.Fprintf(w, "  chunk %d [%d:%d]: %s\n", f.Chunk, f.Start, f.End, f.Error)
		}
	}
	fmt.Fprintln(w)

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "AUTHOR\tMESSAGES\tMEAN\tPOS\tNEG\tNEU\tMENTIONS\tURLS")
	for _, a := range rep.Stats.Authors {
		fmt.Fprintf(tw, "%s\t%d\t%.2f\t%d\t%d\t%d\t%d\t%d\n",
			a.Author, a.Messages, a.MeanScore(), a.Positive, a.Negative, a.Neutral, a.Mentions, a.URLs)
	}
	tw.Flush()

	if len(msgs) == 0 {
		return
	}
	fmt.Fprintln(w)
	tw = tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "LINE\tAUTHOR\tSCORE\tPOLARITY\tTEXT")
	for _, m := range msgs {
		fmt.Fprintf(tw, "%d\t%s\t%.0f\t%s\t%s\n", m.Line, m.Author, m.Score, m.Polarity, truncate(m.Clean, 60))
	}
	tw.Flush()
}

// truncate shortens s to maxLen runes, marking the cut with "...".
func truncate(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return "..."
	}
	return string(r[:maxLen-3]) + "..."
}
