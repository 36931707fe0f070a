// Package emojisent looks up the sentiment distribution of emoji from an
// occurrence table (emoji, total occurrences, negative/neutral/positive counts).
package emojisent

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/cognicore/chatsense/pkg/chatsense/internalerr"
)

// Required column names of the sentiment table.
const (
	ColEmoji       = "Emoji"
	ColOccurrences = "Occurrences"
	ColNegative    = "Negative"
	ColNeutral     = "Neutral"
	ColPositive    = "Positive"
)

// Sentiment holds the share of negative, neutral and positive occurrences of
// an emoji. For a known emoji the three values sum to 1.
type Sentiment struct {
	Neg  float64 `json:"neg"`
	Neut float64 `json:"neut"`
	Pos  float64 `json:"pos"`
}

// Table maps emoji to normalized sentiment. Read-only after loading.
type Table struct {
	entries map[string]Sentiment
}

// Row is one raw table row before normalization.
type Row struct {
	Emoji       string
	Occurrences float64
	Negative    float64
	Neutral     float64
	Positive    float64
}

// NewTable builds a table from raw rows, dividing each count by the
// occurrence total. Rows with no occurrences are kept with zero sentiment.
func NewTable(rows []Row) *Table {
	t := &Table{entries: make(map[string]Sentiment, len(rows))}
	for _, r := range rows {
		var s Sentiment
		if r.Occurrences > 0 {
			s = Sentiment{
				Neg:  r.Negative / r.Occurrences,
				Neut: r.Neutral / r.Occurrences,
				Pos:  r.Positive / r.Occurrences,
			}
		}
		t.entries[r.Emoji] = s
	}
	return t
}

// ParseCSV reads a comma-separated table with a header row. Columns are
// located by name; extra columns are ignored.
func ParseCSV(r io.Reader) (*Table, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return NewTable(nil), nil
		}
		return nil, fmt.Errorf("read header: %w", err)
	}

	idx := make(map[string]int, len(header))
	for i, h := range header {
		idx[strings.TrimSpace(h)] = i
	}
	for _, col := range []string{ColEmoji, ColOccurrences, ColNegative, ColNeutral, ColPositive} {
		if _, ok := idx[col]; !ok {
			return nil, fmt.Errorf("missing column %q: %w", col, internalerr.ErrInvalidInput)
		}
	}

	var rows []Row
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read row: %w", err)
		}

		row := Row{Emoji: field(rec, idx[ColEmoji])}
		for col, dst := range map[string]*float64{
			ColOccurrences: &row.Occurrences,
			ColNegative:    &row.Negative,
			ColNeutral:     &row.Neutral,
			ColPositive:    &row.Positive,
		} {
			v, err := strconv.ParseFloat(strings.TrimSpace(field(rec, idx[col])), 64)
			if err != nil {
				line, _ := cr.FieldPos(0)
				return nil, fmt.Errorf("line %d: column %s: %w", line, col, internalerr.ErrInvalidInput)
			}
			*dst = v
		}
		rows = append(rows, row)
	}
	return NewTable(rows), nil
}

// LoadFile reads a CSV sentiment table from disk.
func LoadFile(path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ParseCSV(f)
}

// Len returns the number of emoji in the table.
func (t *Table) Len() int { return len(t.entries) }

// Lookup returns the sentiment of emoji. Unknown emoji yield the zero value.
func (t *Table) Lookup(emoji string) Sentiment {
	return t.entries[emoji]
}

// Known reports whether the table has an entry for emoji.
func (t *Table) Known(emoji string) bool {
	_, ok := t.entries[emoji]
	return ok
}

// Average returns the mean sentiment over emojis; unknown emoji count as
// zero. An empty list yields the zero value.
func (t *Table) Average(emojis []string) Sentiment {
	if len(emojis) == 0 {
		return Sentiment{}
	}
	var sum Sentiment
	for _, e := range emojis {
		s := t.Lookup(e)
		sum.Neg += s.Neg
		sum.Neut += s.Neut
		sum.Pos += s.Pos
	}
	n := float64(len(emojis))
	return Sentiment{Neg: sum.Neg / n, Neut: sum.Neut / n, Pos: sum.Pos / n}
}

func field(rec []string, i int) string {
	if i < len(rec) {
		return rec[i]
	}
	return ""
}
