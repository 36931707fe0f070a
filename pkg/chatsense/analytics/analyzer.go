package analytics

import (
	"math"
	"sort"
	"time"

	"github.com/cognicore/chatsense/pkg/chatsense/lexicon"
	"github.com/cognicore/chatsense/pkg/chatsense/pipeline"
	"github.com/cognicore/chatsense/pkg/chatsense/rules"
)

// AuthorStats aggregates the messages of one author.
type AuthorStats struct {
	Author   string
	Messages int64
	ScoreSum float64

	Positive int64
	Negative int64
	Neutral  int64

	Emojis   map[string]int64
	Hashtags map[string]int64
	Mentions int64
	URLs     int64

	First time.Time
	Last  time.Time
}

// MeanScore returns the average lexicon score per message.
func (s AuthorStats) MeanScore() float64 {
	if s.Messages == 0 {
		return 0
	}
	return s.ScoreSum / float64(s.Messages)
}

// Analyzer aggregates per-author and corpus-level feature statistics.
// Not safe for concurrent use.
type Analyzer struct {
	totalMessages int64
	authors       map[string]*AuthorStats
	tokenDF       map[string]int64
}

// NewAnalyzer creates an empty analyzer.
func NewAnalyzer() *Analyzer {
	return &Analyzer{
		authors: make(map[string]*AuthorStats),
		tokenDF: make(map[string]int64),
	}
}

// Process consumes one analysed message.
func (a *Analyzer) Process(msg pipeline.Message) {
	a.totalMessages++

	st := a.authors[msg.Author]
	if st == nil {
		st = &AuthorStats{
			Author:   msg.Author,
			Emojis:   make(map[string]int64),
			Hashtags: make(map[string]int64),
		}
		a.authors[msg.Author] = st
	}

	st.Messages++
	st.ScoreSum += msg.Score.Value
	switch msg.Score.Polarity {
	case lexicon.Positive:
		st.Positive++
	case lexicon.Negative:
		st.Negative++
	default:
		st.Neutral++
	}

	for _, e := range msg.Emojis {
		st.Emojis[e]++
	}
	for _, tag := range msg.Captures[rules.HashTag] {
		st.Hashtags[tag]++
	}
	st.Mentions += int64(len(msg.Captures[rules.AtUser]))
	st.URLs += int64(len(msg.Captures[rules.URL]))

	if !msg.At.IsZero() {
		if st.First.IsZero() || msg.At.Before(st.First) {
			st.First = msg.At
		}
		if msg.At.After(st.Last) {
			st.Last = msg.At
		}
	}

	seen := make(map[string]struct{}, len(msg.Features))
	for _, tok := range msg.Features {
		if _, ok := seen[tok]; ok {
			continue
		}
		seen[tok] = struct{}{}
		a.tokenDF[tok]++
	}
}

// Stats exposes the aggregated counts.
type Stats struct {
	TotalMessages int64
	Authors       []AuthorStats
	TokenDF       map[string]int64
}

// Snapshot returns a copy of the accumulated statistics. Authors are ordered
// by message count, then name.
func (a *Analyzer) Snapshot() Stats {
	authors := make([]AuthorStats, 0, len(a.authors))
	for _, st := range a.authors {
		cp := *st
		cp.Emojis = copyCounts(st.Emojis)
		cp.Hashtags = copyCounts(st.Hashtags)
		authors = append(authors, cp)
	}
	sort.Slice(authors, func(i, j int) bool {
		if authors[i].Messages == authors[j].Messages {
			return authors[i].Author < authors[j].Author
		}
		return authors[i].Messages > authors[j].Messages
	})

	return Stats{
		TotalMessages: a.totalMessages,
		Authors:       authors,
		TokenDF:       copyCounts(a.tokenDF),
	}
}

// TokenStat describes how widely a feature token is spread over messages.
type TokenStat struct {
	Token     string
	DF        int64
	DFPercent float64
	IDF       float64
}

// TokenStats returns per-token document frequency, most frequent first.
func (s Stats) TokenStats() []TokenStat {
	if s.TotalMessages == 0 {
		return nil
	}
	out := make([]TokenStat, 0, len(s.TokenDF))
	for tok, df := range s.TokenDF {
		out = append(out, TokenStat{
			Token:     tok,
			DF:        df,
			DFPercent: 100 * float64(df) / float64(s.TotalMessages),
			IDF:       math.Log(float64(s.TotalMessages) / (1 + float64(df))),
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].DF == out[j].DF {
			return out[i].Token < out[j].Token
		}
		return out[i].DF > out[j].DF
	})
	return out
}

// StopwordCandidates returns tokens that occur in at least minPercent of all
// messages. They are candidates for the stop-word list.
func (s Stats) StopwordCandidates(minPercent float64) []string {
	var out []string
	for _, ts := range s.TokenStats() {
		if ts.DFPercent >= minPercent {
			out = append(out, ts.Token)
		}
	}
	return out
}

func copyCounts(m map[string]int64) map[string]int64 {
	out := make(map[string]int64, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
