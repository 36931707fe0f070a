// Package pipeline turns assembled transcript records into analysed messages.
//
// Per record: emoji extraction → normalization → feature vector → lexicon
// score → emoji sentiment.
package pipeline

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/cognicore/chatsense/pkg/chatsense/emojisent"
	"github.com/cognicore/chatsense/pkg/chatsense/fanout"
	"github.com/cognicore/chatsense/pkg/chatsense/features"
	"github.com/cognicore/chatsense/pkg/chatsense/lexicon"
	"github.com/cognicore/chatsense/pkg/chatsense/normalize"
	"github.com/cognicore/chatsense/pkg/chatsense/transcript"
)

// Message is a record after processing.
type Message struct {
	transcript.Record

	Clean    string
	Captures map[string][]string
	Emojis   []string
	Features []string

	Score          lexicon.Score
	EmojiSentiment emojisent.Sentiment
}

// Pipeline orchestrates per-record processing. All components are shared
// read-only, so one Pipeline may serve many goroutines.
type Pipeline struct {
	normalizer *normalize.Normalizer
	extractor  *features.Extractor
	scorer     *lexicon.Scorer
	emoji      *emojisent.Table
	metrics    *Metrics
}

// New creates a pipeline. A nil extractor scores the whitespace-split
// cleaned text directly; a nil emoji table yields zero emoji sentiment.
func New(normalizer *normalize.Normalizer, extractor *features.Extractor, scorer *lexicon.Scorer, emoji *emojisent.Table) *Pipeline {
	if normalizer == nil {
		normalizer = normalize.New(nil)
	}
	if scorer == nil {
		scorer = lexicon.NewScorer()
	}
	if emoji == nil {
		emoji = emojisent.NewTable(nil)
	}
	return &Pipeline{
		normalizer: normalizer,
		extractor:  extractor,
		scorer:     scorer,
		emoji:      emoji,
	}
}

// WithMetrics attaches Prometheus counters to the pipeline.
func (p *Pipeline) WithMetrics(m *Metrics) *Pipeline {
	p.metrics = m
	return p
}

// Process runs a record through the pipeline.
func (p *Pipeline) Process(rec transcript.Record) Message {
	// 1. Emoji are taken from the raw message and removed from the text
	// the rest of the pipeline sees.
	emoji := normalize.ExtractEmoji(rec.Message)

	// 2. Normalize (lower-case, rule substitutions, captures)
	norm := p.normalizer.Normalize(emoji.Text)

	// 3. Feature vector
	var tokens []string
	if p.extractor != nil {
		tokens = p.extractor.Vector(norm.Text)
	} else {
		tokens = strings.Fields(norm.Text)
	}
	if tokens == nil {
		tokens = []string{}
	}

	// 4. Scores
	score := p.scorer.Score(tokens)
	p.metrics.observe(score.Polarity)

	return Message{
		Record:         rec,
		Clean:          norm.Text,
		Captures:       norm.Captures,
		Emojis:         emoji.Emojis,
		Features:       tokens,
		Score:          score,
		EmojiSentiment: p.emoji.Average(emoji.Emojis),
	}
}

// BatchOptions controls ProcessBatch.
type BatchOptions struct {
	// Parallel enables chunked fan-out; otherwise records are processed
	// sequentially on the calling goroutine.
	Parallel bool
	Fanout   fanout.Options
	Logger   *zap.Logger
}

// ProcessBatch processes records in order. In parallel best-effort mode the
// returned error may be a *fanout.PartialResultError accompanied by the
// messages of the successful chunks.
func (p *Pipeline) ProcessBatch(ctx context.Context, recs []transcript.Record, opts BatchOptions) ([]Message, error) {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	if !opts.Parallel {
		out := make([]Message, 0, len(recs))
		for _, rec := range recs {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			out = append(out, p.Process(rec))
		}
		logger.Debug("processed batch", zap.Int("records", len(out)))
		return out, nil
	}

	fo := opts.Fanout
	if fo.Logger == nil {
		fo.Logger = logger
	}
	return fanout.Run(ctx, recs, p.processChunk, fo)
}

func (p *Pipeline) processChunk(ctx context.Context, chunk []transcript.Record) ([]Message, error) {
	out := make([]Message, 0, len(chunk))
	for _, rec := range chunk {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		out = append(out, p.Process(rec))
	}
	return out, nil
}
