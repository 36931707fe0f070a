package chatsense

import (
	"context"
	"crypto/rand"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"

	"github.com/cognicore/chatsense/internal/htmltext"
	"github.com/cognicore/chatsense/pkg/chatsense/analytics"
	"github.com/cognicore/chatsense/pkg/chatsense/fanout"
	"github.com/cognicore/chatsense/pkg/chatsense/pipeline"
	"github.com/cognicore/chatsense/pkg/chatsense/store"
	"github.com/cognicore/chatsense/pkg/chatsense/store/memstore"
	"github.com/cognicore/chatsense/pkg/chatsense/transcript"
)

// Engine is the main facade: transcript in, analysed and stored messages out
type Engine struct {
	store    store.Store
	pipeline *pipeline.Pipeline
	dropTail bool
	batch    pipeline.BatchOptions
	logger   *zap.Logger
	now      func() time.Time

	mu      sync.Mutex
	entropy *ulid.MonotonicEntropy
}

// Options configures an Engine
type Options struct {
	Store    store.Store // nil selects an in-memory store
	Pipeline *pipeline.Pipeline
	DropTail bool
	Batch    pipeline.BatchOptions
	Logger   *zap.Logger
}

// New creates an Engine with the given dependencies
func New(opts Options) *Engine {
	st := opts.Store
	if st == nil {
		st = memstore.New()
	}
	p := opts.Pipeline
	if p == nil {
		p = pipeline.New(nil, nil, nil, nil)
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	batch := opts.Batch
	if batch.Logger == nil {
		batch.Logger = logger
	}
	return &Engine{
		store:    st,
		pipeline: p,
		dropTail: opts.DropTail,
		batch:    batch,
		logger:   logger,
		now:      time.Now,
		entropy:  ulid.Monotonic(rand.Reader, 0),
	}
}

// Close cleanly shuts down the engine
func (e *Engine) Close() error {
	return e.store.Close()
}

// AnalyzeOptions describes the transcript being analysed
type AnalyzeOptions struct {
	// Source names the input (usually a file name); stored with the run.
	Source string
	// HTML parses the input as an HTML export. It is implied by a Source
	// ending in .html or .htm.
	HTML bool
}

// Report summarises one Analyze call
type Report struct {
	RunID       string
	Source      string
	Records     int
	Orphaned    int
	DroppedTail int
	ParseErrors int
	Errors      []transcript.ParseError
	FailedRows  int
	// Partial is set when best-effort fan-out skipped chunks.
	Partial *fanout.PartialResultError
	Stats   analytics.Stats
}

// Analyze assembles the transcript, runs every record through the pipeline,
// stores the run with its messages and aggregates per-author statistics.
//
// In best-effort mode failed chunks do not fail the call; they are reported
// through Report.FailedRows and Report.Partial.
func (e *Engine) Analyze(ctx context.Context, r io.Reader, opts AnalyzeOptions) (*Report, error) {
	res, err := e.assemble(r, opts)
	if err != nil {
		return nil, err
	}

	msgs, err := e.pipeline.ProcessBatch(ctx, res.Records, e.batch)
	var partial *fanout.PartialResultError
	if err != nil {
		p, ok := fanout.IsPartial(err)
		if !ok || ctx.Err() != nil {
			return nil, fmt.Errorf("process records: %w", err)
		}
		partial = p
	}

	rep := &Report{
		RunID:       e.newID(),
		Source:      opts.Source,
		Records:     len(res.Records),
		Orphaned:    res.Orphaned,
		DroppedTail: res.DroppedTail,
		ParseErrors: res.ErrorCount,
		Errors:      res.Errors,
		Partial:     partial,
	}
	if partial != nil {
		rep.FailedRows = partial.Skipped
	}

	run := store.Run{
		ID:          rep.RunID,
		Source:      rep.Source,
		CreatedAt:   e.now(),
		Records:     rep.Records,
		Orphaned:    rep.Orphaned,
		DroppedTail: rep.DroppedTail,
		ParseErrors: rep.ParseErrors,
		FailedRows:  rep.FailedRows,
	}
	if err := e.store.CreateRun(ctx, run); err != nil {
		return nil, fmt.Errorf("create run: %w", err)
	}

	analyzer := analytics.NewAnalyzer()
	stored := make([]store.Message, len(msgs))
	for i, m := range msgs {
		analyzer.Process(m)
		stored[i] = e.toStoreMessage(i, m)
	}
	if err := e.store.UpsertMessages(ctx, run.ID, stored); err != nil {
		return nil, fmt.Errorf("store messages: %w", err)
	}
	rep.Stats = analyzer.Snapshot()

	e.logger.Info("analysed transcript",
		zap.String("run", rep.RunID),
		zap.String("source", rep.Source),
		zap.Int("records", rep.Records),
		zap.Int("orphaned", rep.Orphaned),
		zap.Int("parse_errors", rep.ParseErrors),
		zap.Int("failed_rows", rep.FailedRows))
	return rep, nil
}

// Messages lists stored messages of a run
func (e *Engine) Messages(ctx context.Context, runID string, f store.Filter) ([]store.Message, error) {
	return e.store.ListMessages(ctx, runID, f)
}

// Authors returns stored per-author summaries of a run
func (e *Engine) Authors(ctx context.Context, runID string) ([]store.AuthorSummary, error) {
	return e.store.AuthorSummaries(ctx, runID)
}

// Run returns a stored run
func (e *Engine) Run(ctx context.Context, runID string) (store.Run, error) {
	return e.store.GetRun(ctx, runID)
}

func (e *Engine) assemble(r io.Reader, opts AnalyzeOptions) (*transcript.Result, error) {
	asm := transcript.NewAssembler(transcript.Options{DropTail: e.dropTail, Logger: e.logger})

	if opts.HTML || htmltext.IsHTML(opts.Source) {
		lines, err := htmltext.Lines(r)
		if err != nil {
			return nil, err
		}
		return asm.Assemble(transcript.Lines(lines)), nil
	}

	res, err := asm.AssembleReader(r)
	if err != nil {
		return nil, fmt.Errorf("read transcript: %w", err)
	}
	return res, nil
}

func (e *Engine) newID() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return ulid.MustNew(ulid.Timestamp(e.now()), e.entropy).String()
}

func (e *Engine) toStoreMessage(seq int, m pipeline.Message) store.Message {
	return store.Message{
		ID:        e.newID(),
		Seq:       seq,
		Line:      m.Line,
		Date:      m.Date,
		Time:      m.Time,
		At:        m.At,
		Author:    m.Author,
		Text:      m.Message,
		Clean:     m.Clean,
		Captures:  m.Captures,
		Emojis:    m.Emojis,
		Features:  m.Features,
		Score:     m.Score.Value,
		Polarity:  string(m.Score.Polarity),
		EmojiNeg:  m.EmojiSentiment.Neg,
		EmojiNeut: m.EmojiSentiment.Neut,
		EmojiPos:  m.EmojiSentiment.Pos,
	}
}
