package store

import (
	"context"
	"time"
)

// Store is the main interface for persisting analysis runs and their messages
type Store interface {
	Close() error

	// Runs
	CreateRun(ctx context.Context, r Run) error
	GetRun(ctx context.Context, id string) (Run, error)

	// Messages
	UpsertMessages(ctx context.Context, runID string, msgs []Message) error
	ListMessages(ctx context.Context, runID string, f Filter) ([]Message, error)
	AuthorSummaries(ctx context.Context, runID string) ([]AuthorSummary, error)
}

// Run describes one analysed transcript
type Run struct {
	ID          string
	Source      string
	CreatedAt   time.Time
	Records     int
	Orphaned    int
	DroppedTail int
	ParseErrors int
	FailedRows  int
}

// Message is a stored, analysed transcript record
type Message struct {
	ID     string
	RunID  string
	Seq    int // position within the run
	Line   int // 1-based header line in the source
	Date   string
	Time   string
	At     time.Time
	Author string
	Text   string
	Clean  string

	Captures map[string][]string
	Emojis   []string
	Features []string

	Score    float64
	Polarity string

	EmojiNeg  float64
	EmojiNeut float64
	EmojiPos  float64
}

// Filter narrows ListMessages. Zero values match everything.
type Filter struct {
	Author   string
	Polarity string
	Limit    int
}

// AuthorSummary aggregates the stored messages of one author
type AuthorSummary struct {
	Author   string
	Messages int64
	ScoreSum float64
	Positive int64
	Negative int64
	Neutral  int64
}
