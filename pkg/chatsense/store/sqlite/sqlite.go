package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/cognicore/chatsense/pkg/chatsense/internalerr"
	"github.com/cognicore/chatsense/pkg/chatsense/store"
)

// sqliteStore implements the Store interface using SQLite
type sqliteStore struct {
	db *sql.DB
}

// OpenSQLite opens a SQLite database with WAL mode enabled and the schema
// initialized.
func OpenSQLite(ctx context.Context, path string) (store.Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}

	// Enable WAL mode for better concurrency
	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, err
	}

	if _, err := db.ExecContext(ctx, "PRAGMA foreign_keys=ON"); err != nil {
		db.Close()
		return nil, err
	}

	if err := initSchema(ctx, db); err != nil {
		db.Close()
		return nil, err
	}

	return &sqliteStore{db: db}, nil
}

// Close closes the database connection
func (s *sqliteStore) Close() error {
	return s.db.Close()
}

// initSchema creates tables if they don't exist
func initSchema(ctx context.Context, db *sql.DB) error {
	schema := `
CREATE TABLE IF NOT EXISTS runs (
	id TEXT PRIMARY KEY,
	source TEXT,
	created_at TEXT,
	records INTEGER DEFAULT 0,
	orphaned INTEGER DEFAULT 0,
	dropped_tail INTEGER DEFAULT 0,
	parse_errors INTEGER DEFAULT 0,
	failed_rows INTEGER DEFAULT 0
);

CREATE TABLE IF NOT EXISTS messages (
	id TEXT NOT NULL,
	run_id TEXT NOT NULL,
	seq INTEGER NOT NULL,
	line INTEGER,
	date TEXT,
	time TEXT,
	at TEXT,
	author TEXT,
	text TEXT,
	clean TEXT,
	captures TEXT,
	emojis TEXT,
	features TEXT,
	score REAL,
	polarity TEXT,
	emoji_neg REAL,
	emoji_neut REAL,
	emoji_pos REAL,
	PRIMARY KEY(run_id, id),
	FOREIGN KEY(run_id) REFERENCES runs(id) ON DELETE CASCADE
);

CREATE INDEX IF NOT EXISTS idx_messages_run_seq ON messages(run_id, seq);
CREATE INDEX IF NOT EXISTS idx_messages_author ON messages(run_id, author);
`

	_, err := db.ExecContext(ctx, schema)
	return err
}

// CreateRun inserts a new run
func (s *sqliteStore) CreateRun(ctx context.Context, r store.Run) error {
	if r.ID == "" {
		return fmt.Errorf("run id required: %w", internalerr.ErrInvalidInput)
	}

	_, err := s.db.ExecContext(ctx, `
INSERT INTO runs (id, source, created_at, records, orphaned, dropped_tail, parse_errors, failed_rows)
VALUES (?, ?, ?, ?, ?, ?, ?, ?);
`, r.ID, r.Source, formatTime(r.CreatedAt), r.Records, r.Orphaned, r.DroppedTail, r.ParseErrors, r.FailedRows)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return fmt.Errorf("run %s: %w", r.ID, internalerr.ErrDuplicate)
		}
		return err
	}
	return nil
}

// GetRun loads a run by ID
func (s *sqliteStore) GetRun(ctx context.Context, id string) (store.Run, error) {
	var (
		r       store.Run
		created string
	)
	err := s.db.QueryRowContext(ctx, `
SELECT id, source, created_at, records, orphaned, dropped_tail, parse_errors, failed_rows
FROM runs
WHERE id = ?;
`, id).Scan(&r.ID, &r.Source, &created, &r.Records, &r.Orphaned, &r.DroppedTail, &r.ParseErrors, &r.FailedRows)
	if errors.Is(err, sql.ErrNoRows) {
		return store.Run{}, fmt.Errorf("run %s: %w", id, internalerr.ErrNotFound)
	}
	if err != nil {
		return store.Run{}, err
	}
	r.CreatedAt = parseTime(created)
	return r, nil
}

// UpsertMessages inserts or replaces the given messages in a single transaction
func (s *sqliteStore) UpsertMessages(ctx context.Context, runID string, msgs []store.Message) error {
	if err := s.runExists(ctx, runID); err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
INSERT INTO messages (id, run_id, seq, line, date, time, at, author, text, clean,
	captures, emojis, features, score, polarity, emoji_neg, emoji_neut, emoji_pos)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(run_id, id) DO UPDATE SET
	seq=excluded.seq,
	line=excluded.line,
	date=excluded.date,
	time=excluded.time,
	at=excluded.at,
	author=excluded.author,
	text=excluded.text,
	clean=excluded.clean,
	captures=excluded.captures,
	emojis=excluded.emojis,
	features=excluded.features,
	score=excluded.score,
	polarity=excluded.polarity,
	emoji_neg=excluded.emoji_neg,
	emoji_neut=excluded.emoji_neut,
	emoji_pos=excluded.emoji_pos;
`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, m := range msgs {
		if m.ID == "" {
			return fmt.Errorf("message id required: %w", internalerr.ErrInvalidInput)
		}
		captures, err := json.Marshal(m.Captures)
		if err != nil {
			return err
		}
		emojis, err := json.Marshal(m.Emojis)
		if err != nil {
			return err
		}
		feats, err := json.Marshal(m.Features)
		if err != nil {
			return err
		}

		if _, err := stmt.ExecContext(ctx,
			m.ID, runID, m.Seq, m.Line, m.Date, m.Time, formatTime(m.At), m.Author, m.Text, m.Clean,
			string(captures), string(emojis), string(feats),
			m.Score, m.Polarity, m.EmojiNeg, m.EmojiNeut, m.EmojiPos,
		); err != nil {
			return fmt.Errorf("upsert message %s: %w", m.ID, err)
		}
	}

	return tx.Commit()
}

// ListMessages returns the run's messages in sequence order
func (s *sqliteStore) ListMessages(ctx context.Context, runID string, f store.Filter) ([]store.Message, error) {
	if err := s.runExists(ctx, runID); err != nil {
		return nil, err
	}

	query := `
SELECT id, run_id, seq, line, date, time, at, author, text, clean,
	captures, emojis, features, score, polarity, emoji_neg, emoji_neut, emoji_pos
FROM messages
WHERE run_id = ?`
	args := []interface{}{runID}
	if f.Author != "" {
		query += ` AND author = ?`
		args = append(args, f.Author)
	}
	if f.Polarity != "" {
		query += ` AND polarity = ?`
		args = append(args, f.Polarity)
	}
	query += ` ORDER BY seq`
	if f.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, f.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []store.Message
	for rows.Next() {
		var (
			m                       store.Message
			at                      string
			captures, emojis, feats string
		)
		if err := rows.Scan(&m.ID, &m.RunID, &m.Seq, &m.Line, &m.Date, &m.Time, &at, &m.Author, &m.Text, &m.Clean,
			&captures, &emojis, &feats, &m.Score, &m.Polarity, &m.EmojiNeg, &m.EmojiNeut, &m.EmojiPos); err != nil {
			return nil, err
		}
		m.At = parseTime(at)
		if err := json.Unmarshal([]byte(captures), &m.Captures); err != nil {
			return nil, fmt.Errorf("decode captures of %s: %w", m.ID, err)
		}
		if err := json.Unmarshal([]byte(emojis), &m.Emojis); err != nil {
			return nil, fmt.Errorf("decode emojis of %s: %w", m.ID, err)
		}
		if err := json.Unmarshal([]byte(feats), &m.Features); err != nil {
			return nil, fmt.Errorf("decode features of %s: %w", m.ID, err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// AuthorSummaries aggregates the run's messages per author, most active first
func (s *sqliteStore) AuthorSummaries(ctx context.Context, runID string) ([]store.AuthorSummary, error) {
	if err := s.runExists(ctx, runID); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
SELECT author,
	COUNT(*),
	COALESCE(SUM(score), 0),
	SUM(CASE WHEN polarity = 'positive' THEN 1 ELSE 0 END),
	SUM(CASE WHEN polarity = 'negative' THEN 1 ELSE 0 END),
	SUM(CASE WHEN polarity NOT IN ('positive', 'negative') THEN 1 ELSE 0 END)
FROM messages
WHERE run_id = ?
GROUP BY author
ORDER BY COUNT(*) DESC, author ASC;
`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []store.AuthorSummary
	for rows.Next() {
		var sum store.AuthorSummary
		if err := rows.Scan(&sum.Author, &sum.Messages, &sum.ScoreSum, &sum.Positive, &sum.Negative, &sum.Neutral); err != nil {
			return nil, err
		}
		out = append(out, sum)
	}
	return out, rows.Err()
}

func (s *sqliteStore) runExists(ctx context.Context, runID string) error {
	var count int64
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM runs WHERE id = ?`, runID).Scan(&count); err != nil {
		return err
	}
	if count == 0 {
		return fmt.Errorf("run %s: %w", runID, internalerr.ErrNotFound)
	}
	return nil
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

func parseTime(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	parsed, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}
	}
	return parsed
}
