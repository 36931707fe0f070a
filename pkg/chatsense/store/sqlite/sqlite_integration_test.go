package sqlite

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/cognicore/chatsense/pkg/chatsense/internalerr"
	"github.com/cognicore/chatsense/pkg/chatsense/store"
)

func openTestStore(t *testing.T) store.Store {
	t.Helper()
	st, err := OpenSQLite(context.Background(), filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	t.Cleanup(func() { st.Close() })
	return st
}

// TestSQLiteIntegrationBasic tests run and message round trips
func TestSQLiteIntegrationBasic(t *testing.T) {
	ctx := context.Background()
	st := openTestStore(t)

	created := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	run := store.Run{ID: "01HRUN", Source: "chat.txt", CreatedAt: created, Records: 2, Orphaned: 1, ParseErrors: 1}
	if err := st.CreateRun(ctx, run); err != nil {
		t.Fatalf("CreateRun: %v", err)
	}

	got, err := st.GetRun(ctx, run.ID)
	if err != nil {
		t.Fatalf("GetRun: %v", err)
	}
	if got.Source != run.Source || got.Records != 2 || got.Orphaned != 1 || got.ParseErrors != 1 {
		t.Errorf("run mismatch: got %+v", got)
	}
	if !got.CreatedAt.Equal(created) {
		t.Errorf("CreatedAt mismatch: got %v, want %v", got.CreatedAt, created)
	}

	at := time.Date(2022, 12, 11, 7, 2, 11, 0, time.UTC)
	msgs := []store.Message{
		{
			ID: "m1", Seq: 0, Line: 2, Date: "11.12.2022", Time: "07:02:11", At: at,
			Author: "Alice", Text: "Hello @bob http://x.com", Clean: "hello at_user url",
			Captures: map[string][]string{"url": {"http://x.com"}, "at_user": {"@bob"}, "hash_tag": {}},
			Emojis:   []string{"😂"},
			Features: []string{"hello", "url"},
			Score:    2, Polarity: "positive",
			EmojiPos: 0.7, EmojiNeg: 0.2, EmojiNeut: 0.1,
		},
		{ID: "m2", Seq: 1, Line: 3, Author: "Bob", Text: "meh", Clean: "meh", Polarity: "neutral"},
	}
	if err := st.UpsertMessages(ctx, run.ID, msgs); err != nil {
		t.Fatalf("UpsertMessages: %v", err)
	}

	list, err := st.ListMessages(ctx, run.ID, store.Filter{})
	if err != nil {
		t.Fatalf("ListMessages: %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(list))
	}

	m := list[0]
	if m.ID != "m1" || m.RunID != run.ID || m.Line != 2 {
		t.Errorf("unexpected first message: %+v", m)
	}
	if !m.At.Equal(at) {
		t.Errorf("At mismatch: got %v, want %v", m.At, at)
	}
	if len(m.Captures["url"]) != 1 || m.Captures["url"][0] != "http://x.com" {
		t.Errorf("captures not round-tripped: %v", m.Captures)
	}
	if c, ok := m.Captures["hash_tag"]; !ok || len(c) != 0 {
		t.Errorf("empty capture key lost: %v", m.Captures)
	}
	if len(m.Emojis) != 1 || m.Emojis[0] != "😂" {
		t.Errorf("emojis not round-tripped: %v", m.Emojis)
	}
	if m.EmojiPos != 0.7 || m.Score != 2 {
		t.Errorf("scores not round-tripped: %+v", m)
	}
	if !list[1].At.IsZero() {
		t.Errorf("expected zero time for message without timestamp, got %v", list[1].At)
	}
}

func TestSQLiteDuplicateAndMissingRun(t *testing.T) {
	ctx := context.Background()
	st := openTestStore(t)

	if err := st.CreateRun(ctx, store.Run{ID: "r"}); err != nil {
		t.Fatalf("CreateRun: %v", err)
	}
	if err := st.CreateRun(ctx, store.Run{ID: "r"}); !errors.Is(err, internalerr.ErrDuplicate) {
		t.Fatalf("expected ErrDuplicate, got %v", err)
	}
	if _, err := st.GetRun(ctx, "missing"); !errors.Is(err, internalerr.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := st.UpsertMessages(ctx, "missing", []store.Message{{ID: "x"}}); !errors.Is(err, internalerr.ErrNotFound) {
		t.Fatalf("expected ErrNotFound on upsert, got %v", err)
	}
	if err := st.UpsertMessages(ctx, "r", []store.Message{{}}); !errors.Is(err, internalerr.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for empty id, got %v", err)
	}
}

func TestSQLiteFiltersAndSummaries(t *testing.T) {
	ctx := context.Background()
	st := openTestStore(t)

	if err := st.CreateRun(ctx, store.Run{ID: "r"}); err != nil {
		t.Fatalf("CreateRun: %v", err)
	}
	msgs := []store.Message{
		{ID: "a", Seq: 0, Author: "Alice", Score: 3, Polarity: "positive"},
		{ID: "b", Seq: 1, Author: "Bob", Score: -1, Polarity: "negative"},
		{ID: "c", Seq: 2, Author: "Alice", Score: 0, Polarity: "neutral"},
		{ID: "d", Seq: 3, Author: "Alice", Score: -2, Polarity: "negative"},
	}
	if err := st.UpsertMessages(ctx, "r", msgs); err != nil {
		t.Fatalf("UpsertMessages: %v", err)
	}

	alice, err := st.ListMessages(ctx, "r", store.Filter{Author: "Alice", Limit: 2})
	if err != nil {
		t.Fatalf("ListMessages: %v", err)
	}
	if len(alice) != 2 || alice[0].ID != "a" || alice[1].ID != "c" {
		t.Fatalf("unexpected filtered messages: %+v", alice)
	}

	neg, err := st.ListMessages(ctx, "r", store.Filter{Polarity: "negative"})
	if err != nil {
		t.Fatalf("ListMessages: %v", err)
	}
	if len(neg) != 2 {
		t.Fatalf("expected 2 negative messages, got %d", len(neg))
	}

	// Re-upserting replaces in place.
	if err := st.UpsertMessages(ctx, "r", []store.Message{{ID: "d", Seq: 3, Author: "Alice", Score: 1, Polarity: "positive"}}); err != nil {
		t.Fatalf("UpsertMessages: %v", err)
	}

	sums, err := st.AuthorSummaries(ctx, "r")
	if err != nil {
		t.Fatalf("AuthorSummaries: %v", err)
	}
	if len(sums) != 2 {
		t.Fatalf("expected 2 authors, got %d", len(sums))
	}
	want := store.AuthorSummary{Author: "Alice", Messages: 3, ScoreSum: 4, Positive: 2, Neutral: 1}
	if sums[0] != want {
		t.Errorf("Alice summary: got %+v, want %+v", sums[0], want)
	}
	if sums[1].Author != "Bob" || sums[1].Negative != 1 {
		t.Errorf("Bob summary: got %+v", sums[1])
	}
}
