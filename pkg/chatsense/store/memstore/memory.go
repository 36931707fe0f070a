package memstore

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/cognicore/chatsense/pkg/chatsense/internalerr"
	"github.com/cognicore/chatsense/pkg/chatsense/store"
)

// Store is an in-memory implementation of store.Store for tests and
// one-shot CLI runs.
type Store struct {
	mu       sync.RWMutex
	runs     map[string]store.Run
	messages map[string]map[string]store.Message // run ID → message ID → message
}

// New creates a new in-memory store.
func New() *Store {
	return &Store{
		runs:     make(map[string]store.Run),
		messages: make(map[string]map[string]store.Message),
	}
}

// Close implements store.Store.
func (s *Store) Close() error { return nil }

// CreateRun registers a new run. IDs must be unique.
func (s *Store) CreateRun(ctx context.Context, r store.Run) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if r.ID == "" {
		return fmt.Errorf("run id required: %w", internalerr.ErrInvalidInput)
	}
	if _, ok := s.runs[r.ID]; ok {
		return fmt.Errorf("run %s: %w", r.ID, internalerr.ErrDuplicate)
	}
	s.runs[r.ID] = r
	s.messages[r.ID] = make(map[string]store.Message)
	return nil
}

// GetRun returns a run by ID.
func (s *Store) GetRun(ctx context.Context, id string) (store.Run, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, ok := s.runs[id]
	if !ok {
		return store.Run{}, fmt.Errorf("run %s: %w", id, internalerr.ErrNotFound)
	}
	return r, nil
}

// UpsertMessages inserts or replaces messages of a run, keyed by message ID.
func (s *Store) UpsertMessages(ctx context.Context, runID string, msgs []store.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	byID, ok := s.messages[runID]
	if !ok {
		return fmt.Errorf("run %s: %w", runID, internalerr.ErrNotFound)
	}
	for _, m := range msgs {
		if m.ID == "" {
			return fmt.Errorf("message id required: %w", internalerr.ErrInvalidInput)
		}
		m.RunID = runID
		byID[m.ID] = copyMessage(m)
	}
	return nil
}

// ListMessages returns the matching messages of a run in sequence order.
func (s *Store) ListMessages(ctx context.Context, runID string, f store.Filter) ([]store.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	byID, ok := s.messages[runID]
	if !ok {
		return nil, fmt.Errorf("run %s: %w", runID, internalerr.ErrNotFound)
	}

	var out []store.Message
	for _, m := range byID {
		if f.Author != "" && m.Author != f.Author {
			continue
		}
		if f.Polarity != "" && m.Polarity != f.Polarity {
			continue
		}
		out = append(out, copyMessage(m))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Seq < out[j].Seq })

	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out, nil
}

// AuthorSummaries aggregates the run's messages per author, most active first.
func (s *Store) AuthorSummaries(ctx context.Context, runID string) ([]store.AuthorSummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	byID, ok := s.messages[runID]
	if !ok {
		return nil, fmt.Errorf("run %s: %w", runID, internalerr.ErrNotFound)
	}

	sums := make(map[string]*store.AuthorSummary)
	for _, m := range byID {
		sum := sums[m.Author]
		if sum == nil {
			sum = &store.AuthorSummary{Author: m.Author}
			sums[m.Author] = sum
		}
		sum.Messages++
		sum.ScoreSum += m.Score
		switch m.Polarity {
		case "positive":
			sum.Positive++
		case "negative":
			sum.Negative++
		default:
			sum.Neutral++
		}
	}

	out := make([]store.AuthorSummary, 0, len(sums))
	for _, sum := range sums {
		out = append(out, *sum)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Messages == out[j].Messages {
			return out[i].Author < out[j].Author
		}
		return out[i].Messages > out[j].Messages
	})
	return out, nil
}

func copyMessage(m store.Message) store.Message {
	cp := m
	if m.Captures != nil {
		cp.Captures = make(map[string][]string, len(m.Captures))
		for k, v := range m.Captures {
			cp.Captures[k] = append([]string{}, v...)
		}
	}
	cp.Emojis = append([]string(nil), m.Emojis...)
	cp.Features = append([]string(nil), m.Features...)
	return cp
}
