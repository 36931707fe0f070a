package stoplist

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
)

// Synthetic stop words that are always present. They are the upper-case
// forms of the placeholders the default normalization rules insert.
var synthetic = []string{"AT_USER", "URL"}

// Manager holds the stop-word set. Membership is exact (case-sensitive),
// since feature extraction checks tokens before lower-casing them.
type Manager struct {
	stops map[string]struct{}
	order []string
}

// NewManager creates a manager seeded with the synthetic entries followed by
// initialStops.
func NewManager(initialStops []string) *Manager {
	m := &Manager{stops: make(map[string]struct{}, len(initialStops)+len(synthetic))}
	for _, s := range synthetic {
		m.Add(s)
	}
	for _, s := range initialStops {
		m.Add(s)
	}
	return m
}

// Load reads a newline-delimited stop-word list. Each line is trimmed;
// blank lines are skipped.
func Load(r io.Reader) (*Manager, error) {
	var words []string
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		w := strings.TrimSpace(scanner.Text())
		if w == "" {
			continue
		}
		words = append(words, w)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read stop words: %w", err)
	}
	return NewManager(words), nil
}

// LoadFile reads a stop-word list from disk.
func LoadFile(path string) (*Manager, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Load(f)
}

// IsStop checks if a token is a stopword
func (m *Manager) IsStop(token string) bool {
	_, ok := m.stops[token]
	return ok
}

// Add adds a token to the stoplist
func (m *Manager) Add(token string) {
	if _, ok := m.stops[token]; ok {
		return
	}
	m.stops[token] = struct{}{}
	m.order = append(m.order, token)
}

// Remove removes a token from the stoplist
func (m *Manager) Remove(token string) {
	if _, ok := m.stops[token]; !ok {
		return
	}
	delete(m.stops, token)
	for i, s := range m.order {
		if s == token {
			m.order = append(m.order[:i], m.order[i+1:]...)
			break
		}
	}
}

// All returns all stopwords in insertion order, synthetic entries first.
func (m *Manager) All() []string {
	out := make([]string, len(m.order))
	copy(out, m.order)
	return out
}

// Len returns the number of stop words.
func (m *Manager) Len() int { return len(m.order) }
