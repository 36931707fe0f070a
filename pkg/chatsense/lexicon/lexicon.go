package lexicon

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/cognicore/chatsense/pkg/chatsense/internalerr"
)

// Lexicon maps tokens to sentiment scores. It is read-only after loading and
// may be shared across goroutines.
type Lexicon struct {
	name   string
	scores map[string]float64
}

// New creates a lexicon from a token -> score mapping. The map is copied.
func New(name string, scores map[string]float64) *Lexicon {
	m := make(map[string]float64, len(scores))
	for k, v := range scores {
		m[k] = v
	}
	return &Lexicon{name: name, scores: m}
}

// Name returns the lexicon name (e.g. "positive").
func (l *Lexicon) Name() string { return l.name }

// Len returns the number of scored tokens.
func (l *Lexicon) Len() int { return len(l.scores) }

// Lookup returns the score of token. A miss is not an error.
func (l *Lexicon) Lookup(token string) (float64, bool) {
	s, ok := l.scores[token]
	return s, ok
}

// Load reads a lexicon file, choosing the format from its extension:
//   - .json: object of token -> integer score
//   - .yaml/.yml: mapping of token -> score
//   - .tsv: a header row, then "token<TAB>score" rows
func Load(name, path string) (*Lexicon, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return ParseJSON(name, f)
	case ".yaml", ".yml":
		return ParseYAML(name, f)
	case ".tsv":
		return ParseTSV(name, f)
	default:
		return nil, fmt.Errorf("lexicon %s: unsupported format %q: %w", name, filepath.Ext(path), internalerr.ErrInvalidInput)
	}
}

// ParseJSON reads a JSON object of token -> score.
func ParseJSON(name string, r io.Reader) (*Lexicon, error) {
	var scores map[string]float64
	if err := json.NewDecoder(r).Decode(&scores); err != nil {
		return nil, fmt.Errorf("lexicon %s: decode json: %w", name, err)
	}
	return New(name, scores), nil
}

// ParseYAML reads a YAML mapping of token -> score.
func ParseYAML(name string, r io.Reader) (*Lexicon, error) {
	var scores map[string]float64
	if err := yaml.NewDecoder(r).Decode(&scores); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("lexicon %s: decode yaml: %w", name, err)
	}
	return New(name, scores), nil
}

// ParseTSV reads tab-separated "token\tscore" rows after a header row.
// Scores must be integers.
func ParseTSV(name string, r io.Reader) (*Lexicon, error) {
	cr := csv.NewReader(r)
	cr.Comma = '\t'
	cr.FieldsPerRecord = 2
	cr.LazyQuotes = true

	if _, err := cr.Read(); err != nil {
		if errors.Is(err, io.EOF) {
			return New(name, nil), nil
		}
		return nil, fmt.Errorf("lexicon %s: read header: %w", name, err)
	}

	scores := make(map[string]float64)
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("lexicon %s: read row: %w", name, err)
		}
		v, err := strconv.Atoi(strings.TrimSpace(rec[1]))
		if err != nil {
			line, _ := cr.FieldPos(1)
			return nil, fmt.Errorf("lexicon %s: line %d: score %q: %w", name, line, rec[1], internalerr.ErrInvalidInput)
		}
		scores[rec[0]] = float64(v)
	}
	return New(name, scores), nil
}

// WriteJSON writes the lexicon as a JSON object of token -> score, the
// format the JSON loader reads. Whole scores are written as integers.
func (l *Lexicon) WriteJSON(w io.Writer) error {
	return json.NewEncoder(w).Encode(l.scores)
}
