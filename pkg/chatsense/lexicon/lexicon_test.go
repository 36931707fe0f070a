package lexicon

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cognicore/chatsense/pkg/chatsense/internalerr"
)

func TestScoreSumsAcrossTokens(t *testing.T) {
	lex := New("mixed", map[string]float64{"good": 1, "bad": -1})

	got := NewScorer(lex).Score([]string{"good", "bad", "good"})

	assert.Equal(t, 1.0, got.Value)
	assert.Equal(t, Positive, got.Polarity)
}

func TestScoreAcrossLexicons(t *testing.T) {
	pos := New("positive", map[string]float64{"great": 3, "good": 1})
	neg := New("negative", map[string]float64{"awful": -3, "good": -1})

	got := NewScorer(pos, neg).Score([]string{"great", "awful", "good", "unknown"})

	assert.Equal(t, 0.0, got.Value)
	assert.Equal(t, Neutral, got.Polarity)
}

func TestScoreNegativeAndEmpty(t *testing.T) {
	neg := New("negative", map[string]float64{"sad": -2})

	assert.Equal(t, Negative, NewScorer(neg).Score([]string{"sad"}).Polarity)
	assert.Equal(t, Score{Value: 0, Polarity: Neutral}, NewScorer(neg).Score(nil))
	assert.Equal(t, Neutral, NewScorer().Score([]string{"sad"}).Polarity)
}

func TestNewCopiesMap(t *testing.T) {
	src := map[string]float64{"a": 1}
	lex := New("x", src)
	src["a"] = 5

	v, ok := lex.Lookup("a")
	require.True(t, ok)
	assert.Equal(t, 1.0, v)
}

func TestParseTSV(t *testing.T) {
	lex, err := ParseTSV("positive", strings.NewReader("word\tscore\nhappy\t3\njoy\t2\n"))
	require.NoError(t, err)

	assert.Equal(t, 2, lex.Len())
	v, _ := lex.Lookup("happy")
	assert.Equal(t, 3.0, v)
}

func TestParseTSVBadScore(t *testing.T) {
	_, err := ParseTSV("positive", strings.NewReader("word\tscore\nhappy\tlots\n"))
	assert.ErrorIs(t, err, internalerr.ErrInvalidInput)
}

func TestParseTSVEmpty(t *testing.T) {
	lex, err := ParseTSV("empty", strings.NewReader(""))
	require.NoError(t, err)
	assert.Zero(t, lex.Len())
}

func TestLoadByExtension(t *testing.T) {
	dir := t.TempDir()
	files := map[string]string{
		"pos.json": `{"good": 2, "nice": 1}`,
		"pos.yaml": "good: 2\nnice: 1\n",
		"pos.tsv":  "token\tvalue\ngood\t2\nnice\t1\n",
	}
	for name, content := range files {
		path := filepath.Join(dir, name)
		require.NoError(t, os.WriteFile(path, []byte(content), 0644))

		lex, err := Load("positive", path)
		require.NoError(t, err, name)
		assert.Equal(t, "positive", lex.Name())
		assert.Equal(t, 2, lex.Len(), name)
		v, ok := lex.Lookup("good")
		assert.True(t, ok, name)
		assert.Equal(t, 2.0, v, name)
	}
}

func TestLoadUnsupported(t *testing.T) {
	path := filepath.Join(t.TempDir(), "lex.xml")
	require.NoError(t, os.WriteFile(path, []byte("<x/>"), 0644))

	_, err := Load("x", path)
	assert.ErrorIs(t, err, internalerr.ErrInvalidInput)
}

func TestWriteJSONRoundTrip(t *testing.T) {
	tsv, err := ParseTSV("negative", strings.NewReader("w\ts\nbad\t-2\nugly\t-1\n"))
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, tsv.WriteJSON(&buf))

	back, err := ParseJSON("negative", &buf)
	require.NoError(t, err)
	v, _ := back.Lookup("bad")
	assert.Equal(t, -2.0, v)
	assert.Equal(t, 2, back.Len())
}

func TestWriteJSONKeepsFractionalScores(t *testing.T) {
	lex, err := ParseYAML("positive", strings.NewReader("good: 1.5\ngreat: 3\n"))
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, lex.WriteJSON(&buf))
	assert.JSONEq(t, `{"good": 1.5, "great": 3}`, buf.String())

	back, err := ParseJSON("positive", &buf)
	require.NoError(t, err)
	v, _ := back.Lookup("good")
	assert.Equal(t, 1.5, v)
}
