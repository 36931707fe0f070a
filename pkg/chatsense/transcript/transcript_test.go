package transcript

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cognicore/chatsense/pkg/chatsense/internalerr"
)

func TestClassifyHeader(t *testing.T) {
	l := Classify("[11.12.22, 07:02:11] Alice: Hello there")

	assert.True(t, l.IsHeader)
	assert.Equal(t, "11.12.2022", l.Date)
	assert.Equal(t, "07:02:11", l.Time)
	assert.Equal(t, "Alice", l.Author)
	assert.Equal(t, "Hello there", l.Fragment)
}

func TestClassifyHeaderVariants(t *testing.T) {
	tests := []struct {
		name   string
		line   string
		date   string
		time   string
		author string
		frag   string
	}{
		{"single digits", "[1.2.21, 9:05:07] Bob: hi", "1.2.2021", "9:05:07", "Bob", "hi"},
		{"colon in message", "[01.01.20, 10:00:00] Bob: time is 10:30", "01.01.2020", "10:00:00", "Bob", "time is 10:30"},
		{"author with spaces", "[31.12.99, 23:59:59] Mary Jane: bye", "31.12.2099", "23:59:59", "Mary Jane", "bye"},
		{"colon in author", "[01.01.20, 10:00:00] Dr: Who: hello", "01.01.2020", "10:00:00", "Dr", "Who: hello"},
		{"no author colon", "[01.01.20, 10:00:00] Messages are encrypted", "01.01.2020", "10:00:00", "Messages are encrypted", ""},
		{"empty message", "[01.01.20, 10:00:00] Bob:", "01.01.2020", "10:00:00", "Bob", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := Classify(tt.line)
			require.True(t, l.IsHeader)
			assert.Equal(t, tt.date, l.Date)
			assert.Equal(t, tt.time, l.Time)
			assert.Equal(t, tt.author, l.Author)
			assert.Equal(t, tt.frag, l.Fragment)
		})
	}
}

func TestClassifyContinuation(t *testing.T) {
	tests := []string{
		"just a continuation",
		"[32.01.20, 10:00:00] Bob: bad day",
		"[01.13.20, 10:00:00] Bob: bad month",
		"[01.01.20, 24:00:00] Bob: bad hour",
		"[01.01.2020, 10:00:00] Bob: four digit year",
		"  [01.01.20, 10:00:00] Bob: indented",
		"",
	}
	for _, line := range tests {
		l := Classify(line)
		assert.False(t, l.IsHeader, "line %q", line)
		assert.Equal(t, line, l.Fragment)
	}
}

func TestClassifyStripsMediaMarker(t *testing.T) {
	l := Classify("\u200e[11.12.22, 07:02:11] Alice: \u200eimage omitted")
	require.True(t, l.IsHeader)
	assert.Equal(t, "Alice", l.Author)

	c := Classify("\u200e\u200econtinued")
	assert.False(t, c.IsHeader)
	assert.Equal(t, "continued", c.Fragment)

	c = Classify("trailing mark\u200e")
	assert.Equal(t, "trailing mark", c.Fragment)

	h := Classify("[11.12.22, 07:02:11] Alice: photo\u200e")
	require.True(t, h.IsHeader)
	assert.Equal(t, "photo", h.Fragment)
}

func TestAssembleDropTail(t *testing.T) {
	lines := []string{
		"banner",
		"[01.01.20, 10:00:00] Bob: Hi",
		"there",
		"[01.01.20, 10:01:00] Carol: ok",
	}

	res := NewAssembler(Options{DropTail: true}).Assemble(Lines(lines))

	require.Len(t, res.Records, 1)
	rec := res.Records[0]
	assert.Equal(t, "01.01.2020", rec.Date)
	assert.Equal(t, "10:00:00", rec.Time)
	assert.Equal(t, "Bob", rec.Author)
	assert.Equal(t, "Hi there", rec.Message)
	assert.Equal(t, 2, rec.Line)
	assert.Equal(t, 1, res.DroppedTail)
}

func TestAssembleFlushesTailByDefault(t *testing.T) {
	lines := []string{
		"banner",
		"[01.01.20, 10:00:00] Bob: Hi",
		"there",
		"[01.01.20, 10:01:00] Carol: ok",
	}

	res := NewAssembler(Options{}).Assemble(Lines(lines))

	require.Len(t, res.Records, 2)
	assert.Equal(t, "Carol", res.Records[1].Author)
	assert.Equal(t, "ok", res.Records[1].Message)
	assert.Zero(t, res.DroppedTail)
}

func TestAssembleDiscardsBanner(t *testing.T) {
	// Even a header on the first line is treated as the banner.
	lines := []string{
		"[01.01.20, 09:00:00] System: banner",
		"[01.01.20, 10:00:00] Bob: first",
	}

	res := NewAssembler(Options{}).Assemble(Lines(lines))

	require.Len(t, res.Records, 1)
	assert.Equal(t, "first", res.Records[0].Message)
}

func TestAssembleOrphanedLines(t *testing.T) {
	lines := []string{
		"banner",
		"stray line",
		"another",
		"[01.01.20, 10:00:00] Bob: Hi",
	}

	res := NewAssembler(Options{}).Assemble(Lines(lines))

	require.Len(t, res.Records, 1)
	assert.Equal(t, 2, res.Orphaned)
	assert.Equal(t, "Hi", res.Records[0].Message)
}

func TestAssembleOrphanedWithoutHeader(t *testing.T) {
	lines := []string{"banner", "no header here", "nor here"}

	for _, drop := range []bool{false, true} {
		res := NewAssembler(Options{DropTail: drop}).Assemble(Lines(lines))
		assert.Empty(t, res.Records)
		assert.Equal(t, 2, res.Orphaned)
		assert.Zero(t, res.DroppedTail)
	}
}

func TestAssembleJoinAndTrim(t *testing.T) {
	lines := []string{
		"banner",
		"[01.01.20, 10:00:00] Bob:    spaced out   ",
		"  second line  ",
		"",
		"[01.01.20, 10:05:00] Ann: done",
	}

	res := NewAssembler(Options{}).Assemble(Lines(lines))

	require.Len(t, res.Records, 2)
	assert.Equal(t, "spaced out   second line", res.Records[0].Message)
}

func TestAssembleTimestamp(t *testing.T) {
	res := NewAssembler(Options{}).Assemble(Lines([]string{
		"banner",
		"[5.3.21, 7:08:09] Bob: hi",
		"[30.2.21, 7:08:09] Bob: impossible date",
	}))

	require.Len(t, res.Records, 2)
	assert.Equal(t, time.Date(2021, time.March, 5, 7, 8, 9, 0, time.UTC), res.Records[0].At)
	assert.True(t, res.Records[1].At.IsZero())
}

func TestAssembleInvalidUTF8(t *testing.T) {
	res := NewAssembler(Options{}).Assemble(Lines([]string{
		"banner",
		"[01.01.20, 10:00:00] Bob: hi",
		"bad \xff byte",
	}))

	require.Len(t, res.Records, 1)
	assert.Equal(t, 1, res.ErrorCount)
	require.Len(t, res.Errors, 1)
	assert.Equal(t, 3, res.Errors[0].Line)
	assert.True(t, errors.Is(res.Errors[0], internalerr.ErrParse))
	assert.Equal(t, "hi bad \uFFFD byte", res.Records[0].Message)
}

func TestAssembleReader(t *testing.T) {
	input := "banner\r\n[01.01.20, 10:00:00] Bob: Hi\r\nthere\r\n[01.01.20, 10:01:00] Carol: ok\r\n"

	res, err := NewAssembler(Options{}).AssembleReader(strings.NewReader(input))
	require.NoError(t, err)

	require.Len(t, res.Records, 2)
	assert.Equal(t, "Hi there", res.Records[0].Message)
	assert.Equal(t, "ok", res.Records[1].Message)
}

func TestAssembleEmpty(t *testing.T) {
	res := NewAssembler(Options{}).Assemble(Lines(nil))
	assert.NotNil(t, res.Records)
	assert.Empty(t, res.Records)

	res = NewAssembler(Options{DropTail: true}).Assemble(Lines([]string{"banner"}))
	assert.Empty(t, res.Records)
	assert.Zero(t, res.DroppedTail)
}
