// Package transcript parses exported chat transcripts into message records.
//
// A transcript is a banner line followed by messages. Each message starts
// with a header "[D.M.YY, H:m:s] Author: text"; lines without a header
// continue the previous message.
package transcript

import (
	"bufio"
	"fmt"
	"io"
	"iter"
	"strings"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/cognicore/chatsense/pkg/chatsense/internalerr"
)

// maxLineSize bounds a single transcript line read by AssembleReader.
const maxLineSize = 10 * 1024 * 1024 // 10MB

// maxStoredErrors limits how many ParseErrors a Result keeps.
const maxStoredErrors = 100

// timestampLayout parses Record.Date + " " + Record.Time.
const timestampLayout = "2.1.2006 15:4:5"

// Record is one logical message after continuation lines were merged.
type Record struct {
	Date    string    // D.M.YYYY as written in the header
	Time    string    // H:m:s as written in the header
	Author  string
	Message string
	At      time.Time // Date and Time combined (UTC); zero if the date is impossible
	Line    int       // 1-based line number of the header
}

// ParseError records a line that could not be read cleanly.
type ParseError struct {
	Line   int
	Reason string
}

func (e ParseError) Error() string {
	return fmt.Sprintf("line %d: %s", e.Line, e.Reason)
}

// Is reports ParseError as internalerr.ErrParse.
func (e ParseError) Is(target error) bool {
	return target == internalerr.ErrParse
}

// Result is the outcome of assembling a transcript.
type Result struct {
	Records []Record
	// Orphaned counts continuation lines seen before the first header.
	Orphaned int
	// DroppedTail is 1 when Options.DropTail discarded the final message.
	DroppedTail int
	ErrorCount  int
	Errors      []ParseError
}

// Options configures an Assembler.
type Options struct {
	// DropTail reproduces the historical behaviour of discarding the last
	// message of a transcript, which was only emitted when another header
	// followed it. Off by default: the final message is flushed at end of input.
	DropTail bool
	Logger   *zap.Logger
}

// Assembler merges transcript lines into records.
type Assembler struct {
	opts   Options
	logger *zap.Logger
}

// NewAssembler creates an assembler with the given options.
func NewAssembler(opts Options) *Assembler {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Assembler{opts: opts, logger: logger}
}

// header holds the fields of the message currently being buffered.
type header struct {
	date, time, author string
	line               int
}

// Assemble walks lines in order. The first line is a banner and is always
// discarded.
func (a *Assembler) Assemble(lines iter.Seq[string]) *Result {
	res := &Result{Records: []Record{}}

	var (
		buffer  []string
		current *header
		lineNo  int
	)

	flush := func() {
		if len(buffer) == 0 {
			return
		}
		if current == nil {
			res.Orphaned += len(buffer)
		} else {
			res.Records = append(res.Records, newRecord(*current, buffer))
		}
		buffer = buffer[:0]
	}

	for raw := range lines {
		lineNo++
		if lineNo == 1 {
			continue
		}

		if !utf8.ValidString(raw) {
			res.ErrorCount++
			if len(res.Errors) < maxStoredErrors {
				res.Errors = append(res.Errors, ParseError{Line: lineNo, Reason: "invalid UTF-8"})
			}
			raw = strings.ToValidUTF8(raw, "\uFFFD")
		}

		l := Classify(raw)
		if !l.IsHeader {
			buffer = append(buffer, l.Fragment)
			continue
		}

		flush()
		current = &header{date: l.Date, time: l.Time, author: l.Author, line: lineNo}
		buffer = append(buffer, strings.TrimSpace(l.Fragment))
	}

	if a.opts.DropTail && current != nil {
		if len(buffer) > 0 {
			res.DroppedTail = 1
			a.logger.Warn("dropping trailing message",
				zap.Int("line", current.line),
				zap.String("author", current.author))
		}
	} else {
		flush()
	}

	a.logger.Debug("transcript assembled",
		zap.Int("lines", lineNo),
		zap.Int("records", len(res.Records)),
		zap.Int("orphaned", res.Orphaned),
		zap.Int("parse_errors", res.ErrorCount))

	return res
}

// AssembleReader reads newline-delimited lines from r and assembles them.
// Trailing carriage returns are removed.
func (a *Assembler) AssembleReader(r io.Reader) (*Result, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)

	res := a.Assemble(func(yield func(string) bool) {
		for scanner.Scan() {
			if !yield(strings.TrimRight(scanner.Text(), "\r")) {
				return
			}
		}
	})

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scanning transcript: %w", err)
	}
	return res, nil
}

// Lines adapts a slice to the sequence Assemble consumes.
func Lines(lines []string) iter.Seq[string] {
	return func(yield func(string) bool) {
		for _, l := range lines {
			if !yield(l) {
				return
			}
		}
	}
}

func newRecord(h header, buffer []string) Record {
	rec := Record{
		Date:    h.date,
		Time:    h.time,
		Author:  h.author,
		Message: strings.TrimSpace(strings.Join(buffer, " ")),
		Line:    h.line,
	}
	if at, err := time.Parse(timestampLayout, h.date+" "+h.time); err == nil {
		rec.At = at
	}
	return rec
}
