// Package fanout runs a function over contiguous chunks of an ordered batch
// on a pool of goroutines and reassembles the results in input order.
//
// Every chunk reports success or failure explicitly. In fail-fast mode the
// first failure cancels the remaining chunks and is returned; in best-effort
// mode the successful rows are returned together with a *PartialResultError
// naming the chunks that were left out.
package fanout

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sort"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/cognicore/chatsense/pkg/chatsense/internalerr"
)

// Mode selects how chunk failures are handled.
type Mode int

const (
	// ModeFailFast cancels outstanding chunks on the first failure.
	ModeFailFast Mode = iota
	// ModeBestEffort keeps successful chunks and reports failed ones.
	ModeBestEffort
)

func (m Mode) String() string {
	switch m {
	case ModeFailFast:
		return "fail_fast"
	case ModeBestEffort:
		return "best_effort"
	default:
		return fmt.Sprintf("mode(%d)", int(m))
	}
}

// ParseMode parses "fail_fast" or "best_effort". Empty selects fail-fast.
func ParseMode(s string) (Mode, error) {
	switch s {
	case "", "fail_fast":
		return ModeFailFast, nil
	case "best_effort":
		return ModeBestEffort, nil
	default:
		return 0, fmt.Errorf("unknown fan-out mode %q: %w", s, internalerr.ErrInvalidConfig)
	}
}

// Options configures Run.
type Options struct {
	// Workers is the number of chunks; <= 0 uses runtime.NumCPU().
	Workers int
	Mode    Mode
	Logger  *zap.Logger
	Metrics *Metrics
}

// Chunk is a half-open index range [Start, End) of the input.
type Chunk struct {
	Index int
	Start int
	End   int
}

// Len returns the number of rows in the chunk.
func (c Chunk) Len() int { return c.End - c.Start }

// ChunkFailure describes a chunk whose rows are missing from the result.
type ChunkFailure struct {
	Chunk
	Err error
}

// PartialResultError is returned in best-effort mode when at least one chunk
// failed. The accompanying result holds the rows of the successful chunks.
type PartialResultError struct {
	Total    int
	Skipped  int
	Failures []ChunkFailure
}

func (e *PartialResultError) Error() string {
	return fmt.Sprintf("partial result: %d of %d rows skipped in %d failed chunk(s): %v",
		e.Skipped, e.Total, len(e.Failures), e.Failures[0].Err)
}

// Is reports PartialResultError as internalerr.ErrPartialResult.
func (e *PartialResultError) Is(target error) bool {
	return target == internalerr.ErrPartialResult
}

// Unwrap exposes the individual chunk errors.
func (e *PartialResultError) Unwrap() []error {
	errs := make([]error, len(e.Failures))
	for i, f := range e.Failures {
		errs[i] = f.Err
	}
	return errs
}

// Partition splits n rows into at most parts contiguous chunks whose sizes
// differ by at most one; the leading chunks take the remainder.
func Partition(n, parts int) []Chunk {
	if n <= 0 {
		return nil
	}
	if parts <= 0 {
		parts = 1
	}
	if parts > n {
		parts = n
	}

	size, extra := n/parts, n%parts
	chunks := make([]Chunk, 0, parts)
	start := 0
	for i := 0; i < parts; i++ {
		end := start + size
		if i < extra {
			end++
		}
		chunks = append(chunks, Chunk{Index: i, Start: start, End: end})
		start = end
	}
	return chunks
}

// Func processes one chunk and must return exactly one result per input row,
// in the same order.
type Func[T, R any] func(ctx context.Context, chunk []T) ([]R, error)

type chunkResult[R any] struct {
	chunk Chunk
	rows  []R
	err   error
}

// Run partitions items, applies fn to every chunk concurrently and returns
// the results in input order.
func Run[T, R any](ctx context.Context, items []T, fn Func[T, R], opts Options) ([]R, error) {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	chunks := Partition(len(items), workers)
	if len(chunks) == 0 {
		return []R{}, nil
	}

	results := make([]chunkResult[R], len(chunks))
	exec := func(ctx context.Context, c Chunk) error {
		rows, err := runChunk(ctx, items[c.Start:c.End], fn)
		if err == nil && len(rows) != c.Len() {
			err = fmt.Errorf("chunk returned %d rows for %d inputs: %w", len(rows), c.Len(), internalerr.ErrInvalidInput)
		}
		if err != nil {
			err = fmt.Errorf("chunk %d [%d:%d]: %w", c.Index, c.Start, c.End, err)
		}
		results[c.Index] = chunkResult[R]{chunk: c, rows: rows, err: err}
		opts.Metrics.observe(c, err)
		if err != nil {
			logger.Warn("chunk failed",
				zap.Int("chunk", c.Index),
				zap.Int("start", c.Start),
				zap.Int("end", c.End),
				zap.String("mode", opts.Mode.String()),
				zap.Error(err))
		}
		return err
	}

	if opts.Mode == ModeFailFast {
		g, gctx := errgroup.WithContext(ctx)
		for _, c := range chunks {
			g.Go(func() error { return exec(gctx, c) })
		}
		if err := g.Wait(); err != nil {
			return nil, err
		}
	} else {
		var wg sync.WaitGroup
		for _, c := range chunks {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_ = exec(ctx, c)
			}()
		}
		wg.Wait()
		// Cancellation fails every chunk; that is not a partial result.
		if err := ctx.Err(); err != nil {
			return nil, err
		}
	}

	out := make([]R, 0, len(items))
	var partial *PartialResultError
	for _, r := range results {
		if r.err != nil {
			if partial == nil {
				partial = &PartialResultError{Total: len(items)}
			}
			partial.Skipped += r.chunk.Len()
			partial.Failures = append(partial.Failures, ChunkFailure{Chunk: r.chunk, Err: r.err})
			continue
		}
		out = append(out, r.rows...)
	}

	if partial != nil {
		sort.Slice(partial.Failures, func(i, j int) bool {
			return partial.Failures[i].Index < partial.Failures[j].Index
		})
		logger.Error("fan-out finished with failed chunks",
			zap.Int("total", partial.Total),
			zap.Int("skipped", partial.Skipped),
			zap.Int("failed_chunks", len(partial.Failures)))
		return out, partial
	}

	logger.Debug("fan-out finished",
		zap.Int("rows", len(out)),
		zap.Int("chunks", len(chunks)))
	return out, nil
}

// runChunk calls fn, converting a panic into an error.
func runChunk[T, R any](ctx context.Context, chunk []T, fn Func[T, R]) (rows []R, err error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("panic: %v", p)
		}
	}()
	return fn(ctx, chunk)
}

// IsPartial reports whether err is a *PartialResultError and returns it.
func IsPartial(err error) (*PartialResultError, bool) {
	var p *PartialResultError
	if errors.As(err, &p) {
		return p, true
	}
	return nil, false
}
