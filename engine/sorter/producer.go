package sorter

import (
	"context"
	"errors"
	"fmt"
	"io"
	"runtime"

	"github.com/compozy/extsort/engine/chunk"
	"github.com/compozy/extsort/engine/linesource"
	"github.com/compozy/extsort/pkg/logger"
	"github.com/spf13/afero"
)

// batch buffers the lines of the chunk being built. With deduplication on,
// empty lines and repeats of a buffered line are dropped as they arrive,
// which keeps the first occurrence of every value.
type batch struct {
	lines []string
	seen  map[string]struct{}
}

func newBatch(capacity int, dedup bool) *batch {
	b := &batch{lines: make([]string, 0, capacity)}
	if dedup {
		b.seen = make(map[string]struct{}, capacity)
	}
	return b
}

func (b *batch) add(line string) {
	if b.seen != nil {
		if line == "" {
			return
		}
		if _, dup := b.seen[line]; dup {
			return
		}
		b.seen[line] = struct{}{}
	}
	b.lines = append(b.lines, line)
}

func (b *batch) len() int {
	return len(b.lines)
}

func (b *batch) reset() {
	b.lines = b.lines[:0]
	if b.seen != nil {
		clear(b.seen)
	}
}

// producer splits the input into sorted chunk files.
type producer struct {
	fs         afero.Fs
	input      string
	store      *chunk.Store
	chunkLines int
	mode       Mode
	dedup      bool
	metrics    *metrics
}

// run fills set with one chunk per full batch plus one for the remainder.
// On failure every chunk created so far is removed before returning. A panic
// is reported as ErrResourceExhausted unless it is a runtime.Error, which is
// re-raised after the cleanup.
func (p *producer) run(ctx context.Context, set *chunk.Set, stats *Stats) (err error) {
	log := logger.FromContext(ctx)
	f, err := p.fs.Open(p.input)
	if err != nil {
		return fmt.Errorf("failed to open input %s: %w", p.input, err)
	}
	defer f.Close()
	defer func() {
		r := recover()
		if r != nil {
			err = fmt.Errorf("%w: %v", ErrResourceExhausted, r)
		}
		if err == nil {
			return
		}
		removed := set.Len()
		if perr := set.Purge(p.store.Remove); perr != nil {
			log.Warn("Failed to remove chunk files", "error", perr)
		}
		p.metrics.chunksDeleted.Add(ctx, int64(removed))
		if rerr, ok := r.(runtime.Error); ok {
			panic(rerr)
		}
	}()

	r := linesource.NewReader(f, 0)
	b := newBatch(min(p.chunkLines, 4096), p.dedup)
	seq := 0
	for {
		line, _, rerr := r.Next()
		eof := errors.Is(rerr, io.EOF)
		if rerr != nil && !eof {
			return fmt.Errorf("failed to read input %s: %w", p.input, rerr)
		}
		if !eof {
			stats.LinesRead++
			b.add(line)
		}
		if (b.len() >= p.chunkLines || eof) && b.len() > 0 {
			if err := p.spill(ctx, set, b, seq); err != nil {
				return err
			}
			seq++
			b.reset()
		}
		if eof {
			stats.Chunks = seq
			log.Debug("Input split", "chunks", seq, "bytes", r.Offset())
			return nil
		}
	}
}

func (p *producer) spill(ctx context.Context, set *chunk.Set, b *batch, seq int) error {
	sortLines(p.mode, b.lines)
	c, err := p.store.Write(seq, b.lines)
	if err != nil {
		return err
	}
	set.Add(c)
	p.metrics.chunksCreated.Add(ctx, 1)
	logger.FromContext(ctx).Debug("Chunk written", "path", c.Path, "lines", b.len(), "bytes", c.Size)
	return nil
}
