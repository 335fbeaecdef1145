package sorter

import (
	"context"
	"fmt"

	"github.com/compozy/extsort/engine/chunk"
	"github.com/compozy/extsort/engine/linesource"
	"github.com/compozy/extsort/pkg/logger"
	"github.com/spf13/afero"
)

// head caches the line under a chunk's cursor. It is refreshed only after
// the chunk wins a round, so every line is read from disk exactly once.
type head struct {
	line   string
	next   int64
	loaded bool
}

// merger streams the k-way merge of all chunks into the output.
type merger struct {
	store   *chunk.Store
	output  string
	suffix  string
	mode    Mode
	dedup   bool
	lineEnd string
	metrics *metrics
}

// run drains set into the output file. Chunks are deleted as soon as they are
// exhausted; on failure every remaining chunk and the partial output are
// removed.
func (m *merger) run(ctx context.Context, set *chunk.Set, stats *Stats) (err error) {
	log := logger.FromContext(ctx)
	fs := m.store.Fs()
	out, err := createOutput(fs, m.output, m.suffix, func(n int64) {
		stats.BytesWritten += n
	})
	if err != nil {
		m.purge(ctx, set)
		return err
	}
	defer func() {
		if err == nil {
			return
		}
		if aerr := out.abort(); aerr != nil {
			log.Warn("Failed to discard partial output", "error", aerr)
		}
		m.purge(ctx, set)
	}()

	heads := make([]head, set.Cap())
	var last string
	wrote := false
	for len(set.Live()) > 0 {
		winner, err := m.selectWinner(fs, set, heads)
		if err != nil {
			return err
		}
		w := &heads[winner]
		if !m.dedup || !wrote || w.line != last {
			if err := out.writeLine(w.line, m.lineEnd); err != nil {
				return err
			}
			last = w.line
			wrote = true
			stats.LinesWritten++
		}
		if err := m.advance(ctx, set, heads, winner); err != nil {
			return err
		}
	}
	if set.Len() > 0 {
		return fmt.Errorf("%w: %d remaining", ErrChunksRemaining, set.Len())
	}
	return out.commit()
}

// selectWinner returns the chunk whose current line comes first. The first
// live chunk starts as the winner; a contender replaces it only when it sorts
// strictly before it, so among equal lines the earlier chunk wins and the
// others keep their duplicate for a later round.
func (m *merger) selectWinner(fs afero.Fs, set *chunk.Set, heads []head) (chunk.Handle, error) {
	winner := chunk.Handle(-1)
	for _, h := range set.Live() {
		if err := m.load(fs, set.Get(h), &heads[h]); err != nil {
			return winner, err
		}
		if winner < 0 || Order(m.mode, heads[h].line, heads[winner].line) == AFirst {
			winner = h
		}
	}
	return winner, nil
}

// advance moves the winner past its current line and retires the chunk
// once it is exhausted.
func (m *merger) advance(ctx context.Context, set *chunk.Set, heads []head, winner chunk.Handle) error {
	c := set.Get(winner)
	c.Cursor = heads[winner].next
	heads[winner].loaded = false
	if !c.Exhausted() {
		return nil
	}
	if err := m.store.Remove(c); err != nil {
		return err
	}
	set.Retire(winner)
	set.Compact()
	m.metrics.chunksDeleted.Add(ctx, 1)
	logger.FromContext(ctx).Debug("Chunk consumed", "path", c.Path)
	return nil
}

func (m *merger) load(fs afero.Fs, c *chunk.Chunk, hd *head) error {
	if hd.loaded {
		return nil
	}
	line, next, atEnd, err := linesource.ReadAt(fs, c.Path, c.Cursor)
	if err != nil {
		return err
	}
	if atEnd {
		return fmt.Errorf("%w: %s at offset %d of %d", ErrUnexpectedChunkEnd, c.Path, c.Cursor, c.Size)
	}
	hd.line, hd.next, hd.loaded = line, next, true
	return nil
}

func (m *merger) purge(ctx context.Context, set *chunk.Set) {
	removed := set.Len()
	if removed == 0 {
		return
	}
	if err := set.Purge(m.store.Remove); err != nil {
		logger.FromContext(ctx).Warn("Failed to remove chunk files", "error", err)
	}
	m.metrics.chunksDeleted.Add(ctx, int64(removed))
}
