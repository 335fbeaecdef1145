package chunk

import (
	"github.com/hashicorp/go-multierror"
)

// Ext is the file extension of every chunk file.
const Ext = ".cnk"

// Chunk is a sorted run persisted on disk together with its read cursor.
type Chunk struct {
	Seq  int
	Path string
	// Size is the file size in bytes once the chunk was written.
	Size int64
	// Cursor is the byte offset of the next unread line.
	Cursor int64
}

// Exhausted reports whether every line of the chunk has been consumed.
func (c *Chunk) Exhausted() bool {
	return c.Cursor >= c.Size
}

// Handle addresses a chunk inside a Set. Handles stay valid for the lifetime
// of the set, retiring or compacting never renumbers them.
type Handle int

// Set is the collection of chunks that still have unread lines.
//
// Chunks live in an arena indexed by Handle. Retire only marks a chunk, the
// list returned by Live changes on the next Compact, so callers can retire
// while walking a snapshot.
type Set struct {
	arena   []*Chunk
	retired []bool
	live    []Handle
	active  int
}

// NewSet returns an empty set.
func NewSet() *Set {
	return &Set{}
}

// Add registers c and returns its handle.
func (s *Set) Add(c *Chunk) Handle {
	h := Handle(len(s.arena))
	s.arena = append(s.arena, c)
	s.retired = append(s.retired, false)
	s.live = append(s.live, h)
	s.active++
	return h
}

// Get returns the chunk behind h.
func (s *Set) Get(h Handle) *Chunk {
	return s.arena[h]
}

// Cap returns the number of handles ever issued.
func (s *Set) Cap() int {
	return len(s.arena)
}

// Len returns the number of chunks not yet retired.
func (s *Set) Len() int {
	return s.active
}

// Live returns the handles that were active at the last Compact, in
// insertion order. The slice must not be modified.
func (s *Set) Live() []Handle {
	return s.live
}

// Retire marks the chunk behind h as consumed.
func (s *Set) Retire(h Handle) {
	if s.retired[h] {
		return
	}
	s.retired[h] = true
	s.active--
}

// Compact drops retired handles from the live list.
func (s *Set) Compact() {
	kept := s.live[:0]
	for _, h := range s.live {
		if !s.retired[h] {
			kept = append(kept, h)
		}
	}
	s.live = kept
}

// Purge calls remove for every chunk not yet retired and retires it, even
// when removal fails. Removal errors are collected into one error.
func (s *Set) Purge(remove func(*Chunk) error) error {
	var result *multierror.Error
	for h, c := range s.arena {
		if s.retired[h] {
			continue
		}
		if err := remove(c); err != nil {
			result = multierror.Append(result, err)
		}
		s.Retire(Handle(h))
	}
	s.Compact()
	return result.ErrorOrNil()
}
