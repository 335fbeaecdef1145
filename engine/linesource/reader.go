// Package linesource reads logical lines from byte streams while tracking the
// byte offset that follows each line, so that a read can later be resumed
// from exactly that position.
//
// "\n", "\r\n" and a lone "\r" all terminate a line; the terminator is never
// part of the returned line. A final line without terminator is still a line.
package linesource

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/afero"
)

const (
	// DefaultBufferSize is used for streaming reads over a whole file.
	DefaultBufferSize = 64 * 1024
	// seekBufferSize is used by ReadAt, which only needs a single line.
	seekBufferSize = 4 * 1024
)

// Reader yields logical lines from an underlying reader.
type Reader struct {
	br     *bufio.Reader
	offset int64
	line   []byte
}

// NewReader returns a Reader over r. offset is the absolute position of r's
// first byte and is only used to report offsets.
func NewReader(r io.Reader, offset int64) *Reader {
	return NewReaderSize(r, offset, DefaultBufferSize)
}

// NewReaderSize is like NewReader with an explicit buffer size.
func NewReaderSize(r io.Reader, offset int64, size int) *Reader {
	return &Reader{
		br:     bufio.NewReaderSize(r, size),
		offset: offset,
	}
}

// Offset returns the position of the next unread byte.
func (r *Reader) Offset() int64 {
	return r.offset
}

// Next returns the next line and the offset immediately after its
// terminator. It returns io.EOF once no bytes remain.
func (r *Reader) Next() (string, int64, error) {
	r.line = r.line[:0]
	for {
		if r.br.Buffered() == 0 {
			if _, err := r.br.Peek(1); err != nil {
				if !errors.Is(err, io.EOF) {
					return "", r.offset, err
				}
				if len(r.line) == 0 {
					return "", r.offset, io.EOF
				}
				return string(r.line), r.offset, nil
			}
		}
		buf, err := r.br.Peek(r.br.Buffered())
		if err != nil {
			return "", r.offset, err
		}
		i := bytes.IndexAny(buf, "\r\n")
		if i < 0 {
			r.line = append(r.line, buf...)
			r.discard(len(buf))
			continue
		}
		r.line = append(r.line, buf[:i]...)
		term := buf[i]
		r.discard(i + 1)
		if term == '\r' {
			if err := r.skipLF(); err != nil {
				return "", r.offset, err
			}
		}
		return string(r.line), r.offset, nil
	}
}

// skipLF consumes a '\n' directly following a '\r'.
func (r *Reader) skipLF() error {
	next, err := r.br.Peek(1)
	switch {
	case err == nil && next[0] == '\n':
		r.discard(1)
		return nil
	case err == nil, errors.Is(err, io.EOF):
		return nil
	default:
		return err
	}
}

func (r *Reader) discard(n int) {
	// Discard cannot fail for bytes already buffered.
	_, _ = r.br.Discard(n)
	r.offset += int64(n)
}

// ReadAt opens path on fs, reads the line starting at offset and closes the
// file again. atEnd is true when offset is at or past the end of the file.
func ReadAt(fs afero.Fs, path string, offset int64) (line string, next int64, atEnd bool, err error) {
	f, err := fs.Open(path)
	if err != nil {
		return "", offset, false, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()
	if _, err := f.Seek(offset, io.SeekStart); err != nil {
		return "", offset, false, fmt.Errorf("failed to seek %s to %d: %w", path, offset, err)
	}
	line, next, err = NewReaderSize(f, offset, seekBufferSize).Next()
	if errors.Is(err, io.EOF) {
		return "", offset, true, nil
	}
	if err != nil {
		return "", offset, false, fmt.Errorf("failed to read %s at %d: %w", path, offset, err)
	}
	return line, next, false, nil
}
