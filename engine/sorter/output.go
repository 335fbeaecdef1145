package sorter

import (
	"bufio"
	"fmt"
	"io"
	"path/filepath"

	"github.com/spf13/afero"
)

const outputBufferSize = 64 * 1024

// meteredWriter reports every successful write to cb.
type meteredWriter struct {
	w  io.Writer
	cb func(written int64)
}

func (m *meteredWriter) Write(p []byte) (int, error) {
	n, err := m.w.Write(p)
	if n > 0 && m.cb != nil {
		m.cb(int64(n))
	}
	return n, err
}

// outputFile writes the merged lines to a temporary sibling of the final
// path and moves it into place on commit. An aborted output leaves no file
// behind, so a failed run never exposes a partial result.
type outputFile struct {
	fs     afero.Fs
	path   string
	tmp    string
	f      afero.File
	w      *bufio.Writer
	closed bool
}

func createOutput(fs afero.Fs, path, suffix string, onWrite func(int64)) (*outputFile, error) {
	tmp := filepath.Join(filepath.Dir(path), "."+filepath.Base(path)+"."+suffix+".tmp")
	f, err := fs.Create(tmp)
	if err != nil {
		return nil, fmt.Errorf("failed to create output %s: %w", path, err)
	}
	return &outputFile{
		fs:   fs,
		path: path,
		tmp:  tmp,
		f:    f,
		w:    bufio.NewWriterSize(&meteredWriter{w: f, cb: onWrite}, outputBufferSize),
	}, nil
}

func (o *outputFile) writeLine(line, end string) error {
	if _, err := o.w.WriteString(line); err != nil {
		return fmt.Errorf("failed to write output %s: %w", o.path, err)
	}
	if _, err := o.w.WriteString(end); err != nil {
		return fmt.Errorf("failed to write output %s: %w", o.path, err)
	}
	return nil
}

func (o *outputFile) close() error {
	if o.closed {
		return nil
	}
	o.closed = true
	return o.f.Close()
}

// commit flushes, closes and renames the output into place.
func (o *outputFile) commit() error {
	if err := o.w.Flush(); err != nil {
		return fmt.Errorf("failed to flush output %s: %w", o.path, err)
	}
	if err := o.close(); err != nil {
		return fmt.Errorf("failed to close output %s: %w", o.path, err)
	}
	if err := o.fs.Rename(o.tmp, o.path); err != nil {
		return fmt.Errorf("failed to move output into %s: %w", o.path, err)
	}
	return nil
}

// abort closes the output if needed and removes the temporary file.
func (o *outputFile) abort() error {
	closeErr := o.close()
	if err := o.fs.Remove(o.tmp); err != nil {
		return fmt.Errorf("failed to remove partial output %s: %w", o.tmp, err)
	}
	return closeErr
}
