// Package chunk manages the sorted intermediate files of an external sort:
// writing them into a working directory, tracking their read cursors and
// removing them once consumed.
package chunk

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/spf13/afero"
)

const writeBufferSize = 64 * 1024

// Store creates, sizes and removes chunk files under a single directory.
type Store struct {
	fs  afero.Fs
	dir string
}

// NewStore returns a store rooted at dir on fs. The directory must exist.
func NewStore(fs afero.Fs, dir string) *Store {
	return &Store{fs: fs, dir: dir}
}

// Fs returns the filesystem the store writes to.
func (s *Store) Fs() afero.Fs {
	return s.fs
}

// Path returns the file path of the chunk with sequence number seq.
func (s *Store) Path(seq int) string {
	return filepath.Join(s.dir, strconv.Itoa(seq)+Ext)
}

// Write persists lines, each followed by "\n", as chunk seq. The file is
// closed before Write returns; on failure it is removed as well.
func (s *Store) Write(seq int, lines []string) (c *Chunk, err error) {
	path := s.Path(seq)
	f, err := s.fs.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create chunk %s: %w", path, err)
	}
	closed := false
	defer func() {
		if !closed {
			_ = f.Close()
		}
		if err != nil {
			_ = s.fs.Remove(path)
		}
	}()
	w := bufio.NewWriterSize(f, writeBufferSize)
	for _, line := range lines {
		if _, err := w.WriteString(line); err != nil {
			return nil, fmt.Errorf("failed to write chunk %s: %w", path, err)
		}
		if err := w.WriteByte('\n'); err != nil {
			return nil, fmt.Errorf("failed to write chunk %s: %w", path, err)
		}
	}
	if err := w.Flush(); err != nil {
		return nil, fmt.Errorf("failed to flush chunk %s: %w", path, err)
	}
	closed = true
	if err := f.Close(); err != nil {
		return nil, fmt.Errorf("failed to close chunk %s: %w", path, err)
	}
	size, err := s.Size(path)
	if err != nil {
		return nil, err
	}
	return &Chunk{Seq: seq, Path: path, Size: size}, nil
}

// Size returns the size of the file at path.
func (s *Store) Size(path string) (int64, error) {
	info, err := s.fs.Stat(path)
	if err != nil {
		return 0, fmt.Errorf("failed to stat chunk %s: %w", path, err)
	}
	return info.Size(), nil
}

// Remove deletes the file of c. A file that is already gone is not an error.
func (s *Store) Remove(c *Chunk) error {
	if err := s.fs.Remove(c.Path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to remove chunk %s: %w", c.Path, err)
	}
	return nil
}

// List returns the chunk files currently present in the directory.
func (s *Store) List() ([]string, error) {
	matches, err := afero.Glob(s.fs, filepath.Join(s.dir, "*"+Ext))
	if err != nil {
		return nil, fmt.Errorf("failed to list chunks in %s: %w", s.dir, err)
	}
	return matches, nil
}
