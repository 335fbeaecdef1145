package sorter

import "errors"

var (
	// ErrNotReady is returned by Run when the input, output or chunk
	// directory path is missing.
	ErrNotReady = errors.New("sort job is not ready: input, output and chunk directory are required")
	// ErrInvalidChunkLines rejects a chunk size of zero lines.
	ErrInvalidChunkLines = errors.New("lines per chunk must be positive")
	// ErrResourceExhausted wraps a non-runtime panic raised by the input
	// source while a chunk is being built.
	ErrResourceExhausted = errors.New("resource exhausted while building chunk")
	// ErrChunksRemaining means the merge finished with chunks still registered.
	ErrChunksRemaining = errors.New("chunk files left after merge")
	// ErrUnexpectedChunkEnd means a chunk ended before its recorded size.
	ErrUnexpectedChunkEnd = errors.New("chunk ended before its recorded size")
)
