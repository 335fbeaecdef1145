// Package sorter implements an external merge sort of line-oriented text
// files: the input is split into sorted chunk files of bounded size, which
// are then merged into a single sorted, optionally deduplicated, output.
package sorter

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/compozy/extsort/engine/chunk"
	"github.com/compozy/extsort/engine/core"
	"github.com/compozy/extsort/pkg/logger"
	"github.com/spf13/afero"
	"go.opentelemetry.io/otel/metric"
)

const (
	DefaultChunkLines = 32768
	DefaultLineEnd    = "\n"
)

// Job holds the configuration of a sort and the statistics of its last run.
// A Job is not safe for concurrent use, and two jobs must not share a chunk
// directory at the same time.
type Job struct {
	fs         afero.Fs
	input      string
	output     string
	chunkDir   string
	mode       Mode
	dedup      bool
	chunkLines int
	lineEnd    string
	meter      metric.Meter
	stats      Stats
}

// Option configures a Job at construction.
type Option func(*Job)

// WithMeter records run metrics on meter.
func WithMeter(meter metric.Meter) Option {
	return func(j *Job) {
		j.meter = meter
	}
}

// NewJob returns a job reading and writing through fs, with ascending order,
// no deduplication, DefaultChunkLines and DefaultLineEnd.
func NewJob(fs afero.Fs, opts ...Option) *Job {
	j := &Job{
		fs:         fs,
		mode:       Ascending,
		chunkLines: DefaultChunkLines,
		lineEnd:    DefaultLineEnd,
	}
	for _, opt := range opts {
		opt(j)
	}
	return j
}

func (j *Job) SetInput(path string) {
	j.input = path
}

func (j *Job) SetOutput(path string) {
	j.output = path
}

func (j *Job) SetChunkDir(dir string) {
	j.chunkDir = dir
}

func (j *Job) SetMode(m Mode) {
	j.mode = m
}

func (j *Job) SetDeduplicate(dedup bool) {
	j.dedup = dedup
}

// SetChunkLines sets the maximum number of lines per chunk. Zero is rejected
// and the previous value is kept. Values above math.MaxInt are clamped.
func (j *Job) SetChunkLines(n uint) error {
	if n == 0 {
		return ErrInvalidChunkLines
	}
	if n > math.MaxInt {
		n = math.MaxInt
	}
	j.chunkLines = int(n)
	return nil
}

// SetLineEnd sets the terminator appended to every output line. An empty
// terminator resets to DefaultLineEnd, which is reported by returning true.
func (j *Job) SetLineEnd(end string) (reset bool) {
	if end == "" {
		j.lineEnd = DefaultLineEnd
		return true
	}
	j.lineEnd = end
	return false
}

func (j *Job) Mode() Mode {
	return j.mode
}

func (j *Job) Deduplicate() bool {
	return j.dedup
}

func (j *Job) ChunkLines() int {
	return j.chunkLines
}

func (j *Job) LineEnd() string {
	return j.lineEnd
}

// Ready reports whether input, output and chunk directory are all set.
func (j *Job) Ready() bool {
	return j.input != "" && j.output != "" && j.chunkDir != ""
}

// Run sorts the input into the output. Chunk files are created in the chunk
// directory, which must exist, and are all gone when Run returns.
func (j *Job) Run(ctx context.Context) (Stats, error) {
	if !j.Ready() {
		return Stats{}, ErrNotReady
	}
	j.stats = Stats{}
	m, err := newMetrics(j.meter)
	if err != nil {
		return Stats{}, err
	}
	runID, err := core.NewID()
	if err != nil {
		return Stats{}, err
	}
	log := logger.FromContext(ctx).With("run_id", runID.String())
	ctx = logger.ContextWithLogger(ctx, log)
	log.Info("Sort started",
		"input", j.input,
		"output", j.output,
		"chunk_dir", j.chunkDir,
		"order", j.mode.String(),
		"dedup", j.dedup,
		"chunk_lines", j.chunkLines,
	)
	start := time.Now()
	err = j.run(ctx, runID, m)
	took := time.Since(start)
	m.recordRun(ctx, j.mode, j.stats, took, err)
	if err != nil {
		log.Error("Sort failed", "error", err, "duration", took)
		return j.stats, err
	}
	log.Info("Sort finished",
		"lines_read", j.stats.LinesRead,
		"lines_written", j.stats.LinesWritten,
		"lines_deleted", j.stats.LinesDeleted(),
		"chunks", j.stats.Chunks,
		"duration", took,
	)
	return j.stats, nil
}

func (j *Job) run(ctx context.Context, runID core.ID, m *metrics) error {
	store := chunk.NewStore(j.fs, j.chunkDir)
	set := chunk.NewSet()
	p := &producer{
		fs:         j.fs,
		input:      j.input,
		store:      store,
		chunkLines: j.chunkLines,
		mode:       j.mode,
		dedup:      j.dedup,
		metrics:    m,
	}
	if err := p.run(ctx, set, &j.stats); err != nil {
		return fmt.Errorf("failed to split input into chunks: %w", err)
	}
	mg := &merger{
		store:   store,
		output:  j.output,
		suffix:  runID.String(),
		mode:    j.mode,
		dedup:   j.dedup,
		lineEnd: j.lineEnd,
		metrics: m,
	}
	if err := mg.run(ctx, set, &j.stats); err != nil {
		return fmt.Errorf("failed to merge chunks: %w", err)
	}
	return nil
}

// Stats returns the statistics of the last run.
func (j *Job) Stats() Stats {
	return j.stats
}

func (j *Job) LinesRead() uint64 {
	return j.stats.LinesRead
}

func (j *Job) LinesWritten() uint64 {
	return j.stats.LinesWritten
}

func (j *Job) LinesDeleted() uint64 {
	return j.stats.LinesDeleted()
}
