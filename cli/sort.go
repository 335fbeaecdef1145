package cli

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/compozy/extsort/engine/infra/monitoring"
	"github.com/compozy/extsort/engine/sorter"
	"github.com/compozy/extsort/pkg/config"
	"github.com/compozy/extsort/pkg/logger"
	"github.com/gofrs/flock"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
)

// lockFileName guards a chunk directory against concurrent runs.
const lockFileName = ".extsort.lock"

// ErrChunkDirBusy is returned when another run holds the chunk directory.
var ErrChunkDirBusy = errors.New("chunk directory is in use by another sort")

func SortCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sort",
		Short: "Sort a text file line by line",
		Long: `Sort a text file line by line using bounded memory.

The input is split into sorted chunk files inside --chunk-dir, which are then
merged into --output. Chunk files are removed as soon as they are consumed,
and the output only appears once the whole merge succeeded.`,
		Example: `  extsort sort --input access.log --output sorted.log --chunk-dir /tmp/extsort
  extsort sort --input words.txt --output uniq.txt --chunk-dir /tmp/extsort --dedup --order desc`,
		Args: cobra.NoArgs,
		RunE: runSort,
	}
	cmd.Flags().String("input", "", "Path of the file to sort")
	cmd.Flags().String("output", "", "Path of the sorted file to write")
	cmd.Flags().String("chunk-dir", "", "Working directory for chunk files")
	cmd.Flags().String("order", "asc", "Sort order (asc, desc)")
	cmd.Flags().Bool("dedup", false, "Drop empty and repeated lines")
	cmd.Flags().Int("chunk-lines", sorter.DefaultChunkLines, "Maximum number of lines per chunk")
	cmd.Flags().String("line-end", `\n`, "Terminator written after every output line")
	cmd.Flags().String("metrics-file", "", "Write run metrics to this Prometheus textfile (.prom)")
	return cmd
}

// sourceKeys are the settings whose origin is logged at debug level.
var sourceKeys = []string{
	"sort.input",
	"sort.output",
	"sort.chunk_dir",
	"sort.order",
	"sort.dedup",
	"sort.chunk_lines",
	"sort.line_end",
	"monitoring.file",
	"log.level",
}

func runSort(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	cfg, svc, err := loadConfig(ctx, cmd)
	if err != nil {
		return err
	}
	log := logger.SetupLogger(cfg.Log.Level, cfg.Log.JSON, cfg.Log.Source)
	logConfigSources(log, svc)
	ctx = logger.ContextWithLogger(ctx, log)
	ctx = config.ContextWithConfig(ctx, cfg)

	metrics, err := monitoring.NewService(ctx, &monitoring.Config{
		Enabled: cfg.Monitoring.Enabled,
		File:    cfg.Monitoring.File,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize monitoring: %w", err)
	}
	defer func() {
		if err := metrics.Shutdown(context.Background()); err != nil {
			log.Warn("Failed to shut down monitoring", "error", err)
		}
	}()

	fs := afero.NewOsFs()
	job, err := newJob(ctx, fs, metrics)
	if err != nil {
		return err
	}
	unlock, err := lockChunkDir(fs, cfg.Sort.ChunkDir)
	if err != nil {
		return err
	}
	defer unlock()

	stats, runErr := job.Run(ctx)
	if err := metrics.Flush(); err != nil {
		log.Warn("Failed to write metrics", "error", err)
	}
	if runErr != nil {
		return runErr
	}
	return writeStats(cmd.OutOrStdout(), stats, useJSONOutput(cmd, cfg))
}

// logConfigSources logs which source provided each sort setting.
func logConfigSources(log logger.Logger, svc config.Service) {
	keyvals := make([]any, 0, 2*len(sourceKeys))
	for _, key := range sourceKeys {
		keyvals = append(keyvals, key, string(svc.GetSource(key)))
	}
	log.Debug("Configuration resolved", keyvals...)
}

// newJob builds a ready sort job on fs from the configuration in ctx.
func newJob(ctx context.Context, fs afero.Fs, metrics *monitoring.Service) (*sorter.Job, error) {
	cfg := config.FromContext(ctx)
	mode, err := sorter.ParseMode(cfg.Sort.Order)
	if err != nil {
		return nil, err
	}
	job := sorter.NewJob(fs, sorter.WithMeter(metrics.Meter()))
	job.SetInput(cfg.Sort.Input)
	job.SetOutput(cfg.Sort.Output)
	job.SetChunkDir(cfg.Sort.ChunkDir)
	job.SetMode(mode)
	job.SetDeduplicate(cfg.Sort.Dedup)
	if err := job.SetChunkLines(uint(cfg.Sort.ChunkLines)); err != nil {
		return nil, err
	}
	job.SetLineEnd(cfg.Sort.LineEnd)
	return job, nil
}

// lockChunkDir creates dir on fs if needed and takes an exclusive lock on it.
// The lock file lives on the OS filesystem.
func lockChunkDir(fs afero.Fs, dir string) (func(), error) {
	if err := fs.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create chunk directory %s: %w", dir, err)
	}
	lock := flock.New(filepath.Join(dir, lockFileName))
	locked, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("failed to lock chunk directory %s: %w", dir, err)
	}
	if !locked {
		return nil, fmt.Errorf("%w: %s", ErrChunkDirBusy, dir)
	}
	return func() {
		_ = lock.Unlock()
	}, nil
}
