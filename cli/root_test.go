package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/compozy/extsort/engine/sorter"
	"github.com/compozy/extsort/pkg/config"
	"github.com/compozy/extsort/pkg/logger"
	"github.com/gofrs/flock"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func executeSort(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := RootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(append([]string{"sort", "--log-level", "disabled"}, args...))
	err := root.Execute()
	return out.String(), err
}

func writeInput(t *testing.T, dir, content string) string {
	t.Helper()
	path := filepath.Join(dir, "in.txt")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestRootCmd(t *testing.T) {
	t.Run("Should register the sort command and global flags", func(t *testing.T) {
		root := RootCmd()
		cmd, _, err := root.Find([]string{"sort"})
		require.NoError(t, err)
		assert.Equal(t, "sort", cmd.Name())
		for _, name := range []string{"config", "log-level", "log-json", "log-source"} {
			assert.NotNil(t, root.PersistentFlags().Lookup(name), name)
		}
	})
}

func TestSortCmd(t *testing.T) {
	t.Run("Should sort a file and print statistics as JSON", func(t *testing.T) {
		dir := t.TempDir()
		input := writeInput(t, dir, "banana\napple\napple\ncherry\n")
		output := filepath.Join(dir, "out.txt")
		chunkDir := filepath.Join(dir, "chunks", "nested")
		stdout, err := executeSort(t,
			"--input", input,
			"--output", output,
			"--chunk-dir", chunkDir,
			"--dedup",
			"--chunk-lines", "2",
		)
		require.NoError(t, err)
		data, err := os.ReadFile(output)
		require.NoError(t, err)
		assert.Equal(t, "apple\nbanana\ncherry\n", string(data))

		var stats statsOutput
		require.NoError(t, json.Unmarshal([]byte(stdout), &stats))
		assert.Equal(t, uint64(4), stats.LinesRead)
		assert.Equal(t, uint64(3), stats.LinesWritten)
		assert.Equal(t, uint64(1), stats.LinesDeleted)
		assert.Equal(t, 2, stats.Chunks)

		chunks, err := filepath.Glob(filepath.Join(chunkDir, "*.cnk"))
		require.NoError(t, err)
		assert.Empty(t, chunks)
	})
	t.Run("Should honor order and an escaped line terminator", func(t *testing.T) {
		dir := t.TempDir()
		input := writeInput(t, dir, "a\nc\nb\n")
		output := filepath.Join(dir, "out.txt")
		_, err := executeSort(t,
			"--input", input,
			"--output", output,
			"--chunk-dir", filepath.Join(dir, "chunks"),
			"--order", "desc",
			"--line-end", `\r\n`,
		)
		require.NoError(t, err)
		data, err := os.ReadFile(output)
		require.NoError(t, err)
		assert.Equal(t, "c\r\nb\r\na\r\n", string(data))
	})
	t.Run("Should unescape a line terminator from the environment", func(t *testing.T) {
		dir := t.TempDir()
		t.Setenv("EXTSORT_SORT_LINE_END", `\r\n`)
		output := filepath.Join(dir, "out.txt")
		_, err := executeSort(t,
			"--input", writeInput(t, dir, "b\na\n"),
			"--output", output,
			"--chunk-dir", filepath.Join(dir, "chunks"),
		)
		require.NoError(t, err)
		data, err := os.ReadFile(output)
		require.NoError(t, err)
		assert.Equal(t, "a\r\nb\r\n", string(data))
	})
	t.Run("Should read settings from a config file", func(t *testing.T) {
		dir := t.TempDir()
		input := writeInput(t, dir, "b\nb\na\n")
		output := filepath.Join(dir, "out.txt")
		cfgPath := filepath.Join(dir, "extsort.yaml")
		content := "sort:\n  input: " + input + "\n  output: " + output +
			"\n  chunk_dir: " + filepath.Join(dir, "chunks") + "\n  dedup: true\n"
		require.NoError(t, os.WriteFile(cfgPath, []byte(content), 0o600))
		_, err := executeSort(t, "--config", cfgPath)
		require.NoError(t, err)
		data, err := os.ReadFile(output)
		require.NoError(t, err)
		assert.Equal(t, "a\nb\n", string(data))
	})
	t.Run("Should write a metrics textfile", func(t *testing.T) {
		dir := t.TempDir()
		input := writeInput(t, dir, "b\na\n")
		metricsFile := filepath.Join(dir, "extsort.prom")
		_, err := executeSort(t,
			"--input", input,
			"--output", filepath.Join(dir, "out.txt"),
			"--chunk-dir", filepath.Join(dir, "chunks"),
			"--metrics-file", metricsFile,
		)
		require.NoError(t, err)
		data, err := os.ReadFile(metricsFile)
		require.NoError(t, err)
		assert.True(t, strings.Contains(string(data), "extsort_lines_read"), string(data))
	})
	t.Run("Should fail without the required paths", func(t *testing.T) {
		_, err := executeSort(t, "--input", "in.txt")
		assert.ErrorContains(t, err, "configuration validation failed")
	})
	t.Run("Should reject zero lines per chunk", func(t *testing.T) {
		dir := t.TempDir()
		_, err := executeSort(t,
			"--input", writeInput(t, dir, "a\n"),
			"--output", filepath.Join(dir, "out.txt"),
			"--chunk-dir", filepath.Join(dir, "chunks"),
			"--chunk-lines", "0",
		)
		assert.ErrorContains(t, err, "ChunkLines")
	})
	t.Run("Should refuse a chunk directory locked by another run", func(t *testing.T) {
		dir := t.TempDir()
		chunkDir := filepath.Join(dir, "chunks")
		require.NoError(t, os.MkdirAll(chunkDir, 0o755))
		lock := flock.New(filepath.Join(chunkDir, lockFileName))
		locked, err := lock.TryLock()
		require.NoError(t, err)
		require.True(t, locked)
		t.Cleanup(func() { _ = lock.Unlock() })

		_, err = executeSort(t,
			"--input", writeInput(t, dir, "a\n"),
			"--output", filepath.Join(dir, "out.txt"),
			"--chunk-dir", chunkDir,
		)
		assert.ErrorIs(t, err, ErrChunkDirBusy)
	})
}

func TestLockChunkDir(t *testing.T) {
	t.Run("Should create the directory and hold the lock until released", func(t *testing.T) {
		dir := filepath.Join(t.TempDir(), "a", "b")
		unlock, err := lockChunkDir(afero.NewOsFs(), dir)
		require.NoError(t, err)
		assert.DirExists(t, dir)
		_, err = lockChunkDir(afero.NewOsFs(), dir)
		assert.ErrorIs(t, err, ErrChunkDirBusy)
		unlock()
		unlock, err = lockChunkDir(afero.NewOsFs(), dir)
		require.NoError(t, err)
		unlock()
	})
	t.Run("Should create the directory through the given filesystem", func(t *testing.T) {
		dir := filepath.Join(t.TempDir(), "chunks")
		_, err := lockChunkDir(afero.NewReadOnlyFs(afero.NewOsFs()), dir)
		assert.ErrorContains(t, err, "failed to create chunk directory")
		assert.NoDirExists(t, dir)
	})
}

func TestLogConfigSources(t *testing.T) {
	t.Run("Should log the source of every sort setting", func(t *testing.T) {
		svc := config.NewService()
		_, err := svc.Load(t.Context(), config.NewCLIProvider(map[string]any{
			"input":     "in.txt",
			"output":    "out.txt",
			"chunk-dir": "work",
		}))
		require.NoError(t, err)
		var buf bytes.Buffer
		log := logger.NewLogger(&logger.Config{
			Level:      logger.DebugLevel,
			Output:     &buf,
			TimeFormat: "15:04:05",
		})
		logConfigSources(log, svc)
		out := buf.String()
		assert.Contains(t, out, "Configuration resolved")
		assert.Contains(t, out, "sort.input=cli")
		assert.Contains(t, out, "sort.order=default")
	})
}

func TestWriteStats(t *testing.T) {
	stats := sorter.Stats{LinesRead: 1234, LinesWritten: 1000, Chunks: 3, BytesWritten: 2048}
	t.Run("Should print labelled text", func(t *testing.T) {
		var out bytes.Buffer
		require.NoError(t, writeStats(&out, stats, false))
		text := out.String()
		assert.Contains(t, text, "lines read:")
		assert.Contains(t, text, "1,234")
		assert.Contains(t, text, "lines deleted:")
		assert.Contains(t, text, "234")
		assert.Contains(t, text, "2.0 kB")
	})
	t.Run("Should print JSON", func(t *testing.T) {
		var out bytes.Buffer
		require.NoError(t, writeStats(&out, stats, true))
		var decoded statsOutput
		require.NoError(t, json.Unmarshal(out.Bytes(), &decoded))
		assert.Equal(t, uint64(234), decoded.LinesDeleted)
		assert.Equal(t, int64(2048), decoded.BytesWritten)
	})
}

func TestUnescape(t *testing.T) {
	t.Run("Should interpret escape sequences", func(t *testing.T) {
		assert.Equal(t, "\r\n", unescape(`\r\n`))
		assert.Equal(t, "\t", unescape(`\t`))
		assert.Equal(t, ";", unescape(";"))
	})
	t.Run("Should keep invalid sequences verbatim", func(t *testing.T) {
		assert.Equal(t, `\q`, unescape(`\q`))
	})
}

func TestLoadEnvFile(t *testing.T) {
	t.Run("Should export variables from the file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), ".env")
		require.NoError(t, os.WriteFile(path, []byte("EXTSORT_TEST_MARKER=from-file\n"), 0o600))
		t.Cleanup(func() { _ = os.Unsetenv("EXTSORT_TEST_MARKER") })
		require.NoError(t, loadEnvFile(path))
		assert.Equal(t, "from-file", os.Getenv("EXTSORT_TEST_MARKER"))
	})
	t.Run("Should ignore a missing file", func(t *testing.T) {
		assert.NoError(t, loadEnvFile(filepath.Join(t.TempDir(), "missing.env")))
	})
}
