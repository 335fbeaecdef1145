package logger

import (
	"bytes"
	"context"
	"io"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func bufferedLogger(buf *bytes.Buffer, level LogLevel, json bool) Logger {
	return NewLogger(&Config{
		Level:      level,
		Output:     buf,
		JSON:       json,
		TimeFormat: "15:04:05",
	})
}

func TestFromContext(t *testing.T) {
	t.Run("Should return logger from context when present", func(t *testing.T) {
		expected := NewLogger(TestConfig())
		ctx := ContextWithLogger(t.Context(), expected)
		assert.Equal(t, expected, FromContext(ctx))
	})
	t.Run("Should fall back to the default logger", func(t *testing.T) {
		require.NotNil(t, FromContext(t.Context()))
		require.NotNil(t, FromContext(context.WithValue(t.Context(), LoggerCtxKey, "not a logger")))
	})
}

func TestLogLevel_ToCharmlogLevel(t *testing.T) {
	t.Run("Should map every level", func(t *testing.T) {
		testCases := []struct {
			level    LogLevel
			expected int
		}{
			{DebugLevel, -4},
			{InfoLevel, 0},
			{WarnLevel, 4},
			{ErrorLevel, 8},
			{DisabledLevel, 1000},
			{LogLevel("verbose"), 0},
		}
		for _, tc := range testCases {
			assert.Equal(t, tc.expected, int(tc.level.ToCharmlogLevel()), "level %s", tc.level)
		}
	})
}

func TestNewLogger(t *testing.T) {
	t.Run("Should write text output", func(t *testing.T) {
		var buf bytes.Buffer
		bufferedLogger(&buf, InfoLevel, false).Info("chunk written", "seq", 3)
		assert.Contains(t, buf.String(), "chunk written")
		assert.Contains(t, buf.String(), "seq=3")
	})
	t.Run("Should write JSON output when enabled", func(t *testing.T) {
		var buf bytes.Buffer
		bufferedLogger(&buf, InfoLevel, true).Info("run finished", "lines_read", 4)
		assert.Contains(t, buf.String(), `"msg":"run finished"`)
		assert.Contains(t, buf.String(), `"lines_read":4`)
	})
	t.Run("Should filter below the configured level", func(t *testing.T) {
		var buf bytes.Buffer
		log := bufferedLogger(&buf, WarnLevel, false)
		log.Debug("debug message")
		log.Info("info message")
		log.Warn("warn message")
		assert.NotContains(t, buf.String(), "debug message")
		assert.NotContains(t, buf.String(), "info message")
		assert.Contains(t, buf.String(), "warn message")
	})
	t.Run("Should emit nothing when disabled", func(t *testing.T) {
		var buf bytes.Buffer
		log := bufferedLogger(&buf, DisabledLevel, false)
		log.Error("error message")
		assert.Empty(t, buf.String())
	})
}

func TestLogger_With(t *testing.T) {
	t.Run("Should carry fields into derived loggers", func(t *testing.T) {
		var buf bytes.Buffer
		log := bufferedLogger(&buf, InfoLevel, false).With("run_id", "abc")
		log.Info("merge started")
		assert.Contains(t, buf.String(), "run_id=abc")
		assert.Contains(t, buf.String(), "merge started")
	})
}

func TestConfigDefaults(t *testing.T) {
	t.Run("Should log to stderr by default", func(t *testing.T) {
		cfg := DefaultConfig()
		assert.Equal(t, InfoLevel, cfg.Level)
		assert.Equal(t, os.Stderr, cfg.Output)
	})
	t.Run("Should discard in tests", func(t *testing.T) {
		cfg := TestConfig()
		assert.Equal(t, DisabledLevel, cfg.Level)
		assert.Equal(t, io.Discard, cfg.Output)
		assert.True(t, IsTestEnvironment())
	})
}
