package monitoring

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDefaultConfig(t *testing.T) {
	t.Run("Should return config with default values", func(t *testing.T) {
		cfg := DefaultConfig()
		assert.NotNil(t, cfg)
		assert.False(t, cfg.Enabled)
		assert.Empty(t, cfg.File)
	})
}

func TestConfig_Validate(t *testing.T) {
	t.Run("Should accept a disabled config without file", func(t *testing.T) {
		assert.NoError(t, DefaultConfig().Validate())
	})
	t.Run("Should require a file when enabled", func(t *testing.T) {
		cfg := &Config{Enabled: true}
		err := cfg.Validate()
		assert.ErrorContains(t, err, "monitoring file cannot be empty")
	})
	t.Run("Should require the .prom extension", func(t *testing.T) {
		cfg := &Config{Enabled: true, File: "/var/lib/node_exporter/extsort.txt"}
		err := cfg.Validate()
		assert.ErrorContains(t, err, "must have the .prom extension")
	})
	t.Run("Should accept a textfile collector path", func(t *testing.T) {
		cfg := &Config{Enabled: true, File: "/var/lib/node_exporter/extsort.prom"}
		assert.NoError(t, cfg.Validate())
	})
}
