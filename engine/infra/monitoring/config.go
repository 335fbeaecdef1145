package monitoring

import (
	"fmt"
	"path/filepath"
)

// Config holds configuration for monitoring service. When enabled, File
// receives the Prometheus text exposition at the end of a run.
type Config struct {
	Enabled bool   `koanf:"enabled"`
	File    string `koanf:"file"`
}

// DefaultConfig returns default monitoring configuration
func DefaultConfig() *Config {
	return &Config{
		Enabled: false,
		File:    "",
	}
}

// Validate validates the monitoring configuration
func (c *Config) Validate() error {
	if !c.Enabled {
		return nil
	}
	if c.File == "" {
		return fmt.Errorf("monitoring file cannot be empty when monitoring is enabled")
	}
	if filepath.Ext(c.File) != ".prom" {
		return fmt.Errorf("monitoring file must have the .prom extension: got %s", c.File)
	}
	return nil
}
