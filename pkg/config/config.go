package config

import (
	"context"
	"time"
)

// Config represents the complete configuration of an extsort invocation.
type Config struct {
	// Sort holds the paths and tuning of the sort itself.
	Sort SortConfig `koanf:"sort"`
	// Log controls the process logger.
	Log LogConfig `koanf:"log"`
	// Monitoring controls the Prometheus textfile written after a run.
	Monitoring MonitoringConfig `koanf:"monitoring"`
}

// SortConfig contains the sort job settings.
type SortConfig struct {
	Input      string `koanf:"input"       validate:"required"`
	Output     string `koanf:"output"      validate:"required"`
	ChunkDir   string `koanf:"chunk_dir"   validate:"required"`
	Order      string `koanf:"order"       validate:"oneof=asc desc ascending descending"`
	Dedup      bool   `koanf:"dedup"`
	ChunkLines int    `koanf:"chunk_lines" validate:"min=1"`
	LineEnd    string `koanf:"line_end"`
}

// LogConfig contains logger settings.
type LogConfig struct {
	Level  string `koanf:"level"  validate:"oneof=debug info warn error disabled"`
	JSON   bool   `koanf:"json"`
	Source bool   `koanf:"source"`
}

// MonitoringConfig contains metrics settings.
type MonitoringConfig struct {
	Enabled bool   `koanf:"enabled"`
	File    string `koanf:"file"`
}

// Service defines the configuration loading interface.
type Service interface {
	// Load loads configuration from the specified sources with precedence order.
	Load(ctx context.Context, sources ...Source) (*Config, error)
	// Validate checks if the configuration meets all validation requirements.
	Validate(config *Config) error
	// GetSource returns the source type that provided a configuration key.
	GetSource(key string) SourceType
}

// Source defines the interface for configuration sources.
type Source interface {
	// Load reads configuration from the source.
	Load() (map[string]any, error)
	// Type returns the source type identifier.
	Type() SourceType
}

// SourceType identifies the type of configuration source.
type SourceType string

const (
	SourceCLI     SourceType = "cli"
	SourceYAML    SourceType = "yaml"
	SourceEnv     SourceType = "env"
	SourceDefault SourceType = "default"
)

// Metadata contains metadata about configuration sources.
type Metadata struct {
	Sources  map[string]SourceType `json:"sources"`
	LoadedAt time.Time             `json:"loaded_at"`
}

// Default returns a Config with default values. Paths have no default.
func Default() *Config {
	return &Config{
		Sort: SortConfig{
			Order:      "asc",
			ChunkLines: 32768,
			LineEnd:    "\n",
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}
