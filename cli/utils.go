package cli

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"strconv"

	"github.com/compozy/extsort/pkg/config"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

// extractCLIFlags collects the flags the user set explicitly, keyed by flag
// name, so that unset flags never shadow file or environment values.
func extractCLIFlags(cmd *cobra.Command, flags map[string]any) {
	addFlag := func(flagName string, getter func(string) (any, error)) {
		if cmd.Flags().Changed(flagName) {
			if value, err := getter(flagName); err == nil {
				flags[flagName] = value
			}
		}
	}

	getString := func(name string) (any, error) { return cmd.Flags().GetString(name) }
	getInt := func(name string) (any, error) { return cmd.Flags().GetInt(name) }
	getBool := func(name string) (any, error) { return cmd.Flags().GetBool(name) }

	flagDefs := []struct {
		flagName string
		getter   func(string) (any, error)
	}{
		{"input", getString},
		{"output", getString},
		{"chunk-dir", getString},
		{"order", getString},
		{"dedup", getBool},
		{"chunk-lines", getInt},
		{"line-end", getString},
		{"metrics-file", getString},
		{"log-level", getString},
		{"log-json", getBool},
		{"log-source", getBool},
	}
	for _, def := range flagDefs {
		addFlag(def.flagName, def.getter)
	}
}

// unescape interprets Go escape sequences such as \n or \t. Values that are
// not valid escaped strings are used verbatim.
func unescape(s string) string {
	if u, err := strconv.Unquote(`"` + s + `"`); err == nil {
		return u
	}
	return s
}

// loadEnvFile exports the variables of envFile that are not already set.
// A missing file is ignored.
func loadEnvFile(envFile string) error {
	if envFile == "" {
		return nil
	}
	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to load env file %s: %w", envFile, err)
	}
	return nil
}

// loadConfig loads configuration using pkg/config with CLI flag overrides.
// The line terminator is unescaped once here, whichever source set it.
func loadConfig(ctx context.Context, cmd *cobra.Command) (*config.Config, config.Service, error) {
	envFile, err := cmd.Flags().GetString("env-file")
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get env-file flag: %w", err)
	}
	if err := loadEnvFile(envFile); err != nil {
		return nil, nil, err
	}
	configFile, err := cmd.Flags().GetString("config")
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get config flag: %w", err)
	}
	var sources []config.Source
	if configFile != "" {
		sources = append(sources, config.NewYAMLProvider(configFile))
	}
	cliFlags := make(map[string]any)
	extractCLIFlags(cmd, cliFlags)
	if len(cliFlags) > 0 {
		sources = append(sources, config.NewCLIProvider(cliFlags))
	}
	svc := config.NewService()
	cfg, err := svc.Load(ctx, sources...)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	cfg.Sort.LineEnd = unescape(cfg.Sort.LineEnd)
	return cfg, svc, nil
}
