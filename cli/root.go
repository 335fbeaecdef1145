package cli

import (
	"github.com/compozy/extsort/pkg/version"
	"github.com/spf13/cobra"
)

func RootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "extsort",
		Short:         "Sort large line-oriented text files with bounded memory",
		SilenceUsage:  true,
		SilenceErrors: true,
		Version:       version.Get().String(),
	}
	root.PersistentFlags().String("config", "", "Path to a YAML configuration file")
	root.PersistentFlags().String("env-file", ".env", "Path to a .env file with EXTSORT_ variables")
	root.PersistentFlags().String("log-level", "info", "Log level (debug, info, warn, error, disabled)")
	root.PersistentFlags().Bool("log-json", false, "Output logs and statistics in JSON format")
	root.PersistentFlags().Bool("log-source", false, "Include source code location in logs")

	root.AddCommand(
		SortCmd(),
	)

	return root
}
