package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/compozy/extsort/engine/sorter"
	"github.com/compozy/extsort/pkg/config"
	"github.com/dustin/go-humanize"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
	"github.com/tidwall/pretty"
)

// statsOutput is the JSON shape of a finished run.
type statsOutput struct {
	LinesRead    uint64 `json:"lines_read"`
	LinesWritten uint64 `json:"lines_written"`
	LinesDeleted uint64 `json:"lines_deleted"`
	Chunks       int    `json:"chunks"`
	BytesWritten int64  `json:"bytes_written"`
}

// useJSONOutput selects JSON when logs are JSON or the output is not a
// terminal.
func useJSONOutput(cmd *cobra.Command, cfg *config.Config) bool {
	if cfg.Log.JSON {
		return true
	}
	return !isTerminal(cmd.OutOrStdout())
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

func writeStats(w io.Writer, stats sorter.Stats, asJSON bool) error {
	if asJSON {
		data, err := json.Marshal(statsOutput{
			LinesRead:    stats.LinesRead,
			LinesWritten: stats.LinesWritten,
			LinesDeleted: stats.LinesDeleted(),
			Chunks:       stats.Chunks,
			BytesWritten: stats.BytesWritten,
		})
		if err != nil {
			return fmt.Errorf("failed to encode statistics: %w", err)
		}
		if _, err := w.Write(pretty.Pretty(data)); err != nil {
			return fmt.Errorf("failed to write statistics: %w", err)
		}
		return nil
	}
	label := lipgloss.NewStyle().Bold(true).Width(15)
	rows := []struct {
		name  string
		value string
	}{
		{"lines read", humanize.Comma(int64(stats.LinesRead))},
		{"lines written", humanize.Comma(int64(stats.LinesWritten))},
		{"lines deleted", humanize.Comma(int64(stats.LinesDeleted()))},
		{"chunks", humanize.Comma(int64(stats.Chunks))},
		{"bytes written", humanize.Bytes(uint64(stats.BytesWritten))},
	}
	for _, row := range rows {
		if _, err := fmt.Fprintf(w, "%s %s\n", label.Render(row.name+":"), row.value); err != nil {
			return fmt.Errorf("failed to write statistics: %w", err)
		}
	}
	return nil
}
