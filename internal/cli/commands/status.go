package commands

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/fafquery/internal/cli/output"
	"github.com/leapstack-labs/fafquery/pkg/faf"
)

// NewStatusCommand creates the status command.
func NewStatusCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show which data files are installed",
		Long: `List every dataset and county factor table in the data directory with its
size, row count and install time.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, r := openSession(cmd)
			defer func() { _ = s.Close() }()
			return renderStatus(r, s.DataDir(), s.Status())
		},
	}
}

func renderStatus(r *output.Renderer, dataDir string, files []faf.FileStatus) error {
	if r.EffectiveMode() == output.ModeJSON {
		return r.JSON(map[string]any{"data_dir": dataDir, "files": files})
	}

	present := 0
	rows := make([][]string, len(files))
	for i, f := range files {
		state := "missing"
		if f.Present {
			state = "present"
			present++
		}
		installed := ""
		if f.Installed != nil {
			installed = f.Installed.Local().Format(time.DateTime)
		}
		rows[i] = []string{f.Dataset, state, humanBytes(f.Bytes), strconv.FormatInt(f.Rows, 10), installed}
	}

	if r.EffectiveMode() != output.ModeCSV {
		r.Header(2, "Data directory")
		r.Println(output.FormatKeyValue("Path", dataDir))
		r.Println(output.FormatKeyValue("Files", fmt.Sprintf("%d of %d present", present, len(files))))
		r.Println()
	}
	return r.Table([]string{"dataset", "state", "size", "rows", "installed"}, rows)
}

func humanBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return strconv.FormatInt(n, 10) + " B"
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}
