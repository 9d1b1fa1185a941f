package commands

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/fafquery/internal/cli/output"
	"github.com/leapstack-labs/fafquery/internal/setup"
	"github.com/leapstack-labs/fafquery/pkg/dataset"
	"github.com/leapstack-labs/fafquery/pkg/faf"
)

// NewSetupCommand creates the setup command.
func NewSetupCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "setup [dataset...]",
		Short: "Download and convert FAF data",
		Long: `Download the FAF5 archives, extract them and convert the CSV tables to
Parquet in the data directory. Datasets already present are skipped.

Datasets: regional, state, hilo, state_hilo, network, zones. With no
arguments every dataset is installed. The network and zone geometry archives
are extracted only; convert them to Parquet with GDAL.`,
		Example: `  # Install everything
  fafquery setup

  # Only the regional and state flow tables
  fafquery setup regional state

  # Use a different data directory
  fafquery setup --data-dir /data/faf`,
		Args: cobra.ArbitraryArgs,
		ValidArgsFunction: func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
			names := make([]string, 0, len(dataset.Datasets()))
			for _, d := range dataset.Datasets() {
				names = append(names, string(d))
			}
			return names, cobra.ShellCompDirectiveNoFileComp
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			datasets := make([]dataset.Dataset, 0, len(args))
			for _, a := range args {
				d, err := dataset.ParseDataset(a)
				if err != nil {
					return err
				}
				datasets = append(datasets, d)
			}

			s, r := openSession(cmd)
			defer func() { _ = s.Close() }()

			r.Muted("Data directory: " + s.DataDir())
			results, err := s.DownloadAndProcess(cmd.Context(), datasets...)
			if rerr := renderResults(r, results); rerr != nil {
				return rerr
			}
			return err
		},
	}

	cmd.AddCommand(newSetupCountyCommand())
	return cmd
}

func newSetupCountyCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "county <zip>",
		Short: "Install county disaggregation factors",
		Long: `Install the county factor tables from a zip archive holding
<mode>_<origin|destination>_factors files as CSV or Parquet.`,
		Example: `  fafquery setup county ~/Downloads/faf5_county_factors.zip`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, r := openSession(cmd)
			defer func() { _ = s.Close() }()

			results, err := s.SetupCountyData(cmd.Context(), args[0])
			if rerr := renderResults(r, results); rerr != nil {
				return rerr
			}
			return err
		},
	}
}

func renderResults(r *output.Renderer, results []faf.SetupResult) error {
	if len(results) == 0 {
		return nil
	}
	if r.EffectiveMode() == output.ModeJSON {
		return r.JSON(results)
	}
	if r.EffectiveMode() == output.ModeText {
		for _, res := range results {
			msg := fmt.Sprintf("%s %s", res.Dataset, statusText(res))
			if res.Rows > 0 {
				msg += fmt.Sprintf(" (%s rows)", formatNumber(float64(res.Rows)))
			}
			switch res.Status {
			case setup.StatusInstalled:
				r.Success(msg)
			case setup.StatusManual:
				r.Warning(msg + ": " + res.Message)
			case "":
				r.Error(msg)
			default:
				r.Muted(msg)
			}
		}
		return nil
	}

	rows := make([][]string, len(results))
	for i, res := range results {
		rows[i] = []string{string(res.Dataset), statusText(res), strconv.FormatInt(res.Rows, 10), res.Path, res.Message}
	}
	return r.Table([]string{"dataset", "status", "rows", "path", "message"}, rows)
}

// statusText names the outcome; a result without a status failed.
func statusText(res faf.SetupResult) string {
	if res.Status == "" {
		return "failed"
	}
	return string(res.Status)
}
