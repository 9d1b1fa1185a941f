package commands

import (
	"context"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/fafquery/internal/cli/output"
	"github.com/leapstack-labs/fafquery/pkg/catalog"
	"github.com/leapstack-labs/fafquery/pkg/faf"
)

// NewDiscoverCommand creates the discover command and its subcommands.
func NewDiscoverCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "discover",
		Short: "List valid filter values",
		Long: `List the commodities, zones, states, modes and years accepted by the
query filters. Every list except modes and years takes --search to keep
entries whose code or description contains the term (case-insensitive).`,
		Example: `  # Commodities mentioning "chem"
  fafquery discover commodities --search chem

  # All transport modes as JSON
  fafquery discover modes -o json`,
	}

	cmd.AddCommand(newDiscoverTableCommand("commodities", "List SCTG2 commodities", (*faf.Session).AvailableCommodities))
	cmd.AddCommand(newDiscoverTableCommand("zones", "List FAF zones", (*faf.Session).AvailableZones))
	cmd.AddCommand(newDiscoverTableCommand("states", "List states", (*faf.Session).AvailableStates))
	cmd.AddCommand(&cobra.Command{
		Use:   "modes",
		Short: "List transport modes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, r := openSession(cmd)
			defer func() { _ = s.Close() }()
			t, err := s.AvailableModes(cmd.Context())
			if err != nil {
				return err
			}
			return renderCatalogTable(r, t)
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "years",
		Short: "List observed and forecast years",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return renderYears(newRenderer(cmd), faf.AvailableYears())
		},
	})

	return cmd
}

type listFunc func(*faf.Session, context.Context, string) (*catalog.Table, error)

func newDiscoverTableCommand(use, short string, list listFunc) *cobra.Command {
	var search string
	cmd := &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, r := openSession(cmd)
			defer func() { _ = s.Close() }()
			t, err := list(s, cmd.Context(), search)
			if err != nil {
				return err
			}
			return renderCatalogTable(r, t)
		},
	}
	cmd.Flags().StringVarP(&search, "search", "s", "", "Keep entries containing this term")
	return cmd
}

func renderCatalogTable(r *output.Renderer, t *catalog.Table) error {
	header := make([]string, 0, len(t.Columns)+1)
	header = append(header, "code")
	for _, c := range t.Columns {
		header = append(header, strings.ToLower(strings.ReplaceAll(c, " ", "_")))
	}
	rows := make([][]string, len(t.Entries))
	for i, e := range t.Entries {
		row := make([]string, 0, len(header))
		row = append(row, strconv.Itoa(e.Code))
		row = append(row, e.Names...)
		rows[i] = row
	}
	return r.Table(header, rows)
}

func renderYears(r *output.Renderer, ys catalog.YearSet) error {
	if r.EffectiveMode() == output.ModeJSON {
		return r.JSON(ys)
	}
	rows := make([][]string, 0, len(ys.Actual)+len(ys.Forecast))
	for _, y := range ys.Actual {
		rows = append(rows, []string{strconv.Itoa(y), "actual"})
	}
	for _, y := range ys.Forecast {
		rows = append(rows, []string{strconv.Itoa(y), "forecast"})
	}
	return r.Table([]string{"year", "kind"}, rows)
}
