package commands

import (
	"cmp"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/fafquery/internal/cli/config"
	"github.com/leapstack-labs/fafquery/internal/cli/output"
	"github.com/leapstack-labs/fafquery/pkg/catalog"
	"github.com/leapstack-labs/fafquery/pkg/query"
)

type networkOptions struct {
	routes  []string
	classes []string
	states  []string
	zones   []string
	nhfn    bool
	nhs     bool
	truck   bool
	toll    bool
	by      string
	summary bool
	total   bool
	geojson bool
}

// NewNetworkCommand creates the network command.
func NewNetworkCommand() *cobra.Command {
	opts := &networkOptions{}
	cmd := &cobra.Command{
		Use:   "network",
		Short: "Query FAF highway network segments",
		Long: `Query the FAF5 highway network links by route, functional class, state,
zone and network membership.

Route and class filters are case-insensitive regular expressions; several
patterns match when any of them does.`,
		Example: `  # Interstate 5 segments in California
  fafquery network --routes '^I5$' --states CA

  # Miles of freight network by state
  fafquery network --nhfn --by state

  # Toll segments as GeoJSON
  fafquery network --toll --geojson > toll.geojson`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runNetwork(cmd, opts)
		},
	}

	f := cmd.Flags()
	f.StringSliceVar(&opts.routes, "routes", nil, "Signed route patterns (e.g. I5, '^US')")
	f.StringSliceVar(&opts.classes, "classes", nil, "Functional class patterns (e.g. Interstate)")
	f.StringSliceVar(&opts.states, "states", nil, "Two-letter state abbreviations")
	f.StringSliceVar(&opts.zones, "zones", nil, "FAF zones (names or codes)")
	f.BoolVar(&opts.nhfn, "nhfn", false, "Only National Highway Freight Network segments")
	f.BoolVar(&opts.nhs, "nhs", false, "Only National Highway System segments")
	f.BoolVar(&opts.truck, "truck", false, "Drop segments where trucks are prohibited")
	f.BoolVar(&opts.toll, "toll", false, "Only toll segments (--toll=false excludes them)")
	f.StringVar(&opts.by, "by", "", "Total length by state, class or zone")
	f.BoolVar(&opts.summary, "summary", false, "Summarize the matching segments")
	f.BoolVar(&opts.total, "total-length", false, "Print the total length only")
	f.BoolVar(&opts.geojson, "geojson", false, "Write matching segments as GeoJSON")

	_ = cmd.RegisterFlagCompletionFunc("by", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		return []string{"state", "class", "zone"}, cobra.ShellCompDirectiveNoFileComp
	})

	return cmd
}

func (o *networkOptions) build(cmd *cobra.Command, q query.NetworkQuery) query.NetworkQuery {
	changed := cmd.Flags().Changed
	if len(o.routes) > 0 {
		q = q.Routes(o.routes...)
	}
	if len(o.classes) > 0 {
		q = q.FunctionalClasses(o.classes...)
	}
	if len(o.states) > 0 {
		q = q.States(o.states...)
	}
	if len(o.zones) > 0 {
		q = q.Zones(catalog.ParseRefs(o.zones)...)
	}
	if o.nhfn {
		q = q.FreightNetwork(true)
	}
	if o.nhs {
		q = q.NHS(true)
	}
	if o.truck {
		q = q.TruckAllowed(true)
	}
	if changed("toll") {
		q = q.TollRoads(o.toll)
	}
	return q
}

func runNetwork(cmd *cobra.Command, opts *networkOptions) error {
	ctx := cmd.Context()
	s, r := openSession(cmd)
	defer func() { _ = s.Close() }()

	q := opts.build(cmd, s.NetworkQuery())
	if err := q.Err(); err != nil {
		return err
	}
	for _, w := range q.Validate() {
		r.Warning(w)
	}
	config.GetLogger(ctx).Debug("running network query", slog.String("query", q.String()))

	switch {
	case opts.geojson:
		fc, err := q.ToGeoJSON(ctx)
		if err != nil {
			return err
		}
		return r.GeoJSON(fc)
	case opts.summary:
		sum, err := q.Summarize(ctx)
		if err != nil {
			return err
		}
		return keyValues(r, "Network summary",
			[]string{"total_segments", "total_length", "avg_length", "states", "functional_classes"},
			map[string]any{
				"total_segments":     sum.TotalSegments,
				"total_length":       jsonNumber(sum.TotalLength),
				"avg_length":         jsonNumber(sum.AvgLength),
				"states":             sum.States,
				"functional_classes": sum.FunctionalClasses,
			})
	case opts.total:
		total, err := q.TotalLength(ctx)
		if err != nil {
			return err
		}
		return keyValues(r, "Network length", []string{"total_length"}, map[string]any{"total_length": total})
	}

	switch opts.by {
	case "":
	case "state":
		totals, err := q.ByState(ctx)
		if err != nil {
			return err
		}
		return lengthTable(r, "state", totals, func(k string) string { return k })
	case "class":
		totals, err := q.ByFunctionalClass(ctx)
		if err != nil {
			return err
		}
		return lengthTable(r, "functional_class", totals, func(k string) string { return k })
	case "zone":
		totals, err := q.ByZone(ctx)
		if err != nil {
			return err
		}
		return lengthTable(r, "zone", totals, strconv.Itoa)
	default:
		return fmt.Errorf("%w: --by must be state, class or zone, got %q", query.ErrInvalidArgument, opts.by)
	}

	segs, err := q.Get(ctx)
	if err != nil {
		return err
	}
	header := []string{"id", "road_name", "sign_route", "state", "zone", "class", "nhfn", "nhs", "truck", "toll_type", "length"}
	rows := make([][]string, len(segs))
	for i, sg := range segs {
		rows[i] = []string{
			strconv.Itoa(sg.ID), sg.RoadName, sg.SignRoute, sg.State, strconv.Itoa(sg.Zone), sg.Class,
			strconv.FormatBool(sg.NHFN), strconv.FormatBool(sg.NHS), sg.Truck, sg.TollType,
			strconv.FormatFloat(sg.Length, 'f', -1, 64),
		}
	}
	return r.Table(header, rows)
}

func lengthTable[K cmp.Ordered](r *output.Renderer, keyName string, totals []query.LengthTotal[K], format func(K) string) error {
	if r.EffectiveMode() == output.ModeJSON {
		out := make([]map[string]any, len(totals))
		for i, t := range totals {
			out[i] = map[string]any{keyName: t.Key, "length": t.Length}
		}
		return r.JSON(out)
	}
	rows := make([][]string, len(totals))
	for i, t := range totals {
		rows[i] = []string{format(t.Key), strconv.FormatFloat(t.Length, 'f', -1, 64)}
	}
	return r.Table([]string{keyName, "length"}, rows)
}
