package commands

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/fafquery/internal/cli/config"
	"github.com/leapstack-labs/fafquery/internal/cli/output"
	"github.com/leapstack-labs/fafquery/pkg/catalog"
	"github.com/leapstack-labs/fafquery/pkg/faf"
	"github.com/leapstack-labs/fafquery/pkg/query"
)

// flowOptions holds the flags shared by the flow commands.
type flowOptions struct {
	originStates        []string
	destinationStates   []string
	originZones         []string
	destinationZones    []string
	originCounties      []string
	destinationCounties []string
	commodities         []string
	modes               []string
	tradeTypes          []string
	scenarios           []string
	years               []int
	yearRange           string
	minTons             float64
	minValue            float64
	thresholdYear       int

	format           string
	top              int
	by               string
	year             int
	groupBy          []string
	metrics          []string
	summarize        bool
	estimate         bool
	compareYears     []int
	compareScenarios bool
	byCounty         string
	geojson          bool
}

// flowCommand describes one flow command.
type flowCommand struct {
	use, short, long, example string
	kind                      query.Kind
	start                     func(*faf.Session) query.FlowQuery
}

// NewFlowsCommand creates the flows command (zone-level regional flows).
func NewFlowsCommand() *cobra.Command {
	return newFlowCommand(flowCommand{
		use:   "flows",
		short: "Query regional (FAF zone) freight flows",
		long: `Query the regional FAF5 flow table, filtered by origin and destination
state or zone, commodity, mode, trade type, year and minimum tons or value.

Names and numeric codes are both accepted; use "fafquery discover" to list them.

Output adapts to environment:
  - Terminal: Styled table
  - Piped/Scripted: Markdown table (agent-friendly)`,
		example: `  # Electronics shipped out of California in 2020
  fafquery flows --origin-states California --commodities Electronics --years 2020

  # Ten largest truck flows into Texas by tons
  fafquery flows --destination-states TX --modes Truck --top 10 --by tons

  # Tons by commodity, as CSV
  fafquery flows --origin-states 6 --group-by sctg2 -o csv

  # Flow lines as GeoJSON
  fafquery flows --origin-zones 61 --geojson > flows.geojson`,
		kind:  query.KindRegional,
		start: (*faf.Session).FAFQuery,
	})
}

// NewStatesCommand creates the states command (state-level flows).
func NewStatesCommand() *cobra.Command {
	return newFlowCommand(flowCommand{
		use:   "states",
		short: "Query state-level freight flows",
		long: `Query the state-level FAF5 flow table. Zone filters are not available at
this level.`,
		example: `  # Flows from Texas to California, long format
  fafquery states --origin-states Texas --destination-states California --format long`,
		kind:  query.KindState,
		start: (*faf.Session).StateQuery,
	})
}

// NewForecastCommand creates the forecast command.
func NewForecastCommand() *cobra.Command {
	return newFlowCommand(flowCommand{
		use:   "forecast",
		short: "Query HiLo forecast flows",
		long: `Query the regional HiLo forecast table. Results default to long format with
a scenario column (base, high, low).`,
		example: `  # High and low scenarios for 2040
  fafquery forecast --years 2040 --scenarios high,low

  # Compare scenarios side by side for 2050
  fafquery forecast --origin-states CA --compare-scenarios --year 2050`,
		kind:  query.KindForecast,
		start: (*faf.Session).ForecastQuery,
	})
}

// NewCountyCommand creates the county command.
func NewCountyCommand() *cobra.Command {
	return newFlowCommand(flowCommand{
		use:   "county",
		short: "Query county-level flows (disaggregated)",
		long: `Query regional flows disaggregated to counties with the county factor
tables. Requires "fafquery setup county <zip>" and exactly one supported mode.`,
		example: `  # Truck flows from Los Angeles County
  fafquery county --modes Truck --origin-counties 06037

  # Tons by destination county
  fafquery county --modes Rail --by-county destination`,
		kind:  query.KindCounty,
		start: (*faf.Session).CountyQuery,
	})
}

func newFlowCommand(fc flowCommand) *cobra.Command {
	opts := &flowOptions{}
	cmd := &cobra.Command{
		Use:     fc.use,
		Short:   fc.short,
		Long:    fc.long,
		Example: fc.example,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runFlows(cmd, fc, opts)
		},
	}

	f := cmd.Flags()
	f.StringSliceVar(&opts.originStates, "origin-states", nil, "Origin states (names, abbreviations or FIPS codes)")
	f.StringSliceVar(&opts.destinationStates, "destination-states", nil, "Destination states")
	if fc.kind != query.KindState {
		f.StringSliceVar(&opts.originZones, "origin-zones", nil, "Origin FAF zones (names or codes)")
		f.StringSliceVar(&opts.destinationZones, "destination-zones", nil, "Destination FAF zones")
	}
	f.StringSliceVar(&opts.commodities, "commodities", nil, "SCTG2 commodities (names or codes)")
	f.StringSliceVar(&opts.modes, "modes", nil, "Transport modes (names or codes)")
	f.StringSliceVar(&opts.tradeTypes, "trade-types", nil, "Trade types (domestic, import, export or 1-3)")
	f.IntSliceVar(&opts.years, "years", nil, "Years to include")
	f.StringVar(&opts.yearRange, "year-range", "", "Inclusive year range START:END")
	f.Float64Var(&opts.minTons, "min-tons", 0, "Keep flows with at least this many thousand tons")
	f.Float64Var(&opts.minValue, "min-value", 0, "Keep flows with at least this value (million $)")
	f.IntVar(&opts.thresholdYear, "threshold-year", 0, "Year checked by --min-tons and --min-value (default 2020)")

	f.StringVar(&opts.format, "format", "", "Result format (wide|long)")
	f.IntVar(&opts.top, "top", 0, "Return the N largest flows")
	f.StringVar(&opts.by, "by", "tons", "Metric ranked by --top or described by --summarize")
	f.IntVar(&opts.year, "year", 0, "Year used by --top, --summarize and --compare-scenarios")
	f.StringSliceVar(&opts.groupBy, "group-by", nil, "Sum metrics by these key columns")
	f.StringSliceVar(&opts.metrics, "metrics", nil, "Metrics summed by --group-by (default tons,value)")
	f.BoolVar(&opts.summarize, "summarize", false, "Describe the --by metric for --year")
	f.BoolVar(&opts.estimate, "estimate", false, "Print the number of matching rows only")
	f.IntSliceVar(&opts.compareYears, "compare-years", nil, "Wide result restricted to these years")

	_ = cmd.RegisterFlagCompletionFunc("format", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		return []string{"wide", "long"}, cobra.ShellCompDirectiveNoFileComp
	})
	_ = cmd.RegisterFlagCompletionFunc("by", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		return []string{"tons", "value", "tmiles", "current_value"}, cobra.ShellCompDirectiveNoFileComp
	})

	switch fc.kind {
	case query.KindRegional:
		f.BoolVar(&opts.geojson, "geojson", false, "Write flow lines between zone centroids as GeoJSON")
	case query.KindForecast:
		f.StringSliceVar(&opts.scenarios, "scenarios", nil, "Forecast scenarios (base, high, low)")
		f.BoolVar(&opts.compareScenarios, "compare-scenarios", false, "Base, high and low side by side for --year")
		_ = cmd.RegisterFlagCompletionFunc("scenarios", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
			return catalog.Scenarios(), cobra.ShellCompDirectiveNoFileComp
		})
	case query.KindCounty:
		f.StringSliceVar(&opts.originCounties, "origin-counties", nil, "Origin 5-digit county FIPS codes")
		f.StringSliceVar(&opts.destinationCounties, "destination-counties", nil, "Destination county FIPS codes")
		f.StringVar(&opts.byCounty, "by-county", "", "Sum metrics by origin or destination county")
		_ = cmd.RegisterFlagCompletionFunc("by-county", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
			return []string{"origin", "destination"}, cobra.ShellCompDirectiveNoFileComp
		})
	}

	return cmd
}

// build applies every set filter to q. Errors stick to the returned query.
func (o *flowOptions) build(cmd *cobra.Command, q query.FlowQuery) query.FlowQuery {
	changed := cmd.Flags().Changed
	if len(o.originStates) > 0 {
		q = q.OriginStates(catalog.ParseRefs(o.originStates)...)
	}
	if len(o.destinationStates) > 0 {
		q = q.DestinationStates(catalog.ParseRefs(o.destinationStates)...)
	}
	if len(o.originZones) > 0 {
		q = q.OriginZones(catalog.ParseRefs(o.originZones)...)
	}
	if len(o.destinationZones) > 0 {
		q = q.DestinationZones(catalog.ParseRefs(o.destinationZones)...)
	}
	if len(o.originCounties) > 0 {
		q = q.OriginCounties(catalog.ParseRefs(o.originCounties)...)
	}
	if len(o.destinationCounties) > 0 {
		q = q.DestinationCounties(catalog.ParseRefs(o.destinationCounties)...)
	}
	if len(o.commodities) > 0 {
		q = q.Commodities(catalog.ParseRefs(o.commodities)...)
	}
	if len(o.modes) > 0 {
		q = q.Modes(catalog.ParseRefs(o.modes)...)
	}
	if len(o.tradeTypes) > 0 {
		q = q.TradeTypes(catalog.ParseRefs(o.tradeTypes)...)
	}
	if len(o.years) > 0 {
		q = q.Years(o.years...)
	}
	if o.yearRange != "" {
		start, end, err := parseYearRange(o.yearRange)
		if err != nil {
			return query.Failed(q.Kind(), err)
		}
		q = q.YearRange(start, end)
	}
	if changed("min-tons") {
		q = q.MinTons(o.minTons, o.thresholdYear)
	}
	if changed("min-value") {
		q = q.MinValue(o.minValue, o.thresholdYear)
	}
	if len(o.scenarios) > 0 {
		q = q.Scenarios(o.scenarios...)
	}
	return q
}

func runFlows(cmd *cobra.Command, fc flowCommand, opts *flowOptions) error {
	ctx := cmd.Context()
	logger := config.GetLogger(ctx)
	s, r := openSession(cmd)
	defer func() { _ = s.Close() }()

	q := opts.build(cmd, fc.start(s))
	if err := q.Err(); err != nil {
		return err
	}
	for _, w := range q.Validate() {
		r.Warning(w)
	}
	logger.Debug("running flow query", slog.String("query", q.String()))

	var (
		frame *query.Frame
		err   error
	)
	switch {
	case opts.geojson:
		lines, err := q.ToGeo(ctx)
		if err != nil {
			return err
		}
		if lines.Dropped > 0 {
			r.Warning(fmt.Sprintf("%d flows dropped: zone geometry missing", lines.Dropped))
		}
		return r.GeoJSON(lines.FeatureCollection())
	case opts.estimate:
		n, err := q.EstimateSize(ctx)
		if err != nil {
			return err
		}
		return keyValues(r, "Estimate", []string{"rows"}, map[string]any{"rows": n})
	case opts.summarize:
		sum, err := q.Summarize(ctx, opts.by, opts.year)
		if err != nil {
			return err
		}
		return renderSummary(r, sum)
	case opts.top > 0:
		frame, err = q.Top(ctx, opts.top, opts.by, opts.year)
	case len(opts.groupBy) > 0:
		frame, err = q.GroupBy(ctx, opts.groupBy, opts.metrics, opts.years)
	case opts.byCounty == "origin":
		frame, err = q.ByOriginCounty(ctx, opts.metrics, opts.years)
	case opts.byCounty == "destination":
		frame, err = q.ByDestinationCounty(ctx, opts.metrics, opts.years)
	case opts.byCounty != "":
		return fmt.Errorf("%w: --by-county must be origin or destination, got %q", query.ErrInvalidArgument, opts.byCounty)
	case len(opts.compareYears) > 0:
		frame, err = q.CompareYears(ctx, opts.compareYears...)
	case opts.compareScenarios:
		frame, err = q.CompareScenarios(ctx, opts.year)
	default:
		format, perr := query.ParseFormat(opts.format)
		if perr != nil {
			return perr
		}
		frame, err = q.Get(ctx, format)
	}
	if err != nil {
		return err
	}
	return r.Frame(frame)
}

func renderSummary(r *output.Renderer, s query.Summary) error {
	keys := []string{"column", "flows", "total", "mean", "median", "min", "max"}
	values := map[string]any{
		"column": s.Column,
		"flows":  s.Flows,
		"total":  jsonNumber(s.Total),
		"mean":   jsonNumber(s.Mean),
		"median": jsonNumber(s.Median),
		"min":    jsonNumber(s.Min),
		"max":    jsonNumber(s.Max),
	}
	return keyValues(r, "Summary", keys, values)
}
