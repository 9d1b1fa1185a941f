package query

import (
	"context"
	"log/slog"
	"math"
	"slices"

	"github.com/leapstack-labs/fafquery/pkg/catalog"
	"github.com/leapstack-labs/fafquery/pkg/dataset"
)

// baseMetrics are the per-year columns returned for a year clause, in output
// order.
var baseMetrics = []string{"tons", "value", "tmiles"}

// longMetricOrder is the column order of long-format metrics.
var longMetricOrder = []string{"tons", "value", "tmiles", "current_value"}

// scenarioMetrics are the metrics published for high and low scenarios.
var scenarioMetrics = []string{"tons", "value"}

// Get executes the query and returns the shaped result. Results are cached by
// signature and format; every call returns an independent copy.
func (q FlowQuery) Get(ctx context.Context, format Format) (*Frame, error) {
	if err := q.ready(); err != nil {
		return nil, err
	}
	if format == FormatDefault {
		format = q.kind.info().format
	}
	if _, err := ParseFormat(string(format)); err != nil {
		return nil, err
	}

	key := q.spec.CacheKey(q.kind, format)
	if v, ok := q.eng.cache.get(key); ok {
		q.eng.logger.Debug("result cache hit", slog.String("query", q.String()), slog.String("format", string(format)))
		return v.(*Frame), nil
	}

	t, rows, err := q.filtered(ctx)
	if err != nil {
		return nil, err
	}

	var f *Frame
	switch {
	case format == FormatLong && q.kind == KindForecast:
		f = q.scenarioLong(t, rows)
	case format == FormatLong:
		f = q.long(t, rows)
	default:
		f = q.wide(t, rows)
	}

	q.eng.logger.Debug("query executed",
		slog.String("query", q.String()),
		slog.String("format", string(format)),
		slog.Int("rows", f.Len()))
	q.eng.cache.put(key, f)
	return f.Clone(), nil
}

// EstimateSize returns the number of rows left after filtering, before any
// reshaping.
func (q FlowQuery) EstimateSize(ctx context.Context) (int, error) {
	if err := q.ready(); err != nil {
		return 0, err
	}
	_, rows, err := q.filtered(ctx)
	if err != nil {
		return 0, err
	}
	return len(rows), nil
}

// CompareYears returns the wide result restricted to years, or to the current
// year clause when none are given.
func (q FlowQuery) CompareYears(ctx context.Context, years ...int) (*Frame, error) {
	if len(years) > 0 {
		q = q.Years(years...)
	}
	return q.Get(ctx, FormatWide)
}

// CompareScenarios returns base, high and low forecasts for one year in long
// format. A zero year means 2030. Forecast only.
func (q FlowQuery) CompareScenarios(ctx context.Context, year int) (*Frame, error) {
	if q.err == nil && q.kind != KindForecast {
		return nil, &UnsupportedError{Query: q.kind.String(), Op: "scenario comparison", Hint: "use ForecastQuery"}
	}
	if year == 0 {
		year = catalog.FirstForecastYear
	}
	return q.Scenarios(catalog.Scenarios()...).Years(year).Get(ctx, FormatLong)
}

// filtered loads the base table and returns the row indices that satisfy
// every clause. County queries return the disaggregated table.
func (q FlowQuery) filtered(ctx context.Context) (*dataset.FlowTable, []int, error) {
	info := q.kind.info()
	t, err := q.eng.source.Flows(ctx, info.dataset)
	if err != nil {
		return nil, nil, err
	}

	rows := q.applyClauses(t)
	if q.kind == KindCounty {
		return q.disaggregate(ctx, t, rows)
	}
	return t, rows, nil
}

// mask is a single-column predicate over a flow table.
type mask func(row int) bool

func inSet(col []int, codes []int, transform func(int) int) mask {
	set := make(map[int]struct{}, len(codes))
	for _, c := range codes {
		set[c] = struct{}{}
	}
	return func(row int) bool {
		v := col[row]
		if transform != nil {
			v = transform(v)
		}
		_, ok := set[v]
		return ok
	}
}

func stateOfZone(zone int) int { return zone / 10 }

// applyClauses evaluates every flow clause as a conjunction in one pass.
func (q FlowQuery) applyClauses(t *dataset.FlowTable) []int {
	info := q.kind.info()
	var masks []mask

	keyMask := func(clause, col string, transform func(int) int) {
		codes, ok := q.spec.Ints(clause)
		if !ok {
			return
		}
		vals, ok := t.Key(col)
		if !ok {
			q.eng.logger.Warn("filter column missing, clause skipped", slog.String("clause", clause), slog.String("column", col))
			return
		}
		masks = append(masks, inSet(vals, codes, transform))
	}

	var stateTransform func(int) int
	if info.zoneLevel {
		stateTransform = stateOfZone
	}
	keyMask(ClauseOriginStates, info.origin, stateTransform)
	keyMask(ClauseDestinationStates, info.dest, stateTransform)
	if info.zoneLevel {
		keyMask(ClauseOriginZones, info.origin, nil)
		keyMask(ClauseDestinationZones, info.dest, nil)
	}
	keyMask(ClauseCommodities, "sctg2", nil)
	keyMask(ClauseModes, "dms_mode", nil)
	keyMask(ClauseTradeTypes, "trade_type", nil)

	for _, clause := range []string{ClauseMinTons, ClauseMinValue} {
		th, ok := q.spec.Threshold(clause)
		if !ok {
			continue
		}
		vals, ok := t.Metric(th.Column())
		if !ok {
			q.eng.logger.Warn("threshold column missing, clause skipped",
				slog.String("clause", clause), slog.String("column", th.Column()))
			continue
		}
		masks = append(masks, func(row int) bool { return vals[row] >= th.Value })
	}

	rows := make([]int, 0, t.Len())
	for i := 0; i < t.Len(); i++ {
		keep := true
		for _, m := range masks {
			if !m(i) {
				keep = false
				break
			}
		}
		if keep {
			rows = append(rows, i)
		}
	}
	return rows
}

// wideColumns lists the metric columns of the wide result. Without a year
// clause every metric column is returned.
func (q FlowQuery) wideColumns(t *dataset.FlowTable) []string {
	years, ok := q.spec.Ints(ClauseYears)
	if !ok {
		return slices.Clone(t.MetricNames)
	}

	scenarios := q.scenarios()
	var cols []string
	for _, y := range years {
		for _, m := range baseMetrics {
			if c := dataset.MetricColumn(m, y, ""); t.HasMetric(c) {
				cols = append(cols, c)
			}
		}
		if q.kind != KindForecast || !catalog.IsForecastYear(y) {
			continue
		}
		for _, s := range scenarios {
			if s == catalog.ScenarioBase {
				continue
			}
			for _, m := range scenarioMetrics {
				if c := dataset.MetricColumn(m, y, s); t.HasMetric(c) {
					cols = append(cols, c)
				}
			}
		}
	}
	return cols
}

func (q FlowQuery) scenarios() []string {
	if s, ok := q.spec.Strings(ClauseScenarios); ok {
		return s
	}
	return catalog.Scenarios()
}

func keyRow(t *dataset.FlowTable, row int) []int {
	keys := make([]int, len(t.KeyNames))
	for i, k := range t.KeyNames {
		keys[i] = t.Keys[k][row]
	}
	return keys
}

func (q FlowQuery) wide(t *dataset.FlowTable, rows []int) *Frame {
	cols := q.wideColumns(t)
	f := &Frame{Keys: slices.Clone(t.KeyNames), Metrics: cols, Rows: make([]Row, len(rows))}
	for i, r := range rows {
		vals := make([]float64, len(cols))
		for j, c := range cols {
			vals[j] = t.Metrics[c][r]
		}
		f.Rows[i] = Row{Keys: keyRow(t, r), Values: vals}
	}
	return f
}

// long emits one row per input row and year with one column per metric.
// Years where every metric is missing are dropped. Rows are ordered by keys
// then year.
func (q FlowQuery) long(t *dataset.FlowTable, rows []int) *Frame {
	cols := q.wideColumns(t)

	var years []int
	present := make(map[string]bool)
	for _, c := range cols {
		m, y, scen, ok := dataset.ParseMetricColumn(c)
		if !ok || scen != "" {
			continue
		}
		present[m] = true
		if !slices.Contains(years, y) {
			years = append(years, y)
		}
	}
	slices.Sort(years)

	var metrics []string
	for _, m := range longMetricOrder {
		if present[m] {
			metrics = append(metrics, m)
		}
	}

	f := &Frame{Keys: slices.Clone(t.KeyNames), Metrics: metrics, Long: true}
	for _, r := range rows {
		keys := keyRow(t, r)
		for _, y := range years {
			vals, ok := metricValues(t, r, metrics, y, "")
			if !ok {
				continue
			}
			f.Rows = append(f.Rows, Row{Keys: keys, Year: y, Values: vals})
		}
	}
	f.sortRows()
	return f
}

// scenarioLong emits one row per input row, scenario and forecast year with
// tons and value columns. Base values come from the unsuffixed columns.
func (q FlowQuery) scenarioLong(t *dataset.FlowTable, rows []int) *Frame {
	years := catalog.ForecastYears()
	if ys, ok := q.spec.Ints(ClauseYears); ok {
		years = slices.DeleteFunc(slices.Clone(ys), func(y int) bool { return !catalog.IsForecastYear(y) })
	}
	scenarios := q.scenarios()

	f := &Frame{
		Keys:      slices.Clone(t.KeyNames),
		Metrics:   slices.Clone(scenarioMetrics),
		Long:      true,
		Scenarios: true,
	}
	for _, r := range rows {
		keys := keyRow(t, r)
		for _, s := range scenarios {
			for _, y := range years {
				vals, ok := metricValues(t, r, scenarioMetrics, y, s)
				if !ok {
					continue
				}
				f.Rows = append(f.Rows, Row{Keys: keys, Scenario: s, Year: y, Values: vals})
			}
		}
	}
	f.sortRows()
	return f
}

// metricValues reads metric_year[_scenario] for each metric at row. Missing
// columns yield NaN; ok is false when every value is NaN.
func metricValues(t *dataset.FlowTable, row int, metrics []string, year int, scenario string) ([]float64, bool) {
	vals := make([]float64, len(metrics))
	ok := false
	for i, m := range metrics {
		col, found := t.Metric(dataset.MetricColumn(m, year, scenario))
		if !found || math.IsNaN(col[row]) {
			vals[i] = math.NaN()
			continue
		}
		vals[i] = col[row]
		ok = true
	}
	return vals, ok
}
