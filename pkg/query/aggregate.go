package query

import (
	"context"
	"fmt"
	"math"
	"slices"
	"strings"

	"github.com/leapstack-labs/fafquery/pkg/dataset"
)

// DefaultMetrics are summed by GroupBy when no metrics are given.
var DefaultMetrics = []string{"tons", "value"}

// DefaultYear is used by Top, Summarize and GroupBy when no year is given.
const DefaultYear = 2020

// GroupBy sums metric columns over the filtered wide result, one row per
// distinct combination of fields, ordered by key. metrics default to tons and
// value; years default to the year clause, else 2020. When none of the
// requested metric columns exist the result is an empty frame.
func (q FlowQuery) GroupBy(ctx context.Context, fields []string, metrics []string, years []int) (*Frame, error) {
	if err := q.ready(); err != nil {
		return nil, err
	}
	if len(fields) == 0 {
		return nil, invalidf("group by needs at least one field")
	}
	if len(metrics) == 0 {
		metrics = DefaultMetrics
	}
	if len(years) == 0 {
		if ys, ok := q.spec.Ints(ClauseYears); ok {
			years = ys
		} else {
			years = []int{q.defaultYear()}
		}
	}

	wide, err := q.Get(ctx, FormatWide)
	if err != nil {
		return nil, err
	}

	keyIdx := make([]int, len(fields))
	for i, f := range fields {
		keyIdx[i] = wide.KeyIndex(f)
		if keyIdx[i] < 0 {
			return nil, invalidf("unknown group by field %q; available fields: %s", f, strings.Join(wide.Keys, ", "))
		}
	}

	var cols []string
	var colIdx []int
	for _, m := range metrics {
		for _, y := range years {
			c := dataset.MetricColumn(m, y, "")
			if i := wide.MetricIndex(c); i >= 0 && !slices.Contains(cols, c) {
				cols = append(cols, c)
				colIdx = append(colIdx, i)
			}
		}
	}
	if len(cols) == 0 {
		return &Frame{}, nil
	}

	out := &Frame{Keys: slices.Clone(fields), Metrics: cols}
	groups := make(map[string]int)
	for _, row := range wide.Rows {
		keys := make([]int, len(keyIdx))
		for i, k := range keyIdx {
			keys[i] = row.Keys[k]
		}
		id := fmt.Sprint(keys)
		g, ok := groups[id]
		if !ok {
			g = len(out.Rows)
			groups[id] = g
			out.Rows = append(out.Rows, Row{Keys: keys, Values: make([]float64, len(cols))})
		}
		for i, c := range colIdx {
			if v := row.Values[c]; !math.IsNaN(v) {
				out.Rows[g].Values[i] += v
			}
		}
	}
	out.sortRows()
	return out, nil
}

func (q FlowQuery) defaultYear() int {
	if q.kind == KindForecast {
		return 2030
	}
	return DefaultYear
}

// ByOrigin sums metrics by origin (zone or state).
func (q FlowQuery) ByOrigin(ctx context.Context, metrics []string, years []int) (*Frame, error) {
	return q.GroupBy(ctx, []string{q.kind.info().origin}, metrics, years)
}

// ByDestination sums metrics by destination (zone or state).
func (q FlowQuery) ByDestination(ctx context.Context, metrics []string, years []int) (*Frame, error) {
	return q.GroupBy(ctx, []string{q.kind.info().dest}, metrics, years)
}

// ByCommodity sums metrics by SCTG2 commodity.
func (q FlowQuery) ByCommodity(ctx context.Context, metrics []string, years []int) (*Frame, error) {
	return q.GroupBy(ctx, []string{"sctg2"}, metrics, years)
}

// ByMode sums metrics by mode.
func (q FlowQuery) ByMode(ctx context.Context, metrics []string, years []int) (*Frame, error) {
	return q.GroupBy(ctx, []string{"dms_mode"}, metrics, years)
}

// Top returns the n rows with the largest <by>_<year> value, ties kept in
// table order. Rows with a missing value are excluded. A year of 0 means 2020
// (2030 for forecasts); a missing column yields an empty frame.
func (q FlowQuery) Top(ctx context.Context, n int, by string, year int) (*Frame, error) {
	if err := q.ready(); err != nil {
		return nil, err
	}
	if n < 0 {
		return nil, invalidf("top needs a non-negative row count, got %d", n)
	}
	if by == "" {
		by = "tons"
	}
	if year == 0 {
		year = q.defaultYear()
	}

	wide, err := q.Get(ctx, FormatWide)
	if err != nil {
		return nil, err
	}
	idx := wide.MetricIndex(dataset.MetricColumn(by, year, ""))
	if idx < 0 {
		return &Frame{}, nil
	}

	rows := slices.DeleteFunc(wide.Rows, func(r Row) bool { return math.IsNaN(r.Values[idx]) })
	slices.SortStableFunc(rows, func(a, b Row) int {
		switch {
		case a.Values[idx] > b.Values[idx]:
			return -1
		case a.Values[idx] < b.Values[idx]:
			return 1
		default:
			return 0
		}
	})
	if len(rows) > n {
		rows = rows[:n]
	}
	wide.Rows = rows
	return wide, nil
}

// Summary holds descriptive statistics of one metric column.
type Summary struct {
	Column string  `json:"column"`
	Total  float64 `json:"total"`
	Mean   float64 `json:"mean"`
	Median float64 `json:"median"`
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
	Flows  int     `json:"flows"`
}

// Summarize computes total, mean, median, min and max of <metric>_<year> over
// the filtered rows. Missing values are ignored by the statistics but counted
// in Flows. An empty result yields Total 0, NaN statistics and Flows 0.
func (q FlowQuery) Summarize(ctx context.Context, metric string, year int) (Summary, error) {
	if err := q.ready(); err != nil {
		return Summary{}, err
	}
	if metric == "" {
		metric = "tons"
	}
	if year == 0 {
		year = q.defaultYear()
	}
	col := dataset.MetricColumn(metric, year, "")

	wide, err := q.Get(ctx, FormatWide)
	if err != nil {
		return Summary{}, err
	}
	vals, ok := wide.Column(col)
	if !ok {
		return Summary{}, invalidf("column %s not found", col)
	}
	s := summarize(vals)
	s.Column = col
	return s, nil
}

func summarize(vals []float64) Summary {
	s := Summary{Flows: len(vals), Mean: math.NaN(), Median: math.NaN(), Min: math.NaN(), Max: math.NaN()}
	present := make([]float64, 0, len(vals))
	for _, v := range vals {
		if !math.IsNaN(v) {
			present = append(present, v)
		}
	}
	if len(present) == 0 {
		return s
	}

	slices.Sort(present)
	for _, v := range present {
		s.Total += v
	}
	s.Mean = s.Total / float64(len(present))
	s.Min = present[0]
	s.Max = present[len(present)-1]
	mid := len(present) / 2
	if len(present)%2 == 1 {
		s.Median = present[mid]
	} else {
		s.Median = (present[mid-1] + present[mid]) / 2
	}
	return s
}
