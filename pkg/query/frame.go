package query

import (
	"cmp"
	"math"
	"slices"
	"strconv"
)

// Row is one result row. Year is set in long format; Scenario in forecast
// long format.
type Row struct {
	Keys     []int
	Scenario string
	Year     int
	Values   []float64
}

// Frame is a materialized query result: integer key columns followed by
// float metric columns.
type Frame struct {
	Keys    []string
	Metrics []string
	// Long frames carry an explicit year per row; Scenarios frames also carry a
	// scenario.
	Long      bool
	Scenarios bool
	Rows      []Row
}

// Len returns the number of rows.
func (f *Frame) Len() int {
	if f == nil {
		return 0
	}
	return len(f.Rows)
}

// Empty reports whether the frame has no rows.
func (f *Frame) Empty() bool {
	return f.Len() == 0
}

// KeyIndex returns the position of key column name, or -1.
func (f *Frame) KeyIndex(name string) int {
	return slices.Index(f.Keys, name)
}

// MetricIndex returns the position of metric column name, or -1.
func (f *Frame) MetricIndex(name string) int {
	return slices.Index(f.Metrics, name)
}

// KeyColumn returns the values of key column name.
func (f *Frame) KeyColumn(name string) ([]int, bool) {
	i := f.KeyIndex(name)
	if i < 0 {
		return nil, false
	}
	out := make([]int, len(f.Rows))
	for r, row := range f.Rows {
		out[r] = row.Keys[i]
	}
	return out, true
}

// Column returns the values of metric column name.
func (f *Frame) Column(name string) ([]float64, bool) {
	i := f.MetricIndex(name)
	if i < 0 {
		return nil, false
	}
	out := make([]float64, len(f.Rows))
	for r, row := range f.Rows {
		out[r] = row.Values[i]
	}
	return out, true
}

// Header returns every column name in display order: keys, scenario, year,
// metrics.
func (f *Frame) Header() []string {
	h := slices.Clone(f.Keys)
	if f.Scenarios {
		h = append(h, "scenario")
	}
	if f.Long {
		h = append(h, "year")
	}
	return append(h, f.Metrics...)
}

// Record returns row i as display values aligned with Header. NaN metrics are
// rendered as empty strings.
func (f *Frame) Record(i int) []string {
	row := f.Rows[i]
	rec := make([]string, 0, len(f.Keys)+2+len(f.Metrics))
	for _, k := range row.Keys {
		rec = append(rec, strconv.Itoa(k))
	}
	if f.Scenarios {
		rec = append(rec, row.Scenario)
	}
	if f.Long {
		rec = append(rec, strconv.Itoa(row.Year))
	}
	for _, v := range row.Values {
		if math.IsNaN(v) {
			rec = append(rec, "")
			continue
		}
		rec = append(rec, strconv.FormatFloat(v, 'f', -1, 64))
	}
	return rec
}

// Map returns row i keyed by column name, for JSON output. NaN metrics are
// nil.
func (f *Frame) Map(i int) map[string]any {
	row := f.Rows[i]
	m := make(map[string]any, len(f.Keys)+2+len(f.Metrics))
	for j, k := range f.Keys {
		m[k] = row.Keys[j]
	}
	if f.Scenarios {
		m["scenario"] = row.Scenario
	}
	if f.Long {
		m["year"] = row.Year
	}
	for j, name := range f.Metrics {
		if math.IsNaN(row.Values[j]) {
			m[name] = nil
			continue
		}
		m[name] = row.Values[j]
	}
	return m
}

// Clone returns a deep copy.
func (f *Frame) Clone() *Frame {
	if f == nil {
		return nil
	}
	out := &Frame{
		Keys:      slices.Clone(f.Keys),
		Metrics:   slices.Clone(f.Metrics),
		Long:      f.Long,
		Scenarios: f.Scenarios,
	}
	if f.Rows != nil {
		out.Rows = make([]Row, len(f.Rows))
		for i, r := range f.Rows {
			out.Rows[i] = Row{
				Keys:     slices.Clone(r.Keys),
				Scenario: r.Scenario,
				Year:     r.Year,
				Values:   slices.Clone(r.Values),
			}
		}
	}
	return out
}

func (f *Frame) cacheClone() cacheValue { return f.Clone() }

// sortRows orders rows by keys, then scenario, then year.
func (f *Frame) sortRows() {
	slices.SortStableFunc(f.Rows, func(a, b Row) int {
		if c := slices.Compare(a.Keys, b.Keys); c != 0 {
			return c
		}
		if c := cmp.Compare(a.Scenario, b.Scenario); c != 0 {
			return c
		}
		return cmp.Compare(a.Year, b.Year)
	})
}
