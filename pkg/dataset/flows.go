package dataset

import (
	"fmt"
	"slices"
	"strconv"
	"strings"
)

// Key columns of the zone-level (regional) flow tables.
var RegionalKeys = []string{
	"dms_orig", "dms_dest", "sctg2", "dms_mode", "trade_type",
	"dist_band", "fr_orig", "fr_dest", "fr_inmode", "fr_outmode",
}

// Key columns of the state-level flow tables.
var StateKeys = []string{
	"dms_origst", "dms_destst", "sctg2", "dms_mode", "trade_type",
	"dist_band", "fr_orig", "fr_dest", "fr_inmode", "fr_outmode",
}

// MetricPrefixes are the measure names that prefix every metric column.
// current_value is listed before value so prefix matching picks the longer one.
var MetricPrefixes = []string{"current_value", "tons", "value", "tmiles"}

// MetricColumn builds a metric column name such as tons_2020 or tons_2030_high.
// Scenario "" and "base" both address the base column.
func MetricColumn(metric string, year int, scenario string) string {
	if scenario == "" || scenario == "base" {
		return fmt.Sprintf("%s_%d", metric, year)
	}
	return fmt.Sprintf("%s_%d_%s", metric, year, scenario)
}

// ParseMetricColumn splits a metric column into its metric, year and scenario
// (empty for base columns). ok is false for non-metric columns.
func ParseMetricColumn(col string) (metric string, year int, scenario string, ok bool) {
	for _, p := range MetricPrefixes {
		rest, found := strings.CutPrefix(col, p+"_")
		if !found {
			continue
		}
		yearPart, scen, _ := strings.Cut(rest, "_")
		y, err := strconv.Atoi(yearPart)
		if err != nil {
			return "", 0, "", false
		}
		return p, y, scen, true
	}
	return "", 0, "", false
}

// FlowTable is a column-major freight flow table. Key columns hold integer
// codes (NULL stored as 0); metric columns hold float64 (NULL stored as NaN).
type FlowTable struct {
	Dataset Dataset
	// KeyNames lists the key columns present, in canonical order.
	KeyNames []string
	Keys     map[string][]int
	// MetricNames lists the metric columns present, in file order.
	MetricNames []string
	Metrics     map[string][]float64

	rows int
}

// NewFlowTable converts a raw result into a FlowTable. keyOrder gives the
// canonical key columns; absent ones are skipped, other non-metric columns are
// ignored.
func NewFlowTable(ds Dataset, raw *RawTable, keyOrder []string) (*FlowTable, error) {
	t := &FlowTable{
		Dataset: ds,
		Keys:    make(map[string][]int),
		Metrics: make(map[string][]float64),
		rows:    raw.Len(),
	}

	for _, k := range keyOrder {
		if vals, ok := raw.Ints(k); ok {
			t.KeyNames = append(t.KeyNames, k)
			t.Keys[k] = vals
		}
	}
	if len(t.KeyNames) == 0 {
		return nil, fmt.Errorf("%s: none of the key columns %v found", ds, keyOrder)
	}

	for _, c := range raw.Columns {
		if slices.Contains(t.KeyNames, c) {
			continue
		}
		if _, _, _, ok := ParseMetricColumn(c); !ok {
			continue
		}
		vals, _ := raw.Floats(c)
		t.MetricNames = append(t.MetricNames, c)
		t.Metrics[c] = vals
	}

	return t, nil
}

// Len returns the number of rows.
func (t *FlowTable) Len() int {
	if t == nil {
		return 0
	}
	return t.rows
}

// Key returns the values of a key column.
func (t *FlowTable) Key(name string) ([]int, bool) {
	v, ok := t.Keys[name]
	return v, ok
}

// Metric returns the values of a metric column.
func (t *FlowTable) Metric(name string) ([]float64, bool) {
	v, ok := t.Metrics[name]
	return v, ok
}

// HasMetric reports whether column name exists.
func (t *FlowTable) HasMetric(name string) bool {
	_, ok := t.Metrics[name]
	return ok
}

// Years returns the distinct years with a base column for metric, ascending.
func (t *FlowTable) Years(metric string) []int {
	var years []int
	for _, c := range t.MetricNames {
		m, y, scen, ok := ParseMetricColumn(c)
		if ok && m == metric && scen == "" && !slices.Contains(years, y) {
			years = append(years, y)
		}
	}
	slices.Sort(years)
	return years
}

// NewFlowTableFromColumns assembles a FlowTable from already converted
// columns. Every column must have the same length.
func NewFlowTableFromColumns(ds Dataset, keyNames []string, keys map[string][]int, metricNames []string, metrics map[string][]float64) (*FlowTable, error) {
	rows := -1
	check := func(name string, n int) error {
		if rows < 0 {
			rows = n
		} else if n != rows {
			return fmt.Errorf("%s: column %s has %d rows, want %d", ds, name, n, rows)
		}
		return nil
	}
	for _, k := range keyNames {
		if err := check(k, len(keys[k])); err != nil {
			return nil, err
		}
	}
	for _, m := range metricNames {
		if err := check(m, len(metrics[m])); err != nil {
			return nil, err
		}
	}
	if rows < 0 {
		rows = 0
	}
	return &FlowTable{
		Dataset:     ds,
		KeyNames:    keyNames,
		Keys:        keys,
		MetricNames: metricNames,
		Metrics:     metrics,
		rows:        rows,
	}, nil
}
