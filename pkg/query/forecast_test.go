package query

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/fafquery/pkg/catalog"
)

func TestForecastQuery_DefaultLong(t *testing.T) {
	eng := newTestEngine(t)

	f, err := eng.Forecast().OriginZones(catalog.Code(61)).Get(context.Background(), FormatDefault)
	require.NoError(t, err)
	assert.True(t, f.Long)
	assert.True(t, f.Scenarios)
	assert.Equal(t, []string{"tons", "value"}, f.Metrics)

	header := f.Header()
	assert.Equal(t, []string{"scenario", "year", "tons", "value"}, header[len(f.Keys):])

	type point struct {
		scenario string
		year     int
		tons     float64
		value    float64
	}
	want := []point{
		{"base", 2030, 150, 1500},
		{"base", 2035, 170, 1650},
		{"high", 2030, 180, 1700},
		{"high", 2035, 210, 1900},
		{"low", 2030, 120, 1300},
		{"low", 2035, 130, 1400},
	}
	require.Equal(t, len(want), f.Len())
	for i, w := range want {
		row := f.Rows[i]
		assert.Equal(t, w, point{row.Scenario, row.Year, row.Values[0], row.Values[1]}, "row %d", i)
	}
}

func TestForecastQuery_ScenarioAndYear(t *testing.T) {
	eng := newTestEngine(t)

	f, err := eng.Forecast().
		OriginZones(catalog.Code(61)).
		Scenarios("HIGH").
		Years(2030).
		Get(context.Background(), FormatLong)
	require.NoError(t, err)
	require.Equal(t, 1, f.Len())
	assert.Equal(t, "high", f.Rows[0].Scenario)
	assert.Equal(t, []float64{180, 1700}, f.Rows[0].Values)
}

func TestForecastQuery_Wide(t *testing.T) {
	eng := newTestEngine(t)

	f, err := eng.Forecast().
		Years(2030).
		Scenarios("base", "high").
		Get(context.Background(), FormatWide)
	require.NoError(t, err)
	assert.Equal(t, 3, f.Len())
	assert.Equal(t, []string{"tons_2030", "value_2030", "tmiles_2030", "tons_2030_high", "value_2030_high"}, f.Metrics)
}

func TestForecastQuery_CompareScenarios(t *testing.T) {
	eng := newTestEngine(t)

	f, err := eng.Forecast().OriginZones(catalog.Code(61)).CompareScenarios(context.Background(), 0)
	require.NoError(t, err)
	require.Equal(t, 3, f.Len())
	for i, s := range catalog.Scenarios() {
		assert.Equal(t, s, f.Rows[i].Scenario)
		assert.Equal(t, 2030, f.Rows[i].Year)
	}
}

func TestForecastQuery_Defaults2030(t *testing.T) {
	eng := newTestEngine(t)
	ctx := context.Background()

	n, err := eng.Forecast().MinTons(200, 0).EstimateSize(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	top, err := eng.Forecast().Top(ctx, 1, "tons", 0)
	require.NoError(t, err)
	require.Equal(t, 1, top.Len())
	orig, _ := top.KeyColumn("dms_orig")
	assert.Equal(t, []int{481}, orig)

	s, err := eng.Forecast().Summarize(ctx, "value", 0)
	require.NoError(t, err)
	assert.Equal(t, "value_2030", s.Column)
	assert.Equal(t, 12500.0, s.Total)
}
