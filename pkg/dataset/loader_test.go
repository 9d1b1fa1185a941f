package dataset

import (
	"context"
	"errors"
	"math"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/paulmach/orb"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	fixtures "github.com/leapstack-labs/fafquery/internal/testutil"
)

func newTestLoader(t *testing.T, dir string) *Loader {
	t.Helper()
	l := NewLoader(Config{DataDir: dir, Logger: fixtures.NewTestLogger(t)})
	t.Cleanup(func() { _ = l.Close() })
	return l
}

func TestLoader_Flows(t *testing.T) {
	dir := fixtures.WriteFixtureData(t)
	l := newTestLoader(t, dir)
	ctx := context.Background()

	flows, err := l.Flows(ctx, Regional)
	require.NoError(t, err)
	assert.Equal(t, fixtures.RegionalRows, flows.Len())
	assert.Equal(t, RegionalKeys, flows.KeyNames)

	orig, ok := flows.Key("dms_orig")
	require.True(t, ok)
	assert.Equal(t, 61, orig[0])

	frOrig, _ := flows.Key("fr_orig")
	assert.Equal(t, 0, frOrig[0], "NULL codes become 0")
	assert.Equal(t, 801, frOrig[7])

	tmiles, ok := flows.Metric("tmiles_2020")
	require.True(t, ok)
	assert.True(t, math.IsNaN(tmiles[7]), "NULL metrics become NaN")
	assert.True(t, flows.HasMetric("current_value_2020"))
	assert.Equal(t, []int{2020, 2021, 2030}, flows.Years("tons"))

	state, err := l.Flows(ctx, State)
	require.NoError(t, err)
	assert.Equal(t, StateKeys, state.KeyNames)
	assert.Equal(t, 5, state.Len())
}

func TestLoader_Memoizes(t *testing.T) {
	dir := fixtures.WriteFixtureData(t)
	l := newTestLoader(t, dir)
	ctx := context.Background()

	before := testutil.ToFloat64(tableLoadsTotal.WithLabelValues(string(Regional), "ok"))

	var wg sync.WaitGroup
	tables := make([]*FlowTable, 8)
	for i := range tables {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			ft, err := l.Flows(ctx, Regional)
			assert.NoError(t, err)
			tables[i] = ft
		}(i)
	}
	wg.Wait()

	for _, ft := range tables[1:] {
		assert.Same(t, tables[0], ft)
	}
	after := testutil.ToFloat64(tableLoadsTotal.WithLabelValues(string(Regional), "ok"))
	assert.Equal(t, 1.0, after-before)
	assert.Equal(t, []string{string(Regional)}, l.Loaded())

	l.Reset()
	assert.Empty(t, l.Loaded())
	again, err := l.Flows(ctx, Regional)
	require.NoError(t, err)
	assert.NotSame(t, tables[0], again)
}

func TestLoader_Missing(t *testing.T) {
	dir := t.TempDir()
	l := newTestLoader(t, dir)

	_, err := l.Flows(context.Background(), Regional)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrDataUnavailable))
	assert.Contains(t, err.Error(), "fafquery setup")
}

func TestLoader_OnMissing(t *testing.T) {
	src := fixtures.WriteFixtureData(t)
	dir := t.TempDir()

	calls := 0
	l := NewLoader(Config{
		DataDir: dir,
		Logger:  fixtures.NewTestLogger(t),
		OnMissing: func(_ context.Context, ds Dataset) error {
			calls++
			data, err := os.ReadFile(filepath.Join(src, ds.FileName()))
			if err != nil {
				return err
			}
			return os.WriteFile(ds.Path(dir), data, 0o644)
		},
	})
	defer l.Close()

	ft, err := l.Flows(context.Background(), Regional)
	require.NoError(t, err)
	assert.Equal(t, fixtures.RegionalRows, ft.Len())
	assert.Equal(t, 1, calls)

	// OnMissing runs once per dataset; a failing hook is not retried.
	failing := NewLoader(Config{
		DataDir: t.TempDir(),
		OnMissing: func(context.Context, Dataset) error {
			calls++
			return nil
		},
	})
	defer failing.Close()
	_, err = failing.Network(context.Background())
	assert.ErrorIs(t, err, ErrDataUnavailable)
	_, err = failing.Network(context.Background())
	assert.ErrorIs(t, err, ErrDataUnavailable)
	assert.Equal(t, 2, calls)
}

func TestLoader_NetworkAndZones(t *testing.T) {
	dir := fixtures.WriteFixtureData(t)
	l := newTestLoader(t, dir)
	ctx := context.Background()

	net, err := l.Network(ctx)
	require.NoError(t, err)
	require.Equal(t, 6, net.Len())

	s := net.Segments[1]
	assert.Equal(t, "Golden State Fwy", s.RoadName)
	assert.Equal(t, "CA", s.State)
	assert.True(t, s.Toll)
	assert.Equal(t, "Bridge", s.TollType)
	assert.False(t, net.Segments[0].Toll)
	assert.False(t, net.Segments[2].NHFN)
	assert.Equal(t, TruckProhibited, net.Segments[2].Truck)
	require.NotNil(t, s.Geometry)
	assert.Equal(t, "LineString", s.Geometry.GeoJSONType())

	zones, err := l.Zones(ctx)
	require.NoError(t, err)
	assert.Equal(t, 4, zones.Len())
	c, ok := zones.Centroid(481)
	require.True(t, ok)
	assert.InDelta(t, -97.5, c.X(), 1e-9)
	assert.InDelta(t, 30.5, c.Y(), 1e-9)
	_, ok = zones.Centroid(119)
	assert.False(t, ok)
}

func TestLoader_CountyFactors(t *testing.T) {
	dir := fixtures.WriteFixtureData(t)
	l := newTestLoader(t, dir)
	ctx := context.Background()

	truck, err := l.CountyFactors(ctx, "truck", SideOrigin)
	require.NoError(t, err)
	assert.Equal(t, 3, truck.Len())
	assert.Equal(t, []CountyShare{{6037, 0.6}, {6059, 0.4}}, truck.Shares(61, "sctg3499"))
	assert.Empty(t, truck.Shares(61, "sctg0109"))

	_, err = l.CountyFactors(ctx, "water", SideOrigin)
	assert.ErrorIs(t, err, ErrDataUnavailable)
}

func TestMetricColumns(t *testing.T) {
	tests := []struct {
		col      string
		metric   string
		year     int
		scenario string
		ok       bool
	}{
		{"tons_2020", "tons", 2020, "", true},
		{"current_value_2022", "current_value", 2022, "", true},
		{"value_2030_high", "value", 2030, "high", true},
		{"tmiles_2045_low", "tmiles", 2045, "low", true},
		{"dms_orig", "", 0, "", false},
		{"tons_total", "", 0, "", false},
	}
	for _, tt := range tests {
		t.Run(tt.col, func(t *testing.T) {
			m, y, s, ok := ParseMetricColumn(tt.col)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.metric, m)
			assert.Equal(t, tt.year, y)
			assert.Equal(t, tt.scenario, s)
		})
	}

	assert.Equal(t, "tons_2030", MetricColumn("tons", 2030, "base"))
	assert.Equal(t, "value_2030_low", MetricColumn("value", 2030, "low"))
}

func TestSCTGGroup(t *testing.T) {
	assert.Equal(t, "sctg0109", SCTGGroup(1))
	assert.Equal(t, "sctg0109", SCTGGroup(9))
	assert.Equal(t, "sctg1014", SCTGGroup(10))
	assert.Equal(t, "sctg1519", SCTGGroup(19))
	assert.Equal(t, "sctg2033", SCTGGroup(20))
	assert.Equal(t, "sctg3499", SCTGGroup(35))
}

func TestParseDataset(t *testing.T) {
	ds, err := ParseDataset("hilo")
	require.NoError(t, err)
	assert.Equal(t, "FAF5.7.1_HiLoForecasts.parquet", ds.FileName())

	_, err = ParseDataset("county")
	assert.Error(t, err)
}

func TestZonesFromCentroids(t *testing.T) {
	z := NewZonesFromCentroids(map[int]orb.Point{1: {1, 2}})
	p, ok := z.Centroid(1)
	require.True(t, ok)
	assert.Equal(t, orb.Point{1, 2}, p)

	var nilZones *Zones
	_, ok = nilZones.Centroid(1)
	assert.False(t, ok)
}
