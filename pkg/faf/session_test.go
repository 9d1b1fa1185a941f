package faf

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/fafquery/internal/setup"
	"github.com/leapstack-labs/fafquery/internal/state"
	"github.com/leapstack-labs/fafquery/internal/testutil"
	"github.com/leapstack-labs/fafquery/pkg/catalog"
	"github.com/leapstack-labs/fafquery/pkg/dataset"
	"github.com/leapstack-labs/fafquery/pkg/query"
)

func openFixtureSession(t *testing.T) *Session {
	t.Helper()
	s := Open(Options{DataDir: testutil.WriteFixtureData(t), Logger: testutil.NewTestLogger(t)})
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestSession_Queries(t *testing.T) {
	s := openFixtureSession(t)
	ctx := context.Background()

	q := s.FAFQuery().
		OriginStates(catalog.Name("California")).
		Commodities(catalog.Name("Electronics")).
		Years(2020)
	require.NoError(t, q.Err())

	top, err := q.Top(ctx, 10, "tons", 2020)
	require.NoError(t, err)
	require.NotEmpty(t, top.Rows)
	tons, _ := top.Column("tons_2020")
	for i := 1; i < len(tons); i++ {
		assert.GreaterOrEqual(t, tons[i-1], tons[i])
	}

	_, err = s.StateQuery().OriginZones(catalog.Code(61)).Get(ctx, query.FormatWide)
	assert.ErrorIs(t, err, query.ErrUnsupported)

	f, err := s.ForecastQuery().Years(2030).Get(ctx, query.FormatLong)
	require.NoError(t, err)
	assert.False(t, f.Empty())

	total, err := s.NetworkQuery().States("CA").TotalLength(ctx)
	require.NoError(t, err)
	assert.Positive(t, total)

	_, err = s.CountyQuery().Modes(catalog.Name("Truck")).Get(ctx, query.FormatWide)
	require.NoError(t, err)
}

func TestSession_Caches(t *testing.T) {
	s := openFixtureSession(t)
	ctx := context.Background()

	q := s.FAFQuery().Modes(catalog.Name("Truck"))
	_, err := q.Get(ctx, query.FormatWide)
	require.NoError(t, err)
	_, err = q.Get(ctx, query.FormatWide)
	require.NoError(t, err)

	stats := s.CacheStats()
	assert.Equal(t, 1, stats.Entries)
	assert.Equal(t, 1, stats.Hits)
	assert.Contains(t, s.LoadedTables(), string(dataset.Regional))

	s.ClearCache()
	assert.Equal(t, 0, s.CacheStats().Entries)
	assert.Contains(t, s.LoadedTables(), string(dataset.Regional))

	_, err = q.Get(ctx, query.FormatWide)
	require.NoError(t, err)
	s.ClearAllCaches()
	assert.Equal(t, 0, s.CacheStats().Entries)
	assert.Empty(t, s.LoadedTables())

	// The session rebuilds its engine after a full clear.
	_, err = s.FAFQuery().Modes(catalog.Name("Truck")).Get(ctx, query.FormatWide)
	require.NoError(t, err)
}

func TestSession_Discovery(t *testing.T) {
	s := openFixtureSession(t)
	ctx := context.Background()

	tests := []struct {
		name  string
		list  func() (*catalog.Table, error)
		codes []int
	}{
		{"commodities", func() (*catalog.Table, error) { return s.AvailableCommodities(ctx, "electro") }, []int{35}},
		{"zones", func() (*catalog.Table, error) { return s.AvailableZones(ctx, "washington") }, []int{119}},
		{"states", func() (*catalog.Table, error) { return s.AvailableStates(ctx, "CALIF") }, []int{6}},
		{"all states", func() (*catalog.Table, error) { return s.AvailableStates(ctx, "") }, []int{6, 11, 48, 53}},
		{"modes", func() (*catalog.Table, error) { return s.AvailableModes(ctx) }, []int{1, 2, 3, 4, 5, 6, 7}},
		{"no match", func() (*catalog.Table, error) { return s.AvailableCommodities(ctx, "plutonium") }, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			table, err := tt.list()
			require.NoError(t, err)
			var codes []int
			for _, e := range table.Entries {
				codes = append(codes, e.Code)
			}
			assert.Equal(t, tt.codes, codes)
		})
	}

	years := AvailableYears()
	assert.Equal(t, 2017, years.Actual[0])
	assert.Equal(t, 2050, years.Forecast[len(years.Forecast)-1])
}

func TestSession_MissingMetadata(t *testing.T) {
	s := Open(Options{DataDir: t.TempDir()})
	t.Cleanup(func() { _ = s.Close() })

	q := s.FAFQuery().OriginStates(catalog.Name("Texas"))
	require.Error(t, q.Err())
	assert.ErrorIs(t, q.Err(), dataset.ErrDataUnavailable)
	assert.Contains(t, q.Err().Error(), "fafquery setup")

	_, err := q.Get(context.Background(), query.FormatWide)
	assert.ErrorIs(t, err, dataset.ErrDataUnavailable)

	assert.ErrorIs(t, s.NetworkQuery().Err(), dataset.ErrDataUnavailable)

	_, err = s.AvailableModes(context.Background())
	assert.ErrorIs(t, err, dataset.ErrDataUnavailable)
}

func TestSession_AutoSetup(t *testing.T) {
	workbook := filepath.Join(t.TempDir(), catalog.MetadataFile)
	testutil.WriteMetadataWorkbook(t, workbook)
	wb, err := os.ReadFile(workbook)
	require.NoError(t, err)

	archive := testutil.ZipBytes(t, map[string]string{
		catalog.MetadataFile: string(wb),
		"FAF5.7.1.csv":       "dms_orig,dms_dest,sctg2,dms_mode,trade_type,tons_2020,value_2020\n61,481,35,1,1,100,1000\n481,61,36,1,1,500,7000\n",
	})
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		hits.Add(1)
		_, _ = w.Write(archive)
	}))
	t.Cleanup(srv.Close)

	dir := t.TempDir()
	s := Open(Options{
		DataDir:   dir,
		AutoSetup: true,
		URLs:      map[string]string{"regional": srv.URL + "/FAF5.7.1.zip"},
		Logger:    testutil.NewTestLogger(t),
	})
	t.Cleanup(func() { _ = s.Close() })

	f, err := s.FAFQuery().OriginStates(catalog.Name("California")).Get(context.Background(), query.FormatWide)
	require.NoError(t, err)
	assert.Equal(t, 1, f.Len())
	assert.Equal(t, int32(1), hits.Load())

	assert.FileExists(t, filepath.Join(dir, state.ManifestFile))
	var regional FileStatus
	for _, st := range s.Status() {
		if st.Dataset == string(dataset.Regional) {
			regional = st
		}
	}
	assert.True(t, regional.Present)
	assert.Equal(t, int64(2), regional.Rows)
}

func TestSession_SetupCountyData(t *testing.T) {
	s := Open(Options{DataDir: t.TempDir()})
	t.Cleanup(func() { _ = s.Close() })

	archive := filepath.Join(t.TempDir(), "county.zip")
	testutil.WriteZip(t, archive, map[string]string{
		"truck_origin_factors.csv": "dms_orig,sctgG5,dms_orig_cnty,f_orig\n61,sctg3499,6037,1.0\n",
	})

	results, err := s.SetupCountyData(context.Background(), archive)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, setup.StatusInstalled, results[0].Status)
	assert.FileExists(t, dataset.CountyFactorPath(s.DataDir(), "truck", "origin"))
}

func TestDefaultSession(t *testing.T) {
	s := openFixtureSession(t)
	prev := SetDefault(s)
	t.Cleanup(func() { SetDefault(prev) })

	assert.Same(t, s, Default())

	f, err := FAFQuery().Commodities(catalog.Name("Electronics")).Get(context.Background(), query.FormatWide)
	require.NoError(t, err)
	assert.False(t, f.Empty())

	modes, err := AvailableModes(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 7, modes.Len())

	ClearCache()
	assert.Equal(t, 0, s.CacheStats().Entries)
	ClearAllCaches()
	assert.Empty(t, s.LoadedTables())
}

func TestDefaultDataDir(t *testing.T) {
	t.Setenv("HOME", "/home/freight")
	assert.Equal(t, filepath.Join("/home/freight", DataDirName), DefaultDataDir())
}
