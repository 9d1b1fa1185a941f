package query

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/fafquery/internal/testutil"
	"github.com/leapstack-labs/fafquery/pkg/catalog"
	"github.com/leapstack-labs/fafquery/pkg/dataset"
)

func TestCountyQuery_Disaggregates(t *testing.T) {
	logger, logs := testutil.CaptureLogger(t)
	eng := newTestEngineWith(t, logger, nil)

	f, err := eng.County().Get(context.Background(), FormatWide)
	require.NoError(t, err)
	assert.Equal(t, KeyOriginCounty, f.Keys[len(f.Keys)-2])
	assert.Equal(t, KeyDestinationCounty, f.Keys[len(f.Keys)-1])
	assert.Equal(t, 7, f.Len())

	tons, _ := f.Column("tons_2020")
	var total float64
	for _, v := range tons {
		total += v
	}
	assert.InDelta(t, 490.0, total, 1e-9)

	value, _ := f.Column("value_2020")
	assert.InDelta(t, 1000*0.6, value[0], 1e-9)
	// Current-dollar columns are not scaled.
	cur, ok := f.Column("current_value_2020")
	require.True(t, ok)
	assert.Equal(t, 1050.0, cur[0])

	assert.True(t, logs.Contains("county factors missing for mode"))
	assert.True(t, logs.Contains("mode=water"))
}

func TestCountyQuery_CountyFilters(t *testing.T) {
	eng := newTestEngine(t)
	ctx := context.Background()

	f, err := eng.County().
		Modes(catalog.Name("Truck")).
		OriginCounties(catalog.Name("06037")).
		Get(ctx, FormatWide)
	require.NoError(t, err)
	require.Equal(t, 2, f.Len())

	dest, _ := f.KeyColumn(KeyDestinationCounty)
	assert.Equal(t, []int{48453, 53033}, dest)
	tons, _ := f.Column("tons_2020")
	assert.InDelta(t, 60.0, tons[0], 1e-9)
	assert.InDelta(t, 60.0, tons[1], 1e-9)

	n, err := eng.County().DestinationCounties(catalog.Code(48491)).EstimateSize(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestCountyQuery_ByCounty(t *testing.T) {
	eng := newTestEngine(t)
	ctx := context.Background()

	f, err := eng.County().Modes(catalog.Name("Truck")).ByDestinationCounty(ctx, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{KeyDestinationCounty}, f.Keys)
	assert.Equal(t, []string{"tons_2020", "value_2020"}, f.Metrics)

	counties, _ := f.KeyColumn(KeyDestinationCounty)
	assert.Equal(t, []int{48453, 53033}, counties)
	tons, _ := f.Column("tons_2020")
	assert.InDelta(t, 350.0, tons[0], 1e-9)
	assert.InDelta(t, 100.0, tons[1], 1e-9)

	f, err = eng.County().ByOriginCounty(ctx, []string{"tons"}, nil)
	require.NoError(t, err)
	counties, _ = f.KeyColumn(KeyOriginCounty)
	assert.Equal(t, []int{6037, 6059, 6075}, counties)
}

func TestCountyQuery_FactorsMissing(t *testing.T) {
	eng := newTestEngine(t)

	_, err := eng.County().Modes(catalog.Name("Water")).Get(context.Background(), FormatWide)
	assert.ErrorIs(t, err, ErrCountyFactorsMissing)
	assert.ErrorIs(t, err, dataset.ErrDataUnavailable)
}

func TestCountyQuery_OtherModesDropped(t *testing.T) {
	eng := newTestEngine(t)

	f, err := eng.County().Modes(catalog.Name("Air (include truck-air)")).Get(context.Background(), FormatWide)
	require.NoError(t, err)
	assert.True(t, f.Empty())
}

func TestParseCounties(t *testing.T) {
	tests := []struct {
		name    string
		refs    []catalog.Ref
		want    []int
		wantErr bool
	}{
		{"codes", catalog.Codes(6037, 48453), []int{6037, 48453}, false},
		{"padded string", catalog.Names("06037"), []int{6037}, false},
		{"too long", catalog.Names("060370"), nil, true},
		{"not a number", catalog.Names("Los Angeles"), nil, true},
		{"zero", catalog.Codes(0), nil, true},
		{"six digits", catalog.Codes(100000), nil, true},
		{"empty", nil, nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseCounties(tt.refs)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidArgument)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCountyQuery_MissingKeyColumn(t *testing.T) {
	eng := newTestEngine(t)
	keys := map[string][]int{
		"dms_orig": {61},
		"dms_dest": {481},
		"dms_mode": {1},
	}
	tbl, err := dataset.NewFlowTableFromColumns(dataset.Regional,
		[]string{"dms_orig", "dms_dest", "dms_mode"}, keys,
		[]string{"tons_2020"}, map[string][]float64{"tons_2020": {100}})
	require.NoError(t, err)

	_, _, err = eng.County().disaggregate(context.Background(), tbl, []int{0})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no sctg2 column")
}
