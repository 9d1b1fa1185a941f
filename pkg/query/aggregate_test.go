package query

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/fafquery/pkg/catalog"
)

func TestFlowQuery_Top(t *testing.T) {
	eng := newTestEngine(t)
	ctx := context.Background()

	f, err := eng.Regional().Top(ctx, 10, "tons", 2020)
	require.NoError(t, err)
	require.Equal(t, 10, f.Len())

	tons, ok := f.Column("tons_2020")
	require.True(t, ok)
	for i := 1; i < len(tons); i++ {
		assert.GreaterOrEqual(t, tons[i-1], tons[i])
	}
	assert.Equal(t, 500.0, tons[0])

	// Rows 0 and 3 tie at 100 tons and keep table order.
	dest, _ := f.KeyColumn("dms_dest")
	assert.Equal(t, 100.0, tons[3])
	assert.Equal(t, 100.0, tons[4])
	assert.Equal(t, 481, dest[3])
	assert.Equal(t, 531, dest[4])

	top3, err := eng.Regional().Top(ctx, 3, "", 0)
	require.NoError(t, err)
	orig, _ := top3.KeyColumn("dms_orig")
	assert.Equal(t, []int{481, 64, 64}, orig)
}

func TestFlowQuery_TopEdgeCases(t *testing.T) {
	eng := newTestEngine(t)
	ctx := context.Background()

	f, err := eng.Regional().Top(ctx, 5, "tmiles", 2020)
	require.NoError(t, err)
	tm, _ := f.Column("tmiles_2020")
	for _, v := range tm {
		assert.False(t, math.IsNaN(v))
	}

	f, err = eng.Regional().Top(ctx, 5, "tons", 2024)
	require.NoError(t, err)
	assert.True(t, f.Empty(), "missing column yields an empty frame")

	f, err = eng.Regional().Commodities(catalog.Code(36)).Top(ctx, 10, "tons", 2020)
	require.NoError(t, err)
	assert.Equal(t, 1, f.Len())

	_, err = eng.Regional().Top(ctx, -1, "tons", 2020)
	assert.ErrorIs(t, err, ErrInvalidArgument)
}

func TestFlowQuery_Summarize(t *testing.T) {
	eng := newTestEngine(t)
	ctx := context.Background()

	s, err := eng.Regional().OriginStates(catalog.Name("California")).Summarize(ctx, "tons", 2020)
	require.NoError(t, err)
	assert.Equal(t, "tons_2020", s.Column)
	assert.Equal(t, 7, s.Flows)
	assert.InDelta(t, 880.0, s.Total, 1e-9)
	assert.InDelta(t, 880.0/7, s.Mean, 1e-9)
	assert.Equal(t, 100.0, s.Median)
	assert.Equal(t, 20.0, s.Min)
	assert.Equal(t, 300.0, s.Max)
}

func TestFlowQuery_SummarizeEmpty(t *testing.T) {
	eng := newTestEngine(t)

	s, err := eng.Regional().
		OriginStates(catalog.Name("Washington")).
		Commodities(catalog.Code(36)).
		Summarize(context.Background(), "", 0)
	require.NoError(t, err)
	assert.Equal(t, 0, s.Flows)
	assert.Equal(t, 0.0, s.Total)
	assert.True(t, math.IsNaN(s.Mean))
	assert.True(t, math.IsNaN(s.Median))
}

func TestFlowQuery_SummarizeMissingColumn(t *testing.T) {
	eng := newTestEngine(t)

	_, err := eng.Regional().Summarize(context.Background(), "tons", 2050)
	assert.ErrorIs(t, err, ErrInvalidArgument)
	assert.Contains(t, err.Error(), "tons_2050")
}

func TestFlowQuery_SummarizeIgnoresMissingValues(t *testing.T) {
	eng := newTestEngine(t)

	s, err := eng.Regional().OriginZones(catalog.Code(61)).Summarize(context.Background(), "tmiles", 2020)
	require.NoError(t, err)
	assert.Equal(t, 5, s.Flows)
	// Row 7 has no ton-miles.
	assert.InDelta(t, 50.0+30+80+5, s.Total, 1e-9)
}

func TestFlowQuery_GroupBy(t *testing.T) {
	eng := newTestEngine(t)
	ctx := context.Background()

	f, err := eng.Regional().Commodities(catalog.Code(35)).ByOrigin(ctx, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"dms_orig"}, f.Keys)
	assert.Equal(t, []string{"tons_2020", "value_2020"}, f.Metrics)

	orig, _ := f.KeyColumn("dms_orig")
	assert.Equal(t, []int{61, 64, 119, 531}, orig)
	tons, _ := f.Column("tons_2020")
	assert.Equal(t, []float64{310, 250, 5, 10}, tons)
	value, _ := f.Column("value_2020")
	assert.Equal(t, 3200.0, value[0])
}

func TestFlowQuery_GroupByVariants(t *testing.T) {
	eng := newTestEngine(t)
	ctx := context.Background()

	tests := []struct {
		name    string
		run     func() (*Frame, error)
		keys    []string
		metrics []string
		rows    int
	}{
		{
			name:    "by destination",
			run:     func() (*Frame, error) { return eng.Regional().ByDestination(ctx, []string{"tons"}, nil) },
			keys:    []string{"dms_dest"},
			metrics: []string{"tons_2020"},
			rows:    4,
		},
		{
			name:    "by commodity for two years",
			run:     func() (*Frame, error) { return eng.Regional().ByCommodity(ctx, []string{"tons"}, []int{2020, 2021}) },
			keys:    []string{"sctg2"},
			metrics: []string{"tons_2020", "tons_2021"},
			rows:    4,
		},
		{
			name:    "by mode uses year clause",
			run:     func() (*Frame, error) { return eng.Regional().Years(2030).ByMode(ctx, nil, nil) },
			keys:    []string{"dms_mode"},
			metrics: []string{"tons_2030", "value_2030"},
			rows:    4,
		},
		{
			name:    "two fields",
			run:     func() (*Frame, error) { return eng.Regional().GroupBy(ctx, []string{"dms_orig", "dms_mode"}, nil, nil) },
			keys:    []string{"dms_orig", "dms_mode"},
			metrics: []string{"tons_2020", "value_2020"},
			rows:    8,
		},
		{
			name:    "state origin",
			run:     func() (*Frame, error) { return eng.State().ByOrigin(ctx, nil, nil) },
			keys:    []string{"dms_origst"},
			metrics: []string{"tons_2020", "value_2020"},
			rows:    3,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, err := tt.run()
			require.NoError(t, err)
			assert.Equal(t, tt.keys, f.Keys)
			assert.Equal(t, tt.metrics, f.Metrics)
			assert.Equal(t, tt.rows, f.Len())
		})
	}
}

func TestFlowQuery_GroupByErrors(t *testing.T) {
	eng := newTestEngine(t)
	ctx := context.Background()

	_, err := eng.Regional().GroupBy(ctx, []string{"dms_origst"}, nil, nil)
	assert.ErrorIs(t, err, ErrInvalidArgument)
	assert.Contains(t, err.Error(), "dms_orig")

	_, err = eng.Regional().GroupBy(ctx, nil, nil, nil)
	assert.ErrorIs(t, err, ErrInvalidArgument)

	f, err := eng.Regional().GroupBy(ctx, []string{"sctg2"}, []string{"bogus"}, nil)
	require.NoError(t, err)
	assert.True(t, f.Empty())
	assert.Empty(t, f.Keys)
}
