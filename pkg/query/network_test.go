package query

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/fafquery/pkg/catalog"
)

func TestNetworkQuery_Filters(t *testing.T) {
	eng := newTestEngine(t)
	ctx := context.Background()

	tests := []struct {
		name   string
		query  NetworkQuery
		ids    []int
		length float64
	}{
		{"no filters", eng.Network(), []int{1, 2, 3, 4, 5, 6}, 45},
		{"state", eng.Network().States("ca"), []int{1, 2, 3}, 22},
		{"states", eng.Network().States("TX", "wa"), []int{4, 5, 6}, 23},
		{"signed route", eng.Network().Routes("^I5$"), []int{1, 2, 6}, 23},
		{"road name", eng.Network().Routes("interstate"), []int{1, 4, 6}, 30.5},
		{"either route", eng.Network().Routes("^I35$", "ranch"), []int{4, 5}, 15},
		{"zone", eng.Network().Zones(catalog.Name("Austin")), []int{4, 5}, 15},
		{"functional class", eng.Network().FunctionalClasses("INTERSTATE"), []int{1, 2, 4, 6}, 35},
		{"freight network", eng.Network().FreightNetwork(true), []int{1, 2, 4, 6}, 35},
		{"freight network off", eng.Network().FreightNetwork(false), []int{1, 2, 3, 4, 5, 6}, 45},
		{"nhs", eng.Network().NHS(true), []int{1, 2, 3, 4, 6}, 42},
		{"truck allowed", eng.Network().TruckAllowed(true), []int{1, 2, 4, 5, 6}, 38},
		{"toll roads", eng.Network().TollRoads(true), []int{2, 4}, 16.5},
		{"no toll roads", eng.Network().TollRoads(false), []int{1, 3, 5, 6}, 28.5},
		{"combined", eng.Network().States("CA").FreightNetwork(true).TollRoads(false), []int{1}, 10.5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.NoError(t, tt.query.Err())
			segs, err := tt.query.Get(ctx)
			require.NoError(t, err)
			ids := make([]int, len(segs))
			for i, s := range segs {
				ids[i] = s.ID
			}
			assert.Equal(t, tt.ids, ids)

			total, err := tt.query.TotalLength(ctx)
			require.NoError(t, err)
			assert.InDelta(t, tt.length, total, 1e-9)
		})
	}
}

func TestNetworkQuery_Errors(t *testing.T) {
	eng := newTestEngine(t)

	assert.ErrorIs(t, eng.Network().Routes("(").Err(), ErrInvalidArgument)
	assert.ErrorIs(t, eng.Network().Routes().Err(), catalog.ErrEmpty)
	assert.ErrorIs(t, eng.Network().States().Err(), ErrInvalidArgument)
	assert.ErrorIs(t, eng.Network().Zones(catalog.Name("Atlantis")).Err(), catalog.ErrNotFound)

	q := eng.Network().FunctionalClasses("[").States("CA")
	_, err := q.Get(context.Background())
	assert.ErrorIs(t, err, ErrInvalidArgument)
	assert.False(t, q.Spec().Has(ClauseStates))
}

func TestNetworkQuery_Aggregations(t *testing.T) {
	eng := newTestEngine(t)
	ctx := context.Background()

	byState, err := eng.Network().ByState(ctx)
	require.NoError(t, err)
	assert.Equal(t, []LengthTotal[string]{{"CA", 22}, {"TX", 15}, {"WA", 8}}, byState)

	byZone, err := eng.Network().ByZone(ctx)
	require.NoError(t, err)
	assert.Equal(t, []LengthTotal[int]{{61, 15}, {64, 7}, {481, 15}, {531, 8}}, byZone)

	byClass, err := eng.Network().States("TX").ByFunctionalClass(ctx)
	require.NoError(t, err)
	assert.Equal(t, []LengthTotal[string]{{"Interstate", 12}, {"Minor Arterial", 3}}, byClass)
}

func TestNetworkQuery_Summarize(t *testing.T) {
	eng := newTestEngine(t)
	ctx := context.Background()

	s, err := eng.Network().Summarize(ctx)
	require.NoError(t, err)
	assert.Equal(t, NetworkSummary{
		TotalSegments:     6,
		TotalLength:       45,
		AvgLength:         7.5,
		States:            3,
		FunctionalClasses: 3,
	}, s)

	s, err = eng.Network().States("ZZ").Summarize(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, s.TotalSegments)
	assert.Equal(t, 0.0, s.TotalLength)
	assert.True(t, math.IsNaN(s.AvgLength))
}

func TestNetworkQuery_CachedAndCopied(t *testing.T) {
	eng := newTestEngine(t)
	ctx := context.Background()
	q := eng.Network().States("CA")

	segs, err := q.Get(ctx)
	require.NoError(t, err)
	segs[0].Length = -1

	again, err := q.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, 10.5, again[0].Length)
	assert.Equal(t, 1, eng.Cache().Stats().Hits)
}

func TestNetworkQuery_ToGeoJSON(t *testing.T) {
	eng := newTestEngine(t)

	fc, err := eng.Network().TollRoads(true).ToGeoJSON(context.Background())
	require.NoError(t, err)
	require.Len(t, fc.Features, 2)
	assert.Equal(t, "LineString", fc.Features[0].Geometry.GeoJSONType())
	assert.Equal(t, "Bridge", fc.Features[0].Properties["toll_type"])
	assert.Equal(t, 4.5, fc.Features[0].Properties["length"])
}

func TestNetworkQuery_ValidateAndString(t *testing.T) {
	eng := newTestEngine(t)

	assert.NotEmpty(t, eng.Network().Validate())
	assert.Empty(t, eng.Network().NHS(true).Validate())
	assert.Equal(t, "NetworkQuery(no filters)", eng.Network().String())
	assert.Equal(t, `NetworkQuery(states=["CA" "TX"])`, eng.Network().States("ca", "tx").String())
}
