package query

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/fafquery/internal/testutil"
	"github.com/leapstack-labs/fafquery/pkg/catalog"
)

func TestFlowQuery_ToGeo(t *testing.T) {
	logger, logs := testutil.CaptureLogger(t)
	eng := newTestEngineWith(t, logger, nil)

	g, err := eng.Regional().
		DestinationZones(catalog.Name("Austin")).
		Years(2020).
		ToGeo(context.Background())
	require.NoError(t, err)

	// Zone 119 has no geometry.
	assert.Equal(t, 1, g.Dropped)
	require.Len(t, g.Lines, 4)
	assert.Equal(t, 4, g.Frame.Len())
	assert.True(t, logs.Contains("dropped flows with missing zone coordinates"))

	first := g.Lines[0]
	require.Len(t, first, 2)
	assert.InDelta(t, testutil.ZoneCentroids[61][0], first[0][0], 1e-9)
	assert.InDelta(t, testutil.ZoneCentroids[61][1], first[0][1], 1e-9)
	assert.InDelta(t, testutil.ZoneCentroids[481][0], first[1][0], 1e-9)

	fc := g.FeatureCollection()
	require.Len(t, fc.Features, 4)
	props := fc.Features[0].Properties
	assert.Equal(t, 61, props["dms_orig"])
	assert.Equal(t, 100.0, props["tons_2020"])
}

func TestFlowQuery_ToGeoEmpty(t *testing.T) {
	eng := newTestEngine(t)

	g, err := eng.Regional().OriginStates(catalog.Code(48)).Commodities(catalog.Code(1)).ToGeo(context.Background())
	require.NoError(t, err)
	assert.Empty(t, g.Lines)
	assert.Equal(t, 0, g.Dropped)
	assert.Empty(t, g.FeatureCollection().Features)
}
