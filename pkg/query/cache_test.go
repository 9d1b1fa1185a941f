package query

import (
	"context"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	fixtures "github.com/leapstack-labs/fafquery/internal/testutil"
	"github.com/leapstack-labs/fafquery/pkg/catalog"
)

func frameWith(v float64) *Frame {
	return &Frame{Keys: []string{"k"}, Metrics: []string{"m"}, Rows: []Row{{Keys: []int{1}, Values: []float64{v}}}}
}

func TestCache_LRU(t *testing.T) {
	c := NewCache(2)
	evictions := testutil.ToFloat64(resultCacheEvictions)

	c.put("a", frameWith(1))
	c.put("b", frameWith(2))
	_, ok := c.get("a")
	require.True(t, ok)
	c.put("c", frameWith(3))

	assert.Equal(t, 2, c.Len())
	assert.True(t, c.Contains("a"))
	assert.False(t, c.Contains("b"), "least recently used entry is evicted")
	assert.True(t, c.Contains("c"))
	assert.Equal(t, evictions+1, testutil.ToFloat64(resultCacheEvictions))

	assert.Equal(t, CacheStats{Entries: 2, MaxEntries: 2, Hits: 1, Misses: 0}, c.Stats())
}

func TestCache_ClearIsNotEviction(t *testing.T) {
	c := NewCache(3)
	c.put("a", frameWith(1))
	c.put("b", frameWith(2))
	evictions := testutil.ToFloat64(resultCacheEvictions)

	c.Clear()
	assert.Equal(t, 0, c.Len())
	assert.False(t, c.Contains("a"))
	assert.Equal(t, evictions, testutil.ToFloat64(resultCacheEvictions))

	c.put("c", frameWith(3))
	_, ok := c.get("c")
	assert.True(t, ok)
	assert.Equal(t, CacheStats{Entries: 1, MaxEntries: 3, Hits: 1}, c.Stats())
}

func TestCache_Unbounded(t *testing.T) {
	c := NewCache(0)
	for i := range 50 {
		c.put(string(rune('a'+i)), frameWith(float64(i)))
	}
	assert.Equal(t, 50, c.Len())

	_, ok := c.get("missing")
	assert.False(t, ok)
	assert.Equal(t, 1, c.Stats().Misses)

	c.Clear()
	assert.Equal(t, 0, c.Len())
	assert.Equal(t, CacheStats{}, c.Stats())
}

func TestCache_CopiesValues(t *testing.T) {
	c := NewCache(0)
	f := frameWith(1)
	c.put("a", f)
	f.Rows[0].Values[0] = 99

	got, ok := c.get("a")
	require.True(t, ok)
	got.(*Frame).Rows[0].Values[0] = 42

	again, _ := c.get("a")
	assert.Equal(t, 1.0, again.(*Frame).Rows[0].Values[0])
}

func TestCache_SharedAcrossQueries(t *testing.T) {
	cache := NewCache(1)
	eng := newTestEngineWith(t, fixtures.NewTestLogger(t), cache)
	ctx := context.Background()

	q1 := eng.Regional().Commodities(catalog.Code(35))
	q2 := eng.Regional().Commodities(catalog.Code(36))

	_, err := q1.Get(ctx, FormatWide)
	require.NoError(t, err)
	_, err = q2.Get(ctx, FormatWide)
	require.NoError(t, err)

	assert.Equal(t, 1, cache.Len())
	assert.False(t, cache.Contains(q1.Spec().CacheKey(KindRegional, FormatWide)))
	assert.True(t, cache.Contains(q2.Spec().CacheKey(KindRegional, FormatWide)))

	// Wide and long results are cached separately.
	_, err = q2.Get(ctx, FormatLong)
	require.NoError(t, err)
	assert.False(t, cache.Contains(q2.Spec().CacheKey(KindRegional, FormatWide)))
}
