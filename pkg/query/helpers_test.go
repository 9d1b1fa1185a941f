package query

import (
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/fafquery/internal/testutil"
	"github.com/leapstack-labs/fafquery/pkg/catalog"
	"github.com/leapstack-labs/fafquery/pkg/dataset"
)

// newTestEngine writes the fixture data directory and returns an engine over
// it with an unbounded cache.
func newTestEngine(t *testing.T) *Engine {
	t.Helper()
	return newTestEngineWith(t, testutil.NewTestLogger(t), nil)
}

func newTestEngineWith(t *testing.T, logger *slog.Logger, cache *Cache) *Engine {
	t.Helper()
	dir := testutil.WriteFixtureData(t)

	cat, err := catalog.LoadFile(filepath.Join(dir, testutil.MetadataFile))
	require.NoError(t, err)

	loader := dataset.NewLoader(dataset.Config{DataDir: dir, Logger: logger})
	t.Cleanup(func() { _ = loader.Close() })

	return NewEngine(Config{Catalog: cat, Source: loader, Cache: cache, Logger: logger})
}
