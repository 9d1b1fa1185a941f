package faf

import (
	"context"
	"sync"

	"github.com/leapstack-labs/fafquery/pkg/catalog"
	"github.com/leapstack-labs/fafquery/pkg/dataset"
	"github.com/leapstack-labs/fafquery/pkg/query"
)

var (
	defaultMu      sync.Mutex
	defaultSession *Session
)

// Default returns the process-wide session, creating it over
// DefaultDataDir() with automatic setup enabled.
func Default() *Session {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	if defaultSession == nil {
		defaultSession = Open(Options{AutoSetup: true})
	}
	return defaultSession
}

// SetDefault replaces the process-wide session and returns the previous one,
// which may be nil.
func SetDefault(s *Session) *Session {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	prev := defaultSession
	defaultSession = s
	return prev
}

// FAFQuery starts a zone-level flow query on the default session.
func FAFQuery() query.FlowQuery { return Default().FAFQuery() }

// StateQuery starts a state-level flow query on the default session.
func StateQuery() query.FlowQuery { return Default().StateQuery() }

// ForecastQuery starts a HiLo forecast query on the default session.
func ForecastQuery() query.FlowQuery { return Default().ForecastQuery() }

// CountyQuery starts a county-level query on the default session.
func CountyQuery() query.FlowQuery { return Default().CountyQuery() }

// NetworkQuery starts a highway network query on the default session.
func NetworkQuery() query.NetworkQuery { return Default().NetworkQuery() }

// AvailableCommodities searches commodities on the default session.
func AvailableCommodities(ctx context.Context, search string) (*catalog.Table, error) {
	return Default().AvailableCommodities(ctx, search)
}

// AvailableZones searches zones on the default session.
func AvailableZones(ctx context.Context, search string) (*catalog.Table, error) {
	return Default().AvailableZones(ctx, search)
}

// AvailableStates searches states on the default session.
func AvailableStates(ctx context.Context, search string) (*catalog.Table, error) {
	return Default().AvailableStates(ctx, search)
}

// AvailableModes lists modes on the default session.
func AvailableModes(ctx context.Context) (*catalog.Table, error) {
	return Default().AvailableModes(ctx)
}

// ClearCache drops the default session's cached results.
func ClearCache() { Default().ClearCache() }

// ClearAllCaches drops the default session's cached results and tables.
func ClearAllCaches() { Default().ClearAllCaches() }

// DownloadAndProcess installs datasets into the default data directory.
func DownloadAndProcess(ctx context.Context, datasets ...dataset.Dataset) ([]SetupResult, error) {
	return Default().DownloadAndProcess(ctx, datasets...)
}

// SetupCountyData installs county factors into the default data directory.
func SetupCountyData(ctx context.Context, zipPath string) ([]SetupResult, error) {
	return Default().SetupCountyData(ctx, zipPath)
}
