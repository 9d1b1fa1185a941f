// Package query builds and executes FAF flow and network queries.
//
// Queries are immutable values: every filter returns a new query and leaves
// the receiver untouched. Filters resolve names against the catalog and never
// touch the data files; the first call that needs data (Get, GroupBy, Top,
// ...) loads the base table through the Engine's Source, applies the clauses
// as a conjunction of masks and caches the shaped result under the query
// signature.
//
// A filter that receives an invalid argument records the error on the
// returned query. Later filters are no-ops and every execution method returns
// that error, so a chain can be checked once:
//
//	q := eng.Regional().
//		OriginStates(catalog.Name("California")).
//		Commodities(catalog.Name("Electronics")).
//		Years(2020)
//	if err := q.Err(); err != nil {
//		return err
//	}
//	top, err := q.Top(ctx, 10, "tons", 2020)
package query

import (
	"context"
	"log/slog"

	"github.com/leapstack-labs/fafquery/pkg/catalog"
	"github.com/leapstack-labs/fafquery/pkg/dataset"
)

// Source provides the loaded tables. *dataset.Loader implements it.
type Source interface {
	Flows(ctx context.Context, ds dataset.Dataset) (*dataset.FlowTable, error)
	Network(ctx context.Context) (*dataset.NetworkTable, error)
	Zones(ctx context.Context) (*dataset.Zones, error)
	CountyFactors(ctx context.Context, mode, side string) (*dataset.CountyFactors, error)
}

var _ Source = (*dataset.Loader)(nil)

// Config configures an Engine.
type Config struct {
	Catalog *catalog.Catalog
	Source  Source
	// Cache defaults to an unbounded cache private to the engine.
	Cache  *Cache
	Logger *slog.Logger
}

// Engine holds what queries need to resolve names and execute: the reference
// catalog, the table source and the result cache.
type Engine struct {
	catalog *catalog.Catalog
	source  Source
	cache   *Cache
	logger  *slog.Logger
}

// NewEngine creates an engine.
func NewEngine(cfg Config) *Engine {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	cache := cfg.Cache
	if cache == nil {
		cache = NewCache(0)
	}
	return &Engine{
		catalog: cfg.Catalog,
		source:  cfg.Source,
		cache:   cache,
		logger:  logger,
	}
}

// Catalog returns the reference catalog.
func (e *Engine) Catalog() *catalog.Catalog { return e.catalog }

// Cache returns the result cache.
func (e *Engine) Cache() *Cache { return e.cache }

// Regional starts a zone-level flow query (FAFQuery).
func (e *Engine) Regional() FlowQuery { return FlowQuery{kind: KindRegional, eng: e} }

// State starts a state-level flow query (StateQuery).
func (e *Engine) State() FlowQuery { return FlowQuery{kind: KindState, eng: e} }

// Forecast starts a HiLo forecast query (ForecastQuery).
func (e *Engine) Forecast() FlowQuery { return FlowQuery{kind: KindForecast, eng: e} }

// County starts an experimental county-level query (CountyQuery).
func (e *Engine) County() FlowQuery { return FlowQuery{kind: KindCounty, eng: e} }

// Network starts a highway network query.
func (e *Engine) Network() NetworkQuery { return NetworkQuery{eng: e} }

// Failed returns a flow query of kind that carries err. Used when the engine
// itself could not be built, so callers still get a chainable value.
func Failed(kind Kind, err error) FlowQuery {
	return FlowQuery{kind: kind, err: err}
}

// FailedNetwork is the NetworkQuery counterpart of Failed.
func FailedNetwork(err error) NetworkQuery {
	return NetworkQuery{err: err}
}
