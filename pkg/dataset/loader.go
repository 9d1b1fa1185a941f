package dataset

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"slices"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// MissingFunc is called when a dataset file is absent. Returning nil makes the
// loader check for the file again.
type MissingFunc func(ctx context.Context, ds Dataset) error

// Config configures a Loader.
type Config struct {
	DataDir string
	Logger  *slog.Logger
	// OnMissing, when set, is invoked at most once per dataset per Loader.
	OnMissing MissingFunc
}

// Loader reads tables from the data directory and memoizes them until Reset.
// Concurrent first loads of the same table share one read.
type Loader struct {
	dataDir   string
	logger    *slog.Logger
	onMissing MissingFunc

	group singleflight.Group

	mu        sync.Mutex
	db        *DuckDB
	tables    map[string]any
	attempted map[Dataset]bool
}

// NewLoader creates a loader for cfg.DataDir.
func NewLoader(cfg Config) *Loader {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Loader{
		dataDir:   cfg.DataDir,
		logger:    logger,
		onMissing: cfg.OnMissing,
		tables:    make(map[string]any),
		attempted: make(map[Dataset]bool),
	}
}

// DataDir returns the directory tables are read from.
func (l *Loader) DataDir() string {
	return l.dataDir
}

// Flows returns a flow table (regional, state or either forecast table).
func (l *Loader) Flows(ctx context.Context, ds Dataset) (*FlowTable, error) {
	var keys []string
	switch ds {
	case Regional, Forecast:
		keys = RegionalKeys
	case State, StateForecast:
		keys = StateKeys
	default:
		return nil, fmt.Errorf("%s is not a flow dataset", ds)
	}
	return load(ctx, l, string(ds), ds, ds.Path(l.dataDir), func(raw *RawTable) (*FlowTable, error) {
		return NewFlowTable(ds, raw, keys)
	})
}

// Network returns the highway network segments.
func (l *Loader) Network(ctx context.Context) (*NetworkTable, error) {
	return load(ctx, l, string(Network), Network, Network.Path(l.dataDir), NewNetworkTable)
}

// Zones returns the zone centroids.
func (l *Loader) Zones(ctx context.Context) (*Zones, error) {
	return load(ctx, l, string(ZoneGeometry), ZoneGeometry, ZoneGeometry.Path(l.dataDir), NewZones)
}

// CountyFactors returns the factor table for a county mode name and side.
// Missing factor files are reported without invoking OnMissing; they are
// installed from a user supplied archive.
func (l *Loader) CountyFactors(ctx context.Context, mode, side string) (*CountyFactors, error) {
	key := fmt.Sprintf("%s/%s_%s", CountyFactorsDir, mode, side)
	return load(ctx, l, key, "", CountyFactorPath(l.dataDir, mode, side), func(raw *RawTable) (*CountyFactors, error) {
		return NewCountyFactors(mode, side, raw)
	})
}

// Loaded returns the keys of memoized tables, sorted.
func (l *Loader) Loaded() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	keys := make([]string, 0, len(l.tables))
	for k := range l.tables {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

// Reset drops every memoized table. The DuckDB connection stays open.
func (l *Loader) Reset() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.tables = make(map[string]any)
	l.attempted = make(map[Dataset]bool)
}

// Close releases the DuckDB connection.
func (l *Loader) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.db == nil {
		return nil
	}
	err := l.db.Close()
	l.db = nil
	return err
}

func (l *Loader) conn(ctx context.Context) (*DuckDB, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.db != nil {
		return l.db, nil
	}
	db, err := OpenDuckDB(ctx, "", l.logger)
	if err != nil {
		return nil, err
	}
	l.db = db
	return db, nil
}

func (l *Loader) cached(key string) (any, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	v, ok := l.tables[key]
	return v, ok
}

func (l *Loader) store(key string, v any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.tables[key] = v
}

// ensureFile checks that path exists, giving OnMissing one chance to create
// it for ds. ds is empty for files OnMissing cannot provide.
func (l *Loader) ensureFile(ctx context.Context, ds Dataset, name, path string) error {
	_, err := os.Stat(path)
	if err == nil {
		return nil
	}
	if !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to stat %s: %w", path, err)
	}

	missing := &DataUnavailableError{Dataset: name, Path: path}
	if ds == "" || l.onMissing == nil {
		return missing
	}

	l.mu.Lock()
	tried := l.attempted[ds]
	l.attempted[ds] = true
	l.mu.Unlock()
	if tried {
		return missing
	}

	l.logger.Info("dataset missing, running setup", slog.String("dataset", name), slog.String("path", path))
	if err := l.onMissing(ctx, ds); err != nil {
		return fmt.Errorf("automatic setup of %s failed: %w", name, err)
	}
	if _, err := os.Stat(path); err != nil {
		return missing
	}
	return nil
}

func load[T any](ctx context.Context, l *Loader, key string, ds Dataset, path string, build func(*RawTable) (T, error)) (T, error) {
	var zero T
	if v, ok := l.cached(key); ok {
		return v.(T), nil
	}

	v, err, shared := l.group.Do(key, func() (any, error) {
		if v, ok := l.cached(key); ok {
			return v, nil
		}
		if err := l.ensureFile(ctx, ds, key, path); err != nil {
			return nil, err
		}

		start := time.Now()
		db, err := l.conn(ctx)
		if err != nil {
			return nil, err
		}
		raw, err := db.ReadParquet(ctx, path)
		if err != nil {
			tableLoadsTotal.WithLabelValues(key, "error").Inc()
			return nil, fmt.Errorf("failed to read %s: %w", key, err)
		}
		t, err := build(raw)
		if err != nil {
			tableLoadsTotal.WithLabelValues(key, "error").Inc()
			return nil, err
		}

		elapsed := time.Since(start)
		tableLoadsTotal.WithLabelValues(key, "ok").Inc()
		tableLoadDuration.WithLabelValues(key).Observe(elapsed.Seconds())
		tableRows.WithLabelValues(key).Set(float64(raw.Len()))
		l.logger.Info("table loaded",
			slog.String("dataset", key),
			slog.Int("rows", raw.Len()),
			slog.Duration("elapsed", elapsed))

		l.store(key, t)
		return t, nil
	})
	if err != nil {
		return zero, err
	}
	if shared {
		l.logger.Debug("table load shared", slog.String("dataset", key))
	}
	return v.(T), nil
}
