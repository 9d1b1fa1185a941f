// Package faf is the entry point for querying the Freight Analysis Framework.
//
// A Session ties together the data directory, the table loader, the
// reference catalog and the result cache. Most programs use the package
// level functions, which share a lazily created default session:
//
//	q := faf.FAFQuery().
//		OriginStates(catalog.Name("California")).
//		Commodities(catalog.Name("Electronics")).
//		Years(2020)
//	top, err := q.Top(ctx, 10, "tons", 2020)
package faf

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/leapstack-labs/fafquery/internal/setup"
	"github.com/leapstack-labs/fafquery/internal/state"
	"github.com/leapstack-labs/fafquery/pkg/catalog"
	"github.com/leapstack-labs/fafquery/pkg/dataset"
	"github.com/leapstack-labs/fafquery/pkg/query"
)

// DataDirName is the data directory created under the user's home.
const DataDirName = ".fafquery_data"

// SetupResult describes one dataset handled by DownloadAndProcess or
// SetupCountyData.
type SetupResult = setup.Result

// FileStatus describes one data file reported by Status.
type FileStatus = setup.FileStatus

// Options configures a Session.
type Options struct {
	// DataDir defaults to DefaultDataDir().
	DataDir string
	// AutoSetup downloads a missing dataset the first time it is needed.
	AutoSetup bool
	// MaxCachedResults caps the result cache. Zero means unbounded.
	MaxCachedResults int
	// URLs overrides download URLs per dataset name.
	URLs map[string]string
	// SetupTimeout bounds each archive download.
	SetupTimeout time.Duration
	// SetupParallel bounds concurrent dataset installs. Zero means one.
	SetupParallel int
	Logger        *slog.Logger
}

// DefaultDataDir returns ~/.fafquery_data, or a relative .fafquery_data when
// the home directory is unknown.
func DefaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return DataDirName
	}
	return filepath.Join(home, DataDirName)
}

// Session owns the loaded tables and cached results for one data directory.
type Session struct {
	opts   Options
	logger *slog.Logger
	loader *dataset.Loader
	cache  *query.Cache

	mu     sync.Mutex
	engine *query.Engine
}

// Open creates a session. No file is read until the first query executes or
// a discovery function is called.
func Open(opts Options) *Session {
	if opts.DataDir == "" {
		opts.DataDir = DefaultDataDir()
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	s := &Session{
		opts:   opts,
		logger: logger,
		cache:  query.NewCache(opts.MaxCachedResults),
	}
	cfg := dataset.Config{DataDir: opts.DataDir, Logger: logger}
	if opts.AutoSetup {
		cfg.OnMissing = s.install
	}
	s.loader = dataset.NewLoader(cfg)
	return s
}

// DataDir returns the session's data directory.
func (s *Session) DataDir() string {
	return s.opts.DataDir
}

// Close releases the DuckDB connection held by the loader.
func (s *Session) Close() error {
	return s.loader.Close()
}

// Engine returns the query engine, loading the metadata workbook on first
// use. A failed load is retried on the next call.
func (s *Session) Engine(ctx context.Context) (*query.Engine, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.engine != nil {
		return s.engine, nil
	}

	cat, err := s.loadCatalog(ctx)
	if err != nil {
		return nil, err
	}
	s.engine = query.NewEngine(query.Config{
		Catalog: cat,
		Source:  s.loader,
		Cache:   s.cache,
		Logger:  s.logger,
	})
	return s.engine, nil
}

func (s *Session) loadCatalog(ctx context.Context) (*catalog.Catalog, error) {
	path := filepath.Join(s.opts.DataDir, catalog.MetadataFile)
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		if !s.opts.AutoSetup {
			return nil, &dataset.DataUnavailableError{Dataset: "metadata", Path: path}
		}
		// The metadata workbook ships inside the regional archive.
		s.logger.Info("metadata workbook missing, running setup", slog.String("path", path))
		if err := s.install(ctx, dataset.Regional); err != nil {
			return nil, err
		}
		if _, err := os.Stat(path); err != nil {
			return nil, &dataset.DataUnavailableError{Dataset: "metadata", Path: path}
		}
	}

	start := time.Now()
	cat, err := catalog.LoadFile(path)
	if err != nil {
		return nil, err
	}
	s.logger.Debug("metadata loaded", slog.String("path", path), slog.Duration("duration", time.Since(start)))
	return cat, nil
}

// FAFQuery starts a zone-level flow query. Session errors are carried by the
// returned query and surface from Err or any execution method.
func (s *Session) FAFQuery() query.FlowQuery {
	return s.flowQuery(query.KindRegional, (*query.Engine).Regional)
}

// StateQuery starts a state-level flow query.
func (s *Session) StateQuery() query.FlowQuery {
	return s.flowQuery(query.KindState, (*query.Engine).State)
}

// ForecastQuery starts a HiLo forecast query.
func (s *Session) ForecastQuery() query.FlowQuery {
	return s.flowQuery(query.KindForecast, (*query.Engine).Forecast)
}

// CountyQuery starts an experimental county-level query.
func (s *Session) CountyQuery() query.FlowQuery {
	return s.flowQuery(query.KindCounty, (*query.Engine).County)
}

// NetworkQuery starts a highway network query.
func (s *Session) NetworkQuery() query.NetworkQuery {
	eng, err := s.Engine(context.Background())
	if err != nil {
		return query.FailedNetwork(err)
	}
	return eng.Network()
}

func (s *Session) flowQuery(kind query.Kind, start func(*query.Engine) query.FlowQuery) query.FlowQuery {
	eng, err := s.Engine(context.Background())
	if err != nil {
		return query.Failed(kind, err)
	}
	return start(eng)
}

// Catalog returns the reference catalog.
func (s *Session) Catalog(ctx context.Context) (*catalog.Catalog, error) {
	eng, err := s.Engine(ctx)
	if err != nil {
		return nil, err
	}
	return eng.Catalog(), nil
}

// ClearCache drops every cached query result. Loaded tables stay in memory.
func (s *Session) ClearCache() {
	s.cache.Clear()
	s.logger.Debug("result cache cleared")
}

// ClearAllCaches drops cached results and loaded tables. The metadata
// catalog is re-read on next use.
func (s *Session) ClearAllCaches() {
	s.cache.Clear()
	s.loader.Reset()
	s.mu.Lock()
	s.engine = nil
	s.mu.Unlock()
	s.logger.Debug("all caches cleared")
}

// CacheStats reports result cache usage.
func (s *Session) CacheStats() query.CacheStats {
	return s.cache.Stats()
}

// LoadedTables lists the tables currently held in memory.
func (s *Session) LoadedTables() []string {
	return s.loader.Loaded()
}

// DownloadAndProcess installs the given datasets (all when none are named)
// into the data directory.
func (s *Session) DownloadAndProcess(ctx context.Context, datasets ...dataset.Dataset) ([]SetupResult, error) {
	var results []SetupResult
	err := s.withInstaller(func(inst *setup.Installer) error {
		var err error
		results, err = inst.Run(ctx, datasets...)
		return err
	})
	return results, err
}

// SetupCountyData installs county factor tables from a zip archive.
func (s *Session) SetupCountyData(ctx context.Context, zipPath string) ([]SetupResult, error) {
	var results []SetupResult
	err := s.withInstaller(func(inst *setup.Installer) error {
		var err error
		results, err = inst.SetupCountyData(ctx, zipPath)
		return err
	})
	return results, err
}

// Status reports which data files are present.
func (s *Session) Status() []FileStatus {
	path := filepath.Join(s.opts.DataDir, state.ManifestFile)
	if _, err := os.Stat(path); err != nil {
		return setup.Inspect(s.opts.DataDir, nil)
	}
	manifest, err := state.OpenManifest(path, s.logger)
	if err != nil {
		s.logger.Warn("failed to open manifest", slog.String("error", err.Error()))
		return setup.Inspect(s.opts.DataDir, nil)
	}
	defer func() { _ = manifest.Close() }()
	return setup.Inspect(s.opts.DataDir, manifest)
}

func (s *Session) install(ctx context.Context, ds dataset.Dataset) error {
	return s.withInstaller(func(inst *setup.Installer) error {
		return inst.Install(ctx, ds)
	})
}

// withInstaller runs fn with an installer whose manifest is open for the
// duration of the call.
func (s *Session) withInstaller(fn func(*setup.Installer) error) error {
	if err := os.MkdirAll(s.opts.DataDir, 0o755); err != nil {
		return fmt.Errorf("failed to create data directory: %w", err)
	}
	manifest, err := state.OpenManifest(filepath.Join(s.opts.DataDir, state.ManifestFile), s.logger)
	if err != nil {
		return err
	}
	defer func() { _ = manifest.Close() }()

	return fn(setup.New(setup.Config{
		DataDir:  s.opts.DataDir,
		URLs:     s.opts.URLs,
		Timeout:  s.opts.SetupTimeout,
		Manifest: manifest,
		Logger:   s.logger,
		Parallel: s.opts.SetupParallel,
	}))
}
