package setup

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/leapstack-labs/fafquery/internal/state"
	"github.com/leapstack-labs/fafquery/pkg/dataset"
)

// DefaultTimeout bounds a single archive download.
const DefaultTimeout = 30 * time.Minute

// Status is the outcome of installing one dataset.
type Status string

// Install outcomes.
const (
	StatusInstalled Status = "installed"
	StatusSkipped   Status = "skipped"
	// StatusManual means the archive was extracted but the Parquet file
	// still has to be produced by hand.
	StatusManual Status = "manual"
)

// Result describes one installed dataset.
type Result struct {
	Dataset dataset.Dataset `json:"dataset"`
	Status  Status          `json:"status"`
	Path    string          `json:"path"`
	Rows    int64           `json:"rows,omitempty"`
	Message string          `json:"message,omitempty"`
}

// Config configures an Installer.
type Config struct {
	DataDir string
	// URLs overrides the default download URL per dataset name.
	URLs    map[string]string
	Timeout time.Duration
	Client  *http.Client
	// Manifest, when set, records every run and installed dataset.
	Manifest state.Store
	Logger   *slog.Logger
	// Parallel limits concurrent downloads. Values below 1 mean one.
	Parallel int
}

// Installer downloads and converts FAF datasets into a data directory.
type Installer struct {
	dataDir  string
	urls     map[string]string
	timeout  time.Duration
	client   *http.Client
	manifest state.Store
	logger   *slog.Logger
	parallel int

	// convertMu serializes CSV conversions.
	convertMu sync.Mutex
}

// New creates an Installer.
func New(cfg Config) *Installer {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	client := cfg.Client
	if client == nil {
		client = http.DefaultClient
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = DefaultTimeout
	}
	parallel := cfg.Parallel
	if parallel < 1 {
		parallel = 1
	}
	urls := DefaultURLs()
	for k, v := range cfg.URLs {
		if v != "" {
			urls[k] = v
		}
	}
	return &Installer{
		dataDir:  cfg.DataDir,
		urls:     urls,
		timeout:  timeout,
		client:   client,
		manifest: cfg.Manifest,
		logger:   logger,
		parallel: parallel,
	}
}

// DataDir returns the directory datasets are installed into.
func (i *Installer) DataDir() string {
	return i.dataDir
}

// Run installs the given datasets, or every dataset when none are named.
// Datasets already present are skipped. All datasets are attempted and the
// errors joined.
func (i *Installer) Run(ctx context.Context, datasets ...dataset.Dataset) ([]Result, error) {
	if len(datasets) == 0 {
		datasets = dataset.Datasets()
	}
	if err := os.MkdirAll(i.dataDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	runID := i.startRun("setup " + joinDatasets(datasets))

	results := make([]Result, len(datasets))
	errs := make([]error, len(datasets))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(i.parallel)
	for idx, ds := range datasets {
		g.Go(func() error {
			res, err := i.install(gctx, ds, runID)
			results[idx] = res
			errs[idx] = err
			return nil
		})
	}
	_ = g.Wait()

	err := errors.Join(errs...)
	i.finishRun(runID, err)
	if err != nil {
		return results, err
	}
	i.logger.Info("setup complete", slog.String("data_dir", i.dataDir), slog.Int("datasets", len(datasets)))
	return results, nil
}

// Install installs a single dataset. Its signature matches
// dataset.MissingFunc so it can back a Loader's automatic setup.
func (i *Installer) Install(ctx context.Context, ds dataset.Dataset) error {
	res, err := i.Run(ctx, ds)
	if err != nil {
		return err
	}
	if len(res) == 1 && res[0].Status == StatusManual {
		return fmt.Errorf("%s: %s", ds, res[0].Message)
	}
	return nil
}

func (i *Installer) install(ctx context.Context, ds dataset.Dataset, runID string) (Result, error) {
	src, err := SourceFor(ds)
	if err != nil {
		return Result{Dataset: ds}, err
	}
	if u := i.urls[string(ds)]; u != "" {
		src.URL = u
	}

	target := ds.Path(i.dataDir)
	res := Result{Dataset: ds, Path: target}
	logger := i.logger.With(slog.String("dataset", string(ds)))

	if fileExists(target) {
		res.Status = StatusSkipped
		res.Message = "already present"
		logger.Debug("dataset already present", slog.String("path", target))
		return res, nil
	}
	if !src.Convertible() && i.extracted(ds) {
		res.Status = StatusManual
		res.Message = manualMessage(src, target)
		logger.Warn("geometry archive already extracted; convert it to Parquet manually", slog.String("path", target))
		return res, nil
	}

	archive := filepath.Join(i.dataDir, src.Archive)
	logger.Info("downloading", slog.String("title", src.Title), slog.String("url", src.URL))
	n, err := i.download(ctx, src.URL, archive)
	if err != nil {
		downloadsTotal.WithLabelValues(string(ds), "error").Inc()
		return res, err
	}
	downloadsTotal.WithLabelValues(string(ds), "ok").Inc()
	downloadBytes.WithLabelValues(string(ds)).Add(float64(n))

	names, err := extract(archive, i.dataDir)
	if err != nil {
		return res, err
	}
	if err := os.Remove(archive); err != nil {
		logger.Warn("failed to remove archive", slog.String("path", archive), slog.String("error", err.Error()))
	}

	if !src.Convertible() {
		res.Status = StatusManual
		res.Message = manualMessage(src, target)
		logger.Warn("geometry data needs GDAL to convert; produce the Parquet file manually",
			slog.String("target", target), slog.Int("files", len(names)))
		return res, nil
	}

	csvPath, ok := findExtracted(i.dataDir, src.CSV, names)
	if !ok {
		return res, fmt.Errorf("%s not found in %s", src.CSV, src.Archive)
	}
	rows, err := i.convert(ctx, csvPath, target)
	if err != nil {
		return res, err
	}
	if err := os.Remove(csvPath); err != nil {
		logger.Warn("failed to remove csv", slog.String("path", csvPath), slog.String("error", err.Error()))
	}

	res.Status = StatusInstalled
	res.Rows = rows
	logger.Info("dataset installed", slog.String("path", target), slog.Int64("rows", rows))

	i.record(&state.Dataset{Name: string(ds), Path: target, SourceURL: src.URL, Rows: rows, Bytes: fileSize(target), RunID: runID})
	return res, nil
}

// convert writes src as Parquet at dst and returns its row count.
func (i *Installer) convert(ctx context.Context, src, dst string) (int64, error) {
	i.convertMu.Lock()
	defer i.convertMu.Unlock()

	db, err := dataset.OpenDuckDB(ctx, "", i.logger)
	if err != nil {
		return 0, err
	}
	defer func() { _ = db.Close() }()

	if err := db.ConvertCSV(ctx, src, dst); err != nil {
		conversionsTotal.WithLabelValues("error").Inc()
		return 0, err
	}
	conversionsTotal.WithLabelValues("ok").Inc()
	return db.CountRows(ctx, dst)
}

// extracted reports whether the raw files of a geometry archive are already
// in the data directory.
func (i *Installer) extracted(ds dataset.Dataset) bool {
	var pattern string
	switch ds {
	case dataset.Network:
		pattern = filepath.Join(i.dataDir, "Networks")
	case dataset.ZoneGeometry:
		pattern = filepath.Join(i.dataDir, "*.shp")
	default:
		return false
	}
	matches, _ := filepath.Glob(pattern)
	return len(matches) > 0
}

func manualMessage(src Source, target string) string {
	return fmt.Sprintf("%s extracted; convert it to %s with GDAL", src.Title, filepath.Base(target))
}

var countyFactorName = regexp.MustCompile(`^(truck|rail|water|pipeline)_(origin|destination)_factors\.(csv|parquet)$`)

// SetupCountyData installs county factor tables from a user supplied zip.
// Parquet members are copied as is; CSV members are converted. The archive
// is left in place.
func (i *Installer) SetupCountyData(ctx context.Context, zipPath string) ([]Result, error) {
	if !fileExists(zipPath) {
		return nil, fmt.Errorf("county archive not found at %s", zipPath)
	}

	tmp, err := os.MkdirTemp("", "fafquery-county-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create temp dir: %w", err)
	}
	defer func() { _ = os.RemoveAll(tmp) }()

	names, err := extract(zipPath, tmp)
	if err != nil {
		return nil, err
	}

	outDir := filepath.Join(i.dataDir, dataset.CountyFactorsDir)
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create %s: %w", outDir, err)
	}

	runID := i.startRun("setup county")
	var results []Result
	var errs []error
	for _, name := range names {
		base := filepath.Base(filepath.FromSlash(name))
		m := countyFactorName.FindStringSubmatch(strings.ToLower(base))
		if m == nil {
			continue
		}
		src := filepath.Join(tmp, filepath.FromSlash(name))
		dst := dataset.CountyFactorPath(i.dataDir, m[1], m[2])
		res := Result{Dataset: dataset.Dataset(dataset.CountyFactorsDir + "/" + m[1] + "_" + m[2]), Path: dst, Status: StatusInstalled}

		var rows int64
		if m[3] == "parquet" {
			err = copyFile(src, dst)
		} else {
			rows, err = i.convert(ctx, src, dst)
		}
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", base, err))
			continue
		}
		res.Rows = rows
		i.logger.Info("county factors installed", slog.String("file", base), slog.String("path", dst))
		i.record(&state.Dataset{Name: string(res.Dataset), Path: dst, SourceURL: zipPath, Rows: rows, Bytes: fileSize(dst), RunID: runID})
		results = append(results, res)
	}

	if len(results) == 0 && len(errs) == 0 {
		errs = append(errs, fmt.Errorf("no county factor files found in %s", filepath.Base(zipPath)))
	}
	err = errors.Join(errs...)
	i.finishRun(runID, err)
	return results, err
}

func (i *Installer) startRun(command string) string {
	if i.manifest == nil {
		return ""
	}
	run, err := i.manifest.CreateRun(command)
	if err != nil {
		i.logger.Warn("failed to record setup run", slog.String("error", err.Error()))
		return ""
	}
	return run.ID
}

func (i *Installer) finishRun(id string, runErr error) {
	if i.manifest == nil || id == "" {
		return
	}
	status, msg := state.RunStatusCompleted, ""
	if runErr != nil {
		status, msg = state.RunStatusFailed, runErr.Error()
	}
	if err := i.manifest.CompleteRun(id, status, msg); err != nil {
		i.logger.Warn("failed to complete setup run", slog.String("run_id", id), slog.String("error", err.Error()))
	}
}

func (i *Installer) record(d *state.Dataset) {
	if i.manifest == nil {
		return
	}
	if err := i.manifest.RecordDataset(d); err != nil {
		i.logger.Warn("failed to record dataset", slog.String("dataset", d.Name), slog.String("error", err.Error()))
	}
}

func copyFile(src, dst string) error {
	data, err := os.ReadFile(src)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", src, err)
	}
	if err := os.WriteFile(dst, data, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", dst, err)
	}
	return nil
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

func fileSize(path string) int64 {
	info, err := os.Stat(path)
	if err != nil {
		return 0
	}
	return info.Size()
}

func joinDatasets(ds []dataset.Dataset) string {
	names := make([]string, len(ds))
	for i, d := range ds {
		names[i] = string(d)
	}
	return strings.Join(names, ",")
}
