// Package dataset reads the FAF5 tables from the local data directory.
//
// Every table is stored as Parquet and read through an embedded DuckDB
// connection. Tables are converted once into column-major Go structures
// (FlowTable, NetworkTable, Zones, CountyFactors) and memoized by a Loader for
// the lifetime of the process.
package dataset

import (
	"errors"
	"fmt"
	"path/filepath"
)

// Dataset names one of the fixed FAF tables.
type Dataset string

// Known datasets.
const (
	Regional         Dataset = "regional"
	State            Dataset = "state"
	Forecast         Dataset = "hilo"
	StateForecast    Dataset = "state_hilo"
	Network          Dataset = "network"
	ZoneGeometry     Dataset = "zones"
	CountyFactorsDir         = "county_factors"
)

var fileNames = map[Dataset]string{
	Regional:      "FAF5.7.1.parquet",
	State:         "FAF5.7.1_State.parquet",
	Forecast:      "FAF5.7.1_HiLoForecasts.parquet",
	StateForecast: "FAF5.7.1_State_HiLoForecasts.parquet",
	Network:       "FAF5_Network_Links.parquet",
	ZoneGeometry:  "FAF5_Zones_Processed.parquet",
}

// Datasets returns every known dataset in setup order.
func Datasets() []Dataset {
	return []Dataset{Regional, State, Forecast, StateForecast, Network, ZoneGeometry}
}

// FileName returns the Parquet file name of the dataset, or "" when unknown.
func (d Dataset) FileName() string {
	return fileNames[d]
}

// Path returns the dataset location inside dataDir.
func (d Dataset) Path(dataDir string) string {
	return filepath.Join(dataDir, d.FileName())
}

// Valid reports whether d is a known dataset.
func (d Dataset) Valid() bool {
	_, ok := fileNames[d]
	return ok
}

// ParseDataset maps a name such as "regional" or "hilo" to a Dataset.
func ParseDataset(name string) (Dataset, error) {
	d := Dataset(name)
	if !d.Valid() {
		return "", fmt.Errorf("unknown dataset %q", name)
	}
	return d, nil
}

// ErrDataUnavailable is matched by every DataUnavailableError.
var ErrDataUnavailable = errors.New("data unavailable")

// DataUnavailableError reports a table file missing from the data directory.
type DataUnavailableError struct {
	Dataset string
	Path    string
}

func (e *DataUnavailableError) Error() string {
	return fmt.Sprintf("%s data not found at %s; run `fafquery setup` (or faf.DownloadAndProcess) first", e.Dataset, e.Path)
}

// Is makes errors.Is(err, ErrDataUnavailable) true.
func (e *DataUnavailableError) Is(target error) bool {
	return target == ErrDataUnavailable
}
