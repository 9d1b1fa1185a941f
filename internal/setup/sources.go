// Package setup downloads the FAF5 archives into the data directory and
// converts them to the Parquet files read by the dataset loader.
package setup

import (
	"fmt"
	"slices"

	"github.com/leapstack-labs/fafquery/pkg/dataset"
)

// Source describes where a dataset comes from.
type Source struct {
	Dataset dataset.Dataset
	Title   string
	URL     string
	// Archive is the local name of the downloaded zip.
	Archive string
	// CSV is the table extracted from the archive. Empty for geometry
	// archives, which need GDAL to convert.
	CSV string
}

// Convertible reports whether setup can produce the Parquet file itself.
func (s Source) Convertible() bool { return s.CSV != "" }

var defaultSources = []Source{
	{
		Dataset: dataset.Regional,
		Title:   "FAF5 Regional Database",
		URL:     "https://faf.ornl.gov/faf5/Data/Download_Files/FAF5.7.1.zip",
		Archive: "FAF5.7.1.zip",
		CSV:     "FAF5.7.1.csv",
	},
	{
		Dataset: dataset.Forecast,
		Title:   "FAF5 HiLo Forecasts",
		URL:     "https://faf.ornl.gov/faf5/Data/Download_Files/FAF5.7.1_HiLoForecasts.zip",
		Archive: "FAF5.7.1_HiLoForecasts.zip",
		CSV:     "FAF5.7.1_HiLoForecasts.csv",
	},
	{
		Dataset: dataset.State,
		Title:   "FAF5 State Database",
		URL:     "https://faf.ornl.gov/faf5/data/FAF5.7.1_State.zip",
		Archive: "FAF5.7.1_State.zip",
		CSV:     "FAF5.7.1_State.csv",
	},
	{
		Dataset: dataset.StateForecast,
		Title:   "FAF5 State HiLo Forecasts",
		URL:     "https://faf.ornl.gov/faf5/Data/Download_Files/FAF5.7.1_State_HiLoForecasts.zip",
		Archive: "FAF5.7.1_State_HiLoForecasts.zip",
		CSV:     "FAF5.7.1_State_HiLoForecasts.csv",
	},
	{
		Dataset: dataset.ZoneGeometry,
		Title:   "FAF5 Zones Shapefile",
		URL:     "https://www2.census.gov/programs-surveys/cfs/technical-documentation/geographies/Shapefile%20of%20CFS%20Metro%20Areas%20for%202017%20(requires%20ArcGIS%20to%20Open).zip",
		Archive: "FAF5_Zones.zip",
	},
	{
		Dataset: dataset.Network,
		Title:   "FAF5 Network Database",
		URL:     "https://ops.fhwa.dot.gov/freight/freight_analysis/faf/faf_highway_assignment_results/FAF5_Model_Highway_Network.zip",
		Archive: "FAF5_Model_Highway_Network.zip",
	},
}

// DefaultSources returns the published FAF5.7.1 sources in setup order.
func DefaultSources() []Source {
	return slices.Clone(defaultSources)
}

// SourceFor returns the default source of ds.
func SourceFor(ds dataset.Dataset) (Source, error) {
	for _, s := range defaultSources {
		if s.Dataset == ds {
			return s, nil
		}
	}
	return Source{}, fmt.Errorf("no download source for dataset %q", ds)
}

// DefaultURLs maps dataset names to their default download URL.
func DefaultURLs() map[string]string {
	urls := make(map[string]string, len(defaultSources))
	for _, s := range defaultSources {
		urls[string(s.Dataset)] = s.URL
	}
	return urls
}
