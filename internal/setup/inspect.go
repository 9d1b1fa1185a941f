package setup

import (
	"os"
	"path/filepath"
	"time"

	"github.com/leapstack-labs/fafquery/internal/state"
	"github.com/leapstack-labs/fafquery/pkg/dataset"
)

// FileStatus describes one dataset file in the data directory.
type FileStatus struct {
	Dataset   string     `json:"dataset"`
	Path      string     `json:"path"`
	Present   bool       `json:"present"`
	Bytes     int64      `json:"bytes,omitempty"`
	Rows      int64      `json:"rows,omitempty"`
	Installed *time.Time `json:"installed,omitempty"`
}

// Inspect reports which datasets and county factor tables are present in
// dataDir. Row counts and install times come from manifest when it is set.
func Inspect(dataDir string, manifest state.Store) []FileStatus {
	var out []FileStatus
	for _, ds := range dataset.Datasets() {
		out = append(out, inspectFile(string(ds), ds.Path(dataDir), manifest))
	}

	for _, mode := range []string{"truck", "rail", "water", "pipeline"} {
		for _, side := range []string{"origin", "destination"} {
			path := dataset.CountyFactorPath(dataDir, mode, side)
			if _, err := os.Stat(path); err != nil {
				continue
			}
			out = append(out, inspectFile(dataset.CountyFactorsDir+"/"+mode+"_"+side, path, manifest))
		}
	}
	return out
}

func inspectFile(name, path string, manifest state.Store) FileStatus {
	fs := FileStatus{Dataset: name, Path: filepath.Clean(path)}
	info, err := os.Stat(path)
	if err != nil {
		return fs
	}
	fs.Present = true
	fs.Bytes = info.Size()
	if manifest != nil {
		if rec, err := manifest.GetDataset(name); err == nil {
			fs.Rows = rec.Rows
			fs.Installed = &rec.ProcessedAt
		}
	}
	return fs
}
