// Package state records setup runs and processed datasets in a SQLite
// manifest stored next to the data files.
package state

import (
	"errors"
	"time"
)

// ManifestFile is the manifest database name inside the data directory.
const ManifestFile = "manifest.db"

// ErrNotFound is returned when a run or dataset record does not exist.
var ErrNotFound = errors.New("not found")

// RunStatus is the state of a setup run.
type RunStatus string

// Run statuses.
const (
	RunStatusRunning   RunStatus = "running"
	RunStatusCompleted RunStatus = "completed"
	RunStatusFailed    RunStatus = "failed"
)

// Run is one invocation of the setup flow.
type Run struct {
	ID          string     `json:"id" yaml:"id"`
	Command     string     `json:"command" yaml:"command"`
	Status      RunStatus  `json:"status" yaml:"status"`
	StartedAt   time.Time  `json:"started_at" yaml:"started_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty" yaml:"completed_at,omitempty"`
	Error       string     `json:"error,omitempty" yaml:"error,omitempty"`
}

// Dataset records a file produced by setup.
type Dataset struct {
	Name        string    `json:"name" yaml:"name"`
	Path        string    `json:"path" yaml:"path"`
	SourceURL   string    `json:"source_url,omitempty" yaml:"source_url,omitempty"`
	Rows        int64     `json:"rows" yaml:"rows"`
	Bytes       int64     `json:"bytes" yaml:"bytes"`
	RunID       string    `json:"run_id,omitempty" yaml:"run_id,omitempty"`
	ProcessedAt time.Time `json:"processed_at" yaml:"processed_at"`
}

// Store persists the setup manifest.
type Store interface {
	Open(path string) error
	Close() error
	Migrate() error

	CreateRun(command string) (*Run, error)
	CompleteRun(id string, status RunStatus, errMsg string) error
	GetRun(id string) (*Run, error)
	ListRuns(limit int) ([]*Run, error)

	RecordDataset(d *Dataset) error
	GetDataset(name string) (*Dataset, error)
	ListDatasets() ([]*Dataset, error)
	DeleteDataset(name string) error
}

var _ Store = (*SQLiteStore)(nil)
