// Package config loads the fafquery CLI configuration.
//
// Values are layered, lowest to highest precedence: built-in defaults, the
// YAML config file, FAFQUERY_ environment variables, then flags that were set
// on the command line.
package config

import (
	"time"

	"github.com/leapstack-labs/fafquery/pkg/faf"
)

// Config holds all CLI configuration options.
type Config struct {
	DataDir   string      `koanf:"data_dir" yaml:"data_dir" validate:"required"`
	Output    string      `koanf:"output" yaml:"output" validate:"oneof=auto text markdown md json csv"`
	Verbose   bool        `koanf:"verbose" yaml:"verbose"`
	AutoSetup bool        `koanf:"auto_setup" yaml:"auto_setup"`
	Cache     CacheConfig `koanf:"cache" yaml:"cache"`
	Setup     SetupConfig `koanf:"setup" yaml:"setup"`
}

// CacheConfig configures the query result cache.
type CacheConfig struct {
	// MaxResults caps cached results. Zero means unbounded.
	MaxResults int `koanf:"max_results" yaml:"max_results" validate:"gte=0"`
}

// SetupConfig configures dataset downloads.
type SetupConfig struct {
	// URLs overrides the download URL per dataset name.
	URLs     map[string]string `koanf:"urls" yaml:"urls,omitempty" validate:"dive,keys,oneof=regional state hilo state_hilo network zones,endkeys,url"`
	Timeout  time.Duration     `koanf:"timeout" yaml:"timeout" validate:"gte=0"`
	Parallel int               `koanf:"parallel" yaml:"parallel" validate:"gte=0,lte=8"`
}

// Default configuration values.
const (
	DefaultOutput   = "auto" // TTY=text, non-TTY=markdown
	DefaultTimeout  = 30 * time.Minute
	DefaultParallel = 2
)

// Options converts the configuration into session options.
func (c *Config) Options() faf.Options {
	return faf.Options{
		DataDir:          c.DataDir,
		AutoSetup:        c.AutoSetup,
		MaxCachedResults: c.Cache.MaxResults,
		URLs:             c.Setup.URLs,
		SetupTimeout:     c.Setup.Timeout,
		SetupParallel:    c.Setup.Parallel,
	}
}
