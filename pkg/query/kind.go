package query

import (
	"fmt"
	"strings"

	"github.com/leapstack-labs/fafquery/pkg/dataset"
)

// Kind identifies the table a query runs against.
type Kind string

// Query kinds.
const (
	KindRegional Kind = "regional"
	KindState    Kind = "state"
	KindForecast Kind = "hilo"
	KindCounty   Kind = "county"
	KindNetwork  Kind = "network"
)

// Format selects the result shape.
type Format string

// Result formats. FormatDefault resolves to long for forecasts and wide
// otherwise.
const (
	FormatDefault Format = ""
	FormatWide    Format = "wide"
	FormatLong    Format = "long"
)

// ParseFormat parses "wide", "long" or "" (default).
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatDefault, FormatWide, FormatLong:
		return f, nil
	default:
		return "", invalidf("unknown format %q; use wide or long", s)
	}
}

// kindInfo captures the per-kind capabilities of the shared flow builder.
type kindInfo struct {
	name    string
	dataset dataset.Dataset
	origin  string
	dest    string
	// zoneLevel is true when origin and destination hold FAF zone codes.
	zoneLevel     bool
	format        Format
	thresholdYear int
}

var kinds = map[Kind]kindInfo{
	KindRegional: {
		name: "FAFQuery", dataset: dataset.Regional,
		origin: "dms_orig", dest: "dms_dest", zoneLevel: true,
		format: FormatWide, thresholdYear: 2020,
	},
	KindState: {
		name: "StateQuery", dataset: dataset.State,
		origin: "dms_origst", dest: "dms_destst",
		format: FormatWide, thresholdYear: 2020,
	},
	KindForecast: {
		name: "ForecastQuery", dataset: dataset.Forecast,
		origin: "dms_orig", dest: "dms_dest", zoneLevel: true,
		format: FormatLong, thresholdYear: 2030,
	},
	KindCounty: {
		name: "CountyQuery", dataset: dataset.Regional,
		origin: "dms_orig", dest: "dms_dest", zoneLevel: true,
		format: FormatWide, thresholdYear: 2020,
	},
}

func (k Kind) info() kindInfo {
	info, ok := kinds[k]
	if !ok {
		panic(fmt.Sprintf("query: unknown flow kind %q", k))
	}
	return info
}

// String returns the builder name, e.g. FAFQuery.
func (k Kind) String() string {
	if info, ok := kinds[k]; ok {
		return info.name
	}
	if k == KindNetwork {
		return "NetworkQuery"
	}
	return string(k)
}
