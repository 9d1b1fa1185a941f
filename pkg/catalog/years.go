package catalog

import (
	"errors"
	"fmt"
	"slices"
	"strings"
)

// Year ranges published in FAF5: observed years and five-year forecasts.
const (
	FirstActualYear   = 2017
	LastActualYear    = 2024
	FirstForecastYear = 2030
	LastForecastYear  = 2050
	ForecastStep      = 5
)

// ErrInvalidYear is wrapped by every year validation failure.
var ErrInvalidYear = errors.New("invalid year")

// ErrInvalidTradeType is wrapped by trade type resolution failures.
var ErrInvalidTradeType = errors.New("invalid trade type")

// ErrInvalidScenario is wrapped by scenario validation failures.
var ErrInvalidScenario = errors.New("invalid scenario")

// ActualYears returns the observed years, ascending.
func ActualYears() []int {
	years := make([]int, 0, LastActualYear-FirstActualYear+1)
	for y := FirstActualYear; y <= LastActualYear; y++ {
		years = append(years, y)
	}
	return years
}

// ForecastYears returns the forecast years, ascending.
func ForecastYears() []int {
	var years []int
	for y := FirstForecastYear; y <= LastForecastYear; y += ForecastStep {
		years = append(years, y)
	}
	return years
}

// IsValidYear reports whether year has data.
func IsValidYear(year int) bool {
	if year >= FirstActualYear && year <= LastActualYear {
		return true
	}
	return IsForecastYear(year) && (year-FirstForecastYear)%ForecastStep == 0
}

// IsForecastYear reports whether year lies in the forecast horizon.
func IsForecastYear(year int) bool {
	return year >= FirstForecastYear && year <= LastForecastYear
}

// ValidateYears returns the sorted, de-duplicated years or an error listing
// every invalid entry.
func ValidateYears(years []int) ([]int, error) {
	if len(years) == 0 {
		return nil, fmt.Errorf("years filter: %w", ErrEmpty)
	}
	var invalid []string
	for _, y := range years {
		if !IsValidYear(y) {
			invalid = append(invalid, fmt.Sprint(y))
		}
	}
	if len(invalid) > 0 {
		return nil, fmt.Errorf("%w: [%s]; valid years are %d-%d (actual) and %d-%d in %d-year intervals (forecast); see AvailableYears()",
			ErrInvalidYear, strings.Join(invalid, " "),
			FirstActualYear, LastActualYear, FirstForecastYear, LastForecastYear, ForecastStep)
	}
	out := slices.Clone(years)
	slices.Sort(out)
	return slices.Compact(out), nil
}

// YearRange expands [start, end] to the valid years it contains, skipping the
// gap between the last observed year and the first forecast year.
func YearRange(start, end int) []int {
	var years []int
	for y := max(start, FirstActualYear); y <= min(end, LastActualYear); y++ {
		years = append(years, y)
	}
	for y := FirstForecastYear; y <= min(end, LastForecastYear); y += ForecastStep {
		if y >= start {
			years = append(years, y)
		}
	}
	return years
}

// Trade type codes.
const (
	TradeDomestic = 1
	TradeImport   = 2
	TradeExport   = 3
)

var tradeTypes = []string{"Domestic", "Import", "Export"}

// TradeTypeName returns the display name of a trade type code.
func TradeTypeName(code int) string {
	if code < 1 || code > len(tradeTypes) {
		return ""
	}
	return tradeTypes[code-1]
}

// ResolveTradeTypes maps Domestic/Import/Export (case-insensitive) or codes 1-3
// to trade type codes.
func ResolveTradeTypes(refs []Ref) ([]int, error) {
	if len(refs) == 0 {
		return nil, fmt.Errorf("trade types filter: %w", ErrEmpty)
	}
	codes := make([]int, 0, len(refs))
	for _, r := range refs {
		if r.isCode {
			if TradeTypeName(r.code) == "" {
				return nil, fmt.Errorf("%w: %d; valid trade types are 1 (Domestic), 2 (Import), 3 (Export)", ErrInvalidTradeType, r.code)
			}
			codes = append(codes, r.code)
			continue
		}
		idx := slices.IndexFunc(tradeTypes, func(t string) bool {
			return strings.EqualFold(t, strings.TrimSpace(r.name))
		})
		if idx < 0 {
			return nil, fmt.Errorf("%w: %q; valid trade types are %s", ErrInvalidTradeType, r.name, strings.Join(tradeTypes, ", "))
		}
		codes = append(codes, idx+1)
	}
	return codes, nil
}

// Forecast scenarios.
const (
	ScenarioBase = "base"
	ScenarioHigh = "high"
	ScenarioLow  = "low"
)

// Scenarios returns every forecast scenario in canonical order.
func Scenarios() []string {
	return []string{ScenarioBase, ScenarioHigh, ScenarioLow}
}

// ValidateScenarios lower-cases and checks scenario names, keeping the
// caller's order and dropping duplicates.
func ValidateScenarios(names []string) ([]string, error) {
	if len(names) == 0 {
		return nil, fmt.Errorf("scenarios filter: %w", ErrEmpty)
	}
	out := make([]string, 0, len(names))
	for _, n := range names {
		s := strings.ToLower(strings.TrimSpace(n))
		if !slices.Contains(Scenarios(), s) {
			return nil, fmt.Errorf("%w: %q; valid scenarios are %s", ErrInvalidScenario, n, strings.Join(Scenarios(), ", "))
		}
		if !slices.Contains(out, s) {
			out = append(out, s)
		}
	}
	return out, nil
}

// YearSet lists the observed and forecast years.
type YearSet struct {
	Actual   []int `json:"actual"`
	Forecast []int `json:"forecast"`
}

// AvailableYears returns every year with data.
func AvailableYears() YearSet {
	return YearSet{Actual: ActualYears(), Forecast: ForecastYears()}
}
