package query

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/leapstack-labs/fafquery/pkg/catalog"
)

// FlowQuery filters freight flows. The zero value is not usable; obtain one
// from an Engine.
type FlowQuery struct {
	kind Kind
	spec Spec
	eng  *Engine
	err  error
}

// Kind returns the query kind.
func (q FlowQuery) Kind() Kind { return q.kind }

// Spec returns the accumulated clauses.
func (q FlowQuery) Spec() Spec { return q.spec }

// Err returns the first error recorded by a filter, if any.
func (q FlowQuery) Err() error { return q.err }

// Signature identifies the clause state; equal signatures yield equal results.
func (q FlowQuery) Signature() string { return q.spec.Signature(q.kind) }

func (q FlowQuery) with(name string, v any) FlowQuery {
	q.spec = q.spec.With(name, v)
	return q
}

func (q FlowQuery) fail(err error) FlowQuery {
	q.err = err
	return q
}

func (q FlowQuery) unsupported(op, hint string) FlowQuery {
	return q.fail(&UnsupportedError{Query: q.kind.String(), Op: op, Hint: hint})
}

func (q FlowQuery) resolve(clause string, kind catalog.Kind, refs []catalog.Ref) FlowQuery {
	if q.err != nil {
		return q
	}
	if q.eng == nil || q.eng.catalog == nil {
		return q.fail(fmt.Errorf("%s: reference catalog not loaded", q.kind))
	}
	codes, err := q.eng.catalog.Resolve(kind, refs)
	if err != nil {
		return q.fail(invalid(err))
	}
	return q.with(clause, codes)
}

// OriginStates keeps flows leaving the given states (names or FIPS codes).
// Zone-level queries match the state part of the zone code.
func (q FlowQuery) OriginStates(states ...catalog.Ref) FlowQuery {
	return q.resolve(ClauseOriginStates, catalog.KindState, states)
}

// DestinationStates keeps flows arriving in the given states.
func (q FlowQuery) DestinationStates(states ...catalog.Ref) FlowQuery {
	return q.resolve(ClauseDestinationStates, catalog.KindState, states)
}

// OriginZones keeps flows leaving the given FAF zones.
func (q FlowQuery) OriginZones(zones ...catalog.Ref) FlowQuery {
	if q.err == nil && !q.kind.info().zoneLevel {
		return q.unsupported("zone filters", "use FAFQuery for zone-level queries")
	}
	return q.resolve(ClauseOriginZones, catalog.KindZone, zones)
}

// DestinationZones keeps flows arriving in the given FAF zones.
func (q FlowQuery) DestinationZones(zones ...catalog.Ref) FlowQuery {
	if q.err == nil && !q.kind.info().zoneLevel {
		return q.unsupported("zone filters", "use FAFQuery for zone-level queries")
	}
	return q.resolve(ClauseDestinationZones, catalog.KindZone, zones)
}

// Commodities keeps the given SCTG2 commodities (names or codes).
func (q FlowQuery) Commodities(commodities ...catalog.Ref) FlowQuery {
	return q.resolve(ClauseCommodities, catalog.KindCommodity, commodities)
}

// Modes keeps the given transport modes (names or codes).
func (q FlowQuery) Modes(modes ...catalog.Ref) FlowQuery {
	return q.resolve(ClauseModes, catalog.KindMode, modes)
}

// Years selects the years whose metric columns are returned.
func (q FlowQuery) Years(years ...int) FlowQuery {
	if q.err != nil {
		return q
	}
	valid, err := catalog.ValidateYears(years)
	if err != nil {
		return q.fail(invalid(err))
	}
	return q.with(ClauseYears, valid)
}

// YearRange selects every valid year in [start, end].
func (q FlowQuery) YearRange(start, end int) FlowQuery {
	if q.err != nil {
		return q
	}
	years := catalog.YearRange(start, end)
	if len(years) == 0 {
		return q.fail(invalidf("no valid years between %d and %d; see AvailableYears()", start, end))
	}
	return q.Years(years...)
}

// TradeTypes keeps Domestic, Import or Export flows (names or codes 1-3).
func (q FlowQuery) TradeTypes(types ...catalog.Ref) FlowQuery {
	if q.err != nil {
		return q
	}
	codes, err := catalog.ResolveTradeTypes(types)
	if err != nil {
		return q.fail(invalid(err))
	}
	return q.with(ClauseTradeTypes, codes)
}

// MinTons keeps flows with at least value tons in year. A zero year means
// 2020 (2030 for forecasts).
func (q FlowQuery) MinTons(value float64, year int) FlowQuery {
	return q.threshold(ClauseMinTons, "tons", value, year)
}

// MinValue keeps flows worth at least value (million dollars) in year. A zero
// year means 2020 (2030 for forecasts).
func (q FlowQuery) MinValue(value float64, year int) FlowQuery {
	return q.threshold(ClauseMinValue, "value", value, year)
}

func (q FlowQuery) threshold(clause, metric string, value float64, year int) FlowQuery {
	if q.err != nil {
		return q
	}
	if year == 0 {
		year = q.kind.info().thresholdYear
	}
	if !catalog.IsValidYear(year) {
		return q.fail(invalid(fmt.Errorf("%w: %d; see AvailableYears()", catalog.ErrInvalidYear, year)))
	}
	return q.with(clause, Threshold{Metric: metric, Year: year, Value: value})
}

// Scenarios selects forecast scenarios (base, high, low). Forecast only.
func (q FlowQuery) Scenarios(names ...string) FlowQuery {
	if q.err != nil {
		return q
	}
	if q.kind != KindForecast {
		return q.unsupported("scenarios", "use ForecastQuery for scenario analysis")
	}
	valid, err := catalog.ValidateScenarios(names)
	if err != nil {
		return q.fail(invalid(err))
	}
	return q.with(ClauseScenarios, valid)
}

// OriginCounties keeps county flows leaving the given 5-digit county FIPS
// codes. County only.
func (q FlowQuery) OriginCounties(counties ...catalog.Ref) FlowQuery {
	return q.counties(ClauseOriginCounties, counties)
}

// DestinationCounties keeps county flows arriving in the given counties.
func (q FlowQuery) DestinationCounties(counties ...catalog.Ref) FlowQuery {
	return q.counties(ClauseDestinationCounties, counties)
}

func (q FlowQuery) counties(clause string, refs []catalog.Ref) FlowQuery {
	if q.err != nil {
		return q
	}
	if q.kind != KindCounty {
		return q.unsupported("county filters", "use CountyQuery for county-level flows")
	}
	codes, err := parseCounties(refs)
	if err != nil {
		return q.fail(err)
	}
	return q.with(clause, codes)
}

func parseCounties(refs []catalog.Ref) ([]int, error) {
	if len(refs) == 0 {
		return nil, invalid(fmt.Errorf("county filter: %w", catalog.ErrEmpty))
	}
	codes := make([]int, 0, len(refs))
	for _, r := range refs {
		if r.IsCode() {
			if r.Code() <= 0 || r.Code() > 99999 {
				return nil, invalidf("county FIPS %d is not a 5-digit code", r.Code())
			}
			codes = append(codes, r.Code())
			continue
		}
		s := strings.TrimSpace(r.Name())
		n, err := strconv.Atoi(s)
		if err != nil || len(s) > 5 || n <= 0 {
			return nil, invalidf("county FIPS %q is not a 5-digit code", r.Name())
		}
		codes = append(codes, n)
	}
	return codes, nil
}

// Validate reports non-fatal problems with the query.
func (q FlowQuery) Validate() []string {
	var warnings []string
	if q.spec.Len() == 0 {
		warnings = append(warnings, "no filters applied; query will return all data")
	}
	if q.kind == KindForecast {
		if years, ok := q.spec.Ints(ClauseYears); ok {
			for _, y := range years {
				if !catalog.IsForecastYear(y) {
					warnings = append(warnings, fmt.Sprintf("year %d is not a forecast year and is ignored by scenario output", y))
				}
			}
		}
	}
	return warnings
}

// String lists the clauses, e.g. FAFQuery(commodities=[35], years=[2020]).
func (q FlowQuery) String() string {
	if q.spec.Len() == 0 {
		return q.kind.String() + "(no filters)"
	}
	return q.kind.String() + "(" + q.spec.describe() + ")"
}

// AvailableYears returns the observed and forecast years.
func (q FlowQuery) AvailableYears() catalog.YearSet {
	return catalog.AvailableYears()
}

func (q FlowQuery) ready() error {
	if q.err != nil {
		return q.err
	}
	if q.eng == nil || q.eng.source == nil {
		return errors.New("query is not bound to a data source")
	}
	return nil
}
