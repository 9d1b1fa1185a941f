package query

import (
	"cmp"
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"slices"
	"strings"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"github.com/leapstack-labs/fafquery/pkg/catalog"
	"github.com/leapstack-labs/fafquery/pkg/dataset"
)

// NetworkQuery filters highway network segments. Obtain one from an Engine.
type NetworkQuery struct {
	spec Spec
	eng  *Engine
	err  error
}

// Segments is a network query result.
type Segments []dataset.Segment

func (s Segments) cacheClone() cacheValue {
	out := make(Segments, len(s))
	for i, seg := range s {
		if seg.Geometry != nil {
			seg.Geometry = orb.Clone(seg.Geometry)
		}
		out[i] = seg
	}
	return out
}

// Spec returns the accumulated clauses.
func (q NetworkQuery) Spec() Spec { return q.spec }

// Err returns the first error recorded by a filter, if any.
func (q NetworkQuery) Err() error { return q.err }

func (q NetworkQuery) with(name string, v any) NetworkQuery {
	if q.err != nil {
		return q
	}
	q.spec = q.spec.With(name, v)
	return q
}

func (q NetworkQuery) patterns(clause string, patterns []string) NetworkQuery {
	if q.err != nil {
		return q
	}
	if len(patterns) == 0 {
		q.err = invalid(fmt.Errorf("%s filter: %w", clause, catalog.ErrEmpty))
		return q
	}
	if _, err := compilePatterns(patterns); err != nil {
		q.err = invalid(err)
		return q
	}
	return q.with(clause, slices.Clone(patterns))
}

// compilePatterns joins patterns with | into one case-insensitive expression.
func compilePatterns(patterns []string) (*regexp.Regexp, error) {
	re, err := regexp.Compile("(?i)" + strings.Join(patterns, "|"))
	if err != nil {
		return nil, fmt.Errorf("invalid pattern %q: %w", strings.Join(patterns, "|"), err)
	}
	return re, nil
}

// Routes keeps segments whose road name or signed route matches any pattern
// (case-insensitive regular expressions, e.g. "I-?5\b").
func (q NetworkQuery) Routes(patterns ...string) NetworkQuery {
	return q.patterns(ClauseRoutes, patterns)
}

// FunctionalClasses keeps segments whose class description matches any
// pattern, e.g. "Interstate".
func (q NetworkQuery) FunctionalClasses(patterns ...string) NetworkQuery {
	return q.patterns(ClauseFunctionalClasses, patterns)
}

// States keeps segments in the given state abbreviations.
func (q NetworkQuery) States(abbrs ...string) NetworkQuery {
	if q.err != nil {
		return q
	}
	if len(abbrs) == 0 {
		q.err = invalid(fmt.Errorf("states filter: %w", catalog.ErrEmpty))
		return q
	}
	upper := make([]string, len(abbrs))
	for i, a := range abbrs {
		upper[i] = strings.ToUpper(strings.TrimSpace(a))
	}
	return q.with(ClauseStates, upper)
}

// Zones keeps segments in the given FAF zones (names or codes).
func (q NetworkQuery) Zones(zones ...catalog.Ref) NetworkQuery {
	if q.err != nil {
		return q
	}
	if q.eng == nil || q.eng.catalog == nil {
		q.err = fmt.Errorf("network: reference catalog not loaded")
		return q
	}
	codes, err := q.eng.catalog.ResolveZones(zones)
	if err != nil {
		q.err = invalid(err)
		return q
	}
	return q.with(ClauseZones, codes)
}

// FreightNetwork with true keeps National Highway Freight Network segments.
// False applies no restriction.
func (q NetworkQuery) FreightNetwork(only bool) NetworkQuery { return q.with(ClauseNHFN, only) }

// NHS with true keeps National Highway System segments. False applies no
// restriction.
func (q NetworkQuery) NHS(only bool) NetworkQuery { return q.with(ClauseNHS, only) }

// TruckAllowed with true drops segments where trucks are prohibited. False
// applies no restriction.
func (q NetworkQuery) TruckAllowed(allowed bool) NetworkQuery {
	return q.with(ClauseTruckAllowed, allowed)
}

// TollRoads with true keeps only toll segments; false excludes them.
func (q NetworkQuery) TollRoads(toll bool) NetworkQuery { return q.with(ClauseToll, toll) }

// Validate reports non-fatal problems with the query.
func (q NetworkQuery) Validate() []string {
	if q.spec.Len() == 0 {
		return []string{"no filters applied; query will return all data"}
	}
	return nil
}

// String lists the clauses.
func (q NetworkQuery) String() string {
	if q.spec.Len() == 0 {
		return "NetworkQuery(no filters)"
	}
	return "NetworkQuery(" + q.spec.describe() + ")"
}

func (q NetworkQuery) ready() error {
	if q.err != nil {
		return q.err
	}
	if q.eng == nil || q.eng.source == nil {
		return fmt.Errorf("query is not bound to a data source")
	}
	return nil
}

// Get returns the matching segments in table order.
func (q NetworkQuery) Get(ctx context.Context) (Segments, error) {
	if err := q.ready(); err != nil {
		return nil, err
	}

	key := q.spec.CacheKey(KindNetwork, "")
	if v, ok := q.eng.cache.get(key); ok {
		return v.(Segments), nil
	}

	t, err := q.eng.source.Network(ctx)
	if err != nil {
		return nil, err
	}
	match, err := q.predicate()
	if err != nil {
		return nil, err
	}

	out := Segments{}
	for _, s := range t.Segments {
		if match(&s) {
			out = append(out, s)
		}
	}
	q.eng.logger.Debug("network query executed", slog.String("query", q.String()), slog.Int("segments", len(out)))
	q.eng.cache.put(key, out)
	return out.cacheClone().(Segments), nil
}

func (q NetworkQuery) predicate() (func(*dataset.Segment) bool, error) {
	var preds []func(*dataset.Segment) bool

	if p, ok := q.spec.Strings(ClauseRoutes); ok {
		re, err := compilePatterns(p)
		if err != nil {
			return nil, invalid(err)
		}
		preds = append(preds, func(s *dataset.Segment) bool {
			return re.MatchString(s.RoadName) || re.MatchString(s.SignRoute)
		})
	}
	if states, ok := q.spec.Strings(ClauseStates); ok {
		preds = append(preds, func(s *dataset.Segment) bool { return slices.Contains(states, s.State) })
	}
	if zones, ok := q.spec.Ints(ClauseZones); ok {
		preds = append(preds, func(s *dataset.Segment) bool { return slices.Contains(zones, s.Zone) })
	}
	if p, ok := q.spec.Strings(ClauseFunctionalClasses); ok {
		re, err := compilePatterns(p)
		if err != nil {
			return nil, invalid(err)
		}
		preds = append(preds, func(s *dataset.Segment) bool { return re.MatchString(s.Class) })
	}
	if only, ok := q.spec.Bool(ClauseNHFN); ok && only {
		preds = append(preds, func(s *dataset.Segment) bool { return s.NHFN })
	}
	if only, ok := q.spec.Bool(ClauseNHS); ok && only {
		preds = append(preds, func(s *dataset.Segment) bool { return s.NHS })
	}
	if allowed, ok := q.spec.Bool(ClauseTruckAllowed); ok && allowed {
		preds = append(preds, func(s *dataset.Segment) bool { return s.Truck != dataset.TruckProhibited })
	}
	if toll, ok := q.spec.Bool(ClauseToll); ok {
		preds = append(preds, func(s *dataset.Segment) bool { return s.Toll == toll })
	}

	return func(s *dataset.Segment) bool {
		for _, p := range preds {
			if !p(s) {
				return false
			}
		}
		return true
	}, nil
}

// TotalLength sums the length of the matching segments.
func (q NetworkQuery) TotalLength(ctx context.Context) (float64, error) {
	segs, err := q.Get(ctx)
	if err != nil {
		return 0, err
	}
	var total float64
	for _, s := range segs {
		total += s.Length
	}
	return total, nil
}

// LengthTotal is the summed segment length of one group.
type LengthTotal[K cmp.Ordered] struct {
	Key    K       `json:"key"`
	Length float64 `json:"length"`
}

func sumLengths[K cmp.Ordered](segs Segments, key func(*dataset.Segment) K) []LengthTotal[K] {
	totals := make(map[K]float64)
	for i := range segs {
		totals[key(&segs[i])] += segs[i].Length
	}
	out := make([]LengthTotal[K], 0, len(totals))
	for k, v := range totals {
		out = append(out, LengthTotal[K]{Key: k, Length: v})
	}
	slices.SortFunc(out, func(a, b LengthTotal[K]) int { return cmp.Compare(a.Key, b.Key) })
	return out
}

// ByState returns total length per state, ordered by state.
func (q NetworkQuery) ByState(ctx context.Context) ([]LengthTotal[string], error) {
	segs, err := q.Get(ctx)
	if err != nil {
		return nil, err
	}
	return sumLengths(segs, func(s *dataset.Segment) string { return s.State }), nil
}

// ByFunctionalClass returns total length per class description.
func (q NetworkQuery) ByFunctionalClass(ctx context.Context) ([]LengthTotal[string], error) {
	segs, err := q.Get(ctx)
	if err != nil {
		return nil, err
	}
	return sumLengths(segs, func(s *dataset.Segment) string { return s.Class }), nil
}

// ByZone returns total length per FAF zone.
func (q NetworkQuery) ByZone(ctx context.Context) ([]LengthTotal[int], error) {
	segs, err := q.Get(ctx)
	if err != nil {
		return nil, err
	}
	return sumLengths(segs, func(s *dataset.Segment) int { return s.Zone }), nil
}

// NetworkSummary describes the matching segments. AvgLength is NaN when no
// segment matches.
type NetworkSummary struct {
	TotalSegments     int     `json:"total_segments"`
	TotalLength       float64 `json:"total_length"`
	AvgLength         float64 `json:"avg_length"`
	States            int     `json:"states"`
	FunctionalClasses int     `json:"functional_classes"`
}

// Summarize returns segment count, total and mean length, and the number of
// distinct states and functional classes.
func (q NetworkQuery) Summarize(ctx context.Context) (NetworkSummary, error) {
	segs, err := q.Get(ctx)
	if err != nil {
		return NetworkSummary{}, err
	}
	lengths := make([]float64, len(segs))
	states := make(map[string]struct{})
	classes := make(map[string]struct{})
	for i, s := range segs {
		lengths[i] = s.Length
		if s.State != "" {
			states[s.State] = struct{}{}
		}
		if s.Class != "" {
			classes[s.Class] = struct{}{}
		}
	}
	st := summarize(lengths)
	return NetworkSummary{
		TotalSegments:     len(segs),
		TotalLength:       st.Total,
		AvgLength:         st.Mean,
		States:            len(states),
		FunctionalClasses: len(classes),
	}, nil
}

// ToGeoJSON renders the matching segments with their attributes.
func (q NetworkQuery) ToGeoJSON(ctx context.Context) (*geojson.FeatureCollection, error) {
	segs, err := q.Get(ctx)
	if err != nil {
		return nil, err
	}
	fc := geojson.NewFeatureCollection()
	for _, s := range segs {
		if s.Geometry == nil {
			continue
		}
		f := geojson.NewFeature(s.Geometry)
		f.ID = s.ID
		f.Properties["road_name"] = s.RoadName
		f.Properties["sign_route"] = s.SignRoute
		f.Properties["state"] = s.State
		f.Properties["faf_zone"] = s.Zone
		f.Properties["class"] = s.Class
		f.Properties["nhfn"] = s.NHFN
		f.Properties["nhs"] = s.NHS
		f.Properties["toll"] = s.Toll
		f.Properties["toll_type"] = s.TollType
		f.Properties["truck"] = s.Truck
		f.Properties["length"] = s.Length
		fc.Append(f)
	}
	return fc, nil
}
