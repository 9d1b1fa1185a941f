package query

import (
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"slices"
	"strings"

	"github.com/dchest/siphash"
	"github.com/goccy/go-json"
)

// Clause names.
const (
	ClauseOriginStates        = "origin_states"
	ClauseDestinationStates   = "destination_states"
	ClauseOriginZones         = "origin_zones"
	ClauseDestinationZones    = "destination_zones"
	ClauseCommodities         = "commodities"
	ClauseModes               = "modes"
	ClauseYears               = "years"
	ClauseTradeTypes          = "trade_types"
	ClauseMinTons             = "min_tons"
	ClauseMinValue            = "min_value"
	ClauseScenarios           = "scenarios"
	ClauseOriginCounties      = "origin_counties"
	ClauseDestinationCounties = "destination_counties"

	ClauseRoutes            = "routes"
	ClauseStates            = "states"
	ClauseZones             = "zones"
	ClauseFunctionalClasses = "functional_classes"
	ClauseNHFN              = "nhfn"
	ClauseNHS               = "nhs"
	ClauseTruckAllowed      = "truck_allowed"
	ClauseToll              = "toll"
)

// Threshold keeps rows whose <Metric>_<Year> column is at least Value.
type Threshold struct {
	Metric string  `json:"metric"`
	Year   int     `json:"year"`
	Value  float64 `json:"value"`
}

// Column returns the metric column the threshold compares against.
func (t Threshold) Column() string {
	return fmt.Sprintf("%s_%d", t.Metric, t.Year)
}

func (t Threshold) String() string {
	return fmt.Sprintf("(%g, %d)", t.Value, t.Year)
}

// Spec is an immutable set of named clauses. Setting a clause that already
// exists replaces it. Clause values are []int, []string, Threshold or bool.
type Spec struct {
	clauses map[string]any
}

// With returns a copy of s with clause name set to v.
func (s Spec) With(name string, v any) Spec {
	next := make(map[string]any, len(s.clauses)+1)
	for k, old := range s.clauses {
		next[k] = old
	}
	next[name] = v
	return Spec{clauses: next}
}

// Get returns the value of clause name.
func (s Spec) Get(name string) (any, bool) {
	v, ok := s.clauses[name]
	return v, ok
}

// Has reports whether clause name is set.
func (s Spec) Has(name string) bool {
	_, ok := s.clauses[name]
	return ok
}

// Len returns the number of clauses.
func (s Spec) Len() int {
	return len(s.clauses)
}

// Names returns the clause names in sorted order.
func (s Spec) Names() []string {
	names := make([]string, 0, len(s.clauses))
	for k := range s.clauses {
		names = append(names, k)
	}
	slices.Sort(names)
	return names
}

// Ints returns an integer list clause.
func (s Spec) Ints(name string) ([]int, bool) {
	v, ok := s.clauses[name].([]int)
	return v, ok
}

// Strings returns a string list clause.
func (s Spec) Strings(name string) ([]string, bool) {
	v, ok := s.clauses[name].([]string)
	return v, ok
}

// Threshold returns a threshold clause.
func (s Spec) Threshold(name string) (Threshold, bool) {
	v, ok := s.clauses[name].(Threshold)
	return v, ok
}

// Bool returns a boolean clause.
func (s Spec) Bool(name string) (value, ok bool) {
	value, ok = s.clauses[name].(bool)
	return value, ok
}

type encodedClause struct {
	Name  string `json:"name"`
	Value any    `json:"value"`
}

// Canonical returns the canonical JSON encoding of the clauses sorted by
// name, prefixed by kind.
func (s Spec) Canonical(kind Kind) ([]byte, error) {
	names := s.Names()
	doc := struct {
		Kind    Kind            `json:"kind"`
		Clauses []encodedClause `json:"clauses"`
	}{Kind: kind, Clauses: make([]encodedClause, len(names))}
	for i, n := range names {
		doc.Clauses[i] = encodedClause{Name: n, Value: s.clauses[n]}
	}
	return json.Marshal(doc)
}

const (
	sigK0 = 0x6661667175657279 // "fafquery"
	sigK1 = 0x5f7369676e617475 // "_signatu"
)

// Signature hashes the canonical encoding with SipHash-128. Two specs with the
// same kind and clause contents have the same signature.
func (s Spec) Signature(kind Kind) string {
	buf, err := s.Canonical(kind)
	if err != nil {
		// Clause values are plain data and always encode.
		panic(fmt.Sprintf("query: encoding clauses: %v", err))
	}
	lo, hi := siphash.Hash128(sigK0, sigK1, buf)
	out := make([]byte, 0, 16)
	out = binary.LittleEndian.AppendUint64(out, lo)
	out = binary.LittleEndian.AppendUint64(out, hi)
	return hex.EncodeToString(out)
}

// CacheKey combines the signature with the result format.
func (s Spec) CacheKey(kind Kind, format Format) string {
	return s.Signature(kind) + "_" + string(format)
}

// describe renders clauses as name=value, truncating lists longer than three.
func (s Spec) describe() string {
	parts := make([]string, 0, len(s.clauses))
	for _, name := range s.Names() {
		parts = append(parts, name+"="+describeValue(s.clauses[name]))
	}
	return strings.Join(parts, ", ")
}

func describeValue(v any) string {
	switch vals := v.(type) {
	case []int:
		if len(vals) > 3 {
			return fmt.Sprintf("%v...", vals[:3])
		}
		return fmt.Sprint(vals)
	case []string:
		if len(vals) > 3 {
			return fmt.Sprintf("%q...", vals[:3])
		}
		return fmt.Sprintf("%q", vals)
	default:
		return fmt.Sprint(v)
	}
}
