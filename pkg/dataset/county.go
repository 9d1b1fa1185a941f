package dataset

import (
	"fmt"
	"path/filepath"
)

// CountyModes maps the modes that support county disaggregation to the name
// used in factor file names.
var CountyModes = map[int]string{
	1: "truck",
	2: "rail",
	3: "water",
	6: "pipeline",
}

// CountyModeCodes returns the disaggregated mode codes in ascending order.
func CountyModeCodes() []int {
	return []int{1, 2, 3, 6}
}

// Factor sides.
const (
	SideOrigin      = "origin"
	SideDestination = "destination"
)

// County factor column names.
const (
	ColSCTGGroup  = "sctgG5"
	ColOrigCounty = "dms_orig_cnty"
	ColDestCounty = "dms_dest_cnty"
	ColOrigFactor = "f_orig"
	ColDestFactor = "f_dest"
)

// SCTGGroup maps an SCTG2 commodity code to its five-way factor group.
func SCTGGroup(sctg2 int) string {
	switch {
	case sctg2 <= 9:
		return "sctg0109"
	case sctg2 <= 14:
		return "sctg1014"
	case sctg2 <= 19:
		return "sctg1519"
	case sctg2 <= 33:
		return "sctg2033"
	default:
		return "sctg3499"
	}
}

// CountyFactorPath returns the factor file for mode name and side.
func CountyFactorPath(dataDir, mode, side string) string {
	return filepath.Join(dataDir, CountyFactorsDir, fmt.Sprintf("%s_%s_factors.parquet", mode, side))
}

// FactorKey identifies the zone and commodity group a factor applies to.
type FactorKey struct {
	Zone  int
	Group string
}

// CountyShare is the share of a zone's flow attributed to one county.
type CountyShare struct {
	County int
	Factor float64
}

// CountyFactors holds the factor table of one mode and side, indexed by zone
// and commodity group. Shares keep file order.
type CountyFactors struct {
	Mode   string
	Side   string
	shares map[FactorKey][]CountyShare
	rows   int
}

// NewCountyFactors converts a raw factor table. Origin tables carry dms_orig,
// dms_orig_cnty and f_orig; destination tables the dms_dest equivalents.
func NewCountyFactors(mode, side string, raw *RawTable) (*CountyFactors, error) {
	zoneCol, countyCol, factorCol := "dms_orig", ColOrigCounty, ColOrigFactor
	if side == SideDestination {
		zoneCol, countyCol, factorCol = "dms_dest", ColDestCounty, ColDestFactor
	}

	zones, ok := raw.Ints(zoneCol)
	if !ok {
		return nil, fmt.Errorf("%s %s factors: column %s not found", mode, side, zoneCol)
	}
	groups, _, ok := raw.Strings(ColSCTGGroup)
	if !ok {
		return nil, fmt.Errorf("%s %s factors: column %s not found", mode, side, ColSCTGGroup)
	}
	counties, ok := raw.Ints(countyCol)
	if !ok {
		return nil, fmt.Errorf("%s %s factors: column %s not found", mode, side, countyCol)
	}
	factors, ok := raw.Floats(factorCol)
	if !ok {
		return nil, fmt.Errorf("%s %s factors: column %s not found", mode, side, factorCol)
	}

	cf := &CountyFactors{Mode: mode, Side: side, shares: make(map[FactorKey][]CountyShare), rows: len(zones)}
	for i := range zones {
		k := FactorKey{Zone: zones[i], Group: groups[i]}
		cf.shares[k] = append(cf.shares[k], CountyShare{County: counties[i], Factor: factors[i]})
	}
	return cf, nil
}

// NewCountyFactorsFromShares builds a factor table directly.
func NewCountyFactorsFromShares(mode, side string, shares map[FactorKey][]CountyShare) *CountyFactors {
	cf := &CountyFactors{Mode: mode, Side: side, shares: make(map[FactorKey][]CountyShare, len(shares))}
	for k, v := range shares {
		cf.shares[k] = append([]CountyShare(nil), v...)
		cf.rows += len(v)
	}
	return cf
}

// Shares returns the county shares for zone and commodity group.
func (f *CountyFactors) Shares(zone int, group string) []CountyShare {
	if f == nil {
		return nil
	}
	return f.shares[FactorKey{Zone: zone, Group: group}]
}

// Len returns the number of factor rows.
func (f *CountyFactors) Len() int {
	if f == nil {
		return 0
	}
	return f.rows
}
