package dataset

import (
	"fmt"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/encoding/wkb"
)

// Network link column names.
const (
	ColLinkID    = "ID"
	ColRoadName  = "Road_Name"
	ColSignRoute = "Sign_Rte"
	ColState     = "STATE"
	ColZone      = "FAFZONE"
	ColClass     = "Class_Description"
	ColNHFN      = "NHFN"
	ColNHS       = "NHS"
	ColTruck     = "Truck"
	ColTollType  = "Toll_Type"
	ColLength    = "LENGTH"
	ColGeometry  = "geometry"
)

// TruckProhibited is the Truck attribute of segments closed to trucks.
const TruckProhibited = "Prohibited"

// Segment is one highway network link.
type Segment struct {
	ID        int
	RoadName  string
	SignRoute string
	State     string
	Zone      int
	Class     string
	// NHFN, NHS and Toll report whether the attribute is present.
	NHFN     bool
	NHS      bool
	Toll     bool
	TollType string
	Truck    string
	Length   float64
	Geometry orb.Geometry
}

// NetworkTable holds every network segment.
type NetworkTable struct {
	Segments []Segment
}

// Len returns the number of segments.
func (t *NetworkTable) Len() int {
	if t == nil {
		return 0
	}
	return len(t.Segments)
}

// NewNetworkTable converts a raw result into segments. Geometry is decoded
// from WKB; undecodable geometry is left nil.
func NewNetworkTable(raw *RawTable) (*NetworkTable, error) {
	n := raw.Len()
	if raw.Index(ColLength) < 0 {
		return nil, fmt.Errorf("network: column %s not found", ColLength)
	}

	str := func(col string) ([]string, []bool) {
		vals, null, ok := raw.Strings(col)
		if !ok {
			vals = make([]string, n)
			null = make([]bool, n)
			for i := range null {
				null[i] = true
			}
		}
		return vals, null
	}

	roads, _ := str(ColRoadName)
	signs, _ := str(ColSignRoute)
	states, _ := str(ColState)
	classes, _ := str(ColClass)
	trucks, _ := str(ColTruck)
	tolls, tollNull := str(ColTollType)
	_, nhfnNull := str(ColNHFN)
	_, nhsNull := str(ColNHS)
	lengths, _ := raw.Floats(ColLength)

	zones, ok := raw.Ints(ColZone)
	if !ok {
		zones = make([]int, n)
	}
	ids, ok := raw.Ints(ColLinkID)
	if !ok {
		ids = make([]int, n)
		for i := range ids {
			ids[i] = i
		}
	}
	geoms, _ := raw.Bytes(ColGeometry)

	t := &NetworkTable{Segments: make([]Segment, n)}
	for i := range t.Segments {
		s := Segment{
			ID:        ids[i],
			RoadName:  roads[i],
			SignRoute: signs[i],
			State:     states[i],
			Zone:      zones[i],
			Class:     classes[i],
			NHFN:      !nhfnNull[i],
			NHS:       !nhsNull[i],
			Toll:      !tollNull[i],
			TollType:  tolls[i],
			Truck:     trucks[i],
			Length:    lengths[i],
		}
		if geoms != nil && len(geoms[i]) > 0 {
			if g, err := wkb.Unmarshal(geoms[i]); err == nil {
				s.Geometry = g
			}
		}
		t.Segments[i] = s
	}
	return t, nil
}
