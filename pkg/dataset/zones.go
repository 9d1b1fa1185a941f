package dataset

import (
	"fmt"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/encoding/wkb"
	"github.com/paulmach/orb/planar"
)

// Zones maps FAF zone codes to the planar centroid of their polygon.
type Zones struct {
	centroids map[int]orb.Point
}

// NewZones builds zone centroids from a raw zone geometry table with FAFZONE
// and WKB geometry columns. Zones without decodable geometry are skipped.
func NewZones(raw *RawTable) (*Zones, error) {
	codes, ok := raw.Ints(ColZone)
	if !ok {
		return nil, fmt.Errorf("zones: column %s not found", ColZone)
	}
	geoms, ok := raw.Bytes(ColGeometry)
	if !ok {
		return nil, fmt.Errorf("zones: column %s not found", ColGeometry)
	}

	z := &Zones{centroids: make(map[int]orb.Point, len(codes))}
	for i, code := range codes {
		if len(geoms[i]) == 0 {
			continue
		}
		g, err := wkb.Unmarshal(geoms[i])
		if err != nil {
			continue
		}
		c, _ := planar.CentroidArea(g)
		z.centroids[code] = c
	}
	return z, nil
}

// NewZonesFromCentroids builds Zones from precomputed centroids.
func NewZonesFromCentroids(centroids map[int]orb.Point) *Zones {
	z := &Zones{centroids: make(map[int]orb.Point, len(centroids))}
	for k, v := range centroids {
		z.centroids[k] = v
	}
	return z
}

// Centroid returns the centroid of zone code.
func (z *Zones) Centroid(code int) (orb.Point, bool) {
	if z == nil {
		return orb.Point{}, false
	}
	p, ok := z.centroids[code]
	return p, ok
}

// Len returns the number of zones with geometry.
func (z *Zones) Len() int {
	if z == nil {
		return 0
	}
	return len(z.centroids)
}
