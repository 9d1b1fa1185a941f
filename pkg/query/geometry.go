package query

import (
	"context"
	"log/slog"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

// FlowLines pairs each kept result row with a straight line from the origin
// zone centroid to the destination zone centroid (lon/lat, EPSG:4326).
type FlowLines struct {
	Frame *Frame
	Lines []orb.LineString
	// Dropped counts rows removed because a zone had no geometry.
	Dropped int
}

// ToGeo executes the query in its default format and joins zone centroids to
// both endpoints. Rows whose origin or destination zone has no geometry are
// dropped with a warning. Zone-level queries only.
func (q FlowQuery) ToGeo(ctx context.Context) (*FlowLines, error) {
	if q.err == nil && !q.kind.info().zoneLevel {
		return nil, &UnsupportedError{Query: q.kind.String(), Op: "geometry conversion", Hint: "use FAFQuery for geometry support"}
	}
	f, err := q.Get(ctx, FormatDefault)
	if err != nil {
		return nil, err
	}
	if f.Empty() {
		return &FlowLines{Frame: f}, nil
	}

	zones, err := q.eng.source.Zones(ctx)
	if err != nil {
		return nil, err
	}

	info := q.kind.info()
	oi, di := f.KeyIndex(info.origin), f.KeyIndex(info.dest)
	out := &FlowLines{Frame: &Frame{Keys: f.Keys, Metrics: f.Metrics, Long: f.Long, Scenarios: f.Scenarios}}
	for _, row := range f.Rows {
		o, ok1 := zones.Centroid(row.Keys[oi])
		d, ok2 := zones.Centroid(row.Keys[di])
		if !ok1 || !ok2 {
			out.Dropped++
			continue
		}
		out.Frame.Rows = append(out.Frame.Rows, row)
		out.Lines = append(out.Lines, orb.LineString{o, d})
	}

	if out.Dropped > 0 {
		q.eng.logger.Warn("dropped flows with missing zone coordinates",
			slog.Int("dropped", out.Dropped),
			slog.Int("kept", out.Frame.Len()))
	}
	return out, nil
}

// FeatureCollection renders the lines as GeoJSON features whose properties
// are the row's columns.
func (g *FlowLines) FeatureCollection() *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	for i, line := range g.Lines {
		feat := geojson.NewFeature(line)
		for k, v := range g.Frame.Map(i) {
			feat.Properties[k] = v
		}
		fc.Append(feat)
	}
	return fc
}
