package output

import (
	"fmt"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/paulmach/orb/geojson"

	"github.com/leapstack-labs/fafquery/pkg/query"
)

// Table writes rows under header in the effective mode. JSON mode emits an
// array of objects keyed by header.
func (r *Renderer) Table(header []string, rows [][]string) error {
	mode := r.EffectiveMode()
	if mode == ModeJSON {
		out := make([]map[string]string, len(rows))
		for i, row := range rows {
			m := make(map[string]string, len(header))
			for j, h := range header {
				if j < len(row) {
					m[h] = row[j]
				}
			}
			out[i] = m
		}
		return r.JSON(out)
	}

	if len(rows) == 0 && mode != ModeCSV {
		r.Println("(0 rows)")
		return nil
	}

	t := table.NewWriter()
	t.SetOutputMirror(r.out)
	t.AppendHeader(toRow(header))
	for _, row := range rows {
		t.AppendRow(toRow(row))
	}

	switch mode {
	case ModeCSV:
		t.RenderCSV()
	case ModeMarkdown:
		t.RenderMarkdown()
		r.Println()
		r.Printf("(%d rows)\n", len(rows))
	default:
		t.SetStyle(table.StyleLight)
		t.Render()
		r.Muted(fmt.Sprintf("(%d rows)", len(rows)))
	}
	return nil
}

func toRow(values []string) table.Row {
	row := make(table.Row, len(values))
	for i, v := range values {
		row[i] = v
	}
	return row
}

// Frame writes a query result. In JSON mode missing values are null.
func (r *Renderer) Frame(f *query.Frame) error {
	if r.EffectiveMode() == ModeJSON {
		out := make([]map[string]any, f.Len())
		for i := range out {
			out[i] = f.Map(i)
		}
		return r.JSON(out)
	}

	rows := make([][]string, f.Len())
	for i := range rows {
		rows[i] = f.Record(i)
	}
	return r.Table(f.Header(), rows)
}

// GeoJSON writes a feature collection regardless of mode.
func (r *Renderer) GeoJSON(fc *geojson.FeatureCollection) error {
	data, err := fc.MarshalJSON()
	if err != nil {
		return fmt.Errorf("failed to encode geojson: %w", err)
	}
	_, err = r.out.Write(append(data, '\n'))
	return err
}
