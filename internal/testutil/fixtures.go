package testutil

import (
	"database/sql"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	_ "github.com/marcboeker/go-duckdb" // duckdb driver
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/encoding/wkb"
	"github.com/xuri/excelize/v2"
)

// Column describes one fixture column and its DuckDB type.
type Column struct {
	Name string
	Type string
}

// WriteParquet writes rows to a Parquet file at path. Each row holds SQL
// literals aligned with cols.
func WriteParquet(t testing.TB, path string, cols []Column, rows [][]string) {
	t.Helper()

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("failed to create fixture dir: %v", err)
	}

	aliases := make([]string, len(cols))
	proj := make([]string, len(cols))
	for i, c := range cols {
		aliases[i] = fmt.Sprintf("c%d", i)
		proj[i] = fmt.Sprintf(`CAST(c%d AS %s) AS "%s"`, i, c.Type, c.Name)
	}
	tuples := make([]string, len(rows))
	for i, r := range rows {
		if len(r) != len(cols) {
			t.Fatalf("fixture row %d has %d values, want %d", i, len(r), len(cols))
		}
		tuples[i] = "(" + strings.Join(r, ", ") + ")"
	}

	query := fmt.Sprintf("COPY (SELECT %s FROM (VALUES %s) AS v(%s)) TO '%s' (FORMAT PARQUET)",
		strings.Join(proj, ", "),
		strings.Join(tuples, ", "),
		strings.Join(aliases, ", "),
		strings.ReplaceAll(path, "'", "''"))

	db, err := sql.Open("duckdb", "")
	if err != nil {
		t.Fatalf("failed to open duckdb: %v", err)
	}
	defer func() { _ = db.Close() }()

	if _, err := db.Exec(query); err != nil {
		t.Fatalf("failed to write parquet fixture %s: %v", filepath.Base(path), err)
	}
}

// WKBLiteral renders a geometry as a DuckDB BLOB literal.
func WKBLiteral(t testing.TB, g orb.Geometry) string {
	t.Helper()
	b, err := wkb.Marshal(g)
	if err != nil {
		t.Fatalf("failed to encode geometry: %v", err)
	}
	return fmt.Sprintf("from_hex('%s')", hex.EncodeToString(b))
}

// Square returns a closed square polygon centered on (x, y).
func Square(x, y, half float64) orb.Polygon {
	return orb.Polygon{orb.Ring{
		{x - half, y - half},
		{x + half, y - half},
		{x + half, y + half},
		{x - half, y + half},
		{x - half, y - half},
	}}
}

// Fixture file names, mirrored from the dataset package to keep testutil free
// of import cycles.
const (
	MetadataFile      = "FAF5_metadata.xlsx"
	RegionalFile      = "FAF5.7.1.parquet"
	StateFile         = "FAF5.7.1_State.parquet"
	ForecastFile      = "FAF5.7.1_HiLoForecasts.parquet"
	StateForecastFile = "FAF5.7.1_State_HiLoForecasts.parquet"
	NetworkFile       = "FAF5_Network_Links.parquet"
	ZonesFile         = "FAF5_Zones_Processed.parquet"
)

// WriteFixtureData writes a small but complete data directory: metadata
// workbook, regional, state and forecast flows, network, zones and truck/rail
// county factors. It returns the directory.
func WriteFixtureData(t testing.TB) string {
	t.Helper()
	dir := t.TempDir()
	WriteMetadataWorkbook(t, filepath.Join(dir, MetadataFile))
	WriteRegionalFlows(t, filepath.Join(dir, RegionalFile))
	WriteStateFlows(t, filepath.Join(dir, StateFile))
	WriteForecastFlows(t, filepath.Join(dir, ForecastFile))
	WriteNetwork(t, filepath.Join(dir, NetworkFile))
	WriteZones(t, filepath.Join(dir, ZonesFile))
	WriteCountyFactors(t, dir)
	return dir
}

// WriteMetadataWorkbook writes a reduced FAF5 metadata workbook.
func WriteMetadataWorkbook(t testing.TB, path string) {
	t.Helper()

	sheets := []struct {
		name string
		rows [][]any
	}{
		{"State", [][]any{
			{"Numeric Label", "Description"},
			{6, "California"},
			{11, "District of Columbia"},
			{48, "Texas"},
			{53, "Washington"},
		}},
		{"Mode", [][]any{
			{"Numeric Label", "Description"},
			{1, "Truck"},
			{2, "Rail"},
			{3, "Water"},
			{4, "Air (include truck-air)"},
			{5, "Multiple modes & mail"},
			{6, "Pipeline"},
			{7, "Other and unknown"},
		}},
		{"Commodity (SCTG2)", [][]any{
			{"Numeric Label", "Description"},
			{1, "Live animals/fish"},
			{20, "Basic chemicals"},
			{35, "Electronics"},
			{36, "Motorized vehicles"},
		}},
		{"FAF Zone (Domestic)", [][]any{
			{"Numeric Label", "Short Description", "Long Description"},
			{61, "Los Angeles", "Los Angeles-Long Beach, CA  CFS Area"},
			{64, "San Francisco", "San Jose-San Francisco-Oakland, CA  CFS Area"},
			{119, "Washington DC", "Washington DC-VA-MD-WV CFS Area (DC Part)"},
			{481, "Austin", "Austin-Round Rock, TX  CFS Area"},
			{531, "Seattle", "Seattle-Tacoma, WA  CFS Area"},
		}},
	}

	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	for i, s := range sheets {
		if i == 0 {
			if err := f.SetSheetName(f.GetSheetName(0), s.name); err != nil {
				t.Fatalf("failed to rename sheet: %v", err)
			}
		} else if _, err := f.NewSheet(s.name); err != nil {
			t.Fatalf("failed to add sheet %s: %v", s.name, err)
		}
		for r, row := range s.rows {
			cell, _ := excelize.CoordinatesToCellName(1, r+1)
			if err := f.SetSheetRow(s.name, cell, &row); err != nil {
				t.Fatalf("failed to write %s row %d: %v", s.name, r, err)
			}
		}
	}

	if err := f.SaveAs(path); err != nil {
		t.Fatalf("failed to save workbook: %v", err)
	}
}

func flowColumns(origin, dest string, metrics ...string) []Column {
	cols := []Column{
		{origin, "INTEGER"}, {dest, "INTEGER"}, {"sctg2", "INTEGER"}, {"dms_mode", "INTEGER"},
		{"trade_type", "INTEGER"}, {"dist_band", "INTEGER"}, {"fr_orig", "INTEGER"},
		{"fr_dest", "INTEGER"}, {"fr_inmode", "INTEGER"}, {"fr_outmode", "INTEGER"},
	}
	for _, m := range metrics {
		cols = append(cols, Column{m, "DOUBLE"})
	}
	return cols
}

func splitRows(rows []string) [][]string {
	out := make([][]string, len(rows))
	for i, r := range rows {
		parts := strings.Split(r, ",")
		for j := range parts {
			parts[j] = strings.TrimSpace(parts[j])
		}
		out[i] = parts
	}
	return out
}

// RegionalRows is the number of rows written by WriteRegionalFlows.
const RegionalRows = 10

// WriteRegionalFlows writes the zone-level flow fixture. Rows 0 and 3 tie on
// tons_2020; row 7 has NULL ton-miles; zone 119 has no geometry.
func WriteRegionalFlows(t testing.TB, path string) {
	t.Helper()
	cols := flowColumns("dms_orig", "dms_dest",
		"tons_2020", "value_2020", "tmiles_2020", "current_value_2020",
		"tons_2021", "value_2021", "tmiles_2021",
		"tons_2030", "value_2030", "tmiles_2030")
	rows := splitRows([]string{
		"61, 481, 35, 1, 1, 5, NULL, NULL, NULL, NULL, 100, 1000, 50, 1050, 110, 1100, 55, 150, 1500, 70",
		"61, 481, 35, 2, 1, 5, NULL, NULL, NULL, NULL, 40, 400, 30, 420, 45, 450, 33, 60, 600, 40",
		"64, 481, 35, 1, 1, 6, NULL, NULL, NULL, NULL, 250, 2500, 120, 2600, 240, 2400, 118, 300, 3000, 150",
		"61, 531, 35, 1, 1, 4, NULL, NULL, NULL, NULL, 100, 900, 80, 950, 90, 950, 70, 120, 1200, 90",
		"481, 61, 36, 1, 1, 5, NULL, NULL, NULL, NULL, 500, 7000, 300, 7200, 520, 7100, 310, 600, 8000, 350",
		"61, 64, 1, 1, 1, 2, NULL, NULL, NULL, NULL, 20, 60, 5, 62, 22, 66, 6, 25, 70, 7",
		"64, 61, 20, 6, 1, 2, NULL, NULL, NULL, NULL, 300, 600, 90, 610, 310, 620, 95, 330, 700, 100",
		"61, 481, 35, 3, 2, 5, 801, NULL, 3, NULL, 70, 900, NULL, 910, 75, 950, NULL, 90, 1100, NULL",
		"531, 61, 35, 1, 3, 4, NULL, 802, NULL, 4, 10, 150, 8, 155, 12, 160, 9, 15, 200, 11",
		"119, 481, 35, 1, 1, 7, NULL, NULL, NULL, NULL, 5, 50, 4, 52, 6, 55, 5, 7, 70, 6",
	})
	WriteParquet(t, path, cols, rows)
}

// WriteStateFlows writes the state-level flow fixture.
func WriteStateFlows(t testing.TB, path string) {
	t.Helper()
	cols := flowColumns("dms_origst", "dms_destst",
		"tons_2020", "value_2020", "tmiles_2020",
		"tons_2021", "value_2021", "tmiles_2021")
	rows := splitRows([]string{
		"6, 48, 35, 1, 1, 5, NULL, NULL, NULL, NULL, 350, 3500, 170, 350, 3500, 173",
		"6, 48, 35, 2, 1, 5, NULL, NULL, NULL, NULL, 40, 400, 30, 45, 450, 33",
		"48, 6, 36, 1, 1, 5, NULL, NULL, NULL, NULL, 500, 7000, 300, 520, 7100, 310",
		"6, 6, 1, 1, 1, 2, NULL, NULL, NULL, NULL, 20, 60, 5, 22, 66, 6",
		"53, 6, 35, 1, 3, 4, NULL, 802, NULL, 4, 10, 150, 8, 12, 160, 9",
	})
	WriteParquet(t, path, cols, rows)
}

// WriteForecastFlows writes the regional HiLo forecast fixture for 2030 and
// 2035.
func WriteForecastFlows(t testing.TB, path string) {
	t.Helper()
	cols := flowColumns("dms_orig", "dms_dest",
		"tons_2030", "value_2030", "tmiles_2030",
		"tons_2030_high", "value_2030_high", "tons_2030_low", "value_2030_low",
		"tons_2035", "value_2035", "tmiles_2035",
		"tons_2035_high", "value_2035_high", "tons_2035_low", "value_2035_low")
	rows := splitRows([]string{
		"61, 481, 35, 1, 1, 5, NULL, NULL, NULL, NULL, 150, 1500, 70, 180, 1700, 120, 1300, 170, 1650, 80, 210, 1900, 130, 1400",
		"64, 481, 35, 1, 1, 6, NULL, NULL, NULL, NULL, 300, 3000, 150, 360, 3500, 250, 2600, 330, 3300, 160, 400, 3900, 260, 2700",
		"481, 61, 36, 1, 1, 5, NULL, NULL, NULL, NULL, 600, 8000, 350, 700, 9000, 500, 7000, 650, 8600, 370, 760, 9800, 520, 7200",
	})
	WriteParquet(t, path, cols, rows)
}

// WriteNetwork writes six highway segments: 22 miles in CA, 15 in TX and 8 in
// WA.
func WriteNetwork(t testing.TB, path string) {
	t.Helper()
	cols := []Column{
		{"ID", "INTEGER"}, {"Road_Name", "VARCHAR"}, {"Sign_Rte", "VARCHAR"}, {"STATE", "VARCHAR"},
		{"FAFZONE", "INTEGER"}, {"Class_Description", "VARCHAR"}, {"NHFN", "INTEGER"},
		{"NHS", "INTEGER"}, {"Truck", "VARCHAR"}, {"Toll_Type", "VARCHAR"},
		{"LENGTH", "DOUBLE"}, {"geometry", "BLOB"},
	}
	line := func(x1, y1, x2, y2 float64) string {
		return WKBLiteral(t, orb.LineString{{x1, y1}, {x2, y2}})
	}
	rows := [][]string{
		{"1", "'Interstate 5'", "'I5'", "'CA'", "61", "'Interstate'", "1", "1", "'Allowed'", "NULL", "10.5", line(-118.3, 34.0, -118.2, 34.1)},
		{"2", "'Golden State Fwy'", "'I5'", "'CA'", "61", "'Interstate'", "1", "1", "'Allowed'", "'Bridge'", "4.5", line(-118.2, 34.1, -118.1, 34.2)},
		{"3", "'Pacific Coast Hwy'", "'SR1'", "'CA'", "64", "'Principal Arterial - Other'", "NULL", "1", "'Prohibited'", "NULL", "7.0", line(-122.4, 37.6, -122.3, 37.7)},
		{"4", "'Interstate 35'", "'I35'", "'TX'", "481", "'Interstate'", "1", "1", "'Allowed'", "'Toll Road'", "12.0", line(-97.7, 30.2, -97.6, 30.4)},
		{"5", "'Ranch Rd 620'", "'RM620'", "'TX'", "481", "'Minor Arterial'", "NULL", "NULL", "'Allowed'", "NULL", "3.0", line(-97.9, 30.4, -97.8, 30.5)},
		{"6", "'Interstate 5'", "'I5'", "'WA'", "531", "'Interstate'", "1", "1", "'Allowed'", "NULL", "8.0", line(-122.3, 47.5, -122.3, 47.7)},
	}
	WriteParquet(t, path, cols, rows)
}

// Zone centroids written by WriteZones. Zone 119 is deliberately absent.
var ZoneCentroids = map[int]orb.Point{
	61:  {-118, 34},
	64:  {-122, 37.5},
	481: {-97.5, 30.5},
	531: {-122.5, 47.5},
}

// WriteZones writes square zone polygons centered on ZoneCentroids.
func WriteZones(t testing.TB, path string) {
	t.Helper()
	cols := []Column{{"FAFZONE", "INTEGER"}, {"geometry", "BLOB"}}
	var rows [][]string
	for _, code := range []int{61, 64, 481, 531} {
		c := ZoneCentroids[code]
		rows = append(rows, []string{fmt.Sprint(code), WKBLiteral(t, Square(c[0], c[1], 0.5))})
	}
	WriteParquet(t, path, cols, rows)
}

// WriteCountyFactors writes truck and rail factor tables under
// dir/county_factors. Water and pipeline are left out.
func WriteCountyFactors(t testing.TB, dir string) {
	t.Helper()
	factorDir := filepath.Join(dir, "county_factors")
	orig := []Column{{"dms_orig", "INTEGER"}, {"sctgG5", "VARCHAR"}, {"dms_orig_cnty", "INTEGER"}, {"f_orig", "DOUBLE"}}
	dest := []Column{{"dms_dest", "INTEGER"}, {"sctgG5", "VARCHAR"}, {"dms_dest_cnty", "INTEGER"}, {"f_dest", "DOUBLE"}}

	WriteParquet(t, filepath.Join(factorDir, "truck_origin_factors.parquet"), orig, [][]string{
		{"61", "'sctg3499'", "6037", "0.6"},
		{"61", "'sctg3499'", "6059", "0.4"},
		{"64", "'sctg3499'", "6075", "1.0"},
	})
	WriteParquet(t, filepath.Join(factorDir, "truck_destination_factors.parquet"), dest, [][]string{
		{"481", "'sctg3499'", "48453", "1.0"},
		{"531", "'sctg3499'", "53033", "1.0"},
	})
	WriteParquet(t, filepath.Join(factorDir, "rail_origin_factors.parquet"), orig, [][]string{
		{"61", "'sctg3499'", "6037", "1.0"},
	})
	WriteParquet(t, filepath.Join(factorDir, "rail_destination_factors.parquet"), dest, [][]string{
		{"481", "'sctg3499'", "48453", "0.5"},
		{"481", "'sctg3499'", "48491", "0.5"},
	})
}
