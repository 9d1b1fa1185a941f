package catalog

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"
)

// MetadataFile is the workbook name inside the data directory.
const MetadataFile = "FAF5_metadata.xlsx"

// Sheet names in the metadata workbook.
const (
	SheetState     = "State"
	SheetMode      = "Mode"
	SheetCommodity = "Commodity (SCTG2)"
	SheetZone      = "FAF Zone (Domestic)"
)

// sheetSpec describes how a sheet becomes a Table. The match column is the
// first header containing any of nameHints.
type sheetSpec struct {
	kind      Kind
	sheet     string
	nameHints []string
}

var sheetSpecs = []sheetSpec{
	{KindState, SheetState, []string{"State", "Description"}},
	{KindZone, SheetZone, []string{"Description"}},
	{KindCommodity, SheetCommodity, []string{"Description", "Commodity"}},
	{KindMode, SheetMode, []string{"Mode", "Description"}},
}

// LoadFile reads the four reference sheets from the FAF metadata workbook.
func LoadFile(path string) (*Catalog, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open metadata workbook: %w", err)
	}
	defer func() { _ = f.Close() }()

	tables := make(map[Kind]*Table, len(sheetSpecs))
	for _, spec := range sheetSpecs {
		rows, err := f.GetRows(spec.sheet)
		if err != nil {
			return nil, fmt.Errorf("failed to read sheet %q: %w", spec.sheet, err)
		}
		t, err := tableFromRows(spec, rows)
		if err != nil {
			return nil, fmt.Errorf("sheet %q: %w", spec.sheet, err)
		}
		tables[spec.kind] = t
	}

	return New(tables[KindState], tables[KindZone], tables[KindCommodity], tables[KindMode]), nil
}

// tableFromRows converts sheet rows into a Table. Row 0 is the header and
// column 0 the numeric code; rows whose code does not parse are skipped.
func tableFromRows(spec sheetSpec, rows [][]string) (*Table, error) {
	if len(rows) == 0 {
		return nil, fmt.Errorf("sheet is empty")
	}
	header := rows[0]
	if len(header) < 2 {
		return nil, fmt.Errorf("expected a code column and at least one description column, got %d columns", len(header))
	}

	columns := make([]string, len(header)-1)
	for i, h := range header[1:] {
		columns[i] = strings.TrimSpace(h)
	}

	var entries []Entry
	for _, row := range rows[1:] {
		if len(row) == 0 {
			continue
		}
		code, ok := parseCode(row[0])
		if !ok {
			continue
		}
		names := make([]string, len(columns))
		for i := range columns {
			if i+1 < len(row) {
				names[i] = strings.TrimSpace(row[i+1])
			}
		}
		entries = append(entries, Entry{Code: code, Names: names})
	}

	return NewTable(spec.kind, columns, entries, matchColumn(header, spec.nameHints)), nil
}

// matchColumn returns the first header containing any hint. The code column is
// included in the scan; when it is the one that matches, the first descriptive
// column is used instead.
func matchColumn(header []string, hints []string) string {
	for i, h := range header {
		for _, hint := range hints {
			if strings.Contains(h, hint) {
				if i == 0 {
					return ""
				}
				return strings.TrimSpace(h)
			}
		}
	}
	return ""
}

func parseCode(s string) (int, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	if n, err := strconv.Atoi(s); err == nil {
		return n, true
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || f != math.Trunc(f) {
		return 0, false
	}
	return int(f), true
}
