// Package catalog holds the FAF reference tables (states, zones, commodities
// and modes) and resolves user supplied names to the numeric codes used by the
// flow tables.
//
// A Catalog is loaded once per session, usually from the FAF metadata workbook
// (see LoadFile), and is read-only afterwards. Every lookup works on the
// already-loaded tables and never performs I/O.
package catalog

import (
	"strconv"
	"strings"

	"golang.org/x/text/cases"
)

// Kind identifies one of the reference tables.
type Kind string

// Reference table kinds.
const (
	KindState     Kind = "state"
	KindZone      Kind = "zone"
	KindCommodity Kind = "commodity"
	KindMode      Kind = "mode"
)

// Entry is one row of a reference table.
type Entry struct {
	// Code is the numeric code used by the flow tables.
	Code int
	// Names holds the descriptive columns in header order.
	Names []string
}

// Name returns the primary display name of the entry.
func (e Entry) Name() string {
	if len(e.Names) == 0 {
		return ""
	}
	return e.Names[0]
}

// Table is a reference table with a code column and one or more descriptive
// columns.
type Table struct {
	Kind Kind
	// Columns are the header names of the descriptive columns, aligned with
	// Entry.Names.
	Columns []string
	Entries []Entry

	// matchCol is the column used for exact name resolution.
	matchCol int
	// substringCols are matched by substring instead of exact name (zones).
	substringCols []int
}

// NewTable builds a reference table. matchColumn names the descriptive column
// used for exact name resolution; when empty the first column is used.
func NewTable(kind Kind, columns []string, entries []Entry, matchColumn string) *Table {
	t := &Table{Kind: kind, Columns: columns, Entries: entries}
	for i, c := range columns {
		if matchColumn != "" && strings.EqualFold(c, matchColumn) {
			t.matchCol = i
			break
		}
	}
	return t
}

// withSubstringMatch switches name resolution to substring matching over the
// given columns. Zones are resolved this way.
func (t *Table) withSubstringMatch(cols ...int) *Table {
	t.substringCols = cols
	return t
}

// Len returns the number of entries.
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.Entries)
}

// Search returns the entries whose code or any descriptive column contains
// term, compared case-insensitively. An empty term returns every entry.
func (t *Table) Search(term string) []Entry {
	if t == nil {
		return nil
	}
	if strings.TrimSpace(term) == "" {
		out := make([]Entry, len(t.Entries))
		copy(out, t.Entries)
		return out
	}

	needle := fold(term)
	var out []Entry
	for _, e := range t.Entries {
		if strings.Contains(strconv.Itoa(e.Code), needle) {
			out = append(out, e)
			continue
		}
		for _, n := range e.Names {
			if strings.Contains(fold(n), needle) {
				out = append(out, e)
				break
			}
		}
	}
	return out
}

// Lookup resolves a single name to its code. States, commodities and modes
// require an exact case-insensitive match on the match column; zones match the
// first entry whose description contains name.
func (t *Table) Lookup(name string) (int, bool) {
	if t == nil {
		return 0, false
	}
	needle := fold(strings.TrimSpace(name))
	if needle == "" {
		return 0, false
	}

	if len(t.substringCols) > 0 {
		for _, col := range t.substringCols {
			for _, e := range t.Entries {
				if col < len(e.Names) && strings.Contains(fold(e.Names[col]), needle) {
					return e.Code, true
				}
			}
		}
		return 0, false
	}

	for _, e := range t.Entries {
		if t.matchCol < len(e.Names) && fold(e.Names[t.matchCol]) == needle {
			return e.Code, true
		}
	}
	return 0, false
}

// Has reports whether code exists in the table.
func (t *Table) Has(code int) bool {
	if t == nil {
		return false
	}
	for _, e := range t.Entries {
		if e.Code == code {
			return true
		}
	}
	return false
}

// NameOf returns the primary name for code, or "" when unknown.
func (t *Table) NameOf(code int) string {
	if t == nil {
		return ""
	}
	for _, e := range t.Entries {
		if e.Code == code {
			return e.Name()
		}
	}
	return ""
}

// Catalog groups the four reference tables.
type Catalog struct {
	States      *Table
	Zones       *Table
	Commodities *Table
	Modes       *Table
}

// New builds a catalog. Zones resolve by substring over every column whose
// header mentions "Description" (or the first column when none does).
func New(states, zones, commodities, modes *Table) *Catalog {
	if zones != nil && len(zones.substringCols) == 0 {
		var cols []int
		for i, c := range zones.Columns {
			if strings.Contains(c, "Description") {
				cols = append(cols, i)
			}
		}
		if len(cols) == 0 {
			cols = []int{0}
		}
		zones.withSubstringMatch(cols...)
	}
	return &Catalog{
		States:      states,
		Zones:       zones,
		Commodities: commodities,
		Modes:       modes,
	}
}

// Table returns the reference table for kind.
func (c *Catalog) Table(kind Kind) *Table {
	switch kind {
	case KindState:
		return c.States
	case KindZone:
		return c.Zones
	case KindCommodity:
		return c.Commodities
	case KindMode:
		return c.Modes
	default:
		return nil
	}
}

func fold(s string) string {
	return cases.Fold().String(s)
}
