package catalog

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/fafquery/internal/testutil"
)

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), MetadataFile)
	testutil.WriteMetadataWorkbook(t, path)

	c, err := LoadFile(path)
	require.NoError(t, err)

	assert.Equal(t, 4, c.States.Len())
	assert.Equal(t, 7, c.Modes.Len())
	assert.Equal(t, 4, c.Commodities.Len())
	assert.Equal(t, 5, c.Zones.Len())
	assert.Equal(t, []string{"Short Description", "Long Description"}, c.Zones.Columns)

	tests := []struct {
		kind Kind
		name string
		want int
	}{
		{KindState, "texas", 48},
		{KindState, "District of Columbia", 11},
		{KindMode, "Pipeline", 6},
		{KindMode, "multiple modes & mail", 5},
		{KindCommodity, "Electronics", 35},
		{KindZone, "Austin", 481},
		{KindZone, "Round Rock", 481},
		{KindZone, "oakland", 64},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := c.Table(tt.kind).Lookup(tt.name)
			require.True(t, ok)
			assert.Equal(t, tt.want, got)
		})
	}

	assert.Equal(t, "Motorized vehicles", c.Commodities.NameOf(36))
	assert.Len(t, c.Commodities.Search("vehic"), 1)
}

func TestLoadFile_Missing(t *testing.T) {
	_, err := LoadFile(filepath.Join(t.TempDir(), MetadataFile))
	assert.Error(t, err)
}

func TestTableFromRows(t *testing.T) {
	spec := sheetSpec{kind: KindMode, sheet: SheetMode, nameHints: []string{"Mode", "Description"}}

	tbl, err := tableFromRows(spec, [][]string{
		{"Numeric Label", "Description"},
		{"1", "Truck"},
		{"2.0", "Rail"},
		{"", ""},
		{"Note: modes are domestic", ""},
		{"3.5", "Bogus"},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, tbl.Len())
	assert.True(t, tbl.Has(2))
	assert.Equal(t, "Rail", tbl.NameOf(2))

	_, err = tableFromRows(spec, nil)
	assert.Error(t, err)
	_, err = tableFromRows(spec, [][]string{{"Numeric Label"}})
	assert.Error(t, err)
}

func TestMatchColumn(t *testing.T) {
	tests := []struct {
		name   string
		header []string
		hints  []string
		want   string
	}{
		{"description", []string{"Numeric Label", "Description"}, []string{"Description"}, "Description"},
		{"first hint wins by column", []string{"Code", "Mode Name", "Description"}, []string{"Description", "Mode"}, "Mode Name"},
		{"code column matches", []string{"State Code", "Name"}, []string{"State"}, ""},
		{"no match", []string{"Code", "Name"}, []string{"Description"}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, matchColumn(tt.header, tt.hints))
		})
	}
}
