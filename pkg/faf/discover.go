package faf

import (
	"context"

	"github.com/leapstack-labs/fafquery/pkg/catalog"
)

// AvailableCommodities lists commodities whose code or description contains
// search, case-insensitively. An empty search lists all.
func (s *Session) AvailableCommodities(ctx context.Context, search string) (*catalog.Table, error) {
	return s.available(ctx, catalog.KindCommodity, search)
}

// AvailableZones lists FAF zones matching search.
func (s *Session) AvailableZones(ctx context.Context, search string) (*catalog.Table, error) {
	return s.available(ctx, catalog.KindZone, search)
}

// AvailableStates lists states matching search.
func (s *Session) AvailableStates(ctx context.Context, search string) (*catalog.Table, error) {
	return s.available(ctx, catalog.KindState, search)
}

// AvailableModes lists every transport mode.
func (s *Session) AvailableModes(ctx context.Context) (*catalog.Table, error) {
	return s.available(ctx, catalog.KindMode, "")
}

// AvailableYears lists the observed and forecast years.
func AvailableYears() catalog.YearSet {
	return catalog.AvailableYears()
}

func (s *Session) available(ctx context.Context, kind catalog.Kind, search string) (*catalog.Table, error) {
	cat, err := s.Catalog(ctx)
	if err != nil {
		return nil, err
	}
	t := cat.Table(kind)
	return catalog.NewTable(kind, t.Columns, t.Search(search), ""), nil
}
