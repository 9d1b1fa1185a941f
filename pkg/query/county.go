package query

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"

	"github.com/leapstack-labs/fafquery/pkg/dataset"
)

// County key columns appended to the regional keys.
const (
	KeyOriginCounty      = dataset.ColOrigCounty
	KeyDestinationCounty = dataset.ColDestCounty
)

// countySourceKeys are the regional key columns disaggregation reads.
var countySourceKeys = []string{"dms_mode", "sctg2", "dms_orig", "dms_dest"}

// ErrCountyFactorsMissing is returned when no factor table could be found for
// any mode present in the filtered flows.
var ErrCountyFactorsMissing = fmt.Errorf("%w: county factors not found; run `fafquery setup county <zip>` (or faf.SetupCountyData) first", dataset.ErrDataUnavailable)

// disaggregate splits the filtered zone flows of the truck, rail, water and
// pipeline modes into county pairs. Each output row scales the tons, value
// and ton-miles columns of its source row by f_orig * f_dest; current-dollar
// columns are copied unscaled. Flows of other modes are dropped.
func (q FlowQuery) disaggregate(ctx context.Context, t *dataset.FlowTable, rows []int) (*dataset.FlowTable, []int, error) {
	var src [4][]int
	for i, name := range countySourceKeys {
		col, ok := t.Key(name)
		if !ok {
			return nil, nil, fmt.Errorf("county disaggregation: %s table has no %s column", t.Dataset, name)
		}
		src[i] = col
	}
	modes, sctg, orig, dest := src[0], src[1], src[2], src[3]

	keyNames := append(slices.Clone(t.KeyNames), KeyOriginCounty, KeyDestinationCounty)
	keys := make(map[string][]int, len(keyNames))
	for _, k := range keyNames {
		keys[k] = []int{}
	}
	metrics := make(map[string][]float64, len(t.MetricNames))
	for _, m := range t.MetricNames {
		metrics[m] = []float64{}
	}

	scaled := make(map[string]bool, len(t.MetricNames))
	for _, m := range t.MetricNames {
		metric, _, _, ok := dataset.ParseMetricColumn(m)
		scaled[m] = ok && slices.Contains(baseMetrics, metric)
	}

	origFilter := countySet(q.spec, ClauseOriginCounties)
	destFilter := countySet(q.spec, ClauseDestinationCounties)

	attempted, loaded := 0, 0
	for _, mode := range dataset.CountyModeCodes() {
		var modeRows []int
		for _, r := range rows {
			if modes[r] == mode {
				modeRows = append(modeRows, r)
			}
		}
		if len(modeRows) == 0 {
			continue
		}

		name := dataset.CountyModes[mode]
		attempted++
		of, df, err := q.loadFactors(ctx, name)
		if errors.Is(err, dataset.ErrDataUnavailable) {
			q.eng.logger.Warn("county factors missing for mode, skipped", slog.String("mode", name))
			continue
		}
		if err != nil {
			return nil, nil, err
		}
		loaded++

		for _, r := range modeRows {
			group := dataset.SCTGGroup(sctg[r])
			for _, o := range of.Shares(orig[r], group) {
				if origFilter != nil && !origFilter[o.County] {
					continue
				}
				for _, d := range df.Shares(dest[r], group) {
					if destFilter != nil && !destFilter[d.County] {
						continue
					}
					for _, k := range t.KeyNames {
						keys[k] = append(keys[k], t.Keys[k][r])
					}
					keys[KeyOriginCounty] = append(keys[KeyOriginCounty], o.County)
					keys[KeyDestinationCounty] = append(keys[KeyDestinationCounty], d.County)
					factor := o.Factor * d.Factor
					for _, m := range t.MetricNames {
						v := t.Metrics[m][r]
						if scaled[m] {
							v *= factor
						}
						metrics[m] = append(metrics[m], v)
					}
				}
			}
		}
	}

	if attempted > 0 && loaded == 0 {
		return nil, nil, ErrCountyFactorsMissing
	}

	out, err := dataset.NewFlowTableFromColumns(dataset.Regional, keyNames, keys, slices.Clone(t.MetricNames), metrics)
	if err != nil {
		return nil, nil, fmt.Errorf("county disaggregation: %w", err)
	}
	all := make([]int, out.Len())
	for i := range all {
		all[i] = i
	}
	return out, all, nil
}

func (q FlowQuery) loadFactors(ctx context.Context, mode string) (*dataset.CountyFactors, *dataset.CountyFactors, error) {
	of, err := q.eng.source.CountyFactors(ctx, mode, dataset.SideOrigin)
	if err != nil {
		return nil, nil, err
	}
	df, err := q.eng.source.CountyFactors(ctx, mode, dataset.SideDestination)
	if err != nil {
		return nil, nil, err
	}
	return of, df, nil
}

func countySet(spec Spec, clause string) map[int]bool {
	codes, ok := spec.Ints(clause)
	if !ok {
		return nil
	}
	set := make(map[int]bool, len(codes))
	for _, c := range codes {
		set[c] = true
	}
	return set
}

// ByOriginCounty sums metrics by origin county. County only.
func (q FlowQuery) ByOriginCounty(ctx context.Context, metrics []string, years []int) (*Frame, error) {
	if q.err == nil && q.kind != KindCounty {
		return nil, &UnsupportedError{Query: q.kind.String(), Op: "county aggregation", Hint: "use CountyQuery"}
	}
	return q.GroupBy(ctx, []string{KeyOriginCounty}, metrics, years)
}

// ByDestinationCounty sums metrics by destination county. County only.
func (q FlowQuery) ByDestinationCounty(ctx context.Context, metrics []string, years []int) (*Frame, error) {
	if q.err == nil && q.kind != KindCounty {
		return nil, &UnsupportedError{Query: q.kind.String(), Op: "county aggregation", Hint: "use CountyQuery"}
	}
	return q.GroupBy(ctx, []string{KeyDestinationCounty}, metrics, years)
}
