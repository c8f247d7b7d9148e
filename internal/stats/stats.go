// Package stats aggregates road-type segments into per-category statistics.
package stats

import (
	"fmt"
	"math"
	"sort"

	"github.com/MeKo-Tech/routemeta/internal/types"
)

// Aggregate groups segments by road type. The breakdown is ordered by
// distance, largest first, with ties broken by road type name.
//
// Percentages carry one decimal and are rounded by largest remainder so that
// they add up to exactly 100.0 whenever the total distance is positive.
func Aggregate(segments []types.RoadTypeSegment) types.RoadTypeStats {
	byType := make(map[string]*types.RoadTypeStat)
	var total float64

	for _, s := range segments {
		st, ok := byType[s.RoadType]
		if !ok {
			st = &types.RoadTypeStat{RoadType: s.RoadType, Color: s.Color}
			byType[s.RoadType] = st
		}
		st.Distance += s.Distance
		st.SegmentCount++
		total += s.Distance
	}

	breakdown := make([]types.RoadTypeStat, 0, len(byType))
	for _, st := range byType {
		breakdown = append(breakdown, *st)
	}
	sort.Slice(breakdown, func(i, j int) bool {
		if breakdown[i].Distance != breakdown[j].Distance {
			return breakdown[i].Distance > breakdown[j].Distance
		}
		return breakdown[i].RoadType < breakdown[j].RoadType
	})

	for i, tenths := range percentTenths(breakdown, total) {
		breakdown[i].Percentage = fmt.Sprintf("%d.%d", tenths/10, tenths%10)
	}

	return types.RoadTypeStats{
		Breakdown:     breakdown,
		TotalDistance: total,
		TotalTypes:    len(breakdown),
	}
}

// percentTenths returns each share of total in tenths of a percent, summing to 1000.
func percentTenths(breakdown []types.RoadTypeStat, total float64) []int {
	out := make([]int, len(breakdown))
	if total <= 0 || math.IsNaN(total) || math.IsInf(total, 0) {
		return out
	}

	type rest struct {
		idx  int
		frac float64
	}
	rests := make([]rest, len(breakdown))
	sum := 0
	for i, st := range breakdown {
		raw := st.Distance * 1000 / total
		floor := math.Floor(raw)
		out[i] = int(floor)
		sum += out[i]
		rests[i] = rest{idx: i, frac: raw - floor}
	}

	// stable keeps the breakdown order among equal remainders
	sort.SliceStable(rests, func(a, b int) bool { return rests[a].frac > rests[b].frac })
	for k := 0; sum < 1000 && k < len(rests); k++ {
		out[rests[k].idx]++
		sum++
	}
	return out
}
