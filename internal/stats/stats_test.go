package stats

import (
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MeKo-Tech/routemeta/internal/types"
)

func seg(roadType string, dist float64) types.RoadTypeSegment {
	return types.RoadTypeSegment{RoadType: roadType, Distance: dist, Color: "#2E7D32"}
}

func percentSum(t *testing.T, st types.RoadTypeStats) float64 {
	t.Helper()
	var sum float64
	for _, b := range st.Breakdown {
		v, err := strconv.ParseFloat(b.Percentage, 64)
		require.NoError(t, err)
		sum += v
	}
	return sum
}

func TestAggregate_Breakdown(t *testing.T) {
	st := Aggregate([]types.RoadTypeSegment{
		seg("BIKE_PATH", 600),
		seg("RESIDENTIAL", 300),
		seg("BIKE_PATH", 100),
		seg("TRAIL", 0),
	})

	assert.Equal(t, 1000.0, st.TotalDistance)
	assert.Equal(t, 3, st.TotalTypes)
	require.Len(t, st.Breakdown, 3)

	assert.Equal(t, "BIKE_PATH", st.Breakdown[0].RoadType)
	assert.Equal(t, 700.0, st.Breakdown[0].Distance)
	assert.Equal(t, 2, st.Breakdown[0].SegmentCount)
	assert.Equal(t, "70.0", st.Breakdown[0].Percentage)
	assert.Equal(t, "#2E7D32", st.Breakdown[0].Color)

	assert.Equal(t, "RESIDENTIAL", st.Breakdown[1].RoadType)
	assert.Equal(t, "30.0", st.Breakdown[1].Percentage)

	assert.Equal(t, "TRAIL", st.Breakdown[2].RoadType)
	assert.Equal(t, "0.0", st.Breakdown[2].Percentage)
	assert.Equal(t, 1, st.Breakdown[2].SegmentCount)
}

func TestAggregate_PercentagesSumTo100(t *testing.T) {
	cases := [][]float64{
		{1, 1, 1},
		{1, 2, 3, 4, 5, 6, 7},
		{0.3, 1e6},
		{123.4567, 89.01, 0.5, 77.7},
	}
	names := []string{"A", "B", "C", "D", "E", "F", "G"}
	for _, dists := range cases {
		var segs []types.RoadTypeSegment
		for i, d := range dists {
			segs = append(segs, seg(names[i], d))
		}
		st := Aggregate(segs)
		assert.InDelta(t, 100.0, percentSum(t, st), 1e-9, "distances %v", dists)
	}
}

func TestAggregate_Thirds(t *testing.T) {
	st := Aggregate([]types.RoadTypeSegment{seg("B", 1), seg("A", 1), seg("C", 1)})
	require.Len(t, st.Breakdown, 3)

	// equal distances sort by name; the first gets the leftover tenth
	assert.Equal(t, "A", st.Breakdown[0].RoadType)
	assert.Equal(t, "33.4", st.Breakdown[0].Percentage)
	assert.Equal(t, "33.3", st.Breakdown[1].Percentage)
	assert.Equal(t, "33.3", st.Breakdown[2].Percentage)
}

func TestAggregate_ZeroTotal(t *testing.T) {
	st := Aggregate([]types.RoadTypeSegment{seg("BIKE_PATH", 0), seg("UNKNOWN", 0)})
	assert.Zero(t, st.TotalDistance)
	assert.Equal(t, 2, st.TotalTypes)
	for _, b := range st.Breakdown {
		assert.Equal(t, "0.0", b.Percentage)
	}
}

func TestAggregate_Empty(t *testing.T) {
	st := Aggregate(nil)
	assert.Empty(t, st.Breakdown)
	assert.NotNil(t, st.Breakdown)
	assert.Zero(t, st.TotalTypes)
}

func TestAggregate_Idempotent(t *testing.T) {
	segs := []types.RoadTypeSegment{seg("GRAVEL", 12.5), seg("TRAIL", 12.5), seg("BIKE_PATH", 40)}
	assert.Equal(t, Aggregate(segs), Aggregate(segs))
}
