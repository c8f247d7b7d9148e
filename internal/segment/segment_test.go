package segment

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MeKo-Tech/routemeta/internal/classifier"
	"github.com/MeKo-Tech/routemeta/internal/geo"
	"github.com/MeKo-Tech/routemeta/internal/roadtype"
	"github.com/MeKo-Tech/routemeta/internal/types"
)

func line(n int) []types.RoutePoint {
	points := make([]types.RoutePoint, n)
	for i := range points {
		points[i] = types.RoutePoint{Latitude: 52.52, Longitude: 13.40 + float64(i)*0.001}
	}
	return points
}

func classes(cats ...roadtype.Category) []classifier.Classification {
	out := make([]classifier.Classification, len(cats))
	for i, c := range cats {
		out[i] = classifier.Classification{Category: c, Color: roadtype.Default().Color(c)}
	}
	return out
}

func TestBuild_Partition(t *testing.T) {
	points := line(7)
	segs, err := Build(points, classes(
		roadtype.BikePath, roadtype.BikePath,
		roadtype.Residential,
		roadtype.BikePath, roadtype.BikePath, roadtype.BikePath,
		roadtype.Trail,
	))
	require.NoError(t, err)
	require.Len(t, segs, 4)

	next := 0
	var total float64
	for _, s := range segs {
		assert.Equal(t, next, s.StartIndex, "segments must be contiguous")
		assert.GreaterOrEqual(t, s.EndIndex, s.StartIndex)
		next = s.EndIndex + 1
		total += s.Distance
		assert.True(t, roadtype.ValidColor(s.Color))
	}
	assert.Equal(t, len(points), next, "segments must cover every point")
	assert.InDelta(t, geo.PathLength(points), total, 1e-6)

	assert.Equal(t, "BIKE_PATH", segs[0].RoadType)
	assert.Equal(t, "RESIDENTIAL", segs[1].RoadType)
	assert.Equal(t, 2, segs[1].StartIndex)
	assert.Equal(t, 2, segs[1].EndIndex)
	assert.Equal(t, "BIKE_PATH", segs[2].RoadType)
	assert.Equal(t, "TRAIL", segs[3].RoadType)
}

func TestBuild_BoundaryHopBelongsToEnteredSegment(t *testing.T) {
	points := line(4)
	hops := geo.HopDistances(points)
	segs, err := Build(points, classes(roadtype.BikePath, roadtype.BikePath, roadtype.Gravel, roadtype.Gravel))
	require.NoError(t, err)
	require.Len(t, segs, 2)

	assert.InDelta(t, hops[1], segs[0].Distance, 1e-9)
	assert.InDelta(t, hops[2]+hops[3], segs[1].Distance, 1e-9)

	// the entered segment draws the connecting hop
	require.Len(t, segs[1].Coordinates, 3)
	assert.Equal(t, [2]float64{points[1].Longitude, points[1].Latitude}, segs[1].Coordinates[0])
	require.Len(t, segs[0].Coordinates, 2)
}

func TestBuild_TwoPointBoundary(t *testing.T) {
	points := line(2)
	segs, err := Build(points, classes(roadtype.BikePath, roadtype.Residential))
	require.NoError(t, err)
	require.Len(t, segs, 2)

	assert.Zero(t, segs[0].Distance)
	assert.InDelta(t, geo.Distance(points[0], points[1]), segs[1].Distance, 1e-9)
	assert.Equal(t, 0, segs[0].EndIndex)
	assert.Equal(t, 1, segs[1].StartIndex)
}

func TestBuild_EdgeCases(t *testing.T) {
	segs, err := Build(nil, nil)
	require.NoError(t, err)
	assert.Empty(t, segs)

	segs, err = Build(line(1), classes(roadtype.Footway))
	require.NoError(t, err)
	require.Len(t, segs, 1)
	assert.Zero(t, segs[0].Distance)
	assert.Equal(t, 0, segs[0].StartIndex)
	assert.Equal(t, 0, segs[0].EndIndex)
	assert.Len(t, segs[0].Coordinates, 1)

	_, err = Build(line(3), classes(roadtype.Footway))
	assert.Error(t, err)
}

func TestBuild_SurfaceAndColorFallback(t *testing.T) {
	cls := []classifier.Classification{
		{Category: "FERRY", Surface: "water", Tags: map[string]string{"highway": "ferry", "name": "F10"}},
		{Category: "FERRY", Surface: "other"},
		{},
	}
	segs, err := Build(line(3), cls)
	require.NoError(t, err)
	require.Len(t, segs, 2)

	assert.Equal(t, roadtype.DefaultColor, segs[0].Color)
	assert.Equal(t, "water", segs[0].Surface)
	require.NotNil(t, segs[0].OSMData)
	assert.Equal(t, "F10", segs[0].OSMData.Name)
	assert.Equal(t, "UNKNOWN", segs[1].RoadType)
}

func TestBuild_Idempotent(t *testing.T) {
	points := line(20)
	cats := make([]roadtype.Category, 20)
	for i := range cats {
		cats[i] = []roadtype.Category{roadtype.BikePath, roadtype.Trail, roadtype.Gravel}[i/7]
	}
	a, err := Build(points, classes(cats...))
	require.NoError(t, err)
	b, err := Build(points, classes(cats...))
	require.NoError(t, err)
	assert.Equal(t, a, b)
}
