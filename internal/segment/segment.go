// Package segment groups classified route points into road-type segments.
package segment

import (
	"fmt"

	"github.com/MeKo-Tech/routemeta/internal/classifier"
	"github.com/MeKo-Tech/routemeta/internal/geo"
	"github.com/MeKo-Tech/routemeta/internal/roadtype"
	"github.com/MeKo-Tech/routemeta/internal/types"
)

// Build partitions points into maximal runs of equal category. classes[i]
// is the classification of points[i].
//
// The hop between point i-1 and point i belongs to the segment containing
// point i, so segment distances sum to the path length. A segment starting
// after the first point therefore also draws that hop: its coordinates begin
// with the last point of the previous segment.
func Build(points []types.RoutePoint, classes []classifier.Classification) ([]types.RoadTypeSegment, error) {
	if len(points) != len(classes) {
		return nil, fmt.Errorf("segment: %d points but %d classifications", len(points), len(classes))
	}
	if len(points) == 0 {
		return []types.RoadTypeSegment{}, nil
	}

	hops := geo.HopDistances(points)
	var segments []types.RoadTypeSegment

	start := 0
	for i := 1; i <= len(points); i++ {
		if i < len(points) && category(classes[i]) == category(classes[start]) {
			continue
		}
		segments = append(segments, newSegment(points, hops, classes[start], start, i-1))
		start = i
	}

	return segments, nil
}

func category(c classifier.Classification) roadtype.Category {
	if c.Category == "" {
		return roadtype.Unknown
	}
	return c.Category
}

func newSegment(points []types.RoutePoint, hops []float64, cls classifier.Classification, start, end int) types.RoadTypeSegment {
	var dist float64
	for i := start; i <= end; i++ {
		dist += hops[i]
	}

	from := max(start-1, 0)
	coords := make([][2]float64, 0, end-from+1)
	for _, p := range points[from : end+1] {
		coords = append(coords, [2]float64{p.Longitude, p.Latitude})
	}

	color := cls.Color
	if !roadtype.ValidColor(color) {
		color = roadtype.Default().Color(category(cls))
	}

	return types.RoadTypeSegment{
		RoadType:    string(category(cls)),
		StartIndex:  start,
		EndIndex:    end,
		Distance:    dist,
		Color:       color,
		Coordinates: coords,
		Surface:     cls.Surface,
		OSMData:     cls.OSMData(),
	}
}
