// Package geo provides great-circle distance and elevation helpers for route points.
package geo

import (
	"github.com/MeKo-Tech/routemeta/internal/types"
	"github.com/golang/geo/s2"
)

// EarthRadiusMeters is the mean earth radius (IUGG).
const EarthRadiusMeters = 6371008.8

// HaversineDistance calculates the great-circle distance between two coordinates in meters.
func HaversineDistance(lat1, lon1, lat2, lon2 float64) float64 {
	p1 := s2.LatLngFromDegrees(lat1, lon1)
	p2 := s2.LatLngFromDegrees(lat2, lon2)
	return p1.Distance(p2).Radians() * EarthRadiusMeters
}

// Distance returns the great-circle distance between two route points in meters.
func Distance(a, b types.RoutePoint) float64 {
	return HaversineDistance(a.Latitude, a.Longitude, b.Latitude, b.Longitude)
}

// HopDistances returns the distance of every hop into point i.
// hops[0] is always 0.
func HopDistances(points []types.RoutePoint) []float64 {
	hops := make([]float64, len(points))
	for i := 1; i < len(points); i++ {
		hops[i] = Distance(points[i-1], points[i])
	}
	return hops
}

// PathLength sums the hop distances of a point sequence.
func PathLength(points []types.RoutePoint) float64 {
	var total float64
	for i := 1; i < len(points); i++ {
		total += Distance(points[i-1], points[i])
	}
	return total
}

// ElevationGain sums positive elevation deltas between consecutive points
// that both carry an elevation.
func ElevationGain(points []types.RoutePoint) float64 {
	var gain float64
	for i := 1; i < len(points); i++ {
		prev, cur := points[i-1].Elevation, points[i].Elevation
		if prev == nil || cur == nil {
			continue
		}
		if d := *cur - *prev; d > 0 {
			gain += d
		}
	}
	return gain
}

// ElevationRange returns the min and max elevation of the sequence.
// ok is false when no point carries an elevation.
func ElevationRange(points []types.RoutePoint) (minElev, maxElev float64, ok bool) {
	for _, p := range points {
		if p.Elevation == nil {
			continue
		}
		if !ok {
			minElev, maxElev, ok = *p.Elevation, *p.Elevation, true
			continue
		}
		minElev = min(minElev, *p.Elevation)
		maxElev = max(maxElev, *p.Elevation)
	}
	return minElev, maxElev, ok
}
