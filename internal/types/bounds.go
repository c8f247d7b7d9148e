package types

import "fmt"

// BoundingBox represents a geographic bounding box in WGS84 (EPSG:4326)
type BoundingBox struct {
	MinLon float64 // Western edge (degrees)
	MinLat float64 // Southern edge (degrees)
	MaxLon float64 // Eastern edge (degrees)
	MaxLat float64 // Northern edge (degrees)
}

// BoundsOf returns the smallest box containing all points.
func BoundsOf(points []RoutePoint) BoundingBox {
	if len(points) == 0 {
		return BoundingBox{}
	}
	b := BoundingBox{
		MinLon: points[0].Longitude, MaxLon: points[0].Longitude,
		MinLat: points[0].Latitude, MaxLat: points[0].Latitude,
	}
	for _, p := range points[1:] {
		b.MinLon = min(b.MinLon, p.Longitude)
		b.MaxLon = max(b.MaxLon, p.Longitude)
		b.MinLat = min(b.MinLat, p.Latitude)
		b.MaxLat = max(b.MaxLat, p.Latitude)
	}
	return b
}

// String returns a human-readable representation of the bounding box
func (b BoundingBox) String() string {
	return fmt.Sprintf("bbox(%.6f,%.6f,%.6f,%.6f)", b.MinLat, b.MinLon, b.MaxLat, b.MaxLon)
}

// OverpassFilter formats the box as an Overpass (south,west,north,east) filter.
func (b BoundingBox) OverpassFilter() string {
	return fmt.Sprintf("%.6f,%.6f,%.6f,%.6f", b.MinLat, b.MinLon, b.MaxLat, b.MaxLon)
}

// Center returns the center point of the bounding box
func (b BoundingBox) Center() (lat, lon float64) {
	return (b.MinLat + b.MaxLat) / 2, (b.MinLon + b.MaxLon) / 2
}

// Width returns the width of the bounding box in degrees
func (b BoundingBox) Width() float64 {
	return b.MaxLon - b.MinLon
}

// Height returns the height of the bounding box in degrees
func (b BoundingBox) Height() float64 {
	return b.MaxLat - b.MinLat
}

// Contains reports whether the coordinate lies inside the box, edges included.
func (b BoundingBox) Contains(lat, lon float64) bool {
	return lat >= b.MinLat && lat <= b.MaxLat && lon >= b.MinLon && lon <= b.MaxLon
}

// ExpandByFraction grows the box on every side by fraction of its width/height.
func (b BoundingBox) ExpandByFraction(fraction float64) BoundingBox {
	if fraction <= 0 {
		return b
	}
	dx := b.Width() * fraction
	dy := b.Height() * fraction
	return BoundingBox{
		MinLon: b.MinLon - dx,
		MinLat: b.MinLat - dy,
		MaxLon: b.MaxLon + dx,
		MaxLat: b.MaxLat + dy,
	}
}

// ExpandByDegrees grows the box on every side by a fixed margin.
func (b BoundingBox) ExpandByDegrees(margin float64) BoundingBox {
	return BoundingBox{
		MinLon: b.MinLon - margin,
		MinLat: b.MinLat - margin,
		MaxLon: b.MaxLon + margin,
		MaxLat: b.MaxLat + margin,
	}
}
