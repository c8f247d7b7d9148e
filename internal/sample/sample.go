// Package sample generates deterministic test routes.
package sample

import (
	"math"

	"github.com/aquilax/go-perlin"

	"github.com/MeKo-Tech/routemeta/internal/types"
)

// Berlin (Alexanderplatz) is the default starting point.
const (
	BaseLat = 52.520008
	BaseLon = 13.404954
)

const metersPerDegreeLat = 111320.0

// Diagonal returns count points stepping 0.001° north-east from Berlin with
// rising elevation.
func Diagonal(count int) []types.RoutePoint {
	points := make([]types.RoutePoint, count)
	for i := range points {
		points[i] = types.RoutePoint{
			Latitude:  BaseLat + float64(i)*0.001,
			Longitude: BaseLon + float64(i)*0.001,
			Elevation: types.Float64(34 + float64(i)),
		}
	}
	types.NormalizePointTypes(points)
	return points
}

// WalkConfig configures Walk.
type WalkConfig struct {
	Seed   int64
	Points int
	// StepMeters is the distance between consecutive points (default: 50)
	StepMeters float64
	// Bounds confines the walk; the zero box selects a 0.1° box around Berlin.
	Bounds types.BoundingBox
	// BaseElevation is the terrain height in meters at zero noise (default: 40)
	BaseElevation float64
}

func (c *WalkConfig) applyDefaults() {
	if c.StepMeters <= 0 {
		c.StepMeters = 50
	}
	if c.Bounds == (types.BoundingBox{}) {
		c.Bounds = types.BoundingBox{
			MinLon: BaseLon - 0.05, MinLat: BaseLat - 0.05,
			MaxLon: BaseLon + 0.05, MaxLat: BaseLat + 0.05,
		}
	}
	if c.BaseElevation == 0 {
		c.BaseElevation = 40
	}
}

// Walk returns a meandering route. The heading follows a noise curve, so
// equal configs always produce equal routes. The walk turns back at the
// edges of the bounds.
func Walk(cfg WalkConfig) []types.RoutePoint {
	cfg.applyDefaults()
	if cfg.Points <= 0 {
		return nil
	}

	heading := perlin.NewPerlin(2.0, 2.0, 3, cfg.Seed)
	terrain := perlin.NewPerlin(2.0, 2.0, 2, cfg.Seed+1)

	lat, lon := cfg.Bounds.Center()
	b := cfg.Bounds
	points := make([]types.RoutePoint, cfg.Points)
	for i := range points {
		points[i] = types.RoutePoint{
			Latitude:  lat,
			Longitude: lon,
			Elevation: types.Float64(math.Round((cfg.BaseElevation+terrain.Noise2D(lon*50+0.5, lat*50+0.5)*30)*10) / 10),
		}

		angle := heading.Noise1D(float64(i)*0.05+0.5) * 2 * math.Pi
		dLat := math.Cos(angle) * cfg.StepMeters / metersPerDegreeLat
		dLon := math.Sin(angle) * cfg.StepMeters / (metersPerDegreeLat * math.Cos(lat*math.Pi/180))

		if lat+dLat < b.MinLat || lat+dLat > b.MaxLat {
			dLat = -dLat
		}
		if lon+dLon < b.MinLon || lon+dLon > b.MaxLon {
			dLon = -dLon
		}
		lat += dLat
		lon += dLon
	}
	types.NormalizePointTypes(points)
	return points
}
