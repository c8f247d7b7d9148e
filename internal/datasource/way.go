// Package datasource looks up the OSM way a route point lies on.
package datasource

import (
	"context"
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
)

// metersPerDegree approximates the length of one degree of latitude.
const metersPerDegree = 111320.0

// Way is an OSM way with its tags and geometry (lon, lat).
type Way struct {
	ID       int64
	Tags     map[string]string
	Geometry orb.LineString
	// Distance is the distance in meters from the queried point; set by Nearest.
	Distance float64
}

// WaySource finds the way a coordinate lies on.
// A nil way with a nil error means no way is near the coordinate.
type WaySource interface {
	Name() string
	NearestWay(ctx context.Context, lat, lon float64) (*Way, error)
}

// Nearest returns a copy of the way closest to (lat, lon) within radius meters.
// Distances use a local equirectangular projection, which is accurate at the
// tens-of-meters scale this is used for. Ties resolve to the lower way ID.
func Nearest(ways []Way, lat, lon, radius float64) *Way {
	if len(ways) == 0 {
		return nil
	}

	scale := math.Cos(lat * math.Pi / 180)
	p := orb.Point{lon * scale, lat}

	var (
		best     *Way
		bestDist = math.Inf(1)
	)
	for i := range ways {
		w := &ways[i]
		if len(w.Geometry) == 0 {
			continue
		}
		d := planar.DistanceFrom(project(w.Geometry, scale), p) * metersPerDegree
		if d > radius {
			continue
		}
		if d < bestDist || (d == bestDist && best != nil && w.ID < best.ID) {
			best = w
			bestDist = d
		}
	}

	if best == nil {
		return nil
	}
	out := *best
	out.Distance = bestDist
	return &out
}

func project(ls orb.LineString, scale float64) orb.Geometry {
	if len(ls) == 1 {
		return orb.Point{ls[0][0] * scale, ls[0][1]}
	}
	out := make(orb.LineString, len(ls))
	for i, pt := range ls {
		out[i] = orb.Point{pt[0] * scale, pt[1]}
	}
	return out
}
