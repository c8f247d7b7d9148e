package datasource

import (
	"context"
	"math"

	"github.com/aquilax/go-perlin"
	"github.com/paulmach/orb"
)

// syntheticBands maps noise ranges to the tags of a made-up way.
// Upper bounds are exclusive; the last band catches everything above.
var syntheticBands = []struct {
	upper float64
	tags  map[string]string
}{
	{-0.30, map[string]string{"highway": "track", "surface": "gravel"}},
	{-0.05, map[string]string{"highway": "path", "bicycle": "designated", "surface": "compacted"}},
	{0.15, map[string]string{"highway": "cycleway", "surface": "asphalt"}},
	{0.30, map[string]string{"highway": "residential", "surface": "asphalt"}},
	{math.Inf(1), map[string]string{"highway": "tertiary", "surface": "asphalt"}},
}

// SyntheticWaySource derives deterministic way tags from a seeded noise field.
// Identical coordinates and seeds always yield the same way.
type SyntheticWaySource struct {
	noise *perlin.Perlin
	// noise units per degree
	scale float64
}

// NewSyntheticWaySource creates a synthetic source. scale <= 0 selects the default.
func NewSyntheticWaySource(seed int64, scale float64) *SyntheticWaySource {
	if scale <= 0 {
		scale = 200
	}
	return &SyntheticWaySource{
		// alpha: persistence, beta: frequency multiplier, n: octaves
		noise: perlin.NewPerlin(2.0, 2.0, 3, seed),
		scale: scale,
	}
}

// Name identifies the source in classifications and logs.
func (s *SyntheticWaySource) Name() string {
	return "synthetic"
}

// NearestWay never fails and always returns a way.
func (s *SyntheticWaySource) NearestWay(ctx context.Context, lat, lon float64) (*Way, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// Offset by half a unit: perlin noise is zero on lattice points.
	v := s.noise.Noise2D(lon*s.scale+0.5, lat*s.scale+0.5)

	for i, band := range syntheticBands {
		if v < band.upper {
			return &Way{
				ID:       int64(i + 1),
				Tags:     copyTags(band.tags),
				Geometry: orb.LineString{{lon, lat}},
			}, nil
		}
	}
	return nil, nil
}

// StaticWaySource returns the same way for every coordinate.
type StaticWaySource struct {
	Tags map[string]string
}

// Name identifies the source in classifications and logs.
func (s StaticWaySource) Name() string {
	return "static"
}

// NearestWay returns a way carrying the configured tags, or nil without tags.
func (s StaticWaySource) NearestWay(ctx context.Context, lat, lon float64) (*Way, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(s.Tags) == 0 {
		return nil, nil
	}
	return &Way{Tags: copyTags(s.Tags), Geometry: orb.LineString{{lon, lat}}}, nil
}
