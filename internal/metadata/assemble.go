package metadata

import (
	"github.com/MeKo-Tech/routemeta/internal/types"
)

// Derived holds the fields recomputed from the route points.
type Derived struct {
	Segments     []types.RoadTypeSegment
	Stats        types.RoadTypeStats
	Degraded     bool
	TravelMode   string
	AverageSpeed float64
	MinElevation *float64
	MaxElevation *float64
}

// Assemble builds the new blob for a route. Client fields of previous are
// kept; every derived field is replaced, never merged.
func Assemble(previous string, d Derived) (string, error) {
	prior, _ := Decode(previous)

	stats := d.Stats
	m := Metadata{
		RoadTypeSegments:       d.Segments,
		RoadTypeStats:          &stats,
		ClassificationDegraded: d.Degraded,
		TravelMode:             d.TravelMode,
		MinElevation:           d.MinElevation,
		MaxElevation:           d.MaxElevation,

		StartAddress: prior.StartAddress,
		EndAddress:   prior.EndAddress,
		Waypoints:    prior.Waypoints,
		Tags:         prior.Tags,
	}
	if d.AverageSpeed > 0 {
		speed := d.AverageSpeed
		m.AverageSpeed = &speed
	}
	if m.RoadTypeStats.Breakdown == nil {
		m.RoadTypeStats.Breakdown = []types.RoadTypeStat{}
	}

	return Encode(m)
}
