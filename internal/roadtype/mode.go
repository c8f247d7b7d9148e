package roadtype

import (
	"fmt"
	"strings"

	"github.com/MeKo-Tech/routemeta/internal/types"
)

// TravelMode parameterizes classification.
type TravelMode string

const (
	ModeCycling    TravelMode = "cycling"
	ModePedestrian TravelMode = "pedestrian"
	ModeDriving    TravelMode = "driving"
)

// Modes lists all supported travel modes.
var Modes = []TravelMode{ModeCycling, ModePedestrian, ModeDriving}

// ParseTravelMode accepts the canonical names and the aliases used by the map UI.
func ParseTravelMode(s string) (TravelMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "cycling", "bicycle", "bike", "cycle":
		return ModeCycling, nil
	case "pedestrian", "foot", "walking", "walk", "hiking", "running":
		return ModePedestrian, nil
	case "driving", "car", "drive", "motorcar":
		return ModeDriving, nil
	}
	return "", fmt.Errorf("unknown travel mode %q", s)
}

// ModeForRouteType maps a route type onto the travel mode used for classification.
func ModeForRouteType(rt types.RouteType) TravelMode {
	switch rt {
	case types.RouteTypeWalking, types.RouteTypeRunning, types.RouteTypeHiking:
		return ModePedestrian
	case types.RouteTypeDriving:
		return ModeDriving
	default:
		return ModeCycling
	}
}

// AverageSpeedKmh is the planning speed used for duration estimates.
func (m TravelMode) AverageSpeedKmh() float64 {
	switch m {
	case ModePedestrian:
		return 5
	case ModeDriving:
		return 50
	default:
		return 15
	}
}
