package types

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"time"
)

var (
	// ErrInvalidCoordinate is returned when a point lies outside valid WGS84 ranges.
	ErrInvalidCoordinate = errors.New("invalid coordinate")
	// ErrNoPoints is returned for a route without any points.
	ErrNoPoints = errors.New("route has no points")
	// ErrInvalidRouteType is returned for an unrecognised route type.
	ErrInvalidRouteType = errors.New("invalid route type")
)

// PointType marks the role of a point within a route.
type PointType string

const (
	PointTypeStart    PointType = "START_POINT"
	PointTypeWaypoint PointType = "WAYPOINT"
	PointTypeEnd      PointType = "END_POINT"
)

// ParsePointType accepts point types case-insensitively.
func ParsePointType(s string) (PointType, error) {
	pt := PointType(strings.ToUpper(strings.TrimSpace(s)))
	switch pt {
	case PointTypeStart, PointTypeWaypoint, PointTypeEnd:
		return pt, nil
	}
	return "", fmt.Errorf("unknown point type %q", s)
}

// RouteType is the activity a route was planned for.
type RouteType string

const (
	RouteTypeCycling RouteType = "CYCLING"
	RouteTypeWalking RouteType = "WALKING"
	RouteTypeRunning RouteType = "RUNNING"
	RouteTypeHiking  RouteType = "HIKING"
	RouteTypeDriving RouteType = "DRIVING"
)

// ParseRouteType accepts route types case-insensitively.
func ParseRouteType(s string) (RouteType, error) {
	rt := RouteType(strings.ToUpper(strings.TrimSpace(s)))
	switch rt {
	case RouteTypeCycling, RouteTypeWalking, RouteTypeRunning, RouteTypeHiking, RouteTypeDriving:
		return rt, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidRouteType, s)
}

// RoutePoint is a single ordered point of a route.
type RoutePoint struct {
	Latitude  float64    `json:"latitude"`
	Longitude float64    `json:"longitude"`
	Elevation *float64   `json:"elevation,omitempty"`
	PointType PointType  `json:"pointType"`
	Timestamp *time.Time `json:"timestamp,omitempty"`
}

// Route is a named, ordered point sequence plus its derived totals.
// Metadata holds the serialized metadata envelope.
type Route struct {
	CreatedAt          time.Time    `json:"createdAt"`
	UpdatedAt          time.Time    `json:"updatedAt"`
	ID                 string       `json:"id,omitempty"`
	Name               string       `json:"name"`
	Description        string       `json:"description,omitempty"`
	RouteType          RouteType    `json:"routeType"`
	Metadata           string       `json:"metadata,omitempty"`
	Points             []RoutePoint `json:"points"`
	TotalDistance      float64      `json:"totalDistance,omitempty"`
	TotalElevationGain float64      `json:"totalElevationGain,omitempty"`
	EstimatedDuration  float64      `json:"estimatedDuration,omitempty"` // seconds
	IsPublic           bool         `json:"isPublic"`
}

// ValidateCoordinate checks latitude and longitude ranges.
func ValidateCoordinate(lat, lon float64) error {
	if math.IsNaN(lat) || math.IsInf(lat, 0) || lat < -90 || lat > 90 {
		return fmt.Errorf("%w: latitude %v out of range [-90,90]", ErrInvalidCoordinate, lat)
	}
	if math.IsNaN(lon) || math.IsInf(lon, 0) || lon < -180 || lon > 180 {
		return fmt.Errorf("%w: longitude %v out of range [-180,180]", ErrInvalidCoordinate, lon)
	}
	return nil
}

// ValidatePoints rejects empty sequences and any out-of-range point.
func ValidatePoints(points []RoutePoint) error {
	if len(points) == 0 {
		return ErrNoPoints
	}
	for i, p := range points {
		if err := ValidateCoordinate(p.Latitude, p.Longitude); err != nil {
			return fmt.Errorf("point %d: %w", i, err)
		}
	}
	return nil
}

// NormalizePointTypes marks the first point as start, the last as end and
// fills missing types in between with WAYPOINT.
func NormalizePointTypes(points []RoutePoint) {
	for i := range points {
		switch {
		case i == 0:
			points[i].PointType = PointTypeStart
		case i == len(points)-1:
			points[i].PointType = PointTypeEnd
		case points[i].PointType == "":
			points[i].PointType = PointTypeWaypoint
		}
	}
}

// Float64 returns a pointer to v.
func Float64(v float64) *float64 {
	return &v
}
