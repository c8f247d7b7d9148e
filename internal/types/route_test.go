package types

import (
	"errors"
	"math"
	"testing"
)

func TestValidateCoordinate(t *testing.T) {
	tests := []struct {
		name    string
		lat     float64
		lon     float64
		wantErr bool
	}{
		{"berlin", 52.520008, 13.404954, false},
		{"corners", -90, 180, false},
		{"lat 91", 91, 13.404954, true},
		{"lon 181", 52.520008, 181, true},
		{"lat -90.1", -90.1, 0, true},
		{"nan", math.NaN(), 0, true},
		{"inf", 0, math.Inf(1), true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := ValidateCoordinate(tc.lat, tc.lon)
			if tc.wantErr {
				if !errors.Is(err, ErrInvalidCoordinate) {
					t.Fatalf("expected ErrInvalidCoordinate, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}

func TestValidatePoints(t *testing.T) {
	if err := ValidatePoints(nil); !errors.Is(err, ErrNoPoints) {
		t.Fatalf("expected ErrNoPoints, got %v", err)
	}

	points := []RoutePoint{
		{Latitude: 52.52, Longitude: 13.40},
		{Latitude: 52.52, Longitude: 181},
	}
	err := ValidatePoints(points)
	if !errors.Is(err, ErrInvalidCoordinate) {
		t.Fatalf("expected ErrInvalidCoordinate, got %v", err)
	}
}

func TestParseRouteType(t *testing.T) {
	rt, err := ParseRouteType(" cycling ")
	if err != nil || rt != RouteTypeCycling {
		t.Fatalf("expected CYCLING, got %q (%v)", rt, err)
	}
	if _, err := ParseRouteType("SKATING"); !errors.Is(err, ErrInvalidRouteType) {
		t.Fatalf("expected ErrInvalidRouteType, got %v", err)
	}
}

func TestNormalizePointTypes(t *testing.T) {
	points := make([]RoutePoint, 3)
	NormalizePointTypes(points)

	want := []PointType{PointTypeStart, PointTypeWaypoint, PointTypeEnd}
	for i, p := range points {
		if p.PointType != want[i] {
			t.Errorf("point %d: expected %s, got %s", i, want[i], p.PointType)
		}
	}
}

func TestBoundsOf(t *testing.T) {
	b := BoundsOf([]RoutePoint{
		{Latitude: 52.52, Longitude: 13.41},
		{Latitude: 52.50, Longitude: 13.45},
		{Latitude: 52.55, Longitude: 13.40},
	})
	if b.MinLat != 52.50 || b.MaxLat != 52.55 || b.MinLon != 13.40 || b.MaxLon != 13.45 {
		t.Fatalf("unexpected bounds: %+v", b)
	}
	if !b.Contains(52.52, 13.42) {
		t.Fatalf("expected bounds to contain inner point")
	}
	if b.Contains(52.60, 13.42) {
		t.Fatalf("expected bounds to exclude outer point")
	}
}

func TestBoundingBoxExpandByFraction(t *testing.T) {
	b := BoundingBox{MinLon: 10, MinLat: 20, MaxLon: 30, MaxLat: 40}

	expanded := b.ExpandByFraction(0.1)
	// width=20, height=20 => delta=2 on each side
	if expanded.MinLon != 8 || expanded.MaxLon != 32 || expanded.MinLat != 18 || expanded.MaxLat != 42 {
		t.Fatalf("unexpected expanded bbox: %+v", expanded)
	}

	unchanged := b.ExpandByFraction(0)
	if unchanged != b {
		t.Fatalf("expected unchanged bbox, got %+v", unchanged)
	}
}

func TestOSMDataFromTags(t *testing.T) {
	if OSMDataFromTags(nil) != nil {
		t.Fatalf("expected nil for empty tags")
	}
	if OSMDataFromTags(map[string]string{"lit": "yes"}) != nil {
		t.Fatalf("expected nil when no relevant tags are present")
	}
	d := OSMDataFromTags(map[string]string{"highway": "cycleway", "surface": "asphalt"})
	if d == nil || d.Highway != "cycleway" || d.Surface != "asphalt" {
		t.Fatalf("unexpected osm data: %+v", d)
	}
}
