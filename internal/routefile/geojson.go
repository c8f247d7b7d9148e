package routefile

import (
	"encoding/json"
	"fmt"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"github.com/MeKo-Tech/routemeta/internal/metadata"
	"github.com/MeKo-Tech/routemeta/internal/types"
)

// Feature kinds written into the "kind" property on export.
const (
	kindRoute   = "route"
	kindSegment = "roadTypeSegment"
)

// DecodeGeoJSON reads a FeatureCollection, a single Feature or a bare
// geometry. The first LineString (or MultiLineString) that is not a road-type
// segment becomes the route; without one, Point features are used in order.
func DecodeGeoJSON(data []byte) (*types.Route, error) {
	var head struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &head); err != nil {
		return nil, fmt.Errorf("failed to parse GeoJSON: %w", err)
	}

	var features []*geojson.Feature
	switch head.Type {
	case "FeatureCollection":
		fc, err := geojson.UnmarshalFeatureCollection(data)
		if err != nil {
			return nil, fmt.Errorf("failed to parse FeatureCollection: %w", err)
		}
		features = fc.Features
	case "Feature":
		f, err := geojson.UnmarshalFeature(data)
		if err != nil {
			return nil, fmt.Errorf("failed to parse Feature: %w", err)
		}
		features = []*geojson.Feature{f}
	default:
		g, err := geojson.UnmarshalGeometry(data)
		if err != nil {
			return nil, fmt.Errorf("failed to parse GeoJSON geometry: %w", err)
		}
		features = []*geojson.Feature{geojson.NewFeature(g.Geometry())}
	}

	route := &types.Route{}
	for _, f := range features {
		if f.Geometry == nil || f.Properties.MustString("kind", "") == kindSegment {
			continue
		}
		line := lineOf(f.Geometry)
		if len(line) == 0 {
			continue
		}
		routeFromProperties(route, f.Properties)
		route.Points = pointsFromLine(line)
		applyElevations(route.Points, f.Properties["elevations"])
		return route, nil
	}

	for _, f := range features {
		p, ok := f.Geometry.(orb.Point)
		if !ok || f.Properties.MustString("kind", "") == kindSegment {
			continue
		}
		if len(route.Points) == 0 {
			routeFromProperties(route, f.Properties)
		}
		rp := types.RoutePoint{Latitude: p.Lat(), Longitude: p.Lon()}
		if pt, err := types.ParsePointType(f.Properties.MustString("pointType", "")); err == nil {
			rp.PointType = pt
		}
		if v, ok := f.Properties["elevation"].(float64); ok {
			rp.Elevation = types.Float64(v)
		}
		route.Points = append(route.Points, rp)
	}
	return route, nil
}

func lineOf(g orb.Geometry) orb.LineString {
	switch v := g.(type) {
	case orb.LineString:
		return v
	case orb.MultiLineString:
		var out orb.LineString
		for _, ls := range v {
			out = append(out, ls...)
		}
		return out
	}
	return nil
}

func pointsFromLine(line orb.LineString) []types.RoutePoint {
	points := make([]types.RoutePoint, len(line))
	for i, p := range line {
		points[i] = types.RoutePoint{Latitude: p.Lat(), Longitude: p.Lon()}
	}
	return points
}

// applyElevations copies a parallel "elevations" array onto points.
// Arrays of a different length are ignored; null entries leave a point without elevation.
func applyElevations(points []types.RoutePoint, raw any) {
	values, ok := raw.([]any)
	if !ok || len(values) != len(points) {
		return
	}
	for i, v := range values {
		if f, ok := v.(float64); ok {
			points[i].Elevation = types.Float64(f)
		}
	}
}

func routeFromProperties(route *types.Route, props geojson.Properties) {
	if props == nil {
		return
	}
	route.Name = props.MustString("name", route.Name)
	route.Description = props.MustString("description", route.Description)
	if rt, err := types.ParseRouteType(props.MustString("routeType", "")); err == nil {
		route.RouteType = rt
	}
	if meta, ok := props["metadata"].(string); ok {
		route.Metadata = meta
	}
}

// elevations returns the per-point elevations, or nil when no point has one.
func elevations(points []types.RoutePoint) []*float64 {
	out := make([]*float64, len(points))
	found := false
	for i, p := range points {
		out[i] = p.Elevation
		found = found || p.Elevation != nil
	}
	if !found {
		return nil
	}
	return out
}

// EncodeGeoJSON writes the route line followed by one colored LineString per
// road-type segment found in the route metadata.
func EncodeGeoJSON(route *types.Route) ([]byte, error) {
	fc, err := ToFeatureCollection(route)
	if err != nil {
		return nil, err
	}
	data, err := json.MarshalIndent(fc, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal GeoJSON: %w", err)
	}
	return data, nil
}

// ToFeatureCollection converts route into a FeatureCollection.
func ToFeatureCollection(route *types.Route) (*geojson.FeatureCollection, error) {
	if route == nil || len(route.Points) == 0 {
		return nil, types.ErrNoPoints
	}

	fc := geojson.NewFeatureCollection()

	line := make(orb.LineString, len(route.Points))
	for i, p := range route.Points {
		line[i] = orb.Point{p.Longitude, p.Latitude}
	}
	var geom orb.Geometry = line
	if len(line) == 1 {
		geom = line[0]
	}

	rf := geojson.NewFeature(geom)
	rf.Properties["kind"] = kindRoute
	rf.Properties["name"] = route.Name
	if route.Description != "" {
		rf.Properties["description"] = route.Description
	}
	if route.RouteType != "" {
		rf.Properties["routeType"] = string(route.RouteType)
	}
	if route.TotalDistance > 0 {
		rf.Properties["totalDistance"] = route.TotalDistance
		rf.Properties["estimatedDuration"] = route.EstimatedDuration
	}
	if elev := elevations(route.Points); elev != nil {
		rf.Properties["elevations"] = elev
	}
	if route.TotalElevationGain > 0 {
		rf.Properties["totalElevationGain"] = route.TotalElevationGain
	}
	fc.Append(rf)

	m, state := metadata.Decode(route.Metadata)
	if state != metadata.StateOK {
		return fc, nil
	}
	if m.RoadTypeStats != nil {
		rf.Properties["roadTypeStats"] = m.RoadTypeStats
	}

	for _, seg := range m.RoadTypeSegments {
		if len(seg.Coordinates) == 0 {
			continue
		}
		ls := make(orb.LineString, len(seg.Coordinates))
		for i, c := range seg.Coordinates {
			ls[i] = orb.Point{c[0], c[1]}
		}
		var g orb.Geometry = ls
		if len(ls) == 1 {
			g = ls[0]
		}

		sf := geojson.NewFeature(g)
		sf.Properties["kind"] = kindSegment
		sf.Properties["roadType"] = seg.RoadType
		sf.Properties["color"] = seg.Color
		sf.Properties["stroke"] = seg.Color
		sf.Properties["distance"] = seg.Distance
		sf.Properties["startIndex"] = seg.StartIndex
		sf.Properties["endIndex"] = seg.EndIndex
		if seg.Surface != "" {
			sf.Properties["surface"] = seg.Surface
		}
		fc.Append(sf)
	}

	return fc, nil
}
