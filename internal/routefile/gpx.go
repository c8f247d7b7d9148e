package routefile

import (
	"fmt"
	"time"

	"github.com/tkrajina/gpxgo/gpx"

	"github.com/MeKo-Tech/routemeta/internal/types"
)

const gpxCreator = "routemeta"

// DecodeGPX reads the first track with points, else the first route, else
// the waypoints of a GPX document.
func DecodeGPX(data []byte) (*types.Route, error) {
	doc, err := gpx.ParseBytes(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse GPX: %w", err)
	}

	route := &types.Route{Name: doc.Name, Description: doc.Description}

	for _, trk := range doc.Tracks {
		var points []types.RoutePoint
		for _, seg := range trk.Segments {
			for i := range seg.Points {
				points = append(points, fromGPXPoint(&seg.Points[i]))
			}
		}
		if len(points) == 0 {
			continue
		}
		if trk.Name != "" {
			route.Name = trk.Name
		}
		if trk.Description != "" {
			route.Description = trk.Description
		}
		if rt, err := types.ParseRouteType(trk.Type); err == nil {
			route.RouteType = rt
		}
		route.Points = points
		return route, nil
	}

	for _, rte := range doc.Routes {
		if len(rte.Points) == 0 {
			continue
		}
		if rte.Name != "" {
			route.Name = rte.Name
		}
		if rte.Description != "" {
			route.Description = rte.Description
		}
		if rt, err := types.ParseRouteType(rte.Type); err == nil {
			route.RouteType = rt
		}
		for i := range rte.Points {
			route.Points = append(route.Points, fromGPXPoint(&rte.Points[i]))
		}
		return route, nil
	}

	for i := range doc.Waypoints {
		route.Points = append(route.Points, fromGPXPoint(&doc.Waypoints[i]))
	}
	return route, nil
}

func fromGPXPoint(p *gpx.GPXPoint) types.RoutePoint {
	rp := types.RoutePoint{Latitude: p.Latitude, Longitude: p.Longitude}
	if !p.Elevation.Null() {
		rp.Elevation = types.Float64(p.Elevation.Value())
	}
	if !p.Timestamp.IsZero() {
		ts := p.Timestamp.UTC()
		rp.Timestamp = &ts
	}
	return rp
}

// EncodeGPX writes route as a GPX 1.1 document with a single track.
func EncodeGPX(route *types.Route) ([]byte, error) {
	if route == nil || len(route.Points) == 0 {
		return nil, types.ErrNoPoints
	}

	seg := gpx.GPXTrackSegment{Points: make([]gpx.GPXPoint, len(route.Points))}
	for i, p := range route.Points {
		gp := gpx.GPXPoint{
			Point: gpx.Point{Latitude: p.Latitude, Longitude: p.Longitude},
		}
		if p.Elevation != nil {
			gp.Elevation = *gpx.NewNullableFloat64(*p.Elevation)
		}
		if p.Timestamp != nil {
			gp.Timestamp = p.Timestamp.UTC()
		}
		seg.Points[i] = gp
	}

	doc := &gpx.GPX{
		Creator:     gpxCreator,
		Name:        route.Name,
		Description: route.Description,
		Time:        timePtr(route.UpdatedAt),
		Tracks: []gpx.GPXTrack{{
			Name:        route.Name,
			Description: route.Description,
			Type:        string(route.RouteType),
			Segments:    []gpx.GPXTrackSegment{seg},
		}},
	}

	data, err := doc.ToXml(gpx.ToXmlParams{Version: "1.1", Indent: true})
	if err != nil {
		return nil, fmt.Errorf("failed to encode GPX: %w", err)
	}
	return data, nil
}

func timePtr(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	t = t.UTC()
	return &t
}
