// Package classifier resolves the road-type category of individual route points.
package classifier

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/MeKo-Tech/routemeta/internal/datasource"
	"github.com/MeKo-Tech/routemeta/internal/roadtype"
	"github.com/MeKo-Tech/routemeta/internal/types"
)

// SourceFallback marks classifications that did not come from map data.
const SourceFallback = "fallback"

// Classification is the road type resolved for one point.
type Classification struct {
	Category roadtype.Category `json:"roadType"`
	Color    string            `json:"color"`
	Surface  string            `json:"surface,omitempty"`
	Tags     map[string]string `json:"tags,omitempty"`
	Source   string            `json:"source"`
	// Degraded is set when the lookup failed and the fallback was used instead.
	Degraded bool `json:"degraded,omitempty"`
}

// OSMData returns the identifying tags of the classified way, or nil.
func (c Classification) OSMData() *types.OSMData {
	return types.OSMDataFromTags(c.Tags)
}

// Classifier resolves the category of a point for a travel mode.
// Implementations must be safe for concurrent use.
type Classifier interface {
	Classify(ctx context.Context, p types.RoutePoint, mode roadtype.TravelMode) (Classification, error)
}

// Fallback always returns the same category.
type Fallback struct {
	Category roadtype.Category
	Registry *roadtype.Registry
}

// Result returns the fallback classification without a point.
func (f Fallback) Result() Classification {
	cat := f.Category
	if cat == "" {
		cat = roadtype.Unknown
	}
	reg := f.Registry
	if reg == nil {
		reg = roadtype.Default()
	}
	return Classification{Category: cat, Color: reg.Color(cat), Source: SourceFallback}
}

// Classify validates the point and returns the fallback category.
func (f Fallback) Classify(ctx context.Context, p types.RoutePoint, _ roadtype.TravelMode) (Classification, error) {
	if err := types.ValidateCoordinate(p.Latitude, p.Longitude); err != nil {
		return Classification{}, err
	}
	return f.Result(), nil
}

// Tagged classifies points by the tags of the nearest way of a WaySource.
type Tagged struct {
	source   datasource.WaySource
	fallback Fallback
	registry *roadtype.Registry
	logger   *slog.Logger
}

// NewTagged creates a classifier over source. A nil registry selects the default one.
func NewTagged(source datasource.WaySource, registry *roadtype.Registry, logger *slog.Logger) *Tagged {
	if registry == nil {
		registry = roadtype.Default()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Tagged{
		source:   source,
		fallback: Fallback{Category: roadtype.Unknown, Registry: registry},
		registry: registry,
		logger:   logger.With("component", "classifier", "source", source.Name()),
	}
}

// Classify looks up the nearest way. Lookup failures yield a degraded fallback
// classification; only invalid coordinates and context errors are returned.
func (t *Tagged) Classify(ctx context.Context, p types.RoutePoint, mode roadtype.TravelMode) (Classification, error) {
	if err := types.ValidateCoordinate(p.Latitude, p.Longitude); err != nil {
		return Classification{}, err
	}

	way, err := t.source.NearestWay(ctx, p.Latitude, p.Longitude)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return Classification{}, fmt.Errorf("classify %.6f,%.6f: %w", p.Latitude, p.Longitude, ctxErr)
		}
		t.logger.Warn("way lookup failed, using fallback",
			"lat", p.Latitude,
			"lon", p.Longitude,
			"error", err)
		c := t.fallback.Result()
		c.Degraded = true
		return c, nil
	}
	if way == nil {
		t.logger.Debug("no way near point", "lat", p.Latitude, "lon", p.Longitude)
		return t.fallback.Result(), nil
	}

	cat := roadtype.FromTags(way.Tags, mode)
	return Classification{
		Category: cat,
		Color:    t.registry.Color(cat),
		Surface:  way.Tags["surface"],
		Tags:     way.Tags,
		Source:   t.source.Name(),
	}, nil
}
