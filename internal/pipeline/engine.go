// Package pipeline wires classification, segmentation and aggregation into
// one computation per route.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/MeKo-Tech/routemeta/internal/classifier"
	"github.com/MeKo-Tech/routemeta/internal/geo"
	"github.com/MeKo-Tech/routemeta/internal/metadata"
	"github.com/MeKo-Tech/routemeta/internal/roadtype"
	"github.com/MeKo-Tech/routemeta/internal/segment"
	"github.com/MeKo-Tech/routemeta/internal/stats"
	"github.com/MeKo-Tech/routemeta/internal/types"
	"github.com/MeKo-Tech/routemeta/internal/worker"
)

// Config configures an Engine.
type Config struct {
	// Workers bounds concurrent classifications per route (default: 16)
	Workers int
	// Timeout bounds the classification phase of one route (default: 8s)
	Timeout time.Duration
	// Fallback is used for points not classified in time (default: UNKNOWN)
	Fallback roadtype.Category
	Registry *roadtype.Registry
	Logger   *slog.Logger
}

func (c *Config) applyDefaults() {
	if c.Workers < 1 {
		c.Workers = 16
	}
	if c.Timeout <= 0 {
		c.Timeout = 8 * time.Second
	}
	if c.Fallback == "" {
		c.Fallback = roadtype.Unknown
	}
	if c.Registry == nil {
		c.Registry = roadtype.Default()
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}

// Result is the road-type metadata of one route.
type Result struct {
	Mode     roadtype.TravelMode     `json:"travelMode"`
	Segments []types.RoadTypeSegment `json:"roadTypeSegments"`
	Stats    types.RoadTypeStats     `json:"roadTypeStats"`
	// Degraded is set when some points fell back to the default category.
	Degraded   bool `json:"classificationDegraded"`
	Unresolved int  `json:"unresolvedPoints"`

	TotalDistance      float64  `json:"totalDistance"`
	TotalElevationGain float64  `json:"totalElevationGain"`
	EstimatedDuration  float64  `json:"estimatedDuration"` // seconds
	MinElevation       *float64 `json:"minElevation,omitempty"`
	MaxElevation       *float64 `json:"maxElevation,omitempty"`

	Elapsed time.Duration `json:"-"`
}

// Derived returns the fields stored in the metadata blob.
func (r *Result) Derived() metadata.Derived {
	return metadata.Derived{
		Segments:     r.Segments,
		Stats:        r.Stats,
		Degraded:     r.Degraded,
		TravelMode:   string(r.Mode),
		AverageSpeed: r.Mode.AverageSpeedKmh(),
		MinElevation: r.MinElevation,
		MaxElevation: r.MaxElevation,
	}
}

// Status contains counters of an Engine.
type Status struct {
	Routes           int64 `json:"routes"`
	DegradedRoutes   int64 `json:"degraded_routes"`
	PointsClassified int64 `json:"points_classified"`
	ActiveRoutes     int   `json:"active_routes"`
}

// Engine computes road-type metadata. Routes are independent; the only
// state shared between them is whatever the classifier caches.
type Engine struct {
	classifier classifier.Classifier
	fallback   classifier.Fallback
	cfg        Config

	routes   atomic.Int64
	degraded atomic.Int64
	points   atomic.Int64
	active   atomic.Int32
}

// NewEngine creates an engine classifying with c.
func NewEngine(c classifier.Classifier, cfg Config) *Engine {
	cfg.applyDefaults()
	return &Engine{
		classifier: c,
		fallback:   classifier.Fallback{Category: cfg.Fallback, Registry: cfg.Registry},
		cfg:        cfg,
	}
}

// Compute classifies every point, then segments and aggregates them.
// Invalid coordinates fail the call. Lookups not finished within the
// configured timeout fall back to the default category.
func (e *Engine) Compute(ctx context.Context, points []types.RoutePoint, mode roadtype.TravelMode) (*Result, error) {
	if err := types.ValidatePoints(points); err != nil {
		return nil, err
	}
	if mode == "" {
		mode = roadtype.ModeCycling
	}

	e.active.Add(1)
	defer e.active.Add(-1)
	start := time.Now()

	classes, unresolved, degraded, err := e.classify(ctx, points, mode)
	if err != nil {
		return nil, err
	}

	segments, err := segment.Build(points, classes)
	if err != nil {
		return nil, fmt.Errorf("build segments: %w", err)
	}

	res := &Result{
		Mode:               mode,
		Segments:           segments,
		Stats:              stats.Aggregate(segments),
		Degraded:           degraded,
		Unresolved:         unresolved,
		TotalDistance:      geo.PathLength(points),
		TotalElevationGain: geo.ElevationGain(points),
	}
	res.EstimatedDuration = res.TotalDistance / 1000 / mode.AverageSpeedKmh() * 3600
	if lo, hi, ok := geo.ElevationRange(points); ok {
		res.MinElevation, res.MaxElevation = &lo, &hi
	}
	res.Elapsed = time.Since(start)

	e.routes.Add(1)
	e.points.Add(int64(len(points)))
	if degraded {
		e.degraded.Add(1)
	}

	e.cfg.Logger.Debug("Computed road types",
		"points", len(points),
		"mode", mode,
		"segments", len(segments),
		"types", res.Stats.TotalTypes,
		"distance_m", res.TotalDistance,
		"degraded", degraded,
		"elapsed", res.Elapsed)

	return res, nil
}

// classify resolves all points on the worker pool. Results keep point order.
func (e *Engine) classify(ctx context.Context, points []types.RoutePoint, mode roadtype.TravelMode) ([]classifier.Classification, int, bool, error) {
	cctx, cancel := context.WithTimeout(ctx, e.cfg.Timeout)
	defer cancel()

	pool := worker.New(worker.Config[types.RoutePoint, classifier.Classification]{
		Workers: min(e.cfg.Workers, len(points)),
		Func: func(ctx context.Context, p types.RoutePoint) (classifier.Classification, error) {
			return e.classifier.Classify(ctx, p, mode)
		},
	})
	results := pool.Run(cctx, points)

	// The caller gave up; a timeout of our own only degrades the result.
	if err := ctx.Err(); err != nil {
		return nil, 0, false, err
	}

	classes := make([]classifier.Classification, len(points))
	var (
		unresolved int
		degraded   bool
	)
	for _, r := range results {
		if r.Err != nil {
			if errors.Is(r.Err, types.ErrInvalidCoordinate) {
				return nil, 0, false, fmt.Errorf("point %d: %w", r.Index, r.Err)
			}
			unresolved++
			degraded = true
			classes[r.Index] = e.fallback.Result()
			continue
		}
		if r.Value.Degraded {
			degraded = true
		}
		classes[r.Index] = r.Value
	}

	if unresolved > 0 {
		e.cfg.Logger.Warn("Classification incomplete, using fallback",
			"unresolved", unresolved,
			"points", len(points),
			"timeout", e.cfg.Timeout)
	}
	return classes, unresolved, degraded, nil
}

// Annotate computes the metadata of route and stores it on the route along
// with the derived totals. The travel mode follows the route type.
func (e *Engine) Annotate(ctx context.Context, route *types.Route) (*Result, error) {
	if route == nil {
		return nil, errors.New("annotate: nil route")
	}
	return e.AnnotateMode(ctx, route, roadtype.ModeForRouteType(route.RouteType))
}

// AnnotateMode is Annotate with an explicit travel mode.
func (e *Engine) AnnotateMode(ctx context.Context, route *types.Route, mode roadtype.TravelMode) (*Result, error) {
	if route == nil {
		return nil, errors.New("annotate: nil route")
	}

	res, err := e.Compute(ctx, route.Points, mode)
	if err != nil {
		return nil, err
	}

	blob, err := metadata.Assemble(route.Metadata, res.Derived())
	if err != nil {
		return nil, err
	}

	types.NormalizePointTypes(route.Points)
	route.Metadata = blob
	route.TotalDistance = res.TotalDistance
	route.TotalElevationGain = res.TotalElevationGain
	route.EstimatedDuration = res.EstimatedDuration
	now := time.Now().UTC()
	if route.CreatedAt.IsZero() {
		route.CreatedAt = now
	}
	route.UpdatedAt = now

	return res, nil
}

// Status returns the engine counters.
func (e *Engine) Status() Status {
	return Status{
		Routes:           e.routes.Load(),
		DegradedRoutes:   e.degraded.Load(),
		PointsClassified: e.points.Load(),
		ActiveRoutes:     int(e.active.Load()),
	}
}
