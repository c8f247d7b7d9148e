package classifier

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"

	"github.com/MeKo-Tech/routemeta/internal/cache"
	"github.com/MeKo-Tech/routemeta/internal/roadtype"
	"github.com/MeKo-Tech/routemeta/internal/types"
)

// DefaultPrecision is the number of decimal places coordinates are rounded to
// for cache keys (about one meter).
const DefaultPrecision = 5

// CacheStatus contains hit counters of a Cached classifier.
type CacheStatus struct {
	Hits    int64 `json:"hits"`
	Misses  int64 `json:"misses"`
	Errors  int64 `json:"errors"`
	Entries int   `json:"entries"`
}

// Cached is a read-through cache in front of another classifier.
type Cached struct {
	next      Classifier
	store     cache.Store
	precision int
	registry  *roadtype.Registry
	logger    *slog.Logger

	hits   atomic.Int64
	misses atomic.Int64
	errors atomic.Int64
}

// NewCached wraps next with store. precision < 0 selects DefaultPrecision.
func NewCached(next Classifier, store cache.Store, precision int, registry *roadtype.Registry, logger *slog.Logger) *Cached {
	if precision < 0 {
		precision = DefaultPrecision
	}
	if registry == nil {
		registry = roadtype.Default()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Cached{
		next:      next,
		store:     store,
		precision: precision,
		registry:  registry,
		logger:    logger.With("component", "classification-cache"),
	}
}

// Classify returns the cached category of the point's quantized coordinate or
// classifies it and stores the result. Degraded results are not stored.
func (c *Cached) Classify(ctx context.Context, p types.RoutePoint, mode roadtype.TravelMode) (Classification, error) {
	if err := types.ValidateCoordinate(p.Latitude, p.Longitude); err != nil {
		return Classification{}, err
	}

	key := cache.Key(p.Latitude, p.Longitude, mode, c.precision)
	e, err := c.store.Get(ctx, key)
	switch {
	case err == nil:
		c.hits.Add(1)
		cat := roadtype.Normalize(e.Category)
		return Classification{
			Category: cat,
			Color:    c.registry.Color(cat),
			Surface:  e.Surface,
			Tags:     e.Tags,
			Source:   e.Source,
		}, nil
	case !errors.Is(err, cache.ErrMiss):
		c.errors.Add(1)
		c.logger.Warn("cache read failed", "key", key, "error", err)
	}
	c.misses.Add(1)

	cls, err := c.next.Classify(ctx, p, mode)
	if err != nil {
		return Classification{}, err
	}
	if cls.Degraded {
		return cls, nil
	}

	entry := cache.Entry{
		Category: string(cls.Category),
		Surface:  cls.Surface,
		Source:   cls.Source,
		Tags:     cls.Tags,
	}
	if err := c.store.Put(ctx, key, entry); err != nil {
		c.errors.Add(1)
		c.logger.Warn("cache write failed", "key", key, "error", err)
	}
	return cls, nil
}

// Status returns the cache counters.
func (c *Cached) Status(ctx context.Context) CacheStatus {
	n, err := c.store.Len(ctx)
	if err != nil {
		c.logger.Debug("cache size unavailable", "error", err)
	}
	return CacheStatus{
		Hits:    c.hits.Load(),
		Misses:  c.misses.Load(),
		Errors:  c.errors.Load(),
		Entries: n,
	}
}
