// Package cache provides storage backends for road classifications.
package cache

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/MeKo-Tech/routemeta/internal/roadtype"
)

// ErrMiss is returned by Get when the key is not cached.
var ErrMiss = errors.New("cache miss")

// Entry is a cached classification.
type Entry struct {
	Category string            `json:"category"`
	Surface  string            `json:"surface,omitempty"`
	Source   string            `json:"source,omitempty"`
	Tags     map[string]string `json:"tags,omitempty"`
}

// Store is a classification cache backend. Implementations are safe for
// concurrent use; concurrent Puts for one key resolve last-writer-wins.
type Store interface {
	Get(ctx context.Context, key string) (Entry, error)
	Put(ctx context.Context, key string, e Entry) error
	Len(ctx context.Context) (int, error)
	Close() error
}

// Key builds the cache key of a coordinate and travel mode. Coordinates are
// rounded to precision decimal places so float jitter maps onto one key.
func Key(lat, lon float64, mode roadtype.TravelMode, precision int) string {
	if precision < 0 {
		precision = 0
	}
	scale := math.Pow(10, float64(precision))
	qlat := math.Round(lat*scale) / scale
	qlon := math.Round(lon*scale) / scale
	// avoid "-0.00000"
	if qlat == 0 {
		qlat = 0
	}
	if qlon == 0 {
		qlon = 0
	}
	return fmt.Sprintf("%s:%.*f:%.*f", mode, precision, qlat, precision, qlon)
}
