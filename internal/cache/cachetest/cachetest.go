// Package cachetest holds the behaviour every cache.Store backend must share.
package cachetest

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MeKo-Tech/routemeta/internal/cache"
)

// Exercise checks misses, round trips, last-writer-wins and Len on an empty s.
func Exercise(t *testing.T, s cache.Store) {
	t.Helper()
	ctx := context.Background()

	_, err := s.Get(ctx, "missing")
	require.ErrorIs(t, err, cache.ErrMiss)

	e := cache.Entry{Category: "BIKE_PATH", Surface: "asphalt", Source: "overpass", Tags: map[string]string{"highway": "cycleway"}}
	require.NoError(t, s.Put(ctx, "a", e))

	got, err := s.Get(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, e, got)

	require.NoError(t, s.Put(ctx, "a", cache.Entry{Category: "TRAIL"}))
	got, err = s.Get(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, "TRAIL", got.Category)

	require.NoError(t, s.Put(ctx, "b", cache.Entry{Category: "GRAVEL"}))
	n, err := s.Len(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}
