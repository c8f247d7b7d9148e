package classifier

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MeKo-Tech/routemeta/internal/cache"
	"github.com/MeKo-Tech/routemeta/internal/datasource"
	"github.com/MeKo-Tech/routemeta/internal/roadtype"
	"github.com/MeKo-Tech/routemeta/internal/types"
)

// countingSource wraps a WaySource and counts lookups.
type countingSource struct {
	datasource.WaySource
	calls atomic.Int64
	err   error
}

func (s *countingSource) NearestWay(ctx context.Context, lat, lon float64) (*datasource.Way, error) {
	s.calls.Add(1)
	if s.err != nil {
		return nil, s.err
	}
	return s.WaySource.NearestWay(ctx, lat, lon)
}

var berlin = types.RoutePoint{Latitude: 52.520008, Longitude: 13.404954}

func designatedPath() datasource.WaySource {
	return datasource.StaticWaySource{Tags: map[string]string{
		"highway": "path", "bicycle": "designated", "surface": "compacted", "name": "Mauerweg",
	}}
}

func TestFallback(t *testing.T) {
	c, err := Fallback{}.Classify(context.Background(), berlin, roadtype.ModeCycling)
	require.NoError(t, err)
	assert.Equal(t, roadtype.Unknown, c.Category)
	assert.Equal(t, roadtype.DefaultColor, c.Color)
	assert.Equal(t, SourceFallback, c.Source)

	_, err = Fallback{}.Classify(context.Background(), types.RoutePoint{Latitude: 91}, roadtype.ModeCycling)
	assert.ErrorIs(t, err, types.ErrInvalidCoordinate)
}

func TestTagged_ModeDependent(t *testing.T) {
	tagged := NewTagged(designatedPath(), nil, nil)

	c, err := tagged.Classify(context.Background(), berlin, roadtype.ModeCycling)
	require.NoError(t, err)
	assert.Equal(t, roadtype.BikePath, c.Category)
	assert.Equal(t, "compacted", c.Surface)
	assert.Equal(t, "static", c.Source)
	assert.True(t, roadtype.ValidColor(c.Color))
	require.NotNil(t, c.OSMData())
	assert.Equal(t, "Mauerweg", c.OSMData().Name)

	c, err = tagged.Classify(context.Background(), berlin, roadtype.ModePedestrian)
	require.NoError(t, err)
	assert.Equal(t, roadtype.Trail, c.Category)
}

func TestTagged_InvalidCoordinate(t *testing.T) {
	src := &countingSource{WaySource: designatedPath()}
	tagged := NewTagged(src, nil, nil)

	for _, p := range []types.RoutePoint{{Latitude: 91}, {Longitude: 181}, {Latitude: -90.5}} {
		_, err := tagged.Classify(context.Background(), p, roadtype.ModeCycling)
		assert.ErrorIs(t, err, types.ErrInvalidCoordinate)
	}
	assert.Zero(t, src.calls.Load(), "source must not be queried for invalid points")
}

func TestTagged_LookupFailure(t *testing.T) {
	src := &countingSource{WaySource: designatedPath(), err: errors.New("overpass unavailable")}
	c, err := NewTagged(src, nil, nil).Classify(context.Background(), berlin, roadtype.ModeCycling)
	require.NoError(t, err)
	assert.Equal(t, roadtype.Unknown, c.Category)
	assert.True(t, c.Degraded)
}

func TestTagged_NoWay(t *testing.T) {
	c, err := NewTagged(datasource.StaticWaySource{}, nil, nil).Classify(context.Background(), berlin, roadtype.ModeDriving)
	require.NoError(t, err)
	assert.Equal(t, roadtype.Unknown, c.Category)
	assert.False(t, c.Degraded)
}

func TestTagged_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewTagged(designatedPath(), nil, nil).Classify(ctx, berlin, roadtype.ModeCycling)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestTagged_CustomRegistry(t *testing.T) {
	reg := roadtype.NewRegistry()
	require.True(t, reg.Register(roadtype.BikePath, "#123abc"))

	c, err := NewTagged(designatedPath(), reg, nil).Classify(context.Background(), berlin, roadtype.ModeCycling)
	require.NoError(t, err)
	assert.Equal(t, "#123ABC", c.Color)
}

func TestCached_HitAfterMiss(t *testing.T) {
	ctx := context.Background()
	src := &countingSource{WaySource: designatedPath()}
	cached := NewCached(NewTagged(src, nil, nil), cache.NewMemory(0), -1, nil, nil)

	first, err := cached.Classify(ctx, berlin, roadtype.ModeCycling)
	require.NoError(t, err)

	// jitter below the key precision hits the same entry
	jittered := berlin
	jittered.Latitude += 0.000001
	second, err := cached.Classify(ctx, jittered, roadtype.ModeCycling)
	require.NoError(t, err)

	assert.Equal(t, first.Category, second.Category)
	assert.Equal(t, first.Color, second.Color)
	assert.EqualValues(t, 1, src.calls.Load())

	st := cached.Status(ctx)
	assert.EqualValues(t, 1, st.Hits)
	assert.EqualValues(t, 1, st.Misses)
	assert.Equal(t, 1, st.Entries)
}

func TestCached_ModeIsPartOfKey(t *testing.T) {
	ctx := context.Background()
	cached := NewCached(NewTagged(designatedPath(), nil, nil), cache.NewMemory(0), DefaultPrecision, nil, nil)

	c, err := cached.Classify(ctx, berlin, roadtype.ModeCycling)
	require.NoError(t, err)
	assert.Equal(t, roadtype.BikePath, c.Category)

	c, err = cached.Classify(ctx, berlin, roadtype.ModePedestrian)
	require.NoError(t, err)
	assert.Equal(t, roadtype.Trail, c.Category)
}

func TestCached_SkipsDegraded(t *testing.T) {
	ctx := context.Background()
	src := &countingSource{WaySource: designatedPath(), err: errors.New("timeout")}
	store := cache.NewMemory(0)
	cached := NewCached(NewTagged(src, nil, nil), store, DefaultPrecision, nil, nil)

	_, err := cached.Classify(ctx, berlin, roadtype.ModeCycling)
	require.NoError(t, err)
	n, _ := store.Len(ctx)
	assert.Zero(t, n)
}

func TestCached_Concurrent(t *testing.T) {
	ctx := context.Background()
	cached := NewCached(NewTagged(designatedPath(), nil, nil), cache.NewMemory(0), DefaultPrecision, nil, nil)

	var wg sync.WaitGroup
	for i := 0; i < 64; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			p := types.RoutePoint{Latitude: 52.5 + float64(i%8)*0.001, Longitude: 13.4}
			c, err := cached.Classify(ctx, p, roadtype.ModeCycling)
			assert.NoError(t, err)
			assert.Equal(t, roadtype.BikePath, c.Category)
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 8, cached.Status(ctx).Entries)
}

func TestCached_InvalidCoordinate(t *testing.T) {
	cached := NewCached(Fallback{}, cache.NewMemory(0), DefaultPrecision, nil, nil)
	_, err := cached.Classify(context.Background(), types.RoutePoint{Longitude: 181}, roadtype.ModeCycling)
	assert.ErrorIs(t, err, types.ErrInvalidCoordinate)
}
