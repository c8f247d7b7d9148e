package datasource

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/MeKo-Christian/go-overpass"
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/MeKo-Tech/routemeta/internal/types"
)

// DefaultOverpassEndpoint is the public Overpass API interpreter.
const DefaultOverpassEndpoint = "https://overpass-api.de/api/interpreter"

// querier is the subset of overpass.Client used here.
type querier interface {
	Query(query string) (overpass.Result, error)
}

// OverpassConfig configures the Overpass way source.
type OverpassConfig struct {
	Endpoint string
	// CellSize is the edge length in degrees of the grid cells fetched per query (default: 0.01)
	CellSize float64
	// SearchRadius is the maximum distance in meters to a way (default: 25)
	SearchRadius float64
	// MaxParallel limits concurrent Overpass requests (default: 2)
	MaxParallel int
	// MaxCells bounds the number of cached cells, least recently used evicted first (default: 256)
	MaxCells int
	// QueryTimeout is passed to the Overpass server (default: 25s)
	QueryTimeout time.Duration
	Logger       *slog.Logger
	HTTPClient   *http.Client
}

func (c *OverpassConfig) applyDefaults() {
	if c.Endpoint == "" {
		c.Endpoint = DefaultOverpassEndpoint
	}
	if c.CellSize <= 0 {
		c.CellSize = 0.01
	}
	if c.SearchRadius <= 0 {
		c.SearchRadius = 25
	}
	if c.MaxParallel < 1 {
		c.MaxParallel = 2
	}
	if c.MaxCells < 1 {
		c.MaxCells = 256
	}
	if c.QueryTimeout <= 0 {
		c.QueryTimeout = 25 * time.Second
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
	if c.HTTPClient == nil {
		c.HTTPClient = http.DefaultClient
	}
}

// OverpassStatus contains lookup counters of the Overpass way source.
type OverpassStatus struct {
	Lookups       int64 `json:"lookups"`
	CellFetches   int64 `json:"cell_fetches"`
	FetchFailures int64 `json:"fetch_failures"`
	ActiveFetches int   `json:"active_fetches"`
	CachedCells   int   `json:"cached_cells"`
}

type cellKey struct {
	lat, lon int64
}

func (k cellKey) String() string {
	return fmt.Sprintf("cell_%d_%d", k.lat, k.lon)
}

// OverpassWaySource looks up the way nearest to a coordinate from Overpass API.
// Ways are fetched per grid cell and reused for every point inside that cell.
type OverpassWaySource struct {
	client querier
	cfg    OverpassConfig
	locks  sync.Map // cellKey -> *sync.Mutex

	cells *lru.Cache[cellKey, []Way]

	lookups       atomic.Int64
	cellFetches   atomic.Int64
	fetchFailures atomic.Int64
	activeFetches atomic.Int32
}

// NewOverpassWaySource creates a way source backed by Overpass API.
func NewOverpassWaySource(cfg OverpassConfig) *OverpassWaySource {
	cfg.applyDefaults()

	client := overpass.NewWithSettings(
		cfg.Endpoint,
		cfg.MaxParallel,
		cfg.HTTPClient,
	)

	return newOverpassWaySource(&client, cfg)
}

func newOverpassWaySource(client querier, cfg OverpassConfig) *OverpassWaySource {
	cfg.applyDefaults()
	// MaxCells is positive after applyDefaults, the only error case of lru.New.
	cells, _ := lru.New[cellKey, []Way](cfg.MaxCells)
	return &OverpassWaySource{
		client: client,
		cfg:    cfg,
		cells:  cells,
	}
}

// Name identifies the source in classifications and logs.
func (ds *OverpassWaySource) Name() string {
	return "overpass"
}

// NearestWay returns the closest highway within the search radius, or nil.
func (ds *OverpassWaySource) NearestWay(ctx context.Context, lat, lon float64) (*Way, error) {
	ds.lookups.Add(1)

	key := ds.cellFor(lat, lon)
	ways, err := ds.cellWays(ctx, key)
	if err != nil {
		return nil, err
	}

	return Nearest(ways, lat, lon, ds.cfg.SearchRadius), nil
}

func (ds *OverpassWaySource) cellFor(lat, lon float64) cellKey {
	return cellKey{
		lat: int64(math.Floor(lat / ds.cfg.CellSize)),
		lon: int64(math.Floor(lon / ds.cfg.CellSize)),
	}
}

func (ds *OverpassWaySource) cellBounds(key cellKey) types.BoundingBox {
	size := ds.cfg.CellSize
	b := types.BoundingBox{
		MinLat: float64(key.lat) * size,
		MinLon: float64(key.lon) * size,
		MaxLat: float64(key.lat+1) * size,
		MaxLon: float64(key.lon+1) * size,
	}
	// Ways just outside the cell can still be the nearest to a point on its edge.
	margin := ds.cfg.SearchRadius / metersPerDegree
	return b.ExpandByDegrees(margin)
}

// cellWays returns the ways of a cell, fetching it at most once concurrently.
func (ds *OverpassWaySource) cellWays(ctx context.Context, key cellKey) ([]Way, error) {
	if ways, ok := ds.cells.Get(key); ok {
		return ways, nil
	}

	lockAny, _ := ds.locks.LoadOrStore(key, &sync.Mutex{})
	lock := lockAny.(*sync.Mutex)
	lock.Lock()
	defer lock.Unlock()

	if ways, ok := ds.cells.Get(key); ok {
		return ways, nil
	}

	ways, err := ds.fetchCell(ctx, key)
	if err != nil {
		return nil, err
	}
	ds.cells.Add(key, ways)
	return ways, nil
}

type queryResult struct {
	result overpass.Result
	err    error
}

func (ds *OverpassWaySource) fetchCell(ctx context.Context, key cellKey) ([]Way, error) {
	// The cell lock may be granted after the deadline; do not start a query then.
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("overpass query for %s: %w", key, err)
	}

	bounds := ds.cellBounds(key)
	query := ds.buildCellQuery(bounds)
	log := ds.cfg.Logger.With("cell", key.String(), "bounds", bounds.String())

	ds.activeFetches.Add(1)
	defer ds.activeFetches.Add(-1)
	ds.cellFetches.Add(1)

	start := time.Now()
	log.Debug("fetching highways from Overpass API")

	// The client has no context support; abandon the request on cancellation.
	done := make(chan queryResult, 1)
	go func() {
		res, err := ds.client.Query(query)
		done <- queryResult{result: res, err: err}
	}()

	var res queryResult
	select {
	case res = <-done:
	case <-ctx.Done():
		ds.fetchFailures.Add(1)
		return nil, fmt.Errorf("overpass query for %s: %w", key, ctx.Err())
	}

	if res.err != nil {
		ds.fetchFailures.Add(1)
		log.Warn("overpass query failed", "error", res.err, "duration_ms", time.Since(start).Milliseconds())
		return nil, fmt.Errorf("overpass query failed: %w", res.err)
	}

	ways := ExtractWays(&res.result)
	log.Debug("fetch completed", "ways", len(ways), "duration_ms", time.Since(start).Milliseconds())
	return ways, nil
}

// buildCellQuery fetches every highway intersecting the bounds with tags and
// full geometry.
func (ds *OverpassWaySource) buildCellQuery(bounds types.BoundingBox) string {
	return fmt.Sprintf(`
[out:json][timeout:%d];
way["highway"](%s);
out tags geom;
`, int(ds.cfg.QueryTimeout.Seconds()), bounds.OverpassFilter())
}

// Status returns lookup counters.
func (ds *OverpassWaySource) Status() OverpassStatus {
	return OverpassStatus{
		Lookups:       ds.lookups.Load(),
		CellFetches:   ds.cellFetches.Load(),
		FetchFailures: ds.fetchFailures.Load(),
		ActiveFetches: int(ds.activeFetches.Load()),
		CachedCells:   ds.cells.Len(),
	}
}

// ClearCache drops all cached cells.
func (ds *OverpassWaySource) ClearCache() {
	ds.cells.Purge()
}

// CacheSize returns the number of cached cells.
func (ds *OverpassWaySource) CacheSize() int {
	return ds.cells.Len()
}
