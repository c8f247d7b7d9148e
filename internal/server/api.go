package server

import (
	"context"
	"log/slog"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/julienschmidt/httprouter"

	"github.com/MeKo-Tech/routemeta/internal/classifier"
	"github.com/MeKo-Tech/routemeta/internal/datasource"
	"github.com/MeKo-Tech/routemeta/internal/pipeline"
	"github.com/MeKo-Tech/routemeta/internal/roadtype"
)

type APIConfig struct {
	// MaxBodyBytes bounds request bodies (default: 4 MiB)
	MaxBodyBytes int64
	// MaxPoints rejects larger routes, 0 disables the check (default: 10000)
	MaxPoints int
	// MaxConcurrent bounds analyses running at once (default: 4)
	MaxConcurrent int
	// CORSOrigin is sent as Access-Control-Allow-Origin (default: *)
	CORSOrigin string
	// StatusInterval is the push interval of the status stream (default: 1s)
	StatusInterval time.Duration

	Registry *roadtype.Registry
	// Cache and Source are optional and only feed the status endpoint.
	Cache  *classifier.Cached
	Source datasource.WaySource
}

func (c *APIConfig) applyDefaults() {
	if c.MaxBodyBytes <= 0 {
		c.MaxBodyBytes = 4 << 20
	}
	if c.MaxPoints < 0 {
		c.MaxPoints = 0
	}
	if c.MaxConcurrent <= 0 {
		c.MaxConcurrent = 4
	}
	if c.CORSOrigin == "" {
		c.CORSOrigin = "*"
	}
	if c.StatusInterval <= 0 {
		c.StatusInterval = time.Second
	}
	if c.Registry == nil {
		c.Registry = roadtype.Default()
	}
}

// API serves road-type analysis over HTTP.
type API struct {
	engine  *pipeline.Engine
	cfg     APIConfig
	logger  *slog.Logger
	sem     chan struct{}
	started time.Time

	total    atomic.Int64
	failed   atomic.Int64
	rejected atomic.Int64
	active   atomic.Int32
	queued   atomic.Int32
}

// Status is the JSON body of GET /api/status.
type Status struct {
	Source   string                     `json:"source,omitempty"`
	Uptime   string                     `json:"uptime"`
	Engine   pipeline.Status            `json:"engine"`
	Requests RequestStatus              `json:"requests"`
	Cache    *classifier.CacheStatus    `json:"cache,omitempty"`
	Overpass *datasource.OverpassStatus `json:"overpass,omitempty"`
}

// RequestStatus contains analyze request counters.
type RequestStatus struct {
	Active        int   `json:"active"`
	Queued        int   `json:"queued"`
	Total         int64 `json:"total"`
	Failed        int64 `json:"failed"`
	Rejected      int64 `json:"rejected"`
	MaxConcurrent int   `json:"max_concurrent"`
}

func NewAPI(engine *pipeline.Engine, cfg APIConfig, logger *slog.Logger) *API {
	cfg.applyDefaults()
	if logger == nil {
		logger = slog.Default()
	}
	return &API{
		engine:  engine,
		cfg:     cfg,
		logger:  logger,
		sem:     make(chan struct{}, cfg.MaxConcurrent),
		started: time.Now(),
	}
}

// Handler returns the routed API wrapped in request id, logging and CORS middleware.
func (a *API) Handler() http.Handler {
	router := httprouter.New()
	router.HandlerFunc(http.MethodGet, "/healthz", a.healthHandler)
	router.HandlerFunc(http.MethodGet, "/api/road-types", a.roadTypesHandler)
	router.HandlerFunc(http.MethodPost, "/api/road-types/analyze", a.analyzeHandler)
	router.HandlerFunc(http.MethodPost, "/api/road-types/decode", a.decodeHandler)
	router.HandlerFunc(http.MethodGet, "/api/status", a.statusHandler)
	router.HandlerFunc(http.MethodGet, "/api/status/stream", a.statusStreamHandler)

	// Preflight requests are answered by withCORS before routing.
	router.HandleOPTIONS = false
	router.NotFound = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		a.errorResponse(w, r, http.StatusNotFound, "not found")
	})
	router.MethodNotAllowed = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		a.errorResponse(w, r, http.StatusMethodNotAllowed, "method not allowed")
	})
	router.PanicHandler = func(w http.ResponseWriter, r *http.Request, v any) {
		a.logger.Error("handler panic", "path", r.URL.Path, "panic", v)
		a.errorResponse(w, r, http.StatusInternalServerError, "internal server error")
	}

	return withRequestID(a.withLogging(withCORS(a.cfg.CORSOrigin, router)))
}

// Status returns the current counters of the API and the components behind it.
func (a *API) Status(ctx context.Context) Status {
	st := Status{
		Uptime: time.Since(a.started).Truncate(time.Second).String(),
		Engine: a.engine.Status(),
		Requests: RequestStatus{
			Active:        int(a.active.Load()),
			Queued:        int(a.queued.Load()),
			Total:         a.total.Load(),
			Failed:        a.failed.Load(),
			Rejected:      a.rejected.Load(),
			MaxConcurrent: a.cfg.MaxConcurrent,
		},
	}
	if a.cfg.Cache != nil {
		cs := a.cfg.Cache.Status(ctx)
		st.Cache = &cs
	}
	if a.cfg.Source != nil {
		st.Source = a.cfg.Source.Name()
		if op, ok := a.cfg.Source.(*datasource.OverpassWaySource); ok {
			ops := op.Status()
			st.Overpass = &ops
		}
	}
	return st
}

// acquire waits for an analysis slot. The returned release must be called
// when ok is true.
func (a *API) acquire(ctx context.Context) (release func(), ok bool) {
	a.queued.Add(1)
	defer a.queued.Add(-1)

	select {
	case a.sem <- struct{}{}:
		a.active.Add(1)
		return func() {
			a.active.Add(-1)
			<-a.sem
		}, true
	case <-ctx.Done():
		return nil, false
	}
}
