package cmd

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/MeKo-Tech/routemeta/internal/cache"
	"github.com/MeKo-Tech/routemeta/internal/cache/rediscache"
	"github.com/MeKo-Tech/routemeta/internal/cache/sqlitecache"
	"github.com/MeKo-Tech/routemeta/internal/classifier"
	"github.com/MeKo-Tech/routemeta/internal/config"
	"github.com/MeKo-Tech/routemeta/internal/datasource"
	"github.com/MeKo-Tech/routemeta/internal/pipeline"
	"github.com/MeKo-Tech/routemeta/internal/roadtype"
)

// engineRuntime bundles the components every command builds from config.
type engineRuntime struct {
	cfg      config.Config
	registry *roadtype.Registry
	source   datasource.WaySource
	store    cache.Store
	cached   *classifier.Cached
	engine   *pipeline.Engine
}

func newEngineRuntime(ctx context.Context, cfg config.Config, log *slog.Logger) (*engineRuntime, error) {
	registry := cfg.Registry()

	source, err := newWaySource(cfg, log)
	if err != nil {
		return nil, err
	}

	rt := &engineRuntime{cfg: cfg, registry: registry, source: source}

	var c classifier.Classifier = classifier.NewTagged(source, registry, log)
	if cfg.Cache.Backend != "none" {
		store, err := newStore(ctx, cfg.Cache)
		if err != nil {
			return nil, err
		}
		rt.store = store
		rt.cached = classifier.NewCached(c, store, cfg.Cache.Precision, registry, log)
		c = rt.cached
	}

	rt.engine = pipeline.NewEngine(c, pipeline.Config{
		Workers:  cfg.Engine.Workers,
		Timeout:  cfg.Engine.Timeout,
		Fallback: roadtype.Normalize(cfg.Engine.Fallback),
		Registry: registry,
		Logger:   log.With("component", "engine"),
	})

	log.Debug("engine ready",
		"data_source", source.Name(),
		"cache", cfg.Cache.Backend,
		"workers", cfg.Engine.Workers,
		"timeout", cfg.Engine.Timeout)

	return rt, nil
}

func newWaySource(cfg config.Config, log *slog.Logger) (datasource.WaySource, error) {
	switch cfg.DataSource {
	case "overpass":
		return datasource.NewOverpassWaySource(datasource.OverpassConfig{
			Endpoint:     cfg.Overpass.Endpoint,
			CellSize:     cfg.Overpass.CellSize,
			SearchRadius: cfg.Overpass.SearchRadius,
			MaxParallel:  cfg.Overpass.MaxParallel,
			MaxCells:     cfg.Overpass.MaxCells,
			QueryTimeout: cfg.Overpass.QueryTimeout,
			Logger:       log.With("component", "overpass"),
		}), nil
	case "synthetic":
		return datasource.NewSyntheticWaySource(cfg.Seed, 0), nil
	}
	return nil, fmt.Errorf("unsupported data source: %s", cfg.DataSource)
}

func newStore(ctx context.Context, cfg config.CacheConfig) (cache.Store, error) {
	switch cfg.Backend {
	case "memory":
		return cache.NewMemory(cfg.Size), nil
	case "sqlite":
		s, err := sqlitecache.Open(cfg.SQLitePath)
		if err != nil {
			return nil, fmt.Errorf("failed to open sqlite cache: %w", err)
		}
		return s, nil
	case "redis":
		r, err := rediscache.Connect(ctx, rediscache.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
			Prefix:   cfg.RedisPrefix,
			TTL:      cfg.RedisTTL,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to connect redis cache: %w", err)
		}
		return r, nil
	}
	return nil, fmt.Errorf("unsupported cache backend: %s", cfg.Backend)
}

// Close flushes and closes the cache store.
func (rt *engineRuntime) Close() error {
	if rt.store == nil {
		return nil
	}
	return rt.store.Close()
}
