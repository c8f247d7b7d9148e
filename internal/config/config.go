// Package config holds the typed runtime configuration.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/MeKo-Tech/routemeta/internal/roadtype"
)

// EnvPrefix prefixes every environment variable, e.g. ROUTEMETA_CACHE_BACKEND.
const EnvPrefix = "ROUTEMETA"

type Config struct {
	DataSource string            `mapstructure:"data-source"`
	Seed       int64             `mapstructure:"seed"`
	Verbose    bool              `mapstructure:"verbose"`
	LogFormat  string            `mapstructure:"log-format"`
	Colors     map[string]string `mapstructure:"colors"`

	Overpass OverpassConfig `mapstructure:"overpass"`
	Cache    CacheConfig    `mapstructure:"cache"`
	Engine   EngineConfig   `mapstructure:"engine"`
	Serve    ServeConfig    `mapstructure:"serve"`
}

type OverpassConfig struct {
	Endpoint     string        `mapstructure:"endpoint"`
	CellSize     float64       `mapstructure:"cell_size"`
	SearchRadius float64       `mapstructure:"search_radius"`
	MaxParallel  int           `mapstructure:"max_parallel"`
	MaxCells     int           `mapstructure:"max_cells"`
	QueryTimeout time.Duration `mapstructure:"query_timeout"`
}

type CacheConfig struct {
	// Backend is one of memory, sqlite, redis or none.
	Backend   string `mapstructure:"backend"`
	Size      int    `mapstructure:"size"`
	Precision int    `mapstructure:"precision"`

	SQLitePath string `mapstructure:"sqlite_path"`

	RedisAddr     string        `mapstructure:"redis_addr"`
	RedisPassword string        `mapstructure:"redis_password"`
	RedisDB       int           `mapstructure:"redis_db"`
	RedisPrefix   string        `mapstructure:"redis_prefix"`
	RedisTTL      time.Duration `mapstructure:"redis_ttl"`
}

type EngineConfig struct {
	Workers  int           `mapstructure:"workers"`
	Timeout  time.Duration `mapstructure:"timeout"`
	Fallback string        `mapstructure:"fallback"`
}

type ServeConfig struct {
	Addr          string        `mapstructure:"addr"`
	MaxBodyBytes  int64         `mapstructure:"max_body_bytes"`
	MaxPoints     int           `mapstructure:"max_points"`
	MaxConcurrent int           `mapstructure:"max_concurrent"`
	ReadTimeout   time.Duration `mapstructure:"read_timeout"`
	WriteTimeout  time.Duration `mapstructure:"write_timeout"`
	CORSOrigin    string        `mapstructure:"cors_origin"`
}

// SetDefaults registers the default of every key, which also makes each key
// visible to AutomaticEnv during Unmarshal.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("data-source", "overpass")
	v.SetDefault("seed", 1337)
	v.SetDefault("verbose", false)
	v.SetDefault("log-format", "text")
	v.SetDefault("colors", map[string]string{})

	v.SetDefault("overpass.endpoint", "https://overpass-api.de/api/interpreter")
	v.SetDefault("overpass.cell_size", 0.01)
	v.SetDefault("overpass.search_radius", 25.0)
	v.SetDefault("overpass.max_parallel", 2)
	v.SetDefault("overpass.max_cells", 256)
	v.SetDefault("overpass.query_timeout", 25*time.Second)

	v.SetDefault("cache.backend", "memory")
	v.SetDefault("cache.size", 100000)
	v.SetDefault("cache.precision", 5)
	v.SetDefault("cache.sqlite_path", "routemeta-cache.db")
	v.SetDefault("cache.redis_addr", "localhost:6379")
	v.SetDefault("cache.redis_password", "")
	v.SetDefault("cache.redis_db", 0)
	v.SetDefault("cache.redis_prefix", "routemeta:cls:")
	v.SetDefault("cache.redis_ttl", 7*24*time.Hour)

	v.SetDefault("engine.workers", 16)
	v.SetDefault("engine.timeout", 8*time.Second)
	v.SetDefault("engine.fallback", string(roadtype.Unknown))

	v.SetDefault("serve.addr", "127.0.0.1:8080")
	v.SetDefault("serve.max_body_bytes", 4<<20)
	v.SetDefault("serve.max_points", 10000)
	v.SetDefault("serve.max_concurrent", 4)
	v.SetDefault("serve.read_timeout", 15*time.Second)
	v.SetDefault("serve.write_timeout", 30*time.Second)
	v.SetDefault("serve.cors_origin", "*")
}

// BindEnv makes ROUTEMETA_SECTION_KEY override section.key.
func BindEnv(v *viper.Viper) {
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
}

// Load applies the defaults, decodes v and validates the result.
func Load(v *viper.Viper) (Config, error) {
	SetDefaults(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("failed to decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate rejects unknown enum values and non-positive limits.
func (c Config) Validate() error {
	switch c.DataSource {
	case "overpass", "synthetic":
	default:
		return fmt.Errorf("unsupported data source: %s", c.DataSource)
	}
	switch c.LogFormat {
	case "text", "json":
	default:
		return fmt.Errorf("unsupported log format: %s", c.LogFormat)
	}
	switch c.Cache.Backend {
	case "memory", "sqlite", "redis", "none":
	default:
		return fmt.Errorf("unsupported cache backend: %s", c.Cache.Backend)
	}
	if c.Cache.Precision < 0 || c.Cache.Precision > 9 {
		return fmt.Errorf("cache precision must be within [0,9], got %d", c.Cache.Precision)
	}
	if c.Engine.Workers < 1 {
		return fmt.Errorf("engine workers must be positive, got %d", c.Engine.Workers)
	}
	if c.Engine.Timeout <= 0 {
		return fmt.Errorf("engine timeout must be positive, got %s", c.Engine.Timeout)
	}
	for name, color := range c.Colors {
		if !roadtype.ValidColor(color) {
			return fmt.Errorf("invalid color %q for road type %s", color, name)
		}
	}
	return nil
}

// Registry returns a color registry with the configured overrides applied.
func (c Config) Registry() *roadtype.Registry {
	reg := roadtype.NewRegistry()
	for name, color := range c.Colors {
		reg.Register(roadtype.Normalize(name), color)
	}
	return reg
}
