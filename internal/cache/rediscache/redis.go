// Package rediscache shares classifications between instances through Redis.
package rediscache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/MeKo-Tech/routemeta/internal/cache"
)

// DefaultPrefix namespaces cache keys in a shared Redis.
const DefaultPrefix = "routemeta:cls:"

// Options configures the Redis store.
type Options struct {
	Addr     string
	Password string
	DB       int
	Prefix   string
	// TTL expires entries; 0 keeps them forever.
	TTL time.Duration
}

var _ cache.Store = (*Store)(nil)

// Store shares classifications between several service instances.
type Store struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
	owned  bool
}

// Connect dials Redis and verifies the connection.
func Connect(ctx context.Context, opts Options) (*Store, error) {
	if opts.Addr == "" {
		return nil, errors.New("redis address is required")
	}

	client := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to ping redis at %s: %w", opts.Addr, err)
	}

	r := New(client, opts.Prefix, opts.TTL)
	r.owned = true
	return r, nil
}

// New wraps an existing client. The client is not closed by Close.
func New(client *redis.Client, prefix string, ttl time.Duration) *Store {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return &Store{client: client, prefix: prefix, ttl: ttl}
}

func (r *Store) Get(ctx context.Context, key string) (cache.Entry, error) {
	raw, err := r.client.Get(ctx, r.prefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return cache.Entry{}, cache.ErrMiss
	}
	if err != nil {
		return cache.Entry{}, fmt.Errorf("redis get %s: %w", key, err)
	}

	var e cache.Entry
	if err := json.Unmarshal(raw, &e); err != nil {
		// Treat undecodable values as absent so they get rewritten.
		return cache.Entry{}, cache.ErrMiss
	}
	return e, nil
}

func (r *Store) Put(ctx context.Context, key string, e cache.Entry) error {
	raw, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("encode entry %s: %w", key, err)
	}
	if err := r.client.Set(ctx, r.prefix+key, raw, r.ttl).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", key, err)
	}
	return nil
}

// Len counts the keys under the store prefix.
func (r *Store) Len(ctx context.Context) (int, error) {
	var (
		cursor uint64
		count  int
	)
	for {
		keys, next, err := r.client.Scan(ctx, cursor, r.prefix+"*", 500).Result()
		if err != nil {
			return 0, fmt.Errorf("redis scan: %w", err)
		}
		count += len(keys)
		if next == 0 {
			return count, nil
		}
		cursor = next
	}
}

func (r *Store) Close() error {
	if !r.owned {
		return nil
	}
	return r.client.Close()
}
