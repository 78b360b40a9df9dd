package querycache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/anonto42/dongne-market/backend/pkg/logger"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"
)

const keyPrefix = "qc"

// Key identifies a query result: a collection name plus its parameters.
// Invalidating a key also drops every key that extends it.
type Key struct {
	parts []string
}

// NewKey builds a key such as messages:12:7 from a collection and parameters.
func NewKey(collection string, params ...any) Key {
	parts := make([]string, 0, len(params)+1)
	parts = append(parts, collection)
	for _, p := range params {
		parts = append(parts, fmt.Sprint(p))
	}
	return Key{parts: parts}
}

func (k Key) String() string {
	return keyPrefix + ":" + strings.Join(k.parts, ":")
}

// Cache stores JSON encoded query results in Redis. A nil *Cache is valid and
// always calls through to the loader.
type Cache struct {
	client *redis.Client
	ttl    time.Duration
	group  singleflight.Group
	gen    atomic.Uint64
}

// New creates a cache whose entries go stale after ttl.
func New(client *redis.Client, ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = time.Minute
	}
	return &Cache{client: client, ttl: ttl}
}

// Fetch returns the cached result for key or loads, stores and returns it.
// Concurrent misses for one key share a single load. A load that overlaps an
// Invalidate is returned to its caller but not stored.
func Fetch[T any](ctx context.Context, c *Cache, key Key, load func(context.Context) (T, error)) (T, error) {
	if c == nil || c.client == nil {
		return load(ctx)
	}
	k := key.String()

	var out T
	raw, err := c.client.Get(ctx, k).Bytes()
	switch {
	case err == nil:
		if jsonErr := json.Unmarshal(raw, &out); jsonErr == nil {
			return out, nil
		}
		logger.Warn().Str("key", k).Msg("discarding undecodable cache entry")
	case !errors.Is(err, redis.Nil):
		logger.Warn().Err(err).Str("key", k).Msg("query cache read failed, loading from source")
		return load(ctx)
	}

	v, err, _ := c.group.Do(k, func() (any, error) {
		gen := c.gen.Load()
		res, err := load(ctx)
		if err != nil {
			return res, err
		}
		if c.gen.Load() == gen {
			c.store(ctx, k, res)
		}
		return res, nil
	})
	if err != nil {
		return out, err
	}
	return v.(T), nil
}

func (c *Cache) store(ctx context.Context, k string, v any) {
	b, err := json.Marshal(v)
	if err != nil {
		logger.Warn().Err(err).Str("key", k).Msg("query result not cacheable")
		return
	}
	if err := c.client.Set(ctx, k, b, c.ttl).Err(); err != nil {
		logger.Warn().Err(err).Str("key", k).Msg("query cache write failed")
	}
}

// Invalidate drops each key and every key extending it.
func (c *Cache) Invalidate(ctx context.Context, keys ...Key) error {
	if c == nil || c.client == nil {
		return nil
	}
	c.gen.Add(1)

	var errs []error
	for _, key := range keys {
		k := key.String()
		doomed := []string{k}
		iter := c.client.Scan(ctx, 0, k+":*", 100).Iterator()
		for iter.Next(ctx) {
			doomed = append(doomed, iter.Val())
		}
		if err := iter.Err(); err != nil {
			errs = append(errs, fmt.Errorf("scan %s: %w", k, err))
		}
		if err := c.client.Del(ctx, doomed...).Err(); err != nil {
			errs = append(errs, fmt.Errorf("delete %s: %w", k, err))
		}
	}
	return errors.Join(errs...)
}
