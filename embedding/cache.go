package embedding

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Cache memoizes computed vectors. It is a pure latency optimization:
// removing it never changes retrieval results. Entries are inserted on first
// computation and only removed by an explicit Clear.
type Cache interface {
	Get(ctx context.Context, key string) ([]float32, bool)
	Set(ctx context.Context, key string, vec []float32)
	Clear(ctx context.Context)
	Stats(ctx context.Context) CacheStats
}

// CacheStats reports cache occupancy.
type CacheStats struct {
	Size int
	Keys []string
}

// MemoryCache is the default in-process cache. Append-only under normal
// operation, so a single RWMutex suffices.
type MemoryCache struct {
	mu      sync.RWMutex
	entries map[string][]float32
}

// NewMemoryCache creates an empty in-process cache.
func NewMemoryCache() *MemoryCache {
	return &MemoryCache{entries: make(map[string][]float32)}
}

func (c *MemoryCache) Get(ctx context.Context, key string) ([]float32, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	vec, ok := c.entries[key]
	return vec, ok
}

func (c *MemoryCache) Set(ctx context.Context, key string, vec []float32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = vec
}

func (c *MemoryCache) Clear(ctx context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string][]float32)
}

func (c *MemoryCache) Stats(ctx context.Context) CacheStats {
	c.mu.RLock()
	defer c.mu.RUnlock()

	stats := CacheStats{Size: len(c.entries)}
	for k := range c.entries {
		preview := k
		if runes := []rune(k); len(runes) > 50 {
			preview = string(runes[:50]) + "..."
		}
		stats.Keys = append(stats.Keys, preview)
	}
	return stats
}

// RedisCache layers a Redis tier over an in-process MemoryCache so warmed
// embeddings survive process restarts. All Redis failures degrade to cache
// misses; the memoization invariant holds either way.
type RedisCache struct {
	client *redis.Client
	local  *MemoryCache
	prefix string
	ttl    time.Duration
}

// RedisOptions configure the Redis cache tier.
type RedisOptions struct {
	Addr     string
	Password string
	DB       int
	Prefix   string        // key prefix, default "campusrag:embed:"
	TTL      time.Duration // expiration, default 0 (no expiration)
}

// NewRedisCache creates a two-tier cache backed by Redis.
func NewRedisCache(opts RedisOptions) *RedisCache {
	prefix := opts.Prefix
	if prefix == "" {
		prefix = "campusrag:embed:"
	}
	return &RedisCache{
		client: redis.NewClient(&redis.Options{
			Addr:     opts.Addr,
			Password: opts.Password,
			DB:       opts.DB,
		}),
		local:  NewMemoryCache(),
		prefix: prefix,
		ttl:    opts.TTL,
	}
}

func (c *RedisCache) Get(ctx context.Context, key string) ([]float32, bool) {
	if vec, ok := c.local.Get(ctx, key); ok {
		return vec, true
	}

	data, err := c.client.Get(ctx, c.prefix+key).Bytes()
	if err != nil {
		return nil, false
	}
	var vec []float32
	if err := json.Unmarshal(data, &vec); err != nil {
		return nil, false
	}
	c.local.Set(ctx, key, vec)
	return vec, true
}

func (c *RedisCache) Set(ctx context.Context, key string, vec []float32) {
	c.local.Set(ctx, key, vec)

	data, err := json.Marshal(vec)
	if err != nil {
		return
	}
	_ = c.client.Set(ctx, c.prefix+key, data, c.ttl).Err()
}

func (c *RedisCache) Clear(ctx context.Context) {
	c.local.Clear(ctx)

	iter := c.client.Scan(ctx, 0, c.prefix+"*", 0).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if len(keys) > 0 {
		_ = c.client.Del(ctx, keys...).Err()
	}
}

func (c *RedisCache) Stats(ctx context.Context) CacheStats {
	return c.local.Stats(ctx)
}

// Close releases the Redis connection.
func (c *RedisCache) Close() error {
	return c.client.Close()
}
