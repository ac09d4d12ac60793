package registry

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/redis/go-redis/v9"
)

// RouteCache stores resolved routes. Implementations must be safe for
// concurrent use.
type RouteCache interface {
	// Get returns the cached route of tld and whether it was present.
	Get(ctx context.Context, tld string) (Route, bool, error)
	Set(ctx context.Context, route Route) error
	// Clear drops every cached route.
	Clear(ctx context.Context) error
}

// MemoryCache is a process-local RouteCache.
type MemoryCache struct {
	mu     sync.RWMutex
	routes map[string]Route
}

// NewMemoryCache creates an empty MemoryCache.
func NewMemoryCache() *MemoryCache {
	return &MemoryCache{routes: make(map[string]Route)}
}

func (c *MemoryCache) Get(_ context.Context, tld string) (Route, bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	r, ok := c.routes[tld]

	return r, ok, nil
}

func (c *MemoryCache) Set(_ context.Context, route Route) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.routes[route.TLD] = route

	return nil
}

func (c *MemoryCache) Clear(context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.routes = make(map[string]Route)

	return nil
}

// RedisCache keeps routes in a single Redis hash so several processes share
// resolutions and Clear is one DEL.
type RedisCache struct {
	client redis.UniversalClient
	key    string
}

// NewRedisCache stores routes under the hash key.
func NewRedisCache(client redis.UniversalClient, key string) *RedisCache {
	return &RedisCache{client: client, key: key}
}

func (c *RedisCache) Get(ctx context.Context, tld string) (Route, bool, error) {
	b, err := c.client.HGet(ctx, c.key, tld).Bytes()
	if err == redis.Nil { //nolint: errorlint
		return Route{}, false, nil
	}
	if err != nil {
		return Route{}, false, fmt.Errorf("could not read route: %w", err)
	}

	var r Route
	if err := json.Unmarshal(b, &r); err != nil {
		// A corrupt entry is a miss; it gets overwritten on the next Set.
		return Route{}, false, nil //nolint: nilerr
	}

	return r, true, nil
}

func (c *RedisCache) Set(ctx context.Context, route Route) error {
	b, err := json.Marshal(route)
	if err != nil {
		return fmt.Errorf("could not marshal route: %w", err)
	}
	if err := c.client.HSet(ctx, c.key, route.TLD, b).Err(); err != nil {
		return fmt.Errorf("could not store route: %w", err)
	}

	return nil
}

func (c *RedisCache) Clear(ctx context.Context) error {
	if err := c.client.Del(ctx, c.key).Err(); err != nil {
		return fmt.Errorf("could not clear routes: %w", err)
	}

	return nil
}

// NewRedisClient connects to the Redis URL and pings it.
func NewRedisClient(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("could not parse redis url: %w", err)
	}

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()

		return nil, fmt.Errorf("could not ping redis: %w", err)
	}

	return client, nil
}
