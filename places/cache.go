package places

import (
	"container/list"
	"context"
	"fmt"
	"sync"
	"time"

	"code.cloudfoundry.org/clock"
	"github.com/redis/go-redis/v9"
)

// Cache stores raw provider responses. A miss is (nil, nil).
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// RedisCache implements Cache using Redis.
type RedisCache struct {
	client    redis.UniversalClient
	keyPrefix string
}

// NewRedisCache creates a new Redis cache.
func NewRedisCache(client redis.UniversalClient, keyPrefix string) *RedisCache {
	if keyPrefix == "" {
		keyPrefix = "places:"
	}
	return &RedisCache{
		client:    client,
		keyPrefix: keyPrefix,
	}
}

// Get retrieves a cached value.
func (c *RedisCache) Get(ctx context.Context, key string) ([]byte, error) {
	val, err := c.client.Get(ctx, c.keyPrefix+key).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("redis get error: %w", err)
	}
	return val, nil
}

// Set stores a value in cache with TTL.
func (c *RedisCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := c.client.Set(ctx, c.keyPrefix+key, value, ttl).Err(); err != nil {
		return fmt.Errorf("redis set error: %w", err)
	}
	return nil
}

const (
	// DefaultCacheEntries caps an InMemoryCache built with maxEntries <= 0.
	DefaultCacheEntries = 10000

	// cacheSweepInterval is the minimum time between expiry sweeps.
	cacheSweepInterval = time.Minute
)

// InMemoryCache implements Cache for tests and single-instance deployments.
// It holds at most maxEntries values, evicting the least recently used, and
// drops expired values in a sweep run from Set at most once a minute.
type InMemoryCache struct {
	clock      clock.Clock
	maxEntries int

	mu        sync.Mutex
	data      map[string]*list.Element
	lru       *list.List // front is most recently used
	nextSweep time.Time
}

type cacheEntry struct {
	key       string
	value     []byte
	expiresAt time.Time
}

// NewInMemoryCache creates an in-memory cache holding up to maxEntries
// values. A nil clk uses the real clock.
func NewInMemoryCache(clk clock.Clock, maxEntries int) *InMemoryCache {
	if clk == nil {
		clk = clock.NewClock()
	}
	if maxEntries <= 0 {
		maxEntries = DefaultCacheEntries
	}
	return &InMemoryCache{
		clock:      clk,
		maxEntries: maxEntries,
		data:       make(map[string]*list.Element),
		lru:        list.New(),
		nextSweep:  clk.Now().Add(cacheSweepInterval),
	}
}

// Get retrieves a cached value.
func (c *InMemoryCache) Get(ctx context.Context, key string) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.data[key]
	if !ok {
		return nil, nil
	}
	entry := el.Value.(*cacheEntry)
	if c.clock.Now().After(entry.expiresAt) {
		c.removeLocked(el)
		return nil, nil
	}
	c.lru.MoveToFront(el)
	return entry.value, nil
}

// Set stores a value in cache with TTL.
func (c *InMemoryCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.clock.Now()
	if !now.Before(c.nextSweep) {
		c.sweepLocked(now)
	}

	expiresAt := now.Add(ttl)
	if el, ok := c.data[key]; ok {
		entry := el.Value.(*cacheEntry)
		entry.value, entry.expiresAt = value, expiresAt
		c.lru.MoveToFront(el)
		return nil
	}

	c.data[key] = c.lru.PushFront(&cacheEntry{key: key, value: value, expiresAt: expiresAt})
	for c.lru.Len() > c.maxEntries {
		c.removeLocked(c.lru.Back())
	}
	return nil
}

// Len returns the number of stored entries. Expired entries count until the
// next sweep or lookup removes them.
func (c *InMemoryCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.data)
}

func (c *InMemoryCache) sweepLocked(now time.Time) {
	for el := c.lru.Front(); el != nil; {
		next := el.Next()
		if now.After(el.Value.(*cacheEntry).expiresAt) {
			c.removeLocked(el)
		}
		el = next
	}
	c.nextSweep = now.Add(cacheSweepInterval)
}

func (c *InMemoryCache) removeLocked(el *list.Element) {
	c.lru.Remove(el)
	delete(c.data, el.Value.(*cacheEntry).key)
}
