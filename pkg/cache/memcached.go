package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bradfitz/gomemcache/memcache"
)

// MemcachedCache stores entries in a memcached pool.
type MemcachedCache struct {
	client     *memcache.Client
	defaultTTL time.Duration
}

// NewMemcachedCache connects to servers ("host:port") and pings them.
func NewMemcachedCache(servers []string, defaultTTL time.Duration) (*MemcachedCache, error) {
	if len(servers) == 0 {
		servers = []string{"localhost:11211"}
	}
	if defaultTTL <= 0 {
		defaultTTL = 5 * time.Minute
	}
	client := memcache.New(servers...)
	client.Timeout = 2 * time.Second
	client.MaxIdleConns = 8
	if err := client.Ping(); err != nil {
		return nil, fmt.Errorf("cache: memcached ping failed: %w", err)
	}
	return &MemcachedCache{client: client, defaultTTL: defaultTTL}, nil
}

// memcached rejects keys longer than 250 bytes or containing whitespace;
// client ids are base64url so they never hit either limit.
func (mc *MemcachedCache) Get(_ context.Context, key string) ([]byte, error) {
	item, err := mc.client.Get(key)
	if errors.Is(err, memcache.ErrCacheMiss) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("cache: memcached get: %w", err)
	}
	return item.Value, nil
}

func (mc *MemcachedCache) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = mc.defaultTTL
	}
	seconds := int32(ttl / time.Second)
	if seconds < 1 {
		seconds = 1
	}
	if err := mc.client.Set(&memcache.Item{Key: key, Value: value, Expiration: seconds}); err != nil {
		return fmt.Errorf("cache: memcached set: %w", err)
	}
	return nil
}

func (mc *MemcachedCache) Delete(_ context.Context, key string) error {
	err := mc.client.Delete(key)
	if err != nil && !errors.Is(err, memcache.ErrCacheMiss) {
		return fmt.Errorf("cache: memcached delete: %w", err)
	}
	return nil
}

func (mc *MemcachedCache) Exists(ctx context.Context, key string) (bool, error) {
	_, err := mc.Get(ctx, key)
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	return err == nil, err
}

// Close is a no-op; gomemcache pools connections internally.
func (mc *MemcachedCache) Close() error { return nil }

func (mc *MemcachedCache) Ping(context.Context) error { return mc.client.Ping() }
