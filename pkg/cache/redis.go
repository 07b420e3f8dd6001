package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisCache stores entries in Redis; shared by every IdP instance behind a load balancer.
type RedisCache struct {
	client     redis.UniversalClient
	defaultTTL time.Duration
}

// NewRedisCache dials redisURL and verifies the connection.
func NewRedisCache(redisURL string, defaultTTL time.Duration) (*RedisCache, error) {
	if redisURL == "" {
		redisURL = "redis://localhost:6379/0"
	}
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("cache: invalid redis URL: %w", err)
	}
	opts.PoolSize = 20
	opts.MinIdleConns = 2
	opts.DialTimeout = 5 * time.Second
	opts.ReadTimeout = 2 * time.Second
	opts.WriteTimeout = 2 * time.Second

	client := redis.NewClient(opts)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("cache: redis ping failed: %w", err)
	}
	return NewRedisCacheFromClient(client, defaultTTL), nil
}

// NewRedisCacheFromClient wraps an existing client.
func NewRedisCacheFromClient(client redis.UniversalClient, defaultTTL time.Duration) *RedisCache {
	if defaultTTL <= 0 {
		defaultTTL = 5 * time.Minute
	}
	return &RedisCache{client: client, defaultTTL: defaultTTL}
}

func (rc *RedisCache) Get(ctx context.Context, key string) ([]byte, error) {
	data, err := rc.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("cache: redis get: %w", err)
	}
	return data, nil
}

func (rc *RedisCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = rc.defaultTTL
	}
	if err := rc.client.Set(ctx, key, value, ttl).Err(); err != nil {
		return fmt.Errorf("cache: redis set: %w", err)
	}
	return nil
}

func (rc *RedisCache) Delete(ctx context.Context, key string) error {
	if err := rc.client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("cache: redis del: %w", err)
	}
	return nil
}

func (rc *RedisCache) Exists(ctx context.Context, key string) (bool, error) {
	n, err := rc.client.Exists(ctx, key).Result()
	if err != nil {
		return false, fmt.Errorf("cache: redis exists: %w", err)
	}
	return n > 0, nil
}

func (rc *RedisCache) Close() error { return rc.client.Close() }

func (rc *RedisCache) Ping(ctx context.Context) error { return rc.client.Ping(ctx).Err() }
