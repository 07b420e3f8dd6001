/*
 * Package cache 缓存抽象层
 * 功能：统一的 KV 缓存接口，后端可选 memory / redis / memcached / badger
 *       客户端注册信息的读穿缓存建立在此接口之上；客户端密钥从不写入缓存
 */
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

/*
 * Cache 缓存接口
 * 功能：所有后端实现 Get/Set/Delete/Exists/Close/Ping
 */
type Cache interface {
	/* Get 获取值，不存在时返回 ErrNotFound */
	Get(ctx context.Context, key string) ([]byte, error)

	/* Set 存储值，ttl<=0 使用后端默认 TTL */
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	/* Delete 删除 key，key 不存在不视为错误 */
	Delete(ctx context.Context, key string) error

	Exists(ctx context.Context, key string) (bool, error)

	Close() error

	/* Ping 健康检查 */
	Ping(ctx context.Context) error
}

/* ErrNotFound 缓存未命中 */
var ErrNotFound = errors.New("cache: key not found")

/* DefaultPrefix 默认 key 命名空间 */
const DefaultPrefix = "maxidp:"

/*
 * Config 缓存配置
 */
type Config struct {
	Driver           string        // memory | redis | memcached | badger
	RedisURL         string        // redis://host:6379/0
	MemcachedServers []string      // ["host:11211"]
	BadgerPath       string        // 数据目录
	Prefix           string        // key 前缀
	DefaultTTL       time.Duration // 默认 TTL
}

/*
 * New 根据配置创建缓存实例
 * @param cfg - 缓存配置，nil 时使用内存缓存
 * @return Cache - 已加前缀的缓存实例
 */
func New(cfg *Config) (Cache, error) {
	if cfg == nil {
		cfg = &Config{Driver: "memory"}
	}
	ttl := cfg.DefaultTTL
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	prefix := cfg.Prefix
	if prefix == "" {
		prefix = DefaultPrefix
	}

	var (
		backend Cache
		err     error
	)
	switch cfg.Driver {
	case "memory", "":
		backend = NewMemoryCache(ttl)
	case "redis":
		backend, err = NewRedisCache(cfg.RedisURL, ttl)
	case "memcached":
		backend, err = NewMemcachedCache(cfg.MemcachedServers, ttl)
	case "badger":
		backend, err = NewBadgerCache(cfg.BadgerPath, ttl)
	default:
		return nil, fmt.Errorf("unsupported cache driver: %s (supported: memory, redis, memcached, badger)", cfg.Driver)
	}
	if err != nil {
		return nil, err
	}
	return WithPrefix(backend, prefix), nil
}

/* ========== key 前缀包装 ========== */

type prefixed struct {
	Cache
	prefix string
}

/*
 * WithPrefix 为缓存所有 key 加上命名空间前缀
 * @param c      - 底层缓存
 * @param prefix - 前缀，空字符串时原样返回
 */
func WithPrefix(c Cache, prefix string) Cache {
	if prefix == "" {
		return c
	}
	return &prefixed{Cache: c, prefix: prefix}
}

func (p *prefixed) Get(ctx context.Context, key string) ([]byte, error) {
	return p.Cache.Get(ctx, p.prefix+key)
}

func (p *prefixed) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return p.Cache.Set(ctx, p.prefix+key, value, ttl)
}

func (p *prefixed) Delete(ctx context.Context, key string) error {
	return p.Cache.Delete(ctx, p.prefix+key)
}

func (p *prefixed) Exists(ctx context.Context, key string) (bool, error) {
	return p.Cache.Exists(ctx, p.prefix+key)
}

/* ========== JSON 辅助函数 ========== */

/*
 * GetJSON 获取并反序列化 JSON 缓存值
 * @return T - 反序列化结果；未命中时返回 ErrNotFound
 */
func GetJSON[T any](ctx context.Context, c Cache, key string) (T, error) {
	var result T
	data, err := c.Get(ctx, key)
	if err != nil {
		return result, err
	}
	if err := json.Unmarshal(data, &result); err != nil {
		return result, fmt.Errorf("cache: unmarshal %s: %w", key, err)
	}
	return result, nil
}

/* SetJSON 序列化并写入缓存 */
func SetJSON(ctx context.Context, c Cache, key string, value any, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("cache: marshal %s: %w", key, err)
	}
	return c.Set(ctx, key, data, ttl)
}
