package jwt

import (
	"context"
	"errors"
	"time"

	"maxidp/pkg/cache"
)

const revokedKeyPrefix = "session_revoked:"

/*
 * Blacklist 已注销会话列表
 * 功能：登出时记录会话 JTI，TTL 与会话剩余有效期一致
 */
type Blacklist struct {
	cache cache.Cache
}

/* NewBlacklist c 为 nil 时不启用 */
func NewBlacklist(c cache.Cache) *Blacklist {
	return &Blacklist{cache: c}
}

/*
 * Revoke 注销会话
 * @param jti       - 会话令牌 ID
 * @param expiresAt - 会话过期时间
 */
func (b *Blacklist) Revoke(ctx context.Context, jti string, expiresAt time.Time) error {
	if b == nil || b.cache == nil || jti == "" {
		return nil
	}
	ttl := time.Until(expiresAt)
	if ttl <= 0 {
		return nil
	}
	return b.cache.Set(ctx, revokedKeyPrefix+jti, []byte{1}, ttl)
}

/*
 * IsRevoked 查询会话是否已注销
 * 缓存故障时返回错误，由调用方决定是否放行
 */
func (b *Blacklist) IsRevoked(ctx context.Context, jti string) (bool, error) {
	if b == nil || b.cache == nil || jti == "" {
		return false, nil
	}
	ok, err := b.cache.Exists(ctx, revokedKeyPrefix+jti)
	if err != nil && !errors.Is(err, cache.ErrNotFound) {
		return false, err
	}
	return ok, nil
}
