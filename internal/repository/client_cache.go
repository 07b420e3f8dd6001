package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"maxidp/internal/model"
	"maxidp/pkg/cache"
	"maxidp/pkg/logger"
)

const clientCacheKeyPrefix = "client:"

/* cachedClient 缓存中的客户端快照；不含密钥 */
type cachedClient struct {
	ID          string      `json:"id"`
	Name        string      `json:"name"`
	Description string      `json:"description,omitempty"`
	LogoURL     string      `json:"logo_url,omitempty"`
	OwnerID     uuid.UUID   `json:"owner_id"`
	CreatedAt   time.Time   `json:"created_at"`
	UpdatedAt   time.Time   `json:"updated_at"`
	Callbacks   []string    `json:"callbacks"`
	Scopes      []int       `json:"scopes"`
	Managers    []uuid.UUID `json:"managers"`
}

func snapshotClient(c *model.Client) cachedClient {
	managers := make([]uuid.UUID, len(c.Managers))
	for i, m := range c.Managers {
		managers[i] = m.UserID
	}
	return cachedClient{
		ID:          c.ID,
		Name:        c.Name,
		Description: c.Description,
		LogoURL:     c.LogoURL,
		OwnerID:     c.OwnerID,
		CreatedAt:   c.CreatedAt,
		UpdatedAt:   c.UpdatedAt,
		Callbacks:   c.CallbackURLs(),
		Scopes:      c.ScopeIDs(),
		Managers:    managers,
	}
}

func (s cachedClient) toModel() *model.Client {
	c := &model.Client{
		ID:          s.ID,
		Name:        s.Name,
		Description: s.Description,
		LogoURL:     s.LogoURL,
		OwnerID:     s.OwnerID,
		CreatedAt:   s.CreatedAt,
		UpdatedAt:   s.UpdatedAt,
	}
	for _, cb := range s.Callbacks {
		c.Callbacks = append(c.Callbacks, model.ClientCallback{ClientID: s.ID, CallbackURL: cb})
	}
	for _, id := range s.Scopes {
		c.Scopes = append(c.Scopes, model.ClientScope{ClientID: s.ID, ScopeID: id})
	}
	for _, uid := range s.Managers {
		c.Managers = append(c.Managers, model.ClientManager{ClientID: s.ID, UserID: uid})
	}
	return c
}

/*
 * CachedClientRepository 带读穿缓存的客户端仓储
 * 功能：GetClientByID 先查缓存，未命中回源数据库并以固定 TTL 写入
 *       所有写操作成功后删除对应缓存；密钥不进入缓存
 *       缓存故障时降级为直接查库
 */
type CachedClientRepository struct {
	*ClientRepository
	cache cache.Cache
	ttl   time.Duration
}

/*
 * NewCachedClientRepository 创建带缓存的客户端仓储
 * @param repo - 基础仓储
 * @param c    - 缓存实例
 * @param ttl  - 缓存 TTL
 */
func NewCachedClientRepository(repo *ClientRepository, c cache.Cache, ttl time.Duration) *CachedClientRepository {
	if ttl <= 0 {
		ttl = time.Minute
	}
	return &CachedClientRepository{ClientRepository: repo, cache: c, ttl: ttl}
}

func clientKey(id string) string { return clientCacheKeyPrefix + id }

/* GetClientByID 读穿缓存；未找到的客户端不缓存 */
func (r *CachedClientRepository) GetClientByID(ctx context.Context, clientID string) (*model.Client, error) {
	snap, err := cache.GetJSON[cachedClient](ctx, r.cache, clientKey(clientID))
	if err == nil {
		return snap.toModel(), nil
	}
	if !errors.Is(err, cache.ErrNotFound) {
		logger.WithContext(ctx).Warn("Client cache read failed", "client_id", clientID, "error", err)
	}

	c, err := r.ClientRepository.GetClientByID(ctx, clientID)
	if err != nil {
		return nil, err
	}
	if err := cache.SetJSON(ctx, r.cache, clientKey(clientID), snapshotClient(c), r.ttl); err != nil {
		logger.WithContext(ctx).Warn("Client cache write failed", "client_id", clientID, "error", err)
	}
	return c, nil
}

/* Invalidate 删除客户端缓存 */
func (r *CachedClientRepository) Invalidate(ctx context.Context, clientID string) {
	if err := r.cache.Delete(ctx, clientKey(clientID)); err != nil {
		logger.WithContext(ctx).Warn("Client cache invalidation failed", "client_id", clientID, "error", err)
	}
}

func (r *CachedClientRepository) UpdateInfo(ctx context.Context, clientID string, fields map[string]any) error {
	defer r.Invalidate(ctx, clientID)
	return r.ClientRepository.UpdateInfo(ctx, clientID, fields)
}

func (r *CachedClientRepository) ReplaceCallbacks(ctx context.Context, clientID string, callbacks []string) error {
	defer r.Invalidate(ctx, clientID)
	return r.ClientRepository.ReplaceCallbacks(ctx, clientID, callbacks)
}

func (r *CachedClientRepository) ReplaceScopes(ctx context.Context, clientID string, scopeIDs []int) error {
	defer r.Invalidate(ctx, clientID)
	return r.ClientRepository.ReplaceScopes(ctx, clientID, scopeIDs)
}

func (r *CachedClientRepository) AddManager(ctx context.Context, clientID string, userID uuid.UUID) error {
	defer r.Invalidate(ctx, clientID)
	return r.ClientRepository.AddManager(ctx, clientID, userID)
}

func (r *CachedClientRepository) RemoveManager(ctx context.Context, clientID string, userID uuid.UUID) error {
	defer r.Invalidate(ctx, clientID)
	return r.ClientRepository.RemoveManager(ctx, clientID, userID)
}

func (r *CachedClientRepository) Delete(ctx context.Context, clientID string) error {
	defer r.Invalidate(ctx, clientID)
	return r.ClientRepository.Delete(ctx, clientID)
}
