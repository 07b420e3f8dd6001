package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"maxidp/internal/model"
)

var (
	ErrClientNotFound    = errors.New("client not found")
	ErrSecretNotFound    = errors.New("client secret not found")
	ErrManagerNotFound   = errors.New("client manager not found")
	ErrManagerExists     = errors.New("user already manages this client")
	ErrClientIDCollision = errors.New("client id already exists")
)

/*
 * ClientRepository 客户端登记仓储（Client Store）
 * 功能：客户端及其回调地址、权限范围、密钥、管理者的读写
 *       GetClientByID 不加载密钥；密钥只随授权码一起查询，用于比对
 */
type ClientRepository struct {
	db *gorm.DB
}

/* NewClientRepository 创建客户端仓储实例 */
func NewClientRepository(db *gorm.DB) *ClientRepository {
	return &ClientRepository{db: db}
}

/*
 * GetClientByID 查找客户端（含回调地址、权限范围、管理者）
 * @return error - 未找到返回 ErrClientNotFound
 */
func (r *ClientRepository) GetClientByID(ctx context.Context, clientID string) (*model.Client, error) {
	var c model.Client
	err := r.db.WithContext(ctx).
		Preload("Callbacks").
		Preload("Scopes").
		Preload("Managers").
		First(&c, "id = ?", clientID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrClientNotFound
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

/*
 * ListForUser 成员拥有或管理的客户端
 * @param userID - 成员 ID
 */
func (r *ClientRepository) ListForUser(ctx context.Context, userID uuid.UUID) ([]model.Client, error) {
	var clients []model.Client
	managed := r.db.Model(&model.ClientManager{}).Select("client_id").Where("user_id = ?", userID)
	err := r.db.WithContext(ctx).
		Preload("Callbacks").
		Preload("Scopes").
		Where("owner_id = ? OR id IN (?)", userID, managed).
		Order("created_at").
		Find(&clients).Error
	return clients, err
}

/* ListAll 全部客户端（管理员） */
func (r *ClientRepository) ListAll(ctx context.Context) ([]model.Client, error) {
	var clients []model.Client
	err := r.db.WithContext(ctx).Preload("Callbacks").Preload("Scopes").Order("created_at").Find(&clients).Error
	return clients, err
}

/*
 * Create 在一个事务内写入客户端、回调地址、权限范围和首个密钥
 * @param c        - 客户端（ID 由调用方生成）
 * @param callbacks - 回调地址
 * @param scopeIDs - 权限范围
 * @param secret   - 首个密钥（已哈希）
 */
func (r *ClientRepository) Create(ctx context.Context, c *model.Client, callbacks []string, scopeIDs []int, secret *model.ClientSecret) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit("Callbacks", "Scopes", "Secrets", "Managers").Create(c).Error; err != nil {
			return err
		}
		if err := insertCallbacks(tx, c.ID, callbacks); err != nil {
			return err
		}
		if err := insertScopes(tx, c.ID, scopeIDs); err != nil {
			return err
		}
		secret.ClientID = c.ID
		return tx.Create(secret).Error
	})
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return ErrClientIDCollision
	}
	return err
}

/*
 * UpdateInfo 修改名称、描述、图标
 * @param fields - 列名 → 新值
 */
func (r *ClientRepository) UpdateInfo(ctx context.Context, clientID string, fields map[string]any) error {
	if len(fields) == 0 {
		return nil
	}
	res := r.db.WithContext(ctx).Model(&model.Client{}).Where("id = ?", clientID).Updates(fields)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrClientNotFound
	}
	return nil
}

/* ReplaceCallbacks 整体替换回调地址白名单 */
func (r *ClientRepository) ReplaceCallbacks(ctx context.Context, clientID string, callbacks []string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := mustExist(tx, clientID); err != nil {
			return err
		}
		if err := tx.Where("client_id = ?", clientID).Delete(&model.ClientCallback{}).Error; err != nil {
			return err
		}
		return insertCallbacks(tx, clientID, callbacks)
	})
}

/*
 * ReplaceScopes 整体替换允许申请的权限范围
 * 已签发令牌的权限范围不受影响
 */
func (r *ClientRepository) ReplaceScopes(ctx context.Context, clientID string, scopeIDs []int) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := mustExist(tx, clientID); err != nil {
			return err
		}
		if err := tx.Where("client_id = ?", clientID).Delete(&model.ClientScope{}).Error; err != nil {
			return err
		}
		return insertScopes(tx, clientID, scopeIDs)
	})
}

/* AddSecret 新增密钥（轮换时与旧密钥并存） */
func (r *ClientRepository) AddSecret(ctx context.Context, secret *model.ClientSecret) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := mustExist(tx, secret.ClientID); err != nil {
			return err
		}
		return tx.Create(secret).Error
	})
}

/* ListSecrets 密钥元数据，按签发时间排序 */
func (r *ClientRepository) ListSecrets(ctx context.Context, clientID string) ([]model.ClientSecret, error) {
	var secrets []model.ClientSecret
	err := r.db.WithContext(ctx).Where("client_id = ?", clientID).Order("issued_at").Find(&secrets).Error
	return secrets, err
}

/* DeleteSecret 吊销一个密钥 */
func (r *ClientRepository) DeleteSecret(ctx context.Context, clientID string, secretID uuid.UUID) error {
	res := r.db.WithContext(ctx).Where("client_id = ? AND id = ?", clientID, secretID).Delete(&model.ClientSecret{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrSecretNotFound
	}
	return nil
}

/* AddManager 添加管理者 */
func (r *ClientRepository) AddManager(ctx context.Context, clientID string, userID uuid.UUID) error {
	err := r.db.WithContext(ctx).Create(&model.ClientManager{ClientID: clientID, UserID: userID}).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return ErrManagerExists
	}
	return err
}

/* ListManagers 管理者及其成员信息 */
func (r *ClientRepository) ListManagers(ctx context.Context, clientID string) ([]model.ClientManager, error) {
	var managers []model.ClientManager
	err := r.db.WithContext(ctx).Preload("User").Where("client_id = ?", clientID).Order("created_at").Find(&managers).Error
	return managers, err
}

/* RemoveManager 移除管理者 */
func (r *ClientRepository) RemoveManager(ctx context.Context, clientID string, userID uuid.UUID) error {
	res := r.db.WithContext(ctx).Where("client_id = ? AND user_id = ?", clientID, userID).Delete(&model.ClientManager{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrManagerNotFound
	}
	return nil
}

/*
 * Delete 删除客户端，在同一事务内按依赖顺序级联
 * 令牌权限范围 → 令牌 → 权限范围 → 回调 → 密钥 → 管理者 → 客户端
 * 不依赖存储引擎的外键级联
 */
func (r *ClientRepository) Delete(ctx context.Context, clientID string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := mustExist(tx, clientID); err != nil {
			return err
		}
		tokenIDs := tx.Model(&model.Token{}).Select("id").Where("client_id = ?", clientID)
		steps := []struct {
			name string
			run  func() error
		}{
			{"token scopes", func() error { return tx.Where("token_id IN (?)", tokenIDs).Delete(&model.TokenScope{}).Error }},
			{"tokens", func() error { return tx.Where("client_id = ?", clientID).Delete(&model.Token{}).Error }},
			{"scopes", func() error { return tx.Where("client_id = ?", clientID).Delete(&model.ClientScope{}).Error }},
			{"callbacks", func() error { return tx.Where("client_id = ?", clientID).Delete(&model.ClientCallback{}).Error }},
			{"secrets", func() error { return tx.Where("client_id = ?", clientID).Delete(&model.ClientSecret{}).Error }},
			{"managers", func() error { return tx.Where("client_id = ?", clientID).Delete(&model.ClientManager{}).Error }},
			{"client", func() error { return tx.Where("id = ?", clientID).Delete(&model.Client{}).Error }},
		}
		for _, s := range steps {
			if err := s.run(); err != nil {
				return fmt.Errorf("delete client %s: %w", s.name, err)
			}
		}
		return nil
	})
}

func mustExist(tx *gorm.DB, clientID string) error {
	var n int64
	if err := tx.Model(&model.Client{}).Where("id = ?", clientID).Count(&n).Error; err != nil {
		return err
	}
	if n == 0 {
		return ErrClientNotFound
	}
	return nil
}

func insertCallbacks(tx *gorm.DB, clientID string, callbacks []string) error {
	if len(callbacks) == 0 {
		return nil
	}
	rows := make([]model.ClientCallback, len(callbacks))
	for i, cb := range callbacks {
		rows[i] = model.ClientCallback{ClientID: clientID, CallbackURL: cb}
	}
	return tx.Create(&rows).Error
}

func insertScopes(tx *gorm.DB, clientID string, scopeIDs []int) error {
	if len(scopeIDs) == 0 {
		return nil
	}
	rows := make([]model.ClientScope, len(scopeIDs))
	for i, id := range scopeIDs {
		rows[i] = model.ClientScope{ClientID: clientID, ScopeID: id}
	}
	return tx.Create(&rows).Error
}
