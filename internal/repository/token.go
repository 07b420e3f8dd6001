package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"maxidp/internal/model"
)

var (
	ErrTokenNotFound = errors.New("token not found")
	ErrCodeCollision = errors.New("authorization code already exists")
)

/*
 * TokenRepository 令牌记录仓储（Token Store）
 * 功能：授权码签发、按授权码 / 访问令牌查找、条件更新完成兑换、撤销、过期清理
 */
type TokenRepository struct {
	db *gorm.DB
}

/* NewTokenRepository 创建令牌仓储实例 */
func NewTokenRepository(db *gorm.DB) *TokenRepository {
	return &TokenRepository{db: db}
}

/*
 * CreateAccessToken 写入 PENDING 状态的令牌记录及其权限范围
 * 一个事务内完成，失败时不留下任何行
 * 访问令牌值在兑换时由 SetCodeUsed 写入
 * @param t        - 令牌记录（ClientID / UserID / Code / CodeExpiresAt / RedirectURI）
 * @param scopeIDs - 已校验的权限范围
 */
func (r *TokenRepository) CreateAccessToken(ctx context.Context, t *model.Token, scopeIDs []int) error {
	t.CodeExpiresAt = t.CodeExpiresAt.UTC()
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit("Scopes", "Client").Create(t).Error; err != nil {
			return err
		}
		if len(scopeIDs) == 0 {
			return nil
		}
		rows := make([]model.TokenScope, len(scopeIDs))
		for i, id := range scopeIDs {
			rows[i] = model.TokenScope{TokenID: t.ID, ScopeID: id}
		}
		if err := tx.Create(&rows).Error; err != nil {
			return err
		}
		t.Scopes = rows
		return nil
	})
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return ErrCodeCollision
	}
	return err
}

/*
 * GetTokenByCode 按授权码查找，预加载客户端（含密钥哈希）与权限范围
 * 仅供兑换流程比对密钥使用
 */
func (r *TokenRepository) GetTokenByCode(ctx context.Context, code string) (*model.Token, error) {
	return r.first(ctx, r.db.WithContext(ctx).
		Preload("Scopes").
		Preload("Client").
		Preload("Client.Secrets").
		Where("code = ?", code))
}

/* GetTokenByAccessToken 按访问令牌查找，预加载客户端与权限范围 */
func (r *TokenRepository) GetTokenByAccessToken(ctx context.Context, accessToken string) (*model.Token, error) {
	return r.first(ctx, r.db.WithContext(ctx).
		Preload("Scopes").
		Preload("Client").
		Where("access_token = ?", accessToken))
}

/* GetTokenByID 按记录 ID 查找 */
func (r *TokenRepository) GetTokenByID(ctx context.Context, id uint64) (*model.Token, error) {
	return r.first(ctx, r.db.WithContext(ctx).Preload("Scopes").Where("id = ?", id))
}

func (r *TokenRepository) first(_ context.Context, q *gorm.DB) (*model.Token, error) {
	var t model.Token
	err := q.First(&t).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrTokenNotFound
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}

/*
 * SetCodeUsed 以单条条件更新完成兑换
 *
 *	UPDATE tokens SET code_used = true, access_token = ?, access_token_expires_at = ?
 *	 WHERE code = ? AND client_id = ? AND code_used = false AND code_expires_at > ?
 *
 * 受影响行数为 1 表示本次调用赢得兑换；0 表示授权码已被使用、已过期或不存在
 * @return won - 是否完成兑换
 */
func (r *TokenRepository) SetCodeUsed(ctx context.Context, code, clientID, accessToken string, accessTokenExpiresAt, now time.Time) (won bool, err error) {
	res := r.db.WithContext(ctx).Model(&model.Token{}).
		Where("code = ? AND client_id = ? AND code_used = ? AND code_expires_at > ?", code, clientID, false, now.UTC()).
		Updates(map[string]any{
			"code_used":               true,
			"access_token":            accessToken,
			"access_token_expires_at": accessTokenExpiresAt.UTC(),
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

/*
 * DeleteTokenByID 撤销令牌（连同权限范围）
 * @return error - 记录不存在返回 ErrTokenNotFound
 */
func (r *TokenRepository) DeleteTokenByID(ctx context.Context, id uint64) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("token_id = ?", id).Delete(&model.TokenScope{}).Error; err != nil {
			return err
		}
		res := tx.Where("id = ?", id).Delete(&model.Token{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrTokenNotFound
		}
		return nil
	})
}

/*
 * ListActiveByUser 成员当前有效的访问令牌（用于授权管理页面）
 */
func (r *TokenRepository) ListActiveByUser(ctx context.Context, userID uuid.UUID, now time.Time) ([]model.Token, error) {
	var tokens []model.Token
	err := r.db.WithContext(ctx).
		Preload("Scopes").
		Preload("Client").
		Where("user_id = ? AND code_used = ? AND access_token_expires_at > ?", userID, true, now.UTC()).
		Order("id DESC").
		Find(&tokens).Error
	return tokens, err
}

/*
 * DeleteExpired 清理过期记录
 * 未兑换且授权码已过期的记录；已兑换且访问令牌已过期的记录
 * 正确性不依赖此清理，过期记录在查询时按时间戳排除
 * @return int64 - 删除的令牌记录数
 */
func (r *TokenRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	now = now.UTC()
	var deleted int64
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var ids []uint64
		if err := tx.Model(&model.Token{}).Where(
			"(code_used = ? AND code_expires_at <= ?) OR (code_used = ? AND access_token_expires_at <= ?)",
			false, now, true, now).Pluck("id", &ids).Error; err != nil {
			return err
		}
		if len(ids) == 0 {
			return nil
		}
		if err := tx.Where("token_id IN ?", ids).Delete(&model.TokenScope{}).Error; err != nil {
			return err
		}
		res := tx.Where("id IN ?", ids).Delete(&model.Token{})
		deleted = res.RowsAffected
		return res.Error
	})
	return deleted, err
}
