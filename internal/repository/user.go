/*
 * Package repository 数据仓储层
 * 功能：客户端登记（Client Store）、令牌记录（Token Store）、成员的数据库访问
 *       所有方法接收 context，未命中返回对应的哨兵错误
 */
package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"maxidp/internal/model"
)

var (
	ErrUserNotFound      = errors.New("user not found")
	ErrUserAlreadyExists = errors.New("user already exists")
)

/*
 * UserRepository 成员仓储
 */
type UserRepository struct {
	db *gorm.DB
}

/*
 * NewUserRepository 创建成员仓储实例
 * @param db - GORM 数据库连接
 */
func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{db: db}
}

/*
 * Create 创建成员
 * @return error - 用户名或邮箱重复时返回 ErrUserAlreadyExists
 */
func (r *UserRepository) Create(ctx context.Context, user *model.User) error {
	if err := r.db.WithContext(ctx).Create(user).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return ErrUserAlreadyExists
		}
		return err
	}
	return nil
}

/* FindByID 按 ID 查找 */
func (r *UserRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.User, error) {
	return r.first(ctx, "id = ?", id)
}

/* FindByUsername 按用户名查找（用户名入库前已转小写） */
func (r *UserRepository) FindByUsername(ctx context.Context, username string) (*model.User, error) {
	return r.first(ctx, "username = ?", username)
}

/* UpdatePasswordHash 登录时透明升级 bcrypt cost */
func (r *UserRepository) UpdatePasswordHash(ctx context.Context, id uuid.UUID, hash string) error {
	return r.db.WithContext(ctx).Model(&model.User{}).Where("id = ?", id).Update("password_hash", hash).Error
}

func (r *UserRepository) first(ctx context.Context, query string, args ...any) (*model.User, error) {
	var u model.User
	err := r.db.WithContext(ctx).Where(query, args...).First(&u).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}
