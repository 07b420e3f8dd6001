/*
 * Package model 数据模型层
 * 功能：成员、OAuth 客户端及其附属表、令牌记录的 GORM 模型
 */
package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"maxidp/internal/registry"
)

/* MembershipStatus 会籍状态 */
type MembershipStatus string

const (
	MembershipActive   MembershipStatus = "active"
	MembershipInactive MembershipStatus = "inactive"
	MembershipAlumni   MembershipStatus = "alumni"
)

/*
 * User 社团成员
 * 功能：授权端点的资源所有者，也是客户端的所有者 / 管理者
 * 表名：users
 */
type User struct {
	ID               uuid.UUID        `gorm:"size:36;primaryKey" json:"id"`
	Username         string           `gorm:"uniqueIndex;size:40;not null" json:"username"`
	Email            string           `gorm:"uniqueIndex;size:254;not null" json:"email"`
	DisplayName      string           `gorm:"size:100" json:"display_name"`
	PasswordHash     string           `gorm:"size:100;not null" json:"-"`
	RoleID           int              `gorm:"not null;default:3" json:"role_id"`
	MembershipStatus MembershipStatus `gorm:"size:20;not null;default:active" json:"membership_status"`
	JoinedAt         time.Time        `json:"joined_at"`
	CreatedAt        time.Time        `json:"created_at"`
	UpdatedAt        time.Time        `json:"updated_at"`
}

func (u *User) BeforeCreate(*gorm.DB) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	if u.JoinedAt.IsZero() {
		u.JoinedAt = time.Now().UTC()
	}
	return nil
}

/* IsAdmin 管理员可管理全部客户端 */
func (u *User) IsAdmin() bool { return u.RoleID == registry.RoleAdmin }

/* RoleName 角色名 */
func (u *User) RoleName() string { return registry.RoleName(u.RoleID) }
