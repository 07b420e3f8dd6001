package model

import (
	"sort"
	"time"

	"github.com/google/uuid"
)

/* TokenState 令牌记录状态 */
type TokenState string

const (
	/* TokenPending 授权码已签发，尚未兑换 */
	TokenPending TokenState = "pending"
	/* TokenConsumed 授权码已兑换（终态） */
	TokenConsumed TokenState = "consumed"
)

/*
 * Token 授权码与访问令牌共用的一条记录
 * 状态机：PENDING（code_used=false，access_token 为 NULL）
 *      → CONSUMED（code_used=true，access_token 与过期时间在同一条件更新中写入）
 * 访问令牌在兑换时生成，未兑换的授权码不对应任何访问令牌值
 * 表名：tokens
 */
type Token struct {
	ID                   uint64     `gorm:"primaryKey;autoIncrement" json:"id"`
	ClientID             string     `gorm:"size:32;not null;index" json:"client_id"`
	UserID               uuid.UUID  `gorm:"size:36;not null;index" json:"user_id"`
	Code                 string     `gorm:"size:64;not null;uniqueIndex" json:"-"`
	CodeExpiresAt        time.Time  `gorm:"not null;index" json:"code_expires_at"`
	CodeUsed             bool       `gorm:"not null;default:false" json:"code_used"`
	RedirectURI          string     `gorm:"size:500;not null" json:"redirect_uri"`
	AccessToken          *string    `gorm:"size:64;uniqueIndex" json:"-"`
	AccessTokenExpiresAt *time.Time `gorm:"index" json:"access_token_expires_at,omitempty"`
	CreatedAt            time.Time  `json:"created_at"`

	Scopes []TokenScope `gorm:"foreignKey:TokenID" json:"-"`
	Client *Client      `gorm:"foreignKey:ClientID" json:"-"`
}

/* State 当前状态 */
func (t *Token) State() TokenState {
	if t.CodeUsed {
		return TokenConsumed
	}
	return TokenPending
}

/* ScopeIDs 令牌携带的权限范围 */
func (t *Token) ScopeIDs() []int {
	out := make([]int, len(t.Scopes))
	for i, s := range t.Scopes {
		out[i] = s.ScopeID
	}
	sort.Ints(out)
	return out
}

/* CodeExpired now 不早于授权码过期时间即视为过期 */
func (t *Token) CodeExpired(now time.Time) bool {
	return !now.Before(t.CodeExpiresAt)
}

/* AccessTokenActive 已兑换且 now < 访问令牌过期时间 */
func (t *Token) AccessTokenActive(now time.Time) bool {
	return t.CodeUsed && t.AccessToken != nil && t.AccessTokenExpiresAt != nil &&
		now.Before(*t.AccessTokenExpiresAt)
}

/* TokenScope 令牌的权限范围，表名 token_scopes */
type TokenScope struct {
	TokenID uint64 `gorm:"primaryKey;autoIncrement:false" json:"token_id"`
	ScopeID int    `gorm:"primaryKey;autoIncrement:false" json:"scope_id"`
}
