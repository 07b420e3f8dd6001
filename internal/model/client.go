package model

import (
	"sort"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

/*
 * Client 已注册的 OAuth 客户端（第三方社团工具）
 * 功能：只有一个所有者；名称 / 描述 / 图标 / 管理者可修改
 *       删除时在同一事务内级联删除密钥、回调、权限范围、令牌
 * 表名：clients
 */
type Client struct {
	ID          string    `gorm:"size:32;primaryKey" json:"id"`
	Name        string    `gorm:"size:100;not null" json:"name"`
	Description string    `gorm:"size:1000" json:"description,omitempty"`
	LogoURL     string    `gorm:"size:500" json:"logo_url,omitempty"`
	OwnerID     uuid.UUID `gorm:"size:36;not null;index" json:"owner_id"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`

	Callbacks []ClientCallback `gorm:"foreignKey:ClientID" json:"-"`
	Scopes    []ClientScope    `gorm:"foreignKey:ClientID" json:"-"`
	Secrets   []ClientSecret   `gorm:"foreignKey:ClientID" json:"-"`
	Managers  []ClientManager  `gorm:"foreignKey:ClientID" json:"-"`
}

/* CallbackURLs 已注册回调地址 */
func (c *Client) CallbackURLs() []string {
	out := make([]string, len(c.Callbacks))
	for i, cb := range c.Callbacks {
		out[i] = cb.CallbackURL
	}
	return out
}

/*
 * HasCallback 回调地址按字节精确匹配
 * 不做前缀、通配、尾斜杠或查询串的宽松匹配
 */
func (c *Client) HasCallback(uri string) bool {
	for _, cb := range c.Callbacks {
		if cb.CallbackURL == uri {
			return true
		}
	}
	return false
}

/* ScopeIDs 客户端允许申请的权限范围 */
func (c *Client) ScopeIDs() []int {
	out := make([]int, len(c.Scopes))
	for i, s := range c.Scopes {
		out[i] = s.ScopeID
	}
	sort.Ints(out)
	return out
}

/* PermitsScope 客户端是否允许申请该权限范围 */
func (c *Client) PermitsScope(id int) bool {
	for _, s := range c.Scopes {
		if s.ScopeID == id {
			return true
		}
	}
	return false
}

/* IsManagedBy 所有者或管理者 */
func (c *Client) IsManagedBy(userID uuid.UUID) bool {
	if c.OwnerID == userID {
		return true
	}
	for _, m := range c.Managers {
		if m.UserID == userID {
			return true
		}
	}
	return false
}

/*
 * ClientSecret 客户端密钥
 * 同一客户端可同时持有多个有效密钥（轮换）；只保存 bcrypt 哈希
 * 表名：client_secrets
 */
type ClientSecret struct {
	ID          uuid.UUID `gorm:"size:36;primaryKey" json:"id"`
	ClientID    string    `gorm:"size:32;not null;index" json:"client_id"`
	SecretHash  string    `gorm:"size:100;not null" json:"-"`
	IssuedBy    uuid.UUID `gorm:"size:36;not null" json:"issued_by"`
	IssuedAt    time.Time `gorm:"not null" json:"issued_at"`
	Description string    `gorm:"size:200" json:"description,omitempty"`
}

func (s *ClientSecret) BeforeCreate(*gorm.DB) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	if s.IssuedAt.IsZero() {
		s.IssuedAt = time.Now().UTC()
	}
	return nil
}

/* ClientCallback 回调地址白名单，表名 client_callbacks */
type ClientCallback struct {
	ClientID    string `gorm:"size:32;primaryKey" json:"client_id"`
	CallbackURL string `gorm:"size:500;primaryKey" json:"callback_url"`
}

/* ClientScope 客户端允许申请的权限范围，表名 client_scopes */
type ClientScope struct {
	ClientID string `gorm:"size:32;primaryKey" json:"client_id"`
	ScopeID  int    `gorm:"primaryKey;autoIncrement:false" json:"scope_id"`
}

/* ClientManager 客户端管理者（无所有权），表名 client_managers */
type ClientManager struct {
	ClientID  string    `gorm:"size:32;primaryKey" json:"client_id"`
	UserID    uuid.UUID `gorm:"size:36;primaryKey" json:"user_id"`
	CreatedAt time.Time `json:"created_at"`

	User *User `gorm:"foreignKey:UserID" json:"user,omitempty"`
}
