/*
 * Package context 请求上下文工具包
 * 功能：在 Gin 上下文中存取会话成员（ID、用户名、角色、会话声明）与 Bearer 授权结果
 */
package context

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"maxidp/internal/registry"
	"maxidp/internal/service"
	"maxidp/pkg/jwt"
)

/* 上下文键名常量 */
const (
	MemberIDKey       = "member_id"
	MemberUsernameKey = "member_username"
	MemberRoleKey     = "member_role"
	SessionClaimsKey  = "session_claims"
	GrantKey          = "oauth_grant"
)

/*
 * SetMember 将会话成员存入请求上下文
 * @param c      - Gin 上下文
 * @param claims - 已校验的会话声明
 */
func SetMember(c *gin.Context, claims *jwt.Claims) {
	c.Set(MemberIDKey, claims.MemberID)
	c.Set(MemberUsernameKey, claims.Username)
	c.Set(MemberRoleKey, claims.RoleID)
	c.Set(SessionClaimsKey, claims)
}

/* GetMemberID 从上下文提取成员 UUID */
func GetMemberID(c *gin.Context) (uuid.UUID, bool) {
	v, exists := c.Get(MemberIDKey)
	if !exists {
		return uuid.Nil, false
	}
	id, ok := v.(uuid.UUID)
	return id, ok
}

/* GetMemberUsername 从上下文提取用户名 */
func GetMemberUsername(c *gin.Context) (string, bool) {
	v, exists := c.Get(MemberUsernameKey)
	if !exists {
		return "", false
	}
	u, ok := v.(string)
	return u, ok
}

/* GetMemberRole 从上下文提取角色 ID */
func GetMemberRole(c *gin.Context) (int, bool) {
	v, exists := c.Get(MemberRoleKey)
	if !exists {
		return 0, false
	}
	r, ok := v.(int)
	return r, ok
}

/* GetSessionClaims 会话声明（登出时使用） */
func GetSessionClaims(c *gin.Context) (*jwt.Claims, bool) {
	v, exists := c.Get(SessionClaimsKey)
	if !exists {
		return nil, false
	}
	cl, ok := v.(*jwt.Claims)
	return cl, ok
}

/* IsAdmin 检查当前成员是否为管理员 */
func IsAdmin(c *gin.Context) bool {
	role, ok := GetMemberRole(c)
	return ok && role == registry.RoleAdmin
}

/* Actor 当前成员作为管理操作的发起者 */
func Actor(c *gin.Context) (service.Actor, bool) {
	id, ok := GetMemberID(c)
	if !ok {
		return service.Actor{}, false
	}
	role, _ := GetMemberRole(c)
	return service.Actor{ID: id, RoleID: role, IP: c.ClientIP()}, true
}

/* SetGrant 存入 Bearer 令牌解析结果 */
func SetGrant(c *gin.Context, g *service.Grant) {
	c.Set(GrantKey, g)
}

/* GetGrant 取出 Bearer 令牌解析结果 */
func GetGrant(c *gin.Context) (*service.Grant, bool) {
	v, exists := c.Get(GrantKey)
	if !exists {
		return nil, false
	}
	g, ok := v.(*service.Grant)
	return g, ok
}
