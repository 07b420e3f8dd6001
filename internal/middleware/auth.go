package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	ctx "maxidp/internal/context"
	"maxidp/pkg/jwt"
)

const (
	AuthorizationHeader = "Authorization"
	BearerPrefix        = "Bearer "
	SessionCookie       = "maxidp_session"
)

/* SessionValidator 会话令牌校验（AuthService 实现） */
type SessionValidator interface {
	Authenticate(ctx context.Context, token string) (*jwt.Claims, error)
}

/*
 * extractSession 从请求中提取会话令牌
 * 优先级：Authorization Header > Cookie
 */
func extractSession(c *gin.Context) (token string, fromCookie bool) {
	if h := c.GetHeader(AuthorizationHeader); strings.HasPrefix(h, BearerPrefix) {
		return strings.TrimPrefix(h, BearerPrefix), false
	}
	if token, err := c.Cookie(SessionCookie); err == nil && token != "" {
		return token, true
	}
	return "", false
}

/* authError 返回统一格式的鉴权错误 */
func authError(c *gin.Context, code, message string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
		"success": false,
		"error":   gin.H{"code": code, "message": message},
	})
}

/*
 * Auth 成员会话鉴权中间件
 * 支持 Authorization Header 和 httpOnly Cookie 两种方式
 * 成功后成员信息写入上下文，供授权端点与客户端管理 API 使用
 */
func Auth(sessions SessionValidator) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, fromCookie := extractSession(c)
		if token == "" {
			authError(c, "UNAUTHORIZED", "Login required")
			return
		}

		claims, err := sessions.Authenticate(c.Request.Context(), token)
		if err != nil {
			authError(c, "SESSION_INVALID", "Session is invalid or has expired")
			return
		}

		ctx.SetMember(c, claims)
		c.Set(sessionViaCookieKey, fromCookie)
		c.Next()
	}
}

/* AdminOnly 管理员权限中间件 */
func AdminOnly() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !ctx.IsAdmin(c) {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"success": false,
				"error":   gin.H{"code": "ADMIN_REQUIRED", "message": "Admin access required"},
			})
			return
		}
		c.Next()
	}
}
