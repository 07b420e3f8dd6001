package middleware

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	ctx "maxidp/internal/context"
	"maxidp/internal/service"
	"maxidp/pkg/logger"
	"maxidp/pkg/metrics"
)

var bearerRegex = regexp.MustCompile(`^Bearer (.+)$`)

/* BearerValidator 访问令牌解析（OAuthService 实现） */
type BearerValidator interface {
	ValidateBearer(ctx context.Context, accessToken string) (*service.Grant, error)
}

/*
 * challenge 构造 RFC 6750 §3 WWW-Authenticate 质询
 * @param params - 依次为 key, value
 */
func challenge(realm string, params ...string) string {
	var b strings.Builder
	fmt.Fprintf(&b, `Bearer realm=%q`, realm)
	for i := 0; i+1 < len(params); i += 2 {
		fmt.Fprintf(&b, `, %s=%q`, params[i], strings.ReplaceAll(params[i+1], `"`, `'`))
	}
	return b.String()
}

/* bearerError 写入质询头与 OAuth 错误体 */
func bearerError(c *gin.Context, status int, realm, code, description string, extra ...string) {
	params := append([]string{"error", code, "error_description", description}, extra...)
	c.Header("WWW-Authenticate", challenge(realm, params...))
	c.AbortWithStatusJSON(status, gin.H{
		"error":             code,
		"error_description": description,
	})
}

/*
 * BearerAuth 资源访问中间件
 * 功能：Authorization 头必须完全匹配 ^Bearer (.+)$，不匹配时不查询存储直接 401
 *       令牌不存在或已过期返回 401 invalid_token；成功后授权结果写入上下文
 * @param realm     - 质询 realm
 * @param validator - 令牌解析
 * @param m         - 指标，可为 nil
 */
func BearerAuth(realm string, validator BearerValidator, m *metrics.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		match := bearerRegex.FindStringSubmatch(c.GetHeader(AuthorizationHeader))
		if match == nil {
			m.BearerValidation(metrics.ResultMalformed)
			bearerError(c, http.StatusUnauthorized, realm, "invalid_token", "missing or malformed Authorization header")
			return
		}

		grant, err := validator.ValidateBearer(c.Request.Context(), match[1])
		if err != nil {
			if errors.Is(err, service.ErrInvalidToken) {
				bearerError(c, http.StatusUnauthorized, realm, "invalid_token", "access token is unknown or expired")
				return
			}
			logger.WithContext(c.Request.Context()).Error("Bearer validation failed", "error", err)
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
				"error":             "server_error",
				"error_description": "temporarily unable to validate the access token",
			})
			return
		}

		ctx.SetGrant(c, grant)
		c.Next()
	}
}

/*
 * RequireScope 端点级权限范围检查，须在 BearerAuth 之后
 * 缺少权限范围返回 403 insufficient_scope，质询中带 scope 参数
 */
func RequireScope(realm string, scopeID int) gin.HandlerFunc {
	scope := strconv.Itoa(scopeID)
	return func(c *gin.Context) {
		grant, ok := ctx.GetGrant(c)
		if !ok {
			bearerError(c, http.StatusUnauthorized, realm, "invalid_token", "access token required")
			return
		}
		if !grant.HasScope(scopeID) {
			bearerError(c, http.StatusForbidden, realm, "insufficient_scope",
				"the access token does not carry scope "+scope, "scope", scope)
			return
		}
		c.Next()
	}
}
