package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

/*
 * SecurityHeaders 安全响应头中间件
 * 本服务只输出 JSON 与重定向，CSP 一律 default-src 'none'
 * OAuth 与管理 API 响应禁止缓存
 */
func SecurityHeaders() gin.HandlerFunc {
	return func(c *gin.Context) {
		h := c.Writer.Header()
		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("X-Frame-Options", "DENY")
		h.Set("Referrer-Policy", "no-referrer")
		h.Set("Content-Security-Policy", "default-src 'none'; frame-ancestors 'none'")
		h.Set("Cross-Origin-Opener-Policy", "same-origin")
		h.Set("X-Permitted-Cross-Domain-Policies", "none")

		if c.GetHeader("X-Forwarded-Proto") == "https" || c.Request.TLS != nil {
			h.Set("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
		}

		path := c.Request.URL.Path
		if strings.HasPrefix(path, "/api/") || strings.HasPrefix(path, "/oauth/") {
			h.Set("Cache-Control", "no-store")
			h.Set("Pragma", "no-cache")
		}

		c.Next()
	}
}

/*
 * RequestSizeLimit 请求体大小限制中间件
 * Content-Length 超限直接 413；未声明长度时由 MaxBytesReader 截断
 */
func RequestSizeLimit(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.ContentLength > maxBytes {
			c.AbortWithStatusJSON(http.StatusRequestEntityTooLarge, gin.H{
				"success": false,
				"error":   gin.H{"code": "BAD_REQUEST", "message": "Request body too large"},
			})
			return
		}
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		c.Next()
	}
}
