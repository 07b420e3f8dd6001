package middleware

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/gin-gonic/gin"
)

/*
 * CORS 跨域中间件
 * 安全策略：
 *   - 无 Origin 头（同源或服务端调用）直接放行
 *   - 允许列表精确匹配；列表为空时仅 devMode 放行全部来源
 *   - devMode 下 localhost / 127.0.0.1 任意端口放行
 *   - 携带 credentials，因此回显具体 origin，不使用 *
 * @param allowedOrigins - 允许的来源
 * @param devMode        - 非 release 模式
 */
func CORS(allowedOrigins []string, devMode bool) gin.HandlerFunc {
	originSet := make(map[string]bool, len(allowedOrigins))
	for _, o := range allowedOrigins {
		originSet[strings.TrimRight(o, "/")] = true
	}

	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")
		if origin == "" {
			c.Next()
			return
		}

		allowed := isOriginAllowed(origin, originSet, devMode)
		if allowed {
			h := c.Writer.Header()
			h.Set("Access-Control-Allow-Origin", origin)
			h.Set("Access-Control-Allow-Credentials", "true")
			h.Set("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
			h.Set("Access-Control-Allow-Headers", "Origin, Content-Type, Accept, Authorization, X-CSRF-Token, X-Trace-ID")
			h.Set("Access-Control-Expose-Headers", "X-Trace-ID, WWW-Authenticate")
			h.Set("Access-Control-Max-Age", "86400")
			h.Add("Vary", "Origin")
		}

		if c.Request.Method == http.MethodOptions {
			if allowed {
				c.AbortWithStatus(http.StatusNoContent)
			} else {
				c.AbortWithStatus(http.StatusForbidden)
			}
			return
		}
		c.Next()
	}
}

func isOriginAllowed(origin string, allowedSet map[string]bool, devMode bool) bool {
	clean := strings.TrimRight(origin, "/")
	if allowedSet[clean] {
		return true
	}
	if !devMode {
		return false
	}
	if len(allowedSet) == 0 {
		return true
	}
	if parsed, err := url.Parse(clean); err == nil {
		host := parsed.Hostname()
		return host == "localhost" || host == "127.0.0.1"
	}
	return false
}
