package middleware

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
)

/*
 * Timeout 请求超时中间件
 * 为每个请求注入 context deadline，gorm 查询与缓存调用据此取消
 * 不在 goroutine 中执行 c.Next()，gin.Context 不是并发安全的
 * @param timeout - <= 0 时不设置
 */
func Timeout(timeout time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		if timeout <= 0 {
			c.Next()
			return
		}
		rctx, cancel := context.WithTimeout(c.Request.Context(), timeout)
		defer cancel()
		c.Request = c.Request.WithContext(rctx)
		c.Next()
	}
}
