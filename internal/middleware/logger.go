package middleware

import (
	"context"
	"fmt"
	"runtime"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	ctx "maxidp/internal/context"
	"maxidp/pkg/logger"
	"maxidp/pkg/metrics"
)

const TraceIDHeader = "X-Trace-ID"

// TraceID middleware injects trace ID into context
func TraceID() gin.HandlerFunc {
	return func(c *gin.Context) {
		traceID := c.GetHeader(TraceIDHeader)
		if traceID == "" || len(traceID) > 64 {
			traceID = uuid.New().String()
		}

		rctx := context.WithValue(c.Request.Context(), logger.TraceIDKey, traceID)
		c.Request = c.Request.WithContext(rctx)
		c.Header(TraceIDHeader, traceID)
		c.Set("trace_id", traceID)

		c.Next()
	}
}

/*
 * shouldLogRequest 白名单判断是否需要记录日志
 * 只记录业务路由，/metrics 抓取不记录
 */
func shouldLogRequest(path string) bool {
	for _, prefix := range []string{"/api/", "/oauth/"} {
		if strings.HasPrefix(path, prefix) {
			return true
		}
	}
	return path == "/health"
}

/*
 * RequestLogger HTTP 请求日志
 * 查询串不记录：授权端点的 code、state 等值不进入日志
 */
func RequestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		path := c.Request.URL.Path
		if !shouldLogRequest(path) {
			c.Next()
			return
		}

		start := time.Now()
		c.Next()
		latency := time.Since(start)

		statusCode := c.Writer.Status()
		method := c.Request.Method

		methodColor := "\033[34m"
		switch method {
		case "GET":
			methodColor = "\033[32m"
		case "PUT", "PATCH":
			methodColor = "\033[33m"
		case "DELETE":
			methodColor = "\033[31m"
		}
		statusColor := "\033[32m"
		switch {
		case statusCode >= 500:
			statusColor = "\033[1;31m"
		case statusCode >= 400:
			statusColor = "\033[33m"
		case statusCode >= 300:
			statusColor = "\033[36m"
		}

		httpMsg := fmt.Sprintf("%s%s\033[0m %s%d\033[0m \033[1;37m%s\033[0m \033[90m%s\033[0m \033[90m%s\033[0m",
			methodColor, method,
			statusColor, statusCode,
			path,
			latency.String(),
			c.ClientIP(),
		)

		l := logger.WithContext(c.Request.Context())
		if id, ok := ctx.GetMemberID(c); ok {
			httpMsg += fmt.Sprintf(" \033[36mmid\033[0m=%s", id)
		}
		if g, ok := ctx.GetGrant(c); ok {
			httpMsg += fmt.Sprintf(" \033[36mclient\033[0m=%s", g.ClientID)
		}

		switch {
		case statusCode >= 500:
			l.LogHTTP(logger.LevelError, httpMsg, "error", c.Errors.String())
		case statusCode >= 400:
			l.LogHTTP(logger.LevelWarn, httpMsg)
		default:
			l.LogHTTP(logger.LevelInfo, httpMsg)
		}
	}
}

/* Metrics 按路由模板记录请求数与耗时 */
func Metrics(m *metrics.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		m.ObserveHTTP(c.Request.Method, c.FullPath(), c.Writer.Status(), time.Since(start).Seconds())
	}
}

/*
 * RecoveryWithLogger panic 恢复中间件
 * 记录堆栈与请求上下文（不含请求体，令牌端点的请求体包含客户端密钥）
 */
func RecoveryWithLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if err := recover(); err != nil {
				l := logger.WithContext(c.Request.Context())

				stack := make([]byte, 8192)
				stack = stack[:runtime.Stack(stack, false)]

				l.Error("Panic recovered",
					"error", fmt.Sprintf("%v", err),
					"method", c.Request.Method,
					"path", c.Request.URL.Path,
					"ip", c.ClientIP(),
					"user_agent", c.Request.UserAgent(),
					"stack", string(stack),
				)

				errResp := gin.H{
					"success": false,
					"error": gin.H{
						"code":    "INTERNAL_ERROR",
						"message": "Internal Server Error",
					},
				}
				if tid := c.GetString("trace_id"); tid != "" {
					errResp["trace_id"] = tid
				}
				c.AbortWithStatusJSON(500, errResp)
			}
		}()
		c.Next()
	}
}
