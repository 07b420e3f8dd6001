package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"maxidp/internal/registry"
	"maxidp/pkg/logger"
)

/* Pinger 健康检查依赖（数据库、缓存） */
type Pinger interface {
	Ping(ctx context.Context) error
}

/* PingFunc 适配普通函数 */
type PingFunc func(ctx context.Context) error

func (f PingFunc) Ping(ctx context.Context) error { return f(ctx) }

/*
 * SystemHandler 健康检查与注册表查询
 */
type SystemHandler struct {
	checks  map[string]Pinger
	version string
}

/*
 * NewSystemHandler 创建系统处理器实例
 * @param version - 版本号
 * @param checks  - 名称 → 依赖，/health 逐一 Ping
 */
func NewSystemHandler(version string, checks map[string]Pinger) *SystemHandler {
	return &SystemHandler{checks: checks, version: version}
}

/*
 * Health 健康检查
 * @route GET /health
 * 任一依赖不可用返回 503
 */
func (h *SystemHandler) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
	defer cancel()

	status := http.StatusOK
	components := make(map[string]string, len(h.checks))
	for name, p := range h.checks {
		if err := p.Ping(ctx); err != nil {
			logger.WithContext(ctx).Warn("Health check failed", "component", name, "error", err)
			components[name] = "down"
			status = http.StatusServiceUnavailable
			continue
		}
		components[name] = "up"
	}

	overall := "ok"
	if status != http.StatusOK {
		overall = "degraded"
	}
	c.JSON(status, gin.H{
		"status":     overall,
		"version":    h.version,
		"components": components,
	})
}

/*
 * Scopes 权限范围注册表
 * @route GET /api/scopes
 */
func (h *SystemHandler) Scopes(c *gin.Context) {
	Success(c, registry.AllScopes())
}

/* @route GET /api/roles */
func (h *SystemHandler) Roles(c *gin.Context) {
	Success(c, registry.Roles().All())
}
