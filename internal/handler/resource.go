package handler

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	gctx "maxidp/internal/context"
	"maxidp/internal/model"
	"maxidp/internal/service"
	"maxidp/pkg/logger"
)

/* MemberReader 受保护 API 读取令牌所属成员（AuthService 实现） */
type MemberReader interface {
	Member(ctx context.Context, id uuid.UUID) (*model.User, error)
}

/*
 * ResourceHandler 受保护的成员 API
 * 功能：第三方工具持访问令牌读取成员数据，每个端点由 RequireScope 限定权限范围
 *       响应为裸 JSON，错误为 OAuth 形状
 */
type ResourceHandler struct {
	members MemberReader
}

/* NewResourceHandler 创建受保护 API 处理器实例 */
func NewResourceHandler(members MemberReader) *ResourceHandler {
	return &ResourceHandler{members: members}
}

/* member 读取令牌所属成员；成员已删除视为令牌失效 */
func (h *ResourceHandler) member(c *gin.Context) (*model.User, bool) {
	grant, ok := gctx.GetGrant(c)
	if !ok {
		OAuthError(c, http.StatusUnauthorized, service.ErrInvalidToken.Error(), "access token required")
		return nil, false
	}
	m, err := h.members.Member(c.Request.Context(), grant.UserID)
	if errors.Is(err, service.ErrNotFound) {
		OAuthError(c, http.StatusUnauthorized, service.ErrInvalidToken.Error(), "the member behind this token no longer exists")
		return nil, false
	}
	if err != nil {
		logger.WithContext(c.Request.Context()).Error("Load member failed", "member_id", grant.UserID, "error", err)
		OAuthError(c, http.StatusInternalServerError, "server_error", "temporarily unable to load the member")
		return nil, false
	}
	return m, true
}

/*
 * Profile 基本资料（scope 1）
 * @route GET /api/v1/me
 */
func (h *ResourceHandler) Profile(c *gin.Context) {
	m, ok := h.member(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"id":           m.ID.String(),
		"username":     m.Username,
		"display_name": m.DisplayName,
	})
}

/* @route GET /api/v1/me/email (scope 2) */
func (h *ResourceHandler) Email(c *gin.Context) {
	m, ok := h.member(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{"email": m.Email})
}

/* @route GET /api/v1/me/roles (scope 3) */
func (h *ResourceHandler) Roles(c *gin.Context) {
	m, ok := h.member(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"role_id": m.RoleID,
		"role":    m.RoleName(),
	})
}

/* @route GET /api/v1/me/membership (scope 4) */
func (h *ResourceHandler) Membership(c *gin.Context) {
	m, ok := h.member(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"status":    string(m.MembershipStatus),
		"joined_at": m.JoinedAt.UTC().Format(time.RFC3339),
	})
}

/*
 * TokenInfo 当前访问令牌的自省信息（不要求权限范围）
 * @route GET /api/v1/token
 */
func (h *ResourceHandler) TokenInfo(c *gin.Context) {
	grant, ok := gctx.GetGrant(c)
	if !ok {
		OAuthError(c, http.StatusUnauthorized, service.ErrInvalidToken.Error(), "access token required")
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"client_id":  grant.ClientID,
		"member_id":  grant.UserID.String(),
		"scopes":     grant.Scopes,
		"expires_at": grant.ExpiresAt.Unix(),
	})
}
