package handler

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	gctx "maxidp/internal/context"
	"maxidp/internal/middleware"
	"maxidp/internal/model"
	"maxidp/internal/service"
)

/*
 * AuthHandler 成员会话请求处理器
 * 功能：登录、登出、当前成员、管理员创建成员
 */
type AuthHandler struct {
	auth *service.AuthService
}

/* NewAuthHandler 创建会话处理器实例 */
func NewAuthHandler(auth *service.AuthService) *AuthHandler {
	return &AuthHandler{auth: auth}
}

/* LoginRequest 登录请求体 */
type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

/* MemberResponse API 响应中的成员数据 */
type MemberResponse struct {
	ID               string    `json:"id"`
	Username         string    `json:"username"`
	Email            string    `json:"email"`
	DisplayName      string    `json:"display_name"`
	RoleID           int       `json:"role_id"`
	Role             string    `json:"role"`
	MembershipStatus string    `json:"membership_status"`
	JoinedAt         time.Time `json:"joined_at"`
}

func toMemberResponse(m *model.User) MemberResponse {
	return MemberResponse{
		ID:               m.ID.String(),
		Username:         m.Username,
		Email:            m.Email,
		DisplayName:      m.DisplayName,
		RoleID:           m.RoleID,
		Role:             m.RoleName(),
		MembershipStatus: string(m.MembershipStatus),
		JoinedAt:         m.JoinedAt,
	}
}

/*
 * Login 用户名密码登录
 * @route POST /api/auth/login
 * 会话令牌同时以 JSON 与 httpOnly Cookie 返回，并下发 CSRF Cookie
 */
func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "username and password are required")
		return
	}

	session, err := h.auth.Login(c.Request.Context(), req.Username, req.Password, c.ClientIP())
	if err != nil {
		handleServiceError(c, err)
		return
	}

	maxAge := int(time.Until(session.ExpiresAt).Seconds())
	secure := isRequestSecure(c)
	setCookie(c, middleware.SessionCookie, session.Token, maxAge, "/", secure, true, http.SameSiteLaxMode)
	if _, err := middleware.IssueCSRFCookie(c, maxAge, secure); err != nil {
		handleServiceError(c, err)
		return
	}

	Success(c, gin.H{
		"session_token": session.Token,
		"expires_at":    session.ExpiresAt.Unix(),
		"member":        toMemberResponse(session.Member),
	})
}

/*
 * Logout 注销当前会话
 * @route POST /api/auth/logout
 */
func (h *AuthHandler) Logout(c *gin.Context) {
	if claims, ok := gctx.GetSessionClaims(c); ok {
		if err := h.auth.Logout(c.Request.Context(), claims); err != nil {
			handleServiceError(c, err)
			return
		}
	}
	secure := isRequestSecure(c)
	setCookie(c, middleware.SessionCookie, "", -1, "/", secure, true, http.SameSiteLaxMode)
	setCookie(c, middleware.CSRFTokenCookie, "", -1, "/", secure, false, http.SameSiteLaxMode)
	Success(c, gin.H{"message": "Logged out"})
}

/*
 * Me 当前会话成员
 * @route GET /api/auth/me
 */
func (h *AuthHandler) Me(c *gin.Context) {
	id, _ := gctx.GetMemberID(c)
	m, err := h.auth.Member(c.Request.Context(), id)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	Success(c, toMemberResponse(m))
}

/* CreateMemberRequest 管理员创建成员 */
type CreateMemberRequest struct {
	Username    string `json:"username" binding:"required"`
	Email       string `json:"email" binding:"required"`
	DisplayName string `json:"display_name"`
	Password    string `json:"password" binding:"required"`
	RoleID      int    `json:"role_id"`
}

/*
 * CreateMember 创建成员
 * @route POST /api/admin/members
 */
func (h *AuthHandler) CreateMember(c *gin.Context) {
	var req CreateMemberRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "username, email and password are required")
		return
	}
	actor, _ := gctx.Actor(c)
	m, err := h.auth.CreateMember(c.Request.Context(), actor, &service.CreateMemberInput{
		Username:    req.Username,
		Email:       req.Email,
		DisplayName: req.DisplayName,
		Password:    req.Password,
		RoleID:      req.RoleID,
	})
	if err != nil {
		handleServiceError(c, err)
		return
	}
	Created(c, toMemberResponse(m))
}

/* isRequestSecure 按实际请求协议判断（支持反向代理） */
func isRequestSecure(c *gin.Context) bool {
	if proto := c.GetHeader("X-Forwarded-Proto"); proto != "" {
		return strings.EqualFold(proto, "https")
	}
	return c.Request.TLS != nil
}

/* setCookie 使用 http.SetCookie 设置 Cookie，显式指定 SameSite */
func setCookie(c *gin.Context, name, value string, maxAge int, path string, secure, httpOnly bool, sameSite http.SameSite) {
	http.SetCookie(c.Writer, &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     path,
		MaxAge:   maxAge,
		Secure:   secure,
		HttpOnly: httpOnly,
		SameSite: sameSite,
	})
}
