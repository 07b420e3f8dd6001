package handler

import (
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	gctx "maxidp/internal/context"
	"maxidp/internal/middleware"
	"maxidp/internal/registry"
	"maxidp/internal/service"
	"maxidp/pkg/audit"
	"maxidp/pkg/logger"
)

/*
 * OAuthHandler 授权码流程请求处理器
 * 功能：授权端点（重定向与同意页 JSON 两种形态）、令牌端点、成员授权列表与撤销
 */
type OAuthHandler struct {
	oauth *service.OAuthService
	realm string
}

/*
 * NewOAuthHandler 创建 OAuth2 处理器实例
 * @param oauth - 授权服务
 * @param realm - 令牌端点 Basic 质询的 realm
 */
func NewOAuthHandler(oauth *service.OAuthService, realm string) *OAuthHandler {
	return &OAuthHandler{oauth: oauth, realm: realm}
}

/* AuthorizeRequest 授权端点查询参数 */
type AuthorizeRequest struct {
	ResponseType string   `form:"response_type"`
	ClientID     string   `form:"client_id"`
	RedirectURI  string   `form:"redirect_uri"`
	Scope        []string `form:"scope"`
	State        string   `form:"state"`
}

/*
 * Authorize 授权端点（需要成员会话）
 * @route GET /oauth/authorize
 * 客户端未知或回调地址未登记时返回 400 JSON，绝不重定向到未校验的地址
 * 其余错误以 error / error_description / state 重定向回客户端
 */
func (h *OAuthHandler) Authorize(c *gin.Context) {
	var req AuthorizeRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		OAuthError(c, http.StatusBadRequest, "invalid_request", "malformed authorization request")
		return
	}

	if _, err := h.oauth.ResolveClient(c.Request.Context(), req.ClientID, req.RedirectURI); err != nil {
		h.writeAuthorizeError(c, err)
		return
	}

	if req.ResponseType != "code" {
		h.redirectError(c, req.RedirectURI, req.State, service.ErrUnsupportedResponseType,
			"only response_type=code is supported")
		return
	}
	scopes, err := registry.ParseScopeIDs(req.Scope...)
	if err != nil {
		h.redirectError(c, req.RedirectURI, req.State, service.ErrInvalidScope, "scope must be a list of numeric ids")
		return
	}

	userID, _ := gctx.GetMemberID(c)
	result, err := h.oauth.Authorize(c.Request.Context(), &service.AuthorizeInput{
		UserID:      userID,
		ClientID:    req.ClientID,
		RedirectURI: req.RedirectURI,
		ScopeIDs:    scopes,
		IP:          c.ClientIP(),
	})
	if err != nil {
		code, ok := service.OAuthErrorCode(err)
		if !ok {
			logger.WithContext(c.Request.Context()).Error("Authorization failed", "client_id", req.ClientID, "error", err)
		}
		c.Redirect(http.StatusFound, buildRedirectURL(req.RedirectURI, map[string]string{
			"error":             code,
			"error_description": describe(err, code),
			"state":             req.State,
		}))
		return
	}

	c.Redirect(http.StatusFound, buildRedirectURL(result.RedirectURI, map[string]string{
		"code":  result.Code,
		"state": req.State,
	}))
}

func (h *OAuthHandler) writeAuthorizeError(c *gin.Context, err error) {
	code, ok := service.OAuthErrorCode(err)
	if !ok {
		logger.WithContext(c.Request.Context()).Error("Client lookup failed", "error", err)
		OAuthError(c, http.StatusInternalServerError, code, "temporarily unable to process the request")
		return
	}
	OAuthError(c, http.StatusBadRequest, code, describe(err, code))
}

func (h *OAuthHandler) redirectError(c *gin.Context, redirectURI, state string, err error, description string) {
	c.Redirect(http.StatusFound, buildRedirectURL(redirectURI, map[string]string{
		"error":             err.Error(),
		"error_description": description,
		"state":             state,
	}))
}

/* AppInfo 同意页展示的客户端信息 */
type AppInfo struct {
	ClientID    string           `json:"client_id"`
	Name        string           `json:"name"`
	Description string           `json:"description,omitempty"`
	LogoURL     string           `json:"logo_url,omitempty"`
	Scopes      []registry.Scope `json:"scopes"`
}

/*
 * GetAppInfo 同意页数据
 * @route GET /api/oauth/app-info
 */
func (h *OAuthHandler) GetAppInfo(c *gin.Context) {
	client, err := h.oauth.ResolveClient(c.Request.Context(), c.Query("client_id"), c.Query("redirect_uri"))
	if err != nil {
		if code, ok := service.OAuthErrorCode(err); ok {
			BadRequest(c, describe(err, code))
			return
		}
		handleServiceError(c, err)
		return
	}

	ids, err := registry.ParseScopeIDs(c.QueryArray("scope")...)
	if err != nil {
		BadRequest(c, "scope must be a list of numeric ids")
		return
	}
	ids, err = service.CheckScopes(client, ids)
	if err != nil {
		BadRequest(c, describe(err, service.ErrInvalidScope.Error()))
		return
	}

	scopes := make([]registry.Scope, 0, len(ids))
	for _, id := range ids {
		if s, ok := registry.Scopes().Get(id); ok {
			scopes = append(scopes, s)
		}
	}
	Success(c, AppInfo{
		ClientID:    client.ID,
		Name:        client.Name,
		Description: client.Description,
		LogoURL:     client.LogoURL,
		Scopes:      scopes,
	})
}

/* AuthorizeSubmitRequest 同意页提交 */
type AuthorizeSubmitRequest struct {
	ClientID    string `json:"client_id" binding:"required"`
	RedirectURI string `json:"redirect_uri" binding:"required"`
	ScopeIDs    []int  `json:"scope_ids"`
	State       string `json:"state"`
	Consent     string `json:"consent" binding:"required"` // "allow" or "deny"
}

/*
 * AuthorizeSubmit 同意页提交
 * @route POST /api/oauth/authorize
 * 返回前端应跳转的 redirect_url；拒绝时不签发授权码
 */
func (h *OAuthHandler) AuthorizeSubmit(c *gin.Context) {
	var req AuthorizeSubmitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "client_id, redirect_uri and consent are required")
		return
	}

	userID, _ := gctx.GetMemberID(c)
	if _, err := h.oauth.ResolveClient(c.Request.Context(), req.ClientID, req.RedirectURI); err != nil {
		if code, ok := service.OAuthErrorCode(err); ok {
			BadRequest(c, describe(err, code))
			return
		}
		handleServiceError(c, err)
		return
	}

	if req.Consent != "allow" {
		audit.LogContext(c.Request.Context(), audit.ActionConsentDeny, audit.ResultSuccess, userID.String(), req.ClientID, c.ClientIP())
		Success(c, gin.H{
			"redirect_url": buildRedirectURL(req.RedirectURI, map[string]string{
				"error":             service.ErrAccessDenied.Error(),
				"error_description": "the member denied access",
				"state":             req.State,
			}),
		})
		return
	}

	result, err := h.oauth.Authorize(c.Request.Context(), &service.AuthorizeInput{
		UserID:      userID,
		ClientID:    req.ClientID,
		RedirectURI: req.RedirectURI,
		ScopeIDs:    req.ScopeIDs,
		IP:          c.ClientIP(),
	})
	if err != nil {
		code, ok := service.OAuthErrorCode(err)
		if !ok {
			handleServiceError(c, err)
			return
		}
		Success(c, gin.H{
			"redirect_url": buildRedirectURL(req.RedirectURI, map[string]string{
				"error":             code,
				"error_description": describe(err, code),
				"state":             req.State,
			}),
		})
		return
	}

	Success(c, gin.H{
		"redirect_url": buildRedirectURL(result.RedirectURI, map[string]string{
			"code":  result.Code,
			"state": req.State,
		}),
		"code":       result.Code,
		"expires_at": result.ExpiresAt.Unix(),
	})
}

/* TokenResponse 令牌端点成功响应 */
type TokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int64  `json:"expires_in"`
	ExpiresAt   int64  `json:"expires_at"`
	Scope       string `json:"scope"`
}

/*
 * Token 令牌端点
 * @route POST /oauth/token
 * 只支持 authorization_code；客户端凭据来自表单或 HTTP Basic
 */
func (h *OAuthHandler) Token(c *gin.Context) {
	/* RFC 6749 §5.1: 令牌响应（含错误）禁止缓存 */
	c.Header("Cache-Control", "no-store")
	c.Header("Pragma", "no-cache")

	grantType := c.PostForm("grant_type")
	switch grantType {
	case "":
		OAuthError(c, http.StatusBadRequest, "invalid_request", "grant_type is required")
		return
	case "authorization_code":
	default:
		OAuthError(c, http.StatusBadRequest, service.ErrUnsupportedGrantType.Error(),
			"only grant_type=authorization_code is supported")
		return
	}

	creds, err := middleware.ExtractClientCredentials(c)
	if err != nil {
		if errors.Is(err, middleware.ErrNoClientCredentials) {
			OAuthError(c, http.StatusUnauthorized, service.ErrInvalidClient.Error(), err.Error())
			return
		}
		OAuthError(c, http.StatusBadRequest, service.ErrInvalidRequest.Error(), err.Error())
		return
	}

	result, err := h.oauth.Exchange(c.Request.Context(), &service.ExchangeInput{
		Code:         c.PostForm("code"),
		ClientID:     creds.ClientID,
		ClientSecret: creds.ClientSecret,
		RedirectURI:  c.PostForm("redirect_uri"),
		IP:           c.ClientIP(),
	})
	if err != nil {
		h.writeTokenError(c, err, creds.ViaBasic)
		return
	}

	expiresIn := int64(time.Until(result.ExpiresAt).Round(time.Second) / time.Second)
	if expiresIn < 0 {
		expiresIn = 0
	}
	c.JSON(http.StatusOK, TokenResponse{
		AccessToken: result.AccessToken,
		TokenType:   "Bearer",
		ExpiresIn:   expiresIn,
		ExpiresAt:   result.ExpiresAt.Unix(),
		Scope:       registry.FormatScopeIDs(result.Scopes),
	})
}

/* writeTokenError invalid_client → 401，其余 OAuth 错误 → 400，内部错误 → 500 */
func (h *OAuthHandler) writeTokenError(c *gin.Context, err error, viaBasic bool) {
	code, ok := service.OAuthErrorCode(err)
	switch {
	case !ok:
		logger.WithContext(c.Request.Context()).Error("Token exchange failed", "error", err)
		OAuthError(c, http.StatusInternalServerError, code, "temporarily unable to process the request")
	case errors.Is(err, service.ErrInvalidClient):
		if viaBasic {
			c.Header("WWW-Authenticate", `Basic realm="`+h.realm+`"`)
		}
		OAuthError(c, http.StatusUnauthorized, code, describe(err, code))
	default:
		OAuthError(c, http.StatusBadRequest, code, describe(err, code))
	}
}

/*
 * ListAuthorizations 当前成员已授权的客户端
 * @route GET /api/tokens
 */
func (h *OAuthHandler) ListAuthorizations(c *gin.Context) {
	userID, _ := gctx.GetMemberID(c)
	list, err := h.oauth.ListAuthorizations(c.Request.Context(), userID)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	Success(c, list)
}

/*
 * RevokeToken 撤销令牌
 * @route DELETE /api/tokens/:id
 */
func (h *OAuthHandler) RevokeToken(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		BadRequest(c, "token id must be numeric")
		return
	}
	actor, _ := gctx.Actor(c)
	if err := h.oauth.RevokeToken(c.Request.Context(), actor, id); err != nil {
		handleServiceError(c, err)
		return
	}
	NoContent(c)
}

/*
 * buildRedirectURL 在回调地址上追加查询参数，保留其原有参数
 * 空值参数不追加
 */
func buildRedirectURL(base string, params map[string]string) string {
	u, err := url.Parse(base)
	if err != nil {
		return base
	}
	q := u.Query()
	for k, v := range params {
		if v != "" {
			q.Set(k, v)
		}
	}
	u.RawQuery = q.Encode()
	return u.String()
}

/* describe 去掉错误码前缀，作为 error_description */
func describe(err error, code string) string {
	msg := err.Error()
	if i := strings.Index(msg, code+": "); i >= 0 {
		return msg[i+len(code)+2:]
	}
	if msg == code {
		return ""
	}
	return msg
}
