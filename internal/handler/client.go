package handler

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	gctx "maxidp/internal/context"
	"maxidp/internal/model"
	"maxidp/internal/service"
)

/*
 * ClientHandler 客户端注册管理请求处理器
 * 功能：所有者 / 管理者维护客户端信息、回调地址、权限范围、密钥与管理者
 */
type ClientHandler struct {
	clients *service.ClientService
}

/* NewClientHandler 创建客户端管理处理器实例 */
func NewClientHandler(clients *service.ClientService) *ClientHandler {
	return &ClientHandler{clients: clients}
}

/* ClientResponse 客户端详情（不含密钥） */
type ClientResponse struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Description  string    `json:"description,omitempty"`
	LogoURL      string    `json:"logo_url,omitempty"`
	OwnerID      string    `json:"owner_id"`
	CallbackURLs []string  `json:"callback_urls"`
	ScopeIDs     []int     `json:"scope_ids"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func toClientResponse(c *model.Client) ClientResponse {
	return ClientResponse{
		ID:           c.ID,
		Name:         c.Name,
		Description:  c.Description,
		LogoURL:      c.LogoURL,
		OwnerID:      c.OwnerID.String(),
		CallbackURLs: c.CallbackURLs(),
		ScopeIDs:     c.ScopeIDs(),
		CreatedAt:    c.CreatedAt,
		UpdatedAt:    c.UpdatedAt,
	}
}

/* CreateClientRequest 注册客户端请求体 */
type CreateClientRequest struct {
	Name         string   `json:"name" binding:"required"`
	Description  string   `json:"description"`
	LogoURL      string   `json:"logo_url"`
	CallbackURLs []string `json:"callback_urls" binding:"required"`
	ScopeIDs     []int    `json:"scope_ids"`
}

/*
 * Create 注册客户端
 * @route POST /api/clients
 * 响应中的 secret 明文只出现这一次
 */
func (h *ClientHandler) Create(c *gin.Context) {
	var req CreateClientRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "name and callback_urls are required")
		return
	}
	actor, _ := gctx.Actor(c)
	created, err := h.clients.Create(c.Request.Context(), actor, &service.CreateClientInput{
		Name:         req.Name,
		Description:  req.Description,
		LogoURL:      req.LogoURL,
		CallbackURLs: req.CallbackURLs,
		ScopeIDs:     req.ScopeIDs,
	})
	if err != nil {
		handleServiceError(c, err)
		return
	}
	Created(c, gin.H{
		"client": toClientResponse(created.Client),
		"secret": created.Secret,
	})
}

/*
 * List 当前成员拥有或管理的客户端（管理员为全部）
 * @route GET /api/clients
 */
func (h *ClientHandler) List(c *gin.Context) {
	actor, _ := gctx.Actor(c)
	clients, err := h.clients.List(c.Request.Context(), actor)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	out := make([]ClientResponse, 0, len(clients))
	for i := range clients {
		out = append(out, toClientResponse(&clients[i]))
	}
	Success(c, out)
}

/* @route GET /api/clients/:id */
func (h *ClientHandler) Get(c *gin.Context) {
	actor, _ := gctx.Actor(c)
	client, err := h.clients.Get(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		handleServiceError(c, err)
		return
	}
	Success(c, toClientResponse(client))
}

/* UpdateClientRequest 部分更新，缺省字段不变 */
type UpdateClientRequest struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
	LogoURL     *string `json:"logo_url"`
}

/* @route PATCH /api/clients/:id */
func (h *ClientHandler) Update(c *gin.Context) {
	var req UpdateClientRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "invalid request body")
		return
	}
	actor, _ := gctx.Actor(c)
	client, err := h.clients.Update(c.Request.Context(), actor, c.Param("id"), &service.UpdateClientInput{
		Name:        req.Name,
		Description: req.Description,
		LogoURL:     req.LogoURL,
	})
	if err != nil {
		handleServiceError(c, err)
		return
	}
	Success(c, toClientResponse(client))
}

/* ReplaceCallbacksRequest 回调地址整体替换 */
type ReplaceCallbacksRequest struct {
	CallbackURLs []string `json:"callback_urls" binding:"required"`
}

/* @route PUT /api/clients/:id/callbacks */
func (h *ClientHandler) ReplaceCallbacks(c *gin.Context) {
	var req ReplaceCallbacksRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "callback_urls is required")
		return
	}
	actor, _ := gctx.Actor(c)
	if err := h.clients.ReplaceCallbacks(c.Request.Context(), actor, c.Param("id"), req.CallbackURLs); err != nil {
		handleServiceError(c, err)
		return
	}
	Success(c, gin.H{"callback_urls": req.CallbackURLs})
}

/* ReplaceScopesRequest 允许的权限范围整体替换 */
type ReplaceScopesRequest struct {
	ScopeIDs []int `json:"scope_ids"`
}

/*
 * ReplaceScopes 替换允许的权限范围
 * @route PUT /api/clients/:id/scopes
 * 已签发的令牌保持原有权限范围
 */
func (h *ClientHandler) ReplaceScopes(c *gin.Context) {
	var req ReplaceScopesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "scope_ids must be a list of integers")
		return
	}
	actor, _ := gctx.Actor(c)
	if err := h.clients.ReplaceScopes(c.Request.Context(), actor, c.Param("id"), req.ScopeIDs); err != nil {
		handleServiceError(c, err)
		return
	}
	client, err := h.clients.Get(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		handleServiceError(c, err)
		return
	}
	Success(c, gin.H{"scope_ids": client.ScopeIDs()})
}

/* IssueSecretRequest 新密钥 */
type IssueSecretRequest struct {
	Description string `json:"description"`
}

/*
 * IssueSecret 签发新密钥（轮换期间新旧密钥同时有效）
 * @route POST /api/clients/:id/secrets
 */
func (h *ClientHandler) IssueSecret(c *gin.Context) {
	var req IssueSecretRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			BadRequest(c, "invalid request body")
			return
		}
	}
	actor, _ := gctx.Actor(c)
	secret, err := h.clients.IssueSecret(c.Request.Context(), actor, c.Param("id"), req.Description)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	Created(c, secret)
}

/* @route GET /api/clients/:id/secrets */
func (h *ClientHandler) ListSecrets(c *gin.Context) {
	actor, _ := gctx.Actor(c)
	secrets, err := h.clients.ListSecrets(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		handleServiceError(c, err)
		return
	}
	Success(c, secrets)
}

/* @route DELETE /api/clients/:id/secrets/:secretId */
func (h *ClientHandler) RevokeSecret(c *gin.Context) {
	secretID, err := uuid.Parse(c.Param("secretId"))
	if err != nil {
		BadRequest(c, "invalid secret id")
		return
	}
	actor, _ := gctx.Actor(c)
	if err := h.clients.RevokeSecret(c.Request.Context(), actor, c.Param("id"), secretID); err != nil {
		handleServiceError(c, err)
		return
	}
	NoContent(c)
}

/* ManagerResponse 管理者 */
type ManagerResponse struct {
	MemberID    string    `json:"member_id"`
	Username    string    `json:"username,omitempty"`
	DisplayName string    `json:"display_name,omitempty"`
	AddedAt     time.Time `json:"added_at"`
}

/* @route GET /api/clients/:id/managers */
func (h *ClientHandler) ListManagers(c *gin.Context) {
	actor, _ := gctx.Actor(c)
	managers, err := h.clients.ListManagers(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		handleServiceError(c, err)
		return
	}
	out := make([]ManagerResponse, 0, len(managers))
	for _, m := range managers {
		r := ManagerResponse{MemberID: m.UserID.String(), AddedAt: m.CreatedAt}
		if m.User != nil {
			r.Username = m.User.Username
			r.DisplayName = m.User.DisplayName
		}
		out = append(out, r)
	}
	Success(c, out)
}

/* AddManagerRequest 按用户名添加管理者 */
type AddManagerRequest struct {
	Username string `json:"username" binding:"required"`
}

/* @route POST /api/clients/:id/managers */
func (h *ClientHandler) AddManager(c *gin.Context) {
	var req AddManagerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "username is required")
		return
	}
	actor, _ := gctx.Actor(c)
	member, err := h.clients.AddManager(c.Request.Context(), actor, c.Param("id"), req.Username)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	Created(c, ManagerResponse{
		MemberID:    member.ID.String(),
		Username:    member.Username,
		DisplayName: member.DisplayName,
		AddedAt:     time.Now().UTC(),
	})
}

/* @route DELETE /api/clients/:id/managers/:memberId */
func (h *ClientHandler) RemoveManager(c *gin.Context) {
	memberID, err := uuid.Parse(c.Param("memberId"))
	if err != nil {
		BadRequest(c, "invalid member id")
		return
	}
	actor, _ := gctx.Actor(c)
	if err := h.clients.RemoveManager(c.Request.Context(), actor, c.Param("id"), memberID); err != nil {
		handleServiceError(c, err)
		return
	}
	NoContent(c)
}

/*
 * Delete 删除客户端，连同其令牌在同一事务中级联删除
 * @route DELETE /api/clients/:id
 */
func (h *ClientHandler) Delete(c *gin.Context) {
	actor, _ := gctx.Actor(c)
	if err := h.clients.Delete(c.Request.Context(), actor, c.Param("id")); err != nil {
		handleServiceError(c, err)
		return
	}
	NoContent(c)
}
