package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"

	"maxidp/internal/config"
	"maxidp/internal/model"
	"maxidp/internal/registry"
	"maxidp/internal/repository"
	"maxidp/pkg/audit"
	"maxidp/pkg/logger"
	"maxidp/pkg/metrics"
	"maxidp/pkg/password"
	"maxidp/pkg/randutil"
)

/* ClientLookup 客户端查找（Client Store 只读部分） */
type ClientLookup interface {
	GetClientByID(ctx context.Context, clientID string) (*model.Client, error)
}

/* TokenStore 令牌记录存储 */
type TokenStore interface {
	CreateAccessToken(ctx context.Context, t *model.Token, scopeIDs []int) error
	GetTokenByCode(ctx context.Context, code string) (*model.Token, error)
	GetTokenByAccessToken(ctx context.Context, accessToken string) (*model.Token, error)
	GetTokenByID(ctx context.Context, id uint64) (*model.Token, error)
	SetCodeUsed(ctx context.Context, code, clientID, accessToken string, accessTokenExpiresAt, now time.Time) (bool, error)
	DeleteTokenByID(ctx context.Context, id uint64) error
	ListActiveByUser(ctx context.Context, userID uuid.UUID, now time.Time) ([]model.Token, error)
}

/*
 * OAuthService OAuth2 授权码流程核心
 * 功能：授权码签发（Authorization Flow）、授权码兑换（Token Exchange）、
 *       Bearer 访问令牌校验（Resource Access）、令牌撤销
 *       兑换通过条件更新完成，并发兑换同一授权码只有一个成功
 */
type OAuthService struct {
	clients  ClientLookup
	tokens   TokenStore
	hasher   password.Hasher
	metrics  *metrics.Metrics
	codeTTL  time.Duration
	tokenTTL time.Duration
	now      func() time.Time
}

/*
 * NewOAuthService 创建 OAuth2 服务实例
 * @param clients - 客户端查找（通常为带缓存的仓储）
 * @param tokens  - 令牌仓储
 * @param cfg     - OAuth 配置（授权码 / 访问令牌 TTL）
 * @param hasher  - 客户端密钥哈希校验
 * @param m       - 指标，可为 nil
 */
func NewOAuthService(clients ClientLookup, tokens TokenStore, cfg *config.OAuthConfig, hasher password.Hasher, m *metrics.Metrics) *OAuthService {
	return &OAuthService{
		clients:  clients,
		tokens:   tokens,
		hasher:   hasher,
		metrics:  m,
		codeTTL:  cfg.AuthCodeTTL,
		tokenTTL: cfg.AccessTokenTTL,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

/* SetClock 替换时钟（测试用） */
func (s *OAuthService) SetClock(now func() time.Time) { s.now = now }

/* AuthorizeInput 授权请求 */
type AuthorizeInput struct {
	UserID      uuid.UUID
	ClientID    string
	RedirectURI string
	ScopeIDs    []int
	IP          string
}

/* AuthorizeResult 授权结果 */
type AuthorizeResult struct {
	Code        string
	RedirectURI string
	Scopes      []int
	ExpiresAt   time.Time
}

/*
 * ResolveClient 校验客户端与回调地址
 * 授权端点据此决定错误是以 JSON 返回（本方法失败）还是重定向回客户端
 * @return error - 未知客户端或未登记的回调地址返回 ErrInvalidRequest
 */
func (s *OAuthService) ResolveClient(ctx context.Context, clientID, redirectURI string) (*model.Client, error) {
	if clientID == "" {
		return nil, fmt.Errorf("%w: client_id is required", ErrInvalidRequest)
	}
	client, err := s.clients.GetClientByID(ctx, clientID)
	if errors.Is(err, repository.ErrClientNotFound) {
		return nil, fmt.Errorf("%w: unknown client", ErrInvalidRequest)
	}
	if err != nil {
		return nil, fmt.Errorf("lookup client: %w", err)
	}
	if redirectURI == "" || !client.HasCallback(redirectURI) {
		return nil, fmt.Errorf("%w: redirect_uri is not registered for this client", ErrInvalidRequest)
	}
	return client, nil
}

/*
 * CheckScopes 校验请求的权限范围
 * 每个 ID 必须已登记且在客户端允许范围内
 * @return []int - 去重升序后的权限范围
 */
func CheckScopes(client *model.Client, scopeIDs []int) ([]int, error) {
	ids := registry.NormalizeScopeIDs(scopeIDs)
	for _, id := range ids {
		if !registry.IsScopeID(id) {
			return nil, fmt.Errorf("%w: unknown scope %d", ErrInvalidScope, id)
		}
		if !client.PermitsScope(id) {
			return nil, fmt.Errorf("%w: scope %d is not permitted for this client", ErrInvalidScope, id)
		}
	}
	return ids, nil
}

/*
 * Authorize 签发授权码
 * 流程：校验客户端 → 回调地址完全匹配 → 权限范围 → 生成授权码 → 持久化
 * 持久化失败直接返回错误，不重试，调用方不会拿到无法兑换的授权码
 * @param in - 授权请求（UserID 来自上游会话认证）
 */
func (s *OAuthService) Authorize(ctx context.Context, in *AuthorizeInput) (*AuthorizeResult, error) {
	client, err := s.ResolveClient(ctx, in.ClientID, in.RedirectURI)
	if err != nil {
		return nil, err
	}
	scopes, err := CheckScopes(client, in.ScopeIDs)
	if err != nil {
		return nil, err
	}

	code, err := randutil.Token()
	if err != nil {
		return nil, err
	}
	now := s.now()
	t := &model.Token{
		ClientID:      client.ID,
		UserID:        in.UserID,
		Code:          code,
		CodeExpiresAt: now.Add(s.codeTTL),
		RedirectURI:   in.RedirectURI,
	}
	if err := s.tokens.CreateAccessToken(ctx, t, scopes); err != nil {
		return nil, fmt.Errorf("persist authorization code: %w", err)
	}

	s.metrics.CodeIssued()
	logger.WithContext(ctx).CodeIssued(in.UserID.String(), client.ID, scopes)
	audit.LogContext(ctx, audit.ActionCodeIssue, audit.ResultSuccess, in.UserID.String(), client.ID, in.IP,
		"scopes", registry.FormatScopeIDs(scopes))

	return &AuthorizeResult{
		Code:        code,
		RedirectURI: in.RedirectURI,
		Scopes:      scopes,
		ExpiresAt:   t.CodeExpiresAt,
	}, nil
}

/* ExchangeInput 令牌端点请求 */
type ExchangeInput struct {
	Code         string
	ClientID     string
	ClientSecret string
	RedirectURI  string
	IP           string
}

/* ExchangeResult 兑换结果 */
type ExchangeResult struct {
	AccessToken string
	ExpiresAt   time.Time
	Scopes      []int
}

/*
 * Exchange 以授权码兑换访问令牌
 * 检查顺序：授权码存在 → 未使用 → 未过期 → 客户端一致 → 密钥匹配 → 回调地址一致
 * 密钥不匹配返回 ErrInvalidClient 且不消耗授权码
 * 最后以条件更新同时标记已使用并写入访问令牌，受影响行数决定并发竞争的唯一赢家
 */
func (s *OAuthService) Exchange(ctx context.Context, in *ExchangeInput) (*ExchangeResult, error) {
	res, err := s.exchange(ctx, in)
	s.metrics.Exchange(exchangeResult(err))
	logger.WithContext(ctx).CodeExchanged(in.ClientID, exchangeResult(err))
	return res, err
}

func exchangeResult(err error) string {
	switch {
	case err == nil:
		return metrics.ResultSuccess
	case errors.Is(err, ErrInvalidGrant):
		return metrics.ResultInvalidGrant
	case errors.Is(err, ErrInvalidClient):
		return metrics.ResultInvalidClient
	case errors.Is(err, ErrInvalidRequest):
		return metrics.ResultMalformed
	default:
		return metrics.ResultError
	}
}

func (s *OAuthService) exchange(ctx context.Context, in *ExchangeInput) (*ExchangeResult, error) {
	if in.Code == "" || in.ClientID == "" || in.RedirectURI == "" {
		return nil, fmt.Errorf("%w: code, client_id and redirect_uri are required", ErrInvalidRequest)
	}

	t, err := s.tokens.GetTokenByCode(ctx, in.Code)
	if errors.Is(err, repository.ErrTokenNotFound) {
		return nil, fmt.Errorf("%w: unknown authorization code", ErrInvalidGrant)
	}
	if err != nil {
		return nil, fmt.Errorf("lookup authorization code: %w", err)
	}

	now := s.now()
	if t.CodeUsed {
		s.replay(ctx, t, in, "code already used")
		s.revokeReplayed(ctx, t)
		return nil, fmt.Errorf("%w: authorization code already used", ErrInvalidGrant)
	}
	if t.CodeExpired(now) {
		audit.LogContext(ctx, audit.ActionCodeExchange, audit.ResultDenied, in.ClientID, t.ClientID, in.IP,
			"reason", "code expired")
		return nil, fmt.Errorf("%w: authorization code expired", ErrInvalidGrant)
	}
	if t.ClientID != in.ClientID {
		audit.LogContext(ctx, audit.ActionCodeExchange, audit.ResultDenied, in.ClientID, t.ClientID, in.IP,
			"reason", "client mismatch")
		return nil, fmt.Errorf("%w: authorization code was issued to another client", ErrInvalidGrant)
	}
	if !s.secretMatches(t.Client, in.ClientSecret) {
		audit.LogContext(ctx, audit.ActionCodeExchange, audit.ResultDenied, in.ClientID, t.ClientID, in.IP,
			"reason", "client secret mismatch")
		return nil, fmt.Errorf("%w: client authentication failed", ErrInvalidClient)
	}
	if t.RedirectURI != in.RedirectURI {
		audit.LogContext(ctx, audit.ActionCodeExchange, audit.ResultDenied, in.ClientID, t.ClientID, in.IP,
			"reason", "redirect_uri mismatch")
		return nil, fmt.Errorf("%w: redirect_uri does not match the authorization request", ErrInvalidGrant)
	}

	accessToken, err := randutil.Token()
	if err != nil {
		return nil, err
	}
	expiresAt := now.Add(s.tokenTTL)
	won, err := s.tokens.SetCodeUsed(ctx, in.Code, in.ClientID, accessToken, expiresAt, now)
	if err != nil {
		return nil, fmt.Errorf("consume authorization code: %w", err)
	}
	if !won {
		s.replay(ctx, t, in, "lost concurrent exchange")
		return nil, fmt.Errorf("%w: authorization code already used", ErrInvalidGrant)
	}

	audit.LogContext(ctx, audit.ActionCodeExchange, audit.ResultSuccess, t.UserID.String(), t.ClientID, in.IP,
		"token_id", t.ID)
	return &ExchangeResult{
		AccessToken: accessToken,
		ExpiresAt:   expiresAt,
		Scopes:      t.ScopeIDs(),
	}, nil
}

/* secretMatches 与客户端每个现行密钥逐一比对，不提前退出 */
func (s *OAuthService) secretMatches(client *model.Client, secret string) bool {
	if client == nil || secret == "" {
		return false
	}
	matched := false
	for _, cs := range client.Secrets {
		if s.hasher.Verify(cs.SecretHash, secret) == nil {
			matched = true
		}
	}
	return matched
}

func (s *OAuthService) replay(ctx context.Context, t *model.Token, in *ExchangeInput, reason string) {
	s.metrics.CodeReplay()
	audit.LogContext(ctx, audit.ActionCodeReplay, audit.ResultDenied, in.ClientID, t.ClientID, in.IP,
		"reason", reason, "token_id", t.ID, "member_id", t.UserID.String())
}

/*
 * revokeReplayed 已兑换的授权码再次出现时删除由它签发的令牌
 * 删除失败只记录日志，调用方仍返回 invalid_grant
 */
func (s *OAuthService) revokeReplayed(ctx context.Context, t *model.Token) {
	if err := s.tokens.DeleteTokenByID(ctx, t.ID); err != nil {
		if !errors.Is(err, repository.ErrTokenNotFound) {
			logger.WithContext(ctx).Error("Failed to revoke token of replayed code", "token_id", t.ID, "error", err)
		}
		return
	}
	audit.LogContext(ctx, audit.ActionTokenRevoke, audit.ResultSuccess, t.UserID.String(), t.ClientID, "",
		"token_id", t.ID, "reason", "authorization code replay")
}

/*
 * Grant Bearer 令牌解析结果
 * 由 Resource Access 中间件放入请求上下文，供各端点检查所需权限范围
 */
type Grant struct {
	TokenID   uint64
	ClientID  string
	UserID    uuid.UUID
	Scopes    []int
	ExpiresAt time.Time
}

/* HasScope 是否携带指定权限范围 */
func (g *Grant) HasScope(id int) bool {
	for _, s := range g.Scopes {
		if s == id {
			return true
		}
	}
	return false
}

/*
 * ValidateBearer 解析访问令牌
 * @return error - 不存在、未兑换或已过期返回 ErrInvalidToken
 */
func (s *OAuthService) ValidateBearer(ctx context.Context, accessToken string) (*Grant, error) {
	t, err := s.tokens.GetTokenByAccessToken(ctx, accessToken)
	if errors.Is(err, repository.ErrTokenNotFound) {
		s.metrics.BearerValidation(metrics.ResultInvalidToken)
		return nil, fmt.Errorf("%w: unknown access token", ErrInvalidToken)
	}
	if err != nil {
		s.metrics.BearerValidation(metrics.ResultError)
		return nil, fmt.Errorf("lookup access token: %w", err)
	}
	if !t.AccessTokenActive(s.now()) {
		s.metrics.BearerValidation(metrics.ResultInvalidToken)
		return nil, fmt.Errorf("%w: access token expired", ErrInvalidToken)
	}
	s.metrics.BearerValidation(metrics.ResultSuccess)
	return &Grant{
		TokenID:   t.ID,
		ClientID:  t.ClientID,
		UserID:    t.UserID,
		Scopes:    t.ScopeIDs(),
		ExpiresAt: *t.AccessTokenExpiresAt,
	}, nil
}

/* Authorization 成员已授权的一条访问令牌（不含令牌值） */
type Authorization struct {
	TokenID    uint64    `json:"token_id"`
	ClientID   string    `json:"client_id"`
	ClientName string    `json:"client_name"`
	Scopes     []int     `json:"scopes"`
	ExpiresAt  time.Time `json:"expires_at"`
	CreatedAt  time.Time `json:"created_at"`
}

/* ListAuthorizations 成员当前有效的授权 */
func (s *OAuthService) ListAuthorizations(ctx context.Context, userID uuid.UUID) ([]Authorization, error) {
	tokens, err := s.tokens.ListActiveByUser(ctx, userID, s.now())
	if err != nil {
		return nil, err
	}
	out := make([]Authorization, 0, len(tokens))
	for _, t := range tokens {
		a := Authorization{
			TokenID:   t.ID,
			ClientID:  t.ClientID,
			Scopes:    t.ScopeIDs(),
			CreatedAt: t.CreatedAt,
		}
		if t.AccessTokenExpiresAt != nil {
			a.ExpiresAt = *t.AccessTokenExpiresAt
		}
		if t.Client != nil {
			a.ClientName = t.Client.Name
		}
		out = append(out, a)
	}
	return out, nil
}

/*
 * RevokeToken 撤销令牌（deleteTokenById）
 * 允许：令牌所属成员、令牌客户端的所有者 / 管理者、管理员
 */
func (s *OAuthService) RevokeToken(ctx context.Context, actor Actor, tokenID uint64) error {
	t, err := s.tokens.GetTokenByID(ctx, tokenID)
	if errors.Is(err, repository.ErrTokenNotFound) {
		return fmt.Errorf("%w: token", ErrNotFound)
	}
	if err != nil {
		return err
	}
	if !s.canRevoke(ctx, actor, t) {
		audit.LogContext(ctx, audit.ActionTokenRevoke, audit.ResultDenied, actor.ID.String(),
			strconv.FormatUint(tokenID, 10), actor.IP)
		return ErrForbidden
	}
	if err := s.tokens.DeleteTokenByID(ctx, tokenID); err != nil {
		if errors.Is(err, repository.ErrTokenNotFound) {
			return fmt.Errorf("%w: token", ErrNotFound)
		}
		return err
	}
	logger.WithContext(ctx).TokenRevoked(actor.ID.String(), tokenID)
	audit.LogContext(ctx, audit.ActionTokenRevoke, audit.ResultSuccess, actor.ID.String(),
		strconv.FormatUint(tokenID, 10), actor.IP, "client_id", t.ClientID)
	return nil
}

func (s *OAuthService) canRevoke(ctx context.Context, actor Actor, t *model.Token) bool {
	if actor.IsAdmin() || t.UserID == actor.ID {
		return true
	}
	client, err := s.clients.GetClientByID(ctx, t.ClientID)
	if err != nil {
		return false
	}
	return client.IsManagedBy(actor.ID)
}
