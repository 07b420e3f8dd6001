/*
 * Package idpclient Maximum IdP 客户端 SDK
 * 功能：供社团第三方工具使用的授权码流程封装（基于 golang.org/x/oauth2）
 *       以及受保护成员 API 的调用与错误解析
 */
package idpclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"golang.org/x/oauth2"
)

/* 受保护 API 路径 */
const (
	pathAuthorize  = "/oauth/authorize"
	pathToken      = "/oauth/token"
	pathMe         = "/api/v1/me"
	pathEmail      = "/api/v1/me/email"
	pathRoles      = "/api/v1/me/roles"
	pathMembership = "/api/v1/me/membership"
	pathTokenInfo  = "/api/v1/token"
)

/*
 * Client IdP 客户端
 * 功能：生成授权地址、兑换授权码、以访问令牌读取成员数据
 */
type Client struct {
	cfg   Config
	oauth *oauth2.Config
	httpc *http.Client
}

/*
 * New 创建客户端实例
 * 令牌端点使用 HTTP Basic 传递客户端凭据
 * @param cfg - 客户端配置
 */
func New(cfg Config) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	scopes := make([]string, 0, len(cfg.ScopeIDs))
	for _, id := range cfg.ScopeIDs {
		scopes = append(scopes, strconv.Itoa(id))
	}
	httpc := cfg.HTTPClient
	if httpc == nil {
		httpc = http.DefaultClient
	}
	return &Client{
		cfg: cfg,
		oauth: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Scopes:       scopes,
			Endpoint: oauth2.Endpoint{
				AuthURL:   cfg.endpoint(pathAuthorize),
				TokenURL:  cfg.endpoint(pathToken),
				AuthStyle: oauth2.AuthStyleInHeader,
			},
		},
		httpc: httpc,
	}, nil
}

/*
 * AuthCodeURL 授权页面地址
 * @param state - 调用方生成并保存的随机值，回调时比对
 */
func (c *Client) AuthCodeURL(state string) string {
	return c.oauth.AuthCodeURL(state)
}

/*
 * Exchange 以授权码兑换访问令牌
 * 失败时返回 *Error（invalid_grant / invalid_client 等）
 */
func (c *Client) Exchange(ctx context.Context, code string) (*oauth2.Token, error) {
	ctx = context.WithValue(ctx, oauth2.HTTPClient, c.httpc)
	tok, err := c.oauth.Exchange(ctx, code)
	if err != nil {
		var re *oauth2.RetrieveError
		if errors.As(err, &re) {
			e := &Error{Code: re.ErrorCode, Description: re.ErrorDescription}
			if re.Response != nil {
				e.Status = re.Response.StatusCode
			}
			return nil, e
		}
		return nil, fmt.Errorf("idpclient: exchange: %w", err)
	}
	return tok, nil
}

/* GrantedScopes 令牌响应中的 scope 字段（空格分隔的 ID） */
func GrantedScopes(tok *oauth2.Token) string {
	s, _ := tok.Extra("scope").(string)
	return s
}

/* Profile 基本资料（scope 1） */
type Profile struct {
	ID          string `json:"id"`
	Username    string `json:"username"`
	DisplayName string `json:"display_name"`
}

/* RoleInfo 社团角色（scope 3） */
type RoleInfo struct {
	RoleID int    `json:"role_id"`
	Role   string `json:"role"`
}

/* Membership 会籍（scope 4） */
type Membership struct {
	Status   string    `json:"status"`
	JoinedAt time.Time `json:"joined_at"`
}

/* TokenInfo 访问令牌自省 */
type TokenInfo struct {
	ClientID  string `json:"client_id"`
	MemberID  string `json:"member_id"`
	Scopes    []int  `json:"scopes"`
	ExpiresAt int64  `json:"expires_at"`
}

/* Me 读取基本资料 */
func (c *Client) Me(ctx context.Context, accessToken string) (*Profile, error) {
	var p Profile
	if err := c.get(ctx, pathMe, accessToken, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

/* Email 读取邮箱 */
func (c *Client) Email(ctx context.Context, accessToken string) (string, error) {
	var out struct {
		Email string `json:"email"`
	}
	if err := c.get(ctx, pathEmail, accessToken, &out); err != nil {
		return "", err
	}
	return out.Email, nil
}

/* Roles 读取角色 */
func (c *Client) Roles(ctx context.Context, accessToken string) (*RoleInfo, error) {
	var r RoleInfo
	if err := c.get(ctx, pathRoles, accessToken, &r); err != nil {
		return nil, err
	}
	return &r, nil
}

/* Membership 读取会籍 */
func (c *Client) Membership(ctx context.Context, accessToken string) (*Membership, error) {
	var m Membership
	if err := c.get(ctx, pathMembership, accessToken, &m); err != nil {
		return nil, err
	}
	return &m, nil
}

/* TokenInfo 自省当前访问令牌 */
func (c *Client) TokenInfo(ctx context.Context, accessToken string) (*TokenInfo, error) {
	var ti TokenInfo
	if err := c.get(ctx, pathTokenInfo, accessToken, &ti); err != nil {
		return nil, err
	}
	return &ti, nil
}

func (c *Client) get(ctx context.Context, path, accessToken string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.endpoint(path), nil)
	if err != nil {
		return fmt.Errorf("idpclient: failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpc.Do(req)
	if err != nil {
		return fmt.Errorf("idpclient: request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return ParseError(resp)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("idpclient: failed to read response: %w", err)
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("idpclient: failed to decode response: %w", err)
	}
	return nil
}
