package idpclient

import (
	"errors"
	"net/http"
	"net/url"
	"strings"
)

/*
 * Config 客户端配置
 * 功能：连接 Maximum IdP 所需的全部参数；端点由 BaseURL 推导
 */
type Config struct {
	BaseURL      string       /* IdP 根地址，如 https://idp.maximum.example */
	ClientID     string       /* 注册得到的 client_id */
	ClientSecret string       /* 注册或轮换得到的密钥 */
	RedirectURL  string       /* 已登记的回调地址，必须完全一致 */
	ScopeIDs     []int        /* 请求的权限范围 ID */
	HTTPClient   *http.Client /* 可选，默认 http.DefaultClient */
}

/*
 * Validate 校验配置是否有效
 * @return error - 缺少必填字段或 URL 无效
 */
func (c *Config) Validate() error {
	if c.ClientID == "" {
		return errors.New("idpclient: client_id is required")
	}
	if c.ClientSecret == "" {
		return errors.New("idpclient: client_secret is required")
	}
	if c.RedirectURL == "" {
		return errors.New("idpclient: redirect_url is required")
	}
	u, err := url.Parse(c.BaseURL)
	if err != nil || !u.IsAbs() || u.Host == "" {
		return errors.New("idpclient: base_url must be an absolute URL")
	}
	if _, err := url.Parse(c.RedirectURL); err != nil {
		return errors.New("idpclient: invalid redirect_url")
	}
	return nil
}

func (c *Config) endpoint(path string) string {
	return strings.TrimRight(c.BaseURL, "/") + path
}
