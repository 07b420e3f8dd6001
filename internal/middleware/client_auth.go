package middleware

import (
	"errors"
	"net/url"

	"github.com/gin-gonic/gin"
)

var (
	ErrNoClientCredentials       = errors.New("client credentials are required")
	ErrMultipleClientAuthMethods = errors.New("client credentials must be sent either in the Authorization header or in the body, not both")
	ErrMalformedBasicAuth        = errors.New("malformed client credentials in Authorization header")
)

/*
 * ClientCredentials 令牌端点的客户端凭据
 * ViaBasic 为 true 时 invalid_client 响应需附带 WWW-Authenticate: Basic
 */
type ClientCredentials struct {
	ClientID     string
	ClientSecret string
	ViaBasic     bool
}

/*
 * ExtractClientCredentials 从请求中提取客户端凭据
 * 支持 client_secret_basic（HTTP Basic，按 RFC 6749 §2.3.1 做 form-urlencoded 解码）
 * 与 client_secret_post（表单字段）；同时使用两种方式视为错误
 */
func ExtractClientCredentials(c *gin.Context) (*ClientCredentials, error) {
	basicID, basicSecret, hasBasic := c.Request.BasicAuth()
	formID := c.PostForm("client_id")
	formSecret := c.PostForm("client_secret")

	if hasBasic {
		if formSecret != "" {
			return nil, ErrMultipleClientAuthMethods
		}
		id, err1 := url.QueryUnescape(basicID)
		secret, err2 := url.QueryUnescape(basicSecret)
		if err1 != nil || err2 != nil || id == "" {
			return nil, ErrMalformedBasicAuth
		}
		if formID != "" && formID != id {
			return nil, ErrMultipleClientAuthMethods
		}
		return &ClientCredentials{ClientID: id, ClientSecret: secret, ViaBasic: true}, nil
	}

	if formID == "" {
		return nil, ErrNoClientCredentials
	}
	return &ClientCredentials{ClientID: formID, ClientSecret: formSecret}, nil
}
