package service

import "errors"

/*
 * OAuth2 错误分类（RFC 6749 §4.1.2.1 / §5.2，RFC 6750 §3.1）
 * 服务层以 fmt.Errorf("%w: 描述", Err...) 包装，handler 通过 errors.Is 映射为
 * {error, error_description} 与 HTTP 状态码；其余错误一律视为 server_error
 */
var (
	ErrInvalidRequest          = errors.New("invalid_request")
	ErrInvalidScope            = errors.New("invalid_scope")
	ErrInvalidGrant            = errors.New("invalid_grant")
	ErrInvalidClient           = errors.New("invalid_client")
	ErrInvalidToken            = errors.New("invalid_token")
	ErrInsufficientScope       = errors.New("insufficient_scope")
	ErrUnsupportedGrantType    = errors.New("unsupported_grant_type")
	ErrUnsupportedResponseType = errors.New("unsupported_response_type")
	ErrAccessDenied            = errors.New("access_denied")
)

/* 管理接口错误 */
var (
	ErrNotFound           = errors.New("not found")
	ErrForbidden          = errors.New("forbidden")
	ErrValidation         = errors.New("validation failed")
	ErrConflict           = errors.New("conflict")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrSessionInvalid     = errors.New("session invalid")
)

/* OAuthErrors 全部 OAuth2 错误，用于 handler 映射 */
var OAuthErrors = []error{
	ErrInvalidRequest,
	ErrInvalidScope,
	ErrInvalidGrant,
	ErrInvalidClient,
	ErrInvalidToken,
	ErrInsufficientScope,
	ErrUnsupportedGrantType,
	ErrUnsupportedResponseType,
	ErrAccessDenied,
}

/*
 * OAuthErrorCode 返回错误对应的 OAuth2 错误码
 * @return string - 错误码；非 OAuth 错误返回 "server_error"
 * @return bool   - 是否为 OAuth 错误
 */
func OAuthErrorCode(err error) (string, bool) {
	for _, e := range OAuthErrors {
		if errors.Is(err, e) {
			return e.Error(), true
		}
	}
	return "server_error", false
}
