package idpclient

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"
)

/* OAuth 错误码 */
const (
	CodeInvalidRequest    = "invalid_request"
	CodeInvalidClient     = "invalid_client"
	CodeInvalidGrant      = "invalid_grant"
	CodeInvalidScope      = "invalid_scope"
	CodeInvalidToken      = "invalid_token"
	CodeInsufficientScope = "insufficient_scope"
	CodeServerError       = "server_error"
)

/*
 * Error IdP 返回的 OAuth 错误
 * Scope 仅在 insufficient_scope 时由质询头给出
 */
type Error struct {
	Status      int
	Code        string
	Description string
	Scope       string
}

func (e *Error) Error() string {
	if e.Description == "" {
		return fmt.Sprintf("idpclient: %s (HTTP %d)", e.Code, e.Status)
	}
	return fmt.Sprintf("idpclient: %s: %s (HTTP %d)", e.Code, e.Description, e.Status)
}

/* IsCode err 是否为指定错误码的 *Error */
func IsCode(err error, code string) bool {
	var e *Error
	return errors.As(err, &e) && e.Code == code
}

var challengeParam = regexp.MustCompile(`([a-zA-Z_]+)="([^"]*)"`)

/*
 * ParseChallenge 解析 WWW-Authenticate: Bearer 质询
 * @return map - 参数名 → 值（含 realm）；非 Bearer 质询返回 nil
 */
func ParseChallenge(header string) map[string]string {
	if !strings.HasPrefix(header, "Bearer ") {
		return nil
	}
	params := make(map[string]string)
	for _, m := range challengeParam.FindAllStringSubmatch(header[len("Bearer "):], -1) {
		params[m[1]] = m[2]
	}
	return params
}

/*
 * ParseError 将非 2xx 响应转换为 *Error
 * 优先使用 Bearer 质询头，其次 OAuth JSON 错误体
 */
func ParseError(resp *http.Response) error {
	e := &Error{Status: resp.StatusCode}
	if params := ParseChallenge(resp.Header.Get("WWW-Authenticate")); params != nil {
		e.Code = params["error"]
		e.Description = params["error_description"]
		e.Scope = params["scope"]
	}
	if e.Code == "" {
		var body struct {
			Error       string `json:"error"`
			Description string `json:"error_description"`
		}
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
		if json.Unmarshal(raw, &body) == nil && body.Error != "" {
			e.Code = body.Error
			e.Description = body.Description
		}
	}
	if e.Code == "" {
		e.Code = CodeServerError
	}
	return e
}
