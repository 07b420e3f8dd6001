/*
 * Package handler HTTP 请求处理层
 * 功能：接收 HTTP 请求、参数校验、调用 service 层、返回统一格式的 JSON 响应
 *       OAuth 端点（/oauth/*）按 RFC 6749 输出 {error, error_description}，其余 API 使用统一信封
 */
package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"maxidp/internal/service"
	"maxidp/pkg/logger"
)

/*
 * Response 统一 API 响应结构
 * 功能：所有管理 API 均返回此结构，包含 success 标志、data 和 error 字段
 */
type Response struct {
	Success bool       `json:"success"`
	Data    any        `json:"data,omitempty"`
	Error   *ErrorInfo `json:"error,omitempty"`
}

/* ErrorInfo 错误详情结构，包含错误码和可读消息 */
type ErrorInfo struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

/* OAuthErrorBody RFC 6749 §5.2 错误体 */
type OAuthErrorBody struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description,omitempty"`
}

/* Success 发送 200 成功响应 */
func Success(c *gin.Context, data any) {
	c.JSON(http.StatusOK, Response{Success: true, Data: data})
}

/* Created 发送 201 创建成功响应 */
func Created(c *gin.Context, data any) {
	c.JSON(http.StatusCreated, Response{Success: true, Data: data})
}

/* NoContent 发送 204 */
func NoContent(c *gin.Context) {
	c.Status(http.StatusNoContent)
}

/*
 * Error 发送错误响应
 * @param c       - Gin 上下文
 * @param status  - HTTP 状态码
 * @param code    - 业务错误码
 * @param message - 可读错误消息
 */
func Error(c *gin.Context, status int, code, message string) {
	c.JSON(status, Response{
		Success: false,
		Error:   &ErrorInfo{Code: code, Message: message},
	})
}

/* BadRequest 发送 400 错误请求响应 */
func BadRequest(c *gin.Context, message string) {
	Error(c, http.StatusBadRequest, ErrCodeBadRequest, message)
}

/* Unauthorized 发送 401 未认证响应 */
func Unauthorized(c *gin.Context, message string) {
	Error(c, http.StatusUnauthorized, ErrCodeUnauthorized, message)
}

/* NotFound 发送 404 未找到响应 */
func NotFound(c *gin.Context, message string) {
	Error(c, http.StatusNotFound, ErrCodeNotFound, message)
}

/* InternalError 发送 500 内部错误响应 */
func InternalError(c *gin.Context, message string) {
	Error(c, http.StatusInternalServerError, ErrCodeInternalError, message)
}

/* ServiceUnavailable 发送 503 服务不可用响应 */
func ServiceUnavailable(c *gin.Context, message string) {
	Error(c, http.StatusServiceUnavailable, ErrCodeServiceUnavailable, message)
}

/*
 * OAuthError 发送 OAuth 错误体
 * @param status - 400 / 401
 */
func OAuthError(c *gin.Context, status int, code, description string) {
	c.JSON(status, OAuthErrorBody{Error: code, ErrorDescription: description})
}

/*
 * handleServiceError 将 service 层错误映射为统一信封
 * 未识别的错误记录日志并返回 500，不向客户端泄露细节
 */
func handleServiceError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrValidation):
		Error(c, http.StatusBadRequest, ErrCodeValidation, err.Error())
	case errors.Is(err, service.ErrNotFound):
		NotFound(c, err.Error())
	case errors.Is(err, service.ErrForbidden):
		Error(c, http.StatusForbidden, ErrCodeForbidden, "You do not have access to this resource")
	case errors.Is(err, service.ErrConflict):
		Error(c, http.StatusConflict, ErrCodeConflict, err.Error())
	case errors.Is(err, service.ErrInvalidCredentials):
		Error(c, http.StatusUnauthorized, ErrCodeInvalidCredentials, "Invalid username or password")
	case errors.Is(err, service.ErrSessionInvalid):
		Error(c, http.StatusUnauthorized, ErrCodeSessionInvalid, "Session is invalid or has expired")
	default:
		logger.WithContext(c.Request.Context()).Error("Request failed", "path", c.FullPath(), "error", err)
		InternalError(c, "Internal server error")
	}
}
