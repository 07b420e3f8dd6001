package handler

/*
 * 统一错误码定义
 * 前端通过 error.code 映射 i18n 翻译
 * 命名规范: 大写蛇形, 按模块分组
 */

/* ===== 认证/授权错误 ===== */
const (
	ErrCodeUnauthorized       = "UNAUTHORIZED"
	ErrCodeForbidden          = "FORBIDDEN"
	ErrCodeInvalidCredentials = "INVALID_CREDENTIALS"
	ErrCodeSessionInvalid     = "SESSION_INVALID"
)

/* ===== 请求/验证错误 ===== */
const (
	ErrCodeBadRequest = "BAD_REQUEST"
	ErrCodeValidation = "VALIDATION_FAILED"
	ErrCodeNotFound   = "NOT_FOUND"
	ErrCodeConflict   = "CONFLICT"
)

/* ===== 系统错误 ===== */
const (
	ErrCodeInternalError      = "INTERNAL_ERROR"
	ErrCodeServiceUnavailable = "SERVICE_UNAVAILABLE"
)
