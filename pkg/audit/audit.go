/*
 * Package audit 安全审计日志
 * 功能：记录授权码签发 / 兑换、疑似重放、令牌撤销、客户端与密钥管理等安全相关操作
 *       统一以 "[AUDIT] <action>" 消息输出到结构化 logger
 */
package audit

import (
	"context"

	"maxidp/pkg/logger"
)

/* Action 审计操作类型 */
type Action string

const (
	ActionCodeIssue      Action = "oauth_code_issue"
	ActionCodeExchange   Action = "oauth_code_exchange"
	ActionCodeReplay     Action = "oauth_code_replay"
	ActionConsentDeny    Action = "oauth_consent_deny"
	ActionTokenRevoke    Action = "oauth_token_revoke"
	ActionClientCreate   Action = "client_create"
	ActionClientUpdate   Action = "client_update"
	ActionClientDelete   Action = "client_delete"
	ActionSecretIssue    Action = "client_secret_issue"
	ActionSecretRevoke   Action = "client_secret_revoke"
	ActionManagerAdd     Action = "client_manager_add"
	ActionManagerRemove  Action = "client_manager_remove"
	ActionMemberCreate   Action = "member_create"
	ActionSessionLogin   Action = "session_login"
	ActionReaperSweep    Action = "token_reaper_sweep"
)

/* Result 操作结果 */
type Result string

const (
	ResultSuccess Result = "success"
	ResultFailure Result = "failure"
	ResultDenied  Result = "denied"
)

/*
 * Log 记录一条审计日志
 * @param action   - 操作类型
 * @param result   - 操作结果
 * @param actorID  - 执行者 ID（成员 ID 或客户端 ID）
 * @param targetID - 目标对象 ID
 * @param ip       - 客户端 IP
 * @param extra    - 附加键值对
 */
func Log(action Action, result Result, actorID, targetID, ip string, extra ...any) {
	LogContext(context.Background(), action, result, actorID, targetID, ip, extra...)
}

/* LogContext 同 Log，附带请求上下文中的 TraceID */
func LogContext(ctx context.Context, action Action, result Result, actorID, targetID, ip string, extra ...any) {
	args := make([]any, 0, 10+len(extra))
	args = append(args,
		"audit_action", string(action),
		"audit_result", string(result),
		"actor_id", actorID,
		"target_id", targetID,
		"client_ip", ip,
	)
	args = append(args, extra...)

	log := logger.Default().WithContext(ctx)
	switch result {
	case ResultFailure, ResultDenied:
		log.Warn("[AUDIT] "+string(action), args...)
	default:
		log.Info("[AUDIT] "+string(action), args...)
	}
}
