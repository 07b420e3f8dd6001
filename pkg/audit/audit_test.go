package audit

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"maxidp/pkg/logger"
)

func captureLogs(t *testing.T) *bytes.Buffer {
	t.Helper()
	buf := &bytes.Buffer{}
	prev := logger.Default()
	logger.SetDefault(logger.NewWithWriter(buf, &logger.Config{Level: logger.LevelDebug, Format: "json"}))
	t.Cleanup(func() { logger.SetDefault(prev) })
	return buf
}

/* ========== Action 常量 ========== */

func TestAction_Constants_Unique(t *testing.T) {
	actions := []Action{
		ActionCodeIssue, ActionCodeExchange, ActionCodeReplay, ActionTokenRevoke,
		ActionClientCreate, ActionClientUpdate, ActionClientDelete,
		ActionSecretIssue, ActionSecretRevoke, ActionManagerAdd, ActionManagerRemove,
		ActionMemberCreate, ActionSessionLogin, ActionReaperSweep,
	}
	seen := make(map[Action]bool)
	for _, a := range actions {
		if a == "" {
			t.Error("Action constant should not be empty")
		}
		if seen[a] {
			t.Errorf("duplicate Action constant: %q", a)
		}
		seen[a] = true
	}
}

/* ========== Log 输出 ========== */

func TestLog_Success_IsInfo(t *testing.T) {
	buf := captureLogs(t)
	Log(ActionCodeIssue, ResultSuccess, "member-1", "client-1", "127.0.0.1")

	out := buf.String()
	if !strings.Contains(out, `"level":"INFO"`) {
		t.Errorf("log = %s, want INFO level", out)
	}
	if !strings.Contains(out, "[AUDIT] oauth_code_issue") {
		t.Errorf("log = %s, want audit message", out)
	}
	if !strings.Contains(out, `"target_id":"client-1"`) {
		t.Errorf("log = %s, want target_id", out)
	}
}

func TestLog_Denied_IsWarn(t *testing.T) {
	buf := captureLogs(t)
	Log(ActionCodeReplay, ResultDenied, "client-1", "42", "10.0.0.1", "reason", "code already used")

	out := buf.String()
	if !strings.Contains(out, `"level":"WARN"`) {
		t.Errorf("log = %s, want WARN level", out)
	}
	if !strings.Contains(out, `"reason":"code already used"`) {
		t.Errorf("log = %s, want extra reason attr", out)
	}
}

func TestLogContext_AttachesTraceID(t *testing.T) {
	buf := captureLogs(t)
	ctx := context.WithValue(context.Background(), logger.TraceIDKey, "trace-abc")
	LogContext(ctx, ActionTokenRevoke, ResultSuccess, "member-1", "7", "")

	if !strings.Contains(buf.String(), `"trace_id":"trace-abc"`) {
		t.Errorf("log = %s, want trace_id", buf.String())
	}
}

func TestLog_RedactsSensitiveExtra(t *testing.T) {
	buf := captureLogs(t)
	Log(ActionSecretIssue, ResultSuccess, "member-1", "client-1", "", "client_secret", "plaintext-value")

	if strings.Contains(buf.String(), "plaintext-value") {
		t.Errorf("log leaked secret: %s", buf.String())
	}
}
