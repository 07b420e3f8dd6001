package logger

import (
	"bytes"
	"context"
	"strings"
	"testing"
)

/* ========== 脱敏 ========== */

func TestNew_RedactsSensitiveFields(t *testing.T) {
	for _, format := range []string{"json", "text"} {
		buf := &bytes.Buffer{}
		l := NewWithWriter(buf, &Config{Level: LevelDebug, Format: format})
		l.Info("exchange", "code", "abc123", "access_token", "tok-xyz", "client_id", "client-1")

		out := buf.String()
		if strings.Contains(out, "abc123") || strings.Contains(out, "tok-xyz") {
			t.Errorf("[%s] output leaked sensitive value: %s", format, out)
		}
		if !strings.Contains(out, "client-1") {
			t.Errorf("[%s] output = %s, want client_id kept", format, out)
		}
	}
}

func TestIsSensitiveKey(t *testing.T) {
	for _, k := range []string{"password", "CLIENT_SECRET", "Authorization", "code"} {
		if !IsSensitiveKey(k) {
			t.Errorf("IsSensitiveKey(%q) = false, want true", k)
		}
	}
	if IsSensitiveKey("client_id") {
		t.Error("IsSensitiveKey(client_id) = true, want false")
	}
}

/* ========== 级别 ========== */

func TestParseLevel(t *testing.T) {
	cases := map[string]Level{
		"debug":   LevelDebug,
		"WARN":    LevelWarn,
		"warning": LevelWarn,
		"error":   LevelError,
		"":        LevelInfo,
		"bogus":   LevelInfo,
	}
	for in, want := range cases {
		if got := ParseLevel(in); got != want {
			t.Errorf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestPrettyHandler_RespectsLevel(t *testing.T) {
	buf := &bytes.Buffer{}
	l := NewWithWriter(buf, &Config{Level: LevelWarn, Format: "text"})
	l.Info("hidden")
	l.Warn("shown")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Errorf("info message printed at warn level: %s", out)
	}
	if !strings.Contains(out, "shown") {
		t.Errorf("warn message missing: %s", out)
	}
}

/* ========== TraceID ========== */

func TestWithContext_TraceID(t *testing.T) {
	buf := &bytes.Buffer{}
	l := NewWithWriter(buf, &Config{Level: LevelInfo, Format: "json"})
	ctx := context.WithValue(context.Background(), TraceIDKey, "t-1")
	l.WithContext(ctx).Info("hello")

	if !strings.Contains(buf.String(), `"trace_id":"t-1"`) {
		t.Errorf("output = %s, want trace_id", buf.String())
	}
}

func TestCodeExchanged_FailureIsWarn(t *testing.T) {
	buf := &bytes.Buffer{}
	l := NewWithWriter(buf, &Config{Level: LevelInfo, Format: "json"})
	l.CodeExchanged("client-1", "invalid_grant")

	if !strings.Contains(buf.String(), `"level":"WARN"`) {
		t.Errorf("output = %s, want WARN", buf.String())
	}
}

func TestStatementKind(t *testing.T) {
	cases := map[string]string{
		"SELECT * FROM `tokens` WHERE code = 'x'":       "SELECT tokens",
		`UPDATE "tokens" SET code_used = true`:          "UPDATE tokens",
		"INSERT INTO `token_scopes` (`token_id`) VALUES": "INSERT token_scopes",
		"":                                               "",
	}
	for in, want := range cases {
		if got := statementKind(in); got != want {
			t.Errorf("statementKind(%q) = %q, want %q", in, got, want)
		}
	}
}
