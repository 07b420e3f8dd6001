package sanitize

import (
	"strings"
	"testing"
)

/* ========== String ========== */

func TestString_TrimAndControlChars(t *testing.T) {
	if got := String("  he\x00ll\x07o  ", 0); got != "hello" {
		t.Errorf("String() = %q, want %q", got, "hello")
	}
}

func TestString_MaxLen_Unicode(t *testing.T) {
	if got := String("你好世界测试", 3); got != "你好世" {
		t.Errorf("String() = %q, want %q", got, "你好世")
	}
}

func TestPlainText(t *testing.T) {
	if got := PlainText("<b>Club</b> <script>x</script>Bot", 0); got != "Club xBot" {
		t.Errorf("PlainText() = %q, want %q", got, "Club xBot")
	}
}

/* ========== Username / Email ========== */

func TestUsername(t *testing.T) {
	cases := map[string]bool{
		"Alice":      true,
		"bob.smith":  true,
		"ab":         false,
		"has space":  false,
		"<script>":   false,
		"dash-and_1": true,
	}
	for in, want := range cases {
		if _, ok := Username(in); ok != want {
			t.Errorf("Username(%q) ok = %v, want %v", in, ok, want)
		}
	}
	if got, _ := Username(" Alice "); got != "alice" {
		t.Errorf("Username() = %q, want lowercase", got)
	}
}

func TestEmail(t *testing.T) {
	if got, ok := Email(" Member@Club.Example "); !ok || got != "member@club.example" {
		t.Errorf("Email() = %q, %v", got, ok)
	}
	if _, ok := Email("not-an-email"); ok {
		t.Error("Email(not-an-email) ok = true")
	}
}

/* ========== URL ========== */

func TestLogoURL(t *testing.T) {
	if _, ok := LogoURL("https://cdn.example/logo.png"); !ok {
		t.Error("LogoURL(https) ok = false")
	}
	for _, bad := range []string{"javascript:alert(1)", "data:image/png;base64,xx", "/relative.png"} {
		if _, ok := LogoURL(bad); ok {
			t.Errorf("LogoURL(%q) ok = true", bad)
		}
	}
}

func TestCallbackURL(t *testing.T) {
	cases := []struct {
		in   string
		want error
	}{
		{"https://app.example/cb", nil},
		{"https://app.example/cb?tenant=1", nil},
		{"http://localhost:3000/callback", nil},
		{"http://127.0.0.1/cb", nil},
		{"http://app.example/cb", ErrCallbackScheme},
		{"myapp://callback", ErrCallbackScheme},
		{"javascript:alert(1)", ErrCallbackRelative},
		{"/cb", ErrCallbackRelative},
		{"https://app.example/cb#frag", ErrCallbackFragment},
		{"https://user:pw@app.example/cb", ErrCallbackUserinfo},
		{"", ErrCallbackEmpty},
		{"https://app.example/" + strings.Repeat("a", MaxCallbackLength), ErrCallbackTooLong},
	}
	for _, c := range cases {
		if got := CallbackURL(c.in); got != c.want {
			t.Errorf("CallbackURL(%q) = %v, want %v", c.in, got, c.want)
		}
	}
}
