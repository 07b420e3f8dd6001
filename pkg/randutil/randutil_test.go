package randutil

import (
	"encoding/base64"
	"testing"
)

func TestToken_LengthAndAlphabet(t *testing.T) {
	tok, err := Token()
	if err != nil {
		t.Fatalf("Token() error: %v", err)
	}
	if len(tok) != 43 {
		t.Errorf("len(Token()) = %d, want 43", len(tok))
	}
	raw, err := base64.RawURLEncoding.DecodeString(tok)
	if err != nil {
		t.Fatalf("Token() is not base64url: %v", err)
	}
	if len(raw) != TokenBytes {
		t.Errorf("decoded length = %d, want %d", len(raw), TokenBytes)
	}
}

func TestToken_Unique(t *testing.T) {
	seen := make(map[string]bool, 1000)
	for i := 0; i < 1000; i++ {
		tok, err := Token()
		if err != nil {
			t.Fatalf("Token() error: %v", err)
		}
		if seen[tok] {
			t.Fatalf("duplicate token after %d draws", i)
		}
		seen[tok] = true
	}
}

func TestString_InvalidLength(t *testing.T) {
	if _, err := String(0); err == nil {
		t.Error("String(0) should fail")
	}
}

func TestClientIDAndSecret(t *testing.T) {
	id, _ := ClientID()
	if len(id) != 22 {
		t.Errorf("len(ClientID()) = %d, want 22", len(id))
	}
	s, _ := Secret()
	if len(s) != 43 {
		t.Errorf("len(Secret()) = %d, want 43", len(s))
	}
}
