package jwt

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"maxidp/pkg/cache"
)

func newTestManager() *Manager {
	return NewManager("test-secret-key-32bytes-long!!!!", "maxidp-test", time.Hour)
}

/* ========== Issue & Parse ========== */

func TestIssueAndParse(t *testing.T) {
	m := newTestManager()
	id := uuid.New()

	token, exp, err := m.Issue(id, "alice", 3)
	if err != nil {
		t.Fatalf("Issue() error: %v", err)
	}
	if d := time.Until(exp); d < 59*time.Minute || d > time.Hour {
		t.Errorf("expiresAt in %v, want ~1h", d)
	}

	claims, err := m.Parse(token)
	if err != nil {
		t.Fatalf("Parse() error: %v", err)
	}
	if claims.MemberID != id {
		t.Errorf("MemberID = %v, want %v", claims.MemberID, id)
	}
	if claims.Username != "alice" {
		t.Errorf("Username = %q, want %q", claims.Username, "alice")
	}
	if claims.RoleID != 3 {
		t.Errorf("RoleID = %d, want 3", claims.RoleID)
	}
	if claims.ID == "" {
		t.Error("JTI should not be empty")
	}
}

func TestParse_Expired(t *testing.T) {
	m := newTestManager()
	past := time.Now().Add(-2 * time.Hour)
	m.now = func() time.Time { return past }
	token, _, _ := m.Issue(uuid.New(), "bob", 3)

	m.now = time.Now
	if _, err := m.Parse(token); err != ErrExpiredToken {
		t.Errorf("Parse(expired) error = %v, want ErrExpiredToken", err)
	}
}

func TestParse_WrongSecret(t *testing.T) {
	token, _, _ := newTestManager().Issue(uuid.New(), "bob", 3)
	other := NewManager("another-secret-another-secret!!", "maxidp-test", time.Hour)
	if _, err := other.Parse(token); err != ErrInvalidToken {
		t.Errorf("Parse(wrong secret) error = %v, want ErrInvalidToken", err)
	}
}

func TestParse_WrongIssuer(t *testing.T) {
	token, _, _ := newTestManager().Issue(uuid.New(), "bob", 3)
	other := NewManager("test-secret-key-32bytes-long!!!!", "someone-else", time.Hour)
	if _, err := other.Parse(token); err != ErrInvalidToken {
		t.Errorf("Parse(wrong issuer) error = %v, want ErrInvalidToken", err)
	}
}

func TestParse_RejectsAlgNone(t *testing.T) {
	claims := &Claims{
		MemberID: uuid.New(),
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "maxidp-test",
			Audience:  jwt.ClaimStrings{sessionAudience},
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
	if err != nil {
		t.Fatalf("sign none: %v", err)
	}
	if _, err := newTestManager().Parse(token); err != ErrInvalidToken {
		t.Errorf("Parse(alg=none) error = %v, want ErrInvalidToken", err)
	}
}

func TestParse_Garbage(t *testing.T) {
	for _, s := range []string{"", "abc", strings.Repeat("x.", 3)} {
		if _, err := newTestManager().Parse(s); err != ErrInvalidToken {
			t.Errorf("Parse(%q) error = %v, want ErrInvalidToken", s, err)
		}
	}
}

/* ========== Blacklist ========== */

func TestBlacklist_RevokeAndCheck(t *testing.T) {
	mc := cache.NewMemoryCache(time.Minute)
	defer mc.Close()
	bl := NewBlacklist(mc)
	ctx := context.Background()

	if err := bl.Revoke(ctx, "jti-1", time.Now().Add(time.Hour)); err != nil {
		t.Fatalf("Revoke() error: %v", err)
	}
	revoked, err := bl.IsRevoked(ctx, "jti-1")
	if err != nil || !revoked {
		t.Errorf("IsRevoked(jti-1) = %v, %v, want true, nil", revoked, err)
	}
	if revoked, _ := bl.IsRevoked(ctx, "jti-2"); revoked {
		t.Error("IsRevoked(jti-2) = true, want false")
	}
}

func TestBlacklist_SkipsExpiredAndNil(t *testing.T) {
	mc := cache.NewMemoryCache(time.Minute)
	defer mc.Close()
	bl := NewBlacklist(mc)
	ctx := context.Background()

	bl.Revoke(ctx, "old", time.Now().Add(-time.Second))
	if mc.Len() != 0 {
		t.Errorf("expired session stored, Len() = %d", mc.Len())
	}

	var none *Blacklist
	if revoked, err := none.IsRevoked(ctx, "x"); revoked || err != nil {
		t.Errorf("nil blacklist IsRevoked = %v, %v", revoked, err)
	}
}
