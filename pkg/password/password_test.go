package password

import (
	"strings"
	"testing"

	"golang.org/x/crypto/bcrypt"
)

func fastHasher() Hasher { return NewHasher(bcrypt.MinCost) }

/* ========== Hash & Verify ========== */

func TestHasher_HashAndVerify(t *testing.T) {
	h := fastHasher()
	hash, err := h.Hash("s3cret-value")
	if err != nil {
		t.Fatalf("Hash() error: %v", err)
	}
	if hash == "s3cret-value" {
		t.Fatal("Hash() returned plaintext")
	}
	if err := h.Verify(hash, "s3cret-value"); err != nil {
		t.Errorf("Verify(correct) error = %v", err)
	}
	if err := h.Verify(hash, "s3cret-valuf"); err != ErrMismatch {
		t.Errorf("Verify(wrong) error = %v, want ErrMismatch", err)
	}
}

func TestHasher_TooLong(t *testing.T) {
	h := fastHasher()
	long := strings.Repeat("a", maxLength+1)
	if _, err := h.Hash(long); err != ErrTooLong {
		t.Errorf("Hash(73 bytes) error = %v, want ErrTooLong", err)
	}

	hash, _ := h.Hash(strings.Repeat("a", maxLength))
	if err := h.Verify(hash, long); err != ErrMismatch {
		t.Errorf("Verify(73 bytes) error = %v, want ErrMismatch", err)
	}
}

func TestHasher_EmptyHash(t *testing.T) {
	if err := fastHasher().Verify("", "anything"); err != ErrMismatch {
		t.Errorf("Verify(empty hash) error = %v, want ErrMismatch", err)
	}
}

func TestNewHasher_OutOfRangeCost(t *testing.T) {
	if c := NewHasher(0).Cost(); c != DefaultCost {
		t.Errorf("NewHasher(0).Cost() = %d, want %d", c, DefaultCost)
	}
	if c := NewHasher(99).Cost(); c != DefaultCost {
		t.Errorf("NewHasher(99).Cost() = %d, want %d", c, DefaultCost)
	}
}

func TestHasher_NeedsRehash(t *testing.T) {
	hash, _ := fastHasher().Hash("value")
	if !NewHasher(bcrypt.MinCost + 1).NeedsRehash(hash) {
		t.Error("NeedsRehash() = false for lower-cost hash")
	}
	if fastHasher().NeedsRehash(hash) {
		t.Error("NeedsRehash() = true for same-cost hash")
	}
	if !fastHasher().NeedsRehash("not-a-hash") {
		t.Error("NeedsRehash(garbage) = false")
	}
}

/* ========== ValidateStrength ========== */

func TestValidateStrength(t *testing.T) {
	cases := []struct {
		in   string
		want error
	}{
		{"short", ErrTooShort},
		{"Password123", ErrTooCommon},
		{strings.Repeat("x", 80), ErrTooLong},
		{"correct horse battery", nil},
	}
	for _, c := range cases {
		if got := ValidateStrength(c.in); got != c.want {
			t.Errorf("ValidateStrength(%q) = %v, want %v", c.in, got, c.want)
		}
	}
}
