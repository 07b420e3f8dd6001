package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"maxidp/internal/registry"
	"maxidp/internal/repository"
	"maxidp/pkg/cache"
	"maxidp/pkg/jwt"
	"maxidp/pkg/password"
)

func newAuthService(t *testing.T, f *fixture) *AuthService {
	t.Helper()
	mem := cache.NewMemoryCache(time.Minute)
	t.Cleanup(func() { _ = mem.Close() })
	return NewAuthService(
		repository.NewUserRepository(f.db),
		password.NewHasher(bcrypt.MinCost),
		jwt.NewManager("test-secret-test-secret-test-secret", "maxidp", time.Hour),
		jwt.NewBlacklist(mem),
	)
}

func TestAuthService_CreateMemberAndLogin(t *testing.T) {
	f := newFixture(t, 1)
	svc := newAuthService(t, f)
	ctx := context.Background()
	admin := Actor{ID: f.owner.ID, RoleID: registry.RoleAdmin}

	m, err := svc.CreateMember(ctx, admin, &CreateMemberInput{
		Username: "Alice", Email: "Alice@Club.example", Password: "correct horse battery",
	})
	if err != nil {
		t.Fatalf("CreateMember() error: %v", err)
	}
	if m.Username != "alice" || m.Email != "alice@club.example" || m.RoleID != registry.RoleMember {
		t.Errorf("member = %+v", m)
	}

	sess, err := svc.Login(ctx, "alice", "correct horse battery", "127.0.0.1")
	if err != nil {
		t.Fatalf("Login() error: %v", err)
	}
	claims, err := svc.Authenticate(ctx, sess.Token)
	if err != nil || claims.MemberID != m.ID {
		t.Fatalf("Authenticate() = %v, %v", claims, err)
	}

	if _, err := svc.Login(ctx, "alice", "wrong password!!", ""); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("Login(wrong password) error = %v, want ErrInvalidCredentials", err)
	}
	if _, err := svc.Login(ctx, "nobody", "correct horse battery", ""); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("Login(unknown) error = %v, want ErrInvalidCredentials", err)
	}

	if err := svc.Logout(ctx, claims); err != nil {
		t.Fatalf("Logout() error: %v", err)
	}
	if _, err := svc.Authenticate(ctx, sess.Token); !errors.Is(err, ErrSessionInvalid) {
		t.Errorf("Authenticate(after logout) error = %v, want ErrSessionInvalid", err)
	}
}

func TestAuthService_CreateMemberRules(t *testing.T) {
	f := newFixture(t, 1)
	svc := newAuthService(t, f)
	ctx := context.Background()
	admin := Actor{ID: f.owner.ID, RoleID: registry.RoleAdmin}

	if _, err := svc.CreateMember(ctx, Actor{ID: f.owner.ID, RoleID: registry.RoleBoard}, &CreateMemberInput{
		Username: "bob", Email: "bob@club.example", Password: "correct horse battery",
	}); !errors.Is(err, ErrForbidden) {
		t.Errorf("CreateMember(non-admin) error = %v, want ErrForbidden", err)
	}
	if _, err := svc.CreateMember(ctx, admin, &CreateMemberInput{
		Username: "bob", Email: "bob@club.example", Password: "short",
	}); !errors.Is(err, ErrValidation) {
		t.Errorf("CreateMember(weak password) error = %v, want ErrValidation", err)
	}
	if _, err := svc.CreateMember(ctx, admin, &CreateMemberInput{
		Username: "bob", Email: "bob@club.example", Password: "correct horse battery", RoleID: 42,
	}); !errors.Is(err, ErrValidation) {
		t.Errorf("CreateMember(unknown role) error = %v, want ErrValidation", err)
	}
	if _, err := svc.CreateMember(ctx, admin, &CreateMemberInput{
		Username: "owner", Email: "x@club.example", Password: "correct horse battery",
	}); !errors.Is(err, ErrConflict) {
		t.Errorf("CreateMember(taken) error = %v, want ErrConflict", err)
	}
}

func TestAuthService_RehashOnLogin(t *testing.T) {
	f := newFixture(t, 1)
	ctx := context.Background()
	users := repository.NewUserRepository(f.db)
	weak := password.NewHasher(bcrypt.MinCost)
	hash, _ := weak.Hash("correct horse battery")
	if err := users.UpdatePasswordHash(ctx, f.owner.ID, hash); err != nil {
		t.Fatal(err)
	}

	strong := password.NewHasher(bcrypt.MinCost + 1)
	svc := NewAuthService(users, strong, jwt.NewManager("k-k-k-k-k-k-k-k-k-k-k-k-k-k-k-k", "maxidp", time.Hour), nil)
	if _, err := svc.Login(ctx, "owner", "correct horse battery", ""); err != nil {
		t.Fatalf("Login() error: %v", err)
	}
	m, _ := users.FindByID(ctx, f.owner.ID)
	if strong.NeedsRehash(m.PasswordHash) {
		t.Error("password hash was not upgraded on login")
	}
}
