package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"maxidp/internal/model"
	"maxidp/internal/registry"
	"maxidp/internal/repository"
	"maxidp/pkg/audit"
	"maxidp/pkg/jwt"
	"maxidp/pkg/logger"
	"maxidp/pkg/password"
	"maxidp/pkg/sanitize"
)

/* MemberStore 成员读写 */
type MemberStore interface {
	MemberLookup
	Create(ctx context.Context, user *model.User) error
	UpdatePasswordHash(ctx context.Context, id uuid.UUID, hash string) error
}

/*
 * AuthService 成员会话服务
 * 功能：用户名密码登录签发会话 JWT、登出注销、会话校验、管理员创建成员
 *       会话是授权端点与客户端管理 API 的上游身份，与 OAuth 访问令牌无关
 */
type AuthService struct {
	members   MemberStore
	hasher    password.Hasher
	sessions  *jwt.Manager
	blacklist *jwt.Blacklist
	// 未知用户名时也做一次 bcrypt 比对，响应时间与密码错误一致
	dummyHash string
}

/*
 * NewAuthService 创建会话服务
 * @param members   - 成员仓储
 * @param hasher    - 密码哈希
 * @param sessions  - 会话 JWT 管理器
 * @param blacklist - 会话黑名单，可为 nil
 */
func NewAuthService(members MemberStore, hasher password.Hasher, sessions *jwt.Manager, blacklist *jwt.Blacklist) *AuthService {
	dummy, _ := hasher.Hash("maxidp-timing-equaliser")
	return &AuthService{
		members:   members,
		hasher:    hasher,
		sessions:  sessions,
		blacklist: blacklist,
		dummyHash: dummy,
	}
}

/* Session 登录结果 */
type Session struct {
	Token     string
	ExpiresAt time.Time
	Member    *model.User
}

/*
 * Login 用户名密码登录
 * 成功后若哈希 cost 低于当前配置则顺带重新哈希
 * @return error - 用户不存在或密码错误统一返回 ErrInvalidCredentials
 */
func (s *AuthService) Login(ctx context.Context, username, plain, ip string) (*Session, error) {
	uname, ok := sanitize.Username(username)
	if !ok {
		_ = s.hasher.Verify(s.dummyHash, plain)
		return nil, ErrInvalidCredentials
	}
	member, err := s.members.FindByUsername(ctx, uname)
	if errors.Is(err, repository.ErrUserNotFound) {
		_ = s.hasher.Verify(s.dummyHash, plain)
		audit.LogContext(ctx, audit.ActionSessionLogin, audit.ResultFailure, "", uname, ip, "reason", "unknown username")
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}
	if err := s.hasher.Verify(member.PasswordHash, plain); err != nil {
		audit.LogContext(ctx, audit.ActionSessionLogin, audit.ResultFailure, member.ID.String(), uname, ip, "reason", "wrong password")
		return nil, ErrInvalidCredentials
	}

	if s.hasher.NeedsRehash(member.PasswordHash) {
		if hash, err := s.hasher.Hash(plain); err == nil {
			if err := s.members.UpdatePasswordHash(ctx, member.ID, hash); err != nil {
				logger.WithContext(ctx).Warn("Password rehash failed", "member_id", member.ID, "error", err)
			}
		}
	}

	token, expiresAt, err := s.sessions.Issue(member.ID, member.Username, member.RoleID)
	if err != nil {
		return nil, fmt.Errorf("issue session: %w", err)
	}
	audit.LogContext(ctx, audit.ActionSessionLogin, audit.ResultSuccess, member.ID.String(), uname, ip)
	return &Session{Token: token, ExpiresAt: expiresAt, Member: member}, nil
}

/*
 * Authenticate 校验会话令牌
 * 黑名单查询失败时放行并记录告警，缓存故障不应阻断全部会话
 */
func (s *AuthService) Authenticate(ctx context.Context, token string) (*jwt.Claims, error) {
	claims, err := s.sessions.Parse(token)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSessionInvalid, err)
	}
	revoked, err := s.blacklist.IsRevoked(ctx, claims.ID)
	if err != nil {
		logger.WithContext(ctx).Warn("Session blacklist lookup failed", "error", err)
	}
	if revoked {
		return nil, fmt.Errorf("%w: session has been logged out", ErrSessionInvalid)
	}
	return claims, nil
}

/* Logout 注销会话，直到其原有过期时间 */
func (s *AuthService) Logout(ctx context.Context, claims *jwt.Claims) error {
	if claims.ExpiresAt == nil {
		return nil
	}
	return s.blacklist.Revoke(ctx, claims.ID, claims.ExpiresAt.Time)
}

/* Member 读取成员 */
func (s *AuthService) Member(ctx context.Context, id uuid.UUID) (*model.User, error) {
	m, err := s.members.FindByID(ctx, id)
	if errors.Is(err, repository.ErrUserNotFound) {
		return nil, fmt.Errorf("%w: member", ErrNotFound)
	}
	return m, err
}

/* CreateMemberInput 新成员 */
type CreateMemberInput struct {
	Username    string
	Email       string
	DisplayName string
	Password    string
	RoleID      int
}

/* CreateMember 管理员创建成员 */
func (s *AuthService) CreateMember(ctx context.Context, actor Actor, in *CreateMemberInput) (*model.User, error) {
	if !actor.IsAdmin() {
		return nil, ErrForbidden
	}
	uname, ok := sanitize.Username(in.Username)
	if !ok {
		return nil, fmt.Errorf("%w: username must be 3-40 characters of letters, digits, '_', '-' or '.'", ErrValidation)
	}
	email, ok := sanitize.Email(in.Email)
	if !ok {
		return nil, fmt.Errorf("%w: invalid email", ErrValidation)
	}
	roleID := in.RoleID
	if roleID == 0 {
		roleID = registry.RoleMember
	}
	if !registry.IsRoleID(roleID) {
		return nil, fmt.Errorf("%w: unknown role %d", ErrValidation, roleID)
	}
	if err := password.ValidateStrength(in.Password); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidation, err)
	}
	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return nil, err
	}

	status := model.MembershipActive
	if roleID == registry.RoleAlumni {
		status = model.MembershipAlumni
	}
	member := &model.User{
		Username:         uname,
		Email:            email,
		DisplayName:      sanitize.PlainText(in.DisplayName, 100),
		PasswordHash:     hash,
		RoleID:           roleID,
		MembershipStatus: status,
	}
	if err := s.members.Create(ctx, member); err != nil {
		if errors.Is(err, repository.ErrUserAlreadyExists) {
			return nil, fmt.Errorf("%w: username or email already taken", ErrConflict)
		}
		return nil, err
	}
	audit.LogContext(ctx, audit.ActionMemberCreate, audit.ResultSuccess, actor.ID.String(), member.ID.String(), actor.IP,
		"role", registry.RoleName(roleID))
	return member, nil
}
