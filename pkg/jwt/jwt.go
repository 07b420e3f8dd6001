/*
 * Package jwt 成员会话令牌
 * 功能：成员登录后签发 HS256 会话 JWT，作为授权端点与客户端管理 API 的上游身份
 *       会话令牌与 OAuth 访问令牌完全独立：后者是不透明随机串，存于数据库
 */
package jwt

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var (
	ErrInvalidToken = errors.New("invalid session token")
	ErrExpiredToken = errors.New("session token has expired")
)

/* sessionAudience 会话令牌的固定受众，防止与其它 HS256 令牌混用 */
const sessionAudience = "maxidp-session"

/*
 * Claims 会话令牌声明
 */
type Claims struct {
	MemberID uuid.UUID `json:"mid"`
	Username string    `json:"usr"`
	RoleID   int       `json:"rid"`
	jwt.RegisteredClaims
}

/*
 * Manager 会话令牌管理器
 */
type Manager struct {
	secret []byte
	issuer string
	ttl    time.Duration
	now    func() time.Time
}

/*
 * NewManager 创建会话令牌管理器
 * @param secret - HMAC 签名密钥
 * @param issuer - 签发者 (iss)
 * @param ttl    - 会话有效期
 */
func NewManager(secret, issuer string, ttl time.Duration) *Manager {
	if ttl <= 0 {
		ttl = 12 * time.Hour
	}
	return &Manager{secret: []byte(secret), issuer: issuer, ttl: ttl, now: time.Now}
}

/* TTL 会话有效期 */
func (m *Manager) TTL() time.Duration { return m.ttl }

/*
 * Issue 为成员签发会话令牌
 * @return token     - 签名后的 JWT
 * @return expiresAt - 过期时间
 */
func (m *Manager) Issue(memberID uuid.UUID, username string, roleID int) (string, time.Time, error) {
	now := m.now()
	expiresAt := now.Add(m.ttl)
	claims := &Claims{
		MemberID: memberID,
		Username: username,
		RoleID:   roleID,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    m.issuer,
			Subject:   memberID.String(),
			Audience:  jwt.ClaimStrings{sessionAudience},
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			ID:        newJTI(),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, expiresAt, nil
}

/*
 * Parse 校验会话令牌并返回声明
 * 强制 HS256、issuer、audience 一致
 */
func (m *Manager) Parse(token string) (*Claims, error) {
	parsed, err := jwt.ParseWithClaims(token, &Claims{}, func(*jwt.Token) (interface{}, error) {
		return m.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(m.issuer),
		jwt.WithAudience(sessionAudience),
		jwt.WithTimeFunc(m.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		return nil, ErrInvalidToken
	}
	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid || claims.MemberID == uuid.Nil {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

func newJTI() string {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return uuid.NewString()
	}
	return hex.EncodeToString(b)
}
