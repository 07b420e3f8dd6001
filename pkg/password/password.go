/*
 * Package password bcrypt 哈希工具
 * 功能：成员登录密码与 OAuth 客户端密钥的哈希与校验，成员密码强度检查
 *       客户端密钥只在签发时以明文返回一次，之后仅保存 bcrypt 哈希
 */
package password

import (
	"errors"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

/* DefaultCost 生产环境 bcrypt 代价因子 */
const DefaultCost = 12

/* bcrypt 输入上限 72 字节，超出部分会被静默截断 */
const maxLength = 72

var (
	ErrTooLong   = errors.New("password: exceeds maximum length of 72 bytes")
	ErrTooShort  = errors.New("password: must be at least 10 characters")
	ErrTooCommon = errors.New("password: too common")
	ErrMismatch  = errors.New("password: does not match")
)

var commonPasswords = map[string]struct{}{
	"password123": {}, "1234567890": {}, "qwertyuiop": {}, "iloveyou12": {},
	"letmein123": {}, "welcome123": {}, "admin12345": {}, "changeme12": {},
	"maximumclub": {}, "programming": {}, "helloworld": {}, "0123456789": {},
}

/*
 * Hasher bcrypt 哈希器
 * 功能：持有 cost，测试中可使用 bcrypt.MinCost 加速
 */
type Hasher struct {
	cost int
}

/*
 * NewHasher 创建哈希器
 * @param cost - bcrypt cost，越界时回退到 DefaultCost
 */
func NewHasher(cost int) Hasher {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = DefaultCost
	}
	return Hasher{cost: cost}
}

/* Cost 当前 cost */
func (h Hasher) Cost() int { return h.cost }

/*
 * Hash 生成 bcrypt 哈希
 * @param plain - 明文
 * @return string - 哈希
 */
func (h Hasher) Hash(plain string) (string, error) {
	if len(plain) > maxLength {
		return "", ErrTooLong
	}
	b, err := bcrypt.GenerateFromPassword([]byte(plain), h.cost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

/*
 * Verify 校验明文与哈希，比较本身为恒定时间
 * @return error - 不匹配返回 ErrMismatch
 */
func (h Hasher) Verify(hash, plain string) error {
	if len(plain) > maxLength || hash == "" {
		return ErrMismatch
	}
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain)); err != nil {
		return ErrMismatch
	}
	return nil
}

/* NeedsRehash 哈希 cost 低于当前配置时返回 true */
func (h Hasher) NeedsRehash(hash string) bool {
	c, err := bcrypt.Cost([]byte(hash))
	if err != nil {
		return true
	}
	return c < h.cost
}

/*
 * ValidateStrength 成员密码最低要求
 * 长度 10 到 72 字节，不在常见密码表中
 */
func ValidateStrength(plain string) error {
	if len(plain) < 10 {
		return ErrTooShort
	}
	if len(plain) > maxLength {
		return ErrTooLong
	}
	if _, ok := commonPasswords[strings.ToLower(plain)]; ok {
		return ErrTooCommon
	}
	return nil
}
