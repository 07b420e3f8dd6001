/*
 * Package randutil 不透明随机值生成
 * 功能：授权码、访问令牌、客户端 ID、客户端密钥统一使用 crypto/rand
 */
package randutil

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
)

const (
	/* TokenBytes 授权码与访问令牌的熵：32 字节 → 43 字符 base64url */
	TokenBytes = 32
	/* ClientIDBytes 客户端 ID 熵 */
	ClientIDBytes = 16
	/* SecretBytes 客户端密钥熵 */
	SecretBytes = 32
)

/*
 * String 返回 n 字节随机数的 base64url（无填充）编码
 * @param n - 随机字节数
 */
func String(n int) (string, error) {
	if n <= 0 {
		return "", fmt.Errorf("randutil: invalid length %d", n)
	}
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("randutil: read random: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

/* Token 生成授权码或访问令牌 */
func Token() (string, error) { return String(TokenBytes) }

/* ClientID 生成客户端 ID */
func ClientID() (string, error) { return String(ClientIDBytes) }

/* Secret 生成客户端密钥明文 */
func Secret() (string, error) { return String(SecretBytes) }
