/*
 * Package sanitize 输入清洗工具
 * 功能：客户端名称 / 描述 / 图标地址 / 回调地址、成员用户名与邮箱的清洗和校验
 */
package sanitize

import (
	"errors"
	"net"
	"net/url"
	"regexp"
	"strings"
	"unicode/utf8"
)

var (
	usernameRegex    = regexp.MustCompile(`^[a-zA-Z0-9_\-.]{3,40}$`)
	emailRegex       = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	htmlTagRegex     = regexp.MustCompile(`<[^>]*>`)
	controlCharRegex = regexp.MustCompile(`[\x00-\x08\x0B\x0C\x0E-\x1F\x7F]`)
)

/* MaxCallbackLength 与 client_callbacks.callback_url 列宽一致 */
const MaxCallbackLength = 500

var (
	ErrCallbackEmpty    = errors.New("callback url is empty")
	ErrCallbackRelative = errors.New("callback url must be absolute")
	ErrCallbackScheme   = errors.New("callback url must use https (http only for localhost)")
	ErrCallbackFragment = errors.New("callback url must not contain a fragment")
	ErrCallbackUserinfo = errors.New("callback url must not contain credentials")
	ErrCallbackTooLong  = errors.New("callback url exceeds 500 characters")
)

/*
 * String 去首尾空白、移除控制字符、按 rune 截断
 * @param maxLen - 最大长度，0 不限制
 */
func String(s string, maxLen int) string {
	s = strings.TrimSpace(controlCharRegex.ReplaceAllString(s, ""))
	if maxLen > 0 && utf8.RuneCountInString(s) > maxLen {
		s = string([]rune(s)[:maxLen])
	}
	return s
}

/* StripHTML 剥离 HTML 标签 */
func StripHTML(s string) string {
	return htmlTagRegex.ReplaceAllString(s, "")
}

/* PlainText 客户端名称、描述等展示文本 */
func PlainText(s string, maxLen int) string {
	return String(StripHTML(s), maxLen)
}

/*
 * Username 清洗并校验用户名
 * 规则：字母、数字、下划线、连字符、点，3-40 字符
 */
func Username(s string) (string, bool) {
	s = strings.ToLower(String(s, 40))
	return s, usernameRegex.MatchString(s)
}

/* Email 清洗并做基础格式校验 */
func Email(s string) (string, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	return s, len(s) <= 254 && emailRegex.MatchString(s)
}

/*
 * LogoURL 客户端图标地址，仅允许 http(s)
 * @return string - 清洗后的地址
 * @return bool   - 是否可用
 */
func LogoURL(s string) (string, bool) {
	s = strings.TrimSpace(s)
	u, err := url.Parse(s)
	if err != nil || u.Host == "" {
		return s, false
	}
	switch strings.ToLower(u.Scheme) {
	case "http", "https":
		return s, true
	default:
		return s, false
	}
}

/*
 * CallbackURL 校验客户端注册的回调地址
 * 回调地址按字节精确匹配，注册时不做规范化，只拒绝不安全的形式
 */
func CallbackURL(s string) error {
	if strings.TrimSpace(s) == "" {
		return ErrCallbackEmpty
	}
	if len(s) > MaxCallbackLength {
		return ErrCallbackTooLong
	}
	u, err := url.Parse(s)
	if err != nil || !u.IsAbs() || u.Host == "" {
		return ErrCallbackRelative
	}
	if u.Fragment != "" || strings.Contains(s, "#") {
		return ErrCallbackFragment
	}
	if u.User != nil {
		return ErrCallbackUserinfo
	}
	switch u.Scheme {
	case "https":
		return nil
	case "http":
		if isLoopback(u.Hostname()) {
			return nil
		}
	}
	return ErrCallbackScheme
}

func isLoopback(host string) bool {
	if host == "localhost" {
		return true
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}
