/*
 * Package config 应用配置包
 * 功能：定义配置结构、加载 data/config.json、应用环境变量覆盖、启动校验
 */
package config

import (
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

const (
	DefaultConfigPath = "data/config.json"
	DefaultDataDir    = "data"
)

/*
 * Config 应用根配置
 */
type Config struct {
	Server   ServerConfig   `json:"server"`
	Database DatabaseConfig `json:"database"`
	Cache    CacheConfig    `json:"cache"`
	Session  SessionConfig  `json:"session"`
	OAuth    OAuthConfig    `json:"oauth"`
	Admin    AdminConfig    `json:"admin"`
	Log      LogConfig      `json:"log"`
	Metrics  MetricsConfig  `json:"metrics"`
}

/* ServerConfig HTTP 服务器配置 */
type ServerConfig struct {
	Host               string   `json:"host"`
	Port               int      `json:"port"`
	Mode               string   `json:"mode"` // debug, release, test
	ShutdownTimeoutSec int      `json:"shutdown_timeout_sec"`
	RequestTimeoutSec  int      `json:"request_timeout_sec"`
	AllowedOrigins     []string `json:"allowed_origins"`
}

/* DatabaseConfig 数据库配置，支持 SQLite/PostgreSQL/MySQL */
type DatabaseConfig struct {
	Driver             string `json:"driver"` // sqlite, postgres, mysql
	DSN                string `json:"dsn"`
	MaxOpenConns       int    `json:"max_open_conns"`
	MaxIdleConns       int    `json:"max_idle_conns"`
	ConnMaxLifetimeMin int    `json:"conn_max_lifetime_min"`
	LogQueries         bool   `json:"log_queries"`
}

/* CacheConfig 客户端注册信息缓存 */
type CacheConfig struct {
	Driver           string   `json:"driver"` // memory, redis, memcached, badger
	RedisURL         string   `json:"redis_url"`
	MemcachedServers []string `json:"memcached_servers"`
	BadgerPath       string   `json:"badger_path"`
	Prefix           string   `json:"prefix"`
	DefaultTTLSec    int      `json:"default_ttl_sec"`
	ClientTTLSec     int      `json:"client_ttl_sec"`
}

/* SessionConfig 成员会话（JWT） */
type SessionConfig struct {
	Secret   string        `json:"secret"`
	Issuer   string        `json:"issuer"`
	TTLHours int           `json:"ttl_hours"`
	TTL      time.Duration `json:"-"`
}

/* OAuthConfig 授权码与访问令牌 */
type OAuthConfig struct {
	Realm               string        `json:"realm"`
	AuthCodeTTLMin      int           `json:"auth_code_ttl_minutes"`
	AccessTokenTTLHours int           `json:"access_token_ttl_hours"`
	ReaperIntervalMin   int           `json:"reaper_interval_minutes"`
	TokenRatePerSec     float64       `json:"token_rate_per_sec"`
	TokenRateBurst      int           `json:"token_rate_burst"`
	SecretBcryptCost    int           `json:"secret_bcrypt_cost"`
	AuthCodeTTL         time.Duration `json:"-"`
	AccessTokenTTL      time.Duration `json:"-"`
	ReaperInterval      time.Duration `json:"-"`
}

/* AdminConfig 初始管理员（成员表为空时创建） */
type AdminConfig struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

/* LogConfig 日志配置 */
type LogConfig struct {
	Level  string `json:"level"`  // debug, info, warn, error
	Format string `json:"format"` // text, json
	Output string `json:"output"` // stdout, stderr, 文件路径
}

/* MetricsConfig Prometheus 指标 */
type MetricsConfig struct {
	Enabled bool   `json:"enabled"`
	Path    string `json:"path"`
}

/* Load 从默认路径加载配置 */
func Load() (*Config, error) {
	return LoadFromFile(DefaultConfigPath)
}

/*
 * LoadFromFile 从指定文件加载配置
 *
 * 加载策略：
 *  1. 文件不存在 → 生成默认配置（含随机会话密钥）并写回
 *  2. 文件存在 → 在默认配置基础上 Unmarshal，JSON 无效时返回错误
 *  3. 会话密钥为空 → 生成并写回，保证重启后会话仍有效
 *  4. 最后应用环境变量覆盖
 */
func LoadFromFile(path string) (*Config, error) {
	cfg := defaultConfig()

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		if saveErr := saveConfig(path, cfg); saveErr != nil {
			fmt.Fprintf(os.Stderr, "WARNING: failed to save config to %s: %v\n", path, saveErr)
		}
	case err != nil:
		return nil, fmt.Errorf("read config %s: %w", path, err)
	default:
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
		if cfg.Session.Secret == "" {
			cfg.Session.Secret = GenerateRandomSecret(32)
			if saveErr := saveConfig(path, cfg); saveErr != nil {
				fmt.Fprintf(os.Stderr, "WARNING: failed to persist generated session secret: %v\n", saveErr)
			}
		}
	}

	cfg.applyEnvOverrides()
	cfg.computeDurations()
	return cfg, nil
}

/* GenerateRandomSecret 生成随机密钥（base64url） */
func GenerateRandomSecret(length int) string {
	b := make([]byte, length)
	if _, err := rand.Read(b); err != nil {
		panic(fmt.Sprintf("config: crypto/rand unavailable: %v", err))
	}
	return base64.RawURLEncoding.EncodeToString(b)
}

func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:               "0.0.0.0",
			Port:               8080,
			Mode:               "debug",
			ShutdownTimeoutSec: 15,
			RequestTimeoutSec:  30,
		},
		Database: DatabaseConfig{
			Driver: "sqlite",
			DSN:    filepath.Join(DefaultDataDir, "maxidp.db"),
		},
		Cache: CacheConfig{
			Driver:        "memory",
			Prefix:        "maxidp:",
			DefaultTTLSec: 300,
			ClientTTLSec:  60,
		},
		Session: SessionConfig{
			Secret:   GenerateRandomSecret(32),
			Issuer:   "maxidp",
			TTLHours: 12,
		},
		OAuth: OAuthConfig{
			Realm:               "Maximum IdP",
			AuthCodeTTLMin:      10,
			AccessTokenTTLHours: 24,
			ReaperIntervalMin:   30,
			TokenRatePerSec:     5,
			TokenRateBurst:      20,
			SecretBcryptCost:    12,
		},
		Admin: AdminConfig{
			Username: "admin",
			Email:    "admin@maximum.example",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
			Output: "stdout",
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Path:    "/metrics",
		},
	}
}

/* Default 返回默认配置（测试用） */
func Default() *Config {
	cfg := defaultConfig()
	cfg.computeDurations()
	return cfg
}

/*
 * applyEnvOverrides 环境变量覆盖配置文件
 * 数字解析失败的值被忽略
 */
func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("SERVER_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			c.Server.Port = port
		}
	}
	if v := os.Getenv("GIN_MODE"); v != "" {
		c.Server.Mode = v
	}
	if v := os.Getenv("ALLOWED_ORIGINS"); v != "" {
		c.Server.AllowedOrigins = splitList(v)
	}
	if v := os.Getenv("DB_DRIVER"); v != "" {
		c.Database.Driver = v
	}
	if v := os.Getenv("DB_DSN"); v != "" {
		c.Database.DSN = v
	}
	if v := os.Getenv("CACHE_DRIVER"); v != "" {
		c.Cache.Driver = v
	}
	if v := os.Getenv("REDIS_URL"); v != "" {
		c.Cache.RedisURL = v
	}
	if v := os.Getenv("MEMCACHED_SERVERS"); v != "" {
		c.Cache.MemcachedServers = splitList(v)
	}
	if v := os.Getenv("JWT_SECRET"); v != "" {
		c.Session.Secret = v
	}
	if v := os.Getenv("ADMIN_USERNAME"); v != "" {
		c.Admin.Username = v
	}
	if v := os.Getenv("ADMIN_PASSWORD"); v != "" {
		c.Admin.Password = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
	if v := os.Getenv("LOG_FORMAT"); v != "" {
		c.Log.Format = v
	}
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func (c *Config) computeDurations() {
	c.Session.TTL = time.Duration(c.Session.TTLHours) * time.Hour
	c.OAuth.AuthCodeTTL = time.Duration(c.OAuth.AuthCodeTTLMin) * time.Minute
	c.OAuth.AccessTokenTTL = time.Duration(c.OAuth.AccessTokenTTLHours) * time.Hour
	c.OAuth.ReaperInterval = time.Duration(c.OAuth.ReaperIntervalMin) * time.Minute
}

func saveConfig(path string, cfg *Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}

/* Addr 监听地址 */
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

/*
 * Validate 启动校验
 * @return errs  - 致命错误，非空时拒绝启动
 * @return warns - 警告（不安全但可运行的配置）
 */
func (c *Config) Validate() (errs []string, warns []string) {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		errs = append(errs, "server.port must be between 1 and 65535")
	}
	switch c.Server.Mode {
	case "debug", "release", "test":
	default:
		errs = append(errs, "server.mode must be 'debug', 'release', or 'test'")
	}

	switch c.Database.Driver {
	case "sqlite", "postgres", "mysql":
	default:
		errs = append(errs, "database.driver must be 'sqlite', 'postgres', or 'mysql'")
	}
	if c.Database.DSN == "" {
		errs = append(errs, "database.dsn must not be empty")
	}

	switch c.Cache.Driver {
	case "", "memory", "badger":
	case "redis":
		if c.Cache.RedisURL == "" {
			errs = append(errs, "cache.redis_url must be set when cache.driver is 'redis'")
		}
	case "memcached":
		if len(c.Cache.MemcachedServers) == 0 {
			errs = append(errs, "cache.memcached_servers must be set when cache.driver is 'memcached'")
		}
	default:
		errs = append(errs, "cache.driver must be one of: memory, redis, memcached, badger")
	}

	if len(c.Session.Secret) < 32 {
		errs = append(errs, "session.secret must be at least 32 characters")
	}
	if c.Session.Issuer == "" {
		errs = append(errs, "session.issuer must not be empty")
	}
	if c.Session.TTLHours <= 0 {
		errs = append(errs, "session.ttl_hours must be positive")
	}

	if c.OAuth.AuthCodeTTLMin <= 0 {
		errs = append(errs, "oauth.auth_code_ttl_minutes must be positive")
	} else if c.OAuth.AuthCodeTTLMin > 10 {
		warns = append(warns, "oauth.auth_code_ttl_minutes above 10 widens the code interception window")
	}
	if c.OAuth.AccessTokenTTLHours <= 0 {
		errs = append(errs, "oauth.access_token_ttl_hours must be positive")
	}
	if c.OAuth.ReaperIntervalMin < 0 {
		errs = append(errs, "oauth.reaper_interval_minutes must not be negative")
	}
	if c.OAuth.TokenRatePerSec < 0 || c.OAuth.TokenRateBurst < 0 {
		errs = append(errs, "oauth.token_rate_per_sec and oauth.token_rate_burst must not be negative")
	}
	if c.OAuth.Realm == "" || strings.ContainsAny(c.OAuth.Realm, "\"\\") {
		errs = append(errs, "oauth.realm must be non-empty and contain no quotes or backslashes")
	}
	if c.OAuth.SecretBcryptCost != 0 && c.OAuth.SecretBcryptCost < 10 {
		warns = append(warns, "oauth.secret_bcrypt_cost below 10 weakens stored client secrets")
	}

	if c.Server.Mode == "release" && c.Admin.Password == "" {
		warns = append(warns, "admin.password is empty; the initial admin gets a random password printed once")
	}
	if c.Server.Mode == "release" && c.Database.Driver == "sqlite" {
		warns = append(warns, "sqlite in release mode serialises all writes")
	}
	return errs, warns
}
