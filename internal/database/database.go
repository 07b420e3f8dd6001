/*
 * Package database 数据库初始化
 * 功能：按驱动打开连接（SQLite / PostgreSQL / MySQL）、补全 DSN 参数、
 *       配置连接池、AutoMigrate、首次启动创建管理员
 */
package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"maxidp/internal/config"
	"maxidp/internal/model"
	"maxidp/internal/registry"
	"maxidp/pkg/logger"
	"maxidp/pkg/password"
	"maxidp/pkg/randutil"
)

/* Models 全部迁移模型，顺序即建表顺序 */
var Models = []any{
	&model.User{},
	&model.Client{},
	&model.ClientManager{},
	&model.ClientSecret{},
	&model.ClientCallback{},
	&model.ClientScope{},
	&model.Token{},
	&model.TokenScope{},
}

func normalizeDSN(driver, dsn string) string {
	switch driver {
	case "sqlite":
		return ensureDSNParams(dsn, map[string]string{
			"_busy_timeout": "5000",
			"_journal_mode": "WAL",
			"_synchronous":  "NORMAL",
			"_foreign_keys": "ON",
		})
	case "mysql":
		return ensureDSNParams(dsn, map[string]string{
			"parseTime": "true",
			"charset":   "utf8mb4",
			"loc":       "UTC",
			"timeout":   "10s",
		})
	case "postgres":
		if strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") {
			return ensureDSNParams(dsn, map[string]string{"connect_timeout": "10"})
		}
		if !strings.Contains(strings.ToLower(dsn), "connect_timeout") {
			dsn += " connect_timeout=10"
		}
	}
	return dsn
}

/*
 * ensureDSNParams 追加缺失的查询参数（已有则跳过）
 * 参数按 key 排序追加，结果稳定
 */
func ensureDSNParams(dsn string, defaults map[string]string) string {
	lower := strings.ToLower(dsn)
	keys := make([]string, 0, len(defaults))
	for k := range defaults {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var missing []string
	for _, k := range keys {
		if !strings.Contains(lower, strings.ToLower(k)+"=") {
			missing = append(missing, k+"="+defaults[k])
		}
	}
	if len(missing) == 0 {
		return dsn
	}
	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	return dsn + sep + strings.Join(missing, "&")
}

/*
 * Open 打开数据库连接并迁移
 * 流程：DSN 规范化 → 建立连接 → Ping → 连接池 → AutoMigrate
 * SQLite：关闭 PrepareStmt，MaxOpenConns=1（单写）
 * @param cfg - 数据库配置
 */
func Open(cfg *config.DatabaseConfig) (*gorm.DB, error) {
	dsn := normalizeDSN(cfg.Driver, cfg.DSN)

	var dialector gorm.Dialector
	switch cfg.Driver {
	case "sqlite":
		if !strings.HasPrefix(dsn, "file:") && !strings.HasPrefix(dsn, ":memory:") {
			if dir := dirOf(dsn); dir != "" {
				if err := os.MkdirAll(dir, 0o755); err != nil {
					return nil, fmt.Errorf("create sqlite dir: %w", err)
				}
			}
		}
		dialector = sqlite.Open(dsn)
	case "postgres":
		dialector = postgres.Open(dsn)
	case "mysql":
		dialector = mysql.Open(dsn)
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", cfg.Driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:                 logger.NewGormLogger(logger.Default(), !cfg.LogQueries),
		SkipDefaultTransaction: true,
		TranslateError:         true,
		PrepareStmt:            cfg.Driver != "sqlite",
		NowFunc:                func() time.Time { return time.Now().UTC() },
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := sqlDB.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	configureConnectionPool(sqlDB, cfg)

	if err := db.AutoMigrate(Models...); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return db, nil
}

func dirOf(path string) string {
	if i := strings.IndexByte(path, '?'); i >= 0 {
		path = path[:i]
	}
	if i := strings.LastIndexAny(path, `/\`); i > 0 {
		return path[:i]
	}
	return ""
}

/*
 * configureConnectionPool 配置连接池
 * SQLite: MaxOpenConns=1
 * PostgreSQL/MySQL: 默认 MaxOpen=25, MaxIdle=10, MaxLifetime=5min
 */
func configureConnectionPool(sqlDB *sql.DB, cfg *config.DatabaseConfig) {
	if cfg.Driver == "sqlite" {
		sqlDB.SetMaxOpenConns(1)
		sqlDB.SetMaxIdleConns(1)
		sqlDB.SetConnMaxLifetime(0)
		return
	}
	maxOpen := cfg.MaxOpenConns
	if maxOpen <= 0 {
		maxOpen = 25
	}
	maxIdle := cfg.MaxIdleConns
	if maxIdle <= 0 {
		maxIdle = 10
	}
	lifetime := time.Duration(cfg.ConnMaxLifetimeMin) * time.Minute
	if lifetime <= 0 {
		lifetime = 5 * time.Minute
	}
	sqlDB.SetMaxOpenConns(maxOpen)
	sqlDB.SetMaxIdleConns(maxIdle)
	sqlDB.SetConnMaxLifetime(lifetime)
	logger.Info("Database connection pool configured",
		"max_open", maxOpen,
		"max_idle", maxIdle,
		"max_lifetime", lifetime.String(),
	)
}

/*
 * SeedAdmin 成员表为空时创建管理员
 * 未配置密码时生成随机密码，仅输出到 stderr 一次
 * @return created - 是否新建
 */
func SeedAdmin(ctx context.Context, db *gorm.DB, admin config.AdminConfig, hasher password.Hasher) (created bool, err error) {
	var count int64
	if err := db.WithContext(ctx).Model(&model.User{}).Count(&count).Error; err != nil {
		return false, err
	}
	if count > 0 {
		return false, nil
	}

	plain := admin.Password
	generated := plain == ""
	if generated {
		if plain, err = randutil.String(18); err != nil {
			return false, err
		}
	}
	hash, err := hasher.Hash(plain)
	if err != nil {
		return false, err
	}
	username := admin.Username
	if username == "" {
		username = "admin"
	}
	user := &model.User{
		Username:     username,
		Email:        admin.Email,
		DisplayName:  "Administrator",
		PasswordHash: hash,
		RoleID:       registry.RoleAdmin,
	}
	if err := db.WithContext(ctx).Create(user).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return false, nil
		}
		return false, err
	}

	logger.Info("Initial admin created", "username", username)
	if generated {
		fmt.Fprintf(os.Stderr, "\n  Initial admin password for %q: %s\n  Change it after first login.\n\n", username, plain)
	}
	return true, nil
}

/* Ping 健康检查 */
func Ping(ctx context.Context, db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

/* Close 关闭底层连接 */
func Close(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
