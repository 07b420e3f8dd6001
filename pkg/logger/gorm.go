package logger

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

/*
 * GormLogger GORM 日志适配器
 * 功能：将 SQL 日志接入统一日志系统，慢查询告警，过滤迁移语句
 *       SQL 语句中含授权码 / 访问令牌参数，只输出语句类型，不输出完整 SQL
 */
type GormLogger struct {
	logger        *Logger
	SlowThreshold time.Duration
	LogLevel      gormlogger.LogLevel
}

/*
 * NewGormLogger 创建 GORM 日志适配器
 * @param l      - 统一日志器实例
 * @param silent - 静默模式（仅输出错误）
 */
func NewGormLogger(l *Logger, silent bool) *GormLogger {
	level := gormlogger.Info
	if silent {
		level = gormlogger.Error
	}
	return &GormLogger{logger: l, SlowThreshold: 200 * time.Millisecond, LogLevel: level}
}

func (g *GormLogger) LogMode(level gormlogger.LogLevel) gormlogger.Interface {
	cp := *g
	cp.LogLevel = level
	return &cp
}

func (g *GormLogger) Info(ctx context.Context, msg string, data ...interface{}) {
	if g.LogLevel >= gormlogger.Info {
		g.logger.WithContext(ctx).Info(fmt.Sprintf(msg, data...))
	}
}

func (g *GormLogger) Warn(ctx context.Context, msg string, data ...interface{}) {
	if g.LogLevel >= gormlogger.Warn {
		g.logger.WithContext(ctx).Warn(fmt.Sprintf(msg, data...))
	}
}

func (g *GormLogger) Error(ctx context.Context, msg string, data ...interface{}) {
	if g.LogLevel >= gormlogger.Error {
		g.logger.WithContext(ctx).Error(fmt.Sprintf(msg, data...))
	}
}

func (g *GormLogger) Trace(ctx context.Context, begin time.Time, fc func() (sql string, rowsAffected int64), err error) {
	if g.LogLevel <= gormlogger.Silent {
		return
	}
	elapsed := time.Since(begin)
	sql, rows := fc()
	if isMigrationQuery(sql) {
		return
	}
	l := g.logger.WithContext(ctx)

	switch {
	case err != nil && !errors.Is(err, gorm.ErrRecordNotFound) && g.LogLevel >= gormlogger.Error:
		l.Error("DB Error", "error", err.Error(), "stmt", statementKind(sql), "elapsed", formatDuration(elapsed))
	case g.SlowThreshold != 0 && elapsed > g.SlowThreshold && g.LogLevel >= gormlogger.Warn:
		l.Warn("Slow Query", "stmt", statementKind(sql), "elapsed", formatDuration(elapsed), "rows", rows)
	case g.LogLevel >= gormlogger.Info:
		l.Debug("DB Query", "stmt", statementKind(sql), "elapsed", formatDuration(elapsed), "rows", rows)
	}
}

var migrationKeywords = []string{
	"sqlite_master",
	"ALTER TABLE",
	"CREATE TABLE",
	"CREATE INDEX",
	"CREATE UNIQUE INDEX",
	"information_schema",
	"pg_catalog",
}

func isMigrationQuery(sql string) bool {
	for _, kw := range migrationKeywords {
		if strings.Contains(sql, kw) {
			return true
		}
	}
	return false
}

/* statementKind 返回 "SELECT tokens" 形式的摘要 */
func statementKind(sql string) string {
	fields := strings.Fields(sql)
	if len(fields) == 0 {
		return ""
	}
	verb := strings.ToUpper(fields[0])
	for i, f := range fields {
		up := strings.ToUpper(f)
		if (up == "FROM" || up == "INTO" || up == "UPDATE") && i+1 < len(fields) {
			return verb + " " + strings.Trim(fields[i+1], "`\"")
		}
	}
	return verb
}

func formatDuration(d time.Duration) string {
	if d < time.Millisecond {
		return fmt.Sprintf("%dµs", d.Microseconds())
	}
	if d < time.Second {
		return fmt.Sprintf("%.2fms", float64(d.Microseconds())/1000)
	}
	return fmt.Sprintf("%.2fs", d.Seconds())
}
