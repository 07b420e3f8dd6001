/*
 * Package logger 统一日志系统
 * 功能：基于 slog 的结构化日志，彩色终端输出 / JSON 输出、TraceID 关联、
 *       敏感字段脱敏（授权码、访问令牌、客户端密钥、密码）、GORM 集成
 *
 * 日志格式（text 模式）：
 *   15:04:05 ● INFO  [service/exchange.go:42] 消息内容 key=value
 *
 * 等级图标：
 *   ○ DEBUG (灰)  ● INFO (绿)  ▲ WARN (黄)  ✖ ERROR (红)
 */
package logger

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"sync"
	"time"
)

/* Level 日志级别类型别名 */
type Level = slog.Level

const (
	LevelDebug = slog.LevelDebug
	LevelInfo  = slog.LevelInfo
	LevelWarn  = slog.LevelWarn
	LevelError = slog.LevelError
)

const (
	colorReset  = "\033[0m"
	colorRed    = "\033[31m"
	colorGreen  = "\033[32m"
	colorYellow = "\033[33m"
	colorCyan   = "\033[36m"
	colorWhite  = "\033[37m"
	colorGray   = "\033[90m"
	colorBold   = "\033[1m"
)

const redacted = "***REDACTED***"

/* sensitiveKeys 需要脱敏的属性名 */
var sensitiveKeys = map[string]struct{}{
	"password":      {},
	"client_secret": {},
	"secret":        {},
	"code":          {},
	"access_token":  {},
	"token":         {},
	"authorization": {},
	"session_token": {},
}

/* IsSensitiveKey 判断属性名是否需要脱敏 */
func IsSensitiveKey(key string) bool {
	_, ok := sensitiveKeys[strings.ToLower(key)]
	return ok
}

/*
 * PrettyHandler 彩色日志处理器
 * 功能：实现 slog.Handler 接口，按 时间 等级 [源] 消息 属性 输出一行
 */
type PrettyHandler struct {
	opts   *slog.HandlerOptions
	output io.Writer
	attrs  []slog.Attr
	mu     *sync.Mutex
}

/*
 * NewPrettyHandler 创建彩色日志处理器
 * @param output - 输出目标
 * @param opts   - slog 处理器选项
 */
func NewPrettyHandler(output io.Writer, opts *slog.HandlerOptions) *PrettyHandler {
	return &PrettyHandler{
		opts:   opts,
		output: output,
		mu:     &sync.Mutex{},
	}
}

func (h *PrettyHandler) Enabled(_ context.Context, level slog.Level) bool {
	minLevel := slog.LevelInfo
	if h.opts != nil && h.opts.Level != nil {
		minLevel = h.opts.Level.Level()
	}
	return level >= minLevel
}

func (h *PrettyHandler) Handle(_ context.Context, r slog.Record) error {
	var sb strings.Builder
	sb.WriteString(colorGray + r.Time.Format("15:04:05") + colorReset)
	sb.WriteByte(' ')
	sb.WriteString(formatLevel(r.Level))
	sb.WriteByte(' ')

	if h.opts != nil && h.opts.AddSource {
		if r.PC != 0 {
			frames := runtime.CallersFrames([]uintptr{r.PC})
			f, _ := frames.Next()
			if f.File != "" {
				src := filepath.Base(filepath.Dir(f.File)) + "/" + filepath.Base(f.File) + ":" + strconv.Itoa(f.Line)
				sb.WriteString(colorCyan + "[" + src + "]" + colorReset + " ")
			}
		} else {
			sb.WriteString(colorCyan + "[HTTP]" + colorReset + " ")
		}
	}

	sb.WriteString(colorBold + colorWhite + r.Message + colorReset)

	write := func(a slog.Attr) {
		if a.Key == "" || a.Key == "trace_id" {
			return
		}
		if h.opts != nil && h.opts.ReplaceAttr != nil {
			a = h.opts.ReplaceAttr(nil, a)
		}
		fmt.Fprintf(&sb, " %s%s%s=%v", colorCyan, a.Key, colorReset, a.Value.Any())
	}
	for _, a := range h.attrs {
		write(a)
	}
	r.Attrs(func(a slog.Attr) bool {
		write(a)
		return true
	})
	sb.WriteByte('\n')

	h.mu.Lock()
	defer h.mu.Unlock()
	_, err := io.WriteString(h.output, sb.String())
	return err
}

func formatLevel(level slog.Level) string {
	switch {
	case level < slog.LevelInfo:
		return colorBold + colorGray + "○ DEBUG" + colorReset
	case level < slog.LevelWarn:
		return colorBold + colorGreen + "● INFO " + colorReset
	case level < slog.LevelError:
		return colorBold + colorYellow + "▲ WARN " + colorReset
	default:
		return colorBold + colorRed + "✖ ERROR" + colorReset
	}
}

func (h *PrettyHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	merged := make([]slog.Attr, 0, len(h.attrs)+len(attrs))
	merged = append(merged, h.attrs...)
	merged = append(merged, attrs...)
	return &PrettyHandler{opts: h.opts, output: h.output, attrs: merged, mu: h.mu}
}

/* WithGroup 彩色输出不展开分组 */
func (h *PrettyHandler) WithGroup(string) slog.Handler { return h }

type contextKey string

/* TraceIDKey 请求上下文中的 TraceID 键 */
const TraceIDKey contextKey = "trace_id"

/*
 * Config 日志配置
 */
type Config struct {
	Level      Level  // Log level
	Format     string // "json" or "text"
	Output     string // "stdout", "stderr", or file path
	AddSource  bool
	TimeFormat string
}

/* DefaultConfig 返回默认日志配置（Info级别、text格式、stdout输出） */
func DefaultConfig() *Config {
	return &Config{
		Level:      LevelInfo,
		Format:     "text",
		Output:     "stdout",
		AddSource:  true,
		TimeFormat: time.RFC3339,
	}
}

/*
 * ParseLevel 解析配置中的日志级别字符串
 * @param s - debug / info / warn / error
 */
func ParseLevel(s string) Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return LevelDebug
	case "warn", "warning":
		return LevelWarn
	case "error":
		return LevelError
	default:
		return LevelInfo
	}
}

/*
 * Logger 增强型日志器
 * 功能：包装 slog.Logger，增加 TraceID、字段注入、OAuth 事件快捷方法
 */
type Logger struct {
	*slog.Logger
	file *os.File
}

var (
	defaultLogger *Logger
	mu            sync.RWMutex
)

/*
 * Init 初始化全局日志器
 * @param cfg - 日志配置
 */
func Init(cfg *Config) error {
	l, err := New(cfg)
	if err != nil {
		return err
	}
	mu.Lock()
	old := defaultLogger
	defaultLogger = l
	mu.Unlock()
	if old != nil {
		_ = old.Close()
	}
	return nil
}

/*
 * New 创建新的 Logger 实例
 * @param cfg - 日志配置，nil 时使用默认配置
 */
func New(cfg *Config) (*Logger, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}

	var output io.Writer
	var file *os.File
	switch cfg.Output {
	case "stdout", "":
		output = os.Stdout
	case "stderr":
		output = os.Stderr
	default:
		if err := os.MkdirAll(filepath.Dir(cfg.Output), 0o755); err != nil {
			return nil, err
		}
		f, err := os.OpenFile(cfg.Output, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, err
		}
		file = f
		output = f
	}

	return &Logger{Logger: slog.New(newHandler(output, cfg)), file: file}, nil
}

/*
 * NewWithWriter 创建写入指定 io.Writer 的日志器（测试用）
 */
func NewWithWriter(w io.Writer, cfg *Config) *Logger {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	return &Logger{Logger: slog.New(newHandler(w, cfg))}
}

func newHandler(w io.Writer, cfg *Config) slog.Handler {
	timeFormat := cfg.TimeFormat
	if timeFormat == "" {
		timeFormat = time.RFC3339
	}
	opts := &slog.HandlerOptions{
		Level:     cfg.Level,
		AddSource: cfg.AddSource,
		ReplaceAttr: func(_ []string, a slog.Attr) slog.Attr {
			if a.Key == slog.TimeKey {
				if t, ok := a.Value.Any().(time.Time); ok {
					a.Value = slog.StringValue(t.Format(timeFormat))
				}
			}
			if IsSensitiveKey(a.Key) {
				a.Value = slog.StringValue(redacted)
			}
			return a
		},
	}
	if cfg.Format == "json" {
		return slog.NewJSONHandler(w, opts)
	}
	return NewPrettyHandler(w, opts)
}

/* Default 获取全局默认日志器 */
func Default() *Logger {
	mu.RLock()
	l := defaultLogger
	mu.RUnlock()
	if l != nil {
		return l
	}
	mu.Lock()
	defer mu.Unlock()
	if defaultLogger == nil {
		defaultLogger, _ = New(DefaultConfig())
	}
	return defaultLogger
}

/* SetDefault 替换全局日志器（测试用） */
func SetDefault(l *Logger) {
	mu.Lock()
	defaultLogger = l
	mu.Unlock()
}

/* Close 关闭日志文件 */
func (l *Logger) Close() error {
	if l.file != nil {
		return l.file.Close()
	}
	return nil
}

/* WithTraceID 返回携带 TraceID 的日志器 */
func (l *Logger) WithTraceID(traceID string) *Logger {
	return &Logger{Logger: l.Logger.With(slog.String("trace_id", traceID)), file: l.file}
}

/* WithContext 从上下文提取 TraceID */
func (l *Logger) WithContext(ctx context.Context) *Logger {
	if ctx == nil {
		return l
	}
	if traceID, ok := ctx.Value(TraceIDKey).(string); ok && traceID != "" {
		return l.WithTraceID(traceID)
	}
	return l
}

/* WithFields 返回携带额外字段的日志器 */
func (l *Logger) WithFields(fields map[string]any) *Logger {
	attrs := make([]any, 0, len(fields)*2)
	for k, v := range fields {
		attrs = append(attrs, k, v)
	}
	return &Logger{Logger: l.Logger.With(attrs...), file: l.file}
}

/* ========== OAuth 事件快捷方法 ========== */

/* CodeIssued 授权码签发 */
func (l *Logger) CodeIssued(memberID, clientID string, scopes []int) {
	l.Info("OAuth code issued",
		slog.String("event", "code_issued"),
		slog.String("member_id", memberID),
		slog.String("client_id", clientID),
		slog.Any("scopes", scopes),
	)
}

/* CodeExchanged 授权码兑换结果 */
func (l *Logger) CodeExchanged(clientID, result string) {
	level := LevelInfo
	if result != "success" {
		level = LevelWarn
	}
	l.Log(context.Background(), level, "OAuth code exchange",
		slog.String("event", "code_exchange"),
		slog.String("client_id", clientID),
		slog.String("result", result),
	)
}

/* TokenRevoked 访问令牌撤销 */
func (l *Logger) TokenRevoked(actorID string, tokenID uint64) {
	l.Info("OAuth token revoked",
		slog.String("event", "token_revoked"),
		slog.String("actor_id", actorID),
		slog.Uint64("token_id", tokenID),
	)
}

/*
 * LogHTTP 写入 HTTP 请求日志（source 标记为 [HTTP]）
 * 功能：请求日志中间件使用，避免 source 指向中间件自身
 */
func (l *Logger) LogHTTP(level Level, msg string, args ...any) {
	if !l.Logger.Enabled(context.Background(), level) {
		return
	}
	r := slog.NewRecord(time.Now(), level, msg, 0)
	r.Add(args...)
	_ = l.Logger.Handler().Handle(context.Background(), r)
}

/* ========== 包级别全局快捷函数 ========== */
func Debug(msg string, args ...any)            { Default().Debug(msg, args...) }
func Info(msg string, args ...any)             { Default().Info(msg, args...) }
func Warn(msg string, args ...any)             { Default().Warn(msg, args...) }
func Error(msg string, args ...any)            { Default().Error(msg, args...) }
func WithContext(ctx context.Context) *Logger  { return Default().WithContext(ctx) }
func WithFields(fields map[string]any) *Logger { return Default().WithFields(fields) }
