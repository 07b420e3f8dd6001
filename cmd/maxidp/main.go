/*
 * Maximum IdP 入口
 * 功能：配置加载 → 日志初始化 → 注册表校验 → 数据库与缓存初始化 → 路由注册
 *       → 过期令牌清理 → HTTP 服务启动 → 优雅关停
 */
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"sync"
	"syscall"
	"time"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"maxidp/internal/config"
	"maxidp/internal/database"
	"maxidp/internal/registry"
	"maxidp/internal/router"
	"maxidp/pkg/cache"
	"maxidp/pkg/logger"
	"maxidp/pkg/metrics"
	"maxidp/pkg/password"
)

/* version 服务器版本号 */
const version = "1.0.0"

/* ANSI 终端颜色码 */
const (
	colorReset  = "\033[0m"
	colorRed    = "\033[31m"
	colorCyan   = "\033[36m"
	colorGreen  = "\033[32m"
	colorYellow = "\033[33m"
	colorBlue   = "\033[34m"
	colorGray   = "\033[90m"
	colorBold   = "\033[1m"
	colorDim    = "\033[2m"
)

/*
 * 构建时通过 ldflags 注入，例如：
 * go build -ldflags "-X main.buildID=abc123" ./cmd/maxidp
 */
var buildID = "dev"

/* printBanner 输出启动 Banner */
func printBanner() {
	fmt.Println()
	fmt.Printf("%s%s  __  __            ___ ___  ___ %s\n", colorBold, colorCyan, colorReset)
	fmt.Printf("%s%s |  \\/  |__ ___ __ |_ _|   \\| _ \\%s\n", colorBold, colorCyan, colorReset)
	fmt.Printf("%s%s | |\\/| / _` \\ \\ /  | || |) |  _/%s\n", colorBold, colorCyan, colorReset)
	fmt.Printf("%s%s |_|  |_\\__,_/_\\_\\ |___|___/|_|  %s\n", colorBold, colorCyan, colorReset)
	fmt.Println()
	fmt.Printf("%s%s Maximum IdP%s %sv%s%s\n", colorBold, colorGray, colorReset, colorGreen, version, colorReset)
	fmt.Printf("%s Go %s • %s/%s • Build %s%s\n", colorDim, runtime.Version()[2:], runtime.GOOS, runtime.GOARCH, buildID, colorReset)
	fmt.Printf("%s%s━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━%s\n", colorDim, colorGray, colorReset)
	fmt.Println()
}

// printInitStep 输出初始化步骤
func printInitStep(icon, name, detail string) {
	fmt.Printf("  %s%s%s %s%s%s %s%s%s\n", colorGreen, icon, colorReset, colorBold, name, colorReset, colorGray, detail, colorReset)
}

// printInitError 输出初始化错误
func printInitError(name string, err error) {
	fmt.Printf("  %s✗%s %s%s%s %s%v%s\n", colorRed, colorReset, colorBold, name, colorReset, colorRed, err, colorReset)
}

func main() {
	configPath := flag.String("config", config.DefaultConfigPath, "path to config.json")
	flag.Parse()

	startTime := time.Now()
	printBanner()

	// 先用默认配置初始化日志，以便加载配置时能记录日志
	if err := logger.Init(logger.DefaultConfig()); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("%s%s Initializing components...%s\n\n", colorBold, colorBlue, colorReset)

	cfg, err := config.LoadFromFile(*configPath)
	if err != nil {
		printInitError("Config", err)
		os.Exit(1)
	}
	printInitStep("✓", "Config", "loaded from "+*configPath)

	logCfg := logger.DefaultConfig()
	logCfg.Level = logger.ParseLevel(cfg.Log.Level)
	if cfg.Log.Format != "" {
		logCfg.Format = cfg.Log.Format
	}
	if cfg.Log.Output != "" {
		logCfg.Output = cfg.Log.Output
	}
	if err := logger.Init(logCfg); err != nil {
		printInitError("Logger", err)
	} else {
		printInitStep("✓", "Logger", fmt.Sprintf("level=%s format=%s", cfg.Log.Level, cfg.Log.Format))
	}

	/* 校验配置合法性 */
	errs, warns := cfg.Validate()
	if len(warns) > 0 {
		fmt.Printf("\n%s%s ⚠ Configuration warnings:%s\n", colorBold, colorYellow, colorReset)
		for _, w := range warns {
			fmt.Printf("   %s• %s%s\n", colorYellow, w, colorReset)
		}
	}
	if len(errs) > 0 {
		fmt.Printf("\n%s%s ✗ Configuration validation failed:%s\n", colorBold, colorRed, colorReset)
		for _, e := range errs {
			fmt.Printf("   %s• %s%s\n", colorRed, e, colorReset)
		}
		fmt.Println()
		os.Exit(1)
	}

	/* 权限范围与角色表在启动时校验，重复 ID 或名称直接退出 */
	if err := registry.Validate(); err != nil {
		printInitError("Registry", err)
		os.Exit(1)
	}
	printInitStep("✓", "Registry", fmt.Sprintf("%d scopes, %d roles", len(registry.AllScopes()), len(registry.Roles().All())))

	/* 并行初始化数据库和缓存（互不依赖） */
	var (
		db              *gorm.DB
		cacheInstance   cache.Cache
		cacheDriver     string
		dbErr, cacheErr error
	)
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		db, dbErr = database.Open(&cfg.Database)
	}()
	go func() {
		defer wg.Done()
		ttl := time.Duration(cfg.Cache.DefaultTTLSec) * time.Second
		if ttl <= 0 {
			ttl = 5 * time.Minute
		}
		cacheInstance, cacheErr = cache.New(&cache.Config{
			Driver:           cfg.Cache.Driver,
			RedisURL:         cfg.Cache.RedisURL,
			MemcachedServers: cfg.Cache.MemcachedServers,
			BadgerPath:       cfg.Cache.BadgerPath,
			Prefix:           cfg.Cache.Prefix,
			DefaultTTL:       ttl,
		})
		cacheDriver = cfg.Cache.Driver
		if cacheErr != nil {
			logger.Warn("Cache backend unavailable, falling back to memory", "driver", cfg.Cache.Driver, "error", cacheErr)
			cacheInstance = cache.WithPrefix(cache.NewMemoryCache(ttl), cfg.Cache.Prefix)
			cacheDriver = "memory (fallback)"
		}
	}()
	wg.Wait()

	if dbErr != nil {
		printInitError("Database", dbErr)
		os.Exit(1)
	}
	printInitStep("✓", "Database", fmt.Sprintf("driver=%s", cfg.Database.Driver))
	printInitStep("✓", "Cache", fmt.Sprintf("driver=%s client_ttl=%ds", cacheDriver, cfg.Cache.ClientTTLSec))

	seedCtx, seedCancel := context.WithTimeout(context.Background(), 30*time.Second)
	created, err := database.SeedAdmin(seedCtx, db, cfg.Admin, password.NewHasher(bcrypt.DefaultCost))
	seedCancel()
	if err != nil {
		printInitError("Admin", err)
		os.Exit(1)
	}
	if created {
		printInitStep("✓", "Admin", "initial admin "+cfg.Admin.Username+" created")
	}

	var m *metrics.Metrics
	if cfg.Metrics.Enabled {
		m = metrics.New(true)
		printInitStep("✓", "Metrics", "exposed at "+cfg.Metrics.Path)
	}

	router.SetBuildInfo(buildID)
	app := router.Setup(cfg, db, cacheInstance, m)
	printInitStep("✓", "Router", "routes registered")

	/* 过期令牌清理：正确性不依赖它，只控制表大小 */
	bgCtx, bgCancel := context.WithCancel(context.Background())
	go app.Reaper.Run(bgCtx)
	printInitStep("✓", "Reaper", fmt.Sprintf("expired token cleanup every %s", cfg.OAuth.ReaperInterval))

	addr := cfg.Addr()
	srv := &http.Server{
		Addr:              addr,
		Handler:           app.Engine.Handler(),
		ReadHeaderTimeout: 10 * time.Second, /* 防止 Slowloris 攻击 */
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
		MaxHeaderBytes:    1 << 20,
	}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Failed to start server", "error", err)
			os.Exit(1)
		}
	}()

	fmt.Println()
	fmt.Printf("%s%s 🚀 Server started%s %s(%dms)%s\n", colorBold, colorGreen, colorReset,
		colorGray, time.Since(startTime).Milliseconds(), colorReset)
	fmt.Printf("  %s➜%s  %sLocal:%s   %shttp://localhost:%d%s\n", colorGreen, colorReset, colorGray, colorReset, colorCyan, cfg.Server.Port, colorReset)
	fmt.Printf("  %sBuild: %s%s%s  |  Mode: %s%s%s\n\n", colorGray, colorYellow, buildID, colorGray, colorYellow, cfg.Server.Mode, colorReset)

	/* 等待中断信号 */
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	fmt.Printf("%s%s ⏳ Shutting down...%s %s(signal: %s)%s\n", colorBold, colorYellow, colorReset, colorGray, sig.String(), colorReset)
	shutdownStart := time.Now()
	shutdownTimeout := time.Duration(cfg.Server.ShutdownTimeoutSec) * time.Second
	if shutdownTimeout <= 0 {
		shutdownTimeout = 15 * time.Second
	}
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		printInitError("HTTP Server", err)
	} else {
		printInitStep("✓", "HTTP Server", "stopped")
	}

	bgCancel()
	app.Close()
	printInitStep("✓", "Background", "reaper and rate limiters stopped")

	if err := cacheInstance.Close(); err == nil {
		printInitStep("✓", "Cache", "closed")
	}
	if err := database.Close(db); err == nil {
		printInitStep("✓", "Database", "closed")
	}
	_ = logger.Default().Close()

	fmt.Printf("\n  %s✓%s %s%sServer exited gracefully%s %s(%dms)%s\n\n",
		colorGreen, colorReset,
		colorBold, colorGreen, colorReset,
		colorGray, time.Since(shutdownStart).Milliseconds(), colorReset)
}
