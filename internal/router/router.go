/*
 * Package router 组装依赖并注册全部路由
 */
package router

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"maxidp/internal/config"
	"maxidp/internal/database"
	"maxidp/internal/handler"
	"maxidp/internal/middleware"
	"maxidp/internal/registry"
	"maxidp/internal/repository"
	"maxidp/internal/service"
	"maxidp/pkg/cache"
	"maxidp/pkg/jwt"
	"maxidp/pkg/metrics"
	"maxidp/pkg/password"
)

var buildID = "dev"

/* SetBuildInfo 注入构建版本（ldflags） */
func SetBuildInfo(id string) {
	if id != "" {
		buildID = id
	}
}

/* maxBodyBytes 请求体上限；本服务只接收小型 JSON / 表单 */
const maxBodyBytes = 1 << 20

/* 登录限流：每 IP 每秒 1 次，突发 10 次 */
const (
	loginRatePerSec = 1
	loginRateBurst  = 10
)

/*
 * App 已组装的 HTTP 应用
 * Engine 供 http.Server 使用；Reaper 由 main 在后台运行
 */
type App struct {
	Engine   *gin.Engine
	OAuth    *service.OAuthService
	Auth     *service.AuthService
	Reaper   *service.Reaper
	limiters []*middleware.RateLimiter
}

/* Close 停止限流器后台清理 */
func (a *App) Close() {
	for _, l := range a.limiters {
		l.Stop()
	}
}

/*
 * Setup 组装仓储、服务、处理器并注册路由
 * @param cfg - 已校验的配置
 * @param db  - 数据库连接
 * @param c   - 缓存（客户端注册信息、会话黑名单）
 * @param m   - 指标，可为 nil
 */
func Setup(cfg *config.Config, db *gorm.DB, c cache.Cache, m *metrics.Metrics) *App {
	gin.SetMode(cfg.Server.Mode)

	r := gin.New()
	r.RedirectTrailingSlash = false
	r.RedirectFixedPath = false

	/* 全局中间件 */
	r.Use(middleware.TraceID())
	r.Use(middleware.RecoveryWithLogger())
	r.Use(middleware.SecurityHeaders())
	r.Use(middleware.RequestSizeLimit(maxBodyBytes))
	r.Use(middleware.RequestLogger())
	r.Use(middleware.Metrics(m))
	r.Use(middleware.Timeout(time.Duration(cfg.Server.RequestTimeoutSec) * time.Second))
	r.Use(middleware.CORS(cfg.Server.AllowedOrigins, cfg.Server.Mode != gin.ReleaseMode))

	hasher := password.NewHasher(cfg.OAuth.SecretBcryptCost)
	sessions := jwt.NewManager(cfg.Session.Secret, cfg.Session.Issuer, cfg.Session.TTL)
	blacklist := jwt.NewBlacklist(c)

	// Repositories
	userRepo := repository.NewUserRepository(db)
	clientRepo := repository.NewCachedClientRepository(repository.NewClientRepository(db), c,
		time.Duration(cfg.Cache.ClientTTLSec)*time.Second)
	tokenRepo := repository.NewTokenRepository(db)

	// Services
	authService := service.NewAuthService(userRepo, hasher, sessions, blacklist)
	clientService := service.NewClientService(clientRepo, userRepo, hasher)
	oauthService := service.NewOAuthService(clientRepo, tokenRepo, &cfg.OAuth, hasher, m)
	reaper := service.NewReaper(tokenRepo, cfg.OAuth.ReaperInterval)

	// Handlers
	authHandler := handler.NewAuthHandler(authService)
	clientHandler := handler.NewClientHandler(clientService)
	oauthHandler := handler.NewOAuthHandler(oauthService, cfg.OAuth.Realm)
	resourceHandler := handler.NewResourceHandler(authService)
	systemHandler := handler.NewSystemHandler(buildID, map[string]handler.Pinger{
		"database": handler.PingFunc(func(ctx context.Context) error { return database.Ping(ctx, db) }),
		"cache":    c,
	})

	tokenLimiter := middleware.NewRateLimiter(cfg.OAuth.TokenRatePerSec, cfg.OAuth.TokenRateBurst)
	loginLimiter := middleware.NewRateLimiter(loginRatePerSec, loginRateBurst)
	realm := cfg.OAuth.Realm

	r.GET("/health", systemHandler.Health)
	if cfg.Metrics.Enabled && m != nil {
		r.GET(cfg.Metrics.Path, gin.WrapH(m.Handler()))
	}

	/* OAuth 协议端点 */
	oauth := r.Group("/oauth")
	{
		oauth.GET("/authorize", middleware.Auth(authService), oauthHandler.Authorize)
		oauth.POST("/token", middleware.TokenRateLimit(tokenLimiter), oauthHandler.Token)
	}

	api := r.Group("/api")
	api.GET("/scopes", systemHandler.Scopes)
	api.GET("/roles", systemHandler.Roles)
	api.POST("/auth/login", middleware.RateLimit(loginLimiter), authHandler.Login)

	/* 会话保护的成员 / 管理 API */
	session := api.Group("", middleware.Auth(authService), middleware.CSRFProtection())
	{
		session.POST("/auth/logout", authHandler.Logout)
		session.GET("/auth/me", authHandler.Me)

		session.GET("/oauth/app-info", oauthHandler.GetAppInfo)
		session.POST("/oauth/authorize", oauthHandler.AuthorizeSubmit)

		session.GET("/tokens", oauthHandler.ListAuthorizations)
		session.DELETE("/tokens/:id", oauthHandler.RevokeToken)

		clients := session.Group("/clients")
		clients.POST("", clientHandler.Create)
		clients.GET("", clientHandler.List)
		clients.GET("/:id", clientHandler.Get)
		clients.PATCH("/:id", clientHandler.Update)
		clients.DELETE("/:id", clientHandler.Delete)
		clients.PUT("/:id/callbacks", clientHandler.ReplaceCallbacks)
		clients.PUT("/:id/scopes", clientHandler.ReplaceScopes)
		clients.POST("/:id/secrets", clientHandler.IssueSecret)
		clients.GET("/:id/secrets", clientHandler.ListSecrets)
		clients.DELETE("/:id/secrets/:secretId", clientHandler.RevokeSecret)
		clients.GET("/:id/managers", clientHandler.ListManagers)
		clients.POST("/:id/managers", clientHandler.AddManager)
		clients.DELETE("/:id/managers/:memberId", clientHandler.RemoveManager)

		session.POST("/admin/members", middleware.AdminOnly(), authHandler.CreateMember)
	}

	/* 访问令牌保护的资源 API */
	v1 := api.Group("/v1", middleware.BearerAuth(realm, oauthService, m))
	{
		v1.GET("/token", resourceHandler.TokenInfo)
		v1.GET("/me", middleware.RequireScope(realm, registry.ScopeProfile), resourceHandler.Profile)
		v1.GET("/me/email", middleware.RequireScope(realm, registry.ScopeEmail), resourceHandler.Email)
		v1.GET("/me/roles", middleware.RequireScope(realm, registry.ScopeRoles), resourceHandler.Roles)
		v1.GET("/me/membership", middleware.RequireScope(realm, registry.ScopeMembership), resourceHandler.Membership)
	}

	return &App{
		Engine:   r,
		OAuth:    oauthService,
		Auth:     authService,
		Reaper:   reaper,
		limiters: []*middleware.RateLimiter{tokenLimiter, loginLimiter},
	}
}
