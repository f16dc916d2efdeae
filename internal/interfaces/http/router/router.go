// Package router 提供 HTTP 路由配置
package router

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"vidassist-api/internal/config"
	"vidassist-api/internal/domain/service"
	"vidassist-api/internal/interfaces/http/handler"
	"vidassist-api/internal/interfaces/http/middleware"
)

// RouterHandlers 路由依赖的处理器集合
type RouterHandlers struct {
	Health     *handler.HealthHandler
	Transcript *handler.TranscriptHandler
	Resource   *handler.ResourceHandler
	Chat       *handler.ChatHandler
	Artifact   *handler.ArtifactHandler
}

// Security 认证与限流依赖
type Security struct {
	Auth          middleware.AuthConfig
	Authenticator service.Authenticator
	Limiter       middleware.RateLimiter
	LimitKey      middleware.KeyFunc
}

// Router HTTP 路由器
type Router struct {
	engine *gin.Engine
	cfg    *config.Config
}

// NewWithDeps 创建路由器并注册全部路由
func NewWithDeps(cfg *config.Config, sec Security, h RouterHandlers) *Router {
	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := &Router{
		engine: gin.New(),
		cfg:    cfg,
	}
	r.setupMiddleware()
	r.setupRoutes(sec, h)
	return r
}

// Engine 返回 Gin Engine
func (r *Router) Engine() *gin.Engine {
	return r.engine
}

// setupMiddleware 配置全局中间件
func (r *Router) setupMiddleware() {
	r.engine.Use(middleware.Recovery())
	r.engine.Use(middleware.RequestID())

	if r.cfg.Observability.Tracing.Enabled {
		r.engine.Use(middleware.Trace(r.cfg.App.Name))
		r.engine.Use(middleware.TraceContext())
	}

	if r.cfg.Observability.Metrics.Enabled {
		r.engine.Use(middleware.Metrics(append(append([]string{}, middleware.DefaultSkipPaths...), r.metricsPath())...))
	}

	r.engine.Use(middleware.CORS(middleware.CORSConfig{
		AllowedOrigins: r.cfg.Security.CORS.AllowedOrigins,
		AllowedMethods: r.cfg.Security.CORS.AllowedMethods,
		AllowedHeaders: r.cfg.Security.CORS.AllowedHeaders,
	}))
}

func (r *Router) metricsPath() string {
	if p := r.cfg.Observability.Metrics.Path; p != "" {
		return p
	}
	return "/metrics"
}

// setupRoutes 注册系统端点与 v1 路由
func (r *Router) setupRoutes(sec Security, h RouterHandlers) {
	r.engine.GET("/health", h.Health.Health)
	r.engine.GET("/ready", h.Health.Ready)
	r.engine.GET("/live", h.Health.Live)

	if r.cfg.Observability.Metrics.Enabled {
		r.engine.GET(r.metricsPath(), gin.WrapH(promhttp.Handler()))
	}

	v1 := r.engine.Group("/api/v1")
	v1.Use(middleware.Auth(sec.Auth, sec.Authenticator))
	v1.Use(middleware.RateLimit(middleware.RateLimitConfig{
		Enabled:           r.cfg.Security.RateLimit.Enabled,
		RequestsPerSecond: r.cfg.Security.RateLimit.RequestsPerSecond,
		Burst:             r.cfg.Security.RateLimit.Burst,
	}, sec.Limiter, sec.LimitKey))

	RegisterV1Routes(v1, h)
}

// RegisterV1Routes 注册 v1 版本路由
func RegisterV1Routes(v1 *gin.RouterGroup, h RouterHandlers) {
	v1.POST("/transcript", h.Transcript.GetTranscript)
	v1.POST("/chat", h.Chat.Chat)

	resources := v1.Group("/resources")
	{
		resources.POST("", h.Resource.GetOrCreate)
		resources.GET("", h.Resource.Recent)
	}

	videos := v1.Group("/videos/:videoId")
	{
		videos.GET("/titles", h.Artifact.ListTitles)
		videos.POST("/titles", h.Artifact.GenerateTitle)
		videos.GET("/images", h.Artifact.ListImages)
		videos.POST("/images", h.Artifact.GenerateImage)
	}
}
