// Package router 提供 HTTP 路由配置
package router

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"ebook-studio-api/internal/config"
	"ebook-studio-api/internal/interfaces/http/handler"
	"ebook-studio-api/internal/interfaces/http/middleware"
)

// Handlers 路由所需的处理器集合
type Handlers struct {
	Health  *handler.HealthHandler
	Auth    *handler.AuthHandler
	User    *handler.UserHandler
	Catalog *handler.CatalogHandler
	Run     *handler.RunHandler
	Book    *handler.BookHandler
	Job     *handler.JobHandler
}

// Dependencies 中间件依赖
type Dependencies struct {
	Sessions     middleware.SessionResolver
	Limiter      middleware.RateLimiter
	RateLimitKey middleware.KeyFunc
}

// Router HTTP 路由器
type Router struct {
	engine   *gin.Engine
	cfg      *config.Config
	handlers *Handlers
	deps     Dependencies
}

// New 创建新的路由器
func New(cfg *config.Config, handlers *Handlers, deps Dependencies) *Router {
	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	if deps.RateLimitKey == nil {
		deps.RateLimitKey = func(subject, endpoint string) string {
			return "ratelimit:" + subject + ":" + endpoint
		}
	}

	r := &Router{
		engine:   gin.New(),
		cfg:      cfg,
		handlers: handlers,
		deps:     deps,
	}
	r.setupMiddleware()
	r.setupRoutes()
	return r
}

// Engine 返回 Gin Engine
func (r *Router) Engine() *gin.Engine {
	return r.engine
}

func (r *Router) setupMiddleware() {
	r.engine.Use(middleware.Recovery())
	r.engine.Use(middleware.RequestID())

	r.engine.Use(middleware.CORS(middleware.CORSConfig{
		AllowedOrigins: r.cfg.Security.CORS.AllowedOrigins,
		AllowedMethods: r.cfg.Security.CORS.AllowedMethods,
		AllowedHeaders: r.cfg.Security.CORS.AllowedHeaders,
	}))

	if r.cfg.Observability.Tracing.Enabled {
		r.engine.Use(middleware.Trace(r.cfg.App.Name))
		r.engine.Use(middleware.TraceContext())
	}
	if r.cfg.Observability.Metrics.Enabled {
		r.engine.Use(middleware.Metrics())
	}
	r.engine.Use(middleware.AccessLog(middleware.DefaultSkipPaths[:4]...))
}

func (r *Router) setupRoutes() {
	h := r.handlers
	r.engine.GET("/health", h.Health.Health)
	r.engine.GET("/ready", h.Health.Ready)
	r.engine.GET("/live", h.Health.Live)

	if r.cfg.Observability.Metrics.Enabled {
		path := r.cfg.Observability.Metrics.Path
		if path == "" {
			path = "/metrics"
		}
		r.engine.GET(path, gin.WrapH(promhttp.Handler()))
	}

	v1 := r.engine.Group("/v1")
	v1.Use(middleware.Auth(r.deps.Sessions))
	v1.Use(middleware.RateLimit(middleware.RateLimitConfig{
		Enabled: r.cfg.Security.RateLimit.Enabled,
		Limit:   r.cfg.Security.RateLimit.Limit,
		Window:  r.cfg.Security.RateLimit.Window,
	}, r.deps.Limiter, r.deps.RateLimitKey))

	RegisterV1Routes(v1, h)
}
