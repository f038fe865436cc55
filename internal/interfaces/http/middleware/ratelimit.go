package middleware

import (
	"context"
	"math"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	redisstore "ebook-studio-api/internal/infrastructure/persistence/redis"
	"ebook-studio-api/internal/interfaces/http/dto"
	apperrors "ebook-studio-api/pkg/errors"
	"ebook-studio-api/pkg/logger"
)

// RateLimitConfig 限流配置
type RateLimitConfig struct {
	Enabled bool
	// Limit 窗口内允许的请求数
	Limit  int
	Window time.Duration
}

// RateLimiter 限流器接口
type RateLimiter interface {
	Take(ctx context.Context, key string, limit int, window time.Duration) (redisstore.Decision, error)
}

// KeyFunc 由用户与路由构造限流键
type KeyFunc func(subject, endpoint string) string

// RateLimit 按用户与路由限流；未登录请求按客户端 IP 计数
func RateLimit(cfg RateLimitConfig, limiter RateLimiter, key KeyFunc) gin.HandlerFunc {
	if !cfg.Enabled || limiter == nil {
		return func(c *gin.Context) { c.Next() }
	}
	if cfg.Limit <= 0 {
		cfg.Limit = 120
	}
	if cfg.Window <= 0 {
		cfg.Window = time.Minute
	}

	return func(c *gin.Context) {
		subject := UserID(c)
		if subject == "" {
			subject = "ip:" + c.ClientIP()
		}
		endpoint := c.FullPath()
		if endpoint == "" {
			endpoint = c.Request.URL.Path
		}

		decision, err := limiter.Take(c.Request.Context(), key(subject, c.Request.Method+" "+endpoint), cfg.Limit, cfg.Window)
		if err != nil {
			// 限流器故障时放行
			logger.Warn(c.Request.Context(), "rate limiter unavailable", "error", err.Error())
			c.Next()
			return
		}
		c.Header("X-RateLimit-Limit", strconv.Itoa(cfg.Limit))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(decision.Remaining))
		if !decision.Allowed {
			c.Header("Retry-After", strconv.Itoa(int(math.Ceil(decision.RetryAfter.Seconds()))))
			dto.FromError(c, apperrors.ErrTooManyRequests)
			return
		}
		c.Next()
	}
}
