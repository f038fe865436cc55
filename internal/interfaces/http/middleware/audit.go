package middleware

import (
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"ebook-studio-api/pkg/logger"
)

// AccessLog 访问日志，探活与指标路径不记录
func AccessLog(skipPrefixes ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		path := c.Request.URL.Path
		for _, p := range skipPrefixes {
			if strings.HasPrefix(path, p) {
				c.Next()
				return
			}
		}

		start := time.Now()
		c.Next()

		args := []any{
			"method", c.Request.Method,
			"route", c.FullPath(),
			"status", c.Writer.Status(),
			"duration_ms", time.Since(start).Milliseconds(),
			"ip", c.ClientIP(),
			"bytes", c.Writer.Size(),
		}
		if len(c.Errors) > 0 {
			args = append(args, "errors", c.Errors.String())
		}
		if c.Writer.Status() >= 500 {
			logger.Warn(c.Request.Context(), "api request", args...)
			return
		}
		logger.Info(c.Request.Context(), "api request", args...)
	}
}
