package middleware

import (
	"slices"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// ProviderKeyHeader 调用方自带的模型提供商密钥
const ProviderKeyHeader = "X-Provider-Key"

// DownloadURLHeader 导出文件已上传对象存储时返回的下载地址
const DownloadURLHeader = "X-Download-URL"

// CORSConfig CORS 配置
type CORSConfig struct {
	AllowedOrigins []string
	AllowedMethods []string
	AllowedHeaders []string
}

// CORS 跨域中间件。凭证头与请求 ID 头总是允许；
// 允许任意来源时不携带 cookie 凭证
func CORS(cfg CORSConfig) gin.HandlerFunc {
	methods := cfg.AllowedMethods
	if len(methods) == 0 {
		methods = []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}
	}
	headers := []string{"Origin", "Content-Type", "Authorization"}
	for _, h := range append(cfg.AllowedHeaders, RequestIDHeader, ProviderKeyHeader) {
		if !slices.Contains(headers, h) {
			headers = append(headers, h)
		}
	}

	c := cors.Config{
		AllowMethods: methods,
		AllowHeaders: headers,
		ExposeHeaders: []string{
			RequestIDHeader, TraceIDHeader, DownloadURLHeader, "Content-Disposition",
			"X-RateLimit-Limit", "X-RateLimit-Remaining", "Retry-After",
		},
		MaxAge: 12 * time.Hour,
	}
	if len(cfg.AllowedOrigins) == 0 || slices.Contains(cfg.AllowedOrigins, "*") {
		c.AllowAllOrigins = true
	} else {
		c.AllowOrigins = cfg.AllowedOrigins
		c.AllowCredentials = true
	}
	return cors.New(c)
}
