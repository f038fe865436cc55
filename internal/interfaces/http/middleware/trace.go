package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"ebook-studio-api/pkg/logger"
)

// TraceIDHeader 响应中回写的 trace ID
const TraceIDHeader = "X-Trace-ID"

// Trace OpenTelemetry 追踪中间件，健康检查与指标端点不产生 span
func Trace(serviceName string) gin.HandlerFunc {
	return otelgin.Middleware(serviceName, otelgin.WithFilter(func(r *http.Request) bool {
		return !isProbePath(r.URL.Path)
	}))
}

// TraceContext 把 trace_id 写入 gin Context、日志上下文与响应头，
// 运行与归档相关的路由额外把资源 ID 记到 span 上
func TraceContext() gin.HandlerFunc {
	return func(c *gin.Context) {
		span := trace.SpanFromContext(c.Request.Context())
		sc := span.SpanContext()
		if sc.IsValid() {
			traceID := sc.TraceID().String()
			spanID := sc.SpanID().String()

			c.Set("trace_id", traceID)
			c.Set("span_id", spanID)

			ctx := logger.WithContext(c.Request.Context(), logger.TraceIDKey, traceID)
			ctx = logger.WithContext(ctx, logger.SpanIDKey, spanID)
			c.Request = c.Request.WithContext(ctx)

			c.Header(TraceIDHeader, traceID)

			if id := c.Param("id"); id != "" {
				switch {
				case strings.HasPrefix(c.FullPath(), "/v1/runs/"):
					span.SetAttributes(attribute.String("ebook.run_id", id))
				case strings.HasPrefix(c.FullPath(), "/v1/books/"):
					span.SetAttributes(attribute.String("ebook.book_id", id))
				case strings.HasPrefix(c.FullPath(), "/v1/jobs/"):
					span.SetAttributes(attribute.String("ebook.job_id", id))
				}
			}
		}
		c.Next()
	}
}

func isProbePath(path string) bool {
	switch path {
	case "/health", "/ready", "/live", "/metrics":
		return true
	}
	return false
}
