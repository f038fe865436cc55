package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// HealthChecker 依赖健康检查
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// HealthHandler 健康检查处理器
type HealthHandler struct {
	version  string
	required map[string]HealthChecker
	optional map[string]HealthChecker
}

// NewHealthHandler 创建健康检查处理器；nil 检查项视为未配置
func NewHealthHandler(version string, pg, redis HealthChecker) *HealthHandler {
	return &HealthHandler{
		version:  version,
		required: map[string]HealthChecker{"postgres": pg, "redis": redis},
		optional: map[string]HealthChecker{},
	}
}

// WithOptional 追加不影响就绪态的检查项（如对象存储）
func (h *HealthHandler) WithOptional(name string, checker HealthChecker) *HealthHandler {
	if checker != nil {
		h.optional[name] = checker
	}
	return h
}

// HealthResponse 健康检查响应
type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version,omitempty"`
}

type readinessCheck struct {
	Status    string `json:"status"`
	Error     string `json:"error,omitempty"`
	LatencyMs int64  `json:"latency_ms,omitempty"`
}

type readinessResponse struct {
	Status string                     `json:"status"`
	Checks map[string]*readinessCheck `json:"checks,omitempty"`
}

// Health 健康检查接口
// @Summary 健康检查
// @Tags System
// @Produce json
// @Success 200 {object} HealthResponse
// @Router /health [get]
func (h *HealthHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, HealthResponse{Status: "ok", Version: h.version})
}

// Ready 就绪检查接口
// @Summary 就绪检查
// @Description Postgres 与 Redis 必须可用，对象存储异常仅标记为 degraded
// @Tags System
// @Produce json
// @Success 200 {object} readinessResponse
// @Failure 503 {object} readinessResponse
// @Router /ready [get]
func (h *HealthHandler) Ready(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	checks := make(map[string]*readinessCheck, len(h.required)+len(h.optional))
	ready := true
	for name, checker := range h.required {
		if checker == nil {
			checks[name] = &readinessCheck{Status: "missing", Error: name + " client not configured"}
			ready = false
			continue
		}
		check := runCheck(ctx, checker, "error")
		if check.Status != "ok" {
			ready = false
		}
		checks[name] = check
	}
	for name, checker := range h.optional {
		checks[name] = runCheck(ctx, checker, "degraded")
	}

	resp := readinessResponse{Status: "ok", Checks: checks}
	if !ready {
		resp.Status = "not_ready"
		c.JSON(http.StatusServiceUnavailable, resp)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func runCheck(ctx context.Context, checker HealthChecker, failStatus string) *readinessCheck {
	start := time.Now()
	err := checker.HealthCheck(ctx)
	check := &readinessCheck{Status: "ok", LatencyMs: time.Since(start).Milliseconds()}
	if err != nil {
		check.Status = failStatus
		check.Error = err.Error()
	}
	return check
}

// Live 存活检查接口
// @Summary 存活检查
// @Tags System
// @Produce json
// @Success 200 {object} HealthResponse
// @Router /live [get]
func (h *HealthHandler) Live(c *gin.Context) {
	c.JSON(http.StatusOK, HealthResponse{Status: "ok"})
}
