package handler

import (
	"github.com/gin-gonic/gin"

	"ebook-studio-api/internal/application/publishing"
	"ebook-studio-api/internal/interfaces/http/dto"
	"ebook-studio-api/internal/interfaces/http/middleware"
	"ebook-studio-api/pkg/logger"
)

// JobHandler 无人值守生成任务处理器
type JobHandler struct {
	jobs              *publishing.JobService
	defaultCredential string
}

// NewJobHandler 创建任务处理器
func NewJobHandler(jobs *publishing.JobService, defaultCredential string) *JobHandler {
	return &JobHandler{jobs: jobs, defaultCredential: defaultCredential}
}

// CreateJob 提交任务
// @Summary 提交整本书的后台生成任务，大纲自动批准
// @Tags Jobs
// @Accept json
// @Produce json
// @Param X-Provider-Key header string false "模型提供商密钥"
// @Param body body dto.CreateJobRequest true "任务参数"
// @Success 202 {object} dto.Response[dto.JobResponse]
// @Failure 422 {object} dto.ErrorResponse
// @Router /v1/jobs [post]
func (h *JobHandler) CreateJob(c *gin.Context) {
	ctx := c.Request.Context()

	var req dto.CreateJobRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		dto.FromError(c, bindError(err))
		return
	}

	job, err := h.jobs.Submit(ctx, middleware.UserID(c), requestCredential(c, h.defaultCredential), req.ToParams())
	if err != nil {
		dto.FromError(c, err)
		return
	}
	logger.Info(ctx, "job submitted", "job_id", job.ID)
	dto.Accepted(c, dto.ToJobResponse(job))
}

// GetJob 查询任务
// @Summary 查询任务状态与进度
// @Tags Jobs
// @Produce json
// @Param id path string true "任务 ID"
// @Success 200 {object} dto.Response[dto.JobResponse]
// @Failure 404 {object} dto.ErrorResponse
// @Router /v1/jobs/{id} [get]
func (h *JobHandler) GetJob(c *gin.Context) {
	job, err := h.jobs.Get(c.Request.Context(), c.Param("id"), middleware.UserID(c), middleware.IsAdmin(c))
	if err != nil {
		dto.FromError(c, err)
		return
	}
	dto.Success(c, dto.ToJobResponse(job))
}
