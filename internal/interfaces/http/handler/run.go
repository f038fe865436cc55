package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"ebook-studio-api/internal/application/ebook"
	"ebook-studio-api/internal/application/export"
	"ebook-studio-api/internal/domain/entity"
	"ebook-studio-api/internal/interfaces/http/dto"
	"ebook-studio-api/internal/interfaces/http/middleware"
	apperrors "ebook-studio-api/pkg/errors"
	"ebook-studio-api/pkg/logger"
)

// RunHandler 电子书工作流处理器
type RunHandler struct {
	runs              *ebook.Registry
	exporter          *export.Exporter
	defaultCredential string
}

// NewRunHandler 创建工作流处理器
func NewRunHandler(runs *ebook.Registry, exporter *export.Exporter, defaultCredential string) *RunHandler {
	return &RunHandler{runs: runs, exporter: exporter, defaultCredential: defaultCredential}
}

func (h *RunHandler) controller(c *gin.Context) (*ebook.Controller, bool) {
	ctrl, err := h.runs.GetOwned(c.Param("id"), middleware.UserID(c), middleware.IsAdmin(c))
	if err != nil {
		dto.FromError(c, err)
		return nil, false
	}
	c.Request = c.Request.WithContext(logger.WithContext(c.Request.Context(), logger.RunIDKey, ctrl.ID()))
	return ctrl, true
}

// CreateRun 新建运行
// @Summary 新建电子书运行
// @Description 可通过 X-Provider-Key 提供模型密钥，未提供时使用服务端默认密钥
// @Tags Runs
// @Produce json
// @Param X-Provider-Key header string false "模型提供商密钥"
// @Success 201 {object} dto.Response[dto.RunResponse]
// @Router /v1/runs [post]
func (h *RunHandler) CreateRun(c *gin.Context) {
	ctrl := h.runs.Create(middleware.UserID(c), requestCredential(c, h.defaultCredential))
	logger.Info(c.Request.Context(), "run created", "run_id", ctrl.ID())
	dto.Created(c, dto.ToRunResponse(ctrl.Snapshot()))
}

// GetRun 运行快照
// @Summary 获取运行状态与文档
// @Tags Runs
// @Produce json
// @Param id path string true "运行 ID"
// @Success 200 {object} dto.Response[dto.RunResponse]
// @Failure 404 {object} dto.ErrorResponse
// @Router /v1/runs/{id} [get]
func (h *RunHandler) GetRun(c *gin.Context) {
	ctrl, ok := h.controller(c)
	if !ok {
		return
	}
	dto.Success(c, dto.ToRunResponse(ctrl.Snapshot()))
}

// GetLog 工作流日志
// @Summary 获取运行日志
// @Tags Runs
// @Produce json
// @Param id path string true "运行 ID"
// @Success 200 {object} dto.Response[dto.LogResponse]
// @Router /v1/runs/{id}/log [get]
func (h *RunHandler) GetLog(c *gin.Context) {
	ctrl, ok := h.controller(c)
	if !ok {
		return
	}
	dto.Success(c, &dto.LogResponse{Entries: ctrl.Log()})
}

// SubmitTopic 提交主题
// @Summary 提交主题并开始生成大纲
// @Tags Runs
// @Accept json
// @Produce json
// @Param id path string true "运行 ID"
// @Param body body dto.SubmitTopicRequest true "主题与风格"
// @Success 202 {object} dto.Response[dto.RunResponse]
// @Failure 409 {object} dto.ErrorResponse
// @Failure 412 {object} dto.ErrorResponse
// @Router /v1/runs/{id}/topic [post]
func (h *RunHandler) SubmitTopic(c *gin.Context) {
	ctrl, ok := h.controller(c)
	if !ok {
		return
	}
	var req dto.SubmitTopicRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		dto.FromError(c, bindError(err))
		return
	}
	if err := ctrl.SubmitTopicAsync(c.Request.Context(), req.ToInput()); err != nil {
		dto.FromError(c, err)
		return
	}
	dto.Accepted(c, dto.ToRunResponse(ctrl.Snapshot()))
}

// Regenerate 重新生成大纲
// @Summary 以相同主题重新生成大纲
// @Tags Runs
// @Produce json
// @Param id path string true "运行 ID"
// @Success 202 {object} dto.Response[dto.RunResponse]
// @Failure 409 {object} dto.ErrorResponse
// @Router /v1/runs/{id}/regenerate [post]
func (h *RunHandler) Regenerate(c *gin.Context) {
	ctrl, ok := h.controller(c)
	if !ok {
		return
	}
	if err := ctrl.RegenerateAsync(c.Request.Context()); err != nil {
		dto.FromError(c, err)
		return
	}
	dto.Accepted(c, dto.ToRunResponse(ctrl.Snapshot()))
}

// Approve 批准大纲
// @Summary 批准大纲并开始写作
// @Tags Runs
// @Produce json
// @Param id path string true "运行 ID"
// @Success 202 {object} dto.Response[dto.RunResponse]
// @Failure 409 {object} dto.ErrorResponse
// @Router /v1/runs/{id}/approve [post]
func (h *RunHandler) Approve(c *gin.Context) {
	ctrl, ok := h.controller(c)
	if !ok {
		return
	}
	if err := ctrl.ApproveAsync(c.Request.Context()); err != nil {
		dto.FromError(c, err)
		return
	}
	dto.Accepted(c, dto.ToRunResponse(ctrl.Snapshot()))
}

// Restart 重新开始
// @Summary 清空文档并回到输入阶段
// @Tags Runs
// @Produce json
// @Param id path string true "运行 ID"
// @Success 200 {object} dto.Response[dto.RunResponse]
// @Failure 409 {object} dto.ErrorResponse
// @Router /v1/runs/{id}/restart [post]
func (h *RunHandler) Restart(c *gin.Context) {
	ctrl, ok := h.controller(c)
	if !ok {
		return
	}
	if err := ctrl.Restart(); err != nil {
		dto.FromError(c, err)
		return
	}
	dto.Success(c, dto.ToRunResponse(ctrl.Snapshot()))
}

// UpdateStyle 调整风格
// @Summary 审批阶段调整语气、封面风格与作者简介
// @Tags Runs
// @Accept json
// @Produce json
// @Param id path string true "运行 ID"
// @Param body body dto.UpdateStyleRequest true "风格"
// @Success 200 {object} dto.Response[dto.RunResponse]
// @Router /v1/runs/{id}/style [put]
func (h *RunHandler) UpdateStyle(c *gin.Context) {
	ctrl, ok := h.controller(c)
	if !ok {
		return
	}
	var req dto.UpdateStyleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		dto.FromError(c, bindError(err))
		return
	}
	if err := ctrl.UpdateStyle(req.ToUpdate()); err != nil {
		dto.FromError(c, err)
		return
	}
	dto.Success(c, dto.ToRunResponse(ctrl.Snapshot()))
}

// AddChapter 新增章节
// @Summary 在结语前插入占位章节
// @Tags Chapters
// @Produce json
// @Param id path string true "运行 ID"
// @Success 200 {object} dto.Response[dto.ChangedResponse]
// @Router /v1/runs/{id}/chapters [post]
func (h *RunHandler) AddChapter(c *gin.Context) {
	ctrl, ok := h.controller(c)
	if !ok {
		return
	}
	changed, err := ctrl.AddChapter()
	if err != nil {
		dto.FromError(c, err)
		return
	}
	dto.Success(c, &dto.ChangedResponse{Changed: changed})
}

// RenameChapter 修改章节标题
// @Summary 修改章节标题
// @Tags Chapters
// @Accept json
// @Produce json
// @Param id path string true "运行 ID"
// @Param index path int true "章节下标"
// @Param body body dto.RenameChapterRequest true "标题"
// @Success 200 {object} dto.Response[dto.RunResponse]
// @Router /v1/runs/{id}/chapters/{index} [put]
func (h *RunHandler) RenameChapter(c *gin.Context) {
	ctrl, ok := h.controller(c)
	if !ok {
		return
	}
	idx, err := chapterIndex(c)
	if err != nil {
		dto.FromError(c, err)
		return
	}
	var req dto.RenameChapterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		dto.FromError(c, bindError(err))
		return
	}
	if err := ctrl.RenameChapter(idx, req.Title); err != nil {
		dto.FromError(c, err)
		return
	}
	dto.Success(c, dto.ToRunResponse(ctrl.Snapshot()))
}

// RemoveChapter 删除章节
// @Summary 删除章节，结语与最后一章不可删除
// @Tags Chapters
// @Produce json
// @Param id path string true "运行 ID"
// @Param index path int true "章节下标"
// @Success 200 {object} dto.Response[dto.ChangedResponse]
// @Router /v1/runs/{id}/chapters/{index} [delete]
func (h *RunHandler) RemoveChapter(c *gin.Context) {
	ctrl, ok := h.controller(c)
	if !ok {
		return
	}
	idx, err := chapterIndex(c)
	if err != nil {
		dto.FromError(c, err)
		return
	}
	changed, err := ctrl.RemoveChapter(idx)
	if err != nil {
		dto.FromError(c, err)
		return
	}
	dto.Success(c, &dto.ChangedResponse{Changed: changed})
}

// MoveChapter 调整章节顺序
// @Summary 移动章节，结语保持在最后
// @Tags Chapters
// @Accept json
// @Produce json
// @Param id path string true "运行 ID"
// @Param index path int true "章节下标"
// @Param body body dto.MoveChapterRequest true "目标位置"
// @Success 200 {object} dto.Response[dto.ChangedResponse]
// @Router /v1/runs/{id}/chapters/{index}/move [post]
func (h *RunHandler) MoveChapter(c *gin.Context) {
	ctrl, ok := h.controller(c)
	if !ok {
		return
	}
	idx, err := chapterIndex(c)
	if err != nil {
		dto.FromError(c, err)
		return
	}
	var req dto.MoveChapterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		dto.FromError(c, bindError(err))
		return
	}
	changed, err := ctrl.MoveChapter(idx, *req.To)
	if err != nil {
		dto.FromError(c, err)
		return
	}
	dto.Success(c, &dto.ChangedResponse{Changed: changed})
}

// UpdateChapterContent 修改章节正文
// @Summary 完成后修改章节正文
// @Tags Chapters
// @Accept json
// @Produce json
// @Param id path string true "运行 ID"
// @Param index path int true "章节下标"
// @Param body body dto.ChapterContentRequest true "正文"
// @Success 200 {object} dto.Response[dto.RunResponse]
// @Router /v1/runs/{id}/chapters/{index}/content [put]
func (h *RunHandler) UpdateChapterContent(c *gin.Context) {
	ctrl, ok := h.controller(c)
	if !ok {
		return
	}
	idx, err := chapterIndex(c)
	if err != nil {
		dto.FromError(c, err)
		return
	}
	var req dto.ChapterContentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		dto.FromError(c, bindError(err))
		return
	}
	if err := ctrl.UpdateChapterContent(idx, req.Content); err != nil {
		dto.FromError(c, err)
		return
	}
	dto.Success(c, dto.ToRunResponse(ctrl.Snapshot()))
}

// EditText 文本改写
// @Summary 按模式改写选中文本，不修改文档
// @Tags Runs
// @Accept json
// @Produce json
// @Param id path string true "运行 ID"
// @Param body body dto.EditTextRequest true "编辑请求"
// @Success 200 {object} dto.Response[dto.EditTextResponse]
// @Failure 502 {object} dto.ErrorResponse
// @Router /v1/runs/{id}/edit [post]
func (h *RunHandler) EditText(c *gin.Context) {
	ctrl, ok := h.controller(c)
	if !ok {
		return
	}
	var req dto.EditTextRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		dto.FromError(c, bindError(err))
		return
	}
	text, err := ctrl.EditText(c.Request.Context(), req.ToInput())
	if err != nil {
		dto.FromError(c, err)
		return
	}
	dto.Success(c, &dto.EditTextResponse{Text: text})
}

// Export 导出当前文档
// @Summary 导出已完成的电子书
// @Tags Runs
// @Produce octet-stream
// @Param id path string true "运行 ID"
// @Param format path string true "markdown | html | epub"
// @Success 200 {file} binary
// @Failure 409 {object} dto.ErrorResponse
// @Router /v1/runs/{id}/export/{format} [get]
func (h *RunHandler) Export(c *gin.Context) {
	ctrl, ok := h.controller(c)
	if !ok {
		return
	}
	format, err := export.ParseFormat(c.Param("format"))
	if err != nil {
		dto.FromError(c, err)
		return
	}
	snap := ctrl.Snapshot()
	if snap.Stage != entity.StageCompleted {
		dto.FromError(c, apperrors.ErrStageConflict.WithDetail("export is only available once the book is completed"))
		return
	}
	artifact, err := h.exporter.Export(c.Request.Context(), snap.Book, format, snap.ID)
	if err != nil {
		dto.FromError(c, err)
		return
	}
	writeArtifact(c, artifact)
}

func writeArtifact(c *gin.Context, artifact *export.Artifact) {
	c.Header("Content-Disposition", `attachment; filename="`+artifact.Filename+`"`)
	c.Data(http.StatusOK, artifact.ContentType, artifact.Data)
}
