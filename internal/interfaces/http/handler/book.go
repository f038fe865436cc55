package handler

import (
	"github.com/gin-gonic/gin"

	"ebook-studio-api/internal/application/export"
	"ebook-studio-api/internal/application/publishing"
	"ebook-studio-api/internal/interfaces/http/dto"
	"ebook-studio-api/internal/interfaces/http/middleware"
)

// BookHandler 已归档电子书处理器
type BookHandler struct {
	books *publishing.BookService
}

// NewBookHandler 创建归档处理器
func NewBookHandler(books *publishing.BookService) *BookHandler {
	return &BookHandler{books: books}
}

// ListBooks 归档列表
// @Summary 获取已完成电子书列表，管理员可见全部
// @Tags Books
// @Produce json
// @Param page query int false "页码"
// @Param page_size query int false "每页数量"
// @Success 200 {object} dto.Response[dto.BookListResponse]
// @Router /v1/books [get]
func (h *BookHandler) ListBooks(c *gin.Context) {
	result, err := h.books.List(c.Request.Context(), middleware.UserID(c), middleware.IsAdmin(c), dto.BindPage(c))
	if err != nil {
		dto.FromError(c, err)
		return
	}
	dto.SuccessWithPage(c, dto.ToBookListResponse(result.Items),
		dto.NewPageMeta(result.Page, result.PageSize, int(result.Total)))
}

// GetBook 归档详情
// @Summary 获取电子书详情与生成日志
// @Tags Books
// @Produce json
// @Param id path string true "电子书 ID"
// @Success 200 {object} dto.Response[dto.BookResponse]
// @Failure 404 {object} dto.ErrorResponse
// @Router /v1/books/{id} [get]
func (h *BookHandler) GetBook(c *gin.Context) {
	record, err := h.books.Get(c.Request.Context(), c.Param("id"), middleware.UserID(c), middleware.IsAdmin(c))
	if err != nil {
		dto.FromError(c, err)
		return
	}
	dto.Success(c, dto.ToBookResponse(record))
}

// ExportBook 导出归档
// @Summary 导出电子书；link=1 且启用对象存储时返回下载地址
// @Tags Books
// @Produce octet-stream
// @Param id path string true "电子书 ID"
// @Param format path string true "markdown | html | epub"
// @Param link query bool false "返回下载地址"
// @Success 200 {file} binary
// @Router /v1/books/{id}/export/{format} [get]
func (h *BookHandler) ExportBook(c *gin.Context) {
	var req dto.ExportRequest
	if err := c.ShouldBindUri(&req); err != nil {
		dto.FromError(c, bindError(err))
		return
	}
	format, err := export.ParseFormat(req.Format)
	if err != nil {
		dto.FromError(c, err)
		return
	}
	result, err := h.books.Export(c.Request.Context(), req.ID, middleware.UserID(c), middleware.IsAdmin(c), format)
	if err != nil {
		dto.FromError(c, err)
		return
	}
	if result.URL != "" {
		c.Header(middleware.DownloadURLHeader, result.URL)
		if c.Query("link") == "1" || c.Query("link") == "true" {
			dto.Success(c, &dto.ExportLinkResponse{Filename: result.Artifact.Filename, URL: result.URL})
			return
		}
	}
	writeArtifact(c, result.Artifact)
}
