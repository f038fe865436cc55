// Package dto 提供 HTTP 层数据传输对象
package dto

import (
	"github.com/gin-gonic/gin"

	"ebook-studio-api/internal/domain/repository"
)

// PageRequest 分页请求参数
type PageRequest struct {
	Page     int `form:"page"`
	PageSize int `form:"page_size"`
}

// Pagination 转为仓储分页参数，越界值按默认值修正
func (r PageRequest) Pagination() repository.Pagination {
	return repository.NewPagination(r.Page, r.PageSize)
}

// BindPage 从查询串绑定分页参数，无法解析时使用默认值
func BindPage(c *gin.Context) repository.Pagination {
	var req PageRequest
	_ = c.ShouldBindQuery(&req)
	return req.Pagination()
}

// ExportRequest 导出请求
type ExportRequest struct {
	ID     string `uri:"id" binding:"required"`
	Format string `uri:"format" binding:"required"`
}
