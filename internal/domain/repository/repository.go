// Package repository 定义数据访问层接口
package repository

import (
	"context"
)

// 分页默认值与上限
const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// TxKey 事务在 context 中的键
type TxKey struct{}

// Transactor 事务边界，fn 内的仓储调用共享同一事务
type Transactor interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

// Pagination 分页参数，页码从 1 开始
type Pagination struct {
	Page     int `json:"page"`
	PageSize int `json:"page_size"`
}

// NewPagination 规范化分页参数
func NewPagination(page, pageSize int) Pagination {
	page = max(page, 1)
	if pageSize < 1 {
		pageSize = DefaultPageSize
	}
	return Pagination{Page: page, PageSize: min(pageSize, MaxPageSize)}
}

// Offset 偏移量
func (p Pagination) Offset() int {
	return (p.Page - 1) * p.PageSize
}

// Limit 每页数量
func (p Pagination) Limit() int {
	return p.PageSize
}

// PagedResult 分页结果
type PagedResult[T any] struct {
	Items      []T   `json:"items"`
	Total      int64 `json:"total"`
	Page       int   `json:"page"`
	PageSize   int   `json:"page_size"`
	TotalPages int   `json:"total_pages"`
}

// NewPagedResult 创建分页结果
func NewPagedResult[T any](items []T, total int64, p Pagination) *PagedResult[T] {
	pages := 0
	if p.PageSize > 0 {
		pages = int((total + int64(p.PageSize) - 1) / int64(p.PageSize))
	}
	return &PagedResult[T]{
		Items:      items,
		Total:      total,
		Page:       p.Page,
		PageSize:   p.PageSize,
		TotalPages: pages,
	}
}
