package repository

import (
	"context"

	"ebook-studio-api/internal/domain/entity"
)

// BookRepository 电子书归档仓储接口
type BookRepository interface {
	// Create 创建归档
	Create(ctx context.Context, book *entity.BookRecord) error

	// Update 更新归档
	Update(ctx context.Context, book *entity.BookRecord) error

	// GetByID 根据 ID 获取归档，不存在时返回 nil
	GetByID(ctx context.Context, id string) (*entity.BookRecord, error)

	// GetByRunID 根据运行 ID 获取归档，不存在时返回 nil
	GetByRunID(ctx context.Context, runID string) (*entity.BookRecord, error)

	// ListByOwner 分页获取用户的归档
	ListByOwner(ctx context.Context, ownerID string, pagination Pagination) (*PagedResult[*entity.BookRecord], error)

	// Delete 删除归档
	Delete(ctx context.Context, id string) error
}
