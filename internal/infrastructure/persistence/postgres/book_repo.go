package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"ebook-studio-api/internal/domain/entity"
	"ebook-studio-api/internal/domain/repository"
)

// BookRepository 电子书归档仓储实现
type BookRepository struct {
	client *Client
}

var _ repository.BookRepository = (*BookRepository)(nil)

// NewBookRepository 创建电子书归档仓储
func NewBookRepository(client *Client) *BookRepository {
	return &BookRepository{client: client}
}

// Create 创建归档
func (r *BookRepository) Create(ctx context.Context, book *entity.BookRecord) error {
	ctx, span := tracer.Start(ctx, "postgres.BookRepository.Create")
	defer span.End()

	if book.ID == "" {
		book.ID = uuid.NewString()
	}
	db := getDB(ctx, r.client.db)
	if err := db.Create(book).Error; err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to create book: %w", err)
	}
	return nil
}

// Update 更新归档
func (r *BookRepository) Update(ctx context.Context, book *entity.BookRecord) error {
	ctx, span := tracer.Start(ctx, "postgres.BookRepository.Update")
	defer span.End()

	db := getDB(ctx, r.client.db)
	if err := db.Save(book).Error; err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to update book: %w", err)
	}
	return nil
}

// GetByID 根据 ID 获取归档
func (r *BookRepository) GetByID(ctx context.Context, id string) (*entity.BookRecord, error) {
	ctx, span := tracer.Start(ctx, "postgres.BookRepository.GetByID")
	defer span.End()

	db := getDB(ctx, r.client.db)
	var book entity.BookRecord
	if err := db.First(&book, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		span.RecordError(err)
		return nil, fmt.Errorf("failed to get book: %w", err)
	}
	return &book, nil
}

// GetByRunID 根据运行 ID 获取归档
func (r *BookRepository) GetByRunID(ctx context.Context, runID string) (*entity.BookRecord, error) {
	ctx, span := tracer.Start(ctx, "postgres.BookRepository.GetByRunID")
	defer span.End()

	db := getDB(ctx, r.client.db)
	var book entity.BookRecord
	if err := db.First(&book, "run_id = ?", runID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		span.RecordError(err)
		return nil, fmt.Errorf("failed to get book by run: %w", err)
	}
	return &book, nil
}

// ListByOwner 分页获取用户的归档，ownerID 为空时返回全部
func (r *BookRepository) ListByOwner(ctx context.Context, ownerID string, pagination repository.Pagination) (*repository.PagedResult[*entity.BookRecord], error) {
	ctx, span := tracer.Start(ctx, "postgres.BookRepository.ListByOwner")
	defer span.End()

	db := getDB(ctx, r.client.db)
	query := db.Model(&entity.BookRecord{})
	if ownerID != "" {
		query = query.Where("owner_id = ?", ownerID)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to count books: %w", err)
	}

	var books []*entity.BookRecord
	if err := query.Omit("log").Order("created_at DESC").
		Offset(pagination.Offset()).
		Limit(pagination.Limit()).
		Find(&books).Error; err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to list books: %w", err)
	}

	return repository.NewPagedResult(books, total, pagination), nil
}

// Delete 删除归档
func (r *BookRepository) Delete(ctx context.Context, id string) error {
	ctx, span := tracer.Start(ctx, "postgres.BookRepository.Delete")
	defer span.End()

	db := getDB(ctx, r.client.db)
	if err := db.Delete(&entity.BookRecord{}, "id = ?", id).Error; err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to delete book: %w", err)
	}
	return nil
}
