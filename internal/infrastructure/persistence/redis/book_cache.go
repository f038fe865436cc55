package redis

import (
	"context"
	"time"

	"ebook-studio-api/internal/domain/entity"
	"ebook-studio-api/internal/domain/repository"
	"ebook-studio-api/pkg/logger"
)

// CachedBookRepository 为归档仓储加上 Read-Through 缓存，写操作后失效
type CachedBookRepository struct {
	inner repository.BookRepository
	cache *Cache
	ttl   time.Duration
}

var _ repository.BookRepository = (*CachedBookRepository)(nil)

// NewCachedBookRepository 创建带缓存的归档仓储
func NewCachedBookRepository(inner repository.BookRepository, cache *Cache, ttl time.Duration) *CachedBookRepository {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &CachedBookRepository{inner: inner, cache: cache, ttl: ttl}
}

// Create 实现 BookRepository
func (r *CachedBookRepository) Create(ctx context.Context, book *entity.BookRecord) error {
	if err := r.inner.Create(ctx, book); err != nil {
		return err
	}
	r.invalidate(ctx, book)
	return nil
}

// Update 实现 BookRepository
func (r *CachedBookRepository) Update(ctx context.Context, book *entity.BookRecord) error {
	if err := r.inner.Update(ctx, book); err != nil {
		return err
	}
	r.invalidate(ctx, book)
	return nil
}

// GetByID 实现 BookRepository
func (r *CachedBookRepository) GetByID(ctx context.Context, id string) (*entity.BookRecord, error) {
	return Load(ctx, r.cache, BookKey(id), r.ttl, func(ctx context.Context) (*entity.BookRecord, error) {
		return r.inner.GetByID(ctx, id)
	})
}

// GetByRunID 实现 BookRepository，不经过缓存
func (r *CachedBookRepository) GetByRunID(ctx context.Context, runID string) (*entity.BookRecord, error) {
	return r.inner.GetByRunID(ctx, runID)
}

// ListByOwner 实现 BookRepository
func (r *CachedBookRepository) ListByOwner(ctx context.Context, ownerID string, pagination repository.Pagination) (*repository.PagedResult[*entity.BookRecord], error) {
	key := OwnerBooksKey(ownerID, pagination.Page, pagination.PageSize)
	return Load(ctx, r.cache, key, r.ttl, func(ctx context.Context) (*repository.PagedResult[*entity.BookRecord], error) {
		return r.inner.ListByOwner(ctx, ownerID, pagination)
	})
}

// Delete 实现 BookRepository
func (r *CachedBookRepository) Delete(ctx context.Context, id string) error {
	book, err := r.inner.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if err := r.inner.Delete(ctx, id); err != nil {
		return err
	}
	if book != nil {
		r.invalidate(ctx, book)
	}
	return nil
}

func (r *CachedBookRepository) invalidate(ctx context.Context, book *entity.BookRecord) {
	if err := r.cache.InvalidateBook(ctx, book.ID, book.OwnerID); err != nil {
		logger.Warn(ctx, "failed to invalidate book cache", "book_id", book.ID, "error", err.Error())
	}
	// 管理员的全量列表
	if err := r.cache.InvalidatePattern(ctx, OwnerBooksPattern("")); err != nil {
		logger.Warn(ctx, "failed to invalidate book list cache", "error", err.Error())
	}
}
