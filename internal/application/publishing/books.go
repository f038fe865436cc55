package publishing

import (
	"context"

	"ebook-studio-api/internal/application/export"
	"ebook-studio-api/internal/domain/entity"
	"ebook-studio-api/internal/domain/repository"
	"ebook-studio-api/internal/infrastructure/storage"
	apperrors "ebook-studio-api/pkg/errors"
	"ebook-studio-api/pkg/logger"
)

// BookService 已归档电子书的查询与导出
type BookService struct {
	books    repository.BookRepository
	exporter *export.Exporter
	store    ObjectStore
}

// NewBookService 创建服务；store 为 nil 时导出结果只在响应中返回
func NewBookService(books repository.BookRepository, exporter *export.Exporter, store ObjectStore) *BookService {
	return &BookService{books: books, exporter: exporter, store: store}
}

// List 分页列出用户的归档；管理员列出全部
func (s *BookService) List(ctx context.Context, userID string, admin bool, pagination repository.Pagination) (*repository.PagedResult[*entity.BookRecord], error) {
	owner := userID
	if admin {
		owner = ""
	}
	return s.books.ListByOwner(ctx, owner, pagination)
}

// Get 获取归档，非所有者返回 Forbidden
func (s *BookService) Get(ctx context.Context, id, userID string, admin bool) (*entity.BookRecord, error) {
	book, err := s.books.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if book == nil {
		return nil, apperrors.ErrBookNotFound
	}
	if !admin && book.OwnerID != userID {
		return nil, apperrors.ErrForbidden
	}
	return book, nil
}

// ExportResult 导出结果；URL 仅在对象存储启用时存在
type ExportResult struct {
	Artifact *export.Artifact
	URL      string
}

// Export 导出归档，启用对象存储时同时上传并返回下载地址
func (s *BookService) Export(ctx context.Context, id, userID string, admin bool, format export.Format) (*ExportResult, error) {
	record, err := s.Get(ctx, id, userID, admin)
	if err != nil {
		return nil, err
	}
	artifact, err := s.exporter.Export(ctx, record.Book(), format, record.ID)
	if err != nil {
		return nil, err
	}

	result := &ExportResult{Artifact: artifact}
	if s.store == nil {
		return result, nil
	}
	url, err := s.store.Put(ctx, storage.ExportKey(record.ID, format.Extension()), artifact.ContentType, artifact.Data)
	if err != nil {
		logger.Warn(ctx, "failed to upload export", "book_id", record.ID, "error", err.Error())
		return result, nil
	}
	result.URL = url
	return result, nil
}
