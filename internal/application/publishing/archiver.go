// Package publishing 负责已完成电子书的归档、对象存储、检索导出与无人值守生成任务
package publishing

import (
	"context"

	"ebook-studio-api/internal/application/ebook"
	"ebook-studio-api/internal/domain/entity"
	"ebook-studio-api/internal/domain/repository"
	"ebook-studio-api/pkg/logger"
)

// Archiver 将完成的运行写入归档仓储，同一运行重复归档时覆盖旧记录
type Archiver struct {
	tx    repository.Transactor
	books repository.BookRepository
}

var _ ebook.Archiver = (*Archiver)(nil)

// NewArchiver 创建归档器
func NewArchiver(tx repository.Transactor, books repository.BookRepository) *Archiver {
	return &Archiver{tx: tx, books: books}
}

// Archive 实现 ebook.Archiver，返回归档 ID
func (a *Archiver) Archive(ctx context.Context, runID, ownerID string, book *entity.Book, log []entity.LogEntry) (string, error) {
	record := entity.NewBookRecord(runID, ownerID, book, log)

	err := a.tx.WithTransaction(ctx, func(txCtx context.Context) error {
		existing, err := a.books.GetByRunID(txCtx, runID)
		if err != nil {
			return err
		}
		if existing == nil {
			return a.books.Create(txCtx, record)
		}
		record.ID = existing.ID
		record.CreatedAt = existing.CreatedAt
		return a.books.Update(txCtx, record)
	})
	if err != nil {
		return "", err
	}

	logger.Info(ctx, "book archived", "book_id", record.ID, "chapters", len(record.Chapters))
	return record.ID, nil
}
