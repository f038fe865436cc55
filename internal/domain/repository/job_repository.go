package repository

import (
	"context"

	"ebook-studio-api/internal/domain/entity"
)

// JobRepository 生成任务状态仓储接口
type JobRepository interface {
	// Save 保存任务状态
	Save(ctx context.Context, job *entity.GenerationJob) error

	// GetByID 根据 ID 获取任务，不存在时返回 nil
	GetByID(ctx context.Context, id string) (*entity.GenerationJob, error)
}
