package repository

import (
	"context"
	"time"

	"ebook-studio-api/internal/domain/entity"
)

// SessionRepository 会话仓储接口
type SessionRepository interface {
	// Save 保存会话
	Save(ctx context.Context, session *entity.Session, ttl time.Duration) error

	// Get 获取会话，不存在或已过期时返回 nil
	Get(ctx context.Context, id string) (*entity.Session, error)

	// Delete 删除会话
	Delete(ctx context.Context, id string) error
}
