// Package repository 定义数据访问层接口
package repository

import (
	"context"

	"ebook-studio-api/internal/domain/entity"
)

// UserRepository 用户仓储接口
type UserRepository interface {
	// Create 创建用户，邮箱已存在时返回 false
	Create(ctx context.Context, user *entity.User) (bool, error)

	// GetByEmail 根据邮箱获取用户，不存在时返回 nil
	GetByEmail(ctx context.Context, email string) (*entity.User, error)

	// List 获取全部用户
	List(ctx context.Context) ([]*entity.User, error)

	// Delete 删除用户，不存在时返回 false
	Delete(ctx context.Context, email string) (bool, error)
}
