package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"

	"ebook-studio-api/internal/domain/entity"
	"ebook-studio-api/internal/domain/repository"
)

// usersKey 用户表哈希键：email -> JSON
const usersKey = "ebook:users"

// UserStore 基于 Redis 哈希的用户仓储
type UserStore struct {
	client *Client
}

var _ repository.UserRepository = (*UserStore)(nil)

// NewUserStore 创建用户仓储
func NewUserStore(client *Client) *UserStore {
	return &UserStore{client: client}
}

// Create 实现 UserRepository
func (s *UserStore) Create(ctx context.Context, user *entity.User) (bool, error) {
	data, err := json.Marshal(user)
	if err != nil {
		return false, fmt.Errorf("failed to marshal user: %w", err)
	}
	ok, err := s.client.HSetNX(ctx, usersKey, entity.NormalizeEmail(user.Email), data)
	if err != nil {
		return false, fmt.Errorf("failed to create user: %w", err)
	}
	return ok, nil
}

// GetByEmail 实现 UserRepository
func (s *UserStore) GetByEmail(ctx context.Context, email string) (*entity.User, error) {
	raw, err := s.client.HGet(ctx, usersKey, entity.NormalizeEmail(email))
	if err != nil {
		if IsNil(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	var user entity.User
	if err := json.Unmarshal([]byte(raw), &user); err != nil {
		return nil, fmt.Errorf("failed to unmarshal user: %w", err)
	}
	return &user, nil
}

// List 实现 UserRepository，按创建时间排序
func (s *UserStore) List(ctx context.Context) ([]*entity.User, error) {
	all, err := s.client.HGetAll(ctx, usersKey)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	users := make([]*entity.User, 0, len(all))
	for email, raw := range all {
		var user entity.User
		if err := json.Unmarshal([]byte(raw), &user); err != nil {
			return nil, fmt.Errorf("failed to unmarshal user %s: %w", email, err)
		}
		users = append(users, &user)
	}
	sort.Slice(users, func(i, j int) bool {
		if users[i].CreatedAt.Equal(users[j].CreatedAt) {
			return users[i].Email < users[j].Email
		}
		return users[i].CreatedAt.Before(users[j].CreatedAt)
	})
	return users, nil
}

// Delete 实现 UserRepository
func (s *UserStore) Delete(ctx context.Context, email string) (bool, error) {
	n, err := s.client.HDel(ctx, usersKey, entity.NormalizeEmail(email))
	if err != nil {
		return false, fmt.Errorf("failed to delete user: %w", err)
	}
	return n > 0, nil
}
