package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"ebook-studio-api/internal/domain/entity"
	"ebook-studio-api/internal/domain/repository"
)

// SessionStore 基于 Redis 键过期的会话仓储
type SessionStore struct {
	client *Client
}

var _ repository.SessionRepository = (*SessionStore)(nil)

// NewSessionStore 创建会话仓储
func NewSessionStore(client *Client) *SessionStore {
	return &SessionStore{client: client}
}

func sessionKey(id string) string {
	return "ebook:session:" + id
}

// Save 实现 SessionRepository；令牌本身不落库
func (s *SessionStore) Save(ctx context.Context, session *entity.Session, ttl time.Duration) error {
	stored := *session
	stored.Token = ""
	data, err := json.Marshal(&stored)
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}
	if err := s.client.Set(ctx, sessionKey(session.ID), data, ttl); err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}
	return nil
}

// Get 实现 SessionRepository
func (s *SessionStore) Get(ctx context.Context, id string) (*entity.Session, error) {
	raw, err := s.client.Get(ctx, sessionKey(id))
	if err != nil {
		if IsNil(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get session: %w", err)
	}
	var session entity.Session
	if err := json.Unmarshal([]byte(raw), &session); err != nil {
		return nil, fmt.Errorf("failed to unmarshal session: %w", err)
	}
	return &session, nil
}

// Delete 实现 SessionRepository
func (s *SessionStore) Delete(ctx context.Context, id string) error {
	return s.client.Del(ctx, sessionKey(id))
}
