package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"ebook-studio-api/internal/domain/entity"
	"ebook-studio-api/internal/domain/repository"
)

// JobStore 生成任务状态存储，记录在保留期后过期
type JobStore struct {
	client    *Client
	retention time.Duration
}

var _ repository.JobRepository = (*JobStore)(nil)

// NewJobStore 创建任务状态存储
func NewJobStore(client *Client, retention time.Duration) *JobStore {
	if retention <= 0 {
		retention = 24 * time.Hour
	}
	return &JobStore{client: client, retention: retention}
}

func jobKey(id string) string {
	return "ebook:job:" + id
}

// Save 实现 JobRepository
func (s *JobStore) Save(ctx context.Context, job *entity.GenerationJob) error {
	data, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("failed to marshal job: %w", err)
	}
	if err := s.client.Set(ctx, jobKey(job.ID), data, s.retention); err != nil {
		return fmt.Errorf("failed to save job: %w", err)
	}
	return nil
}

// GetByID 实现 JobRepository
func (s *JobStore) GetByID(ctx context.Context, id string) (*entity.GenerationJob, error) {
	raw, err := s.client.Get(ctx, jobKey(id))
	if err != nil {
		if IsNil(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get job: %w", err)
	}
	var job entity.GenerationJob
	if err := json.Unmarshal([]byte(raw), &job); err != nil {
		return nil, fmt.Errorf("failed to unmarshal job: %w", err)
	}
	return &job, nil
}
