package publishing

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"ebook-studio-api/internal/domain/entity"
	"ebook-studio-api/internal/domain/repository"
	"ebook-studio-api/internal/infrastructure/messaging"
	apperrors "ebook-studio-api/pkg/errors"
	"ebook-studio-api/pkg/logger"
)

// JobPublisher 任务发布者
type JobPublisher interface {
	PublishBookJob(ctx context.Context, job *messaging.BookJobMessage) (string, error)
}

// JobService 无人值守生成任务的提交与查询
type JobService struct {
	jobs      repository.JobRepository
	publisher JobPublisher
}

// NewJobService 创建任务服务
func NewJobService(jobs repository.JobRepository, publisher JobPublisher) *JobService {
	return &JobService{jobs: jobs, publisher: publisher}
}

// Submit 校验参数，保存 pending 状态并投递到生成队列
func (s *JobService) Submit(ctx context.Context, ownerID, credential string, params entity.BookJobParams) (*entity.GenerationJob, error) {
	params.Topic = strings.TrimSpace(params.Topic)
	if params.Topic == "" {
		return nil, apperrors.ErrValidationFailed.WithDetail("topic is required")
	}
	if params.Tone != "" && !entity.IsKnownTone(params.Tone) {
		return nil, apperrors.ErrValidationFailed.WithDetail("unknown tone: " + params.Tone)
	}
	if params.CoverStyle != "" && !entity.IsKnownCoverStyle(params.CoverStyle) {
		return nil, apperrors.ErrValidationFailed.WithDetail("unknown cover style: " + params.CoverStyle)
	}

	job := entity.NewGenerationJob(uuid.NewString(), ownerID, params)
	if err := s.jobs.Save(ctx, job); err != nil {
		return nil, err
	}

	_, err := s.publisher.PublishBookJob(ctx, &messaging.BookJobMessage{
		JobID:      job.ID,
		OwnerID:    ownerID,
		Topic:      params.Topic,
		Tone:       params.Tone,
		CoverStyle: params.CoverStyle,
		AuthorBio:  params.AuthorBio,
		Credential: credential,
	})
	if err != nil {
		job.Fail(err.Error())
		if saveErr := s.jobs.Save(ctx, job); saveErr != nil {
			logger.Error(ctx, "failed to save job status", saveErr, "job_id", job.ID)
		}
		return nil, apperrors.Wrap(err, apperrors.CodeQueueError, "failed to enqueue job")
	}

	logger.Info(ctx, "book job submitted", "job_id", job.ID)
	return job, nil
}

// Get 查询任务，非所有者返回 Forbidden
func (s *JobService) Get(ctx context.Context, id, userID string, admin bool) (*entity.GenerationJob, error) {
	job, err := s.jobs.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if job == nil {
		return nil, apperrors.ErrJobNotFound
	}
	if !admin && job.OwnerID != userID {
		return nil, apperrors.ErrForbidden
	}
	return job, nil
}
