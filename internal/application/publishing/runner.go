package publishing

import (
	"context"
	"fmt"
	"time"

	"ebook-studio-api/internal/application/ebook"
	"ebook-studio-api/internal/domain/entity"
	"ebook-studio-api/internal/domain/repository"
	"ebook-studio-api/internal/infrastructure/messaging"
	workflowport "ebook-studio-api/internal/workflow/port"
	apperrors "ebook-studio-api/pkg/errors"
	"ebook-studio-api/pkg/logger"
)

// RunnerConfig 无人值守执行配置
type RunnerConfig struct {
	Settings    ebook.Settings
	CallTimeout time.Duration
	// ArchiveAttempts 归档写入的最大尝试次数；生成本身只执行一次
	ArchiveAttempts int
	// DefaultCredential 消息未携带密钥时使用
	DefaultCredential string
}

// JobRunner 无人值守地执行一次完整的生成：提交主题、自动批准、归档
type JobRunner struct {
	gateway  workflowport.Gateway
	jobs     repository.JobRepository
	archiver ebook.Archiver
	covers   ebook.CoverStore
	cfg      RunnerConfig
}

// NewJobRunner 创建执行器；covers 可为 nil
func NewJobRunner(gateway workflowport.Gateway, jobs repository.JobRepository, archiver ebook.Archiver, covers ebook.CoverStore, cfg RunnerConfig) *JobRunner {
	if cfg.ArchiveAttempts <= 0 {
		cfg.ArchiveAttempts = 1
	}
	return &JobRunner{gateway: gateway, jobs: jobs, archiver: archiver, covers: covers, cfg: cfg}
}

// Handle 作为消息处理函数注册到消费者。
// 只有读取任务状态失败时返回错误，此时尚未发起任何生成调用
func (r *JobRunner) Handle(ctx context.Context, msg *messaging.Message) error {
	var payload messaging.BookJobMessage
	if err := msg.UnmarshalPayload(&payload); err != nil {
		logger.Error(ctx, "invalid book job payload", err, "message_id", msg.ID)
		return nil
	}
	return r.Run(ctx, &payload)
}

// Run 执行任务并维护任务状态。每个任务只生成一次，失败即终态
func (r *JobRunner) Run(ctx context.Context, payload *messaging.BookJobMessage) error {
	job, err := r.jobs.GetByID(ctx, payload.JobID)
	if err != nil {
		return err
	}
	if job == nil {
		job = entity.NewGenerationJob(payload.JobID, payload.OwnerID, entity.BookJobParams{
			Topic:      payload.Topic,
			Tone:       payload.Tone,
			CoverStyle: payload.CoverStyle,
			AuthorBio:  payload.AuthorBio,
		})
	}
	if job.IsTerminal() {
		return nil
	}
	if job.Status == entity.JobStatusRunning {
		logger.Warn(ctx, "book job already running, skipping redelivery", "job_id", job.ID)
		return nil
	}

	job.MarkRunning()
	job.Progress = 5
	job.Stage = entity.StageOutlinePending
	r.save(ctx, job)

	ctrl, err := r.generate(ctx, job, payload.Credential)
	if err != nil {
		r.fail(ctx, job, ctrl.Stage(), err)
		return nil
	}

	job.Progress = 90
	job.Stage = entity.StageCompleted
	r.save(ctx, job)

	bookID, err := r.archive(ctx, job, ctrl)
	if err != nil {
		r.fail(ctx, job, entity.StageCompleted, err)
		return nil
	}

	job.Complete(bookID)
	r.save(ctx, job)
	logger.Info(ctx, "book job completed", "job_id", job.ID, "book_id", bookID)
	return nil
}

func (r *JobRunner) generate(ctx context.Context, job *entity.GenerationJob, credential string) (*ebook.Controller, error) {
	if credential == "" {
		credential = r.cfg.DefaultCredential
	}
	opts := []ebook.Option{
		ebook.WithOwner(job.OwnerID),
		ebook.WithCredential(credential),
		ebook.WithSettings(r.cfg.Settings),
		ebook.WithDelays(ebook.Delays{}),
	}
	if r.cfg.CallTimeout > 0 {
		opts = append(opts, ebook.WithCallTimeout(r.cfg.CallTimeout))
	}
	if r.covers != nil {
		opts = append(opts, ebook.WithCoverStore(r.covers))
	}
	ctrl := ebook.NewController(job.ID, r.gateway, opts...)

	err := ctrl.SubmitTopic(ctx, ebook.TopicInput{
		Topic:      job.Params.Topic,
		Tone:       job.Params.Tone,
		CoverStyle: job.Params.CoverStyle,
		AuthorBio:  job.Params.AuthorBio,
	})
	if err != nil {
		return ctrl, err
	}

	job.Progress = 20
	job.Stage = entity.StageWriting
	r.save(ctx, job)

	if err := ctrl.Approve(ctx); err != nil {
		return ctrl, err
	}
	if stage := ctrl.Stage(); stage != entity.StageCompleted {
		return ctrl, fmt.Errorf("run stopped at stage %s", stage)
	}
	return ctrl, nil
}

// archive 只重试归档写入，已生成的内容不会重新生成
func (r *JobRunner) archive(ctx context.Context, job *entity.GenerationJob, ctrl *ebook.Controller) (string, error) {
	if r.archiver == nil {
		return "", apperrors.New(apperrors.CodeInternalError, "no archiver configured")
	}
	book := ctrl.Snapshot().Book
	entries := ctrl.Log()

	var lastErr error
	for attempt := 1; attempt <= r.cfg.ArchiveAttempts; attempt++ {
		bookID, err := r.archiver.Archive(ctx, job.ID, job.OwnerID, book, entries)
		if err == nil {
			return bookID, nil
		}
		lastErr = err
		logger.Warn(ctx, "archive attempt failed", "job_id", job.ID, "attempt", attempt, "error", err.Error())
		if ctx.Err() != nil {
			break
		}
	}
	return "", apperrors.Wrap(lastErr, apperrors.CodeDatabaseError, "failed to archive book")
}

func (r *JobRunner) fail(ctx context.Context, job *entity.GenerationJob, stage entity.Stage, err error) {
	job.Stage = stage
	job.RetryCount++
	job.Fail(ebook.DescribeError(err))
	r.save(ctx, job)
	logger.Warn(ctx, "book job failed", "job_id", job.ID, "error", err.Error())
}

func (r *JobRunner) save(ctx context.Context, job *entity.GenerationJob) {
	if err := r.jobs.Save(ctx, job); err != nil {
		logger.Error(ctx, "failed to save job status", err, "job_id", job.ID)
	}
}
