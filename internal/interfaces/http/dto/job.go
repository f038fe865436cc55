package dto

import (
	"time"

	"ebook-studio-api/internal/domain/entity"
)

// CreateJobRequest 提交无人值守生成任务
type CreateJobRequest struct {
	Topic      string `json:"topic" binding:"required,max=500"`
	Tone       string `json:"tone" binding:"max=64"`
	CoverStyle string `json:"cover_style" binding:"max=64"`
	AuthorBio  string `json:"author_bio" binding:"max=2000"`
}

// ToParams 转换为任务参数
func (r *CreateJobRequest) ToParams() entity.BookJobParams {
	return entity.BookJobParams{
		Topic:      r.Topic,
		Tone:       r.Tone,
		CoverStyle: r.CoverStyle,
		AuthorBio:  r.AuthorBio,
	}
}

// JobResponse 任务响应
type JobResponse struct {
	ID          string     `json:"id"`
	JobType     string     `json:"job_type"`
	Status      string     `json:"status"`
	Topic       string     `json:"topic"`
	Progress    int        `json:"progress"`
	Stage       string     `json:"stage,omitempty"`
	BookID      string     `json:"book_id,omitempty"`
	ErrorMsg    string     `json:"error_msg,omitempty"`
	RetryCount  int        `json:"retry_count"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// ToJobResponse 将领域实体转换为响应 DTO
func ToJobResponse(j *entity.GenerationJob) *JobResponse {
	if j == nil {
		return nil
	}
	return &JobResponse{
		ID:          j.ID,
		JobType:     string(j.JobType),
		Status:      string(j.Status),
		Topic:       j.Params.Topic,
		Progress:    j.Progress,
		Stage:       string(j.Stage),
		BookID:      j.BookID,
		ErrorMsg:    j.ErrorMessage,
		RetryCount:  j.RetryCount,
		StartedAt:   j.StartedAt,
		CompletedAt: j.CompletedAt,
		CreatedAt:   j.CreatedAt,
		UpdatedAt:   j.UpdatedAt,
	}
}
