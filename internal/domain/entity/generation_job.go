package entity

import "time"

// JobType 任务类型
type JobType string

const (
	JobTypeBookGen JobType = "book_gen"
)

// JobStatus 任务状态
type JobStatus string

const (
	JobStatusPending   JobStatus = "pending"
	JobStatusRunning   JobStatus = "running"
	JobStatusCompleted JobStatus = "completed"
	JobStatusFailed    JobStatus = "failed"
)

// BookJobParams 无人值守生成参数
type BookJobParams struct {
	Topic      string `json:"topic"`
	Tone       string `json:"tone,omitempty"`
	CoverStyle string `json:"cover_style,omitempty"`
	AuthorBio  string `json:"author_bio,omitempty"`
}

// GenerationJob 生成任务
type GenerationJob struct {
	ID           string        `json:"id"`
	OwnerID      string        `json:"owner_id"`
	JobType      JobType       `json:"job_type"`
	Status       JobStatus     `json:"status"`
	Params       BookJobParams `json:"params"`
	Progress     int           `json:"progress"` // 任务进度 (0-100)
	Stage        Stage         `json:"stage,omitempty"`
	BookID       string        `json:"book_id,omitempty"`
	ErrorMessage string        `json:"error_message,omitempty"`
	RetryCount   int           `json:"retry_count"`
	CreatedAt    time.Time     `json:"created_at"`
	UpdatedAt    time.Time     `json:"updated_at"`
	StartedAt    *time.Time    `json:"started_at,omitempty"`
	CompletedAt  *time.Time    `json:"completed_at,omitempty"`
}

// NewGenerationJob 创建新任务
func NewGenerationJob(id, ownerID string, params BookJobParams) *GenerationJob {
	now := time.Now()
	return &GenerationJob{
		ID:        id,
		OwnerID:   ownerID,
		JobType:   JobTypeBookGen,
		Status:    JobStatusPending,
		Params:    params,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// MarkRunning 标记为运行中
func (j *GenerationJob) MarkRunning() {
	now := time.Now()
	j.Status = JobStatusRunning
	j.StartedAt = &now
	j.UpdatedAt = now
}

// Complete 标记完成
func (j *GenerationJob) Complete(bookID string) {
	now := time.Now()
	j.Status = JobStatusCompleted
	j.BookID = bookID
	j.Progress = 100
	j.Stage = StageCompleted
	j.CompletedAt = &now
	j.UpdatedAt = now
}

// Fail 标记失败
func (j *GenerationJob) Fail(errMsg string) {
	now := time.Now()
	j.Status = JobStatusFailed
	j.ErrorMessage = errMsg
	j.CompletedAt = &now
	j.UpdatedAt = now
}

// IsTerminal 是否为终态
func (j *GenerationJob) IsTerminal() bool {
	return j.Status == JobStatusCompleted || j.Status == JobStatusFailed
}
