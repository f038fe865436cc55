package dto

import (
	"time"

	"ebook-studio-api/internal/application/ebook"
	"ebook-studio-api/internal/domain/entity"
)

// SubmitTopicRequest 提交主题
type SubmitTopicRequest struct {
	Topic      string `json:"topic" binding:"required,max=500"`
	Tone       string `json:"tone" binding:"max=64"`
	CoverStyle string `json:"cover_style" binding:"max=64"`
	AuthorBio  string `json:"author_bio" binding:"max=2000"`
}

// ToInput 转换为工作流输入
func (r *SubmitTopicRequest) ToInput() ebook.TopicInput {
	return ebook.TopicInput{
		Topic:      r.Topic,
		Tone:       r.Tone,
		CoverStyle: r.CoverStyle,
		AuthorBio:  r.AuthorBio,
	}
}

// UpdateStyleRequest 更新风格，未提供的字段保持不变
type UpdateStyleRequest struct {
	Tone       *string `json:"tone" binding:"omitempty,max=64"`
	CoverStyle *string `json:"cover_style" binding:"omitempty,max=64"`
	AuthorBio  *string `json:"author_bio" binding:"omitempty,max=2000"`
}

// ToUpdate 转换为风格更新
func (r *UpdateStyleRequest) ToUpdate() ebook.StyleUpdate {
	return ebook.StyleUpdate{Tone: r.Tone, CoverStyle: r.CoverStyle, AuthorBio: r.AuthorBio}
}

// RenameChapterRequest 重命名章节
type RenameChapterRequest struct {
	Title string `json:"title" binding:"max=300"`
}

// MoveChapterRequest 移动章节
type MoveChapterRequest struct {
	To *int `json:"to" binding:"required,min=0"`
}

// ChapterContentRequest 修改章节正文
type ChapterContentRequest struct {
	Content string `json:"content"`
}

// EditTextRequest 文本编辑请求
type EditTextRequest struct {
	Text        string `json:"text" binding:"required"`
	Mode        string `json:"mode" binding:"omitempty,oneof=grammar rephrase tone custom"`
	Instruction string `json:"instruction" binding:"max=2000"`
}

// ToInput 转换为编辑输入
func (r *EditTextRequest) ToInput() ebook.EditInput {
	return ebook.EditInput{Text: r.Text, Mode: ebook.EditMode(r.Mode), Instruction: r.Instruction}
}

// EditTextResponse 文本编辑结果
type EditTextResponse struct {
	Text string `json:"text"`
}

// ChangedResponse 编辑命令结果，changed 为 false 表示命令被忽略
type ChangedResponse struct {
	Changed bool `json:"changed"`
}

// RunResponse 运行快照
type RunResponse struct {
	ID        string       `json:"id"`
	OwnerID   string       `json:"owner_id"`
	Stage     string       `json:"stage"`
	Step      int          `json:"step"`
	Busy      bool         `json:"busy"`
	Book      *entity.Book `json:"book"`
	LastError string       `json:"last_error,omitempty"`
	BookID    string       `json:"book_id,omitempty"`
	UpdatedAt time.Time    `json:"updated_at"`
}

// ToRunResponse 转换运行快照
func ToRunResponse(s ebook.Snapshot) *RunResponse {
	return &RunResponse{
		ID:        s.ID,
		OwnerID:   s.OwnerID,
		Stage:     string(s.Stage),
		Step:      s.Step,
		Busy:      s.Stage.IsBusy(),
		Book:      s.Book,
		LastError: s.LastError,
		BookID:    s.BookID,
		UpdatedAt: s.UpdatedAt,
	}
}

// LogResponse 工作流日志
type LogResponse struct {
	Entries []entity.LogEntry `json:"entries"`
}

// CatalogResponse 可选语气与封面风格
type CatalogResponse struct {
	Tones       []entity.Tone       `json:"tones"`
	CoverStyles []entity.CoverStyle `json:"cover_styles"`
	Defaults    map[string]string   `json:"defaults"`
}
