package ebook

import (
	"time"

	"ebook-studio-api/internal/domain/entity"
)

// Log 只追加的工作流日志
type Log struct {
	entries []entity.LogEntry
}

// Append 追加一条日志
func (l *Log) Append(at time.Time, role entity.AgentRole, message string) {
	l.entries = append(l.entries, entity.LogEntry{Timestamp: at, Role: role, Message: message})
}

// Entries 返回全部日志的快照
func (l *Log) Entries() []entity.LogEntry {
	return append([]entity.LogEntry(nil), l.entries...)
}

// Len 日志条数
func (l *Log) Len() int {
	return len(l.entries)
}

// TopicInput 提交主题时的输入
type TopicInput struct {
	Topic      string `json:"topic"`
	Tone       string `json:"tone"`
	CoverStyle string `json:"cover_style"`
	AuthorBio  string `json:"author_bio"`
}

// Run 一次工作流运行的状态
type Run struct {
	Stage     entity.Stage
	Book      *entity.Book
	Log       Log
	Input     TopicInput
	LastError string
	BookID    string
	UpdatedAt time.Time

	// epoch 在每次开始新的生成流程或重置时递增，旧调用的结果据此丢弃
	epoch uint64
}

// Snapshot 对外暴露的只读快照
type Snapshot struct {
	ID        string       `json:"id"`
	OwnerID   string       `json:"owner_id"`
	Stage     entity.Stage `json:"stage"`
	Step      int          `json:"step"`
	Book      *entity.Book `json:"book"`
	LastError string       `json:"last_error,omitempty"`
	BookID    string       `json:"book_id,omitempty"`
	UpdatedAt time.Time    `json:"updated_at"`
}

func emptyBook() *entity.Book {
	return &entity.Book{Chapters: []entity.Chapter{}}
}
