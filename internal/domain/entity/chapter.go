package entity

import "strings"

// ChapterStatus 章节生成状态
type ChapterStatus string

const (
	ChapterStatusPending    ChapterStatus = "pending"
	ChapterStatusGenerating ChapterStatus = "generating"
	ChapterStatusCompleted  ChapterStatus = "completed"
	ChapterStatusError      ChapterStatus = "error"
)

// ConclusionChapterID 结语章节的保留 ID
const ConclusionChapterID = "ch-conclusion"

// Chapter 章节实体
type Chapter struct {
	ID      string        `json:"id"`
	Title   string        `json:"title"`
	Summary string        `json:"summary,omitempty"`
	Content string        `json:"content,omitempty"`
	Status  ChapterStatus `json:"status"`
}

// NewChapter 创建待生成章节
func NewChapter(id, title string) Chapter {
	return Chapter{ID: id, Title: title, Status: ChapterStatusPending}
}

// IsConclusion 是否为结语章节
func (c Chapter) IsConclusion() bool {
	return c.ID == ConclusionChapterID
}

// HasContent 是否已有正文
func (c Chapter) HasContent() bool {
	return strings.TrimSpace(c.Content) != ""
}
