package model

type OutlineGenerateInput struct {
	Topic        string
	Language     string
	ChapterCount int

	ModelParams
}

// OutlineChapter 大纲中的章节条目
type OutlineChapter struct {
	Title   string `json:"title"`
	Summary string `json:"summary"`
}

// Outline 大纲生成结果
type Outline struct {
	Title          string           `json:"title"`
	TargetAudience string           `json:"targetAudience"`
	Description    string           `json:"description"`
	Chapters       []OutlineChapter `json:"chapters"`
}
