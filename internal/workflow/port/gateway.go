package port

import "context"

// OutlineChapter 大纲章节
type OutlineChapter struct {
	Title   string
	Summary string
}

// Outline 大纲结果
type Outline struct {
	Title          string
	TargetAudience string
	Description    string
	Chapters       []OutlineChapter
}

// ChapterRequest 章节生成请求
type ChapterRequest struct {
	BookTitle    string
	ChapterTitle string
	Audience     string
	Description  string
	Tone         string
	AuthorBio    string
	IsConclusion bool
}

// CoverRequest 封面生成请求
type CoverRequest struct {
	Title       string
	Description string
	Style       string
}

// EditRequest 文本编辑请求
type EditRequest struct {
	Original    string
	Instruction string
	Tone        string
	Audience    string
}

// Gateway 内容生成网关：工作流对外部生成服务的唯一依赖。
// 所有失败都以 errors.CodeGenerationFailed / CodeMissingCredential 返回。
type Gateway interface {
	GenerateOutline(ctx context.Context, topic string) (*Outline, error)
	GenerateChapter(ctx context.Context, req ChapterRequest) (string, error)
	GenerateCoverImage(ctx context.Context, req CoverRequest) (string, error)
	EditText(ctx context.Context, req EditRequest) (string, error)
}
