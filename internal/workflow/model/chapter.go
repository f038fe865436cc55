package model

type ChapterGenerateInput struct {
	BookTitle    string
	ChapterTitle string
	Audience     string
	Description  string
	Tone         string
	AuthorBio    string
	Language     string
	IsConclusion bool

	ModelParams
}

type ChapterGenerateOutput struct {
	Content string
	Meta    LLMUsageMeta
}
