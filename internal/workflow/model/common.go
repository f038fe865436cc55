package model

import "time"

// ModelParams 单次调用的模型参数，未设置时使用 Provider 配置
type ModelParams struct {
	Provider string
	Model    string

	Temperature *float32
	MaxTokens   *int
}

type LLMUsageMeta struct {
	Provider         string
	Model            string
	PromptTokens     int
	CompletionTokens int
	GeneratedAt      time.Time
}
