package chain

import (
	"strings"
	"time"

	"github.com/cloudwego/eino/schema"

	wfmodel "ebook-studio-api/internal/workflow/model"
)

func usageMeta(provider string, p wfmodel.ModelParams, msg *schema.Message) wfmodel.LLMUsageMeta {
	meta := wfmodel.LLMUsageMeta{
		Provider:    provider,
		Model:       strings.TrimSpace(p.Model),
		GeneratedAt: time.Now(),
	}
	if msg != nil && msg.ResponseMeta != nil && msg.ResponseMeta.Usage != nil {
		meta.PromptTokens = msg.ResponseMeta.Usage.PromptTokens
		meta.CompletionTokens = msg.ResponseMeta.Usage.CompletionTokens
	}
	return meta
}
