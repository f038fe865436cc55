package chain

import (
	"context"
	"fmt"
	"strings"

	llmctx "ebook-studio-api/internal/domain/service"
	wfmodel "ebook-studio-api/internal/workflow/model"
	wfnode "ebook-studio-api/internal/workflow/node"
	workflowport "ebook-studio-api/internal/workflow/port"
	workflowprompt "ebook-studio-api/internal/workflow/prompt"
)

// maxCoverDescriptionRunes 美术指导提示中简介的最大长度
const maxCoverDescriptionRunes = 1200

// CoverPromptChain 由美术指导提示词生成封面图片描述
type CoverPromptChain struct {
	factory workflowport.ChatModelFactory
}

func NewCoverPromptChain(factory workflowport.ChatModelFactory) *CoverPromptChain {
	return &CoverPromptChain{factory: factory}
}

// FallbackCoverPrompt 美术指导调用失败时使用的图片描述
func FallbackCoverPrompt(title, style string) string {
	return fmt.Sprintf("A professional book cover for %s in %s style", strings.TrimSpace(title), strings.TrimSpace(style))
}

func (c *CoverPromptChain) Invoke(ctx context.Context, in *wfmodel.CoverPromptInput) (string, error) {
	if c == nil || c.factory == nil {
		return "", fmt.Errorf("llm factory not configured")
	}
	if in == nil {
		return "", fmt.Errorf("input is nil")
	}

	provider := strings.TrimSpace(in.Provider)
	ctx = llmctx.WithCall(ctx, "cover_prompt", provider)
	chatModel, err := c.factory.Get(ctx, provider)
	if err != nil {
		return "", err
	}

	tpl, err := defaultPromptRegistry.ChatTemplate(workflowprompt.PromptCoverArtV1)
	if err != nil {
		return "", err
	}
	msgs, err := tpl.Format(ctx, map[string]any{
		"title":       strings.TrimSpace(in.Title),
		"description": wfnode.TruncateByRunes(strings.TrimSpace(in.Description), maxCoverDescriptionRunes),
		"style":       orDefault(in.Style, "Minimalist"),
	})
	if err != nil {
		return "", err
	}

	outMsg, err := chatModel.Generate(ctx, msgs, buildModelOptions(in.ModelParams)...)
	if err != nil {
		return "", err
	}
	if outMsg == nil {
		return "", fmt.Errorf("empty llm response")
	}
	return strings.TrimSpace(wfnode.StripCodeFence(outMsg.Content)), nil
}
