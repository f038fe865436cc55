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

type EditChain struct {
	factory workflowport.ChatModelFactory
}

func NewEditChain(factory workflowport.ChatModelFactory) *EditChain {
	return &EditChain{factory: factory}
}

// Invoke 按指令改写文本；模型输出为空时原样返回输入
func (c *EditChain) Invoke(ctx context.Context, in *wfmodel.EditTextInput) (string, error) {
	if c == nil || c.factory == nil {
		return "", fmt.Errorf("llm factory not configured")
	}
	if in == nil {
		return "", fmt.Errorf("input is nil")
	}

	provider := strings.TrimSpace(in.Provider)
	ctx = llmctx.WithCall(ctx, "edit_text", provider)
	chatModel, err := c.factory.Get(ctx, provider)
	if err != nil {
		return "", err
	}

	tpl, err := defaultPromptRegistry.ChatTemplate(workflowprompt.PromptEditV1)
	if err != nil {
		return "", err
	}

	var ctxLines []string
	if tone := strings.TrimSpace(in.Tone); tone != "" {
		ctxLines = append(ctxLines, "- Tone of voice: "+tone)
	}
	if audience := strings.TrimSpace(in.Audience); audience != "" {
		ctxLines = append(ctxLines, "- Target audience: "+audience)
	}
	if len(ctxLines) == 0 {
		ctxLines = append(ctxLines, "- (none)")
	}

	msgs, err := tpl.Format(ctx, map[string]any{
		"original":      in.Original,
		"instruction":   strings.TrimSpace(in.Instruction),
		"context_block": strings.Join(ctxLines, "\n"),
	})
	if err != nil {
		return "", err
	}

	outMsg, err := chatModel.Generate(ctx, msgs, buildModelOptions(in.ModelParams)...)
	if err != nil {
		return "", err
	}
	if outMsg == nil {
		return in.Original, nil
	}
	if out := strings.TrimSpace(wfnode.StripCodeFence(outMsg.Content)); out != "" {
		return out, nil
	}
	return in.Original, nil
}
