package chain

import (
	"context"
	"fmt"
	"strings"

	"github.com/cloudwego/eino/schema"

	llmctx "ebook-studio-api/internal/domain/service"
	wfmodel "ebook-studio-api/internal/workflow/model"
	wfnode "ebook-studio-api/internal/workflow/node"
	workflowport "ebook-studio-api/internal/workflow/port"
	workflowprompt "ebook-studio-api/internal/workflow/prompt"
)

const (
	defaultBookTitle = "Untitled"
	defaultAudience  = "General readers"
	defaultTone      = "Professional & Authoritative"
)

type ChapterChain struct {
	factory workflowport.ChatModelFactory
}

func NewChapterChain(factory workflowport.ChatModelFactory) *ChapterChain {
	return &ChapterChain{factory: factory}
}

// Invoke 生成章节正文（Markdown），空输出视为失败
func (c *ChapterChain) Invoke(ctx context.Context, in *wfmodel.ChapterGenerateInput) (*wfmodel.ChapterGenerateOutput, error) {
	if c == nil || c.factory == nil {
		return nil, fmt.Errorf("llm factory not configured")
	}
	if in == nil {
		return nil, fmt.Errorf("input is nil")
	}
	if strings.TrimSpace(in.ChapterTitle) == "" {
		return nil, fmt.Errorf("chapter title is required")
	}

	provider := strings.TrimSpace(in.Provider)
	ctx = llmctx.WithCall(ctx, "chapter_generate", provider)
	chatModel, err := c.factory.Get(ctx, provider)
	if err != nil {
		return nil, err
	}

	msgs, err := formatChapterMessages(ctx, in)
	if err != nil {
		return nil, err
	}

	outMsg, err := chatModel.Generate(ctx, msgs, buildModelOptions(in.ModelParams)...)
	if err != nil {
		return nil, err
	}
	if outMsg == nil {
		return nil, fmt.Errorf("empty llm response")
	}

	content := strings.TrimSpace(wfnode.StripCodeFence(outMsg.Content))
	if content == "" {
		return nil, fmt.Errorf("empty chapter content")
	}
	return &wfmodel.ChapterGenerateOutput{Content: content, Meta: usageMeta(provider, in.ModelParams, outMsg)}, nil
}

func formatChapterMessages(ctx context.Context, in *wfmodel.ChapterGenerateInput) ([]*schema.Message, error) {
	tpl, err := defaultPromptRegistry.ChatTemplate(workflowprompt.PromptChapterV1)
	if err != nil {
		return nil, err
	}

	persona := "Expert in the field."
	if bio := strings.TrimSpace(in.AuthorBio); bio != "" {
		persona = fmt.Sprintf("Write from the perspective of this author: %q. Incorporate their expertise and voice where it fits.", bio)
	}
	conclusion := ""
	if in.IsConclusion {
		conclusion = "- This is the conclusion chapter: synthesize the key lessons of the book into a powerful call to action."
	}

	vars := map[string]any{
		"book_title":      orDefault(in.BookTitle, defaultBookTitle),
		"description":     strings.TrimSpace(in.Description),
		"audience":        orDefault(in.Audience, defaultAudience),
		"chapter_title":   strings.TrimSpace(in.ChapterTitle),
		"language":        languageOrDefault(in.Language),
		"tone":            orDefault(in.Tone, defaultTone),
		"author_persona":  persona,
		"conclusion_note": conclusion,
	}
	return tpl.Format(ctx, vars)
}

func orDefault(v, def string) string {
	if s := strings.TrimSpace(v); s != "" {
		return s
	}
	return def
}
