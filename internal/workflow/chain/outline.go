package chain

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	openaiopts "github.com/cloudwego/eino-ext/components/model/openai"
	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"

	llmctx "ebook-studio-api/internal/domain/service"
	wfmodel "ebook-studio-api/internal/workflow/model"
	wfnode "ebook-studio-api/internal/workflow/node"
	workflowport "ebook-studio-api/internal/workflow/port"
	workflowprompt "ebook-studio-api/internal/workflow/prompt"
	"ebook-studio-api/pkg/logger"
)

// OutlineChain 大纲生成链：init → template → llm → parse
type OutlineChain struct {
	factory workflowport.ChatModelFactory

	chainOnce sync.Once
	chain     compose.Runnable[*wfmodel.OutlineGenerateInput, *wfmodel.Outline]
	chainErr  error
}

func NewOutlineChain(factory workflowport.ChatModelFactory) *OutlineChain {
	return &OutlineChain{factory: factory}
}

func (c *OutlineChain) Invoke(ctx context.Context, in *wfmodel.OutlineGenerateInput) (*wfmodel.Outline, error) {
	if c == nil || c.factory == nil {
		return nil, fmt.Errorf("llm factory not configured")
	}
	if in == nil {
		return nil, fmt.Errorf("input is nil")
	}

	chain, err := c.getChain()
	if err != nil {
		return nil, err
	}
	return chain.Invoke(ctx, in)
}

type outlineChainState struct {
	In       *wfmodel.OutlineGenerateInput
	Messages []*schema.Message
	OutMsg   *schema.Message
}

func (c *OutlineChain) getChain() (compose.Runnable[*wfmodel.OutlineGenerateInput, *wfmodel.Outline], error) {
	c.chainOnce.Do(func() {
		c.chain, c.chainErr = c.buildChain(context.Background())
	})
	return c.chain, c.chainErr
}

func (c *OutlineChain) buildChain(ctx context.Context) (compose.Runnable[*wfmodel.OutlineGenerateInput, *wfmodel.Outline], error) {
	chain := compose.NewChain[*wfmodel.OutlineGenerateInput, *wfmodel.Outline]()

	chain.AppendLambda(
		compose.InvokableLambda(func(_ context.Context, in *wfmodel.OutlineGenerateInput) (*outlineChainState, error) {
			if in == nil {
				return nil, fmt.Errorf("input is nil")
			}
			if strings.TrimSpace(in.Topic) == "" {
				return nil, fmt.Errorf("topic is required")
			}
			return &outlineChainState{In: in}, nil
		}),
		compose.WithNodeName("outline.init"),
	)

	chain.AppendLambda(
		compose.InvokableLambda(func(ctx context.Context, st *outlineChainState) (*outlineChainState, error) {
			msgs, err := formatOutlineMessages(ctx, st.In)
			if err != nil {
				return nil, err
			}
			st.Messages = msgs
			return st, nil
		}),
		compose.WithNodeName("outline.template"),
	)

	chain.AppendLambda(
		compose.InvokableLambda(func(ctx context.Context, st *outlineChainState) (*outlineChainState, error) {
			provider := strings.TrimSpace(st.In.Provider)
			ctx = llmctx.WithCall(ctx, "outline_generate", provider)
			chatModel, err := c.factory.Get(ctx, provider)
			if err != nil {
				return nil, err
			}

			outMsg, err := chatModel.Generate(ctx, st.Messages, buildOutlineModelOptions(st.In, true)...)
			if err != nil && wfnode.IsResponseFormatUnsupportedError(err) {
				logger.Warn(ctx, "llm json_schema not supported, fallback to prompt-only",
					"provider", provider,
					"model", pickModel(st.In.ModelParams),
					"error", err.Error(),
				)
				outMsg, err = chatModel.Generate(ctx, st.Messages, buildOutlineModelOptions(st.In, false)...)
			}
			if err != nil {
				return nil, err
			}
			if outMsg == nil {
				return nil, fmt.Errorf("empty llm response")
			}
			st.OutMsg = outMsg
			return st, nil
		}),
		compose.WithNodeName("outline.llm"),
	)

	chain.AppendLambda(
		compose.InvokableLambda(func(_ context.Context, st *outlineChainState) (*wfmodel.Outline, error) {
			if st == nil || st.OutMsg == nil {
				return nil, fmt.Errorf("state is nil")
			}
			return ParseOutline(st.OutMsg.Content)
		}),
		compose.WithNodeName("outline.parse"),
	)

	return chain.Compile(ctx)
}

// ParseOutline 解析模型输出的大纲 JSON，去除空标题章节
func ParseOutline(raw string) (*wfmodel.Outline, error) {
	text := wfnode.ExtractJSONObject(wfnode.StripCodeFence(raw))
	if text == "" {
		return nil, fmt.Errorf("empty outline output")
	}

	var out wfmodel.Outline
	if err := json.Unmarshal([]byte(text), &out); err != nil {
		return nil, fmt.Errorf("failed to parse outline json: %w", err)
	}

	out.Title = strings.TrimSpace(out.Title)
	out.TargetAudience = strings.TrimSpace(out.TargetAudience)
	out.Description = strings.TrimSpace(out.Description)

	chapters := out.Chapters[:0]
	for _, ch := range out.Chapters {
		ch.Title = strings.TrimSpace(ch.Title)
		ch.Summary = strings.TrimSpace(ch.Summary)
		if ch.Title == "" {
			continue
		}
		chapters = append(chapters, ch)
	}
	out.Chapters = chapters

	if out.Title == "" {
		return nil, fmt.Errorf("outline title is empty")
	}
	if len(out.Chapters) == 0 {
		return nil, fmt.Errorf("outline has no chapters")
	}
	return &out, nil
}

func formatOutlineMessages(ctx context.Context, in *wfmodel.OutlineGenerateInput) ([]*schema.Message, error) {
	tpl, err := defaultPromptRegistry.ChatTemplate(workflowprompt.PromptOutlineV1)
	if err != nil {
		return nil, err
	}
	count := in.ChapterCount
	if count <= 0 {
		count = 5
	}
	vars := map[string]any{
		"topic":         strings.TrimSpace(in.Topic),
		"language":      languageOrDefault(in.Language),
		"chapter_count": count,
	}
	return tpl.Format(ctx, vars)
}

func buildOutlineModelOptions(in *wfmodel.OutlineGenerateInput, enableSchema bool) []model.Option {
	opts := buildModelOptions(in.ModelParams)
	if enableSchema {
		opts = append(opts, openaiopts.WithExtraFields(map[string]any{
			"response_format": map[string]any{
				"type": "json_schema",
				"json_schema": map[string]any{
					"name":   "ebook_outline",
					"strict": false,
					"schema": outlineJSONSchema(),
				},
			},
		}))
	}
	return opts
}

func outlineJSONSchema() map[string]any {
	return map[string]any{
		"type":     "object",
		"required": []any{"title", "targetAudience", "description", "chapters"},
		"properties": map[string]any{
			"title":          map[string]any{"type": "string"},
			"targetAudience": map[string]any{"type": "string"},
			"description":    map[string]any{"type": "string"},
			"chapters": map[string]any{
				"type": "array",
				"items": map[string]any{
					"type":     "object",
					"required": []any{"title", "summary"},
					"properties": map[string]any{
						"title":   map[string]any{"type": "string"},
						"summary": map[string]any{"type": "string"},
					},
				},
			},
		},
	}
}

func languageOrDefault(lang string) string {
	if l := strings.TrimSpace(lang); l != "" {
		return l
	}
	return "English"
}
