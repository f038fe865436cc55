// Package generation 实现内容生成网关：大纲、章节、封面与文本编辑
package generation

import (
	"context"
	"encoding/base64"
	stderrors "errors"
	"fmt"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"ebook-studio-api/internal/config"
	workflowchain "ebook-studio-api/internal/workflow/chain"
	wfmodel "ebook-studio-api/internal/workflow/model"
	workflowport "ebook-studio-api/internal/workflow/port"
	apperrors "ebook-studio-api/pkg/errors"
	"ebook-studio-api/pkg/logger"
	"ebook-studio-api/pkg/tracer"
)

// Options 网关参数
type Options struct {
	Provider        string
	Language        string
	OutlineChapters int
	AspectRatio     string
	ImageSize       string
}

// OptionsFromConfig 由全局配置构建网关参数
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		Provider:        cfg.LLM.DefaultProvider,
		Language:        cfg.Workflow.Language,
		OutlineChapters: cfg.Workflow.OutlineChapters,
		AspectRatio:     cfg.Image.AspectRatio,
		ImageSize:       cfg.Image.ImageSize,
	}
}

// Gateway 基于 Eino 链与图片模型的生成网关
type Gateway struct {
	opts Options

	outline *workflowchain.OutlineChain
	chapter *workflowchain.ChapterChain
	cover   *workflowchain.CoverPromptChain
	edit    *workflowchain.EditChain
	images  workflowport.ImageGenerator
}

var _ workflowport.Gateway = (*Gateway)(nil)

// NewGateway 创建生成网关
func NewGateway(factory workflowport.ChatModelFactory, images workflowport.ImageGenerator, opts Options) *Gateway {
	return &Gateway{
		opts:    opts,
		outline: workflowchain.NewOutlineChain(factory),
		chapter: workflowchain.NewChapterChain(factory),
		cover:   workflowchain.NewCoverPromptChain(factory),
		edit:    workflowchain.NewEditChain(factory),
		images:  images,
	}
}

// GenerateOutline 生成大纲
func (g *Gateway) GenerateOutline(ctx context.Context, topic string) (*workflowport.Outline, error) {
	ctx, span := tracer.Start(ctx, "generation.Gateway.GenerateOutline")
	defer span.End()

	out, err := g.outline.Invoke(ctx, &wfmodel.OutlineGenerateInput{
		Topic:        topic,
		Language:     g.opts.Language,
		ChapterCount: g.opts.OutlineChapters,
		ModelParams:  wfmodel.ModelParams{Provider: g.opts.Provider},
	})
	if err != nil {
		span.RecordError(err)
		return nil, classify(err, "outline generation failed")
	}

	result := &workflowport.Outline{
		Title:          out.Title,
		TargetAudience: out.TargetAudience,
		Description:    out.Description,
		Chapters:       make([]workflowport.OutlineChapter, 0, len(out.Chapters)),
	}
	for _, ch := range out.Chapters {
		result.Chapters = append(result.Chapters, workflowport.OutlineChapter{Title: ch.Title, Summary: ch.Summary})
	}
	span.SetAttributes(attribute.Int("outline.chapters", len(result.Chapters)))
	return result, nil
}

// GenerateChapter 生成章节正文
func (g *Gateway) GenerateChapter(ctx context.Context, req workflowport.ChapterRequest) (string, error) {
	ctx, span := tracer.Start(ctx, "generation.Gateway.GenerateChapter",
		trace.WithAttributes(attribute.String("chapter.title", req.ChapterTitle)))
	defer span.End()

	out, err := g.chapter.Invoke(ctx, &wfmodel.ChapterGenerateInput{
		BookTitle:    req.BookTitle,
		ChapterTitle: req.ChapterTitle,
		Audience:     req.Audience,
		Description:  req.Description,
		Tone:         req.Tone,
		AuthorBio:    req.AuthorBio,
		Language:     g.opts.Language,
		IsConclusion: req.IsConclusion,
		ModelParams:  wfmodel.ModelParams{Provider: g.opts.Provider},
	})
	if err != nil {
		span.RecordError(err)
		return "", classify(err, "chapter generation failed")
	}
	span.SetAttributes(
		attribute.Int("llm.prompt_tokens", out.Meta.PromptTokens),
		attribute.Int("llm.completion_tokens", out.Meta.CompletionTokens),
	)
	return out.Content, nil
}

// GenerateCoverImage 先由美术指导生成图片描述，再调用图片模型，返回 data URI
func (g *Gateway) GenerateCoverImage(ctx context.Context, req workflowport.CoverRequest) (string, error) {
	ctx, span := tracer.Start(ctx, "generation.Gateway.GenerateCoverImage",
		trace.WithAttributes(attribute.String("cover.style", req.Style)))
	defer span.End()

	if g.images == nil {
		return "", apperrors.ErrGenerationFailed.WithDetail("image generator not configured")
	}

	prompt, err := g.cover.Invoke(ctx, &wfmodel.CoverPromptInput{
		Title:       req.Title,
		Description: req.Description,
		Style:       req.Style,
		ModelParams: wfmodel.ModelParams{Provider: g.opts.Provider},
	})
	if err != nil {
		if stderrors.Is(err, apperrors.ErrMissingCredential) {
			return "", err
		}
		logger.Warn(ctx, "cover art direction failed, using fallback prompt", "error", err.Error())
	}
	if strings.TrimSpace(prompt) == "" {
		prompt = workflowchain.FallbackCoverPrompt(req.Title, req.Style)
	}

	img, err := g.images.GenerateImage(ctx, workflowport.ImageRequest{
		Prompt:      prompt,
		AspectRatio: g.opts.AspectRatio,
		ImageSize:   g.opts.ImageSize,
	})
	if err != nil {
		span.RecordError(err)
		return "", classify(err, "cover image generation failed")
	}
	if img == nil || len(img.Data) == 0 {
		return "", apperrors.ErrGenerationFailed.WithDetail("image model returned no data")
	}
	return DataURI(img.MIMEType, img.Data), nil
}

// EditText 按指令改写文本
func (g *Gateway) EditText(ctx context.Context, req workflowport.EditRequest) (string, error) {
	ctx, span := tracer.Start(ctx, "generation.Gateway.EditText")
	defer span.End()

	out, err := g.edit.Invoke(ctx, &wfmodel.EditTextInput{
		Original:    req.Original,
		Instruction: req.Instruction,
		Tone:        req.Tone,
		Audience:    req.Audience,
		ModelParams: wfmodel.ModelParams{Provider: g.opts.Provider},
	})
	if err != nil {
		span.RecordError(err)
		return "", classify(err, "text edit failed")
	}
	return out, nil
}

// DataURI 将图片字节编码为 data URI
func DataURI(mimeType string, data []byte) string {
	if mimeType == "" {
		mimeType = "image/png"
	}
	return fmt.Sprintf("data:%s;base64,%s", mimeType, base64.StdEncoding.EncodeToString(data))
}

// classify 凭证缺失原样返回，其它错误统一为 GenerationFailed
func classify(err error, message string) error {
	if stderrors.Is(err, apperrors.ErrMissingCredential) {
		return err
	}
	if stderrors.Is(err, context.DeadlineExceeded) {
		return apperrors.Wrap(err, apperrors.CodeGenerationFailed, message+": timed out")
	}
	return apperrors.Wrap(err, apperrors.CodeGenerationFailed, message)
}
