package llm

import (
	"context"
	"fmt"
	"strings"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
	"google.golang.org/genai"

	"ebook-studio-api/internal/config"
	llmctx "ebook-studio-api/internal/domain/service"
	workflowport "ebook-studio-api/internal/workflow/port"
	apperrors "ebook-studio-api/pkg/errors"
	"ebook-studio-api/pkg/metrics"
	"ebook-studio-api/pkg/tracer"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// GeminiImageGenerator 基于 genai SDK 的封面图片生成器
type GeminiImageGenerator struct {
	cfg     *config.ImageConfig
	clients *lru.Cache[string, *genai.Client]
	mu      sync.Mutex
}

// NewGeminiImageGenerator 创建图片生成器
func NewGeminiImageGenerator(cfg *config.Config) *GeminiImageGenerator {
	size := cfg.Workflow.ModelCacheSize
	if size <= 0 {
		size = defaultModelCacheSize
	}
	cache, _ := lru.New[string, *genai.Client](size)
	return &GeminiImageGenerator{cfg: &cfg.Image, clients: cache}
}

var _ workflowport.ImageGenerator = (*GeminiImageGenerator)(nil)

// GenerateImage 调用图片模型，返回第一张内联图片
func (g *GeminiImageGenerator) GenerateImage(ctx context.Context, req workflowport.ImageRequest) (*workflowport.Image, error) {
	ctx, span := tracer.Start(ctx, "llm.GeminiImageGenerator.GenerateImage",
		trace.WithAttributes(attribute.String("image.model", g.cfg.Model)))
	defer span.End()

	cli, err := g.client(ctx)
	if err != nil {
		return nil, err
	}

	if g.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.cfg.Timeout)
		defer cancel()
	}

	resp, err := cli.Models.GenerateContent(ctx, g.cfg.Model,
		[]*genai.Content{{Parts: []*genai.Part{{Text: imagePrompt(req)}}}},
		&genai.GenerateContentConfig{ResponseModalities: []string{"IMAGE", "TEXT"}},
	)
	if err != nil {
		span.RecordError(err)
		metrics.ImageCallTotal.WithLabelValues(g.cfg.Model, "error").Inc()
		return nil, fmt.Errorf("failed to generate image: %w", err)
	}

	for _, cand := range resp.Candidates {
		if cand == nil || cand.Content == nil {
			continue
		}
		for _, part := range cand.Content.Parts {
			if part != nil && part.InlineData != nil && len(part.InlineData.Data) > 0 {
				metrics.ImageCallTotal.WithLabelValues(g.cfg.Model, "success").Inc()
				mime := part.InlineData.MIMEType
				if mime == "" {
					mime = "image/png"
				}
				return &workflowport.Image{Data: part.InlineData.Data, MIMEType: mime}, nil
			}
		}
	}

	metrics.ImageCallTotal.WithLabelValues(g.cfg.Model, "empty").Inc()
	return nil, fmt.Errorf("image model returned no inline image data")
}

func (g *GeminiImageGenerator) client(ctx context.Context) (*genai.Client, error) {
	apiKey := strings.TrimSpace(g.cfg.APIKey)
	if c, ok := llmctx.CredentialFromContext(ctx); ok {
		apiKey = c
	}
	if apiKey == "" {
		return nil, apperrors.ErrMissingCredential.WithDetail("no api key for image model")
	}

	key := fingerprint(apiKey)
	if cli, ok := g.clients.Get(key); ok {
		return cli, nil
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	if cli, ok := g.clients.Get(key); ok {
		return cli, nil
	}

	cli, err := genai.NewClient(ctx, &genai.ClientConfig{APIKey: apiKey, Backend: genai.BackendGeminiAPI})
	if err != nil {
		return nil, fmt.Errorf("failed to create genai client: %w", err)
	}
	g.clients.Add(key, cli)
	return cli, nil
}

// imagePrompt 将画幅与尺寸要求附加到图片描述
func imagePrompt(req workflowport.ImageRequest) string {
	var b strings.Builder
	b.WriteString(strings.TrimSpace(req.Prompt))
	if req.AspectRatio != "" || req.ImageSize != "" {
		b.WriteString("\n\nRender a portrait book cover")
		if req.AspectRatio != "" {
			b.WriteString(" with aspect ratio " + req.AspectRatio)
		}
		if req.ImageSize != "" {
			b.WriteString(" at " + req.ImageSize + " resolution")
		}
		b.WriteString(". Do not render any text.")
	}
	return b.String()
}
