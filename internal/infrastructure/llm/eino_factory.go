package llm

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"sync"

	"github.com/cloudwego/eino-ext/components/model/openai"
	"github.com/cloudwego/eino/components/model"
	lru "github.com/hashicorp/golang-lru/v2"

	"ebook-studio-api/internal/config"
	llmctx "ebook-studio-api/internal/domain/service"
	apperrors "ebook-studio-api/pkg/errors"
)

const defaultModelCacheSize = 64

// EinoFactory 管理多个 Eino ChatModel 客户端实例。
// 实例按 (provider, 凭证指纹) 缓存，调用方凭证优先于配置中的 api_key。
type EinoFactory struct {
	config *config.LLMConfig
	models *lru.Cache[string, model.BaseChatModel]
	mu     sync.Mutex

	newModel func(ctx context.Context, cfg *openai.ChatModelConfig) (model.BaseChatModel, error)
}

// NewEinoFactory 创建 Eino LLM 工厂
func NewEinoFactory(cfg *config.Config) *EinoFactory {
	size := cfg.Workflow.ModelCacheSize
	if size <= 0 {
		size = defaultModelCacheSize
	}
	cache, _ := lru.New[string, model.BaseChatModel](size)
	return &EinoFactory{
		config: &cfg.LLM,
		models: cache,
		newModel: func(ctx context.Context, c *openai.ChatModelConfig) (model.BaseChatModel, error) {
			return openai.NewChatModel(ctx, c)
		},
	}
}

// Get 获取指定名称的 ChatModel，如果未指定则返回默认客户端
func (f *EinoFactory) Get(ctx context.Context, name string) (model.BaseChatModel, error) {
	if name == "" {
		name = f.config.DefaultProvider
	}

	providerCfg, ok := f.config.Providers[name]
	if !ok {
		return nil, fmt.Errorf("provider %s not found in LLM config", name)
	}

	apiKey := strings.TrimSpace(providerCfg.APIKey)
	if c, ok := llmctx.CredentialFromContext(ctx); ok {
		apiKey = c
	}
	if apiKey == "" {
		return nil, apperrors.ErrMissingCredential.WithDetail("no api key for provider " + name)
	}

	key := name + "|" + fingerprint(apiKey)
	if m, ok := f.models.Get(key); ok {
		return m, nil
	}

	// 惰性加载，加锁防止同一凭证并发重复创建
	f.mu.Lock()
	defer f.mu.Unlock()

	if m, ok := f.models.Get(key); ok {
		return m, nil
	}

	chatModel, err := f.newModel(ctx, &openai.ChatModelConfig{
		APIKey:      apiKey,
		BaseURL:     providerCfg.BaseURL,
		Model:       providerCfg.Model,
		MaxTokens:   ptrInt(providerCfg.MaxTokens),
		Temperature: ptrFloat32(float32(providerCfg.Temperature)),
		Timeout:     providerCfg.Timeout,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create eino chat model for %s: %w", name, err)
	}

	f.models.Add(key, chatModel)
	return chatModel, nil
}

// Default 返回默认 ChatModel
func (f *EinoFactory) Default(ctx context.Context) (model.BaseChatModel, error) {
	return f.Get(ctx, "")
}

// fingerprint 凭证指纹，避免明文作为缓存键
func fingerprint(secret string) string {
	sum := sha256.Sum256([]byte(secret))
	return hex.EncodeToString(sum[:8])
}

func ptrFloat32(f float32) *float32 {
	return &f
}

func ptrInt(i int) *int {
	if i <= 0 {
		return nil
	}
	return &i
}
