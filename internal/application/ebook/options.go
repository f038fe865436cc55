package ebook

import (
	"context"
	"time"

	"ebook-studio-api/internal/config"
	"ebook-studio-api/internal/domain/entity"
)

// Settings 工作流参数
type Settings struct {
	MaxChapters      int
	ConclusionTitle  string
	PlaceholderTitle string // 含一个 %d，对应插入前的章节数
	FallbackCoverURL string
}

// Delays 设计与审阅阶段的展示延迟
type Delays struct {
	CoverDisplay time.Duration
	Review       []time.Duration
}

// DefaultSettings 默认参数
func DefaultSettings() Settings {
	return Settings{
		MaxChapters:      12,
		ConclusionTitle:  "Conclusion: Key Lessons and Final Thoughts",
		PlaceholderTitle: "Chapter %d (please set a title)",
		FallbackCoverURL: "https://picsum.photos/600/800",
	}
}

// DefaultDelays 默认延迟：封面展示 1s，审阅 1.5s / 0.8s / 0.8s
func DefaultDelays() Delays {
	return Delays{
		CoverDisplay: time.Second,
		Review:       []time.Duration{1500 * time.Millisecond, 800 * time.Millisecond, 800 * time.Millisecond},
	}
}

// SettingsFromConfig 由全局配置构建工作流参数
func SettingsFromConfig(cfg *config.WorkflowConfig) Settings {
	s := DefaultSettings()
	if cfg.MaxChapters > 0 {
		s.MaxChapters = cfg.MaxChapters
	}
	if cfg.ConclusionTitle != "" {
		s.ConclusionTitle = cfg.ConclusionTitle
	}
	if cfg.PlaceholderTitle != "" {
		s.PlaceholderTitle = cfg.PlaceholderTitle
	}
	if cfg.FallbackCoverURL != "" {
		s.FallbackCoverURL = cfg.FallbackCoverURL
	}
	return s
}

// DelaysFromConfig 由全局配置构建延迟参数
func DelaysFromConfig(cfg *config.WorkflowConfig) Delays {
	return Delays{CoverDisplay: cfg.CoverDisplayDelay, Review: append([]time.Duration(nil), cfg.ReviewDelays...)}
}

// Archiver 完成后归档电子书，返回归档 ID
type Archiver interface {
	Archive(ctx context.Context, runID, ownerID string, book *entity.Book, log []entity.LogEntry) (string, error)
}

// CoverStore 将 data URI 封面转存到对象存储，返回可访问的 URL
type CoverStore interface {
	StoreCover(ctx context.Context, runID, dataURI string) (string, error)
}

// Option 控制器选项
type Option func(*Controller)

// WithCredential 设置模型调用凭证；未设置时除 Input 外的阶段都无法开始
func WithCredential(credential string) Option {
	return func(c *Controller) { c.credential = credential }
}

// WithOwner 设置运行所属用户
func WithOwner(ownerID string) Option {
	return func(c *Controller) { c.owner = ownerID }
}

// WithSettings 设置工作流参数
func WithSettings(s Settings) Option {
	return func(c *Controller) { c.settings = s }
}

// WithDelays 设置展示延迟
func WithDelays(d Delays) Option {
	return func(c *Controller) { c.delays = d }
}

// WithCallTimeout 设置单次网关调用超时，0 表示不限制
func WithCallTimeout(d time.Duration) Option {
	return func(c *Controller) { c.callTimeout = d }
}

// WithArchiver 设置完成后的归档器
func WithArchiver(a Archiver) Option {
	return func(c *Controller) { c.archiver = a }
}

// WithCoverStore 设置封面转存
func WithCoverStore(s CoverStore) Option {
	return func(c *Controller) { c.covers = s }
}

// WithClock 设置时钟（测试用）
func WithClock(now func() time.Time) Option {
	return func(c *Controller) { c.now = now }
}
