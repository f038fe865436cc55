// Package ebook 实现电子书生成工作流的状态机与编辑命令
package ebook

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"ebook-studio-api/internal/domain/entity"
	llmctx "ebook-studio-api/internal/domain/service"
	workflowport "ebook-studio-api/internal/workflow/port"
	apperrors "ebook-studio-api/pkg/errors"
	"ebook-studio-api/pkg/logger"
	"ebook-studio-api/pkg/metrics"
	"ebook-studio-api/pkg/tracer"
)

// DefaultCallTimeout 单次网关调用的默认超时
const DefaultCallTimeout = 2 * time.Minute

// ErrSuperseded 调用结果已被更新的操作取代
var ErrSuperseded = apperrors.New(apperrors.CodeStageConflict, "request superseded by a newer action")

// Controller 管理单次运行的工作流
type Controller struct {
	id      string
	owner   string
	gateway workflowport.Gateway

	credential  string
	settings    Settings
	delays      Delays
	callTimeout time.Duration
	archiver    Archiver
	covers      CoverStore
	now         func() time.Time

	mu  sync.Mutex
	run Run

	wg sync.WaitGroup
}

// NewController 创建控制器，初始阶段为 Input
func NewController(id string, gateway workflowport.Gateway, opts ...Option) *Controller {
	c := &Controller{
		id:          id,
		gateway:     gateway,
		settings:    DefaultSettings(),
		delays:      DefaultDelays(),
		callTimeout: DefaultCallTimeout,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.run = Run{Stage: entity.StageInput, Book: emptyBook(), UpdatedAt: c.now()}
	return c
}

// ID 运行 ID
func (c *Controller) ID() string { return c.id }

// Owner 运行所属用户
func (c *Controller) Owner() string { return c.owner }

// Stage 当前阶段
func (c *Controller) Stage() entity.Stage {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.run.Stage
}

// Snapshot 返回当前状态的深拷贝
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Snapshot{
		ID:        c.id,
		OwnerID:   c.owner,
		Stage:     c.run.Stage,
		Step:      c.run.Stage.Step(),
		Book:      c.run.Book.Clone(),
		LastError: c.run.LastError,
		BookID:    c.run.BookID,
		UpdatedAt: c.run.UpdatedAt,
	}
}

// Log 返回日志副本
func (c *Controller) Log() []entity.LogEntry {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.run.Log.Entries()
}

// SubmitTopic 提交主题并同步生成大纲
func (c *Controller) SubmitTopic(ctx context.Context, in TopicInput) error {
	epoch, topic, err := c.beginOutline(in, false)
	if err != nil {
		return err
	}
	return c.runOutline(ctx, epoch, topic)
}

// SubmitTopicAsync 校验并受理主题，大纲在后台生成
func (c *Controller) SubmitTopicAsync(ctx context.Context, in TopicInput) error {
	epoch, topic, err := c.beginOutline(in, false)
	if err != nil {
		return err
	}
	c.goRun(ctx, func(ctx context.Context) error { return c.runOutline(ctx, epoch, topic) })
	return nil
}

// Regenerate 以相同主题重新生成大纲，进行中的大纲调用结果将被丢弃
func (c *Controller) Regenerate(ctx context.Context) error {
	epoch, topic, err := c.beginOutline(TopicInput{}, true)
	if err != nil {
		return err
	}
	return c.runOutline(ctx, epoch, topic)
}

// RegenerateAsync Regenerate 的后台版本
func (c *Controller) RegenerateAsync(ctx context.Context) error {
	epoch, topic, err := c.beginOutline(TopicInput{}, true)
	if err != nil {
		return err
	}
	c.goRun(ctx, func(ctx context.Context) error { return c.runOutline(ctx, epoch, topic) })
	return nil
}

// Approve 批准大纲并依次执行写作、设计、审阅直至完成
func (c *Controller) Approve(ctx context.Context) error {
	epoch, err := c.beginProduction()
	if err != nil {
		return err
	}
	return c.produce(ctx, epoch)
}

// ApproveAsync Approve 的后台版本
func (c *Controller) ApproveAsync(ctx context.Context) error {
	epoch, err := c.beginProduction()
	if err != nil {
		return err
	}
	c.goRun(ctx, func(ctx context.Context) error { return c.produce(ctx, epoch) })
	return nil
}

// Restart 清空文档与日志并回到 Input，生成进行中时不可用
func (c *Controller) Restart() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.run.Stage.IsBusy() {
		return c.stageConflict("restart")
	}
	epoch := c.run.epoch + 1
	from := c.run.Stage
	c.run = Run{Stage: from, Book: emptyBook(), epoch: epoch}
	c.setStageLocked(entity.StageInput)
	return nil
}

// Wait 等待所有后台流程结束
func (c *Controller) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		c.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *Controller) beginOutline(in TopicInput, regenerate bool) (uint64, string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if regenerate {
		if c.run.Stage != entity.StageAwaitingApproval && c.run.Stage != entity.StageOutlinePending {
			return 0, "", c.stageConflict("regenerate")
		}
		in = c.run.Input
	} else {
		if c.run.Stage != entity.StageInput {
			return 0, "", c.stageConflict("submit topic")
		}
		normalized, err := normalizeTopicInput(in)
		if err != nil {
			return 0, "", err
		}
		in = normalized
	}
	if err := c.requireCredential(); err != nil {
		return 0, "", err
	}

	c.run.epoch++
	c.run.Input = in
	c.run.Book = emptyBook()
	c.run.Log = Log{}
	c.run.LastError = ""
	c.run.BookID = ""
	c.setStageLocked(entity.StageOutlinePending)
	c.appendLocked(entity.AgentStrategist, fmt.Sprintf("Starting project: %q", in.Topic))
	c.appendLocked(entity.AgentStrategist, "Analyzing the market and planning the outline...")
	return c.run.epoch, in.Topic, nil
}

func (c *Controller) runOutline(ctx context.Context, epoch uint64, topic string) error {
	ctx = c.logContext(ctx)
	ctx, span := tracer.Start(ctx, "ebook.outline", trace.WithAttributes(attribute.String("run.id", c.id)))
	defer span.End()

	callCtx, cancel := c.callContext(ctx)
	outline, err := c.gateway.GenerateOutline(callCtx, topic)
	cancel()

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.run.epoch != epoch {
		logger.Info(ctx, "discarding superseded outline result")
		return ErrSuperseded
	}
	if err == nil && (outline == nil || len(outline.Chapters) == 0) {
		err = apperrors.ErrGenerationFailed.WithDetail("outline has no chapters")
	}
	if err != nil {
		span.RecordError(err)
		msg := DescribeError(err)
		c.run.Book = emptyBook()
		c.run.LastError = msg
		c.appendLocked(entity.AgentStrategist, "Error: "+msg)
		c.setStageLocked(entity.StageInput)
		logger.Error(ctx, "outline generation failed", err)
		return err
	}

	c.run.Book = c.bookFromOutline(outline)
	c.appendLocked(entity.AgentStrategist, "Outline ready: "+c.run.Book.Title)
	c.appendLocked(entity.AgentStrategist, "Waiting for outline approval...")
	c.setStageLocked(entity.StageAwaitingApproval)
	return nil
}

func (c *Controller) bookFromOutline(o *workflowport.Outline) *entity.Book {
	limit := c.settings.MaxChapters - 1
	if limit < 1 {
		limit = 1
	}
	chapters := make([]entity.Chapter, 0, limit+1)
	for i, oc := range o.Chapters {
		if i >= limit {
			break
		}
		ch := entity.NewChapter(fmt.Sprintf("ch-%d", i), oc.Title)
		ch.Summary = oc.Summary
		chapters = append(chapters, ch)
	}
	chapters = append(chapters, entity.NewChapter(entity.ConclusionChapterID, c.settings.ConclusionTitle))

	in := c.run.Input
	return &entity.Book{
		Topic:          in.Topic,
		Title:          o.Title,
		TargetAudience: o.TargetAudience,
		Description:    o.Description,
		Tone:           in.Tone,
		CoverStyle:     in.CoverStyle,
		AuthorBio:      in.AuthorBio,
		Chapters:       chapters,
	}
}

func (c *Controller) beginProduction() (uint64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.run.Stage != entity.StageAwaitingApproval {
		return 0, c.stageConflict("approve")
	}
	if len(c.run.Book.Chapters) == 0 {
		return 0, apperrors.ErrValidationFailed.WithDetail("book has no chapters")
	}
	if err := c.requireCredential(); err != nil {
		return 0, err
	}
	c.run.epoch++
	c.run.LastError = ""
	c.setStageLocked(entity.StageWriting)
	return c.run.epoch, nil
}

func (c *Controller) produce(ctx context.Context, epoch uint64) error {
	ctx = c.logContext(ctx)
	if err := c.AdvanceWriting(ctx, epoch); err != nil {
		return err
	}
	if err := c.Design(ctx, epoch); err != nil {
		return err
	}
	return c.Review(ctx, epoch)
}

func (c *Controller) goRun(ctx context.Context, fn func(context.Context) error) {
	bg := context.WithoutCancel(ctx)
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		if err := fn(bg); err != nil && err != error(ErrSuperseded) {
			logger.Warn(c.logContext(bg), "background workflow step failed", "error", err.Error())
		}
	}()
}

func (c *Controller) requireCredential() error {
	if strings.TrimSpace(c.credential) == "" {
		return apperrors.ErrMissingCredential.WithDetail("provide an API key for the model provider")
	}
	return nil
}

func (c *Controller) callContext(ctx context.Context) (context.Context, context.CancelFunc) {
	ctx = llmctx.WithCredential(ctx, c.credential)
	if c.callTimeout > 0 {
		return context.WithTimeout(ctx, c.callTimeout)
	}
	return context.WithCancel(ctx)
}

func (c *Controller) logContext(ctx context.Context) context.Context {
	ctx = logger.WithContext(ctx, logger.RunIDKey, c.id)
	if c.owner != "" {
		ctx = logger.WithContext(ctx, logger.UserIDKey, c.owner)
	}
	return ctx
}

func (c *Controller) setStageLocked(to entity.Stage) {
	if c.run.Stage != to {
		metrics.WorkflowStageTransitions.WithLabelValues(string(c.run.Stage), string(to)).Inc()
	}
	c.run.Stage = to
	c.run.UpdatedAt = c.now()
}

func (c *Controller) appendLocked(role entity.AgentRole, message string) {
	at := c.now()
	c.run.Log.Append(at, role, message)
	c.run.UpdatedAt = at
}

func (c *Controller) stageConflict(action string) error {
	return apperrors.ErrStageConflict.WithDetail(fmt.Sprintf("cannot %s in stage %s", action, c.run.Stage))
}

func (c *Controller) sleep(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
	case <-ctx.Done():
	}
}

func normalizeTopicInput(in TopicInput) (TopicInput, error) {
	in.Topic = strings.TrimSpace(in.Topic)
	if in.Topic == "" {
		return in, apperrors.ErrValidationFailed.WithDetail("topic is required")
	}
	in.Tone = strings.TrimSpace(in.Tone)
	if in.Tone == "" {
		in.Tone = entity.DefaultTone
	} else if !entity.IsKnownTone(in.Tone) {
		return in, apperrors.ErrValidationFailed.WithDetail("unknown tone: " + in.Tone)
	}
	in.CoverStyle = strings.TrimSpace(in.CoverStyle)
	if in.CoverStyle == "" {
		in.CoverStyle = entity.DefaultCoverStyle
	} else if !entity.IsKnownCoverStyle(in.CoverStyle) {
		return in, apperrors.ErrValidationFailed.WithDetail("unknown cover style: " + in.CoverStyle)
	}
	in.AuthorBio = strings.TrimSpace(in.AuthorBio)
	return in, nil
}

// DescribeError 生成写入工作流日志与任务状态的错误描述
func DescribeError(err error) string {
	ae := apperrors.AsAppError(err)
	msg := ae.Message
	if ae.Detail != "" {
		msg += ": " + ae.Detail
	}
	if ae.Err != nil {
		msg += ": " + ae.Err.Error()
	}
	return msg
}
