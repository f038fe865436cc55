package ebook

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"ebook-studio-api/internal/domain/entity"
	workflowport "ebook-studio-api/internal/workflow/port"
	"ebook-studio-api/pkg/logger"
	"ebook-studio-api/pkg/metrics"
	"ebook-studio-api/pkg/tracer"
)

const (
	fallbackBookTitle = "Untitled"
	fallbackAudience  = "General readers"
	fallbackTone      = "Professional & Authoritative"
)

// AdvanceWriting 按顺序为每个 pending 章节生成正文，同一时刻至多一个章节处于 generating。
// 单章失败只标记为 error，不中断后续章节；全部处理完后进入 Designing。
func (c *Controller) AdvanceWriting(ctx context.Context, epoch uint64) error {
	ctx, span := tracer.Start(ctx, "ebook.writing", trace.WithAttributes(attribute.String("run.id", c.id)))
	defer span.End()

	for {
		c.mu.Lock()
		if c.run.epoch != epoch || c.run.Stage != entity.StageWriting {
			c.mu.Unlock()
			return ErrSuperseded
		}
		idx := nextPending(c.run.Book)
		if idx < 0 {
			c.setStageLocked(entity.StageDesigning)
			c.mu.Unlock()
			return nil
		}

		book := c.run.Book
		ch := &book.Chapters[idx]
		ch.Status = entity.ChapterStatusGenerating
		chapterID := ch.ID
		label := chapterLabel(book, idx)
		c.appendLocked(entity.AgentWriter, label+": writing...")
		req := workflowport.ChapterRequest{
			BookTitle:    orDefault(book.Title, fallbackBookTitle),
			ChapterTitle: ch.Title,
			Audience:     orDefault(book.TargetAudience, fallbackAudience),
			Description:  book.Description,
			Tone:         orDefault(book.Tone, fallbackTone),
			AuthorBio:    book.AuthorBio,
			IsConclusion: ch.IsConclusion(),
		}
		c.mu.Unlock()

		start := c.now()
		callCtx, cancel := c.callContext(ctx)
		content, err := c.gateway.GenerateChapter(callCtx, req)
		cancel()
		metrics.ChapterGenerationDuration.Observe(c.now().Sub(start).Seconds())

		c.mu.Lock()
		if c.run.epoch != epoch {
			c.mu.Unlock()
			return ErrSuperseded
		}
		target := findChapter(c.run.Book, chapterID)
		if target != nil {
			if err != nil {
				target.Status = entity.ChapterStatusError
				c.appendLocked(entity.AgentWriter, "Error writing "+label)
				metrics.ChapterGenerationTotal.WithLabelValues("error").Inc()
				logger.Warn(ctx, "chapter generation failed", "chapter_id", chapterID, "error", err.Error())
			} else {
				target.Content = content
				target.Status = entity.ChapterStatusCompleted
				c.appendLocked(entity.AgentWriter, label+" finished")
				metrics.ChapterGenerationTotal.WithLabelValues("success").Inc()
			}
		}
		c.mu.Unlock()
	}
}

// Design 生成封面；失败时使用备用封面并直接进入 Reviewing
func (c *Controller) Design(ctx context.Context, epoch uint64) error {
	ctx, span := tracer.Start(ctx, "ebook.design", trace.WithAttributes(attribute.String("run.id", c.id)))
	defer span.End()

	c.mu.Lock()
	if c.run.epoch != epoch || c.run.Stage != entity.StageDesigning {
		c.mu.Unlock()
		return ErrSuperseded
	}
	book := c.run.Book
	c.appendLocked(entity.AgentDesigner, fmt.Sprintf("Designing the cover in %s style...", book.CoverStyle))
	req := workflowport.CoverRequest{Title: book.Title, Description: book.Description, Style: book.CoverStyle}
	c.mu.Unlock()

	callCtx, cancel := c.callContext(ctx)
	image, err := c.gateway.GenerateCoverImage(callCtx, req)
	cancel()
	if err == nil && strings.TrimSpace(image) == "" {
		err = fmt.Errorf("empty cover image")
	}
	if err == nil {
		image = c.storeCover(ctx, image)
	}

	c.mu.Lock()
	if c.run.epoch != epoch {
		c.mu.Unlock()
		return ErrSuperseded
	}
	if err != nil {
		c.run.Book.CoverImage = c.settings.FallbackCoverURL
		c.appendLocked(entity.AgentDesigner, "Could not generate the cover image, using a fallback image")
		c.setStageLocked(entity.StageReviewing)
		c.mu.Unlock()
		metrics.CoverGenerationTotal.WithLabelValues("fallback").Inc()
		logger.Warn(ctx, "cover generation failed", "error", err.Error())
		return nil
	}
	c.run.Book.CoverImage = image
	c.appendLocked(entity.AgentDesigner, "Cover design completed")
	c.mu.Unlock()
	metrics.CoverGenerationTotal.WithLabelValues("success").Inc()

	c.sleep(ctx, c.delays.CoverDisplay)

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.run.epoch != epoch {
		return ErrSuperseded
	}
	c.setStageLocked(entity.StageReviewing)
	return nil
}

// Review 执行质检步骤并进入 Completed，随后归档
func (c *Controller) Review(ctx context.Context, epoch uint64) error {
	ctx, span := tracer.Start(ctx, "ebook.review", trace.WithAttributes(attribute.String("run.id", c.id)))
	defer span.End()

	steps := []struct {
		messages []string
		delay    int
	}{
		{[]string{"QC: checking the quality of all content..."}, 0},
		{[]string{"QC: content is complete"}, 1},
		{[]string{"QC: formatting is ready", "All steps finished, ready for delivery"}, 2},
	}
	for _, step := range steps {
		c.mu.Lock()
		if c.run.epoch != epoch || c.run.Stage != entity.StageReviewing {
			c.mu.Unlock()
			return ErrSuperseded
		}
		for _, msg := range step.messages {
			c.appendLocked(entity.AgentReviewer, msg)
		}
		c.mu.Unlock()
		c.sleep(ctx, c.reviewDelay(step.delay))
	}

	c.mu.Lock()
	if c.run.epoch != epoch {
		c.mu.Unlock()
		return ErrSuperseded
	}
	c.setStageLocked(entity.StageCompleted)
	book := c.run.Book.Clone()
	entries := c.run.Log.Entries()
	c.mu.Unlock()

	c.archive(ctx, epoch, book, entries)
	return nil
}

func (c *Controller) reviewDelay(i int) time.Duration {
	if i < len(c.delays.Review) {
		return c.delays.Review[i]
	}
	return 0
}

func (c *Controller) storeCover(ctx context.Context, image string) string {
	if c.covers == nil || !strings.HasPrefix(image, "data:") {
		return image
	}
	url, err := c.covers.StoreCover(ctx, c.id, image)
	if err != nil {
		logger.Warn(ctx, "cover upload failed, keeping inline image", "error", err.Error())
		return image
	}
	return url
}

func (c *Controller) archive(ctx context.Context, epoch uint64, book *entity.Book, entries []entity.LogEntry) {
	if c.archiver == nil {
		return
	}
	bookID, err := c.archiver.Archive(ctx, c.id, c.owner, book, entries)
	if err != nil {
		logger.Error(ctx, "failed to archive book", err, "run_id", c.id)
		return
	}
	c.mu.Lock()
	if c.run.epoch == epoch {
		c.run.BookID = bookID
	}
	c.mu.Unlock()
}

func nextPending(book *entity.Book) int {
	for i, ch := range book.Chapters {
		if ch.Status == entity.ChapterStatusPending {
			return i
		}
	}
	return -1
}

func findChapter(book *entity.Book, id string) *entity.Chapter {
	for i := range book.Chapters {
		if book.Chapters[i].ID == id {
			return &book.Chapters[i]
		}
	}
	return nil
}

// chapterLabel 日志中的章节名称：按阅读编号，结语单独命名
func chapterLabel(book *entity.Book, index int) string {
	if n := book.ChapterNumber(index); n > 0 {
		return fmt.Sprintf("Chapter %d", n)
	}
	return "Conclusion"
}

func orDefault(v, fallback string) string {
	if strings.TrimSpace(v) == "" {
		return fallback
	}
	return v
}
