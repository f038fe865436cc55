package ebook

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"ebook-studio-api/internal/domain/entity"
	workflowport "ebook-studio-api/internal/workflow/port"
	apperrors "ebook-studio-api/pkg/errors"
)

// EditMode 文本编辑模式
type EditMode string

const (
	EditModeGrammar  EditMode = "grammar"
	EditModeRephrase EditMode = "rephrase"
	EditModeTone     EditMode = "tone"
	EditModeCustom   EditMode = "custom"
)

// EditInput 文本编辑请求；Mode 为 custom 时使用 Instruction
type EditInput struct {
	Text        string   `json:"text"`
	Mode        EditMode `json:"mode"`
	Instruction string   `json:"instruction"`
}

// StyleUpdate 风格更新，nil 字段保持不变
type StyleUpdate struct {
	Tone       *string `json:"tone"`
	CoverStyle *string `json:"cover_style"`
	AuthorBio  *string `json:"author_bio"`
}

// RenameChapter 修改章节标题
func (c *Controller) RenameChapter(index int, title string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.run.Stage != entity.StageAwaitingApproval && c.run.Stage != entity.StageCompleted {
		return c.stageConflict("rename chapter")
	}
	if err := c.checkIndexLocked(index); err != nil {
		return err
	}
	c.run.Book.Chapters[index].Title = title
	c.touchLocked()
	return nil
}

// AddChapter 在结语前插入占位章节；已达上限时不做任何修改并返回 false
func (c *Controller) AddChapter() (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.run.Stage != entity.StageAwaitingApproval {
		return false, c.stageConflict("add chapter")
	}
	book := c.run.Book
	if len(book.Chapters) >= c.settings.MaxChapters {
		return false, nil
	}
	title := fmt.Sprintf(c.settings.PlaceholderTitle, len(book.Chapters))
	book.InsertChapter(entity.NewChapter("new-"+uuid.NewString(), title))
	c.touchLocked()
	return true, nil
}

// RemoveChapter 删除章节；仅剩一章或目标为结语时不做修改并返回 false
func (c *Controller) RemoveChapter(index int) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.run.Stage != entity.StageAwaitingApproval {
		return false, c.stageConflict("remove chapter")
	}
	if err := c.checkIndexLocked(index); err != nil {
		return false, err
	}
	book := c.run.Book
	if len(book.Chapters) <= 1 || book.Chapters[index].IsConclusion() {
		return false, nil
	}
	book.RemoveChapter(index)
	c.touchLocked()
	return true, nil
}

// MoveChapter 调整章节顺序；结语不可移动，其他章节也不能移到结语之后
func (c *Controller) MoveChapter(from, to int) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.run.Stage != entity.StageAwaitingApproval {
		return false, c.stageConflict("move chapter")
	}
	if err := c.checkIndexLocked(from); err != nil {
		return false, err
	}
	if err := c.checkIndexLocked(to); err != nil {
		return false, err
	}
	book := c.run.Book
	if from == to || book.Chapters[from].IsConclusion() {
		return false, nil
	}
	if ci := book.ConclusionIndex(); ci >= 0 && to >= ci {
		return false, nil
	}
	book.MoveChapter(from, to)
	c.touchLocked()
	return true, nil
}

// UpdateChapterContent 完成后手动修改章节正文
func (c *Controller) UpdateChapterContent(index int, content string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.run.Stage != entity.StageCompleted {
		return c.stageConflict("update chapter content")
	}
	if err := c.checkIndexLocked(index); err != nil {
		return err
	}
	c.run.Book.Chapters[index].Content = content
	c.touchLocked()
	return nil
}

// UpdateStyle 在审批大纲时调整语气、封面风格与作者简介
func (c *Controller) UpdateStyle(u StyleUpdate) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.run.Stage != entity.StageAwaitingApproval {
		return c.stageConflict("update style")
	}
	book := c.run.Book
	tone, style := book.Tone, book.CoverStyle
	if u.Tone != nil {
		tone = strings.TrimSpace(*u.Tone)
		if !entity.IsKnownTone(tone) {
			return apperrors.ErrValidationFailed.WithDetail("unknown tone: " + tone)
		}
	}
	if u.CoverStyle != nil {
		style = strings.TrimSpace(*u.CoverStyle)
		if !entity.IsKnownCoverStyle(style) {
			return apperrors.ErrValidationFailed.WithDetail("unknown cover style: " + style)
		}
	}

	book.Tone, c.run.Input.Tone = tone, tone
	book.CoverStyle, c.run.Input.CoverStyle = style, style
	if u.AuthorBio != nil {
		book.AuthorBio = strings.TrimSpace(*u.AuthorBio)
		c.run.Input.AuthorBio = book.AuthorBio
	}
	c.touchLocked()
	return nil
}

// EditText 按模式改写一段文本，不修改文档；调用方决定是否写回
func (c *Controller) EditText(ctx context.Context, in EditInput) (string, error) {
	c.mu.Lock()
	if c.run.Stage != entity.StageCompleted {
		err := c.stageConflict("edit text")
		c.mu.Unlock()
		return "", err
	}
	tone := c.run.Book.Tone
	audience := c.run.Book.TargetAudience
	c.mu.Unlock()

	if strings.TrimSpace(in.Text) == "" {
		return "", apperrors.ErrValidationFailed.WithDetail("text is required")
	}
	instruction, err := editInstruction(in, tone)
	if err != nil {
		return "", err
	}
	if err := c.requireCredential(); err != nil {
		return "", err
	}

	callCtx, cancel := c.callContext(c.logContext(ctx))
	defer cancel()
	return c.gateway.EditText(callCtx, workflowport.EditRequest{
		Original:    in.Text,
		Instruction: instruction,
		Tone:        tone,
		Audience:    audience,
	})
}

func editInstruction(in EditInput, tone string) (string, error) {
	switch in.Mode {
	case EditModeGrammar:
		return "Correct grammar, spelling, and punctuation errors. Ensure sentence structure is grammatically sound.", nil
	case EditModeRephrase:
		return "Rephrase this text for better clarity, flow, and readability. Make it easier to understand.", nil
	case EditModeTone:
		return fmt.Sprintf("Rewrite this text to strictly match the requested tone: %q. Ensure consistency in style.", orDefault(tone, entity.DefaultTone)), nil
	case EditModeCustom, "":
		instruction := strings.TrimSpace(in.Instruction)
		if instruction == "" {
			return "", apperrors.ErrValidationFailed.WithDetail("instruction is required")
		}
		return instruction, nil
	default:
		return "", apperrors.ErrValidationFailed.WithDetail("unknown edit mode: " + string(in.Mode))
	}
}

func (c *Controller) checkIndexLocked(index int) error {
	if index < 0 || index >= len(c.run.Book.Chapters) {
		return apperrors.ErrValidationFailed.WithDetail(fmt.Sprintf("chapter index %d out of range", index))
	}
	return nil
}

func (c *Controller) touchLocked() {
	c.run.UpdatedAt = c.now()
}
