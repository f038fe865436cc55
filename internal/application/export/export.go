// Package export 将完成的电子书导出为 Markdown、HTML 与 EPUB
package export

import (
	"context"
	"fmt"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	goldmarkhtml "github.com/yuin/goldmark/renderer/html"

	"ebook-studio-api/internal/domain/entity"
	apperrors "ebook-studio-api/pkg/errors"
	"ebook-studio-api/pkg/metrics"
)

// Format 导出格式
type Format string

const (
	FormatMarkdown Format = "markdown"
	FormatHTML     Format = "html"
	FormatEPUB     Format = "epub"
)

// ParseFormat 解析导出格式，md 视为 markdown
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "markdown", "md":
		return FormatMarkdown, nil
	case "html":
		return FormatHTML, nil
	case "epub":
		return FormatEPUB, nil
	default:
		return "", apperrors.ErrValidationFailed.WithDetail("unsupported export format: " + s)
	}
}

// Artifact 导出产物
type Artifact struct {
	Format      Format
	Filename    string
	ContentType string
	Data        []byte
}

// Extension 文件扩展名
func (f Format) Extension() string {
	switch f {
	case FormatMarkdown:
		return "md"
	default:
		return string(f)
	}
}

// ContentType MIME 类型
func (f Format) ContentType() string {
	switch f {
	case FormatMarkdown:
		return "text/markdown; charset=utf-8"
	case FormatHTML:
		return "text/html; charset=utf-8"
	case FormatEPUB:
		return "application/epub+zip"
	default:
		return "application/octet-stream"
	}
}

// Exporter 导出器
type Exporter struct {
	covers   CoverResolver
	language string

	page  goldmark.Markdown
	xhtml goldmark.Markdown
}

// NewExporter 创建导出器；language 为书籍语言名称或 BCP 47 代码
func NewExporter(covers CoverResolver, language string) *Exporter {
	return &Exporter{
		covers:   covers,
		language: languageCode(language),
		page:     goldmark.New(goldmark.WithExtensions(extension.GFM)),
		xhtml: goldmark.New(
			goldmark.WithExtensions(extension.GFM),
			goldmark.WithRendererOptions(goldmarkhtml.WithXHTML()),
		),
	}
}

// Export 按格式导出；identifier 用作 EPUB 的唯一标识
func (e *Exporter) Export(ctx context.Context, book *entity.Book, format Format, identifier string) (*Artifact, error) {
	if book == nil {
		return nil, apperrors.ErrValidationFailed.WithDetail("book is empty")
	}

	var (
		data []byte
		err  error
	)
	switch format {
	case FormatMarkdown:
		data = Markdown(book)
	case FormatHTML:
		data, err = e.HTML(book)
	case FormatEPUB:
		data, err = e.EPUB(ctx, book, identifier)
	default:
		err = apperrors.ErrValidationFailed.WithDetail("unsupported export format: " + string(format))
	}
	if err != nil {
		metrics.ExportTotal.WithLabelValues(string(format), "error").Inc()
		if apperrors.IsAppError(err) {
			return nil, err
		}
		return nil, apperrors.Wrap(err, apperrors.CodeExportFailed, "export failed")
	}
	metrics.ExportTotal.WithLabelValues(string(format), "success").Inc()

	return &Artifact{
		Format:      format,
		Filename:    fmt.Sprintf("%s.%s", Filename(book.Title), format.Extension()),
		ContentType: format.ContentType(),
		Data:        data,
	}, nil
}

// Filename 由书名生成安全的文件名
func Filename(title string) string {
	name := strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':', '*', '?', '"', '<', '>', '|':
			return '_'
		}
		if r < 0x20 {
			return -1
		}
		return r
	}, strings.TrimSpace(title))
	if name == "" {
		return "ebook"
	}
	return name
}

func languageCode(language string) string {
	switch strings.ToLower(strings.TrimSpace(language)) {
	case "", "english", "en":
		return "en"
	case "thai", "th":
		return "th"
	case "chinese", "zh", "zh-cn":
		return "zh"
	case "japanese", "ja":
		return "ja"
	case "spanish", "es":
		return "es"
	case "french", "fr":
		return "fr"
	case "german", "de":
		return "de"
	default:
		return strings.ToLower(strings.TrimSpace(language))
	}
}
