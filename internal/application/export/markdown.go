package export

import (
	"strings"

	"ebook-studio-api/internal/domain/entity"
)

// Markdown 将电子书渲染为单个 Markdown 文档，相同输入产生相同输出
func Markdown(book *entity.Book) []byte {
	var b strings.Builder
	b.WriteString("# " + book.Title + "\n\n")
	b.WriteString("> " + book.Description + "\n\n")
	b.WriteString("**Target audience:** " + book.TargetAudience + "\n\n")
	b.WriteString("---\n\n")

	for _, ch := range book.Chapters {
		b.WriteString("# " + ch.Title + "\n\n")
		b.WriteString(ch.Content + "\n\n")
		b.WriteString("---\n\n")
	}
	return []byte(b.String())
}
