package export

import (
	"bytes"
	"html/template"
	"strings"

	"ebook-studio-api/internal/domain/entity"
)

var pageTemplate = template.Must(template.New("page").Parse(`<!DOCTYPE html>
<html lang="{{.Lang}}">
<head>
<meta charset="UTF-8">
<meta name="viewport" content="width=device-width, initial-scale=1.0">
<title>{{.Title}}</title>
<style>
body { font-family: Georgia, 'Times New Roman', serif; max-width: 800px; margin: 0 auto; padding: 60px; background-color: #ffffff; font-size: 16px; color: #292524; }
img { max-width: 100%; height: auto; display: block; margin: 30px auto; border-radius: 8px; }
h1, h2, h3 { font-family: 'Helvetica Neue', Arial, sans-serif; font-weight: 700; }
p { margin-bottom: 1.6em; }
ul, ol { margin-bottom: 1.6em; padding-left: 24px; }
li { margin-bottom: 0.8em; }
blockquote { border-left: 5px solid #d8b4fe; color: #6b21a8; font-style: italic; background: #faf5ff; padding: 15px 20px; border-radius: 0 8px 8px 0; }
.cover { text-align: center; margin-bottom: 60px; }
.cover img { box-shadow: 0 10px 25px rgba(0,0,0,0.15); border-radius: 12px; }
.book-title { text-align: center; font-size: 3.5em; margin-bottom: 0.5em; color: #44403c; }
.audience { text-align: center; font-size: 1.2em; color: #78716c; margin-bottom: 3em; }
.description { text-align: center; font-style: italic; margin-bottom: 6em; padding: 40px; background: #faf5ff; border-radius: 16px; border: 1px solid #e9d5ff; }
.chapter { page-break-after: always; margin-bottom: 80px; }
.chapter h2 { font-size: 2.2em; border-bottom: 3px solid #9333ea; padding-bottom: 15px; margin-bottom: 30px; color: #581c87; }
.chapter-body { line-height: 1.9; }
@media print { body { max-width: 100%; padding: 0; } }
</style>
</head>
<body>
{{- if .Cover}}
<div class="cover"><img src="{{.Cover}}" alt="Cover"></div>
{{- end}}
<h1 class="book-title">{{.Title}}</h1>
<p class="audience">{{.Audience}}</p>
<div class="description">{{.Description}}</div>
{{- range .Chapters}}
<div class="chapter">
<h2>{{.Title}}</h2>
<div class="chapter-body">{{.Body}}</div>
</div>
{{- end}}
</body>
</html>
`))

type pageChapter struct {
	Title string
	Body  template.HTML
}

type pageData struct {
	Lang        string
	Title       string
	Audience    string
	Description string
	Cover       template.URL
	Chapters    []pageChapter
}

// HTML 渲染为自包含的样式化 HTML 页面
func (e *Exporter) HTML(book *entity.Book) ([]byte, error) {
	data := pageData{
		Lang:        e.language,
		Title:       book.Title,
		Audience:    book.TargetAudience,
		Description: book.Description,
		Cover:       coverURL(book.CoverImage),
	}
	for _, ch := range book.Chapters {
		body, err := renderMarkdown(e.page, ch.Content)
		if err != nil {
			return nil, err
		}
		data.Chapters = append(data.Chapters, pageChapter{Title: ch.Title, Body: template.HTML(body)})
	}

	var buf bytes.Buffer
	if err := pageTemplate.Execute(&buf, data); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// coverURL 仅放行 http(s) 与内联图片 data URI
func coverURL(src string) template.URL {
	s := strings.TrimSpace(src)
	lower := strings.ToLower(s)
	if strings.HasPrefix(lower, "https://") || strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "data:image/") {
		return template.URL(s)
	}
	return ""
}
