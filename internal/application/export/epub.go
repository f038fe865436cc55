package export

import (
	"archive/zip"
	"bytes"
	"context"
	"fmt"
	"html"
	"text/template"

	"github.com/google/uuid"

	"ebook-studio-api/internal/domain/entity"
	"ebook-studio-api/pkg/logger"
)

var epubFuncs = template.FuncMap{"esc": html.EscapeString}

const containerXML = `<?xml version="1.0"?>
<container version="1.0" xmlns="urn:oasis:names:tc:opendocument:xmlns:container">
  <rootfiles>
    <rootfile full-path="OEBPS/content.opf" media-type="application/oebps-package+xml"/>
  </rootfiles>
</container>
`

const epubCSS = `body { font-family: Georgia, serif; line-height: 1.6; color: #333; font-size: 16px; }
h1, h2, h3 { color: #7e22ce; margin-top: 1em; margin-bottom: 0.5em; }
img { max-width: 100%; height: auto; display: block; margin: 1em auto; }
blockquote { border-left: 4px solid #a855f7; padding-left: 1em; color: #6b21a8; font-style: italic; margin: 1em 0; }
p { margin-bottom: 1em; }
`

var titleTemplate = template.Must(template.New("title").Funcs(epubFuncs).Parse(`<?xml version="1.0" encoding="utf-8"?>
<!DOCTYPE html>
<html xmlns="http://www.w3.org/1999/xhtml">
<head><title>{{esc .Title}}</title><link rel="stylesheet" type="text/css" href="style.css"/></head>
<body>
  <div style="text-align:center; margin-top: 50px;">
    {{- if .CoverFile}}
    <img src="{{.CoverFile}}" alt="Cover" style="max-height: 800px;"/>
    {{- end}}
    <h1>{{esc .Title}}</h1>
    <p>{{esc .Audience}}</p>
    <p><i>{{esc .Description}}</i></p>
  </div>
</body>
</html>
`))

var chapterTemplate = template.Must(template.New("chapter").Funcs(epubFuncs).Parse(`<?xml version="1.0" encoding="utf-8"?>
<!DOCTYPE html>
<html xmlns="http://www.w3.org/1999/xhtml">
<head><title>{{esc .Title}}</title><link rel="stylesheet" type="text/css" href="style.css"/></head>
<body>
  <h2>{{esc .Title}}</h2>
  <div>{{.Body}}</div>
</body>
</html>
`))

var tocTemplate = template.Must(template.New("toc").Funcs(epubFuncs).Parse(`<?xml version="1.0" encoding="UTF-8"?>
<ncx xmlns="http://www.daisy.org/z3986/2005/ncx/" version="2005-1">
<head><meta name="dtb:uid" content="{{esc .Identifier}}"/></head>
<docTitle><text>{{esc .Title}}</text></docTitle>
<navMap>
  <navPoint id="navPoint-0" playOrder="0"><navLabel><text>Title Page</text></navLabel><content src="title.xhtml"/></navPoint>
{{- range .Chapters}}
  <navPoint id="navPoint-{{.Number}}" playOrder="{{.Number}}"><navLabel><text>{{esc .Title}}</text></navLabel><content src="{{.File}}"/></navPoint>
{{- end}}
</navMap>
</ncx>
`))

var opfTemplate = template.Must(template.New("opf").Funcs(epubFuncs).Parse(`<?xml version="1.0" encoding="utf-8"?>
<package xmlns="http://www.idpf.org/2007/opf" unique-identifier="BookId" version="2.0">
  <metadata xmlns:dc="http://purl.org/dc/elements/1.1/">
    <dc:title>{{esc .Title}}</dc:title>
    <dc:language>{{esc .Lang}}</dc:language>
    <dc:identifier id="BookId">{{esc .Identifier}}</dc:identifier>
    {{- if .CoverFile}}
    <meta name="cover" content="cover-img"/>
    {{- end}}
  </metadata>
  <manifest>
    <item id="ncx" href="toc.ncx" media-type="application/x-dtbncx+xml"/>
    <item id="css" href="style.css" media-type="text/css"/>
    <item id="title" href="title.xhtml" media-type="application/xhtml+xml"/>
    {{- if .CoverFile}}
    <item id="cover-img" href="{{.CoverFile}}" media-type="{{.CoverMIME}}"/>
    {{- end}}
{{- range .Chapters}}
    <item id="chap{{.Number}}" href="{{.File}}" media-type="application/xhtml+xml"/>
{{- end}}
  </manifest>
  <spine toc="ncx">
    <itemref idref="title"/>
{{- range .Chapters}}
    <itemref idref="chap{{.Number}}"/>
{{- end}}
  </spine>
</package>
`))

type epubChapter struct {
	Number int
	File   string
	Title  string
	Body   string
}

type epubFile struct {
	name string
	tpl  *template.Template
	data any
	raw  []byte
}

type epubData struct {
	Title       string
	Audience    string
	Description string
	Lang        string
	Identifier  string
	CoverFile   string
	CoverMIME   string
	Chapters    []epubChapter
}

// EPUB 打包为 EPUB 2 电子书；封面无法获取时省略封面
func (e *Exporter) EPUB(ctx context.Context, book *entity.Book, identifier string) ([]byte, error) {
	if identifier == "" {
		identifier = uuid.NewString()
	}
	data := epubData{
		Title:       book.Title,
		Audience:    book.TargetAudience,
		Description: book.Description,
		Lang:        e.language,
		Identifier:  "urn:uuid:" + identifier,
	}

	var cover *CoverImage
	if book.CoverImage != "" && e.covers != nil {
		img, err := e.covers.Resolve(ctx, book.CoverImage)
		if err != nil {
			logger.Warn(ctx, "could not fetch cover image for epub", "error", err.Error())
		} else {
			cover = img
			data.CoverFile = "cover." + img.Extension()
			data.CoverMIME = img.MIMEType
		}
	}

	for i, ch := range book.Chapters {
		body, err := renderMarkdown(e.xhtml, ch.Content)
		if err != nil {
			return nil, err
		}
		data.Chapters = append(data.Chapters, epubChapter{
			Number: i + 1,
			File:   fmt.Sprintf("chapter-%d.xhtml", i+1),
			Title:  ch.Title,
			Body:   body,
		})
	}

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)

	// mimetype 必须是第一个条目且不压缩
	w, err := zw.CreateHeader(&zip.FileHeader{Name: "mimetype", Method: zip.Store})
	if err != nil {
		return nil, err
	}
	if _, err := w.Write([]byte("application/epub+zip")); err != nil {
		return nil, err
	}

	files := []epubFile{
		{name: "META-INF/container.xml", raw: []byte(containerXML)},
		{name: "OEBPS/style.css", raw: []byte(epubCSS)},
		{name: "OEBPS/title.xhtml", tpl: titleTemplate, data: data},
	}
	for _, ch := range data.Chapters {
		files = append(files, epubFile{name: "OEBPS/" + ch.File, tpl: chapterTemplate, data: ch})
	}
	files = append(files,
		epubFile{name: "OEBPS/toc.ncx", tpl: tocTemplate, data: data},
		epubFile{name: "OEBPS/content.opf", tpl: opfTemplate, data: data},
	)

	for _, f := range files {
		w, err := zw.Create(f.name)
		if err != nil {
			return nil, err
		}
		if f.tpl == nil {
			_, err = w.Write(f.raw)
		} else {
			err = f.tpl.Execute(w, f.data)
		}
		if err != nil {
			return nil, fmt.Errorf("write %s: %w", f.name, err)
		}
	}

	if cover != nil {
		w, err := zw.Create("OEBPS/" + data.CoverFile)
		if err != nil {
			return nil, err
		}
		if _, err := w.Write(cover.Data); err != nil {
			return nil, err
		}
	}

	if err := zw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
