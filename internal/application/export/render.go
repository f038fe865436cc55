package export

import (
	"bytes"

	"github.com/yuin/goldmark"
)

func renderMarkdown(md goldmark.Markdown, source string) (string, error) {
	var buf bytes.Buffer
	if err := md.Convert([]byte(source), &buf); err != nil {
		return "", err
	}
	return buf.String(), nil
}
