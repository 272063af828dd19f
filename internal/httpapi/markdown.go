package httpapi

import (
	"bytes"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
)

var markdown = goldmark.New(goldmark.WithExtensions(extension.GFM))

// renderMarkdown turns an assistant message into HTML for clients that do
// not render markdown themselves. It returns "" if conversion fails.
func renderMarkdown(msg string) string {
	var buf bytes.Buffer
	if err := markdown.Convert([]byte(msg), &buf); err != nil {
		return ""
	}
	return buf.String()
}
