package transform

import (
	"bytes"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/renderer/html"

	"github.com/j4m-solutions/rudiweb/internal/htmldoc"
)

var markdown = goldmark.New(
	goldmark.WithExtensions(extension.GFM),
	goldmark.WithRendererOptions(html.WithUnsafe()),
)

// markdownToHTML converts markdown content into a full HTML document.
func markdownToHTML(rc *Context, _ []any, _ map[string]any) error {
	var buf bytes.Buffer
	if err := markdown.Convert(rc.Body, &buf); err != nil {
		return err
	}
	doc := htmldoc.New()
	if err := doc.AppendBody(buf.String()); err != nil {
		return err
	}
	return finishHTML(rc, doc)
}
