package transform

import (
	"github.com/j4m-solutions/rudiweb/internal/htmldoc"
)

// textToHTML wraps plain text content in a <pre> block inside a full
// HTML document.
func textToHTML(rc *Context, _ []any, _ map[string]any) error {
	doc := htmldoc.New()
	pre := htmldoc.El("pre")
	pre.AppendChild(htmldoc.Text(string(rc.Body)))
	doc.AppendBodyNode(pre)
	return finishHTML(rc, doc)
}

// imageToHTML wraps an image file in an HTML page referencing it by
// docpath. The "alt" kwarg sets the alt text.
func imageToHTML(rc *Context, _ []any, kwargs map[string]any) error {
	doc := htmldoc.New()
	img := htmldoc.El("img", "src", rc.Docpath, "alt", stringKwarg(kwargs, "alt", rc.Docpath))
	doc.AppendBodyNode(img)
	return finishHTML(rc, doc)
}
