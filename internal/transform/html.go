package transform

import (
	"github.com/j4m-solutions/rudiweb/internal/htmldoc"
)

// finishHTML serializes doc into the chain context and marks the
// content as HTML.
func finishHTML(rc *Context, doc *htmldoc.Doc) error {
	b, err := doc.Render()
	if err != nil {
		return err
	}
	rc.Body = b
	rc.ContentType = "text/html"
	return nil
}

// htmlToHTML reparses HTML content into a normalized document so later
// steps always see a full <html><head><body> tree.
func htmlToHTML(rc *Context, _ []any, _ map[string]any) error {
	doc, err := htmldoc.Parse(rc.Body)
	if err != nil {
		return err
	}
	return finishHTML(rc, doc)
}

// addHTMLHead appends markup to the document head. The markup comes
// from the first positional argument or the "text" kwarg.
func addHTMLHead(rc *Context, args []any, kwargs map[string]any) error {
	text, ok := stringArg(args, 0)
	if !ok {
		text = stringKwarg(kwargs, "text", "")
	}
	if text == "" {
		return nil
	}
	doc, err := htmldoc.Parse(rc.Body)
	if err != nil {
		return err
	}
	if err := doc.AppendHead(text); err != nil {
		return err
	}
	return finishHTML(rc, doc)
}

// addHTMLTag appends one element to the head or body. Kwargs: "tag"
// (required), "dest" ("head" or "body", default "head"), plus any
// other kwarg becomes an attribute.
func addHTMLTag(rc *Context, _ []any, kwargs map[string]any) error {
	tag := stringKwarg(kwargs, "tag", "")
	if tag == "" {
		return nil
	}
	doc, err := htmldoc.Parse(rc.Body)
	if err != nil {
		return err
	}
	n := htmldoc.El(tag)
	for k, v := range kwargs {
		if k == "tag" || k == "dest" {
			continue
		}
		if s, ok := v.(string); ok {
			htmldoc.SetAttr(n, k, s)
		}
	}
	if stringKwarg(kwargs, "dest", "head") == "body" {
		doc.Body().AppendChild(n)
	} else {
		doc.Head().AppendChild(n)
	}
	return finishHTML(rc, doc)
}

// wrapContainer wraps the body children in a <div>. The "class" kwarg
// sets the container class (default "container").
func wrapContainer(rc *Context, _ []any, kwargs map[string]any) error {
	class := stringKwarg(kwargs, "class", "container")
	doc, err := htmldoc.Parse(rc.Body)
	if err != nil {
		return err
	}
	doc.WrapBody(func(children []*htmldoc.Node) *htmldoc.Node {
		div := htmldoc.El("div", "class", class)
		for _, c := range children {
			div.AppendChild(c)
		}
		return div
	})
	return finishHTML(rc, doc)
}
