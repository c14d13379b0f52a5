package transform

import (
	"errors"
	"path"

	"github.com/j4m-solutions/rudiweb/internal/content"
	"github.com/j4m-solutions/rudiweb/internal/htmldoc"
)

// decorate frames a page with the site's shared includes: top and
// navbar prepended to the body, footer and bottom appended. Includes
// live under the internal tree; missing ones are skipped.
func decorate(rc *Context, _ []any, kwargs map[string]any) error {
	base := stringKwarg(kwargs, "includes", content.InternalPrefix+"includes")

	doc, err := htmldoc.Parse(rc.Body)
	if err != nil {
		return err
	}

	var head []*htmldoc.Node
	for _, name := range []string{"top.html", "navbar.html"} {
		nodes, err := rc.include(path.Join(base, name))
		if err != nil {
			return err
		}
		head = append(head, nodes...)
	}
	for i := len(head) - 1; i >= 0; i-- {
		n := head[i]
		if first := doc.Body().FirstChild; first != nil {
			doc.Body().InsertBefore(n, first)
		} else {
			doc.Body().AppendChild(n)
		}
	}

	for _, name := range []string{"footer.html", "bottom.html"} {
		nodes, err := rc.include(path.Join(base, name))
		if err != nil {
			return err
		}
		for _, n := range nodes {
			doc.Body().AppendChild(n)
		}
	}
	return finishHTML(rc, doc)
}

// include loads one internal include and parses it as a body fragment.
// A missing include yields no nodes and no error.
func (rc *Context) include(docpath string) ([]*htmldoc.Node, error) {
	t, err := rc.Site.Locate(docpath)
	if err != nil {
		if errors.Is(err, content.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	f, err := rc.Site.Load(rc.Request.Context(), t, content.LoadOptions{Request: rc.Request})
	if err != nil {
		return nil, err
	}
	return htmldoc.Fragment(string(f.Body))
}
