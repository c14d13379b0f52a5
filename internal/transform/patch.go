package transform

import (
	"golang.org/x/net/html"

	"github.com/j4m-solutions/rudiweb/internal/htmldoc"
)

// admonitionKinds are the markdown admonition flavors that map to an
// alert-<kind> class, checked in order of likelihood.
var admonitionKinds = []string{
	"info", "note", "warning", "tip", "danger",
	"success", "primary", "secondary", "dark", "light",
}

// patchHTML retags plain (and markdown-originated) HTML for Bootstrap:
// tables get the striped table classes and admonition divs become
// alerts. The "passthroughs" kwarg lists extensions left untouched,
// for content already authored against Bootstrap (default [".bhtml"]).
func patchHTML(rc *Context, _ []any, kwargs map[string]any) error {
	for _, ext := range stringsKwarg(kwargs, "passthroughs", []string{".bhtml"}) {
		if rc.Ext == ext {
			return nil
		}
	}

	doc, err := htmldoc.Parse(rc.Body)
	if err != nil {
		return err
	}
	doc.Walk(func(n *htmldoc.Node) {
		if n.Type != html.ElementNode {
			return
		}
		switch n.Data {
		case "table":
			htmldoc.AddClass(n, "table", "table-striped", "table-hover")
		case "div":
			if !htmldoc.HasClass(n, "admonition") {
				return
			}
			for _, kind := range admonitionKinds {
				if htmldoc.HasClass(n, kind) {
					htmldoc.AddClass(n, "alert", "alert-"+kind)
					break
				}
			}
			htmldoc.SetAttr(n, "role", "alert")
		}
	})
	return finishHTML(rc, doc)
}
