// Package htmldoc builds and edits HTML documents for the transformer
// chain. It is a thin layer over golang.org/x/net/html that always
// works on a normalized <html><head><body> tree.
package htmldoc

import (
	"bytes"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Node aliases html.Node so callers do not need a second import for
// tree surgery.
type Node = html.Node

// Doc is one HTML document with direct handles on head and body.
type Doc struct {
	root *html.Node
	head *html.Node
	body *html.Node
}

// New returns an empty document: <html><head></head><body></body></html>.
func New() *Doc {
	d, _ := Parse(nil)
	return d
}

// Parse reads b into a document. html.Parse normalizes fragments, so
// bare markup lands inside <body> of a complete tree.
func Parse(b []byte) (*Doc, error) {
	root, err := html.Parse(bytes.NewReader(b))
	if err != nil {
		return nil, err
	}
	d := &Doc{root: root}
	d.head = find(root, atom.Head)
	d.body = find(root, atom.Body)
	return d, nil
}

func find(n *html.Node, a atom.Atom) *html.Node {
	if n.Type == html.ElementNode && n.DataAtom == a {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if m := find(c, a); m != nil {
			return m
		}
	}
	return nil
}

// Fragment parses markup in body context and returns the top-level nodes.
func Fragment(s string) ([]*html.Node, error) {
	ctx := &html.Node{Type: html.ElementNode, Data: "body", DataAtom: atom.Body}
	return html.ParseFragment(strings.NewReader(s), ctx)
}

func (d *Doc) Head() *html.Node { return d.head }
func (d *Doc) Body() *html.Node { return d.body }

// AppendHead parses markup and appends it inside <head>.
func (d *Doc) AppendHead(fragment string) error {
	nodes, err := Fragment(fragment)
	if err != nil {
		return err
	}
	for _, n := range nodes {
		d.head.AppendChild(n)
	}
	return nil
}

// AppendBody parses markup and appends it inside <body>.
func (d *Doc) AppendBody(fragment string) error {
	nodes, err := Fragment(fragment)
	if err != nil {
		return err
	}
	for _, n := range nodes {
		d.body.AppendChild(n)
	}
	return nil
}

func (d *Doc) AppendBodyNode(n *html.Node) { d.body.AppendChild(n) }

// SetTitle replaces (or creates) the document title.
func (d *Doc) SetTitle(title string) {
	for c := d.head.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode && c.DataAtom == atom.Title {
			c.FirstChild = nil
			c.LastChild = nil
			c.AppendChild(Text(title))
			return
		}
	}
	t := El("title")
	t.AppendChild(Text(title))
	d.head.AppendChild(t)
}

// WrapBody detaches the current body children and replaces them with
// the node built from them.
func (d *Doc) WrapBody(build func(children []*html.Node) *html.Node) {
	var children []*html.Node
	for c := d.body.FirstChild; c != nil; c = c.NextSibling {
		children = append(children, c)
	}
	for _, c := range children {
		d.body.RemoveChild(c)
	}
	d.body.AppendChild(build(children))
}

// Walk visits every node in the body subtree, depth-first.
func (d *Doc) Walk(fn func(*html.Node)) {
	var visit func(n *html.Node)
	visit = func(n *html.Node) {
		fn(n)
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			visit(c)
		}
	}
	visit(d.body)
}

// Render serializes the full document.
func (d *Doc) Render() ([]byte, error) {
	var buf bytes.Buffer
	if err := html.Render(&buf, d.root); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// El builds an element node. attrs come in "key", "value" pairs.
func El(tag string, attrs ...string) *html.Node {
	n := &html.Node{
		Type:     html.ElementNode,
		Data:     tag,
		DataAtom: atom.Lookup([]byte(tag)),
	}
	for i := 0; i+1 < len(attrs); i += 2 {
		n.Attr = append(n.Attr, html.Attribute{Key: attrs[i], Val: attrs[i+1]})
	}
	return n
}

// Text builds a text node.
func Text(s string) *html.Node {
	return &html.Node{Type: html.TextNode, Data: s}
}

// SetAttr sets or replaces an attribute on n.
func SetAttr(n *html.Node, key, val string) {
	for i := range n.Attr {
		if n.Attr[i].Key == key {
			n.Attr[i].Val = val
			return
		}
	}
	n.Attr = append(n.Attr, html.Attribute{Key: key, Val: val})
}

// Attr returns the value of an attribute, or "".
func Attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

// HasClass reports whether n carries class among its class values.
func HasClass(n *html.Node, class string) bool {
	for _, c := range strings.Fields(Attr(n, "class")) {
		if c == class {
			return true
		}
	}
	return false
}

// AddClass appends class values to n, preserving existing ones.
func AddClass(n *html.Node, classes ...string) {
	existing := Attr(n, "class")
	have := map[string]bool{}
	for _, c := range strings.Fields(existing) {
		have[c] = true
	}
	out := strings.Fields(existing)
	for _, c := range classes {
		if !have[c] {
			out = append(out, c)
			have[c] = true
		}
	}
	SetAttr(n, "class", strings.Join(out, " "))
}
