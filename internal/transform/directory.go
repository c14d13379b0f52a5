package transform

import (
	"os"
	"path"
	"path/filepath"
	"sort"

	"github.com/j4m-solutions/rudiweb/internal/htmldoc"
)

// directoryToHTML renders a listing of the directory holding the
// resolved file. Entries are linked relative to the request docpath.
func directoryToHTML(rc *Context, _ []any, _ map[string]any) error {
	dir := filepath.Dir(rc.Path)
	docdir := path.Dir(rc.Docpath)

	entries, err := os.ReadDir(dir)
	if err != nil {
		return err
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })

	doc := htmldoc.New()
	doc.SetTitle(docdir)
	h1 := htmldoc.El("h1")
	h1.AppendChild(htmldoc.Text(docdir))
	doc.AppendBodyNode(h1)

	ul := htmldoc.El("ul")
	for _, e := range entries {
		name := e.Name()
		href := path.Join(docdir, name)
		if e.IsDir() {
			name += "/"
			href += "/"
		}
		a := htmldoc.El("a", "href", href)
		a.AppendChild(htmldoc.Text(name))
		li := htmldoc.El("li")
		li.AppendChild(a)
		ul.AppendChild(li)
	}
	doc.AppendBodyNode(ul)
	return finishHTML(rc, doc)
}
