// Package transform runs content transformer chains. A chain is the
// space's pre steps, then the steps registered for the file extension,
// then the post steps; execution is fail-fast.
package transform

import (
	"fmt"
	"net/http"
	"sort"

	"github.com/j4m-solutions/rudiweb/internal/content"
)

// Func is one transformer. It mutates rc in place and returns an error
// to abort the chain.
type Func func(rc *Context, args []any, kwargs map[string]any) error

// Context carries one response through the chain.
type Context struct {
	Site    *content.Site
	Request *http.Request

	// Docpath is the request docpath after index-file upgrade.
	Docpath  string
	Path     string
	RealPath string
	Ext      string

	Body        []byte
	ContentType string
	Executed    bool
}

// NewContext builds a chain context from a loaded file.
func NewContext(site *content.Site, r *http.Request, f *content.ResolvedFile, realPath string) *Context {
	return &Context{
		Site:        site,
		Request:     r,
		Docpath:     f.Docpath,
		Path:        f.Path,
		RealPath:    realPath,
		Ext:         f.Ext,
		Body:        f.Body,
		ContentType: f.ContentType,
		Executed:    f.Executed,
	}
}

// Step is one configured transformer invocation.
type Step struct {
	Name   string
	Args   []any
	Kwargs map[string]any

	fn Func
}

// NewStep resolves name against the builtin registry. Unknown names
// are a configuration error.
func NewStep(name string, args []any, kwargs map[string]any) (Step, error) {
	fn, ok := builtins[name]
	if !ok {
		return Step{}, fmt.Errorf("unknown transformer %q", name)
	}
	return Step{Name: name, Args: args, Kwargs: kwargs, fn: fn}, nil
}

// Chains holds a space's transformer configuration.
type Chains struct {
	Pre   []Step
	Post  []Step
	ByExt map[string][]Step
}

// For returns the effective chain for one file extension.
func (c Chains) For(ext string) []Step {
	n := len(c.Pre) + len(c.ByExt[ext]) + len(c.Post)
	if n == 0 {
		return nil
	}
	steps := make([]Step, 0, n)
	steps = append(steps, c.Pre...)
	steps = append(steps, c.ByExt[ext]...)
	steps = append(steps, c.Post...)
	return steps
}

// StepError reports which transformer aborted the chain.
type StepError struct {
	Transformer string
	Err         error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("transformer %s: %v", e.Transformer, e.Err)
}

func (e *StepError) Unwrap() error { return e.Err }

// Run executes steps in order, stopping at the first failure.
func Run(rc *Context, steps []Step) error {
	for _, s := range steps {
		if err := s.fn(rc, s.Args, s.Kwargs); err != nil {
			return &StepError{Transformer: s.Name, Err: err}
		}
	}
	return nil
}

var builtins = map[string]Func{
	"addhtmlhead":    addHTMLHead,
	"addhtmltag":     addHTMLTag,
	"decorate":       decorate,
	"directory2html": directoryToHTML,
	"html2html":      htmlToHTML,
	"image2html":     imageToHTML,
	"markdown2html":  markdownToHTML,
	"patchhtml":      patchHTML,
	"txt2html":       textToHTML,
	"wrapcontainer":  wrapContainer,
}

// Names lists the registered transformers, sorted, for diagnostics.
func Names() []string {
	names := make([]string, 0, len(builtins))
	for n := range builtins {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

func stringKwarg(kwargs map[string]any, key, fallback string) string {
	if v, ok := kwargs[key]; ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return fallback
}

// stringsKwarg reads a list-of-strings kwarg, as YAML sequences decode.
func stringsKwarg(kwargs map[string]any, key string, fallback []string) []string {
	v, ok := kwargs[key]
	if !ok {
		return fallback
	}
	items, ok := v.([]any)
	if !ok {
		return fallback
	}
	out := make([]string, 0, len(items))
	for _, it := range items {
		if s, ok := it.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

func stringArg(args []any, i int) (string, bool) {
	if i >= len(args) {
		return "", false
	}
	s, ok := args[i].(string)
	return s, ok
}
