// Package space maps request docpaths to serving spaces. A space
// bundles a handling kind, content-type overrides, and a transformer
// configuration; the registry dispatches by pattern in registration
// order, first match wins.
package space

import (
	"errors"
	"fmt"
	"regexp"

	"github.com/j4m-solutions/rudiweb/internal/transform"
)

// Space kinds. Asis serves loaded bytes with cache validators; HTML
// runs the transformer chain and is never cached.
const (
	KindAsis = "asis"
	KindHTML = "html"
)

// ErrNoSpaceMatched reports a docpath no registered space claims.
var ErrNoSpaceMatched = errors.New("no space matched")

// StepSpec is one transformer invocation as configured.
type StepSpec struct {
	Function string
	Args     []any
	Kwargs   map[string]any
}

// Spec is the configuration for one space.
type Spec struct {
	Kind     string
	Patterns []string
	Types    map[string]string
	Pre      []StepSpec
	Post     []StepSpec
	ByExt    map[string][]StepSpec
}

// Space is one compiled serving space.
type Space struct {
	Name   string
	Kind   string
	Types  map[string]string
	Chains transform.Chains

	patterns []*regexp.Regexp
}

// Match reports whether docpath belongs to this space. Patterns match
// the whole docpath, not a substring.
func (s *Space) Match(docpath string) bool {
	for _, re := range s.patterns {
		if re.MatchString(docpath) {
			return true
		}
	}
	return false
}

// Registry dispatches docpaths to spaces in registration order.
type Registry struct {
	spaces []*Space
}

// NewRegistry compiles specs in the given order. Every spec must be
// named in order exactly once; compilation is fail-fast so a bad
// pattern or unknown transformer surfaces at startup.
func NewRegistry(order []string, specs map[string]Spec) (*Registry, error) {
	if len(order) != len(specs) {
		return nil, fmt.Errorf("space order lists %d spaces, config defines %d", len(order), len(specs))
	}
	r := &Registry{spaces: make([]*Space, 0, len(specs))}
	seen := make(map[string]bool, len(order))
	for _, name := range order {
		if seen[name] {
			return nil, fmt.Errorf("space %q listed twice in order", name)
		}
		seen[name] = true
		spec, ok := specs[name]
		if !ok {
			return nil, fmt.Errorf("space order names %q but it is not defined", name)
		}
		sp, err := newSpace(name, spec)
		if err != nil {
			return nil, fmt.Errorf("space %q: %w", name, err)
		}
		r.spaces = append(r.spaces, sp)
	}
	return r, nil
}

func newSpace(name string, spec Spec) (*Space, error) {
	kind := spec.Kind
	if kind == "" {
		kind = KindAsis
	}
	if kind != KindAsis && kind != KindHTML {
		return nil, fmt.Errorf("unknown kind %q", kind)
	}
	if len(spec.Patterns) == 0 {
		return nil, errors.New("at least one pattern required")
	}

	sp := &Space{
		Name:  name,
		Kind:  kind,
		Types: spec.Types,
	}
	for _, pat := range spec.Patterns {
		re, err := regexp.Compile(`\A(?:` + pat + `)\z`)
		if err != nil {
			return nil, fmt.Errorf("pattern %q: %w", pat, err)
		}
		sp.patterns = append(sp.patterns, re)
	}

	var err error
	if sp.Chains.Pre, err = newSteps(spec.Pre); err != nil {
		return nil, err
	}
	if sp.Chains.Post, err = newSteps(spec.Post); err != nil {
		return nil, err
	}
	if len(spec.ByExt) > 0 {
		sp.Chains.ByExt = make(map[string][]transform.Step, len(spec.ByExt))
		for ext, specs := range spec.ByExt {
			steps, err := newSteps(specs)
			if err != nil {
				return nil, fmt.Errorf("extension %q: %w", ext, err)
			}
			sp.Chains.ByExt[ext] = steps
		}
	}
	return sp, nil
}

func newSteps(specs []StepSpec) ([]transform.Step, error) {
	if len(specs) == 0 {
		return nil, nil
	}
	steps := make([]transform.Step, 0, len(specs))
	for _, ss := range specs {
		step, err := transform.NewStep(ss.Function, ss.Args, ss.Kwargs)
		if err != nil {
			return nil, err
		}
		steps = append(steps, step)
	}
	return steps, nil
}

// Match returns the first space claiming docpath.
func (r *Registry) Match(docpath string) (*Space, error) {
	for _, sp := range r.spaces {
		if sp.Match(docpath) {
			return sp, nil
		}
	}
	return nil, ErrNoSpaceMatched
}

// Spaces returns the registered spaces in dispatch order.
func (r *Registry) Spaces() []*Space { return r.spaces }
