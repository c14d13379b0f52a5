package cfg

import (
	"bytes"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/j4m-solutions/rudiweb/internal/access"
	"github.com/j4m-solutions/rudiweb/internal/content"
	"github.com/j4m-solutions/rudiweb/internal/space"
)

// File is the YAML site configuration.
type File struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`

	SiteRoot     string   `yaml:"site-root"`
	DocumentRoot string   `yaml:"document-root"`
	RudiRoot     string   `yaml:"rudi-root"`
	IndexFiles   []string `yaml:"index-files"`

	CacheMaxAge int `yaml:"cache-max-age"`

	RequireAuthorization   bool              `yaml:"require-authorization"`
	CreateEphemeralAccount bool              `yaml:"create-ephemeral-account"`
	Accounts               map[string]string `yaml:"accounts"`

	SpaceOrder []string             `yaml:"space-order"`
	Spaces     map[string]SpaceFile `yaml:"spaces"`
}

// SpaceFile is one space entry. Transformer chains are keyed "pre",
// "post", or a file extension like ".md".
type SpaceFile struct {
	Type         string                `yaml:"type"`
	Regexps      []string              `yaml:"regexps"`
	Extensions   map[string]string     `yaml:"extensions"`
	Transformers map[string][]StepFile `yaml:"transformers"`
}

// StepFile is one configured transformer invocation.
type StepFile struct {
	Function string         `yaml:"function"`
	Args     []any          `yaml:"args"`
	Kwargs   map[string]any `yaml:"kwargs"`
}

// Defaults returns a File with all defaults applied; Load decodes on
// top of it so absent keys keep their default.
func Defaults() *File {
	return &File{
		Host:        "localhost",
		Port:        8090,
		SiteRoot:    "site",
		IndexFiles:  []string{"index.html"},
		CacheMaxAge: 120,
	}
}

// Load reads and decodes the site file. Unknown keys are an error so
// typos surface at startup.
func Load(path string) (*File, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read site file: %w", err)
	}
	f := Defaults()
	dec := yaml.NewDecoder(bytes.NewReader(b))
	dec.KnownFields(true)
	if err := dec.Decode(f); err != nil && err != io.EOF {
		return nil, fmt.Errorf("parse site file %s: %w", path, err)
	}
	f.applyDerivedDefaults()
	return f, nil
}

func (f *File) applyDerivedDefaults() {
	if f.DocumentRoot == "" {
		f.DocumentRoot = filepath.Join(f.SiteRoot, "html")
	}
	if f.RudiRoot == "" {
		f.RudiRoot = filepath.Join(f.SiteRoot, "rudi")
	}
	if len(f.IndexFiles) == 0 {
		f.IndexFiles = []string{"index.html"}
	}
}

// MergeFlags folds explicitly set flags (CLI or env) over the site
// file. Call after flag parsing and FillFromEnv.
func (f *File) MergeFlags(fs *flag.FlagSet, app *App) {
	explicit := make(map[string]bool)
	fs.Visit(func(fl *flag.Flag) { explicit[fl.Name] = true })

	if explicit["host"] {
		f.Host = app.Host
	}
	if explicit["port"] {
		f.Port = app.Port
	}
	if explicit["site-root"] && app.SiteRoot != "" {
		f.SiteRoot = app.SiteRoot
		f.DocumentRoot = filepath.Join(f.SiteRoot, "html")
		f.RudiRoot = filepath.Join(f.SiteRoot, "rudi")
	}
	if explicit["document-root"] && app.DocumentRoot != "" {
		f.DocumentRoot = app.DocumentRoot
	}
	if explicit["rudi-root"] && app.RudiRoot != "" {
		f.RudiRoot = app.RudiRoot
	}
	if explicit["cache-max-age"] {
		f.CacheMaxAge = app.CacheMaxAge
	}
	if explicit["require-authorization"] {
		f.RequireAuthorization = app.RequireAuthorization
	}
	if explicit["create-ephemeral-account"] {
		f.CreateEphemeralAccount = app.CreateEphemeralAccount
	}
}

// ValidateSite checks the site-level fields. Space configuration is
// validated by Registry, which compiles it.
func (f *File) ValidateSite() error {
	var errs []error

	if f.Port < 1 || f.Port > 65535 {
		errs = append(errs, fmt.Errorf("invalid port %d (must be 1..65535)", f.Port))
	}
	if f.DocumentRoot == "" {
		errs = append(errs, errors.New("document-root is required"))
	}
	if f.CacheMaxAge < 0 {
		errs = append(errs, fmt.Errorf("cache-max-age must be >= 0 (got %d)", f.CacheMaxAge))
	}
	if len(f.Spaces) == 0 {
		errs = append(errs, errors.New("at least one space is required"))
	}
	if len(f.SpaceOrder) == 0 && len(f.Spaces) > 1 {
		errs = append(errs, errors.New("space-order is required when more than one space is defined"))
	}
	if f.RequireAuthorization && len(f.Accounts) == 0 && !f.CreateEphemeralAccount {
		errs = append(errs, errors.New("require-authorization needs accounts or create-ephemeral-account"))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}

// Site builds the content site from the file.
func (f *File) Site() *content.Site {
	return &content.Site{
		SiteRoot:     f.SiteRoot,
		DocumentRoot: f.DocumentRoot,
		RudiRoot:     f.RudiRoot,
		IndexFiles:   f.IndexFiles,
		ServerName:   f.Host,
		ServerPort:   f.Port,
	}
}

// Registry compiles the space configuration in space-order. A single
// space needs no order entry.
func (f *File) Registry() (*space.Registry, error) {
	order := f.SpaceOrder
	if len(order) == 0 && len(f.Spaces) == 1 {
		for name := range f.Spaces {
			order = []string{name}
		}
	}

	specs := make(map[string]space.Spec, len(f.Spaces))
	for name, sf := range f.Spaces {
		spec := space.Spec{
			Kind:     sf.Type,
			Patterns: sf.Regexps,
			Types:    sf.Extensions,
		}
		for key, steps := range sf.Transformers {
			converted := make([]space.StepSpec, 0, len(steps))
			for _, s := range steps {
				converted = append(converted, space.StepSpec{
					Function: s.Function,
					Args:     s.Args,
					Kwargs:   s.Kwargs,
				})
			}
			switch key {
			case "pre":
				spec.Pre = converted
			case "post":
				spec.Post = converted
			default:
				if spec.ByExt == nil {
					spec.ByExt = make(map[string][]space.StepSpec)
				}
				spec.ByExt[key] = converted
			}
		}
		specs[name] = spec
	}
	return space.NewRegistry(order, specs)
}

// Gate builds the access gate from the file. Ephemeral account
// creation is the caller's step so the credentials can be printed.
func (f *File) Gate() *access.Gate {
	return access.NewGate(f.RequireAuthorization, f.Accounts)
}
