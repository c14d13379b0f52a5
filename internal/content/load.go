package content

import (
	"bytes"
	"context"
	"net/http"
	"os"
	"os/exec"
	"time"

	"github.com/j4m-solutions/rudiweb/internal/mimetype"
	"github.com/j4m-solutions/rudiweb/internal/xerrors"
)

// ResolvedFile is the loader's output: the payload plus the metadata
// the response policy derives headers from. Constructed fresh per
// request, never shared across requests.
type ResolvedFile struct {
	Docpath     string
	Path        string
	Ext         string
	Body        []byte
	ContentType string
	// ModTime is the stat mtime for static reads; zero for executed
	// content, which is never cacheable.
	ModTime  time.Time
	Executed bool
}

// LoadOptions carries per-request inputs into Load.
type LoadOptions struct {
	// Types is the owning space's extension override map.
	Types map[string]string
	// Request supplies the CGI environment for executed files. May be
	// nil for internal include loads.
	Request *http.Request
}

// producer is the two-variant load mode: a static file read or an
// executable invocation. The variant is chosen once per request from
// the owner-execute permission bit.
type producer interface {
	produce(ctx context.Context) (body []byte, mtime time.Time, err error)
}

// Load reads or executes the located file. Execution never changes how
// the content type is resolved: extension mapping applies either way.
func (s *Site) Load(ctx context.Context, t *FileTarget, opts LoadOptions) (*ResolvedFile, error) {
	if t.IsDir() {
		return nil, xerrors.Wrapf(ErrNotFound, "directory %s has no loadable content", t.Docpath)
	}

	var p producer
	executed := t.Executable()
	if executed {
		p = &executableFile{site: s, target: t, req: opts.Request}
	} else {
		p = &staticFile{target: t}
	}

	body, mtime, err := p.produce(ctx)
	if err != nil {
		return nil, err
	}

	return &ResolvedFile{
		Docpath:     t.Docpath,
		Path:        t.Path,
		Ext:         t.Ext,
		Body:        body,
		ContentType: mimetype.Lookup(t.Ext, opts.Types),
		ModTime:     mtime,
		Executed:    executed,
	}, nil
}

type staticFile struct {
	target *FileTarget
}

func (f *staticFile) produce(context.Context) ([]byte, time.Time, error) {
	body, err := os.ReadFile(f.target.Path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, time.Time{}, xerrors.Wrapf(ErrNotFound, "read %s", f.target.Path)
		}
		return nil, time.Time{}, xerrors.Wrapf(ErrReadFailed, "read %s: %v", f.target.Path, err)
	}
	return body, f.target.ModTime(), nil
}

type executableFile struct {
	site   *Site
	target *FileTarget
	req    *http.Request
}

// A launched subprocess always runs to completion. Client disconnects
// do not kill it; aborting mid-run could leave files it writes half
// done. The serve layer drops the output if the response is gone.
func (f *executableFile) produce(context.Context) ([]byte, time.Time, error) {
	cmd := exec.Command(f.target.RealPath)
	cmd.Env = f.site.cgiEnv(f.req, f.target)
	cmd.Dir = f.site.DocumentRoot

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return nil, time.Time{}, xerrors.Wrapf(ErrExecFailed,
			"exec %s: %v (stderr: %s)", f.target.RealPath, err, firstLine(stderr.Bytes()))
	}
	// executed output carries no usable modification time
	return stdout.Bytes(), time.Time{}, nil
}

func firstLine(b []byte) []byte {
	if i := bytes.IndexByte(b, '\n'); i >= 0 {
		return b[:i]
	}
	return b
}
