package content

import (
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/j4m-solutions/rudiweb/internal/xerrors"
)

// FileTarget is the outcome of locating a docpath: a concrete file (or
// directory) on disk, with enough stat data to pick the load mode.
type FileTarget struct {
	// Docpath after index-file upgrade, still rooted at "/".
	Docpath string
	// Path is the filesystem location the docpath resolved to.
	Path string
	// RealPath is Path with symlinks resolved; executables are run
	// from here so scripts see their true location.
	RealPath string
	// Ext is the lowercase extension of Docpath, including the dot.
	Ext string

	info fs.FileInfo
}

func (t *FileTarget) IsDir() bool { return t.info.IsDir() }

// Executable reports whether the owner-execute bit is set on the
// effective file (after symlink resolution). This single bit decides
// static read vs. subprocess execution.
func (t *FileTarget) Executable() bool {
	return !t.info.IsDir() && t.info.Mode().Perm()&0o100 != 0
}

func (t *FileTarget) ModTime() time.Time { return t.info.ModTime() }

// Locate resolves a rooted docpath to a FileTarget.
//
// Docpaths ending in "/" are upgraded to the first existing configured
// index file; a directory with no index file is ErrNotFound. Traversal
// out of the roots is ErrForbidden. A directory located without a
// trailing slash is returned as-is so the caller can redirect to the
// canonical slash form.
func (s *Site) Locate(docpath string) (*FileTarget, error) {
	docpath, err := s.upgradeIndexFile(docpath)
	if err != nil {
		return nil, err
	}

	p, err := s.ResolveDocpath(docpath)
	if err != nil {
		return nil, err
	}

	info, err := os.Stat(p)
	if err != nil {
		if os.IsPermission(err) {
			return nil, xerrors.Wrapf(ErrForbidden, "stat %s", p)
		}
		return nil, xerrors.Wrapf(ErrNotFound, "stat %s", p)
	}

	real := p
	if rp, err := filepath.EvalSymlinks(p); err == nil {
		real = rp
	}

	return &FileTarget{
		Docpath:  docpath,
		Path:     p,
		RealPath: real,
		Ext:      strings.ToLower(path.Ext(docpath)),
		info:     info,
	}, nil
}

// upgradeIndexFile maps "<dir>/" to "<dir>/<index>" using the first
// configured index file that exists.
func (s *Site) upgradeIndexFile(docpath string) (string, error) {
	if !strings.HasSuffix(docpath, "/") {
		return docpath, nil
	}
	for _, name := range s.IndexFiles {
		candidate := docpath + name
		p, err := s.ResolveDocpath(candidate)
		if err != nil {
			return "", err
		}
		if info, err := os.Stat(p); err == nil && !info.IsDir() {
			return candidate, nil
		}
	}
	return "", xerrors.Wrapf(ErrNotFound, "no index file under %s", docpath)
}
