// Package content resolves docpaths to files under the site roots and
// loads their payloads, either by reading them or by executing them.
package content

import (
	"path"
	"strings"

	"github.com/j4m-solutions/rudiweb/internal/pathutil"
	"github.com/j4m-solutions/rudiweb/internal/xerrors"
)

// InternalPrefix is the reserved docpath namespace for decoration
// fragments and includes. It is never reachable as a public URL.
const InternalPrefix = "/.rudi/"

// Site is the filesystem view of one configured site. Built once at
// startup and shared read-only across all requests.
type Site struct {
	SiteRoot     string
	DocumentRoot string
	RudiRoot     string
	IndexFiles   []string

	// used for the CGI environment of executed files
	ServerName string
	ServerPort int
}

// ResolveDocpath maps a rooted docpath to an absolute filesystem path.
// Docpaths under InternalPrefix resolve beneath RudiRoot, everything
// else beneath DocumentRoot. Paths that escape their root or smuggle
// the internal prefix back in after stripping are ErrForbidden.
func (s *Site) ResolveDocpath(docpath string) (string, error) {
	if !pathutil.IsSafe(docpath) {
		return "", xerrors.Wrapf(ErrForbidden, "unsafe docpath %q", docpath)
	}

	root := s.DocumentRoot
	rel := docpath
	if strings.HasPrefix(docpath, InternalPrefix) {
		root = s.RudiRoot
		rel = strings.TrimPrefix(docpath, InternalPrefix)
		// defense-in-depth: the stripped path must not carry the
		// prefix again
		if strings.HasPrefix("/"+rel, InternalPrefix) {
			return "", xerrors.Wrapf(ErrForbidden, "nested internal prefix in %q", docpath)
		}
	}

	// re-root and normalize so the joined path cannot escape
	rel = path.Clean("/" + strings.TrimPrefix(rel, "/"))
	return root + rel, nil
}

// IsInternal reports whether docpath addresses the internal-content root.
func IsInternal(docpath string) bool {
	return strings.HasPrefix(docpath, InternalPrefix)
}
