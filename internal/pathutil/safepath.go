package pathutil

import (
	"path"
	"strings"
)

// HasDotSegments reports whether any path segment is "." or "..".
func HasDotSegments(p string) bool {
	for _, seg := range strings.Split(p, "/") {
		if seg == "." || seg == ".." {
			return true
		}
	}
	return false
}

// CleanDocpath normalizes a request path into a rooted docpath,
// preserving a trailing slash so directory requests stay recognizable.
func CleanDocpath(p string) string {
	if p == "" {
		p = "/"
	}
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	trailing := strings.HasSuffix(p, "/")
	clean := path.Clean(p)
	if trailing && clean != "/" {
		clean += "/"
	}
	return clean
}

// IsSafe rejects docpaths with NUL bytes, backslashes, or remaining
// dot segments after cleaning.
func IsSafe(docpath string) bool {
	if strings.ContainsAny(docpath, "\x00\\") {
		return false
	}
	return !HasDotSegments(strings.TrimSuffix(docpath, "/"))
}
