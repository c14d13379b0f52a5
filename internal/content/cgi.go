package content

import (
	"net"
	"net/http"
	"os"
	"strconv"
)

// cgiRequestHeaders maps request headers into the execution environment.
var cgiRequestHeaders = map[string]string{
	"Content-Type":    "CONTENT_TYPE",
	"Content-Length":  "CONTENT_LENGTH",
	"Accept":          "HTTP_ACCEPT",
	"Accept-Language": "HTTP_ACCEPT_LANGUAGE",
	"Cookie":          "HTTP_COOKIE",
	"Date":            "HTTP_DATE",
	"Host":            "HTTP_HOST",
	"Origin":          "HTTP_ORIGIN",
	"Referer":         "HTTP_REFERER",
	"Range":           "HTTP_RANGE",
	"User-Agent":      "HTTP_USER_AGENT",
}

// cgiEnv builds the environment for an executed file. The request
// docpath can differ from the script docpath when includes are being
// processed, so both are exposed.
func (s *Site) cgiEnv(r *http.Request, t *FileTarget) []string {
	env := os.Environ()

	set := func(k, v string) {
		env = append(env, k+"="+v)
	}

	set("DOCPATH", t.Docpath)
	set("DOCUMENT_ROOT", s.DocumentRoot)
	set("RUDI_ROOT", s.RudiRoot)
	set("SITE_ROOT", s.SiteRoot)
	set("SCRIPT_NAME", t.RealPath)
	set("SERVER_NAME", s.ServerName)
	set("SERVER_PORT", strconv.Itoa(s.ServerPort))

	if r != nil {
		set("PATH_INFO", r.URL.Path)
		if p, err := s.ResolveDocpath(r.URL.Path); err == nil {
			set("PATH_TRANSLATED", p)
		}
		set("QUERY_STRING", r.URL.RawQuery)
		set("REQUEST_METHOD", r.Method)

		addr := r.RemoteAddr
		if host, _, err := net.SplitHostPort(addr); err == nil {
			addr = host
		}
		set("REQUEST_ADDR", addr)
		set("REQUEST_HOST", addr)

		for header, name := range cgiRequestHeaders {
			if v := r.Header.Get(header); v != "" {
				set(name, v)
			}
		}
	}

	return env
}
