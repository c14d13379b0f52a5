// Package serve wires the request pipeline: access gate, space
// dispatch, content location and loading, transformer chain, and
// response policy.
package serve

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/j4m-solutions/rudiweb/internal/access"
	"github.com/j4m-solutions/rudiweb/internal/content"
	"github.com/j4m-solutions/rudiweb/internal/log"
	"github.com/j4m-solutions/rudiweb/internal/pathutil"
	"github.com/j4m-solutions/rudiweb/internal/space"
	"github.com/j4m-solutions/rudiweb/internal/transform"
)

// Handler serves site content. One Handler serves one site.
type Handler struct {
	site     *content.Site
	registry *space.Registry
	gate     *access.Gate

	metrics     Observer
	cacheMaxAge int
	realm       string
}

// Observer receives pipeline events. The ops metrics registry
// implements it; tests can substitute their own.
type Observer interface {
	IncSpaceMatched(space string)
	IncPipelineError(kind string)
	IncTransform(transformer string, ok bool)
	IncExec(ok bool)
	ObserveExecDuration(seconds float64)
	IncAuthDenied()
	IncNotModified()
}

// New builds a content handler.
func New(site *content.Site, registry *space.Registry, gate *access.Gate, opts ...Option) *Handler {
	h := &Handler{
		site:        site,
		registry:    registry,
		gate:        gate,
		metrics:     nopObserver{},
		cacheMaxAge: 120,
		realm:       "rudiweb",
	}
	for _, o := range opts {
		o(h)
	}
	return h
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	logger := log.FromContext(r.Context())

	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		w.Header().Set("Allow", "GET, HEAD")
		http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
		return
	}

	docpath := pathutil.CleanDocpath(r.URL.Path)
	if !pathutil.IsSafe(docpath) {
		h.fail(w, r, docpath, content.ErrForbidden)
		return
	}

	// The gate runs before any space or filesystem work.
	if err := h.gate.Authorize(r); err != nil {
		h.metrics.IncAuthDenied()
		w.Header().Set("WWW-Authenticate", `Basic realm="`+h.realm+`"`)
		http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
		logger.Info(r.Context(), "request denied", "docpath", docpath, "remote", r.RemoteAddr)
		return
	}

	// The internal tree is reachable only through server-side loads.
	if content.IsInternal(docpath) {
		h.fail(w, r, docpath, content.ErrForbidden)
		return
	}

	sp, err := h.registry.Match(docpath)
	if err != nil {
		h.fail(w, r, docpath, err)
		return
	}
	h.metrics.IncSpaceMatched(sp.Name)

	target, err := h.site.Locate(docpath)
	if err != nil {
		h.fail(w, r, docpath, err)
		return
	}

	if target.IsDir() {
		if !strings.HasSuffix(docpath, "/") {
			u := *r.URL
			u.Path = docpath + "/"
			http.Redirect(w, r, u.String(), http.StatusPermanentRedirect)
			return
		}
		h.fail(w, r, docpath, content.ErrNotFound)
		return
	}

	cacheable := sp.Kind == space.KindAsis && !target.Executable()
	modTime := target.ModTime().UTC()

	if cacheable && h.notModified(r, modTime) {
		h.metrics.IncNotModified()
		h.setCacheHeaders(w, modTime)
		w.WriteHeader(http.StatusNotModified)
		return
	}

	var execStart time.Time
	if target.Executable() {
		execStart = time.Now()
	}
	f, err := h.site.Load(r.Context(), target, content.LoadOptions{
		Types:   sp.Types,
		Request: r,
	})
	if target.Executable() {
		h.metrics.IncExec(err == nil)
		h.metrics.ObserveExecDuration(time.Since(execStart).Seconds())
	}
	if err != nil {
		h.fail(w, r, docpath, err)
		return
	}

	rc := transform.NewContext(h.site, r, f, target.RealPath)
	steps := sp.Chains.For(f.Ext)
	if err := transform.Run(rc, steps); err != nil {
		var se *transform.StepError
		if errors.As(err, &se) {
			h.metrics.IncTransform(se.Transformer, false)
		}
		h.fail(w, r, docpath, err)
		return
	}
	for _, s := range steps {
		h.metrics.IncTransform(s.Name, true)
	}

	w.Header().Set("Content-Type", rc.ContentType)
	if cacheable && !f.Executed {
		h.setCacheHeaders(w, modTime)
	}
	w.Header().Set("Content-Length", strconv.Itoa(len(rc.Body)))
	w.WriteHeader(http.StatusOK)
	if r.Method == http.MethodHead {
		return
	}
	if _, err := w.Write(rc.Body); err != nil {
		// Client went away mid-write; nothing useful left to do.
		logger.Debug(r.Context(), "response write failed", "docpath", docpath, "error", err)
	}
}

func (h *Handler) setCacheHeaders(w http.ResponseWriter, modTime time.Time) {
	w.Header().Set("Cache-Control", "max-age="+strconv.Itoa(h.cacheMaxAge))
	if !modTime.IsZero() {
		w.Header().Set("Last-Modified", modTime.Format(http.TimeFormat))
	}
}

// notModified reports whether If-Modified-Since covers the file's
// mtime. HTTP dates have second precision, so the mtime is truncated
// before the comparison.
func (h *Handler) notModified(r *http.Request, modTime time.Time) bool {
	ims := r.Header.Get("If-Modified-Since")
	if ims == "" || modTime.IsZero() {
		return false
	}
	since, err := http.ParseTime(ims)
	if err != nil {
		return false
	}
	return !modTime.Truncate(time.Second).After(since)
}

// fail maps a pipeline error onto an HTTP status and records it.
func (h *Handler) fail(w http.ResponseWriter, r *http.Request, docpath string, err error) {
	logger := log.FromContext(r.Context())

	status := http.StatusInternalServerError
	kind := "internal"
	var se *transform.StepError

	switch {
	case errors.Is(err, space.ErrNoSpaceMatched):
		status, kind = http.StatusNotFound, "no_space"
	case errors.Is(err, content.ErrNotFound):
		status, kind = http.StatusNotFound, "not_found"
	case errors.Is(err, content.ErrForbidden):
		status, kind = http.StatusForbidden, "forbidden"
	case errors.Is(err, access.ErrDenied):
		status, kind = http.StatusUnauthorized, "denied"
	case errors.Is(err, content.ErrExecFailed):
		kind = "exec_failed"
	case errors.Is(err, content.ErrReadFailed):
		kind = "read_failed"
	case errors.As(err, &se):
		kind = "transform_failed"
	}
	h.metrics.IncPipelineError(kind)

	if status >= 500 {
		logger.Error(r.Context(), err, "content pipeline failed", "docpath", docpath, "kind", kind)
	} else {
		logger.Debug(r.Context(), "content pipeline miss", "docpath", docpath, "kind", kind, "status", status)
	}
	http.Error(w, http.StatusText(status), status)
}
