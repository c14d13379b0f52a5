package httpmw

import "net/http"

// Chain wraps h with mws, first middleware outermost. Nil entries are
// skipped so callers can pass optional middleware unconditionally.
func Chain(h http.Handler, mws ...func(http.Handler) http.Handler) http.Handler {
	for i := len(mws) - 1; i >= 0; i-- {
		if mw := mws[i]; mw != nil {
			h = mw(h)
		}
	}
	return h
}
