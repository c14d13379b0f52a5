package httpmw

import (
	"net/http"

	"github.com/j4m-solutions/rudiweb/internal/log"
	"github.com/j4m-solutions/rudiweb/internal/xerrors"
)

// Recover converts handler panics into 500 responses. The panic value
// is logged with request identity; onPanic (may be nil) runs after
// logging so callers can bump a counter.
func Recover(logger log.Logger, onPanic func()) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				rec := recover()
				if rec == nil {
					return
				}
				if rec == http.ErrAbortHandler {
					// net/http uses this to abort the connection; keep that behavior.
					panic(rec)
				}

				var err error
				if e, ok := rec.(error); ok {
					err = xerrors.WithStack(e)
				} else {
					err = xerrors.Newf("panic: %v", rec)
				}

				logger.With(
					"http.request.method", r.Method,
					"url.path", r.URL.Path,
				).Error(r.Context(), err, "httpserver panic recovered")

				if onPanic != nil {
					onPanic()
				}

				http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
			}()

			next.ServeHTTP(w, r)
		})
	}
}
