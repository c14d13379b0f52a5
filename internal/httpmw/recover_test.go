package httpmw

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/j4m-solutions/rudiweb/internal/log"
)

// errSpy records Error calls; everything else is a no-op.
type errSpy struct {
	errs []error
	msgs []string
}

func (s *errSpy) With(kv ...any) log.Logger                        { return s }
func (s *errSpy) Debug(ctx context.Context, msg string, kv ...any) {}
func (s *errSpy) Info(ctx context.Context, msg string, kv ...any)  {}
func (s *errSpy) Warn(ctx context.Context, msg string, kv ...any)  {}
func (s *errSpy) Sync() error                                      { return nil }
func (s *errSpy) Error(ctx context.Context, err error, msg string, kv ...any) {
	s.errs = append(s.errs, err)
	s.msgs = append(s.msgs, msg)
}

func TestRecover_PanicBecomes500(t *testing.T) {
	spy := &errSpy{}
	var panics int
	h := Recover(spy, func() { panics++ })(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest("GET", "/x", nil))

	if w.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", w.Code)
	}
	if panics != 1 {
		t.Errorf("onPanic ran %d times, want 1", panics)
	}
	if len(spy.errs) != 1 {
		t.Fatalf("logged %d errors, want 1", len(spy.errs))
	}
	if got := spy.errs[0].Error(); got != "panic: boom" {
		t.Errorf("logged error = %q", got)
	}
}

func TestRecover_ErrorPanicKeepsValue(t *testing.T) {
	spy := &errSpy{}
	cause := http.ErrBodyNotAllowed
	h := Recover(spy, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic(cause)
	}))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/", nil))

	if len(spy.errs) != 1 {
		t.Fatalf("logged %d errors, want 1", len(spy.errs))
	}
	if spy.errs[0].Error() != cause.Error() {
		t.Errorf("logged error = %q, want %q", spy.errs[0], cause)
	}
}

func TestRecover_NilOnPanic(t *testing.T) {
	h := Recover(&errSpy{}, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))
	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest("GET", "/", nil))
	if w.Code != http.StatusInternalServerError {
		t.Errorf("status = %d", w.Code)
	}
}

func TestRecover_NoPanicPassesThrough(t *testing.T) {
	spy := &errSpy{}
	var panics int
	h := Recover(spy, func() { panics++ })(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest("GET", "/", nil))

	if w.Code != http.StatusNoContent {
		t.Errorf("status = %d", w.Code)
	}
	if panics != 0 || len(spy.errs) != 0 {
		t.Errorf("clean request triggered panic handling: %d, %v", panics, spy.errs)
	}
}

func TestRecover_AbortHandlerRethrown(t *testing.T) {
	h := Recover(&errSpy{}, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic(http.ErrAbortHandler)
	}))
	defer func() {
		if recover() != http.ErrAbortHandler {
			t.Error("ErrAbortHandler should propagate for net/http to handle")
		}
	}()
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/", nil))
	t.Error("unreachable: panic expected")
}
