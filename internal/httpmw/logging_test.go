package httpmw

import (
	"context"
	"crypto/tls"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/j4m-solutions/rudiweb/internal/log"
)

// captureLogger records Info calls and accumulated With fields.
type captureLogger struct {
	mu     sync.Mutex
	fields []any
	infos  []capturedLine
}

type capturedLine struct {
	msg    string
	fields []any
}

func (c *captureLogger) With(kv ...any) log.Logger {
	c.mu.Lock()
	defer c.mu.Unlock()
	return &sharedCapture{root: c, fields: append(append([]any{}, c.fields...), kv...)}
}

// sharedCapture funnels Info calls from derived loggers back to the root.
type sharedCapture struct {
	root   *captureLogger
	fields []any
}

func (s *sharedCapture) With(kv ...any) log.Logger {
	return &sharedCapture{root: s.root, fields: append(append([]any{}, s.fields...), kv...)}
}
func (s *sharedCapture) Debug(ctx context.Context, msg string, kv ...any)            {}
func (s *sharedCapture) Warn(ctx context.Context, msg string, kv ...any)             {}
func (s *sharedCapture) Sync() error                                                 { return nil }
func (s *sharedCapture) Error(ctx context.Context, err error, msg string, kv ...any) {}
func (s *sharedCapture) Info(ctx context.Context, msg string, kv ...any) {
	s.root.record(msg, append(append([]any{}, s.fields...), kv...))
}

func (c *captureLogger) Debug(ctx context.Context, msg string, kv ...any)            {}
func (c *captureLogger) Warn(ctx context.Context, msg string, kv ...any)             {}
func (c *captureLogger) Sync() error                                                 { return nil }
func (c *captureLogger) Error(ctx context.Context, err error, msg string, kv ...any) {}
func (c *captureLogger) Info(ctx context.Context, msg string, kv ...any) {
	c.record(msg, append(append([]any{}, c.fields...), kv...))
}

func (c *captureLogger) record(msg string, fields []any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.infos = append(c.infos, capturedLine{msg: msg, fields: fields})
}

func (c *captureLogger) lines() []capturedLine {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]capturedLine{}, c.infos...)
}

// field finds a key in a flat kv list.
func field(fields []any, key string) (any, bool) {
	for i := 0; i+1 < len(fields); i += 2 {
		if fields[i] == key {
			return fields[i+1], true
		}
	}
	return nil, false
}

func TestWithLogger_RequestFields(t *testing.T) {
	base := &captureLogger{}
	var inner http.Handler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		log.FromContext(r.Context()).Info(r.Context(), "from handler")
	})
	h := Chain(inner,
		RequestID(""),
		ClientIP,
		WithLogger(base),
	)

	r := httptest.NewRequest("GET", "/page.html", nil)
	r.RemoteAddr = "10.0.0.9:4242"
	h.ServeHTTP(httptest.NewRecorder(), r)

	lines := base.lines()
	if len(lines) != 1 {
		t.Fatalf("got %d lines, want 1", len(lines))
	}
	f := lines[0].fields
	if v, ok := field(f, "url.path"); !ok || v != "/page.html" {
		t.Errorf("url.path = %v", v)
	}
	if v, ok := field(f, "client.address"); !ok || v != "10.0.0.9" {
		t.Errorf("client.address = %v", v)
	}
	if v, ok := field(f, "http.request.method"); !ok || v != "GET" {
		t.Errorf("http.request.method = %v", v)
	}
	if v, ok := field(f, "request_id"); !ok || v == "" {
		t.Error("request_id missing")
	}
}

func TestAccessLog_LogsCompletedRequest(t *testing.T) {
	base := &captureLogger{}
	var inner http.Handler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
		w.Write([]byte("short and stout"))
	})
	h := Chain(inner, WithLogger(base), AccessLog())

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/pot", nil))

	lines := base.lines()
	if len(lines) != 1 {
		t.Fatalf("got %d lines, want 1", len(lines))
	}
	if lines[0].msg != "http request" {
		t.Errorf("msg = %q", lines[0].msg)
	}
	f := lines[0].fields
	if v, _ := field(f, "http.response.status_code"); v != http.StatusTeapot {
		t.Errorf("status = %v", v)
	}
	if v, _ := field(f, "http.response.body.size"); v != int64(len("short and stout")) {
		t.Errorf("body size = %v", v)
	}
	if _, ok := field(f, "http.server.request.duration"); !ok {
		t.Error("duration missing")
	}
	if v, _ := field(f, "http.route"); v != "/pot" {
		t.Errorf("route = %v", v)
	}
}

func TestAccessLog_DefaultStatus200(t *testing.T) {
	base := &captureLogger{}
	h := Chain(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("implicit 200"))
	}), WithLogger(base), AccessLog())

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/", nil))

	lines := base.lines()
	if len(lines) != 1 {
		t.Fatalf("got %d lines, want 1", len(lines))
	}
	if v, _ := field(lines[0].fields, "http.response.status_code"); v != http.StatusOK {
		t.Errorf("status = %v, want 200", v)
	}
}

func TestAccessLog_SkipsNoise(t *testing.T) {
	base := &captureLogger{}
	h := Chain(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}), WithLogger(base), AccessLog())

	for _, p := range []string{
		"/style.css", "/app.js", "/logo.png", "/photo.JPG", "/favicon.ico",
		"/font.woff2", "/-/ready", "/-/healthy",
	} {
		h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", p, nil))
	}
	if lines := base.lines(); len(lines) != 0 {
		t.Errorf("noise paths logged: %v", lines)
	}

	// regular pages still log
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/page.html", nil))
	if lines := base.lines(); len(lines) != 1 {
		t.Errorf("got %d lines for a page, want 1", len(lines))
	}
}

func TestScope(t *testing.T) {
	base := &captureLogger{}
	h := Chain(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		log.FromContext(r.Context()).Info(r.Context(), "handled")
	}), WithLogger(base), Scope("content"))

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/", nil))

	lines := base.lines()
	if len(lines) != 1 {
		t.Fatalf("got %d lines, want 1", len(lines))
	}
	if v, _ := field(lines[0].fields, "handler"); v != "content" {
		t.Errorf("handler = %v, want content", v)
	}
}

func TestSchemeFromRequest(t *testing.T) {
	tests := []struct {
		name  string
		build func() *http.Request
		want  string
	}{
		{"plain http", func() *http.Request {
			return httptest.NewRequest("GET", "/", nil)
		}, "http"},
		{"tls connection", func() *http.Request {
			r := httptest.NewRequest("GET", "/", nil)
			r.URL.Scheme = ""
			r.TLS = &tls.ConnectionState{}
			return r
		}, "https"},
		{"forwarded proto", func() *http.Request {
			r := httptest.NewRequest("GET", "/", nil)
			r.URL.Scheme = ""
			r.Header.Set("X-Forwarded-Proto", "https")
			return r
		}, "https"},
		{"forwarded proto list", func() *http.Request {
			r := httptest.NewRequest("GET", "/", nil)
			r.URL.Scheme = ""
			r.Header.Set("X-Forwarded-Proto", "HTTPS, http")
			return r
		}, "https"},
		{"bogus forwarded proto", func() *http.Request {
			r := httptest.NewRequest("GET", "/", nil)
			r.URL.Scheme = ""
			r.Header.Set("X-Forwarded-Proto", "gopher")
			return r
		}, "http"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := schemeFromRequest(tc.build()); got != tc.want {
				t.Errorf("scheme = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestResponseWriter_TracksBytes(t *testing.T) {
	base := &captureLogger{}
	h := Chain(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("12345"))
		w.Write([]byte("678"))
	}), WithLogger(base), AccessLog())

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/", nil))

	lines := base.lines()
	if len(lines) != 1 {
		t.Fatalf("got %d lines", len(lines))
	}
	if v, _ := field(lines[0].fields, "http.response.body.size"); v != int64(8) {
		t.Errorf("body size = %v, want 8", v)
	}
}
