package httpmw

import (
	"bufio"
	"context"
	"fmt"
	"net"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/j4m-solutions/rudiweb/internal/log"
)

// accessWriter captures status and byte count for the access log and
// runs a response.write child span covering time blocked on the
// client.
type accessWriter struct {
	http.ResponseWriter
	status int
	bytes  int64

	ctx      context.Context
	reqStart time.Time

	span         trace.Span
	spanStarted  bool
	firstWriteAt time.Duration
	blocked      time.Duration
	writeErr     error
}

func (aw *accessWriter) startSpan() {
	if aw.spanStarted {
		return
	}
	aw.spanStarted = true
	aw.firstWriteAt = time.Since(aw.reqStart)

	parent := trace.SpanFromContext(aw.ctx)
	if parent == nil || !parent.IsRecording() {
		return
	}
	aw.ctx, aw.span = otel.Tracer("rudiweb/httpmw").Start(aw.ctx, "response.write",
		trace.WithAttributes(
			attribute.Float64("http.server.ttfb_seconds", aw.firstWriteAt.Seconds()),
		),
	)
}

func (aw *accessWriter) endSpan() {
	if aw.span == nil {
		return
	}
	aw.span.SetAttributes(
		attribute.Int("http.response.status_code", aw.statusOr200()),
		attribute.Int64("http.response.body.size", aw.bytes),
		attribute.Float64("http.server.write.block_seconds", aw.blocked.Seconds()),
	)
	if aw.writeErr != nil {
		aw.span.RecordError(aw.writeErr)
		aw.span.SetStatus(codes.Error, aw.writeErr.Error())
	}
	aw.span.End()
}

func (aw *accessWriter) statusOr200() int {
	if aw.status == 0 {
		return http.StatusOK
	}
	return aw.status
}

func (aw *accessWriter) WriteHeader(code int) {
	aw.startSpan()
	aw.status = code
	start := time.Now()
	aw.ResponseWriter.WriteHeader(code)
	aw.blocked += time.Since(start)
}

func (aw *accessWriter) Write(b []byte) (int, error) {
	aw.startSpan()
	if aw.status == 0 {
		aw.status = http.StatusOK
	}
	start := time.Now()
	n, err := aw.ResponseWriter.Write(b)
	aw.blocked += time.Since(start)
	aw.bytes += int64(n)
	if err != nil && aw.writeErr == nil {
		aw.writeErr = err
	}
	return n, err
}

func (aw *accessWriter) Flush() {
	if f, ok := aw.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func (aw *accessWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	h, ok := aw.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, fmt.Errorf("underlying ResponseWriter does not implement http.Hijacker")
	}
	return h.Hijack()
}

// WithLogger derives a per-request logger carrying request identity
// fields and stores it in the context for the pipeline. Host header
// and query string are user-supplied and stay out of the fields.
func WithLogger(base log.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			reqID := RequestIDFromContext(ctx)
			client := ClientIPFromContext(ctx)
			if client == "" {
				client = r.RemoteAddr
			}
			peer := r.RemoteAddr
			if host, _, err := net.SplitHostPort(peer); err == nil {
				peer = host
			}
			scheme := schemeFromRequest(r)

			if span := trace.SpanFromContext(ctx); span != nil {
				if sc := span.SpanContext(); sc.IsValid() {
					span.SetAttributes(
						attribute.String("request_id", reqID),
						attribute.String("client.address", client),
						attribute.String("network.peer.address", peer),
						attribute.String("url.scheme", scheme),
					)
				}
			}

			L := base.With(
				"request_id", reqID,
				"client.address", client,
				"network.peer.address", peer,
				"http.request.method", r.Method,
				"url.path", r.URL.Path,
				"url.scheme", scheme,
			)
			next.ServeHTTP(w, r.WithContext(log.WithContext(ctx, L)))
		})
	}
}

// assetExts are high-volume fetches the access log skips.
var assetExts = map[string]bool{
	".css": true, ".js": true, ".png": true, ".jpg": true, ".jpeg": true,
	".webp": true, ".svg": true, ".ico": true, ".woff": true, ".woff2": true,
	".map": true,
}

// AccessLog emits one structured line per completed request. Asset
// fetches and ops probes are skipped.
func AccessLog() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			var reqBody int64
			if r.ContentLength > 0 {
				reqBody = r.ContentLength
			}

			aw := &accessWriter{ResponseWriter: w, ctx: r.Context(), reqStart: start}
			next.ServeHTTP(aw, r)
			aw.endSpan()

			if assetExts[strings.ToLower(path.Ext(r.URL.Path))] {
				return
			}
			if r.URL.Path == "/-/ready" || r.URL.Path == "/-/healthy" {
				return
			}

			ctx := r.Context()
			route := ""
			if rc := chi.RouteContext(ctx); rc != nil {
				route = rc.RoutePattern()
			}
			if route == "" {
				route = r.URL.Path
			}

			log.FromContext(ctx).Info(ctx, "http request",
				"http.response.status_code", aw.statusOr200(),
				"http.server.request.duration", time.Since(start).Seconds(),
				"http.response.body.size", aw.bytes,
				"http.request.body.size", reqBody,
				"http.route", route,
			)
		})
	}
}

var validSchemes = map[string]bool{"http": true, "https": true}

// schemeFromRequest resolves the request scheme. X-Forwarded-Proto
// survives the ClientIP middleware only when the peer is a trusted
// proxy; the value is still header data, so anything outside
// http/https is ignored.
func schemeFromRequest(r *http.Request) string {
	if xf := r.Header.Get("X-Forwarded-Proto"); xf != "" {
		first := strings.ToLower(strings.TrimSpace(strings.Split(xf, ",")[0]))
		if validSchemes[first] {
			return first
		}
	}
	if r.URL != nil && validSchemes[r.URL.Scheme] {
		return r.URL.Scheme
	}
	if r.TLS != nil {
		return "https"
	}
	return "http"
}

// Scope tags the request logger and span with the handling component.
func Scope(handler string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			ctx = log.WithContext(ctx, log.FromContext(ctx).With("handler", handler))
			if span := trace.SpanFromContext(ctx); span != nil && span.IsRecording() {
				span.SetAttributes(attribute.String("app.handler", handler))
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
