package httpmw

import (
	"context"
	"net"
	"net/http"
	"strings"
)

type clientIPKey struct{}

// ClientIPOptions configures client IP extraction.
type ClientIPOptions struct {
	// TrustedHops is the number of reverse proxies between the client
	// and this server. 0 means the peer is the client and
	// X-Forwarded-For is ignored; 1 trusts the rightmost entry; 2
	// (CDN plus proxy) the second from the end, and so on.
	TrustedHops int
}

// ClientIP stores the client address in the context using default
// options: no trusted proxies.
func ClientIP(next http.Handler) http.Handler {
	return ClientIPWithOptions(ClientIPOptions{})(next)
}

// ClientIPWithOptions extracts the client address per opts and stores
// it in the request context.
func ClientIPWithOptions(opts ClientIPOptions) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip := clientAddr(r, opts.TrustedHops)
			next.ServeHTTP(w, r.WithContext(WithClientIP(r.Context(), ip)))
		})
	}
}

// WithClientIP stores a client address in the context. Empty values
// are not stored.
func WithClientIP(ctx context.Context, ip string) context.Context {
	if ip == "" {
		return ctx
	}
	return context.WithValue(ctx, clientIPKey{}, ip)
}

// ClientIPFromContext returns the client address, or "" when none is
// set.
func ClientIPFromContext(ctx context.Context) string {
	ip, _ := ctx.Value(clientIPKey{}).(string)
	return ip
}

// clientAddr resolves the real client address. Forwarded headers are
// honored only when the direct peer is a private address (a proxy on
// our side of the edge) and trustedHops > 0; in every other case they
// are stripped so nothing downstream trusts them by accident.
func clientAddr(r *http.Request, trustedHops int) string {
	if r.RemoteAddr == "" {
		return "0.0.0.0"
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	peer := net.ParseIP(host)
	if peer == nil {
		return "0.0.0.0"
	}

	if !peer.IsPrivate() || trustedHops <= 0 {
		stripForwardHeaders(r)
		return host
	}

	xff := r.Header.Get("X-Forwarded-For")
	if xff == "" {
		return host
	}
	entries := strings.Split(xff, ",")
	idx := len(entries) - trustedHops
	if idx < 0 {
		// fewer entries than proxies: misconfiguration or tampering,
		// fail closed on the socket address
		stripForwardHeaders(r)
		return host
	}
	if ip := strings.TrimSpace(entries[idx]); net.ParseIP(ip) != nil {
		return ip
	}
	return host
}

func stripForwardHeaders(r *http.Request) {
	r.Header.Del("X-Forwarded-For")
	r.Header.Del("X-Forwarded-Proto")
}
