package httpmw

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

func resolveIP(t *testing.T, remoteAddr, xff string, hops int) (ip string, xffAfter string) {
	t.Helper()
	r := httptest.NewRequest("GET", "/", nil)
	r.RemoteAddr = remoteAddr
	if xff != "" {
		r.Header.Set("X-Forwarded-For", xff)
		r.Header.Set("X-Forwarded-Proto", "https")
	}
	h := ClientIPWithOptions(ClientIPOptions{TrustedHops: hops})(
		http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			ip = ClientIPFromContext(req.Context())
			xffAfter = req.Header.Get("X-Forwarded-For")
		}))
	h.ServeHTTP(httptest.NewRecorder(), r)
	return ip, xffAfter
}

func TestClientIP_NoTrustedHops(t *testing.T) {
	tests := []struct {
		name       string
		remoteAddr string
		xff        string
		want       string
	}{
		{"private peer ignores XFF", "10.0.0.1:1234", "203.0.113.50", "10.0.0.1"},
		{"public peer ignores XFF", "203.0.113.7:443", "198.51.100.9", "203.0.113.7"},
		{"no XFF", "192.168.1.5:9999", "", "192.168.1.5"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			ip, xff := resolveIP(t, tc.remoteAddr, tc.xff, 0)
			if ip != tc.want {
				t.Errorf("ip = %q, want %q", ip, tc.want)
			}
			if tc.xff != "" && xff != "" {
				t.Errorf("X-Forwarded-For should be stripped, still %q", xff)
			}
		})
	}
}

func TestClientIP_OneTrustedHop(t *testing.T) {
	tests := []struct {
		name       string
		remoteAddr string
		xff        string
		want       string
	}{
		{"single proxy", "10.0.0.1:1234", "203.0.113.50", "203.0.113.50"},
		{"chain uses rightmost", "10.0.0.1:1234", "198.51.100.9, 203.0.113.50", "203.0.113.50"},
		{"spaces trimmed", "10.0.0.1:1234", " 203.0.113.50 ", "203.0.113.50"},
		{"invalid entry falls back to peer", "10.0.0.1:1234", "not-an-ip", "10.0.0.1"},
		{"public peer never trusted", "203.0.113.7:443", "198.51.100.9", "203.0.113.7"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			ip, _ := resolveIP(t, tc.remoteAddr, tc.xff, 1)
			if ip != tc.want {
				t.Errorf("ip = %q, want %q", ip, tc.want)
			}
		})
	}
}

func TestClientIP_TwoTrustedHops(t *testing.T) {
	// CDN in front of a reverse proxy: client is second from the end
	ip, _ := resolveIP(t, "10.0.0.1:1234", "203.0.113.50, 198.51.100.9", 2)
	if ip != "203.0.113.50" {
		t.Errorf("ip = %q, want 203.0.113.50", ip)
	}

	// fewer entries than proxies fails closed on the socket address
	ip, xff := resolveIP(t, "10.0.0.1:1234", "198.51.100.9", 2)
	if ip != "10.0.0.1" {
		t.Errorf("short chain: ip = %q, want 10.0.0.1", ip)
	}
	if xff != "" {
		t.Errorf("short chain should strip headers, got %q", xff)
	}
}

func TestClientIP_MalformedRemoteAddr(t *testing.T) {
	// no port: returned verbatim
	if ip, _ := resolveIP(t, "bare-string", "", 0); ip != "bare-string" {
		t.Errorf("ip = %q", ip)
	}
	// port but unparseable host
	if ip, _ := resolveIP(t, "not-an-ip:80", "", 0); ip != "0.0.0.0" {
		t.Errorf("ip = %q, want 0.0.0.0", ip)
	}
}

func TestClientIP_DefaultMiddleware(t *testing.T) {
	var ip string
	h := ClientIP(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip = ClientIPFromContext(r.Context())
	}))
	r := httptest.NewRequest("GET", "/", nil)
	r.RemoteAddr = "10.1.2.3:5555"
	h.ServeHTTP(httptest.NewRecorder(), r)
	if ip != "10.1.2.3" {
		t.Errorf("ip = %q", ip)
	}
}

func TestClientIPContext(t *testing.T) {
	ctx := context.Background()
	if got := ClientIPFromContext(ctx); got != "" {
		t.Errorf("empty context = %q", got)
	}
	if got := ClientIPFromContext(WithClientIP(ctx, "1.2.3.4")); got != "1.2.3.4" {
		t.Errorf("round trip = %q", got)
	}
	if got := ClientIPFromContext(WithClientIP(ctx, "")); got != "" {
		t.Errorf("empty ip stored: %q", got)
	}
}
