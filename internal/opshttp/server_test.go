package opshttp

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/j4m-solutions/rudiweb/internal/health"
	"github.com/j4m-solutions/rudiweb/internal/log"
)

func freePort(t *testing.T) int {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("reserve port: %v", err)
	}
	defer ln.Close()
	return ln.Addr().(*net.TCPAddr).Port
}

func startServer(t *testing.T, opts *Options) int {
	t.Helper()
	port := freePort(t)
	opts.Port = port
	stop, err := Start(context.Background(), log.Nop(), opts)
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	t.Cleanup(func() { stop(context.Background()) })
	waitReachable(t, port)
	return port
}

func waitReachable(t *testing.T, port int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		conn, err := net.Dial("tcp", fmt.Sprintf("127.0.0.1:%d", port))
		if err == nil {
			conn.Close()
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("server on port %d never came up", port)
}

func get(t *testing.T, port int, path string) (int, string) {
	t.Helper()
	resp, err := http.Get(fmt.Sprintf("http://127.0.0.1:%d%s", port, path))
	if err != nil {
		t.Fatalf("GET %s: %v", path, err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return resp.StatusCode, string(body)
}

func TestStart_HealthEndpoints(t *testing.T) {
	var gate health.ShutdownGate
	port := startServer(t, &Options{
		Health:    health.Fixed(true, ""),
		Readiness: gate.Probe(),
	})

	if code, body := get(t, port, "/healthz"); code != http.StatusOK || !strings.Contains(body, "ok") {
		t.Errorf("/healthz = %d %q", code, body)
	}
	if code, _ := get(t, port, "/readyz"); code != http.StatusOK {
		t.Errorf("/readyz = %d, want 200", code)
	}

	gate.Set("draining")
	if code, body := get(t, port, "/readyz"); code != http.StatusServiceUnavailable || !strings.Contains(body, "draining") {
		t.Errorf("/readyz while draining = %d %q", code, body)
	}
}

func TestStart_Metrics(t *testing.T) {
	port := startServer(t, &Options{
		Health: health.Fixed(true, ""),
		Metrics: http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprintln(w, "fake_metric 1")
		}),
	})

	code, body := get(t, port, "/metrics")
	if code != http.StatusOK || !strings.Contains(body, "fake_metric") {
		t.Errorf("/metrics = %d %q", code, body)
	}
}

func TestStart_NoMetricsHandler(t *testing.T) {
	port := startServer(t, &Options{Health: health.Fixed(true, "")})
	if code, _ := get(t, port, "/metrics"); code != http.StatusNotFound {
		t.Errorf("/metrics without handler = %d, want 404", code)
	}
}

func TestStart_Pprof(t *testing.T) {
	port := startServer(t, &Options{
		Health:      health.Fixed(true, ""),
		EnablePprof: true,
	})
	if code, body := get(t, port, "/debug/pprof/"); code != http.StatusOK || !strings.Contains(body, "goroutine") {
		t.Errorf("/debug/pprof/ = %d", code)
	}
	if code, _ := get(t, port, "/debug/pprof/cmdline"); code != http.StatusOK {
		t.Errorf("/debug/pprof/cmdline = %d", code)
	}
}

func TestStart_PprofDisabled(t *testing.T) {
	port := startServer(t, &Options{Health: health.Fixed(true, "")})
	if code, _ := get(t, port, "/debug/pprof/"); code != http.StatusNotFound {
		t.Errorf("/debug/pprof/ = %d, want 404 when disabled", code)
	}
}

func TestStart_StopIdempotent(t *testing.T) {
	port := freePort(t)
	stop, err := Start(context.Background(), log.Nop(), &Options{
		Port:   port,
		Health: health.Fixed(true, ""),
	})
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	waitReachable(t, port)

	for range 3 {
		if err := stop(context.Background()); err != nil {
			t.Errorf("stop: %v", err)
		}
	}
}

func TestStart_PortConflict(t *testing.T) {
	ln, err := net.Listen("tcp", ":0")
	if err != nil {
		t.Fatal(err)
	}
	defer ln.Close()
	port := ln.Addr().(*net.TCPAddr).Port

	if _, err := Start(context.Background(), log.Nop(), &Options{Port: port}); err == nil {
		t.Error("expected listen error on occupied port")
	}
}

func TestRequireNonPublicNetwork(t *testing.T) {
	h := requireNonPublicNetwork(log.Nop(), http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	tests := []struct {
		remote string
		want   int
	}{
		{"127.0.0.1:5000", http.StatusOK},
		{"10.1.2.3:5000", http.StatusOK},
		{"192.168.0.9:5000", http.StatusOK},
		{"169.254.0.1:5000", http.StatusOK},
		{"203.0.113.7:5000", http.StatusForbidden},
		{"not-an-ip:5000", http.StatusForbidden},
	}
	for _, tc := range tests {
		t.Run(tc.remote, func(t *testing.T) {
			r := httptest.NewRequest("GET", "/healthz", nil)
			r.RemoteAddr = tc.remote
			w := httptest.NewRecorder()
			h.ServeHTTP(w, r)
			if w.Code != tc.want {
				t.Errorf("status = %d, want %d", w.Code, tc.want)
			}
		})
	}
}
