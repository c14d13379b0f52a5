package main

import (
	"context"
	"flag"
	"fmt"
	"net"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/j4m-solutions/rudiweb/internal/cfg"
	"github.com/j4m-solutions/rudiweb/internal/health"
	"github.com/j4m-solutions/rudiweb/internal/httpserver"
	"github.com/j4m-solutions/rudiweb/internal/log"
	"github.com/j4m-solutions/rudiweb/internal/metrics"
	"github.com/j4m-solutions/rudiweb/internal/opshttp"
	"github.com/j4m-solutions/rudiweb/internal/otelx"
	"github.com/j4m-solutions/rudiweb/internal/prof"
	"github.com/j4m-solutions/rudiweb/internal/ratelimit"
	"github.com/j4m-solutions/rudiweb/internal/serve"
	"github.com/j4m-solutions/rudiweb/internal/transform"
	v "github.com/j4m-solutions/rudiweb/internal/version"
)

const defaultSiteFile = "rudiweb.yaml"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	vi := v.Get()

	var conf cfg.App
	var showVersion bool

	// Parse config from flags and env
	cfg.Register(flag.CommandLine, &conf)
	flag.BoolVar(&showVersion, "V", false, "Print version+build information and exit")
	flag.Parse()

	if showVersion {
		fmt.Printf(
			"%s %s (commit=%s, build_date=%s, go=%s, dirty=%v)\n",
			vi.AppName, vi.Version, vi.Commit, vi.BuildDate, vi.GoVersion,
			vi.VCSDirty != nil && *vi.VCSDirty,
		)
		os.Exit(0)
	}

	// Fill in config from environment variables with prefix RUDI_ and validate
	cfg.FillFromEnv(flag.CommandLine, "RUDI_", func(format string, args ...any) {
		fmt.Fprintf(os.Stderr, format+"\n", args...)
	})

	if err := cfg.Validate(conf); err != nil {
		fmt.Fprintln(os.Stderr, "config error:", err)
		os.Exit(1)
	}

	// Site file is the positional argument; flags and env override it.
	sitePath := defaultSiteFile
	if flag.NArg() > 0 {
		sitePath = flag.Arg(0)
	}
	site, err := cfg.Load(sitePath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "site file error:", err)
		os.Exit(1)
	}
	site.MergeFlags(flag.CommandLine, &conf)
	if err := site.ValidateSite(); err != nil {
		fmt.Fprintln(os.Stderr, "site config error:", err)
		os.Exit(1)
	}

	// Setup logging
	lvl, err := log.ParseLevel(conf.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid log level %s: %v\n", conf.LogLevel, err)
		os.Exit(1)
	}
	stLvl, err := log.ParseLevel(conf.StacktraceLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid stacktrace level %s: %v\n", conf.StacktraceLevel, err)
		os.Exit(1)
	}
	lg, err := log.New(log.Options{
		App:             vi.AppName,
		Version:         vi.Version,
		Level:           lvl,
		StacktraceLevel: stLvl,
		JsonFormat:      conf.LogJSON,
	})
	if err != nil {
		fmt.Fprintln(os.Stderr, "logger init error:", err)
		os.Exit(1)
	}
	// no-op for slog/stderr, but here if we swap backends in the future to ensure any buffered logs are flushed on shutdown
	defer lg.Sync()
	L := lg.With("component", "server")
	ctx = log.WithContext(ctx, L)

	L.Info(ctx, "initializing application",
		"version", vi.Version,
		"commit", vi.Commit,
		"build_date", vi.BuildDate,
		"go_version", vi.GoVersion,
		"vcs_dirty", vi.VCSDirty,
		"site_file", sitePath,
		"host", site.Host,
		"http_port", site.Port,
		"admin_port", conf.AdminPort,
		"document_root", site.DocumentRoot,
		"rudi_root", site.RudiRoot,
		"require_authorization", site.RequireAuthorization,
		"cache_max_age", site.CacheMaxAge,
		"enable_pprof", conf.EnablePprof,
		"enable_pyroscope", conf.EnablePyroscope,
		"enable_tracing", conf.EnableTracing,
		"otlp_endpoint", conf.OTLPEndpoint,
		"pyro_server", conf.PyroServer,
		"pyro_tenant", conf.PyroTenantID,
		"trace_sample", conf.TraceSample,
	)

	// Setup pyroscope profiling
	stopProf, profErr := prof.Start(ctx, prof.Options{
		Enabled:       conf.EnablePyroscope,
		AppName:       vi.AppName,
		AuthToken:     "",
		ServerAddress: conf.PyroServer,
		TenantID:      conf.PyroTenantID,
		Tags: map[string]string{
			"app":       vi.AppName,
			"component": "server",
			"version":   vi.Version,
			"commit":    vi.Commit,
			"source":    "go-agent",
		},
	})
	if profErr != nil {
		L.Error(ctx, profErr, "pyroscope start failed", "pyro_server", conf.PyroServer)
	}
	defer func() { stopProf() }()

	// Setup otel for tracing
	// Insecure is true because we are only writing to a collector on localhost
	shutdownOTEL, err := otelx.Init(ctx, otelx.Options{
		Enabled:   conf.EnableTracing,
		Endpoint:  conf.OTLPEndpoint,
		Insecure:  true,
		Sample:    conf.TraceSample,
		Service:   vi.AppName,
		Component: "server",
		Version:   vi.Version,
	})
	if err != nil {
		L.Error(ctx, err, "otel init failed")
	}
	defer func() { _ = shutdownOTEL(context.Background()) }()

	// Setup metrics / admin listener
	m := metrics.New()
	m.SetBuildInfoFromVersion(&vi)
	m.SetProfilingActive(conf.EnablePyroscope && profErr == nil)

	// Access gate: configured accounts plus an optional ephemeral one.
	// The ephemeral password goes to stdout only, never to the log.
	gate := site.Gate()
	if site.CreateEphemeralAccount {
		user, password, err := gate.AddEphemeralAccount()
		if err != nil {
			L.Error(ctx, err, "failed to create ephemeral account")
			os.Exit(1)
		}
		fmt.Printf("ephemeral account: %s / %s\n", user, password)
		L.Info(ctx, "ephemeral account created", "user", user)
	}

	// Compile the space registry so bad patterns and unknown
	// transformers fail at startup, not on first request.
	registry, err := site.Registry()
	if err != nil {
		L.Error(ctx, err, "invalid space configuration")
		os.Exit(1)
	}
	L.Info(ctx, "transformers available", "names", strings.Join(transform.Names(), ","))
	for _, sp := range registry.Spaces() {
		L.Info(ctx, "space registered", "space", sp.Name, "kind", sp.Kind)
	}

	contentHandler := serve.New(site.Site(), registry, gate,
		serve.WithObserver(m),
		serve.WithCacheMaxAge(site.CacheMaxAge),
	)

	// setup toggle for server shutdown
	var gateProbe health.ShutdownGate
	readiness := gateProbe.Probe()

	// Setup rate limiter middleware for the content handler
	limiter := ratelimit.New(ctx,
		// increment prometheus counter on each denied request
		ratelimit.WithOnDenied(func(ip string) {
			m.IncRateLimitDenied()
		}),
		// only log the first time an ip is denied each time it is cleaned from the bucket
		ratelimit.WithOnFirstDenied(func(ip string) {
			L.Warn(ctx, "rate limit triggered", "ip", ip)
		}),
		ratelimit.WithOnCapacity(func() {
			m.IncRateLimitCapacity()
			L.Warn(ctx, "rate limit capacity reached, rejecting new visitors until some are evicted")
		}),
	)

	// start site http server
	siteHTTPStop, err := httpserver.Start(ctx, &httpserver.Options{
		Host:           site.Host,
		Port:           site.Port,
		Health:         health.Fixed(true, ""),
		Readiness:      readiness,
		ContentHandler: contentHandler,
		UseRecoverMW:   true,
		OnPanic:        m.IncHttpPanic,
		MetricsMW:      m.Middleware,
		RateLimitMW:    limiter.Middleware,
		Logger:         L,
	})
	if err != nil {
		L.Error(ctx, err, "failed to start site http listener")
		os.Exit(1)
	}
	defer func() { _ = siteHTTPStop(context.Background()) }()

	// start admin/ops listener to serve metrics, health checks, pprof and any future admin APIs
	// the listener binds all interfaces but middleware rejects connections from public ips
	// to prevent accidental exposure if the host firewall is misconfigured
	opsHTTPStop, err := opshttp.Start(ctx, L, &opshttp.Options{
		Port:        conf.AdminPort,
		Metrics:     m.Handler(),
		EnablePprof: conf.EnablePprof,
		Health:      health.Fixed(true, ""),
		Readiness:   readiness,
	})
	if err != nil {
		L.Error(ctx, err, "failed to start ops http listener")
		os.Exit(1)
	}
	defer func() { _ = opsHTTPStop(context.Background()) }()

	// notify systemd that we started successfully if started under systemd
	if err := notifySystemd(); err != nil {
		// log and dont exit, worst case systemd will kill the process after timeout
		L.Warn(ctx, "failed to notify systemd of readiness", "error", err)
	}

	L.Info(ctx, "startup complete", "addr", net.JoinHostPort(site.Host, fmt.Sprint(site.Port)))

	// wait for ctrl+c / sigterm
	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	L.Info(context.Background(), "shutdown signal received")

	// fail readiness checks so upstream health checks drain traffic first
	gateProbe.Set("draining")
	L.Info(context.Background(), "shutdown gate closed, draining")

	forceCh := make(chan os.Signal, 1)
	signal.Notify(forceCh, os.Interrupt, syscall.SIGTERM)
	select {
	case <-time.After(5 * time.Second):
		L.Info(context.Background(), "drain period complete")
	case <-forceCh:
		L.Warn(context.Background(), "second signal received, skipping drain")
	}
	signal.Stop(forceCh)

	if err := siteHTTPStop(shutdownCtx); err != nil {
		L.Error(context.Background(), err, "site http server shutdown")
	}

	if err := opsHTTPStop(shutdownCtx); err != nil {
		L.Error(context.Background(), err, "ops http server shutdown")
	}

	if err := shutdownOTEL(shutdownCtx); err != nil {
		L.Error(context.Background(), err, "otel shutdown")
	}

	stopProf()

	L.Info(context.Background(), "shutdown complete")
}

func notifySystemd() error {
	// systemd will set NOTIFY_SOCKET to a unix socket path if we were started under systemd with type=notify
	addr := os.Getenv("NOTIFY_SOCKET")
	if addr == "" {
		return fmt.Errorf("NOTIFY_SOCKET not set, skipping systemd notify")
	}
	conn, err := net.Dial("unixgram", addr)
	if err != nil {
		return fmt.Errorf("systemd notify failed: dial failed: %w", err)
	}
	conn.Write([]byte("READY=1"))
	if err := conn.Close(); err != nil {
		return fmt.Errorf("systemd notify failed: close failed: %w", err)
	}
	return nil
}
