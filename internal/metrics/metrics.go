package metrics

import (
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/j4m-solutions/rudiweb/internal/version"
)

type ServerMetrics struct {
	reg                    *prometheus.Registry
	handler                http.Handler
	inflight               prometheus.Gauge
	reqTotal               *prometheus.CounterVec
	reqDur                 *prometheus.HistogramVec
	respBytes              *prometheus.HistogramVec
	httpPanicTotal         prometheus.Counter
	buildInfo              *prometheus.GaugeVec
	ratelimitDeniedTotal   prometheus.Counter
	ratelimitCapacityTotal prometheus.Counter

	errorsTotal *prometheus.CounterVec

	profilingActive prometheus.Gauge

	// content pipeline metrics
	spaceMatchedTotal  *prometheus.CounterVec
	pipelineErrorTotal *prometheus.CounterVec
	transformTotal     *prometheus.CounterVec
	execTotal          *prometheus.CounterVec
	execDuration       prometheus.Histogram
	authDeniedTotal    prometheus.Counter
	notModifiedTotal   prometheus.Counter
}

// New returns a fresh registry + standard collectors + HTTP metrics
// safe labels only (method, route, code) to avoid path/cardinality explosions
func New() *ServerMetrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	m := &ServerMetrics{
		inflight: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "http_inflight_requests",
			Help: "Current number of in-flight HTTP requests",
		}),
		reqTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total HTTP requests by method, route, and status",
		}, []string{"method", "route", "status"}),
		reqDur: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Request latency by method and route",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}, []string{"method", "route"}),
		respBytes: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_response_size_bytes",
			Help:    "Response size by method and route",
			Buckets: []float64{256, 1024, 4096, 16384, 65536, 262144, 1048576, 4194304, 16777216, 52428800},
		}, []string{"method", "route"}),
		httpPanicTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "http_panic_total",
			Help: "Total number of recovered httpserver panics",
		}),
		buildInfo: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "build_info",
			Help: "Build metadata (value is always 1)",
		}, []string{"app", "version", "commit", "build_date", "vcs_dirty", "go_version"}),
		ratelimitDeniedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "http_requests_rate_limited_total",
			Help: "Total requests rejected by rate limiter",
		}),
		ratelimitCapacityTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "http_requests_rate_limited_capacity_total",
			Help: "Total number of times rate limiter capacity reached",
		}),
		errorsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_errors_total",
			Help: "Total 5xx HTTP server errors by method and route (SLI)",
		}, []string{"method", "route"}),
		profilingActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "profiling_active",
			Help: "Whether continuous profiling is active (1) or disabled/failed (0)",
		}),
		spaceMatchedTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "content_space_matched_total",
			Help: "Total requests dispatched per serving space",
		}, []string{"space"}),
		pipelineErrorTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "content_pipeline_errors_total",
			Help: "Total content pipeline failures by kind",
		}, []string{"kind"}),
		transformTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "content_transform_total",
			Help: "Total transformer executions by transformer and outcome",
		}, []string{"transformer", "status"}),
		execTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "content_exec_total",
			Help: "Total executable content runs by outcome",
		}, []string{"status"}),
		execDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "content_exec_duration_seconds",
			Help:    "Executable content run time",
			Buckets: []float64{0.005, 0.025, 0.1, 0.5, 1, 2.5, 5, 10, 30},
		}),
		authDeniedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "access_denied_total",
			Help: "Total requests rejected by the access gate",
		}),
		notModifiedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "content_not_modified_total",
			Help: "Total conditional requests answered 304 without loading content",
		}),
	}
	reg.MustRegister(
		m.inflight,
		m.reqTotal,
		m.reqDur,
		m.respBytes,
		m.httpPanicTotal,
		m.buildInfo,
		m.ratelimitDeniedTotal,
		m.ratelimitCapacityTotal,
		m.errorsTotal,
		m.profilingActive,
		m.spaceMatchedTotal,
		m.pipelineErrorTotal,
		m.transformTotal,
		m.execTotal,
		m.execDuration,
		m.authDeniedTotal,
		m.notModifiedTotal,
	)

	m.handler = promhttp.HandlerFor(reg, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
	})
	m.reg = reg
	return m
}

func (m *ServerMetrics) IncHttpPanic() {
	m.httpPanicTotal.Inc()
}

func (m *ServerMetrics) Handler() http.Handler {
	return m.handler
}

// set once at startup.
func (m *ServerMetrics) SetBuildInfoFromVersion(vi *version.Info) {
	dirty := "unknown"
	if vi.VCSDirty != nil {
		dirty = strconv.FormatBool(*vi.VCSDirty)
	}
	m.buildInfo.With(prometheus.Labels{
		"app":        vi.AppName,
		"version":    vi.Version,
		"commit":     vi.Commit,
		"build_date": vi.BuildDate,
		"go_version": vi.GoVersion,
		"vcs_dirty":  dirty,
	}).Set(1)
}

func (m *ServerMetrics) IncRateLimitDenied() {
	m.ratelimitDeniedTotal.Inc()
}

func (m *ServerMetrics) IncRateLimitCapacity() {
	m.ratelimitCapacityTotal.Inc()
}

func (m *ServerMetrics) SetProfilingActive(active bool) {
	if active {
		m.profilingActive.Set(1)
	} else {
		m.profilingActive.Set(0)
	}
}

func (m *ServerMetrics) IncSpaceMatched(space string) {
	m.spaceMatchedTotal.WithLabelValues(space).Inc()
}

func (m *ServerMetrics) IncPipelineError(kind string) {
	m.pipelineErrorTotal.WithLabelValues(kind).Inc()
}

func (m *ServerMetrics) IncTransform(transformer string, ok bool) {
	status := "ok"
	if !ok {
		status = "error"
	}
	m.transformTotal.WithLabelValues(transformer, status).Inc()
}

func (m *ServerMetrics) IncExec(ok bool) {
	status := "ok"
	if !ok {
		status = "error"
	}
	m.execTotal.WithLabelValues(status).Inc()
}

func (m *ServerMetrics) ObserveExecDuration(seconds float64) {
	m.execDuration.Observe(seconds)
}

func (m *ServerMetrics) IncAuthDenied() {
	m.authDeniedTotal.Inc()
}

func (m *ServerMetrics) IncNotModified() {
	m.notModifiedTotal.Inc()
}
