package httpserver

import (
	"net/http"

	"github.com/j4m-solutions/rudiweb/internal/health"
	"github.com/j4m-solutions/rudiweb/internal/httpmw"
	"github.com/j4m-solutions/rudiweb/internal/log"
)

type Options struct {
	Logger       log.Logger
	Host         string
	Port         int
	UseRecoverMW bool
	OnPanic      func()

	// ContentHandler serves everything that is not an ops route.
	ContentHandler http.Handler

	MetricsMW   func(http.Handler) http.Handler
	RateLimitMW func(http.Handler) http.Handler

	ClientIPOpts httpmw.ClientIPOptions

	Health    health.Probe
	Readiness health.Probe
}
