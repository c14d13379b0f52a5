package serve

// Option customizes a Handler.
type Option func(*Handler)

// WithObserver wires pipeline metrics.
func WithObserver(o Observer) Option {
	return func(h *Handler) {
		if o != nil {
			h.metrics = o
		}
	}
}

// WithCacheMaxAge sets the Cache-Control max-age, in seconds, applied
// to cacheable responses.
func WithCacheMaxAge(seconds int) Option {
	return func(h *Handler) {
		if seconds >= 0 {
			h.cacheMaxAge = seconds
		}
	}
}

// WithRealm sets the Basic auth realm advertised on 401 responses.
func WithRealm(realm string) Option {
	return func(h *Handler) {
		if realm != "" {
			h.realm = realm
		}
	}
}

type nopObserver struct{}

func (nopObserver) IncSpaceMatched(string)        {}
func (nopObserver) IncPipelineError(string)       {}
func (nopObserver) IncTransform(string, bool)     {}
func (nopObserver) IncExec(bool)                  {}
func (nopObserver) ObserveExecDuration(float64)   {}
func (nopObserver) IncAuthDenied()                {}
func (nopObserver) IncNotModified()               {}
