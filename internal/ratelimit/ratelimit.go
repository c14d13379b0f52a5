// Package ratelimit rejects requests over a per-IP rate with 429. It
// is a single-instance, in-memory limiter: it caps what one address
// can do to this server and surfaces abuse in metrics and logs, but
// distributed attacks need filtering upstream.
package ratelimit

import (
	"context"
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/j4m-solutions/rudiweb/internal/httpmw"
)

// visitor is one tracked address.
type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
	// logged marks that the first-denial hook already fired; it resets
	// when the entry is evicted and recreated
	logged bool
}

// IPLimiter holds per-IP token buckets with background eviction of
// idle entries.
type IPLimiter struct {
	mu       sync.Mutex
	visitors map[string]*visitor

	perSecond rate.Limit
	burst     int

	// idle entries older than ttl are evicted
	ttl time.Duration

	// maxVisitors caps the map so a wide scan cannot exhaust memory;
	// new addresses are rejected once the cap is hit
	maxVisitors int

	// OnFirstDenied fires once per visitor on their first denial, so a
	// flood produces one log line instead of thousands.
	OnFirstDenied func(ip string)

	// OnDenied fires on every denied request.
	OnDenied func(ip string)

	// OnCapacity fires each time a new visitor is turned away at the cap.
	OnCapacity func()
}

type Option func(*IPLimiter)

// WithRate sets the refill rate and bucket capacity. WithRate(10, 50)
// admits a burst of 50, refilling 10 tokens per second.
func WithRate(perSecond float64, burst int) Option {
	return func(l *IPLimiter) {
		l.perSecond = rate.Limit(perSecond)
		l.burst = burst
	}
}

// WithTTL sets how long an idle address stays tracked.
func WithTTL(d time.Duration) Option {
	return func(l *IPLimiter) { l.ttl = d }
}

// WithMaxVisitors caps how many distinct addresses are tracked at once.
func WithMaxVisitors(n int) Option {
	return func(l *IPLimiter) { l.maxVisitors = n }
}

func WithOnFirstDenied(fn func(ip string)) Option {
	return func(l *IPLimiter) { l.OnFirstDenied = fn }
}

func WithOnDenied(fn func(ip string)) Option {
	return func(l *IPLimiter) { l.OnDenied = fn }
}

func WithOnCapacity(fn func()) Option {
	return func(l *IPLimiter) { l.OnCapacity = fn }
}

// New builds a limiter and starts its eviction goroutine, which stops
// when ctx is canceled.
func New(ctx context.Context, opts ...Option) *IPLimiter {
	l := &IPLimiter{
		visitors:    make(map[string]*visitor),
		perSecond:   10,
		burst:       30,
		ttl:         5 * time.Minute,
		maxVisitors: 50000,
	}
	for _, o := range opts {
		o(l)
	}
	go l.evictLoop(ctx)
	return l
}

// allow reports whether ip is within its budget, creating the visitor
// on first sight. Hooks run outside the lock.
func (l *IPLimiter) allow(ip string) bool {
	l.mu.Lock()
	v, ok := l.visitors[ip]
	if !ok {
		if l.maxVisitors > 0 && len(l.visitors) >= l.maxVisitors {
			l.mu.Unlock()
			if l.OnCapacity != nil {
				l.OnCapacity()
			}
			return false
		}
		v = &visitor{limiter: rate.NewLimiter(l.perSecond, l.burst)}
		l.visitors[ip] = v
	}
	v.lastSeen = time.Now()
	allowed := v.limiter.Allow()
	first := !allowed && !v.logged
	if first {
		v.logged = true
	}
	l.mu.Unlock()

	if !allowed {
		if first && l.OnFirstDenied != nil {
			l.OnFirstDenied(ip)
		}
		if l.OnDenied != nil {
			l.OnDenied(ip)
		}
	}
	return allowed
}

// evictLoop drops visitors idle past the TTL. It ticks at ttl/2 so
// stale entries do not linger much past their deadline.
func (l *IPLimiter) evictLoop(ctx context.Context) {
	ticker := time.NewTicker(l.ttl / 2)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			l.mu.Lock()
			for ip, v := range l.visitors {
				if now.Sub(v.lastSeen) > l.ttl {
					delete(l.visitors, ip)
				}
			}
			l.mu.Unlock()
		}
	}
}

// Middleware rejects over-limit requests with 429. The client address
// comes from the httpmw ClientIP middleware, which must run further
// out in the chain.
func (l *IPLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip := httpmw.ClientIPFromContext(r.Context())
		if !l.allow(ip) {
			w.Header().Set("Content-Type", "application/json; charset=utf-8")
			w.Header().Set("Retry-After", "30")
			w.WriteHeader(http.StatusTooManyRequests)
			// no detail about limits or refill times for abusers
			w.Write([]byte(`{"error":"too many requests"}`))
			return
		}
		next.ServeHTTP(w, r)
	})
}
