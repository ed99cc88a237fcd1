// internal/ratelimit/limiter.go
package ratelimit

import (
	"context"
	"net/url"
	"sync"

	"golang.org/x/time/rate"
)

// HostLimiter throttles navigations per host with a token bucket. It is
// shared by every session in the process, so it also bounds concurrent
// scrapes started by independent callers.
type HostLimiter struct {
	mu      sync.Mutex
	buckets map[string]*rate.Limiter
	perHost rate.Limit
	burst   int
}

// NewHostLimiter creates a limiter allowing rps requests per second per host
func NewHostLimiter(rps float64, burst int) *HostLimiter {
	if rps <= 0 {
		rps = 1.0
	}
	if burst <= 0 {
		burst = 1
	}

	return &HostLimiter{
		buckets: make(map[string]*rate.Limiter),
		perHost: rate.Limit(rps),
		burst:   burst,
	}
}

// Wait blocks until a request to rawURL may proceed or ctx is done.
// URLs without a host are not throttled.
func (h *HostLimiter) Wait(ctx context.Context, rawURL string) error {
	if h == nil {
		return nil
	}
	host := hostOf(rawURL)
	if host == "" {
		return nil
	}
	return h.bucket(host).Wait(ctx)
}

func (h *HostLimiter) bucket(host string) *rate.Limiter {
	h.mu.Lock()
	defer h.mu.Unlock()

	lim, ok := h.buckets[host]
	if !ok {
		lim = rate.NewLimiter(h.perHost, h.burst)
		h.buckets[host] = lim
	}
	return lim
}

func hostOf(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return u.Host
}
