// Package proxy rotates outbound proxies between scrape sessions.
package proxy

import (
	"strings"
	"sync"
	"time"
)

// DefaultCooldown is how long a failed proxy is skipped
const DefaultCooldown = 5 * time.Minute

// Rotator hands out proxies round-robin, skipping ones that failed recently.
// A nil or empty Rotator means "connect directly".
type Rotator struct {
	mu       sync.Mutex
	proxies  []string
	next     int
	benched  map[string]time.Time
	cooldown time.Duration
	now      func() time.Time
}

// NewRotator creates a Rotator over proxies. Blank entries are dropped.
func NewRotator(proxies []string, cooldown time.Duration) *Rotator {
	if cooldown <= 0 {
		cooldown = DefaultCooldown
	}
	clean := make([]string, 0, len(proxies))
	for _, p := range proxies {
		if p = strings.TrimSpace(p); p != "" {
			clean = append(clean, p)
		}
	}
	return &Rotator{
		proxies:  clean,
		benched:  make(map[string]time.Time),
		cooldown: cooldown,
		now:      time.Now,
	}
}

// Len returns the number of configured proxies
func (r *Rotator) Len() int {
	if r == nil {
		return 0
	}
	return len(r.proxies)
}

// Next returns the next usable proxy, or "" when none is configured.
// When every proxy is benched the rotation continues anyway; a degraded
// proxy beats a stalled batch.
func (r *Rotator) Next() string {
	if r.Len() == 0 {
		return ""
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	for i := 0; i < len(r.proxies); i++ {
		p := r.proxies[r.next]
		r.next = (r.next + 1) % len(r.proxies)

		since, benched := r.benched[p]
		if !benched {
			return p
		}
		if now.Sub(since) >= r.cooldown {
			delete(r.benched, p)
			return p
		}
	}

	p := r.proxies[r.next]
	r.next = (r.next + 1) % len(r.proxies)
	return p
}

// MarkFailed benches proxy for the cooldown period
func (r *Rotator) MarkFailed(proxy string) {
	if r == nil || proxy == "" {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.benched[proxy] = r.now()
}

// MarkHealthy clears a proxy's failure record
func (r *Rotator) MarkHealthy(proxy string) {
	if r == nil || proxy == "" {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.benched, proxy)
}
