// Package rate provides per-host request throttling on top of golang.org/x/time/rate.
// Each remote host gets its own token bucket so that a slow or strict registry
// never throttles requests bound for another one.
package rate

import (
	"context"
	"net/url"
	"strings"
	"sync"

	xrate "golang.org/x/time/rate"
)

// HostLimiter keeps one token bucket per host.
// A zero or negative rate disables limiting entirely.
type HostLimiter struct {
	rps   float64
	burst int

	mu       sync.Mutex
	limiters map[string]*xrate.Limiter
}

// NewHostLimiter creates a limiter allowing rps requests per second per host,
// with the given burst size.
//
// Example:
//
//	limiter := rate.NewHostLimiter(5, 1) // 5 req/s per registry host
func NewHostLimiter(rps float64, burst int) *HostLimiter {
	if burst <= 0 {
		burst = 1
	}
	return &HostLimiter{
		rps:      rps,
		burst:    burst,
		limiters: make(map[string]*xrate.Limiter),
	}
}

// Enabled reports whether the limiter throttles at all.
func (h *HostLimiter) Enabled() bool {
	if h == nil {
		return false
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.rps > 0
}

// Wait blocks until a request to host may proceed or ctx is done.
func (h *HostLimiter) Wait(ctx context.Context, host string) error {
	if !h.Enabled() {
		return nil
	}
	return h.limiter(host).Wait(ctx)
}

// WaitURL is Wait keyed by the host of rawURL.
func (h *HostLimiter) WaitURL(ctx context.Context, rawURL string) error {
	if !h.Enabled() {
		return nil
	}
	return h.Wait(ctx, HostOf(rawURL))
}

// Allow reports whether a request to host may proceed immediately,
// consuming a token if so.
func (h *HostLimiter) Allow(host string) bool {
	if !h.Enabled() {
		return true
	}
	return h.limiter(host).Allow()
}

// SetRate changes the rate for every existing and future host bucket.
func (h *HostLimiter) SetRate(rps float64) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.rps = rps
	for _, l := range h.limiters {
		l.SetLimit(xrate.Limit(rps))
	}
}

// Hosts returns the number of hosts with an allocated bucket.
func (h *HostLimiter) Hosts() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.limiters)
}

func (h *HostLimiter) limiter(host string) *xrate.Limiter {
	host = strings.ToLower(host)

	h.mu.Lock()
	defer h.mu.Unlock()

	l, ok := h.limiters[host]
	if !ok {
		l = xrate.NewLimiter(xrate.Limit(h.rps), h.burst)
		h.limiters[host] = l
	}
	return l
}

// HostOf returns the lowercased host (without port) of rawURL,
// or rawURL itself when it does not parse.
func HostOf(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || u.Hostname() == "" {
		return strings.ToLower(rawURL)
	}
	return strings.ToLower(u.Hostname())
}
