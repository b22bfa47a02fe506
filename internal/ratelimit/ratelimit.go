// Package ratelimit caps how many captures a single client may post per
// window. The listener is loopback-only, so "client" is the remote port's
// host; the guard exists to stop a stuck hotkey client from flooding the inbox.
package ratelimit

import (
	"context"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/ryan-winkler/catch/internal/httputil"
)

// Limiter is a per-client fixed-window limiter.
type Limiter struct {
	mu       sync.Mutex
	visitors map[string]*visitor
	rate     int           // requests per window
	window   time.Duration // window duration
	enabled  bool
	logger   *slog.Logger
}

type visitor struct {
	tokens    int
	lastReset time.Time
}

// New creates a limiter allowing rate requests per window.
// Pass rate=0 to disable limiting entirely.
func New(rate int, window time.Duration, logger *slog.Logger) *Limiter {
	return &Limiter{
		visitors: make(map[string]*visitor),
		rate:     rate,
		window:   window,
		enabled:  rate > 0,
		logger:   logger,
	}
}

// Enabled reports whether the limiter enforces anything.
func (l *Limiter) Enabled() bool {
	return l != nil && l.enabled
}

// Allow checks if a request from the given address is allowed.
func (l *Limiter) Allow(addr string) bool {
	if !l.Enabled() {
		return true
	}

	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		host = addr
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	v, exists := l.visitors[host]
	now := time.Now()

	if !exists || now.Sub(v.lastReset) >= l.window {
		l.visitors[host] = &visitor{tokens: l.rate - 1, lastReset: now}
		return true
	}

	if v.tokens > 0 {
		v.tokens--
		return true
	}

	return false
}

// Middleware rejects POST requests over the limit with 429.
// GET requests (liveness probes) are never limited.
func (l *Limiter) Middleware(next http.Handler) http.Handler {
	if !l.Enabled() {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost && !l.Allow(r.RemoteAddr) {
			httputil.Error(w, r, l.logger, http.StatusTooManyRequests, "rate limit exceeded",
				"WHY: client exceeded CATCH_RATE_LIMIT captures per minute")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// Cleanup removes stale visitors.
func (l *Limiter) Cleanup() {
	l.mu.Lock()
	defer l.mu.Unlock()
	cutoff := time.Now().Add(-l.window * 2)
	for host, v := range l.visitors {
		if v.lastReset.Before(cutoff) {
			delete(l.visitors, host)
		}
	}
}

// Run calls Cleanup every interval until ctx is done.
func (l *Limiter) Run(ctx context.Context, interval time.Duration) {
	if !l.Enabled() {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			l.Cleanup()
		}
	}
}
