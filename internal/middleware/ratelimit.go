// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package middleware

import (
	"context"
	"log/slog"
	"net"
	"net/http"
	"net/netip"
	"strconv"
	"strings"
	"sync"
	"time"
)

// Counter counts events per key in fixed windows. Incr returns the count
// for the current window including this event; the first event of a key
// opens a window of the given length.
type Counter interface {
	Incr(ctx context.Context, key string, window time.Duration) (int64, error)
}

// RateLimiter rejects clients that exceed limit requests per window. One
// limiter guards one scope (for example "login"); counters are keyed by
// scope and client IP so several limiters can share a Counter.
type RateLimiter struct {
	counter  Counter
	fallback Counter
	trusted  []netip.Prefix
	scope    string
	limit    int64
	window   time.Duration
}

// LimiterOption configures a RateLimiter.
type LimiterOption func(*RateLimiter)

// WithFallback counts in c whenever the main counter fails. Without one,
// a failing counter lets every request through.
func WithFallback(c Counter) LimiterOption {
	return func(rl *RateLimiter) { rl.fallback = c }
}

// WithTrustedProxies believes forwarding headers only on requests whose
// peer address falls in one of prefixes.
func WithTrustedProxies(prefixes []netip.Prefix) LimiterOption {
	return func(rl *RateLimiter) { rl.trusted = prefixes }
}

// NewRateLimiter creates a limiter over counter.
func NewRateLimiter(counter Counter, scope string, limit int, window time.Duration, opts ...LimiterOption) *RateLimiter {
	rl := &RateLimiter{counter: counter, scope: scope, limit: int64(limit), window: window}
	for _, opt := range opts {
		opt(rl)
	}
	return rl
}

// allow counts one request from client. When both counters fail the
// request goes through: a Valkey outage must not lock every role out.
func (rl *RateLimiter) allow(ctx context.Context, client string) bool {
	key := "ratelimit:" + rl.scope + ":" + client
	n, err := rl.counter.Incr(ctx, key, rl.window)
	if err != nil && rl.fallback != nil {
		slog.Warn("rate limit counter failed, counting locally", "scope", rl.scope, "error", err)
		n, err = rl.fallback.Incr(ctx, key, rl.window)
	}
	if err != nil {
		slog.Warn("rate limit counter failed", "scope", rl.scope, "error", err)
		return true
	}
	return n <= rl.limit
}

// Middleware rate-limits by client IP. Rejected requests get 429 with a
// Retry-After of one window.
func (rl *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !rl.allow(r.Context(), clientIP(r, rl.trusted)) {
			w.Header().Set("Retry-After", strconv.Itoa(int(rl.window.Seconds())))
			writeError(w, http.StatusTooManyRequests, "too many requests")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// clientIP returns the address a request came from. Forwarding headers
// count only when the peer is a trusted proxy; X-Forwarded-For is then
// read right to left and the first hop that is not itself trusted wins.
func clientIP(r *http.Request, trusted []netip.Prefix) string {
	host := r.RemoteAddr
	if h, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		host = h
	}
	peer, err := netip.ParseAddr(host)
	if err != nil || !isTrusted(peer, trusted) {
		return host
	}

	if xff := r.Header.Values("X-Forwarded-For"); len(xff) > 0 {
		hops := strings.Split(strings.Join(xff, ","), ",")
		client := peer
		for i := len(hops) - 1; i >= 0; i-- {
			hop, err := netip.ParseAddr(strings.TrimSpace(hops[i]))
			if err != nil {
				break
			}
			client = hop.Unmap()
			if !isTrusted(client, trusted) {
				break
			}
		}
		return client.String()
	}
	if xri, err := netip.ParseAddr(strings.TrimSpace(r.Header.Get("X-Real-IP"))); err == nil {
		return xri.Unmap().String()
	}
	return host
}

func isTrusted(addr netip.Addr, trusted []netip.Prefix) bool {
	addr = addr.Unmap()
	for _, p := range trusted {
		if p.Contains(addr) {
			return true
		}
	}
	return false
}

// MemoryCounter is a process-local Counter. The server falls back to it
// while Valkey is unreachable, so limits still hold per instance.
type MemoryCounter struct {
	mu      sync.Mutex
	windows map[string]*counterWindow
	now     func() time.Time
	stop    chan struct{}
}

type counterWindow struct {
	until time.Time
	count int64
}

// NewMemoryCounter creates a MemoryCounter and starts sweeping expired
// windows once a minute until Stop is called.
func NewMemoryCounter() *MemoryCounter {
	c := &MemoryCounter{
		windows: make(map[string]*counterWindow),
		now:     time.Now,
		stop:    make(chan struct{}),
	}
	go func() {
		ticker := time.NewTicker(time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				c.sweep()
			case <-c.stop:
				return
			}
		}
	}()
	return c
}

// Stop ends the sweeper.
func (c *MemoryCounter) Stop() {
	close(c.stop)
}

// Incr implements Counter.
func (c *MemoryCounter) Incr(_ context.Context, key string, window time.Duration) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	w, ok := c.windows[key]
	if !ok || !now.Before(w.until) {
		w = &counterWindow{until: now.Add(window)}
		c.windows[key] = w
	}
	w.count++
	return w.count, nil
}

func (c *MemoryCounter) sweep() {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	for key, w := range c.windows {
		if !now.Before(w.until) {
			delete(c.windows, key)
		}
	}
}
