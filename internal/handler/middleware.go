package handler

import (
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"
)

const rateWindow = time.Minute

// SecurityHeaders adds response headers for a JSON API. Responses carry
// donor and requester data, so nothing is cached and nothing may be framed.
// Served attachments override Content-Security-Policy themselves.
func SecurityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("X-Frame-Options", "DENY")
		h.Set("Referrer-Policy", "no-referrer")
		h.Set("Content-Security-Policy", "default-src 'none'; frame-ancestors 'none'")
		h.Set("Strict-Transport-Security", "max-age=63072000; includeSubDomains")
		if strings.HasPrefix(r.URL.Path, "/api/") {
			h.Set("Cache-Control", "no-store")
		}
		next.ServeHTTP(w, r)
	})
}

// RateLimiter limits public form submissions per client and route with a
// sliding one-minute window. A donation attempt does not use up the
// contact form's allowance.
type RateLimiter struct {
	maxPerMinute      int
	trustedProxyCount int
	now               func() time.Time

	mu      sync.Mutex
	windows map[string][]time.Time
	stop    chan struct{}
	once    sync.Once
}

// NewRateLimiter creates a limiter allowing maxPerMinute requests per client
// and route. One trusted reverse proxy is assumed; see WithTrustedProxies.
func NewRateLimiter(maxPerMinute int) *RateLimiter {
	rl := &RateLimiter{
		maxPerMinute:      maxPerMinute,
		trustedProxyCount: 1,
		now:               time.Now,
		windows:           make(map[string][]time.Time),
		stop:              make(chan struct{}),
	}
	go rl.sweepLoop(5 * time.Minute)
	return rl
}

// WithTrustedProxies sets how many proxies append to X-Forwarded-For.
// Zero means the header is ignored and RemoteAddr is used.
func (rl *RateLimiter) WithTrustedProxies(n int) *RateLimiter {
	rl.trustedProxyCount = n
	return rl
}

// Close stops the background sweep.
func (rl *RateLimiter) Close() {
	rl.once.Do(func() { close(rl.stop) })
}

func (rl *RateLimiter) sweepLoop(every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-rl.stop:
			return
		case <-ticker.C:
			rl.sweep()
		}
	}
}

// sweep drops clients with no request inside the window.
func (rl *RateLimiter) sweep() {
	windowStart := rl.now().Add(-rateWindow)
	rl.mu.Lock()
	defer rl.mu.Unlock()
	for key, ts := range rl.windows {
		if ts = prune(ts, windowStart); len(ts) == 0 {
			delete(rl.windows, key)
		} else {
			rl.windows[key] = ts
		}
	}
}

// prune filters ts in place, keeping entries after windowStart.
func prune(ts []time.Time, windowStart time.Time) []time.Time {
	valid := ts[:0]
	for _, t := range ts {
		if t.After(windowStart) {
			valid = append(valid, t)
		}
	}
	return valid
}

// allow records a request for key and reports whether it is within the
// limit. When it is not, retryAfter is the time until the oldest request
// leaves the window.
func (rl *RateLimiter) allow(key string) (ok bool, retryAfter time.Duration) {
	now := rl.now()
	rl.mu.Lock()
	defer rl.mu.Unlock()

	ts := prune(rl.windows[key], now.Add(-rateWindow))
	if len(ts) >= rl.maxPerMinute {
		rl.windows[key] = ts
		return false, ts[0].Add(rateWindow).Sub(now)
	}
	rl.windows[key] = append(ts, now)
	return true, 0
}

// Middleware returns an http.Handler that enforces the limit.
func (rl *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip := rl.clientIP(r)
		route := r.Pattern
		if route == "" {
			route = r.Method + " " + r.URL.Path
		}

		ok, retryAfter := rl.allow(ip + "|" + route)
		if !ok {
			w.Header().Set("Retry-After", retryAfterSeconds(retryAfter))
			slog.Warn("rate limit exceeded", "ip", ip, "route", route)
			writeMessage(w, http.StatusTooManyRequests, "Too many requests. Please try again later.")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func retryAfterSeconds(d time.Duration) string {
	secs := int(d.Seconds()) + 1
	if secs < 1 {
		secs = 1
	}
	return strconv.Itoa(secs)
}

// clientIP reads the entry our own proxies appended to X-Forwarded-For.
// Entries to its left are client-controlled.
func (rl *RateLimiter) clientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" && rl.trustedProxyCount > 0 {
		parts := strings.Split(xff, ",")
		if idx := len(parts) - rl.trustedProxyCount; idx >= 0 {
			if ip := strings.TrimSpace(parts[idx]); ip != "" {
				return ip
			}
		}
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
