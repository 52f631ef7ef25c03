package handler

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestSecurityHeaders_APIResponses(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/api/config", nil)
	rec := httptest.NewRecorder()
	SecurityHeaders(okHandler()).ServeHTTP(rec, req)

	headers := map[string]string{
		"X-Content-Type-Options":  "nosniff",
		"X-Frame-Options":         "DENY",
		"Referrer-Policy":         "no-referrer",
		"Content-Security-Policy": "default-src 'none'; frame-ancestors 'none'",
		"Cache-Control":           "no-store",
	}
	for name, want := range headers {
		if got := rec.Header().Get(name); got != want {
			t.Errorf("%s: want %q, got %q", name, want, got)
		}
	}
	if hsts := rec.Header().Get("Strict-Transport-Security"); !strings.Contains(hsts, "max-age=") {
		t.Errorf("HSTS missing max-age: %q", hsts)
	}
}

func TestSecurityHeaders_UploadsAreCacheable(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/uploads/1700000000000-42.pdf", nil)
	rec := httptest.NewRecorder()
	SecurityHeaders(okHandler()).ServeHTTP(rec, req)

	if got := rec.Header().Get("Cache-Control"); got != "" {
		t.Errorf("expected no Cache-Control for attachments, got %q", got)
	}
}

func TestSecurityHeaders_PassesThrough(t *testing.T) {
	called := false
	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
		w.WriteHeader(http.StatusTeapot)
	})

	rec := httptest.NewRecorder()
	SecurityHeaders(inner).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	if !called {
		t.Error("inner handler was not called")
	}
	if rec.Code != http.StatusTeapot {
		t.Errorf("expected 418, got %d", rec.Code)
	}
}

// fakeClock lets tests move the limiter's window.
type fakeClock struct{ t time.Time }

func (c *fakeClock) Now() time.Time          { return c.t }
func (c *fakeClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestLimiter(t *testing.T, max int) (*RateLimiter, *fakeClock) {
	t.Helper()
	clock := &fakeClock{t: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)}
	rl := NewRateLimiter(max)
	rl.now = clock.Now
	t.Cleanup(rl.Close)
	return rl, clock
}

func post(h http.Handler, path, remote, xff string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, nil)
	req.RemoteAddr = remote
	if xff != "" {
		req.Header.Set("X-Forwarded-For", xff)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestRateLimiter_BlocksOverLimit(t *testing.T) {
	rl, _ := newTestLimiter(t, 5)
	h := rl.Middleware(okHandler())

	for i := 0; i < 5; i++ {
		if rec := post(h, "/api/contact", "192.168.1.1:12345", ""); rec.Code != http.StatusOK {
			t.Fatalf("request %d: expected 200, got %d", i+1, rec.Code)
		}
	}
	rec := post(h, "/api/contact", "192.168.1.1:12345", "")
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429 on 6th request, got %d", rec.Code)
	}
	if rec.Header().Get("Retry-After") != "61" {
		t.Errorf("expected Retry-After 61, got %q", rec.Header().Get("Retry-After"))
	}

	var body map[string]string
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body["message"] != "Too many requests. Please try again later." {
		t.Errorf("unexpected body %v", body)
	}
}

func TestRateLimiter_WindowSlides(t *testing.T) {
	rl, clock := newTestLimiter(t, 2)
	h := rl.Middleware(okHandler())

	post(h, "/api/contact", "10.0.0.1:1", "")
	clock.Advance(30 * time.Second)
	post(h, "/api/contact", "10.0.0.1:1", "")
	if rec := post(h, "/api/contact", "10.0.0.1:1", ""); rec.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", rec.Code)
	}
	if got := post(h, "/api/contact", "10.0.0.1:1", "").Header().Get("Retry-After"); got != "31" {
		t.Errorf("expected Retry-After 31, got %q", got)
	}

	clock.Advance(31 * time.Second)
	if rec := post(h, "/api/contact", "10.0.0.1:1", ""); rec.Code != http.StatusOK {
		t.Errorf("first request left the window, expected 200, got %d", rec.Code)
	}
}

func TestRateLimiter_RoutesAreIndependent(t *testing.T) {
	rl, _ := newTestLimiter(t, 1)
	h := rl.Middleware(okHandler())

	post(h, "/api/create-payment-intent", "10.0.0.1:1", "")
	if rec := post(h, "/api/contact", "10.0.0.1:1", ""); rec.Code != http.StatusOK {
		t.Errorf("contact should have its own allowance, got %d", rec.Code)
	}
	if rec := post(h, "/api/create-payment-intent", "10.0.0.1:1", ""); rec.Code != http.StatusTooManyRequests {
		t.Errorf("expected 429 on second donation attempt, got %d", rec.Code)
	}
}

func TestRateLimiter_RouteFromMuxPattern(t *testing.T) {
	rl, _ := newTestLimiter(t, 1)
	mux := http.NewServeMux()
	mux.Handle("POST /uploads-test/{id}", rl.Middleware(okHandler()))

	post(mux, "/uploads-test/1", "10.0.0.1:1", "")
	if rec := post(mux, "/uploads-test/2", "10.0.0.1:1", ""); rec.Code != http.StatusTooManyRequests {
		t.Errorf("paths under one pattern share a window, got %d", rec.Code)
	}
}

func TestRateLimiter_DifferentIPsAreIndependent(t *testing.T) {
	rl, _ := newTestLimiter(t, 1)
	h := rl.Middleware(okHandler())

	post(h, "/api/contact", "10.0.0.1:1234", "")
	if rec := post(h, "/api/contact", "10.0.0.2:1234", ""); rec.Code != http.StatusOK {
		t.Errorf("different IP should not be rate limited, got %d", rec.Code)
	}
}

func TestRateLimiter_XForwardedFor_SpoofedLeftmostIgnored(t *testing.T) {
	rl, _ := newTestLimiter(t, 1)
	h := rl.Middleware(okHandler())

	if rec := post(h, "/api/contact", "10.0.0.99:1234", "203.0.113.50"); rec.Code != http.StatusOK {
		t.Fatalf("first request should succeed, got %d", rec.Code)
	}
	if rec := post(h, "/api/contact", "10.0.0.99:1234", "9.9.9.9, 203.0.113.50"); rec.Code != http.StatusTooManyRequests {
		t.Errorf("spoofed leftmost IP should not bypass rate limit, got %d", rec.Code)
	}
}

func TestRateLimiter_NoTrustedProxies(t *testing.T) {
	rl, _ := newTestLimiter(t, 1)
	rl.WithTrustedProxies(0)
	h := rl.Middleware(okHandler())

	post(h, "/api/contact", "10.0.0.1:1", "203.0.113.1")
	if rec := post(h, "/api/contact", "10.0.0.1:1", "203.0.113.2"); rec.Code != http.StatusTooManyRequests {
		t.Errorf("X-Forwarded-For must be ignored without trusted proxies, got %d", rec.Code)
	}
}

func TestRateLimiter_SweepDropsIdleClients(t *testing.T) {
	rl, clock := newTestLimiter(t, 3)
	h := rl.Middleware(okHandler())

	post(h, "/api/contact", "10.0.0.1:1", "")
	post(h, "/api/contact", "10.0.0.2:1", "")
	clock.Advance(2 * time.Minute)
	post(h, "/api/contact", "10.0.0.3:1", "")
	rl.sweep()

	rl.mu.Lock()
	defer rl.mu.Unlock()
	if len(rl.windows) != 1 {
		t.Errorf("expected 1 active client after sweep, got %d", len(rl.windows))
	}
}
