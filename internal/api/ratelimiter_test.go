package api

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
)

type staticLimiter struct {
	allow bool
	seen  []string
}

func (s *staticLimiter) Allow(client string) bool {
	s.seen = append(s.seen, client)
	return s.allow
}

func TestRateLimitMiddlewareBlocksWhenLimiterDenies(t *testing.T) {
	middleware := rateLimitMiddleware(&staticLimiter{allow: false}, http.HandlerFunc(func(_ http.ResponseWriter, _ *http.Request) {
		t.Fatalf("handler should not execute when rate limited")
	}))

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	middleware.ServeHTTP(rec, req)

	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", rec.Code)
	}
}

func TestRateLimitMiddlewarePassesClientAddress(t *testing.T) {
	limiter := &staticLimiter{allow: true}
	var called bool
	middleware := rateLimitMiddleware(limiter, http.HandlerFunc(func(_ http.ResponseWriter, _ *http.Request) {
		called = true
	}))

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "203.0.113.7:51234"
	req.Header.Set("X-Forwarded-For", "198.51.100.1")
	middleware.ServeHTTP(rec, req)

	if !called {
		t.Fatalf("expected handler to execute when limiter allows")
	}
	if len(limiter.seen) != 1 || limiter.seen[0] != "203.0.113.7" {
		t.Fatalf("expected limiter keyed by remote host, got %v", limiter.seen)
	}
}

func TestNewTokenBucketLimiterUsesDefaults(t *testing.T) {
	limiter := newTokenBucketLimiter(0, 0)
	if limiter == nil {
		t.Fatalf("expected limiter instance")
	}
	if !limiter.Allow("client") {
		t.Fatalf("expected first request to be allowed")
	}
}

func TestTokenBucketLimiterIsPerClient(t *testing.T) {
	limiter := newTokenBucketLimiter(1, 1)

	if !limiter.Allow("a") {
		t.Fatalf("expected first request from a to be allowed")
	}
	if limiter.Allow("a") {
		t.Fatalf("expected second request from a to be limited")
	}
	if !limiter.Allow("b") {
		t.Fatalf("expected b to have its own bucket")
	}
}

func TestTokenBucketLimiterResetsWhenFull(t *testing.T) {
	limiter := newTokenBucketLimiter(1, 1).(*clientLimiter)

	for i := 0; i < maxTrackedClients; i++ {
		limiter.Allow(fmt.Sprintf("client-%d", i))
	}
	limiter.Allow("overflow")

	if got := len(limiter.clients); got != 1 {
		t.Fatalf("expected table to be reset, got %d entries", got)
	}
}

func TestClientKey(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "[2001:db8::1]:443"
	if got := clientKey(req); got != "2001:db8::1" {
		t.Fatalf("expected IPv6 host, got %s", got)
	}

	req.RemoteAddr = "unix-socket"
	if got := clientKey(req); got != "unix-socket" {
		t.Fatalf("expected raw address fallback, got %s", got)
	}
}
