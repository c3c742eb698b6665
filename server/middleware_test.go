package server

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestClientKey(t *testing.T) {
	tests := []struct {
		name       string
		remoteAddr string
		forwarded  string
		want       string
	}{
		{"remote addr with port", "10.0.0.5:54321", "", "10.0.0.5"},
		{"forwarded single", "10.0.0.5:54321", "203.0.113.7", "203.0.113.7"},
		{"forwarded chain takes first", "10.0.0.5:54321", "203.0.113.7, 10.0.0.1", "203.0.113.7"},
		{"forwarded with whitespace", "10.0.0.5:54321", "  203.0.113.7  ,10.0.0.1", "203.0.113.7"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/groups", nil)
			r.RemoteAddr = tt.remoteAddr
			if tt.forwarded != "" {
				r.Header.Set("X-Forwarded-For", tt.forwarded)
			}
			if got := clientKey(r); got != tt.want {
				t.Errorf("clientKey() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestThrottleMiddleware(t *testing.T) {
	limiter := newSlidingWindow(2, time.Minute)
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	h := throttleMiddleware(next, limiter, true)

	do := func() *httptest.ResponseRecorder {
		r := httptest.NewRequest(http.MethodGet, "/groups", nil)
		r.RemoteAddr = "192.0.2.1:1234"
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, r)
		return rec
	}

	first := do()
	if first.Code != http.StatusOK {
		t.Fatalf("first request status = %d, want 200", first.Code)
	}
	if got := first.Header().Get("X-RateLimit-Limit"); got != "2" {
		t.Errorf("X-RateLimit-Limit = %q, want \"2\"", got)
	}
	if got := first.Header().Get("X-RateLimit-Remaining"); got != "1" {
		t.Errorf("X-RateLimit-Remaining = %q, want \"1\"", got)
	}

	if second := do(); second.Code != http.StatusOK {
		t.Fatalf("second request status = %d, want 200", second.Code)
	}

	third := do()
	if third.Code != http.StatusTooManyRequests {
		t.Fatalf("third request status = %d, want 429", third.Code)
	}
	if got := third.Header().Get("Retry-After"); got != "60" {
		t.Errorf("Retry-After = %q, want \"60\"", got)
	}
	if got := third.Header().Get("X-RateLimit-Remaining"); got != "0" {
		t.Errorf("X-RateLimit-Remaining on rejection = %q, want \"0\"", got)
	}
}

func TestThrottleMiddlewareDisabled(t *testing.T) {
	limiter := newSlidingWindow(1, time.Minute)
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	h := throttleMiddleware(next, limiter, false)

	for i := 0; i < 3; i++ {
		r := httptest.NewRequest(http.MethodGet, "/groups", nil)
		r.RemoteAddr = "192.0.2.1:1234"
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, r)
		if rec.Code != http.StatusOK {
			t.Fatalf("request %d status = %d with limiter disabled, want 200", i+1, rec.Code)
		}
	}
}

func TestCORSPermissive(t *testing.T) {
	cfg := &corsConfig{permissive: true}
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	h := withCORSConfig(next, cfg)

	r := httptest.NewRequest(http.MethodGet, "/groups", nil)
	r.Header.Set("Origin", "https://example.com")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, r)

	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "*" {
		t.Errorf("Access-Control-Allow-Origin = %q, want \"*\"", got)
	}
}

func TestCORSRestricted(t *testing.T) {
	cfg := &corsConfig{
		permissive:     false,
		allowedOrigins: []string{"https://app.example.com", "*.trusted.io"},
	}
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	h := withCORSConfig(next, cfg)

	tests := []struct {
		origin string
		want   string
	}{
		{"https://app.example.com", "https://app.example.com"},
		{"https://api.trusted.io", "https://api.trusted.io"},
		{"https://evil.example.org", ""},
	}
	for _, tt := range tests {
		r := httptest.NewRequest(http.MethodGet, "/groups", nil)
		r.Header.Set("Origin", tt.origin)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, r)
		if got := rec.Header().Get("Access-Control-Allow-Origin"); got != tt.want {
			t.Errorf("origin %q: Access-Control-Allow-Origin = %q, want %q", tt.origin, got, tt.want)
		}
	}
}

func TestCORSPreflight(t *testing.T) {
	cfg := &corsConfig{permissive: true}
	called := false
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	})
	h := withCORSConfig(next, cfg)

	r := httptest.NewRequest(http.MethodOptions, "/groups", nil)
	r.Header.Set("Origin", "https://example.com")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, r)

	if rec.Code != http.StatusNoContent {
		t.Errorf("preflight status = %d, want 204", rec.Code)
	}
	if called {
		t.Error("preflight request reached the next handler")
	}
}
