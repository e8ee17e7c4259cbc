package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestRateLimiter_Allow(t *testing.T) {
	rl := &RateLimiter{
		clients: make(map[string]*client),
		limit:   2,
		window:  time.Minute,
	}
	now := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)

	if !rl.allow("10.0.0.1:1234", now) {
		t.Fatal("first request must pass")
	}
	if !rl.allow("10.0.0.1:1234", now.Add(time.Second)) {
		t.Fatal("second request must pass")
	}
	if rl.allow("10.0.0.1:1234", now.Add(2*time.Second)) {
		t.Error("third request within the window must be rejected")
	}

	// Another address has its own counter.
	if !rl.allow("10.0.0.2:1234", now.Add(3*time.Second)) {
		t.Error("a different address must not share the counter")
	}

	// Past the window the counter resets.
	if !rl.allow("10.0.0.1:1234", now.Add(2*time.Minute)) {
		t.Error("request after the window must pass")
	}
}

func TestRateLimiter_Middleware(t *testing.T) {
	rl := NewRateLimiter(1, time.Minute)
	handler := rl.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", nil)
	req.RemoteAddr = "10.0.0.1:1234"

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("first request: status %d, want 200", rec.Code)
	}

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusTooManyRequests {
		t.Errorf("second request: status %d, want 429", rec.Code)
	}
}
