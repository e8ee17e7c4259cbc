package middleware

import (
	"net/http"
	"sync"
	"time"
)

type client struct {
	count    int
	lastSeen time.Time
}

// RateLimiter caps requests per remote address in a fixed window. It fronts
// the auth routes, where brute-forcing credentials is the concern.
type RateLimiter struct {
	mu      sync.Mutex
	clients map[string]*client
	limit   int
	window  time.Duration
}

func NewRateLimiter(limit int, window time.Duration) *RateLimiter {
	rl := &RateLimiter{
		clients: make(map[string]*client),
		limit:   limit,
		window:  window,
	}

	// Evict idle entries so the map does not grow with every address seen.
	go func() {
		for {
			time.Sleep(window)
			rl.mu.Lock()
			for addr, c := range rl.clients {
				if time.Since(c.lastSeen) > window {
					delete(rl.clients, addr)
				}
			}
			rl.mu.Unlock()
		}
	}()

	return rl
}

func (rl *RateLimiter) allow(addr string, now time.Time) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	c, ok := rl.clients[addr]
	if !ok || now.Sub(c.lastSeen) > rl.window {
		rl.clients[addr] = &client{count: 1, lastSeen: now}
		return true
	}

	c.count++
	c.lastSeen = now
	return c.count <= rl.limit
}

func (rl *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !rl.allow(r.RemoteAddr, time.Now()) {
			writeError(w, http.StatusTooManyRequests, "RATE_LIMITED", "Too many requests. Please try again later.", r)
			return
		}
		next.ServeHTTP(w, r)
	})
}
