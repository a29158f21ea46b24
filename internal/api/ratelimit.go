package api

import (
	"net"
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// clientLimiter applies a token bucket per client IP. Idle entries are
// dropped so the map does not grow without bound.
type clientLimiter struct {
	mu      sync.Mutex
	clients map[string]*clientEntry
	limit   rate.Limit
	burst   int
}

type clientEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

func newClientLimiter(perSec float64, burst int) *clientLimiter {
	if burst <= 0 {
		burst = int(perSec)
		if burst < 1 {
			burst = 1
		}
	}
	cl := &clientLimiter{
		clients: make(map[string]*clientEntry),
		limit:   rate.Limit(perSec),
		burst:   burst,
	}
	go cl.cleanup()
	return cl
}

func (cl *clientLimiter) allow(ip string) bool {
	cl.mu.Lock()
	defer cl.mu.Unlock()
	e, ok := cl.clients[ip]
	if !ok {
		e = &clientEntry{limiter: rate.NewLimiter(cl.limit, cl.burst)}
		cl.clients[ip] = e
	}
	e.lastSeen = time.Now()
	return e.limiter.Allow()
}

func (cl *clientLimiter) cleanup() {
	for range time.Tick(time.Minute) {
		cl.mu.Lock()
		for ip, e := range cl.clients {
			if time.Since(e.lastSeen) > 3*time.Minute {
				delete(cl.clients, ip)
			}
		}
		cl.mu.Unlock()
	}
}

func (cl *clientLimiter) middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip, _, err := net.SplitHostPort(r.RemoteAddr)
		if err != nil {
			ip = r.RemoteAddr
		}
		if !cl.allow(ip) {
			writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
			return
		}
		next.ServeHTTP(w, r)
	})
}
