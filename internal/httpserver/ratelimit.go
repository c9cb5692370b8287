// internal/httpserver/ratelimit.go
//
// Per-IP token-bucket rate limiting for all HTTP entry points, including
// the WebSocket upgrade. Limits come from RATE_LIMIT_RPS/RATE_LIMIT_BURST.

package httpserver

import (
	"net/http"
	"os"
	"strconv"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

type ipLimiter struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	rps      int
	burst    int
}

func newIPLimiter() *ipLimiter {
	return &ipLimiter{
		limiters: make(map[string]*rate.Limiter),
		rps:      envInt("RATE_LIMIT_RPS", 10),
		burst:    envInt("RATE_LIMIT_BURST", 20),
	}
}

func (l *ipLimiter) get(key string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()
	if lim, ok := l.limiters[key]; ok {
		return lim
	}
	lim := rate.NewLimiter(rate.Every(time.Second/time.Duration(l.rps)), l.burst)
	l.limiters[key] = lim
	return lim
}

// rateLimitByIP rejects clients exceeding their per-IP budget with 429.
// Runs after chi's RealIP middleware so RemoteAddr is the real client.
func rateLimitByIP() func(http.Handler) http.Handler {
	lim := newIPLimiter()
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !lim.get(r.RemoteAddr).Allow() {
				http.Error(w, `{"error":"too many requests"}`, http.StatusTooManyRequests)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func envInt(k string, def int) int {
	if v := os.Getenv(k); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}
