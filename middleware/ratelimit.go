package middleware

import (
	"net"
	"net/http"
	"sync"
	"time"

	"anketa-network/models"
	"anketa-network/util"

	"golang.org/x/time/rate"
)

// RateLimiter keeps one token bucket per caller. Authenticated callers are keyed
// by user ID, anonymous ones by remote host. A bucket left idle long enough to
// refill completely is dropped, so the map only holds recently active callers.
type RateLimiter struct {
	mu        sync.Mutex
	buckets   map[string]*bucket
	limit     rate.Limit
	burst     int
	idle      time.Duration
	lastSweep time.Time
	now       func() time.Time
}

type bucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

const minIdleEviction = time.Minute

func NewRateLimiter(requestsPerSecond float64, burst int) *RateLimiter {
	idle := minIdleEviction
	if requestsPerSecond > 0 {
		refill := time.Duration(float64(burst) / requestsPerSecond * float64(time.Second))
		idle = max(idle, refill)
	}
	return &RateLimiter{
		buckets:   make(map[string]*bucket),
		limit:     rate.Limit(requestsPerSecond),
		burst:     burst,
		idle:      idle,
		lastSweep: time.Now(),
		now:       time.Now,
	}
}

// Allow reports whether the caller identified by key may proceed now.
func (rl *RateLimiter) Allow(key string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	if now.Sub(rl.lastSweep) >= rl.idle {
		rl.sweep(now)
	}
	b, ok := rl.buckets[key]
	if !ok {
		b = &bucket{limiter: rate.NewLimiter(rl.limit, rl.burst)}
		rl.buckets[key] = b
	}
	b.lastSeen = now
	return b.limiter.AllowN(now, 1)
}

// sweep drops buckets idle for at least rl.idle. Callers hold rl.mu.
func (rl *RateLimiter) sweep(now time.Time) {
	for key, b := range rl.buckets {
		if now.Sub(b.lastSeen) >= rl.idle {
			delete(rl.buckets, key)
		}
	}
	rl.lastSweep = now
}

// Middleware rejects callers that exceed their bucket with 429.
func (rl *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !rl.Allow(callerKey(r)) {
			w.Header().Set("Retry-After", "1")
			util.WriteErrorKind(w, models.KindRateLimited, "too many requests")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func callerKey(r *http.Request) string {
	if id, ok := UserIDFromContext(r.Context()); ok {
		return "user:" + id.String()
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	return "addr:" + host
}
