package middleware

import (
	"fmt"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// RateLimitConfig sizes the per-client token bucket.
type RateLimitConfig struct {
	// RequestsPerSecond is the sustained refill rate.
	RequestsPerSecond float64
	// Burst caps how many requests one client may fire at once.
	Burst int
}

// staleClientAge is how long an idle client keeps its bucket before the
// janitor drops it.
const staleClientAge = 10 * time.Minute

// clientBucket pairs a limiter with its last-seen time, both guarded by
// the pool mutex.
type clientBucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// limiterPool hands out one token bucket per client address.
type limiterPool struct {
	mu      sync.Mutex
	cfg     RateLimitConfig
	clients map[string]*clientBucket
}

func (p *limiterPool) get(addr string) *rate.Limiter {
	now := time.Now()
	p.mu.Lock()
	defer p.mu.Unlock()

	b, ok := p.clients[addr]
	if !ok {
		b = &clientBucket{limiter: rate.NewLimiter(rate.Limit(p.cfg.RequestsPerSecond), p.cfg.Burst)}
		p.clients[addr] = b
	}
	b.lastSeen = now
	return b.limiter
}

func (p *limiterPool) dropStale() {
	cutoff := time.Now().Add(-staleClientAge)
	p.mu.Lock()
	defer p.mu.Unlock()
	for addr, b := range p.clients {
		if b.lastSeen.Before(cutoff) {
			delete(p.clients, addr)
		}
	}
}

// RateLimiter enforces a per-client token-bucket limit, answering 429 with
// a Retry-After hint when the bucket is empty. Clients are keyed by
// RemoteAddr; the router's RealIP middleware has already folded any proxy
// headers into it.
func RateLimiter(cfg RateLimitConfig) func(http.Handler) http.Handler {
	pool := &limiterPool{cfg: cfg, clients: make(map[string]*clientBucket)}

	go func() {
		for range time.Tick(5 * time.Minute) {
			pool.dropStale()
		}
	}()

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			limiter := pool.get(clientAddr(r))

			res := limiter.Reserve()
			if delay := res.Delay(); !res.OK() || delay > 0 {
				if res.OK() {
					res.Cancel()
				}
				w.Header().Set("Retry-After", strconv.Itoa(int(delay.Seconds())+1))
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusTooManyRequests)
				fmt.Fprint(w, `{"error":{"code":"RATE_LIMITED","message":"rate limit exceeded, retry later"}}`)
				return
			}

			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(cfg.Burst))
			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(int(limiter.Tokens())))
			next.ServeHTTP(w, r)
		})
	}
}

// clientAddr strips the port from RemoteAddr.
func clientAddr(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
