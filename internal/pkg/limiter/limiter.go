/*
Package limiter provides keyed token-bucket rate limiting.

It utilizes the Token Bucket algorithm (rate.Limiter) to control event frequency
per arbitrary string key (source address, user id) and includes a cleanup
goroutine that periodically removes idle buckets, preventing memory leaks.
Buckets are in-memory only; losing them on failover trades strictness for
availability, which is acceptable for chat admission and send pacing.
*/
package limiter

import (
	"net"
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/beech80/clipt-final--sub000/internal/pkg/errs"
	"github.com/beech80/clipt-final--sub000/internal/pkg/logx"
	"github.com/beech80/clipt-final--sub000/internal/pkg/resp"
)

// cleanupInterval is how often idle buckets are swept from the map.
const cleanupInterval = 3 * time.Minute

// KeyedLimiter implements a concurrency-safe rate limiter sharded by string key.
type KeyedLimiter struct {
	// mu protects concurrent access to the limits map.
	mu *sync.RWMutex

	// limits stores the map from key to the *rate.Limiter instance.
	limits map[string]*rate.Limiter

	// r is the refill rate, defining the number of events allowed per second.
	r rate.Limit

	// b is the burst size (token bucket capacity).
	b int
}

// NewKeyedLimiter creates a KeyedLimiter with refill rate r and burst capacity b,
// and starts a background goroutine to periodically clean up idle buckets.
func NewKeyedLimiter(r rate.Limit, b int) *KeyedLimiter {
	k := &KeyedLimiter{
		mu:     &sync.RWMutex{},
		limits: make(map[string]*rate.Limiter),
		r:      r,
		b:      b,
	}

	go k.cleanup()

	return k
}

// Get retrieves the rate limiter for the given key, creating one on first use.
// It uses a double-checked locking pattern for concurrent-safe creation.
func (k *KeyedLimiter) Get(key string) *rate.Limiter {
	k.mu.RLock()
	lim, exists := k.limits[key]
	k.mu.RUnlock()

	if !exists {
		k.mu.Lock()
		lim, exists = k.limits[key]
		if !exists {
			lim = rate.NewLimiter(k.r, k.b)
			k.limits[key] = lim
		}
		k.mu.Unlock()
	}

	return lim
}

// Allow reports whether one event for the key may happen now, consuming a token if so.
func (k *KeyedLimiter) Allow(key string) bool {
	return k.Get(key).Allow()
}

// AllowAt reports whether one event for the key may happen at time t.
// Passing explicit times keeps tests deterministic.
func (k *KeyedLimiter) AllowAt(key string, t time.Time) bool {
	return k.Get(key).AllowN(t, 1)
}

// cleanup periodically removes buckets whose token count has refilled to
// capacity, meaning the key has been idle for at least a full refill period.
func (k *KeyedLimiter) cleanup() {
	ticker := time.NewTicker(cleanupInterval)
	defer ticker.Stop()

	for range ticker.C {
		k.mu.Lock()
		count := 0
		for key, lim := range k.limits {
			if lim.TokensAt(time.Now()) >= float64(lim.Burst()) {
				delete(k.limits, key)
				count++
			}
		}
		remaining := len(k.limits)
		k.mu.Unlock()
		logx.Info("Rate limiter cleanup finished.", "removed", count, "remaining", remaining)
	}
}

// Middleware returns an HTTP middleware that rate limits requests by client IP.
// Requests over the limit receive a 429 Too Many Requests response.
func (k *KeyedLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip := ClientIP(r)

		if !k.Allow(ip) {
			rateLimitErr := errs.NewError(errs.ErrRateLimited)
			resp.RespondError(w, r, rateLimitErr)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// ClientIP extracts the client host from a request's remote address,
// falling back to the raw value when it has no port.
func ClientIP(r *http.Request) string {
	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		ip = r.RemoteAddr
	}

	if ip == "" {
		ip = "unknown_ip"
	}

	return ip
}
