package middleware

import (
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"pc-insight/backend/global"

	"github.com/redis/go-redis/v9"
)

// RateLimiter enforces a fixed-window per-scope request budget. With a
// redis client the window counters are shared across backend instances;
// without one it degrades to a process-local sliding window.
type RateLimiter struct {
	rdb    *redis.Client
	limit  int
	window time.Duration

	mu      sync.Mutex
	buckets map[string][]time.Time
}

func NewRateLimiter(rdb *redis.Client, limit int, window time.Duration) *RateLimiter {
	if limit <= 0 {
		limit = 120
	}
	if window <= 0 {
		window = time.Minute
	}
	return &RateLimiter{rdb: rdb, limit: limit, window: window, buckets: map[string][]time.Time{}}
}

// Allow reports whether one more request fits the scope's window.
func (l *RateLimiter) Allow(r *http.Request, scope string) bool {
	key := scope + ":" + clientID(r)
	if l.rdb != nil {
		if ok, err := l.allowRedis(r, key); err == nil {
			return ok
		}
		// Redis being down must not take the API down with it.
	}
	return l.allowInMemory(key)
}

func (l *RateLimiter) allowRedis(r *http.Request, key string) (bool, error) {
	ctx := r.Context()
	bucket := time.Now().Unix() / int64(l.window/time.Second)
	redisKey := fmt.Sprintf("ratelimit:%s:%d", key, bucket)
	count, err := l.rdb.Incr(ctx, redisKey).Result()
	if err != nil {
		return false, err
	}
	if count == 1 {
		l.rdb.Expire(ctx, redisKey, l.window+time.Second)
	}
	return count <= int64(l.limit), nil
}

func (l *RateLimiter) allowInMemory(key string) bool {
	now := time.Now()
	l.mu.Lock()
	defer l.mu.Unlock()
	bucket := l.buckets[key]
	kept := bucket[:0]
	for _, t := range bucket {
		if now.Sub(t) <= l.window {
			kept = append(kept, t)
		}
	}
	if len(kept) >= l.limit {
		l.buckets[key] = kept
		return false
	}
	l.buckets[key] = append(kept, now)
	return true
}

// Guard wraps a handler with the limiter under the given scope.
func (l *RateLimiter) Guard(scope string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !l.Allow(r, scope) {
			global.Logger.Warn().Str("scope", scope).Str("ip", r.RemoteAddr).Msg("rate limit exceeded")
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func clientID(r *http.Request) string {
	// Device endpoints scope per device; everything else per client IP.
	if claims := ClaimsFrom(r); claims != nil && claims.DeviceID != "" {
		return claims.DeviceID
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
