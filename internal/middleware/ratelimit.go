package middleware

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/HammerMeetNail/solutionbase/internal/logging"
)

// CounterStore increments a counter that expires after window.
type CounterStore interface {
	Incr(ctx context.Context, key string, window time.Duration) (int64, error)
}

// RedisCounterStore keeps rate limit counters in Redis.
type RedisCounterStore struct {
	client *redis.Client
}

func NewRedisCounterStore(client *redis.Client) *RedisCounterStore {
	return &RedisCounterStore{client: client}
}

func (s *RedisCounterStore) Incr(ctx context.Context, key string, window time.Duration) (int64, error) {
	pipe := s.client.Pipeline()
	incrCmd := pipe.Incr(ctx, key)
	pipe.Expire(ctx, key, window)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, err
	}
	return incrCmd.Val(), nil
}

// RejectFunc writes the response for a request the limiter turns away.
type RejectFunc func(w http.ResponseWriter, r *http.Request, status int, message string)

// RateLimiter applies a fixed window limit per key.
type RateLimiter struct {
	store      CounterStore
	limit      int
	window     time.Duration
	prefix     string
	keyFunc    func(*http.Request) string
	failClosed bool
	reject     RejectFunc
	now        func() time.Time
}

// NewRateLimiter limits requests to limit per window for each key returned
// by keyFunc (the client IP when nil). When the store fails, requests are
// rejected with 503 if failClosed is set and allowed otherwise. A nil store
// disables limiting.
func NewRateLimiter(store CounterStore, limit int, window time.Duration, prefix string, keyFunc func(*http.Request) string, failClosed bool) *RateLimiter {
	if keyFunc == nil {
		keyFunc = GetClientIP
	}
	return &RateLimiter{
		store:      store,
		limit:      limit,
		window:     window,
		prefix:     prefix,
		keyFunc:    keyFunc,
		failClosed: failClosed,
		reject:     rejectJSON,
		now:        time.Now,
	}
}

// WithReject replaces the default {"error": ...} rejection body.
func (rl *RateLimiter) WithReject(fn RejectFunc) *RateLimiter {
	if fn != nil {
		rl.reject = fn
	}
	return rl
}

func (rl *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if rl.store == nil {
			next.ServeHTTP(w, r)
			return
		}

		now := rl.now()
		windowStart := now.Truncate(rl.window)
		resetTime := windowStart.Add(rl.window).Unix()
		key := fmt.Sprintf("%s%s:%d", rl.prefix, rl.keyFunc(r), windowStart.Unix())

		count, err := rl.store.Incr(r.Context(), key, rl.window)
		if err != nil {
			logging.FromContext(r.Context()).Warn("Rate limit store unavailable", map[string]interface{}{
				"error":       err.Error(),
				"fail_closed": rl.failClosed,
			})
			if rl.failClosed {
				rl.reject(w, r, http.StatusServiceUnavailable, "Service temporarily unavailable")
				return
			}
			next.ServeHTTP(w, r)
			return
		}

		remaining := rl.limit - int(count)
		if remaining < 0 {
			remaining = 0
		}
		w.Header().Set("X-RateLimit-Limit", strconv.Itoa(rl.limit))
		w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(remaining))
		w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(resetTime, 10))

		if int(count) > rl.limit {
			w.Header().Set("Retry-After", strconv.FormatInt(max(resetTime-now.Unix(), 1), 10))
			rl.reject(w, r, http.StatusTooManyRequests, "Rate limit exceeded. Please try again later.")
			return
		}

		next.ServeHTTP(w, r)
	})
}

// GetClientIP returns the first X-Forwarded-For hop, then X-Real-IP, then
// the remote address.
func GetClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first := strings.TrimSpace(strings.Split(xff, ",")[0])
		if host, _, err := net.SplitHostPort(first); err == nil {
			return host
		}
		return first
	}

	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return strings.TrimSpace(xri)
	}

	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return ip
}

// NewAuthRateLimiter is the stricter limiter for login and registration.
func NewAuthRateLimiter(store CounterStore) *RateLimiter {
	return NewRateLimiter(store, 5, time.Minute, "ratelimit:auth:", nil, false)
}

// NewMCPRateLimiter limits JSON-RPC calls per client IP. reject writes the
// rejection in the endpoint's own envelope.
func NewMCPRateLimiter(store CounterStore, perMinute int, reject RejectFunc) *RateLimiter {
	return NewRateLimiter(store, perMinute, time.Minute, "ratelimit:mcp:", nil, false).WithReject(reject)
}

func rejectJSON(w http.ResponseWriter, _ *http.Request, status int, message string) {
	writeError(w, status, message)
}

func writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": message})
}
