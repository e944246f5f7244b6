package httpapi

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/dmitrijs2005/gophauth/internal/common"
	"github.com/redis/go-redis/v9"
)

// AttemptLimiter counts attempts per key in fixed windows.
type AttemptLimiter interface {
	// Allow registers one attempt and reports whether it is within limit.
	// When it is not, retryAfter tells how long until the window resets.
	Allow(ctx context.Context, key string, limit int, window time.Duration) (allowed bool, retryAfter time.Duration, err error)
}

var attemptWindowScript = redis.NewScript(`
local count = redis.call("INCR", KEYS[1])
if count == 1 then
  redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
local ttl = redis.call("PTTL", KEYS[1])
if ttl < 0 then
  redis.call("PEXPIRE", KEYS[1], ARGV[1])
  ttl = tonumber(ARGV[1])
end
return {count, ttl}
`)

// RedisAttemptLimiter keeps fixed-window counters in Redis so every
// instance of the server shares them.
type RedisAttemptLimiter struct {
	client redis.UniversalClient
	prefix string
}

func NewRedisAttemptLimiter(client redis.UniversalClient, prefix string) *RedisAttemptLimiter {
	if prefix == "" {
		prefix = "attempts"
	}
	return &RedisAttemptLimiter{client: client, prefix: prefix}
}

func (l *RedisAttemptLimiter) Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, time.Duration, error) {
	if l.client == nil {
		return false, 0, fmt.Errorf("redis client is nil")
	}
	windowMS := window.Milliseconds()
	if windowMS <= 0 {
		windowMS = 1000
	}

	raw, err := attemptWindowScript.Run(ctx, l.client, []string{l.prefix + ":" + key}, windowMS).Result()
	if err != nil {
		return false, 0, err
	}

	values, ok := raw.([]any)
	if !ok || len(values) != 2 {
		return false, 0, fmt.Errorf("unexpected redis script response %T", raw)
	}
	count, ok1 := values[0].(int64)
	ttl, ok2 := values[1].(int64)
	if !ok1 || !ok2 {
		return false, 0, fmt.Errorf("unexpected redis script values %T, %T", values[0], values[1])
	}

	if count > int64(limit) {
		return false, time.Duration(ttl) * time.Millisecond, nil
	}
	return true, 0, nil
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// limitAttempts rejects requests from a client IP that exceeded the attempt
// budget of scope. Limiter failures let the request through.
func (s *HTTPServer) limitAttempts(scope string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if s.limiter == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			allowed, retryAfter, err := s.limiter.Allow(r.Context(), scope+":"+clientIP(r), s.attemptLimit, s.attemptWindow)
			if err != nil {
				s.logger.Warn(r.Context(), "attempt limiter unavailable, allowing request", "scope", scope, "error", err.Error())
				next.ServeHTTP(w, r)
				return
			}
			if !allowed {
				if s.metrics != nil {
					s.metrics.RecordRateLimited(scope)
				}
				secs := int(retryAfter.Round(time.Second) / time.Second)
				w.Header().Set("Retry-After", strconv.Itoa(max(secs, 1)))
				writeError(w, r, s.logger, common.NewError(common.CodeRateLimited, MsgTooManyAttempts, "scope", scope))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
