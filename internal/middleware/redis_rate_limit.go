package middleware

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/baharkarakas/ledger-backend/internal/api/httpx"
)

var fixedWindowScript = redis.NewScript(`
local current = redis.call("INCR", KEYS[1])
if current == 1 then
  redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
local ttl = redis.call("PTTL", KEYS[1])
if ttl < 0 then
  ttl = tonumber(ARGV[1])
end
return {current, ttl}
`)

// RedisLimiter is a fixed-window counter shared by every API instance.
type RedisLimiter struct {
	client redis.UniversalClient
	prefix string
	limit  int
	window time.Duration
}

func NewRedisLimiter(client redis.UniversalClient, prefix string, limit int, window time.Duration) *RedisLimiter {
	prefix = strings.TrimSuffix(strings.TrimSpace(prefix), ":")
	if prefix == "" {
		prefix = "ledger:ratelimit"
	}
	if window < time.Second {
		window = time.Second
	}
	return &RedisLimiter{client: client, prefix: prefix, limit: limit, window: window}
}

// Consume counts one hit for subject and returns the count in the current
// window and the time until it resets.
func (l *RedisLimiter) Consume(ctx context.Context, subject string) (int64, time.Duration, error) {
	key := l.prefix + ":" + subject
	raw, err := fixedWindowScript.Run(ctx, l.client, []string{key}, l.window.Milliseconds()).Result()
	if err != nil {
		return 0, 0, err
	}
	values, ok := raw.([]interface{})
	if !ok || len(values) != 2 {
		return 0, 0, fmt.Errorf("unexpected redis limiter response shape: %T", raw)
	}
	count, ok := values[0].(int64)
	if !ok {
		return 0, 0, fmt.Errorf("unexpected redis limiter count type: %T", values[0])
	}
	ttl, ok := values[1].(int64)
	if !ok || ttl < 0 {
		ttl = l.window.Milliseconds()
	}
	return count, time.Duration(ttl) * time.Millisecond, nil
}

// Middleware limits per authenticated user, falling back to the client IP.
// Redis errors let the request through.
func (l *RedisLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		subject, ok := UserID(r.Context())
		if !ok {
			subject = clientIP(r)
		}
		count, ttl, err := l.Consume(r.Context(), subject)
		if err != nil {
			slog.Warn("rate limiter unavailable", "err", err, "request_id", RequestIDFrom(r.Context()))
			next.ServeHTTP(w, r)
			return
		}
		if count > int64(l.limit) {
			retry := int(math.Ceil(ttl.Seconds()))
			if retry < 1 {
				retry = 1
			}
			w.Header().Set("Retry-After", strconv.Itoa(retry))
			httpx.WriteError(w, http.StatusTooManyRequests, "rate_limited", "too many requests", nil)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
