// Package ratelimit throttles gateway requests per client IP using a
// sliding window.
package ratelimit

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/JoaoG250/micro-do/common/httputil"
	"github.com/JoaoG250/micro-do/common/logging"
	"github.com/JoaoG250/micro-do/common/metrics"
)

type RateLimiter interface {
	Allow(ctx context.Context, key string) (bool, error)
	Close() error
}

// slidingWindow runs atomically in Redis: drop entries older than the
// window, then admit the request if the remaining count is under the limit.
var slidingWindow = redis.NewScript(`
	local key = KEYS[1]
	local now = tonumber(ARGV[1])
	local window_start = tonumber(ARGV[2])
	local limit = tonumber(ARGV[3])
	local ttl = tonumber(ARGV[4])
	local member = ARGV[5]

	redis.call('ZREMRANGEBYSCORE', key, 0, window_start)

	local current = redis.call('ZCARD', key)
	if current < limit then
		redis.call('ZADD', key, now, member)
		redis.call('PEXPIRE', key, ttl)
		return 1
	end
	return 0
`)

type redisRateLimiter struct {
	client *redis.Client
	limit  int64
	window time.Duration
	prefix string
	now    func() time.Time
}

// NewRedisRateLimiter connects to redisURL and admits limit requests per
// window for each key.
func NewRedisRateLimiter(ctx context.Context, redisURL string, limit int, window time.Duration) (RateLimiter, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis URL: %w", err)
	}
	client := redis.NewClient(opt)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis connection failed: %w", err)
	}

	return newRedisRateLimiter(client, limit, window), nil
}

func newRedisRateLimiter(client *redis.Client, limit int, window time.Duration) *redisRateLimiter {
	return &redisRateLimiter{
		client: client,
		limit:  int64(limit),
		window: window,
		prefix: "microdo:ratelimit:",
		now:    time.Now,
	}
}

// Allow implements sliding window rate limiting using Redis.
func (r *redisRateLimiter) Allow(ctx context.Context, key string) (bool, error) {
	now := r.now().UnixNano()
	windowStart := now - r.window.Nanoseconds()
	// Members must be unique or two requests in the same nanosecond collapse.
	member := strconv.FormatInt(now, 10) + "-" + uuid.NewString()

	result, err := slidingWindow.Run(ctx, r.client, []string{r.prefix + key},
		now, windowStart, r.limit, r.window.Milliseconds()+1000, member).Int()
	if err != nil {
		return false, fmt.Errorf("rate limit check failed: %w", err)
	}
	return result == 1, nil
}

func (r *redisRateLimiter) Close() error {
	return r.client.Close()
}

// memoryRateLimiter keeps the same sliding window in process. It is used
// when Redis is not configured, so limits are per gateway instance.
type memoryRateLimiter struct {
	mu     sync.Mutex
	hits   map[string][]time.Time
	limit  int
	window time.Duration
	now    func() time.Time
}

// NewMemoryRateLimiter creates an in-process sliding window limiter.
func NewMemoryRateLimiter(limit int, window time.Duration) RateLimiter {
	return &memoryRateLimiter{
		hits:   make(map[string][]time.Time),
		limit:  limit,
		window: window,
		now:    time.Now,
	}
}

func (m *memoryRateLimiter) Allow(_ context.Context, key string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	cutoff := now.Add(-m.window)
	hits := m.hits[key]
	i := 0
	for i < len(hits) && !hits[i].After(cutoff) {
		i++
	}
	hits = hits[i:]

	if len(hits) >= m.limit {
		m.hits[key] = hits
		return false, nil
	}
	m.hits[key] = append(hits, now)
	return true, nil
}

func (m *memoryRateLimiter) Close() error {
	return nil
}

// NoOpRateLimiter always allows requests (for testing or disabled rate limiting)
type NoOpRateLimiter struct{}

func (n *NoOpRateLimiter) Allow(ctx context.Context, key string) (bool, error) {
	return true, nil
}

func (n *NoOpRateLimiter) Close() error {
	return nil
}

// Middleware rejects requests over the limit with 429. Limiter errors fail
// open so a Redis outage does not take the API down.
func Middleware(limiter RateLimiter, logger *logging.Logger) func(http.Handler) http.Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip := httputil.GetClientIP(r)
			allowed, err := limiter.Allow(r.Context(), ip)
			if err != nil {
				logger.WarnContext(r.Context(), "rate limiter unavailable", logging.IP(ip), logging.Error(err))
				next.ServeHTTP(w, r)
				return
			}
			if !allowed {
				metrics.RateLimitHits.WithLabelValues(routeOf(r.URL.Path)).Inc()
				w.Header().Set("Retry-After", "1")
				httputil.WriteError(w, http.StatusTooManyRequests, "ThrottlerException: Too Many Requests")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// routeOf keeps the first two path segments so ids do not explode the
// metric's cardinality.
func routeOf(path string) string {
	parts := strings.SplitN(strings.TrimPrefix(path, "/"), "/", 3)
	if len(parts) > 2 {
		parts = parts[:2]
	}
	return "/" + strings.Join(parts, "/")
}
