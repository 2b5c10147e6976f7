package api

import (
	"context"
	"fmt"
	"math"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/isdelr/carlist-be/internal/api/handlers"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"
)

const rateLimiterSweepInterval = 5 * time.Minute

// RateLimiter decides whether the caller identified by key may proceed.
type RateLimiter interface {
	Allow(ctx context.Context, key string) Decision
	Close()
}

// Decision is the outcome of one rate limit check.
type Decision struct {
	Allowed   bool
	Limit     int
	Remaining int
	ResetAt   time.Time
}

// ---- in-process limiter ----

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// MemoryRateLimiter keeps a token bucket per key. It allows limit requests
// per window with bursts up to limit.
type MemoryRateLimiter struct {
	limit  int
	window time.Duration

	mu       sync.Mutex
	visitors map[string]*visitor
	stopCh   chan struct{}
	once     sync.Once
}

// NewMemoryRateLimiter starts a limiter and its idle-entry sweeper.
func NewMemoryRateLimiter(limit int, window time.Duration) *MemoryRateLimiter {
	if window <= 0 {
		window = time.Minute
	}
	rl := &MemoryRateLimiter{
		limit:    limit,
		window:   window,
		visitors: make(map[string]*visitor),
		stopCh:   make(chan struct{}),
	}
	go rl.sweepLoop()
	return rl
}

// Allow consumes one token from key's bucket.
func (rl *MemoryRateLimiter) Allow(_ context.Context, key string) Decision {
	if rl.limit <= 0 {
		return Decision{Allowed: true}
	}
	now := time.Now()

	rl.mu.Lock()
	v, ok := rl.visitors[key]
	if !ok {
		every := rl.window / time.Duration(rl.limit)
		v = &visitor{limiter: rate.NewLimiter(rate.Every(every), rl.limit)}
		rl.visitors[key] = v
	}
	v.lastSeen = now
	rl.mu.Unlock()

	allowed := v.limiter.AllowN(now, 1)
	tokens := v.limiter.TokensAt(now)
	d := Decision{
		Allowed:   allowed,
		Limit:     rl.limit,
		Remaining: int(math.Max(0, math.Floor(tokens))),
		ResetAt:   now,
	}
	if missing := float64(rl.limit) - tokens; missing > 0 {
		perToken := float64(rl.window) / float64(rl.limit)
		d.ResetAt = now.Add(time.Duration(missing * perToken))
	}
	return d
}

func (rl *MemoryRateLimiter) sweepLoop() {
	ticker := time.NewTicker(rateLimiterSweepInterval)
	defer ticker.Stop()
	for {
		select {
		case now := <-ticker.C:
			rl.cleanup(now)
		case <-rl.stopCh:
			return
		}
	}
}

func (rl *MemoryRateLimiter) cleanup(now time.Time) {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	for key, v := range rl.visitors {
		if now.Sub(v.lastSeen) > rl.window {
			delete(rl.visitors, key)
		}
	}
}

// Close stops the sweeper.
func (rl *MemoryRateLimiter) Close() {
	rl.once.Do(func() { close(rl.stopCh) })
}

// ---- redis limiter ----

// RedisRateLimiter counts requests per fixed window in Redis so the limit is
// shared by every instance. Redis failures let the request through.
type RedisRateLimiter struct {
	client  *redis.Client
	limit   int
	window  time.Duration
	prefix  string
	timeout time.Duration
}

// NewRedisRateLimiter connects to the Redis server at url (redis://...) and
// verifies it with a PING.
func NewRedisRateLimiter(ctx context.Context, url string, limit int, window time.Duration) (*RedisRateLimiter, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return newRedisRateLimiter(client, limit, window), nil
}

func newRedisRateLimiter(client *redis.Client, limit int, window time.Duration) *RedisRateLimiter {
	if window <= 0 {
		window = time.Minute
	}
	return &RedisRateLimiter{
		client:  client,
		limit:   limit,
		window:  window,
		prefix:  "carlist:ratelimit:",
		timeout: 250 * time.Millisecond,
	}
}

// Allow increments key's counter for the current window.
func (rl *RedisRateLimiter) Allow(ctx context.Context, key string) Decision {
	if rl.limit <= 0 {
		return Decision{Allowed: true}
	}
	ctx, cancel := context.WithTimeout(ctx, rl.timeout)
	defer cancel()

	redisKey := rl.prefix + key
	counter, err := rl.client.Incr(ctx, redisKey).Result()
	if err != nil {
		log.Error().Err(err).Str("op", "incr").Msg("Redis rate limiter error")
		return Decision{Allowed: true, Limit: rl.limit, Remaining: rl.limit}
	}
	if counter == 1 {
		if err := rl.client.Expire(ctx, redisKey, rl.window).Err(); err != nil {
			log.Error().Err(err).Str("op", "expire").Msg("Redis rate limiter error")
		}
	}
	reset, err := rl.client.PTTL(ctx, redisKey).Result()
	if err != nil || reset <= 0 {
		reset = rl.window
	}

	count := int(counter)
	remaining := rl.limit - count
	if remaining < 0 {
		remaining = 0
	}
	return Decision{
		Allowed:   count <= rl.limit,
		Limit:     rl.limit,
		Remaining: remaining,
		ResetAt:   time.Now().Add(reset),
	}
}

// Close releases the Redis connection pool.
func (rl *RedisRateLimiter) Close() {
	if rl.client != nil {
		_ = rl.client.Close()
	}
}

// ---- middleware ----

// RateLimit rejects callers over the limit with 429, keyed by client IP.
// A nil limiter disables the check.
func RateLimit(limiter RateLimiter, metrics *Metrics, route string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if limiter == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			d := limiter.Allow(r.Context(), route+":"+clientIP(r))
			applyRateHeaders(w, d)
			if !d.Allowed {
				if metrics != nil {
					metrics.recordRateLimitHit(route)
				}
				log.Warn().Str("route", route).Str("ip", clientIP(r)).Msg("Rate limit exceeded")
				handlers.WriteMessage(w, http.StatusTooManyRequests, "Too many requests, please try again later")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func applyRateHeaders(w http.ResponseWriter, d Decision) {
	if d.Limit <= 0 {
		return
	}
	h := w.Header()
	h.Set("X-RateLimit-Limit", strconv.Itoa(d.Limit))
	h.Set("X-RateLimit-Remaining", strconv.Itoa(d.Remaining))
	if !d.ResetAt.IsZero() {
		h.Set("X-RateLimit-Reset", strconv.FormatInt(d.ResetAt.Unix(), 10))
	}
	if !d.Allowed {
		retry := int(math.Ceil(time.Until(d.ResetAt).Seconds()))
		if retry < 1 {
			retry = 1
		}
		h.Set("Retry-After", strconv.Itoa(retry))
	}
}

// clientIP returns the request's remote host. middleware.RealIP has already
// applied X-Forwarded-For / X-Real-IP.
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	if host == "" {
		host = "unknown"
	}
	return host
}
