package middleware

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/iliyamo/counseling-booking/internal/config"
)

// takeToken refills the bucket in whole intervals and spends one token.
// KEYS[1] bucket hash; ARGV now_ms, capacity, refill, interval_ms, ttl_ms.
// Reply: {allowed, remaining, retry_after_ms}.
var takeToken = redis.NewScript(`
local now      = tonumber(ARGV[1])
local cap      = tonumber(ARGV[2])
local refill   = tonumber(ARGV[3])
local interval = tonumber(ARGV[4])

local b = redis.call('HMGET', KEYS[1], 't', 'at')
local tokens = tonumber(b[1]) or cap
local at     = tonumber(b[2]) or now

local steps = math.floor(math.max(0, now - at) / interval)
if steps > 0 then
	tokens = math.min(cap, tokens + steps * refill)
	at = at + steps * interval
end

local ok, wait = 0, 0
if tokens >= 1 then
	ok = 1
	tokens = tokens - 1
else
	wait = interval - (now - at)
end

redis.call('HSET', KEYS[1], 't', tokens, 'at', at)
redis.call('PEXPIRE', KEYS[1], ARGV[5])
return {ok, tokens, wait}
`)

var errBucketReply = errors.New("unexpected rate limit reply")

func passThrough(next echo.HandlerFunc) echo.HandlerFunc { return next }

// bucket is one configured limiter bound to a redis client.
type bucket struct {
	cfg config.RateLimitConfig
	rdb *redis.Client
}

func (b bucket) take(ctx context.Context, key string) (allowed bool, remaining, retryMs int64, err error) {
	res, err := takeToken.Run(ctx, b.rdb, []string{key},
		time.Now().UnixMilli(),
		b.cfg.Capacity,
		b.cfg.RefillTokens,
		b.cfg.RefillInterval.Milliseconds(),
		b.cfg.TTL.Milliseconds(),
	).Result()
	if err != nil {
		return false, 0, 0, err
	}
	allowed, remaining, retryMs, ok := parseBucketResult(res)
	if !ok {
		return false, 0, 0, errBucketReply
	}
	return allowed, remaining, retryMs, nil
}

// NewTokenBucket throttles requests per key with a redis token bucket.
// Without a client, or when a redis call fails, requests pass.
func NewTokenBucket(cfg config.RateLimitConfig, rdb *redis.Client, log *zap.Logger) echo.MiddlewareFunc {
	if !cfg.Enabled || rdb == nil {
		return passThrough
	}
	b := bucket{cfg: cfg, rdb: rdb}
	limit := strconv.Itoa(cfg.Capacity)

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			key := buildRateKey(cfg, c)
			allowed, remaining, retryMs, err := b.take(c.Request().Context(), key)
			if err != nil {
				log.Warn("rate limiter unavailable", zap.String("key", key), zap.Error(err))
				return next(c)
			}

			h := c.Response().Header()
			h.Set("X-RateLimit-Limit", limit)
			h.Set("X-RateLimit-Remaining", strconv.FormatInt(remaining, 10))
			if allowed {
				return next(c)
			}

			wait := (retryMs + 999) / 1000
			h.Set("Retry-After", strconv.FormatInt(wait, 10))
			if cfg.Debug {
				log.Info("request throttled", zap.String("key", key), zap.Int64("retry_ms", retryMs))
			}
			return c.JSON(http.StatusTooManyRequests, echo.Map{"error": "too many requests", "retry_after": wait})
		}
	}
}

func parseBucketResult(v any) (allowed bool, remaining, retryMs int64, ok bool) {
	arr, isArr := v.([]any)
	if !isArr || len(arr) != 3 {
		return false, 0, 0, false
	}
	return asInt64(arr[0]) == 1, asInt64(arr[1]), asInt64(arr[2]), true
}

func asInt64(v any) int64 {
	switch n := v.(type) {
	case int64:
		return n
	case int:
		return int64(n)
	case float64:
		return int64(n)
	case string:
		i, _ := strconv.ParseInt(n, 10, 64)
		return i
	}
	return 0
}

// keyParts resolves one dimension of a rate limit key.
var keyParts = map[string]func(c echo.Context) string{
	"ip": func(c echo.Context) string {
		if ip := c.RealIP(); ip != "" {
			return ip
		}
		return "unknown"
	},
	"user":  userID,
	"route": func(c echo.Context) string { return c.Request().Method + " " + c.Path() },
}

// buildRateKey joins the prefix with the dimensions named by the key
// strategy, e.g. "ip_route".  Unknown strategies key on all three.
func buildRateKey(cfg config.RateLimitConfig, c echo.Context) string {
	dims := strings.Split(strings.ToLower(cfg.KeyStrategy), "_")
	for _, d := range dims {
		if keyParts[d] == nil {
			dims = []string{"ip", "user", "route"}
			break
		}
	}
	parts := []string{cfg.Prefix}
	for _, d := range dims {
		parts = append(parts, d, keyParts[d](c))
	}
	return strings.Join(parts, ":")
}
