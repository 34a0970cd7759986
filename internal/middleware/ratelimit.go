package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/bus-seat-reservation/internal/config"
)

// tokenBucketScript implements a refilling token bucket atomically in
// Redis.  ARGV: now (ms), capacity, refill tokens, refill interval
// (ms), key TTL (s).  Returns {allowed, tokens left, wait ms}.
const tokenBucketScript = `
local now = tonumber(ARGV[1])
local cap = tonumber(ARGV[2])
local refill = tonumber(ARGV[3])
local interval = tonumber(ARGV[4])
local ttl = tonumber(ARGV[5])

local st = redis.call('HMGET', KEYS[1], 'tokens', 'ts')
local tokens = tonumber(st[1])
local ts = tonumber(st[2])
if tokens == nil or ts == nil then
    tokens = cap
    ts = now
end

local steps = math.floor(math.max(0, now - ts) / interval)
if steps > 0 then
    tokens = math.min(cap, tokens + steps * refill)
    ts = ts + steps * interval
end

local allowed = 0
local wait = 0
if tokens > 0 then
    allowed = 1
    tokens = tokens - 1
else
    wait = math.max(0, interval - (now - ts))
end

redis.call('HMSET', KEYS[1], 'tokens', tokens, 'ts', ts)
redis.call('EXPIRE', KEYS[1], ttl)
return {allowed, tokens, wait}
`

// NewTokenBucket rate limits the mutating reservation endpoints so a
// client cannot hammer seat locks.  Buckets are keyed per session (or
// client IP before authentication) and per route.  A Redis outage
// fails open: seat traffic is not dropped because the limiter store
// is down.
func NewTokenBucket(cfg config.RateLimitConfig, rdb *redis.Client) echo.MiddlewareFunc {
	if !cfg.Enabled || rdb == nil {
		return func(next echo.HandlerFunc) echo.HandlerFunc { return next }
	}
	bucket := redis.NewScript(tokenBucketScript)

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			res, err := bucket.Run(c.Request().Context(), rdb, []string{bucketKey(cfg.Prefix, c)},
				time.Now().UnixMilli(),
				cfg.Capacity,
				cfg.RefillTokens,
				cfg.RefillInterval.Milliseconds(),
				int64(cfg.TTL/time.Second),
			).Int64Slice()
			if err != nil || len(res) != 3 {
				return next(c)
			}

			c.Response().Header().Set("X-RateLimit-Limit", strconv.Itoa(cfg.Capacity))
			c.Response().Header().Set("X-RateLimit-Remaining", strconv.FormatInt(res[1], 10))

			if res[0] != 1 {
				secs := (res[2] + 999) / 1000
				c.Response().Header().Set("Retry-After", strconv.FormatInt(secs, 10))
				return c.JSON(http.StatusTooManyRequests, echo.Map{
					"error":       "rate limit exceeded",
					"retry_after": secs,
				})
			}
			return next(c)
		}
	}
}

// bucketKey scopes a bucket to one caller and one route.  Sessions
// share a bucket across connections; unauthenticated calls fall back
// to the client IP.
func bucketKey(prefix string, c echo.Context) string {
	id := "ip:" + c.RealIP()
	if s, ok := c.Get("session_id").(string); ok && s != "" {
		id = "sess:" + s
	}
	return prefix + ":" + id + ":" + c.Request().Method + ":" + c.Path()
}
