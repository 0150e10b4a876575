package api

import (
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/victorivanov/huddle/internal/redis"
)

// RateLimitMiddleware counts requests per authenticated user, or per client IP
// when no user is set, in fixed windows keyed by route. Redis errors let the
// request through.
func RateLimitMiddleware(redisClient *redis.Client, limit int, window time.Duration) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			key := rateLimitKey(c)
			allowed, count, ttlMs, err := redisClient.CheckRateLimit(c.Request().Context(), key, limit, window)
			if err != nil {
				slog.Warn("rate limit check failed", "key", key, "error", err)
				return next(c)
			}

			remaining := max(int64(limit)-count, 0)
			resetAt := time.Now().Add(time.Duration(ttlMs) * time.Millisecond).Unix()

			h := c.Response().Header()
			h.Set("X-RateLimit-Limit", strconv.Itoa(limit))
			h.Set("X-RateLimit-Remaining", strconv.FormatInt(remaining, 10))
			h.Set("X-RateLimit-Reset", strconv.FormatInt(resetAt, 10))

			if !allowed {
				h.Set("Retry-After", strconv.FormatInt((ttlMs+999)/1000, 10))
				return Error(c, http.StatusTooManyRequests, "RATE_LIMITED", "too many requests, please try again later")
			}
			return next(c)
		}
	}
}

func rateLimitKey(c echo.Context) string {
	if uid, ok := c.Get("user_id").(int64); ok {
		return fmt.Sprintf("huddle:rl:user:%d:%s", uid, c.Path())
	}
	return fmt.Sprintf("huddle:rl:ip:%s:%s", c.RealIP(), c.Path())
}
