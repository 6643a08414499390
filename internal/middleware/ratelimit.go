// Package middleware holds fiber middleware for the HTTP query surface: a
// per-IP rate limiter protecting the two heavy derived-analysis endpoints.
package middleware

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
)

// RateLimitMiddleware caps per-second and per-day request counts from a
// single client IP, using the same multi-window Redis-counter shape as the
// corpus's partner rate limiter, scaled down to an anonymous, per-IP key
// since the query surface has no notion of an authenticated tenant.
func RateLimitMiddleware(rdb *redis.Client, perSecond, perDay int) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx := context.Background()
		now := time.Now()
		ip := c.IP()

		keySecond := fmt.Sprintf("rl:ip:%s:second:%d", ip, now.Unix())
		keyDay := fmt.Sprintf("rl:ip:%s:day:%s", ip, now.Format("2006-01-02"))

		if perSecond > 0 {
			countSecond, err := rdb.Incr(ctx, keySecond).Result()
			if err == nil {
				rdb.Expire(ctx, keySecond, 2*time.Second)
				if countSecond > int64(perSecond) {
					c.Set("X-RateLimit-Limit-Second", strconv.Itoa(perSecond))
					c.Set("Retry-After", "1")
					return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
						"error":       "rate_limit_exceeded",
						"limit_type":  "per_second",
						"limit":       perSecond,
						"retry_after": 1,
					})
				}
			}
		}

		if perDay > 0 {
			countDay, err := rdb.Incr(ctx, keyDay).Result()
			if err == nil {
				rdb.Expire(ctx, keyDay, 25*time.Hour)
				if countDay > int64(perDay) {
					tomorrow := now.AddDate(0, 0, 1)
					midnight := time.Date(tomorrow.Year(), tomorrow.Month(), tomorrow.Day(), 0, 0, 0, 0, tomorrow.Location())
					retryAfter := int64(midnight.Sub(now).Seconds())

					c.Set("X-RateLimit-Limit-Day", strconv.Itoa(perDay))
					c.Set("Retry-After", strconv.FormatInt(retryAfter, 10))
					return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
						"error":       "daily_quota_exceeded",
						"limit_type":  "per_day",
						"limit":       perDay,
						"used":        countDay,
						"retry_after": retryAfter,
					})
				}
				c.Set("X-RateLimit-Remaining-Day", strconv.FormatInt(int64(perDay)-countDay, 10))
			}
		}

		return c.Next()
	}
}
