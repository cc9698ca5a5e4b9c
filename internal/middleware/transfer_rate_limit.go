package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
)

// TransferRateLimit caps transfer attempts per sender wallet (per minute)
// using Redis when available. Keyed by the payer wallet id when the body
// parses, otherwise by client IP.
func TransferRateLimit(cache *redis.Client, maxPerMin int) fiber.Handler {
	if maxPerMin <= 0 {
		maxPerMin = 10
	}
	return func(c *fiber.Ctx) error {
		if cache == nil {
			return c.Next() // no-op without Redis
		}
		var req struct {
			Payer int64 `json:"payer"`
		}
		_ = c.BodyParser(&req)
		key := "rl:transfer:"
		if req.Payer > 0 {
			key += strconv.FormatInt(req.Payer, 10)
		} else {
			key += c.IP()
		}
		cnt, err := cache.Incr(c.UserContext(), key).Result()
		if err == nil && cnt == 1 {
			cache.Expire(c.UserContext(), key, time.Minute)
		}
		if err != nil {
			return c.Next() // fail-open on cache errors
		}
		if cnt > int64(maxPerMin) {
			return fiber.NewError(http.StatusTooManyRequests, "too many transfer attempts, try again later")
		}
		return c.Next()
	}
}
