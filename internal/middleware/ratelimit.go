package middleware

import (
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/tryonlab/api/pkg/response"
)

type RateLimiter struct {
	redis  *redis.Client
	logger zerolog.Logger
}

func NewRateLimiter(redisClient *redis.Client, logger zerolog.Logger) *RateLimiter {
	return &RateLimiter{
		redis:  redisClient,
		logger: logger.With().Str("component", "ratelimit").Logger(),
	}
}

// Limit creates a fixed-window rate limiting middleware keyed by client IP.
// A zero maxRequests disables the limit.
func (rl *RateLimiter) Limit(keyPrefix string, maxRequests int, window time.Duration) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if maxRequests <= 0 || rl.redis == nil {
			return c.Next()
		}

		key := fmt.Sprintf("ratelimit:%s:%s", keyPrefix, c.IP())
		ctx := c.UserContext()

		// Increment counter
		count, err := rl.redis.Incr(ctx, key).Result()
		if err != nil {
			// If Redis fails, allow the request but log the error
			rl.logger.Warn().Err(err).Str("key", key).Msg("rate limit check failed")
			return c.Next()
		}

		// Set expiration on first request
		if count == 1 {
			rl.redis.Expire(ctx, key, window)
		}

		if count > int64(maxRequests) {
			// Get TTL for retry-after header
			ttl, _ := rl.redis.TTL(ctx, key).Result()
			c.Set(fiber.HeaderRetryAfter, fmt.Sprintf("%d", int(ttl.Seconds())))
			return response.RateLimited(c)
		}

		// Add rate limit headers
		c.Set("X-RateLimit-Limit", fmt.Sprintf("%d", maxRequests))
		c.Set("X-RateLimit-Remaining", fmt.Sprintf("%d", maxRequests-int(count)))

		return c.Next()
	}
}

// TryOnLimit returns a rate limiter for the 2D try-on endpoint
func (rl *RateLimiter) TryOnLimit(maxPerHour int) fiber.Handler {
	return rl.Limit("tryon", maxPerHour, time.Hour)
}

// ReconstructLimit returns a rate limiter for the 3D endpoints
func (rl *RateLimiter) ReconstructLimit(maxPerHour int) fiber.Handler {
	return rl.Limit("reconstruct", maxPerHour, time.Hour)
}
